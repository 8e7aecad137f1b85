package repository

import (
	"context"

	"tenurix/internal/model"

	"gorm.io/gorm"
)

type LeaseRepository interface {
	Available(ctx context.Context) bool
	Create(ctx context.Context, lease *model.Lease) error
	FindByApplicationID(ctx context.Context, applicationID int64) (*model.Lease, error)
	ListByOwner(ctx context.Context, ownerUserID int64) ([]model.Lease, error)
}

type leaseRepository struct {
	db *gorm.DB
}

func NewLeaseRepository(db *gorm.DB) LeaseRepository {
	return &leaseRepository{db: db}
}

// Available reports whether the lease table exists. Leases are a derived
// record; deployments without the table still approve applications.
func (r *leaseRepository) Available(ctx context.Context) bool {
	return GetDB(ctx, r.db).Migrator().HasTable(&model.Lease{})
}

func (r *leaseRepository) Create(ctx context.Context, lease *model.Lease) error {
	return GetDB(ctx, r.db).Create(lease).Error
}

func (r *leaseRepository) FindByApplicationID(ctx context.Context, applicationID int64) (*model.Lease, error) {
	var lease model.Lease
	if err := GetDB(ctx, r.db).First(&lease, "application_id = ?", applicationID).Error; err != nil {
		return nil, err
	}
	return &lease, nil
}

func (r *leaseRepository) ListByOwner(ctx context.Context, ownerUserID int64) ([]model.Lease, error) {
	var leases []model.Lease
	err := GetDB(ctx, r.db).
		Preload("Client").
		Preload("Listing.Property").
		Where("owner_user_id = ?", ownerUserID).
		Order("lease_start_date DESC, id DESC").
		Find(&leases).Error
	if err != nil {
		return nil, err
	}
	return leases, nil
}
