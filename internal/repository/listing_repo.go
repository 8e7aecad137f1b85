package repository

import (
	"context"
	"time"

	"tenurix/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ListingRepository interface {
	CreateIfAbsent(ctx context.Context, propertyID int64, createdBy *int64) (*model.Listing, bool, error)
	LockByID(ctx context.Context, id int64) (*model.Listing, error)
	FindByPropertyID(ctx context.Context, propertyID int64) (*model.Listing, error)
	MarkOccupied(ctx context.Context, id int64, at time.Time) (int64, error)
	ListByOwner(ctx context.Context, ownerUserID int64) ([]model.Listing, error)
}

type listingRepository struct {
	db *gorm.DB
}

func NewListingRepository(db *gorm.DB) ListingRepository {
	return &listingRepository{db: db}
}

// CreateIfAbsent inserts an Active listing for the property unless one exists.
// The unique index on property_id makes the insert idempotent under retries.
// created reports whether this call inserted the row.
func (r *listingRepository) CreateIfAbsent(ctx context.Context, propertyID int64, createdBy *int64) (*model.Listing, bool, error) {
	db := GetDB(ctx, r.db)

	listing := model.Listing{
		PropertyID:      propertyID,
		ListingStatus:   model.ListingActive,
		CreatedByUserID: createdBy,
	}
	res := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "property_id"}},
		DoNothing: true,
	}).Create(&listing)
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected == 1 {
		return &listing, true, nil
	}

	existing, err := r.FindByPropertyID(ctx, propertyID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// LockByID reads the listing with a row lock held until the surrounding
// transaction ends. Approvals on one listing take this lock before touching any
// application, so they queue on the listing instead of on each other's rows.
func (r *listingRepository) LockByID(ctx context.Context, id int64) (*model.Listing, error) {
	var l model.Listing
	if err := GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).First(&l).Error; err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *listingRepository) FindByPropertyID(ctx context.Context, propertyID int64) (*model.Listing, error) {
	var l model.Listing
	if err := GetDB(ctx, r.db).First(&l, "property_id = ?", propertyID).Error; err != nil {
		return nil, err
	}
	return &l, nil
}

// MarkOccupied flips an Active listing to Occupied. Zero rows means the listing
// was already occupied (or is gone).
func (r *listingRepository) MarkOccupied(ctx context.Context, id int64, at time.Time) (int64, error) {
	res := GetDB(ctx, r.db).
		Model(&model.Listing{}).
		Where("id = ? AND listing_status = ?", id, model.ListingActive).
		Updates(map[string]interface{}{
			"listing_status": model.ListingOccupied,
			"updated_at":     at,
		})
	return res.RowsAffected, res.Error
}

func (r *listingRepository) ListByOwner(ctx context.Context, ownerUserID int64) ([]model.Listing, error) {
	var listings []model.Listing
	err := GetDB(ctx, r.db).
		Joins("JOIN properties ON properties.id = listings.property_id").
		Where("properties.owner_user_id = ?", ownerUserID).
		Preload("Property").
		Order("listings.created_at DESC").
		Find(&listings).Error
	if err != nil {
		return nil, err
	}
	return listings, nil
}
