package repository

import (
	"context"
	"time"

	"tenurix/internal/model"
	"tenurix/pkg/pagination"

	"gorm.io/gorm"
)

// PendingApplication is the joined view needed to approve an application.
type PendingApplication struct {
	ApplicationID   int64
	ListingID       int64
	ApplicantUserID int64
	PropertyID      int64
	OwnerUserID     int64
	ListingStatus   string
}

type LeaseApplicationRepository interface {
	FindPendingForApproval(ctx context.Context, id int64) (*PendingApplication, error)
	ResolveIfPending(ctx context.Context, id int64, status string, reviewerID int64, note *string, at time.Time) (int64, error)
	RejectPendingRivals(ctx context.Context, listingID, approvedID int64, note string, at time.Time) ([]int64, error)
	List(ctx context.Context, status string, page pagination.Params) ([]model.LeaseApplication, int64, error)
}

type leaseApplicationRepository struct {
	db *gorm.DB
}

func NewLeaseApplicationRepository(db *gorm.DB) LeaseApplicationRepository {
	return &leaseApplicationRepository{db: db}
}

// FindPendingForApproval returns gorm.ErrRecordNotFound when the application
// does not exist or is no longer pending.
func (r *leaseApplicationRepository) FindPendingForApproval(ctx context.Context, id int64) (*PendingApplication, error) {
	var row PendingApplication
	err := GetDB(ctx, r.db).
		Table("lease_applications AS la").
		Select(`la.id AS application_id, la.listing_id, la.applicant_user_id,
			l.property_id, p.owner_user_id, l.listing_status`).
		Joins("JOIN listings l ON l.id = la.listing_id").
		Joins("JOIN properties p ON p.id = l.property_id").
		Where("la.id = ? AND la.status = ?", id, model.ApplicationPending).
		Take(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *leaseApplicationRepository) ResolveIfPending(ctx context.Context, id int64, status string, reviewerID int64, note *string, at time.Time) (int64, error) {
	res := GetDB(ctx, r.db).
		Model(&model.LeaseApplication{}).
		Where("id = ? AND status = ?", id, model.ApplicationPending).
		Updates(map[string]interface{}{
			"status":              status,
			"reviewed_by_user_id": reviewerID,
			"reviewed_at":         at,
			"review_note":         note,
		})
	return res.RowsAffected, res.Error
}

// RejectPendingRivals rejects every other pending application on the listing
// without a reviewer, stamping note. It returns the ids it rejected.
func (r *leaseApplicationRepository) RejectPendingRivals(ctx context.Context, listingID, approvedID int64, note string, at time.Time) ([]int64, error) {
	db := GetDB(ctx, r.db)

	var ids []int64
	if err := db.Model(&model.LeaseApplication{}).
		Where("listing_id = ? AND status = ? AND id <> ?", listingID, model.ApplicationPending, approvedID).
		Order("id").
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return ids, nil
	}

	res := db.Model(&model.LeaseApplication{}).
		Where("id IN ? AND status = ?", ids, model.ApplicationPending).
		Updates(map[string]interface{}{
			"status":      model.ApplicationRejected,
			"reviewed_at": at,
			"review_note": note,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == int64(len(ids)) {
		return ids, nil
	}

	// Some rows changed underneath us; report only the ones this call rejected.
	var rejected []int64
	if err := db.Model(&model.LeaseApplication{}).
		Where("id IN ? AND status = ? AND review_note = ? AND reviewed_by_user_id IS NULL",
			ids, model.ApplicationRejected, note).
		Order("id").
		Pluck("id", &rejected).Error; err != nil {
		return nil, err
	}
	return rejected, nil
}

func (r *leaseApplicationRepository) List(ctx context.Context, status string, page pagination.Params) ([]model.LeaseApplication, int64, error) {
	var apps []model.LeaseApplication
	var total int64

	db := GetDB(ctx, r.db)
	query := db.Model(&model.LeaseApplication{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	fetch := db.Preload("Applicant").Preload("Listing.Property")
	if status != "" {
		fetch = fetch.Where("status = ?", status)
	}
	if err := fetch.Order("submitted_at DESC, id DESC").Offset(page.Offset()).Limit(page.Limit).Find(&apps).Error; err != nil {
		return nil, 0, err
	}
	return apps, total, nil
}
