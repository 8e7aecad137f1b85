package repository

import (
	"context"
	"errors"
	"time"

	"tenurix/internal/model"
	"tenurix/pkg/pagination"

	"gorm.io/gorm"
)

// PropertyRepository is the data access for property submissions. Every state
// change is a conditional update guarded by SubmissionStatus = Pending; callers
// inspect the affected row count to detect lost races.
type PropertyRepository interface {
	PendingAssignee(ctx context.Context, id int64) (assignee *int64, found bool, err error)
	AssignIfPending(ctx context.Context, id, reviewerID int64, at time.Time) (int64, error)
	ResolveIfPending(ctx context.Context, id int64, status string, reviewerID int64, note *string, at time.Time) (int64, error)
	ResolveIfAssigned(ctx context.Context, id int64, status string, reviewerID int64, note *string, at time.Time) (int64, error)
	List(ctx context.Context, status string, page pagination.Params) ([]model.PropertySubmission, int64, error)
	ListByOwner(ctx context.Context, ownerUserID int64) ([]model.PropertySubmission, error)
}

type propertyRepository struct {
	db *gorm.DB
}

func NewPropertyRepository(db *gorm.DB) PropertyRepository {
	return &propertyRepository{db: db}
}

// PendingAssignee reads the current assignee of a pending submission. found is
// false when the submission does not exist or is no longer pending.
func (r *propertyRepository) PendingAssignee(ctx context.Context, id int64) (*int64, bool, error) {
	var row struct {
		AssignedToUserID *int64
	}
	err := GetDB(ctx, r.db).
		Model(&model.PropertySubmission{}).
		Select("assigned_to_user_id").
		Where("id = ? AND submission_status = ?", id, model.SubmissionPending).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return row.AssignedToUserID, true, nil
}

func (r *propertyRepository) AssignIfPending(ctx context.Context, id, reviewerID int64, at time.Time) (int64, error) {
	res := GetDB(ctx, r.db).
		Model(&model.PropertySubmission{}).
		Where("id = ? AND submission_status = ?", id, model.SubmissionPending).
		Updates(map[string]interface{}{
			"assigned_to_user_id": reviewerID,
			"assigned_at":         at,
		})
	return res.RowsAffected, res.Error
}

func (r *propertyRepository) ResolveIfPending(ctx context.Context, id int64, status string, reviewerID int64, note *string, at time.Time) (int64, error) {
	return r.resolve(ctx, status, reviewerID, note, at,
		"id = ? AND submission_status = ?", id, model.SubmissionPending)
}

// ResolveIfAssigned is ResolveIfPending that also requires the submission to
// still be assigned to reviewerID, so a reassignment committed after the
// caller's assignee check leaves the row untouched.
func (r *propertyRepository) ResolveIfAssigned(ctx context.Context, id int64, status string, reviewerID int64, note *string, at time.Time) (int64, error) {
	return r.resolve(ctx, status, reviewerID, note, at,
		"id = ? AND submission_status = ? AND assigned_to_user_id = ?", id, model.SubmissionPending, reviewerID)
}

func (r *propertyRepository) resolve(ctx context.Context, status string, reviewerID int64, note *string, at time.Time, where string, args ...interface{}) (int64, error) {
	res := GetDB(ctx, r.db).
		Model(&model.PropertySubmission{}).
		Where(where, args...).
		Updates(map[string]interface{}{
			"submission_status":   status,
			"reviewed_by_user_id": reviewerID,
			"reviewed_at":         at,
			"review_note":         note,
		})
	return res.RowsAffected, res.Error
}

func (r *propertyRepository) List(ctx context.Context, status string, page pagination.Params) ([]model.PropertySubmission, int64, error) {
	var rows []model.PropertySubmission
	var total int64

	db := GetDB(ctx, r.db)
	query := db.Model(&model.PropertySubmission{})
	if status != "" {
		query = query.Where("submission_status = ?", status)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	fetch := db.Preload("Owner").Preload("AssignedTo")
	if status != "" {
		fetch = fetch.Where("submission_status = ?", status)
	}
	if err := fetch.Order("submitted_at DESC, id DESC").Offset(page.Offset()).Limit(page.Limit).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (r *propertyRepository) ListByOwner(ctx context.Context, ownerUserID int64) ([]model.PropertySubmission, error) {
	var rows []model.PropertySubmission
	err := GetDB(ctx, r.db).
		Where("owner_user_id = ?", ownerUserID).
		Order("submitted_at DESC, id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
