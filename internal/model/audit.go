package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ActionAssignSubmission  = "ASSIGN_PROPERTY_SUBMISSION"
	ActionApproveSubmission = "APPROVE_PROPERTY_SUBMISSION"
	ActionRejectSubmission  = "REJECT_PROPERTY_SUBMISSION"
	ActionCreateListing     = "CREATE_LISTING"

	ActionApproveApplication     = "APPROVE_LEASE_APPLICATION"
	ActionRejectApplication      = "REJECT_LEASE_APPLICATION"
	ActionAutoRejectApplications = "AUTO_REJECT_LEASE_APPLICATIONS"
	ActionOccupyListing          = "OCCUPY_LISTING"
	ActionCreateLease            = "CREATE_LEASE"
)

const (
	EntityPropertySubmission = "property_submission"
	EntityListing            = "listing"
	EntityLeaseApplication   = "lease_application"
	EntityLease              = "lease"
)

// AuditLog tracks Who, What, and When for workflow transitions
type AuditLog struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ActorUserID *int64    `gorm:"index" json:"actor_user_id"` // nil when the system acted
	Action      string    `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityType  string    `gorm:"type:varchar(50);not null;index" json:"entity_type"`
	EntityID    int64     `gorm:"index" json:"entity_id"`
	Details     string    `gorm:"type:text" json:"details"` // Serialized JSON payload of the action
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
