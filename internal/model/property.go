package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Submission status values
const (
	SubmissionPending  = "Pending"
	SubmissionApproved = "Approved"
	SubmissionRejected = "Rejected"
)

// PropertySubmission is a landlord-submitted property and its review state.
// AssignedToUserID is only written while SubmissionStatus is Pending.
type PropertySubmission struct {
	ID               int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	OwnerUserID      int64           `gorm:"not null;index" json:"owner_user_id"`
	Owner            *User           `gorm:"foreignKey:OwnerUserID" json:"owner,omitempty"`
	AddressLine1     string          `gorm:"type:varchar(255);not null" json:"address_line1"`
	City             string          `gorm:"type:varchar(100);not null" json:"city"`
	Province         string          `gorm:"type:varchar(100)" json:"province"`
	PostalCode       string          `gorm:"type:varchar(20)" json:"postal_code"`
	PropertyType     string          `gorm:"type:varchar(50)" json:"property_type"`
	Bedrooms         int             `json:"bedrooms"`
	Bathrooms        int             `json:"bathrooms"`
	RentAmount       decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"rent_amount"`
	SubmissionStatus string          `gorm:"type:varchar(20);not null;default:'Pending';index" json:"submission_status"`
	AssignedToUserID *int64          `gorm:"index" json:"assigned_to_user_id"`
	AssignedTo       *User           `gorm:"foreignKey:AssignedToUserID" json:"assigned_to,omitempty"`
	AssignedAt       *time.Time      `json:"assigned_at"`
	ReviewNote       *string         `gorm:"type:text" json:"review_note"`
	ReviewedByUserID *int64          `json:"reviewed_by_user_id"`
	ReviewedAt       *time.Time      `json:"reviewed_at"`
	SubmittedAt      time.Time       `gorm:"autoCreateTime;index" json:"submitted_at"`
}

// TableName keeps the historical table name.
func (PropertySubmission) TableName() string { return "properties" }

// Address is the one-line form used in queues and portfolio views.
func (p PropertySubmission) Address() string {
	return p.AddressLine1 + ", " + p.City
}
