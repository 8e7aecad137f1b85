package model

import "time"

const (
	ApplicationPending  = "Pending"
	ApplicationApproved = "Approved"
	ApplicationRejected = "Rejected"
)

// AutoRejectNote marks rejections caused by another applicant's approval.
const AutoRejectNote = "Auto-rejected: another application was approved."

// LeaseApplication is a tenant's request to lease a listing.
// At most one application per listing ever reaches Approved.
type LeaseApplication struct {
	ID                  int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	ListingID           int64      `gorm:"not null;index" json:"listing_id"`
	Listing             *Listing   `gorm:"foreignKey:ListingID" json:"listing,omitempty"`
	ApplicantUserID     int64      `gorm:"not null;index" json:"applicant_user_id"`
	Applicant           *User      `gorm:"foreignKey:ApplicantUserID" json:"applicant,omitempty"`
	Status              string     `gorm:"type:varchar(20);not null;default:'Pending';index" json:"status"`
	RequestedTermMonths int        `gorm:"not null;default:12" json:"requested_term_months"`
	ReviewNote          *string    `gorm:"type:text" json:"review_note"`
	ReviewedByUserID    *int64     `json:"reviewed_by_user_id"` // nil for system-triggered rejections
	ReviewedAt          *time.Time `json:"reviewed_at"`
	SubmittedAt         time.Time  `gorm:"autoCreateTime;index" json:"submitted_at"`
}
