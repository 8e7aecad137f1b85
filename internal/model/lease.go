package model

import "time"

const LeaseStatusActive = "Active"

// DefaultLeaseTermMonths is the term given to leases created on approval.
const DefaultLeaseTermMonths = 12

// Lease links a listing's owner to the approved applicant.
type Lease struct {
	ID             int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ListingID      int64     `gorm:"not null;index" json:"listing_id"`
	Listing        *Listing  `gorm:"foreignKey:ListingID" json:"listing,omitempty"`
	ApplicationID  int64     `gorm:"not null;uniqueIndex" json:"application_id"`
	OwnerUserID    int64     `gorm:"not null;index" json:"owner_user_id"`
	ClientUserID   int64     `gorm:"not null;index" json:"client_user_id"`
	Client         *User     `gorm:"foreignKey:ClientUserID" json:"client,omitempty"`
	LeaseStartDate time.Time `gorm:"type:date;not null" json:"lease_start_date"`
	LeaseEndDate   time.Time `gorm:"type:date;not null" json:"lease_end_date"`
	LeaseStatus    string    `gorm:"type:varchar(20);not null;default:'Active'" json:"lease_status"`
	CreatedAt      time.Time `json:"created_at"`
}
