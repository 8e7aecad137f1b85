package model

import "time"

const (
	ListingActive   = "Active"
	ListingOccupied = "Occupied"
)

// Listing is an approved property open for lease applications. One per property.
type Listing struct {
	ID              int64               `gorm:"primaryKey;autoIncrement" json:"id"`
	PropertyID      int64               `gorm:"not null;uniqueIndex" json:"property_id"`
	Property        *PropertySubmission `gorm:"foreignKey:PropertyID" json:"property,omitempty"`
	ListingStatus   string              `gorm:"type:varchar(20);not null;default:'Active';index" json:"listing_status"`
	CreatedByUserID *int64              `json:"created_by_user_id"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}
