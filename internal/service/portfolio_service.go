package service

import (
	"context"
	"errors"
	"time"

	"tenurix/internal/apperror"
	"tenurix/internal/auth"
	"tenurix/internal/model"
	"tenurix/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type PortfolioProperty struct {
	ID               int64           `json:"id"`
	Address          string          `json:"address"`
	Province         string          `json:"province"`
	PostalCode       string          `json:"postal_code"`
	PropertyType     string          `json:"property_type"`
	Bedrooms         int             `json:"bedrooms"`
	Bathrooms        int             `json:"bathrooms"`
	RentAmount       decimal.Decimal `json:"rent_amount"`
	SubmissionStatus string          `json:"submission_status"`
	SubmittedAt      time.Time       `json:"submitted_at"`
}

type PortfolioListing struct {
	ID            int64     `json:"id"`
	PropertyID    int64     `json:"property_id"`
	Address       string    `json:"address"`
	ListingStatus string    `json:"listing_status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type PortfolioLease struct {
	ID             int64  `json:"id"`
	ListingID      int64  `json:"listing_id"`
	Address        string `json:"address"`
	ClientUserID   int64  `json:"client_user_id"`
	ClientName     string `json:"client_name"`
	LeaseStartDate string `json:"lease_start_date"`
	LeaseEndDate   string `json:"lease_end_date"`
	LeaseStatus    string `json:"lease_status"`
}

type PortfolioResponse struct {
	LandlordUserID int64               `json:"landlord_user_id"`
	LandlordName   string              `json:"landlord_name"`
	LandlordEmail  string              `json:"landlord_email"`
	Properties     []PortfolioProperty `json:"properties"`
	Listings       []PortfolioListing  `json:"listings"`
	Leases         []PortfolioLease    `json:"leases"`
}

// PortfolioService is the read side of the workflow for one landlord.
type PortfolioService interface {
	GetPortfolio(ctx context.Context, session auth.Session, landlordUserID int64) (*PortfolioResponse, error)
}

type portfolioService struct {
	users    repository.UserRepository
	props    repository.PropertyRepository
	listings repository.ListingRepository
	leases   repository.LeaseRepository
}

func NewPortfolioService(
	users repository.UserRepository,
	props repository.PropertyRepository,
	listings repository.ListingRepository,
	leases repository.LeaseRepository,
) PortfolioService {
	return &portfolioService{users: users, props: props, listings: listings, leases: leases}
}

func (s *portfolioService) GetPortfolio(ctx context.Context, session auth.Session, landlordUserID int64) (*PortfolioResponse, error) {
	if !session.HasPermission(auth.PermViewLandlordPortfolioKey) {
		return nil, apperror.Unauthorized("missing permission " + auth.PermViewLandlordPortfolioKey)
	}
	if landlordUserID <= 0 {
		return nil, apperror.Validation("id", "landlord id must be a positive integer")
	}

	landlord, err := s.users.GetByID(ctx, landlordUserID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NotFound("landlord not found")
	}
	if err != nil {
		return nil, apperror.Internal("failed to load landlord", err)
	}

	props, err := s.props.ListByOwner(ctx, landlordUserID)
	if err != nil {
		return nil, apperror.Internal("failed to fetch properties", err)
	}
	listings, err := s.listings.ListByOwner(ctx, landlordUserID)
	if err != nil {
		return nil, apperror.Internal("failed to fetch listings", err)
	}

	// A deployment without lease storage still has a portfolio.
	var leases []model.Lease
	if s.leases.Available(ctx) {
		leases, err = s.leases.ListByOwner(ctx, landlordUserID)
		if err != nil {
			return nil, apperror.Internal("failed to fetch leases", err)
		}
	}

	res := &PortfolioResponse{
		LandlordUserID: landlord.ID,
		LandlordName:   landlord.FullName,
		LandlordEmail:  landlord.Email,
		Properties:     make([]PortfolioProperty, 0, len(props)),
		Listings:       make([]PortfolioListing, 0, len(listings)),
		Leases:         make([]PortfolioLease, 0, len(leases)),
	}
	for _, p := range props {
		res.Properties = append(res.Properties, PortfolioProperty{
			ID:               p.ID,
			Address:          p.Address(),
			Province:         p.Province,
			PostalCode:       p.PostalCode,
			PropertyType:     p.PropertyType,
			Bedrooms:         p.Bedrooms,
			Bathrooms:        p.Bathrooms,
			RentAmount:       p.RentAmount,
			SubmissionStatus: p.SubmissionStatus,
			SubmittedAt:      p.SubmittedAt,
		})
	}
	for _, l := range listings {
		item := PortfolioListing{
			ID:            l.ID,
			PropertyID:    l.PropertyID,
			ListingStatus: l.ListingStatus,
			CreatedAt:     l.CreatedAt,
			UpdatedAt:     l.UpdatedAt,
		}
		if l.Property != nil {
			item.Address = l.Property.Address()
		}
		res.Listings = append(res.Listings, item)
	}
	for _, l := range leases {
		item := PortfolioLease{
			ID:             l.ID,
			ListingID:      l.ListingID,
			ClientUserID:   l.ClientUserID,
			LeaseStartDate: l.LeaseStartDate.Format("2006-01-02"),
			LeaseEndDate:   l.LeaseEndDate.Format("2006-01-02"),
			LeaseStatus:    l.LeaseStatus,
		}
		if l.Client != nil {
			item.ClientName = l.Client.FullName
		}
		if l.Listing != nil && l.Listing.Property != nil {
			item.Address = l.Listing.Property.Address()
		}
		res.Leases = append(res.Leases, item)
	}
	return res, nil
}
