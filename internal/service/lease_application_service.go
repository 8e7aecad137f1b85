package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"tenurix/internal/apperror"
	"tenurix/internal/auth"
	"tenurix/internal/model"
	"tenurix/internal/repository"
	"tenurix/pkg/pagination"

	"gorm.io/gorm"
)

// Warnings attached to an approval whose lease record could not be written.
const (
	WarnLeaseStoreUnavailable = "lease storage unavailable; lease record not created"
	WarnLeaseNotCreated       = "lease record could not be created"
)

// --- DTOs ---

type ApproveLeaseResult struct {
	ApplicationID          int64    `json:"application_id"`
	ListingID              int64    `json:"listing_id"`
	Status                 string   `json:"status"`
	RejectedApplicationIDs []int64  `json:"rejected_application_ids"`
	LeaseID                *int64   `json:"lease_id"`
	LeaseCreated           bool     `json:"lease_created"`
	Warnings               []string `json:"warnings,omitempty"`
}

type RejectLeaseResult struct {
	ApplicationID int64  `json:"application_id"`
	Status        string `json:"status"`
}

type LeaseApplicationResponse struct {
	ID                  int64      `json:"id"`
	ListingID           int64      `json:"listing_id"`
	ListingStatus       string     `json:"listing_status"`
	Address             string     `json:"address"`
	ApplicantUserID     int64      `json:"applicant_user_id"`
	ApplicantName       string     `json:"applicant_name"`
	ApplicantEmail      string     `json:"applicant_email"`
	Status              string     `json:"status"`
	RequestedTermMonths int        `json:"requested_term_months"`
	ReviewNote          *string    `json:"review_note"`
	ReviewedAt          *time.Time `json:"reviewed_at"`
	SubmittedAt         time.Time  `json:"submitted_at"`
}

// --- Interface ---

// LeaseApplicationService resolves tenant applications. Approving one
// application occupies its listing and rejects every other pending rival.
type LeaseApplicationService interface {
	Approve(ctx context.Context, session auth.Session, applicationID int64, note *string) (ApproveLeaseResult, error)
	Reject(ctx context.Context, session auth.Session, applicationID int64, reason string) (RejectLeaseResult, error)
	List(ctx context.Context, session auth.Session, filter ReviewQueueFilter) ([]LeaseApplicationResponse, int64, error)
}

type leaseApplicationService struct {
	txm       repository.TransactionManager
	apps      repository.LeaseApplicationRepository
	listings  repository.ListingRepository
	leases    repository.LeaseRepository
	audit     repository.AuditRepository
	publisher EventPublisher
	log       *slog.Logger
	now       func() time.Time
}

func NewLeaseApplicationService(
	txm repository.TransactionManager,
	apps repository.LeaseApplicationRepository,
	listings repository.ListingRepository,
	leases repository.LeaseRepository,
	audit repository.AuditRepository,
	publisher EventPublisher,
	log *slog.Logger,
) LeaseApplicationService {
	return &leaseApplicationService{
		txm:       txm,
		apps:      apps,
		listings:  listings,
		leases:    leases,
		audit:     audit,
		publisher: publisherOrNop(publisher),
		log:       log,
		now:       time.Now,
	}
}

// --- Implementation ---

func (s *leaseApplicationService) Approve(ctx context.Context, session auth.Session, applicationID int64, note *string) (ApproveLeaseResult, error) {
	actorID, err := session.UserID()
	if err != nil {
		return ApproveLeaseResult{}, err
	}
	if !session.HasPermission(auth.PermApproveLeaseAppKey) {
		return ApproveLeaseResult{}, apperror.Unauthorized("missing permission " + auth.PermApproveLeaseAppKey)
	}
	note = trimmedNote(note)

	var result ApproveLeaseResult
	at := s.now().UTC()
	err = s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		pending, err := s.apps.FindPendingForApproval(txCtx, applicationID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.NotFoundOrAlreadyProcessed("application not found or already processed")
		}
		if err != nil {
			return fmt.Errorf("failed to load application: %w", err)
		}
		listing, err := s.listings.LockByID(txCtx, pending.ListingID)
		if err != nil {
			return fmt.Errorf("failed to lock listing: %w", err)
		}
		if listing.ListingStatus == model.ListingOccupied {
			return apperror.ListingAlreadyOccupied("listing is already occupied")
		}

		rows, err := s.apps.ResolveIfPending(txCtx, applicationID, model.ApplicationApproved, actorID, note, at)
		if err != nil {
			return fmt.Errorf("failed to approve application: %w", err)
		}
		if rows == 0 {
			return apperror.NotFoundOrAlreadyProcessed("application not found or already processed")
		}

		rejected, err := s.apps.RejectPendingRivals(txCtx, pending.ListingID, applicationID, model.AutoRejectNote, at)
		if err != nil {
			return fmt.Errorf("failed to reject competing applications: %w", err)
		}

		rows, err = s.listings.MarkOccupied(txCtx, pending.ListingID, at)
		if err != nil {
			return fmt.Errorf("failed to occupy listing: %w", err)
		}
		if rows == 0 {
			return apperror.ListingAlreadyOccupied("listing is already occupied")
		}

		if err := recordAudit(txCtx, s.audit, &actorID, model.ActionApproveApplication, model.EntityLeaseApplication, applicationID,
			map[string]interface{}{"listing_id": pending.ListingID, "note": note}); err != nil {
			return err
		}
		if len(rejected) > 0 {
			if err := recordAudit(txCtx, s.audit, nil, model.ActionAutoRejectApplications, model.EntityListing, pending.ListingID,
				map[string]interface{}{"application_ids": rejected, "approved_application_id": applicationID}); err != nil {
				return err
			}
		}
		if err := recordAudit(txCtx, s.audit, &actorID, model.ActionOccupyListing, model.EntityListing, pending.ListingID,
			map[string]interface{}{"application_id": applicationID}); err != nil {
			return err
		}

		result = ApproveLeaseResult{
			ApplicationID:          applicationID,
			ListingID:              pending.ListingID,
			Status:                 model.ApplicationApproved,
			RejectedApplicationIDs: rejected,
		}
		if result.RejectedApplicationIDs == nil {
			result.RejectedApplicationIDs = []int64{}
		}

		lease, warning := s.createLease(txCtx, pending, at)
		if warning != "" {
			result.Warnings = append(result.Warnings, warning)
			return nil
		}
		result.LeaseID = &lease.ID
		result.LeaseCreated = true
		return recordAudit(txCtx, s.audit, &actorID, model.ActionCreateLease, model.EntityLease, lease.ID,
			map[string]interface{}{
				"application_id": applicationID,
				"start":          lease.LeaseStartDate.Format("2006-01-02"),
				"end":            lease.LeaseEndDate.Format("2006-01-02"),
			})
	})
	if err != nil {
		return ApproveLeaseResult{}, s.fail(ctx, "approve application", applicationID, err)
	}

	attrs := []any{
		slog.Int64("application_id", applicationID),
		slog.Int64("listing_id", result.ListingID),
		slog.Int("auto_rejected", len(result.RejectedApplicationIDs)),
		slog.Bool("lease_created", result.LeaseCreated),
		slog.Int64("actor_id", actorID),
	}
	if len(result.Warnings) > 0 {
		s.log.WarnContext(ctx, "application approved without lease", append(attrs, slog.Any("warnings", result.Warnings))...)
	} else {
		s.log.InfoContext(ctx, "application approved", attrs...)
	}
	s.publisher.Publish(EventApplicationApproved, result)
	s.publisher.Publish(EventListingOccupied, map[string]int64{"listing_id": result.ListingID, "application_id": applicationID})
	return result, nil
}

// createLease writes the derived lease inside a savepoint so a failure leaves
// the approval intact. It returns a warning instead of an error.
func (s *leaseApplicationService) createLease(txCtx context.Context, pending *repository.PendingApplication, at time.Time) (*model.Lease, string) {
	if !s.leases.Available(txCtx) {
		return nil, WarnLeaseStoreUnavailable
	}

	start := time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, time.UTC)
	lease := model.Lease{
		ListingID:      pending.ListingID,
		ApplicationID:  pending.ApplicationID,
		OwnerUserID:    pending.OwnerUserID,
		ClientUserID:   pending.ApplicantUserID,
		LeaseStartDate: start,
		LeaseEndDate:   start.AddDate(0, model.DefaultLeaseTermMonths, 0),
		LeaseStatus:    model.LeaseStatusActive,
	}
	err := s.txm.Savepoint(txCtx, func(spCtx context.Context) error {
		return s.leases.Create(spCtx, &lease)
	})
	if err != nil {
		s.log.WarnContext(txCtx, "lease insert failed",
			slog.Int64("application_id", pending.ApplicationID),
			slog.Any("error", err))
		return nil, WarnLeaseNotCreated
	}
	return &lease, ""
}

func (s *leaseApplicationService) Reject(ctx context.Context, session auth.Session, applicationID int64, reason string) (RejectLeaseResult, error) {
	actorID, err := session.UserID()
	if err != nil {
		return RejectLeaseResult{}, err
	}
	if !session.HasPermission(auth.PermApproveLeaseAppKey) {
		return RejectLeaseResult{}, apperror.Unauthorized("missing permission " + auth.PermApproveLeaseAppKey)
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return RejectLeaseResult{}, apperror.Validation("reason", "a rejection reason is required")
	}

	at := s.now().UTC()
	err = s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		rows, err := s.apps.ResolveIfPending(txCtx, applicationID, model.ApplicationRejected, actorID, &reason, at)
		if err != nil {
			return fmt.Errorf("failed to reject application: %w", err)
		}
		if rows == 0 {
			return apperror.NotFoundOrAlreadyProcessed("application not found or already processed")
		}
		return recordAudit(txCtx, s.audit, &actorID, model.ActionRejectApplication, model.EntityLeaseApplication, applicationID,
			map[string]interface{}{"reason": reason})
	})
	if err != nil {
		return RejectLeaseResult{}, s.fail(ctx, "reject application", applicationID, err)
	}

	result := RejectLeaseResult{ApplicationID: applicationID, Status: model.ApplicationRejected}
	s.log.InfoContext(ctx, "application rejected",
		slog.Int64("application_id", applicationID),
		slog.Int64("actor_id", actorID))
	s.publisher.Publish(EventApplicationRejected, result)
	return result, nil
}

func (s *leaseApplicationService) List(ctx context.Context, session auth.Session, filter ReviewQueueFilter) ([]LeaseApplicationResponse, int64, error) {
	if !session.HasAnyPermission(auth.PermReviewLeaseAppKey, auth.PermApproveLeaseAppKey) {
		return nil, 0, apperror.Unauthorized("missing permission " + auth.PermReviewLeaseAppKey)
	}
	status, err := reviewStatusFilter(filter.Status)
	if err != nil {
		return nil, 0, err
	}

	apps, total, err := s.apps.List(ctx, status, pagination.New(filter.Page, filter.Limit))
	if err != nil {
		return nil, 0, apperror.Internal("failed to fetch lease applications", err)
	}

	res := make([]LeaseApplicationResponse, 0, len(apps))
	for _, a := range apps {
		res = append(res, toLeaseApplicationResponse(a))
	}
	return res, total, nil
}

func (s *leaseApplicationService) fail(ctx context.Context, op string, id int64, err error) error {
	err = classify(err, "failed to "+op)
	if apperror.KindOf(err) == apperror.KindInternal {
		s.log.ErrorContext(ctx, op+" failed", slog.Int64("application_id", id), slog.Any("error", err))
	} else {
		s.log.DebugContext(ctx, op+" refused", slog.Int64("application_id", id), slog.String("kind", string(apperror.KindOf(err))))
	}
	return err
}

// --- Helpers ---

func toLeaseApplicationResponse(a model.LeaseApplication) LeaseApplicationResponse {
	res := LeaseApplicationResponse{
		ID:                  a.ID,
		ListingID:           a.ListingID,
		ApplicantUserID:     a.ApplicantUserID,
		Status:              a.Status,
		RequestedTermMonths: a.RequestedTermMonths,
		ReviewNote:          a.ReviewNote,
		ReviewedAt:          a.ReviewedAt,
		SubmittedAt:         a.SubmittedAt,
	}
	if a.Listing != nil {
		res.ListingStatus = a.Listing.ListingStatus
		if a.Listing.Property != nil {
			res.Address = a.Listing.Property.Address()
		}
	}
	if a.Applicant != nil {
		res.ApplicantName = a.Applicant.FullName
		res.ApplicantEmail = a.Applicant.Email
	}
	return res
}
