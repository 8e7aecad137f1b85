package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"tenurix/internal/apperror"
	"tenurix/internal/auth"
	"tenurix/internal/model"
	"tenurix/internal/repository"
	"tenurix/pkg/pagination"

	"github.com/shopspring/decimal"
)

// --- DTOs ---

type AssignSubmissionRequest struct {
	AssignedToUserID int64 `json:"assignedToUserId"`
}

type ReviewNoteRequest struct {
	Note *string `json:"note"`
}

type AssignResult struct {
	SubmissionID     int64     `json:"submission_id"`
	AssignedToUserID int64     `json:"assigned_to_user_id"`
	AssignedAt       time.Time `json:"assigned_at"`
}

type ApproveSubmissionResult struct {
	SubmissionID   int64  `json:"submission_id"`
	Status         string `json:"status"`
	ListingID      int64  `json:"listing_id"`
	ListingCreated bool   `json:"listing_created"`
}

type RejectSubmissionResult struct {
	SubmissionID int64  `json:"submission_id"`
	Status       string `json:"status"`
}

type ReviewQueueFilter struct {
	Status string // Pending (default), Approved, Rejected or "all"
	Page   int
	Limit  int
}

type SubmissionResponse struct {
	ID               int64           `json:"id"`
	OwnerUserID      int64           `json:"owner_user_id"`
	OwnerEmail       string          `json:"owner_email"`
	Address          string          `json:"address"`
	PropertyType     string          `json:"property_type"`
	Bedrooms         int             `json:"bedrooms"`
	Bathrooms        int             `json:"bathrooms"`
	RentAmount       decimal.Decimal `json:"rent_amount"`
	SubmissionStatus string          `json:"submission_status"`
	AssignedToUserID *int64          `json:"assigned_to_user_id"`
	AssignedToName   string          `json:"assigned_to_name"`
	AssignedAt       *time.Time      `json:"assigned_at"`
	ReviewNote       *string         `json:"review_note"`
	SubmittedAt      time.Time       `json:"submitted_at"`
}

// --- Interface ---

// SubmissionService drives property submissions through review. Callers
// without APPROVE_PROPERTY may only resolve submissions assigned to them.
type SubmissionService interface {
	Assign(ctx context.Context, session auth.Session, submissionID, reviewerID int64) (AssignResult, error)
	Approve(ctx context.Context, session auth.Session, submissionID int64, note *string) (ApproveSubmissionResult, error)
	Reject(ctx context.Context, session auth.Session, submissionID int64, reason string) (RejectSubmissionResult, error)
	List(ctx context.Context, session auth.Session, filter ReviewQueueFilter) ([]SubmissionResponse, int64, error)
}

type submissionService struct {
	txm       repository.TransactionManager
	props     repository.PropertyRepository
	listings  repository.ListingRepository
	audit     repository.AuditRepository
	publisher EventPublisher
	log       *slog.Logger
	now       func() time.Time
}

func NewSubmissionService(
	txm repository.TransactionManager,
	props repository.PropertyRepository,
	listings repository.ListingRepository,
	audit repository.AuditRepository,
	publisher EventPublisher,
	log *slog.Logger,
) SubmissionService {
	return &submissionService{
		txm:       txm,
		props:     props,
		listings:  listings,
		audit:     audit,
		publisher: publisherOrNop(publisher),
		log:       log,
		now:       time.Now,
	}
}

// --- Implementation ---

func (s *submissionService) Assign(ctx context.Context, session auth.Session, submissionID, reviewerID int64) (AssignResult, error) {
	actorID, err := session.UserID()
	if err != nil {
		return AssignResult{}, err
	}
	if !session.HasPermission(auth.PermApprovePropertyKey) {
		return AssignResult{}, apperror.Unauthorized("missing permission " + auth.PermApprovePropertyKey)
	}
	if reviewerID <= 0 {
		return AssignResult{}, apperror.Validation("assignedToUserId", "assignedToUserId must be a positive user id")
	}

	at := s.now().UTC()
	err = s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		rows, err := s.props.AssignIfPending(txCtx, submissionID, reviewerID, at)
		if err != nil {
			return fmt.Errorf("failed to assign submission: %w", err)
		}
		if rows == 0 {
			return apperror.NotFoundOrNotPending("submission not found or not pending")
		}
		return recordAudit(txCtx, s.audit, &actorID, model.ActionAssignSubmission, model.EntityPropertySubmission, submissionID,
			map[string]interface{}{"assigned_to_user_id": reviewerID})
	})
	if err != nil {
		return AssignResult{}, s.fail(ctx, "assign submission", submissionID, err)
	}

	result := AssignResult{SubmissionID: submissionID, AssignedToUserID: reviewerID, AssignedAt: at}
	s.log.InfoContext(ctx, "submission assigned",
		slog.Int64("submission_id", submissionID),
		slog.Int64("assigned_to", reviewerID),
		slog.Int64("actor_id", actorID))
	s.publisher.Publish(EventSubmissionAssigned, result)
	return result, nil
}

func (s *submissionService) Approve(ctx context.Context, session auth.Session, submissionID int64, note *string) (ApproveSubmissionResult, error) {
	actorID, err := session.UserID()
	if err != nil {
		return ApproveSubmissionResult{}, err
	}
	note = trimmedNote(note)

	var result ApproveSubmissionResult
	at := s.now().UTC()
	err = s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.resolve(txCtx, session, actorID, submissionID, model.SubmissionApproved, note, at); err != nil {
			return err
		}

		listing, created, err := s.listings.CreateIfAbsent(txCtx, submissionID, &actorID)
		if err != nil {
			return fmt.Errorf("failed to create listing: %w", err)
		}

		if err := recordAudit(txCtx, s.audit, &actorID, model.ActionApproveSubmission, model.EntityPropertySubmission, submissionID,
			map[string]interface{}{"note": note, "listing_id": listing.ID}); err != nil {
			return err
		}
		if created {
			if err := recordAudit(txCtx, s.audit, &actorID, model.ActionCreateListing, model.EntityListing, listing.ID,
				map[string]interface{}{"property_id": submissionID, "listing_status": listing.ListingStatus}); err != nil {
				return err
			}
		}

		result = ApproveSubmissionResult{
			SubmissionID:   submissionID,
			Status:         model.SubmissionApproved,
			ListingID:      listing.ID,
			ListingCreated: created,
		}
		return nil
	})
	if err != nil {
		return ApproveSubmissionResult{}, s.fail(ctx, "approve submission", submissionID, err)
	}

	s.log.InfoContext(ctx, "submission approved",
		slog.Int64("submission_id", submissionID),
		slog.Int64("listing_id", result.ListingID),
		slog.Bool("listing_created", result.ListingCreated),
		slog.Int64("actor_id", actorID))
	s.publisher.Publish(EventSubmissionApproved, result)
	return result, nil
}

func (s *submissionService) Reject(ctx context.Context, session auth.Session, submissionID int64, reason string) (RejectSubmissionResult, error) {
	actorID, err := session.UserID()
	if err != nil {
		return RejectSubmissionResult{}, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return RejectSubmissionResult{}, apperror.Validation("reason", "a rejection reason is required")
	}

	at := s.now().UTC()
	err = s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.resolve(txCtx, session, actorID, submissionID, model.SubmissionRejected, &reason, at); err != nil {
			return err
		}
		return recordAudit(txCtx, s.audit, &actorID, model.ActionRejectSubmission, model.EntityPropertySubmission, submissionID,
			map[string]interface{}{"reason": reason})
	})
	if err != nil {
		return RejectSubmissionResult{}, s.fail(ctx, "reject submission", submissionID, err)
	}

	result := RejectSubmissionResult{SubmissionID: submissionID, Status: model.SubmissionRejected}
	s.log.InfoContext(ctx, "submission rejected",
		slog.Int64("submission_id", submissionID),
		slog.Int64("actor_id", actorID))
	s.publisher.Publish(EventSubmissionRejected, result)
	return result, nil
}

// resolve moves a pending submission to status. Callers without
// APPROVE_PROPERTY may only resolve a submission assigned to them, and the
// update itself re-checks the assignee so a concurrent reassignment wins.
func (s *submissionService) resolve(txCtx context.Context, session auth.Session, actorID, submissionID int64, status string, note *string, at time.Time) error {
	if session.HasPermission(auth.PermApprovePropertyKey) {
		rows, err := s.props.ResolveIfPending(txCtx, submissionID, status, actorID, note, at)
		if err != nil {
			return fmt.Errorf("failed to resolve submission: %w", err)
		}
		if rows == 0 {
			return apperror.NotFoundOrNotPending("submission not found or not pending")
		}
		return nil
	}

	if err := s.authorizeReview(txCtx, actorID, submissionID); err != nil {
		return err
	}
	rows, err := s.props.ResolveIfAssigned(txCtx, submissionID, status, actorID, note, at)
	if err != nil {
		return fmt.Errorf("failed to resolve submission: %w", err)
	}
	if rows == 0 {
		return apperror.Unauthorized("submission is not assigned to the caller")
	}
	return nil
}

func (s *submissionService) authorizeReview(txCtx context.Context, actorID, submissionID int64) error {
	assignee, found, err := s.props.PendingAssignee(txCtx, submissionID)
	if err != nil {
		return fmt.Errorf("failed to read submission assignee: %w", err)
	}
	if !found || assignee == nil || *assignee != actorID {
		return apperror.Unauthorized("submission is not assigned to the caller")
	}
	return nil
}

func (s *submissionService) List(ctx context.Context, session auth.Session, filter ReviewQueueFilter) ([]SubmissionResponse, int64, error) {
	if !session.HasAnyPermission(auth.PermReviewPropertyKey, auth.PermApprovePropertyKey) {
		return nil, 0, apperror.Unauthorized("missing permission " + auth.PermReviewPropertyKey)
	}
	status, err := reviewStatusFilter(filter.Status)
	if err != nil {
		return nil, 0, err
	}

	rows, total, err := s.props.List(ctx, status, pagination.New(filter.Page, filter.Limit))
	if err != nil {
		return nil, 0, apperror.Internal("failed to fetch submissions", err)
	}

	res := make([]SubmissionResponse, 0, len(rows))
	for _, p := range rows {
		res = append(res, toSubmissionResponse(p))
	}
	return res, total, nil
}

func (s *submissionService) fail(ctx context.Context, op string, id int64, err error) error {
	err = classify(err, "failed to "+op)
	if apperror.KindOf(err) == apperror.KindInternal {
		s.log.ErrorContext(ctx, op+" failed", slog.Int64("submission_id", id), slog.Any("error", err))
	} else {
		s.log.DebugContext(ctx, op+" refused", slog.Int64("submission_id", id), slog.String("kind", string(apperror.KindOf(err))))
	}
	return err
}

// --- Helpers ---

func toSubmissionResponse(p model.PropertySubmission) SubmissionResponse {
	res := SubmissionResponse{
		ID:               p.ID,
		OwnerUserID:      p.OwnerUserID,
		Address:          p.Address(),
		PropertyType:     p.PropertyType,
		Bedrooms:         p.Bedrooms,
		Bathrooms:        p.Bathrooms,
		RentAmount:       p.RentAmount,
		SubmissionStatus: p.SubmissionStatus,
		AssignedToUserID: p.AssignedToUserID,
		AssignedAt:       p.AssignedAt,
		ReviewNote:       p.ReviewNote,
		SubmittedAt:      p.SubmittedAt,
	}
	if p.Owner != nil {
		res.OwnerEmail = p.Owner.Email
	}
	if p.AssignedTo != nil {
		res.AssignedToName = p.AssignedTo.FullName
	}
	return res
}
