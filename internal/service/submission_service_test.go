package service

import (
	"context"
	"sync"
	"testing"

	"tenurix/internal/apperror"
	"tenurix/internal/auth"
	"tenurix/internal/logger"
	"tenurix/internal/model"
	"tenurix/internal/repository"
	"tenurix/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestSubmissionApprove_AssignedReviewerThenManager(t *testing.T) {
	w := newWorkflow(t)
	ctx := context.Background()

	owner := testutil.CreateUser(t, w.db, "landlord")
	reviewer := testutil.CreateUser(t, w.db, "reviewer")
	manager := testutil.CreateUser(t, w.db, "manager")
	sub := testutil.CreateSubmission(t, w.db, owner.ID, &reviewer.ID)

	reviewerSession := testutil.Session(reviewer.ID, model.RoleStaff, auth.PermReviewPropertyKey)
	res, err := w.subs.Approve(ctx, reviewerSession, sub.ID, testutil.String("accepted"))
	require.NoError(t, err)
	assert.Equal(t, model.SubmissionApproved, res.Status)
	assert.True(t, res.ListingCreated)
	assert.NotZero(t, res.ListingID)

	got := w.submission(t, sub.ID)
	assert.Equal(t, model.SubmissionApproved, got.SubmissionStatus)
	require.NotNil(t, got.ReviewedByUserID)
	assert.Equal(t, reviewer.ID, *got.ReviewedByUserID)
	require.NotNil(t, got.ReviewNote)
	assert.Equal(t, "accepted", *got.ReviewNote)

	listing := w.listing(t, res.ListingID)
	assert.Equal(t, sub.ID, listing.PropertyID)
	assert.Equal(t, model.ListingActive, listing.ListingStatus)

	managerSession := testutil.Session(manager.ID, model.RoleManager, auth.PermApprovePropertyKey)
	_, err = w.subs.Approve(ctx, managerSession, sub.ID, nil)
	assert.ErrorIs(t, err, apperror.ErrNotFoundOrNotPending)
	assert.Equal(t, int64(1), w.countListings(t, sub.ID))

	w.publisher.AssertCalled(t, "Publish", EventSubmissionApproved, mock.Anything)
}

func TestSubmissionApprove_SecondApprovalCreatesNoListing(t *testing.T) {
	w := newWorkflow(t)
	ctx := context.Background()

	owner := testutil.CreateUser(t, w.db, "landlord")
	manager := testutil.CreateUser(t, w.db, "manager")
	sub := testutil.CreateSubmission(t, w.db, owner.ID, nil)
	session := testutil.Session(manager.ID, model.RoleManager, auth.PermApprovePropertyKey)

	_, err := w.subs.Approve(ctx, session, sub.ID, nil)
	require.NoError(t, err)
	_, err = w.subs.Approve(ctx, session, sub.ID, nil)
	assert.ErrorIs(t, err, apperror.ErrNotFoundOrNotPending)

	assert.Equal(t, int64(1), w.countListings(t, sub.ID))
}

func TestSubmissionApprove_ReusesExistingListing(t *testing.T) {
	w := newWorkflow(t)
	ctx := context.Background()

	owner := testutil.CreateUser(t, w.db, "landlord")
	manager := testutil.CreateUser(t, w.db, "manager")
	sub := testutil.CreateSubmission(t, w.db, owner.ID, nil)
	existing := testutil.CreateListing(t, w.db, sub.ID, model.ListingActive)

	res, err := w.subs.Approve(ctx, testutil.Session(manager.ID, model.RoleManager, auth.PermApprovePropertyKey), sub.ID, nil)
	require.NoError(t, err)
	assert.False(t, res.ListingCreated)
	assert.Equal(t, existing.ID, res.ListingID)
	assert.Equal(t, int64(1), w.countListings(t, sub.ID))
}

func TestSubmission_AssignmentScopedAuthority(t *testing.T) {
	w := newWorkflow(t)
	ctx := context.Background()

	owner := testutil.CreateUser(t, w.db, "landlord")
	alice := testutil.CreateUser(t, w.db, "alice")
	bob := testutil.CreateUser(t, w.db, "bob")

	unassigned := testutil.CreateSubmission(t, w.db, owner.ID, nil)
	toBob := testutil.CreateSubmission(t, w.db, owner.ID, &bob.ID)
	toAlice := testutil.CreateSubmission(t, w.db, owner.ID, &alice.ID)

	aliceSession := testutil.Session(alice.ID, model.RoleStaff, auth.PermReviewPropertyKey)

	_, err := w.subs.Approve(ctx, aliceSession, unassigned.ID, nil)
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)
	_, err = w.subs.Reject(ctx, aliceSession, unassigned.ID, "incomplete")
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)

	_, err = w.subs.Approve(ctx, aliceSession, toBob.ID, nil)
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)
	_, err = w.subs.Reject(ctx, aliceSession, toBob.ID, "incomplete")
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)

	res, err := w.subs.Reject(ctx, aliceSession, toAlice.ID, "photos missing")
	require.NoError(t, err)
	assert.Equal(t, model.SubmissionRejected, res.Status)

	assert.Equal(t, model.SubmissionPending, w.submission(t, unassigned.ID).SubmissionStatus)
	assert.Equal(t, model.SubmissionPending, w.submission(t, toBob.ID).SubmissionStatus)
	rejected := w.submission(t, toAlice.ID)
	assert.Equal(t, model.SubmissionRejected, rejected.SubmissionStatus)
	require.NotNil(t, rejected.ReviewNote)
	assert.Equal(t, "photos missing", *rejected.ReviewNote)
}

func TestSubmission_ReassignmentRevokesPreviousReviewer(t *testing.T) {
	w := newWorkflow(t)
	ctx := context.Background()

	owner := testutil.CreateUser(t, w.db, "landlord")
	alice := testutil.CreateUser(t, w.db, "alice")
	bob := testutil.CreateUser(t, w.db, "bob")
	manager := testutil.CreateUser(t, w.db, "manager")
	sub := testutil.CreateSubmission(t, w.db, owner.ID, &alice.ID)

	_, err := w.subs.Assign(ctx, testutil.Session(manager.ID, model.RoleManager, auth.PermApprovePropertyKey), sub.ID, bob.ID)
	require.NoError(t, err)

	_, err = w.subs.Approve(ctx, testutil.Session(alice.ID, model.RoleStaff, auth.PermReviewPropertyKey), sub.ID, nil)
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)

	_, err = w.subs.Approve(ctx, testutil.Session(bob.ID, model.RoleStaff, auth.PermReviewPropertyKey), sub.ID, nil)
	assert.NoError(t, err)
}

// reassignAfterRead hands the submission to another reviewer right after the
// assignee has been read, as a manager's concurrent Assign would.
type reassignAfterRead struct {
	repository.PropertyRepository
	to int64
}

func (r reassignAfterRead) PendingAssignee(ctx context.Context, id int64) (*int64, bool, error) {
	assignee, found, err := r.PropertyRepository.PendingAssignee(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if _, err := r.PropertyRepository.AssignIfPending(ctx, id, r.to, fixedNow); err != nil {
		return nil, false, err
	}
	return assignee, found, nil
}

func TestSubmission_ReassignmentDuringReviewWins(t *testing.T) {
	w := newWorkflow(t)
	ctx := context.Background()

	owner := testutil.CreateUser(t, w.db, "landlord")
	alice := testutil.CreateUser(t, w.db, "alice")
	bob := testutil.CreateUser(t, w.db, "bob")
	sub := testutil.CreateSubmission(t, w.db, owner.ID, &alice.ID)

	props := reassignAfterRead{PropertyRepository: repository.NewPropertyRepository(w.db), to: bob.ID}
	subs := NewSubmissionService(repository.NewTransactionManager(w.db), props,
		repository.NewListingRepository(w.db), w.audit, w.publisher, logger.Discard())

	session := testutil.Session(alice.ID, model.RoleStaff, auth.PermReviewPropertyKey)
	_, err := subs.Approve(ctx, session, sub.ID, nil)
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)

	// The reassignment shares the refused transaction and rolls back with it.
	got := w.submission(t, sub.ID)
	assert.Equal(t, model.SubmissionPending, got.SubmissionStatus)
	assert.Nil(t, got.ReviewedByUserID)
	assert.Zero(t, w.countListings(t, sub.ID))

	_, err = subs.Reject(ctx, session, sub.ID, "not mine anymore")
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)
	assert.Equal(t, model.SubmissionPending, w.submission(t, sub.ID).SubmissionStatus)
}

func TestSubmission_NonPendingIsUnauthorizedForReviewer(t *testing.T) {
	w := newWorkflow(t)
	ctx := context.Background()

	owner := testutil.CreateUser(t, w.db, "landlord")
	alice := testutil.CreateUser(t, w.db, "alice")
	sub := testutil.CreateSubmission(t, w.db, owner.ID, &alice.ID)
	session := testutil.Session(alice.ID, model.RoleStaff, auth.PermReviewPropertyKey)

	_, err := w.subs.Approve(ctx, session, sub.ID, nil)
	require.NoError(t, err)

	// The assignee check only matches pending rows.
	_, err = w.subs.Reject(ctx, session, sub.ID, "changed my mind")
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)

	_, err = w.subs.Approve(ctx, session, 9999, nil)
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)
}

func TestSubmission_ConcurrentApproveAndReject(t *testing.T) {
	w := newWorkflow(t)
	ctx := context.Background()

	owner := testutil.CreateUser(t, w.db, "landlord")
	m1 := testutil.CreateUser(t, w.db, "manager1")
	m2 := testutil.CreateUser(t, w.db, "manager2")
	s1 := testutil.Session(m1.ID, model.RoleManager, auth.PermApprovePropertyKey)
	s2 := testutil.Session(m2.ID, model.RoleManager, auth.PermApprovePropertyKey)

	for i := 0; i < 10; i++ {
		sub := testutil.CreateSubmission(t, w.db, owner.ID, nil)

		var (
			wg                   sync.WaitGroup
			approveErr, rejectEr error
		)
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, approveErr = w.subs.Approve(ctx, s1, sub.ID, nil)
		}()
		go func() {
			defer wg.Done()
			_, rejectEr = w.subs.Reject(ctx, s2, sub.ID, "duplicate")
		}()
		wg.Wait()

		got := w.submission(t, sub.ID)
		if approveErr == nil {
			assert.ErrorIs(t, rejectEr, apperror.ErrNotFoundOrNotPending)
			assert.Equal(t, model.SubmissionApproved, got.SubmissionStatus)
			assert.Equal(t, int64(1), w.countListings(t, sub.ID))
		} else {
			require.NoError(t, rejectEr)
			assert.ErrorIs(t, approveErr, apperror.ErrNotFoundOrNotPending)
			assert.Equal(t, model.SubmissionRejected, got.SubmissionStatus)
			assert.Equal(t, int64(0), w.countListings(t, sub.ID))
		}
	}
}

func TestSubmissionReject_RequiresReason(t *testing.T) {
	w := newWorkflow(t)
	ctx := context.Background()

	owner := testutil.CreateUser(t, w.db, "landlord")
	manager := testutil.CreateUser(t, w.db, "manager")
	sub := testutil.CreateSubmission(t, w.db, owner.ID, nil)

	_, err := w.subs.Reject(ctx, testutil.Session(manager.ID, model.RoleManager, auth.PermApprovePropertyKey), sub.ID, "   ")
	assert.ErrorIs(t, err, &apperror.Error{Kind: apperror.KindValidation, Field: "reason"})
	assert.Equal(t, model.SubmissionPending, w.submission(t, sub.ID).SubmissionStatus)
}

func TestSubmission_MissingIdentityIsUnauthenticated(t *testing.T) {
	w := newWorkflow(t)
	ctx := context.Background()

	owner := testutil.CreateUser(t, w.db, "landlord")
	sub := testutil.CreateSubmission(t, w.db, owner.ID, nil)
	anonymous := auth.NewSession(nil, "", model.RoleManager, []string{auth.PermApprovePropertyKey})

	_, err := w.subs.Approve(ctx, anonymous, sub.ID, nil)
	assert.ErrorIs(t, err, apperror.ErrUnauthenticated)
	_, err = w.subs.Reject(ctx, anonymous, sub.ID, "no")
	assert.ErrorIs(t, err, apperror.ErrUnauthenticated)
	_, err = w.subs.Assign(ctx, anonymous, sub.ID, owner.ID)
	assert.ErrorIs(t, err, apperror.ErrUnauthenticated)

	assert.Equal(t, model.SubmissionPending, w.submission(t, sub.ID).SubmissionStatus)
}

func TestSubmissionAssign(t *testing.T) {
	w := newWorkflow(t)
	ctx := context.Background()

	owner := testutil.CreateUser(t, w.db, "landlord")
	reviewer := testutil.CreateUser(t, w.db, "reviewer")
	manager := testutil.CreateUser(t, w.db, "manager")
	sub := testutil.CreateSubmission(t, w.db, owner.ID, nil)
	managerSession := testutil.Session(manager.ID, model.RoleManager, auth.PermApprovePropertyKey)

	t.Run("requires APPROVE_PROPERTY", func(t *testing.T) {
		_, err := w.subs.Assign(ctx, testutil.Session(reviewer.ID, model.RoleStaff, auth.PermReviewPropertyKey), sub.ID, reviewer.ID)
		assert.ErrorIs(t, err, apperror.ErrUnauthorized)
	})

	t.Run("rejects non-positive reviewer", func(t *testing.T) {
		_, err := w.subs.Assign(ctx, managerSession, sub.ID, 0)
		assert.ErrorIs(t, err, &apperror.Error{Kind: apperror.KindValidation, Field: "assignedToUserId"})
	})

	t.Run("assigns pending submission", func(t *testing.T) {
		res, err := w.subs.Assign(ctx, managerSession, sub.ID, reviewer.ID)
		require.NoError(t, err)
		assert.Equal(t, reviewer.ID, res.AssignedToUserID)
		assert.Equal(t, fixedNow, res.AssignedAt)

		got := w.submission(t, sub.ID)
		require.NotNil(t, got.AssignedToUserID)
		assert.Equal(t, reviewer.ID, *got.AssignedToUserID)
		assert.NotNil(t, got.AssignedAt)
	})

	t.Run("missing submission", func(t *testing.T) {
		_, err := w.subs.Assign(ctx, managerSession, 424242, reviewer.ID)
		assert.ErrorIs(t, err, apperror.ErrNotFoundOrNotPending)
	})

	t.Run("resolved submission keeps historical assignee", func(t *testing.T) {
		_, err := w.subs.Approve(ctx, managerSession, sub.ID, nil)
		require.NoError(t, err)

		_, err = w.subs.Assign(ctx, managerSession, sub.ID, manager.ID)
		assert.ErrorIs(t, err, apperror.ErrNotFoundOrNotPending)

		got := w.submission(t, sub.ID)
		require.NotNil(t, got.AssignedToUserID)
		assert.Equal(t, reviewer.ID, *got.AssignedToUserID)
	})
}

func TestSubmissionApprove_RollsBackWhenListingFails(t *testing.T) {
	w := newWorkflow(t)
	ctx := context.Background()

	owner := testutil.CreateUser(t, w.db, "landlord")
	manager := testutil.CreateUser(t, w.db, "manager")
	sub := testutil.CreateSubmission(t, w.db, owner.ID, nil)
	require.NoError(t, w.db.Migrator().DropTable(&model.LeaseApplication{}, &model.Lease{}, &model.Listing{}))

	_, err := w.subs.Approve(ctx, testutil.Session(manager.ID, model.RoleManager, auth.PermApprovePropertyKey), sub.ID, nil)
	assert.ErrorIs(t, err, apperror.ErrInternal)

	got := w.submission(t, sub.ID)
	assert.Equal(t, model.SubmissionPending, got.SubmissionStatus)
	assert.Nil(t, got.ReviewedByUserID)

	logs, err := w.audit.ListForEntity(ctx, model.EntityPropertySubmission, sub.ID)
	require.NoError(t, err)
	assert.Empty(t, logs)
}

func TestSubmissionApprove_WritesAuditTrail(t *testing.T) {
	w := newWorkflow(t)
	ctx := context.Background()

	owner := testutil.CreateUser(t, w.db, "landlord")
	manager := testutil.CreateUser(t, w.db, "manager")
	reviewer := testutil.CreateUser(t, w.db, "reviewer")
	sub := testutil.CreateSubmission(t, w.db, owner.ID, nil)
	session := testutil.Session(manager.ID, model.RoleManager, auth.PermApprovePropertyKey)

	_, err := w.subs.Assign(ctx, session, sub.ID, reviewer.ID)
	require.NoError(t, err)
	res, err := w.subs.Approve(ctx, session, sub.ID, nil)
	require.NoError(t, err)

	logs, err := w.audit.ListForEntity(ctx, model.EntityPropertySubmission, sub.ID)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, model.ActionAssignSubmission, logs[0].Action)
	assert.Equal(t, model.ActionApproveSubmission, logs[1].Action)
	require.NotNil(t, logs[1].ActorUserID)
	assert.Equal(t, manager.ID, *logs[1].ActorUserID)

	listingLogs, err := w.audit.ListForEntity(ctx, model.EntityListing, res.ListingID)
	require.NoError(t, err)
	require.Len(t, listingLogs, 1)
	assert.Equal(t, model.ActionCreateListing, listingLogs[0].Action)
}

func TestSubmissionList(t *testing.T) {
	w := newWorkflow(t)
	ctx := context.Background()

	owner := testutil.CreateUser(t, w.db, "landlord")
	manager := testutil.CreateUser(t, w.db, "manager")
	pending := testutil.CreateSubmission(t, w.db, owner.ID, nil)
	approved := testutil.CreateSubmission(t, w.db, owner.ID, nil)
	session := testutil.Session(manager.ID, model.RoleManager, auth.PermApprovePropertyKey)
	_, err := w.subs.Approve(ctx, session, approved.ID, nil)
	require.NoError(t, err)

	items, total, err := w.subs.List(ctx, session, ReviewQueueFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, items, 1)
	assert.Equal(t, pending.ID, items[0].ID)
	assert.Equal(t, owner.Email, items[0].OwnerEmail)
	assert.Equal(t, "12 King St W, Toronto", items[0].Address)

	_, total, err = w.subs.List(ctx, session, ReviewQueueFilter{Status: "all"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)

	_, _, err = w.subs.List(ctx, session, ReviewQueueFilter{Status: "archived"})
	assert.ErrorIs(t, err, &apperror.Error{Kind: apperror.KindValidation, Field: "status"})

	_, _, err = w.subs.List(ctx, testutil.Session(manager.ID, model.RoleTenant), ReviewQueueFilter{})
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)
}
