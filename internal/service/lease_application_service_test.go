package service

import (
	"context"
	"slices"
	"sync"
	"testing"
	"time"

	"tenurix/internal/apperror"
	"tenurix/internal/auth"
	"tenurix/internal/model"
	"tenurix/internal/repository"
	"tenurix/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func approverSession(id int64) auth.Session {
	return testutil.Session(id, model.RoleManager, auth.PermApproveLeaseAppKey, auth.PermReviewLeaseAppKey)
}

// leaseFixture is a listing with three pending applications from distinct tenants.
type leaseFixture struct {
	owner    model.User
	manager  model.User
	listing  model.Listing
	apps     []model.LeaseApplication
	property model.PropertySubmission
}

func newLeaseFixture(t *testing.T, w *workflow) leaseFixture {
	t.Helper()
	owner := testutil.CreateUser(t, w.db, "landlord")
	manager := testutil.CreateUser(t, w.db, "manager")
	prop := testutil.CreateSubmission(t, w.db, owner.ID, nil)
	listing := testutil.CreateListing(t, w.db, prop.ID, model.ListingActive)

	f := leaseFixture{owner: owner, manager: manager, listing: listing, property: prop}
	for _, name := range []string{"tenant-a", "tenant-b", "tenant-c"} {
		tenant := testutil.CreateUser(t, w.db, name)
		f.apps = append(f.apps, testutil.CreateApplication(t, w.db, listing.ID, tenant.ID))
	}
	return f
}

func TestLeaseApprove_CascadesToRivals(t *testing.T) {
	w := newWorkflow(t)
	ctx := context.Background()
	f := newLeaseFixture(t, w)

	res, err := w.apps.Approve(ctx, approverSession(f.manager.ID), f.apps[1].ID, testutil.String("  good references "))
	require.NoError(t, err)
	assert.Equal(t, model.ApplicationApproved, res.Status)
	assert.Equal(t, f.listing.ID, res.ListingID)
	assert.ElementsMatch(t, []int64{f.apps[0].ID, f.apps[2].ID}, res.RejectedApplicationIDs)
	assert.True(t, res.LeaseCreated)
	require.NotNil(t, res.LeaseID)
	assert.Empty(t, res.Warnings)

	approved := w.application(t, f.apps[1].ID)
	assert.Equal(t, model.ApplicationApproved, approved.Status)
	require.NotNil(t, approved.ReviewedByUserID)
	assert.Equal(t, f.manager.ID, *approved.ReviewedByUserID)
	require.NotNil(t, approved.ReviewNote)
	assert.Equal(t, "good references", *approved.ReviewNote)

	for _, id := range []int64{f.apps[0].ID, f.apps[2].ID} {
		rival := w.application(t, id)
		assert.Equal(t, model.ApplicationRejected, rival.Status)
		assert.Nil(t, rival.ReviewedByUserID)
		require.NotNil(t, rival.ReviewNote)
		assert.Equal(t, model.AutoRejectNote, *rival.ReviewNote)
		assert.NotNil(t, rival.ReviewedAt)
	}

	assert.Equal(t, model.ListingOccupied, w.listing(t, f.listing.ID).ListingStatus)

	lease, err := repository.NewLeaseRepository(w.db).FindByApplicationID(ctx, f.apps[1].ID)
	require.NoError(t, err)
	assert.Equal(t, *res.LeaseID, lease.ID)
	assert.Equal(t, f.owner.ID, lease.OwnerUserID)
	assert.Equal(t, f.apps[1].ApplicantUserID, lease.ClientUserID)
	assert.Equal(t, "2026-03-15", lease.LeaseStartDate.Format("2006-01-02"))
	assert.Equal(t, "2027-03-15", lease.LeaseEndDate.Format("2006-01-02"))
	assert.Equal(t, model.LeaseStatusActive, lease.LeaseStatus)

	w.publisher.AssertCalled(t, "Publish", EventApplicationApproved, mock.Anything)
	w.publisher.AssertCalled(t, "Publish", EventListingOccupied, mock.Anything)
}

func TestLeaseApprove_AuditTrail(t *testing.T) {
	w := newWorkflow(t)
	ctx := context.Background()
	f := newLeaseFixture(t, w)

	res, err := w.apps.Approve(ctx, approverSession(f.manager.ID), f.apps[0].ID, nil)
	require.NoError(t, err)

	appLogs, err := w.audit.ListForEntity(ctx, model.EntityLeaseApplication, f.apps[0].ID)
	require.NoError(t, err)
	require.Len(t, appLogs, 1)
	assert.Equal(t, model.ActionApproveApplication, appLogs[0].Action)

	listingLogs, err := w.audit.ListForEntity(ctx, model.EntityListing, f.listing.ID)
	require.NoError(t, err)
	require.Len(t, listingLogs, 2)
	assert.Equal(t, model.ActionAutoRejectApplications, listingLogs[0].Action)
	assert.Nil(t, listingLogs[0].ActorUserID)
	assert.Equal(t, model.ActionOccupyListing, listingLogs[1].Action)

	leaseLogs, err := w.audit.ListForEntity(ctx, model.EntityLease, *res.LeaseID)
	require.NoError(t, err)
	require.Len(t, leaseLogs, 1)
	assert.Equal(t, model.ActionCreateLease, leaseLogs[0].Action)
}

func TestLeaseApprove_OccupiedListingChangesNothing(t *testing.T) {
	w := newWorkflow(t)
	ctx := context.Background()

	owner := testutil.CreateUser(t, w.db, "landlord")
	manager := testutil.CreateUser(t, w.db, "manager")
	tenant := testutil.CreateUser(t, w.db, "tenant")
	prop := testutil.CreateSubmission(t, w.db, owner.ID, nil)
	listing := testutil.CreateListing(t, w.db, prop.ID, model.ListingOccupied)
	app := testutil.CreateApplication(t, w.db, listing.ID, tenant.ID)
	rival := testutil.CreateApplication(t, w.db, listing.ID, manager.ID)

	_, err := w.apps.Approve(ctx, approverSession(manager.ID), app.ID, nil)
	assert.ErrorIs(t, err, apperror.ErrListingAlreadyOccupied)

	assert.Equal(t, model.ApplicationPending, w.application(t, app.ID).Status)
	assert.Equal(t, model.ApplicationPending, w.application(t, rival.ID).Status)
	assert.Equal(t, model.ListingOccupied, w.listing(t, listing.ID).ListingStatus)
	w.publisher.AssertNotCalled(t, "Publish", EventApplicationApproved, mock.Anything)
}

func TestLeaseApprove_SecondApprovalIsAlreadyProcessed(t *testing.T) {
	w := newWorkflow(t)
	ctx := context.Background()
	f := newLeaseFixture(t, w)
	session := approverSession(f.manager.ID)

	_, err := w.apps.Approve(ctx, session, f.apps[0].ID, nil)
	require.NoError(t, err)

	_, err = w.apps.Approve(ctx, session, f.apps[0].ID, nil)
	assert.ErrorIs(t, err, apperror.ErrNotFoundOrAlreadyProcessed)

	// An auto-rejected rival cannot be approved afterwards.
	_, err = w.apps.Approve(ctx, session, f.apps[1].ID, nil)
	assert.ErrorIs(t, err, apperror.ErrNotFoundOrAlreadyProcessed)

	_, err = w.apps.Approve(ctx, session, 999999, nil)
	assert.ErrorIs(t, err, apperror.ErrNotFoundOrAlreadyProcessed)
}

func TestLeaseApprove_WithoutLeaseTable(t *testing.T) {
	w := newWorkflow(t)
	ctx := context.Background()
	f := newLeaseFixture(t, w)
	require.NoError(t, w.db.Migrator().DropTable(&model.Lease{}))

	res, err := w.apps.Approve(ctx, approverSession(f.manager.ID), f.apps[0].ID, nil)
	require.NoError(t, err)
	assert.False(t, res.LeaseCreated)
	assert.Nil(t, res.LeaseID)
	assert.Equal(t, []string{WarnLeaseStoreUnavailable}, res.Warnings)

	assert.Equal(t, model.ApplicationApproved, w.application(t, f.apps[0].ID).Status)
	assert.Equal(t, model.ListingOccupied, w.listing(t, f.listing.ID).ListingStatus)
}

func TestLeaseApprove_LeaseInsertFailureKeepsApproval(t *testing.T) {
	w := newWorkflow(t)
	ctx := context.Background()
	f := newLeaseFixture(t, w)

	// A stale lease row for the same application trips the unique index.
	stale := model.Lease{
		ListingID:      f.listing.ID,
		ApplicationID:  f.apps[2].ID,
		OwnerUserID:    f.owner.ID,
		ClientUserID:   f.apps[2].ApplicantUserID,
		LeaseStartDate: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		LeaseEndDate:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		LeaseStatus:    model.LeaseStatusActive,
	}
	require.NoError(t, w.db.Create(&stale).Error)

	res, err := w.apps.Approve(ctx, approverSession(f.manager.ID), f.apps[2].ID, nil)
	require.NoError(t, err)
	assert.False(t, res.LeaseCreated)
	assert.Equal(t, []string{WarnLeaseNotCreated}, res.Warnings)
	assert.Len(t, res.RejectedApplicationIDs, 2)

	assert.Equal(t, model.ApplicationApproved, w.application(t, f.apps[2].ID).Status)
	assert.Equal(t, model.ApplicationRejected, w.application(t, f.apps[0].ID).Status)
	assert.Equal(t, model.ListingOccupied, w.listing(t, f.listing.ID).ListingStatus)

	var leases int64
	require.NoError(t, w.db.Model(&model.Lease{}).Count(&leases).Error)
	assert.Equal(t, int64(1), leases)
}

func TestLeaseApprove_RequiresPermission(t *testing.T) {
	w := newWorkflow(t)
	ctx := context.Background()
	f := newLeaseFixture(t, w)

	staff := testutil.Session(f.manager.ID, model.RoleStaff, auth.PermReviewLeaseAppKey)
	_, err := w.apps.Approve(ctx, staff, f.apps[0].ID, nil)
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)
	_, err = w.apps.Reject(ctx, staff, f.apps[0].ID, "no income proof")
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)

	anonymous := auth.NewSession(nil, "", model.RoleManager, []string{auth.PermApproveLeaseAppKey})
	_, err = w.apps.Approve(ctx, anonymous, f.apps[0].ID, nil)
	assert.ErrorIs(t, err, apperror.ErrUnauthenticated)

	assert.Equal(t, model.ApplicationPending, w.application(t, f.apps[0].ID).Status)
	assert.Equal(t, model.ListingActive, w.listing(t, f.listing.ID).ListingStatus)
}

func TestLeaseReject(t *testing.T) {
	w := newWorkflow(t)
	ctx := context.Background()
	f := newLeaseFixture(t, w)
	session := approverSession(f.manager.ID)

	_, err := w.apps.Reject(ctx, session, f.apps[0].ID, " ")
	assert.ErrorIs(t, err, &apperror.Error{Kind: apperror.KindValidation, Field: "reason"})

	res, err := w.apps.Reject(ctx, session, f.apps[0].ID, " no income proof ")
	require.NoError(t, err)
	assert.Equal(t, model.ApplicationRejected, res.Status)

	rejected := w.application(t, f.apps[0].ID)
	require.NotNil(t, rejected.ReviewNote)
	assert.Equal(t, "no income proof", *rejected.ReviewNote)
	require.NotNil(t, rejected.ReviewedByUserID)
	assert.Equal(t, f.manager.ID, *rejected.ReviewedByUserID)

	assert.Equal(t, model.ApplicationPending, w.application(t, f.apps[1].ID).Status)
	assert.Equal(t, model.ListingActive, w.listing(t, f.listing.ID).ListingStatus)

	_, err = w.apps.Reject(ctx, session, f.apps[0].ID, "again")
	assert.ErrorIs(t, err, apperror.ErrNotFoundOrAlreadyProcessed)
}

func TestLeaseApprove_ConcurrentApprovalsOnOneListing(t *testing.T) {
	w := newWorkflow(t)
	ctx := context.Background()
	f := newLeaseFixture(t, w)
	m2 := testutil.CreateUser(t, w.db, "manager2")

	var (
		wg   sync.WaitGroup
		errs = make([]error, 2)
	)
	sessions := []auth.Session{approverSession(f.manager.ID), approverSession(m2.ID)}
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = w.apps.Approve(ctx, sessions[i], f.apps[i].ID, nil)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		kind := apperror.KindOf(err)
		assert.Contains(t, []apperror.Kind{apperror.KindNotFoundOrAlreadyProcessed, apperror.KindListingAlreadyOccupied}, kind)
	}
	assert.Equal(t, 1, succeeded)

	var approved int64
	require.NoError(t, w.db.Model(&model.LeaseApplication{}).
		Where("listing_id = ? AND status = ?", f.listing.ID, model.ApplicationApproved).
		Count(&approved).Error)
	assert.Equal(t, int64(1), approved)
	assert.Equal(t, model.ListingOccupied, w.listing(t, f.listing.ID).ListingStatus)
}

func TestLeaseApprove_LocksListingBeforeWritingApplications(t *testing.T) {
	w := newWorkflow(t)
	ctx := context.Background()
	f := newLeaseFixture(t, w)

	var (
		mu    sync.Mutex
		steps []string
	)
	record := func(kind string) func(*gorm.DB) {
		return func(tx *gorm.DB) {
			step := kind + " " + tx.Statement.Table
			if _, ok := tx.Statement.Clauses["FOR"]; ok {
				step += " for update"
			}
			mu.Lock()
			steps = append(steps, step)
			mu.Unlock()
		}
	}
	require.NoError(t, w.db.Callback().Query().Before("gorm:query").Register("test:record_query", record("select")))
	require.NoError(t, w.db.Callback().Update().Before("gorm:update").Register("test:record_update", record("update")))

	_, err := w.apps.Approve(ctx, approverSession(f.manager.ID), f.apps[0].ID, nil)
	require.NoError(t, err)

	lock := slices.Index(steps, "select listings for update")
	firstWrite := slices.Index(steps, "update lease_applications")
	require.NotEqual(t, -1, lock, "steps: %v", steps)
	require.NotEqual(t, -1, firstWrite, "steps: %v", steps)
	assert.Less(t, lock, firstWrite, "steps: %v", steps)
}

func TestLeaseList(t *testing.T) {
	w := newWorkflow(t)
	ctx := context.Background()
	f := newLeaseFixture(t, w)

	items, total, err := w.apps.List(ctx, testutil.Session(f.manager.ID, model.RoleStaff, auth.PermReviewLeaseAppKey), ReviewQueueFilter{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, items, 2)

	_, _, err = w.apps.List(ctx, testutil.Session(f.manager.ID, model.RoleStaff, auth.PermReviewPropertyKey), ReviewQueueFilter{})
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)
}
