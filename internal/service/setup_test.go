package service

import (
	"testing"
	"time"

	"tenurix/internal/logger"
	"tenurix/internal/model"
	"tenurix/internal/repository"
	"tenurix/internal/testutil"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var fixedNow = time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC)

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(eventType string, payload interface{}) {
	m.Called(eventType, payload)
}

type workflow struct {
	db        *gorm.DB
	audit     repository.AuditRepository
	publisher *mockPublisher
	subs      *submissionService
	apps      *leaseApplicationService
}

func newWorkflow(t *testing.T) *workflow {
	t.Helper()
	db := testutil.NewDB(t)

	publisher := &mockPublisher{}
	publisher.On("Publish", mock.Anything, mock.Anything).Return()

	txm := repository.NewTransactionManager(db)
	props := repository.NewPropertyRepository(db)
	listings := repository.NewListingRepository(db)
	audit := repository.NewAuditRepository(db)

	subs := NewSubmissionService(txm, props, listings, audit, publisher, logger.Discard()).(*submissionService)
	subs.now = func() time.Time { return fixedNow }

	apps := NewLeaseApplicationService(txm, repository.NewLeaseApplicationRepository(db), listings,
		repository.NewLeaseRepository(db), audit, publisher, logger.Discard()).(*leaseApplicationService)
	apps.now = func() time.Time { return fixedNow }

	return &workflow{db: db, audit: audit, publisher: publisher, subs: subs, apps: apps}
}

func (w *workflow) submission(t *testing.T, id int64) model.PropertySubmission {
	t.Helper()
	var p model.PropertySubmission
	require.NoError(t, w.db.First(&p, id).Error)
	return p
}

func (w *workflow) application(t *testing.T, id int64) model.LeaseApplication {
	t.Helper()
	var a model.LeaseApplication
	require.NoError(t, w.db.First(&a, id).Error)
	return a
}

func (w *workflow) listing(t *testing.T, id int64) model.Listing {
	t.Helper()
	var l model.Listing
	require.NoError(t, w.db.First(&l, id).Error)
	return l
}

func (w *workflow) countListings(t *testing.T, propertyID int64) int64 {
	t.Helper()
	var n int64
	require.NoError(t, w.db.Model(&model.Listing{}).Where("property_id = ?", propertyID).Count(&n).Error)
	return n
}
