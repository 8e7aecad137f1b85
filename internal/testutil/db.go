// Package testutil opens throwaway databases and seeds workflow fixtures.
package testutil

import (
	"path/filepath"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"tenurix/internal/auth"
	"tenurix/internal/database"
	"tenurix/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// NewDB opens a migrated sqlite database in a temp dir. It allows a single
// connection, so concurrent transactions queue up behind each other the way
// row locks serialize them on Postgres.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "tenurix.db")
	db, err := gorm.Open(sqlite.Open(path+"?_busy_timeout=5000"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

// Session builds a caller session for userID holding perms.
func Session(userID int64, role string, perms ...string) auth.Session {
	return auth.NewSession([]string{strconv.FormatInt(userID, 10)}, "user"+strconv.FormatInt(userID, 10)+"@tenurix.test", role, perms)
}

var userSeq atomic.Int64

func CreateUser(t testing.TB, db *gorm.DB, fullName string) model.User {
	t.Helper()
	u := model.User{
		FullName: fullName,
		Email:    fullName + "-" + strconv.FormatInt(userSeq.Add(1), 10) + "@tenurix.test",
		IsActive: true,
	}
	require.NoError(t, db.Create(&u).Error)
	return u
}

// CreateSubmission inserts a Pending submission owned by ownerID, optionally
// assigned to a reviewer.
func CreateSubmission(t testing.TB, db *gorm.DB, ownerID int64, assignee *int64) model.PropertySubmission {
	t.Helper()
	p := model.PropertySubmission{
		OwnerUserID:      ownerID,
		AddressLine1:     "12 King St W",
		City:             "Toronto",
		Province:         "ON",
		PostalCode:       "M5H 1A1",
		PropertyType:     "Apartment",
		Bedrooms:         2,
		Bathrooms:        1,
		RentAmount:       decimal.RequireFromString("2450.00"),
		SubmissionStatus: model.SubmissionPending,
		AssignedToUserID: assignee,
	}
	if assignee != nil {
		now := time.Now().UTC()
		p.AssignedAt = &now
	}
	require.NoError(t, db.Create(&p).Error)
	return p
}

func CreateListing(t testing.TB, db *gorm.DB, propertyID int64, status string) model.Listing {
	t.Helper()
	l := model.Listing{PropertyID: propertyID, ListingStatus: status}
	require.NoError(t, db.Create(&l).Error)
	return l
}

func CreateApplication(t testing.TB, db *gorm.DB, listingID, applicantID int64) model.LeaseApplication {
	t.Helper()
	a := model.LeaseApplication{
		ListingID:           listingID,
		ApplicantUserID:     applicantID,
		Status:              model.ApplicationPending,
		RequestedTermMonths: 12,
	}
	require.NoError(t, db.Create(&a).Error)
	return a
}

// Int64 returns a pointer to v.
func Int64(v int64) *int64 { return &v }

// String returns a pointer to v.
func String(v string) *string { return &v }
