package service

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/campus-admin-agent/internal/models"
	"github.com/noah-isme/campus-admin-agent/internal/repository"
)

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Student{}, &models.ActivityLog{}))
	return db
}

type testServices struct {
	db        *gorm.DB
	store     repository.Store
	students  *studentService
	activity  *activityService
	analytics *analyticsService
}

func newTestServices(t *testing.T) testServices {
	t.Helper()
	db := setupTestDB(t)
	store := repository.NewStore(db)
	activity := NewActivityService(store, testLogger()).(*activityService)
	students := NewStudentService(store, NewValidator(), activity, nil, testLogger()).(*studentService)
	analytics := NewAnalyticsService(store, testLogger()).(*analyticsService)
	return testServices{db: db, store: store, students: students, activity: activity, analytics: analytics}
}

func (ts testServices) setClock(at time.Time) {
	clock := func() time.Time { return at }
	ts.students.now = clock
	ts.activity.now = clock
	ts.analytics.now = clock
}

func (ts testServices) countLogs(t *testing.T, studentID string) int64 {
	t.Helper()
	count, err := ts.store.Activity().Count(context.Background(), repository.ActivityLogFilter{StudentID: studentID})
	require.NoError(t, err)
	return count
}

func (ts testServices) countStudents(t *testing.T) int64 {
	t.Helper()
	count, err := ts.store.Students().Count(context.Background())
	require.NoError(t, err)
	return count
}
