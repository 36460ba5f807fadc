package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-admin-agent/internal/dto"
	"github.com/noah-isme/campus-admin-agent/internal/models"
)

func insertStudent(t *testing.T, ts testServices, id, dept string, onboarded, lastActive time.Time) {
	t.Helper()
	student := models.Student{
		StudentID:    id,
		Name:         "Student " + id,
		Department:   dept,
		Email:        id + "@x.edu",
		IsActive:     true,
		OnboardedAt:  onboarded,
		LastActiveAt: lastActive,
	}
	require.NoError(t, ts.db.Create(&student).Error)
}

func TestAnalyticsServiceTotalsInvariant(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()

	check := func() dto.StudentTotalsResponse {
		totals, err := ts.analytics.TotalStudents(ctx)
		require.NoError(t, err)
		require.Equal(t, totals.Total, totals.Active+totals.Inactive)
		return totals
	}

	require.Equal(t, dto.StudentTotalsResponse{}, check())

	for _, id := range []string{"S001", "S002", "S003"} {
		_, err := ts.students.Add(ctx, dto.StudentCreateRequest{Name: "N " + id, StudentID: id, Department: "CS", Email: id + "@x.edu"})
		require.NoError(t, err)
		check()
	}

	_, err := ts.students.Update(ctx, dto.StudentUpdateRequest{StudentID: "S002", Field: "is_active", NewValue: "false"})
	require.NoError(t, err)
	require.Equal(t, dto.StudentTotalsResponse{Total: 3, Active: 2, Inactive: 1}, check())

	_, err = ts.students.Delete(ctx, "S001")
	require.NoError(t, err)
	require.Equal(t, dto.StudentTotalsResponse{Total: 2, Active: 1, Inactive: 1}, check())
}

func TestAnalyticsServiceStudentsByDepartment(t *testing.T) {
	ts := newTestServices(t)
	now := time.Now().UTC()

	insertStudent(t, ts, "S001", "CS", now, now)
	insertStudent(t, ts, "S002", "CS", now, now)
	insertStudent(t, ts, "S003", "Math", now, now)

	counts, err := ts.analytics.StudentsByDepartment(context.Background())
	require.NoError(t, err)
	require.Equal(t, map[string]int64{"CS": 2, "Math": 1}, counts.Departments)

	require.NoError(t, ts.db.Where("department = ?", "Math").Delete(&models.Student{}).Error)
	counts, err = ts.analytics.StudentsByDepartment(context.Background())
	require.NoError(t, err)
	require.NotContains(t, counts.Departments, "Math")
}

func TestAnalyticsServiceRecentOnboarded(t *testing.T) {
	ts := newTestServices(t)
	t1 := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)
	t3 := t2.Add(time.Hour)

	insertStudent(t, ts, "S-t2", "CS", t2, t2)
	insertStudent(t, ts, "S-t1", "CS", t1, t1)
	insertStudent(t, ts, "S-t3", "CS", t3, t3)

	recent, err := ts.analytics.RecentOnboarded(context.Background(), 2)
	require.NoError(t, err)
	require.Equal(t, 2, recent.Limit)
	require.Len(t, recent.Students, 2)
	require.Equal(t, "S-t3", recent.Students[0].StudentID)
	require.Equal(t, "S-t2", recent.Students[1].StudentID)
}

func TestClampRecentLimit(t *testing.T) {
	require.Equal(t, DefaultRecentLimit, ClampRecentLimit(0))
	require.Equal(t, DefaultRecentLimit, ClampRecentLimit(-3))
	require.Equal(t, 7, ClampRecentLimit(7))
	require.Equal(t, MaxRecentLimit, ClampRecentLimit(10_000))
}

func TestAnalyticsServiceActiveWindowIsInclusive(t *testing.T) {
	ts := newTestServices(t)
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	ts.setClock(now)
	boundary := now.Add(-7 * 24 * time.Hour)
	longAgo := now.AddDate(0, -3, 0)

	insertStudent(t, ts, "S-boundary", "CS", longAgo, boundary)
	insertStudent(t, ts, "S-recent", "CS", longAgo, now.Add(-time.Hour))
	insertStudent(t, ts, "S-stale", "CS", longAgo, boundary.Add(-time.Second))

	active, err := ts.analytics.ActiveLastSevenDays(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, active.Count)
	require.Equal(t, "last_7_days", active.Period)
	require.Equal(t, "S-recent", active.Students[0].StudentID)
	require.Equal(t, "S-boundary", active.Students[1].StudentID)
}
