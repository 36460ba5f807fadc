package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-admin-agent/internal/dto"
	"github.com/noah-isme/campus-admin-agent/internal/models"
	"github.com/noah-isme/campus-admin-agent/internal/repository"
)

func janeDoe() dto.StudentCreateRequest {
	return dto.StudentCreateRequest{Name: "Jane Doe", StudentID: "S001", Department: "CS", Email: "jane@x.edu"}
}

func TestStudentServiceAddThenGetRoundTrip(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()

	created, err := ts.students.Add(ctx, janeDoe())
	require.NoError(t, err)
	require.True(t, created.IsActive)

	fetched, err := ts.students.Get(ctx, "S001")
	require.NoError(t, err)
	require.Equal(t, "Jane Doe", fetched.Name)
	require.Equal(t, "S001", fetched.StudentID)
	require.Equal(t, "CS", fetched.Department)
	require.Equal(t, "jane@x.edu", fetched.Email)
	require.True(t, fetched.IsActive)
	require.False(t, fetched.LastActiveAt.Before(fetched.OnboardedAt))
}

func TestStudentServiceAddDuplicateLeavesTableUnchanged(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()

	_, err := ts.students.Add(ctx, janeDoe())
	require.NoError(t, err)
	before := ts.countStudents(t)
	logsBefore := ts.countLogs(t, "S001")

	_, err = ts.students.Add(ctx, dto.StudentCreateRequest{Name: "Other", StudentID: "S001", Department: "Math", Email: "other@x.edu"})
	require.ErrorIs(t, err, ErrDuplicateStudent)
	require.Equal(t, CodeDuplicateKey, ErrorCode(err))

	_, err = ts.students.Add(ctx, dto.StudentCreateRequest{Name: "Other", StudentID: "S002", Department: "Math", Email: "JANE@x.edu"})
	require.ErrorIs(t, err, ErrDuplicateStudent)

	require.Equal(t, before, ts.countStudents(t))
	require.Equal(t, logsBefore, ts.countLogs(t, "S001"))
	require.Zero(t, ts.countLogs(t, "S002"))
}

func TestStudentServiceAddValidatesInput(t *testing.T) {
	ts := newTestServices(t)

	_, err := ts.students.Add(context.Background(), dto.StudentCreateRequest{Name: "  ", StudentID: "S001", Department: "CS", Email: "jane@x.edu"})
	require.ErrorIs(t, err, ErrValidation)
	require.Contains(t, err.Error(), "name is required")

	_, err = ts.students.Add(context.Background(), dto.StudentCreateRequest{Name: "Jane", StudentID: "S001", Department: "CS", Email: "not-an-email"})
	require.ErrorIs(t, err, ErrValidation)
	require.Contains(t, err.Error(), "email must be a valid email address")
	require.Zero(t, ts.countStudents(t))
}

func TestStudentServiceUpdateRejectsUnknownField(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()

	_, err := ts.students.Add(ctx, janeDoe())
	require.NoError(t, err)

	_, err = ts.students.Update(ctx, dto.StudentUpdateRequest{StudentID: "S001", Field: "student_id", NewValue: "S999"})
	require.ErrorIs(t, err, ErrInvalidField)
	require.Equal(t, CodeInvalidField, ErrorCode(err))

	_, err = ts.students.Update(ctx, dto.StudentUpdateRequest{StudentID: "S001", Field: "onboarded_at", NewValue: "yesterday"})
	require.ErrorIs(t, err, ErrInvalidField)

	fetched, err := ts.students.Get(ctx, "S001")
	require.NoError(t, err)
	require.Equal(t, "Jane Doe", fetched.Name)
	require.Equal(t, int64(1), ts.countLogs(t, "S001"))
}

func TestStudentServiceUpdateMissingStudent(t *testing.T) {
	ts := newTestServices(t)

	_, err := ts.students.Update(context.Background(), dto.StudentUpdateRequest{StudentID: "S404", Field: "name", NewValue: "Nobody"})
	require.ErrorIs(t, err, ErrStudentNotFound)
	require.Zero(t, ts.countLogs(t, "S404"))
}

func TestStudentServiceUpdateFields(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()
	start := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	ts.setClock(start)

	_, err := ts.students.Add(ctx, janeDoe())
	require.NoError(t, err)

	later := start.Add(48 * time.Hour)
	ts.setClock(later)

	updated, err := ts.students.Update(ctx, dto.StudentUpdateRequest{StudentID: "S001", Field: "is_active", NewValue: "inactive"})
	require.NoError(t, err)
	require.False(t, updated.Student.IsActive)
	require.Equal(t, true, updated.OldValue)
	require.Equal(t, false, updated.NewValue)
	require.True(t, updated.Student.LastActiveAt.Equal(later))
	require.True(t, updated.Student.OnboardedAt.Equal(start))

	updated, err = ts.students.Update(ctx, dto.StudentUpdateRequest{StudentID: "S001", Field: " Email ", NewValue: "jane.doe@x.edu"})
	require.NoError(t, err)
	require.Equal(t, "email", updated.Field)
	require.Equal(t, "jane.doe@x.edu", updated.Student.Email)

	_, err = ts.students.Update(ctx, dto.StudentUpdateRequest{StudentID: "S001", Field: "is_active", NewValue: "maybe"})
	require.ErrorIs(t, err, ErrValidation)

	_, err = ts.students.Update(ctx, dto.StudentUpdateRequest{StudentID: "S001", Field: "name", NewValue: ""})
	require.ErrorIs(t, err, ErrValidation)

	require.Equal(t, int64(3), ts.countLogs(t, "S001"))
}

func TestStudentServiceUpdateEmailCollision(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()

	_, err := ts.students.Add(ctx, janeDoe())
	require.NoError(t, err)
	_, err = ts.students.Add(ctx, dto.StudentCreateRequest{Name: "John Roe", StudentID: "S002", Department: "Math", Email: "john@x.edu"})
	require.NoError(t, err)

	_, err = ts.students.Update(ctx, dto.StudentUpdateRequest{StudentID: "S002", Field: "email", NewValue: "jane@x.edu"})
	require.ErrorIs(t, err, ErrDuplicateStudent)

	fetched, err := ts.students.Get(ctx, "S002")
	require.NoError(t, err)
	require.Equal(t, "john@x.edu", fetched.Email)
}

func TestStudentServiceDeleteThenGetIsNotFound(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()

	_, err := ts.students.Add(ctx, janeDoe())
	require.NoError(t, err)

	deleted, err := ts.students.Delete(ctx, "S001")
	require.NoError(t, err)
	require.True(t, deleted.Deleted)
	require.Equal(t, "Jane Doe", deleted.Name)

	_, err = ts.students.Get(ctx, "S001")
	require.ErrorIs(t, err, ErrStudentNotFound)
	require.Equal(t, CodeNotFound, ErrorCode(err))

	_, err = ts.students.Delete(ctx, "S001")
	require.ErrorIs(t, err, ErrStudentNotFound)
	require.Equal(t, int64(2), ts.countLogs(t, "S001"))
}

func TestStudentServiceScenario(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()

	_, err := ts.students.Add(ctx, janeDoe())
	require.NoError(t, err)

	totals, err := ts.analytics.TotalStudents(ctx)
	require.NoError(t, err)
	require.Equal(t, dto.StudentTotalsResponse{Total: 1, Active: 1, Inactive: 0}, totals)

	_, err = ts.students.Update(ctx, dto.StudentUpdateRequest{StudentID: "S001", Field: "department", NewValue: "Math"})
	require.NoError(t, err)

	fetched, err := ts.students.Get(ctx, "S001")
	require.NoError(t, err)
	require.Equal(t, "Math", fetched.Department)
	require.Equal(t, int64(2), ts.countLogs(t, "S001"))

	_, err = ts.students.Delete(ctx, "S001")
	require.NoError(t, err)

	_, err = ts.students.Get(ctx, "S001")
	require.ErrorIs(t, err, ErrStudentNotFound)
	require.Equal(t, int64(3), ts.countLogs(t, "S001"))

	entries, err := ts.store.Activity().List(ctx, repository.ActivityLogFilter{StudentID: "S001"})
	require.NoError(t, err)
	actions := []string{entries[2].Action, entries[1].Action, entries[0].Action}
	require.Equal(t, []string{models.ActivityCreated, models.ActivityUpdated, models.ActivityDeleted}, actions)
}

func TestStudentServiceEachMutationLogsOnce(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()

	steps := []struct {
		action string
		run    func() error
	}{
		{models.ActivityCreated, func() error { _, err := ts.students.Add(ctx, janeDoe()); return err }},
		{models.ActivityUpdated, func() error {
			_, err := ts.students.Update(ctx, dto.StudentUpdateRequest{StudentID: "S001", Field: "name", NewValue: "Jane Q. Doe"})
			return err
		}},
		{models.ActivityDeleted, func() error { _, err := ts.students.Delete(ctx, "S001"); return err }},
	}

	for _, step := range steps {
		before, err := ts.store.Activity().Count(ctx, repository.ActivityLogFilter{})
		require.NoError(t, err)

		require.NoError(t, step.run())

		after, err := ts.store.Activity().Count(ctx, repository.ActivityLogFilter{})
		require.NoError(t, err)
		require.Equal(t, before+1, after)

		latest, err := ts.store.Activity().List(ctx, repository.ActivityLogFilter{Limit: 1})
		require.NoError(t, err)
		require.Equal(t, step.action, latest[0].Action)
	}
}

func TestStudentServiceListIsOrdered(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()

	for _, id := range []string{"S003", "S001", "S002"} {
		_, err := ts.students.Add(ctx, dto.StudentCreateRequest{Name: "Student " + id, StudentID: id, Department: "CS", Email: id + "@x.edu"})
		require.NoError(t, err)
	}

	list, err := ts.students.List(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, list.TotalCount)
	require.Equal(t, "S001", list.Students[0].StudentID)
	require.Equal(t, "S003", list.Students[2].StudentID)
}

type recordingPublisher struct {
	events []dto.ActivityResponse
}

func (r *recordingPublisher) Publish(_ context.Context, activity dto.ActivityResponse) error {
	r.events = append(r.events, activity)
	return nil
}

func TestStudentServicePublishesCommittedActivity(t *testing.T) {
	ts := newTestServices(t)
	publisher := &recordingPublisher{}
	ts.students.publisher = publisher
	ctx := context.Background()

	_, err := ts.students.Add(ctx, janeDoe())
	require.NoError(t, err)
	_, err = ts.students.Add(ctx, janeDoe())
	require.Error(t, err)

	require.Len(t, publisher.events, 1)
	require.Equal(t, models.ActivityCreated, publisher.events[0].Action)
	require.Equal(t, "S001", publisher.events[0].StudentID)
}
