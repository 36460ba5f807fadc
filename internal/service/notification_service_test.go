package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-admin-agent/internal/dto"
	"github.com/noah-isme/campus-admin-agent/internal/models"
	"github.com/noah-isme/campus-admin-agent/internal/repository"
)

func TestNotificationServiceSendEmail(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()
	publisher := &recordingPublisher{}
	svc := NewNotificationService(ts.store, NewValidator(), ts.activity, publisher, testLogger())

	_, err := ts.students.Add(ctx, janeDoe())
	require.NoError(t, err)

	message := strings.Repeat("a", 80)
	resp, err := svc.SendEmail(ctx, dto.EmailRequest{StudentID: "S001", Message: message})
	require.NoError(t, err)
	require.Equal(t, "jane@x.edu", resp.Recipient)
	require.Equal(t, strings.Repeat("a", 50)+"...", resp.Subject)

	count, err := ts.store.Activity().Count(ctx, repository.ActivityLogFilter{StudentID: "S001", Action: models.ActivityNotified})
	require.NoError(t, err)
	require.Equal(t, int64(1), count)
	require.Len(t, publisher.events, 1)
}

func TestNotificationServiceSendEmailUnknownStudent(t *testing.T) {
	ts := newTestServices(t)
	svc := NewNotificationService(ts.store, NewValidator(), ts.activity, nil, testLogger())

	_, err := svc.SendEmail(context.Background(), dto.EmailRequest{StudentID: "S404", Message: "hello"})
	require.ErrorIs(t, err, ErrStudentNotFound)

	_, err = svc.SendEmail(context.Background(), dto.EmailRequest{StudentID: "S404"})
	require.ErrorIs(t, err, ErrValidation)
}

func TestMaskEmail(t *testing.T) {
	require.Equal(t, "a***e@uni.edu", maskEmail("Alice@Uni.edu"))
	require.Equal(t, "b***@uni.edu", maskEmail("bo@uni.edu"))
	require.Equal(t, "***", maskEmail("not-an-email"))
	require.Empty(t, maskEmail(""))
}
