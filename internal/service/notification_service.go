package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/noah-isme/campus-admin-agent/internal/dto"
	"github.com/noah-isme/campus-admin-agent/internal/models"
	"github.com/noah-isme/campus-admin-agent/internal/repository"
)

const subjectPreviewLength = 50

// NotificationService delivers messages to students. Delivery is simulated: the
// message is logged and an audit entry is written.
type NotificationService interface {
	SendEmail(ctx context.Context, req dto.EmailRequest) (dto.EmailResponse, error)
}

type notificationService struct {
	store     repository.Store
	validator *validator.Validate
	activity  ActivityRecorder
	publisher ActivityPublisher
	logger    zerolog.Logger
}

// NewNotificationService constructs the notification service. publisher may be nil.
func NewNotificationService(store repository.Store, validator *validator.Validate, activity ActivityRecorder, publisher ActivityPublisher, logger zerolog.Logger) NotificationService {
	return &notificationService{
		store:     store,
		validator: validator,
		activity:  activity,
		publisher: publisher,
		logger:    logger.With().Str("component", "notification_service").Logger(),
	}
}

func (s *notificationService) SendEmail(ctx context.Context, req dto.EmailRequest) (dto.EmailResponse, error) {
	req.StudentID = strings.TrimSpace(req.StudentID)
	req.Message = strings.TrimSpace(req.Message)
	if err := s.validator.Struct(req); err != nil {
		return dto.EmailResponse{}, validationError(err)
	}

	subject := previewSubject(req.Message)
	var student models.Student
	var entry models.ActivityLog

	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		var err error
		student, err = tx.Students().GetByStudentID(ctx, req.StudentID)
		if err != nil {
			return err
		}

		entry, err = s.activity.Record(ctx, tx, ActivityEntry{
			StudentID: req.StudentID,
			Action:    models.ActivityNotified,
			Detail:    fmt.Sprintf("Email sent: %s", subject),
			Metadata:  map[string]interface{}{"channel": "email"},
		})
		return err
	})
	if err != nil {
		return dto.EmailResponse{}, translateStoreError(err)
	}

	s.logger.Info().
		Str("student_id", student.StudentID).
		Str("recipient", maskEmail(student.Email)).
		Str("subject", subject).
		Msg("email sent")

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, dto.NewActivityResponse(entry)); err != nil {
			s.logger.Warn().Err(err).Msg("failed to publish activity event")
		}
	}

	return dto.EmailResponse{Recipient: student.Email, Name: student.Name, Subject: subject}, nil
}

func previewSubject(message string) string {
	runes := []rune(message)
	if len(runes) <= subjectPreviewLength {
		return message
	}
	return string(runes[:subjectPreviewLength]) + "..."
}

// maskEmail keeps the first and last character of the local part for logs.
func maskEmail(email string) string {
	local, domain, ok := strings.Cut(strings.ToLower(strings.TrimSpace(email)), "@")
	switch {
	case email == "":
		return ""
	case !ok || local == "" || strings.Contains(domain, "@"):
		return "***"
	case len(local) <= 2:
		return local[:1] + "***@" + domain
	default:
		return local[:1] + "***" + local[len(local)-1:] + "@" + domain
	}
}
