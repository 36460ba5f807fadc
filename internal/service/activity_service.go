package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/datatypes"

	"github.com/noah-isme/campus-admin-agent/internal/dto"
	"github.com/noah-isme/campus-admin-agent/internal/models"
	"github.com/noah-isme/campus-admin-agent/internal/repository"
)

const (
	defaultActivityLimit = 50
	maxActivityLimit     = 500
)

// ActivityEntry captures the details required to persist an audit entry.
type ActivityEntry struct {
	StudentID string
	Action    string
	Detail    string
	Metadata  map[string]interface{}
	// At stamps the entry. Zero means the service clock.
	At time.Time
}

// ActivityRecorder writes audit entries through the store it is handed, so the
// entry joins the caller's transaction.
type ActivityRecorder interface {
	Record(ctx context.Context, store repository.Store, entry ActivityEntry) (models.ActivityLog, error)
}

// ActivityService exposes methods to query and persist activity logs.
type ActivityService interface {
	ActivityRecorder
	List(ctx context.Context, req dto.ActivityListRequest) ([]dto.ActivityResponse, error)
}

type activityService struct {
	store  repository.Store
	logger zerolog.Logger
	now    func() time.Time
}

// NewActivityService constructs the activity log service.
func NewActivityService(store repository.Store, logger zerolog.Logger) ActivityService {
	return &activityService{
		store:  store,
		logger: logger.With().Str("component", "activity_service").Logger(),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *activityService) Record(ctx context.Context, store repository.Store, entry ActivityEntry) (models.ActivityLog, error) {
	studentID := strings.TrimSpace(entry.StudentID)
	if studentID == "" {
		return models.ActivityLog{}, fmt.Errorf("%w: student id is required", ErrValidation)
	}
	action := strings.ToLower(strings.TrimSpace(entry.Action))
	if !isKnownAction(action) {
		return models.ActivityLog{}, fmt.Errorf("%w: unknown activity action %q", ErrValidation, entry.Action)
	}

	at := entry.At
	if at.IsZero() {
		at = s.now()
	}

	model := models.ActivityLog{
		StudentID: studentID,
		Action:    action,
		Detail:    strings.TrimSpace(entry.Detail),
		Metadata:  sanitizeMetadata(entry.Metadata),
		Timestamp: at.UTC(),
	}

	if err := store.Activity().Create(ctx, &model); err != nil {
		s.logger.Error().Err(err).Str("student_id", studentID).Msg("failed to persist activity log")
		return models.ActivityLog{}, err
	}

	if action != models.ActivityDeleted {
		if err := store.Students().Touch(ctx, studentID, model.Timestamp); err != nil {
			return models.ActivityLog{}, err
		}
	}

	return model, nil
}

func (s *activityService) List(ctx context.Context, req dto.ActivityListRequest) ([]dto.ActivityResponse, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = defaultActivityLimit
	} else if limit > maxActivityLimit {
		limit = maxActivityLimit
	}

	entries, err := s.store.Activity().List(ctx, repository.ActivityLogFilter{
		StudentID: strings.TrimSpace(req.StudentID),
		Action:    strings.ToLower(strings.TrimSpace(req.Action)),
		Limit:     limit,
	})
	if err != nil {
		return nil, translateStoreError(err)
	}

	responses := make([]dto.ActivityResponse, 0, len(entries))
	for _, entry := range entries {
		responses = append(responses, dto.NewActivityResponse(entry))
	}
	return responses, nil
}

func isKnownAction(action string) bool {
	switch action {
	case models.ActivityCreated, models.ActivityUpdated, models.ActivityDeleted, models.ActivityQueried, models.ActivityNotified:
		return true
	default:
		return false
	}
}

func sanitizeMetadata(metadata map[string]interface{}) datatypes.JSONMap {
	if metadata == nil {
		return datatypes.JSONMap{}
	}

	sanitized := datatypes.JSONMap{}
	for key, value := range metadata {
		lower := strings.ToLower(key)
		if strings.Contains(lower, "token") || strings.Contains(lower, "secret") {
			sanitized[key] = "***"
			continue
		}
		sanitized[key] = value
	}
	return sanitized
}
