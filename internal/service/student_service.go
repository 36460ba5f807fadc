package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/noah-isme/campus-admin-agent/internal/dto"
	"github.com/noah-isme/campus-admin-agent/internal/models"
	"github.com/noah-isme/campus-admin-agent/internal/repository"
)

// MutableStudentFields lists the attributes update_student may change.
var MutableStudentFields = []string{"name", "department", "email", "is_active"}

// StudentService orchestrates student management use cases. Every mutation runs
// in one transaction together with its activity log entry.
type StudentService interface {
	Add(ctx context.Context, req dto.StudentCreateRequest) (dto.StudentResponse, error)
	Get(ctx context.Context, studentID string) (dto.StudentResponse, error)
	Update(ctx context.Context, req dto.StudentUpdateRequest) (dto.StudentUpdateResponse, error)
	Delete(ctx context.Context, studentID string) (dto.StudentDeleteResponse, error)
	List(ctx context.Context) (dto.StudentListResponse, error)
}

type studentService struct {
	store     repository.Store
	validator *validator.Validate
	activity  ActivityRecorder
	publisher ActivityPublisher
	logger    zerolog.Logger
	now       func() time.Time
}

// NewStudentService constructs the student service. publisher may be nil.
func NewStudentService(store repository.Store, validator *validator.Validate, activity ActivityRecorder, publisher ActivityPublisher, logger zerolog.Logger) StudentService {
	return &studentService{
		store:     store,
		validator: validator,
		activity:  activity,
		publisher: publisher,
		logger:    logger.With().Str("component", "student_service").Logger(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *studentService) Add(ctx context.Context, req dto.StudentCreateRequest) (dto.StudentResponse, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.StudentID = strings.TrimSpace(req.StudentID)
	req.Department = strings.TrimSpace(req.Department)
	req.Email = strings.TrimSpace(req.Email)

	if err := s.validator.Struct(req); err != nil {
		return dto.StudentResponse{}, validationError(err)
	}

	now := s.now()
	var created models.Student
	var entry models.ActivityLog

	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		exists, err := tx.Students().ExistsByIDOrEmail(ctx, req.StudentID, req.Email)
		if err != nil {
			return err
		}
		if exists {
			return ErrDuplicateStudent
		}

		created = models.Student{
			StudentID:    req.StudentID,
			Name:         req.Name,
			Department:   req.Department,
			Email:        req.Email,
			IsActive:     true,
			OnboardedAt:  now,
			LastActiveAt: now,
		}
		if err := tx.Students().Create(ctx, &created); err != nil {
			return err
		}

		entry, err = s.activity.Record(ctx, tx, ActivityEntry{
			StudentID: req.StudentID,
			Action:    models.ActivityCreated,
			Detail:    fmt.Sprintf("New student %s added to %s", req.Name, req.Department),
			Metadata: map[string]interface{}{
				"name":       req.Name,
				"department": req.Department,
				"email":      req.Email,
			},
			At: now,
		})
		return err
	})
	if err != nil {
		return dto.StudentResponse{}, translateStoreError(err)
	}

	s.publish(ctx, entry)
	s.logger.Info().Str("student_id", created.StudentID).Msg("student added")

	return dto.NewStudentResponse(created), nil
}

func (s *studentService) Get(ctx context.Context, studentID string) (dto.StudentResponse, error) {
	studentID = strings.TrimSpace(studentID)
	if studentID == "" {
		return dto.StudentResponse{}, fmt.Errorf("%w: student_id is required", ErrValidation)
	}

	student, err := s.store.Students().GetByStudentID(ctx, studentID)
	if err != nil {
		return dto.StudentResponse{}, translateStoreError(err)
	}

	return dto.NewStudentResponse(student), nil
}

func (s *studentService) Update(ctx context.Context, req dto.StudentUpdateRequest) (dto.StudentUpdateResponse, error) {
	req.StudentID = strings.TrimSpace(req.StudentID)
	req.Field = strings.ToLower(strings.TrimSpace(req.Field))

	if err := s.validator.Struct(req); err != nil {
		return dto.StudentUpdateResponse{}, validationError(err)
	}

	now := s.now()
	var response dto.StudentUpdateResponse
	var entry models.ActivityLog

	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		current, err := tx.Students().GetByStudentID(ctx, req.StudentID)
		if err != nil {
			return err
		}

		oldValue, newValue, err := s.resolveUpdate(ctx, tx, current, req.Field, req.NewValue)
		if err != nil {
			return err
		}

		if _, err := tx.Students().Update(ctx, req.StudentID, map[string]interface{}{req.Field: newValue}); err != nil {
			return err
		}

		at := now
		if at.Before(current.OnboardedAt) {
			at = current.OnboardedAt
		}
		entry, err = s.activity.Record(ctx, tx, ActivityEntry{
			StudentID: req.StudentID,
			Action:    models.ActivityUpdated,
			Detail:    fmt.Sprintf("Updated %s: %v -> %v", req.Field, oldValue, newValue),
			Metadata: map[string]interface{}{
				"field":     req.Field,
				"old_value": oldValue,
				"new_value": newValue,
			},
			At: at,
		})
		if err != nil {
			return err
		}

		updated, err := tx.Students().GetByStudentID(ctx, req.StudentID)
		if err != nil {
			return err
		}

		response = dto.StudentUpdateResponse{
			Student:  dto.NewStudentResponse(updated),
			Field:    req.Field,
			OldValue: oldValue,
			NewValue: newValue,
		}
		return nil
	})
	if err != nil {
		return dto.StudentUpdateResponse{}, translateStoreError(err)
	}

	s.publish(ctx, entry)
	s.logger.Info().Str("student_id", req.StudentID).Str("field", req.Field).Msg("student updated")

	return response, nil
}

// resolveUpdate validates the requested change and returns the old and new
// column values.
func (s *studentService) resolveUpdate(ctx context.Context, tx repository.Store, current models.Student, field, raw string) (interface{}, interface{}, error) {
	value := strings.TrimSpace(raw)

	switch field {
	case "name", "department":
		if value == "" {
			return nil, nil, fmt.Errorf("%w: %s must not be empty", ErrValidation, field)
		}
		if len(value) > 100 {
			return nil, nil, fmt.Errorf("%w: %s must be at most 100 characters", ErrValidation, field)
		}
		if field == "name" {
			return current.Name, value, nil
		}
		return current.Department, value, nil
	case "email":
		if err := s.validator.Var(value, "required,email,max=100"); err != nil {
			return nil, nil, fmt.Errorf("%w: email must be a valid email address", ErrValidation)
		}
		taken, err := tx.Students().EmailTaken(ctx, value, current.StudentID)
		if err != nil {
			return nil, nil, err
		}
		if taken {
			return nil, nil, ErrDuplicateStudent
		}
		return current.Email, value, nil
	case "is_active":
		active, err := parseActive(value)
		if err != nil {
			return nil, nil, err
		}
		return current.IsActive, active, nil
	default:
		return nil, nil, fmt.Errorf("%w %q: valid fields are %s", ErrInvalidField, field, strings.Join(MutableStudentFields, ", "))
	}
}

func (s *studentService) Delete(ctx context.Context, studentID string) (dto.StudentDeleteResponse, error) {
	studentID = strings.TrimSpace(studentID)
	if studentID == "" {
		return dto.StudentDeleteResponse{}, fmt.Errorf("%w: student_id is required", ErrValidation)
	}

	var removed models.Student
	var entry models.ActivityLog

	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		var err error
		removed, err = tx.Students().GetByStudentID(ctx, studentID)
		if err != nil {
			return err
		}

		if err := tx.Students().Delete(ctx, studentID); err != nil {
			return err
		}

		entry, err = s.activity.Record(ctx, tx, ActivityEntry{
			StudentID: studentID,
			Action:    models.ActivityDeleted,
			Detail:    fmt.Sprintf("Student %s deleted", removed.Name),
			Metadata: map[string]interface{}{
				"name":       removed.Name,
				"department": removed.Department,
			},
			At: s.now(),
		})
		return err
	})
	if err != nil {
		return dto.StudentDeleteResponse{}, translateStoreError(err)
	}

	s.publish(ctx, entry)
	s.logger.Info().Str("student_id", studentID).Msg("student deleted")

	return dto.StudentDeleteResponse{StudentID: studentID, Name: removed.Name, Deleted: true}, nil
}

func (s *studentService) List(ctx context.Context) (dto.StudentListResponse, error) {
	students, err := s.store.Students().List(ctx)
	if err != nil {
		return dto.StudentListResponse{}, translateStoreError(err)
	}

	responses := dto.NewStudentResponses(students)
	return dto.StudentListResponse{Students: responses, TotalCount: len(responses)}, nil
}

func (s *studentService) publish(ctx context.Context, entry models.ActivityLog) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, dto.NewActivityResponse(entry)); err != nil {
		s.logger.Warn().Err(err).Str("student_id", entry.StudentID).Msg("failed to publish activity event")
	}
}

func parseActive(value string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "active", "yes", "y":
		return true, nil
	case "inactive", "no", "n":
		return false, nil
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%w: is_active must be true or false", ErrValidation)
	}
	return parsed, nil
}
