package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/campus-admin-agent/internal/dto"
	"github.com/noah-isme/campus-admin-agent/internal/repository"
)

const (
	// DefaultRecentLimit is used when no positive limit is requested.
	DefaultRecentLimit = 5
	// MaxRecentLimit caps the recent onboarded listing.
	MaxRecentLimit = 50

	activeWindow = 7 * 24 * time.Hour
)

// AnalyticsService answers aggregate questions about the student body. Every
// call reads fresh counts; nothing is cached.
type AnalyticsService interface {
	TotalStudents(ctx context.Context) (dto.StudentTotalsResponse, error)
	StudentsByDepartment(ctx context.Context) (dto.DepartmentCountsResponse, error)
	RecentOnboarded(ctx context.Context, limit int) (dto.RecentStudentsResponse, error)
	ActiveLastSevenDays(ctx context.Context) (dto.ActiveStudentsResponse, error)
}

type analyticsService struct {
	store  repository.Store
	logger zerolog.Logger
	tracer trace.Tracer
	now    func() time.Time
}

// NewAnalyticsService constructs the analytics service.
func NewAnalyticsService(store repository.Store, logger zerolog.Logger) AnalyticsService {
	return &analyticsService{
		store:  store,
		logger: logger.With().Str("component", "analytics_service").Logger(),
		tracer: otel.Tracer("github.com/noah-isme/campus-admin-agent/internal/service/analytics"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *analyticsService) TotalStudents(ctx context.Context) (dto.StudentTotalsResponse, error) {
	ctx, span := s.tracer.Start(ctx, "analytics.total_students")
	defer span.End()

	total, active, err := s.store.Analytics().CountStudents(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "count_students_failed")
		return dto.StudentTotalsResponse{}, translateStoreError(err)
	}

	span.SetAttributes(attribute.Int64("analytics.total", total), attribute.Int64("analytics.active", active))
	return dto.StudentTotalsResponse{Total: total, Active: active, Inactive: total - active}, nil
}

func (s *analyticsService) StudentsByDepartment(ctx context.Context) (dto.DepartmentCountsResponse, error) {
	ctx, span := s.tracer.Start(ctx, "analytics.students_by_department")
	defer span.End()

	rows, err := s.store.Analytics().CountByDepartment(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "count_by_department_failed")
		return dto.DepartmentCountsResponse{}, translateStoreError(err)
	}

	departments := make(map[string]int64, len(rows))
	for _, row := range rows {
		if row.Count == 0 {
			continue
		}
		departments[row.Department] = row.Count
	}

	span.SetAttributes(attribute.Int("analytics.departments", len(departments)))
	return dto.DepartmentCountsResponse{Departments: departments}, nil
}

func (s *analyticsService) RecentOnboarded(ctx context.Context, limit int) (dto.RecentStudentsResponse, error) {
	limit = ClampRecentLimit(limit)

	ctx, span := s.tracer.Start(ctx, "analytics.recent_onboarded", trace.WithAttributes(attribute.Int("analytics.limit", limit)))
	defer span.End()

	students, err := s.store.Analytics().RecentOnboarded(ctx, limit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "recent_onboarded_failed")
		return dto.RecentStudentsResponse{}, translateStoreError(err)
	}

	return dto.RecentStudentsResponse{Students: dto.NewStudentResponses(students), Limit: limit}, nil
}

func (s *analyticsService) ActiveLastSevenDays(ctx context.Context) (dto.ActiveStudentsResponse, error) {
	ctx, span := s.tracer.Start(ctx, "analytics.active_last_7_days")
	defer span.End()

	since := s.now().Add(-activeWindow)
	students, err := s.store.Analytics().ActiveSince(ctx, since)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "active_since_failed")
		return dto.ActiveStudentsResponse{}, translateStoreError(err)
	}

	responses := dto.NewStudentResponses(students)
	return dto.ActiveStudentsResponse{
		Students: responses,
		Count:    len(responses),
		Period:   "last_7_days",
		Since:    since,
	}, nil
}

// ClampRecentLimit normalises a requested recent-onboarded limit.
func ClampRecentLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultRecentLimit
	case limit > MaxRecentLimit:
		return MaxRecentLimit
	default:
		return limit
	}
}
