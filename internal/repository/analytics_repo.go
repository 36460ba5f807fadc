package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/campus-admin-agent/internal/models"
)

// DepartmentCount is a single department bucket.
type DepartmentCount struct {
	Department string
	Count      int64
}

// AnalyticsRepository supplies aggregate reads over the student table.
type AnalyticsRepository interface {
	CountStudents(ctx context.Context) (total int64, active int64, err error)
	CountByDepartment(ctx context.Context) ([]DepartmentCount, error)
	RecentOnboarded(ctx context.Context, limit int) ([]models.Student, error)
	ActiveSince(ctx context.Context, since time.Time) ([]models.Student, error)
}

type analyticsRepository struct {
	db *gorm.DB
}

// NewAnalyticsRepository constructs the analytics repository.
func NewAnalyticsRepository(db *gorm.DB) AnalyticsRepository {
	return &analyticsRepository{db: db}
}

func (r *analyticsRepository) CountStudents(ctx context.Context) (int64, int64, error) {
	var row struct {
		Total  int64
		Active int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.Student{}).
		Select("COUNT(*) AS total, COALESCE(SUM(CASE WHEN is_active THEN 1 ELSE 0 END), 0) AS active").
		Scan(&row).Error
	if err != nil {
		return 0, 0, err
	}
	return row.Total, row.Active, nil
}

func (r *analyticsRepository) CountByDepartment(ctx context.Context) ([]DepartmentCount, error) {
	var rows []DepartmentCount
	err := r.db.WithContext(ctx).
		Model(&models.Student{}).
		Select("department, COUNT(*) AS count").
		Group("department").
		Order("department ASC").
		Scan(&rows).Error
	return rows, err
}

func (r *analyticsRepository) RecentOnboarded(ctx context.Context, limit int) ([]models.Student, error) {
	var students []models.Student
	err := r.db.WithContext(ctx).
		Order("onboarded_at DESC").
		Order("student_id ASC").
		Limit(limit).
		Find(&students).Error
	return students, err
}

func (r *analyticsRepository) ActiveSince(ctx context.Context, since time.Time) ([]models.Student, error) {
	var students []models.Student
	err := r.db.WithContext(ctx).
		Where("last_active_at >= ?", since).
		Order("last_active_at DESC").
		Order("student_id ASC").
		Find(&students).Error
	return students, err
}
