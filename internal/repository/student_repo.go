package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/campus-admin-agent/internal/models"
)

// StudentRepository exposes persistence helpers for student records.
type StudentRepository interface {
	Create(ctx context.Context, student *models.Student) error
	GetByStudentID(ctx context.Context, studentID string) (models.Student, error)
	ExistsByIDOrEmail(ctx context.Context, studentID, email string) (bool, error)
	EmailTaken(ctx context.Context, email, exceptStudentID string) (bool, error)
	Update(ctx context.Context, studentID string, updates map[string]interface{}) (models.Student, error)
	Touch(ctx context.Context, studentID string, at time.Time) error
	Delete(ctx context.Context, studentID string) error
	List(ctx context.Context) ([]models.Student, error)
	Count(ctx context.Context) (int64, error)
}

type studentRepository struct {
	db *gorm.DB
}

// NewStudentRepository constructs the student repository.
func NewStudentRepository(db *gorm.DB) StudentRepository {
	return &studentRepository{db: db}
}

func (r *studentRepository) Create(ctx context.Context, student *models.Student) error {
	return r.db.WithContext(ctx).Create(student).Error
}

func (r *studentRepository) GetByStudentID(ctx context.Context, studentID string) (models.Student, error) {
	var student models.Student
	if err := r.db.WithContext(ctx).Where("student_id = ?", studentID).First(&student).Error; err != nil {
		return models.Student{}, err
	}
	return student, nil
}

func (r *studentRepository) ExistsByIDOrEmail(ctx context.Context, studentID, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Student{}).
		Where("student_id = ? OR LOWER(email) = LOWER(?)", studentID, email).
		Count(&count).Error
	return count > 0, err
}

func (r *studentRepository) EmailTaken(ctx context.Context, email, exceptStudentID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Student{}).
		Where("LOWER(email) = LOWER(?)", email).
		Where("student_id <> ?", exceptStudentID).
		Count(&count).Error
	return count > 0, err
}

func (r *studentRepository) Update(ctx context.Context, studentID string, updates map[string]interface{}) (models.Student, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Student{}).
		Where("student_id = ?", studentID).
		Updates(updates)
	if result.Error != nil {
		return models.Student{}, result.Error
	}
	if result.RowsAffected == 0 {
		return models.Student{}, gorm.ErrRecordNotFound
	}

	return r.GetByStudentID(ctx, studentID)
}

// Touch moves last_active_at forward to at. Older timestamps are ignored so the
// column never runs backwards.
func (r *studentRepository) Touch(ctx context.Context, studentID string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Student{}).
		Where("student_id = ?", studentID).
		Where("last_active_at < ?", at).
		Update("last_active_at", at).Error
}

func (r *studentRepository) Delete(ctx context.Context, studentID string) error {
	result := r.db.WithContext(ctx).Where("student_id = ?", studentID).Delete(&models.Student{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *studentRepository) List(ctx context.Context) ([]models.Student, error) {
	var students []models.Student
	if err := r.db.WithContext(ctx).Order("student_id ASC").Find(&students).Error; err != nil {
		return nil, err
	}
	return students, nil
}

func (r *studentRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Student{}).Count(&count).Error
	return count, err
}
