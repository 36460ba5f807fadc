package dto

import (
	"time"

	"github.com/noah-isme/campus-admin-agent/internal/models"
)

// StudentCreateRequest captures the arguments for onboarding a student.
type StudentCreateRequest struct {
	Name       string `json:"name" validate:"required,max=100"`
	StudentID  string `json:"student_id" validate:"required,max=50"`
	Department string `json:"department" validate:"required,max=100"`
	Email      string `json:"email" validate:"required,email,max=100"`
}

// StudentUpdateRequest changes a single mutable attribute.
type StudentUpdateRequest struct {
	StudentID string `json:"student_id" validate:"required"`
	Field     string `json:"field" validate:"required"`
	NewValue  string `json:"new_value"`
}

// StudentResponse serializes a student record.
type StudentResponse struct {
	StudentID    string    `json:"student_id"`
	Name         string    `json:"name"`
	Department   string    `json:"department"`
	Email        string    `json:"email"`
	IsActive     bool      `json:"is_active"`
	OnboardedAt  time.Time `json:"onboarded_at"`
	LastActiveAt time.Time `json:"last_active_at"`
}

// StudentUpdateResponse describes the outcome of a single-field update.
type StudentUpdateResponse struct {
	Student  StudentResponse `json:"student"`
	Field    string          `json:"updated_field"`
	OldValue interface{}     `json:"old_value"`
	NewValue interface{}     `json:"new_value"`
}

// StudentListResponse wraps the full student listing.
type StudentListResponse struct {
	Students   []StudentResponse `json:"students"`
	TotalCount int               `json:"total_count"`
}

// StudentDeleteResponse confirms removal of a student.
type StudentDeleteResponse struct {
	StudentID string `json:"student_id"`
	Name      string `json:"name"`
	Deleted   bool   `json:"deleted"`
}

// NewStudentResponse converts a student model into a DTO.
func NewStudentResponse(student models.Student) StudentResponse {
	return StudentResponse{
		StudentID:    student.StudentID,
		Name:         student.Name,
		Department:   student.Department,
		Email:        student.Email,
		IsActive:     student.IsActive,
		OnboardedAt:  student.OnboardedAt,
		LastActiveAt: student.LastActiveAt,
	}
}

// NewStudentResponses converts a slice of students.
func NewStudentResponses(students []models.Student) []StudentResponse {
	responses := make([]StudentResponse, 0, len(students))
	for _, student := range students {
		responses = append(responses, NewStudentResponse(student))
	}
	return responses
}
