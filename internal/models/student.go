package models

import "time"

// Student is a campus student record managed by the admin assistant.
type Student struct {
	StudentID    string    `gorm:"primaryKey;size:50" json:"student_id"`
	Name         string    `gorm:"size:100;not null" json:"name"`
	Department   string    `gorm:"size:100;not null;index" json:"department"`
	Email        string    `gorm:"size:100;uniqueIndex;not null" json:"email"`
	IsActive     bool      `gorm:"not null;default:true" json:"is_active"`
	OnboardedAt  time.Time `gorm:"not null;index" json:"onboarded_at"`
	LastActiveAt time.Time `gorm:"not null;index" json:"last_active_at"`
}
