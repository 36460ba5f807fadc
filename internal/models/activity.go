package models

import (
	"time"

	"gorm.io/datatypes"
)

// Activity actions recorded against a student.
const (
	ActivityCreated  = "created"
	ActivityUpdated  = "updated"
	ActivityDeleted  = "deleted"
	ActivityQueried  = "queried"
	ActivityNotified = "notified"
)

// ActivityLog is an append-only audit entry. StudentID is a weak reference: rows
// outlive the student they describe.
type ActivityLog struct {
	ID        uint              `gorm:"primaryKey" json:"id"`
	StudentID string            `gorm:"size:50;not null;index" json:"student_id"`
	Action    string            `gorm:"size:32;not null" json:"action"`
	Detail    string            `gorm:"type:text" json:"detail"`
	Metadata  datatypes.JSONMap `gorm:"type:json" json:"metadata"`
	Timestamp time.Time         `gorm:"not null;index" json:"timestamp"`
}
