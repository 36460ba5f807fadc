package dto

import (
	"time"

	"github.com/noah-isme/campus-admin-agent/internal/models"
)

// ActivityResponse serializes an audit trail entry.
type ActivityResponse struct {
	ID        uint                   `json:"id"`
	StudentID string                 `json:"student_id"`
	Action    string                 `json:"action"`
	Detail    string                 `json:"detail"`
	Metadata  map[string]interface{} `json:"metadata"`
	Timestamp time.Time              `json:"timestamp"`
}

// ActivityListRequest narrows an audit trail listing.
type ActivityListRequest struct {
	StudentID string
	Action    string
	Limit     int
}

// ActivityEvent is broadcast after a student mutation has been committed.
type ActivityEvent struct {
	Source   string           `json:"source"`
	Activity ActivityResponse `json:"activity"`
	SentAt   time.Time        `json:"sent_at"`
}

// NewActivityResponse converts a model into an activity DTO.
func NewActivityResponse(entry models.ActivityLog) ActivityResponse {
	metadata := map[string]interface{}{}
	for key, value := range entry.Metadata {
		metadata[key] = value
	}
	return ActivityResponse{
		ID:        entry.ID,
		StudentID: entry.StudentID,
		Action:    entry.Action,
		Detail:    entry.Detail,
		Metadata:  metadata,
		Timestamp: entry.Timestamp,
	}
}
