package dto

import "time"

// StudentTotalsResponse reports active/inactive counts. Total always equals
// Active + Inactive.
type StudentTotalsResponse struct {
	Total    int64 `json:"total"`
	Active   int64 `json:"active"`
	Inactive int64 `json:"inactive"`
}

// DepartmentCountsResponse maps department name to student count.
type DepartmentCountsResponse struct {
	Departments map[string]int64 `json:"departments"`
}

// RecentStudentsResponse lists the newest onboarded students.
type RecentStudentsResponse struct {
	Students []StudentResponse `json:"recent_students"`
	Limit    int               `json:"limit"`
}

// ActiveStudentsResponse lists students active inside a trailing window.
type ActiveStudentsResponse struct {
	Students []StudentResponse `json:"active_students"`
	Count    int               `json:"count"`
	Period   string            `json:"period"`
	Since    time.Time         `json:"since"`
}
