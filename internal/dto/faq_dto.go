package dto

// CafeteriaTimings lists cafeteria opening hours.
type CafeteriaTimings struct {
	Breakfast    string `json:"breakfast"`
	Lunch        string `json:"lunch"`
	Dinner       string `json:"dinner"`
	WeekendHours string `json:"weekend_hours"`
}

// LibraryHours lists library opening hours.
type LibraryHours struct {
	MondayFriday string `json:"monday_friday"`
	Saturday     string `json:"saturday"`
	Sunday       string `json:"sunday"`
	StudyRooms   string `json:"study_rooms"`
}

// CampusEvent is an upcoming campus event.
type CampusEvent struct {
	Title    string `json:"title"`
	Date     string `json:"date"`
	Time     string `json:"time"`
	Location string `json:"location"`
}

// EventScheduleResponse wraps the upcoming events list.
type EventScheduleResponse struct {
	Events []CampusEvent `json:"upcoming_events"`
}

// KnowledgeResponse carries passages retrieved from the campus knowledge file.
// Context joins the best passages with blank lines.
type KnowledgeResponse struct {
	Query   string `json:"query"`
	Found   bool   `json:"found"`
	Context string `json:"context"`
	Ranking string `json:"ranking"`
}
