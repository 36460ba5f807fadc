package service

import (
	"context"

	"github.com/noah-isme/campus-admin-agent/internal/dto"
)

// FAQService answers static campus questions.
type FAQService interface {
	CafeteriaTimings(ctx context.Context) dto.CafeteriaTimings
	LibraryHours(ctx context.Context) dto.LibraryHours
	EventSchedule(ctx context.Context) dto.EventScheduleResponse
}

type faqService struct{}

// NewFAQService constructs the FAQ service.
func NewFAQService() FAQService {
	return faqService{}
}

func (faqService) CafeteriaTimings(context.Context) dto.CafeteriaTimings {
	return dto.CafeteriaTimings{
		Breakfast:    "7:00 AM - 10:00 AM",
		Lunch:        "11:30 AM - 2:30 PM",
		Dinner:       "6:00 PM - 9:00 PM",
		WeekendHours: "10:00 AM - 8:00 PM",
	}
}

func (faqService) LibraryHours(context.Context) dto.LibraryHours {
	return dto.LibraryHours{
		MondayFriday: "8:00 AM - 10:00 PM",
		Saturday:     "9:00 AM - 8:00 PM",
		Sunday:       "10:00 AM - 6:00 PM",
		StudyRooms:   "24/7 access with student ID",
	}
}

func (faqService) EventSchedule(context.Context) dto.EventScheduleResponse {
	return dto.EventScheduleResponse{Events: []dto.CampusEvent{
		{Title: "Career Fair", Date: "2026-11-12", Time: "10:00 AM - 4:00 PM", Location: "Main Auditorium"},
		{Title: "Tech Talk: AI in Education", Date: "2026-11-18", Time: "2:00 PM - 3:30 PM", Location: "Computer Science Building"},
		{Title: "Cultural Festival", Date: "2026-11-25", Time: "5:00 PM - 9:00 PM", Location: "Campus Grounds"},
	}}
}
