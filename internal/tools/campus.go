package tools

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/noah-isme/campus-admin-agent/internal/dto"
	"github.com/noah-isme/campus-admin-agent/internal/service"
)

// Services bundles the domain services the campus tools delegate to.
type Services struct {
	Students      service.StudentService
	Analytics     service.AnalyticsService
	FAQ           service.FAQService
	Knowledge     service.KnowledgeService
	Notifications service.NotificationService
}

type retrieveArgs struct {
	Query string `json:"query"`
}

type studentIDArgs struct {
	StudentID string `json:"student_id"`
}

type recentArgs struct {
	Limit *int `json:"limit"`
}

func stringParam(description string) jsonschema.Definition {
	return jsonschema.Definition{Type: jsonschema.String, Description: description}
}

func objectParams(required []string, properties map[string]jsonschema.Definition) jsonschema.Definition {
	return jsonschema.Definition{Type: jsonschema.Object, Properties: properties, Required: required}
}

var studentIDParams = objectParams([]string{"student_id"}, map[string]jsonschema.Definition{
	"student_id": stringParam("Unique student identifier, e.g. S001"),
})

// CampusTools lists every campus tool in registration order.
func CampusTools(svc Services) []Tool {
	return []Tool{
		{
			Name:        "add_student",
			Description: "Add a new student to the database. Fails if the student id or email already exists.",
			Group:       GroupStudentManagement,
			Parameters: objectParams([]string{"name", "student_id", "department", "email"}, map[string]jsonschema.Definition{
				"name":       stringParam("Full name of the student"),
				"student_id": stringParam("Unique student identifier"),
				"department": stringParam("Academic department"),
				"email":      stringParam("Student email address"),
			}),
			Handler: Bind(func(ctx context.Context, args dto.StudentCreateRequest) (interface{}, error) {
				return svc.Students.Add(ctx, args)
			}),
		},
		{
			Name:        "get_student",
			Description: "Get a student's details by student id.",
			Group:       GroupStudentManagement,
			Parameters:  studentIDParams,
			Handler: Bind(func(ctx context.Context, args studentIDArgs) (interface{}, error) {
				return svc.Students.Get(ctx, args.StudentID)
			}),
		},
		{
			Name:        "update_student",
			Description: "Update one field of a student. Valid fields are name, department, email and is_active.",
			Group:       GroupStudentManagement,
			Parameters: objectParams([]string{"student_id", "field", "new_value"}, map[string]jsonschema.Definition{
				"student_id": stringParam("Student to update"),
				"field":      stringParam("Field to change: name, department, email or is_active"),
				"new_value":  stringParam("New value for the field. For is_active use true or false"),
			}),
			Handler: Bind(func(ctx context.Context, args dto.StudentUpdateRequest) (interface{}, error) {
				return svc.Students.Update(ctx, args)
			}),
		},
		{
			Name:        "delete_student",
			Description: "Permanently delete a student by student id.",
			Group:       GroupStudentManagement,
			Parameters:  studentIDParams,
			Handler: Bind(func(ctx context.Context, args studentIDArgs) (interface{}, error) {
				return svc.Students.Delete(ctx, args.StudentID)
			}),
		},
		{
			Name:        "list_students",
			Description: "List all students ordered by student id.",
			Group:       GroupStudentManagement,
			Parameters:  objectParams(nil, map[string]jsonschema.Definition{}),
			Handler: func(ctx context.Context, _ json.RawMessage) (interface{}, error) {
				return svc.Students.List(ctx)
			},
		},
		{
			Name:        "get_total_students",
			Description: "Get the total number of students with active and inactive counts.",
			Group:       GroupCampusAnalytics,
			Parameters:  objectParams(nil, map[string]jsonschema.Definition{}),
			Handler: func(ctx context.Context, _ json.RawMessage) (interface{}, error) {
				return svc.Analytics.TotalStudents(ctx)
			},
		},
		{
			Name:        "get_students_by_department",
			Description: "Get the number of students in each department.",
			Group:       GroupCampusAnalytics,
			Parameters:  objectParams(nil, map[string]jsonschema.Definition{}),
			Handler: func(ctx context.Context, _ json.RawMessage) (interface{}, error) {
				return svc.Analytics.StudentsByDepartment(ctx)
			},
		},
		{
			Name:        "get_recent_onboarded_students",
			Description: "Get the most recently onboarded students, newest first.",
			Group:       GroupCampusAnalytics,
			Parameters: objectParams(nil, map[string]jsonschema.Definition{
				"limit": {Type: jsonschema.Integer, Description: "Number of students to return (default 5, max 50)"},
			}),
			Handler: Bind(func(ctx context.Context, args recentArgs) (interface{}, error) {
				limit := service.DefaultRecentLimit
				if args.Limit != nil {
					limit = *args.Limit
				}
				return svc.Analytics.RecentOnboarded(ctx, limit)
			}),
		},
		{
			Name:        "get_active_students_last_7_days",
			Description: "Get students who were active in the last 7 days.",
			Group:       GroupCampusAnalytics,
			Parameters:  objectParams(nil, map[string]jsonschema.Definition{}),
			Handler: func(ctx context.Context, _ json.RawMessage) (interface{}, error) {
				return svc.Analytics.ActiveLastSevenDays(ctx)
			},
		},
		{
			Name:        "get_cafeteria_timings",
			Description: "Get cafeteria opening hours.",
			Group:       GroupCampusInfo,
			Parameters:  objectParams(nil, map[string]jsonschema.Definition{}),
			Handler: func(ctx context.Context, _ json.RawMessage) (interface{}, error) {
				return svc.FAQ.CafeteriaTimings(ctx), nil
			},
		},
		{
			Name:        "get_library_hours",
			Description: "Get library opening hours.",
			Group:       GroupCampusInfo,
			Parameters:  objectParams(nil, map[string]jsonschema.Definition{}),
			Handler: func(ctx context.Context, _ json.RawMessage) (interface{}, error) {
				return svc.FAQ.LibraryHours(ctx), nil
			},
		},
		{
			Name:        "get_event_schedule",
			Description: "Get the schedule of upcoming campus events.",
			Group:       GroupCampusInfo,
			Parameters:  objectParams(nil, map[string]jsonschema.Definition{}),
			Handler: func(ctx context.Context, _ json.RawMessage) (interface{}, error) {
				return svc.FAQ.EventSchedule(ctx), nil
			},
		},
		{
			Name:        "retrieve_info",
			Description: "Search the campus knowledge base for programs, admissions, facilities and policies. Returns the most relevant passages.",
			Group:       GroupCampusInfo,
			Parameters: objectParams([]string{"query"}, map[string]jsonschema.Definition{
				"query": stringParam("Question or keywords to look up"),
			}),
			Handler: Bind(func(ctx context.Context, args retrieveArgs) (interface{}, error) {
				return svc.Knowledge.Retrieve(ctx, args.Query)
			}),
		},
		{
			Name:        "send_email",
			Description: "Send an email message to a student.",
			Group:       GroupNotifications,
			Parameters: objectParams([]string{"student_id", "message"}, map[string]jsonschema.Definition{
				"student_id": stringParam("Recipient student id"),
				"message":    stringParam("Message body"),
			}),
			Handler: Bind(func(ctx context.Context, args dto.EmailRequest) (interface{}, error) {
				return svc.Notifications.SendEmail(ctx, args)
			}),
		},
	}
}

// NewCampusRegistry registers every campus tool. Tools whose service is nil are
// skipped, so a registry can be built for a subset of the domain.
func NewCampusRegistry(svc Services, logger zerolog.Logger) (*Registry, error) {
	registry := NewRegistry(logger)
	for _, tool := range CampusTools(svc) {
		if !svc.provides(tool) {
			continue
		}
		if err := registry.Register(tool); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

func (s Services) provides(tool Tool) bool {
	if tool.Name == "retrieve_info" {
		return s.Knowledge != nil
	}
	switch tool.Group {
	case GroupStudentManagement:
		return s.Students != nil
	case GroupCampusAnalytics:
		return s.Analytics != nil
	case GroupCampusInfo:
		return s.FAQ != nil
	case GroupNotifications:
		return s.Notifications != nil
	default:
		return false
	}
}
