package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/campus-admin-agent/internal/dto"
	"github.com/noah-isme/campus-admin-agent/internal/service"
	"github.com/noah-isme/campus-admin-agent/internal/utils"
)

// ActivityHandler exposes the student audit trail.
type ActivityHandler struct {
	service service.ActivityService
	logger  zerolog.Logger
}

// NewActivityHandler constructs an ActivityHandler.
func NewActivityHandler(service service.ActivityService, logger zerolog.Logger) *ActivityHandler {
	return &ActivityHandler{
		service: service,
		logger:  logger.With().Str("component", "activity_handler").Logger(),
	}
}

// Register binds the audit trail routes.
func (h *ActivityHandler) Register(router fiber.Router, guards ...fiber.Handler) {
	handlers := append(append([]fiber.Handler{}, guards...), h.list)
	router.Get("/students/:student_id/activity", handlers...)
}

func (h *ActivityHandler) list(c *fiber.Ctx) error {
	limit, err := parseQueryInt(c, "limit")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid limit")
	}

	entries, err := h.service.List(requestContext(c), dto.ActivityListRequest{
		StudentID: strings.TrimSpace(c.Params("student_id")),
		Action:    c.Query("action"),
		Limit:     limit,
	})
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to list activity")
		return utils.SendServiceError(c, err)
	}

	return utils.SendSuccess(c, "activity retrieved", entries)
}
