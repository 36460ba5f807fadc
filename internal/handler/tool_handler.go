package handler

import (
	"encoding/json"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/campus-admin-agent/internal/dto"
	"github.com/noah-isme/campus-admin-agent/internal/service"
	"github.com/noah-isme/campus-admin-agent/internal/tools"
	"github.com/noah-isme/campus-admin-agent/internal/utils"
	"github.com/noah-isme/campus-admin-agent/pkg/ai"
)

// ToolHandler lists the registered tools and invokes them directly.
type ToolHandler struct {
	registry *tools.Registry
	logger   zerolog.Logger
}

// NewToolHandler constructs a ToolHandler.
func NewToolHandler(registry *tools.Registry, logger zerolog.Logger) *ToolHandler {
	return &ToolHandler{
		registry: registry,
		logger:   logger.With().Str("component", "tool_handler").Logger(),
	}
}

// Register binds the listing route. Invoke is bound separately so it can sit
// behind a role guard.
func (h *ToolHandler) Register(router fiber.Router) {
	router.Get("/tools", h.list)
}

func (h *ToolHandler) list(c *fiber.Ctx) error {
	var groups []string
	if group := strings.TrimSpace(c.Query("group")); group != "" {
		groups = append(groups, group)
	}

	registered := h.registry.Tools(groups...)
	descriptors := make([]dto.ToolDescriptor, 0, len(registered))
	for _, tool := range registered {
		descriptors = append(descriptors, dto.ToolDescriptor{
			Name:        tool.Name,
			Description: tool.Description,
			Group:       tool.Group,
			Parameters:  ai.SchemaDocument(tool.Parameters),
		})
	}
	return utils.SendSuccess(c, "tools retrieved", descriptors)
}

// Invoke runs a tool with the request body as its arguments and responds with
// the tool's result envelope.
func (h *ToolHandler) Invoke(c *fiber.Ctx) error {
	name := strings.TrimSpace(c.Params("name"))
	if _, ok := h.registry.Lookup(name); !ok {
		return c.Status(fiber.StatusNotFound).JSON(tools.Fail(service.CodeNotFound, "unknown tool: "+name))
	}

	body := c.Body()
	args := make(json.RawMessage, len(body))
	copy(args, body)

	result := h.registry.Call(requestContext(c), name, args)
	if !result.Success {
		requestLogger(h.logger, c).Debug().Str("tool", name).Str("code", result.Code).Msg("direct tool call failed")
	}
	return c.Status(utils.StatusForCode(result.Code)).JSON(result)
}
