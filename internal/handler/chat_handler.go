package handler

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/campus-admin-agent/internal/agent"
	"github.com/noah-isme/campus-admin-agent/internal/dto"
	"github.com/noah-isme/campus-admin-agent/internal/middleware"
	"github.com/noah-isme/campus-admin-agent/internal/utils"
)

const assistantUnavailable = "the assistant could not complete the request, please try again"

// ChatHandler exposes the assistant over REST and a websocket.
type ChatHandler struct {
	runner    *agent.Runner
	memory    agent.Memory
	profile   agent.Profile
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewChatHandler creates a chat handler. The profile serves /chat and the
// websocket; memory keeps their transcripts.
func NewChatHandler(runner *agent.Runner, memory agent.Memory, profile agent.Profile, validator *validator.Validate, logger zerolog.Logger) *ChatHandler {
	return &ChatHandler{
		runner:    runner,
		memory:    memory,
		profile:   profile,
		validator: validator,
		logger:    logger.With().Str("component", "chat_handler").Logger(),
	}
}

// Register binds the REST chat routes. guards run before every assistant turn.
func (h *ChatHandler) Register(router fiber.Router, guards ...fiber.Handler) {
	turn := func(handler fiber.Handler) []fiber.Handler {
		return append(append([]fiber.Handler{}, guards...), handler)
	}

	router.Post("/chat", turn(h.chat)...)
	router.Post("/chat/stream", turn(h.stream)...)
	router.Get("/chat/history", h.history)
	router.Delete("/chat/history", h.clearHistory)
	router.Post("/students", turn(h.specialist(agent.StudentsProfile))...)
	router.Post("/analytics", turn(h.specialist(agent.AnalyticsProfile))...)
	router.Post("/campus_info", turn(h.specialist(agent.CampusInfoProfile))...)
}

// RegisterWebsocket binds the websocket chat route under the provided group.
func (h *ChatHandler) RegisterWebsocket(router fiber.Router) {
	router.Use("/chat", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("request_ctx", requestContext(c))
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	router.Get("/chat", websocket.New(h.handleConnection))
}

func (h *ChatHandler) chat(c *fiber.Ctx) error {
	req, err := h.parseRequest(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	key := agent.SessionKey(resolveUserID(c, req.UserID), req.ThreadID)
	session := agent.NewSession(h.runner, h.memory, h.profile, key, h.logger)
	return h.respond(c, session, req)
}

// stream answers as server-sent events: one delta event per model fragment and
// a closing done or error event. The turn is stored after the stream ends.
func (h *ChatHandler) stream(c *fiber.Ctx) error {
	req, err := h.parseRequest(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	key := agent.SessionKey(resolveUserID(c, req.UserID), req.ThreadID)
	session := agent.NewSession(h.runner, h.memory, h.profile, key, h.logger)
	ctx, cancel := context.WithCancel(requestContext(c))
	logger := requestLogger(h.logger, c)

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer cancel()

		reply, err := session.AskStream(ctx, req.Query, func(_ context.Context, chunk string) error {
			return writeChatEvent(w, "delta", dto.ChatDelta{Delta: chunk})
		})
		if err != nil {
			logger.Error().Err(err).Str("profile", session.Profile().Name).Msg("chat stream failed")
			if writeErr := writeChatEvent(w, "error", utils.APIResponse{Success: false, Message: assistantUnavailable}); writeErr != nil {
				logger.Debug().Err(writeErr).Msg("failed to write chat stream error")
			}
			return
		}

		if err := writeChatEvent(w, "done", dto.ChatResponse{
			Response: reply.Text,
			ThreadID: req.ThreadID,
			Tools:    toolNames(reply),
		}); err != nil {
			logger.Debug().Err(err).Msg("failed to write chat stream completion")
		}
	})

	return nil
}

func writeChatEvent(w *bufio.Writer, event string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return err
	}
	return w.Flush()
}

// specialist answers with a restricted profile and no conversation memory.
func (h *ChatHandler) specialist(profile agent.Profile) fiber.Handler {
	return func(c *fiber.Ctx) error {
		req, err := h.parseRequest(c)
		if err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		}

		session := agent.NewSession(h.runner, nil, profile, "", h.logger)
		return h.respond(c, session, req)
	}
}

func (h *ChatHandler) parseRequest(c *fiber.Ctx) (dto.ChatRequest, error) {
	var req dto.ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return req, errors.New("invalid request body")
	}
	req.Query = sanitizeQuery(req.Query)
	if err := h.validator.Struct(req); err != nil {
		return req, errors.New(validationMessage(err))
	}
	return req, nil
}

func (h *ChatHandler) respond(c *fiber.Ctx, session *agent.Session, req dto.ChatRequest) error {
	reply, err := session.Ask(requestContext(c), req.Query)
	if err != nil {
		if errors.Is(err, agent.ErrEmptyUtterance) {
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		}
		requestLogger(h.logger, c).Error().Err(err).Str("profile", session.Profile().Name).Msg("chat request failed")
		return utils.SendError(c, fiber.StatusBadGateway, assistantUnavailable)
	}

	return utils.SendSuccess(c, "chat response", dto.ChatResponse{
		Response: reply.Text,
		ThreadID: req.ThreadID,
		Tools:    toolNames(reply),
	})
}

func (h *ChatHandler) history(c *fiber.Ctx) error {
	threadID := strings.TrimSpace(c.Query("thread_id"))
	session := h.historySession(c, threadID)

	messages, err := session.History(requestContext(c))
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to load chat history")
		return utils.SendError(c, fiber.StatusServiceUnavailable, "conversation memory unavailable")
	}

	turns := make([]dto.ChatTurn, 0, len(messages))
	for _, message := range messages {
		turns = append(turns, dto.ChatTurn{Role: message.Role, Content: message.Content})
	}

	if threadID == "" {
		threadID = "default"
	}
	return utils.SendSuccess(c, "chat history", dto.ChatHistoryResponse{ThreadID: threadID, Turns: turns})
}

func (h *ChatHandler) clearHistory(c *fiber.Ctx) error {
	session := h.historySession(c, c.Query("thread_id"))
	if err := session.Reset(requestContext(c)); err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to clear chat history")
		return utils.SendError(c, fiber.StatusServiceUnavailable, "conversation memory unavailable")
	}
	return utils.SendSuccess(c, "chat history cleared", nil)
}

func (h *ChatHandler) historySession(c *fiber.Ctx, threadID string) *agent.Session {
	key := agent.SessionKey(resolveUserID(c, c.Query("user_id")), threadID)
	return agent.NewSession(h.runner, h.memory, h.profile, key, h.logger)
}

// handleConnection answers every text frame with one JSON reply frame. A frame
// is either a ChatRequest document or the raw query text.
func (h *ChatHandler) handleConnection(conn *websocket.Conn) {
	userID := websocketUserID(conn)
	threadID := strings.TrimSpace(conn.Query("thread_id"))
	if threadID == "" {
		threadID = uuid.NewString()
	}

	ctx, _ := conn.Locals("request_ctx").(context.Context)
	if ctx == nil {
		ctx = context.Background()
	}
	correlation := middleware.CorrelationIDFromContext(ctx)
	logger := h.logger.With().Str("user_id", userID).Str("thread_id", threadID).Str("correlation_id", correlation).Logger()

	session := agent.NewSession(h.runner, h.memory, h.profile, agent.SessionKey(userID, threadID), h.logger)

	logger.Info().Msg("chat websocket connected")
	defer logger.Info().Msg("chat websocket disconnected")

	for {
		messageType, payload, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		if err := conn.WriteJSON(h.answerFrame(ctx, session, threadID, payload, logger)); err != nil {
			logger.Warn().Err(err).Msg("failed to write websocket reply")
			return
		}
	}
}

func (h *ChatHandler) answerFrame(ctx context.Context, session *agent.Session, threadID string, payload []byte, logger zerolog.Logger) utils.APIResponse {
	req := dto.ChatRequest{Query: string(payload)}
	var framed dto.ChatRequest
	if err := json.Unmarshal(payload, &framed); err == nil && strings.TrimSpace(framed.Query) != "" {
		req.Query = framed.Query
	}
	req.Query = sanitizeQuery(req.Query)
	if err := h.validator.Struct(req); err != nil {
		return utils.APIResponse{Success: false, Message: validationMessage(err)}
	}

	reply, err := session.Ask(ctx, req.Query)
	if err != nil {
		logger.Error().Err(err).Msg("websocket chat turn failed")
		return utils.APIResponse{Success: false, Message: assistantUnavailable}
	}

	return utils.APIResponse{
		Success: true,
		Message: "chat response",
		Data: dto.ChatResponse{
			Response: reply.Text,
			ThreadID: threadID,
			Tools:    toolNames(reply),
		},
	}
}

func toolNames(reply agent.Reply) []string {
	if len(reply.ToolCalls) == 0 {
		return nil
	}
	names := make([]string, 0, len(reply.ToolCalls))
	for _, call := range reply.ToolCalls {
		names = append(names, call.Name)
	}
	return names
}

func websocketUserID(conn *websocket.Conn) string {
	if value := conn.Locals("user_id"); value != nil {
		switch v := value.(type) {
		case string:
			return strings.TrimSpace(v)
		case uint:
			return fmt.Sprintf("%d", v)
		case int:
			return fmt.Sprintf("%d", v)
		}
	}
	return strings.TrimSpace(conn.Query("user_id"))
}
