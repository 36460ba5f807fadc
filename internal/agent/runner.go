package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/campus-admin-agent/internal/observability"
	"github.com/noah-isme/campus-admin-agent/internal/service"
	"github.com/noah-isme/campus-admin-agent/internal/tools"
	"github.com/noah-isme/campus-admin-agent/pkg/ai"
)

// DefaultMaxSteps bounds the model round trips of a single turn.
const DefaultMaxSteps = 8

// ErrMaxSteps is returned when the model keeps calling tools without answering.
var ErrMaxSteps = errors.New("agent exceeded the maximum number of steps")

// ToolInvocation records one tool call executed during a turn.
type ToolInvocation struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Arguments string       `json:"arguments"`
	Result    tools.Result `json:"result"`
}

// Reply is the outcome of a turn.
type Reply struct {
	Text      string           `json:"text"`
	Steps     int              `json:"steps"`
	ToolCalls []ToolInvocation `json:"tool_calls,omitempty"`
}

// Runner drives the model/tool loop for a single user turn.
type Runner struct {
	model    ai.ChatModel
	registry *tools.Registry
	maxSteps int
	logger   zerolog.Logger
	tracer   trace.Tracer
}

// NewRunner constructs a runner. maxSteps <= 0 selects DefaultMaxSteps.
func NewRunner(model ai.ChatModel, registry *tools.Registry, maxSteps int, logger zerolog.Logger) *Runner {
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}
	return &Runner{
		model:    model,
		registry: registry,
		maxSteps: maxSteps,
		logger:   logger.With().Str("component", "agent_runner").Logger(),
		tracer:   otel.Tracer("github.com/noah-isme/campus-admin-agent/internal/agent"),
	}
}

// Registry exposes the tool registry the runner executes against.
func (r *Runner) Registry() *tools.Registry {
	return r.registry
}

// Run answers input given the prior transcript. Tool calls requested by the
// model are executed through the registry and fed back until the model replies
// with text.
func (r *Runner) Run(ctx context.Context, profile Profile, history []ai.Message, input string) (Reply, error) {
	return r.run(ctx, profile, history, input, nil)
}

// RunStream is Run with model output forwarded to fn while each step is
// generated. Text the model writes before calling a tool is forwarded too.
func (r *Runner) RunStream(ctx context.Context, profile Profile, history []ai.Message, input string, fn ai.StreamFunc) (Reply, error) {
	return r.run(ctx, profile, history, input, fn)
}

func (r *Runner) run(ctx context.Context, profile Profile, history []ai.Message, input string, fn ai.StreamFunc) (Reply, error) {
	ctx, span := r.tracer.Start(ctx, "agent.run", trace.WithAttributes(
		attribute.Bool("agent.stream", fn != nil),
		attribute.String("agent.profile", profile.Name),
		attribute.String("agent.model", r.model.Name()),
	))
	defer span.End()

	specs := r.registry.Specs(profile.Groups...)
	allowed := make(map[string]bool, len(specs))
	for _, spec := range specs {
		allowed[spec.Name] = true
	}

	messages := make([]ai.Message, 0, len(history)+1)
	messages = append(messages, history...)
	messages = append(messages, ai.Message{Role: ai.RoleUser, Content: input})

	var reply Reply
	for step := 1; step <= r.maxSteps; step++ {
		reply.Steps = step
		req := ai.ChatRequest{
			System:   profile.SystemPrompt,
			Messages: messages,
			Tools:    specs,
		}
		var (
			resp ai.ChatResponse
			err  error
		)
		if fn != nil {
			resp, err = r.model.Stream(ctx, req, fn)
		} else {
			resp, err = r.model.Chat(ctx, req)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "model_failed")
			r.finish(profile, "model_error", step)
			return reply, fmt.Errorf("model chat: %w", err)
		}

		if len(resp.ToolCalls) == 0 {
			reply.Text = strings.TrimSpace(resp.Content)
			r.finish(profile, "answered", step)
			return reply, nil
		}

		messages = append(messages, resp.Message())
		for _, call := range resp.ToolCalls {
			result := r.execute(ctx, allowed, call)
			reply.ToolCalls = append(reply.ToolCalls, ToolInvocation{
				ID:        call.ID,
				Name:      call.Name,
				Arguments: call.Arguments,
				Result:    result,
			})
			messages = append(messages, ai.Message{
				Role:       ai.RoleTool,
				ToolCallID: call.ID,
				Name:       call.Name,
				Content:    result.JSON(),
				IsError:    !result.Success,
			})
		}
	}

	span.SetStatus(codes.Error, "max_steps")
	r.finish(profile, "max_steps", r.maxSteps)
	return reply, ErrMaxSteps
}

func (r *Runner) execute(ctx context.Context, allowed map[string]bool, call ai.ToolCall) tools.Result {
	if !allowed[call.Name] {
		r.logger.Warn().Str("tool", call.Name).Msg("model requested a tool outside its profile")
		return tools.Fail(service.CodeValidationError, fmt.Sprintf("tool %s is not available", call.Name))
	}

	result := r.registry.Call(ctx, call.Name, []byte(call.Arguments))
	r.logger.Debug().
		Str("tool", call.Name).
		Bool("success", result.Success).
		Str("code", result.Code).
		Msg("tool executed")
	return result
}

func (r *Runner) finish(profile Profile, outcome string, steps int) {
	observability.AgentTurns().WithLabelValues(profile.Name, outcome).Inc()
	observability.AgentSteps().WithLabelValues(profile.Name).Observe(float64(steps))
}
