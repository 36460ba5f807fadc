package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// AnthropicConfig defines configuration options for Claude models.
type AnthropicConfig struct {
	APIKey    string
	Model     string
	BaseURL   string
	MaxTokens int
	Logger    zerolog.Logger
}

// AnthropicModel implements ChatModel against the Anthropic messages API.
type AnthropicModel struct {
	client anthropic.Client
	cfg    AnthropicConfig
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewAnthropicModel constructs a Claude backed model.
func NewAnthropicModel(cfg AnthropicConfig) (*AnthropicModel, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "claude-3-5-haiku-latest"
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 1024
	}

	logger := cfg.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = zerolog.Nop()
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(2),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &AnthropicModel{
		client: anthropic.NewClient(opts...),
		cfg:    cfg,
		tracer: otel.Tracer("github.com/noah-isme/campus-admin-agent/pkg/ai/anthropic"),
		logger: logger.With().Str("component", "ai_anthropic").Logger(),
	}, nil
}

// Name returns the configured model identifier.
func (m *AnthropicModel) Name() string {
	return m.cfg.Model
}

// Chat sends the transcript and tool list to Claude.
func (m *AnthropicModel) Chat(parent context.Context, req ChatRequest) (ChatResponse, error) {
	ctx, span := m.tracer.Start(parent, "anthropic.chat", trace.WithAttributes(
		attribute.String("model", m.cfg.Model),
		attribute.Int("messages", len(req.Messages)),
		attribute.Int("tools", len(req.Tools)),
	))
	defer span.End()

	start := time.Now()
	params, err := m.params(req)
	if err != nil {
		fail(span, "anthropic", m.cfg.Model, start, err)
		return ChatResponse{}, err
	}

	resp, err := m.client.Messages.New(ctx, params)
	if err != nil {
		fail(span, "anthropic", m.cfg.Model, start, err)
		return ChatResponse{}, fmt.Errorf("anthropic chat: %w", err)
	}

	result := ChatResponse{
		StopReason: string(resp.StopReason),
		Usage: Usage{
			InputTokens:  resp.Usage.InputTokens,
			OutputTokens: resp.Usage.OutputTokens,
		},
	}
	for _, block := range resp.Content {
		switch content := block.AsAny().(type) {
		case anthropic.TextBlock:
			result.Content += content.Text
		case anthropic.ToolUseBlock:
			args, err := json.Marshal(content.Input)
			if err != nil {
				fail(span, "anthropic", m.cfg.Model, start, err)
				return ChatResponse{}, fmt.Errorf("anthropic tool arguments: %w", err)
			}
			result.ToolCalls = append(result.ToolCalls, ToolCall{ID: content.ID, Name: content.Name, Arguments: string(args)})
		}
	}
	if result.Content == "" && len(result.ToolCalls) == 0 {
		fail(span, "anthropic", m.cfg.Model, start, ErrEmptyResponse)
		return ChatResponse{}, ErrEmptyResponse
	}

	observe("anthropic", m.cfg.Model, start, result.Usage)
	m.logger.Debug().
		Int("tool_calls", len(result.ToolCalls)).
		Str("stop_reason", result.StopReason).
		Msg("message received")

	return result, nil
}

// Stream sends the transcript through the streaming messages API. Text deltas
// are forwarded to fn and tool input JSON is collected per content block.
func (m *AnthropicModel) Stream(parent context.Context, req ChatRequest, fn StreamFunc) (ChatResponse, error) {
	ctx, span := m.tracer.Start(parent, "anthropic.stream", trace.WithAttributes(
		attribute.String("model", m.cfg.Model),
		attribute.Int("messages", len(req.Messages)),
		attribute.Int("tools", len(req.Tools)),
	))
	defer span.End()

	start := time.Now()
	params, err := m.params(req)
	if err != nil {
		fail(span, "anthropic", m.cfg.Model, start, err)
		return ChatResponse{}, err
	}

	stream := m.client.Messages.NewStreaming(ctx, params)
	defer stream.Close()

	var (
		result  ChatResponse
		content strings.Builder
		inputs  = map[int64]*strings.Builder{}
		blocks  = map[int64]int{}
	)
	for stream.Next() {
		switch evt := stream.Current().AsAny().(type) {
		case anthropic.MessageStartEvent:
			result.Usage.InputTokens = evt.Message.Usage.InputTokens
		case anthropic.ContentBlockStartEvent:
			if block, ok := evt.ContentBlock.AsAny().(anthropic.ToolUseBlock); ok {
				blocks[evt.Index] = len(result.ToolCalls)
				inputs[evt.Index] = &strings.Builder{}
				result.ToolCalls = append(result.ToolCalls, ToolCall{ID: block.ID, Name: block.Name})
			}
		case anthropic.ContentBlockDeltaEvent:
			switch delta := evt.Delta.AsAny().(type) {
			case anthropic.TextDelta:
				content.WriteString(delta.Text)
				if fn != nil && delta.Text != "" {
					if err := fn(ctx, delta.Text); err != nil {
						fail(span, "anthropic", m.cfg.Model, start, err)
						return ChatResponse{}, err
					}
				}
			case anthropic.InputJSONDelta:
				if input, ok := inputs[evt.Index]; ok {
					input.WriteString(delta.PartialJSON)
				}
			}
		case anthropic.MessageDeltaEvent:
			result.StopReason = string(evt.Delta.StopReason)
			result.Usage.OutputTokens = evt.Usage.OutputTokens
		}
	}
	if err := stream.Err(); err != nil {
		fail(span, "anthropic", m.cfg.Model, start, err)
		return ChatResponse{}, fmt.Errorf("anthropic stream: %w", err)
	}

	for index, slot := range blocks {
		args := inputs[index].String()
		if args == "" {
			args = "{}"
		}
		result.ToolCalls[slot].Arguments = args
	}
	result.Content = content.String()
	if result.Content == "" && len(result.ToolCalls) == 0 {
		fail(span, "anthropic", m.cfg.Model, start, ErrEmptyResponse)
		return ChatResponse{}, ErrEmptyResponse
	}

	observe("anthropic", m.cfg.Model, start, result.Usage)
	m.logger.Debug().
		Int("tool_calls", len(result.ToolCalls)).
		Str("stop_reason", result.StopReason).
		Msg("message stream completed")

	return result, nil
}

func (m *AnthropicModel) params(req ChatRequest) (anthropic.MessageNewParams, error) {
	messages, err := toAnthropicMessages(req.Messages)
	if err != nil {
		return anthropic.MessageNewParams{}, err
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(m.cfg.Model),
		Messages:  messages,
		MaxTokens: int64(m.cfg.MaxTokens),
		Tools:     toAnthropicTools(req.Tools),
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Type: "text", Text: req.System}}
	}
	return params, nil
}

// toAnthropicMessages converts the transcript. Consecutive tool results are
// folded into a single user turn as the messages API requires.
func toAnthropicMessages(messages []Message) ([]anthropic.MessageParam, error) {
	out := make([]anthropic.MessageParam, 0, len(messages))
	var pending []anthropic.ContentBlockParamUnion

	flush := func() {
		if len(pending) > 0 {
			out = append(out, anthropic.NewUserMessage(pending...))
			pending = nil
		}
	}

	for _, msg := range messages {
		switch msg.Role {
		case RoleTool:
			pending = append(pending, anthropic.NewToolResultBlock(msg.ToolCallID, msg.Content, msg.IsError))
		case RoleAssistant:
			flush()
			var blocks []anthropic.ContentBlockParamUnion
			if msg.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(msg.Content))
			}
			for _, call := range msg.ToolCalls {
				args := call.Arguments
				if args == "" {
					args = "{}"
				}
				var input json.RawMessage
				if err := json.Unmarshal([]byte(args), &input); err != nil {
					return nil, fmt.Errorf("anthropic: tool call %s arguments: %w", call.Name, err)
				}
				blocks = append(blocks, anthropic.NewToolUseBlock(call.ID, input, call.Name))
			}
			if len(blocks) > 0 {
				out = append(out, anthropic.NewAssistantMessage(blocks...))
			}
		default:
			flush()
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		}
	}
	flush()
	return out, nil
}

func toAnthropicTools(specs []ToolSpec) []anthropic.ToolUnionParam {
	if len(specs) == 0 {
		return nil
	}
	tools := make([]anthropic.ToolUnionParam, 0, len(specs))
	for _, spec := range specs {
		properties := map[string]any{}
		for name, def := range spec.Parameters.Properties {
			properties[name] = SchemaDocument(def)
		}
		tools = append(tools, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        spec.Name,
				Description: anthropic.String(spec.Description),
				InputSchema: anthropic.ToolInputSchemaParam{
					Type:       "object",
					Properties: properties,
					Required:   spec.Parameters.Required,
				},
			},
		})
	}
	return tools
}
