package ai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// GeminiBaseURL is Google's OpenAI-compatible endpoint.
const GeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"

// ErrEmptyResponse is returned when a provider answers without any choice.
var ErrEmptyResponse = errors.New("ai: empty response from model")

// OpenAIConfig defines configuration options for OpenAI compatible models.
type OpenAIConfig struct {
	APIKey      string
	Model       string
	BaseURL     string
	Provider    string
	MaxTokens   int
	Temperature float32
	Logger      zerolog.Logger
}

// OpenAIModel implements ChatModel against the OpenAI chat completion API.
// Gemini is served through the same client by pointing BaseURL at GeminiBaseURL.
type OpenAIModel struct {
	client *openai.Client
	cfg    OpenAIConfig
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewOpenAIModel builds a new model client using the provided configuration.
func NewOpenAIModel(cfg OpenAIConfig) (*OpenAIModel, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 1024
	}
	if cfg.Provider == "" {
		cfg.Provider = "openai"
	}

	logger := cfg.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = zerolog.Nop()
	}

	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}

	return &OpenAIModel{
		client: openai.NewClientWithConfig(config),
		cfg:    cfg,
		tracer: otel.Tracer("github.com/noah-isme/campus-admin-agent/pkg/ai/openai"),
		logger: logger.With().Str("component", "ai_"+cfg.Provider).Logger(),
	}, nil
}

// Name returns the configured model identifier.
func (m *OpenAIModel) Name() string {
	return m.cfg.Model
}

// Chat sends the transcript and tool list to the model.
func (m *OpenAIModel) Chat(parent context.Context, req ChatRequest) (ChatResponse, error) {
	ctx, span := m.tracer.Start(parent, m.cfg.Provider+".chat", trace.WithAttributes(
		attribute.String("model", m.cfg.Model),
		attribute.Int("messages", len(req.Messages)),
		attribute.Int("tools", len(req.Tools)),
	))
	defer span.End()

	start := time.Now()
	resp, err := m.client.CreateChatCompletion(ctx, m.request(req))
	if err != nil {
		fail(span, m.cfg.Provider, m.cfg.Model, start, err)
		return ChatResponse{}, fmt.Errorf("%s chat: %w", m.cfg.Provider, err)
	}
	if len(resp.Choices) == 0 {
		fail(span, m.cfg.Provider, m.cfg.Model, start, ErrEmptyResponse)
		return ChatResponse{}, ErrEmptyResponse
	}

	choice := resp.Choices[0]
	result := ChatResponse{
		Content:    choice.Message.Content,
		StopReason: string(choice.FinishReason),
		Usage: Usage{
			InputTokens:  int64(resp.Usage.PromptTokens),
			OutputTokens: int64(resp.Usage.CompletionTokens),
		},
	}
	for _, call := range choice.Message.ToolCalls {
		result.ToolCalls = append(result.ToolCalls, ToolCall{
			ID:        call.ID,
			Name:      call.Function.Name,
			Arguments: call.Function.Arguments,
		})
	}

	observe(m.cfg.Provider, m.cfg.Model, start, result.Usage)
	m.logger.Debug().
		Int("tool_calls", len(result.ToolCalls)).
		Str("finish_reason", result.StopReason).
		Msg("chat completion received")

	return result, nil
}

// Stream sends the transcript with streaming enabled. Tool call fragments are
// reassembled by their index before the response is returned.
func (m *OpenAIModel) Stream(parent context.Context, req ChatRequest, fn StreamFunc) (ChatResponse, error) {
	ctx, span := m.tracer.Start(parent, m.cfg.Provider+".stream", trace.WithAttributes(
		attribute.String("model", m.cfg.Model),
		attribute.Int("messages", len(req.Messages)),
		attribute.Int("tools", len(req.Tools)),
	))
	defer span.End()

	start := time.Now()
	request := m.request(req)
	request.Stream = true
	request.StreamOptions = &openai.StreamOptions{IncludeUsage: true}

	stream, err := m.client.CreateChatCompletionStream(ctx, request)
	if err != nil {
		fail(span, m.cfg.Provider, m.cfg.Model, start, err)
		return ChatResponse{}, fmt.Errorf("%s stream: %w", m.cfg.Provider, err)
	}
	defer stream.Close()

	var (
		result  ChatResponse
		content strings.Builder
		calls   []ToolCall
		slots   = map[int]int{}
	)
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			fail(span, m.cfg.Provider, m.cfg.Model, start, err)
			return ChatResponse{}, fmt.Errorf("%s stream: %w", m.cfg.Provider, err)
		}
		if chunk.Usage != nil {
			result.Usage = Usage{
				InputTokens:  int64(chunk.Usage.PromptTokens),
				OutputTokens: int64(chunk.Usage.CompletionTokens),
			}
		}
		if len(chunk.Choices) == 0 {
			continue
		}

		choice := chunk.Choices[0]
		if choice.FinishReason != "" {
			result.StopReason = string(choice.FinishReason)
		}
		if text := choice.Delta.Content; text != "" {
			content.WriteString(text)
			if fn != nil {
				if err := fn(ctx, text); err != nil {
					fail(span, m.cfg.Provider, m.cfg.Model, start, err)
					return ChatResponse{}, err
				}
			}
		}
		for pos, fragment := range choice.Delta.ToolCalls {
			index := pos
			if fragment.Index != nil {
				index = *fragment.Index
			}
			slot, ok := slots[index]
			if !ok {
				slot = len(calls)
				slots[index] = slot
				calls = append(calls, ToolCall{})
			}
			if fragment.ID != "" {
				calls[slot].ID = fragment.ID
			}
			if fragment.Function.Name != "" {
				calls[slot].Name = fragment.Function.Name
			}
			calls[slot].Arguments += fragment.Function.Arguments
		}
	}

	result.Content = content.String()
	result.ToolCalls = calls
	if result.Content == "" && len(result.ToolCalls) == 0 {
		fail(span, m.cfg.Provider, m.cfg.Model, start, ErrEmptyResponse)
		return ChatResponse{}, ErrEmptyResponse
	}

	observe(m.cfg.Provider, m.cfg.Model, start, result.Usage)
	m.logger.Debug().
		Int("tool_calls", len(result.ToolCalls)).
		Str("finish_reason", result.StopReason).
		Msg("chat stream completed")

	return result, nil
}

func (m *OpenAIModel) request(req ChatRequest) openai.ChatCompletionRequest {
	return openai.ChatCompletionRequest{
		Model:       m.cfg.Model,
		MaxTokens:   m.cfg.MaxTokens,
		Temperature: m.cfg.Temperature,
		Messages:    toOpenAIMessages(req.System, req.Messages),
		Tools:       toOpenAITools(req.Tools),
	}
}

func toOpenAIMessages(system string, messages []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages)+1)
	if system != "" {
		out = append(out, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	}

	for _, msg := range messages {
		switch msg.Role {
		case RoleAssistant:
			converted := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: msg.Content}
			for _, call := range msg.ToolCalls {
				converted.ToolCalls = append(converted.ToolCalls, openai.ToolCall{
					ID:   call.ID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      call.Name,
						Arguments: call.Arguments,
					},
				})
			}
			out = append(out, converted)
		case RoleTool:
			out = append(out, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    msg.Content,
				Name:       msg.Name,
				ToolCallID: msg.ToolCallID,
			})
		default:
			out = append(out, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: msg.Content})
		}
	}
	return out
}

func toOpenAITools(specs []ToolSpec) []openai.Tool {
	if len(specs) == 0 {
		return nil
	}
	tools := make([]openai.Tool, 0, len(specs))
	for _, spec := range specs {
		tools = append(tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        spec.Name,
				Description: spec.Description,
				Parameters:  SchemaDocument(spec.Parameters),
			},
		})
	}
	return tools
}
