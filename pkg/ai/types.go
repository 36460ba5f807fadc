package ai

import (
	"context"

	"github.com/sashabaranov/go-openai/jsonschema"
)

// Message roles understood by every provider.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ToolCall is a model request to invoke a named tool with JSON arguments.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Message is one entry of a conversation transcript.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	Name       string     `json:"name,omitempty"`
	IsError    bool       `json:"is_error,omitempty"`
}

// ToolSpec advertises a callable tool to the model.
type ToolSpec struct {
	Name        string
	Description string
	Parameters  jsonschema.Definition
}

// ChatRequest is a single completion round trip.
type ChatRequest struct {
	System   string
	Messages []Message
	Tools    []ToolSpec
}

// Usage reports token consumption for one completion.
type Usage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
}

// ChatResponse is the assistant turn produced by the model. Either Content or
// ToolCalls is set, occasionally both.
type ChatResponse struct {
	Content    string
	ToolCalls  []ToolCall
	StopReason string
	Usage      Usage
}

// Message converts the response into a transcript entry.
func (r ChatResponse) Message() Message {
	return Message{Role: RoleAssistant, Content: r.Content, ToolCalls: r.ToolCalls}
}

// StreamFunc receives text fragments as the model produces them. Returning an
// error aborts the stream.
type StreamFunc func(ctx context.Context, chunk string) error

// ChatModel describes a tool-calling language model.
type ChatModel interface {
	Name() string
	Chat(ctx context.Context, req ChatRequest) (ChatResponse, error)
	// Stream behaves like Chat but hands text fragments to fn as they arrive.
	// The returned response carries the assembled content and tool calls.
	Stream(ctx context.Context, req ChatRequest, fn StreamFunc) (ChatResponse, error)
}

// SchemaDocument renders a definition as a plain JSON Schema document, leaving
// out empty keywords.
func SchemaDocument(definition jsonschema.Definition) map[string]interface{} {
	doc := map[string]interface{}{}
	if definition.Type != "" {
		doc["type"] = string(definition.Type)
	}
	if definition.Description != "" {
		doc["description"] = definition.Description
	}
	if len(definition.Enum) > 0 {
		doc["enum"] = definition.Enum
	}
	if len(definition.Properties) > 0 || definition.Type == jsonschema.Object {
		properties := make(map[string]interface{}, len(definition.Properties))
		for name, property := range definition.Properties {
			properties[name] = SchemaDocument(property)
		}
		doc["properties"] = properties
	}
	if len(definition.Required) > 0 {
		doc["required"] = definition.Required
	}
	if definition.Items != nil {
		doc["items"] = SchemaDocument(*definition.Items)
	}
	if definition.AdditionalProperties != nil {
		doc["additionalProperties"] = definition.AdditionalProperties
	}
	return doc
}
