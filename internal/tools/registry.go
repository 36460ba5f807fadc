package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	openaischema "github.com/sashabaranov/go-openai/jsonschema"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/campus-admin-agent/internal/observability"
	"github.com/noah-isme/campus-admin-agent/internal/service"
	"github.com/noah-isme/campus-admin-agent/pkg/ai"
)

// Tool groups.
const (
	GroupStudentManagement = "student_management"
	GroupCampusAnalytics   = "campus_analytics"
	GroupCampusInfo        = "campus_info"
	GroupNotifications     = "notifications"
)

// ErrUnknownTool is reported when the model asks for a tool that is not registered.
var ErrUnknownTool = errors.New("unknown tool")

// Handler executes a tool with its raw JSON arguments.
type Handler func(ctx context.Context, args json.RawMessage) (interface{}, error)

// Tool describes a callable operation exposed to the model.
type Tool struct {
	Name        string
	Description string
	Group       string
	Parameters  openaischema.Definition
	Handler     Handler
}

type registeredTool struct {
	Tool
	schema *jsonschema.Schema
}

// Registry holds the tools available to the agent runtime and executes calls
// against them.
type Registry struct {
	mu     sync.RWMutex
	tools  map[string]registeredTool
	order  []string
	logger zerolog.Logger
	tracer trace.Tracer
}

// NewRegistry constructs an empty registry.
func NewRegistry(logger zerolog.Logger) *Registry {
	return &Registry{
		tools:  make(map[string]registeredTool),
		logger: logger.With().Str("component", "tool_registry").Logger(),
		tracer: otel.Tracer("github.com/noah-isme/campus-admin-agent/internal/tools"),
	}
}

// Register adds a tool. Names must be unique and parameter schemas must compile.
func (r *Registry) Register(tool Tool) error {
	tool.Name = strings.TrimSpace(tool.Name)
	if tool.Name == "" {
		return fmt.Errorf("tool name is required")
	}
	if tool.Handler == nil {
		return fmt.Errorf("tool %s: handler is required", tool.Name)
	}
	if tool.Parameters.Type == "" {
		tool.Parameters.Type = openaischema.Object
	}
	if tool.Parameters.Properties == nil {
		tool.Parameters.Properties = map[string]openaischema.Definition{}
	}

	schema, err := compileSchema(tool.Name, tool.Parameters)
	if err != nil {
		return fmt.Errorf("tool %s: %w", tool.Name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[tool.Name]; exists {
		return fmt.Errorf("tool %s already registered", tool.Name)
	}
	r.tools[tool.Name] = registeredTool{Tool: tool, schema: schema}
	r.order = append(r.order, tool.Name)
	return nil
}

// MustRegister registers every tool and panics on the first failure.
func (r *Registry) MustRegister(tools ...Tool) {
	for _, tool := range tools {
		if err := r.Register(tool); err != nil {
			panic(err)
		}
	}
}

// Tools returns registered tools in registration order, optionally restricted to
// the given groups.
func (r *Registry) Tools(groups ...string) []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	allowed := groupSet(groups)
	out := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		tool := r.tools[name].Tool
		if allowed != nil && !allowed[tool.Group] {
			continue
		}
		out = append(out, tool)
	}
	return out
}

// Lookup returns the named tool.
func (r *Registry) Lookup(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	return tool.Tool, ok
}

// Specs returns the model-facing definitions for the given groups.
func (r *Registry) Specs(groups ...string) []ai.ToolSpec {
	tools := r.Tools(groups...)
	specs := make([]ai.ToolSpec, 0, len(tools))
	for _, tool := range tools {
		specs = append(specs, ai.ToolSpec{
			Name:        tool.Name,
			Description: tool.Description,
			Parameters:  tool.Parameters,
		})
	}
	return specs
}

// Groups lists the distinct groups of the registered tools.
func (r *Registry) Groups() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := map[string]bool{}
	for _, tool := range r.tools {
		seen[tool.Group] = true
	}
	groups := make([]string, 0, len(seen))
	for group := range seen {
		groups = append(groups, group)
	}
	sort.Strings(groups)
	return groups
}

// Call validates the arguments against the tool schema and runs the handler.
// It always returns an envelope; handler errors and panics become failures.
func (r *Registry) Call(ctx context.Context, name string, args json.RawMessage) (result Result) {
	start := time.Now()
	ctx, span := r.tracer.Start(ctx, "tool.call", trace.WithAttributes(attribute.String("tool.name", name)))

	defer func() {
		if recovered := recover(); recovered != nil {
			r.logger.Error().Str("tool", name).Interface("panic", recovered).Msg("tool handler panicked")
			result = Fail(service.CodeInternal, "internal error while running "+name)
		}

		outcome := "ok"
		if !result.Success {
			outcome = result.Code
			span.SetStatus(codes.Error, result.Error)
		}
		span.SetAttributes(attribute.String("tool.outcome", outcome))
		span.End()

		observability.ToolCalls().WithLabelValues(name, outcome).Inc()
		observability.ToolLatency().WithLabelValues(name).Observe(time.Since(start).Seconds())
	}()

	r.mu.RLock()
	tool, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		return Fail(service.CodeValidationError, fmt.Sprintf("%s: %s", ErrUnknownTool, name))
	}

	decoded, err := decodeArguments(args)
	if err != nil {
		return Fail(service.CodeValidationError, err.Error())
	}
	if err := tool.schema.Validate(decoded); err != nil {
		return Fail(service.CodeValidationError, describeSchemaError(err))
	}

	data, err := tool.Handler(ctx, normaliseArguments(args))
	if err != nil {
		code := service.ErrorCode(err)
		if code == service.CodeStorageUnavailable || code == service.CodeInternal {
			r.logger.Error().Err(err).Str("tool", name).Msg("tool call failed")
		} else {
			r.logger.Debug().Err(err).Str("tool", name).Msg("tool call rejected")
		}
		return Fail(code, err.Error())
	}

	r.logger.Debug().Str("tool", name).Dur("elapsed", time.Since(start)).Msg("tool call succeeded")
	return OK(data)
}

// Bind adapts a typed handler. Arguments are decoded into T before fn runs.
func Bind[T any](fn func(ctx context.Context, args T) (interface{}, error)) Handler {
	return func(ctx context.Context, raw json.RawMessage) (interface{}, error) {
		var args T
		if err := json.Unmarshal(normaliseArguments(raw), &args); err != nil {
			return nil, fmt.Errorf("%w: %s", service.ErrValidation, err.Error())
		}
		return fn(ctx, args)
	}
}

func compileSchema(name string, definition openaischema.Definition) (*jsonschema.Schema, error) {
	raw, err := json.Marshal(ai.SchemaDocument(definition))
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}

	url := "tool://" + name + ".json"
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(url, bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}
	return compiler.Compile(url)
}

func normaliseArguments(raw json.RawMessage) json.RawMessage {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return json.RawMessage("{}")
	}
	return trimmed
}

func decodeArguments(raw json.RawMessage) (interface{}, error) {
	var decoded interface{}
	if err := json.Unmarshal(normaliseArguments(raw), &decoded); err != nil {
		return nil, fmt.Errorf("%w: arguments must be a JSON object", service.ErrValidation)
	}
	return decoded, nil
}

func describeSchemaError(err error) string {
	var validationErr *jsonschema.ValidationError
	if !errors.As(err, &validationErr) {
		return fmt.Sprintf("%s: %s", service.ErrValidation, err.Error())
	}

	leaves := validationErr.BasicOutput().Errors
	messages := make([]string, 0, len(leaves))
	for _, leaf := range leaves {
		if leaf.Error == "" || strings.HasPrefix(leaf.Error, "doesn't validate with") {
			continue
		}
		location := strings.TrimPrefix(leaf.InstanceLocation, "/")
		if location == "" {
			messages = append(messages, leaf.Error)
			continue
		}
		messages = append(messages, location+": "+leaf.Error)
	}
	if len(messages) == 0 {
		messages = append(messages, validationErr.Message)
	}
	return fmt.Sprintf("%s: %s", service.ErrValidation, strings.Join(messages, "; "))
}

func groupSet(groups []string) map[string]bool {
	if len(groups) == 0 {
		return nil
	}
	set := make(map[string]bool, len(groups))
	for _, group := range groups {
		set[group] = true
	}
	return set
}
