package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/mohammad-safakhou/courserag/models"
	"github.com/mohammad-safakhou/courserag/provider"
)

// Result is one tool execution outcome: the text blob returned to the
// model plus the sources it was grounded in, for UI attribution.
type Result struct {
	Content string
	Sources []models.Source
}

// Tool is a callable capability exposed to the model.
type Tool interface {
	Definition() provider.ToolDefinition
	Execute(ctx context.Context, args json.RawMessage) (Result, error)
}

// ErrToolNotFound indicates the model requested an unregistered capability.
var ErrToolNotFound = fmt.Errorf("tool not found")

type registeredTool struct {
	tool   Tool
	schema *jsonschema.Schema
}

// Registry maps capability names to (schema, handler) pairs. Arguments are
// validated against the declared schema before invocation; an unknown name
// or invalid arguments surface as an error the caller feeds back to the
// model as an error-shaped tool result.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]registeredTool
	order []string
}

func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]registeredTool)}
}

// Register validates and adds a tool. The tool's input schema must compile.
func (r *Registry) Register(t Tool) error {
	def := t.Definition()
	if def.Name == "" {
		return fmt.Errorf("tool definition has no name")
	}
	schema, err := compileSchema(def.Name, def.InputSchema)
	if err != nil {
		return fmt.Errorf("tool %s: %w", def.Name, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[def.Name]; exists {
		return fmt.Errorf("tool %s already registered", def.Name)
	}
	r.tools[def.Name] = registeredTool{tool: t, schema: schema}
	r.order = append(r.order, def.Name)
	return nil
}

// Definitions returns all tool definitions in registration order.
func (r *Registry) Definitions() []provider.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]provider.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.tools[name].tool.Definition())
	}
	return defs
}

// Execute looks up a capability by name, validates arguments against its
// schema and invokes it.
func (r *Registry) Execute(ctx context.Context, name string, args json.RawMessage) (Result, error) {
	r.mu.RLock()
	rt, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}

	if len(args) == 0 {
		args = json.RawMessage("{}")
	}
	var doc interface{}
	if err := json.Unmarshal(args, &doc); err != nil {
		return Result{}, fmt.Errorf("tool %s: arguments are not valid JSON: %w", name, err)
	}
	if err := rt.schema.Validate(doc); err != nil {
		return Result{}, fmt.Errorf("tool %s: invalid arguments: %w", name, err)
	}
	return rt.tool.Execute(ctx, args)
}

func compileSchema(name string, schema map[string]interface{}) (*jsonschema.Schema, error) {
	data, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("marshal input schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	resource := name + "_schema.json"
	if err := compiler.AddResource(resource, bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	compiled, err := compiler.Compile(resource)
	if err != nil {
		return nil, fmt.Errorf("compile input schema: %w", err)
	}
	return compiled, nil
}
