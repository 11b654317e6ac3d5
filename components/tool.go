package components

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"slices"

	"github.com/invopop/jsonschema"

	"github.com/strawgate/mcp-compose/mcp"
)

// ToolHandler executes a tool call against already-decoded arguments.
type ToolHandler func(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error)

// Tool is an invocable component. The descriptor fields describe it on the
// wire; Handler runs it.
type Tool struct {
	Metadata
	InputSchema  mcp.ToolInputSchema
	OutputSchema *mcp.ToolOutputSchema
	Annotations  *mcp.ToolAnnotations
	Handler      ToolHandler
}

func (t *Tool) ComponentKind() Kind { return KindTool }
func (t *Tool) Identifier() string  { return t.Name }

// Key returns the canonical "tool:name@version" key.
func (t *Tool) Key() string { return MakeKey(KindTool, t.Name, t.Version) }

// Clone deep-copies the tool so a transform can rewrite one request's view
// without touching the registered value. The handler is shared.
func (t *Tool) Clone() *Tool {
	out := *t
	out.Metadata = t.Metadata.cloneMetadata()
	out.InputSchema.Properties = maps.Clone(t.InputSchema.Properties)
	out.InputSchema.Required = slices.Clone(t.InputSchema.Required)
	if t.OutputSchema != nil {
		os := *t.OutputSchema
		os.Properties = maps.Clone(t.OutputSchema.Properties)
		os.Required = slices.Clone(t.OutputSchema.Required)
		out.OutputSchema = &os
	}
	if t.Annotations != nil {
		a := *t.Annotations
		out.Annotations = &a
	}
	return &out
}

// Descriptor renders the wire-level form.
func (t *Tool) Descriptor() mcp.Tool {
	return mcp.Tool{
		Name:         t.Name,
		Title:        t.Title,
		Description:  t.Description,
		InputSchema:  t.InputSchema,
		OutputSchema: t.OutputSchema,
		Annotations:  t.Annotations,
		Meta:         t.Meta,
	}
}

// Call invokes the handler.
func (t *Tool) Call(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
	if t.Handler == nil {
		return nil, fmt.Errorf("tool %q has no handler", t.Name)
	}
	return t.Handler(ctx, args)
}

// ToolOption customizes a tool at construction time.
type ToolOption func(*toolConfig)

type toolConfig struct {
	title        string
	description  string
	version      string
	tags         []string
	meta         map[string]any
	task         *TaskConfig
	annotations  *mcp.ToolAnnotations
	outputSchema *mcp.ToolOutputSchema
	allowUnknown bool
}

// WithToolTitle sets the human-readable title.
func WithToolTitle(title string) ToolOption {
	return func(c *toolConfig) { c.title = title }
}

// WithToolDescription sets the descriptor description.
func WithToolDescription(desc string) ToolOption {
	return func(c *toolConfig) { c.description = desc }
}

// WithToolVersion registers the tool under the given version.
func WithToolVersion(version string) ToolOption {
	return func(c *toolConfig) { c.version = version }
}

// WithToolTags attaches tags used by marking transforms and visibility
// state.
func WithToolTags(tags ...string) ToolOption {
	return func(c *toolConfig) { c.tags = append(c.tags, tags...) }
}

// WithToolMeta attaches user metadata. The reserved "mcpcompose" key is
// managed by the pipeline and must not be supplied here.
func WithToolMeta(meta map[string]any) ToolOption {
	return func(c *toolConfig) { c.meta = meta }
}

// WithToolTask declares task eligibility.
func WithToolTask(cfg TaskConfig) ToolOption {
	return func(c *toolConfig) { c.task = &cfg }
}

// WithToolAnnotations attaches behavioral hints.
func WithToolAnnotations(a mcp.ToolAnnotations) ToolOption {
	return func(c *toolConfig) { c.annotations = &a }
}

// WithUnknownArguments allows callers to pass arguments not declared in the
// schema. By default unknown arguments are rejected at decode time.
func WithUnknownArguments() ToolOption {
	return func(c *toolConfig) { c.allowUnknown = true }
}

func (c *toolConfig) apply(t *Tool) {
	t.Title = c.title
	t.Description = c.description
	t.Version = c.version
	t.Tags = c.tags
	t.Meta = c.meta
	t.Task = c.task
	t.Annotations = c.annotations
	if c.outputSchema != nil {
		t.OutputSchema = c.outputSchema
	}
}

// NewTool builds a Tool whose input schema is reflected from the typed
// argument struct A and whose handler decodes incoming arguments into A
// before invoking fn. Unknown argument fields are rejected unless
// WithUnknownArguments is given.
func NewTool[A any](name string, fn func(ctx context.Context, args A) (*mcp.CallToolResult, error), opts ...ToolOption) *Tool {
	var cfg toolConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	t := &Tool{
		Metadata:    Metadata{Name: name},
		InputSchema: reflectInputSchema[A](cfg.allowUnknown),
	}
	cfg.apply(t)
	allowUnknown := cfg.allowUnknown
	t.Handler = func(ctx context.Context, raw map[string]any) (*mcp.CallToolResult, error) {
		args, err := decodeArgs[A](raw, allowUnknown)
		if err != nil {
			return nil, fmt.Errorf("invalid arguments for tool %q: %w", name, err)
		}
		return fn(ctx, args)
	}
	return t
}

// NewUntypedTool builds a Tool from an explicit schema and a raw handler.
// Pipeline-synthesized tools (search, catalog accessors, code mode) use
// this form.
func NewUntypedTool(name string, schema mcp.ToolInputSchema, h ToolHandler, opts ...ToolOption) *Tool {
	var cfg toolConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	t := &Tool{
		Metadata:    Metadata{Name: name},
		InputSchema: schema,
		Handler:     h,
	}
	cfg.apply(t)
	return t
}

func decodeArgs[A any](raw map[string]any, allowUnknown bool) (A, error) {
	var args A
	buf, err := json.Marshal(raw)
	if err != nil {
		return args, err
	}
	dec := json.NewDecoder(bytes.NewReader(buf))
	if !allowUnknown {
		dec.DisallowUnknownFields()
	}
	if err := dec.Decode(&args); err != nil {
		return args, err
	}
	return args, nil
}

// reflectInputSchema reflects a Go type A into a jsonschema.Schema and
// converts it to the simplified input schema. Unknown field policy is
// surfaced via the AdditionalProperties flag.
func reflectInputSchema[A any](allowAdditional bool) mcp.ToolInputSchema {
	r := &jsonschema.Reflector{
		DoNotReference:            true, // inline defs
		ExpandedStruct:            true, // put struct at root
		AllowAdditionalProperties: allowAdditional,
	}
	s := r.Reflect(new(A))

	additional := &allowAdditional
	// Only object schemas map cleanly. Anything else becomes an empty
	// object with the configured additionalProperties policy.
	if s == nil || s.Type != "object" {
		return mcp.ToolInputSchema{
			Type:                 "object",
			Properties:           map[string]mcp.SchemaProperty{},
			AdditionalProperties: additional,
		}
	}

	props := make(map[string]mcp.SchemaProperty)
	if s.Properties != nil {
		for el := s.Properties.Oldest(); el != nil; el = el.Next() {
			props[el.Key] = toSchemaProperty(el.Value)
		}
	}
	var required []string
	if len(s.Required) > 0 {
		required = append(required, s.Required...)
	}
	return mcp.ToolInputSchema{
		Type:                 "object",
		Properties:           props,
		Required:             required,
		AdditionalProperties: additional,
	}
}

// ReflectOutputSchema reflects a Go type O into an output schema. Callers
// attach it with WithToolOutput.
func ReflectOutputSchema[O any]() *mcp.ToolOutputSchema {
	r := &jsonschema.Reflector{
		DoNotReference: true,
		ExpandedStruct: true,
	}
	s := r.Reflect(new(O))
	if s == nil || s.Type != "object" {
		return &mcp.ToolOutputSchema{Type: "object", Properties: map[string]mcp.SchemaProperty{}}
	}
	props := make(map[string]mcp.SchemaProperty)
	if s.Properties != nil {
		for el := s.Properties.Oldest(); el != nil; el = el.Next() {
			props[el.Key] = toSchemaProperty(el.Value)
		}
	}
	var required []string
	if len(s.Required) > 0 {
		required = append(required, s.Required...)
	}
	return &mcp.ToolOutputSchema{Type: "object", Properties: props, Required: required}
}

// WithToolOutput attaches a previously reflected output schema.
func WithToolOutput(schema *mcp.ToolOutputSchema) ToolOption {
	return func(c *toolConfig) { c.outputSchema = schema }
}

// toSchemaProperty recursively maps a jsonschema.Schema to the simplified
// SchemaProperty.
func toSchemaProperty(s *jsonschema.Schema) mcp.SchemaProperty {
	if s == nil {
		return mcp.SchemaProperty{}
	}
	p := mcp.SchemaProperty{
		Type:        s.Type,
		Description: s.Description,
	}
	if len(s.Enum) > 0 {
		p.Enum = s.Enum
	}
	if s.Type == "array" && s.Items != nil {
		item := toSchemaProperty(s.Items)
		p.Items = &item
	}
	if s.Type == "object" && s.Properties != nil {
		m := make(map[string]mcp.SchemaProperty, s.Properties.Len())
		for el := s.Properties.Oldest(); el != nil; el = el.Next() {
			m[el.Key] = toSchemaProperty(el.Value)
		}
		p.Properties = m
	}
	return p
}

// TextResult wraps a string as a successful tool result.
func TextResult(s string) *mcp.CallToolResult {
	return &mcp.CallToolResult{Content: []mcp.ContentBlock{mcp.TextContent(s)}}
}

// ErrorResult formats an in-band tool failure.
func ErrorResult(format string, a ...any) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.ContentBlock{mcp.TextContent(fmt.Sprintf(format, a...))},
	}
}
