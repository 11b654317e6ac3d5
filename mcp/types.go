package mcp

import "encoding/json"

// ImplementationInfo identifies a server or client implementation.
type ImplementationInfo struct {
	Name    string `json:"name"`
	Title   string `json:"title,omitzero"`
	Version string `json:"version"`
}

// Role identifies the speaker of a prompt message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ContentBlock is a single unit of content in a tool result or prompt
// message. Type selects which of the remaining fields are meaningful
// ("text", "image", "audio", "resource", "resource_link").
type ContentBlock struct {
	Type string `json:"type"`

	// Text content.
	Text string `json:"text,omitzero"`

	// Binary content (image/audio), base64 encoded.
	Data     string `json:"data,omitzero"`
	MimeType string `json:"mimeType,omitzero"`

	// Embedded resource content.
	Resource *ResourceContents `json:"resource,omitempty"`

	// Resource link fields.
	URI         string `json:"uri,omitzero"`
	Name        string `json:"name,omitzero"`
	Description string `json:"description,omitzero"`
}

// TextContent builds a text content block.
func TextContent(s string) ContentBlock {
	return ContentBlock{Type: "text", Text: s}
}

// ToolInputSchema is the simplified JSON schema describing a tool's
// arguments. It is a deliberately narrow subset: a top-level object with
// named properties.
type ToolInputSchema struct {
	Type                 string                    `json:"type"`
	Properties           map[string]SchemaProperty `json:"properties,omitempty"`
	Required             []string                  `json:"required,omitempty"`
	AdditionalProperties *bool                     `json:"additionalProperties,omitempty"`
}

// ToolOutputSchema describes a tool's structured output, when declared.
type ToolOutputSchema struct {
	Type       string                    `json:"type"`
	Properties map[string]SchemaProperty `json:"properties,omitempty"`
	Required   []string                  `json:"required,omitempty"`
}

// SchemaProperty captures the subset of JSON schema used for individual
// tool arguments.
type SchemaProperty struct {
	Type        string                    `json:"type,omitzero"`
	Description string                    `json:"description,omitzero"`
	Items       *SchemaProperty           `json:"items,omitempty"`
	Properties  map[string]SchemaProperty `json:"properties,omitempty"`
	Enum        []any                     `json:"enum,omitempty"`
	Default     any                       `json:"default,omitempty"`
}

// ToolAnnotations carries behavioral hints about a tool.
type ToolAnnotations struct {
	Title           string `json:"title,omitzero"`
	ReadOnlyHint    bool   `json:"readOnlyHint,omitzero"`
	DestructiveHint *bool  `json:"destructiveHint,omitempty"`
	IdempotentHint  bool   `json:"idempotentHint,omitzero"`
	OpenWorldHint   *bool  `json:"openWorldHint,omitempty"`
}

// Tool is the wire-level tool descriptor.
type Tool struct {
	Name         string            `json:"name"`
	Title        string            `json:"title,omitzero"`
	Description  string            `json:"description,omitzero"`
	InputSchema  ToolInputSchema   `json:"inputSchema"`
	OutputSchema *ToolOutputSchema `json:"outputSchema,omitempty"`
	Annotations  *ToolAnnotations  `json:"annotations,omitempty"`
	Meta         map[string]any    `json:"_meta,omitempty"`
}

// Resource is the wire-level resource descriptor.
type Resource struct {
	URI         string         `json:"uri"`
	Name        string         `json:"name"`
	Title       string         `json:"title,omitzero"`
	Description string         `json:"description,omitzero"`
	MimeType    string         `json:"mimeType,omitzero"`
	Meta        map[string]any `json:"_meta,omitempty"`
}

// ResourceTemplate is the wire-level resource template descriptor.
type ResourceTemplate struct {
	URITemplate string         `json:"uriTemplate"`
	Name        string         `json:"name"`
	Title       string         `json:"title,omitzero"`
	Description string         `json:"description,omitzero"`
	MimeType    string         `json:"mimeType,omitzero"`
	Meta        map[string]any `json:"_meta,omitempty"`
}

// ResourceContents is the payload returned when reading a resource. Text
// and Blob are mutually exclusive; Blob is base64 encoded.
type ResourceContents struct {
	URI      string `json:"uri"`
	MimeType string `json:"mimeType,omitzero"`
	Text     string `json:"text,omitzero"`
	Blob     string `json:"blob,omitzero"`
}

// Prompt is the wire-level prompt descriptor.
type Prompt struct {
	Name        string           `json:"name"`
	Title       string           `json:"title,omitzero"`
	Description string           `json:"description,omitzero"`
	Arguments   []PromptArgument `json:"arguments,omitempty"`
	Meta        map[string]any   `json:"_meta,omitempty"`
}

// PromptArgument describes one argument a prompt accepts.
type PromptArgument struct {
	Name        string `json:"name"`
	Description string `json:"description,omitzero"`
	Required    bool   `json:"required,omitzero"`
}

// PromptMessage is a single message in a rendered prompt.
type PromptMessage struct {
	Role    Role           `json:"role"`
	Content []ContentBlock `json:"content"`
}

// UnmarshalJSON accepts both a content array and the single content object
// some peers emit.
func (m *PromptMessage) UnmarshalJSON(data []byte) error {
	var multi struct {
		Role    Role           `json:"role"`
		Content []ContentBlock `json:"content"`
	}
	if err := json.Unmarshal(data, &multi); err == nil {
		m.Role = multi.Role
		m.Content = multi.Content
		return nil
	}
	var single struct {
		Role    Role         `json:"role"`
		Content ContentBlock `json:"content"`
	}
	if err := json.Unmarshal(data, &single); err != nil {
		return err
	}
	m.Role = single.Role
	m.Content = []ContentBlock{single.Content}
	return nil
}

// CallToolResult represents a tool invocation result.
type CallToolResult struct {
	Content           []ContentBlock `json:"content,omitempty"`
	IsError           bool           `json:"isError,omitzero"`
	StructuredContent map[string]any `json:"structuredContent,omitempty"`
	Meta              map[string]any `json:"_meta,omitempty"`
}

// ReadResourceResult returns resource contents.
type ReadResourceResult struct {
	Contents []ResourceContents `json:"contents"`
	Meta     map[string]any     `json:"_meta,omitempty"`
}

// GetPromptResult returns a rendered prompt.
type GetPromptResult struct {
	Description string          `json:"description,omitzero"`
	Messages    []PromptMessage `json:"messages"`
	Meta        map[string]any  `json:"_meta,omitempty"`
}
