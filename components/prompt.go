package components

import (
	"context"
	"fmt"
	"slices"

	"github.com/strawgate/mcp-compose/mcp"
)

// PromptRenderer renders a prompt into messages for the given arguments.
type PromptRenderer func(ctx context.Context, args map[string]string) (*mcp.GetPromptResult, error)

// Prompt is a renderable component.
type Prompt struct {
	Metadata
	Arguments []mcp.PromptArgument
	Renderer  PromptRenderer
}

func (p *Prompt) ComponentKind() Kind { return KindPrompt }
func (p *Prompt) Identifier() string  { return p.Name }

// Key returns the canonical "prompt:name@version" key.
func (p *Prompt) Key() string { return MakeKey(KindPrompt, p.Name, p.Version) }

func (p *Prompt) Clone() *Prompt {
	out := *p
	out.Metadata = p.Metadata.cloneMetadata()
	out.Arguments = slices.Clone(p.Arguments)
	return &out
}

// Descriptor renders the wire-level form.
func (p *Prompt) Descriptor() mcp.Prompt {
	return mcp.Prompt{
		Name:        p.Name,
		Title:       p.Title,
		Description: p.Description,
		Arguments:   p.Arguments,
		Meta:        p.Meta,
	}
}

// Render invokes the renderer, checking required arguments first.
func (p *Prompt) Render(ctx context.Context, args map[string]string) (*mcp.GetPromptResult, error) {
	if p.Renderer == nil {
		return nil, fmt.Errorf("prompt %q has no renderer", p.Name)
	}
	for _, a := range p.Arguments {
		if !a.Required {
			continue
		}
		if _, ok := args[a.Name]; !ok {
			return nil, fmt.Errorf("prompt %q: missing required argument %q", p.Name, a.Name)
		}
	}
	return p.Renderer(ctx, args)
}

// PromptOption customizes a prompt at construction time.
type PromptOption func(*Prompt)

func WithPromptTitle(title string) PromptOption {
	return func(p *Prompt) { p.Title = title }
}

func WithPromptDescription(desc string) PromptOption {
	return func(p *Prompt) { p.Description = desc }
}

func WithPromptVersion(version string) PromptOption {
	return func(p *Prompt) { p.Version = version }
}

func WithPromptTags(tags ...string) PromptOption {
	return func(p *Prompt) { p.Tags = append(p.Tags, tags...) }
}

func WithPromptMeta(meta map[string]any) PromptOption {
	return func(p *Prompt) { p.Meta = meta }
}

func WithPromptArguments(args ...mcp.PromptArgument) PromptOption {
	return func(p *Prompt) { p.Arguments = append(p.Arguments, args...) }
}

func WithPromptTask(cfg TaskConfig) PromptOption {
	return func(p *Prompt) { p.Task = &cfg }
}

// NewPrompt builds a Prompt served by the given renderer.
func NewPrompt(name string, renderer PromptRenderer, opts ...PromptOption) *Prompt {
	p := &Prompt{
		Metadata: Metadata{Name: name},
		Renderer: renderer,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// TextPrompt builds a single-message user prompt from fixed text.
func TextPrompt(name, text string, opts ...PromptOption) *Prompt {
	return NewPrompt(name, func(context.Context, map[string]string) (*mcp.GetPromptResult, error) {
		return &mcp.GetPromptResult{
			Messages: []mcp.PromptMessage{{
				Role:    mcp.RoleUser,
				Content: []mcp.ContentBlock{mcp.TextContent(text)},
			}},
		}, nil
	}, opts...)
}
