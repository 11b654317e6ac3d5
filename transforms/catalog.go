package transforms

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/strawgate/mcp-compose/components"
	"github.com/strawgate/mcp-compose/mcp"
)

// CatalogSource is the composition boundary's public surface, carried in
// the request context so catalog transforms can re-enter it to fetch the
// untransformed catalog or proxy a call.
type CatalogSource interface {
	ListTools(ctx context.Context) ([]*components.Tool, error)
	ListResources(ctx context.Context) ([]*components.Resource, error)
	ListResourceTemplates(ctx context.Context) ([]*components.ResourceTemplate, error)
	ListPrompts(ctx context.Context) ([]*components.Prompt, error)
	CallTool(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error)
}

type catalogSourceKey struct{}

// WithCatalogSource attaches the composition boundary to the context. The
// server does this on every public operation.
func WithCatalogSource(ctx context.Context, src CatalogSource) context.Context {
	return context.WithValue(ctx, catalogSourceKey{}, src)
}

// CatalogSourceFrom retrieves the composition boundary, if present.
func CatalogSourceFrom(ctx context.Context) (CatalogSource, bool) {
	src, ok := ctx.Value(catalogSourceKey{}).(CatalogSource)
	return src, ok
}

// CatalogHooks rewrite whole listings. A nil hook passes that kind through
// untouched.
type CatalogHooks struct {
	Tools     func(ctx context.Context, tools []*components.Tool) ([]*components.Tool, error)
	Resources func(ctx context.Context, resources []*components.Resource) ([]*components.Resource, error)
	Templates func(ctx context.Context, templates []*components.ResourceTemplate) ([]*components.ResourceTemplate, error)
	Prompts   func(ctx context.Context, prompts []*components.Prompt) ([]*components.Prompt, error)
}

// Catalog is a transform that rewrites listings while retaining re-entrant
// access to the original catalog. When a hook (or a tool it synthesized)
// re-enters the composition boundary through ToolCatalog, ProxyCall etc.,
// a per-instance bypass flag travels in the context so this layer steps
// aside instead of recursing into itself. The flag is scoped to the
// derived context, so concurrent requests never observe each other's
// bypass.
type Catalog struct {
	Passthrough
	id    string
	hooks CatalogHooks
}

// NewCatalog builds a catalog transform with the given hooks.
func NewCatalog(hooks CatalogHooks) *Catalog {
	return &Catalog{id: uuid.NewString(), hooks: hooks}
}

type catalogBypassKey string

// Bypass returns a context under which this instance passes listings
// through untouched. Other Catalog instances are unaffected.
func (c *Catalog) Bypass(ctx context.Context) context.Context {
	return context.WithValue(ctx, catalogBypassKey(c.id), true)
}

func (c *Catalog) bypassed(ctx context.Context) bool {
	v, _ := ctx.Value(catalogBypassKey(c.id)).(bool)
	return v
}

// ToolCatalog fetches the full tool catalog from the composition boundary
// with this layer bypassed.
func (c *Catalog) ToolCatalog(ctx context.Context) ([]*components.Tool, error) {
	src, ok := CatalogSourceFrom(ctx)
	if !ok {
		return nil, fmt.Errorf("no catalog source in context")
	}
	return src.ListTools(c.Bypass(ctx))
}

// ResourceCatalog fetches the full resource catalog with this layer
// bypassed.
func (c *Catalog) ResourceCatalog(ctx context.Context) ([]*components.Resource, error) {
	src, ok := CatalogSourceFrom(ctx)
	if !ok {
		return nil, fmt.Errorf("no catalog source in context")
	}
	return src.ListResources(c.Bypass(ctx))
}

// PromptCatalog fetches the full prompt catalog with this layer bypassed.
func (c *Catalog) PromptCatalog(ctx context.Context) ([]*components.Prompt, error) {
	src, ok := CatalogSourceFrom(ctx)
	if !ok {
		return nil, fmt.Errorf("no catalog source in context")
	}
	return src.ListPrompts(c.Bypass(ctx))
}

// ProxyCall invokes a tool through the composition boundary with this
// layer bypassed, so tools hidden from the rewritten listing remain
// callable.
func (c *Catalog) ProxyCall(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error) {
	src, ok := CatalogSourceFrom(ctx)
	if !ok {
		return nil, fmt.Errorf("no catalog source in context")
	}
	return src.CallTool(c.Bypass(ctx), name, args)
}

func (c *Catalog) ListTools(ctx context.Context, next ListToolsNext) ([]*components.Tool, error) {
	tools, err := next(ctx)
	if err != nil || c.bypassed(ctx) || c.hooks.Tools == nil {
		return tools, err
	}
	return c.hooks.Tools(ctx, tools)
}

func (c *Catalog) ListResources(ctx context.Context, next ListResourcesNext) ([]*components.Resource, error) {
	resources, err := next(ctx)
	if err != nil || c.bypassed(ctx) || c.hooks.Resources == nil {
		return resources, err
	}
	return c.hooks.Resources(ctx, resources)
}

func (c *Catalog) ListResourceTemplates(ctx context.Context, next ListTemplatesNext) ([]*components.ResourceTemplate, error) {
	templates, err := next(ctx)
	if err != nil || c.bypassed(ctx) || c.hooks.Templates == nil {
		return templates, err
	}
	return c.hooks.Templates(ctx, templates)
}

func (c *Catalog) ListPrompts(ctx context.Context, next ListPromptsNext) ([]*components.Prompt, error) {
	prompts, err := next(ctx)
	if err != nil || c.bypassed(ctx) || c.hooks.Prompts == nil {
		return prompts, err
	}
	return c.hooks.Prompts(ctx, prompts)
}
