package providers

import (
	"context"

	"github.com/yosida95/uritemplate/v3"

	"github.com/strawgate/mcp-compose/components"
	"github.com/strawgate/mcp-compose/mcp"
)

// MountableServer is the narrow surface a composition server exposes for
// mounting inside another server. Every catalog operation goes through the
// nested server's own transform pipeline and visibility filter, and
// execution delegates to the nested server's own call/read/render entry
// points so its error masking and middleware apply; Tasks bypasses the
// pipeline by design.
type MountableServer interface {
	ListTools(ctx context.Context) ([]*components.Tool, error)
	GetToolVersion(ctx context.Context, name, version string) (*components.Tool, error)
	CallToolVersion(ctx context.Context, name, version string, args map[string]any) (*mcp.CallToolResult, error)
	ListResources(ctx context.Context) ([]*components.Resource, error)
	GetResourceVersion(ctx context.Context, uri, version string) (*components.Resource, error)
	ListResourceTemplates(ctx context.Context) ([]*components.ResourceTemplate, error)
	GetResourceTemplateVersion(ctx context.Context, uriTemplate, version string) (*components.ResourceTemplate, error)
	ReadResource(ctx context.Context, uri string) (*mcp.ResourceContents, error)
	ListPrompts(ctx context.Context) ([]*components.Prompt, error)
	GetPromptVersion(ctx context.Context, name, version string) (*components.Prompt, error)
	RenderPromptVersion(ctx context.Context, name, version string, args map[string]string) (*mcp.GetPromptResult, error)
	Tasks(ctx context.Context) (TaskComponents, error)
	Start(ctx context.Context) error
	Close(ctx context.Context) error
}

// ServerProvider adapts a nested composition server to the Provider
// contract. The nested server keeps its whole pipeline: what its owner
// sees is exactly what the nested server would serve its own clients,
// minus the boundary error convention, which is mapped back to the benign
// (nil, nil) miss used inside a pipeline.
type ServerProvider struct {
	server MountableServer
}

// NewServerProvider wraps the nested server.
func NewServerProvider(s MountableServer) *ServerProvider {
	return &ServerProvider{server: s}
}

// benign converts the boundary's not-found error into a pipeline miss.
func benign[C any](c C, err error) (C, error) {
	if err != nil && components.IsNotFound(err) {
		var zero C
		return zero, nil
	}
	return c, err
}

// forwardTool redirects execution through the nested server's call entry
// point. The name and version are captured here, before the owner's
// transforms rename the clone in flight.
func (sp *ServerProvider) forwardTool(t *components.Tool) *components.Tool {
	if t == nil {
		return nil
	}
	name, version := t.Name, t.Version
	t.Handler = func(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
		return sp.server.CallToolVersion(ctx, name, version, args)
	}
	return t
}

func (sp *ServerProvider) forwardResource(r *components.Resource) *components.Resource {
	if r == nil {
		return nil
	}
	uri := r.URI
	r.Reader = func(ctx context.Context) (*mcp.ResourceContents, error) {
		return sp.server.ReadResource(ctx, uri)
	}
	return r
}

// forwardTemplate re-expands the nested server's template from the matched
// variables, undoing any URI rewriting the owner applied, then reads
// through the nested server's boundary.
func (sp *ServerProvider) forwardTemplate(t *components.ResourceTemplate) *components.ResourceTemplate {
	if t == nil {
		return nil
	}
	raw := t.URITemplate
	t.Reader = func(ctx context.Context, uri string, params map[string]string) (*mcp.ResourceContents, error) {
		if compiled, err := uritemplate.New(raw); err == nil {
			vals := make(uritemplate.Values, len(params))
			for name, v := range params {
				vals[name] = uritemplate.String(v)
			}
			if expanded, eerr := compiled.Expand(vals); eerr == nil {
				uri = expanded
			}
		}
		return sp.server.ReadResource(ctx, uri)
	}
	return t
}

func (sp *ServerProvider) forwardPrompt(p *components.Prompt) *components.Prompt {
	if p == nil {
		return nil
	}
	name, version := p.Name, p.Version
	p.Renderer = func(ctx context.Context, args map[string]string) (*mcp.GetPromptResult, error) {
		return sp.server.RenderPromptVersion(ctx, name, version, args)
	}
	return p
}

func (sp *ServerProvider) ListTools(ctx context.Context) ([]*components.Tool, error) {
	tools, err := sp.server.ListTools(ctx)
	if err != nil {
		return nil, err
	}
	for i, t := range tools {
		tools[i] = sp.forwardTool(t)
	}
	return tools, nil
}

func (sp *ServerProvider) GetTool(ctx context.Context, name, version string) (*components.Tool, error) {
	tool, err := benign(sp.server.GetToolVersion(ctx, name, version))
	if err != nil {
		return nil, err
	}
	return sp.forwardTool(tool), nil
}

func (sp *ServerProvider) ListResources(ctx context.Context) ([]*components.Resource, error) {
	resources, err := sp.server.ListResources(ctx)
	if err != nil {
		return nil, err
	}
	for i, r := range resources {
		resources[i] = sp.forwardResource(r)
	}
	return resources, nil
}

func (sp *ServerProvider) GetResource(ctx context.Context, uri, version string) (*components.Resource, error) {
	res, err := benign(sp.server.GetResourceVersion(ctx, uri, version))
	if err != nil {
		return nil, err
	}
	return sp.forwardResource(res), nil
}

func (sp *ServerProvider) ListResourceTemplates(ctx context.Context) ([]*components.ResourceTemplate, error) {
	templates, err := sp.server.ListResourceTemplates(ctx)
	if err != nil {
		return nil, err
	}
	for i, t := range templates {
		templates[i] = sp.forwardTemplate(t)
	}
	return templates, nil
}

func (sp *ServerProvider) GetResourceTemplate(ctx context.Context, uriTemplate, version string) (*components.ResourceTemplate, error) {
	tmpl, err := benign(sp.server.GetResourceTemplateVersion(ctx, uriTemplate, version))
	if err != nil {
		return nil, err
	}
	return sp.forwardTemplate(tmpl), nil
}

func (sp *ServerProvider) ListPrompts(ctx context.Context) ([]*components.Prompt, error) {
	prompts, err := sp.server.ListPrompts(ctx)
	if err != nil {
		return nil, err
	}
	for i, p := range prompts {
		prompts[i] = sp.forwardPrompt(p)
	}
	return prompts, nil
}

func (sp *ServerProvider) GetPrompt(ctx context.Context, name, version string) (*components.Prompt, error) {
	prompt, err := benign(sp.server.GetPromptVersion(ctx, name, version))
	if err != nil {
		return nil, err
	}
	return sp.forwardPrompt(prompt), nil
}

// Tasks recurses into the nested server's raw task surface, skipping its
// transform pipeline entirely.
func (sp *ServerProvider) Tasks(ctx context.Context) (TaskComponents, error) {
	return sp.server.Tasks(ctx)
}

func (sp *ServerProvider) Start(ctx context.Context) error { return sp.server.Start(ctx) }
func (sp *ServerProvider) Close(ctx context.Context) error { return sp.server.Close(ctx) }
