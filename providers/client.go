package providers

import (
	"context"
	"encoding/json"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/strawgate/mcp-compose/components"
	"github.com/strawgate/mcp-compose/mcp"
)

// Client proxies a remote MCP server over an already-connected client
// session from the official SDK. Listings map the remote descriptors into
// components whose handlers forward the call back over the session, so a
// mounted remote server behaves exactly like a local provider.
//
// The session's owner decides its lifetime; pass OwnSession to have the
// provider close it on shutdown.
type Client struct {
	session *sdk.ClientSession
	owned   bool
}

// ClientOption customizes a Client provider.
type ClientOption func(*Client)

// OwnSession makes the provider close the session when it is closed.
func OwnSession() ClientOption {
	return func(c *Client) { c.owned = true }
}

// NewClient wraps a connected session.
func NewClient(session *sdk.ClientSession, opts ...ClientOption) *Client {
	c := &Client{session: session}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// convertJSON bridges SDK types and pipeline types through their shared
// wire representation.
func convertJSON[T any](v any) (T, error) {
	var out T
	buf, err := json.Marshal(v)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(buf, &out); err != nil {
		return out, err
	}
	return out, nil
}

func (c *Client) ListTools(ctx context.Context) ([]*components.Tool, error) {
	res, err := c.session.ListTools(ctx, &sdk.ListToolsParams{})
	if err != nil {
		return nil, err
	}
	out := make([]*components.Tool, 0, len(res.Tools))
	for _, remote := range res.Tools {
		desc, err := convertJSON[mcp.Tool](remote)
		if err != nil {
			return nil, err
		}
		name := desc.Name
		tool := components.NewUntypedTool(name, desc.InputSchema,
			func(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
				return c.call(ctx, name, args)
			},
			components.WithToolDescription(desc.Description),
			components.WithToolTitle(desc.Title),
			components.WithToolMeta(desc.Meta),
			components.WithUnknownArguments(),
		)
		tool.OutputSchema = desc.OutputSchema
		tool.Annotations = desc.Annotations
		out = append(out, tool)
	}
	return out, nil
}

func (c *Client) call(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error) {
	res, err := c.session.CallTool(ctx, &sdk.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		return nil, err
	}
	out, err := convertJSON[mcp.CallToolResult](res)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetTool lists and scans; remote servers expose no direct get. Remote
// components are unversioned, so any version constraint misses.
func (c *Client) GetTool(ctx context.Context, name, version string) (*components.Tool, error) {
	if version != "" {
		return nil, nil
	}
	tools, err := c.ListTools(ctx)
	if err != nil {
		return nil, err
	}
	for _, t := range tools {
		if t.Name == name {
			return t, nil
		}
	}
	return nil, nil
}

func (c *Client) ListResources(ctx context.Context) ([]*components.Resource, error) {
	res, err := c.session.ListResources(ctx, &sdk.ListResourcesParams{})
	if err != nil {
		return nil, err
	}
	out := make([]*components.Resource, 0, len(res.Resources))
	for _, remote := range res.Resources {
		desc, err := convertJSON[mcp.Resource](remote)
		if err != nil {
			return nil, err
		}
		uri := desc.URI
		out = append(out, components.NewResource(uri, desc.Name,
			func(ctx context.Context) (*mcp.ResourceContents, error) {
				return c.read(ctx, uri)
			},
			components.WithResourceDescription(desc.Description),
			components.WithResourceTitle(desc.Title),
			components.WithResourceMimeType(desc.MimeType),
			components.WithResourceMeta(desc.Meta),
		))
	}
	return out, nil
}

func (c *Client) read(ctx context.Context, uri string) (*mcp.ResourceContents, error) {
	res, err := c.session.ReadResource(ctx, &sdk.ReadResourceParams{URI: uri})
	if err != nil {
		return nil, err
	}
	if len(res.Contents) == 0 {
		return &mcp.ResourceContents{URI: uri}, nil
	}
	contents, err := convertJSON[mcp.ResourceContents](res.Contents[0])
	if err != nil {
		return nil, err
	}
	return &contents, nil
}

func (c *Client) GetResource(ctx context.Context, uri, version string) (*components.Resource, error) {
	if version != "" {
		return nil, nil
	}
	resources, err := c.ListResources(ctx)
	if err != nil {
		return nil, err
	}
	for _, r := range resources {
		if r.URI == uri {
			return r, nil
		}
	}
	return nil, nil
}

func (c *Client) ListResourceTemplates(ctx context.Context) ([]*components.ResourceTemplate, error) {
	res, err := c.session.ListResourceTemplates(ctx, &sdk.ListResourceTemplatesParams{})
	if err != nil {
		return nil, err
	}
	out := make([]*components.ResourceTemplate, 0, len(res.ResourceTemplates))
	for _, remote := range res.ResourceTemplates {
		desc, err := convertJSON[mcp.ResourceTemplate](remote)
		if err != nil {
			return nil, err
		}
		tmpl, err := components.NewResourceTemplate(desc.URITemplate, desc.Name,
			func(ctx context.Context, uri string, _ map[string]string) (*mcp.ResourceContents, error) {
				return c.read(ctx, uri)
			},
			components.WithTemplateDescription(desc.Description),
			components.WithTemplateTitle(desc.Title),
			components.WithTemplateMimeType(desc.MimeType),
			components.WithTemplateMeta(desc.Meta),
		)
		if err != nil {
			return nil, err
		}
		out = append(out, tmpl)
	}
	return out, nil
}

func (c *Client) GetResourceTemplate(ctx context.Context, uriTemplate, version string) (*components.ResourceTemplate, error) {
	if version != "" {
		return nil, nil
	}
	templates, err := c.ListResourceTemplates(ctx)
	if err != nil {
		return nil, err
	}
	for _, t := range templates {
		if t.URITemplate == uriTemplate {
			return t, nil
		}
		if _, ok := t.Match(uriTemplate); ok {
			return t, nil
		}
	}
	return nil, nil
}

func (c *Client) ListPrompts(ctx context.Context) ([]*components.Prompt, error) {
	res, err := c.session.ListPrompts(ctx, &sdk.ListPromptsParams{})
	if err != nil {
		return nil, err
	}
	out := make([]*components.Prompt, 0, len(res.Prompts))
	for _, remote := range res.Prompts {
		desc, err := convertJSON[mcp.Prompt](remote)
		if err != nil {
			return nil, err
		}
		name := desc.Name
		out = append(out, components.NewPrompt(name,
			func(ctx context.Context, args map[string]string) (*mcp.GetPromptResult, error) {
				return c.render(ctx, name, args)
			},
			components.WithPromptDescription(desc.Description),
			components.WithPromptTitle(desc.Title),
			components.WithPromptArguments(desc.Arguments...),
			components.WithPromptMeta(desc.Meta),
		))
	}
	return out, nil
}

func (c *Client) render(ctx context.Context, name string, args map[string]string) (*mcp.GetPromptResult, error) {
	res, err := c.session.GetPrompt(ctx, &sdk.GetPromptParams{Name: name, Arguments: args})
	if err != nil {
		return nil, err
	}
	out, err := convertJSON[mcp.GetPromptResult](res)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetPrompt(ctx context.Context, name, version string) (*components.Prompt, error) {
	if version != "" {
		return nil, nil
	}
	prompts, err := c.ListPrompts(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range prompts {
		if p.Name == name {
			return p, nil
		}
	}
	return nil, nil
}

// Tasks is empty: remote servers do not expose task declarations over the
// wire.
func (c *Client) Tasks(ctx context.Context) (TaskComponents, error) {
	return TaskComponents{}, nil
}

func (c *Client) Start(ctx context.Context) error { return nil }

func (c *Client) Close(ctx context.Context) error {
	if c.owned {
		return c.session.Close()
	}
	return nil
}
