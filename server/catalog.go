package server

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/strawgate/mcp-compose/components"
	"github.com/strawgate/mcp-compose/mcp"
	"github.com/strawgate/mcp-compose/providers"
	"github.com/strawgate/mcp-compose/transforms"
	"github.com/strawgate/mcp-compose/versions"
)

// pipeline snapshots the provider list and transform chain so a long
// list operation is unaffected by concurrent registration.
func (s *Server) pipeline() (*providers.Aggregate, []transforms.Transform) {
	s.mu.RLock()
	ps := append([]providers.Provider(nil), s.providers...)
	ts := append([]transforms.Transform(nil), s.chain...)
	s.mu.RUnlock()
	return providers.NewAggregate(ps, providers.WithAggregateLogger(s.log)), ts
}

// withSource attaches the server to the context so catalog transforms can
// re-enter the boundary.
func (s *Server) withSource(ctx context.Context) context.Context {
	return transforms.WithCatalogSource(ctx, s)
}

// dedupeHighest collapses components sharing an identifier down to the
// highest-versioned instance, preserving first-appearance order. When a
// collapsed group carried versions, the full list is recorded in the
// winner's reserved meta so clients can discover the alternatives.
func dedupeHighest[C components.Component](in []C) []C {
	var order []string
	groups := make(map[string][]C)
	for _, c := range in {
		id := c.Identifier()
		if _, seen := groups[id]; !seen {
			order = append(order, id)
		}
		groups[id] = append(groups[id], c)
	}
	out := make([]C, 0, len(order))
	for _, id := range order {
		group := groups[id]
		if len(group) == 1 {
			out = append(out, group[0])
			continue
		}
		raws := make([]string, len(group))
		anyVersioned := false
		for i, c := range group {
			raws[i] = c.Common().Version
			if raws[i] != "" {
				anyVersioned = true
			}
		}
		winner := group[versions.Highest(raws)]
		if anyVersioned {
			winner.Common().SetVersions(uniqueInOrder(raws))
		}
		out = append(out, winner)
	}
	return out
}

// listedHighest resolves the highest surviving version of an identifier by
// scanning the chained list, then re-runs the chained get pinned to that
// version to keep get-path semantics. Used when the direct highest-version
// get misses but lower versions may remain in the pipeline's world.
func listedHighest[C components.Component](ctx context.Context, id string,
	list func(context.Context) ([]C, error),
	get func(context.Context, string, string) (C, error),
) (C, error) {
	var zero C
	all, err := list(ctx)
	if err != nil {
		return zero, err
	}
	for _, c := range dedupeHighest(all) {
		if c.Identifier() != id {
			continue
		}
		if v := c.Common().Version; v != "" {
			return get(ctx, id, v)
		}
		return c, nil
	}
	return zero, nil
}

func uniqueInOrder(raws []string) []string {
	seen := make(map[string]bool, len(raws))
	var out []string
	for _, raw := range raws {
		if !seen[raw] {
			seen[raw] = true
			out = append(out, raw)
		}
	}
	return out
}

// admit applies the boundary's visibility decision: the enabled mark left
// by transforms plus the server's blocklist/allowlist state.
func (s *Server) admit(c components.Component) bool {
	return c.Common().Enabled() && s.vis.allowed(c)
}

// scrub drops internal bookkeeping when settings hide it.
func (s *Server) scrub(c components.Component) {
	if !s.settings.IncludeReservedMeta {
		c.Common().ClearReservedMeta()
	}
}

// finishList is the single place list output is filtered.
func finishList[C components.Component](s *Server, in []C) []C {
	out := make([]C, 0, len(in))
	for _, c := range in {
		if !s.admit(c) {
			continue
		}
		s.scrub(c)
		out = append(out, c)
	}
	return out
}

// ListTools returns the merged, transformed, deduplicated tool catalog.
func (s *Server) ListTools(ctx context.Context) ([]*components.Tool, error) {
	ctx = s.withSource(ctx)
	base, chain := s.pipeline()
	tools, err := transforms.ChainListTools(chain, base.ListTools)(ctx)
	if err != nil {
		return nil, err
	}
	return finishList(s, dedupeHighest(tools)), nil
}

// GetTool resolves a tool at its highest version.
func (s *Server) GetTool(ctx context.Context, name string) (*components.Tool, error) {
	return s.GetToolVersion(ctx, name, "")
}

// GetToolVersion resolves a tool at a specific version; the empty version
// means highest. A disabled or unknown tool is reported as not found.
func (s *Server) GetToolVersion(ctx context.Context, name, version string) (*components.Tool, error) {
	ctx = s.withSource(ctx)
	base, chain := s.pipeline()
	get := transforms.ChainGetTool(chain, base.GetTool)
	tool, err := get(ctx, name, version)
	if err != nil {
		return nil, err
	}
	if tool == nil && version == "" {
		// A filtering transform may reject the absolute-highest version
		// while a lower one stays listed. The listed catalog is the
		// pipeline's world, so resolve highest through it.
		tool, err = listedHighest(ctx, name,
			transforms.ChainListTools(chain, base.ListTools), get)
		if err != nil {
			return nil, err
		}
	}
	if tool == nil || !s.admit(tool) {
		return nil, components.NewNotFound(components.KindTool, name)
	}
	s.scrub(tool)
	return tool, nil
}

// CallTool invokes a tool by name at its highest version.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error) {
	return s.CallToolVersion(ctx, name, "", args)
}

// CallToolVersion invokes a tool at a specific version. Handler failures
// come back in-band as error results, with details withheld when error
// masking is configured.
func (s *Server) CallToolVersion(ctx context.Context, name, version string, args map[string]any) (*mcp.CallToolResult, error) {
	ctx = s.withSource(ctx)
	tool, err := s.GetToolVersion(ctx, name, version)
	if err != nil {
		return nil, err
	}
	result, err := tool.Call(ctx, args)
	if err != nil {
		s.log.Error("tool call failed",
			slog.String("tool", name),
			slog.String("error", err.Error()),
		)
		if s.settings.MaskErrorDetails {
			return components.ErrorResult("tool %q failed", name), nil
		}
		return components.ErrorResult("tool %q failed: %v", name, err), nil
	}
	return result, nil
}

// ListResources returns the merged resource catalog.
func (s *Server) ListResources(ctx context.Context) ([]*components.Resource, error) {
	ctx = s.withSource(ctx)
	base, chain := s.pipeline()
	resources, err := transforms.ChainListResources(chain, base.ListResources)(ctx)
	if err != nil {
		return nil, err
	}
	return finishList(s, dedupeHighest(resources)), nil
}

// GetResource resolves a resource at its highest version.
func (s *Server) GetResource(ctx context.Context, uri string) (*components.Resource, error) {
	return s.GetResourceVersion(ctx, uri, "")
}

// GetResourceVersion resolves a resource at a specific version.
func (s *Server) GetResourceVersion(ctx context.Context, uri, version string) (*components.Resource, error) {
	ctx = s.withSource(ctx)
	base, chain := s.pipeline()
	get := transforms.ChainGetResource(chain, base.GetResource)
	res, err := get(ctx, uri, version)
	if err != nil {
		return nil, err
	}
	if res == nil && version == "" {
		res, err = listedHighest(ctx, uri,
			transforms.ChainListResources(chain, base.ListResources), get)
		if err != nil {
			return nil, err
		}
	}
	if res == nil || !s.admit(res) {
		return nil, components.NewNotFound(components.KindResource, uri)
	}
	s.scrub(res)
	return res, nil
}

// ListResourceTemplates returns the merged template catalog.
func (s *Server) ListResourceTemplates(ctx context.Context) ([]*components.ResourceTemplate, error) {
	ctx = s.withSource(ctx)
	base, chain := s.pipeline()
	templates, err := transforms.ChainListTemplates(chain, base.ListResourceTemplates)(ctx)
	if err != nil {
		return nil, err
	}
	return finishList(s, dedupeHighest(templates)), nil
}

// GetResourceTemplate resolves a template by its template string, or by a
// concrete URI that expands it.
func (s *Server) GetResourceTemplate(ctx context.Context, uriTemplate string) (*components.ResourceTemplate, error) {
	return s.GetResourceTemplateVersion(ctx, uriTemplate, "")
}

// GetResourceTemplateVersion resolves a template at a specific version.
func (s *Server) GetResourceTemplateVersion(ctx context.Context, uriTemplate, version string) (*components.ResourceTemplate, error) {
	ctx = s.withSource(ctx)
	base, chain := s.pipeline()
	get := transforms.ChainGetTemplate(chain, base.GetResourceTemplate)
	tmpl, err := get(ctx, uriTemplate, version)
	if err != nil {
		return nil, err
	}
	if tmpl == nil && version == "" {
		tmpl, err = listedHighest(ctx, uriTemplate,
			transforms.ChainListTemplates(chain, base.ListResourceTemplates), get)
		if err != nil {
			return nil, err
		}
	}
	if tmpl == nil || !s.admit(tmpl) {
		return nil, components.NewNotFound(components.KindTemplate, uriTemplate)
	}
	s.scrub(tmpl)
	return tmpl, nil
}

// ReadResource reads a concrete resource, falling back to template
// expansion when no resource is registered under the URI.
func (s *Server) ReadResource(ctx context.Context, uri string) (*mcp.ResourceContents, error) {
	ctx = s.withSource(ctx)
	res, err := s.GetResourceVersion(ctx, uri, "")
	if err == nil {
		contents, rerr := res.Read(ctx)
		if rerr != nil {
			return nil, s.opFailed("read resource", uri, rerr)
		}
		return contents, nil
	}
	if !components.IsNotFound(err) {
		return nil, err
	}
	tmpl, terr := s.GetResourceTemplateVersion(ctx, uri, "")
	if terr != nil {
		if components.IsNotFound(terr) {
			return nil, components.NewNotFound(components.KindResource, uri)
		}
		return nil, terr
	}
	params, ok := tmpl.Match(uri)
	if !ok {
		return nil, components.NewNotFound(components.KindResource, uri)
	}
	contents, rerr := tmpl.Read(ctx, uri, params)
	if rerr != nil {
		if components.IsNotFound(rerr) {
			return nil, rerr
		}
		return nil, s.opFailed("read resource", uri, rerr)
	}
	return contents, nil
}

// ListPrompts returns the merged prompt catalog.
func (s *Server) ListPrompts(ctx context.Context) ([]*components.Prompt, error) {
	ctx = s.withSource(ctx)
	base, chain := s.pipeline()
	prompts, err := transforms.ChainListPrompts(chain, base.ListPrompts)(ctx)
	if err != nil {
		return nil, err
	}
	return finishList(s, dedupeHighest(prompts)), nil
}

// GetPrompt resolves a prompt at its highest version.
func (s *Server) GetPrompt(ctx context.Context, name string) (*components.Prompt, error) {
	return s.GetPromptVersion(ctx, name, "")
}

// GetPromptVersion resolves a prompt at a specific version.
func (s *Server) GetPromptVersion(ctx context.Context, name, version string) (*components.Prompt, error) {
	ctx = s.withSource(ctx)
	base, chain := s.pipeline()
	get := transforms.ChainGetPrompt(chain, base.GetPrompt)
	prompt, err := get(ctx, name, version)
	if err != nil {
		return nil, err
	}
	if prompt == nil && version == "" {
		prompt, err = listedHighest(ctx, name,
			transforms.ChainListPrompts(chain, base.ListPrompts), get)
		if err != nil {
			return nil, err
		}
	}
	if prompt == nil || !s.admit(prompt) {
		return nil, components.NewNotFound(components.KindPrompt, name)
	}
	s.scrub(prompt)
	return prompt, nil
}

// RenderPrompt renders a prompt by name at its highest version.
func (s *Server) RenderPrompt(ctx context.Context, name string, args map[string]string) (*mcp.GetPromptResult, error) {
	return s.RenderPromptVersion(ctx, name, "", args)
}

// RenderPromptVersion renders a prompt at a specific version.
func (s *Server) RenderPromptVersion(ctx context.Context, name, version string, args map[string]string) (*mcp.GetPromptResult, error) {
	ctx = s.withSource(ctx)
	prompt, err := s.GetPromptVersion(ctx, name, version)
	if err != nil {
		return nil, err
	}
	result, rerr := prompt.Render(ctx, args)
	if rerr != nil {
		return nil, s.opFailed("render prompt", name, rerr)
	}
	return result, nil
}

// opFailed logs a component execution failure and wraps it for the
// caller, withholding details when error masking is configured.
func (s *Server) opFailed(op, id string, err error) error {
	s.log.Error(op+" failed",
		slog.String("id", id),
		slog.String("error", err.Error()),
	)
	if s.settings.MaskErrorDetails {
		return fmt.Errorf("%s %q failed", op, id)
	}
	return fmt.Errorf("%s %q failed: %w", op, id, err)
}
