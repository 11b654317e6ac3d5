package providers

import (
	"context"

	"github.com/strawgate/mcp-compose/components"
	"github.com/strawgate/mcp-compose/transforms"
	"github.com/strawgate/mcp-compose/versions"
)

// wrapped layers exactly one Transform over an inner provider. Composition
// never mutates: each Wrap call produces a new immutable provider, and
// stacking wraps builds the transform chain with the outermost wrap
// applied last.
type wrapped struct {
	inner Provider
	t     transforms.Transform
}

// Wrap layers a transform over a provider.
func Wrap(inner Provider, t transforms.Transform) Provider {
	return &wrapped{inner: inner, t: t}
}

// WithTransforms layers transforms over a provider, first given innermost.
func WithTransforms(inner Provider, ts ...transforms.Transform) Provider {
	out := inner
	for _, t := range ts {
		out = Wrap(out, t)
	}
	return out
}

// WithNamespace exposes a provider's components under a namespace prefix.
// An invalid rename set surfaces as an error.
func WithNamespace(inner Provider, ns string, opts ...transforms.NamespaceOption) (Provider, error) {
	t, err := transforms.NewNamespace(ns, opts...)
	if err != nil {
		return nil, err
	}
	return Wrap(inner, t), nil
}

// listedFallback resolves the highest listed version of an identifier when
// the direct highest-version get missed. A filtering transform may reject
// the default winner while a lower version survives in the listed world;
// the resolved version is re-fetched through the get path pinned exactly.
func listedFallback[C components.Component](ctx context.Context, id string,
	list func(context.Context) ([]C, error),
	get func(context.Context, string, string) (C, error),
) (C, error) {
	var zero C
	all, err := list(ctx)
	if err != nil {
		return zero, err
	}
	best := -1
	var bestKey versions.Key
	for i, c := range all {
		if c.Identifier() != id {
			continue
		}
		k := versions.NewKey(c.Common().Version)
		if best == -1 || versions.Compare(k, bestKey) > 0 {
			best, bestKey = i, k
		}
	}
	if best == -1 {
		return zero, nil
	}
	if v := all[best].Common().Version; v != "" {
		return get(ctx, id, v)
	}
	return all[best], nil
}

func (w *wrapped) ListTools(ctx context.Context) ([]*components.Tool, error) {
	return w.t.ListTools(ctx, w.inner.ListTools)
}

func (w *wrapped) GetTool(ctx context.Context, name, version string) (*components.Tool, error) {
	tool, err := w.t.GetTool(ctx, name, version, w.inner.GetTool)
	if err != nil || tool != nil || version != "" {
		return tool, err
	}
	return listedFallback(ctx, name, w.ListTools,
		func(ctx context.Context, n, v string) (*components.Tool, error) {
			return w.t.GetTool(ctx, n, v, w.inner.GetTool)
		})
}

func (w *wrapped) ListResources(ctx context.Context) ([]*components.Resource, error) {
	return w.t.ListResources(ctx, w.inner.ListResources)
}

func (w *wrapped) GetResource(ctx context.Context, uri, version string) (*components.Resource, error) {
	res, err := w.t.GetResource(ctx, uri, version, w.inner.GetResource)
	if err != nil || res != nil || version != "" {
		return res, err
	}
	return listedFallback(ctx, uri, w.ListResources,
		func(ctx context.Context, u, v string) (*components.Resource, error) {
			return w.t.GetResource(ctx, u, v, w.inner.GetResource)
		})
}

func (w *wrapped) ListResourceTemplates(ctx context.Context) ([]*components.ResourceTemplate, error) {
	return w.t.ListResourceTemplates(ctx, w.inner.ListResourceTemplates)
}

func (w *wrapped) GetResourceTemplate(ctx context.Context, uriTemplate, version string) (*components.ResourceTemplate, error) {
	tmpl, err := w.t.GetResourceTemplate(ctx, uriTemplate, version, w.inner.GetResourceTemplate)
	if err != nil || tmpl != nil || version != "" {
		return tmpl, err
	}
	return listedFallback(ctx, uriTemplate, w.ListResourceTemplates,
		func(ctx context.Context, u, v string) (*components.ResourceTemplate, error) {
			return w.t.GetResourceTemplate(ctx, u, v, w.inner.GetResourceTemplate)
		})
}

func (w *wrapped) ListPrompts(ctx context.Context) ([]*components.Prompt, error) {
	return w.t.ListPrompts(ctx, w.inner.ListPrompts)
}

func (w *wrapped) GetPrompt(ctx context.Context, name, version string) (*components.Prompt, error) {
	prompt, err := w.t.GetPrompt(ctx, name, version, w.inner.GetPrompt)
	if err != nil || prompt != nil || version != "" {
		return prompt, err
	}
	return listedFallback(ctx, name, w.ListPrompts,
		func(ctx context.Context, n, v string) (*components.Prompt, error) {
			return w.t.GetPrompt(ctx, n, v, w.inner.GetPrompt)
		})
}

// Tasks re-applies only this layer's list transforms to the inner task
// components, then re-filters for task support. A transform that renames
// or synthesizes components thereby shapes the task surface the same way
// it shapes the catalog.
func (w *wrapped) Tasks(ctx context.Context) (TaskComponents, error) {
	inner, err := w.inner.Tasks(ctx)
	if err != nil {
		return TaskComponents{}, err
	}
	var out TaskComponents
	tools, err := w.t.ListTools(ctx, func(context.Context) ([]*components.Tool, error) {
		return inner.Tools, nil
	})
	if err != nil {
		return TaskComponents{}, err
	}
	out.Tools = filterSupportsTasks(tools)

	resources, err := w.t.ListResources(ctx, func(context.Context) ([]*components.Resource, error) {
		return inner.Resources, nil
	})
	if err != nil {
		return TaskComponents{}, err
	}
	out.Resources = filterSupportsTasks(resources)

	templates, err := w.t.ListResourceTemplates(ctx, func(context.Context) ([]*components.ResourceTemplate, error) {
		return inner.Templates, nil
	})
	if err != nil {
		return TaskComponents{}, err
	}
	out.Templates = filterSupportsTasks(templates)

	prompts, err := w.t.ListPrompts(ctx, func(context.Context) ([]*components.Prompt, error) {
		return inner.Prompts, nil
	})
	if err != nil {
		return TaskComponents{}, err
	}
	out.Prompts = filterSupportsTasks(prompts)
	return out, nil
}

func (w *wrapped) Start(ctx context.Context) error { return w.inner.Start(ctx) }
func (w *wrapped) Close(ctx context.Context) error { return w.inner.Close(ctx) }
