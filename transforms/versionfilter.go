package transforms

import (
	"context"

	"github.com/strawgate/mcp-compose/components"
	"github.com/strawgate/mcp-compose/versions"
)

// VersionFilter removes components whose version falls outside the spec.
// Unlike marking transforms it filters inline: a version that is out of
// range is simply not part of this pipeline's world.
type VersionFilter struct {
	Passthrough
	spec *versions.Spec
}

// NewVersionFilter builds the filter. A nil spec admits everything.
func NewVersionFilter(spec *versions.Spec) *VersionFilter {
	return &VersionFilter{spec: spec}
}

func keepVersioned[C components.Component](spec *versions.Spec, in []C) []C {
	out := in[:0]
	for _, c := range in {
		if spec.Matches(c.Common().Version) {
			out = append(out, c)
		}
	}
	return out
}

func (f *VersionFilter) ListTools(ctx context.Context, next ListToolsNext) ([]*components.Tool, error) {
	tools, err := next(ctx)
	if err != nil {
		return nil, err
	}
	return keepVersioned(f.spec, tools), nil
}

func (f *VersionFilter) GetTool(ctx context.Context, name, version string, next GetToolNext) (*components.Tool, error) {
	tool, err := next(ctx, name, version)
	if err != nil || tool == nil {
		return tool, err
	}
	if !f.spec.Matches(tool.Version) {
		return nil, nil
	}
	return tool, nil
}

func (f *VersionFilter) ListResources(ctx context.Context, next ListResourcesNext) ([]*components.Resource, error) {
	resources, err := next(ctx)
	if err != nil {
		return nil, err
	}
	return keepVersioned(f.spec, resources), nil
}

func (f *VersionFilter) GetResource(ctx context.Context, uri, version string, next GetResourceNext) (*components.Resource, error) {
	res, err := next(ctx, uri, version)
	if err != nil || res == nil {
		return res, err
	}
	if !f.spec.Matches(res.Version) {
		return nil, nil
	}
	return res, nil
}

func (f *VersionFilter) ListResourceTemplates(ctx context.Context, next ListTemplatesNext) ([]*components.ResourceTemplate, error) {
	templates, err := next(ctx)
	if err != nil {
		return nil, err
	}
	return keepVersioned(f.spec, templates), nil
}

func (f *VersionFilter) GetResourceTemplate(ctx context.Context, uriTemplate, version string, next GetTemplateNext) (*components.ResourceTemplate, error) {
	tmpl, err := next(ctx, uriTemplate, version)
	if err != nil || tmpl == nil {
		return tmpl, err
	}
	if !f.spec.Matches(tmpl.Version) {
		return nil, nil
	}
	return tmpl, nil
}

func (f *VersionFilter) ListPrompts(ctx context.Context, next ListPromptsNext) ([]*components.Prompt, error) {
	prompts, err := next(ctx)
	if err != nil {
		return nil, err
	}
	return keepVersioned(f.spec, prompts), nil
}

func (f *VersionFilter) GetPrompt(ctx context.Context, name, version string, next GetPromptNext) (*components.Prompt, error) {
	prompt, err := next(ctx, name, version)
	if err != nil || prompt == nil {
		return prompt, err
	}
	if !f.spec.Matches(prompt.Version) {
		return nil, nil
	}
	return prompt, nil
}
