// Package transforms implements the middleware layer of the composition
// pipeline. A Transform wraps the eight catalog operations (list and get
// for each component kind), receiving the downstream continuation as an
// explicit next argument. Transforms rewrite, mark or synthesize
// components; they never filter visibility themselves, that happens once
// at the composition boundary.
package transforms

import (
	"context"

	"github.com/strawgate/mcp-compose/components"
)

// Continuations passed to each transform hook. A get continuation takes
// the identifier and the requested version; the empty version means
// "highest available".
type (
	ListToolsNext     func(ctx context.Context) ([]*components.Tool, error)
	GetToolNext       func(ctx context.Context, name, version string) (*components.Tool, error)
	ListResourcesNext func(ctx context.Context) ([]*components.Resource, error)
	GetResourceNext   func(ctx context.Context, uri, version string) (*components.Resource, error)
	ListTemplatesNext func(ctx context.Context) ([]*components.ResourceTemplate, error)
	GetTemplateNext   func(ctx context.Context, uriTemplate, version string) (*components.ResourceTemplate, error)
	ListPromptsNext   func(ctx context.Context) ([]*components.Prompt, error)
	GetPromptNext     func(ctx context.Context, name, version string) (*components.Prompt, error)
)

// Transform is one layer of the pipeline. Implementations usually embed
// Passthrough and override the hooks they care about.
type Transform interface {
	ListTools(ctx context.Context, next ListToolsNext) ([]*components.Tool, error)
	GetTool(ctx context.Context, name, version string, next GetToolNext) (*components.Tool, error)
	ListResources(ctx context.Context, next ListResourcesNext) ([]*components.Resource, error)
	GetResource(ctx context.Context, uri, version string, next GetResourceNext) (*components.Resource, error)
	ListResourceTemplates(ctx context.Context, next ListTemplatesNext) ([]*components.ResourceTemplate, error)
	GetResourceTemplate(ctx context.Context, uriTemplate, version string, next GetTemplateNext) (*components.ResourceTemplate, error)
	ListPrompts(ctx context.Context, next ListPromptsNext) ([]*components.Prompt, error)
	GetPrompt(ctx context.Context, name, version string, next GetPromptNext) (*components.Prompt, error)
}

// Passthrough implements Transform by delegating every hook downstream.
type Passthrough struct{}

func (Passthrough) ListTools(ctx context.Context, next ListToolsNext) ([]*components.Tool, error) {
	return next(ctx)
}

func (Passthrough) GetTool(ctx context.Context, name, version string, next GetToolNext) (*components.Tool, error) {
	return next(ctx, name, version)
}

func (Passthrough) ListResources(ctx context.Context, next ListResourcesNext) ([]*components.Resource, error) {
	return next(ctx)
}

func (Passthrough) GetResource(ctx context.Context, uri, version string, next GetResourceNext) (*components.Resource, error) {
	return next(ctx, uri, version)
}

func (Passthrough) ListResourceTemplates(ctx context.Context, next ListTemplatesNext) ([]*components.ResourceTemplate, error) {
	return next(ctx)
}

func (Passthrough) GetResourceTemplate(ctx context.Context, uriTemplate, version string, next GetTemplateNext) (*components.ResourceTemplate, error) {
	return next(ctx, uriTemplate, version)
}

func (Passthrough) ListPrompts(ctx context.Context, next ListPromptsNext) ([]*components.Prompt, error) {
	return next(ctx)
}

func (Passthrough) GetPrompt(ctx context.Context, name, version string, next GetPromptNext) (*components.Prompt, error) {
	return next(ctx, name, version)
}

// Chain helpers fold a transform stack over a base continuation. The
// transform registered last becomes the outermost layer, so its output is
// what the public operation returns.

func ChainListTools(ts []Transform, base ListToolsNext) ListToolsNext {
	next := base
	for _, t := range ts {
		t, inner := t, next
		next = func(ctx context.Context) ([]*components.Tool, error) {
			return t.ListTools(ctx, inner)
		}
	}
	return next
}

func ChainGetTool(ts []Transform, base GetToolNext) GetToolNext {
	next := base
	for _, t := range ts {
		t, inner := t, next
		next = func(ctx context.Context, name, version string) (*components.Tool, error) {
			return t.GetTool(ctx, name, version, inner)
		}
	}
	return next
}

func ChainListResources(ts []Transform, base ListResourcesNext) ListResourcesNext {
	next := base
	for _, t := range ts {
		t, inner := t, next
		next = func(ctx context.Context) ([]*components.Resource, error) {
			return t.ListResources(ctx, inner)
		}
	}
	return next
}

func ChainGetResource(ts []Transform, base GetResourceNext) GetResourceNext {
	next := base
	for _, t := range ts {
		t, inner := t, next
		next = func(ctx context.Context, uri, version string) (*components.Resource, error) {
			return t.GetResource(ctx, uri, version, inner)
		}
	}
	return next
}

func ChainListTemplates(ts []Transform, base ListTemplatesNext) ListTemplatesNext {
	next := base
	for _, t := range ts {
		t, inner := t, next
		next = func(ctx context.Context) ([]*components.ResourceTemplate, error) {
			return t.ListResourceTemplates(ctx, inner)
		}
	}
	return next
}

func ChainGetTemplate(ts []Transform, base GetTemplateNext) GetTemplateNext {
	next := base
	for _, t := range ts {
		t, inner := t, next
		next = func(ctx context.Context, uriTemplate, version string) (*components.ResourceTemplate, error) {
			return t.GetResourceTemplate(ctx, uriTemplate, version, inner)
		}
	}
	return next
}

func ChainListPrompts(ts []Transform, base ListPromptsNext) ListPromptsNext {
	next := base
	for _, t := range ts {
		t, inner := t, next
		next = func(ctx context.Context) ([]*components.Prompt, error) {
			return t.ListPrompts(ctx, inner)
		}
	}
	return next
}

func ChainGetPrompt(ts []Transform, base GetPromptNext) GetPromptNext {
	next := base
	for _, t := range ts {
		t, inner := t, next
		next = func(ctx context.Context, name, version string) (*components.Prompt, error) {
			return t.GetPrompt(ctx, name, version, inner)
		}
	}
	return next
}
