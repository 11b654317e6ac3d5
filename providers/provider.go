// Package providers implements the component sources of the composition
// pipeline: the in-memory registry, the concurrent aggregator, transform
// wrapping, nested-server mounting, remote-client proxying and filesystem
// discovery.
package providers

import (
	"context"

	"github.com/strawgate/mcp-compose/components"
)

// Provider is a source of components. Get operations take the identifier
// and a version; the empty version resolves the highest available. A get
// that finds nothing returns (nil, nil): absence is not an error inside
// the pipeline, only at the composition boundary.
//
// Start and Close bound the provider's lifespan. The composition server
// starts providers in registration order and closes them in reverse; a
// provider must tolerate Close without a prior successful Start.
type Provider interface {
	ListTools(ctx context.Context) ([]*components.Tool, error)
	GetTool(ctx context.Context, name, version string) (*components.Tool, error)
	ListResources(ctx context.Context) ([]*components.Resource, error)
	GetResource(ctx context.Context, uri, version string) (*components.Resource, error)
	ListResourceTemplates(ctx context.Context) ([]*components.ResourceTemplate, error)
	GetResourceTemplate(ctx context.Context, uriTemplate, version string) (*components.ResourceTemplate, error)
	ListPrompts(ctx context.Context) ([]*components.Prompt, error)
	GetPrompt(ctx context.Context, name, version string) (*components.Prompt, error)

	// Tasks returns the components eligible for background task execution,
	// regardless of visibility marks.
	Tasks(ctx context.Context) (TaskComponents, error)

	Start(ctx context.Context) error
	Close(ctx context.Context) error
}

// TaskComponents groups the task-eligible components by kind.
type TaskComponents struct {
	Tools     []*components.Tool
	Resources []*components.Resource
	Templates []*components.ResourceTemplate
	Prompts   []*components.Prompt
}

// Merge appends another set in place.
func (tc *TaskComponents) Merge(other TaskComponents) {
	tc.Tools = append(tc.Tools, other.Tools...)
	tc.Resources = append(tc.Resources, other.Resources...)
	tc.Templates = append(tc.Templates, other.Templates...)
	tc.Prompts = append(tc.Prompts, other.Prompts...)
}

// filterSupportsTasks keeps only components whose task config admits task
// execution.
func filterSupportsTasks[C components.Component](in []C) []C {
	var out []C
	for _, c := range in {
		if c.Common().Task.SupportsTasks() {
			out = append(out, c)
		}
	}
	return out
}

// nopLifecycle provides no-op Start/Close for providers without resources
// to manage.
type nopLifecycle struct{}

func (nopLifecycle) Start(context.Context) error { return nil }
func (nopLifecycle) Close(context.Context) error { return nil }
