package transforms

import (
	"context"
	"strings"

	"github.com/strawgate/mcp-compose/components"
	"github.com/strawgate/mcp-compose/versions"
)

// Enabled marks matching components as enabled or disabled. It never
// removes anything from a result: marks accumulate through the pipeline
// (last writer wins) and the composition boundary filters once at the end,
// so a later layer can re-enable what an earlier one disabled.
//
// Criteria are conjunctive. An Enabled with no criteria matches nothing
// unless MatchAll is given; a transform that silently matched everything
// would be a foot-gun.
type Enabled struct {
	Passthrough

	enabled  bool
	names    map[string]struct{}
	keys     map[string]struct{}
	tags     []string
	kinds    map[components.Kind]struct{}
	version  *versions.Spec
	matchAll bool
}

// EnabledOption adds a match criterion.
type EnabledOption func(*Enabled)

// MatchNames matches components by identifier (tool/prompt name, resource
// URI, template URI template).
func MatchNames(names ...string) EnabledOption {
	return func(e *Enabled) {
		if e.names == nil {
			e.names = make(map[string]struct{}, len(names))
		}
		for _, n := range names {
			e.names[n] = struct{}{}
		}
	}
}

// MatchKeys matches canonical component keys. A key ending in "@" (no
// version) matches every version of that component.
func MatchKeys(keys ...string) EnabledOption {
	return func(e *Enabled) {
		if e.keys == nil {
			e.keys = make(map[string]struct{}, len(keys))
		}
		for _, k := range keys {
			e.keys[k] = struct{}{}
		}
	}
}

// MatchTags matches components carrying any of the given tags.
func MatchTags(tags ...string) EnabledOption {
	return func(e *Enabled) { e.tags = append(e.tags, tags...) }
}

// MatchKinds restricts matching to the given component kinds.
func MatchKinds(kinds ...components.Kind) EnabledOption {
	return func(e *Enabled) {
		if e.kinds == nil {
			e.kinds = make(map[components.Kind]struct{}, len(kinds))
		}
		for _, k := range kinds {
			e.kinds[k] = struct{}{}
		}
	}
}

// MatchVersion matches components whose version satisfies the spec.
func MatchVersion(spec *versions.Spec) EnabledOption {
	return func(e *Enabled) { e.version = spec }
}

// MatchAll matches every component.
func MatchAll() EnabledOption {
	return func(e *Enabled) { e.matchAll = true }
}

// NewEnabled builds the marking transform. enabled is the mark written to
// every matching component.
func NewEnabled(enabled bool, opts ...EnabledOption) *Enabled {
	e := &Enabled{enabled: enabled}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Enabled) matches(c components.Component) bool {
	if e.matchAll {
		return true
	}
	if e.names == nil && e.keys == nil && e.tags == nil && e.kinds == nil && e.version == nil {
		return false
	}
	if e.kinds != nil {
		if _, ok := e.kinds[c.ComponentKind()]; !ok {
			return false
		}
	}
	if e.names != nil {
		if _, ok := e.names[c.Identifier()]; !ok {
			return false
		}
	}
	if e.keys != nil && !e.matchesKey(c) {
		return false
	}
	if e.version != nil && !e.version.Matches(c.Common().Version) {
		return false
	}
	if e.tags != nil {
		found := false
		for _, tag := range e.tags {
			if c.Common().HasTag(tag) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (e *Enabled) matchesKey(c components.Component) bool {
	if _, ok := e.keys[c.Key()]; ok {
		return true
	}
	// Versionless criterion key matches every version.
	anyVersion := string(c.ComponentKind()) + ":" + c.Identifier() + "@"
	if !strings.HasSuffix(c.Key(), "@") {
		if _, ok := e.keys[anyVersion]; ok {
			return true
		}
	}
	return false
}

func (e *Enabled) mark(c components.Component) {
	if e.matches(c) {
		c.Common().SetEnabled(e.enabled)
	}
}

func (e *Enabled) ListTools(ctx context.Context, next ListToolsNext) ([]*components.Tool, error) {
	tools, err := next(ctx)
	if err != nil {
		return nil, err
	}
	for _, t := range tools {
		e.mark(t)
	}
	return tools, nil
}

func (e *Enabled) GetTool(ctx context.Context, name, version string, next GetToolNext) (*components.Tool, error) {
	tool, err := next(ctx, name, version)
	if err != nil || tool == nil {
		return tool, err
	}
	e.mark(tool)
	return tool, nil
}

func (e *Enabled) ListResources(ctx context.Context, next ListResourcesNext) ([]*components.Resource, error) {
	resources, err := next(ctx)
	if err != nil {
		return nil, err
	}
	for _, r := range resources {
		e.mark(r)
	}
	return resources, nil
}

func (e *Enabled) GetResource(ctx context.Context, uri, version string, next GetResourceNext) (*components.Resource, error) {
	res, err := next(ctx, uri, version)
	if err != nil || res == nil {
		return res, err
	}
	e.mark(res)
	return res, nil
}

func (e *Enabled) ListResourceTemplates(ctx context.Context, next ListTemplatesNext) ([]*components.ResourceTemplate, error) {
	templates, err := next(ctx)
	if err != nil {
		return nil, err
	}
	for _, t := range templates {
		e.mark(t)
	}
	return templates, nil
}

func (e *Enabled) GetResourceTemplate(ctx context.Context, uriTemplate, version string, next GetTemplateNext) (*components.ResourceTemplate, error) {
	tmpl, err := next(ctx, uriTemplate, version)
	if err != nil || tmpl == nil {
		return tmpl, err
	}
	e.mark(tmpl)
	return tmpl, nil
}

func (e *Enabled) ListPrompts(ctx context.Context, next ListPromptsNext) ([]*components.Prompt, error) {
	prompts, err := next(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range prompts {
		e.mark(p)
	}
	return prompts, nil
}

func (e *Enabled) GetPrompt(ctx context.Context, name, version string, next GetPromptNext) (*components.Prompt, error) {
	prompt, err := next(ctx, name, version)
	if err != nil || prompt == nil {
		return prompt, err
	}
	e.mark(prompt)
	return prompt, nil
}
