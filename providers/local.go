package providers

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/strawgate/mcp-compose/components"
	"github.com/strawgate/mcp-compose/transforms"
	"github.com/strawgate/mcp-compose/versions"
)

// DuplicatePolicy controls what registration does when a component key is
// already taken.
type DuplicatePolicy string

const (
	// DuplicateError rejects the registration. The default.
	DuplicateError DuplicatePolicy = "error"
	// DuplicateWarn replaces the existing component and logs a warning.
	DuplicateWarn DuplicatePolicy = "warn"
	// DuplicateReplace replaces the existing component silently.
	DuplicateReplace DuplicatePolicy = "replace"
	// DuplicateIgnore keeps the existing component silently.
	DuplicateIgnore DuplicatePolicy = "ignore"
)

// registry stores one kind of component in insertion order, keyed by the
// canonical component key.
type registry[C components.Component] struct {
	order []string
	byKey map[string]C
	// versioned tracks per identifier whether entries carry versions, to
	// reject mixing versioned and unversioned registrations.
	versioned map[string]bool
}

func newRegistry[C components.Component]() *registry[C] {
	return &registry[C]{byKey: make(map[string]C), versioned: make(map[string]bool)}
}

func (r *registry[C]) add(c C, policy DuplicatePolicy, log *slog.Logger) error {
	meta := c.Common()
	id := c.Identifier()
	if hasVersioned, seen := r.versioned[id]; seen && hasVersioned != (meta.Version != "") {
		return fmt.Errorf("cannot mix versioned and unversioned registrations for %s %q",
			c.ComponentKind(), id)
	}
	key := c.Key()
	if _, exists := r.byKey[key]; exists {
		switch policy {
		case DuplicateIgnore:
			return nil
		case DuplicateReplace:
		case DuplicateWarn:
			log.Warn("replacing duplicate component", slog.String("key", key))
		default:
			return fmt.Errorf("component already registered: %s", key)
		}
		r.byKey[key] = c
		return nil
	}
	r.versioned[id] = meta.Version != ""
	r.order = append(r.order, key)
	r.byKey[key] = c
	return nil
}

func (r *registry[C]) remove(key string) bool {
	if _, ok := r.byKey[key]; !ok {
		return false
	}
	delete(r.byKey, key)
	for i, k := range r.order {
		if k == key {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

func (r *registry[C]) all() []C {
	out := make([]C, 0, len(r.order))
	for _, key := range r.order {
		out = append(out, r.byKey[key])
	}
	return out
}

// get resolves an identifier at a version; the empty version picks the
// highest registered one.
func (r *registry[C]) get(kind components.Kind, id, version string) (C, bool) {
	var zero C
	if version != "" {
		c, ok := r.byKey[components.MakeKey(kind, id, version)]
		return c, ok
	}
	if c, ok := r.byKey[components.MakeKey(kind, id, "")]; ok {
		return c, ok
	}
	var found []C
	var raws []string
	for _, key := range r.order {
		c := r.byKey[key]
		if c.Identifier() == id {
			found = append(found, c)
			raws = append(raws, c.Common().Version)
		}
	}
	if len(found) == 0 {
		return zero, false
	}
	return found[versions.Highest(raws)], true
}

// Local is the in-memory registry provider. Registration applies the
// duplicate policy; reads return clones so pipeline layers can rewrite
// them freely. Per-tool overrides registered with SetToolOverride are
// applied on the way out.
type Local struct {
	nopLifecycle

	mu        sync.RWMutex
	tools     *registry[*components.Tool]
	resources *registry[*components.Resource]
	templates *registry[*components.ResourceTemplate]
	prompts   *registry[*components.Prompt]
	overrides map[string]transforms.ToolOverride

	policy    DuplicatePolicy
	log       *slog.Logger
	notifiers map[components.Kind]*ChangeNotifier
}

// LocalOption customizes a Local provider.
type LocalOption func(*Local)

// WithDuplicatePolicy sets the registration collision policy.
func WithDuplicatePolicy(p DuplicatePolicy) LocalOption {
	return func(l *Local) { l.policy = p }
}

// WithLocalLogger sets the logger used for registration warnings.
func WithLocalLogger(log *slog.Logger) LocalOption {
	return func(l *Local) { l.log = log }
}

// NewLocal builds an empty registry provider.
func NewLocal(opts ...LocalOption) *Local {
	l := &Local{
		tools:     newRegistry[*components.Tool](),
		resources: newRegistry[*components.Resource](),
		templates: newRegistry[*components.ResourceTemplate](),
		prompts:   newRegistry[*components.Prompt](),
		overrides: make(map[string]transforms.ToolOverride),
		policy:    DuplicateError,
		log:       slog.Default(),
		notifiers: map[components.Kind]*ChangeNotifier{
			components.KindTool:     {},
			components.KindResource: {},
			components.KindTemplate: {},
			components.KindPrompt:   {},
		},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Notifier exposes the change notifier for one component kind.
func (l *Local) Notifier(kind components.Kind) *ChangeNotifier {
	return l.notifiers[kind]
}

func (l *Local) notify(kind components.Kind) {
	if n := l.notifiers[kind]; n != nil {
		go n.Notify()
	}
}

// AddTool registers a tool.
func (l *Local) AddTool(t *components.Tool) error {
	l.mu.Lock()
	err := l.tools.add(t, l.policy, l.log)
	l.mu.Unlock()
	if err != nil {
		return err
	}
	l.notify(components.KindTool)
	return nil
}

// RemoveTool removes a tool at a specific version key.
func (l *Local) RemoveTool(name, version string) bool {
	l.mu.Lock()
	ok := l.tools.remove(components.MakeKey(components.KindTool, name, version))
	l.mu.Unlock()
	if ok {
		l.notify(components.KindTool)
	}
	return ok
}

// AddResource registers a resource.
func (l *Local) AddResource(r *components.Resource) error {
	l.mu.Lock()
	err := l.resources.add(r, l.policy, l.log)
	l.mu.Unlock()
	if err != nil {
		return err
	}
	l.notify(components.KindResource)
	return nil
}

// RemoveResource removes a resource at a specific version key.
func (l *Local) RemoveResource(uri, version string) bool {
	l.mu.Lock()
	ok := l.resources.remove(components.MakeKey(components.KindResource, uri, version))
	l.mu.Unlock()
	if ok {
		l.notify(components.KindResource)
	}
	return ok
}

// AddResourceTemplate registers a resource template.
func (l *Local) AddResourceTemplate(t *components.ResourceTemplate) error {
	l.mu.Lock()
	err := l.templates.add(t, l.policy, l.log)
	l.mu.Unlock()
	if err != nil {
		return err
	}
	l.notify(components.KindTemplate)
	return nil
}

// RemoveResourceTemplate removes a template at a specific version key.
func (l *Local) RemoveResourceTemplate(uriTemplate, version string) bool {
	l.mu.Lock()
	ok := l.templates.remove(components.MakeKey(components.KindTemplate, uriTemplate, version))
	l.mu.Unlock()
	if ok {
		l.notify(components.KindTemplate)
	}
	return ok
}

// AddPrompt registers a prompt.
func (l *Local) AddPrompt(p *components.Prompt) error {
	l.mu.Lock()
	err := l.prompts.add(p, l.policy, l.log)
	l.mu.Unlock()
	if err != nil {
		return err
	}
	l.notify(components.KindPrompt)
	return nil
}

// RemovePrompt removes a prompt at a specific version key.
func (l *Local) RemovePrompt(name, version string) bool {
	l.mu.Lock()
	ok := l.prompts.remove(components.MakeKey(components.KindPrompt, name, version))
	l.mu.Unlock()
	if ok {
		l.notify(components.KindPrompt)
	}
	return ok
}

// SetToolOverride attaches a declarative rewrite to a registered tool
// name. It is validated against the tool on the way out, not here, since
// the tool may be re-registered.
func (l *Local) SetToolOverride(name string, ov transforms.ToolOverride) {
	l.mu.Lock()
	l.overrides[name] = ov
	l.mu.Unlock()
	l.notify(components.KindTool)
}

// applyOverride rewrites a tool if an override is registered under its
// stored name. Override failures surface as errors so misconfiguration is
// not silently hidden.
func (l *Local) applyOverride(t *components.Tool) (*components.Tool, error) {
	ov, ok := l.overrides[t.Name]
	if !ok {
		return t, nil
	}
	return ov.ApplyTo(t)
}

func (l *Local) ListTools(ctx context.Context) ([]*components.Tool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]*components.Tool, 0, len(l.tools.order))
	for _, t := range l.tools.all() {
		transformed, err := l.applyOverride(t.Clone())
		if err != nil {
			return nil, err
		}
		out = append(out, transformed)
	}
	return out, nil
}

func (l *Local) GetTool(ctx context.Context, name, version string) (*components.Tool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if t, ok := l.tools.get(components.KindTool, name, version); ok {
		return l.applyOverride(t.Clone())
	}
	// The requested name may be an override's exposed name.
	for _, t := range l.tools.all() {
		ov, has := l.overrides[t.Name]
		if !has {
			continue
		}
		transformed, err := ov.ApplyTo(t.Clone())
		if err != nil {
			return nil, err
		}
		if transformed.Name == name && (version == "" || transformed.Version == version) {
			return transformed, nil
		}
	}
	return nil, nil
}

func (l *Local) ListResources(ctx context.Context) ([]*components.Resource, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	all := l.resources.all()
	out := make([]*components.Resource, 0, len(all))
	for _, r := range all {
		out = append(out, r.Clone())
	}
	return out, nil
}

func (l *Local) GetResource(ctx context.Context, uri, version string) (*components.Resource, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if r, ok := l.resources.get(components.KindResource, uri, version); ok {
		return r.Clone(), nil
	}
	return nil, nil
}

func (l *Local) ListResourceTemplates(ctx context.Context) ([]*components.ResourceTemplate, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	all := l.templates.all()
	out := make([]*components.ResourceTemplate, 0, len(all))
	for _, t := range all {
		out = append(out, t.Clone())
	}
	return out, nil
}

// GetResourceTemplate resolves by exact template string first, then by
// matching the argument as a concrete URI against registered templates.
func (l *Local) GetResourceTemplate(ctx context.Context, uriTemplate, version string) (*components.ResourceTemplate, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if t, ok := l.templates.get(components.KindTemplate, uriTemplate, version); ok {
		return t.Clone(), nil
	}
	for _, t := range l.templates.all() {
		if version != "" && t.Version != version {
			continue
		}
		if _, ok := t.Match(uriTemplate); ok {
			return t.Clone(), nil
		}
	}
	return nil, nil
}

func (l *Local) ListPrompts(ctx context.Context) ([]*components.Prompt, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	all := l.prompts.all()
	out := make([]*components.Prompt, 0, len(all))
	for _, p := range all {
		out = append(out, p.Clone())
	}
	return out, nil
}

func (l *Local) GetPrompt(ctx context.Context, name, version string) (*components.Prompt, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if p, ok := l.prompts.get(components.KindPrompt, name, version); ok {
		return p.Clone(), nil
	}
	return nil, nil
}

// Tasks returns every registered component whose task config admits task
// execution. Visibility marks are not consulted.
func (l *Local) Tasks(ctx context.Context) (TaskComponents, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return TaskComponents{
		Tools:     filterSupportsTasks(l.tools.all()),
		Resources: filterSupportsTasks(l.resources.all()),
		Templates: filterSupportsTasks(l.templates.all()),
		Prompts:   filterSupportsTasks(l.prompts.all()),
	}, nil
}

// Close shuts down the change notifiers.
func (l *Local) Close(ctx context.Context) error {
	for _, n := range l.notifiers {
		n.Close()
	}
	return nil
}
