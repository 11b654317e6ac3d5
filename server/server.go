package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/strawgate/mcp-compose/components"
	"github.com/strawgate/mcp-compose/providers"
	"github.com/strawgate/mcp-compose/settings"
	"github.com/strawgate/mcp-compose/transforms"
)

// LifespanFunc brackets user setup around the server's serving period. It
// runs during Start and returns the matching cleanup, which runs during
// Close in reverse registration order. A nil cleanup is allowed.
type LifespanFunc func(ctx context.Context) (cleanup func(ctx context.Context) error, err error)

// Server composes an ordered list of providers behind a transform chain
// into one merged, deduplicated, visibility-filtered component catalog.
// The first provider is always the server's own in-memory registry; the
// rest are added explicitly or mounted from other servers.
type Server struct {
	name         string
	version      string
	instructions string

	log      *slog.Logger
	settings settings.Settings

	mu        sync.RWMutex
	local     *providers.Local
	providers []providers.Provider
	chain     []transforms.Transform
	vis       *visibility

	lifespans []LifespanFunc
	cleanups  []func(ctx context.Context) error
	started   []providers.Provider
	running   bool

	notifiers map[components.Kind]*providers.ChangeNotifier

	policy    providers.DuplicatePolicy
	policySet bool
}

// Option configures a Server at construction time.
type Option func(*Server)

// WithVersion sets the server's own advertised version.
func WithVersion(version string) Option {
	return func(s *Server) { s.version = version }
}

// WithInstructions sets human-readable usage instructions.
func WithInstructions(instructions string) Option {
	return func(s *Server) { s.instructions = instructions }
}

// WithLogger sets the logger shared by the server and its aggregation
// layer.
func WithLogger(log *slog.Logger) Option {
	return func(s *Server) { s.log = log }
}

// WithSettings overrides the environment-derived settings.
func WithSettings(cfg settings.Settings) Option {
	return func(s *Server) { s.settings = cfg }
}

// WithDuplicatePolicy sets the local registry's collision policy,
// overriding the settings value.
func WithDuplicatePolicy(p providers.DuplicatePolicy) Option {
	return func(s *Server) { s.policy = p; s.policySet = true }
}

// WithProviders appends providers after the local registry.
func WithProviders(ps ...providers.Provider) Option {
	return func(s *Server) { s.providers = append(s.providers, ps...) }
}

// WithTransforms appends transforms to the server chain. The last one
// registered is the outermost layer.
func WithTransforms(ts ...transforms.Transform) Option {
	return func(s *Server) { s.chain = append(s.chain, ts...) }
}

// WithLifespan registers a user setup/teardown hook.
func WithLifespan(fn LifespanFunc) Option {
	return func(s *Server) { s.lifespans = append(s.lifespans, fn) }
}

// New builds a composition server. Settings default from the
// MCPCOMPOSE_* environment; options are applied on top.
func New(name string, opts ...Option) *Server {
	cfg, err := settings.FromEnv()
	if err != nil {
		cfg = settings.Default()
	}
	s := &Server{
		name:     name,
		log:      slog.Default(),
		settings: cfg,
		vis:      newVisibility(),
		notifiers: map[components.Kind]*providers.ChangeNotifier{
			components.KindTool:     {},
			components.KindResource: {},
			components.KindTemplate: {},
			components.KindPrompt:   {},
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	if !s.policySet {
		s.policy = providers.DuplicatePolicy(s.settings.OnDuplicate)
	}
	s.local = providers.NewLocal(
		providers.WithDuplicatePolicy(s.policy),
		providers.WithLocalLogger(s.log),
	)
	s.providers = append([]providers.Provider{s.local}, s.providers...)
	return s
}

// Name returns the server's name.
func (s *Server) Name() string { return s.name }

// Version returns the server's own version string.
func (s *Server) Version() string { return s.version }

// Instructions returns the usage instructions, if any.
func (s *Server) Instructions() string { return s.instructions }

func (s *Server) notify(kind components.Kind) {
	if n := s.notifiers[kind]; n != nil {
		go n.Notify()
	}
}

// Subscribe returns a channel that receives a signal whenever the
// catalog of the given kind may have changed. The transport layer turns
// this into list-changed notifications.
func (s *Server) Subscribe(kind components.Kind) <-chan struct{} {
	return s.notifiers[kind].Subscriber()
}

// AddTool registers a tool in the server's local registry.
func (s *Server) AddTool(t *components.Tool) error {
	if err := s.local.AddTool(t); err != nil {
		return err
	}
	s.notify(components.KindTool)
	return nil
}

// RemoveTool removes a locally registered tool at a version key.
func (s *Server) RemoveTool(name, version string) bool {
	ok := s.local.RemoveTool(name, version)
	if ok {
		s.notify(components.KindTool)
	}
	return ok
}

// AddResource registers a resource in the local registry.
func (s *Server) AddResource(r *components.Resource) error {
	if err := s.local.AddResource(r); err != nil {
		return err
	}
	s.notify(components.KindResource)
	return nil
}

// RemoveResource removes a locally registered resource at a version key.
func (s *Server) RemoveResource(uri, version string) bool {
	ok := s.local.RemoveResource(uri, version)
	if ok {
		s.notify(components.KindResource)
	}
	return ok
}

// AddResourceTemplate registers a resource template in the local
// registry.
func (s *Server) AddResourceTemplate(t *components.ResourceTemplate) error {
	if err := s.local.AddResourceTemplate(t); err != nil {
		return err
	}
	s.notify(components.KindTemplate)
	return nil
}

// RemoveResourceTemplate removes a locally registered template.
func (s *Server) RemoveResourceTemplate(uriTemplate, version string) bool {
	ok := s.local.RemoveResourceTemplate(uriTemplate, version)
	if ok {
		s.notify(components.KindTemplate)
	}
	return ok
}

// AddPrompt registers a prompt in the local registry.
func (s *Server) AddPrompt(p *components.Prompt) error {
	if err := s.local.AddPrompt(p); err != nil {
		return err
	}
	s.notify(components.KindPrompt)
	return nil
}

// RemovePrompt removes a locally registered prompt at a version key.
func (s *Server) RemovePrompt(name, version string) bool {
	ok := s.local.RemovePrompt(name, version)
	if ok {
		s.notify(components.KindPrompt)
	}
	return ok
}

// SetToolOverride attaches a declarative rewrite to a locally registered
// tool.
func (s *Server) SetToolOverride(name string, ov transforms.ToolOverride) {
	s.local.SetToolOverride(name, ov)
	s.notify(components.KindTool)
}

// AddProvider appends a provider to the composition. Providers added
// after Start are not retroactively started.
func (s *Server) AddProvider(p providers.Provider) {
	s.mu.Lock()
	s.providers = append(s.providers, p)
	s.mu.Unlock()
	for kind := range s.notifiers {
		s.notify(kind)
	}
}

// AddTransform appends a transform to the server chain. The newest
// transform becomes the outermost layer.
func (s *Server) AddTransform(t transforms.Transform) {
	s.mu.Lock()
	s.chain = append(s.chain, t)
	s.mu.Unlock()
	for kind := range s.notifiers {
		s.notify(kind)
	}
}

// Mount attaches another composition server as a provider. A non-empty
// ns prefixes the mounted server's component names and URIs; an empty ns
// mounts it unprefixed. The mounted server keeps its own transform
// pipeline for every operation that flows through the mount.
func (s *Server) Mount(sub *Server, ns string) error {
	var p providers.Provider = providers.NewServerProvider(sub)
	if ns != "" {
		namespaced, err := providers.WithNamespace(p, ns)
		if err != nil {
			return fmt.Errorf("mount %q: %w", ns, err)
		}
		p = namespaced
	}
	s.AddProvider(p)
	return nil
}

// Enable marks keys and tags as explicitly enabled. With only set, the
// boundary switches to allowlist mode: components must match an enabled
// key or tag to be visible. Disabled entries always win over enabled
// ones.
func (s *Server) Enable(keys, tags []string, only bool) {
	kinds := s.vis.enable(keys, tags, only)
	for _, kind := range kinds {
		s.notify(kind)
	}
}

// Disable marks keys and tags as blocked at the boundary.
func (s *Server) Disable(keys, tags []string) {
	kinds := s.vis.disable(keys, tags)
	for _, kind := range kinds {
		s.notify(kind)
	}
}

// Tasks returns every task-eligible component across the local registry
// and all providers, bypassing the transform chain and visibility
// filter. The union is flat: the task engine sees every version.
func (s *Server) Tasks(ctx context.Context) (providers.TaskComponents, error) {
	s.mu.RLock()
	ps := append([]providers.Provider(nil), s.providers...)
	s.mu.RUnlock()

	var out providers.TaskComponents
	for i, p := range ps {
		set, err := p.Tasks(ctx)
		if err != nil {
			s.log.Debug("provider skipped during task collection",
				slog.Int("provider", i),
				slog.String("error", err.Error()),
			)
			continue
		}
		out.Merge(set)
	}
	return out, nil
}

// Start runs lifespan hooks in registration order, then starts providers
// in order. On failure everything already entered is released in reverse
// before the error returns.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return errors.New("server already started")
	}
	for _, fn := range s.lifespans {
		cleanup, err := fn(ctx)
		if err != nil {
			return errors.Join(err, s.releaseLocked(ctx))
		}
		if cleanup != nil {
			s.cleanups = append(s.cleanups, cleanup)
		}
	}
	for _, p := range s.providers {
		if err := p.Start(ctx); err != nil {
			return errors.Join(err, s.releaseLocked(ctx))
		}
		s.started = append(s.started, p)
	}
	s.running = true
	return nil
}

// Close tears providers down in reverse start order, then runs lifespan
// cleanups in reverse. It is idempotent: a second Close is a no-op.
func (s *Server) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.releaseLocked(ctx)
	s.running = false
	return err
}

func (s *Server) releaseLocked(ctx context.Context) error {
	var errs []error
	for i := len(s.started) - 1; i >= 0; i-- {
		if err := s.started[i].Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	s.started = nil
	for i := len(s.cleanups) - 1; i >= 0; i-- {
		if err := s.cleanups[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	s.cleanups = nil
	return errors.Join(errs...)
}

// Interface compliance with the surfaces providers and transforms expect
// from a composition boundary.
var (
	_ providers.MountableServer = (*Server)(nil)
	_ transforms.CatalogSource  = (*Server)(nil)
)
