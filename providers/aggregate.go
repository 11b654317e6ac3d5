package providers

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/strawgate/mcp-compose/components"
	"github.com/strawgate/mcp-compose/versions"
)

// gather runs fn once per provider concurrently, preserving input order.
// Failures are captured per slot, never propagated through the group, so
// one failing provider cannot cancel its siblings.
func gather[R any](ctx context.Context, ps []Provider, fn func(ctx context.Context, p Provider) (R, error)) ([]R, []error) {
	results := make([]R, len(ps))
	errs := make([]error, len(ps))
	g, ctx := errgroup.WithContext(ctx)
	for i, p := range ps {
		i, p := i, p
		g.Go(func() error {
			results[i], errs[i] = fn(ctx, p)
			return nil
		})
	}
	_ = g.Wait()
	return results, errs
}

// Aggregate fans every operation out over its children concurrently.
// Listing concatenates successful results in child order and skips failed
// children; gets resolve against every child and pick the highest version
// among the hits. A child failure is logged at debug level and otherwise
// ignored: aggregation degrades, it does not fail.
type Aggregate struct {
	children []Provider
	log      *slog.Logger

	started []Provider
}

// AggregateOption customizes an Aggregate.
type AggregateOption func(*Aggregate)

// WithAggregateLogger sets the logger for degraded-child reporting.
func WithAggregateLogger(log *slog.Logger) AggregateOption {
	return func(a *Aggregate) { a.log = log }
}

// NewAggregate builds an aggregate over the given children.
func NewAggregate(children []Provider, opts ...AggregateOption) *Aggregate {
	a := &Aggregate{children: children, log: slog.Default()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Providers returns the child list in order.
func (a *Aggregate) Providers() []Provider { return a.children }

func (a *Aggregate) debugSkip(op string, idx int, err error) {
	if err == nil || components.IsNotFound(err) {
		return
	}
	a.log.Debug("provider skipped during aggregation",
		slog.String("op", op),
		slog.Int("provider", idx),
		slog.String("error", err.Error()),
	)
}

func concatLists[C any](a *Aggregate, op string, lists [][]C, errs []error) []C {
	var out []C
	for i, list := range lists {
		if errs[i] != nil {
			a.debugSkip(op, i, errs[i])
			continue
		}
		out = append(out, list...)
	}
	return out
}

// pickHighest selects the successful hit with the highest version. Misses
// (nil results) and failures are skipped.
func pickHighest[C components.Component](a *Aggregate, op string, hits []C, errs []error, isNil func(C) bool) C {
	var zero C
	var candidates []C
	var raws []string
	for i, hit := range hits {
		if errs[i] != nil {
			a.debugSkip(op, i, errs[i])
			continue
		}
		if isNil(hit) {
			continue
		}
		candidates = append(candidates, hit)
		raws = append(raws, hit.Common().Version)
	}
	if len(candidates) == 0 {
		return zero
	}
	return candidates[versions.Highest(raws)]
}

func (a *Aggregate) ListTools(ctx context.Context) ([]*components.Tool, error) {
	lists, errs := gather(ctx, a.children, func(ctx context.Context, p Provider) ([]*components.Tool, error) {
		return p.ListTools(ctx)
	})
	return concatLists(a, "tools/list", lists, errs), nil
}

func (a *Aggregate) GetTool(ctx context.Context, name, version string) (*components.Tool, error) {
	hits, errs := gather(ctx, a.children, func(ctx context.Context, p Provider) (*components.Tool, error) {
		return p.GetTool(ctx, name, version)
	})
	return pickHighest(a, "tools/get", hits, errs, func(t *components.Tool) bool { return t == nil }), nil
}

func (a *Aggregate) ListResources(ctx context.Context) ([]*components.Resource, error) {
	lists, errs := gather(ctx, a.children, func(ctx context.Context, p Provider) ([]*components.Resource, error) {
		return p.ListResources(ctx)
	})
	return concatLists(a, "resources/list", lists, errs), nil
}

func (a *Aggregate) GetResource(ctx context.Context, uri, version string) (*components.Resource, error) {
	hits, errs := gather(ctx, a.children, func(ctx context.Context, p Provider) (*components.Resource, error) {
		return p.GetResource(ctx, uri, version)
	})
	return pickHighest(a, "resources/get", hits, errs, func(r *components.Resource) bool { return r == nil }), nil
}

func (a *Aggregate) ListResourceTemplates(ctx context.Context) ([]*components.ResourceTemplate, error) {
	lists, errs := gather(ctx, a.children, func(ctx context.Context, p Provider) ([]*components.ResourceTemplate, error) {
		return p.ListResourceTemplates(ctx)
	})
	return concatLists(a, "templates/list", lists, errs), nil
}

func (a *Aggregate) GetResourceTemplate(ctx context.Context, uriTemplate, version string) (*components.ResourceTemplate, error) {
	hits, errs := gather(ctx, a.children, func(ctx context.Context, p Provider) (*components.ResourceTemplate, error) {
		return p.GetResourceTemplate(ctx, uriTemplate, version)
	})
	return pickHighest(a, "templates/get", hits, errs, func(t *components.ResourceTemplate) bool { return t == nil }), nil
}

func (a *Aggregate) ListPrompts(ctx context.Context) ([]*components.Prompt, error) {
	lists, errs := gather(ctx, a.children, func(ctx context.Context, p Provider) ([]*components.Prompt, error) {
		return p.ListPrompts(ctx)
	})
	return concatLists(a, "prompts/list", lists, errs), nil
}

func (a *Aggregate) GetPrompt(ctx context.Context, name, version string) (*components.Prompt, error) {
	hits, errs := gather(ctx, a.children, func(ctx context.Context, p Provider) (*components.Prompt, error) {
		return p.GetPrompt(ctx, name, version)
	})
	return pickHighest(a, "prompts/get", hits, errs, func(p *components.Prompt) bool { return p == nil }), nil
}

// Tasks is the flat union of every child's task components. It is not
// version-deduplicated: the task engine owns that decision.
func (a *Aggregate) Tasks(ctx context.Context) (TaskComponents, error) {
	sets, errs := gather(ctx, a.children, func(ctx context.Context, p Provider) (TaskComponents, error) {
		return p.Tasks(ctx)
	})
	var out TaskComponents
	for i, set := range sets {
		if errs[i] != nil {
			a.debugSkip("tasks", i, errs[i])
			continue
		}
		out.Merge(set)
	}
	return out, nil
}

// Start enters children in order. On failure the already-started children
// are closed in reverse before the error is returned.
func (a *Aggregate) Start(ctx context.Context) error {
	for _, p := range a.children {
		if err := p.Start(ctx); err != nil {
			closeErr := a.closeStarted(ctx)
			return errors.Join(err, closeErr)
		}
		a.started = append(a.started, p)
	}
	return nil
}

// Close tears started children down in reverse order, always visiting all
// of them.
func (a *Aggregate) Close(ctx context.Context) error {
	return a.closeStarted(ctx)
}

func (a *Aggregate) closeStarted(ctx context.Context) error {
	var errs []error
	for i := len(a.started) - 1; i >= 0; i-- {
		if err := a.started[i].Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.started = nil
	return errors.Join(errs...)
}
