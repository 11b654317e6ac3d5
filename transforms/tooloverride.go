package transforms

import (
	"context"
	"fmt"
	"slices"

	"github.com/strawgate/mcp-compose/components"
	"github.com/strawgate/mcp-compose/mcp"
)

// Override is a three-state field override: inherit the wrapped value (the
// zero Override), set a new value, or clear the value to its zero.
type Override[T any] struct {
	mode  uint8 // 0 inherit, 1 set, 2 clear
	value T
}

// Set returns an Override that replaces the wrapped value.
func Set[T any](v T) Override[T] { return Override[T]{mode: 1, value: v} }

// Clear returns an Override that zeroes the wrapped value.
func Clear[T any]() Override[T] { return Override[T]{mode: 2} }

// Apply resolves the override against the wrapped value.
func (o Override[T]) Apply(current T) T {
	switch o.mode {
	case 1:
		return o.value
	case 2:
		var zero T
		return zero
	default:
		return current
	}
}

func (o Override[T]) isSet() bool { return o.mode == 1 }

// ArgOverride rewrites a single tool argument. Rename changes the exposed
// name; Hide removes the argument from the schema (a hidden argument that
// the tool requires must carry a Default, injected at call time);
// Description and DefaultValue adjust the exposed schema.
type ArgOverride struct {
	Rename      string
	Hide        bool
	Default     any
	Description Override[string]
}

// ToolOverride is a declarative rewrite of one tool: descriptor fields,
// enabled mark and per-argument adjustments. The zero value inherits
// everything.
type ToolOverride struct {
	Name        Override[string]
	Title       Override[string]
	Description Override[string]
	Tags        Override[[]string]
	Meta        Override[map[string]any]
	Enabled     Override[bool]
	Arguments   map[string]ArgOverride
}

// Validate checks that the override can be applied to the given tool:
// referenced arguments must exist, renames must not collide, and a hidden
// required argument must have a default to inject.
func (o ToolOverride) Validate(t *components.Tool) error {
	exposed := make(map[string]string)
	for arg, ov := range o.Arguments {
		if _, ok := t.InputSchema.Properties[arg]; !ok {
			return fmt.Errorf("tool %q has no argument %q", t.Name, arg)
		}
		if ov.Hide && ov.Default == nil && slices.Contains(t.InputSchema.Required, arg) {
			return fmt.Errorf("tool %q: hidden required argument %q needs a default", t.Name, arg)
		}
		name := arg
		if ov.Rename != "" {
			name = ov.Rename
		}
		if prev, dup := exposed[name]; dup {
			return fmt.Errorf("tool %q: arguments %q and %q both exposed as %q", t.Name, prev, arg, name)
		}
		exposed[name] = arg
	}
	return nil
}

// ApplyTo produces the rewritten tool. The input is cloned; the returned
// tool's handler maps exposed argument names back to the wrapped names and
// injects defaults for hidden arguments before delegating.
func (o ToolOverride) ApplyTo(t *components.Tool) (*components.Tool, error) {
	if err := o.Validate(t); err != nil {
		return nil, err
	}
	out := t.Clone()
	out.Name = o.Name.Apply(out.Name)
	out.Title = o.Title.Apply(out.Title)
	out.Description = o.Description.Apply(out.Description)
	out.Tags = o.Tags.Apply(out.Tags)
	out.Meta = o.Meta.Apply(out.Meta)
	if o.Enabled.isSet() {
		out.SetEnabled(o.Enabled.Apply(true))
	}

	if len(o.Arguments) == 0 {
		return out, nil
	}

	// Rewrite the schema: drop hidden args, rename exposed ones.
	props := make(map[string]mcp.SchemaProperty, len(out.InputSchema.Properties))
	var required []string
	renamedTo := make(map[string]string)	// wrapped -> exposed
	hiddenDefaults := make(map[string]any)	// wrapped -> default
	for name, prop := range out.InputSchema.Properties {
		ov, has := o.Arguments[name]
		if has && ov.Hide {
			if ov.Default != nil {
				hiddenDefaults[name] = ov.Default
			}
			continue
		}
		exposedName := name
		if has {
			if ov.Rename != "" {
				exposedName = ov.Rename
				renamedTo[name] = exposedName
			}
			prop.Description = ov.Description.Apply(prop.Description)
			if ov.Default != nil {
				prop.Default = ov.Default
			}
		}
		props[exposedName] = prop
	}
	for _, req := range out.InputSchema.Required {
		if ov, has := o.Arguments[req]; has {
			if ov.Hide {
				continue
			}
			if ov.Default != nil {
				// A visible default makes the argument optional.
				continue
			}
			if ov.Rename != "" {
				req = ov.Rename
			}
		}
		required = append(required, req)
	}
	out.InputSchema.Properties = props
	out.InputSchema.Required = required

	inner := t.Handler
	out.Handler = func(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
		mapped := make(map[string]any, len(args)+len(hiddenDefaults))
		for k, v := range args {
			mapped[k] = v
		}
		for wrapped, exposedName := range renamedTo {
			if v, ok := mapped[exposedName]; ok {
				delete(mapped, exposedName)
				mapped[wrapped] = v
			}
		}
		for wrapped, def := range hiddenDefaults {
			if _, ok := mapped[wrapped]; !ok {
				mapped[wrapped] = def
			}
		}
		for name, ov := range o.Arguments {
			if ov.Hide {
				continue
			}
			if ov.Default == nil {
				continue
			}
			if _, ok := mapped[name]; !ok {
				mapped[name] = ov.Default
			}
		}
		return inner(ctx, mapped)
	}
	return out, nil
}
