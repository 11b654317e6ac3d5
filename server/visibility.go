package server

import (
	"sync"

	"github.com/strawgate/mcp-compose/components"
)

// visibility is the boundary's blocklist/allowlist state. Transforms mark
// components in flight; this state applies on top of those marks, once,
// when results leave the server. Disabled entries always win.
type visibility struct {
	mu sync.RWMutex

	disabledKeys map[string]bool
	disabledTags map[string]bool
	enabledKeys  map[string]bool
	enabledTags  map[string]bool
	allowlist    bool
}

func newVisibility() *visibility {
	return &visibility{
		disabledKeys: make(map[string]bool),
		disabledTags: make(map[string]bool),
		enabledKeys:  make(map[string]bool),
		enabledTags:  make(map[string]bool),
	}
}

// kindsForKeys maps the given component keys to the kinds they touch.
// Unparseable keys and tags touch every kind.
func kindsForKeys(keys, tags []string) []components.Kind {
	all := []components.Kind{
		components.KindTool, components.KindResource,
		components.KindTemplate, components.KindPrompt,
	}
	if len(tags) > 0 {
		return all
	}
	seen := make(map[components.Kind]bool)
	var out []components.Kind
	for _, key := range keys {
		kind, _, _, err := components.ParseKey(key)
		if err != nil {
			return all
		}
		if !seen[kind] {
			seen[kind] = true
			out = append(out, kind)
		}
	}
	return out
}

func (v *visibility) enable(keys, tags []string, only bool) []components.Kind {
	v.mu.Lock()
	for _, key := range keys {
		v.enabledKeys[key] = true
		delete(v.disabledKeys, key)
	}
	for _, tag := range tags {
		v.enabledTags[tag] = true
		delete(v.disabledTags, tag)
	}
	if only {
		v.allowlist = true
	}
	v.mu.Unlock()
	return kindsForKeys(keys, tags)
}

func (v *visibility) disable(keys, tags []string) []components.Kind {
	v.mu.Lock()
	for _, key := range keys {
		v.disabledKeys[key] = true
	}
	for _, tag := range tags {
		v.disabledTags[tag] = true
	}
	v.mu.Unlock()
	return kindsForKeys(keys, tags)
}

// keyForms returns the component's exact key plus its versionless form,
// so "tool:add@" addresses every registered version of add.
func keyForms(c components.Component) []string {
	exact := c.Key()
	bare := components.MakeKey(c.ComponentKind(), c.Identifier(), "")
	if exact == bare {
		return []string{exact}
	}
	return []string{exact, bare}
}

// allowed applies the blocklist/allowlist to one component. The enabled
// mark left by transforms is checked separately by the caller.
func (v *visibility) allowed(c components.Component) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()

	forms := keyForms(c)
	for _, key := range forms {
		if v.disabledKeys[key] {
			return false
		}
	}
	for _, tag := range c.Common().Tags {
		if v.disabledTags[tag] {
			return false
		}
	}
	if !v.allowlist {
		return true
	}
	for _, key := range forms {
		if v.enabledKeys[key] {
			return true
		}
	}
	for _, tag := range c.Common().Tags {
		if v.enabledTags[tag] {
			return true
		}
	}
	return false
}
