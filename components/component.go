// Package components defines the component model shared by providers,
// transforms and the composition server: tools, resources, resource
// templates and prompts, each addressed by a versioned key of the form
// "kind:identifier@version".
package components

import (
	"fmt"
	"slices"
	"strings"
)

// Kind discriminates the four component variants.
type Kind string

const (
	KindTool     Kind = "tool"
	KindResource Kind = "resource"
	KindTemplate Kind = "template"
	KindPrompt   Kind = "prompt"
)

// label returns the human-readable form used in error messages.
func (k Kind) label() string {
	if k == KindTemplate {
		return "resource template"
	}
	return string(k)
}

// MakeKey renders the canonical component key. The "@" separator is always
// present; an unversioned component ends in "@".
func MakeKey(kind Kind, identifier, version string) string {
	return string(kind) + ":" + identifier + "@" + version
}

// ParseKey splits a canonical key back into its parts. The version is
// everything after the last "@" so identifiers containing "@" (URIs)
// round-trip correctly.
func ParseKey(key string) (kind Kind, identifier, version string, err error) {
	colon := strings.Index(key, ":")
	if colon < 0 {
		return "", "", "", fmt.Errorf("malformed component key %q: missing kind separator", key)
	}
	kind = Kind(key[:colon])
	switch kind {
	case KindTool, KindResource, KindTemplate, KindPrompt:
	default:
		return "", "", "", fmt.Errorf("malformed component key %q: unknown kind %q", key, string(kind))
	}
	rest := key[colon+1:]
	at := strings.LastIndex(rest, "@")
	if at < 0 {
		return "", "", "", fmt.Errorf("malformed component key %q: missing version separator", key)
	}
	return kind, rest[:at], rest[at+1:], nil
}

// Component is the read surface shared by the four variants. Concrete
// values are always passed as pointers; Common exposes the shared metadata
// for in-place marking by transforms.
type Component interface {
	ComponentKind() Kind
	Identifier() string
	Key() string
	Common() *Metadata
}

// Metadata carries the fields every component shares. It is embedded in
// each concrete component type.
type Metadata struct {
	Name        string
	Title       string
	Description string
	Version     string
	Tags        []string
	Meta        map[string]any
	Task        *TaskConfig
}

// Common returns the shared metadata. Promoted through embedding, it lets
// any Component be inspected generically.
func (m *Metadata) Common() *Metadata { return m }

// HasTag reports whether the component carries the given tag.
func (m *Metadata) HasTag(tag string) bool {
	return slices.Contains(m.Tags, tag)
}

// cloneMetadata deep-copies tags and meta so a per-request rewrite cannot
// corrupt a registry's stored component.
func (m *Metadata) cloneMetadata() Metadata {
	out := *m
	out.Tags = slices.Clone(m.Tags)
	out.Meta = cloneMetaMap(m.Meta)
	if m.Task != nil {
		t := *m.Task
		out.Task = &t
	}
	return out
}

func cloneMetaMap(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		if nested, ok := v.(map[string]any); ok {
			out[k] = cloneMetaMap(nested)
			continue
		}
		out[k] = v
	}
	return out
}

// Reserved meta namespace. User meta lives beside it and is never touched.
const (
	metaNamespace = "mcpcompose"
	internalSlot  = "internal"
	enabledField  = "enabled"
	versionsField = "versions"
)

// namespaceMap returns meta["mcpcompose"], creating it on demand. Writes
// always go through fresh maps so marks on a shared component value never
// alias another component's nested meta.
func (m *Metadata) namespaceMap() map[string]any {
	ns, _ := m.Meta[metaNamespace].(map[string]any)
	fresh := make(map[string]any, len(ns)+1)
	for k, v := range ns {
		fresh[k] = v
	}
	if m.Meta == nil {
		m.Meta = make(map[string]any, 1)
	}
	m.Meta[metaNamespace] = fresh
	return fresh
}

// SetEnabled records an enabled/disabled mark in the reserved internal meta
// slot. Later marks overwrite earlier ones.
func (m *Metadata) SetEnabled(enabled bool) {
	ns := m.namespaceMap()
	internal, _ := ns[internalSlot].(map[string]any)
	fresh := make(map[string]any, len(internal)+1)
	for k, v := range internal {
		fresh[k] = v
	}
	fresh[enabledField] = enabled
	ns[internalSlot] = fresh
}

// Enabled reports the component's mark. A component with no mark is
// enabled.
func (m *Metadata) Enabled() bool {
	ns, _ := m.Meta[metaNamespace].(map[string]any)
	internal, _ := ns[internalSlot].(map[string]any)
	if v, ok := internal[enabledField].(bool); ok {
		return v
	}
	return true
}

// SetVersions records the full list of versions available for a deduped
// descriptor.
func (m *Metadata) SetVersions(versions []string) {
	m.namespaceMap()[versionsField] = slices.Clone(versions)
}

// ClearReservedMeta drops the reserved namespace from the component's
// meta, leaving user keys untouched. The boundary calls this when
// configured to hide internal bookkeeping from clients.
func (m *Metadata) ClearReservedMeta() {
	delete(m.Meta, metaNamespace)
	if len(m.Meta) == 0 {
		m.Meta = nil
	}
}

// Versions returns the recorded available-version list, if any.
func (m *Metadata) Versions() []string {
	ns, _ := m.Meta[metaNamespace].(map[string]any)
	vs, _ := ns[versionsField].([]string)
	return vs
}
