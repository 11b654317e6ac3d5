package transforms

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/strawgate/mcp-compose/components"
)

// uriPattern splits a URI into its "scheme://" head and the remainder.
var uriPattern = regexp.MustCompile(`^([^:]+://)(.*)$`)

// Namespace rewrites component identifiers on the way out and reverses the
// rewrite on the way in, so a provider's components appear under a prefix
// without the provider knowing. Tools and prompts get "ns_name"; resource
// URIs and URI templates get "scheme://ns/path". Optional per-tool renames
// apply before the prefix.
//
// The rewrite is exactly reversible: a get for an identifier outside the
// namespace resolves to nothing at this layer.
type Namespace struct {
	Passthrough

	ns      string
	renames map[string]string // original -> exposed
	reverse map[string]string // exposed -> original
}

// NamespaceOption customizes a Namespace.
type NamespaceOption func(*Namespace) error

// WithToolRenames renames individual tools (original name to exposed name)
// before the namespace prefix applies. Two tools renamed to the same
// exposed name is a construction error.
func WithToolRenames(renames map[string]string) NamespaceOption {
	return func(n *Namespace) error {
		for orig, exposed := range renames {
			if prev, dup := n.reverse[exposed]; dup && prev != orig {
				return fmt.Errorf("duplicate rename target %q (from %q and %q)", exposed, prev, orig)
			}
			n.renames[orig] = exposed
			n.reverse[exposed] = orig
		}
		return nil
	}
}

// NewNamespace builds the rewriting transform. An empty ns with no renames
// is a no-op layer.
func NewNamespace(ns string, opts ...NamespaceOption) (*Namespace, error) {
	n := &Namespace{
		ns:      ns,
		renames: make(map[string]string),
		reverse: make(map[string]string),
	}
	for _, opt := range opts {
		if err := opt(n); err != nil {
			return nil, err
		}
	}
	return n, nil
}

// transformName maps an inner tool/prompt name to its exposed form.
func (n *Namespace) transformName(name string) string {
	if exposed, ok := n.renames[name]; ok {
		name = exposed
	}
	if n.ns == "" {
		return name
	}
	return n.ns + "_" + name
}

// reverseName maps an exposed tool/prompt name back to the inner form. ok
// is false when the name is outside this namespace.
func (n *Namespace) reverseName(name string) (string, bool) {
	if n.ns != "" {
		stripped, found := strings.CutPrefix(name, n.ns+"_")
		if !found {
			return "", false
		}
		name = stripped
	}
	if orig, ok := n.reverse[name]; ok {
		return orig, true
	}
	return name, true
}

// transformURI maps an inner URI (or URI template) to its exposed form.
func (n *Namespace) transformURI(uri string) string {
	if n.ns == "" {
		return uri
	}
	m := uriPattern.FindStringSubmatch(uri)
	if m == nil {
		return uri
	}
	return m[1] + n.ns + "/" + m[2]
}

// reverseURI maps an exposed URI back to the inner form.
func (n *Namespace) reverseURI(uri string) (string, bool) {
	if n.ns == "" {
		return uri, true
	}
	m := uriPattern.FindStringSubmatch(uri)
	if m == nil {
		return "", false
	}
	rest, found := strings.CutPrefix(m[2], n.ns+"/")
	if !found {
		return "", false
	}
	return m[1] + rest, true
}

func (n *Namespace) ListTools(ctx context.Context, next ListToolsNext) ([]*components.Tool, error) {
	tools, err := next(ctx)
	if err != nil {
		return nil, err
	}
	for _, t := range tools {
		t.Name = n.transformName(t.Name)
	}
	return tools, nil
}

func (n *Namespace) GetTool(ctx context.Context, name, version string, next GetToolNext) (*components.Tool, error) {
	inner, ok := n.reverseName(name)
	if !ok {
		return nil, nil
	}
	tool, err := next(ctx, inner, version)
	if err != nil || tool == nil {
		return tool, err
	}
	tool.Name = n.transformName(tool.Name)
	return tool, nil
}

func (n *Namespace) ListResources(ctx context.Context, next ListResourcesNext) ([]*components.Resource, error) {
	resources, err := next(ctx)
	if err != nil {
		return nil, err
	}
	for _, r := range resources {
		r.URI = n.transformURI(r.URI)
	}
	return resources, nil
}

func (n *Namespace) GetResource(ctx context.Context, uri, version string, next GetResourceNext) (*components.Resource, error) {
	inner, ok := n.reverseURI(uri)
	if !ok {
		return nil, nil
	}
	res, err := next(ctx, inner, version)
	if err != nil || res == nil {
		return res, err
	}
	res.URI = n.transformURI(res.URI)
	return res, nil
}

func (n *Namespace) ListResourceTemplates(ctx context.Context, next ListTemplatesNext) ([]*components.ResourceTemplate, error) {
	templates, err := next(ctx)
	if err != nil {
		return nil, err
	}
	for _, t := range templates {
		t.URITemplate = n.transformURI(t.URITemplate)
	}
	return templates, nil
}

func (n *Namespace) GetResourceTemplate(ctx context.Context, uriTemplate, version string, next GetTemplateNext) (*components.ResourceTemplate, error) {
	inner, ok := n.reverseURI(uriTemplate)
	if !ok {
		return nil, nil
	}
	tmpl, err := next(ctx, inner, version)
	if err != nil || tmpl == nil {
		return tmpl, err
	}
	tmpl.URITemplate = n.transformURI(tmpl.URITemplate)
	return tmpl, nil
}

func (n *Namespace) ListPrompts(ctx context.Context, next ListPromptsNext) ([]*components.Prompt, error) {
	prompts, err := next(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range prompts {
		p.Name = n.transformName(p.Name)
	}
	return prompts, nil
}

func (n *Namespace) GetPrompt(ctx context.Context, name, version string, next GetPromptNext) (*components.Prompt, error) {
	inner, ok := n.reverseName(name)
	if !ok {
		return nil, nil
	}
	prompt, err := next(ctx, inner, version)
	if err != nil || prompt == nil {
		return prompt, err
	}
	prompt.Name = n.transformName(prompt.Name)
	return prompt, nil
}
