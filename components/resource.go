package components

import (
	"context"
	"fmt"

	"github.com/yosida95/uritemplate/v3"

	"github.com/strawgate/mcp-compose/mcp"
)

// ResourceReader produces the contents of a concrete resource.
type ResourceReader func(ctx context.Context) (*mcp.ResourceContents, error)

// Resource is a readable component addressed by URI.
type Resource struct {
	Metadata
	URI      string
	MimeType string
	Reader   ResourceReader
}

func (r *Resource) ComponentKind() Kind { return KindResource }
func (r *Resource) Identifier() string  { return r.URI }

// Key returns the canonical "resource:uri@version" key.
func (r *Resource) Key() string { return MakeKey(KindResource, r.URI, r.Version) }

func (r *Resource) Clone() *Resource {
	out := *r
	out.Metadata = r.Metadata.cloneMetadata()
	return &out
}

// Descriptor renders the wire-level form.
func (r *Resource) Descriptor() mcp.Resource {
	return mcp.Resource{
		URI:         r.URI,
		Name:        r.Name,
		Title:       r.Title,
		Description: r.Description,
		MimeType:    r.MimeType,
		Meta:        r.Meta,
	}
}

// Read produces the resource contents.
func (r *Resource) Read(ctx context.Context) (*mcp.ResourceContents, error) {
	if r.Reader == nil {
		return nil, fmt.Errorf("resource %q has no reader", r.URI)
	}
	return r.Reader(ctx)
}

// ResourceOption customizes a resource at construction time.
type ResourceOption func(*Resource)

func WithResourceTitle(title string) ResourceOption {
	return func(r *Resource) { r.Title = title }
}

func WithResourceDescription(desc string) ResourceOption {
	return func(r *Resource) { r.Description = desc }
}

func WithResourceMimeType(mt string) ResourceOption {
	return func(r *Resource) { r.MimeType = mt }
}

func WithResourceVersion(version string) ResourceOption {
	return func(r *Resource) { r.Version = version }
}

func WithResourceTags(tags ...string) ResourceOption {
	return func(r *Resource) { r.Tags = append(r.Tags, tags...) }
}

func WithResourceMeta(meta map[string]any) ResourceOption {
	return func(r *Resource) { r.Meta = meta }
}

func WithResourceTask(cfg TaskConfig) ResourceOption {
	return func(r *Resource) { r.Task = &cfg }
}

// NewResource builds a Resource served by the given reader.
func NewResource(uri, name string, reader ResourceReader, opts ...ResourceOption) *Resource {
	r := &Resource{
		Metadata: Metadata{Name: name},
		URI:      uri,
		Reader:   reader,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// TextResource builds a Resource serving fixed text content.
func TextResource(uri, name, text string, opts ...ResourceOption) *Resource {
	r := NewResource(uri, name, nil, opts...)
	if r.MimeType == "" {
		r.MimeType = "text/plain"
	}
	mimeType := r.MimeType
	r.Reader = func(context.Context) (*mcp.ResourceContents, error) {
		return &mcp.ResourceContents{URI: uri, MimeType: mimeType, Text: text}, nil
	}
	return r
}

// TemplateReader produces contents for a URI matched against a template.
// params holds the variable captures from the match.
type TemplateReader func(ctx context.Context, uri string, params map[string]string) (*mcp.ResourceContents, error)

// ResourceTemplate is a parameterized resource addressed by an RFC 6570
// URI template.
type ResourceTemplate struct {
	Metadata
	URITemplate string
	MimeType    string
	Reader      TemplateReader

	compiled    *uritemplate.Template
	compiledFor string
}

func (t *ResourceTemplate) ComponentKind() Kind { return KindTemplate }
func (t *ResourceTemplate) Identifier() string  { return t.URITemplate }

// Key returns the canonical "template:uriTemplate@version" key.
func (t *ResourceTemplate) Key() string {
	return MakeKey(KindTemplate, t.URITemplate, t.Version)
}

func (t *ResourceTemplate) Clone() *ResourceTemplate {
	out := *t
	out.Metadata = t.Metadata.cloneMetadata()
	return &out
}

// Descriptor renders the wire-level form.
func (t *ResourceTemplate) Descriptor() mcp.ResourceTemplate {
	return mcp.ResourceTemplate{
		URITemplate: t.URITemplate,
		Name:        t.Name,
		Title:       t.Title,
		Description: t.Description,
		MimeType:    t.MimeType,
		Meta:        t.Meta,
	}
}

// Match reports whether the URI is an expansion of the template, returning
// the captured variables when it is. The compiled form tracks the current
// URITemplate string, which transforms may have rewritten since
// construction.
func (t *ResourceTemplate) Match(uri string) (map[string]string, bool) {
	if t.compiled == nil || t.compiledFor != t.URITemplate {
		compiled, err := uritemplate.New(t.URITemplate)
		if err != nil {
			return nil, false
		}
		t.compiled = compiled
		t.compiledFor = t.URITemplate
	}
	values := t.compiled.Match(uri)
	if values == nil {
		return nil, false
	}
	params := make(map[string]string, len(values))
	for name, v := range values {
		params[name] = v.String()
	}
	return params, true
}

// Read materializes and reads the resource for a matched URI.
func (t *ResourceTemplate) Read(ctx context.Context, uri string, params map[string]string) (*mcp.ResourceContents, error) {
	if t.Reader == nil {
		return nil, fmt.Errorf("resource template %q has no reader", t.URITemplate)
	}
	return t.Reader(ctx, uri, params)
}

// TemplateOption customizes a resource template at construction time.
type TemplateOption func(*ResourceTemplate)

func WithTemplateTitle(title string) TemplateOption {
	return func(t *ResourceTemplate) { t.Title = title }
}

func WithTemplateDescription(desc string) TemplateOption {
	return func(t *ResourceTemplate) { t.Description = desc }
}

func WithTemplateMimeType(mt string) TemplateOption {
	return func(t *ResourceTemplate) { t.MimeType = mt }
}

func WithTemplateVersion(version string) TemplateOption {
	return func(t *ResourceTemplate) { t.Version = version }
}

func WithTemplateTags(tags ...string) TemplateOption {
	return func(t *ResourceTemplate) { t.Tags = append(t.Tags, tags...) }
}

func WithTemplateMeta(meta map[string]any) TemplateOption {
	return func(t *ResourceTemplate) { t.Meta = meta }
}

func WithTemplateTask(cfg TaskConfig) TemplateOption {
	return func(t *ResourceTemplate) { t.Task = &cfg }
}

// NewResourceTemplate builds a ResourceTemplate. The template string is
// compiled eagerly so malformed templates fail at registration time.
func NewResourceTemplate(uriTemplate, name string, reader TemplateReader, opts ...TemplateOption) (*ResourceTemplate, error) {
	compiled, err := uritemplate.New(uriTemplate)
	if err != nil {
		return nil, fmt.Errorf("invalid uri template %q: %w", uriTemplate, err)
	}
	t := &ResourceTemplate{
		Metadata:    Metadata{Name: name},
		URITemplate: uriTemplate,
		Reader:      reader,
		compiled:    compiled,
		compiledFor: uriTemplate,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}
