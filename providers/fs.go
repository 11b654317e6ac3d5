package providers

import (
	"context"
	"encoding/base64"
	"io/fs"
	"log/slog"
	"mime"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/fsnotify/fsnotify"

	"github.com/strawgate/mcp-compose/components"
	"github.com/strawgate/mcp-compose/mcp"
)

// FS serves a restricted slice of a filesystem as resources, plus one
// resource template addressing files by relative path. It can wrap either
// an OS directory (preferred when symlink escape must be prevented) or an
// arbitrary fs.FS such as embed.FS.
//
// With an OS directory root, Start launches an fsnotify watcher that
// drives the resource change notifier; generic filesystems get no
// watching.
//
// Security: for an OS root, reads resolve symlinks and reject paths that
// escape the root. For a generic fs.FS, symlinks are skipped and parent
// traversal is rejected.
type FS struct {
	mu sync.RWMutex

	fsys   fs.FS
	osRoot string // absolute, symlink-evaluated root on disk (if set)

	baseURI string // scheme prefix for resource URIs (e.g. "fs://workspace")
	log     *slog.Logger

	notifier ChangeNotifier
	watchCtx context.CancelFunc
}

// FSOption configures an FS provider.
type FSOption func(*FS)

// WithOSDir sets the root to an OS directory. Symlinks are resolved and
// reads are constrained to the resolved root.
func WithOSDir(root string) FSOption {
	return func(r *FS) {
		abs := root
		if !filepath.IsAbs(abs) {
			if a, err := filepath.Abs(abs); err == nil {
				abs = a
			}
		}
		if real, err := filepath.EvalSymlinks(abs); err == nil {
			abs = real
		}
		r.osRoot = abs
		r.fsys = os.DirFS(abs)
	}
}

// WithFS provides a generic fs.FS (e.g. embed.FS). Parent traversal is
// rejected and symlinks are not followed.
func WithFS(f fs.FS) FSOption { return func(r *FS) { r.fsys = f; r.osRoot = "" } }

// WithBaseURI sets the URI prefix used in resource URIs, e.g.
// "fs://workspace". Defaults to "fs://".
func WithBaseURI(base string) FSOption {
	return func(r *FS) { r.baseURI = strings.TrimRight(base, "/") }
}

// WithFSLogger sets the logger for watcher diagnostics.
func WithFSLogger(log *slog.Logger) FSOption {
	return func(r *FS) { r.log = log }
}

// NewFS constructs a filesystem-backed provider.
func NewFS(opts ...FSOption) *FS {
	r := &FS{baseURI: "fs://", log: slog.Default()}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Notifier exposes the resource change notifier.
func (r *FS) Notifier() *ChangeNotifier { return &r.notifier }

func (r *FS) relToURI(rel string) string { return r.baseURI + "/" + rel }

func (r *FS) uriToRel(uri string) (string, bool) {
	return strings.CutPrefix(uri, r.baseURI+"/")
}

func validFSPath(p string) bool {
	if p == "" || p == "." {
		return false
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return false
		}
	}
	return fs.ValidPath(p)
}

func within(p, root string) bool {
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return false
	}
	return rel == "." || (!strings.HasPrefix(rel, "..") && !filepath.IsAbs(rel))
}

func isSymlink(d fs.DirEntry) bool {
	if d == nil {
		return false
	}
	if d.Type()&fs.ModeSymlink != 0 {
		return true
	}
	if info, err := d.Info(); err == nil {
		return info.Mode()&fs.ModeSymlink != 0
	}
	return false
}

func (r *FS) ListResources(ctx context.Context) ([]*components.Resource, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.fsys == nil {
		return nil, nil
	}
	var out []*components.Resource
	err := fs.WalkDir(r.fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // best-effort listing
		}
		if d.IsDir() || isSymlink(d) || !validFSPath(p) {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		out = append(out, r.resourceFor(p))
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].URI < out[j].URI })
	return out, nil
}

func (r *FS) resourceFor(rel string) *components.Resource {
	uri := r.relToURI(rel)
	mt := mime.TypeByExtension(strings.ToLower(path.Ext(rel)))
	return components.NewResource(uri, path.Base(rel),
		func(ctx context.Context) (*mcp.ResourceContents, error) {
			return r.readRel(uri, rel)
		},
		components.WithResourceMimeType(mt),
	)
}

func (r *FS) readRel(uri, rel string) (*mcp.ResourceContents, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.osRoot != "" {
		abs := filepath.Join(r.osRoot, filepath.FromSlash(rel))
		real, err := filepath.EvalSymlinks(abs)
		if err != nil {
			return nil, components.NewNotFound(components.KindResource, uri)
		}
		if !within(real, r.osRoot) {
			return nil, components.NewNotFound(components.KindResource, uri)
		}
		data, err := os.ReadFile(real)
		if err != nil {
			return nil, components.NewNotFound(components.KindResource, uri)
		}
		mt := mime.TypeByExtension(strings.ToLower(filepath.Ext(real)))
		return contentsFor(uri, mt, data), nil
	}
	if !validFSPath(rel) {
		return nil, components.NewNotFound(components.KindResource, uri)
	}
	data, err := fs.ReadFile(r.fsys, rel)
	if err != nil {
		return nil, components.NewNotFound(components.KindResource, uri)
	}
	mt := mime.TypeByExtension(strings.ToLower(path.Ext(rel)))
	return contentsFor(uri, mt, data), nil
}

func contentsFor(uri, mimeType string, data []byte) *mcp.ResourceContents {
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	if utf8.Valid(data) {
		return &mcp.ResourceContents{URI: uri, MimeType: mimeType, Text: string(data)}
	}
	return &mcp.ResourceContents{URI: uri, MimeType: mimeType, Blob: base64.StdEncoding.EncodeToString(data)}
}

func (r *FS) GetResource(ctx context.Context, uri, version string) (*components.Resource, error) {
	if version != "" || r.fsys == nil {
		return nil, nil
	}
	rel, ok := r.uriToRel(uri)
	if !ok || !validFSPath(rel) {
		return nil, nil
	}
	if _, err := fs.Stat(r.fsys, rel); err != nil {
		return nil, nil
	}
	return r.resourceFor(rel), nil
}

// ListResourceTemplates exposes one template addressing any file under the
// root by relative path.
func (r *FS) ListResourceTemplates(ctx context.Context) ([]*components.ResourceTemplate, error) {
	tmpl, err := r.pathTemplate()
	if err != nil {
		return nil, err
	}
	return []*components.ResourceTemplate{tmpl}, nil
}

func (r *FS) pathTemplate() (*components.ResourceTemplate, error) {
	return components.NewResourceTemplate(r.baseURI+"/{+path}", "file",
		func(ctx context.Context, uri string, params map[string]string) (*mcp.ResourceContents, error) {
			rel := params["path"]
			if !validFSPath(rel) {
				return nil, components.NewNotFound(components.KindResource, uri)
			}
			return r.readRel(uri, rel)
		},
		components.WithTemplateDescription("A file under the served directory, by relative path."),
	)
}

func (r *FS) GetResourceTemplate(ctx context.Context, uriTemplate, version string) (*components.ResourceTemplate, error) {
	if version != "" {
		return nil, nil
	}
	tmpl, err := r.pathTemplate()
	if err != nil {
		return nil, err
	}
	if uriTemplate == tmpl.URITemplate {
		return tmpl, nil
	}
	if _, ok := tmpl.Match(uriTemplate); ok {
		return tmpl, nil
	}
	return nil, nil
}

func (r *FS) ListTools(ctx context.Context) ([]*components.Tool, error) { return nil, nil }

func (r *FS) GetTool(ctx context.Context, name, version string) (*components.Tool, error) {
	return nil, nil
}

func (r *FS) ListPrompts(ctx context.Context) ([]*components.Prompt, error) { return nil, nil }

func (r *FS) GetPrompt(ctx context.Context, name, version string) (*components.Prompt, error) {
	return nil, nil
}

func (r *FS) Tasks(ctx context.Context) (TaskComponents, error) {
	return TaskComponents{}, nil
}

// Start launches the fsnotify watcher when an OS root is configured.
func (r *FS) Start(ctx context.Context) error {
	if r.osRoot == "" {
		return nil
	}
	watchCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	r.watchCtx = cancel
	go r.watch(watchCtx)
	return nil
}

// Close stops the watcher and shuts the notifier down.
func (r *FS) Close(ctx context.Context) error {
	if r.watchCtx != nil {
		r.watchCtx()
		r.watchCtx = nil
	}
	r.notifier.Close()
	return nil
}

// watch maintains recursive fsnotify watches under the root and signals
// the change notifier on any create, remove, rename or write.
func (r *FS) watch(ctx context.Context) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		r.log.Debug("fsnotify unavailable", slog.String("err", err.Error()))
		return
	}
	defer func() { _ = w.Close() }()

	addDirs := func() error {
		return filepath.WalkDir(r.osRoot, func(p string, d fs.DirEntry, err error) error {
			if err != nil || !d.IsDir() {
				return nil
			}
			return w.Add(p)
		})
	}
	if err := addDirs(); err != nil {
		r.log.Debug("fsnotify add dirs failed", slog.String("err", err.Error()))
	}

	// One notification on startup to normalize initial state.
	r.notifier.Notify()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if ev.Op&fsnotify.Create == fsnotify.Create {
				if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
					_ = w.Add(ev.Name)
				}
			}
			if ev.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename|fsnotify.Write) != 0 {
				r.notifier.Notify()
			}
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			r.log.Debug("fsnotify error", slog.String("err", err.Error()))
		}
	}
}
