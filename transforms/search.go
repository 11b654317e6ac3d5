package transforms

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/strawgate/mcp-compose/components"
	"github.com/strawgate/mcp-compose/mcp"
)

// ToolSearcher ranks catalog tools against a query.
type ToolSearcher interface {
	SearchTools(ctx context.Context, query string, catalog []*components.Tool, limit int) ([]*components.Tool, error)
}

const (
	defaultSearchToolName = "search_tools"
	defaultCallToolName   = "call_tool"
	defaultMaxResults     = 5
)

// Search collapses a large tool catalog behind a pair of synthetic tools:
// one that searches the catalog and one that proxies calls to any catalog
// tool by name. Tools listed as always visible stay pinned in the
// rewritten listing. Hidden tools remain callable, both directly and
// through the proxy.
type Search struct {
	*Catalog

	searcher       ToolSearcher
	maxResults     int
	alwaysVisible  map[string]struct{}
	searchToolName string
	callToolName   string
}

// SearchOption customizes a search transform.
type SearchOption func(*Search)

// WithMaxResults caps how many tools a search returns.
func WithMaxResults(n int) SearchOption {
	return func(s *Search) { s.maxResults = n }
}

// WithAlwaysVisible pins tools in the rewritten listing by name.
func WithAlwaysVisible(names ...string) SearchOption {
	return func(s *Search) {
		for _, n := range names {
			s.alwaysVisible[n] = struct{}{}
		}
	}
}

// WithSearchToolName renames the synthetic search tool.
func WithSearchToolName(name string) SearchOption {
	return func(s *Search) { s.searchToolName = name }
}

// WithCallToolName renames the synthetic proxy tool.
func WithCallToolName(name string) SearchOption {
	return func(s *Search) { s.callToolName = name }
}

// NewSearch builds a search transform over an arbitrary searcher. Most
// callers want NewRegexSearch or NewBM25Search.
func NewSearch(searcher ToolSearcher, opts ...SearchOption) *Search {
	s := &Search{
		searcher:       searcher,
		maxResults:     defaultMaxResults,
		alwaysVisible:  make(map[string]struct{}),
		searchToolName: defaultSearchToolName,
		callToolName:   defaultCallToolName,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Catalog = NewCatalog(CatalogHooks{Tools: s.rewriteTools})
	return s
}

// NewRegexSearch builds a search transform matching the query as a
// case-insensitive regular expression.
func NewRegexSearch(opts ...SearchOption) *Search {
	return NewSearch(regexSearcher{}, opts...)
}

func (s *Search) rewriteTools(ctx context.Context, tools []*components.Tool) ([]*components.Tool, error) {
	out := make([]*components.Tool, 0, len(s.alwaysVisible)+2)
	for _, t := range tools {
		if _, pinned := s.alwaysVisible[t.Name]; pinned {
			out = append(out, t)
		}
	}
	return append(out, s.searchTool(), s.callTool()), nil
}

func (s *Search) GetTool(ctx context.Context, name, version string, next GetToolNext) (*components.Tool, error) {
	if !s.bypassed(ctx) {
		switch name {
		case s.searchToolName:
			return s.searchTool(), nil
		case s.callToolName:
			return s.callTool(), nil
		}
	}
	return next(ctx, name, version)
}

func (s *Search) searchTool() *components.Tool {
	schema := mcp.ToolInputSchema{
		Type: "object",
		Properties: map[string]mcp.SchemaProperty{
			"query": {Type: "string", Description: "Search query matched against tool names, descriptions and tags."},
		},
		Required: []string{"query"},
	}
	return components.NewUntypedTool(s.searchToolName, schema,
		func(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
			query, _ := args["query"].(string)
			if query == "" {
				return components.ErrorResult("query is required"), nil
			}
			catalog, err := s.ToolCatalog(ctx)
			if err != nil {
				return nil, err
			}
			matches, err := s.searcher.SearchTools(ctx, query, catalog, s.maxResults)
			if err != nil {
				return nil, err
			}
			descriptors := make([]mcp.Tool, 0, len(matches))
			for _, m := range matches {
				descriptors = append(descriptors, m.Descriptor())
			}
			buf, err := json.Marshal(descriptors)
			if err != nil {
				return nil, err
			}
			return components.TextResult(string(buf)), nil
		},
		components.WithToolDescription(fmt.Sprintf(
			"Search the tool catalog. Matching tools can be invoked via %q.", s.callToolName)),
	)
}

func (s *Search) callTool() *components.Tool {
	schema := mcp.ToolInputSchema{
		Type: "object",
		Properties: map[string]mcp.SchemaProperty{
			"name":      {Type: "string", Description: "Name of the tool to invoke."},
			"arguments": {Type: "object", Description: "Arguments to pass through."},
		},
		Required: []string{"name"},
	}
	return components.NewUntypedTool(s.callToolName, schema,
		func(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
			name, _ := args["name"].(string)
			if name == "" {
				return components.ErrorResult("name is required"), nil
			}
			if name == s.searchToolName || name == s.callToolName {
				return components.ErrorResult("tool %q cannot be invoked through itself", name), nil
			}
			callArgs, _ := args["arguments"].(map[string]any)
			return s.ProxyCall(ctx, name, callArgs)
		},
		components.WithToolDescription(fmt.Sprintf(
			"Invoke any tool found via %q by name.", s.searchToolName)),
	)
}

// regexSearcher matches the query as a case-insensitive regular
// expression against a tool's name, title, description and tags. An
// invalid pattern yields no results rather than an error.
type regexSearcher struct{}

func (regexSearcher) SearchTools(_ context.Context, query string, catalog []*components.Tool, limit int) ([]*components.Tool, error) {
	re, err := regexp.Compile("(?i)" + query)
	if err != nil {
		return nil, nil
	}
	var out []*components.Tool
	for _, t := range catalog {
		if limit > 0 && len(out) >= limit {
			break
		}
		haystack := strings.Join(append([]string{t.Name, t.Title, t.Description}, t.Tags...), "\n")
		if re.MatchString(haystack) {
			out = append(out, t)
		}
	}
	return out, nil
}
