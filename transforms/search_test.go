package transforms

import (
	"context"
	"strings"
	"testing"

	"github.com/strawgate/mcp-compose/components"
	"github.com/strawgate/mcp-compose/mcp"
)

// fakeSource is a minimal composition boundary: a fixed catalog whose
// listing runs back through the transform under test, honoring bypass.
type fakeSource struct {
	transform Transform
	tools     []*components.Tool
}

func (f *fakeSource) ListTools(ctx context.Context) ([]*components.Tool, error) {
	return f.transform.ListTools(ctx, staticToolsBase(f.tools...))
}

func (f *fakeSource) ListResources(ctx context.Context) ([]*components.Resource, error) {
	return f.transform.ListResources(ctx, func(context.Context) ([]*components.Resource, error) {
		return nil, nil
	})
}

func (f *fakeSource) ListResourceTemplates(ctx context.Context) ([]*components.ResourceTemplate, error) {
	return f.transform.ListResourceTemplates(ctx, func(context.Context) ([]*components.ResourceTemplate, error) {
		return nil, nil
	})
}

func (f *fakeSource) ListPrompts(ctx context.Context) ([]*components.Prompt, error) {
	return f.transform.ListPrompts(ctx, func(context.Context) ([]*components.Prompt, error) {
		return nil, nil
	})
}

func (f *fakeSource) CallTool(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error) {
	tool, err := f.transform.GetTool(ctx, name, "", staticGetToolBase(f.tools...))
	if err != nil {
		return nil, err
	}
	if tool == nil {
		return nil, components.NewNotFound(components.KindTool, name)
	}
	return tool.Call(ctx, args)
}

func searchContext(s *Search, tools ...*components.Tool) (context.Context, *fakeSource) {
	src := &fakeSource{transform: s, tools: tools}
	return WithCatalogSource(context.Background(), src), src
}

func TestCatalogHookRewritesListing(t *testing.T) {
	c := NewCatalog(CatalogHooks{
		Tools: func(_ context.Context, tools []*components.Tool) ([]*components.Tool, error) {
			return tools[:1], nil
		},
	})
	tools, err := c.ListTools(context.Background(), staticToolsBase(namedTool("a"), namedTool("b")))
	if err != nil {
		t.Fatalf("ListTools: %v", err)
	}
	if len(tools) != 1 || tools[0].Name != "a" {
		t.Fatalf("hook not applied: %+v", tools)
	}
}

func TestCatalogBypassIsPerInstanceAndCallScoped(t *testing.T) {
	drop := func(_ context.Context, tools []*components.Tool) ([]*components.Tool, error) {
		return nil, nil
	}
	c1 := NewCatalog(CatalogHooks{Tools: drop})
	c2 := NewCatalog(CatalogHooks{Tools: drop})

	ctx := c1.Bypass(context.Background())
	tools, err := c1.ListTools(ctx, staticToolsBase(namedTool("a")))
	if err != nil {
		t.Fatalf("ListTools: %v", err)
	}
	if len(tools) != 1 {
		t.Fatal("bypassed instance must pass the listing through")
	}

	tools, err = c2.ListTools(ctx, staticToolsBase(namedTool("a")))
	if err != nil {
		t.Fatalf("ListTools: %v", err)
	}
	if len(tools) != 0 {
		t.Fatal("bypass leaked across instances")
	}

	// A sibling context without the bypass still gets the hook.
	tools, err = c1.ListTools(context.Background(), staticToolsBase(namedTool("a")))
	if err != nil {
		t.Fatalf("ListTools: %v", err)
	}
	if len(tools) != 0 {
		t.Fatal("bypass escaped its call scope")
	}
}

func TestSearchReplacesCatalogWithSynthetics(t *testing.T) {
	s := NewRegexSearch(WithAlwaysVisible("pinned"))
	tools, err := s.ListTools(context.Background(),
		staticToolsBase(namedTool("pinned"), namedTool("hidden_a"), namedTool("hidden_b")))
	if err != nil {
		t.Fatalf("ListTools: %v", err)
	}
	names := make([]string, 0, len(tools))
	for _, tool := range tools {
		names = append(names, tool.Name)
	}
	got := strings.Join(names, ",")
	if got != "pinned,search_tools,call_tool" {
		t.Fatalf("listing = %q", got)
	}
}

func TestSearchToolFindsHiddenTools(t *testing.T) {
	s := NewRegexSearch()
	hidden := namedTool("resize_image", components.WithToolDescription("resizes an image"))
	ctx, _ := searchContext(s, hidden, namedTool("unrelated"))

	search, err := s.GetTool(ctx, "search_tools", "", staticGetToolBase())
	if err != nil || search == nil {
		t.Fatalf("GetTool(search_tools): %v, %v", search, err)
	}
	res, err := search.Call(ctx, map[string]any{"query": "image"})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if res.IsError {
		t.Fatalf("search errored: %+v", res)
	}
	text := res.Content[0].Text
	if !strings.Contains(text, "resize_image") {
		t.Fatalf("search result missing hidden tool: %s", text)
	}
	if strings.Contains(text, "unrelated") {
		t.Fatalf("search result includes non-match: %s", text)
	}
}

func TestCallToolProxyReachesHiddenTool(t *testing.T) {
	s := NewRegexSearch()
	ctx, _ := searchContext(s, namedTool("hidden"))

	proxy, err := s.GetTool(ctx, "call_tool", "", staticGetToolBase())
	if err != nil || proxy == nil {
		t.Fatalf("GetTool(call_tool): %v, %v", proxy, err)
	}
	res, err := proxy.Call(ctx, map[string]any{"name": "hidden"})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if res.Content[0].Text != "hidden" {
		t.Fatalf("proxy result = %+v", res)
	}
}

func TestCallToolProxyRejectsSynthetics(t *testing.T) {
	s := NewRegexSearch()
	ctx, _ := searchContext(s)
	proxy, _ := s.GetTool(ctx, "call_tool", "", staticGetToolBase())
	res, err := proxy.Call(ctx, map[string]any{"name": "search_tools"})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if !res.IsError {
		t.Fatal("proxying a synthetic must be an in-band error")
	}
}

func TestHiddenToolStillResolvableDirectly(t *testing.T) {
	s := NewRegexSearch()
	hidden := namedTool("hidden")
	got, err := s.GetTool(context.Background(), "hidden", "", staticGetToolBase(hidden))
	if err != nil {
		t.Fatalf("GetTool: %v", err)
	}
	if got == nil {
		t.Fatal("hidden tools must remain directly resolvable")
	}
}

func TestRegexSearchInvalidPattern(t *testing.T) {
	out, err := regexSearcher{}.SearchTools(context.Background(), "([unclosed", []*components.Tool{namedTool("a")}, 5)
	if err != nil {
		t.Fatalf("invalid pattern should not error: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("invalid pattern should match nothing, got %d", len(out))
	}
}

func TestBM25RanksRelevantFirst(t *testing.T) {
	catalog := []*components.Tool{
		namedTool("list_files", components.WithToolDescription("list files in a directory")),
		namedTool("resize_image", components.WithToolDescription("resize an image to given dimensions")),
		namedTool("crop_image", components.WithToolDescription("crop an image")),
	}
	out, err := (&bm25Searcher{}).SearchTools(context.Background(), "image resize", catalog, 2)
	if err != nil {
		t.Fatalf("SearchTools: %v", err)
	}
	if len(out) == 0 || out[0].Name != "resize_image" {
		t.Fatalf("ranking = %+v", out)
	}
	for _, tool := range out {
		if tool.Name == "list_files" {
			t.Fatal("zero-score document ranked")
		}
	}
}

func TestCodeModeExecutesThroughSandbox(t *testing.T) {
	sandbox := sandboxFunc(func(ctx context.Context, code string, catalog []*components.Tool, call ToolCaller) (string, error) {
		res, err := call(ctx, "hidden", nil)
		if err != nil {
			return "", err
		}
		return code + ":" + res.Content[0].Text, nil
	})
	cm := NewCodeMode(sandbox)
	src := &fakeSource{transform: cm, tools: []*components.Tool{namedTool("hidden")}}
	ctx := WithCatalogSource(context.Background(), src)

	tools, err := cm.ListTools(ctx, staticToolsBase(namedTool("hidden")))
	if err != nil {
		t.Fatalf("ListTools: %v", err)
	}
	if len(tools) != 1 || tools[0].Name != "execute_code" {
		t.Fatalf("listing = %+v", tools)
	}
	res, err := tools[0].Call(ctx, map[string]any{"code": "run"})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if res.Content[0].Text != "run:hidden" {
		t.Fatalf("result = %+v", res)
	}
}

type sandboxFunc func(ctx context.Context, code string, catalog []*components.Tool, call ToolCaller) (string, error)

func (f sandboxFunc) Run(ctx context.Context, code string, catalog []*components.Tool, call ToolCaller) (string, error) {
	return f(ctx, code, catalog, call)
}
