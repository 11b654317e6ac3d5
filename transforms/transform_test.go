package transforms

import (
	"context"
	"testing"

	"github.com/strawgate/mcp-compose/components"
	"github.com/strawgate/mcp-compose/mcp"
	"github.com/strawgate/mcp-compose/versions"
)

func staticToolsBase(tools ...*components.Tool) ListToolsNext {
	return func(context.Context) ([]*components.Tool, error) {
		out := make([]*components.Tool, 0, len(tools))
		for _, t := range tools {
			out = append(out, t.Clone())
		}
		return out, nil
	}
}

func staticGetToolBase(tools ...*components.Tool) GetToolNext {
	return func(_ context.Context, name, version string) (*components.Tool, error) {
		for _, t := range tools {
			if t.Name == name && (version == "" || t.Version == version) {
				return t.Clone(), nil
			}
		}
		return nil, nil
	}
}

func namedTool(name string, opts ...components.ToolOption) *components.Tool {
	return components.NewUntypedTool(name, mcp.ToolInputSchema{Type: "object"},
		func(context.Context, map[string]any) (*mcp.CallToolResult, error) {
			return components.TextResult(name), nil
		}, opts...)
}

type renamer struct {
	Passthrough
	suffix string
}

func (r *renamer) ListTools(ctx context.Context, next ListToolsNext) ([]*components.Tool, error) {
	tools, err := next(ctx)
	if err != nil {
		return nil, err
	}
	for _, t := range tools {
		t.Name += r.suffix
	}
	return tools, nil
}

func TestChainOrderLastRegisteredOutermost(t *testing.T) {
	base := staticToolsBase(namedTool("t"))
	chain := ChainListTools([]Transform{&renamer{suffix: "_a"}, &renamer{suffix: "_b"}}, base)
	tools, err := chain(context.Background())
	if err != nil {
		t.Fatalf("chain: %v", err)
	}
	// _a runs closer to the base, _b wraps it.
	if got := tools[0].Name; got != "t_a_b" {
		t.Fatalf("name = %q, want t_a_b", got)
	}
}

func TestEnabledEmptyCriteriaMatchesNothing(t *testing.T) {
	e := NewEnabled(false)
	tools, err := e.ListTools(context.Background(), staticToolsBase(namedTool("t")))
	if err != nil {
		t.Fatalf("ListTools: %v", err)
	}
	if !tools[0].Enabled() {
		t.Fatal("empty criteria must fail closed and mark nothing")
	}
}

func TestEnabledMatchAll(t *testing.T) {
	e := NewEnabled(false, MatchAll())
	tools, _ := e.ListTools(context.Background(), staticToolsBase(namedTool("t")))
	if tools[0].Enabled() {
		t.Fatal("MatchAll should mark every component")
	}
}

func TestEnabledConjunctiveCriteria(t *testing.T) {
	tagged := namedTool("a", components.WithToolTags("beta"))
	untagged := namedTool("b")
	e := NewEnabled(false, MatchNames("a", "b"), MatchTags("beta"))
	tools, _ := e.ListTools(context.Background(), staticToolsBase(tagged, untagged))
	if tools[0].Enabled() {
		t.Fatal("a matches name AND tag, should be marked")
	}
	if !tools[1].Enabled() {
		t.Fatal("b matches name but not tag, must stay enabled")
	}
}

func TestEnabledVersionAndKindCriteria(t *testing.T) {
	old := namedTool("t", components.WithToolVersion("1.0.0"))
	cur := namedTool("t", components.WithToolVersion("2.0.0"))
	bare := namedTool("u")
	e := NewEnabled(false, MatchKinds(components.KindTool), MatchVersion(&versions.Spec{LT: "2.0.0"}))
	tools, _ := e.ListTools(context.Background(), staticToolsBase(old, cur, bare))
	if tools[0].Enabled() {
		t.Fatal("1.0.0 satisfies LT 2.0.0, should be marked disabled")
	}
	if !tools[1].Enabled() {
		t.Fatal("2.0.0 fails LT 2.0.0, must stay enabled")
	}
	if !tools[2].Enabled() {
		t.Fatal("unversioned component never satisfies a version bound, must stay enabled")
	}
}

func TestEnabledVersionPermitsUnversioned(t *testing.T) {
	bare := namedTool("u")
	e := NewEnabled(false, MatchVersion(&versions.Spec{LT: "2.0.0", MatchNone: true}))
	tools, _ := e.ListTools(context.Background(), staticToolsBase(bare))
	if tools[0].Enabled() {
		t.Fatal("MatchNone admits the unversioned component, should be marked")
	}
}

func TestEnabledVersionlessKeyMatchesAllVersions(t *testing.T) {
	v1 := namedTool("t", components.WithToolVersion("1.0.0"))
	e := NewEnabled(false, MatchKeys("tool:t@"))
	tools, _ := e.ListTools(context.Background(), staticToolsBase(v1))
	if tools[0].Enabled() {
		t.Fatal("versionless key should match every version")
	}
}

func TestEnabledLastWriteWins(t *testing.T) {
	disable := NewEnabled(false, MatchNames("t"))
	enable := NewEnabled(true, MatchNames("t"))
	chain := ChainListTools([]Transform{disable, enable}, staticToolsBase(namedTool("t")))
	tools, err := chain(context.Background())
	if err != nil {
		t.Fatalf("chain: %v", err)
	}
	if !tools[0].Enabled() {
		t.Fatal("outer enable should overwrite inner disable")
	}
}

func TestEnabledNeverFilters(t *testing.T) {
	e := NewEnabled(false, MatchAll())
	tools, _ := e.ListTools(context.Background(), staticToolsBase(namedTool("a"), namedTool("b")))
	if len(tools) != 2 {
		t.Fatalf("marking transform removed components: %d left", len(tools))
	}
}

func TestNamespaceListAndGetRoundTrip(t *testing.T) {
	ns, err := NewNamespace("sub")
	if err != nil {
		t.Fatalf("NewNamespace: %v", err)
	}
	inner := namedTool("add")
	tools, err := ns.ListTools(context.Background(), staticToolsBase(inner))
	if err != nil {
		t.Fatalf("ListTools: %v", err)
	}
	if tools[0].Name != "sub_add" {
		t.Fatalf("listed name = %q, want sub_add", tools[0].Name)
	}

	got, err := ns.GetTool(context.Background(), "sub_add", "", staticGetToolBase(inner))
	if err != nil {
		t.Fatalf("GetTool: %v", err)
	}
	if got == nil || got.Name != "sub_add" {
		t.Fatalf("got = %+v", got)
	}

	outside, err := ns.GetTool(context.Background(), "add", "", staticGetToolBase(inner))
	if err != nil {
		t.Fatalf("GetTool outside ns: %v", err)
	}
	if outside != nil {
		t.Fatal("name outside the namespace must not resolve here")
	}
}

func TestNamespaceURIRewrite(t *testing.T) {
	ns, _ := NewNamespace("data")
	res := components.TextResource("resource://config", "config", "hi")
	out, err := ns.ListResources(context.Background(), func(context.Context) ([]*components.Resource, error) {
		return []*components.Resource{res.Clone()}, nil
	})
	if err != nil {
		t.Fatalf("ListResources: %v", err)
	}
	if out[0].URI != "resource://data/config" {
		t.Fatalf("URI = %q, want resource://data/config", out[0].URI)
	}

	got, err := ns.GetResource(context.Background(), out[0].URI, "",
		func(_ context.Context, uri, _ string) (*components.Resource, error) {
			if uri != "resource://config" {
				t.Fatalf("reverse-mapped uri = %q", uri)
			}
			return res.Clone(), nil
		})
	if err != nil {
		t.Fatalf("GetResource: %v", err)
	}
	if got.URI != out[0].URI {
		t.Fatalf("round trip broke: %q vs %q", got.URI, out[0].URI)
	}
}

func TestNamespaceToolRenames(t *testing.T) {
	ns, err := NewNamespace("calc", WithToolRenames(map[string]string{"sum": "total"}))
	if err != nil {
		t.Fatalf("NewNamespace: %v", err)
	}
	inner := namedTool("sum")
	tools, _ := ns.ListTools(context.Background(), staticToolsBase(inner))
	if tools[0].Name != "calc_total" {
		t.Fatalf("listed name = %q, want calc_total", tools[0].Name)
	}
	got, err := ns.GetTool(context.Background(), "calc_total", "", staticGetToolBase(inner))
	if err != nil || got == nil {
		t.Fatalf("GetTool: %v, %v", got, err)
	}
	if got.Name != "calc_total" {
		t.Fatalf("name = %q", got.Name)
	}
}

func TestNamespaceDuplicateRenameTarget(t *testing.T) {
	_, err := NewNamespace("x", WithToolRenames(map[string]string{"a": "same", "b": "same"}))
	if err == nil {
		t.Fatal("duplicate rename target must fail construction")
	}
}

func TestVersionFilter(t *testing.T) {
	v1 := namedTool("t", components.WithToolVersion("1.0.0"))
	v2 := namedTool("t", components.WithToolVersion("2.0.0"))
	f := NewVersionFilter(&versions.Spec{GTE: "2.0.0"})

	tools, err := f.ListTools(context.Background(), staticToolsBase(v1, v2))
	if err != nil {
		t.Fatalf("ListTools: %v", err)
	}
	if len(tools) != 1 || tools[0].Version != "2.0.0" {
		t.Fatalf("filtered list = %+v", tools)
	}

	got, err := f.GetTool(context.Background(), "t", "1.0.0", staticGetToolBase(v1, v2))
	if err != nil {
		t.Fatalf("GetTool: %v", err)
	}
	if got != nil {
		t.Fatal("out-of-range version must not resolve")
	}
}
