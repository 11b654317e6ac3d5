package providers

import (
	"context"
	"testing"
	"time"

	"github.com/strawgate/mcp-compose/components"
	"github.com/strawgate/mcp-compose/mcp"
	"github.com/strawgate/mcp-compose/transforms"
)

func echoTool(name string, opts ...components.ToolOption) *components.Tool {
	return components.NewUntypedTool(name, mcp.ToolInputSchema{Type: "object"},
		func(_ context.Context, args map[string]any) (*mcp.CallToolResult, error) {
			return components.TextResult(name), nil
		}, opts...)
}

func TestLocalRegisterAndList(t *testing.T) {
	l := NewLocal()
	if err := l.AddTool(echoTool("a")); err != nil {
		t.Fatalf("AddTool: %v", err)
	}
	if err := l.AddTool(echoTool("b")); err != nil {
		t.Fatalf("AddTool: %v", err)
	}
	tools, err := l.ListTools(context.Background())
	if err != nil {
		t.Fatalf("ListTools: %v", err)
	}
	if len(tools) != 2 || tools[0].Name != "a" || tools[1].Name != "b" {
		t.Fatalf("listing = %+v", tools)
	}
}

func TestLocalDuplicatePolicies(t *testing.T) {
	l := NewLocal()
	if err := l.AddTool(echoTool("t")); err != nil {
		t.Fatalf("AddTool: %v", err)
	}
	if err := l.AddTool(echoTool("t")); err == nil {
		t.Fatal("default policy must reject duplicates")
	}

	replace := NewLocal(WithDuplicatePolicy(DuplicateReplace))
	first := echoTool("t", components.WithToolDescription("first"))
	second := echoTool("t", components.WithToolDescription("second"))
	if err := replace.AddTool(first); err != nil {
		t.Fatalf("AddTool: %v", err)
	}
	if err := replace.AddTool(second); err != nil {
		t.Fatalf("AddTool replace: %v", err)
	}
	got, _ := replace.GetTool(context.Background(), "t", "")
	if got.Description != "second" {
		t.Fatalf("replace kept %q", got.Description)
	}

	ignore := NewLocal(WithDuplicatePolicy(DuplicateIgnore))
	_ = ignore.AddTool(first)
	_ = ignore.AddTool(second)
	got, _ = ignore.GetTool(context.Background(), "t", "")
	if got.Description != "first" {
		t.Fatalf("ignore kept %q", got.Description)
	}
}

func TestLocalVersionedRegistration(t *testing.T) {
	l := NewLocal()
	if err := l.AddTool(echoTool("t", components.WithToolVersion("1.0.0"))); err != nil {
		t.Fatalf("AddTool v1: %v", err)
	}
	if err := l.AddTool(echoTool("t", components.WithToolVersion("2.0.0"))); err != nil {
		t.Fatalf("AddTool v2: %v", err)
	}

	got, err := l.GetTool(context.Background(), "t", "")
	if err != nil {
		t.Fatalf("GetTool: %v", err)
	}
	if got.Version != "2.0.0" {
		t.Fatalf("empty version should resolve highest, got %q", got.Version)
	}

	got, _ = l.GetTool(context.Background(), "t", "1.0.0")
	if got == nil || got.Version != "1.0.0" {
		t.Fatalf("exact version lookup = %+v", got)
	}

	if got, _ := l.GetTool(context.Background(), "t", "3.0.0"); got != nil {
		t.Fatal("unregistered version must miss")
	}
}

func TestLocalRejectsMixedVersioning(t *testing.T) {
	l := NewLocal()
	if err := l.AddTool(echoTool("t", components.WithToolVersion("1.0.0"))); err != nil {
		t.Fatalf("AddTool: %v", err)
	}
	if err := l.AddTool(echoTool("t")); err == nil {
		t.Fatal("mixing versioned and unversioned must fail")
	}

	l2 := NewLocal()
	if err := l2.AddTool(echoTool("t")); err != nil {
		t.Fatalf("AddTool: %v", err)
	}
	if err := l2.AddTool(echoTool("t", components.WithToolVersion("1.0.0"))); err == nil {
		t.Fatal("mixing unversioned and versioned must fail")
	}
}

func TestLocalReturnsClones(t *testing.T) {
	l := NewLocal()
	_ = l.AddTool(echoTool("t"))
	first, _ := l.GetTool(context.Background(), "t", "")
	first.SetEnabled(false)
	second, _ := l.GetTool(context.Background(), "t", "")
	if !second.Enabled() {
		t.Fatal("marking one request's view leaked into the registry")
	}
}

func TestLocalToolOverride(t *testing.T) {
	l := NewLocal()
	_ = l.AddTool(echoTool("sum", components.WithToolDescription("adds")))
	l.SetToolOverride("sum", transforms.ToolOverride{Name: transforms.Set("total")})

	tools, err := l.ListTools(context.Background())
	if err != nil {
		t.Fatalf("ListTools: %v", err)
	}
	if tools[0].Name != "total" {
		t.Fatalf("override not applied in listing: %q", tools[0].Name)
	}

	got, err := l.GetTool(context.Background(), "total", "")
	if err != nil {
		t.Fatalf("GetTool by exposed name: %v", err)
	}
	if got == nil || got.Description != "adds" {
		t.Fatalf("exposed-name lookup = %+v", got)
	}
}

func TestLocalRemoveNotifies(t *testing.T) {
	l := NewLocal()
	_ = l.AddTool(echoTool("t"))
	ch := l.Notifier(components.KindTool).Subscriber()
	if !l.RemoveTool("t", "") {
		t.Fatal("RemoveTool should report success")
	}
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("no change notification after removal")
	}
	if got, _ := l.GetTool(context.Background(), "t", ""); got != nil {
		t.Fatal("removed tool still resolvable")
	}
}

func TestLocalResourceAndTemplateLookup(t *testing.T) {
	l := NewLocal()
	_ = l.AddResource(components.TextResource("resource://motd", "motd", "hi"))
	tmpl, _ := components.NewResourceTemplate("file:///logs/{name}", "log",
		func(_ context.Context, uri string, params map[string]string) (*mcp.ResourceContents, error) {
			return &mcp.ResourceContents{URI: uri, Text: params["name"]}, nil
		})
	_ = l.AddResourceTemplate(tmpl)

	if r, _ := l.GetResource(context.Background(), "resource://motd", ""); r == nil {
		t.Fatal("resource lookup failed")
	}
	if tm, _ := l.GetResourceTemplate(context.Background(), "file:///logs/{name}", ""); tm == nil {
		t.Fatal("exact template lookup failed")
	}
	if tm, _ := l.GetResourceTemplate(context.Background(), "file:///logs/app.log", ""); tm == nil {
		t.Fatal("template match by concrete URI failed")
	}
}

func TestLocalTasks(t *testing.T) {
	l := NewLocal()
	_ = l.AddTool(echoTool("plain"))
	_ = l.AddTool(echoTool("bg", components.WithToolTask(components.TaskConfig{Mode: components.TaskAllowed})))
	_ = l.AddPrompt(components.TextPrompt("p", "text",
		components.WithPromptTask(components.TaskConfig{Mode: components.TaskRequired})))

	tasks, err := l.Tasks(context.Background())
	if err != nil {
		t.Fatalf("Tasks: %v", err)
	}
	if len(tasks.Tools) != 1 || tasks.Tools[0].Name != "bg" {
		t.Fatalf("task tools = %+v", tasks.Tools)
	}
	if len(tasks.Prompts) != 1 {
		t.Fatalf("task prompts = %+v", tasks.Prompts)
	}
}
