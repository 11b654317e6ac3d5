package components

import (
	"context"
	"strings"
	"testing"

	"github.com/strawgate/mcp-compose/mcp"
)

type addArgs struct {
	A    int    `json:"a" jsonschema:"required" jsonschema_description:"first operand"`
	B    int    `json:"b" jsonschema:"required"`
	Unit string `json:"unit,omitempty"`
}

func TestNewToolReflectsSchema(t *testing.T) {
	tool := NewTool("add", func(ctx context.Context, args addArgs) (*mcp.CallToolResult, error) {
		return TextResult("ok"), nil
	}, WithToolDescription("adds two numbers"))

	schema := tool.InputSchema
	if schema.Type != "object" {
		t.Fatalf("schema type = %q, want object", schema.Type)
	}
	a, ok := schema.Properties["a"]
	if !ok {
		t.Fatalf("property a missing; properties = %v", schema.Properties)
	}
	if a.Type != "integer" {
		t.Fatalf("property a type = %q, want integer", a.Type)
	}
	if a.Description != "first operand" {
		t.Fatalf("property a description = %q", a.Description)
	}
	if _, ok := schema.Properties["unit"]; !ok {
		t.Fatal("property unit missing")
	}
	required := strings.Join(schema.Required, ",")
	if !strings.Contains(required, "a") || !strings.Contains(required, "b") {
		t.Fatalf("required = %v", schema.Required)
	}
	if schema.AdditionalProperties == nil || *schema.AdditionalProperties {
		t.Fatal("additionalProperties should default to false")
	}
}

func TestNewToolDecodesArguments(t *testing.T) {
	tool := NewTool("add", func(ctx context.Context, args addArgs) (*mcp.CallToolResult, error) {
		if args.A != 2 || args.B != 3 {
			t.Fatalf("decoded args = %+v", args)
		}
		return TextResult("5"), nil
	})
	res, err := tool.Call(context.Background(), map[string]any{"a": 2, "b": 3})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if len(res.Content) != 1 || res.Content[0].Text != "5" {
		t.Fatalf("result = %+v", res)
	}
}

func TestNewToolRejectsUnknownArguments(t *testing.T) {
	tool := NewTool("add", func(ctx context.Context, args addArgs) (*mcp.CallToolResult, error) {
		return TextResult("ok"), nil
	})
	if _, err := tool.Call(context.Background(), map[string]any{"a": 1, "b": 2, "bogus": true}); err == nil {
		t.Fatal("unknown argument should be rejected")
	}

	relaxed := NewTool("add", func(ctx context.Context, args addArgs) (*mcp.CallToolResult, error) {
		return TextResult("ok"), nil
	}, WithUnknownArguments())
	if _, err := relaxed.Call(context.Background(), map[string]any{"a": 1, "b": 2, "bogus": true}); err != nil {
		t.Fatalf("WithUnknownArguments should tolerate extras: %v", err)
	}
}

func TestNewToolOptions(t *testing.T) {
	tool := NewTool("task_tool", func(ctx context.Context, args addArgs) (*mcp.CallToolResult, error) {
		return TextResult("ok"), nil
	},
		WithToolVersion("1.2.0"),
		WithToolTags("math", "demo"),
		WithToolTask(TaskConfig{Mode: TaskAllowed}),
	)
	if tool.Key() != "tool:task_tool@1.2.0" {
		t.Fatalf("Key() = %q", tool.Key())
	}
	if !tool.HasTag("math") || !tool.HasTag("demo") {
		t.Fatalf("tags = %v", tool.Tags)
	}
	if !tool.Task.SupportsTasks() {
		t.Fatal("task config not applied")
	}
}

func TestUntypedToolPassesRawArguments(t *testing.T) {
	tool := NewUntypedTool("echo", mcp.ToolInputSchema{Type: "object"},
		func(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
			return TextResult(args["msg"].(string)), nil
		})
	res, err := tool.Call(context.Background(), map[string]any{"msg": "hi"})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if res.Content[0].Text != "hi" {
		t.Fatalf("result = %+v", res)
	}
}

func TestResourceTemplateMatch(t *testing.T) {
	tmpl, err := NewResourceTemplate("file:///logs/{name}", "log",
		func(ctx context.Context, uri string, params map[string]string) (*mcp.ResourceContents, error) {
			return &mcp.ResourceContents{URI: uri, Text: params["name"]}, nil
		})
	if err != nil {
		t.Fatalf("NewResourceTemplate: %v", err)
	}
	params, ok := tmpl.Match("file:///logs/app.log")
	if !ok {
		t.Fatal("expansion should match the template")
	}
	if params["name"] != "app.log" {
		t.Fatalf("params = %v", params)
	}
	if _, ok := tmpl.Match("file:///other/app.log"); ok {
		t.Fatal("non-expansion should not match")
	}

	contents, err := tmpl.Read(context.Background(), "file:///logs/app.log", params)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if contents.Text != "app.log" {
		t.Fatalf("contents = %+v", contents)
	}
}

func TestNewResourceTemplateRejectsMalformed(t *testing.T) {
	if _, err := NewResourceTemplate("file:///{unclosed", "bad", nil); err == nil {
		t.Fatal("malformed template should fail at construction")
	}
}

func TestPromptRequiredArguments(t *testing.T) {
	p := NewPrompt("greet", func(ctx context.Context, args map[string]string) (*mcp.GetPromptResult, error) {
		return &mcp.GetPromptResult{Messages: []mcp.PromptMessage{{
			Role:    mcp.RoleUser,
			Content: []mcp.ContentBlock{mcp.TextContent("hello " + args["who"])},
		}}}, nil
	}, WithPromptArguments(mcp.PromptArgument{Name: "who", Required: true}))

	if _, err := p.Render(context.Background(), nil); err == nil {
		t.Fatal("missing required argument should fail")
	}
	res, err := p.Render(context.Background(), map[string]string{"who": "world"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if res.Messages[0].Content[0].Text != "hello world" {
		t.Fatalf("rendered = %+v", res)
	}
}
