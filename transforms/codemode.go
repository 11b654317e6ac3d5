package transforms

import (
	"context"

	"github.com/strawgate/mcp-compose/components"
	"github.com/strawgate/mcp-compose/mcp"
)

// ToolCaller invokes a catalog tool on behalf of sandboxed code.
type ToolCaller func(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error)

// Sandbox executes untrusted code against the tool catalog. Implementations
// decide the language and isolation model; the transform only guarantees
// that call reaches real catalog tools and that the catalog listing passed
// in reflects the tools visible beneath this layer.
type Sandbox interface {
	Run(ctx context.Context, code string, catalog []*components.Tool, call ToolCaller) (string, error)
}

const defaultCodeToolName = "execute_code"

// CodeMode replaces the tool catalog with a single synthetic tool that
// executes caller-supplied code in a Sandbox. The code can enumerate and
// invoke every underlying tool, so one round trip can chain many calls.
type CodeMode struct {
	*Catalog
	sandbox  Sandbox
	toolName string
}

// CodeModeOption customizes a CodeMode transform.
type CodeModeOption func(*CodeMode)

// WithCodeToolName renames the synthetic execution tool.
func WithCodeToolName(name string) CodeModeOption {
	return func(c *CodeMode) { c.toolName = name }
}

// NewCodeMode builds the transform around the given sandbox.
func NewCodeMode(sandbox Sandbox, opts ...CodeModeOption) *CodeMode {
	c := &CodeMode{sandbox: sandbox, toolName: defaultCodeToolName}
	for _, opt := range opts {
		opt(c)
	}
	c.Catalog = NewCatalog(CatalogHooks{
		Tools: func(ctx context.Context, tools []*components.Tool) ([]*components.Tool, error) {
			return []*components.Tool{c.codeTool()}, nil
		},
	})
	return c
}

func (c *CodeMode) GetTool(ctx context.Context, name, version string, next GetToolNext) (*components.Tool, error) {
	if !c.bypassed(ctx) && name == c.toolName {
		return c.codeTool(), nil
	}
	return next(ctx, name, version)
}

func (c *CodeMode) codeTool() *components.Tool {
	schema := mcp.ToolInputSchema{
		Type: "object",
		Properties: map[string]mcp.SchemaProperty{
			"code": {Type: "string", Description: "Code to execute in the sandbox."},
		},
		Required: []string{"code"},
	}
	return components.NewUntypedTool(c.toolName, schema,
		func(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
			code, _ := args["code"].(string)
			if code == "" {
				return components.ErrorResult("code is required"), nil
			}
			catalog, err := c.ToolCatalog(ctx)
			if err != nil {
				return nil, err
			}
			output, err := c.sandbox.Run(ctx, code, catalog, c.ProxyCall)
			if err != nil {
				return components.ErrorResult("sandbox: %v", err), nil
			}
			return components.TextResult(output), nil
		},
		components.WithToolDescription("Execute code that can call any tool in the catalog."),
	)
}
