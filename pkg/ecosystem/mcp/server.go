package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NewServer creates a new MCP server with fomod tools registered.
func NewServer(version string) *server.MCPServer {
	s := server.NewMCPServer(
		"fomod",
		version,
		server.WithToolCapabilities(true),
	)

	s.AddTool(
		mcp.NewTool("fomod/validate",
			mcp.WithDescription("Lint an install module YAML file and run its initial evaluation"),
			mcp.WithString("path", mcp.Required(), mcp.Description("Path to the module YAML file")),
		),
		HandleValidate,
	)

	s.AddTool(
		mcp.NewTool("fomod/plan",
			mcp.WithDescription("Resolve the install plan of a module for a selection and host file states"),
			mcp.WithString("path", mcp.Required(), mcp.Description("Path to the module YAML file")),
			mcp.WithString("selection", mcp.Description("Bulk selection payload as JSON (optional)")),
			mcp.WithObject("files", mcp.Description("Host file states: path → Missing|Inactive|Active|Unknown")),
			mcp.WithString("flag_policy", mcp.Description("Flag tie-break: document-order (default) or last-write")),
		),
		HandlePlan,
	)

	s.AddTool(
		mcp.NewTool("fomod/test",
			mcp.WithDescription("Run scenario tests for an install module"),
			mcp.WithString("path", mcp.Required(), mcp.Description("Path to the module YAML file")),
			mcp.WithString("scenario", mcp.Description("Run only the named scenario (optional)")),
		),
		HandleTest,
	)

	s.AddTool(
		mcp.NewTool("fomod/schema",
			mcp.WithDescription("Export fomod JSON Schema (module or selection)"),
			mcp.WithString("type", mcp.Required(), mcp.Description("Schema type: 'module' or 'selection'")),
		),
		HandleSchema,
	)

	return s
}
