// Package main provides the fomod-mcp binary, an MCP stdio server exposing
// module validation, planning, scenario tests, and schemas to agents.
package main

import (
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"
	fmcp "github.com/ormasoftchile/fomod/pkg/ecosystem/mcp"
)

var version = "dev"

func main() {
	s := fmcp.NewServer(version)
	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
