// Package mcptools exposes the conclave pipeline as MCP tools so an MCP
// client can trigger analyses, aggregate structured answers, and browse the
// run archive without speaking the HTTP API.
package mcptools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// version is set by the linker at build time.
var version = "dev"

// NewConclaveMCPServer creates an MCP server with the 3 conclave tools
// registered: analyze, aggregate_answers, and recent_runs.
func NewConclaveMCPServer(svc *ConclaveService) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "conclave",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "analyze",
		Description: "Ask the configured agent panel a question, cross-validate the answers, and return the synthesized optimal answer. Only one analysis may run at a time.",
	}, svc.Analyze)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "aggregate_answers",
		Description: "Deterministically aggregate a list of {agent, answer} pairs by confidence-weighted voting. Returns the winning answer or a combined disagreement answer.",
	}, svc.AggregateAnswers)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "recent_runs",
		Description: "List the most recently archived analysis runs.",
	}, svc.RecentRuns)

	return server
}

// RunStdio runs the MCP server on stdio transport, blocking until stdin is
// closed or the context is cancelled.
func RunStdio(ctx context.Context, server *mcp.Server) error {
	return server.Run(ctx, &mcp.StdioTransport{})
}
