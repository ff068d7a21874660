package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// ServerName is the MCP server name announced to clients.
const ServerName = "moku-mcp"

// NewMCPServer registers every tool in the catalog with a new MCP server.
// Serve it with server.ServeStdio or a server.StdioServer.
func NewMCPServer(svc *Service, version string) *server.MCPServer {
	s := server.NewMCPServer(ServerName, version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)
	for _, def := range catalog {
		s.AddTool(def.mcpTool(), svc.mcpHandler(def.Name))
	}
	return s
}

// mcpTool builds the MCP schema for d.
func (d Definition) mcpTool() mcp.Tool {
	opts := []mcp.ToolOption{mcp.WithDescription(d.Description)}
	for _, p := range d.Params {
		popts := []mcp.PropertyOption{mcp.Description(p.Description)}
		if p.Required {
			popts = append(popts, mcp.Required())
		}
		switch p.Type {
		case TypeString:
			opts = append(opts, mcp.WithString(p.Name, popts...))
		case TypeBoolean:
			if b, ok := p.Default.(bool); ok {
				popts = append(popts, mcp.DefaultBool(b))
			}
			opts = append(opts, mcp.WithBoolean(p.Name, popts...))
		case TypeNumber:
			if n, ok := p.Default.(int); ok {
				popts = append(popts, mcp.DefaultNumber(float64(n)))
			}
			opts = append(opts, mcp.WithNumber(p.Name, popts...))
		case TypeObject:
			opts = append(opts, mcp.WithObject(p.Name, popts...))
		case TypeArray:
			popts = append(popts, mcp.Items(map[string]any{
				"type": "object",
				"properties": map[string]any{
					"source":      map[string]any{"type": "string"},
					"destination": map[string]any{"type": "string"},
				},
				"required": []string{"source", "destination"},
			}))
			opts = append(opts, mcp.WithArray(p.Name, popts...))
		}
	}
	return mcp.NewTool(d.Name, opts...)
}

// mcpHandler adapts Call to the MCP handler signature. Every outcome,
// including failures, is returned as indented JSON text.
func (s *Service) mcpHandler(name string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		out := s.Call(WithSource(ctx, SourceMCP), name, req.GetArguments())
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encoding %s result: %w", name, err)
		}
		return mcp.NewToolResultText(string(data)), nil
	}
}
