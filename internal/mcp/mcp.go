// Package mcp exposes document analysis as a Model Context Protocol tool
// served over stdio.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/jackzampolin/intake/internal/extraction"
	"github.com/jackzampolin/intake/internal/pipeline"
	"github.com/jackzampolin/intake/internal/svcctx"
	"github.com/jackzampolin/intake/version"
)

// ToolName is the name the analyze tool is registered under.
const ToolName = "analyze_document"

// Server wraps an MCP server whose single tool runs the pipeline.
type Server struct {
	services *svcctx.Services
	logger   *slog.Logger
	mcp      *mcpserver.MCPServer
}

// New creates the MCP server and registers the analyze tool.
func New(services *svcctx.Services, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		services: services,
		logger:   logger,
		mcp:      mcpserver.NewMCPServer("intake", version.GitRelease),
	}
	s.mcp.AddTool(Tool(), s.handleAnalyze)
	return s
}

// Tool returns the analyze_document tool definition.
func Tool() mcplib.Tool {
	return mcplib.NewTool(
		ToolName,
		mcplib.WithDescription(`Classifies a local document as a résumé (CV), an identity card (CI) or unrecognized, and returns the extracted fields as JSON. Accepts .pdf, .jpg, .jpeg and .png files.`),
		mcplib.WithString("path",
			mcplib.Required(),
			mcplib.Description("Absolute path to the document on the local filesystem."),
		),
		mcplib.WithString("mode",
			mcplib.Description("Extraction mode: auto (default), text or vision."),
			mcplib.Enum("auto", "text", "vision"),
		),
	)
}

// ServeStdio blocks serving MCP requests on stdin/stdout.
func (s *Server) ServeStdio() error {
	return mcpserver.ServeStdio(s.mcp)
}

func (s *Server) handleAnalyze(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("invalid arguments type: expected map[string]any, got %T", request.Params.Arguments)
	}

	path, _ := args["path"].(string)
	path = strings.TrimSpace(path)
	if path == "" {
		return mcplib.NewToolResultError("missing required parameter: path"), nil
	}

	controller := s.services.Controller()
	if m, _ := args["mode"].(string); m != "" {
		policy, err := pipeline.ParsePolicy(m)
		if err != nil {
			return mcplib.NewToolResultError(err.Error()), nil
		}
		c := *controller
		c.Policy = policy
		controller = &c
	}

	res, err := controller.Process(ctx, path, "")
	if err != nil {
		s.logger.Warn("mcp analyze failed", "path", path, "error", err)
		return mcplib.NewToolResultError(describeError(err)), nil
	}

	data, err := json.MarshalIndent(res.Record, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal record: %w", err)
	}
	return mcplib.NewToolResultText(string(data)), nil
}

// describeError renders a failure for the calling model, including field
// diagnostics for schema violations.
func describeError(err error) string {
	var b strings.Builder
	b.WriteString(err.Error())

	var xe *extraction.Error
	if errors.As(err, &xe) {
		for _, fe := range xe.Diagnostics {
			fmt.Fprintf(&b, "\n- %s", fe.String())
		}
	}
	return b.String()
}
