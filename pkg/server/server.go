// Package server exposes the operation catalog over the Model Context
// Protocol: every descriptor becomes a tool and a handful of read-only
// views become resources.
package server

import (
	"context"
	"fmt"
	"io"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/saturnines/newrelic-mcp/pkg/dispatch"
	"github.com/saturnines/newrelic-mcp/pkg/errors"
)

// Name is the server name advertised during initialization
const Name = "newrelic-mcp"

// Server binds a Dispatcher to an MCP server
type Server struct {
	mcp        *server.MCPServer
	dispatcher *dispatch.Dispatcher
	logger     *zap.Logger
}

// New registers every operation and resource on a fresh MCP server
func New(d *dispatch.Dispatcher, version string, logger *zap.Logger) (*Server, error) {
	if d == nil {
		return nil, errors.WrapError(fmt.Errorf("dispatcher cannot be nil"), errors.ErrConfiguration, "create server")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		mcp: server.NewMCPServer(Name, version,
			server.WithToolCapabilities(false),
			server.WithResourceCapabilities(false, false),
			server.WithRecovery(),
		),
		dispatcher: d,
		logger:     logger.Named("server"),
	}

	if err := s.registerTools(); err != nil {
		return nil, err
	}
	s.registerResources()
	return s, nil
}

// MCPServer returns the underlying mcp-go server
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// Serve speaks MCP over in/out until ctx is done or in closes
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	s.logger.Info("serving MCP over stdio", zap.Int("tools", s.dispatcher.Registry().Len()))
	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(zap.NewStdLog(s.logger))
	return stdio.Listen(ctx, in, out)
}

func (s *Server) registerTools() error {
	for _, d := range s.dispatcher.Registry().List() {
		schema, err := d.RawSchema()
		if err != nil {
			return err
		}
		s.mcp.AddTool(mcp.NewToolWithRawSchema(d.Name, d.Description, schema), s.toolHandler(d.Name))
	}
	return nil
}

func (s *Server) toolHandler(name string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return s.callTool(ctx, name, req.GetArguments()), nil
	}
}

// callTool renders the envelope as indented JSON. Error envelopes are
// flagged so clients can tell them apart.
func (s *Server) callTool(ctx context.Context, name string, arguments map[string]any) *mcp.CallToolResult {
	env := s.dispatcher.Call(ctx, name, arguments)
	text, err := env.JSON()
	if err != nil {
		s.logger.Error("encode envelope", zap.String("tool", name), zap.Error(err))
		return mcp.NewToolResultError(fmt.Sprintf("Error executing %s: %v", name, err))
	}
	if env.IsError() {
		return mcp.NewToolResultError(text)
	}
	return mcp.NewToolResultText(text)
}

// view is a resource backed by one operation
type view struct {
	uri         string
	name        string
	description string
	tool        string
	arguments   map[string]any
}

var views = []view{
	{"newrelic://applications", "Applications", "Applications reporting transactions in the last day", "list_applications", nil},
	{"newrelic://incidents/recent", "Recent incidents", "Incidents from the last 24 hours", "get_incidents", map[string]any{"hours": 24}},
	{"newrelic://dashboards", "Dashboards", "Dashboards in the default account", "get_dashboards", nil},
	{"newrelic://alerts/policies", "Alert policies", "Alert policies in the default account", "list_alert_policies", nil},
	{"newrelic://alerts/conditions", "Alert conditions", "NRQL alert conditions in the default account", "list_alert_conditions", nil},
	{"newrelic://alerts/workflows", "Workflows", "Alert workflows in the default account", "list_workflows", nil},
}

func (s *Server) registerResources() {
	for _, v := range views {
		resource := mcp.NewResource(v.uri, v.name,
			mcp.WithResourceDescription(v.description),
			mcp.WithMIMEType("application/json"),
		)
		s.mcp.AddResource(resource, s.resourceHandler(v))
	}
}

func (s *Server) resourceHandler(v view) server.ResourceHandlerFunc {
	return func(ctx context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return s.readResource(ctx, v)
	}
}

func (s *Server) readResource(ctx context.Context, v view) ([]mcp.ResourceContents, error) {
	env := s.dispatcher.Call(ctx, v.tool, copyArgs(v.arguments))
	if env.IsError() {
		return nil, errors.WrapError(fmt.Errorf("%s", env.ErrorMessage()), errors.ErrExtraction, "read "+v.uri)
	}
	text, err := env.JSON()
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      v.uri,
			MIMEType: "application/json",
			Text:     text,
		},
	}, nil
}

func copyArgs(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
