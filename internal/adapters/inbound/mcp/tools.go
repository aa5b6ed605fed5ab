package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/getsentry/cli-sub002/internal/adapters/outbound/cachestore"
	"github.com/getsentry/cli-sub002/internal/adapters/outbound/codescan"
	"github.com/getsentry/cli-sub002/internal/adapters/outbound/config"
	"github.com/getsentry/cli-sub002/internal/adapters/outbound/envscan"
	"github.com/getsentry/cli-sub002/internal/adapters/outbound/rootfind"
	"github.com/getsentry/cli-sub002/internal/application"
	"github.com/getsentry/cli-sub002/internal/domain"
)

// registerTools registers the detection tools on the given server.
func registerTools(s *server.MCPServer, startDir string) {
	s.AddTool(
		mcplib.NewTool("detect_dsn",
			mcplib.WithDescription("Detect the DSN of the project, with the root it was resolved against"),
		),
		handleDetect(startDir),
	)

	s.AddTool(
		mcplib.NewTool("detect_all_dsns",
			mcplib.WithDescription("Detect every DSN discoverable in the project (monorepo-aware), with a stable fingerprint over the set"),
		),
		handleDetectAll(startDir),
	)
}

// newService wires the standard outbound adapters for startDir. The project
// config file lives at the project root, so the root is located first.
func newService(ctx context.Context, startDir string) (*application.DetectService, error) {
	opts := domain.DefaultOptions()
	rootRes, err := rootfind.New(opts).Locate(ctx, startDir)
	if err != nil {
		return nil, err
	}
	cfg, err := config.New().Load(rootRes.ProjectRoot)
	if err != nil {
		return nil, err
	}
	opts = cfg.Apply(opts)

	store, err := cachestore.New("")
	if err != nil {
		return nil, fmt.Errorf("opening cache: %w", err)
	}

	return application.NewDetectService(
		rootfind.New(opts),
		codescan.New(opts),
		envscan.New(opts),
		envscan.NewEnvReader(opts),
		store,
		opts,
		nil,
	), nil
}

func handleDetect(startDir string) server.ToolHandlerFunc {
	return func(ctx context.Context, _ mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		svc, err := newService(ctx, startDir)
		if err != nil {
			return errorResult(err.Error()), nil
		}
		dsn, rootRes, err := svc.Resolve(ctx, startDir)
		if err != nil {
			return errorResult(fmt.Sprintf("detection failed: %v", err)), nil
		}
		return jsonResult(struct {
			DSN  *domain.DSN               `json:"dsn"`
			Root *domain.ProjectRootResult `json:"root"`
		}{dsn, rootRes})
	}
}

func handleDetectAll(startDir string) server.ToolHandlerFunc {
	return func(ctx context.Context, _ mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		svc, err := newService(ctx, startDir)
		if err != nil {
			return errorResult(err.Error()), nil
		}
		det, rootRes, err := svc.ResolveAll(ctx, startDir)
		if err != nil {
			return errorResult(fmt.Sprintf("detection failed: %v", err)), nil
		}
		return jsonResult(struct {
			*domain.Detection
			Root *domain.ProjectRootResult `json:"root"`
		}{det, rootRes})
	}
}

// jsonResult marshals v to JSON and returns it as a text content result.
func jsonResult(v interface{}) (*mcplib.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling result: %w", err)
	}
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{mcplib.NewTextContent(string(data))},
	}, nil
}

// errorResult returns a tool result that indicates an error occurred.
func errorResult(msg string) *mcplib.CallToolResult {
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{mcplib.NewTextContent(msg)},
		IsError: true,
	}
}
