// Package mcpapi provides a stateless MCP streamable-HTTP adapter.
package mcpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/evanschultz/kanbases/internal/adapters/server/common"
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// Config captures MCP transport configuration.
type Config struct {
	ServerName    string
	ServerVersion string
	EndpointPath  string
}

// Handler wraps one stateless MCP streamable HTTP handler.
type Handler struct {
	httpHandler http.Handler
}

// NewHandler builds one stateless MCP adapter exposing the board tools.
func NewHandler(cfg Config, board common.BoardService) (*Handler, error) {
	if board == nil {
		return nil, fmt.Errorf("board service is required")
	}
	cfg = normalizeConfig(cfg)

	mcpSrv := mcpserver.NewMCPServer(
		cfg.ServerName,
		cfg.ServerVersion,
		mcpserver.WithToolCapabilities(false),
	)
	registerBoardTools(mcpSrv, board)
	registerColumnTools(mcpSrv, board)

	streamable := mcpserver.NewStreamableHTTPServer(
		mcpSrv,
		mcpserver.WithEndpointPath(cfg.EndpointPath),
		mcpserver.WithStateLess(true),
	)
	return &Handler{httpHandler: streamable}, nil
}

// ServeHTTP handles one MCP streamable HTTP request.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.httpHandler == nil {
		http.Error(w, "mcp handler unavailable", http.StatusServiceUnavailable)
		return
	}
	h.httpHandler.ServeHTTP(w, r)
}

// normalizeConfig applies deterministic defaults to MCP adapter config.
func normalizeConfig(cfg Config) Config {
	cfg.ServerName = strings.TrimSpace(cfg.ServerName)
	if cfg.ServerName == "" {
		cfg.ServerName = "kanbases"
	}
	cfg.ServerVersion = strings.TrimSpace(cfg.ServerVersion)
	if cfg.ServerVersion == "" {
		cfg.ServerVersion = "dev"
	}
	cfg.EndpointPath = strings.TrimSpace(cfg.EndpointPath)
	if cfg.EndpointPath == "" {
		cfg.EndpointPath = "/mcp"
	}
	cfg.EndpointPath = "/" + strings.Trim(cfg.EndpointPath, "/")
	return cfg
}

// registerBoardTools registers board read, move, grouping, and view-option tools.
func registerBoardTools(srv *mcpserver.MCPServer, board common.BoardService) {
	srv.AddTool(
		mcp.NewTool(
			"kanbases.get_board",
			mcp.WithDescription("Return the reconciled board: column order, visible columns with cards, and hidden columns."),
			mcp.WithBoolean("refresh", mcp.Description("Reload records from the host first")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			load := board.Board
			if req.GetBool("refresh", false) {
				load = board.Refresh
			}
			out, err := load(ctx)
			return boardResult("get_board", out, err)
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"kanbases.move_record",
			mcp.WithDescription("Move one card into a column by rewriting its grouping property."),
			mcp.WithString("record_id", mcp.Required(), mcp.Description("Record id (note path)")),
			mcp.WithString("column_key", mcp.Required(), mcp.Description("Target column key")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			recordID, err := req.RequireString("record_id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			columnKey, err := req.RequireString("column_key")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			out, err := board.MoveRecord(ctx, common.MoveRecordRequest{RecordID: recordID, ColumnKey: columnKey})
			return boardResult("move_record", out, err)
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"kanbases.set_grouping",
			mcp.WithDescription("Switch the board grouping to a property or a template."),
			mcp.WithString("mode", mcp.Description("Grouping mode"), mcp.Enum("property", "template")),
			mcp.WithString("field", mcp.Description("Namespaced property id for property mode, e.g. note.status")),
			mcp.WithString("template", mcp.Description("Template with {{namespace.field|filter}} placeholders")),
			mcp.WithBoolean("normalize", mcp.Description("Normalize group keys to kebab-case")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			out, err := board.SetGrouping(ctx, common.SetGroupingRequest{
				Mode:      req.GetString("mode", ""),
				Field:     req.GetString("field", ""),
				Template:  req.GetString("template", ""),
				Normalize: req.GetBool("normalize", false),
			})
			return boardResult("set_grouping", out, err)
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"kanbases.view_options",
			mcp.WithDescription("Return the view-options descriptor: grouping, column names, and card mappings."),
		),
		func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			opts, err := board.ViewOptions(ctx)
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(map[string]any{"groups": opts})
			if err != nil {
				return nil, fmt.Errorf("encode view_options result: %w", err)
			}
			return result, nil
		},
	)
}

// registerColumnTools registers column reorder and visibility tools.
func registerColumnTools(srv *mcpserver.MCPServer, board common.BoardService) {
	srv.AddTool(
		mcp.NewTool(
			"kanbases.reorder_column",
			mcp.WithDescription("Place one column before or after another. The order is persisted per grouping."),
			mcp.WithString("source", mcp.Required(), mcp.Description("Column key to move")),
			mcp.WithString("target", mcp.Required(), mcp.Description("Column key to drop next to")),
			mcp.WithString("side", mcp.Description("Drop side"), mcp.Enum("before", "after")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			source, err := req.RequireString("source")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			target, err := req.RequireString("target")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			out, err := board.ReorderColumn(ctx, common.ReorderColumnRequest{
				Source: source,
				Target: target,
				Side:   req.GetString("side", ""),
			})
			return boardResult("reorder_column", out, err)
		},
	)

	for _, tool := range []struct {
		name        string
		description string
		call        func(context.Context, common.ColumnRequest) (common.Board, error)
	}{
		{name: "hide_column", description: "Hide one column. It keeps its slot in the order.", call: board.HideColumn},
		{name: "show_column", description: "Show one hidden column.", call: board.ShowColumn},
	} {
		srv.AddTool(
			mcp.NewTool(
				"kanbases."+tool.name,
				mcp.WithDescription(tool.description),
				mcp.WithString("column_key", mcp.Required(), mcp.Description("Column key")),
			),
			func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				columnKey, err := req.RequireString("column_key")
				if err != nil {
					return mcp.NewToolResultError(err.Error()), nil
				}
				out, err := tool.call(ctx, common.ColumnRequest{ColumnKey: columnKey})
				return boardResult(tool.name, out, err)
			},
		)
	}
}

// boardResult encodes one board result or maps its error.
func boardResult(tool string, out common.Board, err error) (*mcp.CallToolResult, error) {
	if err != nil {
		return toolResultFromError(err), nil
	}
	result, err := mcp.NewToolResultJSON(out)
	if err != nil {
		return nil, fmt.Errorf("encode %s result: %w", tool, err)
	}
	return result, nil
}

// toolResultFromError maps service errors into MCP-visible tool errors.
func toolResultFromError(err error) *mcp.CallToolResult {
	switch {
	case err == nil:
		return mcp.NewToolResultError("unknown error")
	case errors.Is(err, common.ErrGroupingNotWritable):
		return mcp.NewToolResultError("grouping_not_writable: " + err.Error())
	case errors.Is(err, common.ErrNotReady):
		return mcp.NewToolResultError("not_ready: " + err.Error())
	case errors.Is(err, common.ErrInvalidRequest):
		return mcp.NewToolResultError("invalid_request: " + err.Error())
	case errors.Is(err, common.ErrNotFound):
		return mcp.NewToolResultError("not_found: " + err.Error())
	case errors.Is(err, common.ErrHostWriteFailed):
		return mcp.NewToolResultError("host_write_failed: " + err.Error())
	case errors.Is(err, common.ErrServiceUnavailable):
		return mcp.NewToolResultError("service_unavailable: " + err.Error())
	default:
		return mcp.NewToolResultError("internal_error: " + err.Error())
	}
}
