package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/evanschultz/kanbases/internal/adapters/server/common"
	"github.com/evanschultz/kanbases/internal/app"
)

// stubBoard satisfies common.BoardService with a fixed board.
type stubBoard struct{}

func (stubBoard) Board(context.Context) (common.Board, error) {
	return common.Board{Status: "ready"}, nil
}
func (stubBoard) Refresh(context.Context) (common.Board, error) { return common.Board{}, nil }
func (stubBoard) MoveRecord(context.Context, common.MoveRecordRequest) (common.Board, error) {
	return common.Board{}, nil
}
func (stubBoard) ReorderColumn(context.Context, common.ReorderColumnRequest) (common.Board, error) {
	return common.Board{}, nil
}
func (stubBoard) HideColumn(context.Context, common.ColumnRequest) (common.Board, error) {
	return common.Board{}, nil
}
func (stubBoard) ShowColumn(context.Context, common.ColumnRequest) (common.Board, error) {
	return common.Board{}, nil
}
func (stubBoard) SetGrouping(context.Context, common.SetGroupingRequest) (common.Board, error) {
	return common.Board{}, nil
}
func (stubBoard) ViewOptions(context.Context) ([]app.ViewOption, error) { return nil, nil }
func (stubBoard) Record(context.Context, string) (common.Record, error) {
	return common.Record{}, nil
}

func TestNewHandlerRoutes(t *testing.T) {
	notReady := errors.New("no grouping")
	readyErr := notReady
	handler, cfg, err := NewHandler(Config{APIEndpoint: "api/v1/", InstanceID: " inst-9 "}, Dependencies{
		Board: stubBoard{},
		Ready: func() error { return readyErr },
	})
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}
	if cfg.APIEndpoint != "/api/v1" || cfg.MCPEndpoint != "/mcp" || cfg.HTTPBind != defaultBindAddress || cfg.InstanceID != "inst-9" {
		t.Fatalf("unexpected normalized config %#v", cfg)
	}

	cases := []struct {
		path string
		want int
	}{
		{path: "/healthz", want: http.StatusOK},
		{path: "/readyz", want: http.StatusServiceUnavailable},
		{path: "/api/v1/board", want: http.StatusOK},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tc.path, nil))
		if rec.Code != tc.want {
			t.Fatalf("GET %s status = %d, want %d", tc.path, rec.Code, tc.want)
		}
		if tc.path == "/api/v1/board" && rec.Header().Get("X-Kanbases-Instance") != "inst-9" {
			t.Fatalf("missing instance header on %s", tc.path)
		}
	}

	readyErr = nil
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /readyz status = %d after ready", rec.Code)
	}
}

func TestNewHandlerRejectsBadConfig(t *testing.T) {
	if _, _, err := NewHandler(Config{APIEndpoint: "/x", MCPEndpoint: "x/"}, Dependencies{Board: stubBoard{}}); err == nil {
		t.Fatal("expected endpoint collision error")
	}
	if _, _, err := NewHandler(Config{}, Dependencies{}); err == nil {
		t.Fatal("expected missing board error")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Run(ctx, Config{HTTPBind: "127.0.0.1:0"}, Dependencies{Board: stubBoard{}}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
}
