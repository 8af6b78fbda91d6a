// Package common provides transport-agnostic server contracts used by HTTP and MCP adapters.
package common

import (
	"context"
	"errors"

	"github.com/evanschultz/kanbases/internal/app"
)

// ErrInvalidRequest reports malformed transport input.
var ErrInvalidRequest = errors.New("invalid request")

// ErrNotReady reports a board that cannot accept moves yet.
var ErrNotReady = errors.New("board not ready")

// ErrNotFound reports missing transport-visible resources.
var ErrNotFound = errors.New("not found")

// ErrHostWriteFailed reports a rejected host write.
var ErrHostWriteFailed = errors.New("host write failed")

// ErrGroupingNotWritable reports a grouping no move can be written through.
var ErrGroupingNotWritable = errors.New("grouping not writable")

// ErrServiceUnavailable reports a missing board backend.
var ErrServiceUnavailable = errors.New("board service unavailable")

// Grouping mirrors the active grouping config.
type Grouping struct {
	Mode      string `json:"mode"`
	Field     string `json:"field,omitempty"`
	Template  string `json:"template,omitempty"`
	Normalize bool   `json:"normalize"`
}

// CardField is one rendered non-mapped field on a card.
type CardField struct {
	Field string `json:"field"`
	Label string `json:"label"`
	Kind  string `json:"kind"`
	Value string `json:"value"`
	Tier  int    `json:"tier"`
}

// Card is one record rendered through the card mapping.
type Card struct {
	ID       string      `json:"id"`
	Title    string      `json:"title"`
	Tags     []string    `json:"tags,omitempty"`
	Type     string      `json:"type,omitempty"`
	Points   string      `json:"points,omitempty"`
	Priority string      `json:"priority,omitempty"`
	Fields   []CardField `json:"fields,omitempty"`
}

// Column is one board column and its cards.
type Column struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Count int    `json:"count"`
	Cards []Card `json:"cards,omitempty"`
}

// Board is the reconciled board returned to HTTP and MCP callers.
type Board struct {
	Status   string   `json:"status"`
	Message  string   `json:"message,omitempty"`
	Identity string   `json:"identity,omitempty"`
	Grouping Grouping `json:"grouping"`
	Order    []string `json:"order"`
	Columns  []Column `json:"columns"`
	Hidden   []Column `json:"hidden,omitempty"`
	Total    int      `json:"total"`
	Revision uint64   `json:"revision"`
}

// Record is one record with its current column.
type Record struct {
	ID       string         `json:"id"`
	Column   string         `json:"column,omitempty"`
	Card     Card           `json:"card"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// MoveRecordRequest moves one card into a column.
type MoveRecordRequest struct {
	RecordID  string `json:"record_id"`
	ColumnKey string `json:"column_key"`
}

// ReorderColumnRequest places one column before or after another.
type ReorderColumnRequest struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Side   string `json:"side,omitempty"`
}

// ColumnRequest names one column.
type ColumnRequest struct {
	ColumnKey string `json:"column_key"`
}

// SetGroupingRequest switches the active grouping.
type SetGroupingRequest = Grouping

// BoardService is the board contract shared by both transports.
type BoardService interface {
	Board(context.Context) (Board, error)
	Refresh(context.Context) (Board, error)
	MoveRecord(context.Context, MoveRecordRequest) (Board, error)
	ReorderColumn(context.Context, ReorderColumnRequest) (Board, error)
	HideColumn(context.Context, ColumnRequest) (Board, error)
	ShowColumn(context.Context, ColumnRequest) (Board, error)
	SetGrouping(context.Context, SetGroupingRequest) (Board, error)
	ViewOptions(context.Context) ([]app.ViewOption, error)
	Record(context.Context, string) (Record, error)
}
