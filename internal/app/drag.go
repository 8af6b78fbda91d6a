package app

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/evanschultz/kanbases/internal/domain"
)

// DragPhase identifies the drag state machine's current state.
type DragPhase string

// PhaseIdle and related constants define drag phases.
const (
	PhaseIdle     DragPhase = "idle"
	PhaseArmed    DragPhase = "armed"
	PhaseHovering DragPhase = "hovering"
)

// DropOutcome describes what a drop did.
type DropOutcome string

// OutcomeCommitted and related constants define drop outcomes.
const (
	OutcomeCommitted DropOutcome = "committed"
	OutcomeNoop      DropOutcome = "noop"
	OutcomeCancelled DropOutcome = "cancelled"
	OutcomeFailed    DropOutcome = "failed"
)

// Highlighter receives drop-target highlight changes.
type Highlighter interface {
	Highlight(target domain.GroupKey, side domain.DropSide)
	ClearHighlight()
}

// RecordMover commits a card drop.
type RecordMover interface {
	MoveRecord(ctx context.Context, recordID string, target domain.GroupKey) error
}

// ColumnReorderer commits a column drop.
type ColumnReorderer interface {
	ReorderColumn(ctx context.Context, source, target domain.GroupKey, side domain.DropSide) error
}

// DragState is a snapshot of the controller for rendering.
type DragState struct {
	Phase   DragPhase
	Session domain.DragSession
	Target  domain.GroupKey
	Side    domain.DropSide
}

// DragOption customizes a DragController.
type DragOption func(*DragController)

// WithHighlighter routes highlight changes to h.
func WithHighlighter(h Highlighter) DragOption {
	return func(c *DragController) {
		if h != nil {
			c.highlight = h
		}
	}
}

// WithTargetCheck restricts drops to targets accepted by known.
func WithTargetCheck(known func(domain.GroupKey) bool) DragOption {
	return func(c *DragController) {
		c.known = known
	}
}

// DragController runs the drag state machine. It is not safe for concurrent use; drive it from one event loop.
type DragController struct {
	records   RecordMover
	columns   ColumnReorderer
	highlight Highlighter
	known     func(domain.GroupKey) bool

	phase   DragPhase
	session domain.DragSession
	target  domain.GroupKey
	side    domain.DropSide
}

// NewDragController constructs an idle controller.
func NewDragController(records RecordMover, columns ColumnReorderer, opts ...DragOption) *DragController {
	c := &DragController{
		records:   records,
		columns:   columns,
		highlight: noopHighlighter{},
		phase:     PhaseIdle,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// State returns the current drag state.
func (c *DragController) State() DragState {
	return DragState{
		Phase:   c.phase,
		Session: c.session,
		Target:  c.target,
		Side:    c.side,
	}
}

// Active reports whether a drag session is in flight.
func (c *DragController) Active() bool {
	return c.phase != PhaseIdle
}

// Start arms a new session. Starting while another session is active cancels the old one first.
func (c *DragController) Start(session domain.DragSession) error {
	session.SourceID = strings.TrimSpace(session.SourceID)
	if session.SourceID == "" {
		return fmt.Errorf("%w: drag source id is required", domain.ErrInvalidArgument)
	}
	switch session.Kind {
	case domain.DragRecord, domain.DragColumn:
	default:
		return fmt.Errorf("%w: unknown drag kind %q", domain.ErrInvalidArgument, session.Kind)
	}
	if c.phase != PhaseIdle {
		c.reset()
	}
	c.session = session
	c.phase = PhaseArmed
	return nil
}

// Hover moves the pointer over target. Record drags ignore side.
func (c *DragController) Hover(target domain.GroupKey, side domain.DropSide) {
	if c.phase == PhaseIdle {
		return
	}
	if target == "" {
		c.Leave()
		return
	}
	if c.session.Kind != domain.DragColumn {
		side = domain.SideNone
	} else if side == domain.SideNone {
		side = domain.SideAfter
	}
	c.phase = PhaseHovering
	c.target = target
	c.side = side
	c.highlight.Highlight(target, side)
}

// HoverAt hovers target and derives the side from the pointer position within the target's extent.
func (c *DragController) HoverAt(target domain.GroupKey, pointerX, left, width float64) {
	side := domain.SideNone
	if c.session.Kind == domain.DragColumn {
		side = SideFor(pointerX, left, width)
	}
	c.Hover(target, side)
}

// Leave drops the hover target and returns to Armed.
func (c *DragController) Leave() {
	if c.phase != PhaseHovering {
		return
	}
	c.phase = PhaseArmed
	c.target = ""
	c.side = domain.SideNone
	c.highlight.ClearHighlight()
}

// Drop commits the session against target. The session and highlight are cleared before the mutation runs.
func (c *DragController) Drop(ctx context.Context, target domain.GroupKey, side domain.DropSide) (DropOutcome, error) {
	if c.phase == PhaseIdle {
		return OutcomeCancelled, nil
	}
	session := c.session
	if side == domain.SideNone && target == c.target {
		side = c.side
	}
	c.reset()

	if target == "" || (c.known != nil && !c.known(target)) {
		return OutcomeCancelled, nil
	}
	switch session.Kind {
	case domain.DragRecord:
		if target == session.SourceColumnKey {
			return OutcomeNoop, nil
		}
		if err := c.records.MoveRecord(ctx, session.SourceID, target); err != nil {
			return OutcomeFailed, err
		}
	case domain.DragColumn:
		if target == domain.GroupKey(session.SourceID) {
			return OutcomeNoop, nil
		}
		if side == domain.SideNone {
			side = domain.SideAfter
		}
		if err := c.columns.ReorderColumn(ctx, domain.GroupKey(session.SourceID), target, side); err != nil {
			return OutcomeFailed, err
		}
	}
	return OutcomeCommitted, nil
}

// End finishes a drag without a drop.
func (c *DragController) End() {
	if c.phase == PhaseIdle {
		return
	}
	c.reset()
}

// Cancel aborts the session; it is an alias of End for keyboard escape paths.
func (c *DragController) Cancel() {
	c.End()
}

// reset clears session, target, and highlight.
func (c *DragController) reset() {
	c.phase = PhaseIdle
	c.session = domain.DragSession{}
	c.target = ""
	c.side = domain.SideNone
	c.highlight.ClearHighlight()
}

// SideFor splits a target's horizontal extent into before and after halves.
func SideFor(pointerX, left, width float64) domain.DropSide {
	if width <= 0 {
		return domain.SideAfter
	}
	if pointerX < left+width/2 {
		return domain.SideBefore
	}
	return domain.SideAfter
}

// ReorderKeys moves source next to target. It reports false when the order is unchanged.
func ReorderKeys(order []domain.GroupKey, source, target domain.GroupKey, side domain.DropSide) ([]domain.GroupKey, bool) {
	if source == target || !slices.Contains(order, source) || !slices.Contains(order, target) {
		return slices.Clone(order), false
	}
	next := make([]domain.GroupKey, 0, len(order))
	for _, key := range order {
		if key != source {
			next = append(next, key)
		}
	}
	idx := slices.Index(next, target)
	if side != domain.SideBefore {
		idx++
	}
	next = slices.Insert(next, idx, source)
	return next, !slices.Equal(next, order)
}

// noopHighlighter discards highlight changes.
type noopHighlighter struct{}

// Highlight discards the change.
func (noopHighlighter) Highlight(domain.GroupKey, domain.DropSide) {}

// ClearHighlight discards the change.
func (noopHighlighter) ClearHighlight() {}
