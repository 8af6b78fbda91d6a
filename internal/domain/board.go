package domain

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// GroupKey is the durable identity of one column.
type GroupKey string

// SentinelKey is the synthetic column for records without a resolvable grouping value.
const SentinelKey GroupKey = "Backlog"

// ColumnDescriptor pairs a column key with its presentable label.
type ColumnDescriptor struct {
	Key   GroupKey `json:"key"`
	Label string   `json:"label"`
}

// Group is the live membership of one column for the current batch.
type Group struct {
	Key     GroupKey
	Records []Record
}

// GroupingMode selects how records map onto group keys.
type GroupingMode string

// GroupingProperty and related constants define supported grouping modes.
const (
	GroupingProperty GroupingMode = "property"
	GroupingTemplate GroupingMode = "template"
)

// placeholderPattern matches `{{namespace.field|filter|...}}` template placeholders.
var placeholderPattern = regexp.MustCompile(`\{\{\s*([^{}|]+?)\s*((?:\|[^{}|]*)*)\}\}`)

// Placeholder is one parsed template placeholder.
type Placeholder struct {
	Raw     string
	Field   FieldID
	Filters []string
}

// GroupingConfig describes the active grouping.
type GroupingConfig struct {
	Mode      GroupingMode `json:"mode"`
	Field     FieldID      `json:"field,omitempty"`
	Template  string       `json:"template,omitempty"`
	Normalize bool         `json:"normalize"`
}

// Configured reports whether the grouping can produce keys.
func (c GroupingConfig) Configured() bool {
	return c.Identity() != ""
}

// Identity returns the string that scopes persisted order and hidden state.
func (c GroupingConfig) Identity() string {
	switch c.Mode {
	case GroupingTemplate:
		tmpl := strings.TrimSpace(c.Template)
		if tmpl == "" {
			return ""
		}
		return "template:" + tmpl
	case GroupingProperty, "":
		return strings.TrimSpace(string(c.Field))
	default:
		return ""
	}
}

// Validate checks mode and required inputs.
func (c GroupingConfig) Validate() error {
	switch c.Mode {
	case GroupingProperty, "":
		if strings.TrimSpace(string(c.Field)) == "" {
			return nil
		}
		if _, err := ParseFieldID(string(c.Field)); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidGrouping, err)
		}
		return nil
	case GroupingTemplate:
		for _, ph := range ParsePlaceholders(c.Template) {
			if ph.Field == "" {
				return fmt.Errorf("%w: bad placeholder %q", ErrInvalidGrouping, ph.Raw)
			}
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidGrouping, c.Mode)
	}
}

// WritableField resolves the single field a card move writes to.
func (c GroupingConfig) WritableField() (FieldID, error) {
	switch c.Mode {
	case GroupingTemplate:
		fields := make([]FieldID, 0, 2)
		for _, ph := range ParsePlaceholders(c.Template) {
			if ph.Field == "" || slices.Contains(fields, ph.Field) {
				continue
			}
			fields = append(fields, ph.Field)
		}
		if len(fields) != 1 {
			return "", fmt.Errorf("%w: template references %d fields", ErrGroupingNotWritable, len(fields))
		}
		return fields[0], nil
	default:
		if strings.TrimSpace(string(c.Field)) == "" {
			return "", ErrNotReady
		}
		return c.Field, nil
	}
}

// ParsePlaceholders extracts the placeholders of a grouping template in order.
func ParsePlaceholders(template string) []Placeholder {
	matches := placeholderPattern.FindAllStringSubmatch(template, -1)
	out := make([]Placeholder, 0, len(matches))
	for _, match := range matches {
		ph := Placeholder{Raw: match[0]}
		if field, err := ParseFieldID(match[1]); err == nil {
			ph.Field = field
		}
		for _, filter := range strings.Split(match[2], "|") {
			filter = strings.TrimSpace(filter)
			if filter == "" {
				continue
			}
			ph.Filters = append(ph.Filters, filter)
		}
		out = append(out, ph)
	}
	return out
}

// PlaceholderPattern exposes the compiled placeholder matcher for template rendering.
func PlaceholderPattern() *regexp.Regexp {
	return placeholderPattern
}

// PersistedBoardState is the ordering and visibility side-table keyed by grouping identity.
type PersistedBoardState struct {
	Order  map[string][]GroupKey
	Hidden map[string][]GroupKey
}

// NewPersistedBoardState constructs an empty state.
func NewPersistedBoardState() PersistedBoardState {
	return PersistedBoardState{
		Order:  map[string][]GroupKey{},
		Hidden: map[string][]GroupKey{},
	}
}

// OrderFor returns a copy of the persisted order for identity.
func (s PersistedBoardState) OrderFor(identity string) []GroupKey {
	return slices.Clone(s.Order[identity])
}

// HiddenFor returns the hidden set for identity.
func (s PersistedBoardState) HiddenFor(identity string) map[GroupKey]struct{} {
	out := make(map[GroupKey]struct{}, len(s.Hidden[identity]))
	for _, key := range s.Hidden[identity] {
		out[key] = struct{}{}
	}
	return out
}

// Clone deep-copies the state.
func (s PersistedBoardState) Clone() PersistedBoardState {
	out := NewPersistedBoardState()
	for id, keys := range s.Order {
		out.Order[id] = slices.Clone(keys)
	}
	for id, keys := range s.Hidden {
		out.Hidden[id] = slices.Clone(keys)
	}
	return out
}

// WithOrder returns a copy with identity's order replaced.
func (s PersistedBoardState) WithOrder(identity string, order []GroupKey) PersistedBoardState {
	out := s.Clone()
	out.Order[identity] = slices.Clone(order)
	return out
}

// WithHidden returns a copy with identity's hidden keys replaced.
func (s PersistedBoardState) WithHidden(identity string, hidden []GroupKey) PersistedBoardState {
	out := s.Clone()
	if len(hidden) == 0 {
		delete(out.Hidden, identity)
		return out
	}
	out.Hidden[identity] = slices.Clone(hidden)
	return out
}

// DragKind distinguishes card drags from column-header drags.
type DragKind string

// DragRecord and related constants define drag kinds.
const (
	DragRecord DragKind = "record"
	DragColumn DragKind = "column"
)

// DragSession describes the drag currently in flight.
type DragSession struct {
	Kind            DragKind
	SourceID        string
	SourceColumnKey GroupKey
}

// DropSide is the half of a drop target the pointer is over.
type DropSide string

// SideNone and related constants define drop sides.
const (
	SideNone   DropSide = ""
	SideBefore DropSide = "before"
	SideAfter  DropSide = "after"
)

// VirtualRange is the materialized index window of one list.
type VirtualRange struct {
	StartIndex int   `json:"start_index"`
	EndIndex   int   `json:"end_index"`
	Offsets    []int `json:"offsets"`
	TotalSize  int   `json:"total_size"`
}

// Len returns the number of materialized items.
func (r VirtualRange) Len() int {
	return max(0, r.EndIndex-r.StartIndex)
}
