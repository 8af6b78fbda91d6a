package app

import (
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/evanschultz/kanbases/internal/domain"
)

// maxFieldRunes bounds one rendered field value.
const maxFieldRunes = 100

// Field tiers order card properties by display priority.
var (
	tierOneFields = []string{"title", "name", "status", "priority", "assignee", "due", "due date", "due_date"}
	tierTwoFields = []string{"effort", "points", "story points", "story_points", "progress", "completion", "linked", "description", "summary"}
)

// CardField is one rendered property row on a card.
type CardField struct {
	Field   domain.FieldID
	Label   string
	Kind    domain.ValueKind
	Display string
	Tier    int
}

// CardMapping binds card slots to record fields.
type CardMapping struct {
	Title    domain.FieldID `json:"title,omitempty"`
	Tags     domain.FieldID `json:"tags,omitempty"`
	Type     domain.FieldID `json:"type,omitempty"`
	Points   domain.FieldID `json:"points,omitempty"`
	Priority domain.FieldID `json:"priority,omitempty"`
}

// DefaultCardMapping returns the stock slot bindings: name, tags, kind, story points, priority.
func DefaultCardMapping() CardMapping {
	return CardMapping{
		Title:    "note.name",
		Tags:     "note.tags",
		Type:     "note.kind",
		Points:   "note.story points",
		Priority: "note.priority",
	}
}

// fields lists the mapped fields in slot order.
func (m CardMapping) fields() []domain.FieldID {
	return []domain.FieldID{m.Title, m.Tags, m.Type, m.Points, m.Priority}
}

// Card is the render model of one record.
type Card struct {
	ID       string
	Title    string
	Tags     []string
	Type     string
	Points   string
	Priority string
	Fields   []CardField
}

// FieldTier ranks a property name: 1 is shown first.
func FieldTier(field domain.FieldID) int {
	name := strings.ToLower(strings.TrimSpace(field.Name()))
	switch {
	case slices.Contains(tierOneFields, name):
		return 1
	case slices.Contains(tierTwoFields, name):
		return 2
	default:
		return 3
	}
}

// FieldLabel renders a field name for display.
func FieldLabel(field domain.FieldID) string {
	words := strings.FieldsFunc(field.Name(), func(r rune) bool {
		return r == ' ' || r == '_' || r == '-'
	})
	for i, word := range words {
		words[i] = upperFirst(word)
	}
	return strings.Join(words, " ")
}

// FormatValue renders a value for a card, truncating long text.
func FormatValue(v domain.Value) string {
	return truncateRunes(strings.TrimSpace(v.String()), maxFieldRunes)
}

// CardFields renders the non-empty fields of record in tier order. Fields that fail to read are skipped.
func CardFields(record domain.Record, fields []domain.FieldID, skip ...domain.FieldID) []CardField {
	out := make([]CardField, 0, len(fields))
	seen := map[domain.FieldID]struct{}{}
	for _, field := range fields {
		if field == "" || slices.Contains(skip, field) {
			continue
		}
		if _, ok := seen[field]; ok {
			continue
		}
		seen[field] = struct{}{}
		value, err := record.Value(field)
		if err != nil || value.IsEmpty() {
			continue
		}
		out = append(out, CardField{
			Field:   field,
			Label:   FieldLabel(field),
			Kind:    value.Kind,
			Display: FormatValue(value),
			Tier:    FieldTier(field),
		})
	}
	slices.SortStableFunc(out, func(a, b CardField) int {
		return a.Tier - b.Tier
	})
	return out
}

// BuildCard applies mapping to record. The title falls back to the file basename.
func BuildCard(record domain.Record, mapping CardMapping, fields []domain.FieldID, skip ...domain.FieldID) Card {
	card := Card{ID: record.ID()}
	card.Title = slotText(record, mapping.Title)
	if card.Title == "" {
		card.Title = slotText(record, "file.basename")
	}
	if card.Title == "" {
		card.Title = record.ID()
	}
	if mapping.Tags != "" {
		if value, err := record.Value(mapping.Tags); err == nil && !value.IsEmpty() {
			card.Tags = valueItems(value)
		}
	}
	card.Type = slotText(record, mapping.Type)
	card.Points = slotText(record, mapping.Points)
	card.Priority = slotText(record, mapping.Priority)

	omit := append(slices.Clone(skip), mapping.fields()...)
	card.Fields = CardFields(record, fields, omit...)
	return card
}

// slotText reads one mapped slot, returning "" for unmapped, empty, or unreadable fields.
func slotText(record domain.Record, field domain.FieldID) string {
	if field == "" {
		return ""
	}
	value, err := record.Value(field)
	if err != nil || value.IsEmpty() {
		return ""
	}
	return FormatValue(value)
}

// valueItems flattens a value into display strings.
func valueItems(v domain.Value) []string {
	if v.Kind != domain.ValueList {
		return []string{FormatValue(v)}
	}
	out := make([]string, 0, len(v.Items))
	for _, item := range v.Items {
		if item.IsEmpty() {
			continue
		}
		out = append(out, FormatValue(item))
	}
	return out
}

// truncateRunes shortens s to limit runes, ending with an ellipsis.
func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit-3]) + "..."
}
