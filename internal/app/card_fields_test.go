package app

import (
	"fmt"
	"slices"
	"strings"
	"testing"

	"github.com/evanschultz/kanbases/internal/domain"
)

// flakyRecord fails lookups for one field.
type flakyRecord struct {
	domain.Note
	broken domain.FieldID
}

func (r flakyRecord) Value(field domain.FieldID) (domain.Value, error) {
	if field == r.broken {
		return domain.Value{}, fmt.Errorf("lookup %s: boom", field)
	}
	return r.Note.Value(field)
}

func TestCardFieldsTierOrderAndRecovery(t *testing.T) {
	note := mustNote("a.md", map[string]any{
		"zone":     "west",
		"progress": 40,
		"status":   "Todo",
		"empty":    "",
		"owner":    []any{"ana", "ben"},
	})
	rec := flakyRecord{Note: note, broken: "note.zone"}
	fields := []domain.FieldID{"note.zone", "note.owner", "note.progress", "note.empty", "note.status", "formula.score"}

	got := CardFields(rec, fields)
	ids := make([]domain.FieldID, 0, len(got))
	for _, f := range got {
		ids = append(ids, f.Field)
	}
	want := []domain.FieldID{"note.status", "note.progress", "note.owner"}
	if !slices.Equal(ids, want) {
		t.Fatalf("CardFields() = %v, want %v", ids, want)
	}
	if got[2].Display != "ana, ben" || got[2].Kind != domain.ValueList {
		t.Fatalf("unexpected list field %#v", got[2])
	}
	if got[1].Kind != domain.ValueNumber || got[1].Label != "Progress" {
		t.Fatalf("unexpected number field %#v", got[1])
	}
}

func TestFormatValueTruncates(t *testing.T) {
	long := strings.Repeat("é", 120)
	got := FormatValue(domain.TextValue(long))
	if n := len([]rune(got)); n != 100 || !strings.HasSuffix(got, "...") {
		t.Fatalf("FormatValue() rune length = %d, value %q", n, got)
	}
	exact := strings.Repeat("x", 100)
	if FormatValue(domain.TextValue(exact)) != exact {
		t.Fatal("expected 100-rune value to stay intact")
	}
}

func TestBuildCardMappingAndTitleFallback(t *testing.T) {
	note := mustNote("projects/launch-plan.md", map[string]any{
		"tags":         []any{"ops", "", "q3"},
		"kind":         "epic",
		"story points": 5,
		"priority":     "high",
		"status":       "Todo",
		"owner":        "ana",
	})
	card := BuildCard(note, DefaultCardMapping(), []domain.FieldID{"note.status", "note.owner", "note.kind"}, "note.status")
	if card.Title != "launch-plan" {
		t.Fatalf("expected basename title, got %q", card.Title)
	}
	if !slices.Equal(card.Tags, []string{"ops", "q3"}) {
		t.Fatalf("unexpected tags %v", card.Tags)
	}
	if card.Type != "epic" || card.Points != "5" || card.Priority != "high" {
		t.Fatalf("unexpected slots %#v", card)
	}
	if len(card.Fields) != 1 || card.Fields[0].Field != "note.owner" {
		t.Fatalf("expected mapped and skipped fields omitted, got %#v", card.Fields)
	}

	titled := mustNote("x.md", map[string]any{"name": "Ship it"})
	if got := BuildCard(titled, DefaultCardMapping(), nil).Title; got != "Ship it" {
		t.Fatalf("expected mapped title, got %q", got)
	}
}

func TestDefaultCardMappingUsesPluginProperties(t *testing.T) {
	want := CardMapping{Title: "note.name", Tags: "note.tags", Type: "note.kind", Points: "note.story points", Priority: "note.priority"}
	if got := DefaultCardMapping(); got != want {
		t.Fatalf("DefaultCardMapping() = %#v, want %#v", got, want)
	}
	legacy := mustNote("legacy.md", map[string]any{"title": "Old", "type": "bug", "points": 2})
	card := BuildCard(legacy, DefaultCardMapping(), nil)
	if card.Title != "legacy" || card.Type != "" || card.Points != "" {
		t.Fatalf("expected title/type/points keys left unmapped, got %#v", card)
	}
}

func TestFieldLabelAndTier(t *testing.T) {
	if got := FieldLabel("note.story_points"); got != "Story Points" {
		t.Fatalf("FieldLabel() = %q", got)
	}
	if FieldTier("note.Status") != 1 || FieldTier("note.effort") != 2 || FieldTier("note.zone") != 3 {
		t.Fatal("unexpected field tiers")
	}
}
