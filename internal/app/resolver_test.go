package app

import (
	"slices"
	"testing"

	"github.com/evanschultz/kanbases/internal/domain"
)

func TestNormalizeKey(t *testing.T) {
	cases := map[string]string{
		"In Progress":     "in-progress",
		"in-progress ":    "in-progress",
		"  Needs   Work ": "needs-work",
		"Done!":           "done",
		"":                "",
	}
	for raw, want := range cases {
		if got := NormalizeKey(raw); got != want {
			t.Fatalf("NormalizeKey(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestResolveKeyNormalizationMergesEquivalentValues(t *testing.T) {
	cfg := domain.GroupingConfig{Mode: domain.GroupingProperty, Field: "note.status", Normalize: true}
	a := mustNote("a.md", map[string]any{"status": "In Progress"})
	b := mustNote("b.md", map[string]any{"status": "in-progress "})
	if ka, kb := ResolveKey(a, cfg), ResolveKey(b, cfg); ka != "in-progress" || kb != ka {
		t.Fatalf("ResolveKey() = %q and %q, want both in-progress", ka, kb)
	}
	groups := BucketRecords(records(a, b), cfg)
	if len(groups) != 1 || len(groups[0].Records) != 2 {
		t.Fatalf("expected one merged group, got %#v", groups)
	}
}

func TestResolveKeySentinelForMissingValues(t *testing.T) {
	cfg := domain.GroupingConfig{Mode: domain.GroupingProperty, Field: "note.status"}
	cases := []domain.Note{
		mustNote("none.md", nil),
		mustNote("nil.md", map[string]any{"status": nil}),
		mustNote("blank.md", map[string]any{"status": "   "}),
	}
	for _, note := range cases {
		if got := ResolveKey(note, cfg); got != domain.SentinelKey {
			t.Fatalf("ResolveKey(%s) = %q, want sentinel", note.Path, got)
		}
	}
	if got := ResolveKey(mustNote("x.md", map[string]any{"status": "Todo"}), domain.GroupingConfig{}); got != domain.SentinelKey {
		t.Fatalf("expected sentinel without a grouping field, got %q", got)
	}
	if got := ResolveKey(mustNote("x.md", map[string]any{"status": "Todo"}), cfg); got != "Todo" {
		t.Fatalf("expected verbatim key without normalization, got %q", got)
	}
}

func TestResolveKeyTemplateMode(t *testing.T) {
	note := mustNote("work/alpha.md", map[string]any{"team": "  Platform Core ", "status": "Todo"})
	cases := []struct {
		template string
		want     domain.GroupKey
	}{
		{template: "{{note.team|trim|kebab-case}}", want: "platform-core"},
		{template: "{{note.team|TRIM|Snake-Case}}", want: "platform_core"},
		{template: "{{note.status|uppercase}} / {{file.folder}}", want: "TODO / work"},
		{template: "{{note.status|capitalize}}", want: "Todo"},
		{template: "{{note.status|shout}}", want: "Todo"},
		{template: "{{note.missing}}", want: domain.SentinelKey},
		{template: "static", want: domain.SentinelKey},
	}
	for _, tc := range cases {
		cfg := domain.GroupingConfig{Mode: domain.GroupingTemplate, Template: tc.template}
		if got := ResolveKey(note, cfg); got != tc.want {
			t.Fatalf("ResolveKey(%q) = %q, want %q", tc.template, got, tc.want)
		}
	}
}

func TestKeyLabel(t *testing.T) {
	if got := KeyLabel("in-progress"); got != "In Progress" {
		t.Fatalf("KeyLabel() = %q", got)
	}
	if got := KeyLabel(domain.SentinelKey); got != "Backlog" {
		t.Fatalf("KeyLabel(sentinel) = %q", got)
	}
	if got := Descriptor("Done").Label; got != "Done" {
		t.Fatalf("Descriptor().Label = %q", got)
	}
}

func TestBucketRecordsFirstSeenOrder(t *testing.T) {
	cfg := domain.GroupingConfig{Mode: domain.GroupingProperty, Field: "note.status"}
	groups := BucketRecords(records(
		mustNote("c.md", map[string]any{"status": "Zeta"}),
		mustNote("a.md", map[string]any{"status": "Alpha"}),
		mustNote("b.md", map[string]any{"status": "Zeta"}),
		mustNote("d.md", nil),
	), cfg)
	got := make([]domain.GroupKey, 0, len(groups))
	for _, g := range groups {
		got = append(got, g.Key)
	}
	want := []domain.GroupKey{"Zeta", "Alpha", domain.SentinelKey}
	if !slices.Equal(got, want) {
		t.Fatalf("BucketRecords() keys = %v, want %v", got, want)
	}
	if ids := recordIDs(groups[0].Records); !slices.Equal(ids, []string{"c.md", "b.md"}) {
		t.Fatalf("unexpected Zeta members %v", ids)
	}
}

func TestKeysFromNames(t *testing.T) {
	got := KeysFromNames([]string{"Todo", " In Progress ", "", "todo", "Backlog"}, true)
	want := []domain.GroupKey{"todo", "in-progress", domain.SentinelKey}
	if !slices.Equal(got, want) {
		t.Fatalf("KeysFromNames() = %v, want %v", got, want)
	}
}
