package app

import (
	"slices"
	"testing"

	"github.com/evanschultz/kanbases/internal/domain"
)

// groupsOf builds one-record groups for keys.
func groupsOf(keys ...domain.GroupKey) []domain.Group {
	out := make([]domain.Group, 0, len(keys))
	for _, key := range keys {
		out = append(out, domain.Group{
			Key:     key,
			Records: records(mustNote(string(key)+".md", map[string]any{"status": string(key)})),
		})
	}
	return out
}

func TestReconcileIdempotent(t *testing.T) {
	persisted := domain.NewPersistedBoardState().WithOrder("note.status", []domain.GroupKey{"C", "A"})
	in := ReconcileInput{
		Groups:    groupsOf("A", "B", "C"),
		Identity:  "note.status",
		Persisted: persisted,
	}
	first := NewReconciler(RetainUntilRegroup).Reconcile(in)
	r := NewReconciler(RetainUntilRegroup)
	second := r.Reconcile(in)
	third := r.Reconcile(in)
	if !slices.Equal(first.Order, second.Order) || !slices.Equal(second.Order, third.Order) {
		t.Fatalf("expected identical orders, got %v %v %v", first.Order, second.Order, third.Order)
	}
	if want := []domain.GroupKey{"C", "A", "B"}; !slices.Equal(first.Order, want) {
		t.Fatalf("Reconcile() order = %v, want %v", first.Order, want)
	}
	if !first.Changed {
		t.Fatal("expected appended key to mark the order changed")
	}
}

func TestReconcilePreservesSeenEmptyColumns(t *testing.T) {
	persisted := domain.NewPersistedBoardState().WithOrder("note.status", []domain.GroupKey{"A", "B", "C"})
	r := NewReconciler(RetainUntilRegroup)
	got := r.Reconcile(ReconcileInput{
		Groups:    groupsOf("B"),
		Identity:  "note.status",
		Persisted: persisted,
	})
	if want := []domain.GroupKey{"A", "B", "C"}; !slices.Equal(got.Order, want) {
		t.Fatalf("Reconcile() order = %v, want %v", got.Order, want)
	}
	if got.Changed {
		t.Fatal("expected unchanged order to skip persistence")
	}
	if len(got.Columns) != 3 || len(got.Columns[0].Records) != 0 || got.Columns[0].Records == nil {
		t.Fatalf("expected empty non-nil member list for A, got %#v", got.Columns)
	}
}

func TestReconcileRegroupResetsRetention(t *testing.T) {
	persisted := domain.NewPersistedBoardState().
		WithOrder("note.status", []domain.GroupKey{"A", "B", "C"}).
		WithOrder("note.priority", []domain.GroupKey{"A", "B", "C"})
	r := NewReconciler(RetainUntilRegroup)
	r.Reconcile(ReconcileInput{Groups: groupsOf("A", "B", "C"), Identity: "note.status", Persisted: persisted})

	got := r.Reconcile(ReconcileInput{Groups: groupsOf("B"), Identity: "note.priority", Persisted: persisted})
	if want := []domain.GroupKey{"B"}; !slices.Equal(got.Order, want) {
		t.Fatalf("Reconcile() after regroup = %v, want %v", got.Order, want)
	}
	if !got.Changed || !slices.Equal(got.Persisted.OrderFor("note.priority"), []domain.GroupKey{"B"}) {
		t.Fatalf("expected pruned order to be persisted, got %#v", got.Persisted.Order)
	}
	if !slices.Equal(got.Persisted.OrderFor("note.status"), []domain.GroupKey{"A", "B", "C"}) {
		t.Fatal("expected other identities to stay untouched")
	}
}

func TestReconcileRetentionPolicies(t *testing.T) {
	persisted := domain.NewPersistedBoardState().
		WithOrder("note.status", []domain.GroupKey{"A", "B", "C"}).
		WithOrder("note.priority", []domain.GroupKey{"A", "B", "C"})

	indefinite := NewReconciler(RetainIndefinitely)
	indefinite.Reconcile(ReconcileInput{Groups: groupsOf("A"), Identity: "note.status", Persisted: persisted})
	got := indefinite.Reconcile(ReconcileInput{Groups: groupsOf("B"), Identity: "note.priority", Persisted: persisted})
	if want := []domain.GroupKey{"A", "B", "C"}; !slices.Equal(got.Order, want) {
		t.Fatalf("indefinite retention order = %v, want %v", got.Order, want)
	}

	none := NewReconciler(RetainNone)
	got = none.Reconcile(ReconcileInput{Groups: groupsOf("B"), Identity: "note.status", Persisted: persisted})
	if want := []domain.GroupKey{"B"}; !slices.Equal(got.Order, want) {
		t.Fatalf("no retention order = %v, want %v", got.Order, want)
	}
}

func TestReconcileAppendsNewColumns(t *testing.T) {
	persisted := domain.NewPersistedBoardState().WithOrder("note.status", []domain.GroupKey{"A"})
	got := NewReconciler(RetainUntilRegroup).Reconcile(ReconcileInput{
		Groups:    groupsOf("D", "A"),
		Identity:  "note.status",
		Persisted: persisted,
	})
	if want := []domain.GroupKey{"A", "D"}; !slices.Equal(got.Order, want) {
		t.Fatalf("Reconcile() order = %v, want %v", got.Order, want)
	}
}

func TestReconcileConfiguredNamesSeedOrder(t *testing.T) {
	got := NewReconciler(RetainUntilRegroup).Reconcile(ReconcileInput{
		Groups:     groupsOf("Done", "Blocked", "Todo"),
		Identity:   "note.status",
		Persisted:  domain.NewPersistedBoardState(),
		Configured: []domain.GroupKey{"Todo", "In Progress", "Done"},
	})
	if want := []domain.GroupKey{"Todo", "In Progress", "Done", "Blocked"}; !slices.Equal(got.Order, want) {
		t.Fatalf("Reconcile() order = %v, want %v", got.Order, want)
	}
}

func TestReconcileHiddenKeysStayInOrder(t *testing.T) {
	persisted := domain.NewPersistedBoardState().
		WithOrder("note.status", []domain.GroupKey{"A", "B", "C"}).
		WithHidden("note.status", []domain.GroupKey{"B"})
	r := NewReconciler(RetainNone)
	got := r.Reconcile(ReconcileInput{Groups: groupsOf("A", "C"), Identity: "note.status", Persisted: persisted})
	if want := []domain.GroupKey{"A", "B", "C"}; !slices.Equal(got.Order, want) {
		t.Fatalf("Reconcile() order = %v, want %v", got.Order, want)
	}
	if want := []domain.GroupKey{"A", "C"}; !slices.Equal(keys(got.Columns), want) {
		t.Fatalf("visible columns = %v, want %v", keys(got.Columns), want)
	}
	if len(got.Hidden) != 1 || got.Hidden[0].Key != "B" {
		t.Fatalf("unexpected hidden descriptors %#v", got.Hidden)
	}
}

func TestReconcileStatuses(t *testing.T) {
	r := NewReconciler(RetainUntilRegroup)
	missing := r.Reconcile(ReconcileInput{Groups: groupsOf("A")})
	if missing.Status != StatusConfigurationMissing || len(missing.Order) != 0 {
		t.Fatalf("expected configuration_missing with empty order, got %#v", missing)
	}
	empty := r.Reconcile(ReconcileInput{Identity: "note.status", Persisted: domain.NewPersistedBoardState()})
	if empty.Status != StatusEmpty {
		t.Fatalf("expected empty status, got %q", empty.Status)
	}
	ready := r.Reconcile(ReconcileInput{Groups: groupsOf("A"), Identity: "note.status", Persisted: domain.NewPersistedBoardState()})
	if ready.Status != StatusReady || ready.Total != 1 {
		t.Fatalf("expected ready with one record, got %#v", ready)
	}
}

func TestReconcileMergesDuplicateGroups(t *testing.T) {
	groups := append(groupsOf("A"), groupsOf("A")...)
	got := NewReconciler(RetainUntilRegroup).Reconcile(ReconcileInput{
		Groups:    groups,
		Identity:  "note.status",
		Persisted: domain.NewPersistedBoardState(),
	})
	if len(got.Columns) != 1 || len(got.Columns[0].Records) != 2 {
		t.Fatalf("expected merged column, got %#v", got.Columns)
	}
}

func TestParseRetentionPolicy(t *testing.T) {
	for raw, want := range map[string]RetentionPolicy{
		"":              RetainUntilRegroup,
		"Until-Regroup": RetainUntilRegroup,
		" indefinite ":  RetainIndefinitely,
		"none":          RetainNone,
	} {
		got, err := ParseRetentionPolicy(raw)
		if err != nil || got != want {
			t.Fatalf("ParseRetentionPolicy(%q) = %q, %v", raw, got, err)
		}
	}
	if _, err := ParseRetentionPolicy("forever"); err == nil {
		t.Fatal("expected unknown policy to fail")
	}
}
