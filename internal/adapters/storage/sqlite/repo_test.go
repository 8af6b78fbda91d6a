package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/evanschultz/kanbases/internal/app"
	"github.com/evanschultz/kanbases/internal/domain"
)

func openTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := Open(filepath.Join(t.TempDir(), "kanbases.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() {
		_ = repo.Close()
	})
	now := time.Date(2026, 2, 21, 12, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return now }
	return repo
}

func TestRepository_NoteLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)

	note, err := domain.NewNote("/work/alpha.md", map[string]any{"status": "Todo", "points": 3}, "# Alpha", time.Time{})
	if err != nil {
		t.Fatalf("NewNote() error = %v", err)
	}
	if err := repo.UpsertNote(ctx, note); err != nil {
		t.Fatalf("UpsertNote() error = %v", err)
	}
	loaded, err := repo.GetNote(ctx, "work/alpha.md")
	if err != nil {
		t.Fatalf("GetNote() error = %v", err)
	}
	if loaded.Body != "# Alpha" || loaded.Metadata["status"] != "Todo" || loaded.Metadata["points"] != 3.0 {
		t.Fatalf("unexpected note %#v", loaded)
	}
	if loaded.UpdatedAt.IsZero() {
		t.Fatal("expected updated_at to default to now")
	}

	if err := repo.DeleteNote(ctx, "work/alpha.md"); err != nil {
		t.Fatalf("DeleteNote() error = %v", err)
	}
	if _, err := repo.GetNote(ctx, "work/alpha.md"); err != app.ErrNotFound {
		t.Fatalf("expected app.ErrNotFound, got %v", err)
	}
	if err := repo.DeleteNote(ctx, "work/alpha.md"); err != app.ErrNotFound {
		t.Fatalf("expected app.ErrNotFound on second delete, got %v", err)
	}
}

func TestRepository_RecordsBatch(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)
	for _, n := range []struct {
		path string
		md   map[string]any
	}{
		{path: "b.md", md: map[string]any{"status": "Done", "owner": "ana"}},
		{path: "a.md", md: map[string]any{"status": "Todo", "priority": "high"}},
	} {
		note, _ := domain.NewNote(n.path, n.md, "", time.Time{})
		if err := repo.UpsertNote(ctx, note); err != nil {
			t.Fatalf("UpsertNote() error = %v", err)
		}
	}
	batch, err := repo.Records(ctx)
	if err != nil {
		t.Fatalf("Records() error = %v", err)
	}
	if len(batch.Records) != 2 || batch.Records[0].ID() != "a.md" {
		t.Fatalf("unexpected records %#v", batch.Records)
	}
	want := []domain.FieldID{"note.owner", "note.priority", "note.status"}
	if !slices.Equal(batch.Fields, want) {
		t.Fatalf("Fields = %v, want %v", batch.Fields, want)
	}
	if _, err := repo.Record(ctx, "missing.md"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Record(missing) error = %v", err)
	}
}

func TestRepository_UpdateMetadataNotifiesListeners(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)
	note, _ := domain.NewNote("a.md", map[string]any{"status": "Todo", "owner": "ana"}, "body", time.Time{})
	if err := repo.UpsertNote(ctx, note); err != nil {
		t.Fatalf("UpsertNote() error = %v", err)
	}

	var changes []Change
	unsubscribe := repo.OnChange(func(c Change) { changes = append(changes, c) })
	calls := 0
	err := repo.UpdateMetadata(ctx, "a.md", func(md map[string]any) {
		calls++
		md["status"] = "Done"
	})
	if err != nil {
		t.Fatalf("UpdateMetadata() error = %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected mutator called once, got %d", calls)
	}
	loaded, _ := repo.GetNote(ctx, "a.md")
	if loaded.Metadata["status"] != "Done" || loaded.Metadata["owner"] != "ana" || loaded.Body != "body" {
		t.Fatalf("unexpected note after update %#v", loaded)
	}
	if len(changes) != 1 || changes[0] != (Change{Path: "a.md", Op: ChangeMetadata}) {
		t.Fatalf("unexpected changes %#v", changes)
	}

	if err := repo.UpdateMetadata(ctx, "a.md", func(md map[string]any) { md["status"] = nil }); err != nil {
		t.Fatalf("UpdateMetadata(nil) error = %v", err)
	}
	loaded, _ = repo.GetNote(ctx, "a.md")
	if value, ok := loaded.Metadata["status"]; !ok || value != nil {
		t.Fatalf("expected status stored as null, got %#v", loaded.Metadata)
	}

	unsubscribe()
	if err := repo.UpdateMetadata(ctx, "missing.md", func(map[string]any) {}); err != app.ErrNotFound {
		t.Fatalf("expected app.ErrNotFound, got %v", err)
	}
	if len(changes) != 2 {
		t.Fatalf("expected no events after unsubscribe or failure, got %#v", changes)
	}
}

func TestRepository_ConfigValues(t *testing.T) {
	ctx := context.Background()
	repo, err := OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory() error = %v", err)
	}
	t.Cleanup(func() {
		_ = repo.Close()
	})

	if _, ok, err := repo.ConfigValue(ctx, app.KeyColumnOrder); err != nil || ok {
		t.Fatalf("ConfigValue(missing) = %v, %v", ok, err)
	}
	if err := repo.SetConfigValue(ctx, app.KeyColumnOrder, `{"note.status":["Todo"]}`); err != nil {
		t.Fatalf("SetConfigValue() error = %v", err)
	}
	if err := repo.SetConfigValue(ctx, app.KeyColumnOrder, `{"note.status":["Done"]}`); err != nil {
		t.Fatalf("SetConfigValue(overwrite) error = %v", err)
	}
	value, ok, err := repo.ConfigValue(ctx, app.KeyColumnOrder)
	if err != nil || !ok || value != `{"note.status":["Done"]}` {
		t.Fatalf("ConfigValue() = %q, %v, %v", value, ok, err)
	}
	if err := repo.SetConfigValue(ctx, " ", "x"); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("SetConfigValue(blank) error = %v", err)
	}
}

func TestRepository_DrivesBoardView(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)
	for path, status := range map[string]string{"a.md": "Todo", "b.md": "Done"} {
		note, _ := domain.NewNote(path, map[string]any{"status": status}, "", time.Time{})
		if err := repo.UpsertNote(ctx, note); err != nil {
			t.Fatalf("UpsertNote() error = %v", err)
		}
	}
	board, err := app.NewBoardView(app.BoardViewDeps{
		Source:  repo,
		Records: repo,
		Writer:  repo,
		Config:  repo,
	}, app.BoardViewConfig{})
	if err != nil {
		t.Fatalf("NewBoardView() error = %v", err)
	}
	if err := board.Load(ctx); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	repo.OnChange(func(Change) {
		if err := board.Refresh(ctx); err != nil {
			t.Errorf("Refresh() error = %v", err)
		}
	})
	if err := board.Refresh(ctx); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if err := board.MoveRecord(ctx, "a.md", "Done"); err != nil {
		t.Fatalf("MoveRecord() error = %v", err)
	}
	done, ok := board.Snapshot().Column("Done")
	if !ok || len(done.Records) != 2 {
		t.Fatalf("expected both notes in Done, got %#v", board.Snapshot().Columns)
	}
	if _, ok, _ := repo.ConfigValue(ctx, app.KeyColumnOrder); !ok {
		t.Fatal("expected column order persisted through the repository")
	}
}
