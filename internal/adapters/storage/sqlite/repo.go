package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/evanschultz/kanbases/internal/app"
	"github.com/evanschultz/kanbases/internal/domain"
	_ "modernc.org/sqlite"
)

// driverName defines a package constant value.
const driverName = "sqlite"

// ChangeOp identifies the kind of note mutation.
type ChangeOp string

// ChangeUpsert and related constants define note mutation kinds.
const (
	ChangeUpsert   ChangeOp = "upsert"
	ChangeMetadata ChangeOp = "metadata"
	ChangeDelete   ChangeOp = "delete"
)

// Change describes one committed note mutation.
type Change struct {
	Path string
	Op   ChangeOp
}

// Repository is the sqlite-backed note host.
type Repository struct {
	db  *sql.DB
	now func() time.Time

	mu        sync.Mutex
	nextID    int
	listeners map[int]func(Change)
}

// Open opens the requested operation.
func Open(path string) (*Repository, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	return newRepository(db)
}

// OpenInMemory opens in memory.
func OpenInMemory() (*Repository, error) {
	db, err := sql.Open(driverName, "file::memory:?cache=shared")
	if err != nil {
		return nil, fmt.Errorf("open sqlite memory: %w", err)
	}
	return newRepository(db)
}

// newRepository migrates db and wraps it.
func newRepository(db *sql.DB) (*Repository, error) {
	repo := &Repository{
		db:        db,
		now:       time.Now,
		listeners: map[int]func(Change){},
	}
	if err := repo.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// Close closes the requested operation.
func (r *Repository) Close() error {
	return r.db.Close()
}

// migrate handles migrate.
func (r *Repository) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS notes (
			path TEXT PRIMARY KEY,
			metadata_json TEXT NOT NULL DEFAULT '{}',
			body TEXT NOT NULL DEFAULT '',
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS board_config (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_notes_updated_at ON notes(updated_at DESC);`,
	}
	for _, stmt := range stmts {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate sqlite: %w", err)
		}
	}
	return nil
}

// OnChange registers fn to run after every committed note mutation. The returned func unregisters it.
func (r *Repository) OnChange(fn func(Change)) func() {
	if fn == nil {
		return func() {}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	id := r.nextID
	r.listeners[id] = fn
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.listeners, id)
	}
}

// emit notifies listeners in registration order.
func (r *Repository) emit(change Change) {
	r.mu.Lock()
	ids := slices.Sorted(maps.Keys(r.listeners))
	fns := make([]func(Change), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, r.listeners[id])
	}
	r.mu.Unlock()
	for _, fn := range fns {
		fn(change)
	}
}

// UpsertNote inserts or replaces one note.
func (r *Repository) UpsertNote(ctx context.Context, note domain.Note) error {
	note, err := domain.NewNote(note.Path, note.Metadata, note.Body, note.UpdatedAt)
	if err != nil {
		return err
	}
	metadataJSON, err := json.Marshal(note.Metadata)
	if err != nil {
		return fmt.Errorf("encode note metadata: %w", err)
	}
	updated := note.UpdatedAt
	if updated.IsZero() {
		updated = r.now()
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO notes(path, metadata_json, body, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			metadata_json = excluded.metadata_json,
			body = excluded.body,
			updated_at = excluded.updated_at
	`, note.Path, string(metadataJSON), note.Body, ts(updated))
	if err != nil {
		return fmt.Errorf("upsert note %q: %w", note.Path, err)
	}
	r.emit(Change{Path: note.Path, Op: ChangeUpsert})
	return nil
}

// GetNote returns one note by path.
func (r *Repository) GetNote(ctx context.Context, notePath string) (domain.Note, error) {
	return getNoteByPath(ctx, r.db, cleanPath(notePath))
}

// ListNotes returns every note ordered by path.
func (r *Repository) ListNotes(ctx context.Context) ([]domain.Note, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT path, metadata_json, body, updated_at
		FROM notes
		ORDER BY path ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Note, 0)
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, note)
	}
	return out, rows.Err()
}

// DeleteNote removes one note.
func (r *Repository) DeleteNote(ctx context.Context, notePath string) error {
	notePath = cleanPath(notePath)
	res, err := r.db.ExecContext(ctx, `DELETE FROM notes WHERE path = ?`, notePath)
	if err != nil {
		return err
	}
	if err := translateNoRows(res); err != nil {
		return err
	}
	r.emit(Change{Path: notePath, Op: ChangeDelete})
	return nil
}

// Record resolves one live record by id.
func (r *Repository) Record(ctx context.Context, id string) (domain.Record, error) {
	note, err := r.GetNote(ctx, id)
	if err != nil {
		return nil, err
	}
	return note, nil
}

// Records returns every note plus the sorted union of their metadata fields.
func (r *Repository) Records(ctx context.Context) (app.Batch, error) {
	notes, err := r.ListNotes(ctx)
	if err != nil {
		return app.Batch{}, fmt.Errorf("list notes: %w", err)
	}
	batch := app.Batch{Records: make([]domain.Record, 0, len(notes))}
	fields := map[domain.FieldID]struct{}{}
	for _, note := range notes {
		batch.Records = append(batch.Records, note)
		for key := range note.Metadata {
			if strings.TrimSpace(key) == "" {
				continue
			}
			fields[domain.FieldID("note."+key)] = struct{}{}
		}
	}
	batch.Fields = slices.Sorted(maps.Keys(fields))
	return batch, nil
}

// UpdateMetadata runs mutate over one note's metadata inside a transaction.
func (r *Repository) UpdateMetadata(ctx context.Context, id string, mutate func(map[string]any)) (err error) {
	if mutate == nil {
		return fmt.Errorf("%w: metadata mutator is required", domain.ErrInvalidArgument)
	}
	notePath := cleanPath(id)
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	note, err := getNoteByPath(ctx, tx, notePath)
	if err != nil {
		return err
	}
	metadata := maps.Clone(note.Metadata)
	if metadata == nil {
		metadata = map[string]any{}
	}
	mutate(metadata)
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("encode note metadata: %w", err)
	}
	res, err := tx.ExecContext(ctx, `
		UPDATE notes
		SET metadata_json = ?, updated_at = ?
		WHERE path = ?
	`, string(metadataJSON), ts(r.now()), notePath)
	if err != nil {
		return err
	}
	if err = translateNoRows(res); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return err
	}
	r.emit(Change{Path: notePath, Op: ChangeMetadata})
	return nil
}

// ConfigValue reads one board config value.
func (r *Repository) ConfigValue(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM board_config WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read config %q: %w", key, err)
	}
	return value, true, nil
}

// SetConfigValue writes one board config value.
func (r *Repository) SetConfigValue(ctx context.Context, key, value string) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("%w: config key is required", domain.ErrInvalidArgument)
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO board_config(key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, ts(r.now()))
	if err != nil {
		return fmt.Errorf("write config %q: %w", key, err)
	}
	return nil
}

// queryRower represents a query-only DB contract used by DB and Tx implementations.
type queryRower interface {
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

// getNoteByPath returns one note row.
func getNoteByPath(ctx context.Context, q queryRower, notePath string) (domain.Note, error) {
	row := q.QueryRowContext(ctx, `
		SELECT path, metadata_json, body, updated_at
		FROM notes
		WHERE path = ?
	`, notePath)
	return scanNote(row)
}

// scanner represents scanner data used by this package.
type scanner interface {
	Scan(dest ...any) error
}

// scanNote decodes one note row.
func scanNote(s scanner) (domain.Note, error) {
	var (
		note        domain.Note
		metadataRaw string
		updatedRaw  string
	)
	if err := s.Scan(&note.Path, &metadataRaw, &note.Body, &updatedRaw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Note{}, app.ErrNotFound
		}
		return domain.Note{}, err
	}
	if strings.TrimSpace(metadataRaw) == "" {
		metadataRaw = "{}"
	}
	if err := json.Unmarshal([]byte(metadataRaw), &note.Metadata); err != nil {
		return domain.Note{}, fmt.Errorf("decode note %q metadata_json: %w", note.Path, err)
	}
	if note.Metadata == nil {
		note.Metadata = map[string]any{}
	}
	note.UpdatedAt = parseTS(updatedRaw)
	return note, nil
}

// translateNoRows handles translate no rows.
func translateNoRows(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return app.ErrNotFound
	}
	return nil
}

// cleanPath normalizes a note id the same way domain.NewNote does.
func cleanPath(notePath string) string {
	note, err := domain.NewNote(notePath, nil, "", time.Time{})
	if err != nil {
		return ""
	}
	return note.Path
}

// ts handles ts.
func ts(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTS parses input into a normalized form.
func parseTS(v string) time.Time {
	ts, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return ts.UTC()
}
