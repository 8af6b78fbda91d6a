package app

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/evanschultz/kanbases/internal/domain"
)

// testNow is the fixed clock used by app tests.
var testNow = time.Date(2026, 2, 21, 12, 0, 0, 0, time.UTC)

// fakeConfigStore is an in-memory ConfigStore.
type fakeConfigStore struct {
	mu       sync.Mutex
	values   map[string]string
	writes   map[string]int
	readErr  error
	writeErr error
}

func newFakeConfigStore() *fakeConfigStore {
	return &fakeConfigStore{
		values: map[string]string{},
		writes: map[string]int{},
	}
}

func (f *fakeConfigStore) ConfigValue(_ context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readErr != nil {
		return "", false, f.readErr
	}
	v, ok := f.values[key]
	return v, ok, nil
}

func (f *fakeConfigStore) SetConfigValue(_ context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.values[key] = value
	f.writes[key]++
	return nil
}

func (f *fakeConfigStore) value(key string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.values[key]
}

func (f *fakeConfigStore) writeCount(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writes[key]
}

// fakeHost is an in-memory note collection implementing the record ports.
type fakeHost struct {
	mu       sync.Mutex
	notes    map[string]domain.Note
	order    []string
	updates  int
	writeErr error
	opened   []string
	onWrite  func()
}

func newFakeHost(notes ...domain.Note) *fakeHost {
	h := &fakeHost{notes: map[string]domain.Note{}}
	for _, note := range notes {
		h.put(note)
	}
	return h
}

func (h *fakeHost) put(note domain.Note) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.notes[note.Path]; !ok {
		h.order = append(h.order, note.Path)
	}
	h.notes[note.Path] = note
}

func (h *fakeHost) Records(context.Context) (Batch, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	batch := Batch{}
	fields := map[domain.FieldID]struct{}{}
	for _, id := range h.order {
		note := h.notes[id]
		batch.Records = append(batch.Records, note)
		for key := range note.Metadata {
			fields[domain.FieldID("note."+key)] = struct{}{}
		}
	}
	batch.Fields = slices.Sorted(maps.Keys(fields))
	return batch, nil
}

func (h *fakeHost) Record(_ context.Context, id string) (domain.Record, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	note, ok := h.notes[id]
	if !ok {
		return nil, ErrNotFound
	}
	return note, nil
}

func (h *fakeHost) UpdateMetadata(_ context.Context, id string, mutate func(map[string]any)) error {
	h.mu.Lock()
	if h.writeErr != nil {
		h.mu.Unlock()
		return h.writeErr
	}
	note, ok := h.notes[id]
	if !ok {
		h.mu.Unlock()
		return ErrNotFound
	}
	metadata := maps.Clone(note.Metadata)
	if metadata == nil {
		metadata = map[string]any{}
	}
	mutate(metadata)
	note.Metadata = metadata
	h.notes[id] = note
	h.updates++
	onWrite := h.onWrite
	h.mu.Unlock()
	if onWrite != nil {
		onWrite()
	}
	return nil
}

func (h *fakeHost) OpenRecord(_ context.Context, id string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.opened = append(h.opened, id)
	return nil
}

func (h *fakeHost) metadata(id string) map[string]any {
	h.mu.Lock()
	defer h.mu.Unlock()
	return maps.Clone(h.notes[id].Metadata)
}

func (h *fakeHost) updateCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.updates
}

// recordingLogger captures log events for assertions.
type recordingLogger struct {
	mu     sync.Mutex
	events []string
}

func (l *recordingLogger) record(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, level+": "+msg)
}

func (l *recordingLogger) Debug(msg string, _ ...any) { l.record("debug", msg) }
func (l *recordingLogger) Info(msg string, _ ...any)  { l.record("info", msg) }
func (l *recordingLogger) Warn(msg string, _ ...any)  { l.record("warn", msg) }
func (l *recordingLogger) Error(msg string, _ ...any) { l.record("error", msg) }

func (l *recordingLogger) count(level string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, event := range l.events {
		if strings.HasPrefix(event, level+":") {
			n++
		}
	}
	return n
}

// mustNote builds a note or panics.
func mustNote(path string, metadata map[string]any) domain.Note {
	note, err := domain.NewNote(path, metadata, "", testNow)
	if err != nil {
		panic(fmt.Sprintf("NewNote(%q): %v", path, err))
	}
	return note
}

// records converts notes to records.
func records(notes ...domain.Note) []domain.Record {
	out := make([]domain.Record, 0, len(notes))
	for _, note := range notes {
		out = append(out, note)
	}
	return out
}

// keys extracts column keys.
func keys(columns []Column) []domain.GroupKey {
	out := make([]domain.GroupKey, 0, len(columns))
	for _, column := range columns {
		out = append(out, column.Key)
	}
	return out
}

// recordIDs extracts record ids.
func recordIDs(rs []domain.Record) []string {
	out := make([]string, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.ID())
	}
	return out
}

// errStub is a host failure.
var errStub = errors.New("disk full")
