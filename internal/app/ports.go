package app

import (
	"context"

	"github.com/evanschultz/kanbases/internal/domain"
)

// Batch is one upstream data push: every record plus the fields the host knows about.
type Batch struct {
	Records []domain.Record
	Fields  []domain.FieldID
}

// RecordSource pulls the current record batch from the host.
type RecordSource interface {
	Records(context.Context) (Batch, error)
}

// RecordLookup resolves one live host record by id.
type RecordLookup interface {
	Record(context.Context, string) (domain.Record, error)
}

// MetadataWriter performs a read-modify-write of one record's persisted metadata.
type MetadataWriter interface {
	UpdateMetadata(context.Context, string, func(map[string]any)) error
}

// ConfigStore is the host's string key/value persistence surface.
type ConfigStore interface {
	ConfigValue(context.Context, string) (string, bool, error)
	SetConfigValue(context.Context, string, string) error
}

// RecordOpener opens a record in the host after a non-drag click.
type RecordOpener interface {
	OpenRecord(context.Context, string) error
}

// Logger receives structured key/value events from the board engine.
type Logger interface {
	Debug(msg string, keyvals ...any)
	Info(msg string, keyvals ...any)
	Warn(msg string, keyvals ...any)
	Error(msg string, keyvals ...any)
}

// nopLogger discards events.
type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// loggerOrNop returns l, or a discarding logger when l is nil.
func loggerOrNop(l Logger) Logger {
	if l == nil {
		return nopLogger{}
	}
	return l
}
