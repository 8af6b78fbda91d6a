package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/evanschultz/kanbases/internal/domain"
)

// CardMover translates a card drop into one metadata write on the host.
type CardMover struct {
	records RecordLookup
	writer  MetadataWriter
	logger  Logger

	mu       sync.RWMutex
	grouping domain.GroupingConfig
	ready    bool
}

// NewCardMover constructs a mover. It refuses moves until Bind is called.
func NewCardMover(records RecordLookup, writer MetadataWriter, logger Logger) *CardMover {
	return &CardMover{
		records: records,
		writer:  writer,
		logger:  loggerOrNop(logger),
	}
}

// Bind records the grouping that the last processed batch was bucketed with.
func (m *CardMover) Bind(grouping domain.GroupingConfig) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.grouping = grouping
	m.ready = grouping.Configured()
}

// Reset returns the mover to the not-ready state.
func (m *CardMover) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.grouping = domain.GroupingConfig{}
	m.ready = false
}

// Ready reports whether a grouping has been bound.
func (m *CardMover) Ready() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ready
}

// MoveRecord writes target into the grouping field of recordID. The sentinel key clears the field.
func (m *CardMover) MoveRecord(ctx context.Context, recordID string, target domain.GroupKey) error {
	recordID = strings.TrimSpace(recordID)
	if recordID == "" {
		return fmt.Errorf("%w: record id is required", domain.ErrInvalidArgument)
	}
	if strings.TrimSpace(string(target)) == "" {
		return fmt.Errorf("%w: target column key is required", domain.ErrInvalidArgument)
	}

	m.mu.RLock()
	grouping, ready := m.grouping, m.ready
	m.mu.RUnlock()
	if !ready {
		return fmt.Errorf("%w: grouping is not bound yet", domain.ErrNotReady)
	}
	field, err := grouping.WritableField()
	if err != nil {
		return err
	}

	record, err := m.records.Record(ctx, recordID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("record %q: %w", recordID, domain.ErrNotFound)
		}
		return fmt.Errorf("lookup record %q: %w", recordID, err)
	}
	if record == nil {
		return fmt.Errorf("record %q: %w", recordID, domain.ErrNotFound)
	}

	name := field.Name()
	err = m.writer.UpdateMetadata(ctx, record.ID(), func(metadata map[string]any) {
		if target == domain.SentinelKey {
			metadata[name] = nil
			return
		}
		metadata[name] = string(target)
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("record %q: %w", recordID, domain.ErrNotFound)
		}
		return fmt.Errorf("%w: move %q to %q: %w", domain.ErrHostWriteFailed, recordID, target, err)
	}
	m.logger.Info("card moved", "record", recordID, "field", string(field), "column", string(target))
	return nil
}
