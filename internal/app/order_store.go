package app

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/evanschultz/kanbases/internal/domain"
)

// Config keys owned by the column order store.
const (
	KeyColumnOrder   = "board-columnOrder"
	KeyHiddenColumns = "board-hiddenColumns"
	KeyColumnNames   = "board-columnNames"
)

// OrderStore persists column order and hidden columns per grouping identity.
type OrderStore struct {
	cfg    ConfigStore
	logger Logger
}

// NewOrderStore constructs an order store over the host config surface.
func NewOrderStore(cfg ConfigStore, logger Logger) *OrderStore {
	return &OrderStore{cfg: cfg, logger: loggerOrNop(logger)}
}

// Load restores the persisted board state. Malformed JSON is logged and treated as empty.
func (s *OrderStore) Load(ctx context.Context) (domain.PersistedBoardState, error) {
	state := domain.NewPersistedBoardState()
	order, err := s.loadTable(ctx, KeyColumnOrder)
	if err != nil {
		return state, err
	}
	hidden, err := s.loadTable(ctx, KeyHiddenColumns)
	if err != nil {
		return state, err
	}
	state.Order = order
	state.Hidden = hidden
	return state, nil
}

// Save writes both tables through the config surface.
func (s *OrderStore) Save(ctx context.Context, state domain.PersistedBoardState) error {
	if err := s.saveTable(ctx, KeyColumnOrder, state.Order); err != nil {
		return err
	}
	if err := s.saveTable(ctx, KeyHiddenColumns, state.Hidden); err != nil {
		return err
	}
	s.logger.Debug("board state persisted", "identities", len(state.Order), "hidden_identities", len(state.Hidden))
	return nil
}

// ColumnNames reads the configured column-name ordering. It accepts a JSON array or a comma-separated list.
func (s *OrderStore) ColumnNames(ctx context.Context) ([]string, bool, error) {
	raw, ok, err := s.cfg.ConfigValue(ctx, KeyColumnNames)
	if err != nil {
		return nil, false, fmt.Errorf("read %s: %w", KeyColumnNames, err)
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return nil, false, nil
	}
	return ParseColumnNames(raw, s.logger), true, nil
}

// SetColumnNames stores names as a JSON array.
func (s *OrderStore) SetColumnNames(ctx context.Context, names []string) error {
	cleaned := make([]string, 0, len(names))
	for _, name := range names {
		if name = strings.TrimSpace(name); name != "" {
			cleaned = append(cleaned, name)
		}
	}
	encoded, err := json.Marshal(cleaned)
	if err != nil {
		return fmt.Errorf("encode column names: %w", err)
	}
	if err := s.cfg.SetConfigValue(ctx, KeyColumnNames, string(encoded)); err != nil {
		return fmt.Errorf("%w: write %s: %w", domain.ErrHostWriteFailed, KeyColumnNames, err)
	}
	return nil
}

// ParseColumnNames splits a stored column-name value into trimmed, non-empty names.
func ParseColumnNames(raw string, logger Logger) []string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "[") {
		var names []string
		err := json.Unmarshal([]byte(raw), &names)
		if err == nil {
			return trimNames(names)
		}
		loggerOrNop(logger).Warn("column names are not a JSON array, falling back to comma list", "err", err)
		raw = strings.Trim(raw, "[]")
	}
	return trimNames(strings.Split(raw, ","))
}

// trimNames trims names and drops empties.
func trimNames(names []string) []string {
	out := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.Trim(strings.TrimSpace(name), `"`)
		if name != "" {
			out = append(out, name)
		}
	}
	return out
}

// loadTable decodes one `{identity: [keys]}` table.
func (s *OrderStore) loadTable(ctx context.Context, key string) (map[string][]domain.GroupKey, error) {
	out := map[string][]domain.GroupKey{}
	raw, ok, err := s.cfg.ConfigValue(ctx, key)
	if err != nil {
		return out, fmt.Errorf("read %s: %w", key, err)
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return out, nil
	}
	var decoded map[string][]string
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		s.logger.Warn("persisted board state is malformed, ignoring it", "key", key, "err", err)
		return out, nil
	}
	for identity, keys := range decoded {
		seen := map[domain.GroupKey]struct{}{}
		list := make([]domain.GroupKey, 0, len(keys))
		for _, k := range keys {
			gk := domain.GroupKey(k)
			if _, dup := seen[gk]; dup || k == "" {
				continue
			}
			seen[gk] = struct{}{}
			list = append(list, gk)
		}
		out[identity] = list
	}
	return out, nil
}

// saveTable encodes one `{identity: [keys]}` table.
func (s *OrderStore) saveTable(ctx context.Context, key string, table map[string][]domain.GroupKey) error {
	encoded := make(map[string][]string, len(table))
	for identity, groupKeys := range table {
		keys := make([]string, 0, len(groupKeys))
		for _, k := range groupKeys {
			keys = append(keys, string(k))
		}
		encoded[identity] = keys
	}
	payload, err := json.Marshal(encoded)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.cfg.SetConfigValue(ctx, key, string(payload)); err != nil {
		return fmt.Errorf("%w: write %s: %w", domain.ErrHostWriteFailed, key, err)
	}
	return nil
}
