package app

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/evanschultz/kanbases/internal/domain"
)

// BoardState is an immutable snapshot of the rendered board.
type BoardState struct {
	Status   BoardStatus
	Message  string
	Grouping domain.GroupingConfig
	Identity string
	Columns  []Column
	Hidden   []domain.ColumnDescriptor
	Order    []domain.GroupKey
	Fields   []domain.FieldID
	Cards    CardMapping
	Total    int
	Revision uint64
}

// Column returns the visible column keyed by key.
func (s BoardState) Column(key domain.GroupKey) (Column, bool) {
	for _, column := range s.Columns {
		if column.Key == key {
			return column, true
		}
	}
	return Column{}, false
}

// ColumnOf returns the visible column holding recordID.
func (s BoardState) ColumnOf(recordID string) (domain.GroupKey, bool) {
	for _, column := range s.Columns {
		for _, record := range column.Records {
			if record.ID() == recordID {
				return column.Key, true
			}
		}
	}
	return "", false
}

// BoardViewDeps bundles the host ports a board view talks to.
type BoardViewDeps struct {
	Source  RecordSource
	Records RecordLookup
	Writer  MetadataWriter
	Config  ConfigStore
	Opener  RecordOpener
	Logger  Logger
}

// BoardViewConfig holds board defaults and tuning.
type BoardViewConfig struct {
	Defaults  ViewSettings
	Retention RetentionPolicy
	Window    WindowPolicy
}

// BoardView owns one board's lifecycle. Updates are serialized; each runs to completion, including persistence.
type BoardView struct {
	source RecordSource
	lookup RecordLookup
	opener RecordOpener
	cfg    ConfigStore
	logger Logger
	window WindowPolicy

	store      *OrderStore
	reconciler *Reconciler
	mover      *CardMover

	mu        sync.Mutex
	defaults  ViewSettings
	settings  ViewSettings
	persisted domain.PersistedBoardState
	batch     Batch
	hasBatch  bool
	state     BoardState
	closed    bool
	nextSub   int
	subs      []subscription
}

// subscription is one registered change listener.
type subscription struct {
	id int
	fn func(BoardState)
}

// NewBoardView constructs a board view. Call Load before the first Update.
func NewBoardView(deps BoardViewDeps, cfg BoardViewConfig) (*BoardView, error) {
	if deps.Source == nil || deps.Records == nil || deps.Writer == nil || deps.Config == nil {
		return nil, fmt.Errorf("%w: record source, lookup, writer, and config store are required", domain.ErrInvalidArgument)
	}
	logger := loggerOrNop(deps.Logger)
	if cfg.Window == (WindowPolicy{}) {
		cfg.Window = DefaultWindowPolicy()
	}
	if cfg.Defaults.Grouping == (domain.GroupingConfig{}) && cfg.Defaults.ColumnNames == nil && cfg.Defaults.Cards == (CardMapping{}) {
		cfg.Defaults = DefaultViewSettings()
	}
	return &BoardView{
		source:     deps.Source,
		lookup:     deps.Records,
		opener:     deps.Opener,
		cfg:        deps.Config,
		logger:     logger,
		window:     cfg.Window,
		store:      NewOrderStore(deps.Config, logger),
		reconciler: NewReconciler(cfg.Retention),
		mover:      NewCardMover(deps.Records, deps.Writer, logger),
		defaults:   cfg.Defaults,
		settings:   cfg.Defaults,
		persisted:  domain.NewPersistedBoardState(),
		state: BoardState{
			Status:  StatusConfigurationMissing,
			Message: MessageConfigurationMissing,
		},
	}, nil
}

// Load restores view settings and persisted order. A persisted-state read failure is logged and treated as empty.
func (b *BoardView) Load(ctx context.Context) error {
	settings, err := LoadViewSettings(ctx, b.cfg, b.defaults, b.logger)
	if err != nil {
		return fmt.Errorf("load view settings: %w", err)
	}
	persisted, err := b.store.Load(ctx)
	if err != nil {
		b.logger.Error("load persisted board state failed, starting empty", "err", err)
		persisted = domain.NewPersistedBoardState()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrViewClosed
	}
	b.settings = settings
	b.persisted = persisted
	b.state.Grouping = settings.Grouping
	b.state.Cards = settings.Cards
	b.state.Identity = settings.Grouping.Identity()
	return nil
}

// Refresh pulls a batch from the host and applies it.
func (b *BoardView) Refresh(ctx context.Context) error {
	batch, err := b.source.Records(ctx)
	if err != nil {
		return fmt.Errorf("load records: %w", err)
	}
	return b.Update(ctx, batch)
}

// Update applies one data push: bucket, reconcile, persist, publish.
func (b *BoardView) Update(ctx context.Context, batch Batch) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrViewClosed
	}
	b.batch = Batch{
		Records: slices.Clone(batch.Records),
		Fields:  slices.Clone(batch.Fields),
	}
	b.hasBatch = true
	state := b.applyLocked(ctx)
	subs := slices.Clone(b.subs)
	b.mu.Unlock()

	notify(subs, state)
	return nil
}

// Snapshot returns the latest board state.
func (b *BoardView) Snapshot() BoardState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return cloneState(b.state)
}

// Settings returns the active view settings.
func (b *BoardView) Settings() ViewSettings {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.settings
	out.ColumnNames = slices.Clone(b.settings.ColumnNames)
	return out
}

// ViewOptions returns the view-options descriptor for the active defaults.
func (b *BoardView) ViewOptions() []ViewOption {
	return ViewOptions(b.defaults)
}

// Subscribe registers fn for every published state. The returned func unsubscribes.
func (b *BoardView) Subscribe(fn func(BoardState)) func() {
	if fn == nil {
		return func() {}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextSub++
	id := b.nextSub
	b.subs = append(b.subs, subscription{id: id, fn: fn})
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.subs = slices.DeleteFunc(b.subs, func(s subscription) bool { return s.id == id })
	}
}

// HasColumn reports whether key is a visible column.
func (b *BoardView) HasColumn(key domain.GroupKey) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.state.Column(key)
	return ok
}

// MoveRecord moves a card to target. The host write runs without holding the view lock.
func (b *BoardView) MoveRecord(ctx context.Context, recordID string, target domain.GroupKey) error {
	if b.isClosed() {
		return ErrViewClosed
	}
	if err := b.mover.MoveRecord(ctx, recordID, target); err != nil {
		b.logger.Warn("card move failed", "record", recordID, "column", string(target), "err", err)
		return err
	}
	return nil
}

// ReorderColumn places source before or after target and persists the new order.
func (b *BoardView) ReorderColumn(ctx context.Context, source, target domain.GroupKey, side domain.DropSide) error {
	if strings.TrimSpace(string(source)) == "" || strings.TrimSpace(string(target)) == "" {
		return fmt.Errorf("%w: source and target column keys are required", domain.ErrInvalidArgument)
	}
	return b.mutate(ctx, func(identity string) (domain.PersistedBoardState, bool, error) {
		order := b.persisted.OrderFor(identity)
		for _, key := range []domain.GroupKey{source, target} {
			if !slices.Contains(order, key) {
				return b.persisted, false, fmt.Errorf("column %q: %w", key, domain.ErrNotFound)
			}
		}
		next, changed := ReorderKeys(order, source, target, side)
		if !changed {
			return b.persisted, false, nil
		}
		return b.persisted.WithOrder(identity, next), true, nil
	})
}

// HideColumn hides key. The key keeps its slot in the persisted order.
func (b *BoardView) HideColumn(ctx context.Context, key domain.GroupKey) error {
	return b.setHidden(ctx, key, true)
}

// ShowColumn un-hides key.
func (b *BoardView) ShowColumn(ctx context.Context, key domain.GroupKey) error {
	return b.setHidden(ctx, key, false)
}

// setHidden toggles key in the hidden table.
func (b *BoardView) setHidden(ctx context.Context, key domain.GroupKey, hide bool) error {
	if strings.TrimSpace(string(key)) == "" {
		return fmt.Errorf("%w: column key is required", domain.ErrInvalidArgument)
	}
	return b.mutate(ctx, func(identity string) (domain.PersistedBoardState, bool, error) {
		if !slices.Contains(b.state.Order, key) {
			return b.persisted, false, fmt.Errorf("column %q: %w", key, domain.ErrNotFound)
		}
		hidden := b.persisted.Hidden[identity]
		isHidden := slices.Contains(hidden, key)
		switch {
		case hide && !isHidden:
			hidden = append(slices.Clone(hidden), key)
		case !hide && isHidden:
			hidden = slices.DeleteFunc(slices.Clone(hidden), func(k domain.GroupKey) bool { return k == key })
		default:
			return b.persisted, false, nil
		}
		return b.persisted.WithHidden(identity, hidden), true, nil
	})
}

// mutate runs one persisted-state edit under the lock, saves it, and republishes.
func (b *BoardView) mutate(ctx context.Context, edit func(identity string) (domain.PersistedBoardState, bool, error)) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrViewClosed
	}
	identity := b.settings.Grouping.Identity()
	if identity == "" {
		b.mu.Unlock()
		return fmt.Errorf("%w: no grouping configured", domain.ErrNotReady)
	}
	next, changed, err := edit(identity)
	if err != nil || !changed {
		b.mu.Unlock()
		return err
	}
	if err := b.store.Save(ctx, next); err != nil {
		b.mu.Unlock()
		b.logger.Error("persist board state failed", "identity", identity, "err", err)
		return err
	}
	b.persisted = next
	state := b.applyLocked(ctx)
	subs := slices.Clone(b.subs)
	b.mu.Unlock()

	notify(subs, state)
	return nil
}

// SetGrouping switches the grouping, persists it, and regroups the last batch.
func (b *BoardView) SetGrouping(ctx context.Context, grouping domain.GroupingConfig) error {
	if grouping.Mode == "" {
		grouping.Mode = domain.GroupingProperty
	}
	if grouping.Mode == domain.GroupingProperty && strings.TrimSpace(string(grouping.Field)) != "" {
		field, err := domain.ParseFieldID(string(grouping.Field))
		if err != nil {
			return fmt.Errorf("%w: %w", domain.ErrInvalidGrouping, err)
		}
		grouping.Field = field
	}
	if err := grouping.Validate(); err != nil {
		return err
	}
	if err := SaveGrouping(ctx, b.cfg, grouping); err != nil {
		return err
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrViewClosed
	}
	b.settings.Grouping = grouping
	b.mover.Reset()
	state := b.applyLocked(ctx)
	subs := slices.Clone(b.subs)
	b.mu.Unlock()

	b.logger.Info("grouping changed", "identity", grouping.Identity())
	notify(subs, state)
	return nil
}

// SetColumnNames stores the configured column ordering and regroups.
func (b *BoardView) SetColumnNames(ctx context.Context, names []string) error {
	if err := b.store.SetColumnNames(ctx, names); err != nil {
		return err
	}
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrViewClosed
	}
	b.settings.ColumnNames = trimNames(names)
	state := b.applyLocked(ctx)
	subs := slices.Clone(b.subs)
	b.mu.Unlock()

	notify(subs, state)
	return nil
}

// OpenRecord forwards a non-drag card activation to the host.
func (b *BoardView) OpenRecord(ctx context.Context, recordID string) error {
	recordID = strings.TrimSpace(recordID)
	if recordID == "" {
		return fmt.Errorf("%w: record id is required", domain.ErrInvalidArgument)
	}
	record, err := b.lookup.Record(ctx, recordID)
	if err != nil {
		return fmt.Errorf("open record %q: %w", recordID, err)
	}
	if b.opener == nil {
		return nil
	}
	return b.opener.OpenRecord(ctx, record.ID())
}

// Record resolves one record by id.
func (b *BoardView) Record(ctx context.Context, recordID string) (domain.Record, error) {
	return b.lookup.Record(ctx, recordID)
}

// Window returns the materialized range for key's column at the given scroll position.
func (b *BoardView) Window(key domain.GroupKey, scrollOffset, viewportSize int) (domain.VirtualRange, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	column, ok := b.state.Column(key)
	if !ok {
		return domain.VirtualRange{}, false, fmt.Errorf("column %q: %w", key, domain.ErrNotFound)
	}
	count := len(column.Records)
	return b.window.Plan(count, scrollOffset, viewportSize), b.window.Virtualized(count), nil
}

// WindowPolicy returns the active windowing parameters.
func (b *BoardView) WindowPolicy() WindowPolicy {
	return b.window
}

// NewDragController wires a drag controller to this view.
func (b *BoardView) NewDragController(opts ...DragOption) *DragController {
	opts = append([]DragOption{WithTargetCheck(b.HasColumn)}, opts...)
	return NewDragController(b, b, opts...)
}

// Close releases subscribers. Later commands fail with ErrViewClosed.
func (b *BoardView) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.subs = nil
	return nil
}

// isClosed reports whether Close ran.
func (b *BoardView) isClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// applyLocked reconciles the last batch under the current settings. Callers hold b.mu.
func (b *BoardView) applyLocked(ctx context.Context) BoardState {
	grouping := b.settings.Grouping
	identity := grouping.Identity()
	var groups []domain.Group
	if identity != "" {
		groups = BucketRecords(b.batch.Records, grouping)
	}
	result := b.reconciler.Reconcile(ReconcileInput{
		Groups:     groups,
		Identity:   identity,
		Persisted:  b.persisted,
		Configured: KeysFromNames(b.settings.ColumnNames, grouping.Normalize),
	})
	if result.Changed {
		if err := b.store.Save(ctx, result.Persisted); err != nil {
			b.logger.Error("persist column order failed", "identity", identity, "err", err)
		}
	}
	b.persisted = result.Persisted
	if identity != "" && b.hasBatch {
		b.mover.Bind(grouping)
	}

	state := BoardState{
		Status:   result.Status,
		Grouping: grouping,
		Identity: identity,
		Columns:  result.Columns,
		Hidden:   result.Hidden,
		Order:    result.Order,
		Fields:   slices.Clone(b.batch.Fields),
		Cards:    b.settings.Cards,
		Total:    result.Total,
		Revision: b.state.Revision + 1,
	}
	switch result.Status {
	case StatusConfigurationMissing:
		state.Message = MessageConfigurationMissing
	case StatusEmpty:
		state.Message = MessageNoEntries
	}
	b.state = state
	b.logger.Debug("board reconciled", "identity", identity, "status", string(state.Status), "columns", len(state.Columns), "hidden", len(state.Hidden), "records", state.Total)
	return cloneState(state)
}

// notify delivers state to subs in registration order.
func notify(subs []subscription, state BoardState) {
	for _, sub := range subs {
		sub.fn(cloneState(state))
	}
}

// cloneState copies the slices of s so callers cannot mutate view state.
func cloneState(s BoardState) BoardState {
	out := s
	out.Columns = make([]Column, 0, len(s.Columns))
	for _, column := range s.Columns {
		column.Records = slices.Clone(column.Records)
		out.Columns = append(out.Columns, column)
	}
	out.Hidden = slices.Clone(s.Hidden)
	out.Order = slices.Clone(s.Order)
	out.Fields = slices.Clone(s.Fields)
	return out
}

// IsNotReady reports whether err means the board cannot accept moves yet.
func IsNotReady(err error) bool {
	return errors.Is(err, domain.ErrNotReady) || errors.Is(err, domain.ErrGroupingNotWritable)
}
