package common

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"

	"github.com/evanschultz/kanbases/internal/app"
	"github.com/evanschultz/kanbases/internal/domain"
)

// BoardAdapter maps transport contracts onto one app.BoardView.
type BoardAdapter struct {
	board *app.BoardView
}

// NewBoardAdapter builds one common adapter over a board view.
func NewBoardAdapter(board *app.BoardView) *BoardAdapter {
	return &BoardAdapter{board: board}
}

// Board returns the latest reconciled board.
func (a *BoardAdapter) Board(context.Context) (Board, error) {
	if err := a.ready(); err != nil {
		return Board{}, err
	}
	return MapBoardState(a.board.Snapshot()), nil
}

// Refresh reloads records from the host and returns the new board.
func (a *BoardAdapter) Refresh(ctx context.Context) (Board, error) {
	if err := a.ready(); err != nil {
		return Board{}, err
	}
	if err := a.board.Refresh(ctx); err != nil {
		return Board{}, mapAppError("refresh board", err)
	}
	return MapBoardState(a.board.Snapshot()), nil
}

// MoveRecord writes one card into a column and returns the refreshed board.
func (a *BoardAdapter) MoveRecord(ctx context.Context, in MoveRecordRequest) (Board, error) {
	if err := a.ready(); err != nil {
		return Board{}, err
	}
	recordID := strings.TrimSpace(in.RecordID)
	column := strings.TrimSpace(in.ColumnKey)
	if recordID == "" || column == "" {
		return Board{}, fmt.Errorf("move record: record_id and column_key are required: %w", ErrInvalidRequest)
	}
	if err := a.board.MoveRecord(ctx, recordID, domain.GroupKey(column)); err != nil {
		return Board{}, mapAppError("move record", err)
	}
	return a.Refresh(ctx)
}

// ReorderColumn moves one column before or after another.
func (a *BoardAdapter) ReorderColumn(ctx context.Context, in ReorderColumnRequest) (Board, error) {
	if err := a.ready(); err != nil {
		return Board{}, err
	}
	side, err := parseSide(in.Side)
	if err != nil {
		return Board{}, err
	}
	source := domain.GroupKey(strings.TrimSpace(in.Source))
	target := domain.GroupKey(strings.TrimSpace(in.Target))
	if err := a.board.ReorderColumn(ctx, source, target, side); err != nil {
		return Board{}, mapAppError("reorder column", err)
	}
	return MapBoardState(a.board.Snapshot()), nil
}

// HideColumn hides one column.
func (a *BoardAdapter) HideColumn(ctx context.Context, in ColumnRequest) (Board, error) {
	if err := a.ready(); err != nil {
		return Board{}, err
	}
	if err := a.board.HideColumn(ctx, domain.GroupKey(strings.TrimSpace(in.ColumnKey))); err != nil {
		return Board{}, mapAppError("hide column", err)
	}
	return MapBoardState(a.board.Snapshot()), nil
}

// ShowColumn un-hides one column.
func (a *BoardAdapter) ShowColumn(ctx context.Context, in ColumnRequest) (Board, error) {
	if err := a.ready(); err != nil {
		return Board{}, err
	}
	if err := a.board.ShowColumn(ctx, domain.GroupKey(strings.TrimSpace(in.ColumnKey))); err != nil {
		return Board{}, mapAppError("show column", err)
	}
	return MapBoardState(a.board.Snapshot()), nil
}

// SetGrouping switches the grouping and returns the regrouped board.
func (a *BoardAdapter) SetGrouping(ctx context.Context, in SetGroupingRequest) (Board, error) {
	if err := a.ready(); err != nil {
		return Board{}, err
	}
	grouping := domain.GroupingConfig{
		Mode:      domain.GroupingMode(strings.ToLower(strings.TrimSpace(in.Mode))),
		Field:     domain.FieldID(strings.TrimSpace(in.Field)),
		Template:  strings.TrimSpace(in.Template),
		Normalize: in.Normalize,
	}
	if err := a.board.SetGrouping(ctx, grouping); err != nil {
		return Board{}, mapAppError("set grouping", err)
	}
	return MapBoardState(a.board.Snapshot()), nil
}

// ViewOptions returns the view-options descriptor.
func (a *BoardAdapter) ViewOptions(context.Context) ([]app.ViewOption, error) {
	if err := a.ready(); err != nil {
		return nil, err
	}
	return a.board.ViewOptions(), nil
}

// Record resolves one record and the column it currently sits in.
func (a *BoardAdapter) Record(ctx context.Context, id string) (Record, error) {
	if err := a.ready(); err != nil {
		return Record{}, err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return Record{}, fmt.Errorf("get record: id is required: %w", ErrInvalidRequest)
	}
	record, err := a.board.Record(ctx, id)
	if err != nil {
		return Record{}, mapAppError("get record", err)
	}
	state := a.board.Snapshot()
	out := Record{
		ID:   record.ID(),
		Card: mapCard(app.BuildCard(record, state.Cards, state.Fields, groupingField(state.Grouping))),
	}
	if key, ok := state.ColumnOf(record.ID()); ok {
		out.Column = string(key)
	}
	if note, ok := record.(domain.Note); ok {
		out.Metadata = maps.Clone(note.Metadata)
	}
	return out, nil
}

// ready reports whether the adapter has a board.
func (a *BoardAdapter) ready() error {
	if a == nil || a.board == nil {
		return ErrServiceUnavailable
	}
	return nil
}

// MapBoardState maps one board snapshot into the transport DTO.
func MapBoardState(state app.BoardState) Board {
	out := Board{
		Status:   string(state.Status),
		Message:  state.Message,
		Identity: state.Identity,
		Grouping: Grouping{
			Mode:      string(state.Grouping.Mode),
			Field:     string(state.Grouping.Field),
			Template:  state.Grouping.Template,
			Normalize: state.Grouping.Normalize,
		},
		Order:    make([]string, 0, len(state.Order)),
		Columns:  make([]Column, 0, len(state.Columns)),
		Total:    state.Total,
		Revision: state.Revision,
	}
	for _, key := range state.Order {
		out.Order = append(out.Order, string(key))
	}
	skip := groupingField(state.Grouping)
	for _, column := range state.Columns {
		cards := make([]Card, 0, len(column.Records))
		for _, record := range column.Records {
			cards = append(cards, mapCard(app.BuildCard(record, state.Cards, state.Fields, skip)))
		}
		out.Columns = append(out.Columns, Column{
			Key:   string(column.Key),
			Label: column.Label,
			Count: len(column.Records),
			Cards: cards,
		})
	}
	for _, hidden := range state.Hidden {
		out.Hidden = append(out.Hidden, Column{Key: string(hidden.Key), Label: hidden.Label})
	}
	return out
}

// mapCard maps one app card into the transport DTO.
func mapCard(card app.Card) Card {
	out := Card{
		ID:       card.ID,
		Title:    card.Title,
		Tags:     card.Tags,
		Type:     card.Type,
		Points:   card.Points,
		Priority: card.Priority,
	}
	for _, field := range card.Fields {
		out.Fields = append(out.Fields, CardField{
			Field: string(field.Field),
			Label: field.Label,
			Kind:  string(field.Kind),
			Value: field.Display,
			Tier:  field.Tier,
		})
	}
	return out
}

// groupingField returns the property a card should not repeat.
func groupingField(grouping domain.GroupingConfig) domain.FieldID {
	if grouping.Mode == domain.GroupingProperty {
		return grouping.Field
	}
	return ""
}

// parseSide maps a transport side string onto a drop side.
func parseSide(raw string) (domain.DropSide, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", string(domain.SideAfter):
		return domain.SideAfter, nil
	case string(domain.SideBefore):
		return domain.SideBefore, nil
	default:
		return domain.SideNone, fmt.Errorf("side %q must be before or after: %w", raw, ErrInvalidRequest)
	}
}

// mapAppError maps app/domain errors into transport-layer error sentinels.
func mapAppError(operation string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, domain.ErrGroupingNotWritable):
		return fmt.Errorf("%s: %w", operation, errors.Join(ErrGroupingNotWritable, err))
	case errors.Is(err, domain.ErrNotReady), errors.Is(err, app.ErrViewClosed):
		return fmt.Errorf("%s: %w", operation, errors.Join(ErrNotReady, err))
	case errors.Is(err, domain.ErrNotFound):
		return fmt.Errorf("%s: %w", operation, errors.Join(ErrNotFound, err))
	case errors.Is(err, domain.ErrHostWriteFailed):
		return fmt.Errorf("%s: %w", operation, errors.Join(ErrHostWriteFailed, err))
	case errors.Is(err, domain.ErrInvalidArgument),
		errors.Is(err, domain.ErrInvalidFieldID),
		errors.Is(err, domain.ErrInvalidGrouping):
		return fmt.Errorf("%s: %w", operation, errors.Join(ErrInvalidRequest, err))
	default:
		return fmt.Errorf("%s: %w", operation, err)
	}
}
