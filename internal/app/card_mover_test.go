package app

import (
	"context"
	"errors"
	"testing"

	"github.com/evanschultz/kanbases/internal/domain"
)

func newBoundMover(t *testing.T, host *fakeHost, grouping domain.GroupingConfig) *CardMover {
	t.Helper()
	mover := NewCardMover(host, host, nil)
	mover.Bind(grouping)
	return mover
}

func TestCardMoverValidation(t *testing.T) {
	ctx := context.Background()
	host := newFakeHost(mustNote("a.md", map[string]any{"status": "Todo"}))
	mover := newBoundMover(t, host, domain.GroupingConfig{Mode: domain.GroupingProperty, Field: "note.status"})

	if err := mover.MoveRecord(ctx, "", "x"); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("MoveRecord(\"\", x) error = %v, want ErrInvalidArgument", err)
	}
	if err := mover.MoveRecord(ctx, "x", ""); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("MoveRecord(x, \"\") error = %v, want ErrInvalidArgument", err)
	}
	if err := mover.MoveRecord(ctx, "missing.md", "Done"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("MoveRecord(missing.md) error = %v, want ErrNotFound", err)
	}
	if host.updateCount() != 0 {
		t.Fatalf("expected no host writes, got %d", host.updateCount())
	}
}

func TestCardMoverNotReadyBeforeBind(t *testing.T) {
	host := newFakeHost(mustNote("a.md", map[string]any{"status": "Todo"}))
	mover := NewCardMover(host, host, nil)
	if err := mover.MoveRecord(context.Background(), "a.md", "Done"); !errors.Is(err, domain.ErrNotReady) {
		t.Fatalf("MoveRecord() error = %v, want ErrNotReady", err)
	}
	mover.Bind(domain.GroupingConfig{Mode: domain.GroupingProperty, Field: "note.status"})
	mover.Reset()
	if mover.Ready() {
		t.Fatal("expected Reset to clear readiness")
	}
}

func TestCardMoverWritesBareFieldOnce(t *testing.T) {
	host := newFakeHost(mustNote("a.md", map[string]any{"status": "Todo", "owner": "sam"}))
	mover := newBoundMover(t, host, domain.GroupingConfig{Mode: domain.GroupingProperty, Field: "note.status"})

	if err := mover.MoveRecord(context.Background(), "a.md", "Done"); err != nil {
		t.Fatalf("MoveRecord() error = %v", err)
	}
	if host.updateCount() != 1 {
		t.Fatalf("expected exactly one mutator call, got %d", host.updateCount())
	}
	md := host.metadata("a.md")
	if md["status"] != "Done" || md["owner"] != "sam" {
		t.Fatalf("unexpected metadata %#v", md)
	}
}

func TestCardMoverSentinelClearsField(t *testing.T) {
	host := newFakeHost(mustNote("a.md", map[string]any{"status": "Todo"}))
	mover := newBoundMover(t, host, domain.GroupingConfig{Mode: domain.GroupingProperty, Field: "note.status"})
	if err := mover.MoveRecord(context.Background(), "a.md", domain.SentinelKey); err != nil {
		t.Fatalf("MoveRecord() error = %v", err)
	}
	md := host.metadata("a.md")
	if value, ok := md["status"]; !ok || value != nil {
		t.Fatalf("expected status to be nulled, got %#v", md)
	}
}

func TestCardMoverTemplateGrouping(t *testing.T) {
	host := newFakeHost(mustNote("a.md", map[string]any{"stage": "draft"}))
	mover := newBoundMover(t, host, domain.GroupingConfig{Mode: domain.GroupingTemplate, Template: "{{note.stage|capitalize}}"})
	if err := mover.MoveRecord(context.Background(), "a.md", "Review"); err != nil {
		t.Fatalf("MoveRecord() error = %v", err)
	}
	if got := host.metadata("a.md")["stage"]; got != "Review" {
		t.Fatalf("unexpected stage %#v", got)
	}

	multi := newBoundMover(t, host, domain.GroupingConfig{Mode: domain.GroupingTemplate, Template: "{{note.team}}-{{note.stage}}"})
	if err := multi.MoveRecord(context.Background(), "a.md", "x"); !errors.Is(err, domain.ErrGroupingNotWritable) {
		t.Fatalf("MoveRecord() error = %v, want ErrGroupingNotWritable", err)
	}
}

func TestCardMoverHostWriteFailure(t *testing.T) {
	host := newFakeHost(mustNote("a.md", map[string]any{"status": "Todo"}))
	host.writeErr = errStub
	mover := newBoundMover(t, host, domain.GroupingConfig{Mode: domain.GroupingProperty, Field: "note.status"})
	err := mover.MoveRecord(context.Background(), "a.md", "Done")
	if !errors.Is(err, domain.ErrHostWriteFailed) || !errors.Is(err, errStub) {
		t.Fatalf("MoveRecord() error = %v, want wrapped host failure", err)
	}
}
