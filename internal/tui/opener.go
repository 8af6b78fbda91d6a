package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/evanschultz/kanbases/internal/domain"
)

// Opener is the terminal host's record opener: each opened id becomes a detail view in the running model.
type Opener struct {
	opened chan string
}

// NewOpener constructs an opener with a small buffer of pending activations.
func NewOpener() *Opener {
	return &Opener{opened: make(chan string, 8)}
}

// OpenRecord queues recordID for the detail view.
func (o *Opener) OpenRecord(ctx context.Context, recordID string) error {
	recordID = strings.TrimSpace(recordID)
	if recordID == "" {
		return fmt.Errorf("%w: record id is required", domain.ErrInvalidArgument)
	}
	select {
	case o.opened <- recordID:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
