package tui

import (
	"context"

	"github.com/atotto/clipboard"
	"github.com/evanschultz/kanbases/internal/app"
)

type Option func(*Model)

// WithContext sets the context board commands run under.
func WithContext(ctx context.Context) Option {
	return func(m *Model) {
		if ctx != nil {
			m.ctx = ctx
		}
	}
}

// WithOpener routes card activations through opener so the detail view opens when the host confirms.
func WithOpener(opener *Opener) Option {
	return func(m *Model) {
		m.opener = opener
	}
}

// WithClipboard replaces the system clipboard writer.
func WithClipboard(write func(string) error) Option {
	return func(m *Model) {
		if write != nil {
			m.copyText = write
		}
	}
}

// WithLogger sets the logger used for UI-side failures.
func WithLogger(logger app.Logger) Option {
	return func(m *Model) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// systemClipboard writes to the OS clipboard.
func systemClipboard(text string) error {
	return clipboard.WriteAll(text)
}
