package app

import (
	"errors"

	"github.com/evanschultz/kanbases/internal/domain"
)

// ErrNotFound and related errors describe validation and runtime failures.
var (
	ErrNotFound   = domain.ErrNotFound
	ErrViewClosed = errors.New("board view closed")
)
