package domain

import "errors"

var (
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrNotReady            = errors.New("board not ready")
	ErrNotFound            = errors.New("record not found")
	ErrHostWriteFailed     = errors.New("host write failed")
	ErrInvalidFieldID      = errors.New("invalid field id")
	ErrFieldUnavailable    = errors.New("field unavailable")
	ErrGroupingNotWritable = errors.New("grouping is not writable")
	ErrInvalidGrouping     = errors.New("invalid grouping config")
)
