package domain

import "errors"

var (
	ErrUnknownPlayer          = errors.New("unknown player")
	ErrInvalidCount           = errors.New("invalid completed count")
	ErrCorruptState           = errors.New("corrupt persisted state")
	ErrStoreUnavailable       = errors.New("store unavailable")
	ErrMilestoneNotFound      = errors.New("milestone not found")
	ErrPlayerNotFound         = errors.New("player not found")
	ErrTemporarilyUnavailable = errors.New("temporarily unavailable")
)
