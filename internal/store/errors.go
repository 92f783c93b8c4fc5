package store

import "github.com/dailyblend/blender/internal/errors"

// Sentinel errors shared by every backend.
var (
	ErrPoolEmpty = errors.ErrPoolEmpty
	ErrNotFound  = errors.ErrNotFound
	ErrClosed    = &errors.Error{Code: errors.CodeInternal, Message: "selection store is closed"}
)
