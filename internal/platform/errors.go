package platform

import (
	"errors"
)

// ErrSyncCancelled is returned by orchestrators stopped between chunks on request.
var ErrSyncCancelled = errors.New("sync cancelled")

// ErrAlreadyRunning is returned when a sync can't be started because the
// previous run of the same kind is not finished yet.
var ErrAlreadyRunning = errors.New("sync already running for this entity")
