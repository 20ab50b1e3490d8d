package orchestrator

import (
	"errors"
	"fmt"
)

var (
	ErrJoinInProgress   = errors.New("join already in progress")
	ErrAlreadyJoined    = errors.New("session already active")
	ErrNotJoined        = errors.New("not joined")
	ErrCommandInFlight  = errors.New("screen share command already in flight")
	ErrNoToken          = errors.New("no token obtained")
	ErrNoRoom           = errors.New("no room obtained")
	ErrClosed           = errors.New("session closed")
	ErrJoinAborted      = errors.New("join aborted by the call ending")
	ErrMountUnavailable = errors.New("mount point unavailable")
)

// AttachError means the transport could not be attached at the mount point or
// rejected the join. Its text is the underlying rejection message.
type AttachError struct {
	Mount string
	Err   error
}

func (e *AttachError) Error() string {
	if errors.Is(e.Err, ErrMountUnavailable) {
		return fmt.Sprintf("mount point %q unavailable", e.Mount)
	}
	return e.Err.Error()
}

func (e *AttachError) Unwrap() error { return e.Err }
