package cluster

import "errors"

// Domain errors for cluster operations.
var (
	// ErrNotInitialized indicates a dispatch was attempted before Initialize.
	ErrNotInitialized = errors.New("cluster: orchestrator not initialized")

	// ErrPoolNotReady indicates the device pool reported itself unready.
	ErrPoolNotReady = errors.New("cluster: device pool not ready")

	// ErrNilSnapshot indicates a nil snapshot was offered for dispatch.
	ErrNilSnapshot = errors.New("cluster: nil snapshot")

	// ErrNotReserved indicates Process was called on a worker that was
	// never reserved. This is a programming error, never retried.
	ErrNotReserved = errors.New("cluster: worker processed without reservation")

	// ErrConcurrentProcess indicates two Process calls overlapped on one
	// worker. This is a programming error, never retried.
	ErrConcurrentProcess = errors.New("cluster: concurrent Process on one worker")
)
