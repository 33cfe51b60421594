package pipeline

import "errors"

var (
	// ErrLocalWrite wraps failures of the local durable write. It is logged and
	// never stops the remote write or the acknowledgment.
	ErrLocalWrite = errors.New("local status write failed")

	// ErrRemoteWrite wraps failures of the remote sheet append. It never leaves
	// the DualSink.
	ErrRemoteWrite = errors.New("remote status write failed")

	// ErrPoolClosed is returned when a job is submitted after Close.
	ErrPoolClosed = errors.New("worker pool is closed")

	// ErrPoolFull is returned when the job queue has no free slot.
	ErrPoolFull = errors.New("worker pool queue is full")
)
