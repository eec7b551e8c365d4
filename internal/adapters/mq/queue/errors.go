package queue

import "errors"

// ErrClosed marks operations against a queue that has been shut down.
var ErrClosed = errors.New("queue closed")
