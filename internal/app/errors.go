package service

import "errors"

// ErrNoStore means the service was started without an event store adapter.
var ErrNoStore = errors.New("no event store configured")
