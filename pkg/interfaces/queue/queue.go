package queue

import (
	"context"
	"time"
)

// Job is a unit of deferred work, e.g. a broadcast accepted over HTTP.
type Job struct {
	Key     string
	Payload any
	RunAt   time.Time
}

// Handler processes jobs registered under a key.
type Handler func(ctx context.Context, job Job) error

// Queue accepts jobs for asynchronous processing.
type Queue interface {
	Enqueue(ctx context.Context, job Job) error
}
