package engine

import "time"

// Options represents configuration options for the engine.
type Options struct {
	// ReadBackoff is how long the read loop waits after a failed read.
	ReadBackoff time.Duration
	// CommandTimeout bounds the handling of one command.
	CommandTimeout time.Duration
}

// DefaultEngineOptions returns the default engine options.
func DefaultEngineOptions() *Options {
	return &Options{
		ReadBackoff:    100 * time.Millisecond,
		CommandTimeout: 10 * time.Second,
	}
}
