package pipeline

import "context"

// Pipeline abstracts the try-on runtime. Concrete implementations (worker
// subprocess, remote worker, test fakes) satisfy this interface.
type Pipeline interface {
	// TryOn runs one inference call. Implementations must return when ctx is canceled.
	TryOn(ctx context.Context, req Request) (Result, error)
	// Close releases any resources associated with the pipeline.
	Close() error
}
