// Package resource holds fetch-on-first-use data shared by request handlers:
// the customer session and the category tree.
package resource

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Fetcher loads the current value of a resource
type Fetcher[T any] func(ctx context.Context) (T, error)

// Resource caches the result of a Fetcher. A failed fetch leaves the resource
// empty rather than serving the previous value, and the next Data call retries.
type Resource[T any] struct {
	name      string
	fetch     Fetcher[T]
	clearable bool
	logger    *zap.Logger

	mu      sync.RWMutex
	data    *T
	loading bool
	loaded  bool
}

// Option configures a Resource
type Option func(*options)

type options struct {
	clearable bool
	logger    *zap.Logger
}

// Clearable allows Clear to drop the cached value
func Clearable() Option {
	return func(o *options) { o.clearable = true }
}

// WithLogger sets the logger used to report fetch failures
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// New creates a resource named for logging
func New[T any](name string, fetch Fetcher[T], opts ...Option) *Resource[T] {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Resource[T]{
		name:      name,
		fetch:     fetch,
		clearable: o.clearable,
		logger:    o.logger,
	}
}

// Data returns the cached value, fetching it on first use
func (r *Resource[T]) Data(ctx context.Context) (*T, error) {
	r.mu.RLock()
	if r.loaded {
		data := r.data
		r.mu.RUnlock()
		return data, nil
	}
	r.mu.RUnlock()

	if err := r.Refresh(ctx, false); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.data, nil
}

// Loading reports whether a non-silent refresh is in flight
func (r *Resource[T]) Loading() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.loading
}

// Refresh re-fetches the value. A silent refresh does not toggle Loading.
func (r *Resource[T]) Refresh(ctx context.Context, silent bool) error {
	if !silent {
		r.mu.Lock()
		r.loading = true
		r.mu.Unlock()
	}

	value, err := r.fetch(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()
	if !silent {
		r.loading = false
	}
	if err != nil {
		r.logger.Warn("Failed to fetch resource", zap.String("resource", r.name), zap.Error(err))
		r.data = nil
		r.loaded = false
		return err
	}
	r.data = &value
	r.loaded = true
	return nil
}

// Clear drops the cached value so the next Data call fetches again.
// It returns false when the resource was not constructed Clearable.
func (r *Resource[T]) Clear() bool {
	if !r.clearable {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data = nil
	r.loaded = false
	return true
}
