package cachekit

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

var errEmptyID = errors.New("entity id is empty")

// GenericFeeder records the outcome of one operation.
type GenericFeeder[T any] struct {
	ID    string
	Value T
	Found bool
}

func NewFeeder[T any](id string) *GenericFeeder[T] { return &GenericFeeder[T]{ID: id} }

func (f *GenericFeeder[T]) EntityID() string { return f.ID }

func (f *GenericFeeder[T]) Feed(v T, found bool) {
	f.Value = v
	f.Found = found
}

func (f *GenericFeeder[T]) Validate() error {
	if f.ID == "" {
		return errEmptyID
	}
	return nil
}

// MapRepository is a concurrency-safe in-memory Repository, handy for tests
// and examples. It counts FetchByID calls.
type MapRepository[T any] struct {
	mu    sync.RWMutex
	m     map[string]T
	calls atomic.Int64
}

func NewMapRepository[T any]() *MapRepository[T] {
	return &MapRepository[T]{m: make(map[string]T)}
}

func (r *MapRepository[T]) Put(id string, v T) {
	r.mu.Lock()
	r.m[id] = v
	r.mu.Unlock()
}

func (r *MapRepository[T]) Remove(id string) {
	r.mu.Lock()
	delete(r.m, id)
	r.mu.Unlock()
}

func (r *MapRepository[T]) FetchByID(ctx context.Context, id string) (T, bool, error) {
	r.calls.Add(1)
	if err := ctx.Err(); err != nil {
		var zero T
		return zero, false, err
	}
	r.mu.RLock()
	v, ok := r.m[id]
	r.mu.RUnlock()
	return v, ok, nil
}

// Calls reports how many times FetchByID ran.
func (r *MapRepository[T]) Calls() int64 { return r.calls.Load() }
