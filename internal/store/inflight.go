package store

import (
	"sync"

	apperrors "github.com/utafrali/fitvibe/pkg/errors"
)

// inflight allows one pending request per (action, entity).
type inflight struct {
	mu      sync.Mutex
	pending map[string]struct{}
}

func (f *inflight) begin(action, entity, label string) (func(), error) {
	key := action + ":" + entity
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pending == nil {
		f.pending = make(map[string]struct{})
	}
	if _, busy := f.pending[key]; busy {
		return nil, apperrors.InFlight(label)
	}
	f.pending[key] = struct{}{}
	return func() {
		f.mu.Lock()
		delete(f.pending, key)
		f.mu.Unlock()
	}, nil
}
