// Package preview tracks the local preview URLs created for images picked
// but not yet uploaded. Every URL is revoked exactly once.
package preview

import (
	"sync"

	"github.com/google/uuid"
)

// Scheme prefixes every preview URL.
const Scheme = "blob:fitvibe/"

// Registry hands out preview URLs and remembers which are still live.
type Registry struct {
	mu       sync.Mutex
	live     map[string][]byte
	revoked  int
	onRevoke func(url string)
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{live: make(map[string][]byte)}
}

// OnRevoke sets a hook called once per revoked URL.
func (r *Registry) OnRevoke(fn func(url string)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onRevoke = fn
}

// Create registers data and returns its preview URL.
func (r *Registry) Create(data []byte) string {
	url := Scheme + uuid.NewString()
	r.mu.Lock()
	r.live[url] = data
	r.mu.Unlock()
	return url
}

// Resolve returns the bytes behind a live preview URL.
func (r *Registry) Resolve(url string) ([]byte, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	data, ok := r.live[url]
	return data, ok
}

// Revoke releases url. Revoking an unknown or already revoked URL is a
// no-op and returns false.
func (r *Registry) Revoke(url string) bool {
	r.mu.Lock()
	if _, ok := r.live[url]; !ok {
		r.mu.Unlock()
		return false
	}
	delete(r.live, url)
	r.revoked++
	hook := r.onRevoke
	r.mu.Unlock()

	if hook != nil {
		hook(url)
	}
	return true
}

// RevokeAll releases every live URL.
func (r *Registry) RevokeAll() int {
	r.mu.Lock()
	urls := make([]string, 0, len(r.live))
	for url := range r.live {
		urls = append(urls, url)
	}
	r.mu.Unlock()

	n := 0
	for _, url := range urls {
		if r.Revoke(url) {
			n++
		}
	}
	return n
}

// Live is the number of URLs not yet revoked.
func (r *Registry) Live() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.live)
}

// Revoked is the number of URLs revoked so far.
func (r *Registry) Revoked() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.revoked
}
