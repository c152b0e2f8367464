// Package notify holds the transient messages shown to the viewer after an
// action succeeds or fails.
package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Level is the visual weight of a notification.
type Level string

const (
	LevelSuccess Level = "success"
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notification is one message on screen.
type Notification struct {
	ID        string
	Level     Level
	Message   string
	CreatedAt time.Time
}

// Notifier is what stores and workflows report to.
type Notifier interface {
	Notify(level Level, message string)
}

// DefaultTTL is how long a notification stays up unless dismissed.
const DefaultTTL = 5 * time.Second

// Center keeps the active notifications and fans new ones out to listeners.
type Center struct {
	mu        sync.Mutex
	items     []Notification
	listeners []func(Notification)
	ttl       time.Duration
	now       func() time.Time
}

// NewCenter creates a center whose notifications expire after ttl.
func NewCenter(ttl time.Duration) *Center {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Center{ttl: ttl, now: time.Now}
}

// Notify implements Notifier.
func (c *Center) Notify(level Level, message string) {
	n := Notification{
		ID:      uuid.NewString(),
		Level:   level,
		Message: message,
	}

	c.mu.Lock()
	n.CreatedAt = c.now()
	c.items = append(c.items, n)
	listeners := append([]func(Notification){}, c.listeners...)
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(n)
	}
}

// Subscribe registers fn to be called for every new notification.
func (c *Center) Subscribe(fn func(Notification)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// Dismiss removes a notification. It reports whether id was active.
func (c *Center) Dismiss(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, n := range c.items {
		if n.ID == id {
			c.items = append(c.items[:i], c.items[i+1:]...)
			return true
		}
	}
	return false
}

// Active returns the notifications that have not expired, oldest first.
// Expired ones are dropped.
func (c *Center) Active() []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()

	cutoff := c.now().Add(-c.ttl)
	kept := c.items[:0]
	for _, n := range c.items {
		if n.CreatedAt.After(cutoff) {
			kept = append(kept, n)
		}
	}
	c.items = kept
	return append([]Notification(nil), kept...)
}

// Discard drops every notification.
var Discard Notifier = discard{}

type discard struct{}

func (discard) Notify(Level, string) {}
