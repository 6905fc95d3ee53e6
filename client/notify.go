package client

import (
	"sync"

	"github.com/google/uuid"
)

// Level classifies a notification for display purposes.
type Level string

const (
	// LevelInfo marks a state change a view may want to re-render for.
	LevelInfo Level = "info"
	// LevelError marks a failed mutation that was rolled back.
	LevelError Level = "error"
)

// Notification is a transient event raised by the state layer.
type Notification struct {
	Level   Level
	Message string
}

// Notifier fans notifications out to subscribers. Each subscriber gets
// its own buffered channel keyed by a generated id; slow subscribers
// drop events rather than block the publisher.
type Notifier struct {
	mu          sync.RWMutex
	subscribers map[string]chan Notification
}

// NewNotifier creates a Notifier with no subscribers.
func NewNotifier() *Notifier {
	return &Notifier{subscribers: make(map[string]chan Notification)}
}

// Subscribe registers a new subscriber and returns its id together with
// the channel notifications arrive on. The id is the handle for
// Unsubscribe.
func (n *Notifier) Subscribe() (string, <-chan Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := uuid.New().String()
	ch := make(chan Notification, 16)
	n.subscribers[id] = ch
	return id, ch
}

// Unsubscribe removes a subscriber and closes its channel. Unknown ids
// are ignored.
func (n *Notifier) Unsubscribe(id string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if ch, ok := n.subscribers[id]; ok {
		close(ch)
		delete(n.subscribers, id)
	}
}

// Publish delivers a notification to every subscriber without blocking.
// Subscribers whose buffers are full miss the event.
func (n *Notifier) Publish(notification Notification) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	for _, ch := range n.subscribers {
		select {
		case ch <- notification:
		default:
		}
	}
}
