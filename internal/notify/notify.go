// Package notify implements the broadcast change stream a box exposes via
// Watch, per SPEC_FULL.md §4.J. The teacher has no equivalent layer; the
// fan-out-over-per-subscriber-channels shape follows Go's idiomatic
// publish/subscribe pattern, with event ordering discipline cross-checked
// against the WAL-sequencing style of other_examples'
// nconghau-MiniDBGo internal/lsm/wal.go.
package notify

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/jassi-singh/hivebox/internal/format"
	"github.com/jassi-singh/hivebox/internal/hiveerr"
)

// bufferSize bounds each subscriber channel; a slow subscriber has its
// oldest unread event dropped rather than blocking the publisher.
const bufferSize = 64

// Event describes a single keystore mutation.
type Event struct {
	Key     format.Key
	Value   any
	Deleted bool
}

type subscriber struct {
	ch     chan Event
	filter *format.Key
}

// Notifier is a box's broadcast event stream. The zero value is not usable;
// construct with New.
type Notifier struct {
	mu     sync.Mutex
	subs   map[*subscriber]struct{}
	closed bool
}

// New returns a ready Notifier.
func New() *Notifier {
	return &Notifier{subs: make(map[*subscriber]struct{})}
}

// Watch returns a channel of events for key if given, or every event if nil.
// The channel is closed when the notifier is closed. Watching an
// already-closed notifier fails with ErrBoxClosed.
func (n *Notifier) Watch(key *format.Key) (<-chan Event, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return nil, fmt.Errorf("notify: watch on closed box: %w", hiveerr.ErrBoxClosed)
	}

	ch := make(chan Event, bufferSize)
	sub := &subscriber{ch: ch, filter: key}
	n.subs[sub] = struct{}{}
	return ch, nil
}

// Publish delivers event to every subscriber whose filter matches. A full
// subscriber channel has its oldest buffered event dropped to make room —
// publishing never blocks on a slow watcher.
func (n *Notifier) Publish(event Event) {
	n.mu.Lock()
	defer n.mu.Unlock()

	for sub := range n.subs {
		if sub.filter != nil && sub.filter.Compare(event.Key) != 0 {
			continue
		}
		select {
		case sub.ch <- event:
		default:
			select {
			case <-sub.ch:
			default:
			}
			select {
			case sub.ch <- event:
			default:
				slog.Debug("notify: dropped event for a saturated subscriber", "key", event.Key)
			}
		}
	}
}

// Close terminates the stream: every subscriber channel is closed and
// further Watch calls fail with ErrBoxClosed.
func (n *Notifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return
	}
	n.closed = true
	for sub := range n.subs {
		close(sub.ch)
	}
	n.subs = nil
}
