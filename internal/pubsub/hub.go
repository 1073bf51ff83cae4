package pubsub

import (
	"fmt"
	"strings"
	"sync"

	"github.com/guilhermegouw/parley/internal/events"
)

// Hub groups the brokers for each event stream the application publishes.
type Hub struct { //nolint:govet // fieldalignment: preserving logical field order
	Session *Broker[events.SessionEvent]
	Message *Broker[events.MessageEvent]
	Turn    *Broker[events.TurnEvent]

	once sync.Once
	done chan struct{}
}

// NewHub creates a new Hub with all brokers initialized.
func NewHub() *Hub {
	return &Hub{
		Session: NewBroker[events.SessionEvent]("session"),
		Message: NewBroker[events.MessageEvent]("message"),
		Turn:    NewBroker[events.TurnEvent]("turn"),
		done:    make(chan struct{}),
	}
}

// Shutdown closes every broker and its subscribers.
func (h *Hub) Shutdown() {
	h.once.Do(func() {
		close(h.done)

		var wg sync.WaitGroup
		wg.Add(3)
		go func() { defer wg.Done(); h.Session.Shutdown() }()
		go func() { defer wg.Done(); h.Message.Shutdown() }()
		go func() { defer wg.Done(); h.Turn.Shutdown() }()
		wg.Wait()
	})
}

// IsShutdown returns true if the hub has been shut down.
func (h *Hub) IsShutdown() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

// Done returns a channel that's closed when the hub is shut down.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// AllMetrics returns metrics for all brokers.
func (h *Hub) AllMetrics() []BrokerMetrics {
	return []BrokerMetrics{
		h.Session.Metrics(),
		h.Message.Metrics(),
		h.Turn.Metrics(),
	}
}

// DebugString returns a one-line-per-broker summary.
func (h *Hub) DebugString() string {
	metrics := h.AllMetrics()

	var sb strings.Builder
	fmt.Fprintf(&sb, "=== Hub (%d brokers) ===\n", len(metrics))
	for _, m := range metrics {
		fmt.Fprintf(&sb, "  %s: subs=%d, published=%d, dropped=%d\n",
			m.Name, m.SubscriberCount, m.PublishCount, m.DropCount)
	}
	return sb.String()
}
