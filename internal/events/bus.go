// internal/events/bus.go
package events

import (
	"context"
	"sync"
	"time"

	"escrow-service/internal/domain"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

// Sink is what the escrow state machine publishes transitions into.
type Sink interface {
	Publish(evt domain.Event)
}

// Publisher receives a copy of every event appended to the bus. Publisher
// failures are logged and dropped; the append-only log is the source of
// truth and external fanout is best effort.
type Publisher interface {
	Publish(ctx context.Context, evt domain.Event) error
}

// Bus is the append-only transition log plus fanout. Feed exposes the
// stream to the archiver worker; a slow consumer drops events from the
// feed but never from the log.
type Bus struct {
	mu         sync.Mutex
	entries    []domain.Event
	publishers []Publisher
	feed       chan domain.Event
	logger     *zap.Logger
}

func NewBus(logger *zap.Logger, publishers ...Publisher) *Bus {
	return &Bus{
		publishers: publishers,
		feed:       make(chan domain.Event, 256),
		logger:     logger,
	}
}

func (b *Bus) Publish(evt domain.Event) {
	if evt.ID == "" {
		evt.ID = ulid.Make().String()
	}
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = time.Now().UTC()
	}

	b.mu.Lock()
	b.entries = append(b.entries, evt)
	pubs := b.publishers
	b.mu.Unlock()

	select {
	case b.feed <- evt:
	default:
		b.logger.Warn("event feed full, archiver lagging",
			zap.String("event_id", evt.ID),
			zap.String("type", string(evt.Type)))
	}

	for _, p := range pubs {
		if err := p.Publish(context.Background(), evt); err != nil {
			b.logger.Warn("event publish failed",
				zap.String("event_id", evt.ID),
				zap.String("type", string(evt.Type)),
				zap.Error(err))
		}
	}
}

// Events returns a copy of the full transition log.
func (b *Bus) Events() []domain.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]domain.Event, len(b.entries))
	copy(out, b.entries)
	return out
}

// Feed is the stream consumed by the archiver worker.
func (b *Bus) Feed() <-chan domain.Event {
	return b.feed
}
