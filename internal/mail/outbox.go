package mail

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// DefaultQueueSize is the outbox buffer used when the configuration leaves it unset.
const DefaultQueueSize = 256

// Store persists mail. Implemented in the db package.
type Store interface {
	InsertMail(ctx context.Context, m Mail) error
}

// Outbox buffers mail between the world goroutine and the database.
// Send never blocks: when the queue is full the mail is dropped and logged.
type Outbox struct {
	queue chan Mail
	store Store
}

// NewOutbox creates an outbox with the given buffer size.
func NewOutbox(store Store, size int) *Outbox {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &Outbox{
		queue: make(chan Mail, size),
		store: store,
	}
}

// Send assigns an id and queues m. Returns false if the mail was dropped.
func (o *Outbox) Send(m Mail) bool {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	select {
	case o.queue <- m:
		return true
	default:
		slog.Error("mail queue full, dropping mail",
			"mailID", m.ID,
			"characterID", m.CharacterID,
			"kind", m.Kind,
			"questID", m.QuestID)
		return false
	}
}

// Pending returns the number of queued mails.
func (o *Outbox) Pending() int {
	return len(o.queue)
}

// Run drains the queue into the store until ctx is cancelled.
// Mail still queued at shutdown is flushed with a fresh context.
func (o *Outbox) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			o.drain()
			return nil
		case m := <-o.queue:
			if err := o.store.InsertMail(ctx, m); err != nil {
				slog.Error("storing mail", "mailID", m.ID, "characterID", m.CharacterID, "error", err)
			}
		}
	}
}

func (o *Outbox) drain() {
	for {
		select {
		case m := <-o.queue:
			if err := o.store.InsertMail(context.Background(), m); err != nil {
				slog.Error("storing mail on shutdown", "mailID", m.ID, "error", err)
			}
		default:
			return
		}
	}
}

// Flush stores every queued mail synchronously.
func (o *Outbox) Flush(ctx context.Context) error {
	for {
		select {
		case m := <-o.queue:
			if err := o.store.InsertMail(ctx, m); err != nil {
				return fmt.Errorf("flushing mail %s: %w", m.ID, err)
			}
		default:
			return nil
		}
	}
}
