// Package world runs the single goroutine that owns every online quest journal.
package world

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/udisondev/questd/internal/data"
	"github.com/udisondev/questd/internal/game/quest"
	"github.com/udisondev/questd/internal/model"
)

// ErrStopped is returned when the loop no longer accepts work.
var ErrStopped = errors.New("world loop stopped")

// OfflineResetter clears cooldowns of characters that are not online.
// Implemented by db.QuestRepository.
type OfflineResetter interface {
	ResetBucket(ctx context.Context, bucket quest.PeriodicBucket, bits []int32) (int64, error)
	ResetSeasonal(ctx context.Context, eventID int32, before time.Time, bits []int32) (int64, error)
}

// QuestCatalog lists every quest template.
type QuestCatalog interface {
	Quests() []*data.QuestTemplate
}

// Config configures a Loop.
type Config struct {
	Manager      *quest.Manager
	Catalog      QuestCatalog
	Offline      OfflineResetter // nil: only online journals are reset
	TickInterval time.Duration
	SaveInterval time.Duration
	QueueSize    int
}

// Loop ticks quest timers, runs queued closures and periodically flushes
// journals. Journals are touched only from the Run goroutine.
type Loop struct {
	manager *quest.Manager
	catalog QuestCatalog
	offline OfflineResetter

	tick      time.Duration
	saveEvery time.Duration

	tasks chan func()
	done  chan struct{}
}

// New creates a world loop.
func New(cfg Config) *Loop {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = 100 * time.Millisecond
	}
	if cfg.SaveInterval <= 0 {
		cfg.SaveInterval = 5 * time.Minute
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1024
	}
	return &Loop{
		manager:   cfg.Manager,
		catalog:   cfg.Catalog,
		offline:   cfg.Offline,
		tick:      cfg.TickInterval,
		saveEvery: cfg.SaveInterval,
		tasks:     make(chan func(), cfg.QueueSize),
		done:      make(chan struct{}),
	}
}

// Run processes ticks and tasks until ctx is cancelled, then runs the
// remaining tasks and saves every journal.
func (l *Loop) Run(ctx context.Context) error {
	defer close(l.done)

	ticker := time.NewTicker(l.tick)
	defer ticker.Stop()
	saver := time.NewTicker(l.saveEvery)
	defer saver.Stop()

	slog.Info("world loop started", "tick", l.tick, "saveInterval", l.saveEvery)

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			l.shutdown(context.WithoutCancel(ctx))
			return nil

		case now := <-ticker.C:
			l.manager.Update(now.Sub(last))
			last = now

		case <-saver.C:
			if err := l.manager.SaveAll(ctx); err != nil {
				slog.Error("periodic quest save", "error", err)
			}

		case fn := <-l.tasks:
			fn()
		}
	}
}

func (l *Loop) shutdown(ctx context.Context) {
	for drained := false; !drained; {
		select {
		case fn := <-l.tasks:
			fn()
		default:
			drained = true
		}
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := l.manager.SaveAll(ctx); err != nil {
		slog.Error("final quest save", "error", err)
	}
	slog.Info("world loop stopped", "online", l.manager.Count())
}

// Do queues fn onto the loop goroutine. It blocks while the queue is full.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	select {
	case <-l.done:
		return ErrStopped
	default:
	}
	select {
	case l.tasks <- fn:
		return nil
	case <-l.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Call runs fn on the loop goroutine and waits for it to return.
func (l *Loop) Call(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if err := l.Do(ctx, func() {
		defer close(finished)
		fn()
	}); err != nil {
		return err
	}
	select {
	case <-finished:
		return nil
	case <-l.done:
		select {
		case <-finished:
			return nil
		default:
			return ErrStopped
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Enter loads the journal of a character and puts it under the loop.
func (l *Loop) Enter(ctx context.Context, player *model.Character, notifier quest.Notifier) (*quest.Journal, error) {
	// Загрузка из базы идёт вне цикла, регистрация видна циклу сразу после Login.
	j, err := l.manager.Login(ctx, player, player.Inventory(), notifier)
	if err != nil {
		return nil, err
	}
	slog.Info("character entered", "characterID", player.CharacterID(), "name", player.Name())
	return j, nil
}

// Leave saves and unloads a character on the loop goroutine.
func (l *Loop) Leave(ctx context.Context, charID int64) error {
	var err error
	if callErr := l.Call(ctx, func() {
		err = l.manager.Logout(ctx, charID)
	}); callErr != nil {
		return callErr
	}
	return err
}

// Flush saves every online journal on the loop goroutine.
func (l *Loop) Flush(ctx context.Context) error {
	var err error
	if callErr := l.Call(ctx, func() {
		err = l.manager.SaveAll(ctx)
	}); callErr != nil {
		return callErr
	}
	return err
}

// WithJournal runs fn against an online journal on the loop goroutine.
// fn is not called when the character is offline.
func (l *Loop) WithJournal(ctx context.Context, charID int64, fn func(*quest.Journal)) error {
	return l.Call(ctx, func() {
		if j := l.manager.Journal(charID); j != nil {
			fn(j)
		}
	})
}

// ResetFunc returns the callback for quest.ResetScheduler.
func (l *Loop) ResetFunc(ctx context.Context) quest.ResetFunc {
	return func(kind quest.ResetKind, at time.Time) {
		l.Reset(ctx, kind, at)
	}
}

// Reset runs a periodic reset for online and offline characters.
// Online journals are reset on the loop first, so a logout racing the storage
// reset saves already cleared buckets.
func (l *Loop) Reset(ctx context.Context, kind quest.ResetKind, at time.Time) {
	if err := l.Call(ctx, func() { l.manager.ApplyReset(kind) }); err != nil {
		slog.Error("online quest reset", "kind", kind, "at", at, "error", err)
	}
	if l.offline == nil {
		return
	}

	var bits []int32
	if l.catalog != nil {
		bits = kind.UniqueBits(l.catalog.Quests())
	}
	for _, b := range kind.Buckets() {
		removed, err := l.offline.ResetBucket(ctx, b, bits)
		if err != nil {
			slog.Error("offline quest reset", "kind", kind, "bucket", b, "error", err)
			continue
		}
		bits = nil
		slog.Info("offline quest reset", "kind", kind, "bucket", b, "rows", removed)
	}
}

// SeasonalReset drops the cooldowns of holiday eventID earned before the
// event's current occurrence started, online journals first.
func (l *Loop) SeasonalReset(ctx context.Context, eventID int32, start time.Time) {
	if err := l.Call(ctx, func() { l.manager.ApplySeasonalReset(eventID, start) }); err != nil {
		slog.Error("online seasonal reset", "eventID", eventID, "error", err)
	}
	if l.offline == nil {
		return
	}

	var bits []int32
	if l.catalog != nil {
		bits = quest.SeasonalBits(eventID, l.catalog.Quests())
	}
	removed, err := l.offline.ResetSeasonal(ctx, eventID, start, bits)
	if err != nil {
		slog.Error("offline seasonal reset", "eventID", eventID, "error", err)
		return
	}
	slog.Info("offline seasonal reset", "eventID", eventID, "start", start, "rows", removed)
}
