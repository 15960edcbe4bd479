package quest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"
)

// Repository defines quest journal persistence.
// Implemented in the db package.
type Repository interface {
	LoadJournal(ctx context.Context, charID int64) (Snapshot, error)
	SaveJournal(ctx context.Context, changes PendingChanges) error
}

// Manager keeps the journals of online characters and moves them to and from
// the repository. Journals themselves are not thread-safe: callers drive them
// from a single goroutine (the world loop). The registry is safe for
// concurrent lookups.
type Manager struct {
	mu       sync.RWMutex
	journals map[int64]*Journal // characterID → Journal

	templates  TemplateSource
	conditions Conditions
	mailer     Mailer
	repo       Repository
	opts       Options
}

// ManagerConfig holds the collaborators shared by every journal.
type ManagerConfig struct {
	Templates  TemplateSource
	Conditions Conditions
	Mailer     Mailer
	Repo       Repository
	Options    Options
}

// NewManager creates a new journal manager.
func NewManager(cfg ManagerConfig) *Manager {
	return &Manager{
		journals:   make(map[int64]*Journal, 256),
		templates:  cfg.Templates,
		conditions: cfg.Conditions,
		mailer:     cfg.Mailer,
		repo:       cfg.Repo,
		opts:       cfg.Options,
	}
}

// Login builds the journal of player, restores it from the repository and
// registers it. Logging in twice returns the existing journal.
func (m *Manager) Login(ctx context.Context, player Player, inv Inventory, notifier Notifier) (*Journal, error) {
	charID := player.CharacterID()
	if j := m.Journal(charID); j != nil {
		return j, nil
	}

	j := NewJournal(Deps{
		Templates:  m.templates,
		Player:     player,
		Inventory:  inv,
		Conditions: m.conditions,
		Mailer:     m.mailer,
		Notifier:   notifier,
	}, m.opts)

	if m.repo != nil {
		snap, err := m.repo.LoadJournal(ctx, charID)
		if err != nil {
			return nil, fmt.Errorf("loading quests for character %d: %w", charID, err)
		}
		j.Restore(snap)
	}

	m.mu.Lock()
	m.journals[charID] = j
	m.mu.Unlock()

	slog.Debug("character quests loaded",
		"characterID", charID,
		"active", len(j.ActiveQuests()))
	return j, nil
}

// Journal returns the journal of an online character, nil if offline.
func (m *Manager) Journal(charID int64) *Journal {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.journals[charID]
}

// Online returns the ids of online characters in ascending order.
func (m *Manager) Online() []int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]int64, 0, len(m.journals))
	for id := range m.journals {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// Count returns the number of online journals.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.journals)
}

// Update advances the quest timers of every online journal.
func (m *Manager) Update(diff time.Duration) {
	for _, id := range m.Online() {
		if j := m.Journal(id); j != nil {
			j.Update(diff)
		}
	}
}

// ApplyReset runs a periodic reset on every online journal.
// Offline characters are reset in storage by the caller.
func (m *Manager) ApplyReset(kind ResetKind) {
	for _, id := range m.Online() {
		if j := m.Journal(id); j != nil {
			kind.Apply(j)
		}
	}
	slog.Info("quest reset applied", "kind", kind, "online", m.Count())
}

// ApplySeasonalReset drops the cooldowns of holiday eventID earned before
// start on every online journal.
func (m *Manager) ApplySeasonalReset(eventID int32, start time.Time) {
	for _, id := range m.Online() {
		if j := m.Journal(id); j != nil {
			j.SeasonalReset(eventID, start)
		}
	}
	slog.Info("seasonal quest reset applied", "eventID", eventID, "start", start, "online", m.Count())
}

// Save writes the pending changes of one character.
func (m *Manager) Save(ctx context.Context, charID int64) error {
	j := m.Journal(charID)
	if j == nil || m.repo == nil {
		return nil
	}
	pc := j.PendingChanges()
	if pc.Empty() {
		return nil
	}
	if err := m.repo.SaveJournal(ctx, pc); err != nil {
		return fmt.Errorf("saving quests for character %d: %w", charID, err)
	}
	j.ClearPending()
	return nil
}

// SaveAll writes every online journal. A failed character does not stop the others.
func (m *Manager) SaveAll(ctx context.Context) error {
	var errs []error
	for _, id := range m.Online() {
		if err := m.Save(ctx, id); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Logout saves and unloads a character. The journal stays registered when saving fails.
func (m *Manager) Logout(ctx context.Context, charID int64) error {
	if err := m.Save(ctx, charID); err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.journals, charID)
	m.mu.Unlock()
	return nil
}
