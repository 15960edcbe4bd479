package quest

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/udisondev/questd/internal/data"
	"github.com/udisondev/questd/internal/mail"
	"github.com/udisondev/questd/internal/model"
)

const (
	itemWolfPelt    int32 = 100 // stackable quest-bound objective item
	itemRewardSword int32 = 200
	itemJunk        int32 = 201
	itemSealedNote  int32 = 300 // source item
)

var testItems = []model.ItemTemplate{
	{ID: itemWolfPelt, Name: "Wolf Pelt", MaxStack: 20, QuestBound: true},
	{ID: itemRewardSword, Name: "Rusty Sword", MaxStack: 1},
	{ID: itemJunk, Name: "Broken Pottery", MaxStack: 1},
	{ID: itemSealedNote, Name: "Sealed Note", MaxStack: 1, MaxCount: 1, QuestBound: true},
}

var testEpoch = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

type credit struct {
	questID int32
	objID   int32
	count   int32
}

// recordingNotifier records every client message.
type recordingNotifier struct {
	rejected    []FailedReason
	logFull     int
	invErrors   []model.StoreResult
	credits     []credit
	killCredits []credit
	completed   []int32
	failed      []int32
	timerFailed []int32
	rewarded    []int32
}

func (n *recordingNotifier) QuestRejected(_ int32, reason FailedReason) {
	n.rejected = append(n.rejected, reason)
}
func (n *recordingNotifier) QuestLogFull() { n.logFull++ }
func (n *recordingNotifier) InventoryError(_ int32, res model.StoreResult) {
	n.invErrors = append(n.invErrors, res)
}
func (n *recordingNotifier) QuestCredit(questID int32, obj *data.QuestObjective, count int32) {
	n.credits = append(n.credits, credit{questID, obj.ID, count})
}
func (n *recordingNotifier) PlayerKillCredit(questID int32, obj *data.QuestObjective, count int32) {
	n.killCredits = append(n.killCredits, credit{questID, obj.ID, count})
}
func (n *recordingNotifier) QuestCompleted(questID int32)   { n.completed = append(n.completed, questID) }
func (n *recordingNotifier) QuestFailed(questID int32)      { n.failed = append(n.failed, questID) }
func (n *recordingNotifier) QuestTimerFailed(questID int32) { n.timerFailed = append(n.timerFailed, questID) }
func (n *recordingNotifier) QuestRewarded(questID int32, _, _ int64) {
	n.rewarded = append(n.rewarded, questID)
}

type mailRecorder struct {
	sent []mail.Mail
}

func (m *mailRecorder) Send(msg mail.Mail) bool {
	m.sent = append(m.sent, msg)
	return true
}

// eventLog records observer callbacks as strings.
type eventLog struct {
	events []string
}

func (l *eventLog) observer() ObserverFuncs {
	return ObserverFuncs{
		OnStatusChanged: func(questID int32) {
			l.events = append(l.events, fmt.Sprintf("changed %d", questID))
		},
		OnTransition: func(questID int32, from, to Status) {
			l.events = append(l.events, fmt.Sprintf("transition %d %s->%s", questID, from, to))
		},
		OnObjective: func(questID int32, obj *data.QuestObjective, from, to int32) {
			l.events = append(l.events, fmt.Sprintf("objective %d/%d %d->%d", questID, obj.ID, from, to))
		},
	}
}

type fixture struct {
	store  *data.Store
	player *model.Character
	inv    *model.Inventory
	notify *recordingNotifier
	mails  *mailRecorder
	events *eventLog
	now    time.Time
	j      *Journal
}

type fixtureOption func(*fixtureConfig)

type fixtureConfig struct {
	slots  int
	strict bool
	info   model.CharacterInfo
}

func withSlots(n int) fixtureOption {
	return func(c *fixtureConfig) { c.slots = n }
}

func withoutStrict() fixtureOption {
	return func(c *fixtureConfig) { c.strict = false }
}

func withCharacter(info model.CharacterInfo) fixtureOption {
	return func(c *fixtureConfig) { c.info = info }
}

// newFixture builds a journal over content with a level 10 human warrior.
func newFixture(t *testing.T, content data.StoreContent, opts ...fixtureOption) *fixture {
	t.Helper()
	store, err := data.NewStore(content)
	require.NoError(t, err)
	return newFixtureWithStore(t, store, opts...)
}

func newFixtureWithStore(t *testing.T, store *data.Store, opts ...fixtureOption) *fixture {
	t.Helper()
	cfg := fixtureConfig{
		slots:  model.DefaultInventorySlots,
		strict: true,
		info:   model.CharacterInfo{ID: 42, Name: "Tester", Race: 1, Class: 1, FactionGroup: 1, Level: 10},
	}
	for _, o := range opts {
		o(&cfg)
	}

	inv := model.NewInventory(cfg.info.ID, model.NewItemCatalog(testItems...), cfg.slots)
	f := &fixture{
		store:  store,
		player: model.NewCharacter(cfg.info, inv),
		inv:    inv,
		notify: &recordingNotifier{},
		mails:  &mailRecorder{},
		events: &eventLog{},
		now:    testEpoch,
	}
	f.j = NewJournal(Deps{
		Templates:  store,
		Player:     f.player,
		Inventory:  inv,
		Conditions: store.Conditions(),
		Mailer:     f.mails,
		Notifier:   f.notify,
	}, Options{
		Strict: cfg.strict,
		Now:    func() time.Time { return f.now },
	})
	f.j.Subscribe(f.events.observer())
	return f
}

func (f *fixture) quest(t *testing.T, id int32) *data.QuestTemplate {
	t.Helper()
	q := f.store.Quest(id)
	require.NotNil(t, q, "quest %d", id)
	return q
}

func (f *fixture) objective(t *testing.T, questID int32, index int) *data.QuestObjective {
	t.Helper()
	q := f.quest(t, questID)
	require.Less(t, index, len(q.Objectives))
	return &q.Objectives[index]
}

// turnIn runs accept, complete and reward for a quest without objectives.
func (f *fixture) turnIn(t *testing.T, questID int32) error {
	t.Helper()
	require.NoError(t, f.j.AddQuest(questID))
	require.NoError(t, f.j.CompleteQuest(questID))
	return f.j.RewardQuest(questID, data.RewardChoiceItem, 0, 0)
}

func simpleQuest(id int32) data.QuestTemplate {
	return data.QuestTemplate{ID: id, Title: fmt.Sprintf("Quest %d", id)}
}

func itemQuest(id, itemID, amount int32) data.QuestTemplate {
	q := simpleQuest(id)
	q.Objectives = []data.QuestObjective{
		{Type: data.ObjectiveItem, ObjectID: itemID, Amount: amount, StorageIndex: 0},
	}
	return q
}
