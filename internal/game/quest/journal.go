package quest

import (
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/udisondev/questd/internal/data"
)

// Options tune a Journal.
type Options struct {
	// Strict turns invariant violations into panics. Use in tests and development.
	Strict bool
	// Now returns the wall clock. Defaults to time.Now.
	Now func() time.Time
	// MoneyMaxLevelRate scales the bonus money paid instead of XP at max level.
	MoneyMaxLevelRate float64
}

// Deps are the collaborators a Journal calls into.
// Templates, Player and Inventory are required.
type Deps struct {
	Templates  TemplateSource
	Player     Player
	Inventory  Inventory
	Conditions Conditions
	Mailer     Mailer
	Notifier   Notifier
}

type questSet map[int32]struct{}

func (s questSet) has(id int32) bool {
	_, ok := s[id]
	return ok
}

func (s questSet) sorted() []int32 {
	out := make([]int32, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// Journal is the quest state of one character. It is not safe for concurrent
// use: all calls for a character must come from the goroutine that owns it.
type Journal struct {
	templates  TemplateSource
	player     Player
	inv        Inventory
	conditions Conditions
	mailer     Mailer
	notify     Notifier
	opts       Options

	statuses map[int32]*StatusRecord
	log      QuestLog
	rewarded questSet
	timed    questSet

	daily    questSet
	dfDaily  questSet
	weekly   questSet
	monthly  questSet
	seasonal map[int32]map[int32]time.Time // eventID → questID → completion time
	bits     CompletedBits

	statusSave   map[int32]SaveType
	rewardedSave map[int32]SaveType
	dirtyBuckets bucketMask
	bitsChanged  bool

	// queued holds collaborator change events while a transition is in flight.
	queued []func()

	bus bus
}

// NewJournal creates an empty journal for deps.Player.
func NewJournal(deps Deps, opts Options) *Journal {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.MoneyMaxLevelRate <= 0 {
		opts.MoneyMaxLevelRate = 1
	}
	if deps.Notifier == nil {
		deps.Notifier = NopNotifier{}
	}
	return &Journal{
		templates:    deps.Templates,
		player:       deps.Player,
		inv:          deps.Inventory,
		conditions:   deps.Conditions,
		mailer:       deps.Mailer,
		notify:       deps.Notifier,
		opts:         opts,
		statuses:     make(map[int32]*StatusRecord, 8),
		rewarded:     make(questSet),
		timed:        make(questSet),
		daily:        make(questSet),
		dfDaily:      make(questSet),
		weekly:       make(questSet),
		monthly:      make(questSet),
		seasonal:     make(map[int32]map[int32]time.Time),
		statusSave:   make(map[int32]SaveType),
		rewardedSave: make(map[int32]SaveType),
	}
}

// Subscribe registers an observer for status and objective events.
func (j *Journal) Subscribe(o Observer) {
	j.bus.subscribe(o)
}

// CharacterID returns the owning character's id.
func (j *Journal) CharacterID() int64 {
	return j.player.CharacterID()
}

// quest looks up a template and logs unknown ids.
func (j *Journal) quest(questID int32) *data.QuestTemplate {
	q := j.templates.Quest(questID)
	if q == nil {
		slog.Error("unknown quest", "characterID", j.CharacterID(), "questID", questID)
	}
	return q
}

// invariant reports a violated internal invariant: panics in strict mode, logs otherwise.
func (j *Journal) invariant(msg string, args ...any) {
	if j.opts.Strict {
		panic(fmt.Sprintf("quest invariant: %s %v", msg, args))
	}
	slog.Error("quest invariant violated: "+msg, append([]any{"characterID", j.CharacterID()}, args...)...)
}

// GetQuestStatus returns the status of questID, including Rewarded for quests
// that are no longer active.
func (j *Journal) GetQuestStatus(questID int32) Status {
	if questID == 0 {
		return StatusNone
	}
	if rec, ok := j.statuses[questID]; ok {
		return rec.Status
	}
	if q := j.templates.Quest(questID); q != nil && j.rewardStatus(q) {
		return StatusRewarded
	}
	return StatusNone
}

// rewardStatus reports whether q counts as already turned in.
// Repeatable quests never do; seasonal ones only while their cooldown entry lives.
func (j *Journal) rewardStatus(q *data.QuestTemplate) bool {
	if q.IsSeasonal() {
		return !j.satisfySeasonal(q, false)
	}
	if !q.IsRepeatable() {
		return j.rewarded.has(q.ID)
	}
	return false
}

// IsQuestRewarded reports whether questID is in the rewarded set.
func (j *Journal) IsQuestRewarded(questID int32) bool {
	return j.rewarded.has(questID)
}

// IsActiveQuest reports whether questID has an active status record.
func (j *Journal) IsActiveQuest(questID int32) bool {
	_, ok := j.statuses[questID]
	return ok
}

// Record returns a copy of the active status record for questID.
func (j *Journal) Record(questID int32) (StatusRecord, bool) {
	rec, ok := j.statuses[questID]
	if !ok {
		return StatusRecord{}, false
	}
	return rec.clone(), true
}

// ActiveQuests returns the ids of all active quests in ascending order.
func (j *Journal) ActiveQuests() []int32 {
	out := make([]int32, 0, len(j.statuses))
	for id := range j.statuses {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// RewardedQuests returns the rewarded set in ascending order.
func (j *Journal) RewardedQuests() []int32 {
	return j.rewarded.sorted()
}

// TimedQuests returns the ids of quests with a running timer.
func (j *Journal) TimedQuests() []int32 {
	return j.timed.sorted()
}

// Slot returns a copy of quest log slot i.
func (j *Journal) Slot(i int) Slot {
	return j.log.Slot(i)
}

// FindSlot returns the log slot of questID.
func (j *Journal) FindSlot(questID int32) (int, bool) {
	return j.log.FindSlot(questID)
}

// HasCompletedBit reports whether the unique completion bit is set.
func (j *Journal) HasCompletedBit(bit int32) bool {
	return j.bits.Has(bit)
}

// IsDailyDone reports whether questID is on the daily (or dungeon-finder daily) cooldown.
func (j *Journal) IsDailyDone(questID int32) bool {
	return j.daily.has(questID) || j.dfDaily.has(questID)
}

// IsWeeklyDone reports whether questID is on the weekly cooldown.
func (j *Journal) IsWeeklyDone(questID int32) bool { return j.weekly.has(questID) }

// IsMonthlyDone reports whether questID is on the monthly cooldown.
func (j *Journal) IsMonthlyDone(questID int32) bool { return j.monthly.has(questID) }

// IsSeasonalDone reports whether questID is on the cooldown of holiday eventID.
func (j *Journal) IsSeasonalDone(eventID, questID int32) bool {
	_, ok := j.seasonal[eventID][questID]
	return ok
}

func (j *Journal) markSave(questID int32) {
	j.statusSave[questID] = SaveDefault
}

// setStatus changes the status of an active record and notifies observers.
func (j *Journal) setStatus(questID int32, rec *StatusRecord, status Status) {
	old := rec.Status
	rec.Status = status
	j.markSave(questID)
	j.bus.statusChanged(questID, old, status)
}

// conditionSubject exposes the player plus the rewarded set to condition evaluation.
type conditionSubject struct {
	Player
	j *Journal
}

func (s conditionSubject) IsQuestRewarded(questID int32) bool {
	return s.j.IsQuestRewarded(questID)
}

func (j *Journal) meets(conditionID int32) bool {
	if conditionID == 0 || j.conditions == nil {
		return true
	}
	return j.conditions.Meets(conditionID, conditionSubject{Player: j.player, j: j})
}
