package quest

import (
	"log/slog"
	"slices"
	"time"

	"github.com/udisondev/questd/internal/data"
)

// StatusRow is one changed active-status row.
// Rows tagged SaveDelete or SaveForceDelete carry only QuestID.
type StatusRow struct {
	QuestID       int32
	Save          SaveType
	Status        Status
	ObjectiveData []int32
	ExpiresAt     time.Time // zero unless a timer runs
}

// RewardedRow is one changed rewarded-set row.
type RewardedRow struct {
	QuestID int32
	Save    SaveType
}

// PeriodicEntry is one cooldown entry. EventID is set only for seasonal quests.
type PeriodicEntry struct {
	QuestID     int32
	Bucket      PeriodicBucket
	EventID     int32
	CompletedAt time.Time
}

// PendingChanges is everything that must be written since the last flush.
// Buckets lists the cooldown buckets to replace wholesale; Periodic holds
// their full new contents.
type PendingChanges struct {
	CharacterID int64
	Statuses    []StatusRow
	Rewarded    []RewardedRow
	Buckets     []PeriodicBucket
	Periodic    []PeriodicEntry
	Bits        CompletedBits
	BitsChanged bool
}

// Empty reports whether there is nothing to write.
func (p *PendingChanges) Empty() bool {
	return len(p.Statuses) == 0 && len(p.Rewarded) == 0 && len(p.Buckets) == 0 && !p.BitsChanged
}

// PendingChanges collects the tagged rows. The tags stay until ClearPending.
func (j *Journal) PendingChanges() PendingChanges {
	now := j.opts.Now()
	pc := PendingChanges{CharacterID: j.CharacterID()}

	ids := make([]int32, 0, len(j.statusSave))
	for id := range j.statusSave {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		save := j.statusSave[id]
		row := StatusRow{QuestID: id, Save: save}
		if save == SaveDefault {
			rec, ok := j.statuses[id]
			if !ok {
				j.invariant("save tag for quest without status record", "questID", id)
				continue
			}
			row.Status = rec.Status
			row.ObjectiveData = slices.Clone(rec.ObjectiveData)
			if j.timed.has(id) {
				row.ExpiresAt = now.Add(rec.Timer)
			}
		}
		pc.Statuses = append(pc.Statuses, row)
	}

	ids = ids[:0]
	for id := range j.rewardedSave {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		pc.Rewarded = append(pc.Rewarded, RewardedRow{QuestID: id, Save: j.rewardedSave[id]})
	}

	for _, b := range allBuckets {
		if !j.dirtyBuckets.has(b) {
			continue
		}
		pc.Buckets = append(pc.Buckets, b)
		pc.Periodic = append(pc.Periodic, j.bucketEntries(b, now)...)
	}

	if j.bitsChanged {
		pc.BitsChanged = true
		pc.Bits = slices.Clone(j.bits)
	}
	return pc
}

// ClearPending drops all save tags after a successful flush.
func (j *Journal) ClearPending() {
	clear(j.statusSave)
	clear(j.rewardedSave)
	j.dirtyBuckets = 0
	j.bitsChanged = false
}

func (j *Journal) bucketEntries(b PeriodicBucket, now time.Time) []PeriodicEntry {
	var set questSet
	switch b {
	case BucketDaily:
		set = j.daily
	case BucketDungeonDaily:
		set = j.dfDaily
	case BucketWeekly:
		set = j.weekly
	case BucketMonthly:
		set = j.monthly
	case BucketSeasonal:
		events := make([]int32, 0, len(j.seasonal))
		for ev := range j.seasonal {
			events = append(events, ev)
		}
		slices.Sort(events)
		var out []PeriodicEntry
		for _, ev := range events {
			for _, id := range sortedKeys(j.seasonal[ev]) {
				out = append(out, PeriodicEntry{QuestID: id, Bucket: b, EventID: ev, CompletedAt: j.seasonal[ev][id]})
			}
		}
		return out
	}
	out := make([]PeriodicEntry, 0, len(set))
	for _, id := range set.sorted() {
		out = append(out, PeriodicEntry{QuestID: id, Bucket: b, CompletedAt: now})
	}
	return out
}

func sortedKeys(m map[int32]time.Time) []int32 {
	out := make([]int32, 0, len(m))
	for id := range m {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// StatusSnapshot is a stored active quest.
type StatusSnapshot struct {
	QuestID       int32
	Status        Status
	ObjectiveData []int32
	ExpiresAt     time.Time
}

// Snapshot is the stored quest state of one character.
type Snapshot struct {
	Statuses []StatusSnapshot
	Rewarded []int32
	Periodic []PeriodicEntry
	Bits     CompletedBits
}

// Snapshot captures the current state in the form Restore accepts.
func (j *Journal) Snapshot() Snapshot {
	now := j.opts.Now()
	var s Snapshot
	for _, id := range j.log.Quests() {
		rec, ok := j.statuses[id]
		if !ok {
			continue
		}
		st := StatusSnapshot{QuestID: id, Status: rec.Status, ObjectiveData: slices.Clone(rec.ObjectiveData)}
		if j.timed.has(id) {
			st.ExpiresAt = now.Add(rec.Timer)
		}
		s.Statuses = append(s.Statuses, st)
	}
	s.Rewarded = j.rewarded.sorted()
	for _, b := range allBuckets {
		s.Periodic = append(s.Periodic, j.bucketEntries(b, now)...)
	}
	s.Bits = slices.Clone(j.bits)
	return s
}

// Restore loads stored state into an empty journal. Rows for unknown quests,
// inactive statuses and rows beyond the log capacity are skipped with a warning.
// Restore leaves no save tags behind.
func (j *Journal) Restore(s Snapshot) {
	now := j.opts.Now()
	for _, st := range s.Statuses {
		q := j.templates.Quest(st.QuestID)
		if q == nil {
			slog.Warn("stored quest has no template, skipped",
				"characterID", j.CharacterID(), "questID", st.QuestID)
			continue
		}
		if !st.Status.isActive() {
			slog.Warn("stored quest has inactive status, skipped",
				"characterID", j.CharacterID(), "questID", st.QuestID, "status", st.Status)
			continue
		}
		if _, dup := j.statuses[st.QuestID]; dup {
			continue
		}
		slot, ok := j.log.FindSlot(0)
		if !ok {
			slog.Warn("quest log full while restoring, quest skipped",
				"characterID", j.CharacterID(), "questID", st.QuestID)
			continue
		}
		j.restoreStatus(q, st, slot, now)
	}

	for _, id := range s.Rewarded {
		j.rewarded[id] = struct{}{}
	}
	for _, e := range s.Periodic {
		j.restorePeriodic(e)
	}
	j.bits = slices.Clone(s.Bits)

	slog.Debug("quest journal restored",
		"characterID", j.CharacterID(),
		"active", len(j.statuses),
		"rewarded", len(j.rewarded))
}

func (j *Journal) restoreStatus(q *data.QuestTemplate, st StatusSnapshot, slot int, now time.Time) {
	od := make([]int32, q.ObjectiveDataLen())
	copy(od, st.ObjectiveData)
	rec := &StatusRecord{Status: st.Status, ObjectiveData: od, Slot: slot}
	j.statuses[q.ID] = rec
	j.log.Add(slot, q.ID, time.Time{})

	switch st.Status {
	case StatusComplete:
		j.log.SetState(slot, SlotComplete)
	case StatusFailed:
		j.log.SetState(slot, SlotFail)
	}

	for i := range q.Objectives {
		obj := &q.Objectives[i]
		if obj.StorageIndex < 0 {
			continue
		}
		v := od[obj.StorageIndex]
		switch {
		case obj.IsStoringFlag() && v != 0:
			j.log.SetObjectiveFlag(slot, int(obj.Order))
		case obj.IsStoringValue() && int(obj.StorageIndex) < MaxQuestCounts:
			j.log.SetCounter(slot, int(obj.StorageIndex), v)
		}
	}

	if q.IsTimed() && st.Status != StatusFailed && !st.ExpiresAt.IsZero() {
		remaining := st.ExpiresAt.Sub(now)
		if remaining <= 0 {
			// Истёк, пока персонаж был офлайн: провалится на следующем тике.
			remaining = time.Millisecond
		}
		rec.Timer = remaining
		j.timed[q.ID] = struct{}{}
		j.log.SetEndTime(slot, now.Add(remaining))
	}
}

func (j *Journal) restorePeriodic(e PeriodicEntry) {
	switch e.Bucket {
	case BucketDaily:
		j.daily[e.QuestID] = struct{}{}
	case BucketDungeonDaily:
		j.dfDaily[e.QuestID] = struct{}{}
	case BucketWeekly:
		j.weekly[e.QuestID] = struct{}{}
	case BucketMonthly:
		j.monthly[e.QuestID] = struct{}{}
	case BucketSeasonal:
		events := j.seasonal[e.EventID]
		if events == nil {
			events = make(map[int32]time.Time)
			j.seasonal[e.EventID] = events
		}
		events[e.QuestID] = e.CompletedAt
	default:
		slog.Warn("unknown cooldown bucket", "characterID", j.CharacterID(), "questID", e.QuestID, "bucket", e.Bucket)
	}
}
