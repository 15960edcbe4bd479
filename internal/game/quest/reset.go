package quest

import (
	"log/slog"
	"slices"
	"time"

	"github.com/udisondev/questd/internal/data"
)

// PeriodicBucket names a cooldown set. Values are persisted.
type PeriodicBucket uint8

const (
	BucketDaily        PeriodicBucket = 1
	BucketDungeonDaily PeriodicBucket = 2
	BucketWeekly       PeriodicBucket = 3
	BucketMonthly      PeriodicBucket = 4
	BucketSeasonal     PeriodicBucket = 5
)

func (b PeriodicBucket) String() string {
	switch b {
	case BucketDaily:
		return "daily"
	case BucketDungeonDaily:
		return "dungeon_daily"
	case BucketWeekly:
		return "weekly"
	case BucketMonthly:
		return "monthly"
	case BucketSeasonal:
		return "seasonal"
	default:
		return "unknown"
	}
}

// allBuckets lists every bucket in persistence order.
var allBuckets = []PeriodicBucket{BucketDaily, BucketDungeonDaily, BucketWeekly, BucketMonthly, BucketSeasonal}

type bucketMask uint8

func (m *bucketMask) set(b PeriodicBucket)     { *m |= 1 << b }
func (m bucketMask) has(b PeriodicBucket) bool { return m&(1<<b) != 0 }

// CompletedBits is the unique completion bit vector. Bits are 1-based.
type CompletedBits []uint64

// Has reports whether bit is set.
func (b CompletedBits) Has(bit int32) bool {
	if bit <= 0 {
		return false
	}
	word, off := int(bit-1)/64, uint(bit-1)%64
	return word < len(b) && b[word]&(1<<off) != 0
}

// Set sets bit, growing the vector as needed.
func (b *CompletedBits) Set(bit int32) {
	if bit <= 0 {
		return
	}
	word, off := int(bit-1)/64, uint(bit-1)%64
	for len(*b) <= word {
		*b = append(*b, 0)
	}
	(*b)[word] |= 1 << off
}

// Clear unsets bit.
func (b CompletedBits) Clear(bit int32) {
	if bit <= 0 {
		return
	}
	word, off := int(bit-1)/64, uint(bit-1)%64
	if word < len(b) {
		b[word] &^= 1 << off
	}
}

func (j *Journal) setCompletedBit(q *data.QuestTemplate) {
	if q.UniqueBit == 0 || j.bits.Has(q.UniqueBit) {
		return
	}
	j.bits.Set(q.UniqueBit)
	j.bitsChanged = true
}

func (j *Journal) clearCompletedBit(q *data.QuestTemplate) {
	if q.UniqueBit == 0 || !j.bits.Has(q.UniqueBit) {
		return
	}
	j.bits.Clear(q.UniqueBit)
	j.bitsChanged = true
}

func (j *Journal) clearBitOf(questID int32) {
	if q := j.templates.Quest(questID); q != nil {
		j.clearCompletedBit(q)
	}
}

// DailyReset clears the daily cooldowns with their unique bits and the
// dungeon-finder daily set.
func (j *Journal) DailyReset() {
	for id := range j.daily {
		j.clearBitOf(id)
	}
	if len(j.daily) > 0 {
		clear(j.daily)
		j.dirtyBuckets.set(BucketDaily)
	}
	if len(j.dfDaily) > 0 {
		clear(j.dfDaily)
		j.dirtyBuckets.set(BucketDungeonDaily)
	}
	slog.Debug("daily quests reset", "characterID", j.CharacterID())
}

// WeeklyReset clears the weekly cooldowns and their unique bits.
func (j *Journal) WeeklyReset() {
	j.resetSet(j.weekly, BucketWeekly)
}

// MonthlyReset clears the monthly cooldowns and their unique bits.
func (j *Journal) MonthlyReset() {
	j.resetSet(j.monthly, BucketMonthly)
}

func (j *Journal) resetSet(set questSet, bucket PeriodicBucket) {
	if len(set) == 0 {
		return
	}
	for id := range set {
		j.clearBitOf(id)
	}
	clear(set)
	j.dirtyBuckets.set(bucket)
	slog.Debug("periodic quests reset", "characterID", j.CharacterID(), "bucket", bucket)
}

// SeasonalReset drops cooldowns of holiday eventID that were earned before
// the event's current occurrence started.
func (j *Journal) SeasonalReset(eventID int32, eventStart time.Time) {
	events, ok := j.seasonal[eventID]
	if !ok {
		return
	}
	ids := make([]int32, 0, len(events))
	for id := range events {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		if events[id].Before(eventStart) {
			j.clearBitOf(id)
			delete(events, id)
		}
	}
	if len(events) == 0 {
		delete(j.seasonal, eventID)
	}
	j.dirtyBuckets.set(BucketSeasonal)
}
