package quest

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/udisondev/questd/internal/data"
)

// ResetKind is a periodic cooldown reset.
type ResetKind uint8

const (
	ResetDaily ResetKind = iota + 1
	ResetWeekly
	ResetMonthly
)

func (k ResetKind) String() string {
	switch k {
	case ResetDaily:
		return "daily"
	case ResetWeekly:
		return "weekly"
	case ResetMonthly:
		return "monthly"
	default:
		return "unknown"
	}
}

// Buckets returns the cooldown buckets cleared by a reset of kind k.
func (k ResetKind) Buckets() []PeriodicBucket {
	switch k {
	case ResetDaily:
		return []PeriodicBucket{BucketDaily, BucketDungeonDaily}
	case ResetWeekly:
		return []PeriodicBucket{BucketWeekly}
	case ResetMonthly:
		return []PeriodicBucket{BucketMonthly}
	default:
		return nil
	}
}

// Apply runs the matching reset on j.
func (k ResetKind) Apply(j *Journal) {
	switch k {
	case ResetDaily:
		j.DailyReset()
	case ResetWeekly:
		j.WeeklyReset()
	case ResetMonthly:
		j.MonthlyReset()
	}
}

// UniqueBits returns the completion bits a reset of kind k clears: the bits
// of every quest whose cooldown lives in one of k's buckets.
func (k ResetKind) UniqueBits(quests []*data.QuestTemplate) []int32 {
	var bits []int32
	for _, q := range quests {
		if q.UniqueBit == 0 {
			continue
		}
		var hit bool
		switch k {
		case ResetDaily:
			hit = q.IsDaily() && !q.IsDFQuest()
		case ResetWeekly:
			hit = q.IsWeekly() && !q.IsDaily() && !q.IsDFQuest()
		case ResetMonthly:
			hit = q.IsMonthly() && !q.IsWeekly() && !q.IsDaily() && !q.IsDFQuest()
		}
		if hit {
			bits = append(bits, q.UniqueBit)
		}
	}
	slices.Sort(bits)
	return bits
}

// SeasonalBits returns the completion bits of the seasonal quests of eventID.
func SeasonalBits(eventID int32, quests []*data.QuestTemplate) []int32 {
	var bits []int32
	for _, q := range quests {
		if q.UniqueBit != 0 && q.IsSeasonal() && q.EventID == eventID {
			bits = append(bits, q.UniqueBit)
		}
	}
	slices.Sort(bits)
	return bits
}

// ResetClock places reset moments in wall-clock time.
// Weekly and monthly resets happen at the daily reset hour.
type ResetClock struct {
	Location   *time.Location
	DailyHour  int
	WeeklyDay  time.Weekday
	MonthlyDay int // 1..28
}

// Next returns the first reset of kind strictly after the given moment.
func (c ResetClock) Next(kind ResetKind, after time.Time) time.Time {
	loc := c.Location
	if loc == nil {
		loc = time.UTC
	}
	local := after.In(loc)
	hour := min(max(c.DailyHour, 0), 23)

	switch kind {
	case ResetWeekly:
		t := c.Next(ResetDaily, after)
		for t.Weekday() != c.WeeklyDay {
			t = t.AddDate(0, 0, 1)
		}
		return t
	case ResetMonthly:
		day := min(max(c.MonthlyDay, 1), 28)
		t := time.Date(local.Year(), local.Month(), day, hour, 0, 0, 0, loc)
		if !t.After(after) {
			t = time.Date(local.Year(), local.Month()+1, day, hour, 0, 0, 0, loc)
		}
		return t
	default:
		t := time.Date(local.Year(), local.Month(), local.Day(), hour, 0, 0, 0, loc)
		if !t.After(after) {
			t = time.Date(local.Year(), local.Month(), local.Day()+1, hour, 0, 0, 0, loc)
		}
		return t
	}
}

// ResetFunc receives due resets. It runs on the scheduler's goroutine.
type ResetFunc func(kind ResetKind, at time.Time)

// ResetScheduler fires daily, weekly and monthly resets at their clock times.
// One goroutine per kind; Run returns after all of them stopped.
type ResetScheduler struct {
	clock ResetClock
	fire  ResetFunc

	mu   sync.Mutex
	next map[ResetKind]time.Time
}

// NewResetScheduler creates a scheduler calling fire for every due reset.
func NewResetScheduler(clock ResetClock, fire ResetFunc) *ResetScheduler {
	return &ResetScheduler{
		clock: clock,
		fire:  fire,
		next:  make(map[ResetKind]time.Time, 3),
	}
}

// NextReset returns the pending moment of kind, zero before Run.
func (s *ResetScheduler) NextReset(kind ResetKind) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next[kind]
}

// Run blocks until ctx is cancelled.
func (s *ResetScheduler) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for _, kind := range []ResetKind{ResetDaily, ResetWeekly, ResetMonthly} {
		wg.Go(func() {
			s.loop(ctx, kind)
		})
	}
	wg.Wait()
	return nil
}

func (s *ResetScheduler) loop(ctx context.Context, kind ResetKind) {
	for {
		at := s.clock.Next(kind, time.Now())
		s.mu.Lock()
		s.next[kind] = at
		s.mu.Unlock()

		timer := time.NewTimer(time.Until(at))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		slog.Info("quest reset due", "kind", kind, "at", at)
		s.fire(kind, at)
	}
}
