package world

import (
	"context"
	"sync"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/questd/internal/data"
	"github.com/udisondev/questd/internal/game/quest"
	"github.com/udisondev/questd/internal/model"
)

// memRepo keeps saved change sets and offline resets in memory.
type memRepo struct {
	mu       sync.Mutex
	saves    []quest.PendingChanges
	resets   []quest.PeriodicBucket
	bits     [][]int32
	seasonal []seasonalReset
	onReset  func() // runs once inside the next storage reset
}

type seasonalReset struct {
	eventID int32
	before  time.Time
	bits    []int32
}

func (r *memRepo) LoadJournal(context.Context, int64) (quest.Snapshot, error) {
	return quest.Snapshot{}, nil
}

func (r *memRepo) SaveJournal(_ context.Context, pc quest.PendingChanges) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saves = append(r.saves, pc)
	return nil
}

func (r *memRepo) ResetBucket(_ context.Context, b quest.PeriodicBucket, bits []int32) (int64, error) {
	r.mu.Lock()
	r.resets = append(r.resets, b)
	r.bits = append(r.bits, bits)
	hook := r.onReset
	r.onReset = nil
	r.mu.Unlock()
	if hook != nil {
		hook()
	}
	return 1, nil
}

func (r *memRepo) ResetSeasonal(_ context.Context, eventID int32, before time.Time, bits []int32) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seasonal = append(r.seasonal, seasonalReset{eventID: eventID, before: before, bits: bits})
	return 1, nil
}

func (r *memRepo) saveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.saves)
}

type harness struct {
	loop   *Loop
	repo   *memRepo
	store  *data.Store
	cancel context.CancelFunc
	errCh  chan error
}

func startLoop(t *testing.T, quests ...data.QuestTemplate) *harness {
	t.Helper()
	store, err := data.NewStore(data.StoreContent{Quests: quests})
	require.NoError(t, err)
	repo := &memRepo{}
	mgr := quest.NewManager(quest.ManagerConfig{
		Templates:  store,
		Conditions: store.Conditions(),
		Repo:       repo,
		Options:    quest.Options{Strict: true},
	})
	loop := New(Config{
		Manager:      mgr,
		Catalog:      store,
		Offline:      repo,
		TickInterval: 100 * time.Millisecond,
		SaveInterval: time.Minute,
	})

	ctx, cancel := context.WithCancel(t.Context())
	h := &harness{loop: loop, repo: repo, store: store, cancel: cancel, errCh: make(chan error, 1)}
	go func() { h.errCh <- loop.Run(ctx) }()
	return h
}

func (h *harness) stop(t *testing.T) {
	t.Helper()
	h.cancel()
	require.NoError(t, <-h.errCh)
}

func newCharacter(id int64) *model.Character {
	inv := model.NewInventory(id, model.NewItemCatalog(), model.DefaultInventorySlots)
	return model.NewCharacter(model.CharacterInfo{ID: id, Race: 1, Class: 1, Level: 10}, inv)
}

func TestLoop_TimedQuestFailsOnTick(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := startLoop(t, data.QuestTemplate{ID: 1, Title: "Hurry", LimitTime: 2})
		ctx := t.Context()

		_, err := h.loop.Enter(ctx, newCharacter(5), nil)
		require.NoError(t, err)
		require.NoError(t, h.loop.WithJournal(ctx, 5, func(j *quest.Journal) {
			assert.NoError(t, j.AddQuest(1))
		}))

		time.Sleep(time.Second)
		synctest.Wait()
		var status quest.Status
		require.NoError(t, h.loop.WithJournal(ctx, 5, func(j *quest.Journal) {
			status = j.GetQuestStatus(1)
		}))
		assert.Equal(t, quest.StatusIncomplete, status)

		time.Sleep(1500 * time.Millisecond)
		synctest.Wait()
		require.NoError(t, h.loop.WithJournal(ctx, 5, func(j *quest.Journal) {
			status = j.GetQuestStatus(1)
		}))
		assert.Equal(t, quest.StatusFailed, status)

		h.stop(t)
	})
}

func TestLoop_PeriodicAndFinalSave(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := startLoop(t, data.QuestTemplate{ID: 1, Title: "Errand"})
		ctx := t.Context()

		_, err := h.loop.Enter(ctx, newCharacter(5), nil)
		require.NoError(t, err)
		require.NoError(t, h.loop.WithJournal(ctx, 5, func(j *quest.Journal) {
			assert.NoError(t, j.AddQuest(1))
		}))

		time.Sleep(time.Minute + time.Millisecond)
		synctest.Wait()
		assert.Equal(t, 1, h.repo.saveCount(), "periodic save")

		require.NoError(t, h.loop.WithJournal(ctx, 5, func(j *quest.Journal) {
			assert.NoError(t, j.CompleteQuest(1))
		}))
		h.stop(t)
		assert.Equal(t, 2, h.repo.saveCount(), "final save on shutdown")

		assert.ErrorIs(t, h.loop.Do(ctx, func() {}), ErrStopped)
	})
}

func TestLoop_LeaveSavesAndUnloads(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := startLoop(t, data.QuestTemplate{ID: 1, Title: "Errand"})
		ctx := t.Context()

		_, err := h.loop.Enter(ctx, newCharacter(5), nil)
		require.NoError(t, err)
		require.NoError(t, h.loop.WithJournal(ctx, 5, func(j *quest.Journal) {
			assert.NoError(t, j.AddQuest(1))
		}))
		require.NoError(t, h.loop.Leave(ctx, 5))
		assert.Equal(t, 1, h.repo.saveCount())

		called := false
		require.NoError(t, h.loop.WithJournal(ctx, 5, func(*quest.Journal) { called = true }))
		assert.False(t, called, "offline character")

		h.stop(t)
	})
}

func TestLoop_Reset(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := startLoop(t, data.QuestTemplate{ID: 1, Title: "Daily", Flags: data.QuestFlagDaily, UniqueBit: 3})
		ctx := t.Context()

		_, err := h.loop.Enter(ctx, newCharacter(5), nil)
		require.NoError(t, err)
		require.NoError(t, h.loop.WithJournal(ctx, 5, func(j *quest.Journal) {
			assert.NoError(t, j.AddQuest(1))
			assert.NoError(t, j.CompleteQuest(1))
			assert.NoError(t, j.RewardQuest(1, data.RewardChoiceItem, 0, 0))
		}))

		h.loop.ResetFunc(ctx)(quest.ResetDaily, time.Now())

		var done bool
		require.NoError(t, h.loop.WithJournal(ctx, 5, func(j *quest.Journal) {
			done = j.IsDailyDone(1) || j.HasCompletedBit(3)
		}))
		assert.False(t, done)

		assert.Equal(t, []quest.PeriodicBucket{quest.BucketDaily, quest.BucketDungeonDaily}, h.repo.resets)
		assert.Equal(t, [][]int32{{3}, nil}, h.repo.bits, "bits are cleared once")

		h.stop(t)
	})
}

func TestLoop_ResetBeforeLogoutSave(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := startLoop(t, data.QuestTemplate{ID: 1, Title: "Daily", Flags: data.QuestFlagDaily, UniqueBit: 3})
		ctx := t.Context()

		_, err := h.loop.Enter(ctx, newCharacter(5), nil)
		require.NoError(t, err)
		require.NoError(t, h.loop.WithJournal(ctx, 5, func(j *quest.Journal) {
			assert.NoError(t, j.AddQuest(1))
			assert.NoError(t, j.CompleteQuest(1))
			assert.NoError(t, j.RewardQuest(1, data.RewardChoiceItem, 0, 0))
		}))

		// Персонаж выходит, пока чистится база.
		h.repo.onReset = func() {
			assert.NoError(t, h.loop.Leave(ctx, 5))
		}
		h.loop.Reset(ctx, quest.ResetDaily, time.Now())

		h.stop(t)

		require.Len(t, h.repo.saves, 1)
		pc := h.repo.saves[0]
		assert.Contains(t, pc.Buckets, quest.BucketDaily)
		assert.Empty(t, pc.Periodic, "the logout save carries the cleared cooldown")
		assert.False(t, pc.Bits.Has(3))
	})
}

func TestLoop_SeasonalReset(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := startLoop(t,
			data.QuestTemplate{ID: 1, Title: "Lanterns", SpecialFlags: data.SpecialSeasonal, EventID: 7, UniqueBit: 4},
			data.QuestTemplate{ID: 2, Title: "Pumpkins", SpecialFlags: data.SpecialSeasonal, EventID: 8, UniqueBit: 5},
		)
		ctx := t.Context()

		_, err := h.loop.Enter(ctx, newCharacter(5), nil)
		require.NoError(t, err)
		require.NoError(t, h.loop.WithJournal(ctx, 5, func(j *quest.Journal) {
			for _, id := range []int32{1, 2} {
				assert.NoError(t, j.AddQuest(id))
				assert.NoError(t, j.CompleteQuest(id))
				assert.NoError(t, j.RewardQuest(id, data.RewardChoiceItem, 0, 0))
			}
		}))

		time.Sleep(time.Hour)
		start := time.Now()
		h.loop.SeasonalReset(ctx, 7, start)

		require.NoError(t, h.loop.WithJournal(ctx, 5, func(j *quest.Journal) {
			assert.False(t, j.IsSeasonalDone(7, 1))
			assert.False(t, j.HasCompletedBit(4))
			assert.True(t, j.IsSeasonalDone(8, 2), "other events keep their cooldowns")
			assert.True(t, j.HasCompletedBit(5))
		}))

		h.repo.mu.Lock()
		assert.Equal(t, []seasonalReset{{eventID: 7, before: start, bits: []int32{4}}}, h.repo.seasonal)
		h.repo.mu.Unlock()

		h.stop(t)
	})
}

func TestLoop_CallOrder(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := startLoop(t)
		ctx := t.Context()

		var got []int
		for i := range 5 {
			require.NoError(t, h.loop.Do(ctx, func() { got = append(got, i) }))
		}
		require.NoError(t, h.loop.Call(ctx, func() {}))
		assert.Equal(t, []int{0, 1, 2, 3, 4}, got)

		h.stop(t)
	})
}
