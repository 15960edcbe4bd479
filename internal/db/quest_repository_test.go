package db

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/questd/internal/data"
	"github.com/udisondev/questd/internal/game/quest"
	"github.com/udisondev/questd/internal/model"
)

var saveEpoch = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func utcPeriodic(entries []quest.PeriodicEntry) []quest.PeriodicEntry {
	for i := range entries {
		entries[i].CompletedAt = entries[i].CompletedAt.UTC()
	}
	return entries
}

func TestQuestRepository_SaveAndLoad(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewQuestRepository(pool)
	ctx := context.Background()

	pc := quest.PendingChanges{
		CharacterID: 1,
		Statuses: []quest.StatusRow{
			{QuestID: 10, Save: quest.SaveDefault, Status: quest.StatusIncomplete, ObjectiveData: []int32{3, 0}},
			{QuestID: 11, Save: quest.SaveDefault, Status: quest.StatusComplete, ExpiresAt: saveEpoch.Add(time.Minute)},
		},
		Rewarded: []quest.RewardedRow{{QuestID: 5, Save: quest.SaveDefault}},
		Buckets:  []quest.PeriodicBucket{quest.BucketDaily, quest.BucketSeasonal},
		Periodic: []quest.PeriodicEntry{
			{QuestID: 20, Bucket: quest.BucketDaily, CompletedAt: saveEpoch},
			{QuestID: 30, Bucket: quest.BucketSeasonal, EventID: 9, CompletedAt: saveEpoch},
		},
		Bits:        quest.CompletedBits{1 << 63, 1},
		BitsChanged: true,
	}
	require.NoError(t, repo.SaveJournal(ctx, pc))

	snap, err := repo.LoadJournal(ctx, 1)
	require.NoError(t, err)

	require.Len(t, snap.Statuses, 2)
	assert.Equal(t, int32(10), snap.Statuses[0].QuestID)
	assert.Equal(t, quest.StatusIncomplete, snap.Statuses[0].Status)
	assert.Equal(t, []int32{3, 0}, snap.Statuses[0].ObjectiveData)
	assert.True(t, snap.Statuses[0].ExpiresAt.IsZero())
	assert.Equal(t, quest.StatusComplete, snap.Statuses[1].Status)
	assert.Empty(t, snap.Statuses[1].ObjectiveData)
	assert.True(t, snap.Statuses[1].ExpiresAt.Equal(saveEpoch.Add(time.Minute)))

	assert.Equal(t, []int32{5}, snap.Rewarded)
	assert.Equal(t, pc.Periodic, utcPeriodic(snap.Periodic))
	assert.Equal(t, pc.Bits, snap.Bits)
	assert.True(t, snap.Bits.Has(64))
}

func TestQuestRepository_DeleteTagsAndBucketReplace(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewQuestRepository(pool)
	ctx := context.Background()

	require.NoError(t, repo.SaveJournal(ctx, quest.PendingChanges{
		CharacterID: 1,
		Statuses: []quest.StatusRow{
			{QuestID: 10, Save: quest.SaveDefault, Status: quest.StatusIncomplete},
			{QuestID: 11, Save: quest.SaveDefault, Status: quest.StatusFailed},
		},
		Rewarded: []quest.RewardedRow{{QuestID: 5}, {QuestID: 6}},
		Buckets:  []quest.PeriodicBucket{quest.BucketDaily, quest.BucketWeekly},
		Periodic: []quest.PeriodicEntry{
			{QuestID: 20, Bucket: quest.BucketDaily, CompletedAt: saveEpoch},
			{QuestID: 21, Bucket: quest.BucketWeekly, CompletedAt: saveEpoch},
		},
	}))

	require.NoError(t, repo.SaveJournal(ctx, quest.PendingChanges{
		CharacterID: 1,
		Statuses: []quest.StatusRow{
			{QuestID: 10, Save: quest.SaveDelete},
			{QuestID: 11, Save: quest.SaveDefault, Status: quest.StatusIncomplete, ObjectiveData: []int32{1}},
		},
		Rewarded: []quest.RewardedRow{{QuestID: 6, Save: quest.SaveForceDelete}},
		Buckets:  []quest.PeriodicBucket{quest.BucketDaily},
	}))

	snap, err := repo.LoadJournal(ctx, 1)
	require.NoError(t, err)
	require.Len(t, snap.Statuses, 1)
	assert.Equal(t, quest.StatusSnapshot{QuestID: 11, Status: quest.StatusIncomplete, ObjectiveData: []int32{1}}, snap.Statuses[0])
	assert.Equal(t, []int32{5}, snap.Rewarded)
	assert.Equal(t, []quest.PeriodicEntry{
		{QuestID: 21, Bucket: quest.BucketWeekly, CompletedAt: saveEpoch},
	}, utcPeriodic(snap.Periodic), "only the daily bucket was replaced")
}

func TestQuestRepository_ResetBucket(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewQuestRepository(pool)
	ctx := context.Background()

	for _, charID := range []int64{1, 2} {
		var bits quest.CompletedBits
		bits.Set(3)
		bits.Set(70)
		require.NoError(t, repo.SaveJournal(ctx, quest.PendingChanges{
			CharacterID: charID,
			Buckets:     []quest.PeriodicBucket{quest.BucketDaily, quest.BucketWeekly},
			Periodic: []quest.PeriodicEntry{
				{QuestID: 20, Bucket: quest.BucketDaily, CompletedAt: saveEpoch},
				{QuestID: 21, Bucket: quest.BucketWeekly, CompletedAt: saveEpoch},
			},
			Bits:        bits,
			BitsChanged: true,
		}))
	}

	removed, err := repo.ResetBucket(ctx, quest.BucketDaily, []int32{70})
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	for _, charID := range []int64{1, 2} {
		snap, err := repo.LoadJournal(ctx, charID)
		require.NoError(t, err)
		require.Len(t, snap.Periodic, 1)
		assert.Equal(t, quest.BucketWeekly, snap.Periodic[0].Bucket)
		assert.True(t, snap.Bits.Has(3))
		assert.False(t, snap.Bits.Has(70))
	}
}

func TestQuestRepository_LoadEmpty(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewQuestRepository(pool)

	snap, err := repo.LoadJournal(context.Background(), 404)
	require.NoError(t, err)
	assert.Empty(t, snap.Statuses)
	assert.Empty(t, snap.Rewarded)
	assert.Empty(t, snap.Periodic)
	assert.Nil(t, snap.Bits)
}

func TestQuestRepository_DeleteCharacter(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewQuestRepository(pool)
	ctx := context.Background()

	require.NoError(t, repo.SaveJournal(ctx, quest.PendingChanges{
		CharacterID: 1,
		Statuses:    []quest.StatusRow{{QuestID: 10, Status: quest.StatusIncomplete}},
		Rewarded:    []quest.RewardedRow{{QuestID: 5}},
		Bits:        quest.CompletedBits{1},
		BitsChanged: true,
	}))
	require.NoError(t, repo.DeleteCharacter(ctx, 1))

	snap, err := repo.LoadJournal(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, snap.Statuses)
	assert.Empty(t, snap.Rewarded)
	assert.Nil(t, snap.Bits)
}

// Полный цикл: журнал -> база -> новый журнал.
func TestQuestRepository_JournalRoundTrip(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewQuestRepository(pool)
	ctx := context.Background()

	const pelt int32 = 100
	daily := data.QuestTemplate{ID: 2, Title: "Daily", Flags: data.QuestFlagDaily, UniqueBit: 4}
	store, err := data.NewStore(data.StoreContent{Quests: []data.QuestTemplate{
		{ID: 1, Title: "Pelts", Objectives: []data.QuestObjective{
			{Type: data.ObjectiveItem, ObjectID: pelt, Amount: 5},
		}},
		daily,
	}})
	require.NoError(t, err)
	catalog := model.NewItemCatalog(model.ItemTemplate{ID: pelt, Name: "Wolf Pelt", MaxStack: 20, QuestBound: true})

	newJournal := func() *quest.Journal {
		inv := model.NewInventory(7, catalog, model.DefaultInventorySlots)
		player := model.NewCharacter(model.CharacterInfo{ID: 7, Race: 1, Class: 1, Level: 10}, inv)
		return quest.NewJournal(quest.Deps{
			Templates:  store,
			Player:     player,
			Inventory:  inv,
			Conditions: store.Conditions(),
		}, quest.Options{Strict: true})
	}

	j := newJournal()
	require.NoError(t, j.AddQuest(1))
	j.SetObjectiveData(&store.Quest(1).Objectives[0], 3)
	require.NoError(t, j.AddQuest(2))
	require.NoError(t, j.CompleteQuest(2))
	require.NoError(t, j.RewardQuest(2, data.RewardChoiceItem, 0, 0))

	require.NoError(t, repo.SaveJournal(ctx, j.PendingChanges()))
	j.ClearPending()

	snap, err := repo.LoadJournal(ctx, 7)
	require.NoError(t, err)
	restored := newJournal()
	restored.Restore(snap)

	assert.Equal(t, quest.StatusIncomplete, restored.GetQuestStatus(1))
	assert.Equal(t, int32(3), restored.GetObjectiveData(1, 0))
	assert.True(t, restored.IsDailyDone(2))
	assert.True(t, restored.HasCompletedBit(4))
}

func TestQuestRepository_ResetSeasonal(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewQuestRepository(pool)
	ctx := context.Background()

	start := saveEpoch.Add(24 * time.Hour)
	seed := map[int64]time.Time{
		1: saveEpoch,            // прошлый праздник
		2: start.Add(time.Hour), // уже в текущем
	}
	for charID, at := range seed {
		var bits quest.CompletedBits
		bits.Set(4)
		bits.Set(9)
		require.NoError(t, repo.SaveJournal(ctx, quest.PendingChanges{
			CharacterID: charID,
			Buckets:     []quest.PeriodicBucket{quest.BucketSeasonal},
			Periodic: []quest.PeriodicEntry{
				{QuestID: 40, Bucket: quest.BucketSeasonal, EventID: 7, CompletedAt: at},
				{QuestID: 90, Bucket: quest.BucketSeasonal, EventID: 8, CompletedAt: saveEpoch},
			},
			Bits:        bits,
			BitsChanged: true,
		}))
	}

	removed, err := repo.ResetSeasonal(ctx, 7, start, []int32{4})
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	snap, err := repo.LoadJournal(ctx, 1)
	require.NoError(t, err)
	require.Len(t, snap.Periodic, 1)
	assert.Equal(t, int32(8), snap.Periodic[0].EventID, "other events are kept")
	assert.False(t, snap.Bits.Has(4))
	assert.True(t, snap.Bits.Has(9))

	snap, err = repo.LoadJournal(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, snap.Periodic, 2, "completed in the current occurrence")
	assert.True(t, snap.Bits.Has(4))

	removed, err = repo.ResetSeasonal(ctx, 7, start, []int32{4})
	require.NoError(t, err)
	assert.Zero(t, removed)
}
