package quest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/questd/internal/data"
)

func persistenceContent() data.StoreContent {
	timed := itemQuest(2, itemWolfPelt, 5)
	timed.LimitTime = 1
	daily := simpleQuest(3)
	daily.Flags = data.QuestFlagDaily
	daily.UniqueBit = 5
	seasonal := simpleQuest(4)
	seasonal.SpecialFlags = data.SpecialSeasonal
	seasonal.EventID = 9
	return data.StoreContent{Quests: []data.QuestTemplate{
		itemQuest(1, itemWolfPelt, 5), timed, daily, seasonal, simpleQuest(5),
	}}
}

func TestPendingChanges(t *testing.T) {
	f := newFixture(t, persistenceContent())

	require.NoError(t, f.j.AddQuest(1))
	f.j.SetObjectiveData(f.objective(t, 1, 0), 3)
	require.NoError(t, f.j.AddQuest(2))
	require.NoError(t, f.turnIn(t, 3))

	pc := f.j.PendingChanges()
	assert.Equal(t, int64(42), pc.CharacterID)
	require.Len(t, pc.Statuses, 3)
	assert.Equal(t, StatusRow{QuestID: 1, Save: SaveDefault, Status: StatusIncomplete, ObjectiveData: []int32{3}}, pc.Statuses[0])
	assert.Equal(t, testEpoch.Add(time.Second), pc.Statuses[1].ExpiresAt)
	assert.Equal(t, StatusRow{QuestID: 3, Save: SaveDelete}, pc.Statuses[2])
	assert.Empty(t, pc.Rewarded, "daily quests are not recorded as rewarded")
	assert.Equal(t, []PeriodicBucket{BucketDaily}, pc.Buckets)
	assert.Equal(t, []PeriodicEntry{{QuestID: 3, Bucket: BucketDaily, CompletedAt: testEpoch}}, pc.Periodic)
	assert.True(t, pc.BitsChanged)

	f.j.ClearPending()
	next := f.j.PendingChanges()
	assert.True(t, next.Empty())
}

func TestSnapshotRestore(t *testing.T) {
	f := newFixture(t, persistenceContent())
	require.NoError(t, f.j.AddQuest(1))
	f.j.SetObjectiveData(f.objective(t, 1, 0), 3)
	require.NoError(t, f.j.AddQuest(2))
	require.NoError(t, f.turnIn(t, 3))
	require.NoError(t, f.turnIn(t, 4))
	require.NoError(t, f.j.AddQuest(5))
	require.NoError(t, f.j.CompleteQuest(5))

	snap := f.j.Snapshot()
	snap.Statuses = append(snap.Statuses,
		StatusSnapshot{QuestID: 999, Status: StatusIncomplete},
		StatusSnapshot{QuestID: 4, Status: StatusRewarded},
	)

	g := newFixtureWithStore(t, f.store)
	g.now = testEpoch.Add(2 * time.Second)
	g.j.Restore(snap)

	assert.Equal(t, []int32{1, 2, 5}, g.j.ActiveQuests())
	rec, ok := g.j.Record(1)
	require.True(t, ok)
	assert.Equal(t, []int32{3}, rec.ObjectiveData)
	assert.Equal(t, int32(3), g.j.Slot(rec.Slot).Progress[0])

	rec5, _ := g.j.Record(5)
	assert.Equal(t, StatusComplete, rec5.Status)
	assert.True(t, g.j.Slot(rec5.Slot).State.Has(SlotComplete))

	assert.True(t, g.j.IsDailyDone(3))
	assert.True(t, g.j.HasCompletedBit(5))
	assert.True(t, g.j.IsSeasonalDone(9, 4))
	assert.Equal(t, StatusRewarded, g.j.GetQuestStatus(4))

	restored := g.j.PendingChanges()
	assert.True(t, restored.Empty(), "restore leaves nothing to save")

	// Таймер истёк, пока персонаж был офлайн.
	assert.Equal(t, []int32{2}, g.j.TimedQuests())
	assert.Equal(t, time.Millisecond, g.j.RemainingTime(2))
	g.j.Update(time.Millisecond)
	assert.Equal(t, StatusFailed, g.j.GetQuestStatus(2))
}

func TestRestore_PadsObjectiveData(t *testing.T) {
	f := newFixture(t, persistenceContent())

	f.j.Restore(Snapshot{Statuses: []StatusSnapshot{
		{QuestID: 1, Status: StatusIncomplete},
		{QuestID: 5, Status: StatusIncomplete, ObjectiveData: []int32{7, 8}},
	}})

	rec, ok := f.j.Record(1)
	require.True(t, ok)
	assert.Equal(t, []int32{0}, rec.ObjectiveData)
	rec5, _ := f.j.Record(5)
	assert.Empty(t, rec5.ObjectiveData)
}
