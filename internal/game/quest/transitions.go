package quest

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/udisondev/questd/internal/data"
	"github.com/udisondev/questd/internal/model"
)

// destroyAllCount removes every copy of an item.
const destroyAllCount = 9999

// AddQuest accepts questID: allocates a log slot, creates the Incomplete record,
// hands over the source item and starts the timer of a timed quest.
// Eligibility is the caller's job (CanTakeQuest, CanAddQuest).
func (j *Journal) AddQuest(questID int32) error {
	q := j.quest(questID)
	if q == nil {
		return fmt.Errorf("adding quest %d: %w", questID, ErrUnknownQuest)
	}
	if j.IsActiveQuest(questID) {
		return fmt.Errorf("adding quest %d: %w", questID, ErrAlreadyActive)
	}
	slot, ok := j.log.FindSlot(0)
	if !ok {
		j.notify.QuestLogFull()
		return fmt.Errorf("adding quest %d: %w", questID, ErrLogFull)
	}

	old := j.GetQuestStatus(questID)
	release := j.holdEvents()
	defer release()

	rec := &StatusRecord{
		Status:        StatusIncomplete,
		ObjectiveData: make([]int32, q.ObjectiveDataLen()),
		Slot:          slot,
	}
	j.statuses[questID] = rec
	j.log.Add(slot, questID, time.Time{})

	j.giveSourceItem(q)
	j.adjustObjectiveProgress(q)

	if q.IsTimed() {
		limit := time.Duration(q.LimitTime) * time.Second
		j.timed[questID] = struct{}{}
		rec.Timer = limit
		j.log.SetEndTime(slot, j.opts.Now().Add(limit))
	}

	j.markSave(questID)
	j.bus.statusChanged(questID, old, StatusIncomplete)

	slog.Debug("quest added",
		"characterID", j.CharacterID(),
		"questID", questID,
		"slot", slot)
	return nil
}

// AddQuestAndCheckCompletion accepts questID and completes it right away when
// its objectives are already met (items in bags, reputation reached).
func (j *Journal) AddQuestAndCheckCompletion(questID int32) error {
	if err := j.AddQuest(questID); err != nil {
		return err
	}
	if j.CanCompleteQuest(questID) {
		return j.CompleteQuest(questID)
	}
	return nil
}

// giveSourceItem stores the quest's starting item. Already holding the max count is fine.
func (j *Journal) giveSourceItem(q *data.QuestTemplate) bool {
	if q.SourceItem.ID <= 0 {
		return true
	}
	switch res := j.storeItem(q.SourceItem.ID, sourceItemCount(q)); res {
	case model.StoreOK, model.StoreMaxCount:
		return true
	default:
		j.notify.InventoryError(q.SourceItem.ID, res)
		return false
	}
}

// adjustObjectiveProgress seeds counters that reflect things the player already holds.
func (j *Journal) adjustObjectiveProgress(q *data.QuestTemplate) {
	for i := range q.Objectives {
		obj := &q.Objectives[i]
		switch obj.Type {
		case data.ObjectiveItem:
			j.SetObjectiveData(obj, min(j.inv.ItemCount(obj.ObjectID), obj.Amount))
		case data.ObjectiveHaveCurrency:
			j.SetObjectiveData(obj, min(j.player.Currency(obj.ObjectID), obj.Amount))
		}
	}
}

// CompleteQuest moves an Incomplete quest to Complete. Tracking-event quests
// are rewarded on the spot.
func (j *Journal) CompleteQuest(questID int32) error {
	rec, ok := j.statuses[questID]
	if !ok {
		return fmt.Errorf("completing quest %d: %w", questID, ErrNotActive)
	}
	switch rec.Status {
	case StatusComplete:
		return nil
	case StatusIncomplete:
	default:
		return fmt.Errorf("completing quest %d in status %s: %w", questID, rec.Status, ErrNotActive)
	}
	q := j.quest(questID)
	if q == nil {
		return fmt.Errorf("completing quest %d: %w", questID, ErrUnknownQuest)
	}

	j.setStatus(questID, rec, StatusComplete)
	j.log.SetState(rec.Slot, SlotComplete)
	j.notify.QuestCompleted(questID)

	slog.Debug("quest completed", "characterID", j.CharacterID(), "questID", questID)

	if q.Flags.Has(data.QuestFlagTrackingEvent) {
		return j.RewardQuest(questID, data.RewardChoiceItem, 0, 0)
	}
	return nil
}

// IncompleteQuest moves a Complete quest back to Incomplete, e.g. after a
// delivered item was lost.
func (j *Journal) IncompleteQuest(questID int32) error {
	rec, ok := j.statuses[questID]
	if !ok {
		return fmt.Errorf("reopening quest %d: %w", questID, ErrNotActive)
	}
	if rec.Status != StatusComplete {
		return nil
	}
	j.setStatus(questID, rec, StatusIncomplete)
	j.log.RemoveState(rec.Slot, SlotComplete)

	slog.Debug("quest reopened", "characterID", j.CharacterID(), "questID", questID)
	return nil
}

// FailQuest fails an Incomplete quest, or a Complete timed quest that was
// complete from the start. Other states are left alone.
func (j *Journal) FailQuest(questID int32) error {
	rec, ok := j.statuses[questID]
	if !ok {
		return fmt.Errorf("failing quest %d: %w", questID, ErrNotActive)
	}
	q := j.quest(questID)
	if q == nil {
		return fmt.Errorf("failing quest %d: %w", questID, ErrUnknownQuest)
	}
	if rec.Status != StatusIncomplete {
		if rec.Status != StatusComplete || !q.IsTimed() || !q.SpecialFlags.Has(data.SpecialCompletedAtStart) {
			return nil
		}
	}

	j.setStatus(questID, rec, StatusFailed)
	j.log.SetState(rec.Slot, SlotFail)

	if q.IsTimed() {
		delete(j.timed, questID)
		rec.Timer = 0
		j.notify.QuestTimerFailed(questID)
	} else {
		j.notify.QuestFailed(questID)
	}

	j.destroyQuestItems(q)

	slog.Debug("quest failed",
		"characterID", j.CharacterID(),
		"questID", questID,
		"timed", q.IsTimed())
	return nil
}

// AbandonQuest drops an active quest at the player's request. It is refused
// when the source item cannot be taken back.
func (j *Journal) AbandonQuest(questID int32) error {
	slot, ok := j.log.FindSlot(questID)
	if !ok || questID == 0 {
		return fmt.Errorf("abandoning quest %d: %w", questID, ErrNotActive)
	}
	q := j.quest(questID)
	if q == nil {
		return fmt.Errorf("abandoning quest %d: %w", questID, ErrUnknownQuest)
	}
	old := j.GetQuestStatus(questID)
	release := j.holdEvents()
	defer release()
	if !j.takeSourceItem(q, true) {
		return fmt.Errorf("abandoning quest %d: %w", questID, ErrSourceItemLocked)
	}

	delete(j.timed, questID)
	j.log.Clear(slot)
	j.destroyQuestItems(q)
	j.RemoveActiveQuest(questID)
	j.bus.statusChanged(questID, old, StatusNone)

	slog.Debug("quest abandoned", "characterID", j.CharacterID(), "questID", questID)
	return nil
}

// takeSourceItem removes the quest's starting item. The item is kept when the
// quest was started from it and also needs it as an objective.
func (j *Journal) takeSourceItem(q *data.QuestTemplate, msg bool) bool {
	itemID := q.SourceItem.ID
	if itemID <= 0 {
		return true
	}
	count := sourceItemCount(q)
	if res := j.inv.CanUnequip(itemID, count); res != model.StoreOK {
		if msg {
			j.notify.InventoryError(itemID, res)
		}
		return false
	}
	if j.inv.StartQuest(itemID) == q.ID {
		for i := range q.Objectives {
			if q.Objectives[i].Type == data.ObjectiveItem && q.Objectives[i].ObjectID == itemID {
				return true
			}
		}
	}
	j.destroyItem(itemID, count)
	return true
}

// destroyQuestItems removes quest-bound objective items and item drops.
func (j *Journal) destroyQuestItems(q *data.QuestTemplate) {
	for i := range q.Objectives {
		obj := &q.Objectives[i]
		if obj.Type == data.ObjectiveItem && j.inv.IsQuestBound(obj.ObjectID) {
			j.destroyItem(obj.ObjectID, destroyAllCount)
		}
	}
	for _, drop := range q.ItemDrops {
		if drop.ID != 0 && j.inv.IsQuestBound(drop.ID) {
			j.destroyItem(drop.ID, destroyAllCount)
		}
	}
}

// RemoveActiveQuest deletes the active record, frees its log slot and tags
// the row for deletion.
func (j *Journal) RemoveActiveQuest(questID int32) {
	if _, ok := j.statuses[questID]; !ok || questID == 0 {
		return
	}
	if slot, logged := j.log.FindSlot(questID); logged {
		j.log.Clear(slot)
	}
	delete(j.timed, questID)
	delete(j.statuses, questID)
	j.statusSave[questID] = SaveDelete
}

// RemoveRewardedQuest reverts a turned-in quest back to None. Administrative
// path: clears the rewarded entry, the seasonal cooldown and the unique bit.
func (j *Journal) RemoveRewardedQuest(questID int32) {
	if j.rewarded.has(questID) {
		delete(j.rewarded, questID)
		j.rewardedSave[questID] = SaveForceDelete
	}
	q := j.templates.Quest(questID)
	if q == nil {
		return
	}
	if q.IsSeasonal() {
		if events, ok := j.seasonal[q.EventID]; ok {
			if _, done := events[questID]; done {
				delete(events, questID)
				if len(events) == 0 {
					delete(j.seasonal, q.EventID)
				}
				j.dirtyBuckets.set(BucketSeasonal)
			}
		}
	}
	j.clearCompletedBit(q)

	slog.Info("rewarded quest reverted", "characterID", j.CharacterID(), "questID", questID)
}

func (j *Journal) setRewarded(questID int32) {
	j.rewarded[questID] = struct{}{}
	j.rewardedSave[questID] = SaveDefault
}
