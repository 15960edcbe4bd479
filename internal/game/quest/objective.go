package quest

import (
	"log/slog"

	"github.com/udisondev/questd/internal/data"
)

// progressBarTarget is the weighted sum at which a progress bar objective completes.
const progressBarTarget = 100

// GetObjectiveData returns the stored progress at storageIndex.
// Unknown quests and out-of-range indexes read as 0.
func (j *Journal) GetObjectiveData(questID int32, storageIndex int) int32 {
	rec, ok := j.statuses[questID]
	if !ok {
		slog.Error("reading objective data of inactive quest",
			"characterID", j.CharacterID(), "questID", questID)
		return 0
	}
	if storageIndex < 0 || storageIndex >= len(rec.ObjectiveData) {
		slog.Error("objective storage index out of range",
			"characterID", j.CharacterID(),
			"questID", questID,
			"storageIndex", storageIndex,
			"len", len(rec.ObjectiveData))
		return 0
	}
	return rec.ObjectiveData[storageIndex]
}

// SetObjectiveData stores value for obj and mirrors it into the quest log.
// Writing the current value again has no effect.
func (j *Journal) SetObjectiveData(obj *data.QuestObjective, value int32) {
	if obj.StorageIndex < 0 {
		slog.Error("objective does not store progress",
			"characterID", j.CharacterID(), "questID", obj.QuestID, "objectiveID", obj.ID)
		return
	}
	rec, ok := j.statuses[obj.QuestID]
	if !ok {
		slog.Error("writing objective data of inactive quest",
			"characterID", j.CharacterID(), "questID", obj.QuestID, "objectiveID", obj.ID)
		return
	}
	idx := int(obj.StorageIndex)
	if idx >= len(rec.ObjectiveData) {
		slog.Error("objective storage index out of range",
			"characterID", j.CharacterID(),
			"questID", obj.QuestID,
			"storageIndex", idx,
			"len", len(rec.ObjectiveData))
		return
	}

	old := rec.ObjectiveData[idx]
	if old == value {
		return
	}
	rec.ObjectiveData[idx] = value
	j.markSave(obj.QuestID)

	switch {
	case obj.IsStoringFlag() && value != 0:
		j.log.SetObjectiveFlag(rec.Slot, int(obj.Order))
	case obj.IsStoringFlag():
		j.log.RemoveObjectiveFlag(rec.Slot, int(obj.Order))
	case idx < MaxQuestCounts:
		j.log.SetCounter(rec.Slot, idx, value)
	}

	j.bus.objectiveChanged(obj.QuestID, obj, old, value)
}

func storedValue(rec *StatusRecord, obj *data.QuestObjective) int32 {
	if obj.StorageIndex < 0 || int(obj.StorageIndex) >= len(rec.ObjectiveData) {
		return 0
	}
	return rec.ObjectiveData[obj.StorageIndex]
}

// IsObjectiveComplete reports whether objectiveID of an active quest is done.
func (j *Journal) IsObjectiveComplete(questID, objectiveID int32) bool {
	rec, ok := j.statuses[questID]
	if !ok {
		return false
	}
	q := j.quest(questID)
	if q == nil {
		return false
	}
	obj := q.ObjectiveByID(objectiveID)
	if obj == nil {
		slog.Error("unknown objective", "questID", questID, "objectiveID", objectiveID)
		return false
	}
	return j.objectiveComplete(rec, q, obj)
}

func (j *Journal) objectiveComplete(rec *StatusRecord, q *data.QuestTemplate, obj *data.QuestObjective) bool {
	switch obj.Type {
	case data.ObjectiveMonster, data.ObjectiveItem, data.ObjectiveGameObject, data.ObjectiveTalkTo,
		data.ObjectivePlayerKills, data.ObjectiveWinPvpPetBattles, data.ObjectiveHaveCurrency,
		data.ObjectiveObtainCurrency, data.ObjectiveIncreaseReputation:
		return storedValue(rec, obj) >= obj.Amount
	case data.ObjectiveMinReputation:
		return j.player.Reputation(obj.ObjectID) >= obj.Amount
	case data.ObjectiveMaxReputation:
		return j.player.Reputation(obj.ObjectID) <= obj.Amount
	case data.ObjectiveMoney:
		return j.player.Money() >= int64(obj.Amount)
	case data.ObjectiveAreaTrigger, data.ObjectiveWinPetBattleAgainstNpc,
		data.ObjectiveDefeatBattlePet, data.ObjectiveCriteriaTree:
		return storedValue(rec, obj) != 0
	case data.ObjectiveLearnSpell:
		return j.player.HasSpell(obj.ObjectID)
	case data.ObjectiveCurrency:
		return j.player.Currency(obj.ObjectID) >= obj.Amount
	case data.ObjectiveProgressBar:
		return progressBarComplete(rec, q)
	default:
		slog.Error("unhandled objective type",
			"questID", q.ID, "objectiveID", obj.ID, "type", obj.Type)
		return false
	}
}

// progressBarComplete sums the weighted progress of every part-of-progress-bar objective.
func progressBarComplete(rec *StatusRecord, q *data.QuestTemplate) bool {
	var progress float64
	for i := range q.Objectives {
		obj := &q.Objectives[i]
		if !obj.IsPartOfProgressBar() {
			continue
		}
		progress += float64(storedValue(rec, obj)) * float64(obj.ProgressBarWeight)
		if progress >= progressBarTarget {
			return true
		}
	}
	return false
}

// objectiveCompletable reports whether obj may still receive progress.
func (j *Journal) objectiveCompletable(rec *StatusRecord, q *data.QuestTemplate, obj *data.QuestObjective) bool {
	if obj.IsPartOfProgressBar() {
		for i := range q.Objectives {
			bar := &q.Objectives[i]
			if bar.Type == data.ObjectiveProgressBar && j.objectiveComplete(rec, q, bar) {
				return false
			}
		}
	}
	if obj.Flags.Has(data.ObjectiveFlagSequenced) {
		for i := range q.Objectives {
			prev := &q.Objectives[i]
			if prev.Order >= obj.Order {
				break
			}
			if !prev.IsOptional() && !j.objectiveComplete(rec, q, prev) {
				return false
			}
		}
	}
	return true
}

// requiredObjectivesComplete checks every non-optional objective that is not
// only a progress bar contributor.
func (j *Journal) requiredObjectivesComplete(rec *StatusRecord, q *data.QuestTemplate) bool {
	for i := range q.Objectives {
		obj := &q.Objectives[i]
		if obj.IsOptional() || obj.IsPartOfProgressBar() {
			continue
		}
		if !j.objectiveComplete(rec, q, obj) {
			return false
		}
	}
	return true
}
