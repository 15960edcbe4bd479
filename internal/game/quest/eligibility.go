package quest

import (
	"github.com/udisondev/questd/internal/data"
	"github.com/udisondev/questd/internal/model"
)

// Every predicate below is pure with respect to journal state. When msg is
// true a failing predicate sends exactly one rejection message.

func (j *Journal) reject(msg bool, questID int32, reason FailedReason) {
	if msg {
		j.notify.QuestRejected(questID, reason)
	}
}

// CanSeeStartQuest reports whether a quest giver should offer q.
func (j *Journal) CanSeeStartQuest(q *data.QuestTemplate) bool {
	return j.satisfyConditions(q, false) &&
		j.satisfyClass(q, false) &&
		j.satisfyRace(q, false) &&
		j.satisfySkill(q, false) &&
		j.satisfyExclusiveGroup(q, false) &&
		j.satisfyReputation(q, false) &&
		j.satisfyDependentQuests(q, false) &&
		j.satisfyDay(q, false) &&
		j.satisfyWeek(q, false) &&
		j.satisfyMonth(q, false) &&
		j.satisfySeasonal(q, false) &&
		j.satisfyLevel(q, false)
}

// CanTakeQuest evaluates the acceptance precondition chain, stopping at the first failure.
func (j *Journal) CanTakeQuest(q *data.QuestTemplate, msg bool) bool {
	return j.satisfyStatus(q, msg) &&
		j.satisfyExclusiveGroup(q, msg) &&
		j.satisfyClass(q, msg) &&
		j.satisfyRace(q, msg) &&
		j.satisfyLevel(q, msg) &&
		j.satisfySkill(q, msg) &&
		j.satisfyReputation(q, msg) &&
		j.satisfyDependentQuests(q, msg) &&
		j.satisfyTimed(q, msg) &&
		j.satisfyDay(q, msg) &&
		j.satisfyWeek(q, msg) &&
		j.satisfyMonth(q, msg) &&
		j.satisfySeasonal(q, msg) &&
		j.satisfyConditions(q, msg)
}

// CanAddQuest checks the capacity side of acceptance: a free log slot and room
// for the source item. Holding the item's maximum count already counts as room.
func (j *Journal) CanAddQuest(q *data.QuestTemplate, msg bool) bool {
	if !j.log.HasFreeSlot() {
		if msg {
			j.notify.QuestLogFull()
		}
		return false
	}
	if q.SourceItem.ID > 0 {
		switch res := j.inv.CanStore(q.SourceItem.ID, sourceItemCount(q)); res {
		case model.StoreOK, model.StoreMaxCount:
		default:
			if msg {
				j.notify.InventoryError(q.SourceItem.ID, res)
			}
			return false
		}
	}
	return true
}

func sourceItemCount(q *data.QuestTemplate) int32 {
	return max(q.SourceItem.Count, 1)
}

// CanCompleteQuest reports whether an active quest may move to Complete.
func (j *Journal) CanCompleteQuest(questID int32) bool {
	if questID == 0 {
		return false
	}
	q := j.quest(questID)
	if q == nil {
		return false
	}
	if !q.IsRepeatable() && j.rewardStatus(q) {
		return false
	}
	if q.IsAutoComplete() && j.CanTakeQuest(q, false) {
		return true
	}
	rec, ok := j.statuses[questID]
	if !ok || rec.Status != StatusIncomplete {
		return false
	}
	if !j.requiredObjectivesComplete(rec, q) {
		return false
	}
	// Истёкший таймер: квест может только провалиться.
	if q.IsTimed() && rec.Timer == 0 {
		return false
	}
	return true
}

// CanRewardQuest reports whether q may be turned in now.
func (j *Journal) CanRewardQuest(q *data.QuestTemplate, msg bool) bool {
	// Turning in an unfinished quest is only possible through a broken client; no message.
	if !q.IsDFQuest() && !q.IsAutoComplete() && j.GetQuestStatus(q.ID) != StatusComplete {
		return false
	}
	if !j.satisfyDay(q, msg) || !j.satisfyWeek(q, msg) ||
		!j.satisfyMonth(q, msg) || !j.satisfySeasonal(q, msg) {
		return false
	}
	if !j.satisfyLevel(q, msg) || !j.satisfySkill(q, msg) || !j.satisfyReputation(q, msg) {
		return false
	}
	if j.rewardStatus(q) {
		return false
	}
	for i := range q.Objectives {
		obj := &q.Objectives[i]
		switch obj.Type {
		case data.ObjectiveItem:
			if j.inv.ItemCount(obj.ObjectID) < obj.Amount {
				j.reject(msg, q.ID, ReasonMissingItems)
				return false
			}
		case data.ObjectiveCurrency:
			if j.player.Currency(obj.ObjectID) < obj.Amount {
				return false
			}
		}
	}
	if q.RewardMoney < 0 && j.player.Money() < -q.RewardMoney {
		j.reject(msg, q.ID, ReasonNotEnoughMoney)
		return false
	}
	return true
}

// CanRewardQuestChoice additionally checks that every item the turn-in would
// grant with the given choice fits into the inventory.
func (j *Journal) CanRewardQuestChoice(q *data.QuestTemplate, choiceType data.RewardChoiceType, choiceID int32, msg bool) bool {
	if !j.CanRewardQuest(q, msg) {
		return false
	}
	if choiceType == data.RewardChoiceItem && choiceID != 0 {
		for _, c := range q.RewardChoices {
			if c.Type != data.RewardChoiceItem || c.ID != choiceID {
				continue
			}
			if !j.canStore(c.ID, c.Count, msg) {
				return false
			}
		}
	}
	if q.RewardPackageID != 0 {
		onlyItem := int32(0)
		if len(q.RewardChoices) > 0 {
			if choiceType != data.RewardChoiceItem {
				onlyItem = -1
			} else {
				onlyItem = choiceID
			}
		}
		if onlyItem >= 0 {
			for _, it := range j.packageItems(q.RewardPackageID, onlyItem) {
				if !j.canStore(it.ItemID, it.Quantity, msg) {
					return false
				}
			}
		}
	}
	for _, r := range q.RewardItems {
		if r.ID == 0 {
			continue
		}
		if !j.canStore(r.ID, r.Count, msg) {
			return false
		}
	}
	return true
}

func (j *Journal) canStore(itemID, count int32, msg bool) bool {
	if res := j.inv.CanStore(itemID, count); res != model.StoreOK {
		if msg {
			j.notify.InventoryError(itemID, res)
		}
		return false
	}
	return true
}

func (j *Journal) satisfyStatus(q *data.QuestTemplate, msg bool) bool {
	switch j.GetQuestStatus(q.ID) {
	case StatusNone:
		return true
	case StatusRewarded:
		j.reject(msg, q.ID, ReasonAlreadyDone)
	default:
		j.reject(msg, q.ID, ReasonAlreadyOn)
	}
	return false
}

// satisfyExclusiveGroup handles "any one of" groups. Negative ("all of") groups
// only gate follow-up quests, see satisfyDependentQuests.
func (j *Journal) satisfyExclusiveGroup(q *data.QuestTemplate, msg bool) bool {
	if q.ExclusiveGroup <= 0 {
		return true
	}
	for _, otherID := range j.templates.ExclusiveGroup(q.ExclusiveGroup) {
		if otherID == q.ID {
			continue
		}
		other := j.templates.Quest(otherID)
		if other == nil {
			continue
		}
		if other.IsDaily() && !j.satisfyDay(other, false) ||
			other.IsWeekly() && !j.satisfyWeek(other, false) ||
			other.IsSeasonal() && !j.satisfySeasonal(other, false) {
			j.reject(msg, q.ID, ReasonNone)
			return false
		}
		// Выполненный соседний квест не блокирует, если оба повторяемые.
		if j.GetQuestStatus(otherID) != StatusNone ||
			(!(q.IsRepeatable() && other.IsRepeatable()) && j.rewardStatus(other)) {
			j.reject(msg, q.ID, ReasonNone)
			return false
		}
	}
	return true
}

func (j *Journal) satisfyClass(q *data.QuestTemplate, msg bool) bool {
	if q.AllowableClasses == 0 {
		return true
	}
	if classMask(j.player.Class())&q.AllowableClasses == 0 {
		j.reject(msg, q.ID, ReasonNone)
		return false
	}
	return true
}

func (j *Journal) satisfyRace(q *data.QuestTemplate, msg bool) bool {
	if q.AllowableRaces == 0 {
		return true
	}
	race := j.player.Race()
	if race <= 0 || race > 64 || q.AllowableRaces&(1<<(race-1)) == 0 {
		j.reject(msg, q.ID, ReasonWrongRace)
		return false
	}
	return true
}

func classMask(class int32) uint32 {
	if class <= 0 || class > 32 {
		return 0
	}
	return 1 << (class - 1)
}

func (j *Journal) questMinLevel(q *data.QuestTemplate) int32 {
	if q.ContentTuningID == 0 {
		return 0
	}
	t, ok := j.templates.ContentTuning(q.ContentTuningID)
	if !ok {
		return 0
	}
	return t.QuestMinLevel(j.player.FactionGroup())
}

func (j *Journal) satisfyLevel(q *data.QuestTemplate, msg bool) bool {
	level := j.player.Level()
	if level < j.questMinLevel(q) {
		j.reject(msg, q.ID, ReasonLowLevel)
		return false
	}
	if q.MaxLevel > 0 && level > q.MaxLevel {
		j.reject(msg, q.ID, ReasonNone)
		return false
	}
	return true
}

func (j *Journal) satisfySkill(q *data.QuestTemplate, msg bool) bool {
	if q.RequiredSkill.SkillID == 0 {
		return true
	}
	if j.player.SkillValue(q.RequiredSkill.SkillID) < q.RequiredSkill.Value {
		j.reject(msg, q.ID, ReasonNone)
		return false
	}
	return true
}

func (j *Journal) satisfyReputation(q *data.QuestTemplate, msg bool) bool {
	if f := q.RequiredMinRep.FactionID; f != 0 && j.player.Reputation(f) < q.RequiredMinRep.Value {
		j.reject(msg, q.ID, ReasonNone)
		return false
	}
	if f := q.RequiredMaxRep.FactionID; f != 0 && j.player.Reputation(f) >= q.RequiredMaxRep.Value {
		j.reject(msg, q.ID, ReasonNone)
		return false
	}
	return true
}

func (j *Journal) satisfyDependentQuests(q *data.QuestTemplate, msg bool) bool {
	return j.satisfyPreviousQuest(q, msg) && j.satisfyDependentPreviousQuests(q, msg)
}

// satisfyPreviousQuest: a positive PrevQuestID must be rewarded, a negative one
// must be in progress.
func (j *Journal) satisfyPreviousQuest(q *data.QuestTemplate, msg bool) bool {
	switch prev := q.PrevQuestID; {
	case prev == 0:
		return true
	case prev > 0 && j.IsQuestRewarded(prev):
		return true
	case prev < 0 && j.GetQuestStatus(-prev) == StatusIncomplete:
		return true
	}
	j.reject(msg, q.ID, ReasonNone)
	return false
}

// satisfyDependentPreviousQuests requires any one predecessor to be rewarded.
// A predecessor from an "all of" group needs its whole group rewarded.
func (j *Journal) satisfyDependentPreviousQuests(q *data.QuestTemplate, msg bool) bool {
	if len(q.DependentPreviousQuests) == 0 {
		return true
	}
	for _, prevID := range q.DependentPreviousQuests {
		if !j.IsQuestRewarded(prevID) {
			continue
		}
		prev := j.templates.Quest(prevID)
		if prev == nil {
			continue
		}
		if prev.ExclusiveGroup >= 0 {
			return true
		}
		all := true
		for _, siblingID := range j.templates.ExclusiveGroup(prev.ExclusiveGroup) {
			if siblingID != prevID && !j.IsQuestRewarded(siblingID) {
				all = false
				break
			}
		}
		if all {
			return true
		}
		j.reject(msg, q.ID, ReasonNone)
		return false
	}
	j.reject(msg, q.ID, ReasonNone)
	return false
}

func (j *Journal) satisfyTimed(q *data.QuestTemplate, msg bool) bool {
	if len(j.timed) > 0 && q.IsTimed() {
		j.reject(msg, q.ID, ReasonOnlyOneTimed)
		return false
	}
	return true
}

func (j *Journal) satisfyDay(q *data.QuestTemplate, msg bool) bool {
	switch {
	case q.IsDFQuest():
		if j.dfDaily.has(q.ID) {
			j.reject(msg, q.ID, ReasonAlreadyDoneDaily)
			return false
		}
	case q.IsDaily():
		if j.daily.has(q.ID) {
			j.reject(msg, q.ID, ReasonAlreadyDoneDaily)
			return false
		}
	}
	return true
}

func (j *Journal) satisfyWeek(q *data.QuestTemplate, msg bool) bool {
	if q.IsWeekly() && j.weekly.has(q.ID) {
		j.reject(msg, q.ID, ReasonNone)
		return false
	}
	return true
}

func (j *Journal) satisfyMonth(q *data.QuestTemplate, msg bool) bool {
	if q.IsMonthly() && j.monthly.has(q.ID) {
		j.reject(msg, q.ID, ReasonNone)
		return false
	}
	return true
}

func (j *Journal) satisfySeasonal(q *data.QuestTemplate, msg bool) bool {
	if !q.IsSeasonal() || len(j.seasonal) == 0 {
		return true
	}
	if _, done := j.seasonal[q.EventID][q.ID]; done {
		j.reject(msg, q.ID, ReasonNone)
		return false
	}
	return true
}

func (j *Journal) satisfyConditions(q *data.QuestTemplate, msg bool) bool {
	for _, id := range q.ConditionIDs {
		if !j.meets(id) {
			j.reject(msg, q.ID, ReasonNone)
			return false
		}
	}
	return true
}
