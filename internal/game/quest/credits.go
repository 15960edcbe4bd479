package quest

import (
	"log/slog"

	"github.com/udisondev/questd/internal/data"
	"github.com/udisondev/questd/internal/model"
)

// Event sinks are called after the collaborator applied the change, so live
// objectives (money, reputation, currency, spells) read the new values.

// KilledMonsterCredit credits a creature kill.
func (j *Journal) KilledMonsterCredit(entry int32) {
	j.updateObjectiveProgress(data.ObjectiveMonster, entry, 1, nil)
}

// KillCreditGO credits the use of a game object.
func (j *Journal) KillCreditGO(entry int32) {
	j.updateObjectiveProgress(data.ObjectiveGameObject, entry, 1, nil)
}

// TalkedToCreature credits a dialogue with a creature.
func (j *Journal) TalkedToCreature(entry int32) {
	j.updateObjectiveProgress(data.ObjectiveTalkTo, entry, 1, nil)
}

// KilledPlayerCredit credits an honorable kill of a player from victimFactionGroup.
// Objectives flagged for same-faction kills only count victims of the player's own faction.
func (j *Journal) KilledPlayerCredit(victimFactionGroup int32) {
	own := j.player.FactionGroup()
	j.updateObjectiveProgress(data.ObjectivePlayerKills, 0, 1, func(obj *data.QuestObjective) bool {
		if obj.Flags.Has(data.ObjectiveFlagKillPlayersSameFaction) {
			return victimFactionGroup == own
		}
		return true
	})
}

// AreaExplored credits reaching an area trigger.
func (j *Journal) AreaExplored(areaTriggerID int32) {
	j.updateObjectiveProgress(data.ObjectiveAreaTrigger, areaTriggerID, 1, nil)
}

// CriteriaTreeCompleted credits an externally evaluated criteria tree.
func (j *Journal) CriteriaTreeCompleted(treeID int32) {
	j.updateObjectiveProgress(data.ObjectiveCriteriaTree, treeID, 1, nil)
}

// PetBattleWon credits a won pet battle against npc entry.
func (j *Journal) PetBattleWon(entry int32) {
	j.updateObjectiveProgress(data.ObjectiveWinPetBattleAgainstNpc, entry, 1, nil)
}

// BattlePetDefeated credits defeating a battle pet species.
func (j *Journal) BattlePetDefeated(speciesID int32) {
	j.updateObjectiveProgress(data.ObjectiveDefeatBattlePet, speciesID, 1, nil)
}

// PvpPetBattleWon credits a won PvP pet battle.
func (j *Journal) PvpPetBattleWon() {
	j.updateObjectiveProgress(data.ObjectiveWinPvpPetBattles, 0, 1, nil)
}

// LearnedSpell re-checks learn-spell objectives.
func (j *Journal) LearnedSpell(spellID int32) {
	j.updateObjectiveProgress(data.ObjectiveLearnSpell, spellID, 1, nil)
}

// MoneyChanged re-checks money objectives after the wallet changed by delta.
func (j *Journal) MoneyChanged(delta int64) {
	if delta == 0 {
		return
	}
	j.updateObjectiveProgress(data.ObjectiveMoney, 0, sign(delta), nil)
}

// ReputationChanged re-checks reputation objectives of factionID.
func (j *Journal) ReputationChanged(factionID, delta int32) {
	if delta == 0 {
		return
	}
	j.updateObjectiveProgress(data.ObjectiveMinReputation, factionID, sign(int64(delta)), nil)
	j.updateObjectiveProgress(data.ObjectiveMaxReputation, factionID, sign(int64(delta)), nil)
	if delta > 0 {
		j.updateObjectiveProgress(data.ObjectiveIncreaseReputation, factionID, delta, nil)
	}
}

// CurrencyChanged updates currency objectives after currencyID changed by delta.
// Obtain-currency objectives only count gains.
func (j *Journal) CurrencyChanged(currencyID, delta int32) {
	if delta == 0 {
		return
	}
	if delta > 0 {
		j.updateObjectiveProgress(data.ObjectiveObtainCurrency, currencyID, delta, nil)
	}
	j.recountObjective(data.ObjectiveHaveCurrency, currencyID, j.player.Currency(currencyID), delta > 0)
	j.updateObjectiveProgress(data.ObjectiveCurrency, currencyID, sign(int64(delta)), nil)
}

// ItemAdded recounts item objectives after itemID entered the inventory.
func (j *Journal) ItemAdded(itemID, count int32) {
	if count <= 0 {
		return
	}
	j.recountObjective(data.ObjectiveItem, itemID, j.inv.ItemCount(itemID), true)
}

// ItemRemoved recounts item objectives after itemID left the inventory.
// A Complete quest whose item count dropped below the requirement reopens.
func (j *Journal) ItemRemoved(itemID, count int32) {
	if count <= 0 {
		return
	}
	j.recountObjective(data.ObjectiveItem, itemID, j.inv.ItemCount(itemID), false)
}

// holdEvents queues change events raised by the journal's own collaborator
// calls until the returned release runs. The quest being moved leaves the log
// first, so only the other quests re-check their objectives.
func (j *Journal) holdEvents() (release func()) {
	prev := j.queued
	j.queued = make([]func(), 0, 4)
	return func() {
		events := j.queued
		j.queued = prev
		for _, fn := range events {
			j.raise(fn)
		}
	}
}

func (j *Journal) raise(fn func()) {
	if j.queued != nil {
		j.queued = append(j.queued, fn)
		return
	}
	fn()
}

// storeItem stores items and feeds the gain back into item objectives.
func (j *Journal) storeItem(itemID, count int32) model.StoreResult {
	res := j.inv.Store(itemID, count)
	if res == model.StoreOK {
		j.raise(func() { j.ItemAdded(itemID, count) })
	}
	return res
}

// destroyItem removes up to count items and feeds the loss back into item objectives.
func (j *Journal) destroyItem(itemID, count int32) {
	if n := j.inv.Destroy(itemID, count); n > 0 {
		j.raise(func() { j.ItemRemoved(itemID, n) })
	}
}

func (j *Journal) modifyCurrency(currencyID, delta int32) {
	before := j.player.Currency(currencyID)
	j.player.ModifyCurrency(currencyID, delta)
	if d := j.player.Currency(currencyID) - before; d != 0 {
		j.raise(func() { j.CurrencyChanged(currencyID, d) })
	}
}

func (j *Journal) modifyMoney(delta int64) {
	before := j.player.Money()
	j.player.ModifyMoney(delta)
	if d := j.player.Money() - before; d != 0 {
		j.raise(func() { j.MoneyChanged(d) })
	}
}

func (j *Journal) modifyReputation(factionID, delta int32) {
	j.player.ModifyReputation(factionID, delta)
	j.raise(func() { j.ReputationChanged(factionID, delta) })
}

func sign(v int64) int32 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

// progressTargets returns the logged quests in slot order with their records and templates.
func (j *Journal) progressTargets(yield func(rec *StatusRecord, q *data.QuestTemplate) bool) {
	for _, questID := range j.log.Quests() {
		// An earlier quest's reward may have changed the log mid-iteration.
		if _, logged := j.log.FindSlot(questID); !logged {
			continue
		}
		rec, ok := j.statuses[questID]
		if !ok {
			j.invariant("logged quest has no status record", "questID", questID)
			continue
		}
		if rec.Status == StatusFailed {
			continue
		}
		q := j.templates.Quest(questID)
		if q == nil {
			continue
		}
		if !yield(rec, q) {
			return
		}
	}
}

// updateObjectiveProgress applies delta to every matching objective of the
// logged quests, in slot order, and re-evaluates each touched quest.
func (j *Journal) updateObjectiveProgress(t data.ObjectiveType, objectID, delta int32, accept func(*data.QuestObjective) bool) {
	for rec, q := range j.progressTargets {
		touched := false
		for i := range q.Objectives {
			obj := &q.Objectives[i]
			if obj.Type != t || obj.ObjectID != objectID {
				continue
			}
			if accept != nil && !accept(obj) {
				continue
			}
			if !j.objectiveCompletable(rec, q, obj) {
				continue
			}
			if !j.applyDelta(rec, q, obj, delta) {
				continue
			}
			touched = true
			if obj.IsPartOfProgressBar() {
				j.creditProgressBar(rec, q)
			}
		}
		if touched {
			j.reevaluate(q.ID)
		}
	}
}

// applyDelta reports whether obj was affected.
func (j *Journal) applyDelta(rec *StatusRecord, q *data.QuestTemplate, obj *data.QuestObjective, delta int32) bool {
	switch {
	case obj.IsStoringValue():
		cur := storedValue(rec, obj)
		if delta > 0 && cur >= obj.Amount || delta < 0 && cur <= 0 || delta == 0 {
			return false
		}
		next := min(max(cur+delta, 0), obj.Amount)
		j.SetObjectiveData(obj, next)
		if delta > 0 && !obj.Flags.Has(data.ObjectiveFlagHideCreditMsg) {
			switch obj.Type {
			case data.ObjectiveItem:
			case data.ObjectivePlayerKills:
				j.notify.PlayerKillCredit(q.ID, obj, next)
			default:
				j.notify.QuestCredit(q.ID, obj, next)
			}
		}
		return true
	case obj.IsStoringFlag():
		var next int32
		if delta > 0 {
			next = 1
		}
		if storedValue(rec, obj) == next {
			return false
		}
		j.SetObjectiveData(obj, next)
		if next != 0 && !obj.Flags.Has(data.ObjectiveFlagHideCreditMsg) {
			j.notify.QuestCredit(q.ID, obj, next)
		}
		return true
	default:
		// Живые проверки (деньги, репутация, валюта, заклинания) читают текущее значение.
		return true
	}
}

// recountObjective sets counting objectives to the held amount of objectID.
// Gains only touch Incomplete quests; losses also reopen Complete ones.
func (j *Journal) recountObjective(t data.ObjectiveType, objectID, held int32, gained bool) {
	for rec, q := range j.progressTargets {
		if gained && rec.Status != StatusIncomplete {
			continue
		}
		touched := false
		for i := range q.Objectives {
			obj := &q.Objectives[i]
			if obj.Type != t || obj.ObjectID != objectID {
				continue
			}
			if !j.objectiveCompletable(rec, q, obj) {
				continue
			}
			prev := storedValue(rec, obj)
			next := min(max(held, 0), obj.Amount)
			if next == prev {
				continue
			}
			j.SetObjectiveData(obj, next)
			if next > prev && t != data.ObjectiveItem && !obj.Flags.Has(data.ObjectiveFlagHideCreditMsg) {
				j.notify.QuestCredit(q.ID, obj, next)
			}
			touched = true
			if obj.IsPartOfProgressBar() {
				j.creditProgressBar(rec, q)
			}
		}
		if touched {
			j.reevaluate(q.ID)
		}
	}
}

// creditProgressBar marks the quest's progress bar objective once its contributors reach the target.
func (j *Journal) creditProgressBar(rec *StatusRecord, q *data.QuestTemplate) {
	if !progressBarComplete(rec, q) {
		return
	}
	for i := range q.Objectives {
		bar := &q.Objectives[i]
		if bar.Type != data.ObjectiveProgressBar {
			continue
		}
		if bar.StorageIndex >= 0 {
			if storedValue(rec, bar) != 0 {
				return
			}
			j.SetObjectiveData(bar, 1)
		}
		j.notify.QuestCredit(q.ID, bar, 1)
		return
	}
}

// reevaluate moves questID between Incomplete and Complete to match its objectives.
func (j *Journal) reevaluate(questID int32) {
	rec, ok := j.statuses[questID]
	if !ok {
		return
	}
	switch rec.Status {
	case StatusIncomplete:
		if j.CanCompleteQuest(questID) {
			if err := j.CompleteQuest(questID); err != nil {
				slog.Error("completing quest after credit", "characterID", j.CharacterID(), "questID", questID, "error", err)
			}
		}
	case StatusComplete:
		q := j.templates.Quest(questID)
		if q != nil && !j.requiredObjectivesComplete(rec, q) {
			if err := j.IncompleteQuest(questID); err != nil {
				slog.Error("reopening quest after credit", "characterID", j.CharacterID(), "questID", questID, "error", err)
			}
		}
	}
}
