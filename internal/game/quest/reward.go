package quest

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/udisondev/questd/internal/data"
	"github.com/udisondev/questd/internal/mail"
	"github.com/udisondev/questd/internal/model"
)

// RewardQuest turns in questID and grants its rewards. choiceType and choiceID
// select one entry of the reward choice table (0 = none); giverEntry is the
// quest giver, used as mail sender when the quest defines none.
//
// Rewards are granted best effort in a fixed order with no rollback: a reward
// that cannot be granted is reported in the returned error (errors.Join of
// every failure) while all later steps still run.
func (j *Journal) RewardQuest(questID int32, choiceType data.RewardChoiceType, choiceID, giverEntry int32) error {
	q := j.quest(questID)
	if q == nil {
		return fmt.Errorf("rewarding quest %d: %w", questID, ErrUnknownQuest)
	}
	oldStatus := j.GetQuestStatus(questID)
	if oldStatus != StatusComplete && !q.IsAutoComplete() && !q.IsDFQuest() {
		j.invariant("rewarding quest that is not complete", "questID", questID, "status", oldStatus)
		return fmt.Errorf("rewarding quest %d in status %s: %w", questID, oldStatus, ErrNotActive)
	}

	var errs []error
	release := j.holdEvents()

	// Объективные предметы и валюта забираются.
	for i := range q.Objectives {
		obj := &q.Objectives[i]
		switch obj.Type {
		case data.ObjectiveItem:
			if !obj.Flags.Has(data.ObjectiveFlagPreserveQuestItems) {
				j.destroyItem(obj.ObjectID, obj.Amount)
			}
		case data.ObjectiveCurrency:
			j.modifyCurrency(obj.ObjectID, -obj.Amount)
		}
	}

	// Extra items handed out during the quest.
	if !q.Flags.Has(data.QuestFlagKeepAdditionalItems) {
		for _, drop := range q.ItemDrops {
			if drop.ID == 0 {
				continue
			}
			count := drop.Count
			if count <= 0 {
				count = destroyAllCount
			}
			j.destroyItem(drop.ID, count)
		}
	}

	delete(j.timed, questID)

	// Fixed item rewards, each on its own.
	for _, r := range q.RewardItems {
		if r.ID == 0 {
			continue
		}
		if err := j.grantItem(q, r.ID, r.Count); err != nil {
			errs = append(errs, err)
		}
	}

	// Chosen reward and reward package.
	if len(q.RewardChoices) > 0 {
		for _, c := range q.RewardChoices {
			if c.Type != choiceType || c.ID != choiceID || c.ID == 0 {
				continue
			}
			switch c.Type {
			case data.RewardChoiceItem:
				if err := j.grantItem(q, c.ID, c.Count); err != nil {
					errs = append(errs, err)
				}
			case data.RewardChoiceCurrency:
				j.modifyCurrency(c.ID, c.Count)
			}
			break
		}
		if q.RewardPackageID != 0 && choiceType == data.RewardChoiceItem && choiceID != 0 {
			errs = append(errs, j.grantPackage(q, choiceID)...)
		}
	} else if q.RewardPackageID != 0 {
		errs = append(errs, j.grantPackage(q, 0)...)
	}

	for _, c := range q.RewardCurrencies {
		if c.ID != 0 && c.Count != 0 {
			j.modifyCurrency(c.ID, c.Count)
		}
	}
	if q.RewardSkill.SkillID != 0 && q.RewardSkill.Value != 0 {
		j.player.UpdateSkill(q.RewardSkill.SkillID, q.RewardSkill.Value)
	}

	// На максимальном уровне опыт заменяется деньгами.
	var xp, money int64
	if !j.player.IsMaxLevel() {
		xp = q.RewardXP
		j.player.GiveXP(xp)
	} else {
		money = int64(float64(q.RewardBonusMoney) * j.opts.MoneyMaxLevelRate)
	}
	money += q.RewardMoney
	if money != 0 {
		j.modifyMoney(money)
	}

	if q.RewardHonor > 0 {
		j.player.RewardHonor(q.RewardHonor)
	}
	if q.RewardTitleID != 0 && !j.player.HasTitle(q.RewardTitleID) {
		j.player.SetTitle(q.RewardTitleID)
	}

	if q.RewardMail.TemplateID != 0 {
		sender := q.RewardMail.SenderEntry
		if sender == 0 {
			sender = giverEntry
		}
		j.sendMail(mail.Mail{
			CharacterID: j.CharacterID(),
			Kind:        mail.KindQuestReward,
			QuestID:     questID,
			TemplateID:  q.RewardMail.TemplateID,
			SenderEntry: sender,
			DeliverAt:   j.opts.Now().Add(q.RewardMail.Delay),
		})
	}

	j.recordCooldown(q)

	if slot, ok := j.log.FindSlot(questID); ok {
		j.log.Clear(slot)
	}
	j.RemoveActiveQuest(questID)
	if q.CanIncreaseRewardedQuestCounters() {
		j.setRewarded(questID)
	}

	for _, f := range q.RewardFactions {
		if f.FactionID != 0 && f.Value != 0 {
			j.modifyReputation(f.FactionID, f.Value)
		}
	}

	// Spells are cast after the quest is marked done.
	if q.RewardSpellID > 0 {
		j.player.CastSpell(q.RewardSpellID)
	} else {
		for _, ds := range q.RewardDisplay {
			if ds.SpellID != 0 && j.meets(ds.PlayerConditionID) {
				j.player.CastSpell(ds.SpellID)
			}
		}
	}

	j.setCompletedBit(q)
	j.notify.QuestRewarded(questID, xp, money)
	j.bus.statusChanged(questID, oldStatus, StatusRewarded)

	// Остальные квесты видят изменения инвентаря, валюты и репутации.
	release()

	err := errors.Join(errs...)
	if err != nil {
		slog.Warn("quest rewarded with missing rewards",
			"characterID", j.CharacterID(), "questID", questID, "error", err)
	} else {
		slog.Debug("quest rewarded",
			"characterID", j.CharacterID(), "questID", questID, "xp", xp, "money", money)
	}
	return err
}

// grantItem stores a reward item. Dungeon finder rewards that do not fit are mailed.
func (j *Journal) grantItem(q *data.QuestTemplate, itemID, count int32) error {
	count = max(count, 1)
	res := j.storeItem(itemID, count)
	if res == model.StoreOK {
		return nil
	}
	if q.IsDFQuest() {
		j.sendMail(mail.Mail{
			CharacterID: j.CharacterID(),
			Kind:        mail.KindItemRetrieval,
			QuestID:     q.ID,
			Items:       []data.ItemCount{{ID: itemID, Count: count}},
			DeliverAt:   j.opts.Now(),
		})
		return nil
	}
	j.notify.InventoryError(itemID, res)
	return fmt.Errorf("quest %d item %d x%d (%s): %w", q.ID, itemID, count, res, ErrRewardItemNotStored)
}

func (j *Journal) sendMail(m mail.Mail) {
	if j.mailer == nil {
		slog.Warn("no mailer configured, dropping quest mail",
			"characterID", m.CharacterID, "questID", m.QuestID, "kind", m.Kind)
		return
	}
	j.mailer.Send(m)
}

// packageItems selects the package entries a player gets: those passing the
// loot-spec/class/everyone filter, or the fallback list when none passed.
// onlyItem > 0 restricts the result to that item id.
func (j *Journal) packageItems(packageID, onlyItem int32) []data.PackageItem {
	all := j.templates.QuestPackage(packageID)
	var filtered, fallback []data.PackageItem
	for _, it := range all {
		if onlyItem > 0 && it.ItemID != onlyItem {
			continue
		}
		if it.DisplayType == data.PackageFilterUnmatched {
			fallback = append(fallback, it)
			continue
		}
		if j.canSelectPackageItem(it) {
			filtered = append(filtered, it)
		}
	}
	if len(filtered) > 0 {
		return filtered
	}
	return fallback
}

func (j *Journal) canSelectPackageItem(it data.PackageItem) bool {
	switch it.DisplayType {
	case data.PackageFilterLootSpec:
		return j.inv.UsableByLootSpec(it.ItemID, j.player.LootSpecialization())
	case data.PackageFilterClass:
		mask := it.ClassMask
		if mask == 0 {
			mask = j.inv.ClassMask(it.ItemID)
		}
		return mask == 0 || mask&classMask(j.player.Class()) != 0
	case data.PackageFilterEveryone:
		return true
	default:
		return false
	}
}

func (j *Journal) grantPackage(q *data.QuestTemplate, onlyItem int32) []error {
	var errs []error
	for _, it := range j.packageItems(q.RewardPackageID, onlyItem) {
		if err := j.grantItem(q, it.ItemID, it.Quantity); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// recordCooldown puts q into the cooldown bucket matching its classification.
func (j *Journal) recordCooldown(q *data.QuestTemplate) {
	switch {
	case q.IsDFQuest():
		j.dfDaily[q.ID] = struct{}{}
		j.dirtyBuckets.set(BucketDungeonDaily)
	case q.IsDaily():
		j.daily[q.ID] = struct{}{}
		j.dirtyBuckets.set(BucketDaily)
	case q.IsWeekly():
		j.weekly[q.ID] = struct{}{}
		j.dirtyBuckets.set(BucketWeekly)
	case q.IsMonthly():
		j.monthly[q.ID] = struct{}{}
		j.dirtyBuckets.set(BucketMonthly)
	case q.IsSeasonal():
		events := j.seasonal[q.EventID]
		if events == nil {
			events = make(map[int32]time.Time)
			j.seasonal[q.EventID] = events
		}
		events[q.ID] = j.opts.Now()
		j.dirtyBuckets.set(BucketSeasonal)
	}
}
