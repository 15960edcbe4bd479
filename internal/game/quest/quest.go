// Package quest implements the per-character quest progression core.
// A Journal owns the active quest statuses, the quest log slots, the rewarded
// set and the periodic cooldown buckets of one character. Game events are fed
// into the Journal's credit entry points; eligibility queries, state
// transitions, rewards, timed-quest expiry and periodic resets all run
// synchronously on the caller's goroutine.
package quest

import (
	"errors"

	"github.com/udisondev/questd/internal/data"
	"github.com/udisondev/questd/internal/mail"
	"github.com/udisondev/questd/internal/model"
)

var (
	ErrUnknownQuest        = errors.New("unknown quest")
	ErrNotActive           = errors.New("quest is not active")
	ErrAlreadyActive       = errors.New("quest is already active")
	ErrLogFull             = errors.New("quest log is full")
	ErrRewardItemNotStored = errors.New("reward item not stored")
	ErrSourceItemLocked    = errors.New("quest source item cannot be removed")
)

// TemplateSource supplies immutable quest definitions.
// Implemented by data.Store.
type TemplateSource interface {
	Quest(id int32) *data.QuestTemplate
	ExclusiveGroup(group int32) []int32
	ContentTuning(id int32) (data.ContentTuning, bool)
	QuestPackage(id int32) []data.PackageItem
}

// Player is the character the journal belongs to. Implemented by model.Character.
type Player interface {
	CharacterID() int64
	Level() int32
	IsMaxLevel() bool
	Race() int32
	Class() int32
	FactionGroup() int32
	LootSpecialization() int32

	Money() int64
	ModifyMoney(delta int64)
	GiveXP(xp int64)
	RewardHonor(honor int32)

	Reputation(factionID int32) int32
	ModifyReputation(factionID, delta int32)
	Currency(currencyID int32) int32
	ModifyCurrency(currencyID, delta int32)
	SkillValue(skillID int32) int32
	UpdateSkill(skillID, points int32)

	HasSpell(spellID int32) bool
	CastSpell(spellID int32)
	HasTitle(titleID int32) bool
	SetTitle(titleID int32)
}

// Inventory is the character's item storage. Implemented by model.Inventory.
type Inventory interface {
	ItemCount(itemID int32) int32
	CanStore(itemID, count int32) model.StoreResult
	Store(itemID, count int32) model.StoreResult
	Destroy(itemID, count int32) int32
	CanUnequip(itemID, count int32) model.StoreResult
	IsQuestBound(itemID int32) bool
	ClassMask(itemID int32) uint32
	UsableByLootSpec(itemID, specID int32) bool
	StartQuest(itemID int32) int32
}

// Conditions evaluates condition sets. Implemented by data.ConditionEvaluator.
type Conditions interface {
	Meets(id int32, subject data.ConditionSubject) bool
}

// Mailer accepts outgoing mail. Implemented by mail.Outbox.
type Mailer interface {
	Send(m mail.Mail) bool
}

// FailedReason is the reason code shown when a quest cannot be taken or turned in.
type FailedReason uint8

const (
	ReasonNone             FailedReason = 0
	ReasonLowLevel         FailedReason = 1
	ReasonWrongRace        FailedReason = 6
	ReasonAlreadyDone      FailedReason = 7
	ReasonOnlyOneTimed     FailedReason = 12
	ReasonAlreadyOn        FailedReason = 13
	ReasonMissingItems     FailedReason = 21
	ReasonNotEnoughMoney   FailedReason = 23
	ReasonAlreadyDoneDaily FailedReason = 26
)

// Notifier delivers user-visible messages to the character's client.
type Notifier interface {
	QuestRejected(questID int32, reason FailedReason)
	QuestLogFull()
	InventoryError(itemID int32, res model.StoreResult)
	QuestCredit(questID int32, objective *data.QuestObjective, count int32)
	PlayerKillCredit(questID int32, objective *data.QuestObjective, count int32)
	QuestCompleted(questID int32)
	QuestFailed(questID int32)
	QuestTimerFailed(questID int32)
	QuestRewarded(questID int32, xp, money int64)
}

// NopNotifier discards every message.
type NopNotifier struct{}

func (NopNotifier) QuestRejected(int32, FailedReason) {}
func (NopNotifier) QuestLogFull() {}
func (NopNotifier) InventoryError(int32, model.StoreResult) {}
func (NopNotifier) QuestCredit(int32, *data.QuestObjective, int32) {}
func (NopNotifier) PlayerKillCredit(int32, *data.QuestObjective, int32) {}
func (NopNotifier) QuestCompleted(int32) {}
func (NopNotifier) QuestFailed(int32) {}
func (NopNotifier) QuestTimerFailed(int32) {}
func (NopNotifier) QuestRewarded(int32, int64, int64) {}
