package data

import "time"

// Capacity of the fixed per-quest reward tables.
const (
	QuestItemDropCount       = 4
	QuestRewardItemCount     = 4
	QuestRewardChoiceCount   = 6
	QuestRewardCurrencyCount = 4
	QuestRewardFactionCount  = 5
)

// QuestFlags are the general quest template flags.
type QuestFlags uint32

const (
	QuestFlagSharable            QuestFlags = 0x00000008
	QuestFlagPvP                 QuestFlags = 0x00000080
	QuestFlagDaily               QuestFlags = 0x00001000
	QuestFlagWeekly              QuestFlags = 0x00008000
	QuestFlagAutoComplete        QuestFlags = 0x00010000
	QuestFlagTrackingEvent       QuestFlags = 0x00000400
	QuestFlagKeepAdditionalItems QuestFlags = 0x00100000
)

// Has reports whether all bits of f are set.
func (q QuestFlags) Has(f QuestFlags) bool { return q&f == f }

// QuestSpecialFlags are server-side flags that never reach the client.
type QuestSpecialFlags uint32

const (
	SpecialRepeatable       QuestSpecialFlags = 0x0001
	SpecialAutoAccept       QuestSpecialFlags = 0x0004
	SpecialDungeonFinder    QuestSpecialFlags = 0x0008
	SpecialMonthly          QuestSpecialFlags = 0x0010
	SpecialCompletedAtStart QuestSpecialFlags = 0x0080
	SpecialDeliver          QuestSpecialFlags = 0x0100
	SpecialSeasonal         QuestSpecialFlags = 0x0200
)

// Has reports whether all bits of f are set.
func (q QuestSpecialFlags) Has(f QuestSpecialFlags) bool { return q&f == f }

// RewardChoiceType tells whether a reward choice entry is an item or a currency.
type RewardChoiceType uint8

const (
	RewardChoiceItem RewardChoiceType = iota
	RewardChoiceCurrency
)

// ItemCount pairs an item (or currency) id with a quantity.
type ItemCount struct {
	ID    int32 `yaml:"id"`
	Count int32 `yaml:"count"`
}

// RewardChoice is one entry of the "pick one" reward table.
type RewardChoice struct {
	Type  RewardChoiceType `yaml:"type"`
	ID    int32            `yaml:"id"`
	Count int32            `yaml:"count"`
}

// FactionValue pairs a faction with a reputation value.
type FactionValue struct {
	FactionID int32 `yaml:"faction"`
	Value     int32 `yaml:"value"`
}

// SkillValue pairs a skill line with a value.
type SkillValue struct {
	SkillID int32 `yaml:"skill"`
	Value   int32 `yaml:"value"`
}

// RewardMail describes the mail sent after the quest is turned in.
type RewardMail struct {
	TemplateID  int32         `yaml:"template"`
	SenderEntry int32         `yaml:"sender"`
	Delay       time.Duration `yaml:"delay"`
}

// DisplaySpell is a reward spell cast on turn-in, optionally gated by a player condition.
type DisplaySpell struct {
	SpellID           int32 `yaml:"spell"`
	PlayerConditionID int32 `yaml:"condition"`
}

// QuestTemplate is the immutable quest definition.
// Templates are shared between all characters and must never be mutated after load.
type QuestTemplate struct {
	ID    int32  `yaml:"id"`
	Title string `yaml:"title"`

	Flags        QuestFlags        `yaml:"flags"`
	SpecialFlags QuestSpecialFlags `yaml:"special_flags"`

	AllowableClasses uint32 `yaml:"classes"` // 0 = all
	AllowableRaces   uint64 `yaml:"races"`   // 0 = all
	ContentTuningID  int32  `yaml:"content_tuning"`
	MaxLevel         int32  `yaml:"max_level"`

	RequiredSkill  SkillValue   `yaml:"required_skill"`
	RequiredMinRep FactionValue `yaml:"required_min_rep"`
	RequiredMaxRep FactionValue `yaml:"required_max_rep"`

	PrevQuestID    int32 `yaml:"prev_quest"` // >0 must be rewarded, <0 must be active
	NextQuestID    int32 `yaml:"next_quest"`
	ExclusiveGroup int32 `yaml:"exclusive_group"` // >0 any-one, <0 all-of
	EventID        int32 `yaml:"event"`           // holiday owning a seasonal quest

	LimitTime  int32       `yaml:"limit_time"` // seconds, 0 = not timed
	SourceItem ItemCount   `yaml:"source_item"`
	ItemDrops  []ItemCount `yaml:"item_drops"`

	Objectives []QuestObjective `yaml:"objectives"`

	RewardItems       []ItemCount      `yaml:"reward_items"`
	RewardChoices     []RewardChoice   `yaml:"reward_choices"`
	RewardCurrencies  []ItemCount      `yaml:"reward_currencies"`
	RewardFactions    []FactionValue   `yaml:"reward_factions"`
	RewardSkill       SkillValue       `yaml:"reward_skill"`
	RewardXP          int64            `yaml:"reward_xp"`
	RewardMoney       int64            `yaml:"reward_money"` // negative = required money
	RewardBonusMoney  int64            `yaml:"reward_bonus_money"`
	RewardHonor       int32            `yaml:"reward_honor"`
	RewardTitleID     int32            `yaml:"reward_title"`
	RewardMail        RewardMail       `yaml:"reward_mail"`
	RewardSpellID     int32            `yaml:"reward_spell"`
	RewardDisplay     []DisplaySpell   `yaml:"reward_display_spells"`
	RewardPackageID   int32            `yaml:"reward_package"`
	UniqueBit         int32            `yaml:"unique_bit"` // 1-based, 0 = none
	ConditionIDs      []int32          `yaml:"conditions"`

	// Derived at load time.
	DependentPreviousQuests []int32 `yaml:"-"`
	objectiveDataLen        int
}

// IsRepeatable reports whether the quest may be taken again after reward.
func (q *QuestTemplate) IsRepeatable() bool { return q.SpecialFlags.Has(SpecialRepeatable) }

// IsDaily reports whether the quest resets daily.
func (q *QuestTemplate) IsDaily() bool { return q.Flags.Has(QuestFlagDaily) }

// IsWeekly reports whether the quest resets weekly.
func (q *QuestTemplate) IsWeekly() bool { return q.Flags.Has(QuestFlagWeekly) }

// IsMonthly reports whether the quest resets monthly.
func (q *QuestTemplate) IsMonthly() bool { return q.SpecialFlags.Has(SpecialMonthly) }

// IsSeasonal reports whether the quest is bound to a holiday event and is not repeatable.
func (q *QuestTemplate) IsSeasonal() bool {
	return q.SpecialFlags.Has(SpecialSeasonal) && !q.IsRepeatable()
}

// IsDFQuest reports whether the quest is a dungeon-finder reward quest.
func (q *QuestTemplate) IsDFQuest() bool { return q.SpecialFlags.Has(SpecialDungeonFinder) }

// IsAutoComplete reports whether the quest completes without objectives.
func (q *QuestTemplate) IsAutoComplete() bool { return q.Flags.Has(QuestFlagAutoComplete) }

// IsTimed reports whether the quest has a time limit.
func (q *QuestTemplate) IsTimed() bool { return q.LimitTime > 0 }

// CanIncreaseRewardedQuestCounters reports whether rewarding the quest
// records it in the permanent rewarded set.
func (q *QuestTemplate) CanIncreaseRewardedQuestCounters() bool {
	return !q.IsDFQuest() && !q.IsDaily() &&
		(!q.IsRepeatable() || q.IsWeekly() || q.IsMonthly() || q.IsSeasonal())
}

// ObjectiveDataLen returns the length of the per-quest progress array.
func (q *QuestTemplate) ObjectiveDataLen() int {
	if q.objectiveDataLen == 0 {
		return computeObjectiveDataLen(q.Objectives)
	}
	return q.objectiveDataLen
}

// HasObjectiveType reports whether any objective has the given type.
func (q *QuestTemplate) HasObjectiveType(t ObjectiveType) bool {
	for i := range q.Objectives {
		if q.Objectives[i].Type == t {
			return true
		}
	}
	return false
}

// ObjectiveByID returns the objective with the given id or nil.
func (q *QuestTemplate) ObjectiveByID(id int32) *QuestObjective {
	for i := range q.Objectives {
		if q.Objectives[i].ID == id {
			return &q.Objectives[i]
		}
	}
	return nil
}

func computeObjectiveDataLen(objs []QuestObjective) int {
	n := 0
	for i := range objs {
		if idx := int(objs[i].StorageIndex) + 1; idx > n {
			n = idx
		}
	}
	return n
}
