package data

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// ObjectiveType selects how an objective's progress is counted and checked.
type ObjectiveType uint8

const (
	ObjectiveMonster                ObjectiveType = 0
	ObjectiveItem                   ObjectiveType = 1
	ObjectiveGameObject             ObjectiveType = 2
	ObjectiveTalkTo                 ObjectiveType = 3
	ObjectiveCurrency               ObjectiveType = 4
	ObjectiveLearnSpell             ObjectiveType = 5
	ObjectiveMinReputation          ObjectiveType = 6
	ObjectiveMaxReputation          ObjectiveType = 7
	ObjectiveMoney                  ObjectiveType = 8
	ObjectivePlayerKills            ObjectiveType = 9
	ObjectiveAreaTrigger            ObjectiveType = 10
	ObjectiveWinPetBattleAgainstNpc ObjectiveType = 11
	ObjectiveDefeatBattlePet        ObjectiveType = 12
	ObjectiveWinPvpPetBattles       ObjectiveType = 13
	ObjectiveCriteriaTree           ObjectiveType = 14
	ObjectiveProgressBar            ObjectiveType = 15
	ObjectiveHaveCurrency           ObjectiveType = 16
	ObjectiveObtainCurrency         ObjectiveType = 17
	ObjectiveIncreaseReputation     ObjectiveType = 18
)

var objectiveTypeNames = map[ObjectiveType]string{
	ObjectiveMonster:                "monster",
	ObjectiveItem:                   "item",
	ObjectiveGameObject:             "gameobject",
	ObjectiveTalkTo:                 "talkto",
	ObjectiveCurrency:               "currency",
	ObjectiveLearnSpell:             "learnspell",
	ObjectiveMinReputation:          "min_reputation",
	ObjectiveMaxReputation:          "max_reputation",
	ObjectiveMoney:                  "money",
	ObjectivePlayerKills:            "playerkills",
	ObjectiveAreaTrigger:            "areatrigger",
	ObjectiveWinPetBattleAgainstNpc: "win_pet_battle_against_npc",
	ObjectiveDefeatBattlePet:        "defeat_battle_pet",
	ObjectiveWinPvpPetBattles:       "win_pvp_pet_battles",
	ObjectiveCriteriaTree:           "criteria_tree",
	ObjectiveProgressBar:            "progress_bar",
	ObjectiveHaveCurrency:           "have_currency",
	ObjectiveObtainCurrency:         "obtain_currency",
	ObjectiveIncreaseReputation:     "increase_reputation",
}

func (t ObjectiveType) String() string {
	if name, ok := objectiveTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

// UnmarshalYAML accepts either the numeric id or the lower-case name.
func (t *ObjectiveType) UnmarshalYAML(value *yaml.Node) error {
	for k, v := range objectiveTypeNames {
		if v == value.Value {
			*t = k
			return nil
		}
	}
	var n uint8
	if err := value.Decode(&n); err != nil {
		return fmt.Errorf("objective type %q: %w", value.Value, err)
	}
	*t = ObjectiveType(n)
	return nil
}

// ObjectiveFlags modify objective behavior. Bit values are persisted by content
// tooling and must not change.
type ObjectiveFlags uint32

const (
	ObjectiveFlagTrackedOnMinimap       ObjectiveFlags = 0x0001
	ObjectiveFlagSequenced              ObjectiveFlags = 0x0002
	ObjectiveFlagOptional               ObjectiveFlags = 0x0004
	ObjectiveFlagHidden                 ObjectiveFlags = 0x0008
	ObjectiveFlagHideCreditMsg          ObjectiveFlags = 0x0010
	ObjectiveFlagPreserveQuestItems     ObjectiveFlags = 0x0020
	ObjectiveFlagPartOfProgressBar      ObjectiveFlags = 0x0040
	ObjectiveFlagKillPlayersSameFaction ObjectiveFlags = 0x0080
)

// Has reports whether all bits of f are set.
func (o ObjectiveFlags) Has(f ObjectiveFlags) bool { return o&f == f }

// QuestObjective is one requirement of a quest.
type QuestObjective struct {
	ID                int32          `yaml:"id"`
	QuestID           int32          `yaml:"-"`
	Type              ObjectiveType  `yaml:"type"`
	Order             int8           `yaml:"-"` // position in the quest's objective list
	StorageIndex      int8           `yaml:"storage_index"`
	ObjectID          int32          `yaml:"object"`
	Amount            int32          `yaml:"amount"`
	Flags             ObjectiveFlags `yaml:"flags"`
	ProgressBarWeight float32        `yaml:"progress_bar_weight"`
	Description       string         `yaml:"description"`
}

// IsStoringValue reports whether the objective keeps a counter in the progress array.
func (o *QuestObjective) IsStoringValue() bool {
	switch o.Type {
	case ObjectiveMonster, ObjectiveItem, ObjectiveGameObject, ObjectiveTalkTo,
		ObjectivePlayerKills, ObjectiveWinPvpPetBattles, ObjectiveHaveCurrency,
		ObjectiveObtainCurrency, ObjectiveIncreaseReputation:
		return true
	}
	return false
}

// IsStoringFlag reports whether the objective keeps a boolean in the progress array.
func (o *QuestObjective) IsStoringFlag() bool {
	switch o.Type {
	case ObjectiveAreaTrigger, ObjectiveWinPetBattleAgainstNpc, ObjectiveDefeatBattlePet,
		ObjectiveCriteriaTree:
		return true
	}
	return false
}

// IsOptional reports whether the objective is ignored by completion checks.
func (o *QuestObjective) IsOptional() bool { return o.Flags.Has(ObjectiveFlagOptional) }

// IsPartOfProgressBar reports whether the objective feeds a progress bar objective.
func (o *QuestObjective) IsPartOfProgressBar() bool {
	return o.Flags.Has(ObjectiveFlagPartOfProgressBar)
}
