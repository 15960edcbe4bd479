package data

import "log/slog"

// ConditionType names a single predicate of a condition set.
type ConditionType string

const (
	ConditionLevelMin      ConditionType = "level_min"
	ConditionLevelMax      ConditionType = "level_max"
	ConditionHasSpell      ConditionType = "has_spell"
	ConditionHasTitle      ConditionType = "has_title"
	ConditionMoneyMin      ConditionType = "money_min"
	ConditionReputationMin ConditionType = "reputation_min"
	ConditionQuestRewarded ConditionType = "quest_rewarded"
)

// ConditionTerm is one predicate. All terms of a set must hold.
type ConditionTerm struct {
	Type   ConditionType `yaml:"type"`
	Target int32         `yaml:"target"` // spell, title, faction or quest id
	Value  int64         `yaml:"value"`
	Negate bool          `yaml:"negate"`
}

// ConditionSet is a named list of terms referenced by quests and reward spells.
type ConditionSet struct {
	ID    int32           `yaml:"id"`
	Terms []ConditionTerm `yaml:"terms"`
}

// ConditionSubject is the read-only view of a character that conditions inspect.
type ConditionSubject interface {
	Level() int32
	Money() int64
	HasSpell(spellID int32) bool
	HasTitle(titleID int32) bool
	Reputation(factionID int32) int32
	IsQuestRewarded(questID int32) bool
}

// ConditionEvaluator resolves condition ids against the loaded condition table.
type ConditionEvaluator struct {
	sets map[int32]*ConditionSet
}

// NewConditionEvaluator builds an evaluator over the given sets.
func NewConditionEvaluator(sets []ConditionSet) *ConditionEvaluator {
	e := &ConditionEvaluator{sets: make(map[int32]*ConditionSet, len(sets))}
	for i := range sets {
		e.sets[sets[i].ID] = &sets[i]
	}
	return e
}

// Meets reports whether subject satisfies condition set id.
// Id 0 always holds; an unknown id fails closed.
func (e *ConditionEvaluator) Meets(id int32, subject ConditionSubject) bool {
	if id == 0 {
		return true
	}
	set, ok := e.sets[id]
	if !ok {
		slog.Error("unknown condition set", "conditionID", id)
		return false
	}
	for _, term := range set.Terms {
		if evalTerm(term, subject) == term.Negate {
			return false
		}
	}
	return true
}

func evalTerm(term ConditionTerm, s ConditionSubject) bool {
	switch term.Type {
	case ConditionLevelMin:
		return int64(s.Level()) >= term.Value
	case ConditionLevelMax:
		return int64(s.Level()) <= term.Value
	case ConditionHasSpell:
		return s.HasSpell(term.Target)
	case ConditionHasTitle:
		return s.HasTitle(term.Target)
	case ConditionMoneyMin:
		return s.Money() >= term.Value
	case ConditionReputationMin:
		return int64(s.Reputation(term.Target)) >= term.Value
	case ConditionQuestRewarded:
		return s.IsQuestRewarded(term.Target)
	default:
		slog.Error("unknown condition term", "type", term.Type)
		return false
	}
}
