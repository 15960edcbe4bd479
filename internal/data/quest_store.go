package data

import (
	"fmt"
	"log/slog"
	"slices"
)

// Store is the read-only quest template source. Build it once at startup
// with NewStore or LoadQuestTemplates and share it between all characters.
type Store struct {
	quests          map[int32]*QuestTemplate
	exclusiveGroups map[int32][]int32
	tunings         map[int32]ContentTuning
	packages        map[int32][]PackageItem
	conditions      *ConditionEvaluator
}

// StoreContent is the raw material a Store is built from.
type StoreContent struct {
	Quests        []QuestTemplate `yaml:"quests"`
	ContentTuning []ContentTuning `yaml:"content_tuning"`
	Packages      []QuestPackage  `yaml:"packages"`
	Conditions    []ConditionSet  `yaml:"conditions"`
}

// NewStore validates and indexes content. Templates are copied, so the
// caller may reuse the input slices.
func NewStore(content StoreContent) (*Store, error) {
	s := &Store{
		quests:          make(map[int32]*QuestTemplate, len(content.Quests)),
		exclusiveGroups: make(map[int32][]int32),
		tunings:         make(map[int32]ContentTuning, len(content.ContentTuning)),
		packages:        make(map[int32][]PackageItem, len(content.Packages)),
		conditions:      NewConditionEvaluator(content.Conditions),
	}

	for _, t := range content.ContentTuning {
		if _, dup := s.tunings[t.ID]; dup {
			return nil, fmt.Errorf("content tuning %d defined twice", t.ID)
		}
		s.tunings[t.ID] = t
	}
	for _, p := range content.Packages {
		s.packages[p.ID] = append(s.packages[p.ID], p.Items...)
	}

	for i := range content.Quests {
		q := content.Quests[i]
		if q.ID <= 0 {
			return nil, fmt.Errorf("quest at index %d: invalid id %d", i, q.ID)
		}
		if _, dup := s.quests[q.ID]; dup {
			return nil, fmt.Errorf("quest %d defined twice", q.ID)
		}
		q.Objectives = slices.Clone(q.Objectives)
		if err := normalizeQuest(&q); err != nil {
			return nil, fmt.Errorf("quest %d: %w", q.ID, err)
		}
		s.quests[q.ID] = &q
	}

	s.link()
	return s, nil
}

// link resolves cross-quest references once every template is known.
func (s *Store) link() {
	bits := make(map[int32]int32, len(s.quests))
	ids := make([]int32, 0, len(s.quests))
	for id := range s.quests {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	for _, id := range ids {
		q := s.quests[id]

		if q.PrevQuestID != 0 {
			prev := q.PrevQuestID
			if prev < 0 {
				prev = -prev
			}
			if _, ok := s.quests[prev]; !ok {
				slog.Warn("quest references unknown previous quest", "questID", id, "prevQuestID", q.PrevQuestID)
				q.PrevQuestID = 0
			}
		}

		if q.NextQuestID != 0 {
			if next, ok := s.quests[q.NextQuestID]; ok {
				next.DependentPreviousQuests = append(next.DependentPreviousQuests, id)
			} else {
				slog.Warn("quest references unknown next quest", "questID", id, "nextQuestID", q.NextQuestID)
				q.NextQuestID = 0
			}
		}

		if q.ExclusiveGroup != 0 {
			s.exclusiveGroups[q.ExclusiveGroup] = append(s.exclusiveGroups[q.ExclusiveGroup], id)
		}

		if q.UniqueBit != 0 {
			if other, dup := bits[q.UniqueBit]; dup {
				slog.Warn("quests share a unique bit", "questID", id, "otherQuestID", other, "bit", q.UniqueBit)
			}
			bits[q.UniqueBit] = id
		}

		if q.ContentTuningID != 0 {
			if _, ok := s.tunings[q.ContentTuningID]; !ok {
				slog.Warn("quest references unknown content tuning", "questID", id, "contentTuningID", q.ContentTuningID)
			}
		}
		if q.RewardPackageID != 0 {
			if _, ok := s.packages[q.RewardPackageID]; !ok {
				slog.Warn("quest references unknown reward package", "questID", id, "packageID", q.RewardPackageID)
				q.RewardPackageID = 0
			}
		}
	}
}

func normalizeQuest(q *QuestTemplate) error {
	if len(q.ItemDrops) > QuestItemDropCount {
		return fmt.Errorf("%d item drops, max %d", len(q.ItemDrops), QuestItemDropCount)
	}
	if len(q.RewardItems) > QuestRewardItemCount {
		return fmt.Errorf("%d reward items, max %d", len(q.RewardItems), QuestRewardItemCount)
	}
	if len(q.RewardChoices) > QuestRewardChoiceCount {
		return fmt.Errorf("%d reward choices, max %d", len(q.RewardChoices), QuestRewardChoiceCount)
	}
	if len(q.RewardCurrencies) > QuestRewardCurrencyCount {
		return fmt.Errorf("%d reward currencies, max %d", len(q.RewardCurrencies), QuestRewardCurrencyCount)
	}
	if len(q.RewardFactions) > QuestRewardFactionCount {
		return fmt.Errorf("%d reward factions, max %d", len(q.RewardFactions), QuestRewardFactionCount)
	}

	// Квест может принадлежать только одному периодическому сбросу.
	if q.IsDaily() && q.IsWeekly() {
		slog.Warn("quest is both daily and weekly, keeping daily", "questID", q.ID)
		q.Flags &^= QuestFlagWeekly
	}
	if (q.IsDaily() || q.IsWeekly()) && q.IsMonthly() {
		slog.Warn("quest is monthly and daily/weekly, dropping monthly", "questID", q.ID)
		q.SpecialFlags &^= SpecialMonthly
	}
	if q.IsDaily() || q.IsWeekly() || q.IsMonthly() || q.IsDFQuest() {
		q.SpecialFlags |= SpecialRepeatable
	}
	if q.SpecialFlags.Has(SpecialSeasonal) && q.EventID == 0 {
		slog.Warn("seasonal quest without event, clearing seasonal flag", "questID", q.ID)
		q.SpecialFlags &^= SpecialSeasonal
	}

	used := make(map[int8]int32, len(q.Objectives))
	for i := range q.Objectives {
		obj := &q.Objectives[i]
		obj.QuestID = q.ID
		obj.Order = int8(i)
		if obj.ID == 0 {
			obj.ID = q.ID*100 + int32(i) + 1
		}

		if !obj.IsStoringValue() && !obj.IsStoringFlag() {
			obj.StorageIndex = -1
		} else {
			if obj.StorageIndex < 0 {
				return fmt.Errorf("objective %d (%s) needs a storage index", obj.ID, obj.Type)
			}
			if other, dup := used[obj.StorageIndex]; dup {
				return fmt.Errorf("objectives %d and %d share storage index %d", other, obj.ID, obj.StorageIndex)
			}
			used[obj.StorageIndex] = obj.ID
		}

		if obj.IsStoringValue() && obj.Amount <= 0 {
			slog.Warn("counting objective with non-positive amount, using 1",
				"questID", q.ID, "objectiveID", obj.ID)
			obj.Amount = 1
		}
		if _, known := objectiveTypeNames[obj.Type]; !known {
			slog.Error("objective has unknown type", "questID", q.ID, "objectiveID", obj.ID, "type", uint8(obj.Type))
		}
	}
	q.objectiveDataLen = computeObjectiveDataLen(q.Objectives)
	return nil
}

// Quest returns the template for id or nil.
func (s *Store) Quest(id int32) *QuestTemplate {
	return s.quests[id]
}

// ExclusiveGroup returns the ids of all quests in group.
func (s *Store) ExclusiveGroup(group int32) []int32 {
	return s.exclusiveGroups[group]
}

// ContentTuning returns the tuning row for id.
func (s *Store) ContentTuning(id int32) (ContentTuning, bool) {
	t, ok := s.tunings[id]
	return t, ok
}

// QuestPackage returns the items of reward package id.
func (s *Store) QuestPackage(id int32) []PackageItem {
	return s.packages[id]
}

// Conditions returns the condition evaluator built from the same content.
func (s *Store) Conditions() *ConditionEvaluator {
	return s.conditions
}

// QuestCount returns the number of loaded templates.
func (s *Store) QuestCount() int {
	return len(s.quests)
}

// Quests returns all templates ordered by id.
func (s *Store) Quests() []*QuestTemplate {
	out := make([]*QuestTemplate, 0, len(s.quests))
	for _, q := range s.quests {
		out = append(out, q)
	}
	slices.SortFunc(out, func(a, b *QuestTemplate) int { return int(a.ID - b.ID) })
	return out
}
