package model

// ItemTemplate is the static description of an item kind.
type ItemTemplate struct {
	ID           int32   `yaml:"id"`
	Name         string  `yaml:"name"`
	MaxStack     int32   `yaml:"max_stack"` // 0 or 1 = not stackable
	MaxCount     int32   `yaml:"max_count"` // 0 = unlimited
	QuestBound   bool    `yaml:"quest_bound"`
	ClassMask    uint32  `yaml:"class_mask"` // 0 = any class
	LootSpecs    []int32 `yaml:"loot_specs"` // empty = any specialization
	StartQuestID int32   `yaml:"start_quest"`
}

func (t *ItemTemplate) stackSize() int32 {
	if t.MaxStack <= 1 {
		return 1
	}
	return t.MaxStack
}

// ItemCatalog indexes item templates by id.
type ItemCatalog map[int32]*ItemTemplate

// NewItemCatalog builds a catalog from templates.
func NewItemCatalog(items ...ItemTemplate) ItemCatalog {
	c := make(ItemCatalog, len(items))
	for i := range items {
		c[items[i].ID] = &items[i]
	}
	return c
}

// Lookup returns the template for id or nil.
func (c ItemCatalog) Lookup(id int32) *ItemTemplate {
	return c[id]
}
