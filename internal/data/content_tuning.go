package data

// ContentTuning holds the level window for a piece of content.
type ContentTuning struct {
	ID           int32 `yaml:"id"`
	MinLevel     int32 `yaml:"min_level"`
	MaxLevel     int32 `yaml:"max_level"`
	FactionGroup int32 `yaml:"faction_group"` // 0 = both factions scale the same
}

// QuestMinLevel returns the minimum level a player of factionGroup needs.
// Content scaled for the other faction requires one extra level.
func (c ContentTuning) QuestMinLevel(factionGroup int32) int32 {
	if c.FactionGroup != 0 && factionGroup != c.FactionGroup {
		return c.MinLevel + 1
	}
	return c.MinLevel
}

// PackageDisplayType controls which package items a player is offered.
type PackageDisplayType uint8

const (
	PackageFilterLootSpec PackageDisplayType = iota
	PackageFilterClass
	PackageFilterEveryone
	PackageFilterUnmatched // fallback list used when nothing filtered matched
)

// PackageItem is one entry of a quest reward package.
type PackageItem struct {
	ItemID      int32              `yaml:"item"`
	Quantity    int32              `yaml:"quantity"`
	DisplayType PackageDisplayType `yaml:"display_type"`
	ClassMask   uint32             `yaml:"class_mask"`
}

// QuestPackage groups the items a reward package can grant.
type QuestPackage struct {
	ID    int32         `yaml:"id"`
	Items []PackageItem `yaml:"items"`
}
