package model

import (
	"sync"

	"github.com/udisondev/questd/internal/data"
)

// Character holds the mutable stats of a player that the quest core reads and
// rewards. Thread-safe via mutex; the world loop is the only writer in practice.
type Character struct {
	mu sync.RWMutex

	id           int64
	name         string
	race         int32
	class        int32
	factionGroup int32
	lootSpec     int32

	level    int32
	maxLevel int32
	xp       int64
	money    int64
	honor    int64

	reputation map[int32]int32
	currency   map[int32]int32
	skills     map[int32]int32
	spells     map[int32]struct{}
	titles     map[int32]struct{}

	casts []int32

	inventory *Inventory
}

// CharacterInfo is the identity part of a character.
type CharacterInfo struct {
	ID           int64
	Name         string
	Race         int32
	Class        int32
	FactionGroup int32
	Level        int32
	MaxLevel     int32
}

// NewCharacter creates a character with an empty wallet and the given inventory.
func NewCharacter(info CharacterInfo, inv *Inventory) *Character {
	maxLevel := info.MaxLevel
	if maxLevel <= 0 {
		maxLevel = data.MaxPlayerLevel
	}
	level := max(info.Level, 1)
	return &Character{
		id:           info.ID,
		name:         info.Name,
		race:         info.Race,
		class:        info.Class,
		factionGroup: info.FactionGroup,
		level:        level,
		maxLevel:     maxLevel,
		xp:           data.ExperienceForLevel(level),
		reputation:   make(map[int32]int32),
		currency:     make(map[int32]int32),
		skills:       make(map[int32]int32),
		spells:       make(map[int32]struct{}),
		titles:       make(map[int32]struct{}),
		inventory:    inv,
	}
}

// CharacterID returns the persistent character id.
func (c *Character) CharacterID() int64 { return c.id }

// Name returns the character name.
func (c *Character) Name() string { return c.name }

// Race returns the race id.
func (c *Character) Race() int32 { return c.race }

// Class returns the class id.
func (c *Character) Class() int32 { return c.class }

// FactionGroup returns the faction group the race belongs to.
func (c *Character) FactionGroup() int32 { return c.factionGroup }

// LootSpecialization returns the selected loot specialization.
func (c *Character) LootSpecialization() int32 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lootSpec
}

// SetLootSpecialization changes the loot specialization.
func (c *Character) SetLootSpecialization(spec int32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lootSpec = spec
}

// Inventory returns the character's inventory.
func (c *Character) Inventory() *Inventory { return c.inventory }

// Level returns the current level.
func (c *Character) Level() int32 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.level
}

// SetLevel forces the level and resets XP to the level threshold.
func (c *Character) SetLevel(level int32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.level = min(max(level, 1), c.maxLevel)
	c.xp = data.ExperienceForLevel(c.level)
}

// IsMaxLevel reports whether the character reached the level cap.
func (c *Character) IsMaxLevel() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.level >= c.maxLevel
}

// Experience returns the cumulative XP.
func (c *Character) Experience() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.xp
}

// GiveXP adds experience and levels up. Ignored at the level cap.
func (c *Character) GiveXP(xp int64) {
	if xp <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.level >= c.maxLevel {
		return
	}
	c.xp += xp
	c.level = data.LevelForExperience(c.xp, c.maxLevel)
}

// Money returns the carried money.
func (c *Character) Money() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.money
}

// ModifyMoney adds delta to the wallet, never going below zero.
func (c *Character) ModifyMoney(delta int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.money = max(c.money+delta, 0)
}

// Honor returns the accumulated honor.
func (c *Character) Honor() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.honor
}

// RewardHonor adds honor points.
func (c *Character) RewardHonor(honor int32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.honor += int64(honor)
}

// Reputation returns the standing with factionID.
func (c *Character) Reputation(factionID int32) int32 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.reputation[factionID]
}

// ModifyReputation adds delta to the standing with factionID.
func (c *Character) ModifyReputation(factionID, delta int32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reputation[factionID] += delta
}

// Currency returns the held quantity of currencyID.
func (c *Character) Currency(currencyID int32) int32 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.currency[currencyID]
}

// ModifyCurrency adds delta to currencyID, never going below zero.
func (c *Character) ModifyCurrency(currencyID, delta int32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.currency[currencyID] = max(c.currency[currencyID]+delta, 0)
}

// SkillValue returns the current value of skillID (0 = not learned).
func (c *Character) SkillValue(skillID int32) int32 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.skills[skillID]
}

// UpdateSkill raises skillID by points.
func (c *Character) UpdateSkill(skillID, points int32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.skills[skillID] += points
}

// HasSpell reports whether the character knows spellID.
func (c *Character) HasSpell(spellID int32) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.spells[spellID]
	return ok
}

// LearnSpell adds spellID to the spellbook.
func (c *Character) LearnSpell(spellID int32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.spells[spellID] = struct{}{}
}

// CastSpell records a self-cast. Spell effects live outside this service.
func (c *Character) CastSpell(spellID int32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.casts = append(c.casts, spellID)
}

// CastSpells returns the spells cast so far, oldest first.
func (c *Character) CastSpells() []int32 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]int32, len(c.casts))
	copy(out, c.casts)
	return out
}

// HasTitle reports whether the character owns titleID.
func (c *Character) HasTitle(titleID int32) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.titles[titleID]
	return ok
}

// SetTitle grants titleID.
func (c *Character) SetTitle(titleID int32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.titles[titleID] = struct{}{}
}
