package model

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/udisondev/questd/internal/data"
)

func TestNewCharacter(t *testing.T) {
	inv := NewInventory(5, testCatalog(), DefaultInventorySlots)
	c := NewCharacter(CharacterInfo{ID: 5, Name: "Arthas", Race: 1, Class: 2, FactionGroup: 1, Level: 3}, inv)

	assert.Equal(t, int64(5), c.CharacterID())
	assert.Equal(t, "Arthas", c.Name())
	assert.Equal(t, int32(1), c.Race())
	assert.Equal(t, int32(2), c.Class())
	assert.Equal(t, int32(1), c.FactionGroup())
	assert.Equal(t, int32(3), c.Level())
	assert.Equal(t, data.ExperienceForLevel(3), c.Experience())
	assert.Same(t, inv, c.Inventory())
	assert.False(t, c.IsMaxLevel())

	zero := NewCharacter(CharacterInfo{ID: 6}, nil)
	assert.Equal(t, int32(1), zero.Level())
}

func TestCharacter_GiveXP(t *testing.T) {
	c := NewCharacter(CharacterInfo{ID: 1, Level: 1, MaxLevel: 3}, nil)

	c.GiveXP(-10)
	assert.Zero(t, c.Experience())

	c.GiveXP(data.ExperienceForLevel(2))
	assert.Equal(t, int32(2), c.Level())

	c.GiveXP(1 << 30)
	assert.Equal(t, int32(3), c.Level())
	assert.True(t, c.IsMaxLevel())

	xp := c.Experience()
	c.GiveXP(100)
	assert.Equal(t, xp, c.Experience(), "no xp at the level cap")

	c.SetLevel(99)
	assert.Equal(t, int32(3), c.Level())
	c.SetLevel(0)
	assert.Equal(t, int32(1), c.Level())
	assert.Zero(t, c.Experience())
}

func TestCharacter_Wallet(t *testing.T) {
	c := NewCharacter(CharacterInfo{ID: 1}, nil)

	c.ModifyMoney(500)
	c.ModifyMoney(-700)
	assert.Zero(t, c.Money(), "money never goes negative")

	c.ModifyCurrency(390, 20)
	c.ModifyCurrency(390, -5)
	assert.Equal(t, int32(15), c.Currency(390))
	c.ModifyCurrency(390, -50)
	assert.Zero(t, c.Currency(390))

	c.RewardHonor(30)
	c.RewardHonor(12)
	assert.Equal(t, int64(42), c.Honor())

	c.ModifyReputation(72, 250)
	c.ModifyReputation(72, -100)
	assert.Equal(t, int32(150), c.Reputation(72))
}

func TestCharacter_SpellsAndTitles(t *testing.T) {
	c := NewCharacter(CharacterInfo{ID: 1}, nil)

	assert.False(t, c.HasSpell(133))
	c.LearnSpell(133)
	assert.True(t, c.HasSpell(133))

	c.CastSpell(10)
	c.CastSpell(11)
	casts := c.CastSpells()
	assert.Equal(t, []int32{10, 11}, casts)
	casts[0] = 99
	assert.Equal(t, []int32{10, 11}, c.CastSpells(), "returns a copy")

	c.SetTitle(4)
	assert.True(t, c.HasTitle(4))
	assert.False(t, c.HasTitle(5))

	c.UpdateSkill(164, 5)
	c.UpdateSkill(164, 2)
	assert.Equal(t, int32(7), c.SkillValue(164))

	c.SetLootSpecialization(63)
	assert.Equal(t, int32(63), c.LootSpecialization())
}
