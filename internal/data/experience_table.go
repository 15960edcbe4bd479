package data

// MaxPlayerLevel is the level cap used when the configuration does not override it.
const MaxPlayerLevel = 80

// experienceTable holds cumulative XP required to reach each level.
// Index = level. Level 0 and 1 require 0 XP.
var experienceTable = buildExperienceTable()

func buildExperienceTable() [MaxPlayerLevel + 2]int64 {
	var t [MaxPlayerLevel + 2]int64
	for lvl := 2; lvl < len(t); lvl++ {
		// Кривая: каждый уровень дороже предыдущего квадратично.
		prev := int64(lvl - 1)
		t[lvl] = t[lvl-1] + 40*prev*prev + 360*prev
	}
	return t
}

// ExperienceForLevel returns cumulative XP needed to reach level.
// Levels outside the table are clamped.
func ExperienceForLevel(level int32) int64 {
	if level < 0 {
		return 0
	}
	if int(level) >= len(experienceTable) {
		return experienceTable[len(experienceTable)-1]
	}
	return experienceTable[level]
}

// LevelForExperience returns the highest level whose threshold xp reaches, capped at maxLevel.
func LevelForExperience(xp int64, maxLevel int32) int32 {
	lvl := int32(1)
	for lvl < maxLevel && int(lvl+1) < len(experienceTable) && xp >= experienceTable[lvl+1] {
		lvl++
	}
	return lvl
}
