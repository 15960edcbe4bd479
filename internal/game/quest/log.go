package quest

import (
	"log/slog"
	"time"
)

const (
	// MaxQuestLogSize is the number of client-visible quest log slots.
	MaxQuestLogSize = 25
	// MaxQuestCounts is the number of objective counters mirrored per slot.
	MaxQuestCounts = 24
	// maxObjectiveFlags is the number of boolean objectives mirrored per slot.
	maxObjectiveFlags = 32
)

// SlotState is the state flag set of a quest log slot.
type SlotState uint32

const (
	SlotComplete SlotState = 1 << 0
	SlotFail     SlotState = 1 << 1
)

// Has reports whether every bit of f is set.
func (s SlotState) Has(f SlotState) bool { return s&f == f }

// ObjectiveBits holds one bit per boolean objective, keyed by the objective's list position.
type ObjectiveBits uint32

// Has reports whether bit is set.
func (b ObjectiveBits) Has(bit int) bool {
	return bit >= 0 && bit < maxObjectiveFlags && b&(1<<bit) != 0
}

// Slot is one entry of the quest log as shown to the client.
type Slot struct {
	QuestID        int32
	State          SlotState
	EndTime        time.Time // zero unless the quest is timed
	Progress       [MaxQuestCounts]int32
	ObjectiveFlags ObjectiveBits
}

// QuestLog is the fixed-capacity slot array. A quest occupies at most one slot.
type QuestLog struct {
	slots [MaxQuestLogSize]Slot
}

func validSlot(slot int) bool {
	if slot < 0 || slot >= MaxQuestLogSize {
		slog.Error("quest log slot out of range", "slot", slot)
		return false
	}
	return true
}

// FindSlot returns the slot holding questID. FindSlot(0) returns the first free slot.
func (l *QuestLog) FindSlot(questID int32) (int, bool) {
	for i := range l.slots {
		if l.slots[i].QuestID == questID {
			return i, true
		}
	}
	return MaxQuestLogSize, false
}

// HasFreeSlot reports whether another quest fits into the log.
func (l *QuestLog) HasFreeSlot() bool {
	_, ok := l.FindSlot(0)
	return ok
}

// Add resets slot and assigns questID to it.
func (l *QuestLog) Add(slot int, questID int32, endTime time.Time) {
	if !validSlot(slot) {
		return
	}
	l.slots[slot] = Slot{QuestID: questID, EndTime: endTime}
}

// Clear empties slot.
func (l *QuestLog) Clear(slot int) {
	l.Add(slot, 0, time.Time{})
}

// Slot returns a copy of slot.
func (l *QuestLog) Slot(slot int) Slot {
	if !validSlot(slot) {
		return Slot{}
	}
	return l.slots[slot]
}

// QuestID returns the quest held in slot, 0 if empty.
func (l *QuestLog) QuestID(slot int) int32 {
	if !validSlot(slot) {
		return 0
	}
	return l.slots[slot].QuestID
}

// Quests returns the ids of logged quests in slot order.
func (l *QuestLog) Quests() []int32 {
	out := make([]int32, 0, MaxQuestLogSize)
	for i := range l.slots {
		if id := l.slots[i].QuestID; id != 0 {
			out = append(out, id)
		}
	}
	return out
}

// SetEndTime stores the absolute expiry of a timed quest.
func (l *QuestLog) SetEndTime(slot int, end time.Time) {
	if !validSlot(slot) {
		return
	}
	l.slots[slot].EndTime = end
}

// SetState ORs state into the slot flags.
func (l *QuestLog) SetState(slot int, state SlotState) {
	if !validSlot(slot) {
		return
	}
	l.slots[slot].State |= state
}

// RemoveState clears state from the slot flags, leaving other bits alone.
func (l *QuestLog) RemoveState(slot int, state SlotState) {
	if !validSlot(slot) {
		return
	}
	l.slots[slot].State &^= state
}

// SetCounter mirrors a counting objective's value into the slot.
func (l *QuestLog) SetCounter(slot, counter int, value int32) {
	if !validSlot(slot) {
		return
	}
	if counter < 0 || counter >= MaxQuestCounts {
		slog.Error("quest log counter out of range", "slot", slot, "counter", counter)
		return
	}
	l.slots[slot].Progress[counter] = value
}

// SetObjectiveFlag marks a boolean objective as done.
func (l *QuestLog) SetObjectiveFlag(slot, bit int) {
	if !validSlot(slot) || !validFlagBit(slot, bit) {
		return
	}
	l.slots[slot].ObjectiveFlags |= 1 << bit
}

// RemoveObjectiveFlag marks a boolean objective as not done.
func (l *QuestLog) RemoveObjectiveFlag(slot, bit int) {
	if !validSlot(slot) || !validFlagBit(slot, bit) {
		return
	}
	l.slots[slot].ObjectiveFlags &^= 1 << bit
}

func validFlagBit(slot, bit int) bool {
	if bit < 0 || bit >= maxObjectiveFlags {
		slog.Error("quest log objective flag out of range", "slot", slot, "bit", bit)
		return false
	}
	return true
}
