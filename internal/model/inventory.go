package model

import (
	"slices"
	"sync"
)

// StoreResult is the outcome of an inventory capacity check.
type StoreResult uint8

const (
	StoreOK StoreResult = iota
	StoreInventoryFull
	StoreMaxCount   // already holding the maximum allowed count of this item
	StoreUnknownItem
	StoreItemLocked // equipped items cannot be removed
)

func (r StoreResult) String() string {
	switch r {
	case StoreOK:
		return "ok"
	case StoreInventoryFull:
		return "inventory full"
	case StoreMaxCount:
		return "max count"
	case StoreUnknownItem:
		return "unknown item"
	case StoreItemLocked:
		return "item locked"
	default:
		return "unknown"
	}
}

// DefaultInventorySlots is the bag capacity of a fresh character.
const DefaultInventorySlots = 80

// Inventory хранит предметы персонажа, сгруппированные по item ID.
// Each stack of up to MaxStack items occupies one slot.
type Inventory struct {
	ownerID  int64
	catalog  ItemCatalog
	capacity int

	counts map[int32]int32 // itemID → total count
	locked map[int32]int32 // itemID → equipped count

	mu sync.RWMutex
}

// NewInventory creates an empty inventory with the given slot capacity.
func NewInventory(ownerID int64, catalog ItemCatalog, capacity int) *Inventory {
	return &Inventory{
		ownerID:  ownerID,
		catalog:  catalog,
		capacity: capacity,
		counts:   make(map[int32]int32),
		locked:   make(map[int32]int32),
	}
}

// OwnerID returns the owning character id.
func (inv *Inventory) OwnerID() int64 {
	return inv.ownerID
}

// ItemCount returns how many items of itemID the inventory holds.
func (inv *Inventory) ItemCount(itemID int32) int32 {
	inv.mu.RLock()
	defer inv.mu.RUnlock()
	return inv.counts[itemID]
}

// UsedSlots returns the number of occupied slots.
func (inv *Inventory) UsedSlots() int {
	inv.mu.RLock()
	defer inv.mu.RUnlock()
	return inv.usedSlotsLocked()
}

func (inv *Inventory) usedSlotsLocked() int {
	used := 0
	for id, n := range inv.counts {
		used += inv.slotsFor(id, n)
	}
	return used
}

func (inv *Inventory) slotsFor(itemID, count int32) int {
	if count <= 0 {
		return 0
	}
	stack := int32(1)
	if t := inv.catalog.Lookup(itemID); t != nil {
		stack = t.stackSize()
	}
	return int((count + stack - 1) / stack)
}

// CanStore checks whether count items of itemID fit.
func (inv *Inventory) CanStore(itemID, count int32) StoreResult {
	inv.mu.RLock()
	defer inv.mu.RUnlock()
	return inv.canStoreLocked(itemID, count)
}

func (inv *Inventory) canStoreLocked(itemID, count int32) StoreResult {
	t := inv.catalog.Lookup(itemID)
	if t == nil {
		return StoreUnknownItem
	}
	have := inv.counts[itemID]
	if t.MaxCount > 0 && have+count > t.MaxCount {
		return StoreMaxCount
	}
	extra := inv.slotsFor(itemID, have+count) - inv.slotsFor(itemID, have)
	if inv.usedSlotsLocked()+extra > inv.capacity {
		return StoreInventoryFull
	}
	return StoreOK
}

// Store adds count items of itemID if they fit.
func (inv *Inventory) Store(itemID, count int32) StoreResult {
	if count <= 0 {
		return StoreOK
	}
	inv.mu.Lock()
	defer inv.mu.Unlock()

	if res := inv.canStoreLocked(itemID, count); res != StoreOK {
		return res
	}
	inv.counts[itemID] += count
	return StoreOK
}

// Destroy removes up to count unequipped items of itemID and returns how many were removed.
func (inv *Inventory) Destroy(itemID, count int32) int32 {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	free := inv.counts[itemID] - inv.locked[itemID]
	if count > free {
		count = free
	}
	if count <= 0 {
		return 0
	}
	inv.counts[itemID] -= count
	if inv.counts[itemID] == 0 {
		delete(inv.counts, itemID)
	}
	return count
}

// CanUnequip reports whether count items of itemID can be taken out of the inventory.
func (inv *Inventory) CanUnequip(itemID, count int32) StoreResult {
	inv.mu.RLock()
	defer inv.mu.RUnlock()

	if inv.locked[itemID] > 0 && inv.counts[itemID]-inv.locked[itemID] < count {
		return StoreItemLocked
	}
	return StoreOK
}

// Equip locks one item of itemID in place. Returns false if none is free.
func (inv *Inventory) Equip(itemID int32) bool {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	if inv.counts[itemID]-inv.locked[itemID] <= 0 {
		return false
	}
	inv.locked[itemID]++
	return true
}

// Unequip releases one locked item of itemID.
func (inv *Inventory) Unequip(itemID int32) {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	if inv.locked[itemID] > 0 {
		inv.locked[itemID]--
		if inv.locked[itemID] == 0 {
			delete(inv.locked, itemID)
		}
	}
}

// IsQuestBound reports whether itemID only exists for a quest.
func (inv *Inventory) IsQuestBound(itemID int32) bool {
	t := inv.catalog.Lookup(itemID)
	return t != nil && t.QuestBound
}

// ClassMask returns the item's usable class mask (0 = any).
func (inv *Inventory) ClassMask(itemID int32) uint32 {
	if t := inv.catalog.Lookup(itemID); t != nil {
		return t.ClassMask
	}
	return 0
}

// UsableByLootSpec reports whether itemID is offered to a character with specID.
func (inv *Inventory) UsableByLootSpec(itemID, specID int32) bool {
	t := inv.catalog.Lookup(itemID)
	if t == nil {
		return false
	}
	return len(t.LootSpecs) == 0 || slices.Contains(t.LootSpecs, specID)
}

// StartQuest returns the quest id that itemID starts, or 0.
func (inv *Inventory) StartQuest(itemID int32) int32 {
	if t := inv.catalog.Lookup(itemID); t != nil {
		return t.StartQuestID
	}
	return 0
}
