package quest

import (
	"slices"
	"time"
)

// Status is the lifecycle state of a quest for one character.
// Values are persisted and must stay stable.
type Status uint8

const (
	StatusNone       Status = 0
	StatusComplete   Status = 1
	StatusIncomplete Status = 3
	StatusFailed     Status = 5
	StatusRewarded   Status = 6
)

func (s Status) String() string {
	switch s {
	case StatusNone:
		return "none"
	case StatusComplete:
		return "complete"
	case StatusIncomplete:
		return "incomplete"
	case StatusFailed:
		return "failed"
	case StatusRewarded:
		return "rewarded"
	default:
		return "unknown"
	}
}

// isActive reports whether a record with this status belongs in the active map.
func (s Status) isActive() bool {
	return s == StatusIncomplete || s == StatusComplete || s == StatusFailed
}

// SaveType tells the persistence layer how to synchronize a row on the next flush.
type SaveType uint8

const (
	SaveDefault     SaveType = iota // insert or update
	SaveDelete                      // row removed by a normal transition
	SaveForceDelete                 // row removed by an administrative revert
)

func (s SaveType) String() string {
	switch s {
	case SaveDefault:
		return "default"
	case SaveDelete:
		return "delete"
	case SaveForceDelete:
		return "force_delete"
	default:
		return "unknown"
	}
}

// StatusRecord tracks one accepted quest.
// ObjectiveData is indexed by objective storage index.
type StatusRecord struct {
	Status        Status
	ObjectiveData []int32
	Timer         time.Duration // remaining time for timed quests, 0 = none or expired
	Slot          int
}

func (r *StatusRecord) clone() StatusRecord {
	c := *r
	c.ObjectiveData = slices.Clone(r.ObjectiveData)
	return c
}
