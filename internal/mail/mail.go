// Package mail queues character mail produced by the quest core and hands it
// to persistent storage off the world goroutine.
package mail

import (
	"time"

	"github.com/google/uuid"

	"github.com/udisondev/questd/internal/data"
)

// Kind tells why a mail was sent.
type Kind uint8

const (
	KindQuestReward   Kind = iota + 1 // template mail attached to a quest
	KindItemRetrieval                 // reward items that did not fit the bags
)

func (k Kind) String() string {
	switch k {
	case KindQuestReward:
		return "quest_reward"
	case KindItemRetrieval:
		return "item_retrieval"
	default:
		return "unknown"
	}
}

// Mail is a single letter addressed to a character.
type Mail struct {
	ID          uuid.UUID
	CharacterID int64
	Kind        Kind
	QuestID     int32
	TemplateID  int32
	SenderEntry int32
	Items       []data.ItemCount
	Money       int64
	DeliverAt   time.Time
}
