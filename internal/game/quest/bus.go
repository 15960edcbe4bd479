package quest

import "github.com/udisondev/questd/internal/data"

// Observer receives quest events for criteria and achievement tracking.
// Observers run synchronously on the journal's goroutine and must not block.
type Observer interface {
	QuestStatusChanged(questID int32)
	QuestStatusTransition(questID int32, from, to Status)
	ObjectiveChanged(questID int32, objective *data.QuestObjective, from, to int32)
}

// ObserverFuncs adapts optional callbacks to Observer. Nil fields are skipped.
type ObserverFuncs struct {
	OnStatusChanged func(questID int32)
	OnTransition    func(questID int32, from, to Status)
	OnObjective     func(questID int32, objective *data.QuestObjective, from, to int32)
}

func (f ObserverFuncs) QuestStatusChanged(questID int32) {
	if f.OnStatusChanged != nil {
		f.OnStatusChanged(questID)
	}
}

func (f ObserverFuncs) QuestStatusTransition(questID int32, from, to Status) {
	if f.OnTransition != nil {
		f.OnTransition(questID, from, to)
	}
}

func (f ObserverFuncs) ObjectiveChanged(questID int32, objective *data.QuestObjective, from, to int32) {
	if f.OnObjective != nil {
		f.OnObjective(questID, objective, from, to)
	}
}

// bus fans events out to registered observers in registration order.
type bus struct {
	observers []Observer
}

func (b *bus) subscribe(o Observer) {
	b.observers = append(b.observers, o)
}

// statusChanged fires both the generic and the transition notification.
func (b *bus) statusChanged(questID int32, from, to Status) {
	for _, o := range b.observers {
		o.QuestStatusChanged(questID)
	}
	for _, o := range b.observers {
		o.QuestStatusTransition(questID, from, to)
	}
}

func (b *bus) objectiveChanged(questID int32, obj *data.QuestObjective, from, to int32) {
	for _, o := range b.observers {
		o.ObjectiveChanged(questID, obj, from, to)
	}
}
