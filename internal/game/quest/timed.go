package quest

import (
	"log/slog"
	"time"
)

// Update advances quest timers by diff. A timer that runs out fails its quest
// through FailQuest.
func (j *Journal) Update(diff time.Duration) {
	if len(j.timed) == 0 || diff <= 0 {
		return
	}
	for _, questID := range j.timed.sorted() {
		rec, ok := j.statuses[questID]
		if !ok {
			j.invariant("timed quest without status record", "questID", questID)
			delete(j.timed, questID)
			continue
		}
		if rec.Timer <= diff {
			if err := j.FailQuest(questID); err != nil {
				slog.Error("failing expired quest", "characterID", j.CharacterID(), "questID", questID, "error", err)
			}
			// Квест мог не провалиться (например, уже выполнен): таймер всё равно снят.
			if j.timed.has(questID) {
				delete(j.timed, questID)
				rec.Timer = 0
				j.markSave(questID)
			}
			continue
		}
		rec.Timer -= diff
		j.markSave(questID)
	}
}

// RemainingTime returns the time left on a timed quest.
func (j *Journal) RemainingTime(questID int32) time.Duration {
	if rec, ok := j.statuses[questID]; ok {
		return rec.Timer
	}
	return 0
}
