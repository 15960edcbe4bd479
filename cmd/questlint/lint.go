package main

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"text/tabwriter"

	"github.com/udisondev/questd/internal/data"
)

// Report is the outcome of linting a template set.
type Report struct {
	Quests     int
	Daily      int
	Weekly     int
	Monthly    int
	Seasonal   int
	Dungeon    int
	Timed      int
	Groups     int
	Objectives int

	Errors   []string
	Warnings []string
}

// Lint checks cross-quest consistency that the loader accepts.
func Lint(store *data.Store) Report {
	var r Report
	quests := store.Quests()

	groups := make(map[int32]int)
	bits := make(map[int32]int32)
	for _, q := range quests {
		r.Quests++
		r.Objectives += len(q.Objectives)
		switch {
		case q.IsDFQuest():
			r.Dungeon++
		case q.IsDaily():
			r.Daily++
		case q.IsWeekly():
			r.Weekly++
		case q.IsMonthly():
			r.Monthly++
		case q.IsSeasonal():
			r.Seasonal++
		}
		if q.IsTimed() {
			r.Timed++
		}
		if q.ExclusiveGroup != 0 {
			groups[q.ExclusiveGroup]++
		}

		if q.UniqueBit != 0 {
			if other, dup := bits[q.UniqueBit]; dup {
				r.Errors = append(r.Errors, fmt.Sprintf("quest %d: unique bit %d already used by quest %d", q.ID, q.UniqueBit, other))
			}
			bits[q.UniqueBit] = q.ID
			if !q.IsDaily() && !q.IsWeekly() && !q.IsMonthly() {
				r.Warnings = append(r.Warnings, fmt.Sprintf("quest %d: unique bit %d is never reset", q.ID, q.UniqueBit))
			}
		}

		if cycle := nextCycle(store, q); cycle != nil {
			r.Errors = append(r.Errors, fmt.Sprintf("quest %d: next_quest chain loops: %v", q.ID, cycle))
		}

		if q.IsAutoComplete() && len(q.Objectives) > 0 {
			r.Warnings = append(r.Warnings, fmt.Sprintf("quest %d: auto-complete quest has %d objectives", q.ID, len(q.Objectives)))
		}
		if q.RewardMoney < 0 && q.IsAutoComplete() {
			r.Warnings = append(r.Warnings, fmt.Sprintf("quest %d: auto-complete quest requires money", q.ID))
		}
	}

	for _, g := range slices.Sorted(maps.Keys(groups)) {
		r.Groups++
		if groups[g] < 2 {
			r.Warnings = append(r.Warnings, fmt.Sprintf("exclusive group %d has a single quest", g))
		}
	}
	return r
}

// nextCycle follows NextQuestID from q and returns the loop if it comes back to q.
func nextCycle(store *data.Store, q *data.QuestTemplate) []int32 {
	path := []int32{q.ID}
	seen := map[int32]bool{q.ID: true}
	for cur := q; cur.NextQuestID != 0; {
		next := store.Quest(cur.NextQuestID)
		if next == nil {
			return nil
		}
		path = append(path, next.ID)
		if next.ID == q.ID {
			return path
		}
		if seen[next.ID] {
			return nil // петля дальше по цепочке, её найдёт её участник
		}
		seen[next.ID] = true
		cur = next
	}
	return nil
}

// Print writes the summary table followed by errors and warnings.
func (r Report) Print(w io.Writer) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "quests\t%d\n", r.Quests)
	fmt.Fprintf(tw, "objectives\t%d\n", r.Objectives)
	fmt.Fprintf(tw, "daily\t%d\n", r.Daily)
	fmt.Fprintf(tw, "dungeon finder\t%d\n", r.Dungeon)
	fmt.Fprintf(tw, "weekly\t%d\n", r.Weekly)
	fmt.Fprintf(tw, "monthly\t%d\n", r.Monthly)
	fmt.Fprintf(tw, "seasonal\t%d\n", r.Seasonal)
	fmt.Fprintf(tw, "timed\t%d\n", r.Timed)
	fmt.Fprintf(tw, "exclusive groups\t%d\n", r.Groups)
	tw.Flush()

	for _, e := range r.Errors {
		fmt.Fprintf(w, "error: %s\n", e)
	}
	for _, wn := range r.Warnings {
		fmt.Fprintf(w, "warning: %s\n", wn)
	}
}
