// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package quest

import (
	"errors"
	"fmt"
)

// =============================================================================
// WEEK PLAN GENERATION
// =============================================================================

const (
	// DaysPerWeek is the fixed length of a generated plan.
	DaysPerWeek = 7

	// MaxQuestsPerDay caps how many quests a day's board can hold.
	MaxQuestsPerDay = 5

	// QuestPoints is the base point value of every generated quest.
	QuestPoints = 10
)

// ErrNoCategories is returned when plan generation is requested without
// any selected categories.
var ErrNoCategories = errors.New("no categories selected")

// BuildWeekPlan deterministically generates a 7-day plan from the selected
// categories. For each day, every category contributes a wrapping window of
// two titles from its template pool, offset by both the day number and the
// category's position in the selection. The concatenated list is then capped
// at MaxQuestsPerDay.
//
// The same selection always produces the same plan. All generated quests
// start enabled and not done.
func BuildWeekPlan(selected []CategoryKey) ([]DayPlan, error) {
	if len(selected) == 0 {
		return nil, ErrNoCategories
	}
	for _, c := range selected {
		if !c.Valid() {
			return nil, fmt.Errorf("unknown category %q", c)
		}
	}

	plans := make([]DayPlan, 0, DaysPerWeek)
	for day := 1; day <= DaysPerWeek; day++ {
		var quests []Quest
		for idx, cat := range selected {
			for offset, title := range dayWindow(Templates(cat), day, idx) {
				quests = append(quests, Quest{
					ID:       fmt.Sprintf("d%d-%s-%d", day, cat, offset),
					Title:    title,
					Done:     false,
					Enabled:  true,
					Category: cat,
					Points:   QuestPoints,
				})
			}
		}
		if len(quests) > MaxQuestsPerDay {
			quests = quests[:MaxQuestsPerDay]
		}
		plans = append(plans, DayPlan{Day: day, Quests: quests})
	}

	return plans, nil
}

// dayWindow returns the two wrapping titles a category contributes on a
// given day, offset by the category's position in the selection. Pools
// shorter than the window repeat titles rather than running out.
func dayWindow(pool []string, day, idx int) []string {
	if len(pool) == 0 {
		return nil
	}
	base := (day + idx) % len(pool)
	titles := make([]string, 0, 2)
	for offset := 0; offset < 2; offset++ {
		titles = append(titles, pool[(base+offset)%len(pool)])
	}
	return titles
}
