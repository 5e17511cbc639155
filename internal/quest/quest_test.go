// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package quest

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

// =============================================================================
// PLAN GENERATION TESTS
// =============================================================================

func TestBuildWeekPlan_Shape(t *testing.T) {
	plans, err := BuildWeekPlan([]CategoryKey{CategoryExercise, CategoryLearning, CategoryDiet})
	if err != nil {
		t.Fatalf("BuildWeekPlan failed: %v", err)
	}

	if len(plans) != DaysPerWeek {
		t.Fatalf("expected %d days, got %d", DaysPerWeek, len(plans))
	}

	for i, p := range plans {
		if p.Day != i+1 {
			t.Errorf("day %d has Day=%d", i, p.Day)
		}
		if len(p.Quests) == 0 {
			t.Errorf("day %d has no quests", p.Day)
		}
		if len(p.Quests) > MaxQuestsPerDay {
			t.Errorf("day %d has %d quests, cap is %d", p.Day, len(p.Quests), MaxQuestsPerDay)
		}
		for _, q := range p.Quests {
			if q.Done {
				t.Errorf("quest %s generated as done", q.ID)
			}
			if !q.Enabled {
				t.Errorf("quest %s generated as disabled", q.ID)
			}
			if q.Points != QuestPoints {
				t.Errorf("quest %s has %d points, want %d", q.ID, q.Points, QuestPoints)
			}
			if q.Title == "" {
				t.Errorf("quest %s has empty title", q.ID)
			}
		}
	}
}

func TestBuildWeekPlan_Deterministic(t *testing.T) {
	selected := []CategoryKey{CategorySleep, CategoryFinance}

	a, err := BuildWeekPlan(selected)
	if err != nil {
		t.Fatalf("BuildWeekPlan failed: %v", err)
	}
	b, err := BuildWeekPlan(selected)
	if err != nil {
		t.Fatalf("BuildWeekPlan failed: %v", err)
	}

	if !reflect.DeepEqual(a, b) {
		t.Error("same selection produced different plans")
	}
}

func TestBuildWeekPlan_RotatesAcrossDays(t *testing.T) {
	plans, err := BuildWeekPlan([]CategoryKey{CategoryExercise})
	if err != nil {
		t.Fatalf("BuildWeekPlan failed: %v", err)
	}

	// With a single category the window shifts by one each day, so
	// consecutive days must not show identical boards.
	if plans[0].Quests[0].Title == plans[1].Quests[0].Title {
		t.Error("day 1 and day 2 start with the same title; expected rotation")
	}
}

func TestBuildWeekPlan_WrapsPool(t *testing.T) {
	// Day 7 with several categories pushes the window past the end of the
	// smaller pools; titles must still come from the pool (wrap, not panic).
	selected := []CategoryKey{CategoryLearning, CategoryHabit, CategoryMental}
	plans, err := BuildWeekPlan(selected)
	if err != nil {
		t.Fatalf("BuildWeekPlan failed: %v", err)
	}

	last := plans[DaysPerWeek-1]
	for _, q := range last.Quests {
		pool := Templates(q.Category)
		found := false
		for _, title := range pool {
			if title == q.Title {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("quest title %q not in %s pool", q.Title, q.Category)
		}
	}
}

func TestDayWindow_TinyPools(t *testing.T) {
	// A one-title pool is smaller than the two-title window; the modulo
	// wrap must repeat the title instead of panicking.
	got := dayWindow([]string{"only"}, 5, 2)
	if !reflect.DeepEqual(got, []string{"only", "only"}) {
		t.Errorf("one-title pool window = %v, want [only only]", got)
	}

	got = dayWindow([]string{"a", "b"}, 7, 0)
	if len(got) != 2 || got[0] == got[1] {
		t.Errorf("two-title pool window = %v, want both titles", got)
	}

	if got := dayWindow(nil, 1, 0); got != nil {
		t.Errorf("empty pool window = %v, want nil", got)
	}
}

func TestBuildWeekPlan_EmptySelection(t *testing.T) {
	_, err := BuildWeekPlan(nil)
	if !errors.Is(err, ErrNoCategories) {
		t.Errorf("expected ErrNoCategories, got %v", err)
	}
}

func TestBuildWeekPlan_UnknownCategory(t *testing.T) {
	_, err := BuildWeekPlan([]CategoryKey{"astrology"})
	if err == nil {
		t.Error("expected error for unknown category")
	}
}

func TestTemplatePools_MinimumSize(t *testing.T) {
	for _, c := range AllCategories() {
		if len(Templates(c)) < 6 {
			t.Errorf("category %s has only %d templates", c, len(Templates(c)))
		}
	}
}

// =============================================================================
// RANK TESTS
// =============================================================================

func TestCalculateRank_Boundaries(t *testing.T) {
	testCases := []struct {
		points int
		want   string
	}{
		{0, "Novice"},
		{49, "Novice"},
		{50, "Squire"},
		{99, "Squire"},
		{100, "Knight"},
		{199, "Knight"},
		{200, "Marquis"},
		{499, "Marquis"},
		{500, "Duke"},
		{999, "Duke"},
		{1000, "Sovereign"},
		{999999, "Sovereign"},
		{-10, "Novice"},
	}

	for _, tc := range testCases {
		if got := CalculateRank(tc.points); got.Name != tc.want {
			t.Errorf("CalculateRank(%d) = %s, want %s", tc.points, got.Name, tc.want)
		}
	}
}

func TestPointsToNext(t *testing.T) {
	if got := PointsToNext(0); got != 50 {
		t.Errorf("PointsToNext(0) = %d, want 50", got)
	}
	if got := PointsToNext(120); got != 80 {
		t.Errorf("PointsToNext(120) = %d, want 80", got)
	}
	if got := PointsToNext(1000); got != 0 {
		t.Errorf("PointsToNext(1000) = %d, want 0 at top of ladder", got)
	}
	if _, ok := NextRank(5000); ok {
		t.Error("NextRank above top threshold should report no next rank")
	}
}

// =============================================================================
// PROGRESS TESTS
// =============================================================================

func dayWith(day int, quests ...Quest) DayPlan {
	return DayPlan{Day: day, Quests: quests}
}

func TestDayComplete(t *testing.T) {
	testCases := []struct {
		name string
		plan DayPlan
		want bool
	}{
		{
			name: "all enabled done",
			plan: dayWith(1,
				Quest{Enabled: true, Done: true},
				Quest{Enabled: true, Done: true},
			),
			want: true,
		},
		{
			name: "one enabled not done",
			plan: dayWith(1,
				Quest{Enabled: true, Done: true},
				Quest{Enabled: true, Done: false},
			),
			want: false,
		},
		{
			name: "disabled quests ignored",
			plan: dayWith(1,
				Quest{Enabled: true, Done: true},
				Quest{Enabled: false, Done: false},
			),
			want: true,
		},
		{
			name: "nothing enabled never completes",
			plan: dayWith(1,
				Quest{Enabled: false, Done: true},
				Quest{Enabled: false},
			),
			want: false,
		},
		{
			name: "empty day",
			plan: dayWith(1),
			want: false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := DayComplete(tc.plan); got != tc.want {
				t.Errorf("DayComplete = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestCalculateProgress(t *testing.T) {
	plans := []DayPlan{
		// Complete day: 2 quests done = 20 base + 50 bonus.
		dayWith(1,
			Quest{Enabled: true, Done: true, Points: 10},
			Quest{Enabled: true, Done: true, Points: 10},
		),
		// Incomplete day: 1 of 2 done = 10 base, no bonus.
		dayWith(2,
			Quest{Enabled: true, Done: true, Points: 10},
			Quest{Enabled: true, Done: false, Points: 10},
		),
		// Fully disabled day: done flag contributes nothing.
		dayWith(3,
			Quest{Enabled: false, Done: true, Points: 10},
		),
	}

	p := CalculateProgress(plans)

	if p.BasePoints != 30 {
		t.Errorf("BasePoints = %d, want 30", p.BasePoints)
	}
	if p.BonusDays != 1 {
		t.Errorf("BonusDays = %d, want 1", p.BonusDays)
	}
	if p.TotalPoints != 80 {
		t.Errorf("TotalPoints = %d, want 80", p.TotalPoints)
	}
	if p.Rank.Name != "Squire" {
		t.Errorf("Rank = %s, want Squire", p.Rank.Name)
	}
	if p.ToNext != 20 {
		t.Errorf("ToNext = %d, want 20", p.ToNext)
	}
	// 3 of 4 enabled quests done = 75%.
	if p.WeeklyPct != 75 {
		t.Errorf("WeeklyPct = %d, want 75", p.WeeklyPct)
	}
}

func TestCalculateProgress_Empty(t *testing.T) {
	p := CalculateProgress(nil)
	if p.TotalPoints != 0 || p.WeeklyPct != 0 || p.BonusDays != 0 {
		t.Errorf("empty plan progress = %+v, want zeros", p)
	}
	if p.Rank.Name != "Novice" {
		t.Errorf("empty plan rank = %s, want Novice", p.Rank.Name)
	}
}

// =============================================================================
// TODAY INDEX TESTS
// =============================================================================

func TestTodayIndex(t *testing.T) {
	created := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	testCases := []struct {
		name string
		now  time.Time
		want int
	}{
		{"same moment", created, 0},
		{"later same day", created.Add(23 * time.Hour), 0},
		{"next day", created.Add(25 * time.Hour), 1},
		{"day seven", created.Add(6 * 24 * time.Hour), 6},
		{"past the week clamps", created.Add(40 * 24 * time.Hour), 6},
		{"before creation clamps", created.Add(-time.Hour), 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := TodayIndex(created, tc.now); got != tc.want {
				t.Errorf("TodayIndex = %d, want %d", got, tc.want)
			}
		})
	}
}
