// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package quest defines the growth-planner domain model: categories,
// quests, week plans, and the points/rank progression rules.
package quest

import (
	"time"
)

// =============================================================================
// CATEGORIES
// =============================================================================

// CategoryKey identifies a self-improvement category.
type CategoryKey string

// The closed set of categories a plan can be built from.
const (
	CategoryExercise  CategoryKey = "exercise"
	CategoryLearning  CategoryKey = "learning"
	CategoryHabit     CategoryKey = "habit"
	CategoryFaith     CategoryKey = "faith"
	CategoryCharacter CategoryKey = "character"
	CategoryFinance   CategoryKey = "finance"
	CategorySleep     CategoryKey = "sleep"
	CategoryDiet      CategoryKey = "diet"
	CategoryMental    CategoryKey = "mental"
)

// AllCategories returns every selectable category in display order.
func AllCategories() []CategoryKey {
	return []CategoryKey{
		CategoryExercise,
		CategoryLearning,
		CategoryHabit,
		CategoryFaith,
		CategoryCharacter,
		CategoryFinance,
		CategorySleep,
		CategoryDiet,
		CategoryMental,
	}
}

// categoryLabels maps category keys to their display names.
var categoryLabels = map[CategoryKey]string{
	CategoryExercise:  "Exercise",
	CategoryLearning:  "Learning",
	CategoryHabit:     "Habits",
	CategoryFaith:     "Faith",
	CategoryCharacter: "Character",
	CategoryFinance:   "Finance",
	CategorySleep:     "Sleep",
	CategoryDiet:      "Diet",
	CategoryMental:    "Mental Care",
}

// Label returns the human-readable name for the category.
// Unknown keys fall back to the raw key string.
func (c CategoryKey) Label() string {
	if label, ok := categoryLabels[c]; ok {
		return label
	}
	return string(c)
}

// Valid reports whether the key names a known category.
func (c CategoryKey) Valid() bool {
	_, ok := categoryLabels[c]
	return ok
}

// =============================================================================
// QUESTS AND PLANS
// =============================================================================

// Quest is a single actionable item on a day's board.
type Quest struct {
	ID       string      `json:"id"`
	Title    string      `json:"title"`
	Done     bool        `json:"done"`
	Enabled  bool        `json:"enabled"`
	Category CategoryKey `json:"category"`
	Points   int         `json:"points"`
	Progress int         `json:"progress,omitempty"`
	Locked   bool        `json:"locked,omitempty"`
	Note     string      `json:"note,omitempty"`
}

// DayPlan holds the quests scheduled for one day of the week (1-7).
type DayPlan struct {
	Day    int     `json:"day"`
	Quests []Quest `json:"quests"`
}

// Theme is the stored display preference for the board.
type Theme struct {
	BackgroundColor string `json:"backgroundColor"`
	TextColor       string `json:"textColor"`
}

// DefaultTheme returns the light theme used before any preference is saved.
func DefaultTheme() Theme {
	return Theme{BackgroundColor: "#ffffff", TextColor: "#000000"}
}

// AppState is the whole-record planner state persisted as a single document.
// Last write wins; there is no merge.
type AppState struct {
	SelectedCategories []CategoryKey `json:"selectedCategories"`
	Plans              []DayPlan     `json:"plans"`
	CreatedAt          time.Time     `json:"createdAt"`
	Theme              Theme         `json:"theme"`
}

// TodayIndex returns the zero-based index of the current plan day,
// clamped into [0, 6] so a stale plan still resolves to the last day.
func TodayIndex(createdAt, now time.Time) int {
	if createdAt.IsZero() || now.Before(createdAt) {
		return 0
	}
	idx := int(now.Sub(createdAt).Hours() / 24)
	if idx < 0 {
		return 0
	}
	if idx > 6 {
		return 6
	}
	return idx
}
