// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package state persists the planner AppState as a single JSON document.
//
// The record is read and written whole: every mutation loads the current
// state, applies the change, and rewrites the file atomically. Last write
// wins; a corrupt or missing file is treated as "no plan yet" rather than
// an error, so a damaged store degrades to a fresh start instead of
// blocking the application.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jeranaias/questrun/internal/quest"
	"github.com/jeranaias/questrun/internal/util"
)

// StateFileName is the on-disk name of the planner record.
const StateFileName = "growth-planner-v1.json"

// =============================================================================
// ERRORS
// =============================================================================

// ErrNoPlan is returned by mutations when no plan has been generated yet.
// Use errors.Is(err, ErrNoPlan) to check for this error.
var ErrNoPlan = &StateError{Message: "no plan exists"}

// ErrDayOutOfRange is returned when a day outside 1-7 is addressed.
var ErrDayOutOfRange = &StateError{Message: "day out of range"}

// StateError represents a planner-state error.
// It implements the error interface and can be compared using errors.Is.
type StateError struct {
	Message string
}

// Error implements the error interface.
func (e *StateError) Error() string {
	return e.Message
}

// Is implements errors.Is support for comparing state errors.
func (e *StateError) Is(target error) bool {
	t, ok := target.(*StateError)
	if !ok {
		return false
	}
	return e.Message == t.Message
}

// =============================================================================
// STORE
// =============================================================================

// Store handles planner-state persistence.
type Store struct {
	mu   sync.Mutex
	path string
}

// NewStore creates a store rooted at the default data directory
// (~/.questrun).
func NewStore() (*Store, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	return NewStoreWithDir(filepath.Join(homeDir, ".questrun"))
}

// NewStoreWithDir creates a store with a custom data directory.
func NewStoreWithDir(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &Store{path: filepath.Join(dir, StateFileName)}, nil
}

// Path returns the file the store reads and writes.
func (s *Store) Path() string {
	return s.path
}

// Load reads the current state. A missing or unparseable file yields
// (nil, nil): both mean "start fresh".
func (s *Store) Load() (*quest.AppState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *Store) load() (*quest.AppState, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var st quest.AppState
	if err := json.Unmarshal(data, &st); err != nil {
		// Corrupt record reads as absent.
		return nil, nil
	}
	return &st, nil
}

// Save rewrites the whole record atomically.
func (s *Store) Save(st *quest.AppState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(st)
}

func (s *Store) save(st *quest.AppState) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	// RELIABILITY: Atomic write with fsync prevents data loss on crash
	return util.AtomicWriteFile(s.path, data, 0644)
}

// Reset deletes the stored record. Resetting an absent store is a no-op.
func (s *Store) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// =============================================================================
// MUTATIONS
// =============================================================================

// InitPlan generates a fresh week plan from the selected categories and
// replaces any existing state. The theme of the previous state survives.
func (s *Store) InitPlan(selected []quest.CategoryKey, now time.Time) (*quest.AppState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	plans, err := quest.BuildWeekPlan(selected)
	if err != nil {
		return nil, err
	}

	theme := quest.DefaultTheme()
	if prev, err := s.load(); err == nil && prev != nil {
		theme = prev.Theme
	}

	st := &quest.AppState{
		SelectedCategories: selected,
		Plans:              plans,
		CreatedAt:          now,
		Theme:              theme,
	}
	if err := s.save(st); err != nil {
		return nil, err
	}
	return st, nil
}

// ToggleDone flips a quest's done flag. Disabled or missing quests are
// left untouched and the unchanged state is returned.
func (s *Store) ToggleDone(day int, questID string) (*quest.AppState, error) {
	return s.mutateDay(day, func(p *quest.DayPlan) {
		for i := range p.Quests {
			q := &p.Quests[i]
			if q.ID == questID && q.Enabled {
				q.Done = !q.Done
				return
			}
		}
	})
}

// ToggleEnabled flips a quest's enabled flag. Disabling a quest forces
// done back to false so a hidden quest can never keep scoring.
func (s *Store) ToggleEnabled(day int, questID string) (*quest.AppState, error) {
	return s.mutateDay(day, func(p *quest.DayPlan) {
		for i := range p.Quests {
			q := &p.Quests[i]
			if q.ID == questID {
				q.Enabled = !q.Enabled
				if !q.Enabled {
					q.Done = false
				}
				return
			}
		}
	})
}

// SetDayEnabledAll enables or disables every quest on a day. Disabling
// clears done flags; re-enabling preserves whatever done state remains.
func (s *Store) SetDayEnabledAll(day int, enabled bool) (*quest.AppState, error) {
	return s.mutateDay(day, func(p *quest.DayPlan) {
		for i := range p.Quests {
			p.Quests[i].Enabled = enabled
			if !enabled {
				p.Quests[i].Done = false
			}
		}
	})
}

// AddQuest appends a custom quest to a day's board. The quest starts
// enabled, not done, at the standard point value.
func (s *Store) AddQuest(day int, title string, category quest.CategoryKey) (*quest.AppState, error) {
	return s.mutateDay(day, func(p *quest.DayPlan) {
		p.Quests = append(p.Quests, quest.Quest{
			ID:       fmt.Sprintf("custom-%d-%d", day, time.Now().UnixMilli()),
			Title:    title,
			Done:     false,
			Enabled:  true,
			Category: category,
			Points:   quest.QuestPoints,
		})
	})
}

// SetTheme updates the stored display theme.
func (s *Store) SetTheme(theme quest.Theme) (*quest.AppState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.load()
	if err != nil {
		return nil, err
	}
	if st == nil {
		st = &quest.AppState{Theme: theme}
	} else {
		st.Theme = theme
	}
	if err := s.save(st); err != nil {
		return nil, err
	}
	return st, nil
}

// mutateDay loads the state, applies fn to the addressed day, and saves.
func (s *Store) mutateDay(day int, fn func(*quest.DayPlan)) (*quest.AppState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.load()
	if err != nil {
		return nil, err
	}
	if st == nil || len(st.Plans) == 0 {
		return nil, ErrNoPlan
	}
	if day < 1 || day > len(st.Plans) {
		return nil, ErrDayOutOfRange
	}

	for i := range st.Plans {
		if st.Plans[i].Day == day {
			fn(&st.Plans[i])
			break
		}
	}

	if err := s.save(st); err != nil {
		return nil, err
	}
	return st, nil
}
