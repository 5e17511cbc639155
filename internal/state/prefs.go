// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package state

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/jeranaias/questrun/internal/util"
)

// PrefsFileName is the preferences file under the data directory.
const PrefsFileName = "prefs.json"

// Response format preference values.
const (
	ResponseFormatBullets  = "bullets"
	ResponseFormatFreeform = "freeform"
)

// ValidResponseFormat reports whether s is a known response format.
func ValidResponseFormat(s string) bool {
	return s == ResponseFormatBullets || s == ResponseFormatFreeform
}

// Prefs holds small user preferences kept separate from the plan state so
// a prefs write never rewrites the plan record.
type Prefs struct {
	ResponseFormat string `json:"responseFormat"`
}

// DefaultPrefs returns the preference defaults.
func DefaultPrefs() *Prefs {
	return &Prefs{ResponseFormat: ResponseFormatBullets}
}

// PrefsStore persists Prefs as a JSON file.
type PrefsStore struct {
	mu   sync.Mutex
	path string
}

// NewPrefsStore creates a store under ~/.questrun.
func NewPrefsStore() (*PrefsStore, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	return NewPrefsStoreWithDir(filepath.Join(home, ".questrun")), nil
}

// NewPrefsStoreWithDir creates a store rooted at the given directory.
func NewPrefsStoreWithDir(dir string) *PrefsStore {
	return &PrefsStore{path: filepath.Join(dir, PrefsFileName)}
}

// Load reads the preferences. An absent or corrupt file yields defaults.
func (s *PrefsStore) Load() (*Prefs, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultPrefs(), nil
		}
		return nil, err
	}

	var p Prefs
	if err := json.Unmarshal(data, &p); err != nil {
		// Corrupt prefs are not worth failing over; start fresh.
		return DefaultPrefs(), nil
	}
	if !ValidResponseFormat(p.ResponseFormat) {
		p.ResponseFormat = ResponseFormatBullets
	}
	return &p, nil
}

// Save writes the preferences atomically.
func (s *PrefsStore) Save(p *Prefs) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}
	return util.AtomicWriteFile(s.path, data, 0644)
}
