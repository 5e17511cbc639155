// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package state

import (
	"os"
	"path/filepath"
	"testing"
)

func TestPrefs_DefaultsWhenAbsent(t *testing.T) {
	s := NewPrefsStoreWithDir(t.TempDir())

	p, err := s.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if p.ResponseFormat != ResponseFormatBullets {
		t.Errorf("default format = %q, want %q", p.ResponseFormat, ResponseFormatBullets)
	}
}

func TestPrefs_RoundTrip(t *testing.T) {
	s := NewPrefsStoreWithDir(t.TempDir())

	if err := s.Save(&Prefs{ResponseFormat: ResponseFormatFreeform}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	p, err := s.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if p.ResponseFormat != ResponseFormatFreeform {
		t.Errorf("format = %q, want freeform", p.ResponseFormat)
	}
}

func TestPrefs_CorruptFileYieldsDefaults(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, PrefsFileName), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	s := NewPrefsStoreWithDir(dir)
	p, err := s.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if p.ResponseFormat != ResponseFormatBullets {
		t.Errorf("format = %q, want bullets", p.ResponseFormat)
	}
}

func TestPrefs_UnknownFormatNormalized(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, PrefsFileName), []byte(`{"responseFormat":"haiku"}`), 0644); err != nil {
		t.Fatal(err)
	}

	s := NewPrefsStoreWithDir(dir)
	p, err := s.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if p.ResponseFormat != ResponseFormatBullets {
		t.Errorf("format = %q, want bullets", p.ResponseFormat)
	}
}
