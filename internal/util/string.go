// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small shared helpers for the questrun application.
package util

// UNICODE: Rune-aware truncation preserves multi-byte characters.
// These functions count characters, not bytes, preventing mid-character
// truncation that would corrupt UTF-8 strings.

// TruncateRunesEllipsis truncates a string to maxRunes runes and appends
// "..." after the cut, growing the result beyond maxRunes. This matches
// title derivation, where the marker is additive rather than budgeted.
func TruncateRunesEllipsis(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return "..."
	}
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	return string(runes[:maxRunes]) + "..."
}

// TruncateRunesNoEllipsis truncates a string to a maximum number of runes
// without appending an ellipsis.
func TruncateRunesNoEllipsis(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	return string(runes[:maxRunes])
}

// StringWidth returns the display width of a string.
// Double-width characters (CJK) count as 2 columns.
func StringWidth(s string) int {
	width := 0
	for _, r := range s {
		width += runeWidth(r)
	}
	return width
}

// runeWidth returns the display width of a rune.
// Returns 2 for common CJK characters, 1 for others.
// For full support, use github.com/mattn/go-runewidth.
func runeWidth(r rune) int {
	// Common CJK ranges (simplified check)
	// CJK Unified Ideographs
	if r >= 0x4E00 && r <= 0x9FFF {
		return 2
	}
	// CJK Unified Ideographs Extension A
	if r >= 0x3400 && r <= 0x4DBF {
		return 2
	}
	// Hiragana
	if r >= 0x3040 && r <= 0x309F {
		return 2
	}
	// Katakana
	if r >= 0x30A0 && r <= 0x30FF {
		return 2
	}
	// Hangul Syllables
	if r >= 0xAC00 && r <= 0xD7AF {
		return 2
	}
	// Fullwidth Forms
	if r >= 0xFF00 && r <= 0xFFEF {
		return 2
	}
	return 1
}

// RuneLen returns the number of runes (characters) in a string.
// This is safer than len() for UTF-8 strings.
func RuneLen(s string) int {
	return len([]rune(s))
}
