// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package suggest extracts actionable quest suggestions from assistant
// replies. Bulleted and numbered list items become one-tap quest
// candidates; everything else is ignored.
package suggest

import "strings"

// MaxSuggestions caps how many suggestions are surfaced per reply.
const MaxSuggestions = 5

// listMarkers are the line prefixes recognized as list items.
var listMarkers = []string{"- ", "• ", "* "}

// Extract scans assistant output for list items and returns them as
// plain suggestion strings, at most MaxSuggestions. Returns nil when
// the content has no list items.
func Extract(content string) []string {
	if content == "" {
		return nil
	}

	var out []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)

		item, ok := stripMarker(line)
		if !ok {
			continue
		}
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}

		out = append(out, item)
		if len(out) == MaxSuggestions {
			break
		}
	}
	return out
}

// stripMarker removes a leading list marker and reports whether the line
// was a list item.
func stripMarker(line string) (string, bool) {
	for _, m := range listMarkers {
		if strings.HasPrefix(line, m) {
			return line[len(m):], true
		}
	}
	// Numbered items: "1. do the thing"
	if i := strings.Index(line, ". "); i > 0 && i <= 3 && isDigits(line[:i]) {
		return line[i+2:], true
	}
	return "", false
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
