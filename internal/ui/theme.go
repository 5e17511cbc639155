// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ui holds the lipgloss styles shared by the questrun CLI.
//
// Kept intentionally small: reusable styles and a few icons.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/questrun/internal/quest"
)

const (
	IconQuest  = "🗺️"
	IconDone   = "✅"
	IconTodo   = "⬜"
	IconPlus   = "➕"
	IconTrophy = "🏆"
	IconBolt   = "⚡"
	IconChat   = "💬"
	IconWarn   = "⚠️"
	IconError  = "🧨"
	IconGear   = "⚙️"
)

var (
	cPrimary = lipgloss.Color("63")  // blue
	cAccent  = lipgloss.Color("205") // magenta
	cGood    = lipgloss.Color("42")  // green
	cWarn    = lipgloss.Color("214") // orange
	cBad     = lipgloss.Color("196") // red
	cMuted   = lipgloss.Color("244") // gray
	cGold    = lipgloss.Color("220") // gold
)

var (
	Title = lipgloss.NewStyle().Bold(true).Foreground(cAccent)
	H2    = lipgloss.NewStyle().Bold(true).Foreground(cPrimary)
	Muted = lipgloss.NewStyle().Foreground(cMuted)
	Key   = lipgloss.NewStyle().Bold(true).Foreground(cPrimary)
	Good  = lipgloss.NewStyle().Bold(true).Foreground(cGood)
	Warn  = lipgloss.NewStyle().Bold(true).Foreground(cWarn)
	Bad   = lipgloss.NewStyle().Bold(true).Foreground(cBad)
	Gold  = lipgloss.NewStyle().Bold(true).Foreground(cGold)

	Panel      = lipgloss.NewStyle().BorderStyle(lipgloss.RoundedBorder()).BorderForeground(cMuted).Padding(0, 1)
	PanelTitle = lipgloss.NewStyle().Bold(true).Foreground(cPrimary)

	BadgeRankUp = lipgloss.NewStyle().Bold(true).Foreground(cGold).Render("RANK UP")
)

// Heading renders an icon-prefixed title line.
func Heading(icon string, title string) string {
	icon = strings.TrimSpace(icon)
	if icon != "" {
		icon += " "
	}
	return Title.Render(icon + title)
}

// LabelValue renders a "Label: value" pair with a styled label.
func LabelValue(label string, value any) string {
	return fmt.Sprintf("%s %v", Key.Render(label+":"), value)
}

// QuestIcon returns the checkbox icon for a quest.
func QuestIcon(q quest.Quest) string {
	if !q.Enabled {
		return IconWarn
	}
	if q.Done {
		return IconDone
	}
	return IconTodo
}

// =============================================================================
// STORED THEME MAPPING
// =============================================================================

// Palette carries the resolved styles for a stored theme record.
type Palette struct {
	Dark  bool
	Text  lipgloss.Style
	Faint lipgloss.Style
}

// FromTheme maps a persisted theme record onto terminal styles. A black
// background selects the dark palette; anything else renders as light.
func FromTheme(t quest.Theme) Palette {
	dark := strings.EqualFold(strings.TrimSpace(t.BackgroundColor), "#000000")
	if dark {
		return Palette{
			Dark:  true,
			Text:  lipgloss.NewStyle().Foreground(lipgloss.Color("255")),
			Faint: lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		}
	}
	return Palette{
		Dark:  false,
		Text:  lipgloss.NewStyle().Foreground(lipgloss.Color("235")),
		Faint: lipgloss.NewStyle().Foreground(cMuted),
	}
}
