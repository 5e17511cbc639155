// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package root

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/questrun/internal/quest"
	"github.com/jeranaias/questrun/internal/ui"
)

func newQuestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quest",
		Short: "Work with individual quests",
	}

	cmd.AddCommand(
		newQuestDoneCmd(),
		newQuestToggleCmd(),
		newQuestAddCmd(),
		newQuestDayCmd(),
	)
	return cmd
}

func newQuestDoneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "done <day> <quest-id>",
		Short: "Toggle a quest's done state",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid day %q", args[0])
			}

			st, err := openStores()
			if err != nil {
				return err
			}

			before, err := st.states.Load()
			if err != nil {
				return err
			}
			prevRank := ""
			if before != nil {
				prevRank = quest.CalculateProgress(before.Plans).Rank.Name
			}

			appState, err := st.states.ToggleDone(day, args[1])
			if err != nil {
				return err
			}

			q, ok := findQuest(appState, day, args[1])
			if !ok {
				return fmt.Errorf("quest %q not found on day %d", args[1], day)
			}
			out := cmd.OutOrStdout()
			if q.Done {
				fmt.Fprintln(out, ui.Good.Render(ui.IconDone+" "+q.Title))
			} else {
				fmt.Fprintln(out, ui.Muted.Render(ui.IconTodo+" "+q.Title))
			}

			p := quest.CalculateProgress(appState.Plans)
			if q.Done && p.Rank.Name != prevRank {
				fmt.Fprintf(out, "%s %s → %s\n", ui.BadgeRankUp, prevRank, ui.Gold.Render(p.Rank.Name))
			}
			return nil
		},
	}
}

func newQuestToggleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <day> <quest-id>",
		Short: "Enable or disable a quest",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid day %q", args[0])
			}

			st, err := openStores()
			if err != nil {
				return err
			}

			appState, err := st.states.ToggleEnabled(day, args[1])
			if err != nil {
				return err
			}

			q, ok := findQuest(appState, day, args[1])
			if !ok {
				return fmt.Errorf("quest %q not found on day %d", args[1], day)
			}
			status := "disabled"
			if q.Enabled {
				status = "enabled"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", q.Title, ui.Muted.Render("("+status+")"))
			return nil
		},
	}
}

func newQuestAddCmd() *cobra.Command {
	var day int
	var category string

	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a custom quest to a day",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			title := strings.TrimSpace(strings.Join(args, " "))
			if title == "" {
				return fmt.Errorf("title must not be empty")
			}

			c := quest.CategoryKey(strings.ToLower(category))
			if !c.Valid() {
				return fmt.Errorf("unknown category %q (choose from: %s)", category, categoryList())
			}

			st, err := openStores()
			if err != nil {
				return err
			}

			if _, err := st.states.AddQuest(day, title, c); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), ui.Good.Render(ui.IconPlus+" Added: "+title))
			return nil
		},
	}

	cmd.Flags().IntVarP(&day, "day", "d", 1, "day of the week (1-7)")
	cmd.Flags().StringVarP(&category, "category", "c", "habit", "quest category")
	return cmd
}

func newQuestDayCmd() *cobra.Command {
	var enabled bool

	cmd := &cobra.Command{
		Use:   "day <day>",
		Short: "Enable or disable every quest on a day",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid day %q", args[0])
			}

			st, err := openStores()
			if err != nil {
				return err
			}

			if _, err := st.states.SetDayEnabledAll(day, enabled); err != nil {
				return err
			}

			verb := "disabled"
			if enabled {
				verb = "enabled"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Day %d %s\n", day, verb)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&enabled, "enabled", "e", true, "target enabled state")
	return cmd
}

// findQuest locates a quest by id within the given day.
func findQuest(st *quest.AppState, day int, questID string) (quest.Quest, bool) {
	if st == nil || day < 1 || day > len(st.Plans) {
		return quest.Quest{}, false
	}
	for _, q := range st.Plans[day-1].Quests {
		if q.ID == questID {
			return q, true
		}
	}
	return quest.Quest{}, false
}
