// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package root

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeranaias/questrun/internal/quest"
	"github.com/jeranaias/questrun/internal/ui"
	"github.com/jeranaias/questrun/internal/util"
)

func newBoardCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "board",
		Short: "Show the week board",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStores()
			if err != nil {
				return err
			}

			appState, err := st.states.Load()
			if err != nil {
				return err
			}
			if appState == nil {
				return fmt.Errorf("no plan yet — run 'questrun setup' first")
			}

			today := quest.TodayIndex(appState.CreatedAt, time.Now())
			pal := ui.FromTheme(appState.Theme)
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, ui.Heading(ui.IconQuest, "Week Board"))
			fmt.Fprintln(out, "")

			for _, day := range appState.Plans {
				if !all && day.Day-1 != today {
					continue
				}

				label := fmt.Sprintf("Day %d", day.Day)
				if day.Day-1 == today {
					label += " (today)"
				}
				if quest.DayComplete(day) {
					label += " " + ui.IconTrophy
				}
				fmt.Fprintln(out, ui.H2.Render(label))

				// Pad titles so the category tags line up in a column.
				maxw := 0
				for _, q := range day.Quests {
					if w := util.StringWidth(q.Title); w > maxw {
						maxw = w
					}
				}

				for _, q := range day.Quests {
					pad := strings.Repeat(" ", maxw-util.StringWidth(q.Title))
					line := fmt.Sprintf("%s %s%s %s", ui.QuestIcon(q), pal.Text.Render(q.Title), pad,
						pal.Faint.Render(fmt.Sprintf("[%s, %dpt]", q.Category.Label(), q.Points)))
					if !q.Enabled {
						line = ui.Muted.Render(fmt.Sprintf("%s %s", ui.QuestIcon(q), q.Title))
					}
					fmt.Fprintln(out, "  "+line)
				}
				fmt.Fprintln(out, "")
			}

			if !all {
				fmt.Fprintln(out, ui.Muted.Render("Use --all to see the full week."))
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&all, "all", "a", false, "show all seven days")
	return cmd
}
