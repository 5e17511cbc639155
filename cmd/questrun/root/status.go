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
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show points, rank, and weekly progress",
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

			p := quest.CalculateProgress(appState.Plans)
			today := quest.TodayIndex(appState.CreatedAt, time.Now())

			var b strings.Builder
			fmt.Fprintln(&b, ui.PanelTitle.Render(ui.IconTrophy+" Growth Status"))
			fmt.Fprintln(&b, ui.LabelValue("Rank", ui.Gold.Render(p.Rank.Name)))
			if next, ok := quest.NextRank(p.TotalPoints); ok {
				fmt.Fprintln(&b, ui.LabelValue("Next rank",
					fmt.Sprintf("%s (%d points to go)", next.Name, p.ToNext)))
			} else {
				fmt.Fprintln(&b, ui.LabelValue("Next rank", ui.Muted.Render("top of the ladder")))
			}
			fmt.Fprintln(&b, "")
			fmt.Fprintln(&b, ui.LabelValue("Total points", p.TotalPoints))
			fmt.Fprintln(&b, ui.LabelValue("Quest points", p.BasePoints))
			fmt.Fprintln(&b, ui.LabelValue("Bonus days",
				fmt.Sprintf("%d (%d points)", p.BonusDays, p.BonusDays*quest.DailyBonus)))
			fmt.Fprintln(&b, ui.LabelValue("Week completion", fmt.Sprintf("%d%%", p.WeeklyPct)))
			fmt.Fprint(&b, ui.LabelValue("Day", fmt.Sprintf("%d of 7", today+1)))

			fmt.Fprintln(cmd.OutOrStdout(), ui.Panel.Render(b.String()))
			return nil
		},
	}

	return cmd
}
