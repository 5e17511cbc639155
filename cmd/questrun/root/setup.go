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

func newSetupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "setup <category>...",
		Short: "Pick growth categories and generate this week's plan",
		Long: "Generates a fresh 7-day quest plan from the given categories.\n" +
			"Available categories: " + categoryList(),
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStores()
			if err != nil {
				return err
			}

			selected := make([]quest.CategoryKey, 0, len(args))
			for _, a := range args {
				c := quest.CategoryKey(strings.ToLower(strings.TrimSpace(a)))
				if !c.Valid() {
					return fmt.Errorf("unknown category %q (choose from: %s)", a, categoryList())
				}
				selected = append(selected, c)
			}

			appState, err := st.states.InitPlan(selected, time.Now())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, ui.Heading(ui.IconQuest, "Week plan created"))
			for _, c := range selected {
				fmt.Fprintf(out, "- %s\n", c.Label())
			}
			total := 0
			for _, d := range appState.Plans {
				total += len(d.Quests)
			}
			fmt.Fprintln(out, "")
			fmt.Fprintln(out, ui.LabelValue("Days", len(appState.Plans)))
			fmt.Fprintln(out, ui.LabelValue("Quests", total))
			fmt.Fprintln(out, ui.Muted.Render("Run 'questrun board' to see the week."))
			return nil
		},
	}

	return cmd
}

func categoryList() string {
	all := quest.AllCategories()
	names := make([]string, len(all))
	for i, c := range all {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}
