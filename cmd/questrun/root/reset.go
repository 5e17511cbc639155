// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package root

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jeranaias/questrun/internal/ui"
)

func newResetCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete the current week plan",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("this deletes the current plan and its progress; re-run with --yes to confirm")
			}

			st, err := openStores()
			if err != nil {
				return err
			}

			if err := st.states.Reset(); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), ui.Good.Render("Plan deleted. Run 'questrun setup' to start over."))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm deletion")
	return cmd
}
