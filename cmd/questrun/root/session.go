// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package root

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jeranaias/questrun/internal/ui"
)

func newSessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Inspect or rotate the local session identity",
	}

	cmd.AddCommand(newSessionShowCmd(), newSessionResetCmd())
	return cmd
}

func newSessionShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the current session id",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStores()
			if err != nil {
				return err
			}

			id, err := st.sessions.Current()
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), ui.LabelValue("Session", id))
			return nil
		},
	}
}

func newSessionResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Start a fresh session (history stays under the old id)",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStores()
			if err != nil {
				return err
			}

			id, err := st.sessions.Reset()
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), ui.Good.Render("New session: ")+id)
			return nil
		},
	}
}
