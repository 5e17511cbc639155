// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package root

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/questrun/internal/export"
	"github.com/jeranaias/questrun/internal/ui"
	"github.com/jeranaias/questrun/internal/util"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Manage saved coach conversations",
	}

	cmd.AddCommand(
		newHistoryListCmd(),
		newHistoryShowCmd(),
		newHistoryRenameCmd(),
		newHistoryDeleteCmd(),
		newHistoryExportCmd(),
	)
	return cmd
}

// currentNamespace resolves the history namespace for CLI commands.
func currentNamespace(st *stores) (string, error) {
	return st.sessions.Current()
}

func newHistoryListCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved conversations",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStores()
			if err != nil {
				return err
			}
			ns, err := currentNamespace(st)
			if err != nil {
				return err
			}

			list, err := st.histories.Recent(ns, limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(list) == 0 {
				fmt.Fprintln(out, ui.Muted.Render("No saved conversations."))
				return nil
			}

			fmt.Fprintln(out, ui.Heading(ui.IconChat, "Conversations"))
			for _, h := range list {
				fmt.Fprintf(out, "- %s %s %s\n",
					ui.Key.Render(h.ID),
					util.TruncateRunesEllipsis(h.Title, 60),
					ui.Muted.Render(h.UpdatedAt.Format("2006-01-02 15:04")))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "maximum entries to show")
	return cmd
}

func newHistoryShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print a conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStores()
			if err != nil {
				return err
			}
			ns, err := currentNamespace(st)
			if err != nil {
				return err
			}

			h, err := st.histories.Get(ns, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, ui.Heading(ui.IconChat, h.Title))
			fmt.Fprintln(out, "")
			for _, m := range h.Messages {
				label := "You"
				if m.Role == "assistant" {
					label = "Coach"
				}
				fmt.Fprintln(out, ui.Key.Render(label+":"))
				fmt.Fprintln(out, strings.TrimSpace(m.Content))
				fmt.Fprintln(out, "")
			}
			return nil
		},
	}
}

func newHistoryRenameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <id> <title>",
		Short: "Rename a conversation",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStores()
			if err != nil {
				return err
			}
			ns, err := currentNamespace(st)
			if err != nil {
				return err
			}

			title := strings.Join(args[1:], " ")
			if err := st.histories.RenameTitle(ns, args[0], title); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), ui.Good.Render("Renamed."))
			return nil
		},
	}
}

func newHistoryDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStores()
			if err != nil {
				return err
			}
			ns, err := currentNamespace(st)
			if err != nil {
				return err
			}

			if err := st.histories.Remove(ns, args[0]); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), ui.Good.Render("Deleted."))
			return nil
		},
	}
}

func newHistoryExportCmd() *cobra.Command {
	var format string
	var outputDir string
	var all bool

	cmd := &cobra.Command{
		Use:   "export [id]",
		Short: "Export conversations to Markdown or JSON files",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !all && len(args) == 0 {
				return fmt.Errorf("pass a conversation id or use --all")
			}

			st, err := openStores()
			if err != nil {
				return err
			}
			ns, err := currentNamespace(st)
			if err != nil {
				return err
			}

			var exporter export.Exporter
			switch strings.ToLower(format) {
			case "markdown", "md":
				exporter = export.NewMarkdownExporter(nil)
			case "json":
				exporter = export.NewJSONExporter(nil)
			default:
				return fmt.Errorf("unknown format %q (markdown or json)", format)
			}

			opts := export.DefaultOptions()
			if outputDir != "" {
				opts.OutputDir = outputDir
			}

			out := cmd.OutOrStdout()
			if all {
				paths, err := export.ExportAll(st.histories, ns, exporter, opts)
				if err != nil {
					return err
				}
				for _, p := range paths {
					fmt.Fprintln(out, ui.Good.Render("Exported: ")+p)
				}
				return nil
			}

			path, err := export.ExportOne(st.histories, ns, args[0], exporter, opts)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, ui.Good.Render("Exported: ")+path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "markdown", "export format (markdown or json)")
	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "output directory (default: current directory)")
	cmd.Flags().BoolVarP(&all, "all", "a", false, "export every conversation")
	return cmd
}
