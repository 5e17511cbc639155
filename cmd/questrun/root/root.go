// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package root holds the questrun command tree.
package root

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jeranaias/questrun/internal/config"
	"github.com/jeranaias/questrun/internal/history"
	"github.com/jeranaias/questrun/internal/session"
	"github.com/jeranaias/questrun/internal/state"
	"github.com/jeranaias/questrun/internal/ui"
)

const Version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:           "questrun",
	Short:         "Questrun — local-first weekly growth planner",
	Long:          "Questrun generates a 7-day quest plan from your growth categories, tracks points and ranks, and fronts an AI growth coach.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	rootCmd.Version = Version
	rootCmd.SetVersionTemplate("{{.Name}} v{{.Version}}\n")

	rootCmd.AddCommand(
		newServeCmd(),
		newSetupCmd(),
		newBoardCmd(),
		newStatusCmd(),
		newQuestCmd(),
		newHistoryCmd(),
		newSessionCmd(),
		newResetCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, ui.Bad.Render(ui.IconError+" "+err.Error()))
		os.Exit(1)
	}
}

// loadConfig loads the config, tolerating a broken file by falling back to
// defaults with a warning.
func loadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		log.Printf("CONFIG_LOAD_WARNING | error=%v", err)
	}
	if cfg == nil {
		cfg = config.Default()
	}
	return cfg
}

// stores bundles the persistence layers the commands share.
type stores struct {
	cfg       *config.Config
	states    *state.Store
	histories *history.Store
	sessions  *session.Provider
}

// openStores wires the stores under the configured data directory.
func openStores() (*stores, error) {
	cfg := loadConfig()

	dataDir, err := cfg.DataDir()
	if err != nil {
		return nil, err
	}

	states, err := state.NewStoreWithDir(dataDir)
	if err != nil {
		return nil, err
	}
	histories, err := history.NewStoreWithDir(filepath.Join(dataDir, "histories"))
	if err != nil {
		return nil, err
	}
	histories.MaxPerNamespace = cfg.Storage.MaxHistories

	sessions, err := session.NewProviderWithDir(dataDir)
	if err != nil {
		return nil, err
	}

	return &stores{
		cfg:       cfg,
		states:    states,
		histories: histories,
		sessions:  sessions,
	}, nil
}
