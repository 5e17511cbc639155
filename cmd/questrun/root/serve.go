// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package root

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeranaias/questrun/internal/config"
	"github.com/jeranaias/questrun/internal/server"
	"github.com/jeranaias/questrun/internal/ui"
)

func newServeCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the local HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			if port != 0 {
				cfg.Server.Port = port
			}

			srv, err := server.NewServer(cfg)
			if err != nil {
				return err
			}

			// Hot-reload the upstream settings when the config file changes.
			// The swap goes through the server so in-flight requests never
			// see a torn config.
			if path, err := config.ConfigPathTOML(); err == nil {
				if w, err := config.NewWatcher(path, func(fresh *config.Config) {
					srv.UpdateLLMConfig(fresh.LLM)
				}); err == nil {
					if err := w.Watch(); err == nil {
						defer w.Close()
					}
				}
			}

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.Start()
			}()

			fmt.Fprintln(cmd.OutOrStdout(), ui.Heading(ui.IconBolt,
				fmt.Sprintf("Questrun API listening on http://127.0.0.1:%d", srv.Port())))

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case sig := <-sigCh:
				log.Printf("SIGNAL_RECEIVED | signal=%v", sig)
			}

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(ctx)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "port to listen on (overrides config)")
	return cmd
}
