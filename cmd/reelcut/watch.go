package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/keagan/reelcut/internal/config"
	"github.com/keagan/reelcut/internal/logging"
	"github.com/keagan/reelcut/internal/metrics"
	"github.com/keagan/reelcut/internal/project"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Reload the project when it changes and serve metrics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())
		addr := cfg.Metrics.Addr
		if cmd.Flags().Changed("metrics-addr") {
			addr, _ = cmd.Flags().GetString("metrics-addr")
		}
		serve := cfg.Metrics.Enabled || cmd.Flags().Changed("metrics-addr")
		debounce, _ := cmd.Flags().GetDuration("debounce")

		logger := logging.WithComponent("watch")
		m := metrics.New()
		pipe, err := openPipeline(cmd, m)
		if err != nil {
			return err
		}
		defer pipe.Close()

		if _, err := pipe.Open(projectPath); err != nil {
			return err
		}

		watcher, err := project.NewWatcher(logger, projectPath, debounce)
		if err != nil {
			return err
		}

		g, ctx := errgroup.WithContext(cmd.Context())
		g.Go(func() error { return watcher.Run(ctx) })

		if serve {
			srv := &http.Server{
				Addr:              addr,
				Handler:           m.Router(),
				ReadHeaderTimeout: 5 * time.Second,
			}
			g.Go(func() error {
				logger.Info().Str("addr", addr).Msg("serving metrics")
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			})
		}

		logger.Info().Str("project", projectPath).Msg("watching project")
		for range watcher.Changes() {
			reg, err := pipe.Open(projectPath)
			if err != nil {
				logger.Warn().Err(err).Msg("reload failed, keeping previous state")
				continue
			}
			m.IncReloads()
			mainTL := reg.Main()
			logger.Info().
				Int("timelines", len(reg.Timelines())).
				Int("clips", len(mainTL.Clips())).
				Float64("duration", mainTL.TotalDuration()).
				Msg("project reloaded")
		}

		err = g.Wait()
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	watchCmd.Flags().String("metrics-addr", "", "serve /metrics and /healthz on this address")
	watchCmd.Flags().Duration("debounce", 250*time.Millisecond, "wait for writes to settle before reloading")
}
