package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/keagan/reelcut/internal/config"
	"github.com/keagan/reelcut/internal/logging"
	"github.com/keagan/reelcut/internal/metrics"
	"github.com/keagan/reelcut/internal/pipeline"
	"github.com/keagan/reelcut/internal/timeline"
	"github.com/keagan/reelcut/pkg/util"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	cfgFile     string
	verbose     bool
	projectPath string
	timelineID  string
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "reelcut",
	Short:        "reelcut - timeline editing toolkit",
	Long:         "Edit multi-track video timelines from the command line: clips, keyframes, automation and nested timelines stored in a YAML project file.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}

		if err := logging.Init(cfg.Logging.Level, verbose, cfg.Logging.JSON); err != nil {
			return err
		}

		ctx := config.WithConfig(cmd.Context(), cfg)
		cmd.SetContext(ctx)

		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./reelcut.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&projectPath, "project", "p", "project.reelcut.yaml", "project file")
	rootCmd.PersistentFlags().StringVar(&timelineID, "timeline", "", "timeline id to edit (default: main)")

	rootCmd.AddCommand(newCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(moveCmd)
	rootCmd.AddCommand(splitCmd)
	rootCmd.AddCommand(trimCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(atCmd)
	rootCmd.AddCommand(gapsCmd)
	rootCmd.AddCommand(trackCmd)
	rootCmd.AddCommand(keyframeCmd)
	rootCmd.AddCommand(effectCmd)
	rootCmd.AddCommand(nestCmd)
	rootCmd.AddCommand(flattenCmd)
	rootCmd.AddCommand(waveformsCmd)
	rootCmd.AddCommand(frameCmd)
	rootCmd.AddCommand(thumbCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(configCmd)
}

// openPipeline builds a pipeline from the config stored on the command
// context.
func openPipeline(cmd *cobra.Command, m *metrics.Metrics) (*pipeline.Pipeline, error) {
	cfg := config.FromContext(cmd.Context())
	return pipeline.New(log.Logger, nil, cfg, m)
}

// session is one loaded project with the timeline the command works on.
type session struct {
	pipe *pipeline.Pipeline
	reg  *timeline.Registry
	tl   *timeline.Timeline
}

func openSession(cmd *cobra.Command) (*session, error) {
	pipe, err := openPipeline(cmd, nil)
	if err != nil {
		return nil, err
	}
	reg, err := pipe.Open(projectPath)
	if err != nil {
		pipe.Close()
		return nil, err
	}
	tl := reg.Main()
	if timelineID != "" {
		if tl, err = reg.Get(timelineID); err != nil {
			pipe.Close()
			return nil, err
		}
	}
	return &session{pipe: pipe, reg: reg, tl: tl}, nil
}

// edit loads the project, applies fn and saves the result when fn
// succeeds.
func edit(cmd *cobra.Command, fn func(s *session) error) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.pipe.Close()

	if err := fn(s); err != nil {
		return err
	}
	return s.pipe.Save(projectPath, s.reg)
}

func parseTime(s string) (float64, error) {
	t, err := util.ParseSeconds(s)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q: %w", s, err)
	}
	return t, nil
}
