package main

import (
	"fmt"

	"github.com/keagan/reelcut/internal/pipeline"
	"github.com/keagan/reelcut/pkg/util"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var waveformsCmd = &cobra.Command{
	Use:   "waveforms",
	Short: "Compute waveform peaks for audio clips",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.pipe.Close()

		n, err := s.pipe.GenerateWaveforms(cmd.Context(), s.tl)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, c := range s.tl.Clips() {
			w := c.Waveform()
			if w == nil {
				continue
			}
			var peak float32
			for _, v := range w.Peaks {
				peak = max(peak, v)
			}
			fmt.Fprintf(out, "%s\t%s\t%d peaks\tmax %.2f\n", c.ID, c.Name, len(w.Peaks), peak)
		}
		log.Info().Int("waveforms", n).Msg("waveforms generated")
		return nil
	},
}

var frameCmd = &cobra.Command{
	Use:   "frame [time] [output.png]",
	Short: "Render the composited frame at a time",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := parseTime(args[0])
		if err != nil {
			return err
		}
		width, _ := cmd.Flags().GetUint("thumb-width")
		height, _ := cmd.Flags().GetUint("thumb-height")

		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.pipe.Close()

		img, err := s.pipe.RenderFrame(cmd.Context(), s.reg, s.tl, t)
		if err != nil {
			return err
		}
		if err := pipeline.WriteFrame(args[1], img, width, height); err != nil {
			return err
		}

		log.Info().
			Str("output", args[1]).
			Str("time", util.FormatSeconds(t)).
			Msg("frame written")
		return nil
	},
}

var thumbCmd = &cobra.Command{
	Use:   "thumb [media file] [time] [output.jpg]",
	Short: "Write a still of a media file",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := parseTime(args[1])
		if err != nil {
			return err
		}
		width, _ := cmd.Flags().GetInt("width")

		pipe, err := openPipeline(cmd, nil)
		if err != nil {
			return err
		}
		defer pipe.Close()

		return pipe.Thumbnail(cmd.Context(), args[0], t, args[2], width)
	},
}

func init() {
	thumbCmd.Flags().Int("width", 320, "thumbnail width")
	frameCmd.Flags().Uint("thumb-width", 0, "shrink the frame to fit this width")
	frameCmd.Flags().Uint("thumb-height", 0, "shrink the frame to fit this height")
}
