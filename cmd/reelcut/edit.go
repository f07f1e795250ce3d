package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/keagan/reelcut/internal/clips"
	"github.com/keagan/reelcut/internal/compositor"
	"github.com/keagan/reelcut/internal/effects"
	"github.com/keagan/reelcut/internal/pipeline"
	"github.com/keagan/reelcut/internal/timeline"
	"github.com/keagan/reelcut/pkg/util"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var newCmd = &cobra.Command{
	Use:   "new [name]",
	Short: "Create an empty project",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")
		if util.FileExists(projectPath) && !force {
			return fmt.Errorf("%s already exists (use --force to overwrite)", projectPath)
		}

		name := "Main"
		if len(args) == 1 {
			name = args[0]
		}

		pipe, err := openPipeline(cmd, nil)
		if err != nil {
			return err
		}
		defer pipe.Close()

		reg := pipe.NewProject(name)
		if err := pipe.Save(projectPath, reg); err != nil {
			return err
		}
		log.Info().Str("project", projectPath).Str("timeline", reg.Main().ID).Msg("project created")
		return nil
	},
}

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show timelines, tracks and clips",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.pipe.Close()

		out := cmd.OutOrStdout()
		printNode(out, s.reg.Hierarchy(), 0)
		fmt.Fprintln(out)

		tl := s.tl
		fmt.Fprintf(out, "%s (%s) duration %s playhead %s tool %s snap %v\n",
			tl.Name, tl.ID, util.FormatSeconds(tl.TotalDuration()),
			util.FormatSeconds(tl.Playhead()), tl.Tool(), tl.SnapEnabled())

		w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "TRACK\tCLIP\tNAME\tSTART\tEND\tSOURCE")
		for _, t := range tl.Tracks() {
			fmt.Fprintf(w, "%d %s%s\t\t\t\t\t\n", t.ID, t.Name, trackFlags(t))
			for _, c := range t.Clips() {
				src := c.MediaRef
				if c.IsNested() {
					src = "timeline:" + c.NestedID
				}
				fmt.Fprintf(w, "\t%s\t%s\t%s\t%s\t%s\n", c.ID, c.Name,
					util.FormatSeconds(c.StartTime), util.FormatSeconds(c.EndTime()), src)
			}
		}
		return w.Flush()
	},
}

func printNode(out io.Writer, n timeline.Node, depth int) {
	fmt.Fprintf(out, "%s%s [%s] %s\n", strings.Repeat("  ", depth), n.Name, n.Kind, n.ID)
	for _, child := range n.Children {
		printNode(out, child, depth+1)
	}
}

func trackFlags(t *timeline.Track) string {
	var flags []string
	if t.Muted {
		flags = append(flags, "muted")
	}
	if t.Solo {
		flags = append(flags, "solo")
	}
	if t.Locked {
		flags = append(flags, "locked")
	}
	if len(flags) == 0 {
		return ""
	}
	return " (" + strings.Join(flags, ", ") + ")"
}

var addCmd = &cobra.Command{
	Use:   "add [media file]",
	Short: "Import a media file as a clip",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		trackID, _ := cmd.Flags().GetInt("track")
		at, _ := cmd.Flags().GetString("at")
		start, err := parseTime(at)
		if err != nil {
			return err
		}

		return edit(cmd, func(s *session) error {
			res, err := s.pipe.ImportMedia(cmd.Context(), s.tl, args[0], pipeline.ImportOptions{TrackID: trackID, Start: start})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.ClipID)
			return nil
		})
	},
}

var moveCmd = &cobra.Command{
	Use:   "move [clip id] [start]",
	Short: "Move a clip to a new start time or track",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		start, err := parseTime(args[1])
		if err != nil {
			return err
		}
		trackID, _ := cmd.Flags().GetInt("track")
		snap, _ := cmd.Flags().GetBool("snap")

		return edit(cmd, func(s *session) error {
			if snap {
				start = s.tl.SnapTime(start, args[0])
			}
			return s.tl.MoveClip(args[0], start, trackID)
		})
	},
}

var splitCmd = &cobra.Command{
	Use:   "split [clip id] [time]",
	Short: "Split a clip in two",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		at, err := parseTime(args[1])
		if err != nil {
			return err
		}
		return edit(cmd, func(s *session) error {
			left, right, err := s.tl.SplitClip(args[0], at)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n%s\n", left, right)
			return nil
		})
	},
}

var trimCmd = &cobra.Command{
	Use:   "trim [clip id] [in] [out]",
	Short: "Set the source range a clip plays",
	Long:  "Trim a clip to the source range [in, out]. The clip keeps its start; neighbours do not move.",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		in, err := parseTime(args[1])
		if err != nil {
			return err
		}
		out, err := parseTime(args[2])
		if err != nil {
			return err
		}
		return edit(cmd, func(s *session) error {
			if err := s.tl.TrimClip(args[0], in, out); err != nil {
				return err
			}
			c := s.tl.Clip(args[0])
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", c.ID, util.FormatSeconds(c.StartTime), util.FormatSeconds(c.EndTime()))
			return nil
		})
	},
}

var removeCmd = &cobra.Command{
	Use:   "remove [clip id]",
	Short: "Remove a clip",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ripple, _ := cmd.Flags().GetBool("ripple")
		return edit(cmd, func(s *session) error {
			if ripple {
				return s.tl.RippleDelete(args[0])
			}
			return s.tl.RemoveClip(args[0])
		})
	},
}

var atCmd = &cobra.Command{
	Use:   "at [time]",
	Short: "List clips active at a time and the audio mix",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := parseTime(args[0])
		if err != nil {
			return err
		}
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.pipe.Close()

		out := cmd.OutOrStdout()
		for _, c := range s.tl.ClipsAt(t) {
			fmt.Fprintf(out, "%d\t%s\t%s\tsource %s\n", c.TrackID, c.ID, c.Name, util.FormatSeconds(c.SourceTime(t)))
			values, err := s.tl.EvaluateClip(c.ID, t)
			if err != nil {
				return err
			}
			for prop, v := range values {
				fmt.Fprintf(out, "\t%s = %v\n", prop, v)
			}
		}
		for _, ch := range compositor.Mix(s.tl, t) {
			left, right := ch.StereoGains()
			fmt.Fprintf(out, "mix\t%d\t%s\tL %.2f R %.2f\n", ch.TrackID, ch.ClipID, left, right)
		}
		return nil
	},
}

var gapsCmd = &cobra.Command{
	Use:   "gaps [track id]",
	Short: "List empty ranges between clips on a track",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		trackID, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid track id %q", args[0])
		}
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.pipe.Close()

		gaps, err := s.tl.FindGaps(trackID)
		if err != nil {
			return err
		}
		for _, g := range gaps {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", util.FormatSeconds(g.Start), util.FormatSeconds(g.End))
		}
		return nil
	},
}

var trackCmd = &cobra.Command{
	Use:   "track",
	Short: "Track management commands",
}

var trackAddCmd = &cobra.Command{
	Use:   "add [id] [name]",
	Short: "Add a track",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid track id %q", args[0])
		}
		typeName, _ := cmd.Flags().GetString("type")
		typ, err := clips.ParseType(typeName)
		if err != nil {
			return err
		}
		return edit(cmd, func(s *session) error {
			_, err := s.tl.AddTrack(id, args[1], typ)
			return err
		})
	},
}

var trackRemoveCmd = &cobra.Command{
	Use:   "remove [id]",
	Short: "Remove a track and its clips",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid track id %q", args[0])
		}
		return edit(cmd, func(s *session) error {
			return s.tl.RemoveTrack(id)
		})
	},
}

var trackSetCmd = &cobra.Command{
	Use:   "set [id]",
	Short: "Change track mute, solo and lock state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid track id %q", args[0])
		}
		flags := cmd.Flags()
		return edit(cmd, func(s *session) error {
			if flags.Changed("mute") {
				v, _ := flags.GetBool("mute")
				if err := s.tl.SetTrackMuted(id, v); err != nil {
					return err
				}
			}
			if flags.Changed("solo") {
				v, _ := flags.GetBool("solo")
				if err := s.tl.SetTrackSolo(id, v); err != nil {
					return err
				}
			}
			if flags.Changed("lock") {
				v, _ := flags.GetBool("lock")
				if err := s.tl.SetTrackLocked(id, v); err != nil {
					return err
				}
			}
			return nil
		})
	},
}

var trackAutomationCmd = &cobra.Command{
	Use:   "automation [id] [parameter] [time] [value]",
	Short: "Write an automation point",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid track id %q", args[0])
		}
		t, err := parseTime(args[2])
		if err != nil {
			return err
		}
		value, err := strconv.ParseFloat(args[3], 64)
		if err != nil {
			return fmt.Errorf("invalid value %q", args[3])
		}
		return edit(cmd, func(s *session) error {
			stored, err := s.tl.AddAutomationPoint(id, args[1], t, value)
			if err != nil {
				return err
			}
			if stored != value {
				log.Warn().Float64("value", value).Float64("stored", stored).Msg("automation value clamped")
			}
			return nil
		})
	},
}

var keyframeCmd = &cobra.Command{
	Use:   "keyframe [clip id] [property] [time] [value...]",
	Short: "Add a keyframe to a clip property",
	Long:  "Add a keyframe. One value targets --component (x by default); two or three values set x, y and z.",
	Args:  cobra.RangeArgs(3, 6),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := parseTime(args[2])
		if err != nil {
			return err
		}
		values := make([]float64, 0, len(args)-3)
		for _, a := range args[3:] {
			v, err := strconv.ParseFloat(a, 64)
			if err != nil {
				return fmt.Errorf("invalid value %q", a)
			}
			values = append(values, v)
		}
		component, _ := cmd.Flags().GetString("component")
		remove, _ := cmd.Flags().GetBool("remove")
		if !remove && len(values) == 0 {
			return fmt.Errorf("keyframe needs at least one value")
		}

		return edit(cmd, func(s *session) error {
			if remove {
				return s.tl.RemoveClipKeyframe(args[0], args[1], t, component)
			}
			var value any = values
			if len(values) == 1 {
				value = values[0]
			}
			return s.tl.AddClipKeyframe(args[0], args[1], t, value, component)
		})
	},
}

var effectCmd = &cobra.Command{
	Use:   "effect [clip id] [name[:amount]...]",
	Short: "Set the effect chain of a clip",
	Long:  "Set the effect chain applied to a clip's frames, in order. Effects: " + strings.Join(effects.Names(), ", ") + ". No effects clears the chain.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		expr := strings.Join(args[1:], ",")
		if _, err := effects.ParseChain(expr); err != nil {
			return err
		}
		return edit(cmd, func(s *session) error {
			c := s.tl.Clip(args[0])
			if c == nil {
				return fmt.Errorf("effect on %s: %w", args[0], timeline.ErrClipNotFound)
			}
			if expr == "" {
				delete(c.Metadata, effects.MetadataKey)
				return nil
			}
			if c.Metadata == nil {
				c.Metadata = make(map[string]string)
			}
			c.Metadata[effects.MetadataKey] = expr
			return nil
		})
	},
}

var nestCmd = &cobra.Command{
	Use:   "nest [name] [clip id...]",
	Short: "Move clips into a new nested timeline",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return edit(cmd, func(s *session) error {
			id, err := s.reg.ConvertToNested(s.tl.ID, args[1:], args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		})
	},
}

var flattenCmd = &cobra.Command{
	Use:   "flatten [timeline id]",
	Short: "Replace clips of a nested timeline with its contents",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return edit(cmd, func(s *session) error {
			return s.reg.Flatten(s.tl.ID, args[0])
		})
	},
}

func init() {
	newCmd.Flags().Bool("force", false, "overwrite an existing project")
	addCmd.Flags().Int("track", timeline.SameTrack, "target track (default: first track matching the media)")
	addCmd.Flags().String("at", "0", "start time")
	moveCmd.Flags().Int("track", timeline.SameTrack, "target track (default: keep)")
	moveCmd.Flags().Bool("snap", false, "snap the start to clip edges, the grid and the playhead")
	removeCmd.Flags().Bool("ripple", false, "close the gap left by the clip")
	keyframeCmd.Flags().String("component", "", "component for a single value (x, y or z)")
	keyframeCmd.Flags().Bool("remove", false, "remove the keyframe at time instead")

	trackAddCmd.Flags().String("type", "video", "track type (video or audio)")
	trackSetCmd.Flags().Bool("mute", false, "mute the track")
	trackSetCmd.Flags().Bool("solo", false, "solo the track")
	trackSetCmd.Flags().Bool("lock", false, "lock the track")
	trackCmd.AddCommand(trackAddCmd, trackRemoveCmd, trackSetCmd, trackAutomationCmd)
}
