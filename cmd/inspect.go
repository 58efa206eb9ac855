package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ercarpio/SG-CNN/events"
	"github.com/ercarpio/SG-CNN/interval"
	"github.com/ercarpio/SG-CNN/orchestrator"
	"github.com/ercarpio/SG-CNN/session"
)

func parseInterval(start, end string) (interval.Interval, error) {
	s, err := strconv.Atoi(start)
	if err != nil {
		return interval.Interval{}, fmt.Errorf("start %q: %w", start, err)
	}
	e, err := strconv.Atoi(end)
	if err != nil {
		return interval.Interval{}, fmt.Errorf("end %q: %w", end, err)
	}
	iv := interval.New(s, e)
	return iv, iv.Validate()
}

func (a *app) relateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "relate <a_start> <a_end> <b_start> <b_end>",
		Short: "Print the reduced and numbered relation between two intervals",
		Args:  cobra.ExactArgs(4),
		RunE: func(_ *cobra.Command, args []string) error {
			x, err := parseInterval(args[0], args[1])
			if err != nil {
				return err
			}
			y, err := parseInterval(args[2], args[3])
			if err != nil {
				return err
			}

			reduced := interval.Relate(x, y)
			name := string(reduced)
			if !reduced.Known() {
				name = "undefined"
			}
			ext := interval.RelateExtended(x, y)
			fmt.Fprintf(a.out, "signs:    %v\n", interval.SignsOf(x, y))
			fmt.Fprintf(a.out, "reduced:  %s\n", name)
			fmt.Fprintf(a.out, "extended: %d (%s)\n", int(ext), ext)
			return nil
		},
	}
}

func (a *app) labelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "label <record>",
		Short: "Print the ground-truth class of every window of a record",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			conf, err := a.config()
			if err != nil {
				return err
			}
			rec, err := session.Load(args[0])
			if err != nil {
				return err
			}
			timing, err := rec.Timing()
			if err != nil {
				return err
			}

			for _, m := range []struct {
				group        events.Group
				size, stride int
			}{
				{events.AudioGroup, conf.Audio.FrameSize, conf.Audio.Stride},
				{events.VideoGroup, conf.Video.FrameSize, conf.Video.Stride},
			} {
				spans := orchestrator.WindowSpans(m.size, m.stride, rec.SequenceLength)
				strip := make([]byte, 0, len(spans))
				for _, w := range spans {
					strip = append(strip, events.SequenceChars[events.LabelWindow(w, timing, m.group).Class()])
				}
				fmt.Fprintf(a.out, "%-6s %s\n", m.group.Name, strip)
			}
			for _, rt := range events.RealTimes(timing) {
				fmt.Fprintf(a.out, "%s: %s\n", rt.Event, rt.Span)
			}
			return nil
		},
	}
}
