package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"drone-city-sim/internal/sim"
)

func headlessCmd(a *app) *cobra.Command {
	var (
		steps    int
		ups      int
		duration time.Duration
		arm      bool
		record   bool
	)

	cmd := &cobra.Command{
		Use:   "headless",
		Short: "Run fixed-step updates without a window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := a.newSession(cmd.Context(), sessionOptions{})
			if err != nil {
				return err
			}
			defer sess.Close()

			held := sim.NewHeldSet()
			if arm {
				held = sim.NewHeldSet(sim.KeyW)
			}
			if record {
				sess.sim.Push(sim.Action{Kind: sim.ActionToggleRecording})
			}

			start := time.Now()
			performed := sess.sim.RunHeadless(held, steps, ups, duration)
			p := sess.sim.Drone().Pose()
			a.log.Info().
				Int("steps", performed).
				Dur("took", time.Since(start)).
				Int("recorded", sess.sim.Recorder().Len()).
				Msg("headless run finished")

			fmt.Fprintf(cmd.OutOrStdout(), "Completed %d steps. pos=(%.2f, %.2f, %.2f) speed=%.1fm/s heading=%.0f battery=%.1f%% detections=%s\n",
				performed, p.Position.X, p.Position.Y, p.Position.Z,
				p.HorizontalSpeed(), p.Heading(), sess.sim.Drone().Battery.Level,
				sess.sim.Detector().Summary())
			return nil
		},
	}

	cmd.Flags().IntVar(&steps, "steps", 1000, "number of fixed updates to run")
	cmd.Flags().IntVar(&ups, "ups", 0, "fixed updates per second (0 uses sim.tickRate)")
	cmd.Flags().DurationVar(&duration, "duration", 0, "duration to run if steps=0 (e.g. 2s)")
	cmd.Flags().BoolVar(&arm, "arm", true, "hold forward thrust for the whole run")
	cmd.Flags().BoolVar(&record, "record", false, "record the run and export it on exit")
	return cmd
}
