package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"drone-city-sim/internal/flightlog"
	"drone-city-sim/internal/geom"
	"drone-city-sim/internal/sim"
	"drone-city-sim/internal/world"
)

func plotCmd(a *app) *cobra.Command {
	var (
		out     string
		mapPath string
	)

	cmd := &cobra.Command{
		Use:   "plot <session-id|csv>",
		Short: "Plot the altitude and speed profile of a recorded flight",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			frames, tickRate, err := a.loadFlight(cmd, args[0])
			if err != nil {
				return err
			}

			sum, err := flightlog.Summarize(frames, tickRate)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "frames=%d duration=%.1fs distance=%.1fm alt=%.1f..%.1fm speed mean=%.1f max=%.1f m/s\n",
				sum.Frames, sum.Duration, sum.Distance, sum.MinAltitude, sum.MaxAltitude, sum.MeanSpeed, sum.MaxSpeed)

			if out == "" {
				out = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0])) + ".png"
			}
			if err := flightlog.SaveProfile(out, frames, tickRate); err != nil {
				return err
			}
			a.log.Info().Str("path", out).Msg("profile written")

			if mapPath != "" {
				w, err := a.buildWorld(cmd.Context(), a.cfg.World.Seed)
				if err != nil {
					return err
				}
				track := make([]geom.Vec3, len(frames))
				for i, f := range frames {
					track[i] = f.Position
				}
				if err := writeFile(mapPath, func(f io.Writer) error {
					return world.RenderMap(f, w, track)
				}); err != nil {
					return err
				}
				a.log.Info().Str("path", mapPath).Msg("flight map written")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "PNG output (defaults to <name>.png)")
	cmd.Flags().StringVar(&mapPath, "map", "", "also write an HTML city map with the flight track")
	return cmd
}

// loadFlight reads a stored session when arg is a UUID and a CSV file
// otherwise.
func (a *app) loadFlight(cmd *cobra.Command, arg string) ([]sim.RecordingFrame, float64, error) {
	if id, err := uuid.Parse(arg); err == nil {
		store, err := a.openStore()
		if err != nil {
			return nil, 0, err
		}
		defer store.Close()
		sess, frames, err := store.LoadSession(cmd.Context(), id)
		if err != nil {
			return nil, 0, err
		}
		return frames, sess.TickRate, nil
	}

	f, err := os.Open(arg)
	if err != nil {
		return nil, 0, fmt.Errorf("opening %s: %w", arg, err)
	}
	defer f.Close()
	frames, err := flightlog.ReadCSV(f)
	if err != nil {
		return nil, 0, err
	}
	return frames, a.cfg.Recordings.TickRate, nil
}
