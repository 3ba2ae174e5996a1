package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"drone-city-sim/internal/world"
)

func worldgenCmd(a *app) *cobra.Command {
	var (
		seed    int64
		out     string
		mapPath string
		geoPath string
	)

	cmd := &cobra.Command{
		Use:   "worldgen",
		Short: "Generate the city and report or export it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("seed") {
				seed = a.cfg.World.Seed
			}
			w, err := a.buildWorld(cmd.Context(), seed)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "KIND\tPLACED\tREQUESTED")
			for _, k := range w.Report.Kinds() {
				fmt.Fprintf(tw, "%s\t%d\t%d\n", k, w.Report.Placed[k], w.Report.Requested[k])
			}
			fmt.Fprintf(tw, "roads\t%d\t\n", len(w.Roads()))
			fmt.Fprintf(tw, "intersections\t%d\t\n", len(w.Intersections()))
			if err := tw.Flush(); err != nil {
				return err
			}

			if out != "" {
				if err := writeFile(out, func(f io.Writer) error {
					enc := yaml.NewEncoder(f)
					enc.SetIndent(2)
					if err := enc.Encode(w.Layout); err != nil {
						return fmt.Errorf("encoding layout: %w", err)
					}
					return enc.Close()
				}); err != nil {
					return err
				}
				a.log.Info().Str("path", out).Msg("layout written")
			}
			if mapPath != "" {
				if err := writeFile(mapPath, func(f io.Writer) error {
					return world.RenderMap(f, w, nil)
				}); err != nil {
					return err
				}
				a.log.Info().Str("path", mapPath).Msg("city map written")
			}
			if geoPath != "" {
				ref := world.NewGeoReference(w.Layout.Origin)
				if err := writeFile(geoPath, func(f io.Writer) error {
					return world.ExportGeoJSON(f, w, ref)
				}); err != nil {
					return err
				}
				a.log.Info().Str("path", geoPath).Msg("geojson written")
			}
			return nil
		},
	}

	cmd.Flags().Int64Var(&seed, "seed", 0, "placement seed (defaults to world.seed, 0 picks a time seed)")
	cmd.Flags().StringVar(&out, "out", "", "write the resolved layout as YAML")
	cmd.Flags().StringVar(&mapPath, "map", "", "write an HTML top-down map")
	cmd.Flags().StringVar(&geoPath, "geojson", "", "write roads and objects as GeoJSON")
	return cmd
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	return nil
}
