//go:build !test
// +build !test

package main

import (
	"runtime"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/spf13/cobra"

	"drone-city-sim/internal/sim"
	"drone-city-sim/internal/world"
)

func init() {
	// glfw and gl calls must stay on the main thread.
	runtime.LockOSThread()
}

func flyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "fly",
		Short: "Open the 3D window and fly",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			window, err := sim.OpenWindow(sim.WindowOptions{
				Width:  a.cfg.Window.Width,
				Height: a.cfg.Window.Height,
				Title:  a.cfg.Window.Title,
			})
			if err != nil {
				return err
			}
			defer glfw.Terminate()
			defer window.Destroy()

			hud := sim.NewHUDValues()
			var renderer *sim.Renderer
			sess, err := a.newSession(cmd.Context(), sessionOptions{
				HUD:   hud,
				Audio: true,
				Frames: func(w *world.World) (sim.FrameSource, error) {
					r, err := sim.NewRenderer(w, a.cfg.Detection.Brightness, a.cfg.Detection.Contrast)
					if err != nil {
						return nil, err
					}
					renderer = r
					return r, nil
				},
			})
			if err != nil {
				return err
			}
			defer sess.Close()

			overlay, err := sim.NewOverlay()
			if err != nil {
				return err
			}

			done := make(chan struct{})
			defer close(done)
			go func() {
				select {
				case <-cmd.Context().Done():
					window.SetShouldClose(true)
				case <-done:
				}
			}()
			sess.sim.Run(window, renderer, overlay, hud)
			return nil
		},
	}
}
