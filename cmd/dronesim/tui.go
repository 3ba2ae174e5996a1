package main

import (
	"io"

	"github.com/spf13/cobra"

	"drone-city-sim/internal/tui"
)

func tuiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Fly from the terminal with a text HUD",
		Long: "Fly from the terminal with a text HUD. Terminals report no key releases, " +
			"so keys count as held for a short window after each press or repeat. " +
			"Use z or an uppercase letter for descend.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// the console logger would scribble over the panel
			if err := a.redirectConsole(io.Discard); err != nil {
				return err
			}

			screen, err := tui.NewTerminal(a.log)
			if err != nil {
				return err
			}
			defer screen.Close()

			sess, err := a.newSession(cmd.Context(), sessionOptions{HUD: screen, Audio: true})
			if err != nil {
				return err
			}
			defer sess.Close()

			return screen.Run(cmd.Context(), sess.sim, a.cfg.Sim.TickRate)
		},
	}
}
