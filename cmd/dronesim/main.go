package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func main() {
	a := &app{}
	rootCmd := newRootCmd(a)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if cerr := a.close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "dronesim",
		Short:        "Drone flight over a procedurally generated city",
		SilenceUsage: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return a.init()
		},
	}
	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "", "config file or directory holding dronesim.yaml")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "override log.level (DEBUG, INFO, WARN, ERROR, TRACE)")

	rootCmd.AddCommand(flyCmd(a))
	rootCmd.AddCommand(headlessCmd(a))
	rootCmd.AddCommand(tuiCmd(a))
	rootCmd.AddCommand(worldgenCmd(a))
	rootCmd.AddCommand(plotCmd(a))
	rootCmd.AddCommand(sessionsCmd(a))
	return rootCmd
}
