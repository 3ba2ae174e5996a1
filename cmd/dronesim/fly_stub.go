//go:build test
// +build test

package main

import (
	"errors"

	"github.com/spf13/cobra"
)

func flyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "fly",
		Short: "Open the 3D window and fly (not available in test builds)",
		RunE: func(*cobra.Command, []string) error {
			return errors.New("the window is not built with the test tag")
		},
	}
}
