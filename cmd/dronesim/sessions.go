package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func sessionsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List stored flights",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			sessions, err := store.ListSessions(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tCREATED\tNAME\tFRAMES\tDURATION\tDISTANCE")
			for _, s := range sessions {
				sum, err := s.DecodeSummary()
				if err != nil {
					a.log.Warn().Err(err).Str("session", s.ID.String()).Msg("unreadable summary")
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%.1fs\t%.1fm\n",
					s.ID, s.CreatedAt.Format("2006-01-02 15:04:05"), s.Name, s.FrameCount, sum.Duration, sum.Distance)
			}
			return tw.Flush()
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "delete <session-id>",
		Short: "Delete a stored flight",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("parsing session id: %w", err)
			}
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()
			if err := store.DeleteSession(cmd.Context(), id); err != nil {
				return err
			}
			a.log.Info().Str("session", id.String()).Msg("session deleted")
			return nil
		},
	})
	return cmd
}
