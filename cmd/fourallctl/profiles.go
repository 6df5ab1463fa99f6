package main

import (
	"fmt"
	"slices"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"fourall/internal/repository"
)

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "List stored profiles by session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		db, err := openDB(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		profiles, err := repository.NewProfileRepository(db).List(ctx)
		if err != nil {
			return err
		}

		sessions := make([]string, 0, len(profiles))
		for sid := range profiles {
			sessions = append(sessions, sid)
		}
		slices.Sort(sessions)

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "SESSION\tLANGUAGE\tMODE\tCOMPLEXITY\tCONFIRM\tCOMPLETE")
		for _, sid := range sessions {
			p := profiles[sid]
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%t\n", sid, p.Language, p.InteractionMode, p.UIComplexity, p.ConfirmMode, p.IsOnboardingComplete)
		}
		return tw.Flush()
	},
}
