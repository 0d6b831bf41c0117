package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/DockeryAI/competitor-intel/internal/identity"
)

var competitorsBrandID string

var competitorsCmd = &cobra.Command{
	Use:   "competitors",
	Short: "Manage the competitor set",
}

var competitorsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tracked competitors for a brand",
	RunE: func(cmd *cobra.Command, args []string) error {
		if competitorsBrandID == "" {
			return eris.New("--brand is required")
		}

		env, err := initIntel(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		comps, err := env.Store.GetCompetitors(cmd.Context(), competitorsBrandID)
		if err != nil {
			return eris.Wrap(err, "list competitors")
		}
		comps = identity.DedupeProfiles(comps)

		if len(comps) == 0 {
			fmt.Println("no competitors tracked")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tWEBSITE\tLAST SCANNED")
		for _, c := range comps {
			last := "never"
			if !c.UpdatedAt.IsZero() {
				last = c.UpdatedAt.Format("2006-01-02 15:04")
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", c.ID, c.Name, c.Website, last)
		}
		return w.Flush()
	},
}

var competitorsRemoveCmd = &cobra.Command{
	Use:   "remove <competitor-id>",
	Short: "Remove a competitor and its exclusive gaps",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initIntel(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		if err := env.Store.RemoveCompetitor(cmd.Context(), args[0]); err != nil {
			return eris.Wrap(err, "remove competitor")
		}
		fmt.Println("removed")
		return nil
	},
}

func init() {
	competitorsCmd.PersistentFlags().StringVar(&competitorsBrandID, "brand", "", "brand ID")
	competitorsCmd.AddCommand(competitorsListCmd)
	competitorsCmd.AddCommand(competitorsRemoveCmd)
	rootCmd.AddCommand(competitorsCmd)
}
