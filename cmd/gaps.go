package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var (
	gapsBrandID       string
	gapsShowDismissed bool
)

var gapsCmd = &cobra.Command{
	Use:   "gaps",
	Short: "Manage extracted positioning gaps",
}

var gapsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List gaps for a brand",
	RunE: func(cmd *cobra.Command, args []string) error {
		if gapsBrandID == "" {
			return eris.New("--brand is required")
		}

		env, err := initIntel(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		gaps, err := env.Store.GetGaps(cmd.Context(), gapsBrandID)
		if err != nil {
			return eris.Wrap(err, "list gaps")
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTITLE\tCOMPETITORS\tFLAGS")
		for _, g := range gaps {
			if g.IsDismissed && !gapsShowDismissed {
				continue
			}
			flags := ""
			if g.IsStarred {
				flags += "starred "
			}
			if g.IsDismissed {
				flags += "dismissed"
			}
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", g.ID, g.Title, len(g.CompetitorIDs), flags)
		}
		return w.Flush()
	},
}

var gapsStarCmd = &cobra.Command{
	Use:   "star <gap-id>",
	Short: "Star a gap",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return setGapFlag(cmd, args[0], "star") },
}

var gapsUnstarCmd = &cobra.Command{
	Use:   "unstar <gap-id>",
	Short: "Unstar a gap",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return setGapFlag(cmd, args[0], "unstar") },
}

var gapsDismissCmd = &cobra.Command{
	Use:   "dismiss <gap-id>",
	Short: "Dismiss a gap",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return setGapFlag(cmd, args[0], "dismiss") },
}

var gapsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all gaps and scan history for a brand",
	RunE: func(cmd *cobra.Command, args []string) error {
		if gapsBrandID == "" {
			return eris.New("--brand is required")
		}

		env, err := initIntel(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		if err := env.Store.DeleteGapsForBrand(cmd.Context(), gapsBrandID); err != nil {
			return eris.Wrap(err, "clear gaps")
		}
		if err := env.Store.DeleteScansForBrand(cmd.Context(), gapsBrandID); err != nil {
			return eris.Wrap(err, "clear scan history")
		}
		fmt.Println("cleared")
		return nil
	},
}

func setGapFlag(cmd *cobra.Command, gapID, action string) error {
	env, err := initIntel(cmd.Context())
	if err != nil {
		return err
	}
	defer env.Close()

	switch action {
	case "star":
		err = env.Store.SetGapStarred(cmd.Context(), gapID, true)
	case "unstar":
		err = env.Store.SetGapStarred(cmd.Context(), gapID, false)
	case "dismiss":
		err = env.Store.SetGapDismissed(cmd.Context(), gapID, true)
	}
	if err != nil {
		return eris.Wrapf(err, "%s gap", action)
	}
	fmt.Println("ok")
	return nil
}

func init() {
	gapsCmd.PersistentFlags().StringVar(&gapsBrandID, "brand", "", "brand ID")
	gapsListCmd.Flags().BoolVar(&gapsShowDismissed, "all", false, "include dismissed gaps")
	gapsCmd.AddCommand(gapsListCmd)
	gapsCmd.AddCommand(gapsStarCmd)
	gapsCmd.AddCommand(gapsUnstarCmd)
	gapsCmd.AddCommand(gapsDismissCmd)
	gapsCmd.AddCommand(gapsClearCmd)
	rootCmd.AddCommand(gapsCmd)
}
