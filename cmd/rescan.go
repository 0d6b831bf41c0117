package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/DockeryAI/competitor-intel/internal/model"
	"github.com/DockeryAI/competitor-intel/internal/policy"
)

var (
	rescanContextPath string
	rescanForce       bool
)

var rescanCmd = &cobra.Command{
	Use:   "rescan <competitor-id>",
	Short: "Rescan a single competitor",
	Long:  "Re-runs the full source scan, gap extraction, and enrichment for one competitor. Subject to cache-only mode and the rescan window unless --force is given.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		brand, err := model.LoadBrandContext(rescanContextPath)
		if err != nil {
			return err
		}

		env, err := initIntel(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		res, err := env.Manager.RescanCompetitor(ctx, brand, args[0], rescanForce)
		if err != nil {
			return eris.Wrap(err, "rescan competitor")
		}

		if !res.Allowed {
			switch res.Blocked {
			case policy.BlockThrottle:
				fmt.Println("blocked: competitor was scanned within the rescan window (use --force to override)")
			case policy.BlockCache:
				fmt.Println("blocked: cache-only mode is on (use --force to override)")
			}
			return nil
		}

		fmt.Println("rescan complete")
		return nil
	},
}

func init() {
	rescanCmd.Flags().StringVar(&rescanContextPath, "context", "brand.yaml", "path to the brand context YAML file")
	rescanCmd.Flags().BoolVar(&rescanForce, "force", false, "bypass cache-only mode and the rescan window")
	rootCmd.AddCommand(rescanCmd)
}
