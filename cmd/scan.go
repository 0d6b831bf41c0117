package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/DockeryAI/competitor-intel/internal/model"
	"github.com/DockeryAI/competitor-intel/internal/stream"
)

var (
	scanContextPath string
	scanRefresh     bool
	scanJSON        bool
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run a full competitor analysis for a brand",
	Long:  "Resolves the brand's competitor set (cached or freshly discovered), scans each competitor across all sources, extracts positioning gaps, and enriches with customer voice and battlecards. Progress prints as it happens.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		brand, err := model.LoadBrandContext(scanContextPath)
		if err != nil {
			return err
		}

		env, err := initIntel(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		sub := env.Broker.Subscribe(brand.BrandID)
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ev := range sub.C {
				printEvent(ev)
			}
		}()

		result, err := env.Manager.RunStreamingAnalysis(ctx, brand, model.RunOptions{
			ForceRefresh: scanRefresh,
		})
		sub.Close()
		wg.Wait()
		if err != nil {
			return eris.Wrap(err, "run analysis")
		}

		if scanJSON {
			return json.NewEncoder(os.Stdout).Encode(result)
		}

		fmt.Printf("\n%d competitors, %d gaps, %d enriched\n",
			len(result.Competitors), len(result.Gaps), len(result.Insights))
		for _, g := range result.Gaps {
			fmt.Printf("  - %s\n", g.Title)
		}
		return nil
	},
}

func printEvent(ev stream.Event) {
	switch ev.Type {
	case stream.EventPhaseChanged:
		fmt.Printf("[%3d%%] %s\n", ev.OverallProgress, ev.PhaseLabel)
	case stream.EventCompetitorsResolved:
		fmt.Printf("       analyzing %d competitors\n", len(ev.Competitors))
	case stream.EventScanStarted:
		fmt.Printf("       %s: scanning %s\n", ev.CompetitorName, ev.ScanType)
	case stream.EventScanError:
		fmt.Printf("       %s: %s failed (%s)\n", ev.CompetitorName, ev.ScanType, ev.Error)
	case stream.EventGapSaved:
		if ev.Gap != nil {
			fmt.Printf("       gap: %s\n", ev.Gap.Title)
		}
	case stream.EventError:
		fmt.Printf("run failed: %s\n", ev.Error)
	}
}

func init() {
	scanCmd.Flags().StringVar(&scanContextPath, "context", "brand.yaml", "path to the brand context YAML file")
	scanCmd.Flags().BoolVar(&scanRefresh, "refresh", false, "run fresh discovery even when competitors are cached")
	scanCmd.Flags().BoolVar(&scanJSON, "json", false, "print the final result as JSON")
	rootCmd.AddCommand(scanCmd)
}
