package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aluiziolira/go-scrape-catalog/config"
	"github.com/aluiziolira/go-scrape-catalog/models"
	"github.com/spf13/cobra"
)

const defaultRunOutput = "output/catalog.csv"

var (
	runOutput   string
	runMaxPages int
	runDelay    time.Duration
)

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one scrape job in the foreground and write the CSV export",
		RunE:  runOnce,
	}
	cmd.Flags().StringVarP(&runOutput, "output", "o", defaultRunOutput, "export file path (overrides config)")
	cmd.Flags().IntVar(&runMaxPages, "pages", 0, "maximum listing pages (overrides config)")
	cmd.Flags().DurationVar(&runDelay, "delay", -1, "politeness delay between requests (overrides config)")
	return cmd
}

func runOnce(cmd *cobra.Command, args []string) error {
	outputChanged := cmd.Flags().Changed("output")
	cfg, err := loadConfig(func(cfg *config.Config) {
		applyRunFlags(cfg, outputChanged)
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	start := time.Now()
	state, err := a.orch.Run(ctx)
	if err != nil {
		return err
	}
	printSummary(state, time.Since(start), cfg.OutputFile)
	return nil
}

// applyRunFlags overlays the run flags on cfg. The output path from the
// config file or environment wins over the flag default.
func applyRunFlags(cfg *config.Config, outputChanged bool) {
	switch {
	case outputChanged:
		cfg.OutputFile = runOutput
	case cfg.OutputFile == "":
		cfg.OutputFile = defaultRunOutput
	}
	if runMaxPages > 0 {
		cfg.MaxPages = runMaxPages
	}
	if runDelay >= 0 {
		cfg.Delay = runDelay
	}
}

func printSummary(state models.JobState, duration time.Duration, outputFile string) {
	separator := "--------------------------------------------------"
	fmt.Println("\n" + separator)
	fmt.Println("Scrape complete")
	fmt.Printf("  Job:           %s\n", state.JobID)
	fmt.Printf("  Pages:         %d/%d\n", state.ScrapedPages, state.TotalPages)
	fmt.Printf("  Items visited: %d/%d\n", state.ScrapedItems, state.TotalItems)
	fmt.Printf("  Items kept:    %d\n", state.KeptItems)
	fmt.Printf("  Export bytes:  %d\n", len(state.Export))
	fmt.Printf("  Duration:      %v\n", duration)
	fmt.Printf("  Output file:   %s\n", outputFile)
	fmt.Println(separator)
}
