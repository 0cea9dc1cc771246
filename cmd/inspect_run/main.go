package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/joho/godotenv"

	"spatiotemporal/db"
	"spatiotemporal/models"
)

// Lists recorded batch runs, or the file results of one run.
func main() {
	runID := flag.Int64("run", 0, "Run ID to inspect (0 lists runs)")
	failedOnly := flag.Bool("failed", false, "Only show failed files")
	flag.Parse()

	_ = godotenv.Load()
	ctx := context.Background()

	client, err := db.NewClient(ctx)
	if err != nil {
		log.Fatalf("failed to open manifest: %v", err)
	}
	if client == nil {
		log.Fatal("DB_TYPE=none: no manifest to inspect")
	}
	defer client.Close()

	if *runID == 0 {
		runs, err := client.ListRuns(ctx)
		if err != nil {
			log.Fatalf("failed to list runs: %v", err)
		}
		if len(runs) == 0 {
			fmt.Println("no runs recorded")
			return
		}
		fmt.Printf("%-20s %-25s %9s %6s  %s\n", "RUN", "STARTED", "PROCESSED", "FAILED", "OUTPUT")
		for _, r := range runs {
			fmt.Printf("%-20d %-25s %9d %6d  %s\n", r.ID, r.StartedAt.Format("2006-01-02 15:04:05"), r.Processed, r.Failed, r.OutputRoot)
		}
		return
	}

	run, found, err := client.GetRun(ctx, *runID)
	if err != nil {
		log.Fatalf("failed to load run: %v", err)
	}
	if !found {
		log.Fatalf("run %d not found", *runID)
	}

	results, err := client.GetResults(ctx, *runID)
	if err != nil {
		log.Fatalf("failed to load results: %v", err)
	}

	fmt.Printf("Run %d: %s -> %s\n", run.ID, run.InputRoot, run.OutputRoot)
	fmt.Printf("Config: %s\n\n", run.Config)

	kinds := make(map[string]int)
	for _, r := range results {
		if r.Status == models.StatusFailed {
			kinds[r.ErrorKind]++
		} else if *failedOnly {
			continue
		}
		if r.Status == models.StatusOK {
			fmt.Printf("  ✓ %s/%s %s: %d events, %d plotted\n", r.Split, r.Class, r.InputPath, r.Events, r.Plotted)
		} else {
			fmt.Printf("  ✗ %s/%s %s: [%s] %s\n", r.Split, r.Class, r.InputPath, r.ErrorKind, r.Error)
		}
	}

	if len(kinds) > 0 {
		fmt.Println("\nFailures by kind:")
		for kind, count := range kinds {
			fmt.Printf("  %-15s: %d\n", kind, count)
		}
	}
}
