package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"photovault/pkg/di"
	"photovault/pkg/logger"
)

func main() {
	source := flag.String("source", "", "source to sync: local, clouddrive or aigen")
	limit := flag.Int("limit", 0, "stop after this many assets (0 = all)")
	reindex := flag.Bool("reindex", false, "rebuild the search index instead of syncing")
	flag.Parse()

	if !*reindex && *source == "" {
		fmt.Fprintln(os.Stderr, "usage: sync -source <local|clouddrive|aigen> [-limit N] | sync -reindex")
		os.Exit(2)
	}

	promptMissingSecrets()

	ctx := context.Background()
	container, err := di.NewContainer(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "initialization failed: %v\n", err)
		os.Exit(1)
	}
	defer container.Cleanup()

	if *reindex {
		report, err := container.SyncService.Reindex(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "reindex failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("reindexed %d records: %d entries before, %d after\n",
			report.Records, report.EntriesBefore, report.EntriesAfter)
		return
	}

	run, err := container.Worker.RunOnce(ctx, *source, *limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sync failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("run %s [%s]: created=%d attached=%d skipped=%d failed=%d\n",
		run.ID, run.Status, run.CreatedCount, run.AttachedCount, run.SkippedCount, run.FailedCount)
	for assetID, outcome := range run.Outcomes {
		fmt.Printf("  %s: %v\n", assetID, outcome)
	}
	if run.LastError != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", *run.LastError)
		os.Exit(1)
	}
	logger.Sync("cli_done", "cli sync finished", map[string]interface{}{"run": run.ID.String()})
}

// promptMissingSecrets asks for the object-store secret when the
// environment does not provide it, so credentials never have to live
// in shell history.
func promptMissingSecrets() {
	if os.Getenv("STORE_SECRET_KEY") != "" {
		return
	}
	fmt.Fprint(os.Stderr, "STORE_SECRET_KEY is not set; enter it now (or leave empty to abort): ")
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return
	}
	secret := strings.TrimSpace(line)
	if secret == "" {
		fmt.Fprintln(os.Stderr, "no secret provided")
		os.Exit(1)
	}
	os.Setenv("STORE_SECRET_KEY", secret)
}
