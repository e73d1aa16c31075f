package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/tendant/simple-asset/pkg/simpleasset"
	"github.com/tendant/simple-asset/pkg/simpleasset/admin"
	"github.com/tendant/simple-asset/pkg/simpleasset/config"
	"github.com/tendant/simple-asset/pkg/simpleasset/scan"
	"golang.org/x/exp/maps"
)

func runStoreCommand(ctx context.Context, command string, args cliArgs) error {
	serverConfig, err := config.Load(config.WithEnv())
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	defer serverConfig.Close()

	if serverConfig.DatabaseType == "memory" {
		slog.Warn("DATABASE_URL is not set, records will not outlive this command")
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	svc, err := serverConfig.BuildService(ctx, simpleasset.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("build service: %w", err)
	}

	switch command {
	case "store":
		return runStore(ctx, svc, args)
	case "load":
		return runLoad(ctx, svc, args)
	case "list":
		return runList(ctx, svc, args)
	case "stats":
		return runStats(ctx, svc, args)
	default:
		return runScan(ctx, svc, args, logger)
	}
}

func runStore(ctx context.Context, svc simpleasset.Service, args cliArgs) error {
	path, err := args.arg("file")
	if err != nil {
		return err
	}
	data, err := readFile(path)
	if err != nil {
		return err
	}
	name := args.flag("name")
	if name == "" && path != "-" {
		name = filepath.Base(path)
	}

	result, err := svc.StoreAsset(ctx, simpleasset.StoreAssetRequest{
		Data:               data,
		FileName:           name,
		MediaType:          args.flag("media-type"),
		StorageBackendName: args.flag("backend"),
	})
	if err != nil {
		return err
	}
	if args.bool("json") {
		return printJSON(result.Record)
	}
	verb := "Stored"
	if result.Deduplicated {
		verb = "Already stored"
	}
	fmt.Printf("%s %s as %s (%s, %s)\n", verb, result.Record.FileName, result.Record.ID,
		result.Record.MediaType, humanize.IBytes(uint64(result.Record.SizeBytes)))
	return nil
}

func runLoad(ctx context.Context, svc simpleasset.Service, args cliArgs) error {
	raw, err := args.arg("id")
	if err != nil {
		return err
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid asset id %q: %w", raw, err)
	}

	if args.bool("envelope") {
		envelope, err := svc.LoadEnvelope(ctx, id)
		if err != nil {
			return err
		}
		out := args.flag("out")
		if out == "" {
			out = simpleasset.EnvelopeFileName(id)
		}
		return writeOutput(out, envelope)
	}

	a, err := svc.LoadAsset(ctx, id)
	if err != nil {
		return err
	}
	out := args.flag("out")
	if out == "" {
		out = a.Name().String()
	}
	if err := writeOutput(out, a.Bytes()); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Wrote %s to %s\n", humanize.IBytes(uint64(a.Size())), out)
	return nil
}

func runList(ctx context.Context, svc simpleasset.Service, args cliArgs) error {
	req, err := args.listRequest()
	if err != nil {
		return err
	}
	records, err := svc.ListAssets(ctx, req)
	if err != nil {
		return err
	}
	countReq := req
	countReq.Limit, countReq.Offset = 0, 0
	total, err := svc.CountAssets(ctx, countReq)
	if err != nil {
		return err
	}

	if args.bool("json") {
		return printJSON(map[string]any{"assets": records, "total": total})
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ID\tNAME\tTYPE\tSIZE\tSTATUS\tCREATED\n")
	for _, record := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			record.ID,
			truncate(record.FileName, 30),
			truncate(record.MediaType, 30),
			humanize.IBytes(uint64(record.SizeBytes)),
			record.Status,
			record.CreatedAt.Format("2006-01-02 15:04:05"),
		)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Printf("\nShowing %d of %d", len(records), total)
	if next := int64(req.Offset + len(records)); next < total {
		fmt.Printf(" (use --offset=%d to continue)", next)
	}
	fmt.Println()
	return nil
}

func runScan(ctx context.Context, svc simpleasset.Service, args cliArgs, logger *slog.Logger) error {
	filters, err := args.listRequest()
	if err != nil {
		return err
	}

	scanner := scan.New(svc, logger)
	result, err := scanner.Scan(ctx, scan.ScanOptions{
		Filters:   filters,
		Processor: &scan.VerifyProcessor{Service: svc, AllowLegacy: args.bool("allow-legacy")},
		DryRun:    args.bool("dry-run"),
		OnProgress: func(processed, total int64) {
			if !args.bool("json") {
				fmt.Fprintf(os.Stderr, "\rVerified %d of %d", processed, total)
			}
		},
	})
	if err != nil {
		return err
	}

	if args.bool("json") {
		return printJSON(result)
	}
	fmt.Fprintln(os.Stderr)
	fmt.Printf("Found: %d  Processed: %d  Failed: %d\n", result.TotalFound, result.TotalProcessed, result.TotalFailed)
	for _, id := range result.FailedIDs {
		fmt.Printf("  corrupt: %s\n", id)
	}
	if result.TotalFailed > 0 {
		return fmt.Errorf("%d assets failed verification", result.TotalFailed)
	}
	return nil
}

func runStats(ctx context.Context, svc simpleasset.Service, args cliArgs) error {
	filters, err := args.listRequest()
	if err != nil {
		return err
	}
	resp, err := admin.New(svc).GetStatistics(ctx, admin.StatisticsRequest{
		Filters: filters,
		Options: admin.DefaultStatisticsOptions(),
	})
	if err != nil {
		return err
	}
	if args.bool("json") {
		return printJSON(resp)
	}

	stats := resp.Statistics
	fmt.Println("=== Asset Statistics ===")
	fmt.Printf("\nTotal Count: %d\n", stats.TotalCount)
	fmt.Printf("Total Size:  %s\n", humanize.IBytes(uint64(stats.TotalBytes)))

	for _, section := range []struct {
		title  string
		counts map[string]int64
	}{
		{"By Status", stats.ByStatus},
		{"By Category", stats.ByCategory},
		{"By Signature", stats.BySignature},
		{"By Backend", stats.ByBackend},
	} {
		if len(section.counts) == 0 {
			continue
		}
		fmt.Printf("\n%s:\n", section.title)
		keys := maps.Keys(section.counts)
		slices.Sort(keys)
		for _, key := range keys {
			fmt.Printf("  %-15s: %d\n", key, section.counts[key])
		}
	}

	if stats.OldestAsset != nil && stats.NewestAsset != nil {
		fmt.Println("\nTime Range:")
		fmt.Printf("  Oldest: %s (%s)\n", stats.OldestAsset.Format(time.RFC3339), humanize.Time(*stats.OldestAsset))
		fmt.Printf("  Newest: %s (%s)\n", stats.NewestAsset.Format(time.RFC3339), humanize.Time(*stats.NewestAsset))
	}
	return nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
