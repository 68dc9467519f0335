package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eidetic-labs/eideticmcp/internal/store"
	"github.com/eidetic-labs/eideticmcp/internal/telemetry"
)

// newStatsCmd creates the stats command: reports the query telemetry
// side channel wired off the search path in internal/search, never
// consulted for ranking.
func newStatsCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show query telemetry collected during this process",
		Long: `Stats reports query type distribution, top terms, zero-result
queries, and latency histogram buckets recorded as a best-effort side
channel by every search. Telemetry is observational only; it never
feeds back into ranking.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			defer a.Close()

			snap := a.Metrics.Snapshot()

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(snap)
			}

			printStats(cmd, snap)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func printStats(cmd *cobra.Command, snap *telemetry.QueryMetricsSnapshot) {
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, "Query Telemetry")
	fmt.Fprintln(out, "===============")
	fmt.Fprintf(out, "Total queries:     %d\n", snap.TotalQueries)
	fmt.Fprintf(out, "Zero-result:       %d (%.1f%%)\n", snap.ZeroResultCount, snap.ZeroResultPercentage())
	fmt.Fprintf(out, "Repetition:        %s\n", snap.RepetitionSummary())
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Query types:")
	for _, qt := range []telemetry.QueryType{telemetry.QueryTypeLexical, telemetry.QueryTypeSemantic, telemetry.QueryTypeMixed} {
		if count, ok := snap.QueryTypeCounts[qt]; ok {
			fmt.Fprintf(out, "  %-10s %d\n", qt, count)
		}
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Latency distribution:")
	for _, b := range []telemetry.LatencyBucket{telemetry.BucketP10, telemetry.BucketP50, telemetry.BucketP100, telemetry.BucketP500, telemetry.BucketP1000} {
		if count, ok := snap.LatencyDistribution[b]; ok {
			fmt.Fprintf(out, "  %-6s %d\n", b, count)
		}
	}
	fmt.Fprintln(out)

	if len(snap.TopTerms) > 0 {
		fmt.Fprintln(out, "Top terms:")
		limit := len(snap.TopTerms)
		if limit > 15 {
			limit = 15
		}
		for _, tc := range snap.TopTerms[:limit] {
			fmt.Fprintf(out, "  %-20s %d\n", tc.Term, tc.Count)
		}
		fmt.Fprintln(out)
	}

	if len(snap.ZeroResultQueries) > 0 {
		fmt.Fprintln(out, "Recent zero-result queries:")
		limit := len(snap.ZeroResultQueries)
		if limit > 10 {
			limit = 10
		}
		for _, q := range snap.ZeroResultQueries[:limit] {
			fmt.Fprintf(out, "  - %s\n", q)
		}
		fmt.Fprintln(out)
	}

	if len(snap.ResultCategoryCounts) > 0 {
		fmt.Fprintln(out, "Result category mix:")
		for _, cat := range []store.FileCategory{
			store.CategorySource, store.CategoryTest, store.CategoryConfig,
			store.CategoryDoc, store.CategoryGenerated,
		} {
			if count, ok := snap.ResultCategoryCounts[cat]; ok {
				fmt.Fprintf(out, "  %-10s %d\n", cat, count)
			}
		}
	}
}
