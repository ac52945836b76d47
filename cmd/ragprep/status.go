// Copyright (c) 2026 John Earle
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/bcem/ragprep/internal/pipeline"
	"github.com/bcem/ragprep/internal/store"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the processing ledger",
	Long: `Status prints per-status email counts from the Postgres ledger written
with --record, followed by the most recent failures.`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().Int("failures", 10, "number of recent failures to list")

	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("status needs DATABASE_URL")
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("create Postgres pool: %w", err)
	}
	defer pool.Close()

	ledger, err := store.NewStore(ctx, pool, "status")
	if err != nil {
		return err
	}

	counts, err := ledger.StatusCounts(ctx)
	if err != nil {
		return fmt.Errorf("count outcomes: %w", err)
	}
	statuses := make([]string, 0, len(counts))
	for s := range counts {
		statuses = append(statuses, s)
	}
	sort.Strings(statuses)

	out := cmd.OutOrStdout()
	for _, s := range statuses {
		fmt.Fprintf(out, "%-10s %d\n", s, counts[s])
	}

	n, _ := cmd.Flags().GetInt("failures")
	if n <= 0 {
		return nil
	}
	failed, err := ledger.ListByStatus(ctx, pipeline.StatusFailed, n)
	if err != nil {
		return fmt.Errorf("list failures: %w", err)
	}
	if len(failed) > 0 {
		fmt.Fprintln(out, "\nrecent failures:")
	}
	for _, r := range failed {
		fmt.Fprintf(out, "  %s  %s  %s: %s\n",
			r.ProcessedAt.Format("2006-01-02 15:04:05"), r.SourceID, r.Reason, r.Error)
	}
	return nil
}
