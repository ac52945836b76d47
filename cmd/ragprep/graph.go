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
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/bcem/ragprep/internal/backfill"
	"github.com/bcem/ragprep/internal/config"
	"github.com/bcem/ragprep/internal/graph"
	"github.com/bcem/ragprep/internal/pipeline"
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Prepare emails from Microsoft 365 mailboxes",
	Long: `Graph reads messages received within the lookback window from the
mailboxes of a configured tenant through the Microsoft Graph API and runs
them through the preparation pipeline. Without --users every licensed
mailbox is read, minus the tenant's exclude list.`,
	RunE: runGraph,
}

func init() {
	graphCmd.Flags().String("tenant", "", "tenant alias from the config file (required)")
	graphCmd.Flags().String("users", "", "comma-separated mailboxes (default: discover)")
	graphCmd.Flags().Duration("since", 0, "lookback window, e.g. 168h (default from config)")
	_ = graphCmd.MarkFlagRequired("tenant")
	addPipelineFlags(graphCmd)
	addSinkFlags(graphCmd)

	rootCmd.AddCommand(graphCmd)
}

func runGraph(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	alias, _ := cmd.Flags().GetString("tenant")
	tenant := findTenant(cfg.Tenants, alias)
	if tenant == nil {
		return fmt.Errorf("tenant %q not found in configuration", alias)
	}

	since, _ := cmd.Flags().GetDuration("since")
	if since <= 0 {
		since = cfg.GraphLookback
	}

	proc, workers, err := newProcessor(cmd)
	if err != nil {
		return err
	}

	creds := &clientcredentials.Config{
		ClientID:     tenant.ClientID,
		ClientSecret: tenant.ClientSecret,
		TokenURL:     fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/v2.0/token", tenant.TenantID),
		Scopes:       []string{"https://graph.microsoft.com/.default"},
	}
	client := graph.NewClient(creds.Client(ctx), cfg.GraphBaseURL)

	usersFlag, _ := cmd.Flags().GetString("users")
	include := splitList(usersFlag)
	if len(include) == 0 {
		include = tenant.Users
	}
	users, err := client.ListUsers(ctx, include, tenant.ExcludeUsers)
	if err != nil {
		return fmt.Errorf("user discovery failed: %w", err)
	}
	if len(users) == 0 {
		return fmt.Errorf("no mailboxes to read for tenant %s", tenant.Alias)
	}
	keys := make([]string, 0, len(users))
	for _, u := range users {
		keys = append(keys, u.Key())
	}
	slog.Info("resolved mailboxes", "tenant", tenant.Alias, "count", len(keys))

	s, err := openStack(ctx, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	runner := backfill.NewRunner(backfill.RunnerConfig{
		Source: client,
		Pipeline: pipeline.NewRunner(pipeline.RunnerConfig{
			Processor: proc,
			Sinks:     s.sinks,
			Dedup:     s.dedup,
			Ledger:    s.ledger,
			Workers:   workers,
		}),
	})

	result, err := runner.Run(ctx, backfill.BackfillRequest{
		TenantAlias: tenant.Alias,
		Users:       keys,
		Since:       since,
	})

	w := cmd.ErrOrStderr()
	fmt.Fprintf(w, "tenant %s: processed %d, skipped %d, failed %d in %s\n",
		result.TenantAlias, result.TotalProcessed, result.TotalSkipped, result.TotalFailed, result.Elapsed)
	for _, ur := range result.UserResults {
		fmt.Fprintf(w, "  %s: fetched %d, processed %d, skipped %d, failed %d, errors %d\n",
			ur.UserID, ur.Fetched, ur.Processed, ur.Skipped, ur.Failed, ur.Errors)
	}
	return err
}

func findTenant(tenants []config.TenantConfig, alias string) *config.TenantConfig {
	for i := range tenants {
		if strings.EqualFold(tenants[i].Alias, alias) {
			return &tenants[i]
		}
	}
	return nil
}

// splitList splits a comma-separated flag value, dropping blanks.
func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
