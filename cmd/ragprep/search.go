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
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bcem/ragprep/internal/index"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the local document index",
	Long: `Search runs a query-string query (e.g. "forecast", "documentType:EmailChunk
+budget") against the bleve index written by process or graph.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().String("index", "", "bleve index path (default from config)")
	searchCmd.Flags().Int("limit", 10, "maximum number of hits")
	searchCmd.Flags().Bool("json", false, "output hits as JSON")

	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("index")
	if path == "" {
		path = cfg.IndexPath
	}
	if path == "" {
		return fmt.Errorf("no index: pass --index or set INDEX_PATH")
	}
	limit, _ := cmd.Flags().GetInt("limit")
	asJSON, _ := cmd.Flags().GetBool("json")

	idx, err := index.Open(path)
	if err != nil {
		return err
	}
	defer idx.Close()

	hits, total, err := idx.Search(strings.Join(args, " "), limit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{"total": total, "hits": hits})
	}

	fmt.Fprintf(out, "%d hit(s)\n", total)
	for _, h := range hits {
		fmt.Fprintf(out, "%.3f  %-11s %s\n", h.Score, h.Type, h.ID)
		if h.Subject != "" {
			fmt.Fprintf(out, "       %s | %s\n", h.Subject, h.Sender)
		}
		if h.Snippet != "" {
			fmt.Fprintf(out, "       %s\n", h.Snippet)
		}
	}
	return nil
}
