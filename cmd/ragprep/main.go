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

// Command ragprep prepares emails for search and RAG indexing.
//
// Usage:
//
//	ragprep process ./mail --output docs.jsonl
//	ragprep graph --tenant contoso --since 168h --index ./index
//	ragprep search "quarterly forecast" --index ./index
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bcem/ragprep/internal/config"
)

// version is set at build time via ldflags.
var version = "dev"

// cfg is loaded before any subcommand runs.
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "ragprep",
	Short: "Prepare emails for search and RAG indexing",
	Long: `ragprep cleans email content (HTML to text, signature removal, whitespace
normalisation), extracts entities, scores quality, splits the text into
overlapping chunks and flattens everything into search documents.

Emails come from .eml/.json files (process) or Microsoft 365 mailboxes
(graph). Documents go to a JSONL file, a local bleve index and/or a Redis
queue.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, _ := cmd.Flags().GetString("log-level")
		setupLogging(level)

		config.LoadDotEnv()
		path, _ := cmd.Flags().GetString("config")
		if path == "" {
			path = os.Getenv("CONFIG_PATH")
		}
		loaded, err := config.LoadFile(path)
		if err != nil {
			return err
		}
		cfg = loaded
		if path != "" {
			slog.Debug("using config file", "path", path)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file (default: $CONFIG_PATH, else environment only)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level: debug, info, warn, error")
}

func setupLogging(level string) {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	// Logs go to stderr so stdout stays clean for JSONL output.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
