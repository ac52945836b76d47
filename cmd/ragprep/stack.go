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
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/bcem/ragprep/internal/dedup"
	"github.com/bcem/ragprep/internal/index"
	"github.com/bcem/ragprep/internal/pipeline"
	"github.com/bcem/ragprep/internal/queue"
	"github.com/bcem/ragprep/internal/store"
)

// addPipelineFlags registers overrides for the pipeline settings.
func addPipelineFlags(cmd *cobra.Command) {
	cmd.Flags().Int("chunk-size", 0, "chunk size in characters (default from config)")
	cmd.Flags().Int("overlap", 0, "chunk overlap in characters (default from config)")
	cmd.Flags().Float64("quality-threshold", 0, "skip emails scoring below this (0 disables)")
	cmd.Flags().Int("workers", 0, "concurrent emails (default from config)")
	cmd.Flags().Bool("keep-signatures", false, "do not strip signatures and disclaimers")
	cmd.Flags().Bool("no-entities", false, "skip entity extraction")
	cmd.Flags().Bool("no-optimize", false, "skip RAG text optimisation")
}

// addSinkFlags registers the output destinations.
func addSinkFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("output", "o", "", `write documents as JSON lines to this file ("-" for stdout)`)
	cmd.Flags().String("index", "", "add documents to the bleve index at this path (default from config)")
	cmd.Flags().Bool("publish", false, "push documents to the Redis indexing queue")
	cmd.Flags().Bool("dedup", false, "skip emails already seen (Redis)")
	cmd.Flags().Bool("record", false, "record per-email outcomes in Postgres")
}

// newProcessor builds a processor from the loaded config and any flag
// overrides.
func newProcessor(cmd *cobra.Command) (*pipeline.Processor, int, error) {
	p := cfg.Pipeline
	f := cmd.Flags()
	if f.Changed("chunk-size") {
		p.ChunkSize, _ = f.GetInt("chunk-size")
	}
	if f.Changed("overlap") {
		p.Overlap, _ = f.GetInt("overlap")
	}
	if f.Changed("quality-threshold") {
		p.QualityThreshold, _ = f.GetFloat64("quality-threshold")
	}
	if f.Changed("workers") {
		p.Workers, _ = f.GetInt("workers")
	}
	if keep, _ := f.GetBool("keep-signatures"); keep {
		p.RemoveSignatures = false
	}
	if off, _ := f.GetBool("no-entities"); off {
		p.ExtractEntities = false
	}
	if off, _ := f.GetBool("no-optimize"); off {
		p.OptimizeForRAG = false
	}

	proc, err := pipeline.NewProcessor(p)
	if err != nil {
		return nil, 0, fmt.Errorf("invalid pipeline settings: %w", err)
	}
	return proc, p.Workers, nil
}

// stack holds the sinks and optional services a command writes to.
type stack struct {
	sinks   []pipeline.Sink
	dedup   pipeline.Deduper
	ledger  pipeline.Ledger
	closers []func()
}

func (s *stack) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// openStack connects every destination requested on the command line.
func openStack(ctx context.Context, cmd *cobra.Command) (*stack, error) {
	s := &stack{}
	f := cmd.Flags()

	if out, _ := f.GetString("output"); out != "" {
		var w io.Writer = cmd.OutOrStdout()
		if out != "-" {
			file, err := os.Create(out)
			if err != nil {
				return nil, fmt.Errorf("create output file: %w", err)
			}
			s.closers = append(s.closers, func() { file.Close() })
			w = file
		}
		s.sinks = append(s.sinks, newJSONLSink(w))
	}

	indexPath, _ := f.GetString("index")
	if indexPath == "" {
		indexPath = cfg.IndexPath
	}
	if indexPath != "" {
		idx, err := index.Open(indexPath)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.sinks = append(s.sinks, idx)
		s.closers = append(s.closers, func() { idx.Close() })
	}

	publish, _ := f.GetBool("publish")
	useDedup, _ := f.GetBool("dedup")
	if publish || useDedup {
		rdb, err := connectRedis(ctx)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.closers = append(s.closers, func() { rdb.Close() })
		if publish {
			s.sinks = append(s.sinks, queue.NewPublisher(rdb, cfg.DocumentsQueue))
		}
		if useDedup {
			s.dedup = dedup.NewFilter(rdb, cfg.DedupTTL)
		}
	}

	if record, _ := f.GetBool("record"); record {
		if cfg.DatabaseURL == "" {
			s.Close()
			return nil, fmt.Errorf("--record needs DATABASE_URL")
		}
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("create Postgres pool: %w", err)
		}
		s.closers = append(s.closers, pool.Close)
		ledger, err := store.NewStore(ctx, pool, uuid.NewString())
		if err != nil {
			s.Close()
			return nil, err
		}
		s.ledger = ledger
	}

	if len(s.sinks) == 0 {
		slog.Warn("no output configured; documents are prepared but not written (use --output, --index or --publish)")
	}
	return s, nil
}

func connectRedis(ctx context.Context) (*redis.Client, error) {
	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("redis needs REDIS_URL")
	}
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("connect to Redis: %w", err)
	}
	slog.Info("connected to Redis")
	return rdb, nil
}

// printSummary writes a batch summary to w.
func printSummary(w io.Writer, res *pipeline.BatchResult) {
	fmt.Fprintf(w, "processed %d, skipped %d, failed %d in %s\n",
		res.Processed, res.Skipped, res.Failed, res.Elapsed.Round(time.Millisecond))
	for _, o := range res.Outcomes {
		if o.Status == pipeline.StatusProcessed {
			continue
		}
		line := fmt.Sprintf("  %-9s %s", o.Status, o.SourceID)
		if o.Reason != "" {
			line += " (" + o.Reason + ")"
		}
		if o.Error != "" && o.Reason != pipeline.ReasonMissingContent {
			line += ": " + o.Error
		}
		fmt.Fprintln(w, line)
	}
}
