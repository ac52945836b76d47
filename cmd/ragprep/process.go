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

	"github.com/spf13/cobra"

	"github.com/bcem/ragprep/internal/eml"
	"github.com/bcem/ragprep/internal/pipeline"
)

var processCmd = &cobra.Command{
	Use:   "process [paths...]",
	Short: "Prepare .eml and .json email files",
	Long: `Process reads .eml files and JSON email records (a single object or an
array) from the given files and directories, runs each email through the
preparation pipeline and writes the resulting search documents to the
configured outputs.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runProcess,
}

func init() {
	addPipelineFlags(processCmd)
	addSinkFlags(processCmd)

	rootCmd.AddCommand(processCmd)
}

func runProcess(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	proc, workers, err := newProcessor(cmd)
	if err != nil {
		return err
	}

	emails, unreadable, err := eml.Load(args...)
	if err != nil {
		return err
	}
	slog.Info("emails loaded", "emails", len(emails), "unreadable", unreadable)
	if len(emails) == 0 {
		return fmt.Errorf("no email files found in %v", args)
	}

	s, err := openStack(ctx, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	runner := pipeline.NewRunner(pipeline.RunnerConfig{
		Processor: proc,
		Sinks:     s.sinks,
		Dedup:     s.dedup,
		Ledger:    s.ledger,
		Workers:   workers,
	})

	res, err := runner.Run(ctx, emails)
	printSummary(cmd.ErrOrStderr(), res)
	if err != nil {
		return err
	}
	if res.Failed+unreadable > 0 {
		return fmt.Errorf("%d email(s) failed", res.Failed+unreadable)
	}
	return nil
}
