package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/polyglot/internal/pipeline"
)

func newBatchCmd(a *app) *cobra.Command {
	batchCmd := &cobra.Command{
		Use:   "batch FILE...",
		Short: "Translate every line of one or more files",
		Long: `Translate every non-empty line of the given files in parallel.

Results keep the input order. Without --continue-on-error the first failure
cancels the lines that have not started yet and the command fails.

Examples:
  polyglot batch phrases.txt --to en
  polyglot batch a.txt b.txt --to de --workers 8 --format csv --output out.csv`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg

			format := a.outputFormat(cmd)
			if err := validateFormat(format, pipeline.FormatText, pipeline.FormatJSON, pipeline.FormatCSV); err != nil {
				return err
			}

			workers := cfg.Batch.Workers
			if cmd.Flags().Changed("workers") {
				workers, _ = cmd.Flags().GetInt("workers")
			}
			continueOnError := cfg.Batch.ContinueOnError
			if cmd.Flags().Changed("continue-on-error") {
				continueOnError, _ = cmd.Flags().GetBool("continue-on-error")
			}
			if workers <= 0 {
				return fmt.Errorf("invalid workers: %d (must be positive)", workers)
			}

			texts, err := readLines(args)
			if err != nil {
				return err
			}

			svc, err := buildServices(cmd.Context(), cfg, buildOptions{history: true, workers: workers})
			if err != nil {
				return err
			}
			defer func() { _ = svc.Close() }()

			from, _ := cmd.Flags().GetString("from")
			to, _ := cmd.Flags().GetString("to")
			opts := pipeline.BatchOptions{Source: from, Target: to, ContinueOnError: continueOnError}
			if quiet, _ := cmd.Flags().GetBool("quiet"); !quiet {
				opts.Progress = pipeline.NewConsoleProgressCallback(cmd.ErrOrStderr(), "Translating ")
			}

			start := time.Now()
			items, err := svc.pipeline.TranslateBatch(cmd.Context(), texts, opts)
			if err != nil {
				return err
			}
			stats := svc.pipeline.CalculateBatchStats(items, time.Since(start))
			slog.Info("Batch finished",
				"total", stats.Total, "succeeded", stats.Succeeded, "failed", stats.Failed,
				"workers", stats.Workers, "throughput_per_sec", stats.ThroughputPerSec)

			out, err := pipeline.FormatBatch(items, texts, format)
			if err != nil {
				return err
			}
			if err := writeOutput(cmd, out); err != nil {
				return err
			}

			if stats.Failed > 0 && !continueOnError {
				return fmt.Errorf("%d of %d texts failed: %w", stats.Failed, stats.Total, firstError(items))
			}
			return nil
		},
	}

	batchCmd.Flags().String("from", "auto", "source language code, or auto")
	batchCmd.Flags().String("to", "", "target language code")
	batchCmd.Flags().StringP("format", "f", "text", "output format (text, json, csv)")
	batchCmd.Flags().StringP("output", "o", "", "write results to a file instead of stdout")
	batchCmd.Flags().IntP("workers", "w", 4, "number of parallel workers")
	batchCmd.Flags().Bool("continue-on-error", false, "keep translating after a failure")
	batchCmd.Flags().BoolP("quiet", "q", false, "do not print progress")
	_ = batchCmd.MarkFlagRequired("to")
	return batchCmd
}

// readLines collects the non-empty lines of files in order.
func readLines(files []string) ([]string, error) {
	var texts []string
	for _, name := range files {
		f, err := os.Open(name) //nolint:gosec // G304: paths are user-supplied CLI arguments
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", name, err)
		}
		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			if line := strings.TrimSpace(scanner.Text()); line != "" {
				texts = append(texts, line)
			}
		}
		err = scanner.Err()
		_ = f.Close()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
	}
	if len(texts) == 0 {
		return nil, errors.New("no text found in the input files")
	}
	return texts, nil
}

func writeOutput(cmd *cobra.Command, out string) error {
	path, _ := cmd.Flags().GetString("output")
	if path == "" {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), out)
		return err
	}
	if err := os.WriteFile(path, []byte(out+"\n"), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	slog.Info("Results written", "file", path)
	return nil
}

// firstError prefers the failure that cancelled the batch over the
// cancellations it caused.
func firstError(items []pipeline.BatchItem) error {
	var canceled error
	for _, it := range items {
		switch {
		case it.Err == nil:
		case errors.Is(it.Err, context.Canceled):
			if canceled == nil {
				canceled = it.Err
			}
		default:
			return it.Err
		}
	}
	return canceled
}
