package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"
)

// BatchItem is the outcome of one text in a batch. Exactly one of Result
// and Err is set.
type BatchItem struct {
	Index  int     `json:"index"`
	Result *Result `json:"result,omitempty"`
	Err    error   `json:"-"`
}

// BatchOptions tunes TranslateBatch.
type BatchOptions struct {
	Source          string
	Target          string
	ContinueOnError bool             // keep going after a failed item
	Progress        ProgressCallback // optional
}

type textJob struct {
	index int
	text  string
}

// TranslateBatch translates texts with a worker pool. Items come back in
// input order with their own errors. Unless ContinueOnError is set, the
// first failure cancels the items that have not started yet; they report
// context.Canceled.
func (p *Pipeline) TranslateBatch(ctx context.Context, texts []string, opts BatchOptions) ([]BatchItem, error) {
	if len(texts) == 0 {
		return nil, errors.New("no texts provided")
	}

	progress := opts.Progress
	if progress == nil {
		progress = NoOpProgressCallback{}
	}
	progress.OnStart(len(texts))
	defer progress.OnComplete()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	workers := p.cfg.Workers
	if workers > len(texts) {
		workers = len(texts)
	}

	jobs := make(chan textJob)
	results := make(chan BatchItem, len(texts))

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go p.worker(ctx, opts, jobs, results, &wg)
	}

	go func() {
		defer close(jobs)
		for i, text := range texts {
			select {
			case jobs <- textJob{index: i, text: text}:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	items := make([]BatchItem, len(texts))
	done := make([]bool, len(texts))
	processed := 0
	for item := range results {
		items[item.Index] = item
		done[item.Index] = true
		processed++
		if item.Err != nil {
			progress.OnError(item.Index, item.Err)
			if !opts.ContinueOnError {
				cancel()
			}
		}
		progress.OnProgress(processed, len(texts))
	}

	// Texts never handed to a worker.
	for i := range items {
		if !done[i] {
			items[i] = BatchItem{Index: i, Err: context.Canceled}
		}
	}
	return items, nil
}

func (p *Pipeline) worker(ctx context.Context, opts BatchOptions, jobs <-chan textJob, results chan<- BatchItem, wg *sync.WaitGroup) {
	defer wg.Done()
	for job := range jobs {
		if err := ctx.Err(); err != nil {
			results <- BatchItem{Index: job.index, Err: err}
			continue
		}
		res, err := p.Translate(ctx, Request{Text: job.text, Source: opts.Source, Target: opts.Target})
		if err != nil {
			results <- BatchItem{Index: job.index, Err: err}
			continue
		}
		results <- BatchItem{Index: job.index, Result: res}
	}
}

// BatchStats summarises a batch run.
type BatchStats struct {
	Total            int           `json:"total"`
	Succeeded        int           `json:"succeeded"`
	Failed           int           `json:"failed"`
	Workers          int           `json:"workers"`
	TotalDuration    time.Duration `json:"total_duration_ns"`
	ThroughputPerSec float64       `json:"throughput_per_sec"`
}

// CalculateBatchStats computes statistics for a finished batch.
func (p *Pipeline) CalculateBatchStats(items []BatchItem, duration time.Duration) BatchStats {
	stats := BatchStats{Total: len(items), Workers: p.cfg.Workers, TotalDuration: duration}
	for _, it := range items {
		if it.Err != nil {
			stats.Failed++
		} else {
			stats.Succeeded++
		}
	}
	if stats.Succeeded > 0 && duration > 0 {
		stats.ThroughputPerSec = float64(stats.Succeeded) / duration.Seconds()
	}
	return stats
}
