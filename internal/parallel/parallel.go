// Package parallel runs batches of saved-funnel work (deletes, exports)
// with a concurrency limit and prints one status line per task.
package parallel

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/msalah0e/funnel/internal/ui"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency applies when a caller passes a limit below one.
const DefaultConcurrency = 4

// Result holds the outcome of one task.
type Result struct {
	Name    string
	OK      bool
	Err     error
	Output  string
	Elapsed time.Duration
}

// Task is a unit of batch work, such as deleting or exporting one saved
// funnel. Output is a short description of what it produced, like the
// file written.
type Task struct {
	Name string
	Fn   func(ctx context.Context) (string, error)
}

// Run executes tasks and reports progress on stdout.
func Run(ctx context.Context, tasks []Task, concurrency int) []Result {
	return RunTo(ctx, os.Stdout, tasks, concurrency)
}

// RunTo executes tasks, at most concurrency at a time, writing a status
// line per task to w. A nil w runs silently. Results keep submission
// order; tasks not yet started when ctx is cancelled fail with ctx's error.
func RunTo(ctx context.Context, w io.Writer, tasks []Task, concurrency int) []Result {
	if concurrency < 1 {
		concurrency = DefaultConcurrency
	}
	if w == nil {
		w = io.Discard
	}

	results := make([]Result, len(tasks))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, task := range tasks {
		g.Go(func() error {
			start := time.Now()
			output, err := "", gctx.Err()
			if err == nil {
				output, err = task.Fn(gctx)
			}
			r := Result{Name: task.Name, OK: err == nil, Err: err, Output: output, Elapsed: time.Since(start)}

			mu.Lock()
			results[i] = r
			report(w, r)
			mu.Unlock()

			// A failed record must not cancel the rest of the batch.
			return nil
		})
	}

	_ = g.Wait()
	return results
}

func report(w io.Writer, r Result) {
	switch {
	case !r.OK:
		fmt.Fprintf(w, "  %s %s %s\n", ui.StatusIcon(false), r.Name, ui.Bad.Sprintf("(%v)", r.Err))
	case r.Output != "":
		fmt.Fprintf(w, "  %s %s %s %s\n", ui.StatusIcon(true), r.Name, ui.Subtle.Sprint("→"), r.Output)
	default:
		fmt.Fprintf(w, "  %s %s %s\n", ui.StatusIcon(true), r.Name, ui.Subtle.Sprintf("%dms", r.Elapsed.Milliseconds()))
	}
}

// Failed returns the results that did not succeed.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.OK {
			out = append(out, r)
		}
	}
	return out
}
