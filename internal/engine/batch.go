package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"golang.org/x/time/rate"

	"github.com/ljcooper54/DeID/internal/auth"
)

// BatchOpts contains configuration for bulk deidentification runs.
type BatchOpts struct {
	OutputDir  string  // Output directory (default: next to each source file)
	NumWorkers int     // Concurrent workers (default: 4)
	RateLimit  float64 // Files started per second (default: 5)
}

// BatchFileResult is the per-file outcome of a batch run.
type BatchFileResult struct {
	InputPath  string
	OutputPath string
	Findings   int
	Success    bool
	Error      error
}

// BatchResult summarizes a bulk deidentification run.
type BatchResult struct {
	TotalFiles int
	Succeeded  int
	Failed     int
	Results    []BatchFileResult
}

type batchJob struct {
	path string
	step int
}

// BatchDeidentify obscures multiple files concurrently with rate limiting
// and progress tracking.
//
// It implements a worker pool pattern; each worker runs the full per-file
// pipeline. Cancelling the context abandons files not yet started, but
// dictionary entries minted for completed files are kept, so a rerun reuses
// their tokens. Partial failures are recorded per file and never abort the
// batch.
func (e *Engine) BatchDeidentify(
	ctx context.Context,
	prog chan<- ProgressUpdate,
	sess *auth.Session,
	paths []string,
	opts BatchOpts,
) (*BatchResult, error) {
	if err := sess.RequireProject(); err != nil {
		return nil, err
	}

	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 4
	}
	if opts.NumWorkers > 10 {
		opts.NumWorkers = 10
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5.0
	}

	result := &BatchResult{
		TotalFiles: len(paths),
		Results:    make([]BatchFileResult, 0, len(paths)),
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)

	jobs := make(chan batchJob, len(paths))
	results := make(chan BatchFileResult, len(paths))

	var wg sync.WaitGroup
	for i := 0; i < opts.NumWorkers; i++ {
		wg.Add(1)
		go e.batchWorker(ctx, &wg, sess, jobs, results, opts)
	}

	go func() {
		e.sendProgress(prog, batchStartUpdate(len(paths)))
		for i, path := range paths {
			select {
			case <-ctx.Done():
				close(jobs)
				return
			default:
			}

			if err := limiter.Wait(ctx); err != nil {
				close(jobs)
				return
			}

			jobs <- batchJob{path: path, step: i + 1}
			e.sendProgress(prog, batchFileUpdate(i+1, len(paths), filepath.Base(path)))
		}
		close(jobs)
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for res := range results {
		completed++
		result.Results = append(result.Results, res)

		if res.Success {
			result.Succeeded++
			e.sendProgress(prog, batchCompletedUpdate(completed, len(paths), filepath.Base(res.InputPath), res.Findings))
		} else {
			result.Failed++
			e.sendProgress(prog, batchFailedUpdate(completed, len(paths), filepath.Base(res.InputPath), res.Error))
		}
	}

	if err := ctx.Err(); err != nil {
		return result, fmt.Errorf("batch aborted: %w", err)
	}
	return result, nil
}

// batchWorker obscures files from the jobs channel until it is closed or
// the context is cancelled.
func (e *Engine) batchWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	sess *auth.Session,
	jobs <-chan batchJob,
	results chan<- BatchFileResult,
	opts BatchOpts,
) {
	defer wg.Done()

	for job := range jobs {
		select {
		case <-ctx.Done():
			return
		default:
		}

		fileRes, err := e.ObscureFile(ctx, sess, job.path, opts.OutputDir)
		if err != nil {
			results <- BatchFileResult{InputPath: job.path, Error: err}
			continue
		}
		results <- BatchFileResult{
			InputPath:  job.path,
			OutputPath: fileRes.OutputPath,
			Findings:   len(fileRes.Result.Findings),
			Success:    true,
		}
	}
}
