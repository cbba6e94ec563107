package main

import (
	"context"
	"fmt"

	"github.com/ljcooper54/DeID/internal/engine"
	"github.com/ljcooper54/DeID/internal/formatter"
	"github.com/ljcooper54/DeID/internal/shared"
	"github.com/urfave/cli/v3"
)

// Obscure runs the deidentification pipeline over one or more files.
//
// A single file runs inline; multiple files go through the concurrent batch
// path with live progress output.
func (r *Runner) Obscure(ctx context.Context, cmd *cli.Command) error {
	sess, err := r.session(cmd)
	if err != nil {
		return err
	}

	files := cmd.Args().Slice()
	if len(files) == 0 {
		return fmt.Errorf("%w: at least one input file", shared.ErrMissingArgument)
	}
	outDir := cmd.String("out")

	if len(files) == 1 {
		result, err := r.engine.ObscureFile(ctx, sess, files[0], outDir)
		if err != nil {
			return err
		}
		r.writePlain("✓ %s → %s (%d replacements)\n", result.InputPath, result.OutputPath, len(result.Result.Rewrites))
		if out := formatter.RenderFindings(result.Result.Findings); out != "" {
			r.writePlain("%s", out)
		}
		return nil
	}

	r.writePlain("Obscuring %d files...\n\n", len(files))

	progressCh := make(chan engine.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			if update.Step > 0 {
				r.writePlain("%s\n", update.Message)
			}
		}
	}()

	opts := resolveBatchOpts(cmd.Int("workers"), cmd.Float("rate"), r.config.Batch)
	opts.OutputDir = outDir
	result, err := r.engine.BatchDeidentify(ctx, progressCh, sess, files, opts)
	close(progressCh)
	<-done

	if err != nil {
		return err
	}

	r.writePlain("\n")
	r.writePlainHeader("Obscure Complete")
	r.writePlain("Processed: %d files\n", result.TotalFiles)
	r.writePlain("Succeeded: %d\n", result.Succeeded)
	if result.Failed > 0 {
		r.writePlain("Failed: %d\n", result.Failed)
		for _, file := range result.Results {
			if !file.Success {
				r.writePlain("  ✗ %s: %v\n", file.InputPath, file.Error)
			}
		}
	}
	return nil
}

// resolveBatchOpts picks worker pool settings for a multi-file run: flags
// win, then the [batch] config section, then the engine's built-in
// defaults.
func resolveBatchOpts(workers int, rateLimit float64, cfg shared.BatchConfig) engine.BatchOpts {
	if workers <= 0 {
		workers = cfg.NumWorkers
	}
	if rateLimit <= 0 {
		rateLimit = cfg.RateLimit
	}
	return engine.BatchOpts{NumWorkers: workers, RateLimit: rateLimit}
}

// Restore runs the reidentification pipeline over one or more files.
func (r *Runner) Restore(ctx context.Context, cmd *cli.Command) error {
	sess, err := r.session(cmd)
	if err != nil {
		return err
	}

	files := cmd.Args().Slice()
	if len(files) == 0 {
		return fmt.Errorf("%w: at least one input file", shared.ErrMissingArgument)
	}
	outDir := cmd.String("out")

	failed := 0
	for _, path := range files {
		result, err := r.engine.RestoreFile(ctx, sess, path, outDir)
		if err != nil {
			r.writePlain("✗ %s: %v\n", path, err)
			failed++
			continue
		}
		r.writePlain("✓ %s → %s (%d tokens restored)\n", result.InputPath, result.OutputPath, len(result.Result.Rewrites))
		if out := formatter.RenderFindings(result.Result.Findings); out != "" {
			r.writePlain("%s", out)
		}
	}

	if failed > 0 {
		return fmt.Errorf("failed to restore %d of %d files", failed, len(files))
	}
	return nil
}
