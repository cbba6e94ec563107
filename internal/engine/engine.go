package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/ljcooper54/DeID/internal/auth"
	"github.com/ljcooper54/DeID/internal/detect"
	"github.com/ljcooper54/DeID/internal/dictionary"
	"github.com/ljcooper54/DeID/internal/docs"
	"github.com/ljcooper54/DeID/internal/models"
	"github.com/ljcooper54/DeID/internal/repositories"
	"github.com/ljcooper54/DeID/internal/restorecache"
	"github.com/ljcooper54/DeID/internal/shared"
)

// Result is the outcome of one deidentify or restore run over a single
// text. Output is always produced; Findings explain anything surprising
// that happened along the way.
type Result struct {
	Output   string
	Rewrites []models.Rewrite
	Findings []models.Finding
}

// FileResult is the outcome of a file-level run: the processed document
// written next to its source under the Obscured_/Restored_ naming rule.
type FileResult struct {
	InputPath  string
	OutputPath string
	Result     *Result
}

// Engine wires the detector, dictionary, restore cache, and document
// adapters into the two pipeline directions.
type Engine struct {
	detector *detect.Detector
	store    *dictionary.Store
	cache    restorecache.Cache
	adapters *docs.Registry
	audit    *repositories.AuditRepository
	logger   *log.Logger
}

// New creates an Engine.
func New(detector *detect.Detector, store *dictionary.Store, cache restorecache.Cache, adapters *docs.Registry, audit *repositories.AuditRepository, logger *log.Logger) *Engine {
	return &Engine{
		detector: detector,
		store:    store,
		cache:    cache,
		adapters: adapters,
		audit:    audit,
		logger:   logger,
	}
}

// sendProgress delivers an update without ever blocking the pipeline.
func (e *Engine) sendProgress(prog chan<- ProgressUpdate, update ProgressUpdate) {
	if prog == nil {
		return
	}
	select {
	case prog <- update:
	default:
	}
}

// Deidentify obscures doc's text in place and returns the result. Every
// detected span is replaced by its dictionary token; the same value maps to
// the same token for the life of the project.
func (e *Engine) Deidentify(ctx context.Context, sess *auth.Session, doc *models.Document) (*Result, error) {
	if err := sess.RequireProject(); err != nil {
		return nil, err
	}

	input := doc.Text

	rules, err := e.store.KeywordRules(ctx, sess)
	if err != nil {
		return nil, err
	}

	spans, findings, err := e.detector.Detect(ctx, input, rules)
	if err != nil {
		return nil, err
	}
	doc.Spans = spans
	if err := doc.Advance(models.StateDetected); err != nil {
		return nil, err
	}

	// One dictionary lookup per unique value, not per occurrence.
	memo := make(map[string]string)
	for _, span := range spans {
		key := models.NormalizeOriginal(span.Text)
		if _, done := memo[key]; done {
			continue
		}
		token, fs, err := e.store.LookupOrCreate(ctx, sess, span.Text, span.Type)
		if err != nil {
			return nil, err
		}
		findings = append(findings, fs...)
		memo[key] = token
	}

	// Replace back to front so earlier span offsets stay valid.
	output := input
	rewrites := make([]models.Rewrite, 0, len(spans))
	for i := len(spans) - 1; i >= 0; i-- {
		span := spans[i]
		token := memo[models.NormalizeOriginal(span.Text)]
		output = output[:span.Start] + token + output[span.End:]
		rewrites = append(rewrites, models.Rewrite{
			Token: token,
			Start: span.Start,
			End:   span.End,
			Text:  span.Text,
		})
	}
	// Rewrites in document order.
	for i, j := 0, len(rewrites)-1; i < j; i, j = i+1, j-1 {
		rewrites[i], rewrites[j] = rewrites[j], rewrites[i]
	}

	doc.Text = output
	doc.Rewrites = rewrites
	if err := doc.Advance(models.StateAnonymized); err != nil {
		return nil, err
	}

	// Token-shaped literals already present in the source must never be
	// minted later; the restore scanner could not tell them apart.
	if literals := dictionary.Scan(input); len(literals) > 0 {
		if err := e.cache.RecordLiterals(sess.UserID, sess.ProjectID, literals); err != nil {
			e.logger.Warn("failed to index source literals", "error", err)
		}
	}

	if err := e.audit.Record(sess.ProjectID, "obscure", shared.ContentHash(input), shared.ContentHash(output)); err != nil {
		e.logger.Warn("failed to write audit row", "error", err)
	}

	e.logger.Info("obscured document", "name", doc.Name, "spans", len(spans), "findings", len(findings))
	return &Result{Output: output, Rewrites: rewrites, Findings: findings}, nil
}

// Restore substitutes dictionary originals back into text returned from an
// external system. Token-shaped substrings that cannot be resolved are left
// exactly as they were and reported as findings.
func (e *Engine) Restore(ctx context.Context, sess *auth.Session, doc *models.Document) (*Result, error) {
	if err := sess.RequireProject(); err != nil {
		return nil, err
	}

	input := doc.Text
	matches := dictionary.FuzzyPattern.FindAllStringIndex(input, -1)

	output := input
	var (
		rewrites []models.Rewrite
		findings []models.Finding
	)
	for i := len(matches) - 1; i >= 0; i-- {
		start, end := matches[i][0], matches[i][1]
		tokenLike := input[start:end]

		entry, err := e.store.Resolve(ctx, sess, tokenLike)
		if err != nil {
			entry, err = e.store.FuzzyResolve(ctx, sess, tokenLike)
		}
		if err != nil {
			kind := models.FindingUnknownToken
			if errors.Is(err, shared.ErrAmbiguousToken) {
				kind = models.FindingAmbiguousToken
			}
			findings = append(findings, models.Finding{
				Kind:    kind,
				Message: "token left unresolved",
				Token:   tokenLike,
				Start:   start,
				End:     end,
			})
			continue
		}

		output = output[:start] + entry.Original() + output[end:]
		rewrites = append(rewrites, models.Rewrite{
			Token: entry.Token(),
			Start: start,
			End:   end,
			Text:  entry.Original(),
		})
		if err := e.cache.RecordRestore(sess.UserID, sess.ProjectID, entry.Token()); err != nil {
			e.logger.Warn("failed to record restore", "token", entry.Token(), "error", err)
		}
	}
	for i, j := 0, len(rewrites)-1; i < j; i, j = i+1, j-1 {
		rewrites[i], rewrites[j] = rewrites[j], rewrites[i]
	}

	doc.Text = output
	if err := doc.Advance(models.StateRestored); err != nil {
		return nil, err
	}

	if err := e.audit.Record(sess.ProjectID, "restore", shared.ContentHash(input), shared.ContentHash(output)); err != nil {
		e.logger.Warn("failed to write audit row", "error", err)
	}

	e.logger.Info("restored document", "name", doc.Name, "substitutions", len(rewrites), "findings", len(findings))
	return &Result{Output: output, Rewrites: rewrites, Findings: findings}, nil
}

// ObscureFile runs the deidentify pipeline over one file and writes the
// result as Obscured_<name> in outDir (the source directory when outDir is
// empty).
func (e *Engine) ObscureFile(ctx context.Context, sess *auth.Session, path, outDir string) (*FileResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	adapter := e.adapters.ForFile(path)
	extraction, err := adapter.Extract(data)
	if err != nil {
		return nil, err
	}

	doc := models.NewDocument(adapter.Name(), filepath.Base(path), extraction.Text)
	doc.Lossy = adapter.Lossy() || extraction.Structure == nil

	result, err := e.Deidentify(ctx, sess, doc)
	if err != nil {
		return nil, err
	}
	result.Findings = append(extraction.Findings, result.Findings...)

	out, err := e.render(adapter, extraction, result)
	if err != nil {
		return nil, err
	}

	outPath := filepath.Join(e.outputDir(path, outDir), docs.ObscuredName(path))
	if err := os.WriteFile(outPath, out, 0644); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", outPath, err)
	}
	return &FileResult{InputPath: path, OutputPath: outPath, Result: result}, nil
}

// RestoreFile reverses tokens in one file and writes the result as
// Restored_<name>, swapping an Obscured_ prefix instead of stacking.
func (e *Engine) RestoreFile(ctx context.Context, sess *auth.Session, path, outDir string) (*FileResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	adapter := e.adapters.ForFile(path)
	extraction, err := adapter.Extract(data)
	if err != nil {
		return nil, err
	}

	doc := models.NewResponseDocument(adapter.Name(), filepath.Base(path), extraction.Text)

	result, err := e.Restore(ctx, sess, doc)
	if err != nil {
		return nil, err
	}
	result.Findings = append(extraction.Findings, result.Findings...)

	out, err := e.render(adapter, extraction, result)
	if err != nil {
		return nil, err
	}

	outPath := filepath.Join(e.outputDir(path, outDir), docs.RestoredName(path))
	if err := os.WriteFile(outPath, out, 0644); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", outPath, err)
	}
	return &FileResult{InputPath: path, OutputPath: outPath, Result: result}, nil
}

// render reinjects processed text into the document structure, falling back
// to plain text when there is no structure to fill.
func (e *Engine) render(adapter docs.Adapter, extraction *docs.Extraction, result *Result) ([]byte, error) {
	if extraction.Structure == nil {
		return []byte(result.Output), nil
	}
	return adapter.Reinject(extraction.Structure, result.Output)
}

func (e *Engine) outputDir(path, outDir string) string {
	if outDir != "" {
		return outDir
	}
	return filepath.Dir(path)
}
