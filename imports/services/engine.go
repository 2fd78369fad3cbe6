package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"medequip-backend/config"
)

// PostWriteHook runs after each batch with the records confirmed in the store.
type PostWriteHook interface {
	Name() string
	AfterBatch(ctx context.Context, records []ConfirmedRecord) (HookOutcome, error)
}

// HookOutcome carries summary counters and per-key row warnings from a hook.
type HookOutcome struct {
	Breakdown map[string]int
	Warnings  map[string][]string
}

// Finalizer runs once on the finished report before the terminal event is
// emitted. Finalizers may annotate the report (for example with a report link).
type Finalizer interface {
	Finalize(ctx context.Context, upload *PreparedUpload, report *Report)
}

// EngineOptions tunes batching. Zero values fall back to defaults.
type EngineOptions struct {
	BatchSize            int
	MaxConcurrentBatches int
	ChunkSize            int
	NestedChunkSize      int
	ParseTimeout         time.Duration
	Clock                func() time.Time
}

// OptionsFromSettings maps process settings onto engine options.
func OptionsFromSettings(s config.ImportSettings) EngineOptions {
	return EngineOptions{
		BatchSize:            s.BatchSize,
		MaxConcurrentBatches: s.MaxConcurrentBatches,
		ChunkSize:            s.ChunkSize,
		NestedChunkSize:      s.NestedChunkSize,
		ParseTimeout:         s.ParseTimeout,
	}
}

// UploadRequest is one file submitted for import.
type UploadRequest struct {
	JobID          string
	FileName       string
	RequestedBy    string
	RequesterEmail string
	Data           []byte
}

// PreparedUpload is a parsed upload whose headers passed the required check.
type PreparedUpload struct {
	Request UploadRequest
	File    *ParsedFile
	Mapping HeaderMapping
}

// Engine runs the import pipeline for one entity type.
type Engine struct {
	cfg        *EntityConfig
	store      RecordStore
	parser     Parser
	normalizer *HeaderNormalizer
	index      *SynonymIndex
	cleaner    *RecordCleaner
	detector   *ChangeDetector
	executor   *BatchExecutor
	hooks      []PostWriteHook
	finalizers []Finalizer
	opts       EngineOptions
}

// EngineOption customizes an Engine.
type EngineOption func(*Engine)

func WithHooks(hooks ...PostWriteHook) EngineOption {
	return func(e *Engine) { e.hooks = append(e.hooks, hooks...) }
}

func WithFinalizers(finalizers ...Finalizer) EngineOption {
	return func(e *Engine) { e.finalizers = append(e.finalizers, finalizers...) }
}

func WithParser(p Parser) EngineOption {
	return func(e *Engine) { e.parser = p }
}

func NewEngine(cfg *EntityConfig, store RecordStore, normalizer *HeaderNormalizer, opts EngineOptions, options ...EngineOption) *Engine {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 500
	}
	if opts.ParseTimeout <= 0 {
		opts.ParseTimeout = 60 * time.Second
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if normalizer == nil {
		normalizer = NewHeaderNormalizer()
	}
	cfg.withDefaults(opts)

	e := &Engine{
		cfg:        cfg,
		store:      store,
		parser:     NewTabularParser(),
		normalizer: normalizer,
		index:      normalizer.BuildIndex(cfg.Synonyms),
		cleaner:    NewRecordCleaner(cfg, opts.Clock),
		detector:   NewChangeDetector(cfg),
		executor:   NewBatchExecutor(store, cfg.ChunkSize),
		opts:       opts,
	}
	for _, o := range options {
		o(e)
	}
	return e
}

func (e *Engine) Config() *EntityConfig {
	return e.cfg
}

// Prepare parses the file under the parse timeout and checks that the header
// row covers every required field. No row is processed here.
func (e *Engine) Prepare(ctx context.Context, req UploadRequest) (*PreparedUpload, error) {
	parseCtx, cancel := context.WithTimeout(ctx, e.opts.ParseTimeout)
	defer cancel()

	type parseResult struct {
		file *ParsedFile
		err  error
	}
	done := make(chan parseResult, 1)
	go func() {
		f, err := e.parser.Parse(parseCtx, req.FileName, req.Data)
		done <- parseResult{file: f, err: err}
	}()

	var file *ParsedFile
	select {
	case res := <-done:
		if res.err != nil {
			if errors.Is(res.err, context.DeadlineExceeded) {
				return nil, ErrParseTimeout
			}
			return nil, res.err
		}
		file = res.file
	case <-parseCtx.Done():
		if errors.Is(parseCtx.Err(), context.DeadlineExceeded) {
			return nil, ErrParseTimeout
		}
		return nil, parseCtx.Err()
	}
	if file == nil || len(file.Rows) == 0 {
		return nil, ErrEmptyFile
	}

	mapping := e.normalizer.MapHeaders(file.Headers, e.index)
	covered := mapping.MappedFields()
	var missing []string
	for _, f := range e.cfg.RequiredHeaders {
		if _, ok := covered[f]; !ok {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingHeadersError{Missing: missing, Seen: append([]string(nil), file.Headers...)}
	}
	if !e.cfg.ReportUnmapped {
		mapping.Unmapped = nil
	}

	if req.JobID == "" {
		req.JobID = uuid.NewString()
	}
	return &PreparedUpload{Request: req, File: file, Mapping: mapping}, nil
}

// Execute processes a prepared upload and returns its event stream. The
// stream ends with exactly one result or error event and is then closed; the
// caller must drain it. Cancelling ctx does not stop an upload once started.
func (e *Engine) Execute(ctx context.Context, p *PreparedUpload) <-chan Event {
	events := make(chan Event, 8)
	go func() {
		defer close(events)
		e.run(context.WithoutCancel(ctx), p, events)
	}()
	return events
}

// Run prepares and executes an upload, returning only the final report.
func (e *Engine) Run(ctx context.Context, req UploadRequest) (*Report, error) {
	p, err := e.Prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	return CollectResult(e.Execute(ctx, p))
}

type candidate struct {
	row     UploadRow
	key     string
	cleaned CleanedRecord
	fields  map[string]string
}

func (e *Engine) run(ctx context.Context, p *PreparedUpload, events chan<- Event) {
	started := e.opts.Clock()
	log := config.Logger.With(
		zap.String("entity", e.cfg.Slug),
		zap.String("jobId", p.Request.JobID),
		zap.String("file", p.Request.FileName),
	)
	log.Info("import started", zap.Int("rows", len(p.File.Rows)))

	reporter := NewProgressReporter(e.cfg.Slug, p.Request.JobID, len(p.File.Rows), events)

	// Validation and dedup run over the whole file in input order so the
	// first occurrence of a key wins regardless of batch completion order.
	var (
		candidates []candidate
		rejected   []RowResult
		seen       = make(map[string]struct{}, len(p.File.Rows))
	)
	for _, row := range p.File.Rows {
		cleaned := e.cleaner.Clean(row, p.Mapping)
		fields := e.displayFields(cleaned.Values)
		key := e.cfg.NaturalKey(cleaned.Values)

		if len(cleaned.Errors) > 0 {
			rejected = append(rejected, RowResult{
				Row:      row.Number,
				Key:      key,
				Fields:   fields,
				Status:   StatusFailed,
				Action:   ActionValidation,
				Error:    strings.Join(cleaned.Errors, "; "),
				Warnings: cleaned.Warnings,
			})
			continue
		}
		if _, dup := seen[key]; dup {
			rejected = append(rejected, RowResult{
				Row:    row.Number,
				Key:    key,
				Fields: fields,
				Status: StatusSkipped,
				Action: ActionDuplicate,
				Error:  e.cfg.DuplicateMessage(),
			})
			continue
		}
		seen[key] = struct{}{}
		candidates = append(candidates, candidate{row: row, key: key, cleaned: cleaned, fields: fields})
	}
	reporter.Flush(reporter.Stage(rejected...))

	var (
		g       errgroup.Group
		aborted atomic.Bool
		errOnce sync.Once
		sysErr  error
	)
	g.SetLimit(e.cfg.MaxConcurrentBatches)
	for start, n := 0, 0; start < len(candidates); start, n = start+e.opts.BatchSize, n+1 {
		end := start + e.opts.BatchSize
		if end > len(candidates) {
			end = len(candidates)
		}
		batch := candidates[start:end]
		batchNo := n + 1
		g.Go(func() error {
			if aborted.Load() {
				reporter.Flush(reporter.Stage(notProcessed(batch)...))
				return nil
			}
			if err := e.processBatch(ctx, batchNo, batch, reporter); err != nil {
				aborted.Store(true)
				errOnce.Do(func() { sysErr = err })
				log.Error("import batch failed", zap.Int("batch", batchNo), zap.Error(err))
			}
			return nil
		})
	}
	_ = g.Wait()

	summary := reporter.Summary()
	report := &Report{
		JobID:           p.Request.JobID,
		Entity:          e.cfg.Slug,
		FileName:        p.Request.FileName,
		RequestedBy:     p.Request.RequestedBy,
		Success:         sysErr == nil,
		Message:         SummaryMessage(e.cfg.Name, summary, sysErr),
		Summary:         summary,
		FieldMapping:    p.Mapping.Fields,
		UnmappedHeaders: p.Mapping.Unmapped,
		Rows:            reporter.Rows(),
		StartedAt:       started,
	}
	if sysErr != nil {
		report.Error = sysErr.Error()
	}
	report.FinishedAt = e.opts.Clock()
	for _, f := range e.finalizers {
		f.Finalize(ctx, p, report)
	}

	log.Info("import finished",
		zap.Bool("success", report.Success),
		zap.Int("created", summary.Created),
		zap.Int("updated", summary.Updated),
		zap.Int("failed", summary.Failed),
		zap.Int("skipped", summary.Skipped),
		zap.Duration("elapsed", report.Elapsed()),
	)

	final := Event{JobID: p.Request.JobID, Entity: e.cfg.Slug, Summary: &report.Summary, Result: report}
	if sysErr != nil {
		final.Type = EventError
		final.Error = report.Message
	} else {
		final.Type = EventResult
	}
	events <- final
}

func notProcessed(batch []candidate) []RowResult {
	out := make([]RowResult, 0, len(batch))
	for _, c := range batch {
		out = append(out, RowResult{
			Row:    c.row.Number,
			Key:    c.key,
			Fields: c.fields,
			Status: StatusFailed,
			Action: ActionNotRun,
			Error:  "Upload stopped after a system error",
		})
	}
	return out
}

// processBatch classifies and writes one batch. A returned error is a
// system-level failure; row-level problems are recorded on the reporter.
func (e *Engine) processBatch(ctx context.Context, batchNo int, batch []candidate, reporter *ProgressReporter) error {
	keys := make([]string, 0, len(batch))
	for _, c := range batch {
		keys = append(keys, c.key)
	}

	existing, err := e.store.FindByKeys(ctx, keys)
	if err != nil {
		results := notProcessed(batch)
		for i := range results {
			results[i].Error = fmt.Sprintf("Failed to look up existing records: %v", err)
		}
		reporter.Flush(reporter.Stage(results...))
		return fmt.Errorf("batch %d lookup: %w", batchNo, err)
	}

	var (
		results   = make([]RowResult, 0, len(batch))
		inserts   []WriteOp
		updates   []WriteOp
		confirmed = make([]ConfirmedRecord, 0, len(batch))
	)
	for _, c := range batch {
		res := RowResult{Row: c.row.Number, Key: c.key, Fields: c.fields, Warnings: c.cleaned.Warnings}

		stored, found := existing[c.key]
		if !found {
			values := c.cleaned.Values.Clone()
			values[FieldID] = uuid.NewString()
			inserts = append(inserts, WriteOp{Kind: OpInsert, Key: c.key, Row: c.row.Number, Values: values})
			confirmed = append(confirmed, ConfirmedRecord{Row: c.row.Number, Key: c.key, Status: StatusCreated, Values: values})
			res.Status = StatusCreated
			res.Action = "Created new " + e.cfg.Name
			results = append(results, res)
			continue
		}

		cmp := e.detector.Compare(c.cleaned, stored)
		if len(cmp.Changes) == 0 {
			res.Status = StatusSkipped
			res.Action = ActionNoChange
			confirmed = append(confirmed, ConfirmedRecord{Row: c.row.Number, Key: c.key, Status: StatusSkipped, Values: cmp.Merged})
			results = append(results, res)
			continue
		}
		updates = append(updates, WriteOp{Kind: OpUpdate, Key: c.key, Row: c.row.Number, Values: cmp.Update})
		confirmed = append(confirmed, ConfirmedRecord{Row: c.row.Number, Key: c.key, Status: StatusUpdated, Values: cmp.Merged})
		res.Status = StatusUpdated
		res.Action = "Updated " + e.cfg.Name
		res.Changes = cmp.Changes
		res.StatusChanged = cmp.StatusChanged
		results = append(results, res)
	}
	idx := reporter.Stage(results...)

	failures, writeErr := e.executor.Execute(ctx, inserts, updates)
	if len(failures) > 0 {
		kept := confirmed[:0]
		for _, rec := range confirmed {
			if msg, failed := failures[rec.Key]; failed {
				reporter.MarkFailed(rec.Key, msg)
				continue
			}
			kept = append(kept, rec)
		}
		confirmed = kept
	}

	if len(confirmed) > 0 {
		for _, hook := range e.hooks {
			outcome, err := hook.AfterBatch(ctx, confirmed)
			if err != nil {
				config.Logger.Warn("post-write hook failed",
					zap.String("hook", hook.Name()),
					zap.String("entity", e.cfg.Slug),
					zap.Int("batch", batchNo),
					zap.Error(err),
				)
				for _, rec := range confirmed {
					reporter.AddWarnings(rec.Key, fmt.Sprintf("%s failed: %v", hook.Name(), err))
				}
			}
			reporter.AddBreakdown(outcome.Breakdown)
			for key, warnings := range outcome.Warnings {
				reporter.AddWarnings(key, warnings...)
			}
		}
	}

	reporter.Flush(idx)
	if writeErr != nil {
		return fmt.Errorf("batch %d write: %w", batchNo, writeErr)
	}
	return nil
}

func (e *Engine) displayFields(values Record) map[string]string {
	out := make(map[string]string, len(e.cfg.DisplayFields))
	for _, f := range e.cfg.DisplayFields {
		if v, ok := values[f]; ok {
			out[f] = cellString(v)
		}
	}
	return out
}
