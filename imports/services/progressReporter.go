package services

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// EventType distinguishes incremental and terminal events.
type EventType string

const (
	EventProgress EventType = "progress"
	EventResult   EventType = "result"
	EventError    EventType = "error"
)

// Event is one message of an upload's ordered event stream. The stream carries
// any number of progress events followed by exactly one result or error event.
type Event struct {
	Type    EventType   `json:"type"`
	JobID   string      `json:"jobId,omitempty"`
	Entity  string      `json:"entity"`
	Summary *Summary    `json:"summary,omitempty"`
	Rows    []RowResult `json:"rows,omitempty"`
	Result  *Report     `json:"result,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Terminal reports whether the event ends the stream.
func (e Event) Terminal() bool {
	return e.Type == EventResult || e.Type == EventError
}

// ProgressReporter accumulates row outcomes from concurrently completing
// batches and emits progress events.
type ProgressReporter struct {
	mu      sync.Mutex
	entity  string
	jobID   string
	summary Summary
	rows    []RowResult
	byKey   map[string]int
	events  chan<- Event
}

func NewProgressReporter(entity, jobID string, total int, events chan<- Event) *ProgressReporter {
	return &ProgressReporter{
		entity:  entity,
		jobID:   jobID,
		summary: Summary{TotalRecords: total, Breakdown: map[string]int{}},
		rows:    make([]RowResult, 0, total),
		byKey:   make(map[string]int, total),
		events:  events,
	}
}

// Stage records row outcomes and counts them. Created and Updated counts are
// optimistic until MarkFailed corrects them. It returns the indexes of the
// staged rows for a later Flush.
func (r *ProgressReporter) Stage(results ...RowResult) []int {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := make([]int, 0, len(results))
	for _, res := range results {
		r.rows = append(r.rows, res)
		i := len(r.rows) - 1
		idx = append(idx, i)
		if res.Key != "" && res.Status != StatusFailed && res.Action != ActionDuplicate {
			r.byKey[res.Key] = i
		}
		r.count(res, 1)
	}
	return idx
}

// MarkFailed flips the staged row with the given key to Failed and moves it
// out of its created or updated count.
func (r *ProgressReporter) MarkFailed(key, msg string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	i, ok := r.byKey[key]
	if !ok {
		return false
	}
	row := &r.rows[i]
	if row.Status == StatusFailed {
		return true
	}
	r.count(*row, -1)
	row.Status = StatusFailed
	row.Action = ActionWriteFailed
	row.Error = msg
	row.StatusChanged = false
	r.count(*row, 1)
	return true
}

// AddWarnings appends warnings to the staged row with the given key.
func (r *ProgressReporter) AddWarnings(key string, warnings ...string) {
	if len(warnings) == 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if i, ok := r.byKey[key]; ok {
		r.rows[i].Warnings = append(r.rows[i].Warnings, warnings...)
	}
}

// AddBreakdown merges entity specific counters into the summary.
func (r *ProgressReporter) AddBreakdown(counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, v := range counts {
		r.summary.Breakdown[k] += v
	}
}

func (r *ProgressReporter) count(res RowResult, delta int) {
	r.summary.Processed += delta
	switch res.Status {
	case StatusCreated:
		r.summary.Created += delta
	case StatusUpdated:
		r.summary.Updated += delta
		if res.StatusChanged {
			r.summary.StatusChanged += delta
		}
	case StatusFailed:
		r.summary.Failed += delta
	case StatusSkipped:
		r.summary.Skipped += delta
		switch res.Action {
		case ActionDuplicate:
			r.summary.DuplicatesInFile += delta
		case ActionNoChange:
			r.summary.NoChangesSkipped += delta
		}
	}
}

// Flush emits a progress event carrying the given rows and the running totals.
func (r *ProgressReporter) Flush(idx []int) {
	if r.events == nil || len(idx) == 0 {
		return
	}
	r.mu.Lock()
	rows := make([]RowResult, 0, len(idx))
	for _, i := range idx {
		rows = append(rows, r.rows[i])
	}
	summary := r.snapshot()
	r.mu.Unlock()

	sort.Slice(rows, func(a, b int) bool { return rows[a].Row < rows[b].Row })
	r.events <- Event{
		Type:    EventProgress,
		JobID:   r.jobID,
		Entity:  r.entity,
		Summary: &summary,
		Rows:    rows,
	}
}

// Summary returns a copy of the running totals.
func (r *ProgressReporter) Summary() Summary {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshot()
}

func (r *ProgressReporter) snapshot() Summary {
	s := r.summary
	s.Breakdown = make(map[string]int, len(r.summary.Breakdown))
	for k, v := range r.summary.Breakdown {
		s.Breakdown[k] = v
	}
	return s
}

// Rows returns every recorded row in input order.
func (r *ProgressReporter) Rows() []RowResult {
	r.mu.Lock()
	rows := append([]RowResult(nil), r.rows...)
	r.mu.Unlock()
	sort.SliceStable(rows, func(a, b int) bool { return rows[a].Row < rows[b].Row })
	return rows
}

// SummaryMessage renders the human readable sentence of a finished upload.
func SummaryMessage(entity string, s Summary, failed error) string {
	verb := "completed"
	if failed != nil {
		verb = "stopped early"
	}
	msg := fmt.Sprintf("%s upload %s: %d created, %d updated, %d failed, %d skipped (%d duplicates in file, %d unchanged) out of %d records",
		entity, verb, s.Created, s.Updated, s.Failed, s.Skipped, s.DuplicatesInFile, s.NoChangesSkipped, s.TotalRecords)
	if s.StatusChanged > 0 {
		msg += fmt.Sprintf("; %d status changes", s.StatusChanged)
	}
	if failed != nil {
		msg += ": " + failed.Error()
	}
	return msg
}

// CollectResult drains an event stream and returns the terminal report.
func CollectResult(events <-chan Event) (*Report, error) {
	var (
		report *Report
		err    error
	)
	for ev := range events {
		switch ev.Type {
		case EventResult:
			report = ev.Result
		case EventError:
			report = ev.Result
			err = errors.New(ev.Error)
		}
	}
	if report == nil && err == nil {
		err = errors.New("import stream ended without a result")
	}
	return report, err
}

// Elapsed returns how long the upload took.
func (r *Report) Elapsed() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
