package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"medequip-backend/config"
	"medequip-backend/imports/repositories"
	imports "medequip-backend/imports/services"
)

// TypeImportProcess is the asynq task type of a background import.
const TypeImportProcess = "import:process"

// ImportPayload is everything a worker needs to replay an accepted upload.
type ImportPayload struct {
	JobID          string `json:"jobId"`
	Entity         string `json:"entity"`
	FileName       string `json:"fileName"`
	StoredFile     string `json:"storedFile"`
	RequestedBy    string `json:"requestedBy"`
	RequesterEmail string `json:"requesterEmail,omitempty"`
	LockToken      string `json:"lockToken"`
}

// NewImportTask builds a task that is never retried: a half-applied import is
// reported, not replayed.
func NewImportTask(p ImportPayload, timeout time.Duration) (*asynq.Task, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeImportProcess, raw,
		asynq.TaskID(p.JobID),
		asynq.MaxRetry(0),
		asynq.Timeout(timeout),
		asynq.Queue("imports"),
	), nil
}

// JobTracker records job progress for polling clients.
type JobTracker interface {
	Save(ctx context.Context, state *repositories.JobState) error
	Apply(ctx context.Context, state *repositories.JobState, ev imports.Event) error
}

// EventPublisher forwards events to live subscribers.
type EventPublisher interface {
	PublishJobEvent(ev imports.Event)
}

// StagedFiles reads and removes files saved by the upload handler.
type StagedFiles interface {
	ReadFile(fileName string) ([]byte, error)
	DeleteFile(fileName string) error
}

// LockKeeper holds the per-entity upload lock taken by the request while the
// job runs, then frees it.
type LockKeeper interface {
	KeepAlive(ctx context.Context, entity, token string) (stop func())
	Release(ctx context.Context, entity, token string) error
}

type ImportProcessor struct {
	registry  *imports.Registry
	jobs      JobTracker
	publisher EventPublisher
	files     StagedFiles
	locks     LockKeeper
}

func NewImportProcessor(registry *imports.Registry, jobs JobTracker, publisher EventPublisher, files StagedFiles, locks LockKeeper) *ImportProcessor {
	return &ImportProcessor{registry: registry, jobs: jobs, publisher: publisher, files: files, locks: locks}
}

// ProcessTask implements asynq.Handler.
func (p *ImportProcessor) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload ImportPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("decode %s payload: %w: %w", TypeImportProcess, err, asynq.SkipRetry)
	}

	defer p.cleanup(payload)
	// The engine is not cancelled by the task deadline, so the lock is kept
	// alive for as long as the import actually runs.
	stopKeepAlive := p.locks.KeepAlive(context.WithoutCancel(ctx), payload.Entity, payload.LockToken)
	defer stopKeepAlive()

	state := &repositories.JobState{
		ID:       payload.JobID,
		Entity:   payload.Entity,
		FileName: payload.FileName,
		State:    repositories.JobRunning,
	}
	fail := func(err error) error {
		state.State = repositories.JobFailed
		state.Error = err.Error()
		var missing *imports.MissingHeadersError
		if errors.As(err, &missing) {
			state.Result = &imports.Report{
				JobID:          payload.JobID,
				Entity:         payload.Entity,
				FileName:       payload.FileName,
				Error:          err.Error(),
				MissingHeaders: missing.Missing,
				SeenHeaders:    missing.Seen,
				Rows:           []imports.RowResult{},
			}
		}
		if saveErr := p.jobs.Save(context.WithoutCancel(ctx), state); saveErr != nil {
			config.Logger.Error("Failed to store import job state", zap.String("job_id", payload.JobID), zap.Error(saveErr))
		}
		p.publisher.PublishJobEvent(imports.Event{
			Type:   imports.EventError,
			JobID:  payload.JobID,
			Entity: payload.Entity,
			Error:  err.Error(),
		})
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	}

	engine, err := p.registry.Get(payload.Entity)
	if err != nil {
		return fail(err)
	}
	data, err := p.files.ReadFile(payload.StoredFile)
	if err != nil {
		return fail(err)
	}
	if err := p.jobs.Save(ctx, state); err != nil {
		config.Logger.Warn("Failed to store import job state", zap.String("job_id", payload.JobID), zap.Error(err))
	}

	prepared, err := engine.Prepare(ctx, imports.UploadRequest{
		JobID:          payload.JobID,
		FileName:       payload.FileName,
		RequestedBy:    payload.RequestedBy,
		RequesterEmail: payload.RequesterEmail,
		Data:           data,
	})
	if err != nil {
		return fail(err)
	}

	var terminal imports.Event
	for ev := range engine.Execute(ctx, prepared) {
		if err := p.jobs.Apply(context.WithoutCancel(ctx), state, ev); err != nil {
			config.Logger.Warn("Failed to store import job progress",
				zap.String("job_id", payload.JobID),
				zap.Error(err))
		}
		p.publisher.PublishJobEvent(ev)
		if ev.Terminal() {
			terminal = ev
		}
	}

	if terminal.Type == imports.EventError {
		return fmt.Errorf("import %s stopped: %s: %w", payload.JobID, terminal.Error, asynq.SkipRetry)
	}
	return nil
}

func (p *ImportProcessor) cleanup(payload ImportPayload) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := p.locks.Release(ctx, payload.Entity, payload.LockToken); err != nil {
		config.Logger.Error("Failed to release upload lock",
			zap.String("entity", payload.Entity),
			zap.Error(err))
	}
	if err := p.files.DeleteFile(payload.StoredFile); err != nil {
		config.Logger.Warn("Failed to remove staged upload",
			zap.String("file", payload.StoredFile),
			zap.Error(err))
	}
}
