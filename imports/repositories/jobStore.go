package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"medequip-backend/imports/services"
)

// JobState values.
const (
	JobQueued    = "queued"
	JobRunning   = "running"
	JobCompleted = "completed"
	JobFailed    = "failed"
)

var ErrJobNotFound = errors.New("import job not found")

// JobState is the snapshot of a background import kept in redis.
type JobState struct {
	ID        string            `json:"id"`
	Entity    string            `json:"entity"`
	FileName  string            `json:"fileName"`
	State     string            `json:"state"`
	Summary   *services.Summary `json:"summary,omitempty"`
	Result    *services.Report  `json:"result,omitempty"`
	Error     string            `json:"error,omitempty"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

// JobStore keeps background job state under import:job:<id> with a TTL.
type JobStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewJobStore(client *redis.Client, ttl time.Duration) *JobStore {
	return &JobStore{client: client, ttl: ttl}
}

func jobKey(id string) string {
	return "import:job:" + id
}

func (s *JobStore) Save(ctx context.Context, state *JobState) error {
	state.UpdatedAt = time.Now()
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal job %s: %w", state.ID, err)
	}
	return s.client.Set(ctx, jobKey(state.ID), raw, s.ttl).Err()
}

func (s *JobStore) Get(ctx context.Context, id string) (*JobState, error) {
	raw, err := s.client.Get(ctx, jobKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, err
	}
	var state JobState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("decode job %s: %w", id, err)
	}
	return &state, nil
}

// Apply folds one engine event into the stored state.
func (s *JobStore) Apply(ctx context.Context, state *JobState, ev services.Event) error {
	switch ev.Type {
	case services.EventProgress:
		state.State = JobRunning
		state.Summary = ev.Summary
	case services.EventResult:
		state.State = JobCompleted
		state.Summary = ev.Summary
		state.Result = ev.Result
	case services.EventError:
		state.State = JobFailed
		state.Summary = ev.Summary
		state.Result = ev.Result
		state.Error = ev.Error
	}
	return s.Save(ctx, state)
}

// Snapshot returns the stored state for live subscribers, or nil when the
// job is unknown or expired.
func (s *JobStore) Snapshot(ctx context.Context, id string) (interface{}, error) {
	state, err := s.Get(ctx, id)
	if errors.Is(err, ErrJobNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return state, nil
}
