package services

import (
	"context"
	"strings"
	"sync"
	"time"
)

var fixedNow = time.Date(2024, time.March, 15, 10, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

// memoryStore is an in-memory RecordStore keyed by natural key.
type memoryStore struct {
	mu       sync.Mutex
	records  map[string]Record
	failKeys map[string]string
	findErr  error
	writeErr error
	writes   [][]WriteOp
}

func newMemoryStore() *memoryStore {
	return &memoryStore{records: map[string]Record{}, failKeys: map[string]string{}}
}

func (s *memoryStore) FindByKeys(_ context.Context, keys []string) (map[string]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return nil, s.findErr
	}
	out := make(map[string]Record)
	for _, k := range keys {
		if r, ok := s.records[k]; ok {
			out[k] = r.Clone()
		}
	}
	return out, nil
}

func (s *memoryStore) BulkWrite(_ context.Context, ops []WriteOp) ([]WriteError, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes = append(s.writes, ops)
	if s.writeErr != nil {
		return nil, s.writeErr
	}
	var errs []WriteError
	for i, op := range ops {
		if msg, fail := s.failKeys[op.Key]; fail {
			errs = append(errs, WriteError{Index: i, Message: msg})
			continue
		}
		switch op.Kind {
		case OpInsert:
			s.records[op.Key] = op.Values.Clone()
		case OpUpdate:
			rec := s.records[op.Key]
			for k, v := range op.Values {
				rec[k] = v
			}
		}
	}
	return errs, nil
}

func (s *memoryStore) get(key string) Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records[key]
}

func csvFile(lines ...string) []byte {
	return []byte(strings.Join(lines, "\n"))
}

func newTestEngine(cfg *EntityConfig, store RecordStore, options ...EngineOption) *Engine {
	return NewEngine(cfg, store, NewHeaderNormalizer(), EngineOptions{
		BatchSize:            2,
		MaxConcurrentBatches: 2,
		ChunkSize:            2,
		ParseTimeout:         5 * time.Second,
		Clock:                fixedClock,
	}, options...)
}
