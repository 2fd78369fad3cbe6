package services

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"medequip-backend/config"
)

// OpKind tags a staged write.
type OpKind int

const (
	OpInsert OpKind = iota
	OpUpdate
)

func (k OpKind) String() string {
	if k == OpUpdate {
		return "update"
	}
	return "insert"
}

// WriteOp is one staged insert or update-by-key.
type WriteOp struct {
	Kind   OpKind
	Key    string
	Row    int
	Values Record
}

// WriteError reports a single rejected operation of a BulkWrite call. Index
// refers to the position in the ops slice passed to that call.
type WriteError struct {
	Index   int
	Key     string
	Message string
}

// RecordStore is the persistence boundary of the import engine.
type RecordStore interface {
	// FindByKeys returns stored records indexed by natural key.
	FindByKeys(ctx context.Context, keys []string) (map[string]Record, error)
	// BulkWrite applies ops with unordered semantics. A non-nil error means the
	// store became unreachable; the returned WriteErrors then list the ops that
	// were not written, and an empty list means none of them were.
	BulkWrite(ctx context.Context, ops []WriteOp) ([]WriteError, error)
}

// BatchExecutor writes staged operations in chunks.
type BatchExecutor struct {
	store     RecordStore
	chunkSize int
}

func NewBatchExecutor(store RecordStore, chunkSize int) *BatchExecutor {
	if chunkSize <= 0 {
		chunkSize = 200
	}
	return &BatchExecutor{store: store, chunkSize: chunkSize}
}

// Execute runs the insert and update lists concurrently and returns the error
// message of every op that did not durably succeed, keyed by natural key. A
// connectivity failure stops the remaining chunks of its own list and is
// returned alongside the failures.
func (x *BatchExecutor) Execute(ctx context.Context, inserts, updates []WriteOp) (map[string]string, error) {
	var (
		mu       sync.Mutex
		failures = make(map[string]string)
	)
	fail := func(key, msg string) {
		mu.Lock()
		failures[key] = msg
		mu.Unlock()
	}

	var g errgroup.Group
	for _, list := range [][]WriteOp{inserts, updates} {
		if len(list) == 0 {
			continue
		}
		g.Go(func() error {
			return x.writeList(ctx, list, fail)
		})
	}
	err := g.Wait()
	return failures, err
}

func (x *BatchExecutor) writeList(ctx context.Context, ops []WriteOp, fail func(key, msg string)) error {
	for start := 0; start < len(ops); start += x.chunkSize {
		end := start + x.chunkSize
		if end > len(ops) {
			end = len(ops)
		}
		chunk := ops[start:end]

		writeErrs, err := x.store.BulkWrite(ctx, chunk)
		if err != nil {
			config.Logger.Error("bulk write aborted",
				zap.String("op", chunk[0].Kind.String()),
				zap.Int("chunkStart", start),
				zap.Int("remaining", len(ops)-start),
				zap.Error(err),
			)
			msg := fmt.Sprintf("Write aborted: %v", err)
			rest := ops[end:]
			if len(writeErrs) == 0 {
				rest = ops[start:]
			}
			for _, we := range writeErrs {
				fail(opKey(chunk, we), we.Message)
			}
			for _, op := range rest {
				fail(op.Key, msg)
			}
			return err
		}

		for _, we := range writeErrs {
			fail(opKey(chunk, we), we.Message)
		}
	}
	return nil
}

func opKey(chunk []WriteOp, we WriteError) string {
	if we.Key == "" && we.Index >= 0 && we.Index < len(chunk) {
		return chunk[we.Index].Key
	}
	return we.Key
}
