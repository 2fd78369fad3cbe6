package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runUpload(t *testing.T, e *Engine, data []byte) (*Report, error) {
	t.Helper()
	return e.Run(context.Background(), UploadRequest{JobID: "job-1", FileName: "upload.csv", Data: data})
}

func assertConserved(t *testing.T, r *Report) {
	t.Helper()
	s := r.Summary
	assert.Equal(t, s.TotalRecords, s.Created+s.Updated+s.Skipped+s.Failed)
	assert.Equal(t, s.TotalRecords, s.Processed)
	assert.Len(t, r.Rows, s.TotalRecords)
}

func TestBranchCreateThenUnchangedReupload(t *testing.T) {
	store := newMemoryStore()
	e := newTestEngine(BranchConfig(), store)
	file := csvFile(
		"Branch Name,State,Branch Short Code",
		"Central,Karnataka,CEN",
	)

	first, err := runUpload(t, e, file)
	require.NoError(t, err)
	assert.True(t, first.Success)
	assert.Equal(t, 1, first.Summary.Created)
	assert.Equal(t, "name", first.FieldMapping["Branch Name"])
	require.Len(t, first.Rows, 1)
	assert.Equal(t, StatusCreated, first.Rows[0].Status)
	assert.Equal(t, 2, first.Rows[0].Row)
	assert.Equal(t, "Created new Branch", first.Rows[0].Action)

	stored := store.get("central")
	require.NotNil(t, stored)
	assert.Equal(t, "Active", stored["status"])
	assert.NotEmpty(t, stored[FieldID])

	second, err := runUpload(t, e, file)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Summary.Created)
	assert.Equal(t, 1, second.Summary.Skipped)
	assert.Equal(t, 1, second.Summary.NoChangesSkipped)
	assert.Equal(t, StatusSkipped, second.Rows[0].Status)
	assert.Equal(t, ActionNoChange, second.Rows[0].Action)
	assertConserved(t, second)
}

func TestDealerDuplicateInFile(t *testing.T) {
	e := newTestEngine(DealerConfig(), newMemoryStore())

	r, err := runUpload(t, e, csvFile(
		"Dealer Name,Dealer Code,State,City",
		"Acme,D100,Karnataka,Bangalore",
		"Acme Two,d100,Kerala,Kochi",
	))

	require.NoError(t, err)
	assert.Equal(t, 1, r.Summary.Created)
	assert.Equal(t, 1, r.Summary.DuplicatesInFile)
	require.Len(t, r.Rows, 2)
	assert.Equal(t, StatusSkipped, r.Rows[1].Status)
	assert.Equal(t, "Duplicate Dealer Code in file", r.Rows[1].Error)
	assertConserved(t, r)
}

func TestDuplicateWinsOverExistingMatch(t *testing.T) {
	store := newMemoryStore()
	store.records["d100"] = Record{"name": "Acme", "dealercode": "D100", "state": []string{"KA"}, "city": []string{"BLR"}, "status": "Active"}
	e := newTestEngine(DealerConfig(), store)

	r, err := runUpload(t, e, csvFile(
		"Dealer Name,Dealer Code,State,City",
		"Acme,D100,KA,BLR",
		"Acme,D100,KA,BLR",
	))

	require.NoError(t, err)
	assert.Equal(t, ActionNoChange, r.Rows[0].Action)
	assert.Equal(t, ActionDuplicate, r.Rows[1].Action)
}

func TestCustomerMissingRequiredHeader(t *testing.T) {
	store := newMemoryStore()
	e := newTestEngine(CustomerConfig(), store)

	_, err := e.Prepare(context.Background(), UploadRequest{FileName: "c.csv", Data: csvFile(
		"Customer Name,City,Postal Code",
		"City Hospital,Pune,411001",
	)})

	var missing *MissingHeadersError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, []string{"customercodeid"}, missing.Missing)
	assert.Equal(t, []string{"Customer Name", "City", "Postal Code"}, missing.Seen)
	assert.Empty(t, store.writes)
}

func TestEmptyFileRejected(t *testing.T) {
	e := newTestEngine(BranchConfig(), newMemoryStore())
	_, err := e.Prepare(context.Background(), UploadRequest{FileName: "b.csv", Data: csvFile("Branch Name,State,Branch Short Code")})
	assert.ErrorIs(t, err, ErrEmptyFile)
}

func TestUpdateKeepsStoredStatus(t *testing.T) {
	store := newMemoryStore()
	store.records["central"] = Record{
		FieldID: "b-1", "name": "Central", "state": "Kerala", "branchShortCode": "CEN",
		"status": "Inactive", FieldCreatedAt: "2020-01-01",
	}
	e := newTestEngine(BranchConfig(), store)

	r, err := runUpload(t, e, csvFile(
		"Branch Name,State,Branch Short Code",
		"central,Karnataka,CEN",
	))

	require.NoError(t, err)
	assert.Equal(t, 1, r.Summary.Updated)
	require.Len(t, r.Rows[0].Changes, 2)
	assert.Equal(t, "name", r.Rows[0].Changes[0].Field)
	assert.Equal(t, FieldChange{Field: "state", Old: "Kerala", New: "Karnataka"}, r.Rows[0].Changes[1])

	stored := store.get("central")
	assert.Equal(t, "Inactive", stored["status"])
	assert.Equal(t, "Karnataka", stored["state"])
	assert.Equal(t, "2020-01-01", stored[FieldCreatedAt])
	assert.Equal(t, fixedNow, stored[FieldModifiedAt])
}

func TestProvidedStatusChangeCounted(t *testing.T) {
	store := newMemoryStore()
	store.records["central"] = Record{"name": "Central", "state": "KA", "branchShortCode": "CEN", "status": "Active"}
	e := newTestEngine(BranchConfig(), store)

	r, err := runUpload(t, e, csvFile(
		"Branch Name,State,Branch Short Code,Status",
		"Central,KA,CEN,Inactive",
	))

	require.NoError(t, err)
	assert.Equal(t, 1, r.Summary.StatusChanged)
	assert.True(t, r.Rows[0].StatusChanged)
	assert.Equal(t, "Inactive", store.get("central")["status"])
}

func TestWriteFailureReconciled(t *testing.T) {
	store := newMemoryStore()
	store.failKeys["north"] = "duplicate key value violates unique constraint"
	e := newTestEngine(BranchConfig(), store)

	r, err := runUpload(t, e, csvFile(
		"Branch Name,State,Branch Short Code",
		"Central,KA,CEN",
		"North,KA,NOR",
		"South,KA,SOU",
	))

	require.NoError(t, err)
	assert.Equal(t, 2, r.Summary.Created)
	assert.Equal(t, 1, r.Summary.Failed)
	assert.Equal(t, StatusFailed, r.Rows[1].Status)
	assert.Equal(t, ActionWriteFailed, r.Rows[1].Action)
	assert.Contains(t, r.Rows[1].Error, "unique constraint")
	assertConserved(t, r)
}

func TestMixedUploadConservesCounts(t *testing.T) {
	store := newMemoryStore()
	store.records["same"] = Record{"name": "Same", "state": "KA", "branchShortCode": "SAM", "status": "Active"}
	store.records["moved"] = Record{"name": "Moved", "state": "KA", "branchShortCode": "MOV", "status": "Active"}
	e := newTestEngine(BranchConfig(), store)

	r, err := runUpload(t, e, csvFile(
		"Branch Name,State,Branch Short Code",
		"Same,KA,SAM",
		"Broken,,BRK",
		"New,TN,NEW",
		"same,KA,SAM",
		"Moved,TN,MOV",
	))

	require.NoError(t, err)
	s := r.Summary
	assert.Equal(t, 5, s.TotalRecords)
	assert.Equal(t, 1, s.Created)
	assert.Equal(t, 1, s.Updated)
	assert.Equal(t, 1, s.Failed)
	assert.Equal(t, 2, s.Skipped)
	assert.Equal(t, 1, s.DuplicatesInFile)
	assert.Equal(t, 1, s.NoChangesSkipped)
	assertConserved(t, r)

	for i, row := range r.Rows {
		assert.Equal(t, i+2, row.Row)
	}
	assert.Equal(t, ActionValidation, r.Rows[1].Action)
	assert.Contains(t, r.Message, "1 created, 1 updated, 1 failed, 2 skipped")
}

func TestLookupFailureAbortsUpload(t *testing.T) {
	store := newMemoryStore()
	store.findErr = errors.New("connection refused")
	e := newTestEngine(BranchConfig(), store)

	r, err := runUpload(t, e, csvFile(
		"Branch Name,State,Branch Short Code",
		"A,KA,A", "B,KA,B", "C,KA,C", "D,KA,D", "E,KA,E",
	))

	require.Error(t, err)
	require.NotNil(t, r)
	assert.False(t, r.Success)
	assert.Equal(t, 5, r.Summary.Failed)
	assert.Contains(t, r.Error, "connection refused")
	assertConserved(t, r)
}

func TestConnectivityFailureStopsRemainingBatches(t *testing.T) {
	store := newMemoryStore()
	store.writeErr = errors.New("broken pipe")
	cfg := BranchConfig()
	cfg.MaxConcurrentBatches = 1
	e := newTestEngine(cfg, store)

	r, err := runUpload(t, e, csvFile(
		"Branch Name,State,Branch Short Code",
		"A,KA,A", "B,KA,B", "C,KA,C",
	))

	require.Error(t, err)
	assert.Equal(t, 0, r.Summary.Created)
	assert.Equal(t, 3, r.Summary.Failed)
	assert.Equal(t, ActionWriteFailed, r.Rows[0].Action)
	assert.Equal(t, ActionNotRun, r.Rows[2].Action)
	assert.Len(t, store.writes, 1)
	assertConserved(t, r)
}

type recordingHook struct {
	mu   sync.Mutex
	seen []ConfirmedRecord
}

func (h *recordingHook) Name() string { return "recording hook" }

func (h *recordingHook) AfterBatch(_ context.Context, records []ConfirmedRecord) (HookOutcome, error) {
	h.mu.Lock()
	h.seen = append(h.seen, records...)
	h.mu.Unlock()
	out := HookOutcome{Breakdown: map[string]int{"touched": len(records)}, Warnings: map[string][]string{}}
	for _, r := range records {
		out.Warnings[r.Key] = []string{"seen " + r.Key}
	}
	return out, nil
}

func TestHooksReceiveConfirmedRecords(t *testing.T) {
	store := newMemoryStore()
	store.records["old"] = Record{"name": "Old", "state": "KA", "branchShortCode": "OLD", "status": "Active"}
	store.failKeys["bad"] = "rejected"
	hook := &recordingHook{}
	e := newTestEngine(BranchConfig(), store, WithHooks(hook))

	r, err := runUpload(t, e, csvFile(
		"Branch Name,State,Branch Short Code",
		"Old,KA,OLD",
		"New,KA,NEW",
		"Bad,KA,BAD",
	))

	require.NoError(t, err)
	assert.Len(t, hook.seen, 2)
	assert.Equal(t, 2, r.Summary.Breakdown["touched"])
	assert.Equal(t, []string{"seen old"}, r.Rows[0].Warnings)
	assert.Empty(t, r.Rows[2].Warnings)
	for _, c := range hook.seen {
		assert.NotEqual(t, "bad", c.Key)
	}
}

type failingHook struct{}

func (failingHook) Name() string { return "schedule" }

func (failingHook) AfterBatch(context.Context, []ConfirmedRecord) (HookOutcome, error) {
	return HookOutcome{}, errors.New("boom")
}

func TestHookErrorBecomesWarning(t *testing.T) {
	e := newTestEngine(BranchConfig(), newMemoryStore(), WithHooks(failingHook{}))

	r, err := runUpload(t, e, csvFile("Branch Name,State,Branch Short Code", "A,KA,A"))

	require.NoError(t, err)
	assert.Equal(t, 1, r.Summary.Created)
	assert.Equal(t, []string{"schedule failed: boom"}, r.Rows[0].Warnings)
}

type captureFinalizer struct{ report *Report }

func (c *captureFinalizer) Finalize(_ context.Context, _ *PreparedUpload, r *Report) {
	r.ReportLink = "http://example.test/files/x.xlsx"
	c.report = r
}

func TestExecuteStreamsProgressThenResult(t *testing.T) {
	fin := &captureFinalizer{}
	e := newTestEngine(BranchConfig(), newMemoryStore(), WithFinalizers(fin))
	p, err := e.Prepare(context.Background(), UploadRequest{JobID: "job-9", FileName: "b.csv", Data: csvFile(
		"Branch Name,State,Branch Short Code",
		"A,KA,A", "B,KA,B", "C,,C", "D,KA,D", "E,KA,E",
	)})
	require.NoError(t, err)

	var events []Event
	for ev := range e.Execute(context.Background(), p) {
		events = append(events, ev)
	}

	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.Equal(t, EventResult, last.Type)
	require.NotNil(t, last.Result)
	assert.Equal(t, "job-9", last.JobID)
	assert.Equal(t, "http://example.test/files/x.xlsx", last.Result.ReportLink)
	assert.Same(t, fin.report, last.Result)

	streamed := 0
	for _, ev := range events[:len(events)-1] {
		assert.Equal(t, EventProgress, ev.Type)
		streamed += len(ev.Rows)
	}
	assert.Equal(t, 5, streamed)
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry(newTestEngine(BranchConfig(), newMemoryStore()), newTestEngine(DealerConfig(), newMemoryStore()))

	e, err := reg.Get(DealerEntity)
	require.NoError(t, err)
	assert.Equal(t, "Dealer", e.Config().Name)
	assert.Equal(t, []string{BranchEntity, DealerEntity}, reg.Entities())

	_, err = reg.Get("widgets")
	assert.ErrorIs(t, err, ErrUnknownEntity)
}
