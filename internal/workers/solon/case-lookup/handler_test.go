// internal/workers/solon/case-lookup/handler_test.go
package caselookup

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solon-workers/internal/common/config"
	"solon-workers/internal/common/database"
	"solon-workers/internal/common/errors"
	"solon-workers/internal/common/logger"
	"solon-workers/internal/solon"
)

// fakeLookup returns a canned result and counts invocations.
type fakeLookup struct {
	result *solon.LookupResult
	err    error
	calls  int
}

func (f *fakeLookup) Lookup(_ context.Context, _ solon.LookupRequest) (*solon.LookupResult, error) {
	f.calls++
	return f.result, f.err
}

func matchedResult() *solon.LookupResult {
	var fields solon.CanonicalFieldSet
	fields[solon.FieldFilingDate] = "24/03/2025"
	fields[solon.FieldGeneralDocket] = "70927/2025"
	fields[solon.FieldSpecialDocket] = "912/2025"
	fields[solon.FieldProcedure] = "ΝΕΑ ΤΑΚΤΙΚΗ"
	return &solon.LookupResult{
		CourtLabel:      "ΠΡΩΤΟΔΙΚΕΙΟ ΑΘΗΝΩΝ",
		DocketReference: "70927/2025",
		Matched:         true,
		Fields:          fields,
		FieldMap:        fields.Map(),
		Repairs:         []string{solon.RepairDocketToken},
	}
}

func testInput() *Input {
	return &Input{
		JobID:      "8e9f0a1b-0000-0000-0000-000000000001",
		CourtLabel: "ΠΡΩΤΟΔΙΚΕΙΟ ΑΘΗΝΩΝ",
		CaseNumber: "70927",
		CaseYear:   2025,
	}
}

func newTestHandler(t *testing.T, lookup caseLookup) (*Handler, sqlmock.Sqlmock, *miniredis.Miniredis) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mr := miniredis.RunT(t)
	cache := &database.RedisClient{Client: redis.NewClient(&redis.Options{Addr: mr.Addr()})}
	t.Cleanup(func() { cache.Close() })

	h := NewHandler(LoadConfig(), db, cache, nil, nil, nil, lookup, logger.NewNoOpLogger(),
		config.CacheConfig{SnapshotTTL: 21600, DedupeLease: 120},
		config.NotificationConfig{})
	return h, mock, mr
}

// fakeMailer captures the last completion email instead of calling SES.
type fakeMailer struct {
	from, to, subject, body string
	calls                   int
	err                     error
}

func (f *fakeMailer) SendCompletionEmail(_ context.Context, from, to, subject, body string) error {
	f.calls++
	f.from, f.to, f.subject, f.body = from, to, subject, body
	return f.err
}

// fakeRecorder counts job metric recordings per status.
type fakeRecorder struct {
	processed []string
	durations []time.Duration
}

func (f *fakeRecorder) RecordJobProcessed(_ context.Context, status string) {
	f.processed = append(f.processed, status)
}

func (f *fakeRecorder) RecordJobDuration(_ context.Context, d time.Duration, _ string) {
	f.durations = append(f.durations, d)
}

func expectJobRowUpdate(mock sqlmock.Sqlmock) {
	mock.ExpectExec(`UPDATE lookup_jobs`).
		WillReturnResult(sqlmock.NewResult(0, 1))
}

func TestExecuteScrapesAndPersists(t *testing.T) {
	lookup := &fakeLookup{result: matchedResult()}
	h, mock, mr := newTestHandler(t, lookup)

	expectJobRowUpdate(mock) // running
	mock.ExpectQuery(`INSERT INTO courts`).
		WithArgs("ΠΡΩΤΟΔΙΚΕΙΟ ΑΘΗΝΩΝ", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectQuery(`INSERT INTO cases`).
		WithArgs(int64(7), "70927", 2025, "ΝΕΑ ΤΑΚΤΙΚΗ", "", "", "912", 2025).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(41)))
	mock.ExpectQuery(`INSERT INTO case_snapshots`).
		WithArgs(int64(41), sqlmock.AnyArg(), solon.ScraperVersion).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(108)))
	expectJobRowUpdate(mock) // done

	out, err := h.Execute(context.Background(), testInput())
	require.NoError(t, err)
	assert.Equal(t, int64(41), out.CaseID)
	assert.Equal(t, int64(108), out.SnapshotID)
	assert.True(t, out.Matched)
	assert.False(t, out.Cached)
	assert.Equal(t, "70927/2025", out.DocketReference)
	assert.Equal(t, "70927/2025", out.Fields[solon.FieldGeneralDocket.Label()])
	assert.Equal(t, 1, lookup.calls)
	assert.NoError(t, mock.ExpectationsWereMet())

	// Snapshot cached for the reuse window and lease released.
	cached, err := mr.Get("solon:snapshot:πρωτοδικειο-αθηνων:70927/2025")
	require.NoError(t, err)
	var payload snapshotPayload
	require.NoError(t, json.Unmarshal([]byte(cached), &payload))
	assert.Equal(t, int64(41), payload.CaseID)
	assert.False(t, mr.Exists("solon:lease:πρωτοδικειο-αθηνων:70927/2025"))
}

func TestExecuteServesFromSnapshotCache(t *testing.T) {
	lookup := &fakeLookup{result: matchedResult()}
	h, mock, mr := newTestHandler(t, lookup)

	payload, _ := json.Marshal(snapshotPayload{
		CaseID:     41,
		SnapshotID: 108,
		Matched:    true,
		Fields:     matchedResult().FieldMap,
		ScrapedAt:  time.Now().UTC().Format(time.RFC3339),
		Version:    solon.ScraperVersion,
	})
	require.NoError(t, mr.Set("solon:snapshot:πρωτοδικειο-αθηνων:70927/2025", string(payload)))

	expectJobRowUpdate(mock) // running
	expectJobRowUpdate(mock) // done

	out, err := h.Execute(context.Background(), testInput())
	require.NoError(t, err)
	assert.True(t, out.Cached)
	assert.Equal(t, int64(41), out.CaseID)
	assert.Equal(t, 0, lookup.calls, "cache hit must not drive the portal")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteRefusesWhileLeaseHeld(t *testing.T) {
	lookup := &fakeLookup{result: matchedResult()}
	h, mock, mr := newTestHandler(t, lookup)

	require.NoError(t, mr.Set("solon:lease:πρωτοδικειο-αθηνων:70927/2025", "other-job"))
	expectJobRowUpdate(mock) // running

	_, err := h.Execute(context.Background(), testInput())
	require.Error(t, err)
	stdErr, ok := err.(*errors.StandardError)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeScrapeInProgress, stdErr.Code)
	assert.True(t, stdErr.Retryable)
	assert.Equal(t, 0, lookup.calls)
}

func TestExecuteUnmatchedStoresNothing(t *testing.T) {
	empty := solon.Normalize(nil)
	lookup := &fakeLookup{result: &solon.LookupResult{
		CourtLabel:      "ΠΡΩΤΟΔΙΚΕΙΟ ΑΘΗΝΩΝ",
		DocketReference: "99999/2020",
		Matched:         false,
		Fields:          empty,
		FieldMap:        empty.Map(),
	}}
	h, mock, mr := newTestHandler(t, lookup)

	expectJobRowUpdate(mock) // running
	expectJobRowUpdate(mock) // done

	input := testInput()
	input.CaseNumber = "99999"
	input.CaseYear = 2020

	out, err := h.Execute(context.Background(), input)
	require.NoError(t, err)
	assert.False(t, out.Matched)
	assert.Zero(t, out.CaseID)
	assert.NoError(t, mock.ExpectationsWereMet())

	// The empty result is still cached so repeat submissions within the
	// window skip the portal.
	assert.True(t, mr.Exists("solon:snapshot:πρωτοδικειο-αθηνων:99999/2020"))
}

func TestExecutePropagatesScrapeFailure(t *testing.T) {
	lookup := &fakeLookup{err: errors.NewResultTimeoutError(60 * time.Second)}
	h, mock, mr := newTestHandler(t, lookup)

	expectJobRowUpdate(mock) // running

	_, err := h.Execute(context.Background(), testInput())
	require.Error(t, err)
	stdErr, ok := err.(*errors.StandardError)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeResultTimeout, stdErr.Code)
	assert.False(t, mr.Exists("solon:lease:πρωτοδικειο-αθηνων:70927/2025"), "lease must release on failure")
}

func TestExecuteSendsCompletionEmail(t *testing.T) {
	lookup := &fakeLookup{result: matchedResult()}
	h, mock, _ := newTestHandler(t, lookup)

	mailer := &fakeMailer{}
	h.mailer = mailer
	h.notifyCfg.Email.Enabled = true
	h.notifyCfg.Email.FromEmail = "noreply@example.org"

	expectJobRowUpdate(mock) // running
	mock.ExpectQuery(`INSERT INTO courts`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectQuery(`INSERT INTO cases`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(41)))
	mock.ExpectQuery(`INSERT INTO case_snapshots`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(108)))
	expectJobRowUpdate(mock) // done

	input := testInput()
	input.NotifyEmail = "clerk@example.org"

	_, err := h.Execute(context.Background(), input)
	require.NoError(t, err)
	require.Equal(t, 1, mailer.calls)
	assert.Equal(t, "noreply@example.org", mailer.from)
	assert.Equal(t, "clerk@example.org", mailer.to)
	assert.Contains(t, mailer.subject, "70927/2025")
	assert.Contains(t, mailer.body, "Matched: true")
}

func TestExecuteSkipsEmailWhenDisabled(t *testing.T) {
	lookup := &fakeLookup{result: matchedResult()}
	h, mock, _ := newTestHandler(t, lookup)

	mailer := &fakeMailer{}
	h.mailer = mailer // configured mailer, notifications still off

	expectJobRowUpdate(mock) // running
	mock.ExpectQuery(`INSERT INTO courts`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectQuery(`INSERT INTO cases`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(41)))
	mock.ExpectQuery(`INSERT INTO case_snapshots`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(108)))
	expectJobRowUpdate(mock) // done

	input := testInput()
	input.NotifyEmail = "clerk@example.org"

	_, err := h.Execute(context.Background(), input)
	require.NoError(t, err)
	assert.Zero(t, mailer.calls)
}

func TestRecordJobForwardsToRecorder(t *testing.T) {
	lookup := &fakeLookup{result: matchedResult()}
	h, _, _ := newTestHandler(t, lookup)

	rec := &fakeRecorder{}
	h.obs = rec
	h.recordJob(context.Background(), 1200*time.Millisecond, "completed")
	h.recordJob(context.Background(), 300*time.Millisecond, "failed")

	assert.Equal(t, []string{"completed", "failed"}, rec.processed)
	assert.Equal(t, []time.Duration{1200 * time.Millisecond, 300 * time.Millisecond}, rec.durations)

	// A handler without a recorder must simply skip recording.
	h.obs = nil
	h.recordJob(context.Background(), time.Second, "completed")
}

func TestSplitDocket(t *testing.T) {
	tests := []struct {
		in     string
		number string
		year   int
	}{
		{"912/2025", "912", 2025},
		{" 70927/2025 ", "70927", 2025},
		{"no token", "no token", 0},
		{"", "", 0},
	}
	for _, tt := range tests {
		num, year := splitDocket(tt.in)
		assert.Equal(t, tt.number, num, tt.in)
		assert.Equal(t, tt.year, year, tt.in)
	}
}
