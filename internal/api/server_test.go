// internal/api/server_test.go
package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solon-workers/internal/common/config"
	"solon-workers/internal/common/logger"
)

type fakeLauncher struct {
	processID string
	vars      map[string]interface{}
	err       error
	calls     int
}

func (f *fakeLauncher) Launch(_ context.Context, processID string, vars interface{}) (int64, error) {
	f.calls++
	f.processID = processID
	f.vars, _ = vars.(map[string]interface{})
	if f.err != nil {
		return 0, f.err
	}
	return 2251799813685249, nil
}

func newTestServer(t *testing.T) (*Server, sqlmock.Sqlmock, *fakeLauncher) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	launcher := &fakeLauncher{}
	s := &Server{
		db:       db,
		launcher: launcher,
		cfg:      config.CamundaConfig{LookupProcess: "solon-civil-lookup"},
		logger:   logger.NewNoOpLogger(),
	}
	return s, mock, launcher
}

func TestSubmitLookupAcceptsValidRequest(t *testing.T) {
	s, mock, launcher := newTestServer(t)

	mock.ExpectExec(`INSERT INTO lookup_jobs`).
		WithArgs(sqlmock.AnyArg(), "dikigoros", "ΠΡΩΤΟΔΙΚΕΙΟ ΑΘΗΝΩΝ", "70927", 2025).
		WillReturnResult(sqlmock.NewResult(0, 1))

	body := `{"clientName":"dikigoros","courtLabel":"ΠΡΩΤΟΔΙΚΕΙΟ ΑΘΗΝΩΝ","caseNumber":"70927","caseYear":2025}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/lookups", strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	var resp submitResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "queued", resp.Status)
	_, err := uuid.Parse(resp.ID)
	assert.NoError(t, err)

	assert.Equal(t, 1, launcher.calls)
	assert.Equal(t, "solon-civil-lookup", launcher.processID)
	assert.Equal(t, resp.ID, launcher.vars["jobId"])
	assert.Equal(t, "70927", launcher.vars["caseNumber"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmitLookupRejectsInvalidPayloads(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing court", `{"caseNumber":"70927","caseYear":2025}`},
		{"non numeric case number", `{"courtLabel":"X","caseNumber":"70927/2025","caseYear":2025}`},
		{"year out of range", `{"courtLabel":"X","caseNumber":"1","caseYear":1901}`},
		{"not json", `forty-two`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock, launcher := newTestServer(t)
			req := httptest.NewRequest(http.MethodPost, "/api/v1/lookups", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			s.Routes().ServeHTTP(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, 0, launcher.calls)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestSubmitLookupMarksJobFailedWhenProcessStartFails(t *testing.T) {
	s, mock, launcher := newTestServer(t)
	launcher.err = fmt.Errorf("gateway unavailable")

	mock.ExpectExec(`INSERT INTO lookup_jobs`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE lookup_jobs SET status = 'failed'`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	body := `{"courtLabel":"ΠΡΩΤΟΔΙΚΕΙΟ ΑΘΗΝΩΝ","caseNumber":"70927","caseYear":2025}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/lookups", strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetLookupReturnsJobWithFields(t *testing.T) {
	s, mock, _ := newTestServer(t)
	jobID := uuid.New().String()
	now := time.Now()

	rows := sqlmock.NewRows([]string{"id", "client_name", "court_label", "gak_number", "gak_year", "status", "error_text", "case_id", "snapshot_id", "created_at", "updated_at"}).
		AddRow(jobID, "dikigoros", "ΠΡΩΤΟΔΙΚΕΙΟ ΑΘΗΝΩΝ", "70927", 2025, "done", nil, int64(41), int64(108), now, now)
	mock.ExpectQuery(`SELECT id, client_name`).WithArgs(jobID).WillReturnRows(rows)
	mock.ExpectQuery(`SELECT data FROM case_snapshots`).WithArgs(int64(108)).
		WillReturnRows(sqlmock.NewRows([]string{"data"}).AddRow([]byte(`{"Ημ. Κατάθεσης":"24/03/2025"}`)))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/lookups/"+jobID, nil)
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp jobResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "done", resp.Status)
	require.NotNil(t, resp.SnapshotID)
	assert.Equal(t, int64(108), *resp.SnapshotID)
	assert.Equal(t, "24/03/2025", resp.Fields["Ημ. Κατάθεσης"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetLookupUnknownJob(t *testing.T) {
	s, mock, _ := newTestServer(t)
	jobID := uuid.New().String()
	mock.ExpectQuery(`SELECT id, client_name`).WithArgs(jobID).WillReturnError(sql.ErrNoRows)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/lookups/"+jobID, nil)
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetLookupRejectsMalformedID(t *testing.T) {
	s, _, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/lookups/not-a-uuid", nil)
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthAndReady(t *testing.T) {
	s, _, _ := newTestServer(t)
	s.ready = func(context.Context) error { return nil }

	for _, path := range []string{"/health", "/ready"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		s.Routes().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}

	s.ready = func(context.Context) error { return fmt.Errorf("postgres down") }
	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
