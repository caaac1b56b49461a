// internal/api/server.go
// Package api exposes the asynchronous lookup surface: submit a docket
// key, poll the job until it is done, read the normalized record.
package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"solon-workers/internal/common/config"
	"solon-workers/internal/common/logger"
	"solon-workers/internal/common/validation"
	"solon-workers/internal/models"
)

// processLauncher starts one lookup process instance per submitted job.
type processLauncher interface {
	Launch(ctx context.Context, processID string, vars interface{}) (int64, error)
}

// zeebeLauncher adapts the Zeebe client to processLauncher.
type zeebeLauncher struct {
	client zbc.Client
}

func (z *zeebeLauncher) Launch(ctx context.Context, processID string, vars interface{}) (int64, error) {
	cmd, err := z.client.NewCreateInstanceCommand().
		BPMNProcessId(processID).
		LatestVersion().
		VariablesFromObject(vars)
	if err != nil {
		return 0, err
	}
	res, err := cmd.Send(ctx)
	if err != nil {
		return 0, err
	}
	return res.GetProcessInstanceKey(), nil
}

type Server struct {
	db       *sql.DB
	launcher processLauncher
	cfg      config.CamundaConfig
	logger   logger.Logger
	ready    func(ctx context.Context) error
}

func NewServer(db *sql.DB, zeebeClient zbc.Client, cfg config.CamundaConfig, log logger.Logger, ready func(ctx context.Context) error) *Server {
	return &Server{
		db:       db,
		launcher: &zeebeLauncher{client: zeebeClient},
		cfg:      cfg,
		logger:   log.WithFields(map[string]interface{}{"component": "api"}),
		ready:    ready,
	}
}

// Routes builds the HTTP mux.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/lookups", s.submitLookup)
	mux.HandleFunc("GET /api/v1/lookups/{id}", s.getLookup)
	mux.HandleFunc("GET /health", s.health)
	mux.HandleFunc("GET /ready", s.readiness)
	mux.Handle("GET /metrics", promhttp.Handler())
	return mux
}

type submitRequest struct {
	ClientName  string `json:"clientName,omitempty"`
	CourtLabel  string `json:"courtLabel"`
	CaseNumber  string `json:"caseNumber"`
	CaseYear    int    `json:"caseYear"`
	NotifyEmail string `json:"notifyEmail,omitempty"`
}

type submitResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func (s *Server) submitLookup(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<16))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "unreadable request body")
		return
	}

	result, err := validation.ValidateLookupRequest(body)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "malformed JSON body")
		return
	}
	if !result.Valid {
		s.writeError(w, http.StatusBadRequest, result.ErrorSummary())
		return
	}

	var req submitRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "malformed JSON body")
		return
	}

	jobID := uuid.New().String()
	_, err = s.db.ExecContext(r.Context(), `
		INSERT INTO lookup_jobs (id, client_name, court_label, gak_number, gak_year, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 'queued', NOW(), NOW())`,
		jobID, req.ClientName, req.CourtLabel, req.CaseNumber, req.CaseYear)
	if err != nil {
		s.logger.Error("lookup job insert failed", map[string]interface{}{"error": err.Error()})
		s.writeError(w, http.StatusInternalServerError, "could not persist lookup job")
		return
	}

	instanceKey, err := s.launcher.Launch(r.Context(), s.cfg.LookupProcess, map[string]interface{}{
		"jobId":       jobID,
		"clientName":  req.ClientName,
		"courtLabel":  req.CourtLabel,
		"caseNumber":  req.CaseNumber,
		"caseYear":    req.CaseYear,
		"notifyEmail": req.NotifyEmail,
	})
	if err != nil {
		s.logger.Error("process instance start failed", map[string]interface{}{
			"jobId": jobID,
			"error": err.Error(),
		})
		s.markFailed(r.Context(), jobID, fmt.Sprintf("process start failed: %s", err))
		s.writeError(w, http.StatusServiceUnavailable, "lookup could not be scheduled")
		return
	}

	s.logger.Info("lookup job submitted", map[string]interface{}{
		"jobId":              jobID,
		"processInstanceKey": instanceKey,
		"court":              req.CourtLabel,
	})
	s.writeJSON(w, http.StatusAccepted, submitResponse{ID: jobID, Status: models.JobStatusQueued})
}

type jobResponse struct {
	models.LookupJob
	Fields map[string]string `json:"fields,omitempty"`
}

func (s *Server) getLookup(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := uuid.Parse(id); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid job id")
		return
	}

	var job models.LookupJob
	var clientName, errorText sql.NullString
	var caseID, snapshotID sql.NullInt64
	err := s.db.QueryRowContext(r.Context(), `
		SELECT id, client_name, court_label, gak_number, gak_year, status, error_text, case_id, snapshot_id, created_at, updated_at
		FROM lookup_jobs WHERE id = $1`, id).Scan(
		&job.ID, &clientName, &job.CourtLabel, &job.GAKNumber, &job.GAKYear,
		&job.Status, &errorText, &caseID, &snapshotID, &job.CreatedAt, &job.UpdatedAt)
	if err == sql.ErrNoRows {
		s.writeError(w, http.StatusNotFound, "no such lookup job")
		return
	}
	if err != nil {
		s.logger.Error("lookup job query failed", map[string]interface{}{"jobId": id, "error": err.Error()})
		s.writeError(w, http.StatusInternalServerError, "lookup job query failed")
		return
	}
	job.ClientName = clientName.String
	job.ErrorText = errorText.String
	if caseID.Valid {
		job.CaseID = &caseID.Int64
	}
	if snapshotID.Valid {
		job.SnapshotID = &snapshotID.Int64
	}

	resp := jobResponse{LookupJob: job}
	if snapshotID.Valid {
		var data []byte
		err := s.db.QueryRowContext(r.Context(), `SELECT data FROM case_snapshots WHERE id = $1`, snapshotID.Int64).Scan(&data)
		if err == nil {
			if jsonErr := json.Unmarshal(data, &resp.Fields); jsonErr != nil {
				s.logger.Warn("stored snapshot undecodable", map[string]interface{}{"snapshotId": snapshotID.Int64})
			}
		} else if err != sql.ErrNoRows {
			s.logger.Warn("snapshot query failed", map[string]interface{}{"snapshotId": snapshotID.Int64, "error": err.Error()})
		}
	}

	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"healthy"}`))
}

func (s *Server) readiness(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			s.writeError(w, http.StatusServiceUnavailable, "not ready")
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ready"}`))
}

func (s *Server) markFailed(ctx context.Context, jobID, reason string) {
	if _, err := s.db.ExecContext(ctx, `UPDATE lookup_jobs SET status = 'failed', error_text = $2, updated_at = NOW() WHERE id = $1`, jobID, reason); err != nil {
		s.logger.Warn("failed-state update failed", map[string]interface{}{"jobId": jobID, "error": err.Error()})
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", map[string]interface{}{"error": err.Error()})
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
