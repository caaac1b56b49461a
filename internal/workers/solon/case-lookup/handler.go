// internal/workers/solon/case-lookup/handler.go
package caselookup

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	awsclient "solon-workers/internal/common/aws"
	"solon-workers/internal/common/config"
	"solon-workers/internal/common/database"
	"solon-workers/internal/common/errors"
	"solon-workers/internal/common/logger"
	"solon-workers/internal/common/metrics"
	"solon-workers/internal/common/observability"
	"solon-workers/internal/common/validation"
	"solon-workers/internal/solon"
)

const (
	TaskType = "solon-case-lookup"
)

// caseLookup is the scrape surface; *solon.Orchestrator in production.
type caseLookup interface {
	Lookup(ctx context.Context, req solon.LookupRequest) (*solon.LookupResult, error)
}

// snapshotCache is the Redis surface the handler needs.
type snapshotCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
}

// documentIndexer is the optional search-index surface.
type documentIndexer interface {
	IndexDocument(ctx context.Context, id string, body []byte) error
}

// emailSender is the optional notification surface.
type emailSender interface {
	SendCompletionEmail(ctx context.Context, from, to, subject, body string) error
}

// jobRecorder is the optional OTel metrics surface.
type jobRecorder interface {
	RecordJobProcessed(ctx context.Context, status string)
	RecordJobDuration(ctx context.Context, duration time.Duration, status string)
}

type Handler struct {
	config       *Config
	db           *sql.DB
	cache        snapshotCache
	indexer      documentIndexer
	mailer       emailSender
	obs          jobRecorder
	lookup       caseLookup
	errorHandler *errors.ErrorHandler
	logger       logger.Logger
	cacheCfg     config.CacheConfig
	notifyCfg    config.NotificationConfig
}

func NewHandler(cfg *Config, db *sql.DB, cache *database.RedisClient, indexer *database.ElasticsearchClient, mailer *awsclient.SESClient, obs *observability.Observability, lookup caseLookup, log logger.Logger, cacheCfg config.CacheConfig, notifyCfg config.NotificationConfig) *Handler {
	h := &Handler{
		config:       cfg,
		db:           db,
		cache:        cache,
		lookup:       lookup,
		errorHandler: errors.NewErrorHandler(log),
		logger:       log.WithFields(map[string]interface{}{"taskType": TaskType}),
		cacheCfg:     cacheCfg,
		notifyCfg:    notifyCfg,
	}
	// Optional collaborators stay nil interfaces unless configured.
	if indexer != nil {
		h.indexer = indexer
	}
	if mailer != nil {
		h.mailer = mailer
	}
	if obs != nil {
		h.obs = obs
	}
	return h
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":             job.Key,
		"processInstanceKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.errorHandler.HandleJobError(context.Background(), client, job, &errors.StandardError{
			Code:      errors.ErrCodeParseError,
			Message:   "Malformed job variables",
			Details:   err.Error(),
			Retryable: false,
			Timestamp: time.Now().UTC(),
		})
		return
	}

	if result, err := validation.ValidateLookupRequestObject(input); err != nil || !result.Valid {
		details := "schema validation unavailable"
		if result != nil {
			details = result.ErrorSummary()
		}
		h.markJobFailed(input.JobID, details)
		h.errorHandler.HandleJobError(context.Background(), client, job, errors.NewValidationFailedError(details))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	start := time.Now()
	output, err := h.execute(ctx, &input)
	if err != nil {
		stdErr := errors.FromError(err)
		metrics.LookupsFailed.WithLabelValues(input.CourtLabel, string(stdErr.Code)).Inc()
		h.recordJob(ctx, time.Since(start), "failed")
		h.markJobFailed(input.JobID, stdErr.Error())
		h.errorHandler.HandleJobError(ctx, client, job, err)
		return
	}

	metrics.LookupsCompleted.WithLabelValues(input.CourtLabel).Inc()
	metrics.LookupDuration.WithLabelValues(input.CourtLabel).Observe(time.Since(start).Seconds())
	h.recordJob(ctx, time.Since(start), "completed")
	h.completeJob(client, job, output)
}

func (h *Handler) recordJob(ctx context.Context, elapsed time.Duration, status string) {
	if h.obs == nil {
		return
	}
	h.obs.RecordJobProcessed(ctx, status)
	h.obs.RecordJobDuration(ctx, elapsed, status)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	h.markJobRunning(input.JobID)

	docketKey := fmt.Sprintf("%s:%s/%d", slugify(input.CourtLabel), strings.TrimSpace(input.CaseNumber), input.CaseYear)
	cacheKey := "solon:snapshot:" + docketKey

	if cached, err := h.cache.Get(ctx, cacheKey); err == nil && cached != "" {
		var payload snapshotPayload
		if err := json.Unmarshal([]byte(cached), &payload); err == nil {
			metrics.SnapshotCacheHits.Inc()
			h.logger.Info("serving lookup from snapshot cache", map[string]interface{}{
				"docketKey": docketKey,
				"scrapedAt": payload.ScrapedAt,
			})
			out := h.buildOutput(input, &payload, true)
			h.markJobDone(input.JobID, payload.CaseID, payload.SnapshotID)
			return out, nil
		}
		h.logger.Warn("discarding undecodable cached snapshot", map[string]interface{}{"docketKey": docketKey})
	}

	leaseKey := "solon:lease:" + docketKey
	leased, err := h.cache.SetNX(ctx, leaseKey, input.JobID, time.Duration(h.cacheCfg.DedupeLease)*time.Second)
	if err != nil {
		h.logger.Warn("scrape lease check failed, proceeding without dedupe", map[string]interface{}{"error": err.Error()})
	} else if !leased {
		return nil, errors.NewScrapeInProgressError(docketKey)
	} else {
		defer func() {
			if err := h.cache.Del(context.Background(), leaseKey); err != nil {
				h.logger.Warn("scrape lease release failed", map[string]interface{}{"error": err.Error()})
			}
		}()
	}

	res, err := h.lookup.Lookup(ctx, solon.LookupRequest{
		CourtLabel: input.CourtLabel,
		CaseNumber: input.CaseNumber,
		CaseYear:   input.CaseYear,
	})
	if err != nil {
		return nil, err
	}
	for _, heuristic := range res.Repairs {
		metrics.FieldRepairsApplied.WithLabelValues(heuristic).Inc()
	}

	payload := snapshotPayload{
		Matched:   res.Matched,
		Fields:    res.FieldMap,
		ScrapedAt: time.Now().UTC().Format(time.RFC3339),
		Version:   solon.ScraperVersion,
	}

	if res.Matched {
		caseID, snapshotID, err := h.persist(ctx, input, res, &payload)
		if err != nil {
			return nil, err
		}
		payload.CaseID = caseID
		payload.SnapshotID = snapshotID
	}

	if body, err := json.Marshal(payload); err == nil {
		if err := h.cache.Set(ctx, cacheKey, body, time.Duration(h.cacheCfg.SnapshotTTL)*time.Second); err != nil {
			h.logger.Warn("snapshot cache write failed", map[string]interface{}{"error": err.Error()})
		}
		if res.Matched && h.indexer != nil {
			if err := h.indexer.IndexDocument(ctx, docketKey, body); err != nil {
				h.logger.Warn("search index write failed", map[string]interface{}{
					"docketKey": docketKey,
					"error":     err.Error(),
				})
			}
		}
	}

	h.markJobDone(input.JobID, payload.CaseID, payload.SnapshotID)
	h.notify(ctx, input, res)
	return h.buildOutput(input, &payload, false), nil
}

// persist upserts the court, the case and one snapshot row, returning
// the case and snapshot ids.
func (h *Handler) persist(ctx context.Context, input *Input, res *solon.LookupResult, payload *snapshotPayload) (int64, int64, error) {
	var courtID int64
	err := h.db.QueryRowContext(ctx, `
		INSERT INTO courts (name, slug, is_active, created_at, updated_at)
		VALUES ($1, $2, TRUE, NOW(), NOW())
		ON CONFLICT (name) DO UPDATE SET updated_at = NOW()
		RETURNING id`,
		input.CourtLabel, slugify(input.CourtLabel)).Scan(&courtID)
	if err != nil {
		return 0, 0, errors.NewDatabaseInsertFailedError(fmt.Errorf("upsert court: %w", err))
	}

	eakNumber, eakYear := splitDocket(res.Fields.Get(solon.FieldSpecialDocket))
	var caseID int64
	err = h.db.QueryRowContext(ctx, `
		INSERT INTO cases (court_id, gak_number, gak_year, procedure, subject, document_type, eak_number, eak_year, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		ON CONFLICT (court_id, gak_number, gak_year) DO UPDATE SET
			procedure = EXCLUDED.procedure,
			subject = EXCLUDED.subject,
			document_type = EXCLUDED.document_type,
			eak_number = EXCLUDED.eak_number,
			eak_year = EXCLUDED.eak_year,
			updated_at = NOW()
		RETURNING id`,
		courtID,
		strings.TrimSpace(input.CaseNumber),
		input.CaseYear,
		res.Fields.Get(solon.FieldProcedure),
		res.Fields.Get(solon.FieldSubject),
		res.Fields.Get(solon.FieldKind),
		eakNumber,
		eakYear,
	).Scan(&caseID)
	if err != nil {
		return 0, 0, errors.NewDatabaseInsertFailedError(fmt.Errorf("upsert case: %w", err))
	}

	fieldsJSON, err := json.Marshal(res.FieldMap)
	if err != nil {
		return 0, 0, errors.NewDatabaseInsertFailedError(fmt.Errorf("marshal fields: %w", err))
	}
	var snapshotID int64
	err = h.db.QueryRowContext(ctx, `
		INSERT INTO case_snapshots (case_id, data, scraped_at, scraper_version)
		VALUES ($1, $2, NOW(), $3)
		RETURNING id`,
		caseID, fieldsJSON, solon.ScraperVersion).Scan(&snapshotID)
	if err != nil {
		return 0, 0, errors.NewDatabaseInsertFailedError(fmt.Errorf("insert snapshot: %w", err))
	}

	return caseID, snapshotID, nil
}

// notify emails the requester when a notification address was supplied.
// Best effort: a mail failure never fails the lookup.
func (h *Handler) notify(ctx context.Context, input *Input, res *solon.LookupResult) {
	if h.mailer == nil || !h.notifyCfg.Email.Enabled || input.NotifyEmail == "" {
		return
	}
	subject := fmt.Sprintf("SOLON lookup complete: %s %s/%d", input.CourtLabel, input.CaseNumber, input.CaseYear)
	body := fmt.Sprintf("Matched: %t\nDecision: %s\nHearing outcome: %s\n",
		res.Matched,
		res.Fields.Get(solon.FieldDecision),
		res.Fields.Get(solon.FieldHearingOutcome))

	if err := h.mailer.SendCompletionEmail(ctx, h.notifyCfg.Email.FromEmail, input.NotifyEmail, subject, body); err != nil {
		h.logger.Warn("completion email failed", map[string]interface{}{
			"recipient": input.NotifyEmail,
			"error":     err.Error(),
		})
	}
}

// Job-row bookkeeping is best effort: a missing or unreachable row must
// never fail the scrape itself.

func (h *Handler) markJobRunning(jobID string) {
	h.updateJobRow(jobID, `UPDATE lookup_jobs SET status = 'running', updated_at = NOW() WHERE id = $1`, jobID)
}

func (h *Handler) markJobDone(jobID string, caseID, snapshotID int64) {
	if jobID == "" {
		return
	}
	h.updateJobRow(jobID, `UPDATE lookup_jobs SET status = 'done', case_id = NULLIF($2, 0), snapshot_id = NULLIF($3, 0), updated_at = NOW() WHERE id = $1`, jobID, caseID, snapshotID)
}

func (h *Handler) markJobFailed(jobID, errorText string) {
	h.updateJobRow(jobID, `UPDATE lookup_jobs SET status = 'failed', error_text = $2, updated_at = NOW() WHERE id = $1`, jobID, errorText)
}

func (h *Handler) updateJobRow(jobID, query string, args ...interface{}) {
	if jobID == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := h.db.ExecContext(ctx, query, args...); err != nil {
		h.logger.Warn("lookup job row update failed", map[string]interface{}{
			"jobId": jobID,
			"error": err.Error(),
		})
	}
}

func (h *Handler) buildOutput(input *Input, payload *snapshotPayload, cached bool) *Output {
	return &Output{
		JobID:           input.JobID,
		Status:          "done",
		Matched:         payload.Matched,
		Cached:          cached,
		CourtLabel:      input.CourtLabel,
		DocketReference: strings.TrimSpace(input.CaseNumber) + "/" + strconv.Itoa(input.CaseYear),
		CaseID:          payload.CaseID,
		SnapshotID:      payload.SnapshotID,
		Fields:          payload.Fields,
		CompletedAt:     time.Now().UTC().Format(time.RFC3339),
	}
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{"error": err})
		return
	}
	if _, err = cmd.Send(context.Background()); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{"error": err})
		return
	}
	h.logger.Info("job completed successfully", map[string]interface{}{
		"jobKey":  job.Key,
		"matched": output.Matched,
		"cached":  output.Cached,
	})
}

// Execute exposes the handler logic for testing.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}

// slugify folds a court label into a stable key segment.
func slugify(label string) string {
	return strings.ReplaceAll(solon.FoldKey(label), " ", "-")
}

// splitDocket breaks a "number/year" token into its parts; non-token
// values yield the raw string and a zero year.
func splitDocket(v string) (string, int) {
	parts := strings.SplitN(strings.TrimSpace(v), "/", 2)
	if len(parts) != 2 {
		return strings.TrimSpace(v), 0
	}
	year, err := strconv.Atoi(parts[1])
	if err != nil {
		return parts[0], 0
	}
	return parts[0], year
}
