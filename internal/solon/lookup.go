// internal/solon/lookup.go
package solon

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"solon-workers/internal/common/config"
	"solon-workers/internal/common/errors"
	"solon-workers/internal/common/logger"
)

// ScraperVersion is stamped into snapshots so stored records can be
// traced back to the extraction behavior that produced them.
const ScraperVersion = "adf-2.1"

// LookupRequest is the immutable input of one lookup.
type LookupRequest struct {
	CourtLabel string `json:"courtLabel"`
	CaseNumber string `json:"caseNumber"`
	CaseYear   int    `json:"caseYear"`
}

// DocketReference renders the combined "number/year" key.
func (r LookupRequest) DocketReference() string {
	return r.CaseNumber + "/" + strconv.Itoa(r.CaseYear)
}

// Validate enforces the request invariants shared with the API schema.
func (r LookupRequest) Validate() error {
	if strings.TrimSpace(r.CourtLabel) == "" {
		return errors.NewValidationFailedError("courtLabel is required")
	}
	num := strings.TrimSpace(r.CaseNumber)
	if num == "" {
		return errors.NewValidationFailedError("caseNumber is required")
	}
	for _, ch := range num {
		if ch < '0' || ch > '9' {
			return errors.NewValidationFailedError(fmt.Sprintf("caseNumber must be numeric, got %q", r.CaseNumber))
		}
	}
	if r.CaseYear < 1980 || r.CaseYear > 2100 {
		return errors.NewValidationFailedError(fmt.Sprintf("caseYear out of range: %d", r.CaseYear))
	}
	return nil
}

// LookupResult is the structured outcome of a lookup. Matched reports
// whether the portal returned a row for the docket key; an unmatched
// key is a valid empty result, not an error.
type LookupResult struct {
	CourtLabel      string            `json:"courtLabel"`
	DocketReference string            `json:"docketReference"`
	Matched         bool              `json:"matched"`
	Fields          CanonicalFieldSet `json:"-"`
	FieldMap        map[string]string `json:"fields"`
	Repairs         []string          `json:"-"`
}

// portalSession is the browser surface one lookup drives. *Session
// implements it; tests substitute fakes.
type portalSession interface {
	ResolveDropdownValue(ctx context.Context, selector, desiredLabel string) (string, error)
	SelectValue(ctx context.Context, selector, value string) error
	SetText(ctx context.Context, selector, value string) error
	SubmitAndAwaitGrid(ctx context.Context) error
	NoDataShown(ctx context.Context) (bool, error)
	Evaluate(ctx context.Context, script string, out interface{}) error
	Close()
}

// Orchestrator composes the session driver, grid extractor and
// normalizer into one synchronous lookup. Each call runs in its own
// browser context and releases it on every path.
type Orchestrator struct {
	cfg     config.SolonConfig
	browser config.BrowserConfig
	logger  logger.Logger

	openSession func(ctx context.Context) (portalSession, error)
}

func NewOrchestrator(cfg config.SolonConfig, browserCfg config.BrowserConfig, log logger.Logger) *Orchestrator {
	o := &Orchestrator{cfg: cfg, browser: browserCfg, logger: log}
	o.openSession = func(ctx context.Context) (portalSession, error) {
		return Open(ctx, cfg, browserCfg, log)
	}
	return o
}

// Lookup resolves the court, submits the docket key and returns the
// normalized record for the matched row.
func (o *Orchestrator) Lookup(ctx context.Context, req LookupRequest) (*LookupResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	log := o.logger.WithFields(map[string]interface{}{
		"court":  req.CourtLabel,
		"docket": req.DocketReference(),
	})
	log.Info("starting portal lookup", nil)

	sess, err := o.openSession(ctx)
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	courtValue, err := sess.ResolveDropdownValue(ctx, o.cfg.CourtSelect, req.CourtLabel)
	if err != nil {
		return nil, err
	}
	if err := sess.SelectValue(ctx, o.cfg.CourtSelect, courtValue); err != nil {
		return nil, err
	}
	if err := sess.SetText(ctx, o.cfg.NumberInput, strings.TrimSpace(req.CaseNumber)); err != nil {
		return nil, err
	}
	if err := sess.SetText(ctx, o.cfg.YearInput, strconv.Itoa(req.CaseYear)); err != nil {
		return nil, err
	}
	if err := sess.SubmitAndAwaitGrid(ctx); err != nil {
		return nil, err
	}

	extractor := NewGridExtractor(sess, o.cfg)
	headers, err := extractor.HeaderMap(ctx)
	if err != nil {
		return nil, err
	}
	row, err := extractor.MatchedRow(ctx, strings.TrimSpace(req.CaseNumber), strconv.Itoa(req.CaseYear))
	if err != nil {
		return nil, err
	}

	if len(row) == 0 {
		noData, ndErr := sess.NoDataShown(ctx)
		if ndErr != nil {
			log.Warn("empty-result sentinel check failed", map[string]interface{}{"error": ndErr.Error()})
		}
		log.Info("docket key not present in results", map[string]interface{}{"no_data_sentinel": noData})
		empty := Normalize(nil)
		return &LookupResult{
			CourtLabel:      req.CourtLabel,
			DocketReference: req.DocketReference(),
			Matched:         false,
			Fields:          empty,
			FieldMap:        empty.Map(),
		}, nil
	}

	raw := JoinRow(headers, row)
	if len(raw) == 0 {
		return nil, errors.NewExtractionFailedError(fmt.Sprintf("matched row had %d cells but none joined a header", len(row)))
	}

	fields, repairs := NormalizeWithRepairs(raw)
	if len(repairs) > 0 {
		log.Info("repaired misaligned grid row", map[string]interface{}{"heuristics": repairs})
	}
	log.Info("portal lookup complete", map[string]interface{}{"columns": len(raw)})

	return &LookupResult{
		CourtLabel:      req.CourtLabel,
		DocketReference: req.DocketReference(),
		Matched:         true,
		Fields:          fields,
		FieldMap:        fields.Map(),
		Repairs:         repairs,
	}, nil
}
