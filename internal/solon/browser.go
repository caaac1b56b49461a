// internal/solon/browser.go
package solon

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"solon-workers/internal/common/config"
	"solon-workers/internal/common/errors"
	"solon-workers/internal/common/logger"
)

// Session owns one headless Chrome context navigated to the portal's
// tracking page. It knows selectors and events, nothing about field
// semantics. Close must be called exactly once per Open; Close is safe
// to call from a defer on every failure path.
type Session struct {
	cfg     config.SolonConfig
	browser config.BrowserConfig
	logger  logger.Logger

	ctx         context.Context
	cancelCtx   context.CancelFunc
	cancelAlloc context.CancelFunc
	closeOnce   sync.Once
}

// Cookie-consent button labels tried in order; absence of all is fine.
var consentLabels = []string{"Αποδοχή", "Αποδέχομαι", "Συμφωνώ", "Accept", "Accept all", "OK", "Ok"}

// Open launches an isolated browser context, navigates to the tracking
// page, dismisses the cookie-consent overlay when present and waits for
// the page to finish booting: body-ready alone is not quiescent, the
// court list arrives in a later ADF partial response.
func Open(ctx context.Context, solonCfg config.SolonConfig, browserCfg config.BrowserConfig, log logger.Logger) (*Session, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", browserCfg.Headless),
		chromedp.Flag("lang", browserCfg.Locale),
		chromedp.WindowSize(browserCfg.Width, browserCfg.Height),
	)
	if browserCfg.NoSandbox {
		opts = append(opts, chromedp.NoSandbox)
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	tabCtx, cancelCtx := chromedp.NewContext(allocCtx)

	s := &Session{
		cfg:         solonCfg,
		browser:     browserCfg,
		logger:      log,
		ctx:         tabCtx,
		cancelCtx:   cancelCtx,
		cancelAlloc: cancelAlloc,
	}

	navCtx, cancel := context.WithTimeout(tabCtx, time.Duration(solonCfg.NavigateTimeout)*time.Millisecond)
	defer cancel()
	if err := chromedp.Run(navCtx,
		network.Enable(),
		network.SetExtraHTTPHeaders(network.Headers{"Accept-Language": browserCfg.Locale}),
		chromedp.Navigate(solonCfg.TrackURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
	); err != nil {
		s.Close()
		return nil, errors.NewNavigationFailedError("open", err)
	}

	s.dismissConsent()

	// An empty court dropdown here is a load race, not bad user input;
	// failing as navigation keeps the error class retryable.
	wait := time.Duration(solonCfg.DefaultTimeout) * time.Millisecond
	if err := awaitSelectPopulated(ctx, s, solonCfg.CourtSelect, wait); err != nil {
		s.Close()
		return nil, errors.NewNavigationFailedError("court dropdown", err)
	}
	return s, nil
}

// dismissConsent clicks the first matching consent button. Best effort:
// most visits have no overlay at all.
func (s *Session) dismissConsent() {
	script := fmt.Sprintf(`(() => {
		const labels = %s;
		const nodes = Array.from(document.querySelectorAll("button, a, [role='button']"));
		for (const label of labels) {
			const hit = nodes.find(n => (n.innerText || "").trim() === label);
			if (hit) { hit.click(); return true; }
		}
		return false;
	})()`, jsStringArray(consentLabels))

	clicked := false
	ctx, cancel := context.WithTimeout(s.ctx, 3*time.Second)
	defer cancel()
	if err := chromedp.Run(ctx, chromedp.Evaluate(script, &clicked)); err != nil {
		s.logger.Debug("cookie consent check failed", map[string]interface{}{"error": err.Error()})
		return
	}
	if clicked {
		s.logger.Debug("dismissed cookie consent overlay", nil)
		s.pause(150 * time.Millisecond)
	}
}

// awaitSelectPopulated polls until the selection control is attached
// and carries more than its placeholder option. Evaluate script errors
// are treated as not-ready: ADF swaps page fragments while booting.
func awaitSelectPopulated(ctx context.Context, page evaluator, selector string, budget time.Duration) error {
	script := fmt.Sprintf(`(() => {
		const el = document.querySelector(%q);
		return !!el && el.options && el.options.length > 1;
	})()`, selector)

	deadline := time.Now().Add(budget)
	for {
		populated := false
		if err := page.Evaluate(ctx, script, &populated); err == nil && populated {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("select %s not populated within %s", selector, budget)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(250 * time.Millisecond):
		}
	}
}

// DropdownOption is one (visible text, value token) pair of a select
// control.
type DropdownOption struct {
	Text  string `json:"text"`
	Value string `json:"value"`
}

// DropdownOptions reads all (visible text, value token) pairs from a
// selection control.
func (s *Session) DropdownOptions(ctx context.Context, selector string) ([]DropdownOption, error) {
	script := fmt.Sprintf(`(() => {
		const el = document.querySelector(%q);
		if (!el) return [];
		return Array.from(el.options).map(o => ({text: (o.textContent || "").trim(), value: o.value}));
	})()`, selector)

	var opts []DropdownOption
	if err := s.Evaluate(ctx, script, &opts); err != nil {
		return nil, errors.NewNavigationFailedError("read dropdown", err)
	}
	return opts, nil
}

// ResolveDropdownValue matches the desired label against the control's
// options, accent- and case-insensitively, exact match first and then
// substring containment.
func (s *Session) ResolveDropdownValue(ctx context.Context, selector, desiredLabel string) (string, error) {
	opts, err := s.DropdownOptions(ctx, selector)
	if err != nil {
		return "", err
	}
	want := FoldKey(desiredLabel)
	if want == "" {
		return "", errors.NewCourtNotFoundError(desiredLabel)
	}
	for _, o := range opts {
		if FoldKey(o.Text) == want {
			return o.Value, nil
		}
	}
	for _, o := range opts {
		if strings.Contains(FoldKey(o.Text), want) {
			return o.Value, nil
		}
	}
	return "", errors.NewCourtNotFoundError(desiredLabel)
}

// SelectValue commits a dropdown selection, firing the change event the
// page's framework listens on.
func (s *Session) SelectValue(ctx context.Context, selector, value string) error {
	script := fmt.Sprintf(`(() => {
		const el = document.querySelector(%q);
		if (!el) return false;
		if (el.value !== %q) {
			el.value = %q;
			el.dispatchEvent(new Event("change", {bubbles: true}));
		}
		return el.value === %q;
	})()`, selector, value, value, value)

	ok := false
	if err := s.Evaluate(ctx, script, &ok); err != nil {
		return errors.NewNavigationFailedError("select court", err)
	}
	if !ok {
		return errors.NewNavigationFailedError("select court", fmt.Errorf("value %q not committed on %s", value, selector))
	}
	s.pace()
	return nil
}

// SetText writes a text input's value with the synthetic focus, input
// and change events the ADF client-side validation requires. A bare
// value assignment is silently ignored by the framework, so the events
// are load-bearing. The committed value is read back and verified.
func (s *Session) SetText(ctx context.Context, selector, value string) error {
	script := fmt.Sprintf(`(() => {
		const el = document.querySelector(%q);
		if (!el) return "";
		el.focus();
		el.value = "";
		el.dispatchEvent(new Event("input", {bubbles: true}));
		el.value = %q;
		el.dispatchEvent(new Event("input", {bubbles: true}));
		el.dispatchEvent(new Event("change", {bubbles: true}));
		return el.value;
	})()`, selector, value)

	committed := ""
	if err := s.Evaluate(ctx, script, &committed); err != nil {
		return errors.NewNavigationFailedError("fill input", err)
	}
	if committed != value {
		return errors.NewNavigationFailedError("fill input", fmt.Errorf("input %s committed %q, want %q", selector, committed, value))
	}
	s.pace()
	return nil
}

// SubmitAndAwaitGrid triggers the search and blocks until the results
// container holds either the no-data sentinel or at least one data
// cell. The loading indicator's appear-then-disappear transitions are
// awaited best effort; a grid that renders without ever showing the
// spinner is normal.
func (s *Session) SubmitAndAwaitGrid(ctx context.Context) error {
	clickScript := fmt.Sprintf(`(() => {
		const el = document.querySelector(%q);
		if (!el) return false;
		el.click();
		return true;
	})()`, s.cfg.SearchButton)

	clicked := false
	if err := s.Evaluate(ctx, clickScript, &clicked); err != nil || !clicked {
		if err == nil {
			err = fmt.Errorf("search trigger %s not found", s.cfg.SearchButton)
		}
		return errors.NewNavigationFailedError("submit search", err)
	}

	s.awaitSpinner(ctx)

	readyScript := fmt.Sprintf(`(() => {
		const db = document.querySelector(%q);
		if (!db) return false;
		const txt = (db.textContent || "").trim();
		return txt.includes(%q) || !!db.querySelector("td,[role='gridcell']");
	})()`, s.cfg.GridBody, s.cfg.NoDataText)

	deadline := time.Now().Add(s.cfg.ResultWait())
	for {
		ready := false
		if err := s.Evaluate(ctx, readyScript, &ready); err != nil {
			return errors.NewNavigationFailedError("await results", err)
		}
		if ready {
			return nil
		}
		if time.Now().After(deadline) {
			return errors.NewResultTimeoutError(s.cfg.ResultWait())
		}
		select {
		case <-ctx.Done():
			return errors.NewResultTimeoutError(s.cfg.ResultWait())
		case <-time.After(250 * time.Millisecond):
		}
	}
}

// awaitSpinner waits up to 2s for the busy indicator to show, then up
// to the result budget for it to hide. Either transition may never
// happen on fast responses.
func (s *Session) awaitSpinner(ctx context.Context) {
	visibleScript := fmt.Sprintf(`(() => {
		const el = document.querySelector(%q);
		return !!el && el.offsetParent !== null;
	})()`, s.cfg.GridSpinner)

	waitFor := func(want bool, budget time.Duration) {
		deadline := time.Now().Add(budget)
		for time.Now().Before(deadline) {
			visible := false
			if err := s.Evaluate(ctx, visibleScript, &visible); err != nil {
				return
			}
			if visible == want {
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(120 * time.Millisecond):
			}
		}
	}
	waitFor(true, 2*time.Second)
	waitFor(false, s.cfg.ResultWait())
}

// NoDataShown reports whether the grid rendered the empty-result
// sentinel for the last search.
func (s *Session) NoDataShown(ctx context.Context) (bool, error) {
	script := fmt.Sprintf(`(() => {
		const db = document.querySelector(%q);
		if (!db) return false;
		return ((db.textContent || "").trim()).includes(%q);
	})()`, s.cfg.GridBody, s.cfg.NoDataText)

	shown := false
	if err := s.Evaluate(ctx, script, &shown); err != nil {
		return false, err
	}
	return shown, nil
}

// Evaluate runs a script in the page and decodes the result into out.
func (s *Session) Evaluate(ctx context.Context, script string, out interface{}) error {
	runCtx := s.ctx
	if ctx != nil {
		if dl, ok := ctx.Deadline(); ok {
			var cancel context.CancelFunc
			runCtx, cancel = context.WithDeadline(s.ctx, dl)
			defer cancel()
		}
	}
	return chromedp.Run(runCtx, chromedp.Evaluate(script, out))
}

// Close releases the tab and the browser process. Idempotent.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.cancelCtx()
		s.cancelAlloc()
	})
}

// pace sleeps a randomized human-like interval between interactions so
// the form traffic does not look machine-stamped.
func (s *Session) pace() {
	min, max := s.browser.PaceMin, s.browser.PaceMax
	if max <= min {
		s.pause(time.Duration(min) * time.Millisecond)
		return
	}
	s.pause(time.Duration(min+rand.Intn(max-min)) * time.Millisecond)
}

func (s *Session) pause(d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-s.ctx.Done():
	case <-timer.C:
	}
}

func jsStringArray(items []string) string {
	quoted := make([]string, len(items))
	for i, it := range items {
		quoted[i] = fmt.Sprintf("%q", it)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
