// internal/solon/grid.go
package solon

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"solon-workers/internal/common/config"
	"solon-workers/internal/common/errors"
)

// evaluator is the page surface the extractor needs; satisfied by
// *Session and by fakes in tests.
type evaluator interface {
	Evaluate(ctx context.Context, script string, out interface{}) error
}

// GridExtractor turns the rendered results grid into column-indexed
// header and cell maps. Pure DOM-to-tuple extraction: it never repairs
// or interprets values.
type GridExtractor struct {
	page evaluator
	cfg  config.SolonConfig
}

func NewGridExtractor(page evaluator, cfg config.SolonConfig) *GridExtractor {
	return &GridExtractor{page: page, cfg: cfg}
}

type gridCell struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

// HeaderMap extracts column index to header text. Three strategies in
// order, first non-empty wins: ADF ids carrying a :cN column suffix,
// ARIA columnheader roles with aria-colindex, and finally the nine
// canonical headers at their known default positions. The last exists
// because the live grid sometimes renders data rows with no header DOM
// at all.
func (g *GridExtractor) HeaderMap(ctx context.Context) (map[int]string, error) {
	idScript := fmt.Sprintf(`(() => {
		const hdr = document.querySelector(%q);
		const out = [];
		if (!hdr) return out;
		const norm = s => (s || "").toString().replace(/ /g, " ").replace(/\s+/g, " ").trim();
		const seen = new Set();
		for (const el of hdr.querySelectorAll("*")) {
			const m = (el.id || "").match(/:c(\d+)$/);
			if (!m) continue;
			const idx = Number(m[1]);
			const txt = norm(el.innerText || el.getAttribute("title") || "");
			if (!txt || seen.has(idx)) continue;
			seen.add(idx);
			out.push({index: idx, text: txt});
		}
		return out;
	})()`, g.cfg.GridHeader)

	var cells []gridCell
	if err := g.page.Evaluate(ctx, idScript, &cells); err != nil {
		return nil, errors.NewExtractionFailedError(fmt.Sprintf("read grid headers: %s", err))
	}
	if len(cells) == 0 {
		ariaScript := fmt.Sprintf(`(() => {
			const grid = document.querySelector(%q);
			const out = [];
			if (!grid) return out;
			const norm = s => (s || "").toString().replace(/ /g, " ").replace(/\s+/g, " ").trim();
			for (const col of grid.querySelectorAll('[role="columnheader"]')) {
				const idx = Number(col.getAttribute("aria-colindex") || "0") - 1;
				const txt = norm(col.innerText || col.getAttribute("title") || "");
				if (Number.isFinite(idx) && idx >= 0 && txt) out.push({index: idx, text: txt});
			}
			return out;
		})()`, g.cfg.Grid)
		if err := g.page.Evaluate(ctx, ariaScript, &cells); err != nil {
			return nil, errors.NewExtractionFailedError(fmt.Sprintf("read grid headers: %s", err))
		}
	}

	headers := make(map[int]string, FieldCount)
	for _, c := range cells {
		if _, dup := headers[c.Index]; !dup {
			headers[c.Index] = c.Text
		}
	}
	if len(headers) == 0 {
		for i, f := range FieldOrder() {
			headers[i] = f.Label()
		}
	}
	return headers, nil
}

// MatchedRow scans rendered rows for the requested docket key. A row
// matches when it has a cell equal to the number AND one equal to the
// year, or a single cell equal to the combined "number/year" token.
// First match in DOM order wins. Cell column indices come from the :cN
// id suffix, else chasing the headers attribute to an indexed header
// id, else the cell's visual position; duplicate indices keep the
// first occurrence. An empty map means no row matched.
func (g *GridExtractor) MatchedRow(ctx context.Context, caseNumber, caseYear string) (map[int]string, error) {
	script := fmt.Sprintf(`(() => {
		const db = document.querySelector(%q);
		if (!db) return [];
		const norm = s => (s || "").toString().replace(/ /g, " ").replace(/\s+/g, " ").trim();
		const rows = [];
		for (const row of db.querySelectorAll("tr,[role='row']")) {
			const cells = Array.from(row.querySelectorAll("td,[role='gridcell']"));
			if (!cells.length) continue;
			const out = [];
			for (let i = 0; i < cells.length; i++) {
				const td = cells[i];
				let idx = null;
				const m = (td.id || "").match(/:c(\d+)$/);
				if (m) idx = Number(m[1]);
				if (idx === null) {
					const hids = (td.getAttribute("headers") || "").trim().split(/\s+/).filter(Boolean);
					for (const hid of hids) {
						const h = document.getElementById(hid);
						if (!h) continue;
						const mh = (h.id || "").match(/:c(\d+)$/);
						if (mh) { idx = Number(mh[1]); break; }
					}
				}
				if (idx === null) idx = i;
				out.push({index: idx, text: norm(td.innerText)});
			}
			rows.push(out);
		}
		return rows;
	})()`, g.cfg.GridBody)

	var rows [][]gridCell
	if err := g.page.Evaluate(ctx, script, &rows); err != nil {
		return nil, errors.NewExtractionFailedError(fmt.Sprintf("read grid rows: %s", err))
	}
	for _, cells := range rows {
		if !matchesDocketKey(cells, caseNumber, caseYear) {
			continue
		}
		row := make(map[int]string, len(cells))
		for _, c := range cells {
			if _, dup := row[c.Index]; !dup {
				row[c.Index] = c.Text
			}
		}
		return row, nil
	}
	return map[int]string{}, nil
}

// matchesDocketKey reports whether a row identifies the docket: a cell
// equal to the number and another equal to the year, or one cell
// holding the anchored combined "number/year" token.
func matchesDocketKey(cells []gridCell, caseNumber, caseYear string) bool {
	num := strings.TrimSpace(caseNumber)
	year := strings.TrimSpace(caseYear)
	combined := regexp.MustCompile(`^` + regexp.QuoteMeta(num) + `\s*/\s*` + regexp.QuoteMeta(year) + `$`)

	var hasNum, hasYear bool
	for _, c := range cells {
		text := strings.TrimSpace(c.Text)
		if combined.MatchString(text) {
			return true
		}
		if text == num {
			hasNum = true
		}
		if text == year {
			hasYear = true
		}
	}
	return hasNum && hasYear
}

// JoinRow pairs header and row maps by column index into the raw
// field set, in ascending column order. Cells without a header label
// are dropped: a value with no label cannot be bound to a field.
func JoinRow(headers, row map[int]string) RawFieldSet {
	indices := make([]int, 0, len(row))
	for idx := range row {
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	var raw RawFieldSet
	for _, idx := range indices {
		label, ok := headers[idx]
		if !ok || label == "" {
			continue
		}
		raw = append(raw, RawField{Label: label, Value: row[idx]})
	}
	return raw
}
