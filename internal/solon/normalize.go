// internal/solon/normalize.go
package solon

import (
	"regexp"
	"strings"
)

// The portal's grid frequently renders rows misaligned against their
// headers: the filing date and general docket transposed, or every
// value from the general docket onward shifted right by one column
// with prose text bleeding into the docket cell. Normalize repairs the
// recurring patterns with ordered heuristics. Each heuristic is a
// no-op when its precondition does not hold, so feeding an already
// normalized row back through the pass leaves it unchanged.
var (
	reDateExact   = regexp.MustCompile(`^\d{2}/\d{2}/\d{4}$`)
	reDateAny     = regexp.MustCompile(`\d{1,2}/\d{1,2}/\d{4}`)
	reNumYearFull = regexp.MustCompile(`^\d+/\d{4}$`)
	reNumYearAny  = regexp.MustCompile(`\d+/\d{4}`)

	// Docket token isolation. Go's regexp has no lookarounds, so the
	// strict 4-8 digit form guards its boundaries with explicit
	// non-digit (or edge) context and captures the token.
	reDocketStrict = regexp.MustCompile(`(?:^|[^0-9])(\d{4,8}/\d{4})(?:[^0-9]|$)`)
	reDocketMarked = regexp.MustCompile(`(?i)(?:ΓΑΚ|Γ\.?\s*Α\.?\s*Κ\.?|ΕΑΚ|Ε\.?\s*Α\.?\s*Κ\.?)\D*?(\d{4,8}/\d{4})`)
	reDocketLoose  = regexp.MustCompile(`\b(\d+/\d{4})\b`)

	// Hearing outcome salvaged from the tail of an overloaded docket
	// cell, e.g. "70927/2025 ... 1234/2026 - ΟΡΙΣΤΙΚΗ".
	reOutcomeTail = regexp.MustCompile(`(\d+/\d{4}\s*-\s*\S+)`)

	reHeardMarker = regexp.MustCompile(`\s*ΣΥΖΗΤΗΘΗΚΕ\s*$`)
)

// Repair heuristic names, reported by NormalizeWithRepairs.
const (
	RepairDateSwap      = "date_swap"
	RepairShift         = "shift"
	RepairDocketToken   = "docket_token"
	RepairHeardMarker   = "heard_marker"
	RepairDateIsolation = "date_isolation"
)

// Normalize binds the raw (label, value) pairs to canonical fields and
// repairs misalignments. Pure and deterministic.
func Normalize(raw RawFieldSet) CanonicalFieldSet {
	out, _ := NormalizeWithRepairs(raw)
	return out
}

// NormalizeWithRepairs additionally reports which heuristics fired, in
// application order, for observability at the caller.
func NormalizeWithRepairs(raw RawFieldSet) (CanonicalFieldSet, []string) {
	var out CanonicalFieldSet
	bound := [FieldCount]bool{}
	for _, rf := range raw {
		f, ok := MatchHeader(rf.Label)
		if !ok || bound[f] {
			continue
		}
		bound[f] = true
		out[f] = strings.TrimSpace(strings.ReplaceAll(rf.Value, " ", " "))
	}

	var repairs []string
	var applied bool
	if out, applied = swapTransposedDate(out); applied {
		repairs = append(repairs, RepairDateSwap)
	}
	if out, applied = repairShiftedRow(out); applied {
		repairs = append(repairs, RepairShift)
	}
	tokenized := false
	for _, f := range []Field{FieldGeneralDocket, FieldSpecialDocket} {
		if tok := isolateDocketToken(out[f]); tok != out[f] {
			out[f] = tok
			tokenized = true
		}
	}
	if tokenized {
		repairs = append(repairs, RepairDocketToken)
	}
	if trimmed := strings.TrimSpace(reHeardMarker.ReplaceAllString(out[FieldHearingOutcome], "")); trimmed != out[FieldHearingOutcome] {
		out[FieldHearingOutcome] = trimmed
		repairs = append(repairs, RepairHeardMarker)
	}
	if m := reDateAny.FindString(out[FieldFilingDate]); m != "" && m != out[FieldFilingDate] {
		out[FieldFilingDate] = m
		repairs = append(repairs, RepairDateIsolation)
	}
	return out, repairs
}

// swapTransposedDate fixes the common case where the filing-date and
// general-docket columns render transposed.
func swapTransposedDate(c CanonicalFieldSet) (CanonicalFieldSet, bool) {
	date := c[FieldFilingDate]
	gen := c[FieldGeneralDocket]
	if !reDateExact.MatchString(date) && reDateExact.MatchString(gen) {
		c[FieldFilingDate], c[FieldGeneralDocket] = gen, date
		return c, true
	}
	return c, false
}

// repairShiftedRow detects a row whose values shifted right by one
// column from the general docket onward and shifts them back. The
// trigger is a bare number/year token sitting in a free-text column:
// either the procedure field, or the special docket while the general
// docket is NOT a bare token. The second clause keeps the pass
// idempotent, since a repaired row legitimately carries bare tokens in
// both docket fields.
func repairShiftedRow(c CanonicalFieldSet) (CanonicalFieldSet, bool) {
	shifted := reNumYearFull.MatchString(c[FieldProcedure]) ||
		(reNumYearFull.MatchString(c[FieldSpecialDocket]) && !reNumYearFull.MatchString(c[FieldGeneralDocket]))
	if !shifted {
		return c, false
	}

	genCell := c[FieldGeneralDocket]
	var fixed CanonicalFieldSet
	fixed[FieldFilingDate] = c[FieldFilingDate]

	// General docket: first number/year token anywhere in the original
	// cell, else whatever sat in the special-docket column.
	if tok := reNumYearAny.FindString(genCell); tok != "" {
		fixed[FieldGeneralDocket] = tok
	} else {
		fixed[FieldGeneralDocket] = strings.TrimSpace(c[FieldSpecialDocket])
	}

	for f := FieldSpecialDocket; f < FieldHearingOutcome; f++ {
		fixed[f] = strings.TrimSpace(c[f+1])
	}

	// Hearing outcome: salvage a "number/year - word" tail from the
	// original docket cell, else keep the pre-shift last value.
	if tail := reOutcomeTail.FindString(genCell); tail != "" {
		fixed[FieldHearingOutcome] = tail
	} else {
		fixed[FieldHearingOutcome] = strings.TrimSpace(c[FieldHearingOutcome])
	}
	return fixed, true
}

// isolateDocketToken strips prose around an embedded docket reference.
// The strict 4-8 digit form is preferred so dates never false-match,
// then a token preceded by a ΓΑΚ/ΕΑΚ abbreviation, then a loose
// number/year as last resort. Values without any token pass through.
func isolateDocketToken(v string) string {
	v = strings.TrimSpace(v)
	if v == "" || reNumYearFull.MatchString(v) {
		return v
	}
	if m := reDocketStrict.FindStringSubmatch(v); m != nil {
		return m[1]
	}
	if m := reDocketMarked.FindStringSubmatch(v); m != nil {
		return m[1]
	}
	if m := reDocketLoose.FindStringSubmatch(v); m != nil {
		return m[1]
	}
	return v
}
