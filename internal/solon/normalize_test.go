// internal/solon/normalize_test.go
package solon

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rawRow(values map[Field]string) RawFieldSet {
	var raw RawFieldSet
	for _, f := range FieldOrder() {
		raw = append(raw, RawField{Label: f.Label(), Value: values[f]})
	}
	return raw
}

func TestNormalizeAllKeysAlwaysPresent(t *testing.T) {
	out := Normalize(nil)
	m := out.Map()
	require.Len(t, m, FieldCount)
	for _, f := range FieldOrder() {
		v, ok := m[f.Label()]
		assert.True(t, ok, "missing key %q", f.Label())
		assert.Equal(t, "", v)
	}
}

func TestNormalizePassThroughCleanRow(t *testing.T) {
	raw := rawRow(map[Field]string{
		FieldFilingDate:     "24/03/2025",
		FieldGeneralDocket:  "70927/2025",
		FieldSpecialDocket:  "912/2025",
		FieldProcedure:      "ΝΕΑ ΤΑΚΤΙΚΗ ΜΟΝΟΜΕΛΟΥΣ",
		FieldSubject:        "ΕΝΟΧΙΚΟ",
		FieldKind:           "ΑΓΩΓΗ",
		FieldBoardNumber:    "3",
		FieldDecision:       "1420/2025 - ΟΡΙΣΤΙΚΗ",
		FieldHearingOutcome: "ΣΥΖΗΤΗΣΗ",
	})
	out := Normalize(raw)
	assert.Equal(t, "24/03/2025", out.Get(FieldFilingDate))
	assert.Equal(t, "70927/2025", out.Get(FieldGeneralDocket))
	assert.Equal(t, "912/2025", out.Get(FieldSpecialDocket))
	assert.Equal(t, "ΝΕΑ ΤΑΚΤΙΚΗ ΜΟΝΟΜΕΛΟΥΣ", out.Get(FieldProcedure))
	assert.Equal(t, "1420/2025 - ΟΡΙΣΤΙΚΗ", out.Get(FieldDecision))
}

func TestNormalizeSwapsTransposedDate(t *testing.T) {
	raw := rawRow(map[Field]string{
		FieldFilingDate:    "70927/2025",
		FieldGeneralDocket: "24/03/2025",
	})
	out := Normalize(raw)
	assert.Equal(t, "24/03/2025", out.Get(FieldFilingDate))
	assert.Equal(t, "70927/2025", out.Get(FieldGeneralDocket))
}

func TestNormalizeRepairsShiftedRow(t *testing.T) {
	raw := rawRow(map[Field]string{
		FieldFilingDate:     "24/03/2025",
		FieldGeneralDocket:  "ΓΑΚ 70927/2025 1420/2026 - ΟΡΙΣΤΙΚΗ",
		FieldSpecialDocket:  "70927/2025",
		FieldProcedure:      "912/2025",
		FieldSubject:        "ΝΕΑ ΤΑΚΤΙΚΗ ΜΟΝΟΜΕΛΟΥΣ",
		FieldKind:           "ΕΝΟΧΙΚΟ",
		FieldBoardNumber:    "ΑΓΩΓΗ",
		FieldDecision:       "3",
		FieldHearingOutcome: "1420/2026 - ΟΡΙΣΤΙΚΗ ΣΥΖΗΤΗΘΗΚΕ",
	})
	out := Normalize(raw)
	assert.Equal(t, "24/03/2025", out.Get(FieldFilingDate))
	assert.Equal(t, "70927/2025", out.Get(FieldGeneralDocket))
	assert.Equal(t, "912/2025", out.Get(FieldSpecialDocket))
	assert.Equal(t, "ΝΕΑ ΤΑΚΤΙΚΗ ΜΟΝΟΜΕΛΟΥΣ", out.Get(FieldProcedure))
	assert.Equal(t, "ΕΝΟΧΙΚΟ", out.Get(FieldSubject))
	assert.Equal(t, "ΑΓΩΓΗ", out.Get(FieldKind))
	assert.Equal(t, "3", out.Get(FieldBoardNumber))
	assert.Equal(t, "1420/2026 - ΟΡΙΣΤΙΚΗ", out.Get(FieldHearingOutcome))
}

func TestNormalizeShiftRecoversDocketFromSpecialCell(t *testing.T) {
	// No number/year token in the general cell: the special-docket
	// column supplies the docket reference instead.
	raw := rawRow(map[Field]string{
		FieldFilingDate:    "24/03/2025",
		FieldGeneralDocket: "ΑΝΕΥ ΣΤΟΙΧΕΙΩΝ",
		FieldSpecialDocket: "70927/2025",
		FieldProcedure:     "912/2025",
	})
	out := Normalize(raw)
	assert.Equal(t, "70927/2025", out.Get(FieldGeneralDocket))
	assert.Equal(t, "912/2025", out.Get(FieldSpecialDocket))
}

func TestNormalizeIsolatesDocketTokens(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  string
	}{
		{"prose around strict token", "ΓΑΚ 70927/2025 ΕΙΔΙΚΟ 12/2025", "70927/2025"},
		{"marker precedes short token", "Γ.Α.Κ. αριθ. 9123/2024", "9123/2024"},
		{"loose last resort", "αριθμός 12/2025 πινάκιο", "12/2025"},
		{"bare token untouched", "70927/2025", "70927/2025"},
		{"no token passes through", "ΧΩΡΙΣ ΑΡΙΘΜΟ", "ΧΩΡΙΣ ΑΡΙΘΜΟ"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := rawRow(map[Field]string{
				FieldFilingDate:    "24/03/2025",
				FieldGeneralDocket: tt.value,
			})
			out := Normalize(raw)
			assert.Equal(t, tt.want, out.Get(FieldGeneralDocket))
		})
	}
}

func TestNormalizeTrimsHeardMarker(t *testing.T) {
	raw := rawRow(map[Field]string{
		FieldHearingOutcome: "1420/2026 - ΟΡΙΣΤΙΚΗ ΣΥΖΗΤΗΘΗΚΕ",
	})
	out := Normalize(raw)
	assert.Equal(t, "1420/2026 - ΟΡΙΣΤΙΚΗ", out.Get(FieldHearingOutcome))
}

func TestNormalizeIsolatesFilingDate(t *testing.T) {
	raw := rawRow(map[Field]string{
		FieldFilingDate: "24/03/2025 ΤΑΚΤΙΚΗ",
	})
	out := Normalize(raw)
	assert.Equal(t, "24/03/2025", out.Get(FieldFilingDate))
}

func TestNormalizeIsIdempotent(t *testing.T) {
	rows := []map[Field]string{
		{
			FieldFilingDate:     "24/03/2025",
			FieldGeneralDocket:  "ΓΑΚ 70927/2025 1420/2026 - ΟΡΙΣΤΙΚΗ",
			FieldSpecialDocket:  "70927/2025",
			FieldProcedure:      "912/2025",
			FieldSubject:        "ΝΕΑ ΤΑΚΤΙΚΗ",
			FieldHearingOutcome: "ΣΥΖΗΤΗΘΗΚΕ",
		},
		{
			FieldFilingDate:    "70927/2025",
			FieldGeneralDocket: "24/03/2025",
		},
		{
			FieldFilingDate:    "24/03/2025",
			FieldGeneralDocket: "70927/2025",
			FieldSpecialDocket: "912/2025",
		},
	}
	for _, row := range rows {
		first := Normalize(rawRow(row))
		var again RawFieldSet
		for _, f := range FieldOrder() {
			again = append(again, RawField{Label: f.Label(), Value: first.Get(f)})
		}
		second := Normalize(again)
		assert.Equal(t, first, second)
	}
}

func TestNormalizeDropsUnknownLabelsAndDuplicates(t *testing.T) {
	raw := RawFieldSet{
		{Label: "Κατάστημα", Value: "junk column"},
		{Label: "Ημ. Κατάθεσης", Value: "24/03/2025"},
		{Label: "Ημ. Κατάθεσης", Value: "01/01/1999"},
	}
	out := Normalize(raw)
	assert.Equal(t, "24/03/2025", out.Get(FieldFilingDate))
}
