// internal/solon/fields.go
// Package solon drives the SOLON civil-case portal: a headless browser
// session against the Oracle ADF search page, a results-grid extractor,
// and a normalizer that repairs the portal's frequent column
// misalignments into a canonical field set.
package solon

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Field identifies one canonical column of the results grid.
type Field int

const (
	FieldFilingDate Field = iota
	FieldGeneralDocket
	FieldSpecialDocket
	FieldProcedure
	FieldSubject
	FieldKind
	FieldBoardNumber
	FieldDecision
	FieldHearingOutcome
	fieldCount
)

// Canonical header labels as the portal renders them, in grid order.
var fieldLabels = [fieldCount]string{
	FieldFilingDate:     "Ημ. Κατάθεσης",
	FieldGeneralDocket:  "Γενικός Αριθμός Κατάθεσης/Έτος",
	FieldSpecialDocket:  "Ειδικός Αριθμός Κατάθεσης/Έτος",
	FieldProcedure:      "Διαδικασία",
	FieldSubject:        "Αντικείμενο",
	FieldKind:           "Είδος",
	FieldBoardNumber:    "Αριθμός Πινακίου",
	FieldDecision:       "Αριθμός Απόφασης/Έτος - Είδος Διατακτικού",
	FieldHearingOutcome: "Αποτέλεσμα Συζήτησης",
}

// Label returns the portal's header text for the field.
func (f Field) Label() string {
	if f < 0 || f >= fieldCount {
		return ""
	}
	return fieldLabels[f]
}

func (f Field) String() string { return f.Label() }

// FieldOrder returns the canonical grid order of all fields.
func FieldOrder() []Field {
	out := make([]Field, fieldCount)
	for i := range out {
		out[i] = Field(i)
	}
	return out
}

// FieldCount is the number of canonical grid columns.
const FieldCount = int(fieldCount)

var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// FoldKey lowercases the text, strips Greek accents and collapses
// whitespace (including NBSP) so header labels compare reliably across
// rendering variants.
func FoldKey(s string) string {
	folded, _, err := transform.String(foldTransformer, s)
	if err != nil {
		folded = s
	}
	folded = strings.ToLower(folded)
	return strings.Join(strings.Fields(strings.ReplaceAll(folded, " ", " ")), " ")
}

var fieldByKey = func() map[string]Field {
	m := make(map[string]Field, fieldCount)
	for f, label := range fieldLabels {
		m[FoldKey(label)] = Field(f)
	}
	return m
}()

// MatchHeader maps an observed header label to its canonical field.
// Matching is accent- and case-insensitive and tolerates truncated
// labels by prefix comparison in both directions.
func MatchHeader(label string) (Field, bool) {
	key := FoldKey(label)
	if key == "" {
		return 0, false
	}
	if f, ok := fieldByKey[key]; ok {
		return f, true
	}
	for f := Field(0); f < fieldCount; f++ {
		canon := FoldKey(fieldLabels[f])
		if strings.HasPrefix(canon, key) || strings.HasPrefix(key, canon) {
			return f, true
		}
	}
	return 0, false
}

// RawField is one extracted (header label, cell text) pair from the
// matched grid row, before any repair.
type RawField struct {
	Label string
	Value string
}

// RawFieldSet is the matched row's pairs in column order. It is an
// intermediate between extraction and normalization and is never
// exposed outside the package's callers.
type RawFieldSet []RawField

// CanonicalFieldSet holds the normalized value of every canonical
// field. Unpopulated fields are empty strings.
type CanonicalFieldSet [fieldCount]string

// Get returns the value for a field.
func (c *CanonicalFieldSet) Get(f Field) string { return c[f] }

// Map renders the set keyed by the portal's header labels, with all
// nine keys always present.
func (c *CanonicalFieldSet) Map() map[string]string {
	out := make(map[string]string, fieldCount)
	for f := Field(0); f < fieldCount; f++ {
		out[f.Label()] = c[f]
	}
	return out
}
