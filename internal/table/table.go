// Package table holds the in-memory dataset: an ordered list of named
// columns, each either numeric or categorical, all of the same length.
package table

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

var (
	// ErrColumnLength is returned when a column disagrees with the table length.
	ErrColumnLength = errors.New("column length does not match table length")
	// ErrDuplicateColumn is returned when a column name is already taken.
	ErrDuplicateColumn = errors.New("duplicate column")
	// ErrUnknownColumn is returned by lookups that require an existing column.
	ErrUnknownColumn = errors.New("unknown column")
)

// DefaultUniqueLimit caps UniqueValues when no limit is given.
const DefaultUniqueLimit = 100

// Kind classifies a column.
type Kind int

const (
	Numeric Kind = iota
	Categorical
)

func (k Kind) String() string {
	if k == Categorical {
		return "categorical"
	}
	return "numeric"
}

// Table is a column store. Numeric columns hold float64 values; every other
// column is kept as strings. The row count is fixed by the first column.
type Table struct {
	name        string
	length      int
	sourceRows  int
	all         []string
	headers     []string
	numeric     map[string][]float64
	categorical map[string][]string
}

// New creates an empty table.
func New(name string) *Table {
	return &Table{
		name:        name,
		numeric:     map[string][]float64{},
		categorical: map[string][]string{},
	}
}

// Name is the display name, typically the source file's base name.
func (t *Table) Name() string { return t.name }

// Len is the row count.
func (t *Table) Len() int { return t.length }

// SourceRows is the number of data rows seen in the source, which exceeds
// Len when loading stopped at a row limit.
func (t *Table) SourceRows() int {
	if t.sourceRows < t.length {
		return t.length
	}
	return t.sourceRows
}

func (t *Table) addHeader(name string, n int) error {
	if t.Has(name) {
		return fmt.Errorf("%w: %s", ErrDuplicateColumn, name)
	}
	if len(t.all) == 0 {
		t.length = n
	} else if n != t.length {
		return fmt.Errorf("%w: %s has %d rows, table has %d", ErrColumnLength, name, n, t.length)
	}
	t.all = append(t.all, name)
	t.headers = append(t.headers, name)
	return nil
}

// AddNumeric appends a numeric column.
func (t *Table) AddNumeric(name string, values []float64) error {
	if err := t.addHeader(name, len(values)); err != nil {
		return err
	}
	t.numeric[name] = values
	return nil
}

// AddCategorical appends a string column.
func (t *Table) AddCategorical(name string, values []string) error {
	if err := t.addHeader(name, len(values)); err != nil {
		return err
	}
	t.categorical[name] = values
	return nil
}

// Has reports whether column exists.
func (t *Table) Has(column string) bool {
	_, ok := t.Kind(column)
	return ok
}

// Kind reports the kind of column. Numeric columns take precedence.
func (t *Table) Kind(column string) (Kind, bool) {
	if _, ok := t.numeric[column]; ok {
		return Numeric, true
	}
	if _, ok := t.categorical[column]; ok {
		return Categorical, true
	}
	return Numeric, false
}

// Numeric returns the values of a numeric column. The slice is shared and
// must not be modified.
func (t *Table) Numeric(column string) ([]float64, bool) {
	v, ok := t.numeric[column]
	return v, ok
}

// Categorical returns the values of a string column. The slice is shared and
// must not be modified.
func (t *Table) Categorical(column string) ([]string, bool) {
	v, ok := t.categorical[column]
	return v, ok
}

// AllHeaders lists every column in source order.
func (t *Table) AllHeaders() []string { return append([]string(nil), t.all...) }

// Headers lists the displayed columns, a subset of AllHeaders.
func (t *Table) Headers() []string { return append([]string(nil), t.headers...) }

// NumericColumns lists the numeric columns in source order.
func (t *Table) NumericColumns() []string {
	var out []string
	for _, h := range t.all {
		if _, ok := t.numeric[h]; ok {
			out = append(out, h)
		}
	}
	return out
}

// FilterHeaders narrows the displayed columns to those accepted by keep.
func (t *Table) FilterHeaders(keep func(string) bool) {
	t.headers = t.headers[:0]
	for _, h := range t.all {
		if keep(h) {
			t.headers = append(t.headers, h)
		}
	}
}

// ResetHeaders displays every column again.
func (t *Table) ResetHeaders() {
	t.headers = append(t.headers[:0], t.all...)
}

// Get formats a single cell. Unknown columns and rows out of range yield "".
func (t *Table) Get(column string, row int) string {
	if row < 0 || row >= t.length {
		return ""
	}
	if v, ok := t.numeric[column]; ok {
		return FormatNumber(v[row])
	}
	if v, ok := t.categorical[column]; ok {
		return v[row]
	}
	return ""
}

// Row formats one row across the displayed columns.
func (t *Table) Row(row int) []string {
	if row < 0 || row >= t.length {
		return nil
	}
	out := make([]string, 0, len(t.headers))
	for _, h := range t.headers {
		out = append(out, t.Get(h, row))
	}
	return out
}

// UniqueValues returns up to limit distinct formatted values of column in
// sorted order. A non-positive limit means DefaultUniqueLimit.
func (t *Table) UniqueValues(column string, limit int) []string {
	if limit <= 0 {
		limit = DefaultUniqueLimit
	}
	seen := map[string]struct{}{}
	for i := 0; i < t.length && len(seen) < limit; i++ {
		seen[t.Get(column, i)] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// ParseColumn returns column as numbers together with a per-row validity
// mask. Numeric columns are valid where finite; categorical values are
// parsed row by row.
func (t *Table) ParseColumn(column string) ([]float64, []bool, error) {
	if v, ok := t.numeric[column]; ok {
		valid := make([]bool, len(v))
		for i, x := range v {
			valid[i] = !math.IsNaN(x) && !math.IsInf(x, 0)
		}
		return v, valid, nil
	}
	s, ok := t.categorical[column]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrUnknownColumn, column)
	}
	out := make([]float64, len(s))
	valid := make([]bool, len(s))
	for i, raw := range s {
		out[i], valid[i] = ParseNumber(raw, 0, 0)
	}
	return out, valid, nil
}

// FormatNumber prints v in the shortest form that round-trips.
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// ParseNumber parses a locale formatted number. A zero decimal separator
// auto-detects per value: when both ',' and '.' occur the later one is the
// decimal point. A zero thousands separator strips the common grouping
// characters other than the decimal point. Non-finite results are rejected.
func ParseNumber(s string, decimal, thousands rune) (float64, bool) {
	raw := strings.ReplaceAll(s, "\u00A0", " ")
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	dec, thou := decimal, thousands
	if dec == 0 {
		cpos := strings.LastIndex(raw, ",")
		dpos := strings.LastIndex(raw, ".")
		switch {
		case cpos >= 0 && dpos >= 0 && cpos > dpos:
			dec, thou = ',', '.'
		case cpos >= 0 && dpos >= 0:
			dec, thou = '.', ','
		case cpos >= 0:
			dec = ','
		default:
			dec = '.'
		}
	}
	if thou == 0 {
		for _, sep := range []rune{',', '.', ' '} {
			if sep != dec {
				raw = strings.ReplaceAll(raw, string(sep), "")
			}
		}
	} else if thou != dec {
		raw = strings.ReplaceAll(raw, string(thou), "")
	}
	if dec != '.' {
		raw = strings.ReplaceAll(raw, string(dec), ".")
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
