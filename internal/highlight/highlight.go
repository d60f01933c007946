// Package highlight selects table rows with column predicates combined by
// AND or OR. Selections are roaring bitmaps of 0-based row indices.
package highlight

import (
	"fmt"
	"strings"

	"github.com/RoaringBitmap/roaring"

	"github.com/KaramelBytes/pcview/internal/filter"
	"github.com/KaramelBytes/pcview/internal/table"
)

// Kind is the predicate variant of a Filter.
type Kind int

const (
	// Empty never selects anything. It marks a deleted filter and is pruned
	// from a Combined filter before evaluation.
	Empty Kind = iota
	Equal
	LessThan
	GreaterThan
	Band
)

var kindNames = map[Kind]string{
	Empty:       "empty",
	Equal:       "equal",
	LessThan:    "less",
	GreaterThan: "greater",
	Band:        "band",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind accepts the names printed by String plus common aliases.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "empty", "":
		return Empty, nil
	case "equal", "equals", "eq", "selection", "=":
		return Equal, nil
	case "less", "lt", "less-than", "<":
		return LessThan, nil
	case "greater", "gt", "greater-than", ">":
		return GreaterThan, nil
	case "band", "~":
		return Band, nil
	}
	return Empty, fmt.Errorf("%w: unknown filter kind %q", ErrSyntax, s)
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(b []byte) error {
	v, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// Filter is a single row predicate over one column. Text is the Equal
// target; Value is the threshold or band center; Width is the band width.
type Filter struct {
	Kind   Kind    `json:"kind" yaml:"kind"`
	Column string  `json:"column,omitempty" yaml:"column,omitempty"`
	Text   string  `json:"text,omitempty" yaml:"text,omitempty"`
	Value  float64 `json:"value,omitempty" yaml:"value,omitempty"`
	Width  float64 `json:"width,omitempty" yaml:"width,omitempty"`
}

// NewEqual selects rows whose value equals text.
func NewEqual(column, text string) Filter { return Filter{Kind: Equal, Column: column, Text: text} }

// NewLessThan selects rows strictly below value.
func NewLessThan(column string, value float64) Filter {
	return Filter{Kind: LessThan, Column: column, Value: value}
}

// NewGreaterThan selects rows strictly above value.
func NewGreaterThan(column string, value float64) Filter {
	return Filter{Kind: GreaterThan, Column: column, Value: value}
}

// NewBand selects rows within [center-width/2, center+width/2].
func NewBand(column string, center, width float64) Filter {
	return Filter{Kind: Band, Column: column, Value: center, Width: width}
}

// String renders f in the expression syntax accepted by Parse.
func (f Filter) String() string {
	switch f.Kind {
	case Equal:
		return f.Column + "=" + f.Text
	case LessThan:
		return f.Column + "<" + table.FormatNumber(f.Value)
	case GreaterThan:
		return f.Column + ">" + table.FormatNumber(f.Value)
	case Band:
		return f.Column + "~" + table.FormatNumber(f.Value) + ":" + table.FormatNumber(f.Width)
	}
	return "empty"
}

// Evaluate returns the rows of t that satisfy f. Unknown columns select
// nothing.
func (f Filter) Evaluate(t *table.Table) *roaring.Bitmap {
	if f.Kind == Empty {
		return roaring.New()
	}
	if values, ok := t.Numeric(f.Column); ok {
		if f.Kind == Equal {
			target, ok := table.ParseNumber(f.Text, 0, 0)
			if !ok {
				return roaring.New()
			}
			return selectWhere(len(values), func(i int) bool { return values[i] == target })
		}
		return selectWhere(len(values), func(i int) bool { return f.test(values[i]) })
	}
	if values, ok := t.Categorical(f.Column); ok {
		if f.Kind == Equal {
			return selectWhere(len(values), func(i int) bool { return values[i] == f.Text })
		}
		return selectWhere(len(values), func(i int) bool {
			x, ok := table.ParseNumber(values[i], 0, 0)
			return ok && f.test(x)
		})
	}
	return roaring.New()
}

func (f Filter) test(x float64) bool {
	switch f.Kind {
	case LessThan:
		return x < f.Value
	case GreaterThan:
		return x > f.Value
	case Band:
		return x >= f.Value-0.5*f.Width && x <= f.Value+0.5*f.Width
	}
	return false
}

func selectWhere(n int, keep func(int) bool) *roaring.Bitmap {
	bm := roaring.New()
	for i := 0; i < n; i++ {
		if keep(i) {
			bm.Add(uint32(i))
		}
	}
	return bm
}

// Combined joins filters with one operator.
type Combined struct {
	Operator filter.Operator `json:"operator" yaml:"operator"`
	Filters  []Filter        `json:"filters" yaml:"filters"`
}

// Add appends f.
func (c *Combined) Add(f Filter) { c.Filters = append(c.Filters, f) }

// Remove tombstones the filter at i; it disappears on the next Prune.
func (c *Combined) Remove(i int) {
	if i >= 0 && i < len(c.Filters) {
		c.Filters[i] = Filter{Kind: Empty}
	}
}

// Prune drops Empty filters into a fresh slice; the previous backing array
// is left untouched.
func (c *Combined) Prune() {
	kept := make([]Filter, 0, len(c.Filters))
	for _, f := range c.Filters {
		if f.Kind != Empty {
			kept = append(kept, f)
		}
	}
	c.Filters = kept
}

// Active counts the non-Empty filters.
func (c Combined) Active() int {
	n := 0
	for _, f := range c.Filters {
		if f.Kind != Empty {
			n++
		}
	}
	return n
}

// Evaluate combines the non-Empty filters over t. AND starts from every row
// and intersects, so no filters selects all rows; OR starts from no rows and
// unions, so no filters selects none.
func (c Combined) Evaluate(t *table.Table) *roaring.Bitmap {
	acc := roaring.New()
	if c.Operator == filter.And {
		acc.AddRange(0, uint64(t.Len()))
	}
	for _, f := range c.Filters {
		if f.Kind == Empty {
			continue
		}
		sel := f.Evaluate(t)
		if c.Operator == filter.And {
			acc.And(sel)
		} else {
			acc.Or(sel)
		}
	}
	return acc
}

// String renders the filters joined by the operator.
func (c Combined) String() string {
	parts := make([]string, 0, len(c.Filters))
	for _, f := range c.Filters {
		if f.Kind != Empty {
			parts = append(parts, f.String())
		}
	}
	if len(parts) == 0 {
		return "(none)"
	}
	return strings.Join(parts, " "+c.Operator.String()+" ")
}

// Mask expands a selection into a boolean vector of length n. Members at or
// past n are ignored.
func Mask(sel *roaring.Bitmap, n int) []bool {
	out := make([]bool, n)
	if sel == nil {
		return out
	}
	it := sel.Iterator()
	for it.HasNext() {
		i := int(it.Next())
		if i >= n {
			break
		}
		out[i] = true
	}
	return out
}
