package highlight

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/RoaringBitmap/roaring"

	"github.com/KaramelBytes/pcview/internal/filter"
	"github.com/KaramelBytes/pcview/internal/table"
)

func sampleTable(t *testing.T) *table.Table {
	t.Helper()
	tbl := table.New("sample")
	if err := tbl.AddNumeric("x", []float64{0.4, 0.8, 1.2, 1.6}); err != nil {
		t.Fatal(err)
	}
	if err := tbl.AddCategorical("label", []string{"A", "B", "A", "C"}); err != nil {
		t.Fatal(err)
	}
	if err := tbl.AddCategorical("mixed", []string{"1", "n/a", "3.5", "10"}); err != nil {
		t.Fatal(err)
	}
	return tbl
}

func rows(bm *roaring.Bitmap) []uint32 {
	out := bm.ToArray()
	if out == nil {
		return []uint32{}
	}
	return out
}

func TestLeafFilters(t *testing.T) {
	tbl := sampleTable(t)
	cases := []struct {
		name string
		f    Filter
		want []uint32
	}{
		{"band", NewBand("x", 1.0, 0.5), []uint32{1, 2}},
		{"less numeric", NewLessThan("x", 1.2), []uint32{0, 1}},
		{"greater numeric", NewGreaterThan("x", 1.2), []uint32{3}},
		{"equal numeric", NewEqual("x", "0.8"), []uint32{1}},
		{"equal numeric unparsable", NewEqual("x", "abc"), []uint32{}},
		{"equal categorical", NewEqual("label", "A"), []uint32{0, 2}},
		{"less on strings skips unparsable", NewLessThan("mixed", 5), []uint32{0, 2}},
		{"band on strings", NewBand("mixed", 10, 1), []uint32{3}},
		{"missing column", NewGreaterThan("nope", 0), []uint32{}},
		{"empty", Filter{}, []uint32{}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := rows(c.f.Evaluate(tbl)); !reflect.DeepEqual(got, c.want) {
				t.Fatalf("Evaluate = %v, want %v", got, c.want)
			}
		})
	}
}

func TestCombinedAndOr(t *testing.T) {
	tbl := sampleTable(t)
	a := NewGreaterThan("x", 0.5)
	b := NewEqual("label", "A")

	and := Combined{Operator: filter.And, Filters: []Filter{a, b}}
	if got := rows(and.Evaluate(tbl)); !reflect.DeepEqual(got, []uint32{2}) {
		t.Fatalf("AND = %v, want [2]", got)
	}
	or := Combined{Operator: filter.Or, Filters: []Filter{a, b}}
	if got := rows(or.Evaluate(tbl)); !reflect.DeepEqual(got, []uint32{0, 1, 2, 3}) {
		t.Fatalf("OR = %v, want all", got)
	}

	// order does not matter
	swapped := Combined{Operator: filter.And, Filters: []Filter{b, a}}
	if !and.Evaluate(tbl).Equals(swapped.Evaluate(tbl)) {
		t.Fatalf("AND should be commutative")
	}
}

func TestCombinedWithoutFilters(t *testing.T) {
	tbl := sampleTable(t)
	if got := (Combined{Operator: filter.And}).Evaluate(tbl).GetCardinality(); got != 4 {
		t.Fatalf("empty AND selects %d rows, want 4", got)
	}
	if got := (Combined{Operator: filter.Or}).Evaluate(tbl).GetCardinality(); got != 0 {
		t.Fatalf("empty OR selects %d rows, want 0", got)
	}
	// tombstones are ignored, so a removed filter behaves like no filter
	c := Combined{Operator: filter.And, Filters: []Filter{NewEqual("label", "Z")}}
	c.Remove(0)
	if got := c.Evaluate(tbl).GetCardinality(); got != 4 {
		t.Fatalf("AND with only a tombstone selects %d rows, want 4", got)
	}
	c.Prune()
	if len(c.Filters) != 0 || c.Active() != 0 {
		t.Fatalf("Prune left %v", c.Filters)
	}
}

func TestPruneKeepsSharedSlice(t *testing.T) {
	a, b := NewEqual("label", "A"), NewGreaterThan("x", 1)
	shared := []Filter{a, {Kind: Empty}, b}
	c := Combined{Operator: filter.Or, Filters: shared}
	c.Prune()
	if len(c.Filters) != 2 || c.Filters[0] != a || c.Filters[1] != b {
		t.Fatalf("pruned = %v", c.Filters)
	}
	if shared[1].Kind != Empty || shared[2] != b {
		t.Fatalf("caller slice rewritten: %v", shared)
	}
}

func TestMissingColumnUnderAndSelectsNothing(t *testing.T) {
	tbl := sampleTable(t)
	c := Combined{Operator: filter.And, Filters: []Filter{NewBand("x", 1, 10), NewEqual("ghost", "1")}}
	if got := c.Evaluate(tbl).GetCardinality(); got != 0 {
		t.Fatalf("selected %d rows, want 0", got)
	}
}

func TestParse(t *testing.T) {
	cases := []struct {
		in   string
		want Filter
	}{
		{"label=A", NewEqual("label", "A")},
		{" x < 1.5 ", NewLessThan("x", 1.5)},
		{"x>-2", NewGreaterThan("x", -2)},
		{"x~1:0.5", NewBand("x", 1, 0.5)},
		{"name=a=b", NewEqual("name", "a=b")},
	}
	for _, c := range cases {
		got, err := Parse(c.in)
		if err != nil {
			t.Fatalf("Parse(%q): %v", c.in, err)
		}
		if got != c.want {
			t.Fatalf("Parse(%q) = %+v, want %+v", c.in, got, c.want)
		}
		if again, err := Parse(got.String()); err != nil || again != got {
			t.Fatalf("Parse(String()) = %+v, %v", again, err)
		}
	}
	for _, bad := range []string{"", "=A", "x<abc", "x~1", "x~a:b", "x~1:-1", "novalue"} {
		if _, err := Parse(bad); !errors.Is(err, ErrSyntax) {
			t.Fatalf("Parse(%q) err = %v, want ErrSyntax", bad, err)
		}
	}
}

func TestParseAllAndString(t *testing.T) {
	c, err := ParseAll([]string{"x>0.5", "", "label=A"}, filter.Or)
	if err != nil {
		t.Fatalf("ParseAll: %v", err)
	}
	if got := c.String(); got != "x>0.5 or label=A" {
		t.Fatalf("String = %q", got)
	}
	if (Combined{}).String() != "(none)" {
		t.Fatalf("empty String mismatch")
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "filters.yaml")
	doc := `operator: or
filters:
  - {kind: band, column: x, value: 1, width: 0.5}
  - {kind: empty}
  - {kind: eq, column: label, text: C}
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if c.Operator != filter.Or || len(c.Filters) != 2 {
		t.Fatalf("loaded %+v", c)
	}
	if got := rows(c.Evaluate(sampleTable(t))); !reflect.DeepEqual(got, []uint32{1, 2, 3}) {
		t.Fatalf("Evaluate = %v, want [1 2 3]", got)
	}

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(bad, []byte("filters:\n  - {kind: sideways, column: x}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(bad); !errors.Is(err, ErrSyntax) {
		t.Fatalf("bad kind err = %v", err)
	}
	noColumn := filepath.Join(t.TempDir(), "nocol.yaml")
	if err := os.WriteFile(noColumn, []byte("filters:\n  - {kind: band, value: 1}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(noColumn); !errors.Is(err, ErrSyntax) {
		t.Fatalf("missing column err = %v", err)
	}
}

func TestMask(t *testing.T) {
	got := Mask(roaring.BitmapOf(0, 2, 7), 4)
	if !reflect.DeepEqual(got, []bool{true, false, true, false}) {
		t.Fatalf("Mask = %v", got)
	}
	if len(Mask(nil, 3)) != 3 {
		t.Fatalf("nil selection should give a false mask")
	}
}
