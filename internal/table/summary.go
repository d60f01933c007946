package table

import (
	"fmt"
	"sort"
	"strings"

	"github.com/KaramelBytes/pcview/internal/stats"
)

// topValueLimit caps the categorical values listed per column.
const topValueLimit = 8

// Summary is a markdown-friendly description of a Table.
type Summary struct {
	Name       string
	Rows       int
	SourceRows int
	Cols       []ColumnSummary
	Samples    [][]string
	Warnings   []string
}

// ColumnSummary captures kind and statistics per column.
type ColumnSummary struct {
	Name  string
	Kind  Kind
	Stats stats.NumericStatistics
	// Categorical only
	Empty     int
	Unique    int
	TopValues []CategoryCount
}

// CategoryCount is one categorical value and how often it occurs.
type CategoryCount struct {
	Value string
	Count int
}

// Describe summarizes every column of t and keeps up to sampleRows rows.
func Describe(t *Table, sampleRows int) *Summary {
	s := &Summary{Name: t.Name(), Rows: t.Len(), SourceRows: t.SourceRows()}
	for _, h := range t.AllHeaders() {
		cs := ColumnSummary{Name: h}
		if v, ok := t.Numeric(h); ok {
			cs.Kind = Numeric
			cs.Stats.Add(v)
		} else if v, ok := t.Categorical(h); ok {
			cs.Kind = Categorical
			counts := map[string]int{}
			for _, x := range v {
				if x == "" {
					cs.Empty++
					continue
				}
				counts[x]++
			}
			cs.Unique = len(counts)
			cs.TopValues = topValues(counts, topValueLimit)
		}
		s.Cols = append(s.Cols, cs)
	}
	all := t.AllHeaders()
	for i := 0; i < t.Len() && i < sampleRows; i++ {
		row := make([]string, len(all))
		for j, h := range all {
			row[j] = t.Get(h, i)
		}
		s.Samples = append(s.Samples, row)
	}
	if s.SourceRows > s.Rows {
		s.Warnings = append(s.Warnings, fmt.Sprintf("loaded only %d/%d rows due to MaxRows", s.Rows, s.SourceRows))
	}
	return s
}

func topValues(counts map[string]int, limit int) []CategoryCount {
	tops := make([]CategoryCount, 0, len(counts))
	for k, v := range counts {
		tops = append(tops, CategoryCount{Value: k, Count: v})
	}
	sort.Slice(tops, func(i, j int) bool {
		if tops[i].Count == tops[j].Count {
			return tops[i].Value < tops[j].Value
		}
		return tops[i].Count > tops[j].Count
	})
	if len(tops) > limit {
		tops = tops[:limit]
	}
	return tops
}

// Markdown renders the summary in sections.
func (s *Summary) Markdown() string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	if s.Name != "" {
		fmt.Fprintf(&b, "File: %s\n", s.Name)
	}
	if s.SourceRows > s.Rows {
		fmt.Fprintf(&b, "Rows: ~%d (loaded %d)\n", s.SourceRows, s.Rows)
	} else {
		fmt.Fprintf(&b, "Rows: %d\n", s.Rows)
	}
	fmt.Fprintf(&b, "Columns: %d\n\n", len(s.Cols))

	b.WriteString("[SCHEMA]\n")
	for _, c := range s.Cols {
		fmt.Fprintf(&b, "- %s: %s", safeName(c.Name), c.Kind)
		switch c.Kind {
		case Numeric:
			m := c.Stats.MeasureValues()
			fmt.Fprintf(&b, " (min %s, max %s, mean %s, std %s)", orNA(m[1]), orNA(m[2]), orNA(m[3]), orNA(m[5]))
		case Categorical:
			fmt.Fprintf(&b, " (unique %d", c.Unique)
			if c.Empty > 0 {
				fmt.Fprintf(&b, ", empty %d", c.Empty)
			}
			b.WriteString(")")
			if len(c.TopValues) > 0 {
				b.WriteString(" top: ")
				for i, kv := range c.TopValues {
					if i > 0 {
						b.WriteString(", ")
					}
					fmt.Fprintf(&b, "%s(%d)", safeVal(kv.Value), kv.Count)
				}
			}
		}
		b.WriteString("\n")
	}

	if numeric := s.numericCols(); len(numeric) > 0 {
		b.WriteString("\n[MEASURES]\n")
		b.WriteString("| measure")
		for _, c := range numeric {
			b.WriteString(" | ")
			b.WriteString(safeVal(c.Name))
		}
		b.WriteString(" |\n|---")
		for range numeric {
			b.WriteString("|---")
		}
		b.WriteString("|\n")
		for i, name := range stats.MeasureNames() {
			b.WriteString("| ")
			b.WriteString(name)
			for _, c := range numeric {
				b.WriteString(" | ")
				b.WriteString(c.Stats.MeasureValues()[i])
			}
			b.WriteString(" |\n")
		}
	}

	if len(s.Samples) > 0 {
		b.WriteString("\n[HEAD]\n| ")
		for i, c := range s.Cols {
			if i > 0 {
				b.WriteString(" | ")
			}
			b.WriteString(safeName(c.Name))
		}
		b.WriteString(" |\n|")
		for range s.Cols {
			b.WriteString("---|")
		}
		b.WriteString("\n")
		for _, row := range s.Samples {
			b.WriteString("| ")
			for i, val := range row {
				if i > 0 {
					b.WriteString(" | ")
				}
				if len(val) > 80 {
					val = val[:77] + "..."
				}
				b.WriteString(safeVal(val))
			}
			b.WriteString(" |\n")
		}
	}
	if len(s.Warnings) > 0 {
		b.WriteString("\n[NOTES]\n")
		for _, w := range s.Warnings {
			fmt.Fprintf(&b, "- %s\n", w)
		}
	}
	return b.String()
}

func (s *Summary) numericCols() []ColumnSummary {
	var out []ColumnSummary
	for _, c := range s.Cols {
		if c.Kind == Numeric {
			out = append(out, c)
		}
	}
	return out
}

func orNA(s string) string {
	if s == "" {
		return "n/a"
	}
	return s
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return s
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }
