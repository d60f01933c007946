package pipeline

import (
	"image"

	"github.com/RoaringBitmap/roaring"

	"github.com/KaramelBytes/pcview/internal/stats"
)

// Statistics group labels.
const (
	GroupAll            = "All"
	GroupHighlighted    = "Highlighted"
	GroupNonHighlighted = "Non-Highlighted"
	SelectedLabel       = "Selected"
)

// Statistics builds the textual statistics table over the displayed
// columns. The first row is the header ("", "", columns...). When cursor
// hits a row, a "Selected" row with that row's values follows. Then come
// blocks of one row per measure, labelled by group and measure name: all
// rows, and when anything is highlighted, the highlighted and the
// non-highlighted rows. Categorical columns get blank cells.
func (p *Pipeline) Statistics(cursor *image.Point) [][]string {
	if p.table == nil {
		return nil
	}
	headers := p.table.Headers()
	out := [][]string{append([]string{"", ""}, headers...)}

	if cursor != nil {
		if row, ok := p.HitTest(cursor.X, cursor.Y); ok {
			sel := []string{SelectedLabel, ""}
			for _, h := range headers {
				sel = append(sel, p.table.Get(h, row))
			}
			out = append(out, sel)
		}
	}

	out = append(out, p.statisticsBlock(GroupAll, nil)...)
	if !p.selection.IsEmpty() {
		out = append(out, p.statisticsBlock(GroupHighlighted, p.selection)...)
		rest := roaring.New()
		rest.AddRange(0, uint64(p.table.Len()))
		rest.AndNot(p.selection)
		out = append(out, p.statisticsBlock(GroupNonHighlighted, rest)...)
	}
	return out
}

// statisticsBlock computes one row per measure for group over the
// displayed columns. A nil selection means every row.
func (p *Pipeline) statisticsBlock(group string, selection *roaring.Bitmap) [][]string {
	names := stats.MeasureNames()
	rows := make([][]string, len(names))
	for i, name := range names {
		rows[i] = []string{group, name}
	}
	weights := p.weights()
	for _, h := range p.table.Headers() {
		values, ok := p.table.Numeric(h)
		if !ok {
			for i := range rows {
				rows[i] = append(rows[i], "")
			}
			continue
		}
		var s stats.NumericStatistics
		if selection == nil {
			s.AddWeighted(values, weights)
		} else {
			s.AddWeightedSelection(values, weights, selection)
		}
		for i, v := range s.MeasureValues() {
			rows[i] = append(rows[i], v)
		}
	}
	return rows
}

// ColumnStatistics accumulates one numeric column over selection, or over
// every row when selection is nil.
func (p *Pipeline) ColumnStatistics(column string, selection *roaring.Bitmap) (stats.NumericStatistics, bool) {
	var s stats.NumericStatistics
	if p.table == nil {
		return s, false
	}
	values, ok := p.table.Numeric(column)
	if !ok {
		return s, false
	}
	if selection == nil {
		s.AddWeighted(values, p.weights())
	} else {
		s.AddWeightedSelection(values, p.weights(), selection)
	}
	return s, true
}
