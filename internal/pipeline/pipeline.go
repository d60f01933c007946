// Package pipeline turns a table into a density image through a staged,
// incrementally recomputed sequence: row view, mesh accumulation,
// post-processing and colorization. Setters move the pipeline back to the
// earliest stage they invalidate; Run brings it forward again.
package pipeline

import (
	"fmt"
	"image"
	"time"

	"github.com/RoaringBitmap/roaring"

	"github.com/KaramelBytes/pcview/internal/highlight"
	"github.com/KaramelBytes/pcview/internal/logging"
	"github.com/KaramelBytes/pcview/internal/mesh"
	"github.com/KaramelBytes/pcview/internal/table"
	"github.com/KaramelBytes/pcview/internal/transform"
)

// Stage is a point in the recomputation ladder.
type Stage int

const (
	RawInput Stage = iota
	RowView
	Mesh
	ProcessedMesh
	Presented
)

var stageNames = [...]string{"raw-input", "row-view", "mesh", "processed-mesh", "presented"}

func (s Stage) String() string {
	if s >= RawInput && s <= Presented {
		return stageNames[s]
	}
	return fmt.Sprintf("Stage(%d)", int(s))
}

// Down returns the earlier of s and target.
func (s Stage) Down(target Stage) Stage { return min(s, target) }

// Point is one row of the row view: canonical coordinates with y flipped so
// that screen-down increases, the effective weight and the 1-based row index.
type Point struct {
	X, Y        float64
	Weight      float64
	Index       int
	Highlighted bool
}

// Pipeline owns a table, the render parameters and the mesh built from them.
// It is not safe for concurrent use.
type Pipeline struct {
	stage Stage

	table     *table.Table
	filters   highlight.Combined
	filtered  bool // selection derives from filters
	selection *roaring.Bitmap

	xColumn, yColumn, weightColumn string
	xType, yType                   transform.Type
	buckets                        int
	tx, ty                         *transform.Transform

	zoom, aspect, ox, oy float64

	params mesh.Parameters
	mesh   *mesh.Mesh
	points []Point
}

// New returns an empty pipeline with default parameters.
func New() *Pipeline {
	p := &Pipeline{
		selection: roaring.New(),
		buckets:   transform.DefaultQuantileBuckets,
		params:    mesh.DefaultParameters(),
		mesh:      mesh.New(),
	}
	p.ZoomAll()
	p.stage = RawInput
	return p
}

func (p *Pipeline) demote(target Stage) { p.stage = p.stage.Down(target) }

// Stage reports how far the pipeline has progressed.
func (p *Pipeline) Stage() Stage { return p.stage }

// SetTable replaces the data. A highlight filter set earlier is evaluated
// again against t. When the x or y column is unset or missing from t, the
// first two numeric columns are chosen.
func (p *Pipeline) SetTable(t *table.Table) {
	p.table = t
	p.stage = RawInput
	if p.filtered {
		p.applyFilters()
	}
	if t == nil {
		return
	}
	numeric := t.NumericColumns()
	if len(numeric) >= 2 && (!t.Has(p.xColumn) || !t.Has(p.yColumn)) {
		p.xColumn, p.yColumn = numeric[0], numeric[1]
		p.ZoomAll()
	}
}

// Table returns the current data, possibly nil.
func (p *Pipeline) Table() *table.Table { return p.table }

// SetHighlights replaces the highlighted row set. It detaches any filter
// set by SetHighlightFilter.
func (p *Pipeline) SetHighlights(sel *roaring.Bitmap) {
	p.filtered = false
	p.setSelection(sel)
}

func (p *Pipeline) setSelection(sel *roaring.Bitmap) {
	if sel == nil {
		sel = roaring.New()
	}
	if p.selection.Equals(sel) {
		return
	}
	p.selection = sel.Clone()
	p.stage = RawInput
}

// SetHighlightFilter evaluates c against the current table and highlights
// the result. Tombstoned filters are pruned first. The filter is evaluated
// again whenever the table is replaced.
func (p *Pipeline) SetHighlightFilter(c highlight.Combined) {
	c.Prune()
	p.filters = c
	p.filtered = true
	p.applyFilters()
}

func (p *Pipeline) applyFilters() {
	if p.table == nil {
		p.setSelection(nil)
		return
	}
	p.setSelection(p.filters.Evaluate(p.table))
}

// HighlightFilter returns the filter last passed to SetHighlightFilter.
func (p *Pipeline) HighlightFilter() highlight.Combined { return p.filters }

// Highlights returns a copy of the highlighted row set.
func (p *Pipeline) Highlights() *roaring.Bitmap { return p.selection.Clone() }

func (p *Pipeline) XColumn() string      { return p.xColumn }
func (p *Pipeline) YColumn() string      { return p.yColumn }
func (p *Pipeline) WeightColumn() string { return p.weightColumn }

// SetXColumn selects the horizontal axis and resets the view.
func (p *Pipeline) SetXColumn(column string) {
	if p.xColumn != column {
		p.xColumn = column
		p.ZoomAll()
		p.stage = RawInput
	}
}

// SetYColumn selects the vertical axis and resets the view.
func (p *Pipeline) SetYColumn(column string) {
	if p.yColumn != column {
		p.yColumn = column
		p.ZoomAll()
		p.stage = RawInput
	}
}

// SetWeightColumn selects per-row weights. An empty or non-numeric column
// means unit weights.
func (p *Pipeline) SetWeightColumn(column string) {
	if p.weightColumn != column {
		p.weightColumn = column
		p.stage = RawInput
	}
}

func (p *Pipeline) XTransform() transform.Type { return p.xType }
func (p *Pipeline) YTransform() transform.Type { return p.yType }

func (p *Pipeline) SetXTransform(t transform.Type) {
	if p.xType != t {
		p.xType = t
		p.stage = RawInput
	}
}

func (p *Pipeline) SetYTransform(t transform.Type) {
	if p.yType != t {
		p.yType = t
		p.stage = RawInput
	}
}

// SetQuantileBuckets sets the control point budget of quantile transforms.
func (p *Pipeline) SetQuantileBuckets(n int) {
	if n <= 0 {
		n = transform.DefaultQuantileBuckets
	}
	if p.buckets != n {
		p.buckets = n
		p.stage = RawInput
	}
}

func (p *Pipeline) Zoom() float64   { return p.zoom }
func (p *Pipeline) Aspect() float64 { return p.aspect }

// Offset returns the view center in canonical coordinates.
func (p *Pipeline) Offset() (float64, float64) { return p.ox, p.oy }

func (p *Pipeline) SetZoom(zoom float64) {
	if p.zoom != zoom {
		p.zoom = zoom
		p.demote(RowView)
	}
}

func (p *Pipeline) SetAspect(aspect float64) {
	if p.aspect != aspect {
		p.aspect = aspect
		p.demote(RowView)
	}
}

func (p *Pipeline) SetOffsetX(o float64) {
	if p.ox != o {
		p.ox = o
		p.demote(RowView)
	}
}

func (p *Pipeline) SetOffsetY(o float64) {
	if p.oy != o {
		p.oy = o
		p.demote(RowView)
	}
}

// RelativeOffset pans by (dx, dy) expressed in view units.
func (p *Pipeline) RelativeOffset(dx, dy float64) {
	if p.aspect >= 1 {
		p.ox -= dx * p.aspect / p.zoom
		p.oy -= dy / p.zoom
	} else {
		p.ox -= dx / p.zoom
		p.oy -= dy / p.zoom / p.aspect
	}
	p.demote(RowView)
}

// ZoomAll shows the whole canonical unit square.
func (p *Pipeline) ZoomAll() {
	p.zoom, p.aspect = 1, 1
	p.ox, p.oy = 0.5, 0.5
	p.demote(RowView)
}

// ViewBox returns the mesh bounds xmin, ymin, xmax, ymax implied by zoom,
// aspect and offset.
func (p *Pipeline) ViewBox() (xmin, ymin, xmax, ymax float64) {
	var dx, dy float64
	if p.aspect >= 1 {
		dx, dy = p.aspect/p.zoom, 1/p.zoom
	} else {
		dx, dy = 1/p.zoom, 1/p.zoom/p.aspect
	}
	return p.ox - dx/2, p.oy - dy/2, p.ox + dx/2, p.oy + dy/2
}

// Parameters returns the current render parameters.
func (p *Pipeline) Parameters() mesh.Parameters { return p.params }

// SetParameters applies every field of params through its setter.
func (p *Pipeline) SetParameters(params mesh.Parameters) {
	p.SetMeshSize(params.Width, params.Height)
	p.SetKernel(params.Kernel)
	p.SetAntialiased(params.Antialiased)
	p.SetGaussianPoints(params.GaussianPoints)
	p.SetPointSigma(params.PointSigma)
	p.SetDensityMultiplier(params.DensityMultiplier)
	p.SetContrast(params.Contrast)
	p.SetHighlightMode(params.Mode)
	p.SetSmooth(params.Smooth)
	p.SetPalette(params.Palette)
}

func (p *Pipeline) SetMeshSize(width, height int) {
	if p.params.Width != width || p.params.Height != height {
		p.params.Width, p.params.Height = width, height
		p.demote(RowView)
	}
}

func (p *Pipeline) SetKernel(k mesh.Kernel) {
	if p.params.Kernel != k {
		p.params.Kernel = k
		p.demote(RowView)
	}
}

func (p *Pipeline) SetAntialiased(on bool) {
	if p.params.Antialiased != on {
		p.params.Antialiased = on
		p.demote(RowView)
	}
}

func (p *Pipeline) SetGaussianPoints(on bool) {
	if p.params.GaussianPoints != on {
		p.params.GaussianPoints = on
		p.demote(RowView)
	}
}

// SetPointSigma only invalidates the mesh while Gaussian points are on.
func (p *Pipeline) SetPointSigma(sigma float64) {
	if p.params.PointSigma != sigma && p.params.GaussianPoints {
		p.demote(RowView)
	}
	p.params.PointSigma = sigma
}

func (p *Pipeline) SetDensityMultiplier(v float64) {
	if p.params.DensityMultiplier != v {
		p.params.DensityMultiplier = v
		p.demote(Mesh)
	}
}

func (p *Pipeline) SetContrast(v float64) {
	if p.params.Contrast != v {
		p.params.Contrast = v
		p.demote(Mesh)
	}
}

func (p *Pipeline) SetHighlightMode(m mesh.Mode) {
	if p.params.Mode != m {
		p.params.Mode = m
		p.demote(Mesh)
	}
}

func (p *Pipeline) SetSmooth(on bool) {
	if p.params.Smooth != on {
		p.params.Smooth = on
		p.demote(Mesh)
	}
}

func (p *Pipeline) SetPalette(pal mesh.Palette) {
	if p.params.Palette != pal {
		p.params.Palette = pal
		p.demote(ProcessedMesh)
	}
}

// Step advances by exactly one stage and returns the new stage. At
// Presented it does nothing.
func (p *Pipeline) Step() Stage {
	start := time.Now()
	from := p.stage
	switch p.stage {
	case RawInput:
		p.buildRowView()
		p.stage = RowView
	case RowView:
		p.accumulate()
		p.stage = Mesh
	case Mesh:
		p.mesh.Process(p.params.DensityMultiplier, p.params.Contrast, p.params.Mode, p.params.Smooth)
		p.stage = ProcessedMesh
	case ProcessedMesh:
		p.mesh.Colorize(p.params.Mode, p.params.Palette)
		p.stage = Presented
	default:
		return p.stage
	}
	logging.Logger().Debug("pipeline step",
		"from", from.String(),
		"to", p.stage.String(),
		"elapsed", time.Since(start),
		"points", len(p.points),
		"cells", p.mesh.Width()*p.mesh.Height())
	return p.stage
}

// Run steps until the output is presented.
func (p *Pipeline) Run() {
	for p.stage < Presented {
		p.Step()
	}
}

// Points returns the current row view.
func (p *Pipeline) Points() []Point { return p.points }

// RowCount is the number of rows in the table.
func (p *Pipeline) RowCount() int {
	if p.table == nil {
		return 0
	}
	return p.table.Len()
}

func (p *Pipeline) buildRowView() {
	p.points = p.points[:0]
	n := p.RowCount()
	p.resyncHighlights(n)
	if n == 0 {
		return
	}
	xs, xok, err := p.table.ParseColumn(p.xColumn)
	if err != nil {
		logging.Logger().Warn("x column unavailable, no rows rendered", "column", p.xColumn, "err", err)
		return
	}
	ys, yok, err := p.table.ParseColumn(p.yColumn)
	if err != nil {
		logging.Logger().Warn("y column unavailable, no rows rendered", "column", p.yColumn, "err", err)
		return
	}
	p.tx = p.xType.New(p.buckets)
	p.ty = p.yType.New(p.buckets)
	p.tx.Calibrate(validSubset(xs, xok))
	p.ty.Calibrate(validSubset(ys, yok))

	weights := p.weights()
	for i := 0; i < n; i++ {
		if !xok[i] || !yok[i] {
			continue
		}
		x, ok := p.tx.Apply(xs[i])
		if !ok {
			continue
		}
		y, ok := p.ty.Apply(ys[i])
		if !ok {
			continue
		}
		p.points = append(p.points, Point{
			X:           x,
			Y:           1 - y,
			Weight:      weights[i],
			Index:       i + 1,
			Highlighted: p.selection.Contains(uint32(i)),
		})
	}
	if len(p.points) == 0 {
		logging.Logger().Warn("no rows map to canonical coordinates", "x", p.xColumn, "y", p.yColumn)
	}
}

// resyncHighlights drops selected rows beyond the table.
func (p *Pipeline) resyncHighlights(n int) {
	if p.selection.IsEmpty() || p.selection.Maximum() < uint32(n) {
		return
	}
	before := p.selection.GetCardinality()
	p.selection.RemoveRange(uint64(n), uint64(p.selection.Maximum())+1)
	logging.Logger().Warn("highlight selection resized to table",
		"rows", n, "dropped", before-p.selection.GetCardinality())
}

func validSubset(v []float64, ok []bool) []float64 {
	out := make([]float64, 0, len(v))
	for i, x := range v {
		if ok[i] {
			out = append(out, x)
		}
	}
	return out
}

// weights returns the weight column, or unit weights when it is unset or
// not numeric.
func (p *Pipeline) weights() []float64 {
	n := p.RowCount()
	if p.weightColumn != "" && p.table != nil {
		if w, ok := p.table.Numeric(p.weightColumn); ok {
			return w
		}
		logging.Logger().Warn("weight column is not numeric, using unit weights", "column", p.weightColumn)
	}
	w := make([]float64, n)
	for i := range w {
		w[i] = 1
	}
	return w
}

func (p *Pipeline) accumulate() {
	xmin, ymin, xmax, ymax := p.ViewBox()
	p.mesh.SetKernel(p.params.Kernel)
	p.mesh.Configure(p.params.Width, p.params.Height, xmin, ymin, xmax, ymax)
	for _, pt := range p.points {
		switch {
		case p.params.GaussianPoints:
			p.mesh.PointGaussian(pt.X, pt.Y, pt.Weight, p.params.PointSigma, pt.Index-1, pt.Highlighted)
		case p.params.Antialiased:
			p.mesh.PointAntialiased(pt.X, pt.Y, pt.Weight, pt.Index-1, pt.Highlighted)
		default:
			p.mesh.Point(pt.X, pt.Y, pt.Weight, pt.Index-1, pt.Highlighted)
		}
	}
}

// Transforms returns the calibrated x and y transforms of the last row view
// build; nil before the first one.
func (p *Pipeline) Transforms() (x, y *transform.Transform) { return p.tx, p.ty }

// DensityMesh exposes the mesh for read-only inspection.
func (p *Pipeline) DensityMesh() *mesh.Mesh { return p.mesh }

// Pixels is the published RGBA8 buffer.
func (p *Pipeline) Pixels() []byte { return p.mesh.Pixels() }

// Image copies the published buffer into an image.
func (p *Pipeline) Image() *image.RGBA { return p.mesh.Image() }

// HitTest resolves a pixel to a 0-based table row, probing the pixel and its
// right, lower and diagonal neighbours.
func (p *Pipeline) HitTest(px, py int) (int, bool) {
	if p.stage < Mesh {
		return 0, false
	}
	return p.mesh.IndexWide(px, py)
}
