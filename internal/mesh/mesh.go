// Package mesh accumulates weighted points into a 2-D density grid with a
// baseline and a highlighted channel, post-processes and colorizes it, and
// keeps a per-cell row index for pixel to row hit-testing.
package mesh

import (
	"image"
	"math"
)

// Mesh is a width×height grid over the bounds [xmin,xmax]×[ymin,ymax].
// Cell (ix, iy) lives at ix + iy*width; iy grows downwards on screen.
type Mesh struct {
	width, height          int
	xmin, xmax, ymin, ymax float64
	kernel                 Kernel

	baseline  []float64
	highlight []float64
	// index holds the 1-based row that last touched a cell; 0 means none.
	index []uint32

	processed          []float64
	processedHighlight []float64
	rgba               []byte
}

// New returns an empty mesh over the unit square.
func New() *Mesh {
	return &Mesh{xmax: 1, ymax: 1, kernel: DefaultKernel()}
}

// Configure sets the grid size and bounds together and clears every channel.
func (m *Mesh) Configure(width, height int, xmin, ymin, xmax, ymax float64) {
	m.Resize(width, height)
	m.xmin, m.ymin, m.xmax, m.ymax = xmin, ymin, xmax, ymax
}

// Resize reallocates all channels to width×height and clears them.
// Negative sizes are treated as zero.
func (m *Mesh) Resize(width, height int) {
	width, height = max(width, 0), max(height, 0)
	n := width * height
	m.width, m.height = width, height
	m.baseline = resizeFloats(m.baseline, n)
	m.highlight = resizeFloats(m.highlight, n)
	m.processed = resizeFloats(m.processed, n)
	m.processedHighlight = resizeFloats(m.processedHighlight, n)
	if cap(m.index) >= n {
		m.index = m.index[:n]
		clear(m.index)
	} else {
		m.index = make([]uint32, n)
	}
	if cap(m.rgba) >= 4*n {
		m.rgba = m.rgba[:4*n]
		clear(m.rgba)
	} else {
		m.rgba = make([]byte, 4*n)
	}
}

func resizeFloats(s []float64, n int) []float64 {
	if cap(s) >= n {
		s = s[:n]
		clear(s)
		return s
	}
	return make([]float64, n)
}

// Clear zeroes the accumulation and index channels, keeping size and bounds.
func (m *Mesh) Clear() {
	clear(m.baseline)
	clear(m.highlight)
	clear(m.index)
}

// SetKernel replaces the splatting footprints.
func (m *Mesh) SetKernel(k Kernel) { m.kernel = k }

// Width is the number of columns.
func (m *Mesh) Width() int { return m.width }

// Height is the number of rows.
func (m *Mesh) Height() int { return m.height }

// Bounds returns xmin, ymin, xmax, ymax.
func (m *Mesh) Bounds() (xmin, ymin, xmax, ymax float64) {
	return m.xmin, m.ymin, m.xmax, m.ymax
}

// cellCoords maps (x, y) to continuous cell coordinates. ok is false outside
// the bounds or when a span is degenerate. The upper edge maps into the last
// cell.
func (m *Mesh) cellCoords(x, y float64) (cx, cy float64, ix, iy int, ok bool) {
	dx, dy := m.xmax-m.xmin, m.ymax-m.ymin
	if m.width == 0 || m.height == 0 || !(dx > 0) || !(dy > 0) {
		return 0, 0, 0, 0, false
	}
	fx, fy := (x-m.xmin)/dx, (y-m.ymin)/dy
	if !(fx >= 0 && fx <= 1 && fy >= 0 && fy <= 1) {
		return 0, 0, 0, 0, false
	}
	cx, cy = fx*float64(m.width), fy*float64(m.height)
	ix, iy = min(int(cx), m.width-1), min(int(cy), m.height-1)
	return cx, cy, ix, iy, true
}

func (m *Mesh) channel(highlighted bool) []float64 {
	if highlighted {
		return m.highlight
	}
	return m.baseline
}

// Point deposits weight wholly into the cell containing (x, y). row is the
// 0-based source row recorded for hit-testing.
func (m *Mesh) Point(x, y, weight float64, row int, highlighted bool) {
	_, _, ix, iy, ok := m.cellCoords(x, y)
	if !ok {
		return
	}
	i := ix + iy*m.width
	m.channel(highlighted)[i] += weight
	m.index[i] = uint32(row + 1)
}

// PointAntialiased spreads weight over a (2r+1)² neighbourhood with weights
// exp(-d²), d measured from the point to each cell center. Points whose
// footprint leaves the grid are dropped.
func (m *Mesh) PointAntialiased(x, y, weight float64, row int, highlighted bool) {
	r := m.kernel.antialiasRadius()
	m.splat(x, y, weight, row, highlighted, r, 1)
}

// PointGaussian spreads weight over a (2r+1)² neighbourhood with Gaussian
// weights exp(-d²/(2σ)), r from Kernel.GaussianRadius. A non-positive sigma
// degrades to Point.
func (m *Mesh) PointGaussian(x, y, weight, sigma float64, row int, highlighted bool) {
	if !(sigma > 0) {
		m.Point(x, y, weight, row, highlighted)
		return
	}
	m.splat(x, y, weight, row, highlighted, m.kernel.GaussianRadius(sigma), 2*sigma)
}

// splat deposits a separable kernel exp(-dx²/twoSigma)·exp(-dy²/twoSigma)
// normalized to sum to weight.
func (m *Mesh) splat(x, y, weight float64, row int, highlighted bool, r int, twoSigma float64) {
	cx, cy, ix, iy, ok := m.cellCoords(x, y)
	if !ok || ix-r < 0 || iy-r < 0 || ix+r >= m.width || iy+r >= m.height {
		return
	}
	n := 2*r + 1
	wx := make([]float64, n)
	wy := make([]float64, n)
	var sx, sy float64
	for k := 0; k < n; k++ {
		dx := cx - (float64(ix-r+k) + 0.5)
		dy := cy - (float64(iy-r+k) + 0.5)
		wx[k] = math.Exp(-dx * dx / twoSigma)
		wy[k] = math.Exp(-dy * dy / twoSigma)
		sx += wx[k]
		sy += wy[k]
	}
	scale := weight / (sx * sy)
	ch := m.channel(highlighted)
	idx := uint32(row + 1)
	for j := 0; j < n; j++ {
		base := (iy-r+j)*m.width + ix - r
		for k := 0; k < n; k++ {
			ch[base+k] += wx[k] * wy[j] * scale
			m.index[base+k] = idx
		}
	}
}

// Index returns the row recorded at cell (px, py), or false when the cell
// was never touched or lies outside the grid.
func (m *Mesh) Index(px, py int) (int, bool) {
	if px < 0 || py < 0 || px >= m.width || py >= m.height {
		return 0, false
	}
	v := m.index[px+py*m.width]
	if v == 0 {
		return 0, false
	}
	return int(v) - 1, true
}

// IndexWide probes (px,py), (px+1,py), (px,py+1), (px+1,py+1) in that order
// and returns the first hit.
func (m *Mesh) IndexWide(px, py int) (int, bool) {
	for _, d := range [4][2]int{{0, 0}, {1, 0}, {0, 1}, {1, 1}} {
		if row, ok := m.Index(px+d[0], py+d[1]); ok {
			return row, true
		}
	}
	return 0, false
}

// CellAt returns the cell containing (x, y) in mesh coordinates.
func (m *Mesh) CellAt(x, y float64) (px, py int, ok bool) {
	_, _, px, py, ok = m.cellCoords(x, y)
	return px, py, ok
}

// Density returns the accumulated baseline and highlighted density at a cell.
func (m *Mesh) Density(px, py int) (baseline, highlight float64) {
	if px < 0 || py < 0 || px >= m.width || py >= m.height {
		return 0, 0
	}
	i := px + py*m.width
	return m.baseline[i], m.highlight[i]
}

// Mass sums each accumulation channel.
func (m *Mesh) Mass() (baseline, highlight float64) {
	for i := range m.baseline {
		baseline += m.baseline[i]
		highlight += m.highlight[i]
	}
	return baseline, highlight
}

// TouchedCells counts cells with a recorded row.
func (m *Mesh) TouchedCells() int {
	n := 0
	for _, v := range m.index {
		if v != 0 {
			n++
		}
	}
	return n
}

// Pixels is the published RGBA8 buffer, row-major, 4·width·height bytes. It
// is owned by the mesh and rewritten by Colorize.
func (m *Mesh) Pixels() []byte { return m.rgba }

// Image copies the published buffer into an image.RGBA.
func (m *Mesh) Image() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, m.width, m.height))
	copy(img.Pix, m.rgba)
	return img
}
