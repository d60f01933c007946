package mesh

import (
	"math"
	"math/rand"
	"testing"
)

func unitMesh(w, h int) *Mesh {
	m := New()
	m.Configure(w, h, 0, 0, 1, 1)
	return m
}

func TestPlainDepositConservesWeight(t *testing.T) {
	m := unitMesh(16, 12)
	rng := rand.New(rand.NewSource(7))
	var total float64
	for i := 0; i < 500; i++ {
		w := rng.Float64() * 3
		total += w
		m.Point(rng.Float64(), rng.Float64(), w, i, i%3 == 0)
	}
	b, h := m.Mass()
	if math.Abs(b+h-total) > 1e-9 {
		t.Fatalf("mass = %v, want %v", b+h, total)
	}
	if h == 0 || b == 0 {
		t.Fatalf("both channels should receive points: baseline %v highlight %v", b, h)
	}
}

func TestCellMapping(t *testing.T) {
	m := unitMesh(4, 2)
	cases := []struct {
		x, y   float64
		px, py int
		ok     bool
	}{
		{0, 0, 0, 0, true},
		{0.26, 0.4, 1, 0, true},
		{1, 1, 3, 1, true},
		{0.999, 0.5, 3, 1, true},
		{-0.01, 0.5, 0, 0, false},
		{0.5, 1.01, 0, 0, false},
		{math.NaN(), 0.5, 0, 0, false},
	}
	for _, c := range cases {
		px, py, ok := m.CellAt(c.x, c.y)
		if ok != c.ok || (ok && (px != c.px || py != c.py)) {
			t.Fatalf("CellAt(%v,%v) = %d,%d,%v; want %d,%d,%v", c.x, c.y, px, py, ok, c.px, c.py, c.ok)
		}
	}

	degenerate := New()
	degenerate.Configure(4, 4, 0.5, 0, 0.5, 1)
	degenerate.Point(0.5, 0.5, 1, 0, false)
	if b, _ := degenerate.Mass(); b != 0 {
		t.Fatalf("degenerate span should drop points, mass %v", b)
	}
}

func TestAntialiasedKernel(t *testing.T) {
	m := unitMesh(10, 10)
	m.PointAntialiased(0.53, 0.47, 2.5, 4, false)
	b, _ := m.Mass()
	if math.Abs(b-2.5) > 1e-12 {
		t.Fatalf("mass = %v, want 2.5", b)
	}
	if got := m.TouchedCells(); got != 9 {
		t.Fatalf("touched %d cells, want 9", got)
	}
	center, _ := m.Density(5, 4)
	corner, _ := m.Density(4, 3)
	if !(center > corner) {
		t.Fatalf("center %v should outweigh corner %v", center, corner)
	}
	for _, p := range [][2]int{{4, 3}, {6, 5}, {5, 4}} {
		if row, ok := m.Index(p[0], p[1]); !ok || row != 4 {
			t.Fatalf("Index(%v) = %d,%v; want 4", p, row, ok)
		}
	}
}

func TestGaussianKernelFootprint(t *testing.T) {
	cases := []struct {
		sigma float64
		cells int
	}{
		{0.3, 25},
		{1, 25},
		{1.5, 49},
		{2, 81},
	}
	for _, c := range cases {
		m := unitMesh(20, 20)
		m.PointGaussian(0.5, 0.5, 1, c.sigma, 0, true)
		if got := m.TouchedCells(); got != c.cells {
			t.Fatalf("sigma %v touched %d cells, want %d", c.sigma, got, c.cells)
		}
		_, h := m.Mass()
		if math.Abs(h-1) > 1e-12 {
			t.Fatalf("sigma %v mass = %v, want 1", c.sigma, h)
		}
	}

	k := Kernel{AntialiasRadius: 2, GaussianMinRadius: 3, GaussianRadiusFactor: 1}
	if got := k.GaussianRadius(1); got != 3 {
		t.Fatalf("GaussianRadius = %d, want 3", got)
	}
	m := unitMesh(20, 20)
	m.SetKernel(k)
	m.PointAntialiased(0.5, 0.5, 1, 0, false)
	if got := m.TouchedCells(); got != 25 {
		t.Fatalf("radius 2 antialias touched %d cells, want 25", got)
	}
}

func TestKernelFootprintOutsideGridIsDropped(t *testing.T) {
	m := unitMesh(10, 10)
	m.PointAntialiased(0.05, 0.5, 1, 0, false)
	m.PointGaussian(0.5, 0.15, 1, 1, 1, false)
	m.PointGaussian(0.5, 0.5, 1, 0, 2, false)
	b, _ := m.Mass()
	if b != 1 {
		t.Fatalf("mass = %v, want only the zero-sigma point", b)
	}
	if _, ok := m.Index(0, 5); ok {
		t.Fatalf("dropped point must not mark cells")
	}
}

func TestIndexWideProbeOrder(t *testing.T) {
	m := unitMesh(4, 4)
	// cells (2,1), (1,2), (2,2) hold rows 10, 20, 30
	m.Point(0.6, 0.3, 1, 10, false)
	m.Point(0.3, 0.6, 1, 20, false)
	m.Point(0.6, 0.6, 1, 30, false)

	if _, ok := m.Index(1, 1); ok {
		t.Fatalf("cell (1,1) should be empty")
	}
	if row, ok := m.IndexWide(1, 1); !ok || row != 10 {
		t.Fatalf("IndexWide(1,1) = %d,%v; want right neighbour 10", row, ok)
	}
	if row, ok := m.IndexWide(0, 1); !ok || row != 20 {
		t.Fatalf("IndexWide(0,1) = %d,%v; want 20 via (1,2)", row, ok)
	}
	if row, ok := m.IndexWide(2, 2); !ok || row != 30 {
		t.Fatalf("IndexWide(2,2) = %d,%v; want own cell", row, ok)
	}
	if _, ok := m.IndexWide(3, 3); ok {
		t.Fatalf("IndexWide(3,3) should miss")
	}

	// last write wins
	m.Point(0.6, 0.6, 1, 99, false)
	if row, _ := m.Index(2, 2); row != 99 {
		t.Fatalf("Index after overwrite = %d, want 99", row)
	}
}

func TestEmptyMeshProcessing(t *testing.T) {
	m := unitMesh(3, 3)
	m.Process(1, 1, Highlight, true)
	m.Colorize(Highlight, BlueCyan)
	px := m.Pixels()
	if len(px) != 36 {
		t.Fatalf("pixels = %d bytes, want 36", len(px))
	}
	for i := 0; i < len(px); i += 4 {
		if px[i] != 0 || px[i+1] != 0 || px[i+2] != 0 || px[i+3] != 255 {
			t.Fatalf("pixel %d = %v, want opaque black", i/4, px[i:i+4])
		}
	}

	z := New()
	z.Resize(0, 0)
	z.Point(0.5, 0.5, 1, 0, false)
	z.Process(1, 1, NoHighlight, true)
	z.Colorize(NoHighlight, Gray)
	if len(z.Pixels()) != 0 || z.Image().Bounds().Dx() != 0 {
		t.Fatalf("0×0 mesh should have empty buffers")
	}
	if _, ok := z.IndexWide(0, 0); ok {
		t.Fatalf("0×0 mesh cannot hit")
	}
}

func TestClampMultiplierAndContrast(t *testing.T) {
	m := unitMesh(2, 1)
	m.Point(0.1, 0.5, 1, 0, false)
	m.Point(0.9, 0.5, 4, 1, false)

	m.Process(1, 1, NonHighlightedOnly, false)
	if a, _ := m.Processed(0, 0); a != 0.25 {
		t.Fatalf("normalized = %v, want 0.25", a)
	}
	m.Process(1, 2, NonHighlightedOnly, false)
	if a, _ := m.Processed(0, 0); a != 0.0625 {
		t.Fatalf("contrast 2 = %v, want 0.0625", a)
	}
	m.Process(2, 1, NonHighlightedOnly, false)
	a, _ := m.Processed(0, 0)
	b, _ := m.Processed(1, 0)
	if a != 0.5 || b != 1 {
		t.Fatalf("multiplier 2 = %v,%v; want 0.5,1 (clamped)", a, b)
	}
	m.Process(1, 0, NonHighlightedOnly, false)
	if a, _ := m.Processed(0, 0); a != 0.25 {
		t.Fatalf("zero contrast should act as 1, got %v", a)
	}
}

func TestSmoothSpreadsDensity(t *testing.T) {
	m := unitMesh(5, 5)
	m.Point(0.5, 0.5, 1, 0, false)
	m.Process(1, 1, NonHighlightedOnly, true)
	center, _ := m.Processed(2, 2)
	edge, _ := m.Processed(2, 1)
	corner, _ := m.Processed(1, 1)
	far, _ := m.Processed(0, 0)
	if center != 1 || edge != 0.5 || corner != 0.25 || far != 0 {
		t.Fatalf("smear = %v %v %v %v; want 1 0.5 0.25 0", center, edge, corner, far)
	}
}

func pixel(m *Mesh, px, py int) []byte {
	i := 4 * (px + py*m.Width())
	return m.Pixels()[i : i+4]
}

func TestHighlightModes(t *testing.T) {
	build := func() *Mesh {
		m := unitMesh(2, 1)
		m.Point(0.25, 0.5, 1, 0, false)
		m.Point(0.75, 0.5, 1, 1, true)
		return m
	}
	cases := []struct {
		mode        Mode
		left, right [4]byte
	}{
		{Highlight, [4]byte{0, 255, 255, 255}, [4]byte{255, 0, 0, 255}},
		{NoHighlight, [4]byte{0, 255, 255, 255}, [4]byte{0, 255, 255, 255}},
		{HighlightedOnly, [4]byte{0, 0, 0, 255}, [4]byte{255, 0, 0, 255}},
		{NonHighlightedOnly, [4]byte{0, 255, 255, 255}, [4]byte{0, 0, 0, 255}},
	}
	for _, c := range cases {
		t.Run(c.mode.String(), func(t *testing.T) {
			m := build()
			// a previous mode must not leak into this one
			m.Process(1, 1, Highlight, false)
			m.Colorize(Highlight, BlueCyan)
			m.Process(1, 1, c.mode, false)
			m.Colorize(c.mode, BlueCyan)
			if got := [4]byte(pixel(m, 0, 0)); got != c.left {
				t.Fatalf("left = %v, want %v", got, c.left)
			}
			if got := [4]byte(pixel(m, 1, 0)); got != c.right {
				t.Fatalf("right = %v, want %v", got, c.right)
			}
		})
	}
}

func TestPalettes(t *testing.T) {
	m := unitMesh(2, 1)
	m.Point(0.25, 0.5, 1, 0, false)
	m.Point(0.75, 0.5, 4, 1, false)
	m.Process(1, 1, NonHighlightedOnly, false)

	m.Colorize(NonHighlightedOnly, BlueCyan)
	if got := [4]byte(pixel(m, 0, 0)); got != [4]byte{0, 0, 127, 255} {
		t.Fatalf("blue-cyan 0.25 = %v", got)
	}
	m.Colorize(NonHighlightedOnly, Gray)
	if got := [4]byte(pixel(m, 0, 0)); got != [4]byte{63, 63, 63, 255} {
		t.Fatalf("gray 0.25 = %v", got)
	}
	img := m.Image()
	if c := img.RGBAAt(1, 0); c.R != 255 || c.A != 255 {
		t.Fatalf("image pixel = %v", c)
	}
}

func TestParseModeAndPalette(t *testing.T) {
	for _, mode := range []Mode{Highlight, NoHighlight, HighlightedOnly, NonHighlightedOnly} {
		got, err := ParseMode(mode.String())
		if err != nil || got != mode {
			t.Fatalf("ParseMode(%q) = %v, %v", mode.String(), got, err)
		}
	}
	if m, _ := ParseMode("no_highlight"); m != NoHighlight {
		t.Fatalf("underscore alias failed")
	}
	if _, err := ParseMode("sparkle"); err == nil {
		t.Fatalf("expected error")
	}
	if p, err := ParsePalette("grey"); err != nil || p != Gray {
		t.Fatalf("ParsePalette(grey) = %v, %v", p, err)
	}
	if _, err := ParsePalette("viridis"); err == nil {
		t.Fatalf("expected error")
	}
}
