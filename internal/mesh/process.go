package mesh

import "math"

// Process fills the processed channels from the accumulated ones according
// to mode. Each channel is scaled by multiplier/max, raised to contrast and
// clamped to [0,1]. An all-zero channel uses 1 as its maximum; a
// non-positive contrast means 1. smooth applies a 3×3 binomial blur first.
func (m *Mesh) Process(multiplier, contrast float64, mode Mode, smooth bool) {
	clear(m.processed)
	clear(m.processedHighlight)
	switch mode {
	case NoHighlight:
		m.copyInto(m.processed, smooth, m.baseline, m.highlight)
		clampChannel(m.processed, multiplier, contrast)
	case HighlightedOnly:
		m.copyInto(m.processedHighlight, smooth, m.highlight)
		clampChannel(m.processedHighlight, multiplier, contrast)
	case NonHighlightedOnly:
		m.copyInto(m.processed, smooth, m.baseline)
		clampChannel(m.processed, multiplier, contrast)
	default:
		m.copyInto(m.processed, smooth, m.baseline)
		clampChannel(m.processed, multiplier, contrast)
		m.copyInto(m.processedHighlight, smooth, m.highlight)
		clampChannel(m.processedHighlight, multiplier, contrast)
	}
}

// copyInto writes the cell-wise sum of sources into dst, optionally smeared.
func (m *Mesh) copyInto(dst []float64, smooth bool, sources ...[]float64) {
	for _, src := range sources {
		for i, v := range src {
			dst[i] += v
		}
	}
	if smooth {
		m.smear(dst)
	}
}

var binomial = [3]float64{1, 2, 1}

// smear replaces ch with its 3×3 binomial blur. Border cells renormalize
// over the neighbours that exist.
func (m *Mesh) smear(ch []float64) {
	w, h := m.width, m.height
	if w == 0 || h == 0 {
		return
	}
	src := append([]float64(nil), ch...)
	for iy := 0; iy < h; iy++ {
		for ix := 0; ix < w; ix++ {
			var sum, norm float64
			for j := -1; j <= 1; j++ {
				y := iy + j
				if y < 0 || y >= h {
					continue
				}
				for k := -1; k <= 1; k++ {
					x := ix + k
					if x < 0 || x >= w {
						continue
					}
					c := binomial[j+1] * binomial[k+1]
					sum += c * src[x+y*w]
					norm += c
				}
			}
			ch[ix+iy*w] = sum / norm
		}
	}
}

func clampChannel(ch []float64, multiplier, contrast float64) {
	maximum := 0.0
	for _, v := range ch {
		maximum = math.Max(maximum, v)
	}
	if !(maximum > 0) {
		maximum = 1
	}
	if !(contrast > 0) {
		contrast = 1
	}
	for i, v := range ch {
		x := multiplier * v / maximum
		if x > 0 && contrast != 1 {
			x = math.Pow(x, contrast)
		}
		ch[i] = math.Min(math.Max(x, 0), 1)
	}
}

// Colorize writes the processed channels into the RGBA buffer. The baseline
// goes through palette; in Highlight and HighlightedOnly modes the
// highlighted channel then overwrites red. Alpha is always 255.
func (m *Mesh) Colorize(mode Mode, palette Palette) {
	if mode == HighlightedOnly {
		for i := range m.processed {
			m.rgba[4*i], m.rgba[4*i+1], m.rgba[4*i+2], m.rgba[4*i+3] = 0, 0, 0, 255
		}
	} else {
		for i, v := range m.processed {
			r, g, b := palette.color(v)
			m.rgba[4*i], m.rgba[4*i+1], m.rgba[4*i+2], m.rgba[4*i+3] = r, g, b, 255
		}
	}
	if mode == Highlight || mode == HighlightedOnly {
		for i, v := range m.processedHighlight {
			m.rgba[4*i] = toByte(v)
		}
	}
}

func (p Palette) color(v float64) (r, g, b uint8) {
	if p == Gray {
		c := toByte(v)
		return c, c, c
	}
	return 0, toByte(2 * (v - 0.5)), toByte(2 * v)
}

// toByte maps [0,1] onto 0..255, truncating and saturating.
func toByte(v float64) uint8 {
	switch {
	case !(v > 0):
		return 0
	case v >= 1:
		return 255
	}
	return uint8(255 * v)
}

// Processed returns the processed baseline and highlighted values at a cell.
func (m *Mesh) Processed(px, py int) (baseline, highlight float64) {
	if px < 0 || py < 0 || px >= m.width || py >= m.height {
		return 0, 0
	}
	i := px + py*m.width
	return m.processed[i], m.processedHighlight[i]
}
