package mesh

import (
	"fmt"
	"math"
	"strings"
)

// Kernel holds the tunable splatting footprints.
type Kernel struct {
	// AntialiasRadius is the half-width of the antialiased kernel; 1 gives 3×3.
	AntialiasRadius int `json:"antialias_radius" yaml:"antialias_radius"`
	// GaussianMinRadius is the smallest Gaussian half-width; 2 gives 5×5.
	GaussianMinRadius int `json:"gaussian_min_radius" yaml:"gaussian_min_radius"`
	// GaussianRadiusFactor scales sigma into a half-width: ceil(factor·sigma).
	GaussianRadiusFactor float64 `json:"gaussian_radius_factor" yaml:"gaussian_radius_factor"`
}

// DefaultKernel returns the 3×3 antialiased and at least 5×5 Gaussian footprints.
func DefaultKernel() Kernel {
	return Kernel{AntialiasRadius: 1, GaussianMinRadius: 2, GaussianRadiusFactor: 2}
}

func (k Kernel) antialiasRadius() int {
	if k.AntialiasRadius < 1 {
		return 1
	}
	return k.AntialiasRadius
}

// GaussianRadius is the half-width used for a given sigma.
func (k Kernel) GaussianRadius(sigma float64) int {
	minR := k.GaussianMinRadius
	if minR < 1 {
		minR = 1
	}
	factor := k.GaussianRadiusFactor
	if factor <= 0 {
		factor = 2
	}
	r := int(math.Ceil(factor * sigma))
	if r < minR {
		return minR
	}
	return r
}

// Mode selects how the baseline and highlighted channels are rendered.
type Mode int

const (
	// Highlight shows both channels: baseline through the palette, highlight in red.
	Highlight Mode = iota
	// NoHighlight folds the highlighted density into the baseline.
	NoHighlight
	// HighlightedOnly shows just the highlighted channel.
	HighlightedOnly
	// NonHighlightedOnly shows just the baseline channel.
	NonHighlightedOnly
)

var modeNames = map[Mode]string{
	Highlight:          "highlight",
	NoHighlight:        "no-highlight",
	HighlightedOnly:    "highlighted-only",
	NonHighlightedOnly: "non-highlighted-only",
}

func (m Mode) String() string {
	if s, ok := modeNames[m]; ok {
		return s
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode accepts the names printed by String.
func ParseMode(s string) (Mode, error) {
	key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "-")
	if key == "" {
		return Highlight, nil
	}
	for m, name := range modeNames {
		if name == key {
			return m, nil
		}
	}
	return Highlight, fmt.Errorf("unknown highlight mode %q (use highlight|no-highlight|highlighted-only|non-highlighted-only)", s)
}

// Palette maps a processed density in [0,1] to a color.
type Palette int

const (
	// BlueCyan ramps black → blue → cyan.
	BlueCyan Palette = iota
	// Gray ramps black → white.
	Gray
)

func (p Palette) String() string {
	if p == Gray {
		return "gray"
	}
	return "blue-cyan"
}

// ParsePalette accepts blue-cyan (default) and gray.
func ParsePalette(s string) (Palette, error) {
	switch strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "-") {
	case "", "blue-cyan", "bluecyan":
		return BlueCyan, nil
	case "gray", "grey":
		return Gray, nil
	}
	return BlueCyan, fmt.Errorf("unknown palette %q (use blue-cyan|gray)", s)
}

// Parameters collects the render settings that feed a Mesh.
type Parameters struct {
	Width             int     `json:"width" yaml:"width"`
	Height            int     `json:"height" yaml:"height"`
	Antialiased       bool    `json:"antialiased" yaml:"antialiased"`
	GaussianPoints    bool    `json:"gaussian_points" yaml:"gaussian_points"`
	PointSigma        float64 `json:"point_sigma" yaml:"point_sigma"`
	DensityMultiplier float64 `json:"density_multiplier" yaml:"density_multiplier"`
	Contrast          float64 `json:"contrast" yaml:"contrast"`
	Mode              Mode    `json:"highlight_mode" yaml:"highlight_mode"`
	Palette           Palette `json:"palette" yaml:"palette"`
	Smooth            bool    `json:"smooth" yaml:"smooth"`
	Kernel            Kernel  `json:"kernel" yaml:"kernel"`
}

// DefaultParameters returns an 800×800 plain-deposit render. Gaussian
// points take precedence over Antialiased when both are set.
func DefaultParameters() Parameters {
	return Parameters{
		Width:             800,
		Height:            800,
		PointSigma:        1,
		DensityMultiplier: 1,
		Contrast:          1,
		Mode:              Highlight,
		Palette:           BlueCyan,
		Kernel:            DefaultKernel(),
	}
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(b []byte) error {
	v, err := ParseMode(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (p Palette) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Palette) UnmarshalText(b []byte) error {
	v, err := ParsePalette(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}
