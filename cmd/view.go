package cmd

import (
	"fmt"
	"image"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	cfgpkg "github.com/KaramelBytes/pcview/internal/config"
	"github.com/KaramelBytes/pcview/internal/filter"
	"github.com/KaramelBytes/pcview/internal/highlight"
	"github.com/KaramelBytes/pcview/internal/mesh"
	"github.com/KaramelBytes/pcview/internal/pipeline"
	"github.com/KaramelBytes/pcview/internal/table"
	"github.com/KaramelBytes/pcview/internal/transform"
)

// loadFlags are the table loading options shared by every command that
// reads a file.
type loadFlags struct {
	delimiter  string
	decimal    string
	thousands  string
	sheetName  string
	sheetIndex int
	maxRows    int
}

func (l *loadFlags) register(c *cobra.Command) {
	f := c.Flags()
	f.StringVar(&l.delimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab' (sniffed if omitted)")
	f.StringVar(&l.decimal, "decimal", "", "decimal separator for numbers: '.'|'comma' (auto-detect if omitted)")
	f.StringVar(&l.thousands, "thousands", "", "thousands separator for numbers: ','|'.'|'space' (auto-detect if omitted)")
	f.StringVar(&l.sheetName, "sheet-name", "", "XLSX: sheet name to load")
	f.IntVar(&l.sheetIndex, "sheet-index", 0, "XLSX: 1-based sheet index (used if --sheet-name not provided)")
	f.IntVar(&l.maxRows, "max-rows", 0, "maximum rows to load (0 = unlimited)")
}

// options merges the configured loading keys with explicitly set flags.
func (l *loadFlags) options(c *cobra.Command, conf *cfgpkg.Global) (table.Options, error) {
	opt, err := conf.LoadOptions()
	if err != nil {
		return opt, err
	}
	f := c.Flags()
	if f.Changed("delimiter") {
		d, err := cfgpkg.ParseRune("--delimiter", l.delimiter)
		if err != nil {
			return opt, err
		}
		opt.Delimiter = d
	}
	switch strings.ToLower(strings.TrimSpace(l.decimal)) {
	case ",", "comma":
		opt.DecimalSeparator = ','
	case ".", "dot":
		opt.DecimalSeparator = '.'
	case "":
	default:
		return opt, fmt.Errorf("unsupported --decimal: %s (use '.'|'comma')", l.decimal)
	}
	switch strings.ToLower(strings.TrimSpace(l.thousands)) {
	case ",":
		opt.ThousandsSeparator = ','
	case ".":
		opt.ThousandsSeparator = '.'
	case "space", " ":
		opt.ThousandsSeparator = ' '
	case "":
	default:
		return opt, fmt.Errorf("unsupported --thousands: %s (use ','|'.'|'space')", l.thousands)
	}
	opt.SheetName = l.sheetName
	opt.SheetIndex = l.sheetIndex
	if f.Changed("max-rows") {
		opt.MaxRows = l.maxRows
	}
	return opt, nil
}

// load reads path with the merged options.
func (l *loadFlags) load(c *cobra.Command, path string) (*table.Table, error) {
	conf, err := currentConfig()
	if err != nil {
		return nil, err
	}
	opt, err := l.options(c, conf)
	if err != nil {
		return nil, err
	}
	t, err := table.Load(path, opt)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return t, nil
}

// viewFlags describe what to render: axes, transforms, view box, mesh
// parameters and highlight filters. Unset flags fall back to the config.
type viewFlags struct {
	loadFlags

	x, y, weight string
	tx, ty       string
	buckets      int

	width, height    int
	zoom, aspect     float64
	offsetX, offsetY float64

	antialias bool
	gaussian  bool
	sigma     float64
	density   float64
	contrast  float64
	mode      string
	palette   string
	smooth    bool

	filters     []string
	filterOp    string
	filtersFile string
}

func (v *viewFlags) register(c *cobra.Command) {
	v.loadFlags.register(c)
	d := mesh.DefaultParameters()
	f := c.Flags()
	f.StringVarP(&v.x, "x", "x", "", "x axis column (default: first numeric column)")
	f.StringVarP(&v.y, "y", "y", "", "y axis column (default: second numeric column)")
	f.StringVar(&v.weight, "weight", "", "numeric weight column (unit weights if omitted)")
	f.StringVar(&v.tx, "tx", "linear", "x transform: linear|logarithmic|quantile|quantile-normal")
	f.StringVar(&v.ty, "ty", "linear", "y transform: linear|logarithmic|quantile|quantile-normal")
	f.IntVar(&v.buckets, "quantile-buckets", transform.DefaultQuantileBuckets, "control points kept by quantile transforms")
	f.IntVar(&v.width, "width", d.Width, "mesh width in pixels")
	f.IntVar(&v.height, "height", d.Height, "mesh height in pixels")
	f.Float64Var(&v.zoom, "zoom", 1, "zoom factor")
	f.Float64Var(&v.aspect, "aspect", 1, "aspect ratio of the view box")
	f.Float64Var(&v.offsetX, "offset-x", 0.5, "view center x in canonical units")
	f.Float64Var(&v.offsetY, "offset-y", 0.5, "view center y in canonical units")
	f.BoolVar(&v.antialias, "antialias", d.Antialiased, "splat points over a 3x3 exp(-d²) kernel")
	f.BoolVar(&v.gaussian, "gaussian", d.GaussianPoints, "splat points with a Gaussian kernel")
	f.Float64Var(&v.sigma, "sigma", d.PointSigma, "Gaussian point sigma in cells")
	f.Float64Var(&v.density, "density", d.DensityMultiplier, "density multiplier")
	f.Float64Var(&v.contrast, "contrast", d.Contrast, "contrast exponent")
	f.StringVar(&v.mode, "highlight-mode", d.Mode.String(), "highlight|no-highlight|highlighted-only|non-highlighted-only")
	f.StringVar(&v.palette, "palette", d.Palette.String(), "blue-cyan|gray")
	f.BoolVar(&v.smooth, "smooth", d.Smooth, "blur the mesh with a 3x3 binomial kernel")
	f.StringArrayVar(&v.filters, "filter", nil, "highlight filter: col=value, col<value, col>value or col~center:width (repeatable)")
	f.StringVar(&v.filterOp, "filter-op", "and", "combine highlight filters with and|or")
	f.StringVar(&v.filtersFile, "filters-file", "", "YAML file with highlight filters")
}

// parameters merges configured mesh parameters with explicitly set flags.
func (v *viewFlags) parameters(c *cobra.Command, conf *cfgpkg.Global) (mesh.Parameters, error) {
	p, err := conf.MeshParameters()
	if err != nil {
		return p, err
	}
	f := c.Flags()
	if f.Changed("width") {
		p.Width = v.width
	}
	if f.Changed("height") {
		p.Height = v.height
	}
	if p.Width < 0 || p.Height < 0 {
		return p, fmt.Errorf("mesh size must not be negative: %dx%d", p.Width, p.Height)
	}
	if f.Changed("antialias") {
		p.Antialiased = v.antialias
	}
	if f.Changed("gaussian") {
		p.GaussianPoints = v.gaussian
	}
	if f.Changed("sigma") {
		p.PointSigma = v.sigma
	}
	if f.Changed("density") {
		p.DensityMultiplier = v.density
	}
	if f.Changed("contrast") {
		p.Contrast = v.contrast
	}
	if f.Changed("highlight-mode") {
		if p.Mode, err = mesh.ParseMode(v.mode); err != nil {
			return p, err
		}
	}
	if f.Changed("palette") {
		if p.Palette, err = mesh.ParsePalette(v.palette); err != nil {
			return p, err
		}
	}
	if f.Changed("smooth") {
		p.Smooth = v.smooth
	}
	return p, nil
}

// highlights builds the highlight combinator from --filters-file and
// --filter. ok is false when no filter was given.
func (v *viewFlags) highlights(c *cobra.Command) (highlight.Combined, bool, error) {
	var combined highlight.Combined
	if v.filtersFile != "" {
		fc, err := highlight.LoadFile(v.filtersFile)
		if err != nil {
			return combined, false, err
		}
		combined = fc
	}
	op, err := filter.ParseOperator(v.filterOp)
	if err != nil {
		return combined, false, err
	}
	if c.Flags().Changed("filter-op") || v.filtersFile == "" {
		combined.Operator = op
	}
	exprs, err := highlight.ParseAll(v.filters, op)
	if err != nil {
		return combined, false, err
	}
	combined.Filters = append(combined.Filters, exprs.Filters...)
	return combined, v.filtersFile != "" || len(v.filters) > 0, nil
}

// build loads path and configures a pipeline from config and flags.
func (v *viewFlags) build(c *cobra.Command, path string) (*pipeline.Pipeline, error) {
	conf, err := currentConfig()
	if err != nil {
		return nil, err
	}
	t, err := v.load(c, path)
	if err != nil {
		return nil, err
	}
	params, err := v.parameters(c, conf)
	if err != nil {
		return nil, err
	}
	tx, ty, err := conf.Transforms()
	if err != nil {
		return nil, err
	}
	f := c.Flags()
	if f.Changed("tx") {
		if tx, err = transform.ParseType(v.tx); err != nil {
			return nil, err
		}
	}
	if f.Changed("ty") {
		if ty, err = transform.ParseType(v.ty); err != nil {
			return nil, err
		}
	}
	buckets := conf.QuantileBuckets
	if f.Changed("quantile-buckets") {
		buckets = v.buckets
	}

	p := pipeline.New()
	p.SetTable(t)
	for _, col := range []string{v.x, v.y, v.weight} {
		if col != "" && !t.Has(col) {
			return nil, fmt.Errorf("%w: %s", table.ErrUnknownColumn, col)
		}
	}
	if v.x != "" {
		p.SetXColumn(v.x)
	}
	if v.y != "" {
		p.SetYColumn(v.y)
	}
	if p.XColumn() == "" || p.YColumn() == "" {
		return nil, fmt.Errorf("%s has fewer than two numeric columns; choose axes with -x and -y", path)
	}
	p.SetWeightColumn(v.weight)
	p.SetXTransform(tx)
	p.SetYTransform(ty)
	p.SetQuantileBuckets(buckets)
	p.SetParameters(params)
	if v.zoom <= 0 || v.aspect <= 0 {
		return nil, fmt.Errorf("--zoom and --aspect must be positive")
	}
	p.SetZoom(v.zoom)
	p.SetAspect(v.aspect)
	p.SetOffsetX(v.offsetX)
	p.SetOffsetY(v.offsetY)

	hl, ok, err := v.highlights(c)
	if err != nil {
		return nil, err
	}
	if ok {
		p.SetHighlightFilter(hl)
	}
	return p, nil
}

// parsePixel parses "px,py".
func parsePixel(s string) (image.Point, error) {
	a, b, ok := strings.Cut(s, ",")
	if !ok {
		return image.Point{}, fmt.Errorf("invalid --pixel %q (use px,py)", s)
	}
	x, err := strconv.Atoi(strings.TrimSpace(a))
	if err != nil {
		return image.Point{}, fmt.Errorf("invalid --pixel x %q: %w", a, err)
	}
	y, err := strconv.Atoi(strings.TrimSpace(b))
	if err != nil {
		return image.Point{}, fmt.Errorf("invalid --pixel y %q: %w", b, err)
	}
	return image.Point{X: x, Y: y}, nil
}
