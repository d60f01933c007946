package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/pcview/internal/mesh"
	"github.com/KaramelBytes/pcview/internal/table"
	"github.com/KaramelBytes/pcview/internal/transform"
)

// Global configuration structure.
type Global struct {
	MeshWidth  int    `mapstructure:"mesh_width" yaml:"mesh_width"`
	MeshHeight int    `mapstructure:"mesh_height" yaml:"mesh_height"`
	TransformX string `mapstructure:"transform_x" yaml:"transform_x"`
	TransformY string `mapstructure:"transform_y" yaml:"transform_y"`

	Antialiased       bool    `mapstructure:"antialiased" yaml:"antialiased"`
	GaussianPoints    bool    `mapstructure:"gaussian_points" yaml:"gaussian_points"`
	PointSigma        float64 `mapstructure:"point_sigma" yaml:"point_sigma"`
	DensityMultiplier float64 `mapstructure:"density_multiplier" yaml:"density_multiplier"`
	Contrast          float64 `mapstructure:"contrast" yaml:"contrast"`
	HighlightMode     string  `mapstructure:"highlight_mode" yaml:"highlight_mode"`
	Palette           string  `mapstructure:"palette" yaml:"palette"`
	Smooth            bool    `mapstructure:"smooth" yaml:"smooth"`

	// Tunable kernel and calibration constants
	QuantileBuckets      int     `mapstructure:"quantile_buckets" yaml:"quantile_buckets"`
	AntialiasRadius      int     `mapstructure:"antialias_radius" yaml:"antialias_radius"`
	GaussianMinRadius    int     `mapstructure:"gaussian_min_radius" yaml:"gaussian_min_radius"`
	GaussianRadiusFactor float64 `mapstructure:"gaussian_radius_factor" yaml:"gaussian_radius_factor"`

	// Loading
	Delimiter        string `mapstructure:"delimiter" yaml:"delimiter"`
	DecimalSeparator string `mapstructure:"decimal_separator" yaml:"decimal_separator"`
	MaxRows          int    `mapstructure:"max_rows" yaml:"max_rows"`

	LogLevel string `mapstructure:"log_level" yaml:"log_level"`
}

// Dir returns ~/.pcview.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".pcview"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.pcview/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	var path string
	if cfgFile != "" {
		path = cfgFile
	} else {
		dir, err := Dir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags (cfgFile) > env > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("PCVIEW")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("mesh_width", 800)
	v.SetDefault("mesh_height", 800)
	v.SetDefault("transform_x", "linear")
	v.SetDefault("transform_y", "linear")
	v.SetDefault("antialiased", false)
	v.SetDefault("gaussian_points", false)
	v.SetDefault("point_sigma", 1.0)
	v.SetDefault("density_multiplier", 1.0)
	v.SetDefault("contrast", 1.0)
	v.SetDefault("highlight_mode", "highlight")
	v.SetDefault("palette", "blue-cyan")
	v.SetDefault("smooth", false)
	v.SetDefault("quantile_buckets", transform.DefaultQuantileBuckets)
	k := mesh.DefaultKernel()
	v.SetDefault("antialias_radius", k.AntialiasRadius)
	v.SetDefault("gaussian_min_radius", k.GaussianMinRadius)
	v.SetDefault("gaussian_radius_factor", k.GaussianRadiusFactor)
	v.SetDefault("delimiter", "")
	v.SetDefault("decimal_separator", "")
	v.SetDefault("max_rows", 0)
	v.SetDefault("log_level", "warn")

	// Config file
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	// optional read
	_ = v.ReadInConfig()

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &c, nil
}

// MeshParameters converts the render keys into mesh parameters.
func (c *Global) MeshParameters() (mesh.Parameters, error) {
	p := mesh.DefaultParameters()
	mode, err := mesh.ParseMode(c.HighlightMode)
	if err != nil {
		return p, fmt.Errorf("highlight_mode: %w", err)
	}
	palette, err := mesh.ParsePalette(c.Palette)
	if err != nil {
		return p, fmt.Errorf("palette: %w", err)
	}
	if c.MeshWidth > 0 {
		p.Width = c.MeshWidth
	}
	if c.MeshHeight > 0 {
		p.Height = c.MeshHeight
	}
	p.Antialiased = c.Antialiased
	p.GaussianPoints = c.GaussianPoints
	p.PointSigma = c.PointSigma
	p.DensityMultiplier = c.DensityMultiplier
	p.Contrast = c.Contrast
	p.Mode = mode
	p.Palette = palette
	p.Smooth = c.Smooth
	p.Kernel = mesh.Kernel{
		AntialiasRadius:      c.AntialiasRadius,
		GaussianMinRadius:    c.GaussianMinRadius,
		GaussianRadiusFactor: c.GaussianRadiusFactor,
	}
	return p, nil
}

// Transforms parses transform_x and transform_y.
func (c *Global) Transforms() (x, y transform.Type, err error) {
	if x, err = transform.ParseType(c.TransformX); err != nil {
		return x, y, fmt.Errorf("transform_x: %w", err)
	}
	if y, err = transform.ParseType(c.TransformY); err != nil {
		return x, y, fmt.Errorf("transform_y: %w", err)
	}
	return x, y, nil
}

// LoadOptions converts the loading keys into table options.
func (c *Global) LoadOptions() (table.Options, error) {
	opt := table.Options{MaxRows: c.MaxRows}
	d, err := ParseRune("delimiter", c.Delimiter)
	if err != nil {
		return opt, err
	}
	dec, err := ParseRune("decimal_separator", c.DecimalSeparator)
	if err != nil {
		return opt, err
	}
	opt.Delimiter, opt.DecimalSeparator = d, dec
	return opt, nil
}

// ParseRune accepts "", "auto", a single character, or "tab" / "\t".
func ParseRune(key, s string) (rune, error) {
	switch s {
	case "", "auto":
		return 0, nil
	case "tab", `\t`:
		return '\t', nil
	}
	r := []rune(s)
	if len(r) != 1 {
		return 0, fmt.Errorf("%s must be a single character, got %q", key, s)
	}
	return r[0], nil
}
