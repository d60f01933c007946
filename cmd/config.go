package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	cfgpkg "github.com/KaramelBytes/pcview/internal/config"
	"github.com/KaramelBytes/pcview/internal/logging"
	"github.com/KaramelBytes/pcview/internal/mesh"
	"github.com/KaramelBytes/pcview/internal/transform"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set pcview configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := currentConfig()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "mesh_width: %d\n", c.MeshWidth)
		fmt.Fprintf(out, "mesh_height: %d\n", c.MeshHeight)
		fmt.Fprintf(out, "transform_x: %s\n", c.TransformX)
		fmt.Fprintf(out, "transform_y: %s\n", c.TransformY)
		fmt.Fprintf(out, "antialiased: %t\n", c.Antialiased)
		fmt.Fprintf(out, "gaussian_points: %t\n", c.GaussianPoints)
		fmt.Fprintf(out, "point_sigma: %.3f\n", c.PointSigma)
		fmt.Fprintf(out, "density_multiplier: %.3f\n", c.DensityMultiplier)
		fmt.Fprintf(out, "contrast: %.3f\n", c.Contrast)
		fmt.Fprintf(out, "highlight_mode: %s\n", c.HighlightMode)
		fmt.Fprintf(out, "palette: %s\n", c.Palette)
		fmt.Fprintf(out, "smooth: %t\n", c.Smooth)
		fmt.Fprintf(out, "quantile_buckets: %d\n", c.QuantileBuckets)
		fmt.Fprintf(out, "antialias_radius: %d\n", c.AntialiasRadius)
		fmt.Fprintf(out, "gaussian_min_radius: %d\n", c.GaussianMinRadius)
		fmt.Fprintf(out, "gaussian_radius_factor: %.3f\n", c.GaussianRadiusFactor)
		fmt.Fprintf(out, "delimiter: %s\n", orAuto(c.Delimiter))
		fmt.Fprintf(out, "decimal_separator: %s\n", orAuto(c.DecimalSeparator))
		fmt.Fprintf(out, "max_rows: %d\n", c.MaxRows)
		fmt.Fprintf(out, "log_level: %s\n", c.LogLevel)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		c, err := currentConfig()
		if err != nil {
			return err
		}
		if err := setConfigValue(c, key, val); err != nil {
			return err
		}
		if err := cfgpkg.Save(c, cfgFile); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

func setConfigValue(c *cfgpkg.Global, key, val string) error {
	switch key {
	case "mesh_width", "mesh_height", "quantile_buckets", "antialias_radius", "gaussian_min_radius", "max_rows":
		i, err := strconv.Atoi(val)
		if err != nil || i < 0 {
			return fmt.Errorf("invalid int for %s: %v", key, val)
		}
		switch key {
		case "mesh_width":
			c.MeshWidth = i
		case "mesh_height":
			c.MeshHeight = i
		case "quantile_buckets":
			c.QuantileBuckets = i
		case "antialias_radius":
			c.AntialiasRadius = i
		case "gaussian_min_radius":
			c.GaussianMinRadius = i
		case "max_rows":
			c.MaxRows = i
		}
	case "point_sigma", "density_multiplier", "contrast", "gaussian_radius_factor":
		f, err := strconv.ParseFloat(val, 64)
		if err != nil || f < 0 {
			return fmt.Errorf("invalid float for %s: %v", key, val)
		}
		switch key {
		case "point_sigma":
			c.PointSigma = f
		case "density_multiplier":
			c.DensityMultiplier = f
		case "contrast":
			c.Contrast = f
		case "gaussian_radius_factor":
			c.GaussianRadiusFactor = f
		}
	case "antialiased", "gaussian_points", "smooth":
		b, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("invalid bool for %s: %w", key, err)
		}
		switch key {
		case "antialiased":
			c.Antialiased = b
		case "smooth":
			c.Smooth = b
		default:
			c.GaussianPoints = b
		}
	case "transform_x", "transform_y":
		t, err := transform.ParseType(val)
		if err != nil {
			return err
		}
		if key == "transform_x" {
			c.TransformX = t.String()
		} else {
			c.TransformY = t.String()
		}
	case "highlight_mode":
		m, err := mesh.ParseMode(val)
		if err != nil {
			return err
		}
		c.HighlightMode = m.String()
	case "palette":
		p, err := mesh.ParsePalette(val)
		if err != nil {
			return err
		}
		c.Palette = p.String()
	case "delimiter", "decimal_separator":
		if _, err := cfgpkg.ParseRune(key, val); err != nil {
			return err
		}
		if key == "delimiter" {
			c.Delimiter = val
		} else {
			c.DecimalSeparator = val
		}
	case "log_level":
		if _, ok := logging.ParseLevel(val); !ok {
			return fmt.Errorf("invalid log_level: %s (use debug|info|warn|error)", val)
		}
		c.LogLevel = val
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	return nil
}

func orAuto(s string) string {
	if s == "" {
		return "auto"
	}
	return s
}
