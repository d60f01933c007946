package cmd

import (
	"bytes"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/pcview/internal/utils"
)

var (
	rbView      viewFlags
	rbOutDir    string
	rbScale     int
	rbManifests bool
	rbQuiet     bool
)

var renderBatchCmd = &cobra.Command{
	Use:   "render-batch <files...>",
	Short: "Render several CSV/TSV/XLSX files with the same view settings",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files := expandInputs(args)
		if len(files) == 0 {
			return fmt.Errorf("no input files matched")
		}
		if rbScale < 1 {
			return fmt.Errorf("--scale must be at least 1")
		}
		if err := os.MkdirAll(rbOutDir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
		out := cmd.OutOrStdout()
		total := len(files)
		for i, path := range files {
			if !rbQuiet {
				fmt.Fprintf(out, "[%d/%d] Rendering %s...\n", i+1, total, filepath.Base(path))
			}
			p, err := rbView.build(cmd, path)
			if err != nil {
				return err
			}
			p.Run()
			img := scaleImage(p.Image(), rbScale)
			if img.Bounds().Empty() {
				return fmt.Errorf("%s: nothing to encode", path)
			}
			var buf bytes.Buffer
			if err := png.Encode(&buf, img); err != nil {
				return fmt.Errorf("encode png: %w", err)
			}
			base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
			outFile := uniqueOutput(rbOutDir, base, ".png")
			if outFile != filepath.Join(rbOutDir, base+".png") && !rbQuiet {
				fmt.Fprintf(out, "⚠ Detected existing image, writing to %s to avoid overwrite.\n", filepath.Base(outFile))
			}
			if err := utils.SafeWriteFile(outFile, buf.Bytes()); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			if rbManifests {
				doc := newRenderManifest(p, path, outFile, rbScale)
				b, err := yaml.Marshal(doc)
				if err != nil {
					return fmt.Errorf("marshal manifest: %w", err)
				}
				if err := utils.SafeWriteFile(strings.TrimSuffix(outFile, ".png")+".yaml", b); err != nil {
					return fmt.Errorf("write manifest: %w", err)
				}
			}
			if !rbQuiet {
				fmt.Fprintf(out, "✓ %s (%d of %d rows rendered)\n", filepath.Base(outFile), len(p.Points()), p.RowCount())
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(renderBatchCmd)
	rbView.register(renderBatchCmd)
	renderBatchCmd.Flags().StringVar(&rbOutDir, "out-dir", "renders", "directory for the rendered images")
	renderBatchCmd.Flags().IntVar(&rbScale, "scale", 1, "integer upscaling factor (nearest neighbour)")
	renderBatchCmd.Flags().BoolVar(&rbManifests, "manifests", false, "write a YAML manifest next to each image")
	renderBatchCmd.Flags().BoolVar(&rbQuiet, "quiet", false, "suppress progress and non-essential output")
}

// expandInputs resolves globs, keeps literal paths that exist, removes
// duplicates and sorts the result.
func expandInputs(args []string) []string {
	var files []string
	seen := map[string]struct{}{}
	for _, arg := range args {
		matches, _ := filepath.Glob(arg)
		if len(matches) == 0 {
			// treat as literal path if exists
			if _, err := os.Stat(arg); err == nil {
				matches = []string{arg}
			}
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}
	sort.Strings(files)
	return files
}

// uniqueOutput returns dir/base+ext, or dir/base__N+ext for the first N >= 2
// that does not exist yet.
func uniqueOutput(dir, base, ext string) string {
	out := filepath.Join(dir, base+ext)
	if _, err := os.Stat(out); err != nil {
		return out
	}
	for idx := 2; ; idx++ {
		cand := filepath.Join(dir, fmt.Sprintf("%s__%d%s", base, idx, ext))
		if _, err := os.Stat(cand); os.IsNotExist(err) {
			return cand
		}
	}
}
