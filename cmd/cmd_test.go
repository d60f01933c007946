package cmd

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/pcview/internal/table"
)

const fixtureCSV = "x,y,w,label\n0,0,1,a\n1,1,1,b\n2,0,2,a\n3,1,1,c\n"

// resetFlags restores every flag below c to its default so that values set
// by one invocation do not leak into the next.
func resetFlags(c *cobra.Command) {
	reset := func(fl *pflag.Flag) {
		if sv, ok := fl.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = fl.Value.Set(fl.DefValue)
		}
		fl.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// execute runs the root command with args and returns its standard output.
func execute(args ...string) (string, error) {
	out, _, err := executeWithStderr(args...)
	return out, err
}

func executeWithStderr(args ...string) (string, string, error) {
	resetFlags(rootCmd)
	cfg = nil
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), errOut.String(), err
}

// runCmd is a helper to execute the root command with args.
func runCmd(t *testing.T, args ...string) string {
	t.Helper()
	out, err := execute(args...)
	if err != nil {
		t.Fatalf("command %v failed: %v", args, err)
	}
	return out
}

// setup isolates HOME and writes the fixture table.
func setup(t *testing.T) (dir, data string) {
	t.Helper()
	dir = t.TempDir()
	t.Setenv("HOME", dir)
	data = filepath.Join(dir, "points.csv")
	if err := os.WriteFile(data, []byte(fixtureCSV), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return dir, data
}

func TestCLI_RenderWritesScaledPNGAndManifest(t *testing.T) {
	dir, data := setup(t)
	img := filepath.Join(dir, "out", "view.png")
	manifest := filepath.Join(dir, "out", "view.yaml")

	out := runCmd(t, "render", data, "--width", "2", "--height", "2", "--scale", "3",
		"-o", img, "--manifest", manifest, "--filter", "label=a")
	if !strings.Contains(out, "✓ Wrote 6x6 image") || !strings.Contains(out, "4 of 4 rows rendered, 2 highlighted") {
		t.Fatalf("unexpected output: %q", out)
	}

	f, err := os.Open(img)
	if err != nil {
		t.Fatalf("open png: %v", err)
	}
	defer f.Close()
	decoded, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	if b := decoded.Bounds(); b.Dx() != 6 || b.Dy() != 6 {
		t.Fatalf("image bounds = %v, want 6x6", b)
	}

	raw, err := os.ReadFile(manifest)
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	var doc map[string]any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("parse manifest: %v", err)
	}
	if id, _ := doc["run_id"].(string); len(id) != 36 {
		t.Fatalf("run_id = %v", doc["run_id"])
	}
	if doc["x_column"] != "x" || doc["y_column"] != "y" {
		t.Fatalf("axes = %v,%v", doc["x_column"], doc["y_column"])
	}
	if doc["highlight"] != "label=a" {
		t.Fatalf("highlight = %v", doc["highlight"])
	}
	if doc["rendered"] != 4 || doc["highlighted"] != 2 {
		t.Fatalf("counts = %v/%v", doc["rendered"], doc["highlighted"])
	}
}

func TestCLI_RenderUnknownColumn(t *testing.T) {
	_, data := setup(t)
	_, err := execute("render", data, "-x", "missing", "-o", filepath.Join(t.TempDir(), "a.png"))
	if !errors.Is(err, table.ErrUnknownColumn) {
		t.Fatalf("err = %v, want unknown column", err)
	}
}

func TestCLI_RenderRejectsBadScale(t *testing.T) {
	_, data := setup(t)
	if _, err := execute("render", data, "--scale", "0"); err == nil {
		t.Fatalf("expected error for --scale 0")
	}
}

func TestCLI_RenderBatchAvoidsOverwrite(t *testing.T) {
	dir, data := setup(t)
	other := filepath.Join(dir, "nested")
	if err := os.MkdirAll(other, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(other, "points.csv"), []byte(fixtureCSV), 0o644); err != nil {
		t.Fatal(err)
	}
	outDir := filepath.Join(dir, "renders")

	out := runCmd(t, "render-batch", data, filepath.Join(dir, "*", "*.csv"),
		"--out-dir", outDir, "--width", "4", "--height", "4", "--manifests")
	if !strings.Contains(out, "[1/2] Rendering points.csv") || !strings.Contains(out, "[2/2]") {
		t.Fatalf("missing progress lines: %q", out)
	}
	for _, name := range []string{"points.png", "points__2.png", "points.yaml", "points__2.yaml"} {
		if _, err := os.Stat(filepath.Join(outDir, name)); err != nil {
			t.Fatalf("expected %s: %v", name, err)
		}
	}

	quiet := runCmd(t, "render-batch", data, "--out-dir", outDir, "--width", "4", "--height", "4", "--quiet")
	if quiet != "" {
		t.Fatalf("quiet output = %q", quiet)
	}
	if _, err := os.Stat(filepath.Join(outDir, "points__3.png")); err != nil {
		t.Fatalf("expected third render: %v", err)
	}
}

func TestExpandInputs(t *testing.T) {
	dir := t.TempDir()
	for _, n := range []string{"b.csv", "a.csv", "c.txt"} {
		if err := os.WriteFile(filepath.Join(dir, n), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	got := expandInputs([]string{filepath.Join(dir, "*.csv"), filepath.Join(dir, "a.csv"), filepath.Join(dir, "missing.csv")})
	want := []string{filepath.Join(dir, "a.csv"), filepath.Join(dir, "b.csv")}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("expandInputs = %v, want %v", got, want)
	}
}

func TestCLI_StatsFormats(t *testing.T) {
	_, data := setup(t)

	out := runCmd(t, "stats", data, "--format", "csv", "--filter", "label=a", "--width", "2", "--height", "2")
	rows, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if got := strings.Join(rows[0], ","); got != ",,x,y,w,label" {
		t.Fatalf("header = %q", got)
	}
	// header + three blocks of eight measures
	if len(rows) != 25 {
		t.Fatalf("rows = %d, want 25", len(rows))
	}
	if rows[1][0] != "All" || rows[1][1] != "Count" || rows[1][2] != "4" {
		t.Fatalf("first block row = %v", rows[1])
	}
	if rows[9][0] != "Highlighted" || rows[9][2] != "2" || rows[17][0] != "Non-Highlighted" {
		t.Fatalf("group rows = %v / %v", rows[9], rows[17])
	}
	if rows[1][5] != "" {
		t.Fatalf("categorical column should be blank, got %q", rows[1][5])
	}

	out = runCmd(t, "stats", data, "--format", "csv", "--pixel", "0,1", "--width", "2", "--height", "2")
	rows, err = csv.NewReader(strings.NewReader(out)).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if rows[1][0] != "Selected" || rows[1][2] != "0" || rows[1][5] != "a" {
		t.Fatalf("selected row = %v", rows[1])
	}

	out = runCmd(t, "stats", data, "--format", "json", "--columns", "w")
	var js []statsJSONRow
	if err := json.Unmarshal([]byte(out), &js); err != nil {
		t.Fatalf("parse json: %v", err)
	}
	if len(js) != 8 || js[0].Group != "All" || js[0].Values["w"] != "4" {
		t.Fatalf("json = %+v", js)
	}
	if _, ok := js[0].Values["x"]; ok {
		t.Fatalf("column filter ignored: %+v", js[0])
	}

	out = runCmd(t, "stats", data)
	if !strings.Contains(out, "Count") || !strings.Contains(out, "label") {
		t.Fatalf("table output = %q", out)
	}

	if _, err := execute("stats", data, "--format", "xml"); err == nil {
		t.Fatalf("expected error for unsupported format")
	}
	if _, err := execute("stats", data, "--columns", "nothing"); err == nil {
		t.Fatalf("expected error when no column matches")
	}
}

func TestCLI_Inspect(t *testing.T) {
	_, data := setup(t)
	out := runCmd(t, "inspect", data, "--pixel", "0,1", "--width", "2", "--height", "2", "--filter", "label=a")
	if !strings.Contains(out, "→ row 1 [highlighted]") || !strings.Contains(out, "label  a") {
		t.Fatalf("hit output = %q", out)
	}
	out = runCmd(t, "inspect", data, "--pixel", "9,9", "--width", "2", "--height", "2")
	if !strings.Contains(out, "No row at pixel (9,9)") {
		t.Fatalf("miss output = %q", out)
	}
	if _, err := execute("inspect", data, "--pixel", "nope"); err == nil {
		t.Fatalf("expected error for malformed --pixel")
	}
}

func TestCLI_DescribeAndColumns(t *testing.T) {
	dir, data := setup(t)
	out := runCmd(t, "describe", data, "--sample-rows", "2")
	if !strings.Contains(out, "Rows: 4") || !strings.Contains(out, "- label: categorical") {
		t.Fatalf("describe output = %q", out)
	}
	summary := filepath.Join(dir, "summary.md")
	runCmd(t, "analyze", data, "-o", summary)
	if b, err := os.ReadFile(summary); err != nil || !strings.Contains(string(b), "[SCHEMA]") {
		t.Fatalf("summary file: %v %q", err, b)
	}

	out = runCmd(t, "columns", data)
	for _, want := range []string{"x      numeric", "label  categorical"} {
		if !strings.Contains(out, want) {
			t.Fatalf("columns output missing %q: %q", want, out)
		}
	}
	out = runCmd(t, "columns", data, "lab", "--unique")
	if !strings.Contains(out, "label  categorical  [a, b, c]") || strings.Contains(out, "numeric") {
		t.Fatalf("filtered columns = %q", out)
	}
}

func TestCLI_ConfigSetShow(t *testing.T) {
	dir, data := setup(t)
	runCmd(t, "config", "set", "mesh_width", "3")
	runCmd(t, "config", "set", "palette", "gray")
	runCmd(t, "config", "set", "antialiased", "true")
	out := runCmd(t, "config", "show")
	if !strings.Contains(out, "mesh_width: 3\n") || !strings.Contains(out, "palette: gray\n") || !strings.Contains(out, "antialiased: true\n") {
		t.Fatalf("config show = %q", out)
	}
	if _, err := os.Stat(filepath.Join(dir, ".pcview", "config.yaml")); err != nil {
		t.Fatalf("config not saved: %v", err)
	}
	if _, err := execute("config", "set", "palette", "rainbow"); err == nil {
		t.Fatalf("expected error for unknown palette")
	}
	if _, err := execute("config", "set", "nope", "1"); err == nil {
		t.Fatalf("expected error for unknown key")
	}

	// configured mesh width flows into renders
	out = runCmd(t, "render", data, "--height", "2", "-o", filepath.Join(dir, "cfg.png"))
	if !strings.Contains(out, "3x2 image") {
		t.Fatalf("render output = %q", out)
	}
}

func TestCLI_LogLevels(t *testing.T) {
	dir, data := setup(t)
	img := filepath.Join(dir, "w.png")

	_, stderr, err := executeWithStderr("render", data, "--weight", "label", "--width", "4", "--height", "4", "-o", img)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(stderr, "level=WARN") || !strings.Contains(stderr, "weight column is not numeric") {
		t.Fatalf("default stderr = %q", stderr)
	}
	if strings.Contains(stderr, "pipeline step") {
		t.Fatalf("debug records at default level: %q", stderr)
	}

	_, stderr, err = executeWithStderr("render", data, "--weight", "label", "--width", "4", "--height", "4", "-o", img, "--log-level", "error")
	if err != nil || stderr != "" {
		t.Fatalf("error level stderr = %q, err %v", stderr, err)
	}

	_, stderr, err = executeWithStderr("render", data, "--width", "4", "--height", "4", "-o", img, "--debug")
	if err != nil || !strings.Contains(stderr, "pipeline step") {
		t.Fatalf("debug stderr = %q, err %v", stderr, err)
	}

	runCmd(t, "config", "set", "log_level", "error")
	_, stderr, err = executeWithStderr("render", data, "--weight", "label", "--width", "4", "--height", "4", "-o", img)
	if err != nil || stderr != "" {
		t.Fatalf("configured error level stderr = %q, err %v", stderr, err)
	}

	if _, err := execute("render", data, "--log-level", "loud"); err == nil {
		t.Fatalf("expected error for unknown log level")
	}
}
