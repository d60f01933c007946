package cmd

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"image"
	"strings"

	"github.com/charmbracelet/lipgloss"
	ltable "github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/KaramelBytes/pcview/internal/filter"
	"github.com/KaramelBytes/pcview/internal/utils"
)

var (
	statsView          viewFlags
	statsPixel         string
	statsColumns       string
	statsMatch         string
	statsAny           bool
	statsCaseSensitive bool
	statsFormat        string
	statsOutput        string
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	groupStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

var statsCmd = &cobra.Command{
	Use:   "stats <file>",
	Short: "Print weighted statistics for all, highlighted and non-highlighted rows",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := statsView.build(cmd, args[0])
		if err != nil {
			return err
		}
		if statsColumns != "" {
			match, err := filter.ParseMatch(statsMatch)
			if err != nil {
				return err
			}
			op := filter.And
			if statsAny {
				op = filter.Or
			}
			cf := filter.New(statsColumns, match, op, statsCaseSensitive)
			p.Table().FilterHeaders(cf.Matches)
			if len(p.Table().Headers()) == 0 {
				return fmt.Errorf("no columns match %q", statsColumns)
			}
		}
		var cursor *image.Point
		if statsPixel != "" {
			pt, err := parsePixel(statsPixel)
			if err != nil {
				return err
			}
			cursor = &pt
		}
		p.Run()
		rows := p.Statistics(cursor)

		var out []byte
		switch strings.ToLower(statsFormat) {
		case "", "table":
			out = []byte(renderStatsTable(rows) + "\n")
		case "csv":
			var buf bytes.Buffer
			w := csv.NewWriter(&buf)
			if err := w.WriteAll(rows); err != nil {
				return fmt.Errorf("write csv: %w", err)
			}
			out = buf.Bytes()
		case "json":
			b, err := utils.PrettyJSON(statsJSON(rows))
			if err != nil {
				return err
			}
			out = append(b, '\n')
		default:
			return fmt.Errorf("unsupported --format: %s (use table|csv|json)", statsFormat)
		}

		if statsOutput != "" {
			if err := utils.SafeWriteFile(statsOutput, out); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote statistics to %s\n", statsOutput)
			return nil
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
	statsView.register(statsCmd)
	f := statsCmd.Flags()
	f.StringVar(&statsPixel, "pixel", "", "add the row under mesh pixel px,py")
	f.StringVar(&statsColumns, "columns", "", "only show columns matching these space separated tokens")
	f.StringVar(&statsMatch, "match", "contains", "column token match: contains|prefix|postfix")
	f.BoolVar(&statsAny, "any", false, "a column matches if any token matches (default: all tokens)")
	f.BoolVar(&statsCaseSensitive, "case-sensitive", false, "match column tokens case sensitively")
	f.StringVar(&statsFormat, "format", "table", "output format: table|csv|json")
	f.StringVarP(&statsOutput, "output", "o", "", "optional path to write the statistics")
}

// renderStatsTable lays the statistics rows out as a bordered terminal table.
func renderStatsTable(rows [][]string) string {
	if len(rows) == 0 {
		return ""
	}
	t := ltable.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == ltable.HeaderRow:
				return headerStyle
			case col < 2:
				return groupStyle
			}
			return cellStyle
		}).
		Headers(rows[0]...).
		Rows(rows[1:]...)
	return t.String()
}

type statsJSONRow struct {
	Group   string            `json:"group"`
	Measure string            `json:"measure,omitempty"`
	Values  map[string]string `json:"values"`
}

// statsJSON keys every value by its column name.
func statsJSON(rows [][]string) []statsJSONRow {
	if len(rows) == 0 {
		return nil
	}
	headers := rows[0][2:]
	out := make([]statsJSONRow, 0, len(rows)-1)
	for _, r := range rows[1:] {
		jr := statsJSONRow{Group: r[0], Measure: r[1], Values: map[string]string{}}
		for i, h := range headers {
			if i+2 < len(r) && r[i+2] != "" {
				jr.Values[h] = r[i+2]
			}
		}
		out = append(out, jr)
	}
	return out
}
