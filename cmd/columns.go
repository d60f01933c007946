package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/pcview/internal/filter"
	"github.com/KaramelBytes/pcview/internal/table"
)

var (
	colLoad          loadFlags
	colMatch         string
	colAny           bool
	colCaseSensitive bool
	colUnique        bool
)

var columnsCmd = &cobra.Command{
	Use:   "columns <file> [query]",
	Short: "List columns, optionally narrowed by a token query",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := colLoad.load(cmd, args[0])
		if err != nil {
			return err
		}
		match, err := filter.ParseMatch(colMatch)
		if err != nil {
			return err
		}
		op := filter.And
		if colAny {
			op = filter.Or
		}
		query := ""
		if len(args) == 2 {
			query = args[1]
		}
		cf := filter.New(query, match, op, colCaseSensitive)
		names := cf.Apply(t.AllHeaders())

		out := cmd.OutOrStdout()
		if len(names) == 0 {
			fmt.Fprintf(out, "No columns match %q\n", query)
			return nil
		}
		width := 0
		for _, n := range names {
			width = max(width, len(n))
		}
		for _, n := range names {
			kind, _ := t.Kind(n)
			line := fmt.Sprintf("%-*s  %s", width, n, kind)
			if colUnique && kind == table.Categorical {
				line += "  [" + strings.Join(t.UniqueValues(n, table.DefaultUniqueLimit), ", ") + "]"
			}
			fmt.Fprintln(out, line)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(columnsCmd)
	colLoad.register(columnsCmd)
	columnsCmd.Flags().StringVar(&colMatch, "match", "contains", "token match: contains|prefix|postfix")
	columnsCmd.Flags().BoolVar(&colAny, "any", false, "a column matches if any token matches (default: all tokens)")
	columnsCmd.Flags().BoolVar(&colCaseSensitive, "case-sensitive", false, "match tokens case sensitively")
	columnsCmd.Flags().BoolVar(&colUnique, "unique", false, "list distinct values of categorical columns")
}
