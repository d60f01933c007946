package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/pcview/internal/table"
	"github.com/KaramelBytes/pcview/internal/utils"
)

var (
	descLoad       loadFlags
	descOutputPath string
	descSampleRows int
)

var describeCmd = &cobra.Command{
	Use:     "describe <file>",
	Aliases: []string{"analyze"},
	Short:   "Summarize a CSV/TSV/XLSX table: column kinds, measures and samples",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := descLoad.load(cmd, args[0])
		if err != nil {
			return err
		}
		md := table.Describe(t, descSampleRows).Markdown()

		if descOutputPath != "" {
			if err := utils.SafeWriteFile(descOutputPath, []byte(md)); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote summary to %s\n", descOutputPath)
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), md)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(describeCmd)
	descLoad.register(describeCmd)
	describeCmd.Flags().StringVarP(&descOutputPath, "output", "o", "", "optional path to write the summary (Markdown)")
	describeCmd.Flags().IntVar(&descSampleRows, "sample-rows", 5, "number of sample rows to include")
}
