package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	inspectView  viewFlags
	inspectPixel string
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <file>",
	Short: "Show the table row rendered at a mesh pixel",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pt, err := parsePixel(inspectPixel)
		if err != nil {
			return err
		}
		p, err := inspectView.build(cmd, args[0])
		if err != nil {
			return err
		}
		p.Run()
		out := cmd.OutOrStdout()
		row, ok := p.HitTest(pt.X, pt.Y)
		if !ok {
			fmt.Fprintf(out, "No row at pixel (%d,%d)\n", pt.X, pt.Y)
			return nil
		}
		t := p.Table()
		hl := ""
		if p.Highlights().Contains(uint32(row)) {
			hl = " [highlighted]"
		}
		fmt.Fprintf(out, "Pixel (%d,%d) → row %d%s\n", pt.X, pt.Y, row+1, hl)
		width := 0
		for _, h := range t.Headers() {
			width = max(width, len(h))
		}
		for _, h := range t.Headers() {
			fmt.Fprintf(out, "  %-*s  %s\n", width, h, t.Get(h, row))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectView.register(inspectCmd)
	inspectCmd.Flags().StringVar(&inspectPixel, "pixel", "", "mesh pixel px,py to resolve")
	_ = inspectCmd.MarkFlagRequired("pixel")
}
