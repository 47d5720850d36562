package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/recon-cli/internal/schema"
)

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Suggest a column mapping for a gold and growth file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		gold, _ := cmd.Flags().GetString("gold")
		growth, _ := cmd.Flags().GetString("growth")
		asJSON, _ := cmd.Flags().GetBool("json")

		p, err := schema.PreviewFiles(cmd.Context(), gold, growth, schemaOptions(), loaderOptions())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if asJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(p)
		}
		formatPreview(out, p)
		return nil
	},
}

func init() {
	previewCmd.Flags().String("gold", "", "path to the gold extract (csv or xlsx)")
	previewCmd.Flags().String("growth", "", "path to the growth extract (csv or xlsx)")
	previewCmd.Flags().Bool("json", false, "print the full preview as JSON")
	_ = previewCmd.MarkFlagRequired("gold")
	_ = previewCmd.MarkFlagRequired("growth")
	rootCmd.AddCommand(previewCmd)
}

// formatPreview writes the suggested mapping and any type warnings to w.
func formatPreview(out io.Writer, p *schema.Preview) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "FIELD\tGOLD\tGROWTH\tMETHOD\tAUTO")
	for _, s := range p.SuggestedMappings {
		auto := ""
		if s.AutoMatched {
			auto = "yes"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			s.Target, orDash(s.GoldColumn), orDash(s.GrowthColumn), s.Method, auto)
	}
	_ = w.Flush()

	for _, warn := range p.Warnings {
		_, _ = fmt.Fprintf(out, "warning: %s %s column %q: %s\n", warn.Target, warn.Side, warn.Column, warn.Message)
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
