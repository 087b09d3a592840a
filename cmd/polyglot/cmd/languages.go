package cmd

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/polyglot/internal/catalog"
)

func newLanguagesCmd(a *app) *cobra.Command {
	languagesCmd := &cobra.Command{
		Use:   "languages",
		Short: "List the supported languages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format := a.outputFormat(cmd)
			if err := validateFormat(format, "text", "json"); err != nil {
				return err
			}
			cat, err := catalog.LoadExtensionsFile(catalog.Default(), a.cfg.Detection.CatalogFile)
			if err != nil {
				return err
			}

			langs := cat.All()
			if all, _ := cmd.Flags().GetBool("all"); !all {
				langs = cat.Real()
			}

			out := cmd.OutOrStdout()
			if format == "json" {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(langs)
			}
			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(tw, "CODE\tNAME\tNATIVE")
			for _, l := range langs {
				native := l.NativeName
				if l.RTL {
					native += " (rtl)"
				}
				_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", l.Code, l.Name, native)
			}
			return tw.Flush()
		},
	}
	languagesCmd.Flags().StringP("format", "f", "text", "output format (text, json)")
	languagesCmd.Flags().Bool("all", false, "include the auto-detect pseudo-language")
	return languagesCmd
}
