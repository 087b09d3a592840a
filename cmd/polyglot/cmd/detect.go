package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/polyglot/internal/detect"
	"github.com/MeKo-Tech/polyglot/internal/resolve"
)

// detectOutput is the JSON shape of `polyglot detect`.
type detectOutput struct {
	detect.Result
	Resolution *resolve.Resolution `json:"resolution,omitempty"`
	Ambiguous  bool                `json:"ambiguous,omitempty"`
}

func newDetectCmd(a *app) *cobra.Command {
	detectCmd := &cobra.Command{
		Use:   "detect [text|-]",
		Short: "Detect the language of a text",
		Long: `Detect the language of a text with the local heuristics.

The text is taken from the arguments, or read from stdin when no argument
or "-" is given. With --resolve, text that no rule recognises is sent to the
configured remote detector; if that cannot tell either, the command reports
the text as ambiguous and exits with status 2.

Examples:
  polyglot detect "namaste dost"
  echo "Guten Tag, danke" | polyglot detect -
  polyglot detect --resolve --explain --format json "xyz123"
  polyglot detect --rules`,
		RunE: func(cmd *cobra.Command, args []string) error {
			format := a.outputFormat(cmd)
			if err := validateFormat(format, "text", "json"); err != nil {
				return err
			}

			svc, err := buildServices(cmd.Context(), a.cfg, buildOptions{})
			if err != nil {
				return err
			}
			defer func() { _ = svc.Close() }()

			out := cmd.OutOrStdout()
			if rules, _ := cmd.Flags().GetBool("rules"); rules {
				return printRules(out, svc.detector.Rules(), format)
			}

			text, err := readText(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}

			resolveFlag, _ := cmd.Flags().GetBool("resolve")
			explain, _ := cmd.Flags().GetBool("explain")

			result := detectOutput{Result: svc.detector.Classify(text)}
			var resolveErr error
			if resolveFlag {
				resolution, err := svc.resolver.Resolve(cmd.Context(), text)
				result.Resolution = &resolution
				if err != nil {
					if !errors.Is(err, resolve.ErrAmbiguous) {
						return err
					}
					result.Ambiguous = true
					resolveErr = fmt.Errorf("%w; pass the source language explicitly", err)
				}
			}

			if err := printDetection(out, result, format, explain); err != nil {
				return err
			}
			return resolveErr
		},
	}

	detectCmd.Flags().Bool("resolve", false, "consult the remote detector when no rule fires")
	detectCmd.Flags().Bool("explain", false, "show the tier and rule that decided")
	detectCmd.Flags().Bool("rules", false, "list the detection rules in evaluation order and exit")
	detectCmd.Flags().StringP("format", "f", "text", "output format (text, json)")
	return detectCmd
}

func printDetection(w io.Writer, r detectOutput, format string, explain bool) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}

	lang := r.Language
	if r.Resolution != nil {
		lang = r.Resolution.Language
	}
	if !explain {
		if r.Ambiguous {
			_, err := fmt.Fprintf(w, "%s (ambiguous)\n", lang.Code)
			return err
		}
		_, err := fmt.Fprintln(w, lang.Code)
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)
	_, _ = fmt.Fprintf(tw, "language:\t%s\n", lang)
	_, _ = fmt.Fprintf(tw, "tier:\t%s\n", r.Tier)
	_, _ = fmt.Fprintf(tw, "rule:\t%s\n", r.Rule)
	if r.Resolution != nil {
		_, _ = fmt.Fprintf(tw, "method:\t%s\n", r.Resolution.Method)
		if r.Resolution.RemoteCode != "" {
			_, _ = fmt.Fprintf(tw, "remote:\t%s\n", r.Resolution.RemoteCode)
		}
	}
	if r.Ambiguous {
		_, _ = fmt.Fprintf(tw, "ambiguous:\ttrue\n")
	}
	return tw.Flush()
}

func printRules(w io.Writer, rules []detect.RuleInfo, format string) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rules)
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "#\tTIER\tRULE\tLANGUAGE")
	for i, r := range rules {
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", i+1, r.Tier, r.Name, r.Code)
	}
	return tw.Flush()
}
