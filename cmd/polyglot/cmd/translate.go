package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/polyglot/internal/pipeline"
	"github.com/MeKo-Tech/polyglot/internal/resolve"
)

func newTranslateCmd(a *app) *cobra.Command {
	translateCmd := &cobra.Command{
		Use:   "translate [text|-]",
		Short: "Translate a text",
		Long: `Translate a text with the configured provider.

With --from auto (the default) the source language is detected first. Text
whose language cannot be determined is not translated: the command prints
what it could tell and exits with status 2, so the caller can retry with an
explicit --from.

Examples:
  polyglot translate --to en "bonjour mon ami"
  polyglot translate --from hi --to en "kya haal hai"
  cat note.txt | polyglot translate --to de --format json -`,
		RunE: func(cmd *cobra.Command, args []string) error {
			format := a.outputFormat(cmd)
			if err := validateFormat(format, pipeline.FormatText, pipeline.FormatJSON, pipeline.FormatCSV); err != nil {
				return err
			}
			text, err := readText(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}

			noHistory, _ := cmd.Flags().GetBool("no-history")
			svc, err := buildServices(cmd.Context(), a.cfg, buildOptions{history: !noHistory})
			if err != nil {
				return err
			}
			defer func() { _ = svc.Close() }()

			from, _ := cmd.Flags().GetString("from")
			to, _ := cmd.Flags().GetString("to")

			res, err := svc.pipeline.Translate(cmd.Context(), pipeline.Request{Text: text, Source: from, Target: to})
			if err != nil {
				if errors.Is(err, resolve.ErrAmbiguous) && res != nil {
					_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "could not detect the source language (best guess: %s); use --from\n", res.Source)
				}
				return err
			}

			out, err := pipeline.FormatResult(res, format)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), out)
			return err
		},
	}

	translateCmd.Flags().String("from", "auto", "source language code, or auto")
	translateCmd.Flags().String("to", "", "target language code")
	translateCmd.Flags().StringP("format", "f", "text", "output format (text, json, csv)")
	translateCmd.Flags().Bool("no-history", false, "do not record this translation")
	_ = translateCmd.MarkFlagRequired("to")
	return translateCmd
}
