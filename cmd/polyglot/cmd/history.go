package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/polyglot/internal/history"
)

var errHistoryDisabled = errors.New("history is disabled (set history.enabled in the configuration)")

func newHistoryCmd(a *app) *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect and manage the translation history",
		Long: `Inspect and manage the local translation history.

Examples:
  polyglot history list --limit 5
  polyglot history search namaste
  polyglot history delete 6f1c...
  polyglot history clear --yes`,
	}
	historyCmd.PersistentFlags().StringP("format", "f", "text", "output format (text, json)")

	withStore := func(run func(cmd *cobra.Command, store *history.Store, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(a.outputFormat(cmd), "text", "json"); err != nil {
				return err
			}
			svc, err := buildServices(cmd.Context(), a.cfg, buildOptions{history: true})
			if err != nil {
				return err
			}
			defer func() { _ = svc.Close() }()
			if svc.history == nil {
				return errHistoryDisabled
			}
			return run(cmd, svc.history, args)
		}
	}

	limitOf := func(cmd *cobra.Command) int {
		if cmd.Flags().Changed("limit") {
			n, _ := cmd.Flags().GetInt("limit")
			return n
		}
		return a.cfg.History.DefaultLimit
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List the most recent translations",
		Args:  cobra.NoArgs,
		RunE: withStore(func(cmd *cobra.Command, store *history.Store, _ []string) error {
			entries, err := store.List(cmd.Context(), limitOf(cmd))
			if err != nil {
				return err
			}
			return printEntries(cmd.OutOrStdout(), entries, a.outputFormat(cmd))
		}),
	}
	listCmd.Flags().IntP("limit", "n", 20, "maximum number of entries")

	searchCmd := &cobra.Command{
		Use:   "search QUERY",
		Short: "Search source and translated texts",
		Args:  cobra.MinimumNArgs(1),
		RunE: withStore(func(cmd *cobra.Command, store *history.Store, args []string) error {
			entries, err := store.Search(cmd.Context(), strings.Join(args, " "), limitOf(cmd))
			if err != nil {
				return err
			}
			return printEntries(cmd.OutOrStdout(), entries, a.outputFormat(cmd))
		}),
	}
	searchCmd.Flags().IntP("limit", "n", 20, "maximum number of entries")

	deleteCmd := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete one entry",
		Args:  cobra.ExactArgs(1),
		RunE: withStore(func(cmd *cobra.Command, store *history.Store, args []string) error {
			if err := store.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return err
		}),
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every entry and conversation",
		Args:  cobra.NoArgs,
		RunE: withStore(func(cmd *cobra.Command, store *history.Store, _ []string) error {
			if yes, _ := cmd.Flags().GetBool("yes"); !yes {
				return errors.New("refusing to clear the history without --yes")
			}
			n, err := store.Clear(cmd.Context())
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d entries\n", n)
			return err
		}),
	}
	clearCmd.Flags().BoolP("yes", "y", false, "confirm clearing the history")

	historyCmd.AddCommand(listCmd, searchCmd, deleteCmd, clearCmd)
	return historyCmd
}

func printEntries(w io.Writer, entries []history.Entry, format string) error {
	if format == "json" {
		if entries == nil {
			entries = []history.Entry{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "No entries")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tWHEN\tLANGS\tTEXT\tTRANSLATION")
	for _, e := range entries {
		langs := e.SourceLang + ">" + e.TargetLang
		if e.Detected {
			langs += "*"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			e.ID, e.CreatedAt.Local().Format(time.DateTime), langs, clip(e.SourceText, 40), clip(e.TranslatedText, 40))
	}
	return tw.Flush()
}

// clip shortens s to n runes.
func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
