package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/admitguard/admitguard/internal/models"
	"github.com/admitguard/admitguard/internal/observability"
	"github.com/admitguard/admitguard/internal/observability/logging"
	otelobs "github.com/admitguard/admitguard/internal/observability/otel"
	"github.com/admitguard/admitguard/internal/rules"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
	"gopkg.in/yaml.v3"
)

// rulesCmd group
var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Inspect and edit the rule configuration",
	Long: `Strict rules are fixed. Soft rule thresholds and the exception policy are
editable; every edit is validated as a whole and either saved completely or
rejected with every failing bound listed.`,
}

var rulesShowCmd = &cobra.Command{
	Use:          "show",
	Short:        "Print the current rule configuration",
	SilenceUsage: true,
	RunE:         runRulesShow,
}

var rulesSetCmd = &cobra.Command{
	Use:   "set -f <rules.yaml>",
	Short: "Replace the editable rules",
	Long: `Reads a YAML or JSON document of soft rules and exception policy. Keys
left out keep their current value; use "rules reset" to return to defaults.

Example:
  admitguard rules set -f rules.yaml
  admitguard rules set -f rules.yaml --dry-run`,
	SilenceUsage: true,
	RunE:         runRulesSet,
}

var rulesValidateCmd = &cobra.Command{
	Use:          "validate -f <rules.yaml>",
	Short:        "Check a rules file without saving it",
	SilenceUsage: true,
	RunE:         runRulesValidate,
}

var rulesHistoryCmd = &cobra.Command{
	Use:          "history",
	Short:        "List committed rule edits, most recent first",
	SilenceUsage: true,
	RunE:         runRulesHistory,
}

var rulesResetCmd = &cobra.Command{
	Use:          "reset",
	Short:        "Restore the built-in rules",
	SilenceUsage: true,
	RunE:         runRulesReset,
}

var (
	rulesJSONFlag   bool
	rulesStrictFlag bool
	rulesFileFlag   string
	rulesDryRunFlag bool
	rulesLimitFlag  int
)

func init() {
	rulesShowCmd.Flags().BoolVar(&rulesJSONFlag, "json", false, "Output JSON")
	rulesShowCmd.Flags().BoolVar(&rulesStrictFlag, "strict", false, "Also list the fixed strict rules")

	rulesSetCmd.Flags().StringVarP(&rulesFileFlag, "file", "f", "", "Rules file (YAML or JSON)")
	rulesSetCmd.Flags().BoolVar(&rulesDryRunFlag, "dry-run", false, "Show the changes without saving")
	_ = rulesSetCmd.MarkFlagRequired("file")

	rulesValidateCmd.Flags().StringVarP(&rulesFileFlag, "file", "f", "", "Rules file (YAML or JSON)")
	_ = rulesValidateCmd.MarkFlagRequired("file")

	rulesHistoryCmd.Flags().BoolVar(&rulesJSONFlag, "json", false, "Output JSON")
	rulesHistoryCmd.Flags().IntVar(&rulesLimitFlag, "limit", 0, "Show at most n entries (0 = all)")

	rulesCmd.AddCommand(rulesShowCmd, rulesSetCmd, rulesValidateCmd, rulesHistoryCmd, rulesResetCmd)
}

// GetRulesCmd export
func GetRulesCmd() *cobra.Command {
	return rulesCmd
}

func runRulesShow(cmd *cobra.Command, args []string) error {
	a, err := appFrom(cmd.Context())
	if err != nil {
		return err
	}
	store, err := a.rulesStore()
	if err != nil {
		return err
	}
	return showRules(cmd.OutOrStdout(), store.Current(), rulesJSONFlag, rulesStrictFlag)
}

func showRules(out io.Writer, schema *rules.Schema, asJSON, withStrict bool) error {
	t := schema.Tunables()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(t)
	}

	data, err := yaml.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to render rules: %w", err)
	}
	fmt.Fprintf(out, "%s\n%s", bold("Editable rules"), data)
	if withStrict {
		fmt.Fprintln(out)
		fmt.Fprint(out, FormatStrictRules(schema.Strict))
	}
	return nil
}

func runRulesSet(cmd *cobra.Command, args []string) error {
	a, err := appFrom(cmd.Context())
	if err != nil {
		return err
	}
	store, err := a.rulesStore()
	if err != nil {
		return err
	}
	proposed, err := readRulesFile(rulesFileFlag, store.Current().Tunables())
	if err != nil {
		return err
	}
	return commitRules(cmd.Context(), cmd.OutOrStdout(), store, a.journal(), "set", proposed, rulesDryRunFlag)
}

func runRulesValidate(cmd *cobra.Command, args []string) error {
	a, err := appFrom(cmd.Context())
	if err != nil {
		return err
	}
	store, err := a.rulesStore()
	if err != nil {
		return err
	}
	proposed, err := readRulesFile(rulesFileFlag, store.Current().Tunables())
	if err != nil {
		return err
	}
	return commitRules(cmd.Context(), cmd.OutOrStdout(), store, nil, "validate", proposed, true)
}

func runRulesReset(cmd *cobra.Command, args []string) error {
	a, err := appFrom(cmd.Context())
	if err != nil {
		return err
	}
	store, err := a.rulesStore()
	if err != nil {
		return err
	}
	return commitRules(cmd.Context(), cmd.OutOrStdout(), store, a.journal(), "reset", rules.DefaultTunables(), false)
}

// commitRules validates proposed against the store and, unless dryRun,
// swaps it in and records it in journal. A rejected edit prints every
// failing bound. journal may be nil.
func commitRules(ctx context.Context, out io.Writer, store *rules.Store, journal *rules.Journal, action string, proposed models.Tunables, dryRun bool) (err error) {
	log := logging.From(ctx)
	ctx, span := otelobs.StartSpan(ctx, "admitguard.rules.set",
		attribute.String("admitguard.action", action),
		attribute.Bool("admitguard.dry_run", dryRun),
	)
	defer func() { otelobs.EndSpan(span, err) }()

	from := store.Current().Version

	var changes []rules.Change
	if dryRun {
		changes, err = store.Check(proposed)
	} else {
		changes, err = store.Commit(proposed)
	}

	var cfgErr *rules.ConfigError
	if errors.As(err, &cfgErr) {
		log.Event(ctx, "rules.rejected", map[string]any{"fields": cfgErr.Fields})
		fmt.Fprint(out, FormatConfigError(cfgErr))
		return err
	}
	if err != nil {
		return err
	}

	span.SetAttributes(attribute.Int("admitguard.changes", len(changes)))
	if dryRun {
		fmt.Fprintf(out, "%s\n", green("Rule configuration is valid."))
		fmt.Fprint(out, FormatChanges(changes))
		return nil
	}

	to := store.Current().Version
	if journal != nil && len(changes) > 0 {
		entry := rules.JournalEntry{
			OpID:      observability.OpID(ctx),
			Timestamp: time.Now().UTC(),
			Action:    action,
			From:      from,
			To:        to,
			Changes:   changes,
		}
		if jerr := journal.Append(entry); jerr != nil {
			log.Warn("rules", "failed to journal rule edit", "error", jerr.Error())
		}
	}

	summaries := make([]string, 0, len(changes))
	for _, c := range changes {
		summaries = append(summaries, c.Summary)
	}
	log.Event(ctx, "rules.commit", map[string]any{
		"action":  action,
		"from":    from,
		"to":      to,
		"changes": summaries,
	})
	fmt.Fprintf(out, "%s\n", green("Rule configuration saved."))
	fmt.Fprint(out, FormatChanges(changes))
	return nil
}

func runRulesHistory(cmd *cobra.Command, args []string) error {
	a, err := appFrom(cmd.Context())
	if err != nil {
		return err
	}
	entries, err := a.journal().Entries()
	if err != nil {
		return err
	}
	if rulesLimitFlag > 0 && len(entries) > rulesLimitFlag {
		entries = entries[:rulesLimitFlag]
	}
	if rulesJSONFlag {
		return writeJSON(cmd.OutOrStdout(), entries)
	}
	fmt.Fprint(cmd.OutOrStdout(), FormatHistory(entries, a.loc))
	return nil
}

// readRulesFile overlays a proposal on current, so omitted keys are unchanged
func readRulesFile(path string, current models.Tunables) (models.Tunables, error) {
	// #nosec G304 -- path is operator-provided rules file.
	data, err := os.ReadFile(path)
	if err != nil {
		return models.Tunables{}, fmt.Errorf("failed to read rules file: %w", err)
	}
	return rules.MergeOver(current, data)
}
