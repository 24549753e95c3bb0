package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/admitguard/admitguard/internal/audit"
	"github.com/admitguard/admitguard/internal/observability/logging"
	otelobs "github.com/admitguard/admitguard/internal/observability/otel"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
)

// auditCmd group
var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Browse, export and clear the audit log",
}

var auditListCmd = &cobra.Command{
	Use:          "list",
	Short:        "List submitted decisions, most recent first",
	SilenceUsage: true,
	RunE:         runAuditList,
}

var auditShowCmd = &cobra.Command{
	Use:          "show <id>",
	Short:        "Show one audit record",
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE:         runAuditShow,
}

var auditExportCmd = &cobra.Command{
	Use:   "export --format csv|json",
	Short: "Export the audit log",
	Long: `Exports the whole audit log. csv writes one row per record with every
field; json writes a summary of timestamp, candidate, outcome, exception
count and manager-review flag.

Example:
  admitguard audit export --format csv -o decisions.csv`,
	SilenceUsage: true,
	RunE:         runAuditExport,
}

var auditStatsCmd = &cobra.Command{
	Use:          "stats",
	Short:        "Summarize outcomes",
	SilenceUsage: true,
	RunE:         runAuditStats,
}

var auditClearCmd = &cobra.Command{
	Use:          "clear --yes",
	Short:        "Delete every audit record",
	SilenceUsage: true,
	RunE:         runAuditClear,
}

var (
	auditSearchFlag string
	auditLimitFlag  int
	auditJSONFlag   bool
	auditFormatFlag string
	auditOutputFlag string
	auditYesFlag    bool
)

func init() {
	auditListCmd.Flags().StringVar(&auditSearchFlag, "search", "", "Filter by name, email or id")
	auditListCmd.Flags().IntVar(&auditLimitFlag, "limit", 0, "Show at most n records (0 = all)")
	auditListCmd.Flags().BoolVar(&auditJSONFlag, "json", false, "Output JSON")
	auditShowCmd.Flags().BoolVar(&auditJSONFlag, "json", false, "Output JSON")
	auditStatsCmd.Flags().BoolVar(&auditJSONFlag, "json", false, "Output JSON")
	auditExportCmd.Flags().StringVar(&auditFormatFlag, "format", "csv", "Export format: csv or json")
	auditExportCmd.Flags().StringVarP(&auditOutputFlag, "output", "o", "", "Write to file (default: stdout)")
	auditClearCmd.Flags().BoolVar(&auditYesFlag, "yes", false, "Confirm deletion of the entire log")

	auditCmd.AddCommand(auditListCmd, auditShowCmd, auditExportCmd, auditStatsCmd, auditClearCmd)
}

// GetAuditCmd export
func GetAuditCmd() *cobra.Command {
	return auditCmd
}

func openAudit(cmd *cobra.Command) (*app, *audit.FileStore, error) {
	a, err := appFrom(cmd.Context())
	if err != nil {
		return nil, nil, err
	}
	store, err := a.auditStore()
	if err != nil {
		return nil, nil, err
	}
	return a, store, nil
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runAuditList(cmd *cobra.Command, args []string) error {
	a, store, err := openAudit(cmd)
	if err != nil {
		return err
	}
	records, err := store.List(cmd.Context())
	if err != nil {
		return err
	}

	records = audit.Search(records, auditSearchFlag)
	if auditLimitFlag > 0 && len(records) > auditLimitFlag {
		records = records[:auditLimitFlag]
	}

	if auditJSONFlag {
		return writeJSON(cmd.OutOrStdout(), records)
	}
	fmt.Fprint(cmd.OutOrStdout(), FormatRecordList(records, a.loc))
	return nil
}

func runAuditShow(cmd *cobra.Command, args []string) error {
	a, store, err := openAudit(cmd)
	if err != nil {
		return err
	}
	records, err := store.List(cmd.Context())
	if err != nil {
		return err
	}

	rec, ok := audit.Find(records, args[0])
	if !ok {
		return fmt.Errorf("audit record not found: %s", args[0])
	}
	if auditJSONFlag {
		return writeJSON(cmd.OutOrStdout(), rec)
	}
	fmt.Fprint(cmd.OutOrStdout(), FormatRecord(rec, a.loc))
	return nil
}

func runAuditStats(cmd *cobra.Command, args []string) error {
	_, store, err := openAudit(cmd)
	if err != nil {
		return err
	}
	records, err := store.List(cmd.Context())
	if err != nil {
		return err
	}

	stats := audit.ComputeStats(records)
	if auditJSONFlag {
		return writeJSON(cmd.OutOrStdout(), stats)
	}
	fmt.Fprint(cmd.OutOrStdout(), FormatStats(stats))
	return nil
}

func runAuditExport(cmd *cobra.Command, args []string) error {
	a, store, err := openAudit(cmd)
	if err != nil {
		return err
	}

	format := strings.ToLower(auditFormatFlag)
	if format != "csv" && format != "json" {
		return fmt.Errorf("invalid format: %s (use csv or json)", auditFormatFlag)
	}

	var n int
	if auditOutputFlag != "" {
		n, err = exportAuditFile(cmd.Context(), auditOutputFlag, store, a.loc, format)
	} else {
		n, err = exportAudit(cmd.Context(), cmd.OutOrStdout(), store, a.loc, format)
	}
	if errors.Is(err, audit.ErrEmptyLog) {
		return errors.New("no audit records to export")
	}
	if err != nil {
		return err
	}
	if auditOutputFlag != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d records to %s\n", n, auditOutputFlag)
	}
	return nil
}

// exportAuditFile writes the export next to path and renames it into place,
// so a failed or empty export leaves an existing file untouched
func exportAuditFile(ctx context.Context, path string, store audit.Store, loc *time.Location, format string) (n int, err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return 0, fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	n, err = exportAudit(ctx, tmp, store, loc, format)
	if err != nil {
		return 0, err
	}
	if err = tmp.Close(); err != nil {
		return 0, fmt.Errorf("failed to write output file: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return 0, fmt.Errorf("failed to write output file: %w", err)
	}
	return n, nil
}

func exportAudit(ctx context.Context, out io.Writer, store audit.Store, loc *time.Location, format string) (n int, err error) {
	ctx, span := otelobs.StartSpan(ctx, "admitguard.audit.export", attribute.String("admitguard.format", format))
	defer func() { otelobs.EndSpan(span, err) }()

	records, err := store.List(ctx)
	if err != nil {
		return 0, err
	}

	switch format {
	case "json":
		err = audit.WriteSummaryJSON(out, records, loc)
	default:
		err = audit.WriteCSV(out, records, loc)
	}
	if err != nil {
		return 0, err
	}

	span.SetAttributes(attribute.Int("admitguard.records", len(records)))
	logging.From(ctx).Event(ctx, "audit.export", map[string]any{
		"format":  format,
		"records": len(records),
	})
	return len(records), nil
}

func runAuditClear(cmd *cobra.Command, args []string) error {
	if !auditYesFlag {
		return errors.New("refusing to clear the audit log without --yes")
	}
	_, store, err := openAudit(cmd)
	if err != nil {
		return err
	}
	return clearAudit(cmd.Context(), cmd.OutOrStdout(), store)
}

func clearAudit(ctx context.Context, out io.Writer, store audit.Store) error {
	// count only; an unreadable log can still be cleared
	records, _ := store.List(ctx)
	if err := store.Clear(ctx); err != nil {
		return err
	}
	logging.From(ctx).Event(ctx, "audit.clear", map[string]any{"records": len(records)})
	fmt.Fprintf(out, "Cleared %d audit records.\n", len(records))
	return nil
}
