package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/admitguard/admitguard/internal/eligibility"
	"github.com/admitguard/admitguard/internal/models"
	"github.com/admitguard/admitguard/internal/observability/logging"
	otelobs "github.com/admitguard/admitguard/internal/observability/otel"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
	"gopkg.in/yaml.v3"
)

// evaluateCmd runs one candidate file through the engine
var evaluateCmd = &cobra.Command{
	Use:   "evaluate -c <candidate.yaml>",
	Short: "Evaluate a candidate against the current rules",
	Long: `Evaluates a candidate file (YAML or JSON) against the strict and soft
rules, optionally waiving soft rules with a rationale, and optionally submits
the decision to the audit log.

Examples:
  admitguard evaluate -c asha.yaml
  admitguard evaluate -c asha.yaml --override age,score \
    --rationale "Strong academic background and prior research experience"
  admitguard evaluate -c asha.yaml --submit --json`,
	SilenceUsage: true,
	RunE:         runEvaluate,
}

var (
	evalCandidateFlag string
	evalOverrideFlag  []string
	evalRationaleFlag string
	evalSubmitFlag    bool
	evalJSONFlag      bool
	evalAsOfFlag      string
)

func init() {
	evaluateCmd.Flags().StringVarP(&evalCandidateFlag, "candidate", "c", "", "Candidate file (YAML or JSON)")
	evaluateCmd.Flags().StringSliceVar(&evalOverrideFlag, "override", nil, "Soft rules to waive: age, graduationYear, score, testScore")
	evaluateCmd.Flags().StringVar(&evalRationaleFlag, "rationale", "", "Justification for the waived rules")
	evaluateCmd.Flags().BoolVar(&evalSubmitFlag, "submit", false, "Record the decision in the audit log")
	evaluateCmd.Flags().BoolVar(&evalJSONFlag, "json", false, "Output JSON")
	evaluateCmd.Flags().StringVar(&evalAsOfFlag, "as-of", "", "Date age is computed on, YYYY-MM-DD (default today); submissions are still stamped now")
	_ = evaluateCmd.MarkFlagRequired("candidate")
}

// GetEvaluateCmd export
func GetEvaluateCmd() *cobra.Command {
	return evaluateCmd
}

type evaluateOptions struct {
	Input     models.CandidateInput
	Overrides []string
	Rationale string
	Submit    bool
	JSON      bool
	AsOf      time.Time
}

// EvaluateOutput is the --json schema
type EvaluateOutput struct {
	Result models.EvaluationResult `json:"result"`
	Record *models.AuditRecord     `json:"record,omitempty"`
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	a, err := appFrom(cmd.Context())
	if err != nil {
		return err
	}

	input, err := loadCandidate(evalCandidateFlag)
	if err != nil {
		return err
	}

	opts := evaluateOptions{
		Input:     input,
		Overrides: evalOverrideFlag,
		Rationale: evalRationaleFlag,
		Submit:    evalSubmitFlag,
		JSON:      evalJSONFlag,
	}
	if evalAsOfFlag != "" {
		opts.AsOf, err = time.ParseInLocation(models.DateLayout, evalAsOfFlag, a.loc)
		if err != nil {
			return fmt.Errorf("invalid --as-of date: %w", err)
		}
	}

	return a.evaluate(cmd.Context(), cmd.OutOrStdout(), opts)
}

func (a *app) evaluate(ctx context.Context, out io.Writer, opts evaluateOptions) (err error) {
	log := logging.From(ctx)
	start := time.Now()

	ctx, span := otelobs.StartSpan(ctx, "admitguard.evaluate",
		attribute.Bool("admitguard.submit", opts.Submit),
		attribute.Int("admitguard.overrides", len(opts.Overrides)),
	)
	defer func() { otelobs.EndSpan(span, err) }()

	store, err := a.rulesStore()
	if err != nil {
		return err
	}

	var sessOpts []eligibility.SessionOption
	if !opts.AsOf.IsZero() {
		sessOpts = append(sessOpts, eligibility.WithAsOf(opts.AsOf))
	}
	sess := eligibility.NewSession(store, sessOpts...)

	if err := sess.Load(opts.Input); err != nil {
		return err
	}
	for _, key := range opts.Overrides {
		if !models.IsSoftKey(key) {
			return fmt.Errorf("%w: %q is not a soft rule", eligibility.ErrUnknownField, key)
		}
		if err := sess.SetOverride(key, true); err != nil {
			return err
		}
	}
	if err := sess.SetRationale(opts.Rationale); err != nil {
		return err
	}

	var record *models.AuditRecord
	if opts.Submit {
		auditLog, err := a.auditStore()
		if err != nil {
			return err
		}
		rec, err := submitSession(ctx, sess, auditLog)
		if err != nil {
			if !opts.JSON {
				fmt.Fprint(out, FormatEvaluation(sess.Result(), store.Current().Policy))
			}
			return err
		}
		record = &rec
	}

	result := sess.Result()
	span.SetAttributes(
		attribute.String("admitguard.outcome", string(result.Outcome)),
		attribute.Int("admitguard.exceptions_used", result.ExceptionsUsed),
	)
	log.Event(ctx, "evaluate.complete", map[string]any{
		"duration_ms":       time.Since(start).Milliseconds(),
		"outcome":           string(result.Outcome),
		"ready":             result.IsReadyToSubmit,
		"strict_violations": len(result.StrictViolations),
		"soft_violations":   len(result.SoftViolations),
		"exceptions_used":   result.ExceptionsUsed,
		"email":             logging.MaskEmail(opts.Input.Email),
		"phone":             logging.MaskID(opts.Input.Phone),
	})

	if opts.JSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(EvaluateOutput{Result: result, Record: record})
	}

	fmt.Fprint(out, FormatEvaluation(result, store.Current().Policy))
	if record != nil {
		fmt.Fprintf(out, "%s %s\n", green("Submitted:"), record.ID)
	}
	return nil
}

// submitSession closes sess into recorder under an admitguard.submit span
func submitSession(ctx context.Context, sess *eligibility.Session, recorder eligibility.Recorder) (rec models.AuditRecord, err error) {
	ctx, span := otelobs.StartSpan(ctx, "admitguard.submit")
	defer func() { otelobs.EndSpan(span, err) }()

	rec, err = sess.Submit(ctx, recorder)
	if err != nil {
		return rec, err
	}

	span.SetAttributes(
		attribute.String("admitguard.record_id", rec.ID),
		attribute.String("admitguard.outcome", string(rec.Outcome)),
		attribute.Int("admitguard.exceptions_used", rec.ExceptionsUsed),
		attribute.Bool("admitguard.manager_review", rec.ManagerReviewRequired),
		attribute.String("admitguard.rules_version", rec.RulesVersion),
	)
	logging.From(ctx).Event(ctx, "submit.complete", map[string]any{
		"record_id":       rec.ID,
		"outcome":         string(rec.Outcome),
		"exceptions_used": rec.ExceptionsUsed,
		"manager_review":  rec.ManagerReviewRequired,
		"email":           logging.MaskEmail(rec.Candidate.Email),
	})
	return rec, nil
}

// loadCandidate reads a YAML or JSON candidate file
func loadCandidate(path string) (models.CandidateInput, error) {
	// #nosec G304 -- path is operator-provided candidate file.
	data, err := os.ReadFile(path)
	if err != nil {
		return models.CandidateInput{}, fmt.Errorf("failed to read candidate file: %w", err)
	}
	var input models.CandidateInput
	if err := yaml.Unmarshal(data, &input); err != nil {
		return models.CandidateInput{}, fmt.Errorf("failed to parse candidate file: %w", err)
	}
	return input, nil
}
