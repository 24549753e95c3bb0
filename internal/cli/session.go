package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/admitguard/admitguard/internal/eligibility"
	"github.com/admitguard/admitguard/internal/models"
	"github.com/spf13/cobra"
)

// sessionCmd is the interactive, field-by-field evaluation loop
var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Evaluate a candidate interactively",
	Long: `Starts an interactive session. Every change re-runs the full evaluation
and prints the current status. Type "help" for commands.

Example:
  admitguard session
  > load asha.yaml
  > set testScore 42
  > override testScore
  > rationale Referral from a faculty member with strong project experience
  > submit`,
	SilenceUsage: true,
	RunE:         runSession,
}

// GetSessionCmd export
func GetSessionCmd() *cobra.Command {
	return sessionCmd
}

func runSession(cmd *cobra.Command, args []string) error {
	a, err := appFrom(cmd.Context())
	if err != nil {
		return err
	}
	store, err := a.rulesStore()
	if err != nil {
		return err
	}
	auditLog, err := a.auditStore()
	if err != nil {
		return err
	}

	repl := &sessionREPL{
		sess:  eligibility.NewSession(store),
		log:   auditLog,
		out:   cmd.OutOrStdout(),
		rules: store,
	}
	return repl.run(cmd.Context(), cmd.InOrStdin())
}

const sessionHelp = `Commands:
  set <field> <value>     set a candidate field (empty value clears it)
  load <file>             load a candidate file
  override <rule> [on|off] toggle a soft rule exception
  rationale <text>        set the exception rationale
  show                    print the full evaluation
  fields                  list field names
  submit                  record the decision in the audit log
  reset                   start a new candidate
  quit                    leave without submitting
`

type sessionREPL struct {
	sess  *eligibility.Session
	log   eligibility.Recorder
	out   io.Writer
	rules eligibility.SchemaSource
}

func (r *sessionREPL) run(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	fmt.Fprintln(r.out, "admitguard session. Type \"help\" for commands.")
	r.prompt()

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			r.prompt()
			continue
		}
		verb, rest, _ := strings.Cut(line, " ")
		rest = strings.TrimSpace(rest)

		if verb == "quit" || verb == "exit" {
			return nil
		}
		if err := r.dispatch(ctx, verb, rest); err != nil {
			fmt.Fprintf(r.out, "%s %v\n", red("error:"), err)
		}
		r.prompt()
	}
	return scanner.Err()
}

func (r *sessionREPL) prompt() {
	fmt.Fprintf(r.out, "%s\n> ", FormatStatus(r.sess.State(), r.sess.Result()))
}

func (r *sessionREPL) dispatch(ctx context.Context, verb, rest string) error {
	switch verb {
	case "help":
		fmt.Fprint(r.out, sessionHelp)
	case "fields":
		fields := make([]string, 0, 12)
		for f := range r.sess.Input().Fields() {
			fields = append(fields, f)
		}
		sort.Strings(fields)
		fmt.Fprintln(r.out, strings.Join(fields, ", "))
	case "set":
		field, value, _ := strings.Cut(rest, " ")
		if field == "" {
			return errors.New("usage: set <field> <value>")
		}
		return r.sess.SetField(field, strings.TrimSpace(value))
	case "load":
		if rest == "" {
			return errors.New("usage: load <file>")
		}
		input, err := loadCandidate(rest)
		if err != nil {
			return err
		}
		return r.sess.Load(input)
	case "override":
		key, mode, _ := strings.Cut(rest, " ")
		if !models.IsSoftKey(key) {
			return fmt.Errorf("%w: %q is not a soft rule (%s)", eligibility.ErrUnknownField, key, strings.Join(models.SoftKeys, ", "))
		}
		switch strings.TrimSpace(mode) {
		case "":
			return r.sess.ToggleOverride(key)
		case "on":
			return r.sess.SetOverride(key, true)
		case "off":
			return r.sess.SetOverride(key, false)
		default:
			return errors.New("usage: override <rule> [on|off]")
		}
	case "rationale":
		return r.sess.SetRationale(rest)
	case "show":
		fmt.Fprint(r.out, FormatEvaluation(r.sess.Result(), r.rules.Current().Policy))
	case "submit":
		rec, err := submitSession(ctx, r.sess, r.log)
		if err != nil {
			return err
		}
		fmt.Fprintf(r.out, "%s %s (%s)\n", green("Submitted:"), rec.ID, rec.Outcome.Label())
		if rec.ManagerReviewRequired {
			fmt.Fprintf(r.out, "%s %s\n", yellow("Manager review required:"), rec.ManagerReviewMessage)
		}
	case "reset":
		r.sess.Reset()
	default:
		return fmt.Errorf("unknown command %q (type \"help\")", verb)
	}
	return nil
}
