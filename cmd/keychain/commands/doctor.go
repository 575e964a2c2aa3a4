package commands

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/systmms/keychain/internal/vault/keyring"
	"github.com/systmms/keychain/pkg/keychain"
)

// probeAccount is looked up, never written, to check the backend answers.
const probeAccount = "keychain-doctor-probe"

func NewDoctorCommand(rt *Runtime) *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration and backend availability",
		Long: `Verify that keychain can work in this session.

This command checks:
- Configuration file validity
- Whether an OS keyring is expected to be reachable (desktop session,
  Secret Service bus, SSH or CI sessions)
- That the configured backend answers a lookup

No item is created or modified.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			var checks []Check

			if err := rt.Load(); err != nil {
				checks = append(checks, Check{Name: "config", Status: "error", Message: err.Error()})
				displayChecks(out, checks, verbose)
				return fmt.Errorf("configuration check failed")
			}
			def := rt.Config.Definition
			checks = append(checks, Check{
				Name:    "config",
				Status:  "healthy",
				Message: fmt.Sprintf("service %q, backend %s", def.Service, def.Backend),
			})

			env := keyring.DetectEnvironment()
			session := Check{Name: "session", Status: "healthy", Message: "platform " + env.Platform}
			if def.Backend == "keyring" && !env.Available {
				session.Status = "warning"
				session.Message = fmt.Sprintf("no OS keyring expected on %s", env.Platform)
				session.Suggestions = append(session.Suggestions, "Start a desktop session or a Secret Service daemon, or use --backend memory")
			}
			if env.Headless {
				session.Suggestions = append(session.Suggestions, "Headless session: prompts for user presence can not be shown")
			}
			checks = append(checks, session)

			checks = append(checks, probeBackend(cmd, rt))
			displayChecks(out, checks, verbose)

			healthy := 0
			for _, c := range checks {
				if c.Status != "error" {
					healthy++
				}
			}
			_, _ = fmt.Fprintf(out, "\nSummary: %d/%d checks passed\n", healthy, len(checks))
			if healthy < len(checks) {
				return fmt.Errorf("some checks failed")
			}
			rt.Config.Logger.Info("All systems operational!")
			return nil
		},
	}

	cmd.Flags().BoolVar(&verbose, "verbose", false, "Show suggestions for every check")

	return cmd
}

// Check is the result of one doctor check.
type Check struct {
	Name        string
	Status      string // healthy, warning, error
	Message     string
	Suggestions []string
}

func probeBackend(cmd *cobra.Command, rt *Runtime) Check {
	check := Check{Name: "backend", Status: "healthy", Message: "lookup succeeded"}

	client, err := rt.Client()
	if err != nil {
		check.Status = "error"
		check.Message = err.Error()
		return check
	}

	_, err = client.Exists(cmd.Context(), keychain.GenericPasswordItem(probeAccount, nil))
	if err == nil {
		return check
	}

	check.Status = "error"
	check.Message = err.Error()
	if status, ok := keychain.StatusOf(err); ok {
		switch status {
		case keychain.StatusNotAvailable, keychain.StatusUnimplemented:
			check.Suggestions = append(check.Suggestions, "The OS keyring is not reachable. Use --backend memory for testing")
		case keychain.StatusUserCanceled, keychain.StatusAuthFailed:
			check.Suggestions = append(check.Suggestions, "Unlock the keyring and approve access for this program")
		}
	}
	return check
}

// displayChecks shows check results in a formatted table
func displayChecks(out io.Writer, checks []Check, verbose bool) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	_, _ = fmt.Fprintf(w, "CHECK\tSTATUS\tMESSAGE\n")
	_, _ = fmt.Fprintf(w, "-----\t------\t-------\n")

	for _, c := range checks {
		status := c.Status
		switch c.Status {
		case "healthy":
			status = "✓ " + status
		case "warning":
			status = "⚠ " + status
		case "error":
			status = "✗ " + status
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", c.Name, status, c.Message)
	}
	_ = w.Flush()

	for _, c := range checks {
		if len(c.Suggestions) == 0 || (!verbose && c.Status == "healthy") {
			continue
		}
		_, _ = fmt.Fprintf(out, "\n%s:\n", c.Name)
		for _, s := range c.Suggestions {
			_, _ = fmt.Fprintf(out, "  💡 %s\n", s)
		}
	}
}
