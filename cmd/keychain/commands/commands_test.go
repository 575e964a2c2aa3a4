package commands

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/keychain/internal/config"
	dserrors "github.com/systmms/keychain/internal/errors"
	"github.com/systmms/keychain/internal/logging"
	"github.com/systmms/keychain/pkg/keychain"
)

// newTestRuntime returns a runtime backed by the memory vault. Commands
// created from the same runtime share the vault.
func newTestRuntime(t *testing.T, yaml string) (*Runtime, *bytes.Buffer) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "keychain.yaml")
	if yaml != "" {
		require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
	}

	logs := &bytes.Buffer{}
	rt := NewRuntime(&config.Config{
		Path:   path,
		Logger: logging.NewWithWriter(logs, false, true),
	})
	rt.Backend = "memory"
	return rt, logs
}

func execute(t *testing.T, cmd *cobra.Command, stdin string, args ...string) (string, error) {
	t.Helper()

	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	err := cmd.Execute()
	return out.String(), err
}

const testConfig = `version: 0
service: com.example.cli
`

func TestSetGetRoundTrip(t *testing.T) {
	t.Parallel()

	rt, logs := newTestRuntime(t, testConfig)

	_, err := execute(t, NewSetCommand(rt), "s3cr3t\n", "--account", "alice")
	require.NoError(t, err)
	assert.Contains(t, logs.String(), `Stored generic item "alice"`)
	assert.NotContains(t, logs.String(), "s3cr3t")

	out, err := execute(t, NewGetCommand(rt), "", "--account", "alice")
	require.NoError(t, err)
	assert.Equal(t, "s3cr3t", out, "one trailing newline is dropped")
}

func TestSetValueFlag(t *testing.T) {
	t.Parallel()

	rt, _ := newTestRuntime(t, testConfig)

	_, err := execute(t, NewSetCommand(rt), "ignored", "--account", "bob", "--value", "line\n")
	require.NoError(t, err)

	out, err := execute(t, NewGetCommand(rt), "", "--account", "bob")
	require.NoError(t, err)
	assert.Equal(t, "line\n", out, "--value is stored verbatim")
}

func TestSetOverwritesAndKeepsInnerNewlines(t *testing.T) {
	t.Parallel()

	rt, _ := newTestRuntime(t, testConfig)

	_, err := execute(t, NewSetCommand(rt), "first", "--account", "a")
	require.NoError(t, err)
	_, err = execute(t, NewSetCommand(rt), "two\nlines\n\n", "--account", "a", "--accessibility", "afterFirstUnlock")
	require.NoError(t, err)

	out, err := execute(t, NewGetCommand(rt), "", "--account", "a")
	require.NoError(t, err)
	assert.Equal(t, "two\nlines\n", out)
}

func TestSetInvalidAccessControl(t *testing.T) {
	t.Parallel()

	rt, _ := newTestRuntime(t, testConfig)

	_, err := execute(t, NewSetCommand(rt), "x", "--account", "a", "--accessibility", "sometimes")
	var cfgErr dserrors.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "accessibility", cfgErr.Field)

	_, err = execute(t, NewSetCommand(rt), "x", "--account", "a", "--flags", "userPresence,maybe")
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "flags", cfgErr.Field)
}

func TestAccountRequired(t *testing.T) {
	t.Parallel()

	rt, _ := newTestRuntime(t, testConfig)

	for name, cmd := range map[string]*cobra.Command{
		"get":    NewGetCommand(rt),
		"set":    NewSetCommand(rt),
		"exists": NewExistsCommand(rt),
	} {
		_, err := execute(t, cmd, "x")
		var userErr dserrors.UserError
		require.ErrorAs(t, err, &userErr, name)
		assert.Equal(t, "Account is required", userErr.Message, name)
	}
}

func TestGetNotFound(t *testing.T) {
	t.Parallel()

	rt, _ := newTestRuntime(t, testConfig)

	_, err := execute(t, NewGetCommand(rt), "", "--account", "nobody")
	var userErr dserrors.UserError
	require.ErrorAs(t, err, &userErr)
	assert.Equal(t, "keychain get failed", userErr.Message)
	assert.Contains(t, userErr.Suggestion, "keychain exists")
}

func TestGetJSON(t *testing.T) {
	t.Parallel()

	rt, _ := newTestRuntime(t, testConfig+"access_group: team\n")

	_, err := execute(t, NewSetCommand(rt), "hunter2", "--account", "alice", "--class", "internet")
	require.NoError(t, err)
	_, err = execute(t, NewSetCommand(rt), "", "--account", "blob", "--value", "\xff\xfe")
	require.NoError(t, err)

	out, err := execute(t, NewGetCommand(rt), "", "--account", "alice", "--class", "internet", "--json")
	require.NoError(t, err)

	var got map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, map[string]string{
		"service":      "com.example.cli",
		"access_group": "team",
		"account":      "alice",
		"class":        "internet",
		"value":        "hunter2",
	}, got)

	out, err = execute(t, NewGetCommand(rt), "", "--account", "blob", "--json")
	require.NoError(t, err)
	got = nil
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "//4=", got["value"])
	assert.Equal(t, "base64", got["encoding"])
}

func TestExists(t *testing.T) {
	t.Parallel()

	rt, _ := newTestRuntime(t, testConfig)

	out, err := execute(t, NewExistsCommand(rt), "", "--account", "a")
	require.NoError(t, err)
	assert.Equal(t, "false\n", out)

	_, err = execute(t, NewSetCommand(rt), "x", "--account", "a")
	require.NoError(t, err)

	out, err = execute(t, NewExistsCommand(rt), "", "--account", "a")
	require.NoError(t, err)
	assert.Equal(t, "true\n", out)

	out, err = execute(t, NewExistsCommand(rt), "", "--account", "a", "--quiet")
	require.NoError(t, err)
	assert.Empty(t, out)

	_, err = execute(t, NewExistsCommand(rt), "", "--account", "b", "-q")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDelete(t *testing.T) {
	t.Parallel()

	rt, _ := newTestRuntime(t, testConfig)

	for _, account := range []string{"a", "b", "c"} {
		_, err := execute(t, NewSetCommand(rt), account, "--account", account)
		require.NoError(t, err)
	}

	_, err := execute(t, NewDeleteCommand(rt), "", "--account", "a")
	require.NoError(t, err)
	_, err = execute(t, NewDeleteCommand(rt), "", "--account", "a")
	require.NoError(t, err, "deleting a missing item succeeds")

	out, err := execute(t, NewExistsCommand(rt), "", "--account", "b")
	require.NoError(t, err)
	assert.Equal(t, "true\n", out)

	_, err = execute(t, NewDeleteCommand(rt), "", "--all")
	require.NoError(t, err)

	out, err = execute(t, NewExistsCommand(rt), "", "--account", "c")
	require.NoError(t, err)
	assert.Equal(t, "false\n", out)
}

func TestDeleteRequiresSelection(t *testing.T) {
	t.Parallel()

	rt, _ := newTestRuntime(t, testConfig)

	_, err := execute(t, NewDeleteCommand(rt), "")
	var userErr dserrors.UserError
	require.ErrorAs(t, err, &userErr)
	assert.Equal(t, "Nothing selected for deletion", userErr.Message)

	_, err = execute(t, NewDeleteCommand(rt), "", "--account", "a", "--all")
	require.ErrorAs(t, err, &userErr)
	assert.Contains(t, userErr.Message, "mutually exclusive")
}

func TestServiceOverride(t *testing.T) {
	t.Parallel()

	rt, _ := newTestRuntime(t, testConfig)
	_, err := execute(t, NewSetCommand(rt), "x", "--account", "a")
	require.NoError(t, err)

	rt.Service = "com.example.other"
	out, err := execute(t, NewExistsCommand(rt), "", "--account", "a")
	require.NoError(t, err)
	assert.Equal(t, "false\n", out, "items are scoped to the service")
}

func TestMissingService(t *testing.T) {
	t.Parallel()

	rt, _ := newTestRuntime(t, "")

	_, err := execute(t, NewGetCommand(rt), "", "--account", "a")
	var cfgErr dserrors.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "service", cfgErr.Field)

	rt.Service = "com.example.flag"
	out, err := execute(t, NewExistsCommand(rt), "", "--account", "a")
	require.NoError(t, err)
	assert.Equal(t, "false\n", out)
}

func TestUnknownBackend(t *testing.T) {
	t.Parallel()

	rt, _ := newTestRuntime(t, testConfig)
	rt.Backend = "floppy"

	_, err := execute(t, NewGetCommand(rt), "", "--account", "a")
	var cfgErr dserrors.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "backend", cfgErr.Field)
	assert.Equal(t, "Use one of: keyring, memory", cfgErr.Suggestion)
}

func TestMetricsTextfile(t *testing.T) {
	t.Parallel()

	rt, _ := newTestRuntime(t, testConfig)
	rt.MetricsTextfile = filepath.Join(t.TempDir(), "keychain.prom")

	_, err := execute(t, NewSetCommand(rt), "x", "--account", "a")
	require.NoError(t, err)
	_, err = execute(t, NewGetCommand(rt), "", "--account", "a")
	require.NoError(t, err)
	require.NoError(t, rt.Flush())

	data, err := os.ReadFile(rt.MetricsTextfile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `keychain_operations_total{operation="set",outcome="ok"} 1`)
	assert.Contains(t, string(data), `keychain_operations_total{operation="fetch",outcome="ok"} 1`)
	assert.Contains(t, string(data), `keychain_set_plans_total{plan="add"} 1`)
}

func TestFlushWithoutMetrics(t *testing.T) {
	t.Parallel()

	rt, _ := newTestRuntime(t, testConfig)
	assert.NoError(t, rt.Flush())
}

func TestDoctor(t *testing.T) {
	t.Parallel()

	rt, _ := newTestRuntime(t, testConfig)

	out, err := execute(t, NewDoctorCommand(rt), "")
	require.NoError(t, err)
	assert.Contains(t, out, "CHECK")
	assert.Contains(t, out, "config")
	assert.Contains(t, out, `service "com.example.cli", backend memory`)
	assert.Contains(t, out, "backend")
	assert.Contains(t, out, "Summary: 3/3 checks passed")
}

func TestDoctorBadConfig(t *testing.T) {
	t.Parallel()

	rt, _ := newTestRuntime(t, "version: 0\nservice: x\nbogus: true\n")

	out, err := execute(t, NewDoctorCommand(rt), "")
	require.Error(t, err)
	assert.Contains(t, out, "✗ error")
}

func TestCompletion(t *testing.T) {
	t.Parallel()

	root := &cobra.Command{Use: "keychain"}
	root.AddCommand(NewCompletionCommand())

	out := &bytes.Buffer{}
	root.SetOut(out)
	root.SetArgs([]string{"completion", "bash"})
	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "keychain")

	for _, shell := range []string{"zsh", "fish", "powershell"} {
		out.Reset()
		root.SetArgs([]string{"completion", shell, "--no-descriptions"})
		require.NoError(t, root.Execute(), shell)
		assert.NotEmpty(t, out.String(), shell)
	}

	root.SetArgs([]string{"completion", "tcsh"})
	assert.Error(t, root.Execute())
}

func TestSetRedactsValueFromErrors(t *testing.T) {
	t.Parallel()

	rt, _ := newTestRuntime(t, testConfig)
	rt.Backend = "echo"
	rt.Registry.RegisterFactory("echo", func() (keychain.Vault, error) {
		return nil, errors.New("backend refused payload hunter2-token")
	})

	_, err := execute(t, NewSetCommand(rt), "", "--account", "a", "--value", "hunter2-token")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "hunter2-token")
	assert.Contains(t, err.Error(), "[REDACTED]")
}

func TestRuntimeDefaultLogger(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "keychain.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testConfig), 0o600))
	rt := NewRuntime(&config.Config{Path: path})
	require.NotNil(t, rt.Config.Logger)
	rt.Backend = "memory"

	_, err := execute(t, NewDeleteCommand(rt), "", "--account", "a")
	assert.NoError(t, err)
}

func TestClientDebugLogging(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "keychain.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testConfig), 0o600))
	logs := &bytes.Buffer{}
	rt := NewRuntime(&config.Config{Path: path, Logger: logging.NewWithWriter(logs, true, true)})
	rt.Backend = "memory"

	_, err := execute(t, NewExistsCommand(rt), "", "--account", "a")
	require.NoError(t, err)
	assert.Contains(t, logs.String(), "[DEBUG] keychain copy-matching")
}
