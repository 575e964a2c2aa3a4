package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/systmms/keychain/cmd/keychain/commands"
	"github.com/systmms/keychain/internal/config"
	dserrors "github.com/systmms/keychain/internal/errors"
	"github.com/systmms/keychain/internal/logging"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := run(); err != nil {
		if !errors.Is(err, commands.ErrNotFound) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", dserrors.SimplifyError(err))
		}
		os.Exit(1)
	}
}

func run() error {
	// Global flags
	var (
		configFile string
		noColor    bool
		debug      bool
	)

	cfg := &config.Config{}
	rt := commands.NewRuntime(cfg)

	rootCmd := &cobra.Command{
		Use:   "keychain",
		Short: "Store and read secrets in the OS keychain",
		Long: `keychain stores, reads and deletes secrets in the platform keychain,
scoped to one service and optional access group.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cfg.Path = configFile
			cfg.Required = cmd.Flags().Changed("config")
			cfg.Logger = logging.New(debug, noColor)
		},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", config.DefaultPath, "Config file path")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&rt.Service, "service", "", "Service the items belong to (overrides config)")
	rootCmd.PersistentFlags().StringVar(&rt.AccessGroup, "access-group", "", "Access group shared between applications (overrides config)")
	rootCmd.PersistentFlags().StringVar(&rt.Backend, "backend", "", "Vault backend: "+strings.Join(rt.Registry.SupportedTypes(), " or ")+" (overrides config)")
	rootCmd.PersistentFlags().StringVar(&rt.MetricsTextfile, "metrics-textfile", "", "Write operation metrics in Prometheus text format to this file")

	rootCmd.AddCommand(
		commands.NewGetCommand(rt),
		commands.NewSetCommand(rt),
		commands.NewDeleteCommand(rt),
		commands.NewExistsCommand(rt),
		commands.NewDoctorCommand(rt),
		commands.NewCompletionCommand(),
	)

	err := rootCmd.Execute()
	if ferr := rt.Flush(); ferr != nil && err == nil {
		err = ferr
	}
	return err
}
