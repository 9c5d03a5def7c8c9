package main

import (
	"os"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"authchat/internal/config"
)

// NewRootCmd creates the root command. Running it without a subcommand
// starts the server.
func NewRootCmd() *cobra.Command {
	flags := &config.Flags{}

	cmd := &cobra.Command{
		Use:   "authchat",
		Short: "Authentication and chat proxy backend",
		Long: `authchat serves signup, login and password reset over HTTP, backed by
MongoDB, and forwards chat messages to a generative-language API.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, flags)
		},
	}
	flags.Register(cmd.PersistentFlags())

	cmd.AddCommand(newServeCmd(flags))
	cmd.AddCommand(newMigrateCmd(flags))

	return cmd
}

func newServeCmd(flags *config.Flags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, flags)
		},
	}
}

// loadConfig reads the .env file, the environment and the command-line
// overrides. A missing .env file is only a warning.
func loadConfig(cmd *cobra.Command, flags *config.Flags, validate bool) (*config.Config, error) {
	if err := config.LoadDotenv(flags.EnvFile); err != nil {
		if flags.EnvFile != "" {
			return nil, oops.Code("CONFIG_INVALID").With("env_file", flags.EnvFile).Wrap(err)
		}
		cmd.PrintErrln("Warning: .env file not found")
	}

	cfg, err := config.FromEnv(os.LookupEnv)
	if err != nil {
		return nil, oops.Code("CONFIG_INVALID").Wrap(err)
	}
	flags.Apply(cmd.Flags(), cfg)

	if validate {
		if err := cfg.Validate(); err != nil {
			return nil, oops.Code("CONFIG_INVALID").Wrap(err)
		}
	}
	return cfg, nil
}
