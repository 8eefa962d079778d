package main

import (
	"fmt"
	"time"

	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/solrand/solrand-sdk-go/pkg/config"
	"github.com/solrand/solrand-sdk-go/pkg/solrand"
)

// skipConfig marks commands that run without a loaded config.
const skipConfig = "skip-config"

type app struct {
	configPath string
	envFile    string
	logLevel   string

	cfg    *config.Config
	logger zerolog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:          "solrand",
		Short:        "Request and publish randomness with the solrand oracle program",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.configPath, "config", config.DefaultPath(), "config file")
	flags.StringVar(&a.envFile, "env-file", ".env", "dotenv file with SOLRAND_* overrides")
	flags.StringVar(&a.logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	cmd.AddCommand(
		a.balanceCmd(),
		a.airdropCmd(),
		a.initCmd(),
		a.requestCmd(),
		a.cancelCmd(),
		a.fundVaultCmd(),
		a.transferAuthorityCmd(),
		a.showCmd(),
		a.listCmd(),
		a.publishCmd(),
		a.respondCmd(),
		a.eventsCmd(),
		a.configCmd(),
	)
	return cmd
}

func (a *app) setup(cmd *cobra.Command) error {
	level, err := zerolog.ParseLevel(a.logLevel)
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	a.logger = zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr(), TimeFormat: time.Kitchen}).
		Level(level).
		With().Timestamp().Logger()
	log.Logger = a.logger

	if err := config.LoadEnvFile(a.envFile, cmd.Flags().Changed("env-file")); err != nil {
		return err
	}
	if cmd.Annotations[skipConfig] != "" {
		return nil
	}

	a.cfg, err = config.Load(a.configPath)
	if err != nil {
		return err
	}
	a.logger.Debug().Str("rpc", a.cfg.RPCURL()).Str("generation", a.cfg.Program.Generation).Msg("config loaded")
	return nil
}

func (a *app) session() (*solrand.Session, error) {
	key, err := a.cfg.Keypair()
	if err != nil {
		return nil, err
	}
	opts, err := a.cfg.SessionOptions()
	if err != nil {
		return nil, err
	}
	opts = append(opts, solrand.WithLogger(a.logger))
	return solrand.NewSession(solanarpc.New(a.cfg.RPCURL()), key, opts...), nil
}
