// Package config loads the solrand CLI and responder configuration from a TOML
// file, an optional .env file and SOLRAND_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/solrand/solrand-sdk-go/pkg/solrand"
)

// Environment variables that override file values.
const (
	EnvRPCURL      = "SOLRAND_RPC_URL"
	EnvNetwork     = "SOLRAND_NETWORK"
	EnvGeneration  = "SOLRAND_GENERATION"
	EnvProgramID   = "SOLRAND_PROGRAM_ID"
	EnvOracle      = "SOLRAND_ORACLE"
	EnvKeypair     = "SOLRAND_KEYPAIR"
	EnvCommitment  = "SOLRAND_COMMITMENT"
	EnvWorkers     = "SOLRAND_RESPONDER_WORKERS"
	EnvMetricsAddr = "SOLRAND_METRICS_ADDR"
)

type Config struct {
	Cluster   ClusterConfig   `toml:"cluster"`
	Program   ProgramConfig   `toml:"program"`
	Wallet    WalletConfig    `toml:"wallet"`
	Responder ResponderConfig `toml:"responder"`
}

type ClusterConfig struct {
	Network string `toml:"network"`
	// RPCURL overrides the network's default endpoint.
	RPCURL     string `toml:"rpc_url"`
	Commitment string `toml:"commitment"`
}

type ProgramConfig struct {
	Generation string `toml:"generation"`
	// ProgramID overrides the generation's deployed program id.
	ProgramID string `toml:"program_id"`
	Oracle    string `toml:"oracle"`
}

type WalletConfig struct {
	Keypair string `toml:"keypair"`
}

type ResponderConfig struct {
	Interval    string `toml:"interval"`
	Workers     int    `toml:"workers"`
	MetricsAddr string `toml:"metrics_addr"`
}

// Default returns the configuration used when no file exists: devnet, the
// latest generation and the devnet oracle.
func Default() *Config {
	return &Config{
		Cluster: ClusterConfig{
			Network:    string(solrand.NetworkDevnet),
			Commitment: string(solanarpc.CommitmentConfirmed),
		},
		Program: ProgramConfig{
			Generation: solrand.DefaultGeneration.Name,
			Oracle:     solrand.OracleDevnet.String(),
		},
		Wallet: WalletConfig{
			Keypair: "~/.config/solana/id.json",
		},
		Responder: ResponderConfig{
			Interval:    "2s",
			Workers:     4,
			MetricsAddr: ":9464",
		},
	}
}

// DefaultPath is where the CLI looks for its config file.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "solrand.toml"
	}
	return filepath.Join(home, ".config", "solrand", "config.toml")
}

// LoadEnvFile loads variables from a .env file into the process environment.
// Variables already set are left alone. A missing file is not an error unless
// required is set.
func LoadEnvFile(path string, required bool) error {
	if err := godotenv.Load(path); err != nil {
		if !required && errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env (%s): %w", path, err)
	}
	return nil
}

// Load reads the TOML file at path over the defaults, applies environment
// overrides and validates the result. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config file: %w", err)
		default:
			if err := toml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	overrides := map[string]*string{
		EnvRPCURL:      &c.Cluster.RPCURL,
		EnvNetwork:     &c.Cluster.Network,
		EnvCommitment:  &c.Cluster.Commitment,
		EnvGeneration:  &c.Program.Generation,
		EnvProgramID:   &c.Program.ProgramID,
		EnvOracle:      &c.Program.Oracle,
		EnvKeypair:     &c.Wallet.Keypair,
		EnvMetricsAddr: &c.Responder.MetricsAddr,
	}
	for key, field := range overrides {
		if v, ok := lookup(key); ok && v != "" {
			*field = v
		}
	}

	if v, ok := lookup(EnvWorkers); ok && v != "" {
		workers, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvWorkers, err)
		}
		c.Responder.Workers = workers
	}
	return nil
}

// Validate checks that every value can be turned into session settings.
func (c *Config) Validate() error {
	if c.Cluster.RPCURL == "" {
		if _, ok := solrand.RPCEndpoints[solrand.Network(c.Cluster.Network)]; !ok {
			return fmt.Errorf("unknown network %q and no rpc_url", c.Cluster.Network)
		}
	}

	switch solanarpc.CommitmentType(c.Cluster.Commitment) {
	case solanarpc.CommitmentProcessed, solanarpc.CommitmentConfirmed, solanarpc.CommitmentFinalized:
	default:
		return fmt.Errorf("unsupported commitment %q", c.Cluster.Commitment)
	}

	if _, err := solrand.GenerationByName(c.Program.Generation); err != nil {
		return err
	}
	if c.Program.ProgramID != "" {
		if _, err := solana.PublicKeyFromBase58(c.Program.ProgramID); err != nil {
			return fmt.Errorf("program_id: %w", err)
		}
	}
	if _, err := c.OracleKey(); err != nil {
		return err
	}

	if c.Wallet.Keypair == "" {
		return errors.New("wallet keypair is required")
	}

	if _, err := c.ResponderInterval(); err != nil {
		return err
	}
	if c.Responder.Workers <= 0 {
		return fmt.Errorf("responder workers must be positive, got %d", c.Responder.Workers)
	}
	return nil
}

// RPCURL returns the configured endpoint or the network default.
func (c *Config) RPCURL() string {
	if c.Cluster.RPCURL != "" {
		return c.Cluster.RPCURL
	}
	return solrand.RPCEndpoints[solrand.Network(c.Cluster.Network)]
}

// Generation returns the configured program generation.
func (c *Config) Generation() (solrand.Generation, error) {
	return solrand.GenerationByName(c.Program.Generation)
}

// OracleKey returns the oracle public key requests are addressed to.
func (c *Config) OracleKey() (solana.PublicKey, error) {
	key, err := solana.PublicKeyFromBase58(c.Program.Oracle)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("oracle: %w", err)
	}
	return key, nil
}

// ResponderInterval parses the responder poll interval.
func (c *Config) ResponderInterval() (time.Duration, error) {
	interval, err := time.ParseDuration(c.Responder.Interval)
	if err != nil {
		return 0, fmt.Errorf("responder interval: %w", err)
	}
	if interval <= 0 {
		return 0, fmt.Errorf("responder interval must be positive, got %s", interval)
	}
	return interval, nil
}

// KeypairPath returns the keypair path with a leading ~ expanded.
func (c *Config) KeypairPath() string {
	path := c.Wallet.Keypair
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}

// Keypair loads the wallet from a solana-keygen JSON file.
func (c *Config) Keypair() (solana.PrivateKey, error) {
	key, err := solana.PrivateKeyFromSolanaKeygenFile(c.KeypairPath())
	if err != nil {
		return nil, fmt.Errorf("load keypair: %w", err)
	}
	return key, nil
}

// SessionOptions converts the config into solrand session options.
func (c *Config) SessionOptions() ([]solrand.Option, error) {
	gen, err := c.Generation()
	if err != nil {
		return nil, err
	}

	opts := []solrand.Option{
		solrand.WithGeneration(gen),
		solrand.WithCommitment(solanarpc.CommitmentType(c.Cluster.Commitment)),
	}
	if c.Program.ProgramID != "" {
		programID, err := solana.PublicKeyFromBase58(c.Program.ProgramID)
		if err != nil {
			return nil, fmt.Errorf("program_id: %w", err)
		}
		opts = append(opts, solrand.WithProgramID(programID))
	}
	return opts, nil
}

// WriteDefault writes the default configuration to path. It refuses to
// replace an existing file.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file %s already exists", path)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}

	data, err := toml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}
