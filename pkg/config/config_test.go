package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/suite"

	"github.com/solrand/solrand-sdk-go/pkg/solrand"
)

type ConfigTestSuite struct {
	suite.Suite
	tempDir    string
	configFile string
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}

func (suite *ConfigTestSuite) SetupTest() {
	suite.tempDir = suite.T().TempDir()
	suite.configFile = filepath.Join(suite.tempDir, "config.toml")

	for _, key := range []string{EnvRPCURL, EnvNetwork, EnvGeneration, EnvProgramID, EnvOracle, EnvKeypair, EnvCommitment, EnvWorkers, EnvMetricsAddr} {
		suite.T().Setenv(key, "")
	}
}

func (suite *ConfigTestSuite) writeConfig(content string) {
	suite.Require().NoError(os.WriteFile(suite.configFile, []byte(content), 0o644))
}

func (suite *ConfigTestSuite) TestLoad_ValidConfig() {
	suite.writeConfig(`
[cluster]
network = "localhost"
commitment = "finalized"

[program]
generation = "v1"
program_id = "11111111111111111111111111111111"
oracle = "qkyoiJyAtt7dzaUTsiQYYyGRrnJL3AE1mP93bmFXpY8"

[wallet]
keypair = "/tmp/id.json"

[responder]
interval = "500ms"
workers = 8
metrics_addr = "127.0.0.1:9000"
`)

	cfg, err := Load(suite.configFile)
	suite.Require().NoError(err)

	suite.Equal("http://localhost:8899", cfg.RPCURL())
	suite.Equal("finalized", cfg.Cluster.Commitment)
	gen, err := cfg.Generation()
	suite.NoError(err)
	suite.Equal(solrand.GenerationV1, gen)
	suite.Equal("/tmp/id.json", cfg.KeypairPath())
	suite.Equal(8, cfg.Responder.Workers)
	suite.Equal("127.0.0.1:9000", cfg.Responder.MetricsAddr)

	interval, err := cfg.ResponderInterval()
	suite.NoError(err)
	suite.Equal(500*time.Millisecond, interval)
}

func (suite *ConfigTestSuite) TestLoad_DefaultValues() {
	cfg, err := Load(filepath.Join(suite.tempDir, "nonexistent.toml"))
	suite.Require().NoError(err)

	suite.Equal(*Default(), *cfg)
	suite.Equal("https://api.devnet.solana.com", cfg.RPCURL())
	oracle, err := cfg.OracleKey()
	suite.NoError(err)
	suite.Equal(solrand.OracleDevnet, oracle)
}

func (suite *ConfigTestSuite) TestLoad_PartialFileKeepsDefaults() {
	suite.writeConfig(`
[cluster]
rpc_url = "http://127.0.0.1:18899"
`)

	cfg, err := Load(suite.configFile)
	suite.Require().NoError(err)
	suite.Equal("http://127.0.0.1:18899", cfg.RPCURL())
	suite.Equal(solrand.DefaultGeneration.Name, cfg.Program.Generation)
	suite.Equal(4, cfg.Responder.Workers)
}

func (suite *ConfigTestSuite) TestLoad_EnvOverrides() {
	suite.writeConfig(`
[program]
generation = "v1"
`)
	suite.T().Setenv(EnvGeneration, "v2")
	suite.T().Setenv(EnvRPCURL, "http://rpc.example:8899")
	suite.T().Setenv(EnvWorkers, "2")

	cfg, err := Load(suite.configFile)
	suite.Require().NoError(err)
	suite.Equal("v2", cfg.Program.Generation)
	suite.Equal("http://rpc.example:8899", cfg.RPCURL())
	suite.Equal(2, cfg.Responder.Workers)
}

func (suite *ConfigTestSuite) TestLoad_EnvFile() {
	envFile := filepath.Join(suite.tempDir, ".env")
	suite.Require().NoError(os.WriteFile(envFile, []byte("SOLRAND_NETWORK=testnet\n"), 0o644))
	// godotenv does not replace variables that are already set.
	suite.Require().NoError(os.Unsetenv(EnvNetwork))

	suite.Require().NoError(LoadEnvFile(envFile, true))
	cfg, err := Load("")
	suite.Require().NoError(err)
	suite.Equal("https://api.testnet.solana.com", cfg.RPCURL())
}

func (suite *ConfigTestSuite) TestLoadEnvFile_Missing() {
	missing := filepath.Join(suite.tempDir, "missing.env")
	suite.NoError(LoadEnvFile(missing, false))
	suite.Error(LoadEnvFile(missing, true))
}

func (suite *ConfigTestSuite) TestLoad_InvalidValues() {
	cases := map[string]string{
		"network":    "[cluster]\nnetwork = \"moon\"\n",
		"commitment": "[cluster]\ncommitment = \"recent\"\n",
		"generation": "[program]\ngeneration = \"v9\"\n",
		"program id": "[program]\nprogram_id = \"not-a-key\"\n",
		"oracle":     "[program]\noracle = \"\"\n",
		"keypair":    "[wallet]\nkeypair = \"\"\n",
		"interval":   "[responder]\ninterval = \"soon\"\n",
		"workers":    "[responder]\nworkers = 0\n",
		"syntax":     "[cluster\n",
	}
	for name, content := range cases {
		suite.Run(name, func() {
			suite.writeConfig(content)
			_, err := Load(suite.configFile)
			suite.Error(err)
		})
	}
}

func (suite *ConfigTestSuite) TestKeypair() {
	wallet := solana.NewWallet()
	values := make([]int, len(wallet.PrivateKey))
	for i, b := range wallet.PrivateKey {
		values[i] = int(b)
	}
	data, err := json.Marshal(values)
	suite.Require().NoError(err)

	path := filepath.Join(suite.tempDir, "id.json")
	suite.Require().NoError(os.WriteFile(path, data, 0o600))

	cfg := Default()
	cfg.Wallet.Keypair = path
	key, err := cfg.Keypair()
	suite.Require().NoError(err)
	suite.Equal(wallet.PublicKey(), key.PublicKey())

	cfg.Wallet.Keypair = filepath.Join(suite.tempDir, "missing.json")
	_, err = cfg.Keypair()
	suite.Error(err)
}

func (suite *ConfigTestSuite) TestKeypairPathExpandsHome() {
	home, err := os.UserHomeDir()
	suite.Require().NoError(err)

	cfg := Default()
	suite.Equal(filepath.Join(home, ".config", "solana", "id.json"), cfg.KeypairPath())
}

func (suite *ConfigTestSuite) TestSessionOptions() {
	cfg := Default()
	cfg.Program.ProgramID = solana.SystemProgramID.String()
	cfg.Cluster.Commitment = string(solanarpc.CommitmentProcessed)

	opts, err := cfg.SessionOptions()
	suite.Require().NoError(err)

	session := solrand.NewSession(solanarpc.New("http://localhost:8899"), solana.NewWallet().PrivateKey, opts...)
	suite.Equal(solrand.DefaultGeneration, session.Generation())
	suite.Equal(solana.SystemProgramID, session.ProgramID())
	suite.Equal(solanarpc.CommitmentProcessed, session.Commitment())
}

func (suite *ConfigTestSuite) TestWriteDefault() {
	path := filepath.Join(suite.tempDir, "nested", "config.toml")
	suite.Require().NoError(WriteDefault(path))

	cfg, err := Load(path)
	suite.Require().NoError(err)
	suite.Equal(*Default(), *cfg)

	suite.Error(WriteDefault(path), "existing file is not replaced")
}
