package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/ethereum/go-ethereum/common"
)

// Environment variables consulted by ApplyEnv.
const (
	EnvRPCURL     = "WAVE_RPC_URL"
	EnvAlchemyKey = "ALCHEMY_KEY"
	EnvKeystore   = "WAVE_KEYSTORE"
)

// AlchemyRinkebyURL is the read endpoint template; the API key is appended.
const AlchemyRinkebyURL = "https://eth-rinkeby.alchemyapi.io/v2/"

// Config represents the application configuration
type Config struct {
	RPCURL   string         `json:"rpc_url" toml:"rpc_url"`
	Networks []Network      `json:"networks" toml:"networks"`
	Contract ContractConfig `json:"contract" toml:"contract"`
	Wallet   WalletConfig   `json:"wallet" toml:"wallet"`
	Limits   Limits         `json:"limits" toml:"limits"`
	Logger   bool           `json:"logger" toml:"logger"`
}

// Network is an RPC endpoint the wallet can send transactions through
type Network struct {
	Name   string `json:"name" toml:"name"`
	URL    string `json:"url" toml:"url"`
	Active bool   `json:"active" toml:"active"`
}

// ContractConfig locates the WavePortal deployment
type ContractConfig struct {
	Address    string `json:"address" toml:"address"`
	StartBlock uint64 `json:"start_block" toml:"start_block"`
	ChainID    int64  `json:"chain_id" toml:"chain_id"`
	Explorer   string `json:"explorer" toml:"explorer"`
}

// WalletConfig holds the keystore wallet settings
type WalletConfig struct {
	KeystoreDir string `json:"keystore_dir" toml:"keystore_dir"`
	// Accounts the user has authorized this app to see, selected one first.
	Authorized []string `json:"authorized,omitempty" toml:"authorized,omitempty"`
}

// Limits bounds RPC waits and submissions
type Limits struct {
	GasLimit         uint64 `json:"gas_limit" toml:"gas_limit"`
	MaxMessageLength int    `json:"max_message_length" toml:"max_message_length"`
	RequestTimeoutS  int    `json:"request_timeout_s" toml:"request_timeout_s"`
	ConfirmTimeoutS  int    `json:"confirm_timeout_s" toml:"confirm_timeout_s"`
	PollIntervalS    int    `json:"poll_interval_s" toml:"poll_interval_s"`
}

// RequestTimeout bounds a single RPC query or submission.
func (l Limits) RequestTimeout() time.Duration { return seconds(l.RequestTimeoutS, 20) }

// ConfirmTimeout bounds the wait for a transaction receipt.
func (l Limits) ConfirmTimeout() time.Duration { return seconds(l.ConfirmTimeoutS, 300) }

// PollInterval is the log polling period when the endpoint cannot push.
func (l Limits) PollInterval() time.Duration { return seconds(l.PollIntervalS, 8) }

func seconds(v, def int) time.Duration {
	if v <= 0 {
		v = def
	}
	return time.Duration(v) * time.Second
}

// Load reads the config from the specified path
func Load(path string) Config {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}
	}

	cfg, err := decode(path, data)
	if err != nil {
		return Config{}
	}

	return cfg
}

// Save writes the config to the specified path
func Save(path string, cfg Config) error {
	data, err := encode(path, cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// DefaultConfig returns a new configuration pointing at the original WavePortal deployment
func DefaultConfig() Config {
	return Config{
		Networks: []Network{
			{
				Name:   "Rinkeby",
				URL:    "https://rinkeby.infura.io/v3/",
				Active: true,
			},
		},
		Contract: ContractConfig{
			Address:    "0xd98840ecb01bdF2520B3418F2409709b6336b579",
			StartBlock: 9074182,
			ChainID:    4,
			Explorer:   "https://rinkeby.etherscan.io",
		},
		Limits: Limits{
			GasLimit:         300000,
			MaxMessageLength: 280,
			RequestTimeoutS:  20,
			ConfirmTimeoutS:  300,
			PollIntervalS:    8,
		},
		Logger: false,
	}
}

// LoadOrCreate loads config from path, or creates a default one if not found
func LoadOrCreate(path string) Config {
	// Try to read existing config
	data, err := os.ReadFile(path)
	if err != nil {
		// File doesn't exist, create default
		cfg := DefaultConfig()
		_ = Save(path, cfg)
		return cfg
	}

	cfg, err := decode(path, data)
	if err != nil {
		// Invalid config, return default
		return DefaultConfig()
	}

	return cfg
}

// ApplyEnv overlays environment settings onto cfg.
func (c *Config) ApplyEnv() {
	if v := strings.TrimSpace(os.Getenv(EnvRPCURL)); v != "" {
		c.RPCURL = v
	} else if c.RPCURL == "" {
		if key := strings.TrimSpace(os.Getenv(EnvAlchemyKey)); key != "" {
			c.RPCURL = AlchemyRinkebyURL + key
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvKeystore)); v != "" {
		c.Wallet.KeystoreDir = v
	}
}

// ActiveNetwork returns the active wallet network, if any.
func (c Config) ActiveNetwork() (Network, bool) {
	for _, n := range c.Networks {
		if n.Active {
			return n, true
		}
	}
	return Network{}, false
}

// Validate checks the fields the app cannot run without.
func (c Config) Validate() error {
	if !common.IsHexAddress(c.Contract.Address) {
		return fmt.Errorf("contract address %q is not a valid address", c.Contract.Address)
	}
	if c.Contract.ChainID <= 0 {
		return fmt.Errorf("chain id must be positive, got %d", c.Contract.ChainID)
	}
	for _, a := range c.Wallet.Authorized {
		if !common.IsHexAddress(a) {
			return fmt.Errorf("authorized account %q is not a valid address", a)
		}
	}
	if c.Limits.MaxMessageLength < 0 {
		return fmt.Errorf("max message length must not be negative")
	}
	return nil
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

func decode(path string, data []byte) (Config, error) {
	var cfg Config
	if isTOML(path) {
		_, err := toml.Decode(string(data), &cfg)
		return cfg, err
	}
	err := json.Unmarshal(data, &cfg)
	return cfg, err
}

func encode(path string, cfg Config) ([]byte, error) {
	if isTOML(path) {
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	return json.MarshalIndent(cfg, "", "  ")
}
