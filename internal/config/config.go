// Package config loads tokendash settings from ~/.tokendash/config.json,
// a .env file and TOKENDASH_* environment variables.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"

	"github.com/Mohsinsiddi/tokendash/internal/chain"
	"github.com/Mohsinsiddi/tokendash/internal/token"
)

const (
	defaultNetwork   = "ethereum"
	defaultMode      = "testnet"
	defaultAlgorithm = "fastest"
	defaultLogLevel  = "info"

	configFile  = "config.json"
	walletsFile = "wallets.json"
	logFile     = "tokendash.log"

	// EnvConfigDir relocates the config directory.
	EnvConfigDir = "TOKENDASH_CONFIG_DIR"
)

// ErrUnknownKey is returned by Set for keys that are not settable.
var ErrUnknownKey = errors.New("unknown config key")

// Config holds all tokendash configuration.
type Config struct {
	Network         string              `json:"network"           env:"TOKENDASH_NETWORK"`
	NetworkMode     string              `json:"network_mode"      env:"TOKENDASH_NETWORK_MODE"` // "mainnet" | "testnet"
	RPCURL          string              `json:"rpc_url,omitempty" env:"TOKENDASH_RPC_URL"`
	RPCAlgorithm    string              `json:"rpc_algorithm"     env:"TOKENDASH_RPC_ALGORITHM"`  // "fastest" | "failover"
	RPCRateLimit    float64             `json:"rpc_rate_limit"    env:"TOKENDASH_RPC_RATE_LIMIT"` // reads per second, 0 = unlimited
	ContractAddress string              `json:"contract_address"  env:"TOKENDASH_CONTRACT_ADDRESS"`
	DefaultWallet   string              `json:"default_wallet"    env:"TOKENDASH_WALLET"`
	StatusDisplayMS int                 `json:"status_display_ms" env:"TOKENDASH_STATUS_DISPLAY_MS"`
	FinalityTimeout int                 `json:"finality_timeout"  env:"TOKENDASH_FINALITY_TIMEOUT"` // seconds
	LogLevel        string              `json:"log_level"         env:"TOKENDASH_LOG_LEVEL"`
	MetricsAddr     string              `json:"metrics_addr,omitempty" env:"TOKENDASH_METRICS_ADDR"`
	CustomRPCs      map[string][]string `json:"custom_rpcs"`

	// internal: config dir path used for Save()
	configDir string
}

// DefaultDir returns $TOKENDASH_CONFIG_DIR or ~/.tokendash.
func DefaultDir() (string, error) {
	if dir := os.Getenv(EnvConfigDir); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home dir: %w", err)
	}
	return filepath.Join(home, ".tokendash"), nil
}

// Load reads config from dir (or creates defaults). dir defaults to DefaultDir.
func Load(dir string) (*Config, error) {
	if dir == "" {
		d, err := DefaultDir()
		if err != nil {
			return nil, err
		}
		dir = d
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("could not create config dir: %w", err)
	}

	cfg := defaults(dir)

	path := filepath.Join(dir, configFile)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.configDir = dir
	if cfg.CustomRPCs == nil {
		cfg.CustomRPCs = make(map[string][]string)
	}
	return cfg, nil
}

// ApplyEnv loads envFile (if present) into the process environment and then
// overlays TOKENDASH_* variables on c. Variables already set in the
// environment win over the file.
func (c *Config) ApplyEnv(envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("loading %s: %w", envFile, err)
		}
	}
	err := envdecode.Decode(c)
	if err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return fmt.Errorf("decoding environment: %w", err)
	}
	if err == nil {
		log.Debug("Applied environment overrides", "network", c.Network, "mode", c.NetworkMode)
	}
	return nil
}

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	if c.NetworkMode != "mainnet" && c.NetworkMode != "testnet" {
		return fmt.Errorf("network_mode must be mainnet or testnet, got %q", c.NetworkMode)
	}
	if !common.IsHexAddress(c.ContractAddress) {
		return fmt.Errorf("contract_address %q is not a valid address", c.ContractAddress)
	}
	if c.RPCAlgorithm != "fastest" && c.RPCAlgorithm != "failover" {
		return fmt.Errorf("rpc_algorithm must be fastest or failover, got %q", c.RPCAlgorithm)
	}
	if c.StatusDisplayMS < 0 || c.FinalityTimeout < 0 || c.RPCRateLimit < 0 {
		return errors.New("durations and rate limits must not be negative")
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// Save writes the config to disk.
func (c *Config) Save() error {
	if err := os.MkdirAll(c.configDir, 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(c.configDir, configFile), data, 0o600)
}

// setters maps every settable key to its parser.
var setters = map[string]func(c *Config, v string) error{
	"network":           func(c *Config, v string) error { c.Network = strings.ToLower(v); return nil },
	"network_mode":      func(c *Config, v string) error { c.NetworkMode = strings.ToLower(v); return nil },
	"rpc_url":           func(c *Config, v string) error { c.RPCURL = v; return nil },
	"rpc_algorithm":     func(c *Config, v string) error { c.RPCAlgorithm = v; return nil },
	"contract_address":  func(c *Config, v string) error { c.ContractAddress = v; return nil },
	"default_wallet":    func(c *Config, v string) error { c.DefaultWallet = v; return nil },
	"log_level":         func(c *Config, v string) error { c.LogLevel = v; return nil },
	"metrics_addr":      func(c *Config, v string) error { c.MetricsAddr = v; return nil },
	"status_display_ms": func(c *Config, v string) error { return setInt(&c.StatusDisplayMS, v) },
	"finality_timeout":  func(c *Config, v string) error { return setInt(&c.FinalityTimeout, v) },
	"rpc_rate_limit": func(c *Config, v string) error {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("not a number: %q", v)
		}
		c.RPCRateLimit = f
		return nil
	},
}

func setInt(dst *int, v string) error {
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("not an integer: %q", v)
	}
	*dst = n
	return nil
}

// Keys returns the settable keys in order.
func Keys() []string {
	keys := make([]string, 0, len(setters))
	for k := range setters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Set assigns value to key and validates the result. On failure c is left
// unchanged.
func (c *Config) Set(key, value string) error {
	set, ok := setters[key]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	next := *c
	if err := set(&next, strings.TrimSpace(value)); err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	if err := next.Validate(); err != nil {
		return err
	}
	*c = next
	return nil
}

// AddRPC adds a custom RPC URL for a network.
func (c *Config) AddRPC(network, url string) error {
	if c.CustomRPCs == nil {
		c.CustomRPCs = make(map[string][]string)
	}
	if slices.Contains(c.CustomRPCs[network], url) {
		return fmt.Errorf("RPC %s already exists for network %s", url, network)
	}
	c.CustomRPCs[network] = append(c.CustomRPCs[network], url)
	return nil
}

// RemoveRPC removes a custom RPC URL for a network.
func (c *Config) RemoveRPC(network, url string) error {
	rpcs := c.CustomRPCs[network]
	idx := slices.Index(rpcs, url)
	if idx == -1 {
		return fmt.Errorf("RPC %s not found for network %s", url, network)
	}
	c.CustomRPCs[network] = slices.Delete(rpcs, idx, idx+1)
	return nil
}

// GetRPCs returns custom RPCs for a network.
func (c *Config) GetRPCs(network string) []string {
	return c.CustomRPCs[network]
}

// Endpoints returns the candidate RPC URLs for n: the rpc_url override if
// set, else custom RPCs followed by the registry defaults.
func (c *Config) Endpoints(n *chain.Network) []string {
	if c.RPCURL != "" {
		return []string{c.RPCURL}
	}
	out := slices.Clone(c.CustomRPCs[n.Name])
	for _, u := range n.RPCs(c.NetworkMode) {
		if !slices.Contains(out, u) {
			out = append(out, u)
		}
	}
	return out
}

// Contract returns the token contract address.
func (c *Config) Contract() common.Address {
	return common.HexToAddress(c.ContractAddress)
}

// StatusDisplay is how long a terminal operation status stays visible.
func (c *Config) StatusDisplay() time.Duration {
	return time.Duration(c.StatusDisplayMS) * time.Millisecond
}

// FinalityWait bounds how long a submitted transaction is awaited.
func (c *Config) FinalityWait() time.Duration {
	return time.Duration(c.FinalityTimeout) * time.Second
}

// Dir returns the config directory.
func (c *Config) Dir() string {
	return c.configDir
}

// WalletsPath returns the wallets.json path.
func (c *Config) WalletsPath() string {
	return filepath.Join(c.configDir, walletsFile)
}

// LogPath returns the log file used while the TUI owns the terminal.
func (c *Config) LogPath() string {
	return filepath.Join(c.configDir, logFile)
}

// ParseLogLevel maps a level name to a go-ethereum log level.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return log.LevelTrace, nil
	case "debug":
		return log.LevelDebug, nil
	case "", "info":
		return log.LevelInfo, nil
	case "warn", "warning":
		return log.LevelWarn, nil
	case "error":
		return log.LevelError, nil
	case "crit":
		return log.LevelCrit, nil
	}
	return 0, fmt.Errorf("unknown log level %q", s)
}

// --- helpers ---

func defaults(dir string) *Config {
	return &Config{
		Network:         defaultNetwork,
		NetworkMode:     defaultMode,
		RPCAlgorithm:    defaultAlgorithm,
		ContractAddress: token.DefaultContractAddress,
		StatusDisplayMS: int(DefaultStatusDisplay / time.Millisecond),
		FinalityTimeout: int(TxConfirmTimeout / time.Second),
		LogLevel:        defaultLogLevel,
		CustomRPCs:      make(map[string][]string),
		configDir:       dir,
	}
}
