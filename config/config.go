package config

import (
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/ethereum/go-ethereum/common"

	"stakepool/native/rewards"
)

// Config captures the daemon configuration loaded from TOML.
type Config struct {
	ListenAddress  string  `toml:"ListenAddress"`
	DataDir        string  `toml:"DataDir"`
	Environment    string  `toml:"Environment"`
	LogFile        string  `toml:"LogFile"`
	OTLPEndpoint   string  `toml:"OTLPEndpoint"`
	RateLimitRPS   float64 `toml:"RateLimitRPS"`
	RateLimitBurst int     `toml:"RateLimitBurst"`

	Program ProgramConfig `toml:"program"`
	Genesis GenesisConfig `toml:"genesis"`
}

// ProgramConfig holds the immutable reward program parameters.
type ProgramConfig struct {
	StakeAsset   string `toml:"StakeAsset"`
	RewardAsset  string `toml:"RewardAsset"`
	StartTime    int64  `toml:"StartTime"`
	EndTime      int64  `toml:"EndTime"`
	TotalRewards string `toml:"TotalRewards"`
}

// GenesisConfig seeds the custody ledger at startup.
type GenesisConfig struct {
	Allocations []Allocation `toml:"allocations"`
}

// Allocation credits an external account with an asset balance at startup.
type Allocation struct {
	Address string `toml:"Address"`
	Asset   string `toml:"Asset"`
	Amount  string `toml:"Amount"`
}

const defaultConfig = `# stakepool daemon configuration
ListenAddress = ":8460"
DataDir = "./stakepool-data"
Environment = ""
LogFile = ""
OTLPEndpoint = ""
RateLimitRPS = 20.0
RateLimitBurst = 40

[program]
StakeAsset = "STK"
RewardAsset = "RWD"
# Unix timestamps bounding the emission interval.
StartTime = 0
EndTime = 0
# Total reward units emitted over the interval, base-10.
TotalRewards = "0"
`

// Load reads the configuration from path, writing a commented default file
// when none exists yet.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := createDefault(path); err != nil {
			return nil, err
		}
	}
	cfg := &Config{}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

func createDefault(path string) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("config: create %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, []byte(defaultConfig), 0o600); err != nil {
		return fmt.Errorf("config: write default %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.ListenAddress) == "" {
		c.ListenAddress = ":8460"
	}
	if strings.TrimSpace(c.DataDir) == "" {
		c.DataDir = "./stakepool-data"
	}
	if c.RateLimitRPS <= 0 {
		c.RateLimitRPS = 20
	}
	if c.RateLimitBurst <= 0 {
		c.RateLimitBurst = 40
	}
}

// BuildProgram validates the program section and derives the emission rate.
func (c *Config) BuildProgram() (*rewards.Program, error) {
	if c.Program.StartTime < 0 || c.Program.EndTime < 0 {
		return nil, fmt.Errorf("config: program timestamps must not be negative")
	}
	total, err := parseAmount(c.Program.TotalRewards)
	if err != nil {
		return nil, fmt.Errorf("config: program TotalRewards: %w", err)
	}
	return rewards.NewProgram(
		c.Program.StakeAsset,
		c.Program.RewardAsset,
		uint64(c.Program.StartTime),
		uint64(c.Program.EndTime),
		total,
	)
}

// ParsedAllocation is a genesis allocation with decoded address and amount.
type ParsedAllocation struct {
	Address [20]byte
	Asset   string
	Amount  *big.Int
}

// ParseAllocations decodes and validates the genesis allocations.
func (c *Config) ParseAllocations() ([]ParsedAllocation, error) {
	parsed := make([]ParsedAllocation, 0, len(c.Genesis.Allocations))
	for i, alloc := range c.Genesis.Allocations {
		if !common.IsHexAddress(alloc.Address) {
			return nil, fmt.Errorf("config: allocation %d: invalid address %q", i, alloc.Address)
		}
		asset := strings.TrimSpace(alloc.Asset)
		if asset == "" {
			return nil, fmt.Errorf("config: allocation %d: asset required", i)
		}
		amount, err := parseAmount(alloc.Amount)
		if err != nil {
			return nil, fmt.Errorf("config: allocation %d amount: %w", i, err)
		}
		parsed = append(parsed, ParsedAllocation{
			Address: common.HexToAddress(alloc.Address),
			Asset:   asset,
			Amount:  amount,
		})
	}
	return parsed, nil
}

func parseAmount(raw string) (*big.Int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("value required")
	}
	value, ok := new(big.Int).SetString(trimmed, 10)
	if !ok || value.Sign() < 0 {
		return nil, fmt.Errorf("invalid base-10 amount %q", raw)
	}
	return value, nil
}
