package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/joho/godotenv"
)

// Mode selects how many top holders an analysis covers.
type Mode string

const (
	ModeQuick Mode = "quick"
	ModeDeep  Mode = "deep"
)

func AllModes() []Mode {
	return []Mode{ModeQuick, ModeDeep}
}

type Config struct {
	// Data provider
	RPCURL     string
	DataAPIURL string
	APIKeys    []string // rotated round-robin, one key per call

	// Holder fetching
	QuickMaxHolders int
	DeepMaxHolders  int
	HolderPageSize  int

	// Funding graph
	BatchSize          int
	MinFundingLamports uint64

	// Suspicion heuristics
	FreshTxThreshold int
	MinClusterSize   int

	// Admission control
	BudgetMaxPerMinute float64
	CostBase           float64 // flat call overhead per analysis
	CostPerHolder      float64 // calls issued per holder (swap + transfer lookups)
	QueuePollInterval  time.Duration
	UserCooldown       time.Duration

	// Cache
	CacheTTL      time.Duration
	SweepInterval time.Duration

	// Address lists
	ExcludedFunders map[string]string // address -> label, skipped as funding sources
	ClusterIgnore   map[string]bool   // funders whose clusters are dropped entirely
	BondingCurve    string            // filtered out of holder lists
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		RPCURL:     envOr("RPC_URL", "https://api.mainnet-beta.solana.com"),
		DataAPIURL: envOr("DATA_API_URL", "https://data.solanatracker.io"),
		APIKeys:    splitTrim(os.Getenv("DATA_API_KEYS")),

		QuickMaxHolders: envInt("QUICK_MAX_HOLDERS", 20),
		DeepMaxHolders:  envInt("DEEP_MAX_HOLDERS", 50),
		HolderPageSize:  envInt("HOLDER_PAGE_SIZE", 10),

		BatchSize:          envInt("BATCH_SIZE", 10),
		MinFundingLamports: uint64(envInt("MIN_FUNDING_LAMPORTS", 10_000_000)), // 0.01 SOL

		FreshTxThreshold: envInt("FRESH_TX_THRESHOLD", 10),
		MinClusterSize:   envInt("MIN_CLUSTER_SIZE", 2),

		BudgetMaxPerMinute: envFloat("BUDGET_MAX_PER_MINUTE", 3000),
		CostBase:           envFloat("COST_BASE", 30),
		CostPerHolder:      envFloat("COST_PER_HOLDER", 3),
		QueuePollInterval:  time.Duration(envInt("QUEUE_POLL_MS", 500)) * time.Millisecond,
		UserCooldown:       time.Duration(envInt("USER_COOLDOWN_SECONDS", 5)) * time.Second,

		CacheTTL:      time.Duration(envInt("CACHE_TTL_SECONDS", 25)) * time.Second,
		SweepInterval: time.Duration(envInt("CACHE_SWEEP_SECONDS", 30)) * time.Second,

		BondingCurve: envOr("BONDING_CURVE_ADDRESS", "5Q544fKrFoe6tsEbD7S8EmxGTJYAKtTVhAW5Q5pge4j1"),
	}

	cfg.ExcludedFunders = defaultExcludedFunders()
	for _, a := range splitTrim(os.Getenv("EXCLUDED_FUNDERS")) {
		cfg.ExcludedFunders[a] = "custom"
	}

	cfg.ClusterIgnore = map[string]bool{}
	for _, a := range splitTrim(os.Getenv("CLUSTER_IGNORE")) {
		cfg.ClusterIgnore[a] = true
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if len(c.APIKeys) == 0 {
		return fmt.Errorf("no API keys configured: set DATA_API_KEYS (comma separated)")
	}
	if c.HolderPageSize <= 0 || c.QuickMaxHolders <= 0 || c.DeepMaxHolders <= 0 {
		return fmt.Errorf("holder page size and max holders must be positive")
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive")
	}
	return nil
}

// MaxHolders maps a mode to its holder count. Unknown modes get the quick depth.
func (c *Config) MaxHolders(mode Mode) int {
	if mode == ModeDeep {
		return c.DeepMaxHolders
	}
	return c.QuickMaxHolders
}

// EstimatedCost is the pessimistic per-analysis call estimate debited at
// admission: one swap-activity and one transfer-history lookup per holder
// plus flat overhead for holder pages and supply.
func (c *Config) EstimatedCost(mode Mode) float64 {
	return c.CostPerHolder*float64(c.MaxHolders(mode)) + c.CostBase
}

// --- Known infrastructure addresses excluded as funding sources ---
// CEX hot wallets, AMM programs and system accounts fund thousands of
// unrelated wallets; treating them as cluster funders would be noise.

func defaultExcludedFunders() map[string]string {
	return map[string]string{
		solana.SystemProgramID.String():                "system",
		solana.TokenProgramID.String():                 "token_program",
		"5tzFkiKscXHK5ZXCGbXZxdw7gTjjD1mBwuoFbhUvuAi9": "binance",
		"2AQdpHJ2JpcEgPiATUXjQxA8QmafFegfQwSLWSprPicm": "coinbase",
		"5VCwKtCXgCJ6kit5FybXjvriW3xELsFDhYrPSqtJNmcD": "okx",
		"ASTyfSima4LLAdDgoFGkgqoKowG1LZFDr9fAQrg7iaJZ": "mexc",
		"AC5RDfQFmDS1deWZos921JfqscXdByf8BKHs5ACWjtW2": "bybit",
		"u6PJ8DtQuPFnfmwHbGFULQ4u4EgjDiyYKjVEsynXq2w":  "gate",
		"9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM": "raydium_amm",
		"675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8": "raydium_lp",
	}
}

// helpers

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func splitTrim(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	var result []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
