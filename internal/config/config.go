package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the resonance API configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Storage   StorageConfig   `yaml:"storage"`
	Index     IndexConfig     `yaml:"index"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	RBS       RBSConfig       `yaml:"rbs"`
	Subspaces []SubspaceSpec  `yaml:"subspaces"`
	Uplift    UpliftConfig    `yaml:"uplift"`
	Safety    SafetyConfig    `yaml:"safety"`
	InfoGain  InfoGainConfig  `yaml:"infogain"`
	Discovery DiscoveryConfig `yaml:"discovery"`
	Auth      AuthConfig      `yaml:"auth"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// AuthConfig holds API authentication settings. An empty key list disables auth.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds Redis connection settings.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// StorageConfig holds storage settings.
type StorageConfig struct {
	KeyPrefix string `yaml:"key_prefix"`
}

// IndexConfig holds HNSW index build parameters.
type IndexConfig struct {
	HNSWM           int `yaml:"hnsw_m"`
	HNSWEFConstruct int `yaml:"hnsw_ef_construction"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider   string `yaml:"provider"`
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
}

// RBSConfig holds the combination weights and the advisory latency budget.
// The weight simplex invariant (alpha+beta+gamma == 1 ±0.01, delta in
// [0, 0.3]) is enforced by rbs.NewWeights at startup, not here.
type RBSConfig struct {
	Alpha         float64 `yaml:"alpha"`
	Beta          float64 `yaml:"beta"`
	Gamma         float64 `yaml:"gamma"`
	Delta         float64 `yaml:"delta"`
	ScoreBudgetMs int     `yaml:"score_budget_ms"`
}

// SubspaceSpec is one entry of the embedding partition table.
type SubspaceSpec struct {
	Name   string  `yaml:"name"`
	Start  int     `yaml:"start"`
	End    int     `yaml:"end"`
	Weight float64 `yaml:"weight"`
}

// UpliftConfig holds the fixed two-model estimator weights.
type UpliftConfig struct {
	ModelVersion     string    `yaml:"model_version"`
	TreatmentWeights []float64 `yaml:"treatment_weights"`
	ControlWeights   []float64 `yaml:"control_weights"`
}

// SafetyConfig holds safety evaluation thresholds.
type SafetyConfig struct {
	DefaultMaxDistanceKm float64 `yaml:"default_max_distance_km"`
	SafeDistanceKm       float64 `yaml:"safe_distance_km"`
	DefaultMaxAgeGap     int     `yaml:"default_max_age_gap"`
}

// InfoGainConfig holds information gain settings.
type InfoGainConfig struct {
	MinTraitsPerDimension int `yaml:"min_traits_per_dimension"`
}

// DiscoveryConfig holds match discovery settings.
type DiscoveryConfig struct {
	Overfetch    int `yaml:"overfetch"`
	Limit        int `yaml:"limit"`
	MatchTTLHrs  int `yaml:"match_ttl_hours"`
	MaxScorePar  int `yaml:"max_score_parallelism"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "resonance:"
	}
	if c.Index.HNSWM <= 0 {
		c.Index.HNSWM = 16
	}
	if c.Index.HNSWEFConstruct <= 0 {
		c.Index.HNSWEFConstruct = 200
	}
	if c.RBS.ScoreBudgetMs <= 0 {
		c.RBS.ScoreBudgetMs = 200
	}
	if c.Discovery.Overfetch <= 0 {
		c.Discovery.Overfetch = 50
	}
	if c.Discovery.Limit <= 0 {
		c.Discovery.Limit = 10
	}
	if c.Discovery.MatchTTLHrs <= 0 {
		c.Discovery.MatchTTLHrs = 72
	}
	if c.Discovery.MaxScorePar <= 0 {
		c.Discovery.MaxScorePar = 8
	}
	if c.InfoGain.MinTraitsPerDimension <= 0 {
		c.InfoGain.MinTraitsPerDimension = 3
	}
}

// Validate checks structural correctness. Domain invariants (weight
// simplex, subspace partition, uplift model shape) are validated by the
// domain constructors at composition time and refuse startup on violation.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	if c.Embedding.Dimensions <= 0 {
		return fmt.Errorf("embedding.dimensions must be positive, got %d", c.Embedding.Dimensions)
	}
	if len(c.Subspaces) == 0 {
		return fmt.Errorf("subspaces table is required")
	}
	if len(c.Uplift.TreatmentWeights) == 0 || len(c.Uplift.ControlWeights) == 0 {
		return fmt.Errorf("uplift.treatment_weights and uplift.control_weights are required")
	}
	if c.Discovery.Overfetch < c.Discovery.Limit {
		return fmt.Errorf("discovery.overfetch (%d) must be >= discovery.limit (%d)",
			c.Discovery.Overfetch, c.Discovery.Limit)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
