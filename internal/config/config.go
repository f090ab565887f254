package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Neo4j      Neo4jConfig      `mapstructure:"neo4j"`
	Kafka      KafkaConfig      `mapstructure:"kafka"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Engine     EngineConfig     `mapstructure:"engine"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
	Security   SecurityConfig   `mapstructure:"security"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	URL            string        `mapstructure:"url"`
	MaxConnections int           `mapstructure:"max_connections"`
	MaxIdleTime    time.Duration `mapstructure:"max_idle_time"`
	MaxLifetime    time.Duration `mapstructure:"max_lifetime"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

type RedisConfig struct {
	URL        string        `mapstructure:"url"`
	MaxRetries int           `mapstructure:"max_retries"`
	PoolSize   int           `mapstructure:"pool_size"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type Neo4jConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	URL      string `mapstructure:"url"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type KafkaConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topics  struct {
		OutfitGenerated string `mapstructure:"outfit_generated"`
	} `mapstructure:"topics"`
}

type AuthConfig struct {
	JWTSecret string          `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration   `mapstructure:"token_ttl"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// RateLimitConfig is the flat per-user generation quota. Plan-based quotas
// are the account service's concern; the engine applies one limit to every
// authenticated user.
type RateLimitConfig struct {
	Requests int           `mapstructure:"requests"` // per user per window
	Window   time.Duration `mapstructure:"window"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// EngineConfig carries the full tuning surface of the composition engine.
type EngineConfig struct {
	Weights   WeightsConfig   `mapstructure:"weights"`
	Diversity DiversityConfig `mapstructure:"diversity"`
	Selection SelectionConfig `mapstructure:"selection"`
	Tiers     TiersConfig     `mapstructure:"tiers"`
	PostHoc   PostHocConfig   `mapstructure:"post_hoc"`
	Caching   CachingConfig   `mapstructure:"caching"`
	TimeoutMs int             `mapstructure:"timeout_ms"`
}

// WeightsConfig holds the six dimension weights. Normalized at load so
// downstream code can assume they sum to 1.0. Diversity has a hard floor
// (see Validate): an underweighted diversity dimension collapses into the
// same outfit on every generation.
type WeightsConfig struct {
	BodyType      float64 `mapstructure:"body_type"`
	StyleProfile  float64 `mapstructure:"style_profile"`
	Weather       float64 `mapstructure:"weather"`
	UserFeedback  float64 `mapstructure:"user_feedback"`
	Compatibility float64 `mapstructure:"compatibility"`
	Diversity     float64 `mapstructure:"diversity"`
}

// MinDiversityWeight is the documented minimum below which the diversity
// boost becomes numerically invisible relative to base score spread.
const MinDiversityWeight = 0.20

type DiversityConfig struct {
	ItemWindow         time.Duration `mapstructure:"item_window"`        // per-item recency window
	CombinationWindow  time.Duration `mapstructure:"combination_window"` // occasion+style combination window
	PenaltyThreshold   int           `mapstructure:"penalty_threshold"`  // uses within window before the penalty ramps
	UnusedBoost        float64       `mapstructure:"unused_boost"`
	MaxPenalty         float64       `mapstructure:"max_penalty"`
	HistoryMaxEntries  int           `mapstructure:"history_max_entries"`
	RecordCombinations bool          `mapstructure:"record_combinations"`
}

type SelectionConfig struct {
	MinWardrobeItems   int     `mapstructure:"min_wardrobe_items"`   // below this: InsufficientWardrobe
	BasicPathThreshold int     `mapstructure:"basic_path_threshold"` // wardrobe sizes at or below use the basic path
	TargetCountMin     int     `mapstructure:"target_count_min"`
	TargetCountMax     int     `mapstructure:"target_count_max"`
	LoungeCountMin     int     `mapstructure:"lounge_count_min"`
	LoungeCountMax     int     `mapstructure:"lounge_count_max"`
	MaxAccessories     int     `mapstructure:"max_accessories"`
	TieBreakJitter     float64 `mapstructure:"tie_break_jitter"` // bounded random perturbation on sort
}

type TiersConfig struct {
	MinItems                int `mapstructure:"min_items"`
	MinItemsNotRecentlyUsed int `mapstructure:"min_items_not_recently_used"`
}

type PostHocConfig struct {
	MaxPatternedItems int     `mapstructure:"max_patterned_items"`
	ConfidencePenalty float64 `mapstructure:"confidence_penalty"`
}

type CachingConfig struct {
	ResultTTL  time.Duration `mapstructure:"result_ttl"`
	HistoryTTL time.Duration `mapstructure:"history_ttl"`
}

type MonitoringConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Port        string `mapstructure:"port"`
	MetricsPath string `mapstructure:"metrics_path"`
}

type SecurityConfig struct {
	CORS CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
}

func Load() (*Config, error) {
	viper.SetConfigName("app")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")

	setDefaults()

	// Environment variable overrides
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		// Config file is optional, continue with env vars and defaults
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate enforces tuning invariants that misconfiguration must not break.
func (c *Config) Validate() error {
	w := &c.Engine.Weights
	sum := w.BodyType + w.StyleProfile + w.Weather + w.UserFeedback + w.Compatibility + w.Diversity
	if sum <= 0 {
		return fmt.Errorf("engine.weights: sum must be positive, got %f", sum)
	}

	w.BodyType /= sum
	w.StyleProfile /= sum
	w.Weather /= sum
	w.UserFeedback /= sum
	w.Compatibility /= sum
	w.Diversity /= sum

	if w.Diversity < MinDiversityWeight {
		return fmt.Errorf("engine.weights.diversity: %.3f is below the documented minimum %.2f",
			w.Diversity, MinDiversityWeight)
	}

	s := &c.Engine.Selection
	if s.TargetCountMin < 2 || s.TargetCountMax < s.TargetCountMin {
		return fmt.Errorf("engine.selection: invalid target count range [%d,%d]",
			s.TargetCountMin, s.TargetCountMax)
	}

	return nil
}

func setDefaults() {
	// Server defaults
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.mode", "development")

	// Database defaults
	viper.SetDefault("database.max_connections", 25)
	viper.SetDefault("database.max_idle_time", "15m")
	viper.SetDefault("database.max_lifetime", "1h")
	viper.SetDefault("database.connect_timeout", "10s")

	// Redis defaults
	viper.SetDefault("redis.max_retries", 3)
	viper.SetDefault("redis.pool_size", 10)
	viper.SetDefault("redis.timeout", "5s")

	// Neo4j defaults (affinity graph is optional)
	viper.SetDefault("neo4j.enabled", false)

	// Kafka defaults
	viper.SetDefault("kafka.enabled", false)
	viper.SetDefault("kafka.topics.outfit_generated", "outfit-generated")

	// Auth defaults
	viper.SetDefault("auth.token_ttl", "24h")
	viper.SetDefault("auth.rate_limit.requests", 500)
	viper.SetDefault("auth.rate_limit.window", "1h")

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "text")

	// Dimension weights, tuned from the reference ranges. Diversity is kept
	// high on purpose; see MinDiversityWeight.
	viper.SetDefault("engine.weights.body_type", 0.15)
	viper.SetDefault("engine.weights.style_profile", 0.22)
	viper.SetDefault("engine.weights.weather", 0.20)
	viper.SetDefault("engine.weights.user_feedback", 0.17)
	viper.SetDefault("engine.weights.compatibility", 0.16)
	viper.SetDefault("engine.weights.diversity", 0.25)

	// Diversity tracker defaults
	viper.SetDefault("engine.diversity.item_window", "48h")
	viper.SetDefault("engine.diversity.combination_window", "168h")
	viper.SetDefault("engine.diversity.penalty_threshold", 2)
	viper.SetDefault("engine.diversity.unused_boost", 1.0)
	viper.SetDefault("engine.diversity.max_penalty", 1.0)
	viper.SetDefault("engine.diversity.history_max_entries", 200)
	viper.SetDefault("engine.diversity.record_combinations", true)

	// Selection defaults
	viper.SetDefault("engine.selection.min_wardrobe_items", 3)
	viper.SetDefault("engine.selection.basic_path_threshold", 8)
	viper.SetDefault("engine.selection.target_count_min", 3)
	viper.SetDefault("engine.selection.target_count_max", 6)
	viper.SetDefault("engine.selection.lounge_count_min", 2)
	viper.SetDefault("engine.selection.lounge_count_max", 4)
	viper.SetDefault("engine.selection.max_accessories", 2)
	viper.SetDefault("engine.selection.tie_break_jitter", 0.02)

	// Tier sufficiency defaults
	viper.SetDefault("engine.tiers.min_items", 6)
	viper.SetDefault("engine.tiers.min_items_not_recently_used", 3)

	// Post-hoc coherence defaults
	viper.SetDefault("engine.post_hoc.max_patterned_items", 2)
	viper.SetDefault("engine.post_hoc.confidence_penalty", 0.1)

	// Caching defaults
	viper.SetDefault("engine.caching.result_ttl", "60s")
	viper.SetDefault("engine.caching.history_ttl", "720h")

	// Pipeline timeout
	viper.SetDefault("engine.timeout_ms", 1500)

	// Monitoring defaults
	viper.SetDefault("monitoring.enabled", true)
	viper.SetDefault("monitoring.port", "9090")
	viper.SetDefault("monitoring.metrics_path", "/metrics")

	// Security defaults
	viper.SetDefault("security.cors.allowed_origins", []string{"*"})
	viper.SetDefault("security.cors.allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	viper.SetDefault("security.cors.allowed_headers", []string{"*"})
}
