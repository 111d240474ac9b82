package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"gopkg.in/yaml.v3"
)

// Equipment source kinds.
const (
	SourceSynthetic = "synthetic"
	SourceFile      = "file"
	SourcePostgres  = "postgres"
)

// Config holds all service settings. Values come from built-in defaults,
// then the optional YAML file named by GRIDRISK_CONFIG, then environment
// variables, each layer overriding the previous one.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
	RefreshInterval time.Duration

	// Equipment source configuration.
	EquipmentSource string
	EquipmentFile   string
	DatabaseURL     string
	EquipmentTable  string
	SyntheticCount  int
	SyntheticSeed   uint64

	// NWS forecast configuration.
	WeatherEnabled   bool
	NWSBaseURL       string
	NWSUserAgent     string
	NWSTimeout       time.Duration
	WeatherCacheSize int
	WeatherCacheTTL  time.Duration

	// Kafka publishing configuration.
	KafkaEnabled       bool
	KafkaBrokers       []string
	KafkaTopic         string
	BatchSize          int
	BatchFlushInterval time.Duration
}

// fileConfig is the YAML overlay. Unset keys leave the default in place.
type fileConfig struct {
	HTTPAddr        string `yaml:"http_addr"`
	RefreshInterval string `yaml:"refresh_interval"`
	Equipment       struct {
		Source    string `yaml:"source"`
		File      string `yaml:"file"`
		Table     string `yaml:"table"`
		Synthetic struct {
			Count int     `yaml:"count"`
			Seed  *uint64 `yaml:"seed"`
		} `yaml:"synthetic"`
	} `yaml:"equipment"`
	Weather struct {
		Enabled   *bool  `yaml:"enabled"`
		BaseURL   string `yaml:"base_url"`
		UserAgent string `yaml:"user_agent"`
		Timeout   string `yaml:"timeout"`
		CacheSize int    `yaml:"cache_size"`
		CacheTTL  string `yaml:"cache_ttl"`
	} `yaml:"weather"`
	Kafka struct {
		Enabled *bool    `yaml:"enabled"`
		Brokers []string `yaml:"brokers"`
		Topic   string   `yaml:"topic"`
	} `yaml:"kafka"`
}

func defaults() fileConfig {
	var f fileConfig
	f.HTTPAddr = ":8080"
	f.RefreshInterval = "30m"
	f.Equipment.Source = SourceSynthetic
	f.Equipment.Table = "equipment"
	f.Equipment.Synthetic.Count = 100
	seed := uint64(42)
	f.Equipment.Synthetic.Seed = &seed
	enabled := true
	f.Weather.Enabled = &enabled
	f.Weather.BaseURL = "https://api.weather.gov"
	f.Weather.UserAgent = "grid-risk-dashboard (ops@example.com)"
	f.Weather.Timeout = "5s"
	f.Weather.CacheSize = 256
	f.Weather.CacheTTL = "15m"
	disabled := false
	f.Kafka.Enabled = &disabled
	f.Kafka.Brokers = []string{"localhost:9092"}
	f.Kafka.Topic = "equipment-risk-assessments"
	return f
}

// Load reads configuration, applying defaults where unset.
func Load() (*Config, error) {
	base := defaults()
	if path := os.Getenv("GRIDRISK_CONFIG"); path != "" {
		if err := overlayFile(&base, path); err != nil {
			return nil, err
		}
	}

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}
	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}
	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	refreshInterval, err := parsePositiveDuration("REFRESH_INTERVAL", base.RefreshInterval)
	if err != nil {
		return nil, err
	}
	nwsTimeout, err := parsePositiveDuration("NWS_TIMEOUT", base.Weather.Timeout)
	if err != nil {
		return nil, err
	}
	cacheTTL, err := parsePositiveDuration("WEATHER_CACHE_TTL", base.Weather.CacheTTL)
	if err != nil {
		return nil, err
	}
	count, err := parsePositiveInt("SYNTHETIC_COUNT", base.Equipment.Synthetic.Count)
	if err != nil {
		return nil, err
	}
	seed, err := strconv.ParseUint(sharedcfg.EnvOrDefault("SYNTHETIC_SEED", strconv.FormatUint(*base.Equipment.Synthetic.Seed, 10)), 10, 64)
	if err != nil {
		return nil, errors.New("invalid SYNTHETIC_SEED")
	}
	cacheSize, err := parsePositiveInt("WEATHER_CACHE_SIZE", base.Weather.CacheSize)
	if err != nil {
		return nil, err
	}
	weatherEnabled, err := parseBool("WEATHER_ENABLED", *base.Weather.Enabled)
	if err != nil {
		return nil, err
	}
	kafkaEnabled, err := parseBool("KAFKA_ENABLED", *base.Kafka.Enabled)
	if err != nil {
		return nil, err
	}

	brokers := base.Kafka.Brokers
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		brokers = sharedcfg.ParseBrokers(v)
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", base.HTTPAddr),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
		RefreshInterval: refreshInterval,

		EquipmentSource: sharedcfg.EnvOrDefault("EQUIPMENT_SOURCE", base.Equipment.Source),
		EquipmentFile:   sharedcfg.EnvOrDefault("EQUIPMENT_FILE", base.Equipment.File),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		EquipmentTable:  sharedcfg.EnvOrDefault("EQUIPMENT_TABLE", base.Equipment.Table),
		SyntheticCount:  count,
		SyntheticSeed:   seed,

		WeatherEnabled:   weatherEnabled,
		NWSBaseURL:       sharedcfg.EnvOrDefault("NWS_BASE_URL", base.Weather.BaseURL),
		NWSUserAgent:     sharedcfg.EnvOrDefault("NWS_USER_AGENT", base.Weather.UserAgent),
		NWSTimeout:       nwsTimeout,
		WeatherCacheSize: cacheSize,
		WeatherCacheTTL:  cacheTTL,

		KafkaEnabled:       kafkaEnabled,
		KafkaBrokers:       brokers,
		KafkaTopic:         sharedcfg.EnvOrDefault("KAFKA_TOPIC", base.Kafka.Topic),
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.EquipmentSource {
	case SourceSynthetic:
	case SourceFile:
		if c.EquipmentFile == "" {
			return errors.New("EQUIPMENT_FILE is required when EQUIPMENT_SOURCE is file")
		}
	case SourcePostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required when EQUIPMENT_SOURCE is postgres")
		}
	default:
		return fmt.Errorf("invalid EQUIPMENT_SOURCE %q: must be synthetic, file or postgres", c.EquipmentSource)
	}
	if c.WeatherEnabled && c.NWSUserAgent == "" {
		return errors.New("NWS_USER_AGENT is required when WEATHER_ENABLED is true")
	}
	if c.KafkaEnabled {
		if len(c.KafkaBrokers) == 0 {
			return errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED is true")
		}
		if c.KafkaTopic == "" {
			return errors.New("KAFKA_TOPIC is required when KAFKA_ENABLED is true")
		}
	}
	return nil
}

func overlayFile(base *fileConfig, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, base); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func parsePositiveDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, fallback))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive duration", key)
	}
	return d, nil
}

func parsePositiveInt(key string, fallback int) (int, error) {
	n, err := strconv.Atoi(sharedcfg.EnvOrDefault(key, strconv.Itoa(fallback)))
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid %s: must be a positive integer", key)
	}
	return n, nil
}

func parseBool(key string, fallback bool) (bool, error) {
	b, err := strconv.ParseBool(sharedcfg.EnvOrDefault(key, strconv.FormatBool(fallback)))
	if err != nil {
		return false, fmt.Errorf("invalid %s: must be true or false", key)
	}
	return b, nil
}
