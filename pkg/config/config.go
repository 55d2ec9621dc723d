package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/esgarath/wardenlevel/pkg/tier"
)

// AppConfig holds the complete configuration for the application.
type AppConfig struct {
	Environment string         `mapstructure:"environment"`
	LogLevel    string         `mapstructure:"log_level"`
	ServiceName string         `mapstructure:"service_name"`
	MongoDB     MongoConfig    `mapstructure:"mongodb"`
	Kafka       KafkaConfig    `mapstructure:"kafka"`
	Postgres    PostgresConfig `mapstructure:"postgres"`
	Redis       RedisConfig    `mapstructure:"redis"`
	Tracker     TrackerConfig  `mapstructure:"tracker"`
	Archiver    ArchiverConfig `mapstructure:"archiver"`
}

type MongoConfig struct {
	URI            string        `mapstructure:"uri"`
	Database       string        `mapstructure:"database"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
	GroupID string   `mapstructure:"group_id"`
}

type PostgresConfig struct {
	URI      string `mapstructure:"uri"`
	MaxConns int    `mapstructure:"max_conns"`
	MinConns int    `mapstructure:"min_conns"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// TrackerConfig configures the sync core process.
type TrackerConfig struct {
	HTTPAddr    string   `mapstructure:"http_addr"`
	ChangeLimit int      `mapstructure:"change_limit"`
	Professions []string `mapstructure:"professions"`

	// ResumeBackend selects where change stream resume tokens live:
	// "file" or "redis".
	ResumeBackend  string `mapstructure:"resume_backend"`
	ResumeTokenDir string `mapstructure:"resume_token_dir"`
}

// ArchiverConfig configures the Kafka-to-Postgres audit pipeline.
type ArchiverConfig struct {
	BatchSize     int           `mapstructure:"batch_size"`
	FlushInterval time.Duration `mapstructure:"flush_interval"`
	WorkerCount   int           `mapstructure:"worker_count"`
}

// Load loads configuration from file and environment variables.
func Load(path string) (*AppConfig, error) {
	v := viper.New()

	v.SetDefault("environment", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("mongodb.connect_timeout", 10*time.Second)
	v.SetDefault("kafka.group_id", "archiver")
	v.SetDefault("postgres.max_conns", 50)
	v.SetDefault("postgres.min_conns", 10)
	v.SetDefault("postgres.uri", "")
	v.SetDefault("redis.addr", "")
	v.SetDefault("tracker.http_addr", ":8080")
	v.SetDefault("tracker.change_limit", 20)
	v.SetDefault("tracker.professions", tier.DefaultProfessions)
	v.SetDefault("tracker.resume_backend", "file")
	v.SetDefault("tracker.resume_token_dir", "resume_tokens")
	v.SetDefault("archiver.batch_size", 1000)
	v.SetDefault("archiver.flush_interval", 500*time.Millisecond)
	v.SetDefault("archiver.worker_count", 4)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	// Bind environment variables explicitly so Unmarshal picks up nested keys
	v.BindEnv("service_name", "SERVICE_NAME")
	v.BindEnv("environment", "ENVIRONMENT")
	v.BindEnv("log_level", "LOG_LEVEL")
	v.BindEnv("mongodb.uri", "MONGODB_URI")
	v.BindEnv("mongodb.database", "MONGODB_DATABASE")
	v.BindEnv("kafka.brokers", "KAFKA_BROKERS")
	v.BindEnv("kafka.topic", "KAFKA_TOPIC")
	v.BindEnv("kafka.group_id", "KAFKA_GROUP_ID")
	v.BindEnv("postgres.uri", "POSTGRES_URI")
	v.BindEnv("postgres.max_conns", "POSTGRES_MAX_CONNS")
	v.BindEnv("postgres.min_conns", "POSTGRES_MIN_CONNS")
	v.BindEnv("redis.addr", "REDIS_ADDR")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("redis.db", "REDIS_DB")
	v.BindEnv("tracker.http_addr", "TRACKER_HTTP_ADDR")
	v.BindEnv("tracker.change_limit", "TRACKER_CHANGE_LIMIT")
	v.BindEnv("tracker.resume_backend", "TRACKER_RESUME_BACKEND")
	v.BindEnv("tracker.resume_token_dir", "TRACKER_RESUME_TOKEN_DIR")
	v.BindEnv("archiver.batch_size", "ARCHIVER_BATCH_SIZE")
	v.BindEnv("archiver.flush_interval", "ARCHIVER_FLUSH_INTERVAL")
	v.BindEnv("archiver.worker_count", "ARCHIVER_WORKER_COUNT")

	var config AppConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Brokers arrive as a single comma-separated string from env
	brokers := v.GetString("kafka.brokers")
	if brokers != "" && len(config.Kafka.Brokers) == 0 {
		config.Kafka.Brokers = strings.Split(brokers, ",")
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks if the configuration is valid.
func (c *AppConfig) Validate() error {
	if c.ServiceName == "" {
		return errors.New("service_name is required")
	}
	if c.MongoDB.URI == "" {
		return errors.New("mongodb.uri is required")
	}
	if c.MongoDB.Database == "" {
		return errors.New("mongodb.database is required")
	}
	if len(c.Kafka.Brokers) == 0 {
		return errors.New("kafka.brokers is required")
	}
	if c.Kafka.Topic == "" {
		return errors.New("kafka.topic is required")
	}
	if len(c.Tracker.Professions) == 0 {
		return errors.New("tracker.professions is required")
	}
	if c.Tracker.ChangeLimit < 1 {
		return errors.New("tracker.change_limit must be positive")
	}
	switch c.Tracker.ResumeBackend {
	case "file":
		if c.Tracker.ResumeTokenDir == "" {
			return errors.New("tracker.resume_token_dir is required for the file backend")
		}
	case "redis":
		if c.Redis.Addr == "" {
			return errors.New("redis.addr is required for the redis resume backend")
		}
	default:
		return errors.New("tracker.resume_backend must be file or redis")
	}
	return nil
}

// ValidateArchiver checks the extra fields the archiver process needs.
func (c *AppConfig) ValidateArchiver() error {
	if c.Postgres.URI == "" {
		return errors.New("postgres.uri is required")
	}
	if c.Kafka.GroupID == "" {
		return errors.New("kafka.group_id is required")
	}
	if c.Archiver.BatchSize < 1 {
		return errors.New("archiver.batch_size must be positive")
	}
	if c.Archiver.WorkerCount < 1 {
		return errors.New("archiver.worker_count must be positive")
	}
	return nil
}
