package config

import (
	"fmt"
	"os"
	"time"

	"github.com/LavaJover/shvark-escrow-service/internal/domain"
	"github.com/ilyakaznacheev/cleanenv"
)

type EscrowConfig struct {
	Env          string `yaml:"env" env:"ESCROW_ENV" env-default:"local"`
	OpsServer    `yaml:"ops_server"`
	EscrowDB     `yaml:"escrow_db"`
	LogConfig    `yaml:"log_config"`
	Storage      `yaml:"storage"`
	KafkaService `yaml:"kafka_service"`
	RabbitMQ     `yaml:"rabbitmq"`
	Redis        `yaml:"redis"`
	Workflow     `yaml:"workflow"`
	Fees         `yaml:"fees"`
	SLA          map[domain.DisputePriority]domain.SLAConfig `yaml:"sla"`
	Admins       []Admin                                     `yaml:"admins"`
}

type OpsServer struct {
	Host string `yaml:"host" env:"OPS_HOST" env-default:"0.0.0.0"`
	Port string `yaml:"port" env:"OPS_PORT" env-default:"8081"`
}

type EscrowDB struct {
	Dsn            string `yaml:"dsn" env:"ESCROW_DB_DSN"`
	MigrationsPath string `yaml:"migrations_path" env:"ESCROW_MIGRATIONS_PATH" env-default:"migrations"`
	AutoMigrate    bool   `yaml:"auto_migrate" env:"ESCROW_DB_AUTO_MIGRATE" env-default:"false"`
}

type LogConfig struct {
	LogLevel  string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	LogFormat string `yaml:"log_format" env:"LOG_FORMAT" env-default:"json"`
	LogOutput string `yaml:"log_output" env:"LOG_OUTPUT" env-default:"stdout"`
}

type Storage struct {
	// Driver is postgres or memory.
	Driver string `yaml:"driver" env:"STORAGE_DRIVER" env-default:"postgres"`
}

type KafkaService struct {
	Brokers          []string `yaml:"brokers" env:"KAFKA_BROKERS" env-separator:","`
	TransactionTopic string   `yaml:"transaction_topic" env-default:"escrow.transactions"`
	DisputeTopic     string   `yaml:"dispute_topic" env-default:"escrow.disputes"`
	TimelineTopic    string   `yaml:"timeline_topic" env-default:"escrow.timeline"`
	TaskTopic        string   `yaml:"task_topic" env-default:"escrow.tasks"`
}

type RabbitMQ struct {
	URL      string `yaml:"url" env:"RABBITMQ_URL"`
	Exchange string `yaml:"exchange" env:"RABBITMQ_EXCHANGE" env-default:"escrow.notifications"`
}

type Redis struct {
	URL         string        `yaml:"url" env:"REDIS_URL"`
	KeyPrefix   string        `yaml:"key_prefix" env-default:"escrow:fired:"`
	FiredKeyTTL time.Duration `yaml:"fired_key_ttl" env-default:"720h"`
}

type Workflow struct {
	Interval  time.Duration `yaml:"interval" env:"WORKFLOW_INTERVAL" env-default:"5m"`
	RulesFile string        `yaml:"rules_file" env:"WORKFLOW_RULES_FILE"`
	// DedupeBackend is postgres, redis or memory.
	DedupeBackend string `yaml:"dedupe_backend" env:"WORKFLOW_DEDUPE_BACKEND" env-default:"postgres"`
}

type Fees struct {
	Percent float64 `yaml:"percent" env:"FEE_PERCENT" env-default:"5"`
	MinFee  float64 `yaml:"min_fee" env:"FEE_MIN" env-default:"1"`
}

// Admin seeds the admin directory on start.
type Admin struct {
	ID           string   `yaml:"id"`
	MaxLoad      int      `yaml:"max_load"`
	Specialties  []string `yaml:"specialties"`
	Availability string   `yaml:"availability"`
}

func (a Admin) Workload() domain.AdminWorkload {
	availability := domain.Availability(a.Availability)
	if availability == "" {
		availability = domain.AvailabilityOnline
	}
	return domain.AdminWorkload{
		AdminID:      a.ID,
		MaxLoad:      a.MaxLoad,
		Specialties:  a.Specialties,
		Availability: availability,
	}
}

// Load reads the YAML file at path with environment overrides applied on top.
func Load(path string) (*EscrowConfig, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to find config file: %w", err)
	}

	var cfg EscrowConfig
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *EscrowConfig) Validate() error {
	switch c.Storage.Driver {
	case "postgres":
		if c.EscrowDB.Dsn == "" {
			return fmt.Errorf("escrow_db.dsn is required for the postgres storage driver")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}

	switch c.Workflow.DedupeBackend {
	case "postgres":
		if c.Storage.Driver != "postgres" {
			return fmt.Errorf("postgres dedupe backend needs the postgres storage driver")
		}
	case "redis":
		if c.Redis.URL == "" {
			return fmt.Errorf("redis.url is required for the redis dedupe backend")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown dedupe backend %q", c.Workflow.DedupeBackend)
	}

	if c.Workflow.Interval <= 0 {
		return fmt.Errorf("workflow.interval must be positive")
	}
	if c.Fees.Percent < 0 || c.Fees.MinFee < 0 {
		return fmt.Errorf("fees must not be negative")
	}
	for priority := range c.SLA {
		if !priority.Valid() {
			return fmt.Errorf("sla: unknown priority %q", priority)
		}
	}
	for i, a := range c.Admins {
		if a.ID == "" || a.MaxLoad <= 0 {
			return fmt.Errorf("admins[%d]: id and a positive max_load are required", i)
		}
	}
	return nil
}
