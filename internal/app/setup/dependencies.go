package setup

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/LavaJover/shvark-escrow-service/internal/config"
	"github.com/LavaJover/shvark-escrow-service/internal/delivery/http/handlers"
	"github.com/LavaJover/shvark-escrow-service/internal/domain"
	"github.com/LavaJover/shvark-escrow-service/internal/infrastructure/kafka"
	escrowlogger "github.com/LavaJover/shvark-escrow-service/internal/infrastructure/logger"
	"github.com/LavaJover/shvark-escrow-service/internal/infrastructure/memory"
	"github.com/LavaJover/shvark-escrow-service/internal/infrastructure/metrics"
	"github.com/LavaJover/shvark-escrow-service/internal/infrastructure/notifier"
	"github.com/LavaJover/shvark-escrow-service/internal/infrastructure/postgres"
	"github.com/LavaJover/shvark-escrow-service/internal/infrastructure/postgres/repository"
	"github.com/LavaJover/shvark-escrow-service/internal/infrastructure/redisstore"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Dependencies struct {
	Config   *config.EscrowConfig
	Logger   *slog.Logger
	Clock    domain.Clock
	DB       *gorm.DB
	Redis    *redis.Client
	Registry *prometheus.Registry
	Metrics  *metrics.EscrowMetrics
	// Events delivers every emitted event to in-process subscribers.
	Events       *memory.EventBus
	Gateway      domain.EventGateway
	Notifier     domain.Notifier
	Repositories *Repositories

	closers []func()
}

type Repositories struct {
	Escrow    domain.Repository
	Rules     domain.WorkflowRuleRepository
	FiredKeys domain.FiredKeyStore
	Admins    domain.AdminDirectory
}

type adminSeeder interface {
	Upsert(ctx context.Context, admin domain.AdminWorkload) error
}

func InitializeDependencies(ctx context.Context, cfg *config.EscrowConfig, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config:   cfg,
		Logger:   logger,
		Clock:    domain.SystemClock{},
		Registry: prometheus.NewRegistry(),
		Events:   memory.NewEventBus(logger),
	}
	deps.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	deps.Metrics = metrics.NewEscrowMetrics(deps.Registry)

	if err := deps.initStorage(cfg); err != nil {
		deps.Close()
		return nil, err
	}
	if err := deps.initFiredKeys(cfg); err != nil {
		deps.Close()
		return nil, err
	}
	deps.initGateway(cfg)
	if err := deps.initNotifier(cfg); err != nil {
		deps.Close()
		return nil, err
	}
	if err := deps.seedAdmins(ctx, cfg.Admins); err != nil {
		deps.Close()
		return nil, err
	}
	return deps, nil
}

// ============= STORAGE =============

func (d *Dependencies) initStorage(cfg *config.EscrowConfig) error {
	if cfg.Storage.Driver == "memory" {
		d.Repositories = &Repositories{
			Escrow: memory.NewRepository(),
			Rules:  memory.NewWorkflowRuleRepository(),
			Admins: memory.NewAdminDirectory(),
		}
		d.Logger.Warn("using in-memory storage, state is lost on restart")
		return nil
	}

	db, err := postgres.InitDB(cfg.EscrowDB.Dsn, cfg.EscrowDB.AutoMigrate)
	if err != nil {
		return err
	}
	d.DB = db
	d.closers = append(d.closers, func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	d.Repositories = &Repositories{
		Escrow: repository.NewEscrowRepository(db),
		Rules:  repository.NewWorkflowRuleRepository(db),
		Admins: repository.NewAdminDirectory(db),
	}
	return nil
}

func (d *Dependencies) initFiredKeys(cfg *config.EscrowConfig) error {
	switch cfg.Workflow.DedupeBackend {
	case "redis":
		client, err := redisstore.NewClient(cfg.Redis.URL)
		if err != nil {
			return err
		}
		d.Redis = client
		d.closers = append(d.closers, func() { _ = client.Close() })
		d.Repositories.FiredKeys = redisstore.NewFiredKeyStore(client, cfg.Redis.KeyPrefix, cfg.Redis.FiredKeyTTL, d.Clock)
	case "memory":
		d.Repositories.FiredKeys = memory.NewFiredKeyStore()
	default:
		if d.DB == nil {
			return fmt.Errorf("dedupe backend %q needs the postgres storage driver", cfg.Workflow.DedupeBackend)
		}
		d.Repositories.FiredKeys = repository.NewFiredKeyStore(d.DB, d.Clock)
	}
	return nil
}

func (d *Dependencies) seedAdmins(ctx context.Context, admins []config.Admin) error {
	seeder, ok := d.Repositories.Admins.(adminSeeder)
	if !ok {
		return nil
	}
	for _, a := range admins {
		if err := seeder.Upsert(ctx, a.Workload()); err != nil {
			return fmt.Errorf("failed to seed admin %s: %w", a.ID, err)
		}
	}
	if len(admins) > 0 {
		d.Logger.Info("admin directory seeded", "admins", len(admins))
	}
	return nil
}

// ============= EVENTS AND NOTIFICATIONS =============

func (d *Dependencies) initGateway(cfg *config.EscrowConfig) {
	gateways := memory.Fanout{d.Events}
	if len(cfg.KafkaService.Brokers) > 0 {
		gw := kafka.NewKafkaGateway(cfg.KafkaService.Brokers, kafka.Topics{
			Transaction: cfg.KafkaService.TransactionTopic,
			Dispute:     cfg.KafkaService.DisputeTopic,
			Timeline:    cfg.KafkaService.TimelineTopic,
			Task:        cfg.KafkaService.TaskTopic,
		}, d.Logger)
		d.closers = append(d.closers, func() { _ = gw.Close() })
		gateways = append(gateways, gw)
	}
	if d.DB != nil {
		gateways = append(gateways, escrowlogger.NewPGTimelineLogger(d.DB))
	}
	d.Gateway = gateways
}

func (d *Dependencies) initNotifier(cfg *config.EscrowConfig) error {
	if cfg.RabbitMQ.URL == "" {
		d.Notifier = notifier.LogNotifier{Logger: d.Logger}
		return nil
	}
	n, err := notifier.NewRabbitNotifier(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange, d.Clock, d.Logger)
	if err != nil {
		return err
	}
	d.closers = append(d.closers, n.Close)
	d.Notifier = n
	return nil
}

// ReadinessChecks are the dependencies /readyz reports on.
func (d *Dependencies) ReadinessChecks() map[string]handlers.ReadinessCheck {
	checks := map[string]handlers.ReadinessCheck{}
	if d.DB != nil {
		checks["postgres"] = func(ctx context.Context) error {
			sqlDB, err := d.DB.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}
	}
	if d.Redis != nil {
		checks["redis"] = func(ctx context.Context) error {
			return d.Redis.Ping(ctx).Err()
		}
	}
	return checks
}

// Close releases connections in reverse order of opening.
func (d *Dependencies) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
	d.closers = nil
}
