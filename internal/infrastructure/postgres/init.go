package postgres

import (
	"fmt"

	escrowlogger "github.com/LavaJover/shvark-escrow-service/internal/infrastructure/logger"
	"github.com/LavaJover/shvark-escrow-service/internal/infrastructure/postgres/models"
	"github.com/LavaJover/shvark-escrow-service/internal/infrastructure/postgres/repository"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// InitDB opens the database. With autoMigrate set it creates the schema from the models;
// otherwise the SQL migrations are expected to have run.
func InitDB(dsn string, autoMigrate bool) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	if autoMigrate {
		if err := AutoMigrate(db); err != nil {
			return nil, err
		}
	}
	return db, nil
}

func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.TransactionModel{},
		&models.DisputeModel{},
		&models.WorkflowRuleModel{},
		&models.FiredKeyModel{},
		&models.AdminWorkloadModel{},
		&escrowlogger.TimelineRecord{},
	); err != nil {
		return fmt.Errorf("failed to migrate models: %w", err)
	}
	return db.Exec(fmt.Sprintf(
		"CREATE UNIQUE INDEX IF NOT EXISTS %s ON disputes (transaction_id) WHERE status IN ('OPEN', 'IN_REVIEW')",
		repository.ActiveDisputeIndex,
	)).Error
}
