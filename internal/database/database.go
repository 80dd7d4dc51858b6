package database

import (
	"fmt"
	"time"

	"github.com/wnt/rebalancer/internal/config"
	"github.com/wnt/rebalancer/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func Connect(cfg config.Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		cfg.DBHost,
		cfg.DBUser,
		cfg.DBPassword,
		cfg.DBName,
		cfg.DBPort,
		cfg.DBSSLMode,
	)

	// Configure GORM with optimized settings
	gormConfig := &gorm.Config{
		Logger:      logger.Default.LogMode(logger.Silent),
		PrepareStmt: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}

	db, err := gorm.Open(postgres.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database connection: %w", err)
	}

	// Set connection pool limits
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetConnMaxLifetime(time.Hour)

	// Migrate database schema
	if err := migrateSchema(db); err != nil {
		return nil, err
	}

	return db, nil
}

func migrateSchema(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Pool{},
		&models.RebalanceTransaction{},
		&models.PoolEvent{},
		&models.PoolStateSnapshot{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	// Composite indexes for the sweep eligibility query and the status views
	db.Exec("CREATE INDEX IF NOT EXISTS idx_pools_eligible ON pools(status, enabled, emergency_stop)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_pool_events_pool_type_created ON pool_events(pool_id, event_type, created_at DESC)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_pool_events_severity_created ON pool_events(severity, created_at DESC)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_rebalance_transactions_pool_created ON rebalance_transactions(pool_id, created_at DESC)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_pool_state_snapshots_pool_created ON pool_state_snapshots(pool_id, created_at DESC)")

	return nil
}
