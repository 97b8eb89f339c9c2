// internal/database/connection.go
package database

import (
	"fmt"
	"log"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/stellara/stellara-backend/internal/config"
	"github.com/stellara/stellara-backend/internal/models"
)

var DB *gorm.DB

func Initialize(cfg config.DatabaseConfig) (*gorm.DB, error) {
	var err error
	var gormConfig *gorm.Config

	// Configure GORM logger
	if cfg.LogLevel == "silent" {
		gormConfig = &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		}
	} else {
		gormConfig = &gorm.Config{
			Logger: logger.Default.LogMode(logger.Info),
		}
	}

	// Connect to database
	DB, err = gorm.Open(postgres.Open(cfg.DSN()), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Get underlying sql.DB
	sqlDB, err := DB.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Configure connection pool
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.MaxLifetime) * time.Second)

	// Test connection
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("Database connection established successfully")
	return DB, nil
}

func Close(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		log.Printf("Error getting underlying sql.DB: %v", err)
		return
	}

	if err := sqlDB.Close(); err != nil {
		log.Printf("Error closing database connection: %v", err)
	} else {
		log.Println("Database connection closed successfully")
	}
}

func RunMigrations(db *gorm.DB) error {
	log.Println("Running database migrations...")

	// Run auto-migrations
	err := db.AutoMigrate(
		&models.User{},
		&models.Collection{},
		&models.Asset{},
		&models.SupportedCollection{},
		&models.Listing{},
		&models.MarketSettings{},
		&models.Trade{},
		&models.Deposit{},
		&models.MarketEvent{},
	)

	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// Create indexes
	if err := createIndexes(db); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	log.Println("Database migrations completed successfully")
	return nil
}

func createIndexes(db *gorm.DB) error {
	// Postgres-only DDL; the SQLite test database relies on the gorm tags.
	if db.Dialector.Name() != "postgres" {
		return nil
	}

	indexes := []string{
		// User indexes
		"CREATE INDEX IF NOT EXISTS idx_users_email ON users(email)",
		"CREATE INDEX IF NOT EXISTS idx_users_type_status ON users(user_type, status)",

		// Asset indexes
		"CREATE INDEX IF NOT EXISTS idx_assets_owner ON assets(owner_id)",
		"CREATE INDEX IF NOT EXISTS idx_assets_category_rarity ON assets(category, rarity)",
		"CREATE INDEX IF NOT EXISTS idx_assets_created_at ON assets(created_at DESC)",

		// Listing indexes
		"CREATE INDEX IF NOT EXISTS idx_listings_seller_active ON listings(seller_id, active)",
		"CREATE INDEX IF NOT EXISTS idx_listings_collection_active ON listings(collection_slug, active)",
		"CREATE INDEX IF NOT EXISTS idx_listings_created_at ON listings(created_at)",

		// Trade indexes
		"CREATE INDEX IF NOT EXISTS idx_trades_buyer ON trades(buyer_id)",
		"CREATE INDEX IF NOT EXISTS idx_trades_seller ON trades(seller_id)",
		"CREATE INDEX IF NOT EXISTS idx_trades_created_at ON trades(created_at DESC)",

		// Event indexes
		"CREATE INDEX IF NOT EXISTS idx_market_events_type_created ON market_events(event_type, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_market_events_key ON market_events(collection_slug, asset_id)",
	}

	for _, index := range indexes {
		if err := db.Exec(index).Error; err != nil {
			log.Printf("Warning: Failed to create index: %s, Error: %v", index, err)
			// Continue with other indexes instead of failing completely
		}
	}

	return nil
}

// SeedInitialData creates the platform administrator and the market fee
// configuration row if they do not exist yet.
func SeedInitialData(db *gorm.DB, cfg *config.Config) error {
	log.Println("Seeding initial data...")

	var admin models.User
	err := db.Where("user_type = ?", models.UserTypeAdmin).First(&admin).Error
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			return fmt.Errorf("failed to look up admin user: %w", err)
		}

		admin = models.User{
			Username: cfg.Admin.Username,
			Email:    cfg.Admin.Email,
			UserType: models.UserTypeAdmin,
			Status:   models.UserStatusActive,
			ProfileData: models.JSONB{
				"role": "platform_administrator",
			},
		}

		if err := admin.SetPassword(cfg.Admin.Password); err != nil {
			return fmt.Errorf("failed to set admin password: %w", err)
		}

		if err := db.Create(&admin).Error; err != nil {
			return fmt.Errorf("failed to create admin user: %w", err)
		}

		log.Println("Default admin user created successfully")
	}

	// Fee configuration lives in its own row so SetFee survives restarts.
	var settingsCount int64
	if err := db.Model(&models.MarketSettings{}).Count(&settingsCount).Error; err != nil {
		return fmt.Errorf("failed to count market settings: %w", err)
	}

	if settingsCount == 0 {
		settings := models.MarketSettings{
			FeeBasisPoints: cfg.Market.FeeBasisPoints,
			FeeRecipientID: admin.ID,
			UpdatedBy:      admin.ID,
		}

		if err := db.Create(&settings).Error; err != nil {
			return fmt.Errorf("failed to create market settings: %w", err)
		}

		log.Printf("Market settings created with fee of %d basis points", cfg.Market.FeeBasisPoints)
	}

	log.Println("Initial data seeding completed")
	return nil
}

// Transaction helper
func WithTransaction(db *gorm.DB, fn func(*gorm.DB) error) error {
	tx := db.Begin()
	if tx.Error != nil {
		return tx.Error
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit().Error
}
