// internal/services/service_test.go
package services

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/stellara/stellara-backend/internal/config"
	"github.com/stellara/stellara-backend/internal/database"
	"github.com/stellara/stellara-backend/internal/models"
	"github.com/stellara/stellara-backend/internal/utils"
)

func testPagination() utils.PaginationParams {
	return utils.PaginationParams{Page: 1, Limit: 50, Sort: "created_at", Order: "asc"}
}

// testEngine bundles the services under test over an in-memory database
// seeded with the admin account and the fee configuration row.
type testEngine struct {
	db       *gorm.DB
	cfg      *config.Config
	events   *EventService
	registry *RegistryService
	market   *MarketService
	wallet   *WalletService
	admin    *models.User
}

func newTestEngine(t *testing.T) *testEngine {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	cfg := testConfig()
	require.NoError(t, database.RunMigrations(db))
	require.NoError(t, database.SeedInitialData(db, cfg))

	var admin models.User
	require.NoError(t, db.Where("user_type = ?", models.UserTypeAdmin).First(&admin).Error)

	events := NewEventService(db)
	registry := NewRegistryService(db, events)

	return &testEngine{
		db:       db,
		cfg:      cfg,
		events:   events,
		registry: registry,
		market:   NewMarketService(db, registry, events, cfg),
		wallet:   NewWalletService(db, cfg),
		admin:    &admin,
	}
}

func testConfig() *config.Config {
	return &config.Config{
		Environment: "test",
		JWT: config.JWTConfig{
			SecretKey:       "test-secret",
			AccessTokenTTL:  1,
			RefreshTokenTTL: 24,
		},
		Payment: config.PaymentConfig{
			Currency:       "usd",
			MinimumDeposit: 100,
		},
		Market: config.MarketConfig{
			FeeBasisPoints:    250,
			FeeBasisPointsCap: 1000,
		},
		Admin: config.AdminConfig{
			Username: "admin",
			Email:    "admin@test.local",
			Password: "Adm1n!pass",
		},
	}
}

func (e *testEngine) createUser(t *testing.T, username string, userType models.UserType, balance int64) *models.User {
	t.Helper()

	user := &models.User{
		Username: username,
		Email:    username + "@test.local",
		UserType: userType,
		Status:   models.UserStatusActive,
		Balance:  balance,
	}
	require.NoError(t, user.SetPassword("Sup3r!pass"))
	require.NoError(t, e.db.Create(user).Error)
	return user
}

// createCollection makes a designer-owned collection and puts it on the
// market allow-list.
func (e *testEngine) createCollection(t *testing.T, designer *models.User, slug string) *models.Collection {
	t.Helper()

	collection, err := e.registry.CreateCollection(designer.ID, &CreateCollectionRequest{
		Slug:   slug,
		Name:   "Test Collection",
		Symbol: "TST",
	})
	require.NoError(t, err)
	require.NoError(t, e.market.AddSupportedCollection(e.admin.ID, slug))
	return collection
}

func (e *testEngine) mintAsset(t *testing.T, designer, owner *models.User, slug string) *models.Asset {
	t.Helper()

	asset, err := e.registry.Mint(designer.ID, slug, &MintAssetRequest{
		OwnerID:         owner.ID,
		Category:        "top",
		Rarity:          "rare",
		Level:           5,
		MetadataPointer: "https://cdn.test.local/meta/1.json",
	})
	require.NoError(t, err)
	return asset
}

func (e *testEngine) balance(t *testing.T, userID uuid.UUID) int64 {
	t.Helper()

	var user models.User
	require.NoError(t, e.db.First(&user, "id = ?", userID).Error)
	return user.Balance
}

func (e *testEngine) eventCount(t *testing.T, eventType models.EventType) int64 {
	t.Helper()

	var count int64
	require.NoError(t, e.db.Model(&models.MarketEvent{}).
		Where("event_type = ?", eventType).Count(&count).Error)
	return count
}
