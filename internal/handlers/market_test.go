// internal/handlers/market_test.go
package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/stellara/stellara-backend/internal/config"
	"github.com/stellara/stellara-backend/internal/database"
	"github.com/stellara/stellara-backend/internal/models"
	"github.com/stellara/stellara-backend/internal/services"
)

func setupListingRoute(t *testing.T) (*gorm.DB, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	cfg := &config.Config{
		Environment: "test",
		Market:      config.MarketConfig{FeeBasisPoints: 250, FeeBasisPointsCap: 1000},
		Admin: config.AdminConfig{
			Username: "admin", Email: "admin@test.local", Password: "Adm1n!pass",
		},
	}
	require.NoError(t, database.RunMigrations(db))
	require.NoError(t, database.SeedInitialData(db, cfg))

	events := services.NewEventService(db)
	registry := services.NewRegistryService(db, events)
	market := services.NewMarketService(db, registry, events, cfg)
	handler := NewMarketHandler(market)

	r := gin.New()
	r.GET("/market/listings", handler.SearchListings)
	return db, r
}

// The public ledger query reads in insertion order by default; an explicit
// order parameter still applies.
func TestSearchListingsDefaultsToInsertionOrder(t *testing.T) {
	db, r := setupListingRoute(t)

	seller := &models.User{
		Username: "seller", Email: "seller@test.local",
		UserType: models.UserTypeDesigner, Status: models.UserStatusActive,
	}
	require.NoError(t, seller.SetPassword("Sup3r!pass"))
	require.NoError(t, db.Create(seller).Error)

	base := time.Now().Add(-time.Hour)
	for i := uint64(1); i <= 3; i++ {
		listing := &models.Listing{
			CollectionSlug: "summer-line",
			AssetID:        i,
			SellerID:       seller.ID,
			Price:          int64(i) * 1_000,
			Active:         true,
		}
		require.NoError(t, db.Create(listing).Error)
		require.NoError(t, db.Model(listing).
			Update("created_at", base.Add(time.Duration(i)*time.Minute)).Error)
	}

	fetch := func(query string) []models.Listing {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/market/listings"+query, nil)
		r.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)

		var body struct {
			Success bool             `json:"success"`
			Data    []models.Listing `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		require.True(t, body.Success)
		return body.Data
	}

	byDefault := fetch("")
	require.Len(t, byDefault, 3)
	assert.Equal(t, uint64(1), byDefault[0].AssetID)
	assert.Equal(t, uint64(2), byDefault[1].AssetID)
	assert.Equal(t, uint64(3), byDefault[2].AssetID)

	reversed := fetch("?order=desc")
	require.Len(t, reversed, 3)
	assert.Equal(t, uint64(3), reversed[0].AssetID)
	assert.Equal(t, uint64(1), reversed[2].AssetID)
}
