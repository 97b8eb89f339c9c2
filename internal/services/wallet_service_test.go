// internal/services/wallet_service_test.go
package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stellara/stellara-backend/internal/models"
)

func TestLocalDepositCreditsBalance(t *testing.T) {
	e := newTestEngine(t)
	user := e.createUser(t, "collector1", models.UserTypeCollector, 0)

	intent, err := e.wallet.CreateDeposit(user.ID, &DepositRequest{Amount: 50_000})
	require.NoError(t, err)

	// No Stripe key configured, so the deposit completes immediately
	assert.Equal(t, string(models.DepositStatusCompleted), intent.Status)
	assert.Empty(t, intent.ClientSecret)
	assert.NotEmpty(t, intent.PaymentReference)
	assert.Equal(t, int64(50_000), e.balance(t, user.ID))
}

func TestDepositBelowMinimum(t *testing.T) {
	e := newTestEngine(t)
	user := e.createUser(t, "collector1", models.UserTypeCollector, 0)

	_, err := e.wallet.CreateDeposit(user.ID, &DepositRequest{Amount: 50})
	assert.Error(t, err)
	assert.Equal(t, int64(0), e.balance(t, user.ID))
}

func TestDepositRequiresActiveAccount(t *testing.T) {
	e := newTestEngine(t)
	user := e.createUser(t, "collector1", models.UserTypeCollector, 0)
	require.NoError(t, e.db.Model(user).Update("status", models.UserStatusSuspended).Error)

	_, err := e.wallet.CreateDeposit(user.ID, &DepositRequest{Amount: 10_000})
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestGetBalanceAndDepositList(t *testing.T) {
	e := newTestEngine(t)
	user := e.createUser(t, "collector1", models.UserTypeCollector, 0)

	_, err := e.wallet.CreateDeposit(user.ID, &DepositRequest{Amount: 10_000})
	require.NoError(t, err)
	_, err = e.wallet.CreateDeposit(user.ID, &DepositRequest{Amount: 5_000})
	require.NoError(t, err)

	balance, err := e.wallet.GetBalance(user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(15_000), balance)

	deposits, total, err := e.wallet.ListDeposits(user.ID, testPagination())
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, deposits, 2)
}

func TestTradeHistoryCoversBothSides(t *testing.T) {
	e := newTestEngine(t)
	designer := e.createUser(t, "designer1", models.UserTypeDesigner, 0)
	buyer := e.createUser(t, "buyer", models.UserTypeCollector, 10_000)
	e.createCollection(t, designer, "summer-line")
	asset := e.mintAsset(t, designer, designer, "summer-line")

	_, err := e.market.CreateListing(designer.ID, &CreateListingRequest{
		CollectionSlug: "summer-line", AssetID: asset.AssetID, Price: 1_000,
	})
	require.NoError(t, err)

	_, err = e.market.Purchase(buyer.ID, &PurchaseRequest{
		CollectionSlug: "summer-line", AssetID: asset.AssetID, Payment: 1_000,
	})
	require.NoError(t, err)

	buyerTrades, total, err := e.wallet.GetTradeHistory(buyer.ID, testPagination())
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, buyerTrades, 1)

	sellerTrades, total, err := e.wallet.GetTradeHistory(designer.ID, testPagination())
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, sellerTrades, 1)
	assert.Equal(t, buyerTrades[0].ID, sellerTrades[0].ID)
}
