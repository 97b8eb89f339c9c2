// internal/services/market_service_test.go
package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stellara/stellara-backend/internal/models"
)

func TestCalculateFee(t *testing.T) {
	assert.Equal(t, int64(25000), CalculateFee(1_000_000, 250))
	assert.Equal(t, int64(0), CalculateFee(1_000_000, 0))
	assert.Equal(t, int64(100_000), CalculateFee(1_000_000, 1000))
	// Integer division truncates in the seller's favour
	assert.Equal(t, int64(0), CalculateFee(39, 250))
	assert.Equal(t, int64(2), CalculateFee(101, 250))
}

func TestCreateListingRequiresSupportedCollection(t *testing.T) {
	e := newTestEngine(t)
	designer := e.createUser(t, "designer1", models.UserTypeDesigner, 0)

	_, err := e.registry.CreateCollection(designer.ID, &CreateCollectionRequest{
		Slug: "indie-line", Name: "Indie", Symbol: "IND",
	})
	require.NoError(t, err)

	asset := e.mintAsset(t, designer, designer, "indie-line")

	_, err = e.market.CreateListing(designer.ID, &CreateListingRequest{
		CollectionSlug: "indie-line",
		AssetID:        asset.AssetID,
		Price:          1000,
	})
	assert.ErrorIs(t, err, ErrUnsupportedCollection)

	// The allow-list gate comes before the price check
	_, err = e.market.CreateListing(designer.ID, &CreateListingRequest{
		CollectionSlug: "indie-line",
		AssetID:        asset.AssetID,
		Price:          0,
	})
	assert.ErrorIs(t, err, ErrUnsupportedCollection)
}

func TestCreateListingValidation(t *testing.T) {
	e := newTestEngine(t)
	designer := e.createUser(t, "designer1", models.UserTypeDesigner, 0)
	other := e.createUser(t, "other", models.UserTypeCollector, 0)
	e.createCollection(t, designer, "summer-line")
	asset := e.mintAsset(t, designer, designer, "summer-line")

	// Non-positive prices, zero included
	for _, price := range []int64{0, -5} {
		_, err := e.market.CreateListing(designer.ID, &CreateListingRequest{
			CollectionSlug: "summer-line",
			AssetID:        asset.AssetID,
			Price:          price,
		})
		assert.ErrorIs(t, err, ErrInvalidPrice)
	}

	// Seller must own the asset
	_, err := e.market.CreateListing(other.ID, &CreateListingRequest{
		CollectionSlug: "summer-line",
		AssetID:        asset.AssetID,
		Price:          1000,
	})
	assert.ErrorIs(t, err, ErrUnauthorized)

	// Unknown asset
	_, err = e.market.CreateListing(designer.ID, &CreateListingRequest{
		CollectionSlug: "summer-line",
		AssetID:        99,
		Price:          1000,
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateListingRejectsDoubleListing(t *testing.T) {
	e := newTestEngine(t)
	designer := e.createUser(t, "designer1", models.UserTypeDesigner, 0)
	e.createCollection(t, designer, "summer-line")
	asset := e.mintAsset(t, designer, designer, "summer-line")

	_, err := e.market.CreateListing(designer.ID, &CreateListingRequest{
		CollectionSlug: "summer-line", AssetID: asset.AssetID, Price: 1000,
	})
	require.NoError(t, err)

	_, err = e.market.CreateListing(designer.ID, &CreateListingRequest{
		CollectionSlug: "summer-line", AssetID: asset.AssetID, Price: 2000,
	})
	assert.ErrorIs(t, err, ErrAlreadyListed)
}

func TestRelistOverwritesSingleRow(t *testing.T) {
	e := newTestEngine(t)
	designer := e.createUser(t, "designer1", models.UserTypeDesigner, 0)
	e.createCollection(t, designer, "summer-line")
	asset := e.mintAsset(t, designer, designer, "summer-line")

	first, err := e.market.CreateListing(designer.ID, &CreateListingRequest{
		CollectionSlug: "summer-line", AssetID: asset.AssetID, Price: 1000,
	})
	require.NoError(t, err)
	require.NoError(t, e.market.CancelListing(designer.ID, "summer-line", asset.AssetID))

	second, err := e.market.CreateListing(designer.ID, &CreateListingRequest{
		CollectionSlug: "summer-line", AssetID: asset.AssetID, Price: 2500,
	})
	require.NoError(t, err)

	// Same ledger slot reused, price refreshed
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, int64(2500), second.Price)

	var count int64
	require.NoError(t, e.db.Model(&models.Listing{}).
		Where("collection_slug = ? AND asset_id = ?", "summer-line", asset.AssetID).
		Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestCancelListingAuthorization(t *testing.T) {
	e := newTestEngine(t)
	designer := e.createUser(t, "designer1", models.UserTypeDesigner, 0)
	stranger := e.createUser(t, "stranger", models.UserTypeCollector, 0)
	e.createCollection(t, designer, "summer-line")
	asset := e.mintAsset(t, designer, designer, "summer-line")

	_, err := e.market.CreateListing(designer.ID, &CreateListingRequest{
		CollectionSlug: "summer-line", AssetID: asset.AssetID, Price: 1000,
	})
	require.NoError(t, err)

	err = e.market.CancelListing(stranger.ID, "summer-line", asset.AssetID)
	assert.ErrorIs(t, err, ErrUnauthorized)

	// Platform admin may cancel anyone's listing
	err = e.market.CancelListing(e.admin.ID, "summer-line", asset.AssetID)
	assert.NoError(t, err)

	// Already inactive
	err = e.market.CancelListing(designer.ID, "summer-line", asset.AssetID)
	assert.ErrorIs(t, err, ErrNotListed)
}

func TestPurchaseSettlesAtomically(t *testing.T) {
	e := newTestEngine(t)
	designer := e.createUser(t, "designer1", models.UserTypeDesigner, 0)
	buyer := e.createUser(t, "buyer", models.UserTypeCollector, 2_000_000)
	e.createCollection(t, designer, "summer-line")
	asset := e.mintAsset(t, designer, designer, "summer-line")

	_, err := e.market.CreateListing(designer.ID, &CreateListingRequest{
		CollectionSlug: "summer-line", AssetID: asset.AssetID, Price: 1_000_000,
	})
	require.NoError(t, err)

	trade, err := e.market.Purchase(buyer.ID, &PurchaseRequest{
		CollectionSlug: "summer-line", AssetID: asset.AssetID, Payment: 1_000_000,
	})
	require.NoError(t, err)

	// Fee split at 250 basis points
	assert.Equal(t, int64(1_000_000), trade.Price)
	assert.Equal(t, int64(25_000), trade.Fee)
	assert.Equal(t, int64(975_000), trade.SellerProceeds)
	assert.Equal(t, 250, trade.FeeBasisPoints)

	// Balances moved
	assert.Equal(t, int64(1_000_000), e.balance(t, buyer.ID))
	assert.Equal(t, int64(975_000), e.balance(t, designer.ID))
	assert.Equal(t, int64(25_000), e.balance(t, e.admin.ID))

	// Ownership transferred
	owned, err := e.registry.GetAsset("summer-line", asset.AssetID)
	require.NoError(t, err)
	assert.Equal(t, buyer.ID, owned.OwnerID)

	// Listing retired
	listing, err := e.market.GetListing("summer-line", asset.AssetID)
	require.NoError(t, err)
	assert.False(t, listing.Active)

	assert.Equal(t, int64(1), e.eventCount(t, models.EventSaleCompleted))

	// Seller cannot cancel after the sale
	err = e.market.CancelListing(designer.ID, "summer-line", asset.AssetID)
	assert.ErrorIs(t, err, ErrNotListed)
}

func TestPurchaseRejectsWrongPayment(t *testing.T) {
	e := newTestEngine(t)
	designer := e.createUser(t, "designer1", models.UserTypeDesigner, 0)
	buyer := e.createUser(t, "buyer", models.UserTypeCollector, 5_000_000)
	e.createCollection(t, designer, "summer-line")
	asset := e.mintAsset(t, designer, designer, "summer-line")

	_, err := e.market.CreateListing(designer.ID, &CreateListingRequest{
		CollectionSlug: "summer-line", AssetID: asset.AssetID, Price: 1_000_000,
	})
	require.NoError(t, err)

	for _, payment := range []int64{0, 999_999, 1_000_001} {
		_, err := e.market.Purchase(buyer.ID, &PurchaseRequest{
			CollectionSlug: "summer-line", AssetID: asset.AssetID, Payment: payment,
		})
		assert.ErrorIs(t, err, ErrInvalidPayment)
	}

	// No money moved, listing still live
	assert.Equal(t, int64(5_000_000), e.balance(t, buyer.ID))
	listing, err := e.market.GetListing("summer-line", asset.AssetID)
	require.NoError(t, err)
	assert.True(t, listing.Active)
}

func TestPurchaseRejectsSelfAndUnderfunded(t *testing.T) {
	e := newTestEngine(t)
	designer := e.createUser(t, "designer1", models.UserTypeDesigner, 0)
	pauper := e.createUser(t, "pauper", models.UserTypeCollector, 10)
	e.createCollection(t, designer, "summer-line")
	asset := e.mintAsset(t, designer, designer, "summer-line")

	_, err := e.market.CreateListing(designer.ID, &CreateListingRequest{
		CollectionSlug: "summer-line", AssetID: asset.AssetID, Price: 1_000,
	})
	require.NoError(t, err)

	_, err = e.market.Purchase(designer.ID, &PurchaseRequest{
		CollectionSlug: "summer-line", AssetID: asset.AssetID, Payment: 1_000,
	})
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = e.market.Purchase(pauper.ID, &PurchaseRequest{
		CollectionSlug: "summer-line", AssetID: asset.AssetID, Payment: 1_000,
	})
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	listing, err := e.market.GetListing("summer-line", asset.AssetID)
	require.NoError(t, err)
	assert.True(t, listing.Active)
}

func TestPurchaseRetiresStaleListing(t *testing.T) {
	e := newTestEngine(t)
	designer := e.createUser(t, "designer1", models.UserTypeDesigner, 0)
	buyer := e.createUser(t, "buyer", models.UserTypeCollector, 1_000_000)
	other := e.createUser(t, "other", models.UserTypeCollector, 0)
	e.createCollection(t, designer, "summer-line")
	asset := e.mintAsset(t, designer, designer, "summer-line")

	_, err := e.market.CreateListing(designer.ID, &CreateListingRequest{
		CollectionSlug: "summer-line", AssetID: asset.AssetID, Price: 1_000,
	})
	require.NoError(t, err)

	// Asset changes hands outside the market
	require.NoError(t, e.db.Model(&models.Asset{}).
		Where("id = ?", asset.ID).Update("owner_id", other.ID).Error)

	_, err = e.market.Purchase(buyer.ID, &PurchaseRequest{
		CollectionSlug: "summer-line", AssetID: asset.AssetID, Payment: 1_000,
	})
	assert.ErrorIs(t, err, ErrStaleListing)

	// No payment taken, listing self-healed to inactive
	assert.Equal(t, int64(1_000_000), e.balance(t, buyer.ID))
	listing, err := e.market.GetListing("summer-line", asset.AssetID)
	require.NoError(t, err)
	assert.False(t, listing.Active)

	// A second attempt now reports it gone
	_, err = e.market.Purchase(buyer.ID, &PurchaseRequest{
		CollectionSlug: "summer-line", AssetID: asset.AssetID, Payment: 1_000,
	})
	assert.ErrorIs(t, err, ErrNotListed)
}

func TestSetFeeBoundsAndEffect(t *testing.T) {
	e := newTestEngine(t)
	designer := e.createUser(t, "designer1", models.UserTypeDesigner, 0)
	buyer := e.createUser(t, "buyer", models.UserTypeCollector, 1_000_000)
	e.createCollection(t, designer, "summer-line")
	asset := e.mintAsset(t, designer, designer, "summer-line")

	// Above the cap
	err := e.market.SetFee(e.admin.ID, 20_000)
	assert.ErrorIs(t, err, ErrFeeOutOfRange)

	err = e.market.SetFee(e.admin.ID, -1)
	assert.ErrorIs(t, err, ErrFeeOutOfRange)

	// Non-admin
	err = e.market.SetFee(designer.ID, 100)
	assert.ErrorIs(t, err, ErrUnauthorized)

	// Rejected changes leave the configured fee untouched
	settings, err := e.market.GetSettings()
	require.NoError(t, err)
	assert.Equal(t, 250, settings.FeeBasisPoints)

	// Valid change applies to later settlements
	require.NoError(t, e.market.SetFee(e.admin.ID, 500))

	_, err = e.market.CreateListing(designer.ID, &CreateListingRequest{
		CollectionSlug: "summer-line", AssetID: asset.AssetID, Price: 100_000,
	})
	require.NoError(t, err)

	trade, err := e.market.Purchase(buyer.ID, &PurchaseRequest{
		CollectionSlug: "summer-line", AssetID: asset.AssetID, Payment: 100_000,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(5_000), trade.Fee)
	assert.Equal(t, 500, trade.FeeBasisPoints)

	assert.Equal(t, int64(1), e.eventCount(t, models.EventFeeUpdated))
}

func TestSupportedCollectionLifecycle(t *testing.T) {
	e := newTestEngine(t)
	designer := e.createUser(t, "designer1", models.UserTypeDesigner, 0)

	_, err := e.registry.CreateCollection(designer.ID, &CreateCollectionRequest{
		Slug: "summer-line", Name: "Summer", Symbol: "SUM",
	})
	require.NoError(t, err)

	// Unknown collections cannot be allow-listed
	err = e.market.AddSupportedCollection(e.admin.ID, "no-such-line")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, e.market.AddSupportedCollection(e.admin.ID, "summer-line"))

	supported, err := e.market.IsSupportedCollection("summer-line")
	require.NoError(t, err)
	assert.True(t, supported)

	// Idempotent add records no second event
	require.NoError(t, e.market.AddSupportedCollection(e.admin.ID, "summer-line"))
	assert.Equal(t, int64(1), e.eventCount(t, models.EventCollectionSupported))

	require.NoError(t, e.market.RemoveSupportedCollection(e.admin.ID, "summer-line"))
	supported, err = e.market.IsSupportedCollection("summer-line")
	require.NoError(t, err)
	assert.False(t, supported)

	// Idempotent remove
	require.NoError(t, e.market.RemoveSupportedCollection(e.admin.ID, "summer-line"))
	assert.Equal(t, int64(1), e.eventCount(t, models.EventCollectionUnsupported))
}

func TestSearchListingsFilters(t *testing.T) {
	e := newTestEngine(t)
	designer := e.createUser(t, "designer1", models.UserTypeDesigner, 0)
	buyer := e.createUser(t, "buyer", models.UserTypeCollector, 10_000)
	e.createCollection(t, designer, "summer-line")

	first := e.mintAsset(t, designer, designer, "summer-line")
	second := e.mintAsset(t, designer, designer, "summer-line")

	for _, a := range []*models.Asset{first, second} {
		_, err := e.market.CreateListing(designer.ID, &CreateListingRequest{
			CollectionSlug: "summer-line", AssetID: a.AssetID, Price: 1_000,
		})
		require.NoError(t, err)
	}

	_, err := e.market.Purchase(buyer.ID, &PurchaseRequest{
		CollectionSlug: "summer-line", AssetID: first.AssetID, Payment: 1_000,
	})
	require.NoError(t, err)

	all, total, err := e.market.SearchListings(&ListingSearchParams{
		PaginationParams: testPagination(),
		CollectionSlug:   "summer-line",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, all, 2)

	active, total, err := e.market.SearchListings(&ListingSearchParams{
		PaginationParams: testPagination(),
		ActiveOnly:       true,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, active, 1)
	assert.Equal(t, second.AssetID, active[0].AssetID)
}
