// internal/services/market_service.go
package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stellara/stellara-backend/internal/config"
	"github.com/stellara/stellara-backend/internal/models"
	"github.com/stellara/stellara-backend/internal/utils"
)

// MarketService owns the listing ledger and settlement. Every mutation runs
// under engineMu and commits through a single database transaction, so a
// purchase either fully settles (ownership, both balances, the fee, the
// trade record, the event) or leaves no trace.
type MarketService struct {
	db       *gorm.DB
	registry *RegistryService
	events   *EventService
	cfg      *config.Config
}

func NewMarketService(db *gorm.DB, registry *RegistryService, events *EventService, cfg *config.Config) *MarketService {
	return &MarketService{db: db, registry: registry, events: events, cfg: cfg}
}

// CalculateFee computes the market cut in the smallest currency unit.
// Integer division truncates, so the fee rounds down and the seller keeps
// the remainder.
func CalculateFee(price int64, basisPoints int) int64 {
	return price * int64(basisPoints) / 10000
}

type CreateListingRequest struct {
	CollectionSlug string `json:"collection_slug" validate:"required,collection_slug"`
	AssetID        uint64 `json:"asset_id" validate:"required,min=1"`
	// Price is checked in the service so a non-positive value reports
	// ErrInvalidPrice rather than a validation failure.
	Price int64 `json:"price"`
}

type PurchaseRequest struct {
	CollectionSlug string `json:"collection_slug" validate:"required,collection_slug"`
	AssetID        uint64 `json:"asset_id" validate:"required,min=1"`
	// Payment must equal the listing price exactly; over- and underpayment
	// are both rejected in the service with ErrInvalidPayment, so no
	// validation tag here.
	Payment int64 `json:"payment"`
}

// CreateListing puts an asset up for sale. An inactive row for the same
// asset is overwritten rather than duplicated, so the ledger holds at most
// one row per asset.
func (s *MarketService) CreateListing(sellerID uuid.UUID, req *CreateListingRequest) (*models.Listing, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	engineMu.Lock()
	defer engineMu.Unlock()

	supported, err := s.isSupported(req.CollectionSlug)
	if err != nil {
		return nil, err
	}
	if !supported {
		return nil, ErrUnsupportedCollection
	}

	if req.Price <= 0 {
		return nil, ErrInvalidPrice
	}

	asset, err := s.registry.getAsset(req.CollectionSlug, req.AssetID)
	if err != nil {
		return nil, err
	}
	if asset.OwnerID != sellerID {
		return nil, ErrUnauthorized
	}

	var listing models.Listing
	err = s.db.Where("collection_slug = ? AND asset_id = ?", req.CollectionSlug, req.AssetID).
		First(&listing).Error
	switch {
	case err == nil:
		if listing.Active {
			return nil, ErrAlreadyListed
		}
		// Reusing the slot; relist time counts as the listing time
		listing.CreatedAt = time.Now()
	case errors.Is(err, gorm.ErrRecordNotFound):
		listing = models.Listing{
			CollectionSlug: req.CollectionSlug,
			AssetID:        req.AssetID,
		}
	default:
		return nil, err
	}

	listing.SellerID = sellerID
	listing.Price = req.Price
	listing.Active = true

	txErr := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&listing).Error; err != nil {
			return err
		}
		return s.events.Record(tx, &models.MarketEvent{
			EventType:      models.EventListingCreated,
			CollectionSlug: req.CollectionSlug,
			AssetID:        req.AssetID,
			ActorID:        sellerID,
			Amount:         req.Price,
		})
	})
	if txErr != nil {
		return nil, fmt.Errorf("failed to create listing: %w", txErr)
	}

	return &listing, nil
}

// CancelListing deactivates an active listing. The seller may always cancel
// their own listing; platform admins may cancel anyone's.
func (s *MarketService) CancelListing(callerID uuid.UUID, collectionSlug string, assetID uint64) error {
	engineMu.Lock()
	defer engineMu.Unlock()

	listing, err := s.activeListing(collectionSlug, assetID)
	if err != nil {
		return err
	}

	if listing.SellerID != callerID {
		var caller models.User
		if err := s.db.First(&caller, "id = ?", callerID).Error; err != nil || !caller.IsAdmin() {
			return ErrUnauthorized
		}
	}

	txErr := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Listing{}).
			Where("id = ?", listing.ID).
			Update("active", false).Error; err != nil {
			return err
		}
		return s.events.Record(tx, &models.MarketEvent{
			EventType:      models.EventListingCancelled,
			CollectionSlug: collectionSlug,
			AssetID:        assetID,
			ActorID:        callerID,
		})
	})
	if txErr != nil {
		return fmt.Errorf("failed to cancel listing: %w", txErr)
	}

	return nil
}

// Purchase settles a sale: the buyer pays the exact listing price, the fee
// is split off for the fee recipient, ownership transfers and the listing
// deactivates. A listing whose seller no longer owns the asset is detected
// here and deactivated without taking any payment.
func (s *MarketService) Purchase(buyerID uuid.UUID, req *PurchaseRequest) (*models.Trade, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	engineMu.Lock()
	defer engineMu.Unlock()

	listing, err := s.activeListing(req.CollectionSlug, req.AssetID)
	if err != nil {
		return nil, err
	}

	if req.Payment != listing.Price {
		return nil, ErrInvalidPayment
	}
	if buyerID == listing.SellerID {
		return nil, ErrUnauthorized
	}

	asset, err := s.registry.getAsset(req.CollectionSlug, req.AssetID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, s.retireStaleListing(listing, buyerID)
		}
		return nil, err
	}
	if asset.OwnerID != listing.SellerID {
		// The seller parted with the asset outside the market. Retire the
		// listing so later callers see it gone, then report it stale.
		return nil, s.retireStaleListing(listing, buyerID)
	}

	var buyer models.User
	if err := s.db.First(&buyer, "id = ?", buyerID).Error; err != nil {
		return nil, err
	}
	if buyer.Balance < listing.Price {
		return nil, ErrInsufficientFunds
	}

	settings, err := s.GetSettings()
	if err != nil {
		return nil, err
	}

	fee := CalculateFee(listing.Price, settings.FeeBasisPoints)
	trade := &models.Trade{
		CollectionSlug: req.CollectionSlug,
		AssetID:        req.AssetID,
		BuyerID:        buyerID,
		SellerID:       listing.SellerID,
		Price:          listing.Price,
		Fee:            fee,
		SellerProceeds: listing.Price - fee,
		FeeBasisPoints: settings.FeeBasisPoints,
	}

	txErr := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Listing{}).
			Where("id = ?", listing.ID).
			Update("active", false).Error; err != nil {
			return err
		}

		if err := s.registry.transferOwnership(tx, req.CollectionSlug, req.AssetID, listing.SellerID, buyerID); err != nil {
			return err
		}

		if err := tx.Model(&models.User{}).
			Where("id = ?", buyerID).
			UpdateColumn("balance", gorm.Expr("balance - ?", listing.Price)).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.User{}).
			Where("id = ?", listing.SellerID).
			UpdateColumn("balance", gorm.Expr("balance + ?", trade.SellerProceeds)).Error; err != nil {
			return err
		}
		if fee > 0 {
			if err := tx.Model(&models.User{}).
				Where("id = ?", settings.FeeRecipientID).
				UpdateColumn("balance", gorm.Expr("balance + ?", fee)).Error; err != nil {
				return err
			}
		}

		if err := tx.Create(trade).Error; err != nil {
			return err
		}

		sellerID := listing.SellerID
		return s.events.Record(tx, &models.MarketEvent{
			EventType:      models.EventSaleCompleted,
			CollectionSlug: req.CollectionSlug,
			AssetID:        req.AssetID,
			ActorID:        buyerID,
			CounterpartyID: &sellerID,
			Amount:         listing.Price,
			Payload: models.JSONB{
				"fee":              fee,
				"seller_proceeds":  trade.SellerProceeds,
				"fee_basis_points": settings.FeeBasisPoints,
			},
		})
	})
	if txErr != nil {
		return nil, fmt.Errorf("settlement failed: %w", txErr)
	}

	return trade, nil
}

// retireStaleListing deactivates a dead listing in its own transaction and
// always returns ErrStaleListing for the caller to surface.
func (s *MarketService) retireStaleListing(listing *models.Listing, detectedBy uuid.UUID) error {
	txErr := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Listing{}).
			Where("id = ?", listing.ID).
			Update("active", false).Error; err != nil {
			return err
		}
		return s.events.Record(tx, &models.MarketEvent{
			EventType:      models.EventListingCancelled,
			CollectionSlug: listing.CollectionSlug,
			AssetID:        listing.AssetID,
			ActorID:        detectedBy,
			Payload:        models.JSONB{"reason": "stale"},
		})
	})
	if txErr != nil {
		return fmt.Errorf("failed to retire stale listing: %w", txErr)
	}
	return ErrStaleListing
}

// GetListing returns the ledger row for an asset whether or not it is
// active. ErrNotListed means the asset has never been listed.
func (s *MarketService) GetListing(collectionSlug string, assetID uint64) (*models.Listing, error) {
	var listing models.Listing
	err := s.db.Preload("Seller").
		Where("collection_slug = ? AND asset_id = ?", collectionSlug, assetID).
		First(&listing).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotListed
		}
		return nil, err
	}
	return &listing, nil
}

type ListingSearchParams struct {
	utils.PaginationParams
	CollectionSlug string
	SellerID       *uuid.UUID
	ActiveOnly     bool
}

func (s *MarketService) SearchListings(params *ListingSearchParams) ([]models.Listing, int64, error) {
	query := s.db.Model(&models.Listing{})

	if params.CollectionSlug != "" {
		query = query.Where("collection_slug = ?", params.CollectionSlug)
	}
	if params.SellerID != nil {
		query = query.Where("seller_id = ?", *params.SellerID)
	}
	if params.ActiveOnly {
		query = query.Where("active = ?", true)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var listings []models.Listing
	query = utils.ApplyPagination(query, params.PaginationParams)
	query = utils.ApplySort(query, params.PaginationParams, []string{"created_at", "price"})
	if err := query.Preload("Seller").Find(&listings).Error; err != nil {
		return nil, 0, err
	}

	return listings, total, nil
}

// SetFee updates the market cut. The new rate only applies to settlements
// that happen after the change commits.
func (s *MarketService) SetFee(adminID uuid.UUID, basisPoints int) error {
	engineMu.Lock()
	defer engineMu.Unlock()

	var admin models.User
	if err := s.db.First(&admin, "id = ?", adminID).Error; err != nil || !admin.IsAdmin() {
		return ErrUnauthorized
	}

	if basisPoints < 0 || basisPoints > s.cfg.Market.FeeBasisPointsCap {
		return ErrFeeOutOfRange
	}

	settings, err := s.GetSettings()
	if err != nil {
		return err
	}
	previous := settings.FeeBasisPoints

	txErr := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.MarketSettings{}).
			Where("id = ?", settings.ID).
			Updates(map[string]interface{}{
				"fee_basis_points": basisPoints,
				"updated_by":       adminID,
			}).Error; err != nil {
			return err
		}
		return s.events.Record(tx, &models.MarketEvent{
			EventType: models.EventFeeUpdated,
			ActorID:   adminID,
			Amount:    int64(basisPoints),
			Payload: models.JSONB{
				"previous_basis_points": previous,
				"basis_points":          basisPoints,
			},
		})
	})
	if txErr != nil {
		return fmt.Errorf("failed to update fee: %w", txErr)
	}

	return nil
}

func (s *MarketService) GetSettings() (*models.MarketSettings, error) {
	var settings models.MarketSettings
	if err := s.db.First(&settings).Error; err != nil {
		return nil, fmt.Errorf("market settings missing: %w", err)
	}
	return &settings, nil
}

// AddSupportedCollection puts a collection on the trading allow-list.
// Adding an already-supported collection is a no-op.
func (s *MarketService) AddSupportedCollection(adminID uuid.UUID, collectionSlug string) error {
	engineMu.Lock()
	defer engineMu.Unlock()

	if _, err := s.registry.GetCollection(collectionSlug); err != nil {
		return err
	}

	supported, err := s.isSupported(collectionSlug)
	if err != nil {
		return err
	}
	if supported {
		return nil
	}

	txErr := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&models.SupportedCollection{
			CollectionSlug: collectionSlug,
			AddedBy:        adminID,
		}).Error; err != nil {
			return err
		}
		return s.events.Record(tx, &models.MarketEvent{
			EventType:      models.EventCollectionSupported,
			CollectionSlug: collectionSlug,
			ActorID:        adminID,
		})
	})
	if txErr != nil {
		return fmt.Errorf("failed to add supported collection: %w", txErr)
	}

	return nil
}

// RemoveSupportedCollection takes a collection off the allow-list. Existing
// listings stay in the ledger but no new ones can be created.
func (s *MarketService) RemoveSupportedCollection(adminID uuid.UUID, collectionSlug string) error {
	engineMu.Lock()
	defer engineMu.Unlock()

	supported, err := s.isSupported(collectionSlug)
	if err != nil {
		return err
	}
	if !supported {
		return nil
	}

	txErr := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().
			Where("collection_slug = ?", collectionSlug).
			Delete(&models.SupportedCollection{}).Error; err != nil {
			return err
		}
		return s.events.Record(tx, &models.MarketEvent{
			EventType:      models.EventCollectionUnsupported,
			CollectionSlug: collectionSlug,
			ActorID:        adminID,
		})
	})
	if txErr != nil {
		return fmt.Errorf("failed to remove supported collection: %w", txErr)
	}

	return nil
}

func (s *MarketService) IsSupportedCollection(collectionSlug string) (bool, error) {
	return s.isSupported(collectionSlug)
}

func (s *MarketService) ListSupportedCollections() ([]models.SupportedCollection, error) {
	var supported []models.SupportedCollection
	err := s.db.Order("created_at ASC").Find(&supported).Error
	return supported, err
}

// GetMarketStats summarizes ledger activity for the admin dashboard.
func (s *MarketService) GetMarketStats() (map[string]interface{}, error) {
	var activeListings, totalTrades int64
	var volume, fees struct{ Total int64 }

	if err := s.db.Model(&models.Listing{}).Where("active = ?", true).Count(&activeListings).Error; err != nil {
		return nil, err
	}
	if err := s.db.Model(&models.Trade{}).Count(&totalTrades).Error; err != nil {
		return nil, err
	}
	if err := s.db.Model(&models.Trade{}).
		Select("COALESCE(SUM(price), 0) as total").Scan(&volume).Error; err != nil {
		return nil, err
	}
	if err := s.db.Model(&models.Trade{}).
		Select("COALESCE(SUM(fee), 0) as total").Scan(&fees).Error; err != nil {
		return nil, err
	}

	since := time.Now().AddDate(0, 0, -1)
	var tradesLastDay int64
	if err := s.db.Model(&models.Trade{}).Where("created_at > ?", since).Count(&tradesLastDay).Error; err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"active_listings": activeListings,
		"total_trades":    totalTrades,
		"total_volume":    volume.Total,
		"total_fees":      fees.Total,
		"trades_last_24h": tradesLastDay,
	}, nil
}

func (s *MarketService) activeListing(collectionSlug string, assetID uint64) (*models.Listing, error) {
	var listing models.Listing
	err := s.db.Where("collection_slug = ? AND asset_id = ?", collectionSlug, assetID).
		First(&listing).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotListed
		}
		return nil, err
	}
	if !listing.Active {
		return nil, ErrNotListed
	}
	return &listing, nil
}

func (s *MarketService) isSupported(collectionSlug string) (bool, error) {
	var count int64
	err := s.db.Model(&models.SupportedCollection{}).
		Where("collection_slug = ?", collectionSlug).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
