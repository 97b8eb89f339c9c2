// internal/services/registry_service.go
package services

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/stellara/stellara-backend/internal/models"
	"github.com/stellara/stellara-backend/internal/utils"
)

// engineMu serializes every state-mutating registry and market operation.
// Validation and mutation happen under the same hold, so an operation never
// acts on state another caller changed between its checks and its writes.
var engineMu sync.Mutex

// RegistryService owns collections and the clothing assets minted into them.
type RegistryService struct {
	db     *gorm.DB
	events *EventService
}

func NewRegistryService(db *gorm.DB, events *EventService) *RegistryService {
	return &RegistryService{db: db, events: events}
}

type CreateCollectionRequest struct {
	Slug        string `json:"slug" validate:"required,collection_slug"`
	Name        string `json:"name" validate:"required,min=1,max=255"`
	Symbol      string `json:"symbol" validate:"required,min=1,max=20"`
	Description string `json:"description" validate:"max=2000"`
}

type MintAssetRequest struct {
	OwnerID         uuid.UUID              `json:"owner_id" validate:"required"`
	Category        string                 `json:"category" validate:"required,clothing_category"`
	Rarity          string                 `json:"rarity" validate:"required,rarity"`
	Level           int                    `json:"level" validate:"required,min=1,max=100"`
	MetadataPointer string                 `json:"metadata_pointer" validate:"required,max=512"`
	ImageURLs       []string               `json:"image_urls" validate:"max=10,dive,url"`
	Extension       map[string]interface{} `json:"extension"`
}

type UpdateMetadataRequest struct {
	MetadataPointer string `json:"metadata_pointer" validate:"required,max=512"`
}

type AssetSearchParams struct {
	utils.PaginationParams
	CollectionSlug string
	Category       string
	Rarity         string
	OwnerID        *uuid.UUID
	WearableOnly   bool
}

// CreateCollection registers a new namespace. The creator becomes its
// administrator and the only account allowed to mint into it.
func (s *RegistryService) CreateCollection(creatorID uuid.UUID, req *CreateCollectionRequest) (*models.Collection, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	engineMu.Lock()
	defer engineMu.Unlock()

	var existing models.Collection
	if err := s.db.Where("slug = ?", req.Slug).First(&existing).Error; err == nil {
		return nil, ErrDuplicateSlug
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	collection := &models.Collection{
		Slug:        req.Slug,
		Name:        req.Name,
		Symbol:      req.Symbol,
		Description: req.Description,
		AdminID:     creatorID,
	}
	if err := s.db.Create(collection).Error; err != nil {
		return nil, fmt.Errorf("failed to create collection: %w", err)
	}

	return collection, nil
}

// Mint creates the next asset in a collection. Asset ids are sequential per
// collection, start at 1 and are never reused. Only the collection
// administrator (or a platform admin) may mint.
func (s *RegistryService) Mint(callerID uuid.UUID, collectionSlug string, req *MintAssetRequest) (*models.Asset, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	engineMu.Lock()
	defer engineMu.Unlock()

	var collection models.Collection
	if err := s.db.Where("slug = ?", collectionSlug).First(&collection).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if collection.AdminID != callerID {
		var caller models.User
		if err := s.db.First(&caller, "id = ?", callerID).Error; err != nil {
			return nil, ErrUnauthorized
		}
		if !caller.IsAdmin() {
			return nil, ErrUnauthorized
		}
	}

	var owner models.User
	if err := s.db.First(&owner, "id = ?", req.OwnerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("recipient account: %w", ErrNotFound)
		}
		return nil, err
	}

	asset := &models.Asset{
		CollectionSlug:  collectionSlug,
		OwnerID:         req.OwnerID,
		Category:        models.ClothingCategory(req.Category),
		Rarity:          models.Rarity(req.Rarity),
		Level:           req.Level,
		Wearable:        true,
		MetadataPointer: req.MetadataPointer,
		ImageURLs:       pq.StringArray(req.ImageURLs),
		Extension:       models.JSONB(req.Extension),
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		collection.LastAssetID++
		asset.AssetID = collection.LastAssetID

		if err := tx.Model(&models.Collection{}).
			Where("id = ?", collection.ID).
			Update("last_asset_id", collection.LastAssetID).Error; err != nil {
			return err
		}
		if err := tx.Create(asset).Error; err != nil {
			return err
		}

		return s.events.Record(tx, &models.MarketEvent{
			EventType:      models.EventAssetMinted,
			CollectionSlug: collectionSlug,
			AssetID:        asset.AssetID,
			ActorID:        callerID,
			CounterpartyID: &req.OwnerID,
			Payload: models.JSONB{
				"category": req.Category,
				"rarity":   req.Rarity,
				"level":    req.Level,
			},
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to mint asset: %w", err)
	}

	return asset, nil
}

// UpdateMetadata replaces the metadata pointer, the only attribute with an
// update path after mint. The asset owner, the collection administrator and
// platform admins may call it.
func (s *RegistryService) UpdateMetadata(callerID uuid.UUID, collectionSlug string, assetID uint64, req *UpdateMetadataRequest) (*models.Asset, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	engineMu.Lock()
	defer engineMu.Unlock()

	asset, err := s.getAsset(collectionSlug, assetID)
	if err != nil {
		return nil, err
	}

	if err := s.authorizeMetadataUpdate(callerID, asset); err != nil {
		return nil, err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Asset{}).
			Where("id = ?", asset.ID).
			Update("metadata_pointer", req.MetadataPointer).Error; err != nil {
			return err
		}

		return s.events.Record(tx, &models.MarketEvent{
			EventType:      models.EventAttributesUpdated,
			CollectionSlug: collectionSlug,
			AssetID:        assetID,
			ActorID:        callerID,
			Payload: models.JSONB{
				"previous_pointer": asset.MetadataPointer,
				"metadata_pointer": req.MetadataPointer,
			},
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update metadata: %w", err)
	}

	asset.MetadataPointer = req.MetadataPointer
	return asset, nil
}

func (s *RegistryService) authorizeMetadataUpdate(callerID uuid.UUID, asset *models.Asset) error {
	if asset.OwnerID == callerID {
		return nil
	}

	var collection models.Collection
	if err := s.db.Where("slug = ?", asset.CollectionSlug).First(&collection).Error; err == nil {
		if collection.AdminID == callerID {
			return nil
		}
	}

	var caller models.User
	if err := s.db.First(&caller, "id = ?", callerID).Error; err == nil && caller.IsAdmin() {
		return nil
	}

	return ErrUnauthorized
}

// GetAttributes returns the read view of one asset.
func (s *RegistryService) GetAttributes(collectionSlug string, assetID uint64) (*models.Attributes, error) {
	asset, err := s.getAsset(collectionSlug, assetID)
	if err != nil {
		return nil, err
	}
	attrs := asset.Attributes()
	return &attrs, nil
}

func (s *RegistryService) IsWearable(collectionSlug string, assetID uint64) (bool, error) {
	asset, err := s.getAsset(collectionSlug, assetID)
	if err != nil {
		return false, err
	}
	return asset.Wearable, nil
}

func (s *RegistryService) GetAsset(collectionSlug string, assetID uint64) (*models.Asset, error) {
	var asset models.Asset
	err := s.db.Preload("Owner").
		Where("collection_slug = ? AND asset_id = ?", collectionSlug, assetID).
		First(&asset).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &asset, nil
}

func (s *RegistryService) GetCollection(slug string) (*models.Collection, error) {
	var collection models.Collection
	err := s.db.Preload("Admin").Where("slug = ?", slug).First(&collection).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &collection, nil
}

func (s *RegistryService) ListCollections(params utils.PaginationParams) ([]models.Collection, int64, error) {
	query := s.db.Model(&models.Collection{})

	if params.Search != "" {
		term := "%" + params.Search + "%"
		query = query.Where("name ILIKE ? OR slug ILIKE ?", term, term)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var collections []models.Collection
	query = utils.ApplyPagination(query, params)
	query = utils.ApplySort(query, params, []string{"created_at", "name", "slug"})
	if err := query.Find(&collections).Error; err != nil {
		return nil, 0, err
	}

	return collections, total, nil
}

func (s *RegistryService) SearchAssets(params *AssetSearchParams) ([]models.Asset, int64, error) {
	query := s.db.Model(&models.Asset{})

	if params.CollectionSlug != "" {
		query = query.Where("collection_slug = ?", params.CollectionSlug)
	}
	if params.Category != "" {
		query = query.Where("category = ?", params.Category)
	}
	if params.Rarity != "" {
		query = query.Where("rarity = ?", params.Rarity)
	}
	if params.OwnerID != nil {
		query = query.Where("owner_id = ?", *params.OwnerID)
	}
	if params.WearableOnly {
		query = query.Where("wearable = ?", true)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var assets []models.Asset
	query = utils.ApplyPagination(query, params.PaginationParams)
	query = utils.ApplySort(query, params.PaginationParams, []string{"created_at", "asset_id", "level", "rarity"})
	if err := query.Preload("Owner").Find(&assets).Error; err != nil {
		return nil, 0, err
	}

	return assets, total, nil
}

// transferOwnership moves an asset between accounts inside the caller's
// transaction. The settlement path is its only caller and already holds
// engineMu.
func (s *RegistryService) transferOwnership(tx *gorm.DB, collectionSlug string, assetID uint64, fromID, toID uuid.UUID) error {
	result := tx.Model(&models.Asset{}).
		Where("collection_slug = ? AND asset_id = ? AND owner_id = ?", collectionSlug, assetID, fromID).
		Update("owner_id", toID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrStaleListing
	}
	return nil
}

// getAsset is the lock-free lookup used internally; callers that mutate
// state hold engineMu already.
func (s *RegistryService) getAsset(collectionSlug string, assetID uint64) (*models.Asset, error) {
	var asset models.Asset
	err := s.db.Where("collection_slug = ? AND asset_id = ?", collectionSlug, assetID).First(&asset).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &asset, nil
}
