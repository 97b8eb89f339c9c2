// internal/handlers/collection.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/stellara/stellara-backend/internal/services"
	"github.com/stellara/stellara-backend/internal/utils"
)

// CollectionHandler exposes the asset registry: collections, minting and
// per-asset reads.
type CollectionHandler struct {
	registryService *services.RegistryService
	eventService    *services.EventService
}

func NewCollectionHandler(registryService *services.RegistryService, eventService *services.EventService) *CollectionHandler {
	return &CollectionHandler{
		registryService: registryService,
		eventService:    eventService,
	}
}

func (h *CollectionHandler) CreateCollection(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req services.CreateCollectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", nil)
		return
	}

	collection, err := h.registryService.CreateCollection(userID, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.CreatedResponse(c, collection)
}

func (h *CollectionHandler) ListCollections(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	collections, total, err := h.registryService.ListCollections(params)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(collections, total, params))
}

func (h *CollectionHandler) GetCollection(c *gin.Context) {
	collection, err := h.registryService.GetCollection(c.Param("slug"))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, collection)
}

// Mint creates the next asset in the collection. Restricted to the
// collection administrator.
func (h *CollectionHandler) Mint(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req services.MintAssetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", nil)
		return
	}

	asset, err := h.registryService.Mint(userID, c.Param("slug"), &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.CreatedResponse(c, asset)
}

func (h *CollectionHandler) GetAsset(c *gin.Context) {
	slug, assetID, ok := assetKeyFromPath(c)
	if !ok {
		return
	}

	asset, err := h.registryService.GetAsset(slug, assetID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, asset)
}

func (h *CollectionHandler) GetAttributes(c *gin.Context) {
	slug, assetID, ok := assetKeyFromPath(c)
	if !ok {
		return
	}

	attrs, err := h.registryService.GetAttributes(slug, assetID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, attrs)
}

func (h *CollectionHandler) IsWearable(c *gin.Context) {
	slug, assetID, ok := assetKeyFromPath(c)
	if !ok {
		return
	}

	wearable, err := h.registryService.IsWearable(slug, assetID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"wearable": wearable})
}

func (h *CollectionHandler) UpdateMetadata(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	slug, assetID, ok := assetKeyFromPath(c)
	if !ok {
		return
	}

	var req services.UpdateMetadataRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", nil)
		return
	}

	asset, err := h.registryService.UpdateMetadata(userID, slug, assetID, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, asset)
}

func (h *CollectionHandler) SearchAssets(c *gin.Context) {
	params := &services.AssetSearchParams{
		PaginationParams: utils.GetPaginationParams(c),
		CollectionSlug:   c.Query("collection"),
		Category:         c.Query("category"),
		Rarity:           c.Query("rarity"),
		WearableOnly:     c.Query("wearable") == "true",
	}

	if ownerStr := c.Query("owner_id"); ownerStr != "" {
		ownerID, err := uuid.Parse(ownerStr)
		if err != nil {
			utils.BadRequestResponse(c, "Invalid owner id", nil)
			return
		}
		params.OwnerID = &ownerID
	}

	assets, total, err := h.registryService.SearchAssets(params)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(assets, total, params.PaginationParams))
}

// MyAssets lists everything the caller owns.
func (h *CollectionHandler) MyAssets(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	params := &services.AssetSearchParams{
		PaginationParams: utils.GetPaginationParams(c),
		OwnerID:          &userID,
	}

	assets, total, err := h.registryService.SearchAssets(params)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(assets, total, params.PaginationParams))
}

// AssetHistory returns the event log for one asset, oldest first.
func (h *CollectionHandler) AssetHistory(c *gin.Context) {
	slug, assetID, ok := assetKeyFromPath(c)
	if !ok {
		return
	}

	if _, err := h.registryService.GetAttributes(slug, assetID); err != nil {
		handleServiceError(c, err)
		return
	}

	events, err := h.eventService.AssetHistory(slug, assetID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, events)
}
