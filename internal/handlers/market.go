// internal/handlers/market.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/stellara/stellara-backend/internal/services"
	"github.com/stellara/stellara-backend/internal/utils"
)

type MarketHandler struct {
	marketService *services.MarketService
}

func NewMarketHandler(marketService *services.MarketService) *MarketHandler {
	return &MarketHandler{marketService: marketService}
}

// listingPagination defaults ledger queries to insertion order; an explicit
// ?order= still wins.
func listingPagination(c *gin.Context) utils.PaginationParams {
	params := utils.GetPaginationParams(c)
	if c.Query("order") == "" {
		params.Order = "asc"
	}
	return params
}

func (h *MarketHandler) CreateListing(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req services.CreateListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", nil)
		return
	}

	listing, err := h.marketService.CreateListing(userID, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.CreatedResponse(c, listing)
}

func (h *MarketHandler) CancelListing(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	slug, assetID, ok := assetKeyFromPath(c)
	if !ok {
		return
	}

	if err := h.marketService.CancelListing(userID, slug, assetID); err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"cancelled": true})
}

// Purchase settles a sale at the exact listing price.
func (h *MarketHandler) Purchase(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req services.PurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", nil)
		return
	}

	trade, err := h.marketService.Purchase(userID, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, trade)
}

func (h *MarketHandler) GetListing(c *gin.Context) {
	slug, assetID, ok := assetKeyFromPath(c)
	if !ok {
		return
	}

	listing, err := h.marketService.GetListing(slug, assetID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, listing)
}

// SearchListings filters the ledger. ?active=true restricts to live offers;
// ?collection= and ?seller_id= narrow further. Results come back in
// insertion order unless the caller asks otherwise.
func (h *MarketHandler) SearchListings(c *gin.Context) {
	params := &services.ListingSearchParams{
		PaginationParams: listingPagination(c),
		CollectionSlug:   c.Query("collection"),
		ActiveOnly:       c.Query("active") == "true",
	}

	if sellerStr := c.Query("seller_id"); sellerStr != "" {
		sellerID, err := uuid.Parse(sellerStr)
		if err != nil {
			utils.BadRequestResponse(c, "Invalid seller id", nil)
			return
		}
		params.SellerID = &sellerID
	}

	listings, total, err := h.marketService.SearchListings(params)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(listings, total, params.PaginationParams))
}

// MyListings lists the caller's own ledger rows, active or not.
func (h *MarketHandler) MyListings(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	params := &services.ListingSearchParams{
		PaginationParams: listingPagination(c),
		SellerID:         &userID,
	}

	listings, total, err := h.marketService.SearchListings(params)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(listings, total, params.PaginationParams))
}

func (h *MarketHandler) GetFee(c *gin.Context) {
	settings, err := h.marketService.GetSettings()
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"fee_basis_points": settings.FeeBasisPoints})
}

func (h *MarketHandler) ListSupportedCollections(c *gin.Context) {
	supported, err := h.marketService.ListSupportedCollections()
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, supported)
}
