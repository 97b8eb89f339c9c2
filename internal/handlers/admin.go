// internal/handlers/admin.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/stellara/stellara-backend/internal/models"
	"github.com/stellara/stellara-backend/internal/services"
	"github.com/stellara/stellara-backend/internal/utils"
)

// AdminHandler groups operations behind the AdminRequired middleware: fee
// control, the collection allow-list, account moderation and the event log.
type AdminHandler struct {
	marketService *services.MarketService
	userService   *services.UserService
	eventService  *services.EventService
}

func NewAdminHandler(marketService *services.MarketService, userService *services.UserService, eventService *services.EventService) *AdminHandler {
	return &AdminHandler{
		marketService: marketService,
		userService:   userService,
		eventService:  eventService,
	}
}

func (h *AdminHandler) SetFee(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req struct {
		FeeBasisPoints *int `json:"fee_basis_points" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", nil)
		return
	}

	if err := h.marketService.SetFee(userID, *req.FeeBasisPoints); err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"fee_basis_points": *req.FeeBasisPoints})
}

func (h *AdminHandler) AddSupportedCollection(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	if err := h.marketService.AddSupportedCollection(userID, c.Param("slug")); err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"supported": true})
}

func (h *AdminHandler) RemoveSupportedCollection(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	if err := h.marketService.RemoveSupportedCollection(userID, c.Param("slug")); err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"supported": false})
}

func (h *AdminHandler) GetMarketStats(c *gin.Context) {
	stats, err := h.marketService.GetMarketStats()
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, stats)
}

func (h *AdminHandler) ListUsers(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	users, total, err := h.userService.ListUsers(params)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(users, total, params))
}

func (h *AdminHandler) SetUserStatus(c *gin.Context) {
	adminID, ok := currentUserID(c)
	if !ok {
		return
	}

	targetID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid user id", nil)
		return
	}

	var req struct {
		Status string `json:"status" binding:"required,oneof=active suspended banned"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", nil)
		return
	}

	user, err := h.userService.SetUserStatus(adminID, targetID, models.UserStatus(req.Status))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, user)
}

// ListEvents pages through the append-only market event log.
func (h *AdminHandler) ListEvents(c *gin.Context) {
	params := &services.EventSearchParams{
		PaginationParams: utils.GetPaginationParams(c),
		EventType:        c.Query("event_type"),
		CollectionSlug:   c.Query("collection"),
	}

	if actorStr := c.Query("actor_id"); actorStr != "" {
		actorID, err := uuid.Parse(actorStr)
		if err != nil {
			utils.BadRequestResponse(c, "Invalid actor id", nil)
			return
		}
		params.ActorID = &actorID
	}

	events, total, err := h.eventService.ListEvents(params)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(events, total, params.PaginationParams))
}
