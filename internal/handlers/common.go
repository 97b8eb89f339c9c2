// internal/handlers/common.go
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/stellara/stellara-backend/internal/services"
	"github.com/stellara/stellara-backend/internal/utils"
)

// handleServiceError translates engine errors into HTTP responses. Anything
// unrecognized is treated as internal and not echoed to the client.
func handleServiceError(c *gin.Context, err error) {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		utils.ValidationErrorResponse(c, utils.GetValidationErrors(validationErrs))
		return
	}

	switch {
	case errors.Is(err, services.ErrUnauthorized):
		utils.ForbiddenResponse(c, "Not authorized for this operation")
	case errors.Is(err, services.ErrNotFound):
		utils.NotFoundResponse(c, "Resource")
	case errors.Is(err, services.ErrNotListed):
		utils.ErrorResponse(c, http.StatusNotFound, "NOT_LISTED", "No active listing for this asset", nil)
	case errors.Is(err, services.ErrAlreadyListed):
		utils.ErrorResponse(c, http.StatusConflict, "ALREADY_LISTED", "Asset already has an active listing", nil)
	case errors.Is(err, services.ErrUnsupportedCollection):
		utils.ErrorResponse(c, http.StatusUnprocessableEntity, "UNSUPPORTED_COLLECTION", "Collection is not supported by the market", nil)
	case errors.Is(err, services.ErrInvalidPrice):
		utils.ErrorResponse(c, http.StatusBadRequest, "INVALID_PRICE", "Price must be greater than zero", nil)
	case errors.Is(err, services.ErrInvalidPayment):
		utils.ErrorResponse(c, http.StatusBadRequest, "INVALID_PAYMENT", "Payment amount does not match the listing price", nil)
	case errors.Is(err, services.ErrStaleListing):
		utils.ErrorResponse(c, http.StatusConflict, "STALE_LISTING", "Listing is stale and has been removed", nil)
	case errors.Is(err, services.ErrFeeOutOfRange):
		utils.ErrorResponse(c, http.StatusBadRequest, "FEE_OUT_OF_RANGE", "Fee basis points outside the allowed range", nil)
	case errors.Is(err, services.ErrInsufficientFunds):
		utils.ErrorResponse(c, http.StatusPaymentRequired, "INSUFFICIENT_FUNDS", "Balance too low for this purchase", nil)
	case errors.Is(err, services.ErrDuplicateSlug):
		utils.ConflictResponse(c, "Collection slug already in use")
	default:
		utils.InternalErrorResponse(c, "")
	}
}

// currentUserID reads the authenticated user's id set by the auth
// middleware.
func currentUserID(c *gin.Context) (uuid.UUID, bool) {
	idStr, ok := utils.GetUserIDFromContext(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return uuid.Nil, false
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		utils.UnauthorizedResponse(c, "")
		return uuid.Nil, false
	}
	return id, true
}

// assetKeyFromPath parses the :slug/:assetId pair that identifies an asset.
func assetKeyFromPath(c *gin.Context) (string, uint64, bool) {
	slug := c.Param("slug")
	assetID, err := strconv.ParseUint(c.Param("assetId"), 10, 64)
	if err != nil || assetID == 0 {
		utils.BadRequestResponse(c, "Invalid asset id", nil)
		return "", 0, false
	}
	return slug, assetID, true
}
