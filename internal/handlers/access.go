// internal/handlers/access.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/unlockd/unlockd-backend/internal/apperrors"
	"github.com/unlockd/unlockd-backend/internal/services"
	"github.com/unlockd/unlockd-backend/internal/utils"
)

type AccessHandler struct {
	accessService *services.AccessService
}

func NewAccessHandler(accessService *services.AccessService) *AccessHandler {
	return &AccessHandler{accessService: accessService}
}

// GET /access/:creator/:contentId?buyer=
//
// Checks the ledger for a payment receipt at the buyer's derived address.
// 200 with the decrypted locator when the receipt exists, 402 with payment
// terms when it does not.
func (h *AccessHandler) CheckAccess(c *gin.Context) {
	creatorID, err := uuid.Parse(c.Param("creator"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid creator ID", nil)
		return
	}
	contentID, err := uuid.Parse(c.Param("contentId"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid content ID", nil)
		return
	}
	buyerID := c.Query("buyer")

	decision, err := h.accessService.Check(c.Request.Context(), creatorID, contentID, buyerID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	if !decision.HasAccess {
		c.JSON(http.StatusPaymentRequired, utils.APIResponse{
			Success: false,
			Data: gin.H{
				"content_id":     decision.ContentID,
				"price":          decision.Price,
				"asset_kind":     decision.AssetKind,
				"payout_address": decision.PayoutAddress,
			},
			Error: &utils.APIError{
				Code:    string(apperrors.KindInsufficientPayment),
				Message: "Payment required",
			},
		})
		return
	}

	utils.SuccessResponse(c, gin.H{"locator": decision.Locator})
}
