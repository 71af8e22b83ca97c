// internal/handlers/paywall.go
package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/unlockd/unlockd-backend/internal/apperrors"
	"github.com/unlockd/unlockd-backend/internal/services"
	"github.com/unlockd/unlockd-backend/internal/utils"
)

type PaywallHandler struct {
	paywallService *services.PaywallService
}

func NewPaywallHandler(paywallService *services.PaywallService) *PaywallHandler {
	return &PaywallHandler{paywallService: paywallService}
}

// GET /content/:id/paywall?buyer=
//
// Returns 402 with payment instructions for an unpaid buyer, or 200 with the
// existing redemption URL when the buyer already confirmed a payment.
func (h *PaywallHandler) GetPaywall(c *gin.Context) {
	contentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid content ID", nil)
		return
	}
	buyerID := c.Query("buyer")

	offer, err := h.paywallService.RequestUnlock(c.Request.Context(), contentID, buyerID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	if offer.Replay {
		utils.SuccessResponse(c, gin.H{
			"payment_id":   offer.Intent.ID,
			"status":       offer.Intent.Status,
			"download_url": offer.Intent.RedemptionURL,
		})
		return
	}

	intent := offer.Intent
	c.Header("X-Payment-Required", fmt.Sprintf("%d", intent.Amount))
	c.Header("X-Payment-Id", intent.ID.String())
	c.Header("X-Payment-Address", intent.PayoutAddress)
	c.Header("X-Expires-At", intent.ExpiresAt.Format(time.RFC3339))

	c.JSON(http.StatusPaymentRequired, utils.APIResponse{
		Success: false,
		Data: gin.H{
			"payment_id":     intent.ID,
			"content_id":     intent.ContentID,
			"amount":         intent.Amount,
			"asset_kind":     intent.AssetKind,
			"payout_address": intent.PayoutAddress,
			"expires_at":     intent.ExpiresAt,
			"title":          offer.Content.Title,
			// Buyers should wait for finalized settlement before confirming;
			// confirmation checks the finalized ledger state only.
			"disclaimer": "Send the exact amount to the payout address and confirm with the finalized settlement reference. Unfinalized transfers will not verify.",
		},
		Error: &utils.APIError{
			Code:    string(apperrors.KindInsufficientPayment),
			Message: "Payment required",
		},
	})
}

// POST /content/:id/paywall
func (h *PaywallHandler) ConfirmPayment(c *gin.Context) {
	contentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid content ID", nil)
		return
	}

	var req services.ConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "invalid request body", err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	result, err := h.paywallService.Confirm(c.Request.Context(), contentID, &req)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"access_token": result.AccessToken,
		"download_url": result.DownloadURL,
		"expires_at":   result.ExpiresAt,
	})
}

// GET /content/:id/asset?token=
//
// Streams the decrypted content bytes to a holder of a valid bearer token.
// Credential problems come back 401; a ciphertext that fails authentication
// during decryption is a server-side integrity fault and comes back 500.
func (h *PaywallHandler) GetAsset(c *gin.Context) {
	contentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid content ID", nil)
		return
	}

	accessToken := c.Query("token")
	if accessToken == "" {
		utils.UnauthorizedResponse(c, "access token is required")
		return
	}

	plaintext, record, err := h.paywallService.Redeem(c.Request.Context(), contentID, accessToken)
	if err != nil {
		if apperrors.IsKind(err, apperrors.KindAuthenticationFailed) {
			utils.InternalErrorResponse(c, "content could not be decrypted")
			return
		}
		utils.AppErrorResponse(c, err)
		return
	}

	contentType := record.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", record.FileName))
	c.Data(http.StatusOK, contentType, plaintext)
}
