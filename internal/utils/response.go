// internal/utils/response.go
package utils

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/unlockd/unlockd-backend/internal/apperrors"
)

type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
}

type APIError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func SuccessResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, APIResponse{
		Success: true,
		Data:    data,
	})
}

func CreatedResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, APIResponse{
		Success: true,
		Data:    data,
	})
}

func ErrorResponse(c *gin.Context, statusCode int, code, message string, details interface{}) {
	c.JSON(statusCode, APIResponse{
		Success: false,
		Error: &APIError{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

func BadRequestResponse(c *gin.Context, message string, details interface{}) {
	if message == "" {
		message = "Invalid request"
	}
	ErrorResponse(c, http.StatusBadRequest, string(apperrors.KindValidation), message, details)
}

func UnauthorizedResponse(c *gin.Context, message string) {
	if message == "" {
		message = "Authentication required"
	}
	ErrorResponse(c, http.StatusUnauthorized, string(apperrors.KindUnauthorized), message, nil)
}

func NotFoundResponse(c *gin.Context, resource string) {
	ErrorResponse(c, http.StatusNotFound, string(apperrors.KindNotFound), resource+" not found", nil)
}

func ConflictResponse(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusConflict, string(apperrors.KindConflict), message, nil)
}

func InternalErrorResponse(c *gin.Context, message string) {
	if message == "" {
		message = "Internal server error"
	}
	ErrorResponse(c, http.StatusInternalServerError, string(apperrors.KindInternal), message, nil)
}

func ValidationErrorResponse(c *gin.Context, errors []ValidationError) {
	ErrorResponse(c, http.StatusBadRequest, string(apperrors.KindValidation), "Invalid input", errors)
}

// StatusForKind maps the error taxonomy onto HTTP statuses. Exact codes
// matter to clients: 402 means pay (or pay more), 401 means the credential is
// the problem, 503 means retrying the same request later is safe.
func StatusForKind(kind apperrors.Kind) int {
	switch kind {
	case apperrors.KindValidation, apperrors.KindIntentExpired:
		return http.StatusBadRequest
	case apperrors.KindNotFound:
		return http.StatusNotFound
	case apperrors.KindInsufficientPayment, apperrors.KindTransactionFailed:
		return http.StatusPaymentRequired
	case apperrors.KindUnauthorized, apperrors.KindInvalidSignature, apperrors.KindTokenExpired,
		apperrors.KindMalformed, apperrors.KindGrantMismatch, apperrors.KindAuthenticationFailed:
		return http.StatusUnauthorized
	case apperrors.KindConflict:
		return http.StatusConflict
	case apperrors.KindLedgerUnavailable:
		return http.StatusServiceUnavailable
	case apperrors.KindStorageFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// AppErrorResponse renders a taxonomy error. Messages are safe for clients;
// internal causes stay in the logs, never in the body.
func AppErrorResponse(c *gin.Context, err error) {
	kind := apperrors.KindOf(err)
	message := "Internal server error"
	var appErr *apperrors.Error
	if errors.As(err, &appErr) && kind != apperrors.KindInternal {
		message = appErr.Message
	}
	ErrorResponse(c, StatusForKind(kind), string(kind), message, nil)
}

func GetCreatorIDFromContext(c *gin.Context) (string, bool) {
	if creatorID, exists := c.Get("creator_id"); exists {
		if creatorIDStr, ok := creatorID.(string); ok {
			return creatorIDStr, true
		}
	}
	return "", false
}
