// internal/handlers/content.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/unlockd/unlockd-backend/internal/services"
	"github.com/unlockd/unlockd-backend/internal/utils"
)

type ContentHandler struct {
	contentService *services.ContentService
	authService    *services.AuthService
}

func NewContentHandler(contentService *services.ContentService, authService *services.AuthService) *ContentHandler {
	return &ContentHandler{
		contentService: contentService,
		authService:    authService,
	}
}

// POST /content
func (h *ContentHandler) CreateContent(c *gin.Context) {
	creatorIDStr, exists := utils.GetCreatorIDFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}
	creatorID, err := uuid.Parse(creatorIDStr)
	if err != nil {
		utils.BadRequestResponse(c, "Invalid creator ID", nil)
		return
	}

	creator, err := h.authService.GetCreator(c.Request.Context(), creatorID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	var req services.CreateContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "invalid request body", err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	record, err := h.contentService.Create(c.Request.Context(), creator, &req)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{"content": record})
}

// GET /content/:id
func (h *ContentHandler) GetContent(c *gin.Context) {
	contentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid content ID", nil)
		return
	}

	record, err := h.contentService.Get(c.Request.Context(), contentID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"content": record})
}

// PATCH /content/:id
func (h *ContentHandler) UpdateContent(c *gin.Context) {
	creatorIDStr, exists := utils.GetCreatorIDFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}
	creatorID, err := uuid.Parse(creatorIDStr)
	if err != nil {
		utils.BadRequestResponse(c, "Invalid creator ID", nil)
		return
	}

	contentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid content ID", nil)
		return
	}

	var req services.UpdateContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "invalid request body", err.Error())
		return
	}

	record, err := h.contentService.Update(c.Request.Context(), creatorID, contentID, &req)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"content": record})
}

// GET /content/:id/preview
func (h *ContentHandler) GetPreview(c *gin.Context) {
	contentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid content ID", nil)
		return
	}

	data, record, err := h.contentService.Preview(c.Request.Context(), contentID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	contentType := record.PreviewType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Data(200, contentType, data)
}

// GET /creators/:creator/content
func (h *ContentHandler) GetCreatorContent(c *gin.Context) {
	creatorID, err := uuid.Parse(c.Param("creator"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid creator ID", nil)
		return
	}

	entries, err := h.contentService.PublishedList(c.Request.Context(), creatorID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"content": entries})
}
