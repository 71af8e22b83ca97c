// internal/services/content_service.go
package services

import (
	"context"
	"encoding/base64"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/unlockd/unlockd-backend/internal/apperrors"
	"github.com/unlockd/unlockd-backend/internal/cryptobox"
	"github.com/unlockd/unlockd-backend/internal/models"
	"github.com/unlockd/unlockd-backend/internal/store"
	"github.com/unlockd/unlockd-backend/internal/utils"
	"github.com/unlockd/unlockd-backend/internal/vault"
)

type ContentService struct {
	contents   store.ContentStore
	vault      *vault.Vault
	locatorKey []byte
}

type CreateContentRequest struct {
	Title         string   `json:"title" validate:"required,max=255"`
	Description   string   `json:"description,omitempty"`
	FileBase64    string   `json:"file" validate:"required"`
	FileName      string   `json:"file_name" validate:"required,max=255"`
	ContentType   string   `json:"content_type" validate:"required,max=100"`
	Price         uint64   `json:"price" validate:"required,min=1"`
	AssetKind     string   `json:"asset_kind" validate:"required,oneof=native secondary"`
	PayoutAddress string   `json:"payout_address,omitempty" validate:"omitempty,ledger_address"`
	PreviewBase64 string   `json:"preview,omitempty"`
	PreviewType   string   `json:"preview_type,omitempty" validate:"omitempty,max=100"`
	Tags          []string `json:"tags,omitempty"`
}

type UpdateContentRequest struct {
	PayoutAddress string   `json:"payout_address,omitempty" validate:"omitempty,ledger_address"`
	PreviewBase64 string   `json:"preview,omitempty"`
	PreviewType   string   `json:"preview_type,omitempty" validate:"omitempty,max=100"`
	Tags          []string `json:"tags,omitempty"`
}

func NewContentService(contents store.ContentStore, contentVault *vault.Vault, locatorKey []byte) *ContentService {
	return &ContentService{
		contents:   contents,
		vault:      contentVault,
		locatorKey: locatorKey,
	}
}

// Create encrypts the uploaded file, stores ciphertext and optional preview,
// and persists the content record with its envelope and published locator.
func (s *ContentService) Create(ctx context.Context, creator *models.Creator, req *CreateContentRequest) (*models.ContentRecord, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, apperrors.Wrap(apperrors.KindValidation, err, "invalid content request")
	}

	plaintext, err := base64.StdEncoding.DecodeString(req.FileBase64)
	if err != nil {
		return nil, apperrors.New(apperrors.KindValidation, "file is not valid base64")
	}
	if len(plaintext) == 0 {
		return nil, apperrors.New(apperrors.KindValidation, "file is empty")
	}

	payoutAddress := req.PayoutAddress
	if payoutAddress == "" {
		payoutAddress = creator.PayoutAddress
	}
	if payoutAddress == "" {
		return nil, apperrors.New(apperrors.KindValidation, "no payout address on request or creator profile")
	}

	contentID := uuid.New()
	sealed, err := s.vault.Seal(ctx, contentID, plaintext)
	if err != nil {
		return nil, err
	}

	// The locator published in the creator's content list points at the
	// sealed blob; it is only readable alongside an on-ledger receipt.
	encryptedLocator, err := cryptobox.EncryptLocator(sealed.StorageKey, s.locatorKey)
	if err != nil {
		return nil, err
	}

	record := &models.ContentRecord{
		CreatorID:        creator.ID,
		Title:            req.Title,
		Description:      req.Description,
		Price:            req.Price,
		AssetKind:        models.AssetKind(req.AssetKind),
		PayoutAddress:    payoutAddress,
		StorageKey:       sealed.StorageKey,
		Envelope:         sealed.Envelope,
		ContentType:      req.ContentType,
		FileName:         req.FileName,
		ContentHash:      sealed.ContentHash,
		EncryptedLocator: encryptedLocator,
		Tags:             req.Tags,
	}
	record.ID = contentID

	if req.PreviewBase64 != "" {
		preview, err := base64.StdEncoding.DecodeString(req.PreviewBase64)
		if err != nil {
			return nil, apperrors.New(apperrors.KindValidation, "preview is not valid base64")
		}
		previewKey, err := s.vault.StorePreview(ctx, contentID, preview, req.PreviewType)
		if err != nil {
			return nil, err
		}
		record.PreviewKey = previewKey
		record.PreviewType = req.PreviewType
	}

	if err := s.contents.Put(ctx, record); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"content_id": record.ID,
		"creator_id": creator.ID,
		"price":      record.Price,
		"asset_kind": record.AssetKind,
	}).Info("Content record created")

	return record, nil
}

func (s *ContentService) Get(ctx context.Context, id uuid.UUID) (*models.ContentRecord, error) {
	return s.contents.Get(ctx, id)
}

// Update applies the only mutations a ContentRecord permits: payout-address
// correction and preview changes. Only the owning creator may call it.
func (s *ContentService) Update(ctx context.Context, creatorID, contentID uuid.UUID, req *UpdateContentRequest) (*models.ContentRecord, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, apperrors.Wrap(apperrors.KindValidation, err, "invalid update request")
	}

	record, err := s.contents.Get(ctx, contentID)
	if err != nil {
		return nil, err
	}
	if record.CreatorID != creatorID {
		return nil, apperrors.New(apperrors.KindUnauthorized, "content %s is not owned by this creator", contentID)
	}

	if req.PayoutAddress != "" {
		record.PayoutAddress = req.PayoutAddress
	}
	if req.PreviewBase64 != "" {
		preview, err := base64.StdEncoding.DecodeString(req.PreviewBase64)
		if err != nil {
			return nil, apperrors.New(apperrors.KindValidation, "preview is not valid base64")
		}
		previewKey, err := s.vault.StorePreview(ctx, contentID, preview, req.PreviewType)
		if err != nil {
			return nil, err
		}
		record.PreviewKey = previewKey
		record.PreviewType = req.PreviewType
	}
	if req.Tags != nil {
		record.Tags = req.Tags
	}

	if err := s.contents.Update(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

// PublishedList is the creator's public content list; the on-ledger access
// path resolves locators against it.
func (s *ContentService) PublishedList(ctx context.Context, creatorID uuid.UUID) ([]models.PublishedEntry, error) {
	records, err := s.contents.ListByCreator(ctx, creatorID)
	if err != nil {
		return nil, err
	}

	entries := make([]models.PublishedEntry, 0, len(records))
	for i := range records {
		entries = append(entries, records[i].Published())
	}
	return entries, nil
}

// Preview returns the free preview bytes for a record.
func (s *ContentService) Preview(ctx context.Context, contentID uuid.UUID) ([]byte, *models.ContentRecord, error) {
	record, err := s.contents.Get(ctx, contentID)
	if err != nil {
		return nil, nil, err
	}
	data, err := s.vault.Preview(ctx, record)
	if err != nil {
		return nil, nil, err
	}
	return data, record, nil
}
