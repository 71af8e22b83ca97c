// internal/store/gorm.go
package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/unlockd/unlockd-backend/internal/apperrors"
	"github.com/unlockd/unlockd-backend/internal/models"
)

// NewGormStores returns Postgres-backed implementations. The intent
// confirmation compare-and-set relies on a conditional UPDATE so the
// pending -> confirmed transition happens at most once per intent even
// across multiple server instances.
func NewGormStores(db *gorm.DB) *Stores {
	return &Stores{
		Content:  &gormContentStore{db: db},
		Intents:  &gormIntentStore{db: db},
		Grants:   &gormGrantStore{db: db},
		Creators: &gormCreatorStore{db: db},
	}
}

type gormContentStore struct {
	db *gorm.DB
}

func (s *gormContentStore) Put(ctx context.Context, record *models.ContentRecord) error {
	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		return apperrors.Wrap(apperrors.KindStorageFailure, err, "failed to store content record")
	}
	return nil
}

func (s *gormContentStore) Get(ctx context.Context, id uuid.UUID) (*models.ContentRecord, error) {
	var record models.ContentRecord
	if err := s.db.WithContext(ctx).First(&record, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.KindNotFound, "content %s not found", id)
		}
		return nil, apperrors.Wrap(apperrors.KindStorageFailure, err, "failed to fetch content record")
	}
	return &record, nil
}

func (s *gormContentStore) Update(ctx context.Context, record *models.ContentRecord) error {
	result := s.db.WithContext(ctx).Model(&models.ContentRecord{}).
		Where("id = ?", record.ID).
		Updates(map[string]interface{}{
			"payout_address": record.PayoutAddress,
			"preview_key":    record.PreviewKey,
			"preview_type":   record.PreviewType,
			"tags":           record.Tags,
		})
	if result.Error != nil {
		return apperrors.Wrap(apperrors.KindStorageFailure, result.Error, "failed to update content record")
	}
	if result.RowsAffected == 0 {
		return apperrors.New(apperrors.KindNotFound, "content %s not found", record.ID)
	}
	return nil
}

func (s *gormContentStore) ListByCreator(ctx context.Context, creatorID uuid.UUID) ([]models.ContentRecord, error) {
	var records []models.ContentRecord
	if err := s.db.WithContext(ctx).
		Where("creator_id = ?", creatorID).
		Order("created_at DESC").
		Find(&records).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.KindStorageFailure, err, "failed to list creator content")
	}
	return records, nil
}

type gormIntentStore struct {
	db *gorm.DB
}

func (s *gormIntentStore) Put(ctx context.Context, intent *models.PaymentIntent) error {
	if err := s.db.WithContext(ctx).Create(intent).Error; err != nil {
		return apperrors.Wrap(apperrors.KindStorageFailure, err, "failed to store payment intent")
	}
	return nil
}

func (s *gormIntentStore) Get(ctx context.Context, id uuid.UUID) (*models.PaymentIntent, error) {
	var intent models.PaymentIntent
	if err := s.db.WithContext(ctx).First(&intent, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.KindNotFound, "payment intent %s not found", id)
		}
		return nil, apperrors.Wrap(apperrors.KindStorageFailure, err, "failed to fetch payment intent")
	}
	return &intent, nil
}

func (s *gormIntentStore) FindConfirmed(ctx context.Context, contentID uuid.UUID, buyerID string) (*models.PaymentIntent, error) {
	var intent models.PaymentIntent
	err := s.db.WithContext(ctx).
		Where("content_id = ? AND buyer_id = ? AND status = ?", contentID, buyerID, models.IntentStatusConfirmed).
		First(&intent).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.KindNotFound, "no confirmed intent for content %s buyer %s", contentID, buyerID)
		}
		return nil, apperrors.Wrap(apperrors.KindStorageFailure, err, "failed to query confirmed intent")
	}
	return &intent, nil
}

func (s *gormIntentStore) ConfirmPending(ctx context.Context, id uuid.UUID, settlementRef, redemptionURL string) (*models.PaymentIntent, bool, error) {
	result := s.db.WithContext(ctx).Model(&models.PaymentIntent{}).
		Where("id = ? AND status = ?", id, models.IntentStatusPending).
		Updates(map[string]interface{}{
			"status":         models.IntentStatusConfirmed,
			"settlement_ref": settlementRef,
			"redemption_url": redemptionURL,
		})
	if result.Error != nil {
		return nil, false, apperrors.Wrap(apperrors.KindStorageFailure, result.Error, "failed to confirm payment intent")
	}

	intent, err := s.Get(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return intent, result.RowsAffected > 0, nil
}

type gormGrantStore struct {
	db *gorm.DB
}

func (s *gormGrantStore) Record(ctx context.Context, grant *models.AccessGrant) error {
	if err := s.db.WithContext(ctx).Create(grant).Error; err != nil {
		return apperrors.Wrap(apperrors.KindStorageFailure, err, "failed to record access grant")
	}
	return nil
}

func (s *gormGrantStore) Lookup(ctx context.Context, tokenID string) (*models.AccessGrant, error) {
	var grant models.AccessGrant
	if err := s.db.WithContext(ctx).First(&grant, "token_id = ?", tokenID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.KindNotFound, "grant %s not found", tokenID)
		}
		return nil, apperrors.Wrap(apperrors.KindStorageFailure, err, "failed to fetch access grant")
	}
	return &grant, nil
}

type gormCreatorStore struct {
	db *gorm.DB
}

func (s *gormCreatorStore) Create(ctx context.Context, creator *models.Creator) error {
	var count int64
	s.db.WithContext(ctx).Model(&models.Creator{}).
		Where("email = ? OR username = ?", creator.Email, creator.Username).
		Count(&count)
	if count > 0 {
		return apperrors.New(apperrors.KindConflict, "creator already exists")
	}

	if err := s.db.WithContext(ctx).Create(creator).Error; err != nil {
		return apperrors.Wrap(apperrors.KindStorageFailure, err, "failed to create creator")
	}
	return nil
}

func (s *gormCreatorStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Creator, error) {
	return s.getBy(ctx, "id = ?", id)
}

func (s *gormCreatorStore) GetByEmail(ctx context.Context, email string) (*models.Creator, error) {
	return s.getBy(ctx, "email = ?", email)
}

func (s *gormCreatorStore) GetByUsername(ctx context.Context, username string) (*models.Creator, error) {
	return s.getBy(ctx, "username = ?", username)
}

func (s *gormCreatorStore) getBy(ctx context.Context, query string, arg interface{}) (*models.Creator, error) {
	var creator models.Creator
	if err := s.db.WithContext(ctx).Where(query, arg).First(&creator).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.KindNotFound, "creator not found")
		}
		return nil, apperrors.Wrap(apperrors.KindStorageFailure, err, "failed to fetch creator")
	}
	return &creator, nil
}

func (s *gormCreatorStore) Update(ctx context.Context, creator *models.Creator) error {
	if err := s.db.WithContext(ctx).Save(creator).Error; err != nil {
		return apperrors.Wrap(apperrors.KindStorageFailure, err, "failed to update creator")
	}
	return nil
}
