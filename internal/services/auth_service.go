// internal/services/auth_service.go
package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/unlockd/unlockd-backend/internal/apperrors"
	"github.com/unlockd/unlockd-backend/internal/config"
	"github.com/unlockd/unlockd-backend/internal/models"
	"github.com/unlockd/unlockd-backend/internal/store"
	"github.com/unlockd/unlockd-backend/internal/utils"
)

type AuthService struct {
	creators store.CreatorStore
	cfg      *config.Config
}

type RegisterRequest struct {
	Username      string                 `json:"username" validate:"required,username"`
	Email         string                 `json:"email" validate:"required,email"`
	Password      string                 `json:"password" validate:"required,strong_password"`
	PayoutAddress string                 `json:"payout_address,omitempty" validate:"omitempty,ledger_address"`
	ProfileData   map[string]interface{} `json:"profile_data,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type AuthResponse struct {
	Creator     *models.Creator `json:"creator"`
	AccessToken string          `json:"access_token"`
	TokenType   string          `json:"token_type"`
	ExpiresIn   int             `json:"expires_in"` // in seconds
}

func NewAuthService(creators store.CreatorStore, cfg *config.Config) *AuthService {
	return &AuthService{
		creators: creators,
		cfg:      cfg,
	}
}

func (s *AuthService) Register(ctx context.Context, req *RegisterRequest) (*AuthResponse, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, apperrors.Wrap(apperrors.KindValidation, err, "invalid registration request")
	}

	creator := &models.Creator{
		Username:      req.Username,
		Email:         req.Email,
		PayoutAddress: req.PayoutAddress,
		Status:        models.CreatorStatusActive,
		ProfileData:   models.JSONB(req.ProfileData),
	}
	creator.ID = uuid.New()

	if err := creator.SetPassword(req.Password); err != nil {
		return nil, err
	}

	if err := s.creators.Create(ctx, creator); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"creator_id": creator.ID,
		"username":   creator.Username,
	}).Info("Creator registered")

	return s.respondWithToken(creator)
}

func (s *AuthService) Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, apperrors.Wrap(apperrors.KindValidation, err, "invalid login request")
	}

	creator, err := s.creators.GetByEmail(ctx, req.Email)
	if err != nil {
		// Same error for unknown email and wrong password.
		return nil, apperrors.New(apperrors.KindUnauthorized, "invalid email or password")
	}

	if err := creator.CheckPassword(req.Password); err != nil {
		return nil, apperrors.New(apperrors.KindUnauthorized, "invalid email or password")
	}

	if creator.Status != models.CreatorStatusActive {
		return nil, apperrors.New(apperrors.KindUnauthorized, "account is suspended")
	}

	now := time.Now()
	creator.LastLoginAt = &now
	if err := s.creators.Update(ctx, creator); err != nil {
		logrus.WithError(err).Warn("Failed to record last login time")
	}

	return s.respondWithToken(creator)
}

func (s *AuthService) GetCreator(ctx context.Context, id uuid.UUID) (*models.Creator, error) {
	return s.creators.GetByID(ctx, id)
}

func (s *AuthService) respondWithToken(creator *models.Creator) (*AuthResponse, error) {
	accessToken, err := utils.GenerateJWT(creator.ID, creator.Username, s.cfg.JWT.AccessTokenTTL)
	if err != nil {
		return nil, err
	}

	return &AuthResponse{
		Creator:     creator,
		AccessToken: accessToken,
		TokenType:   "Bearer",
		ExpiresIn:   s.cfg.JWT.AccessTokenTTL * 3600,
	}, nil
}
