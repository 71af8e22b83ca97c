// internal/store/memory.go
package store

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/unlockd/unlockd-backend/internal/apperrors"
	"github.com/unlockd/unlockd-backend/internal/models"
)

// NewMemoryStores returns mutex-guarded map implementations of all four
// stores. Used for tests and single-process development mode.
func NewMemoryStores() *Stores {
	return &Stores{
		Content:  &memoryContentStore{records: make(map[uuid.UUID]models.ContentRecord)},
		Intents:  &memoryIntentStore{intents: make(map[uuid.UUID]models.PaymentIntent)},
		Grants:   &memoryGrantStore{grants: make(map[string]models.AccessGrant)},
		Creators: &memoryCreatorStore{creators: make(map[uuid.UUID]models.Creator)},
	}
}

type memoryContentStore struct {
	mtx     sync.RWMutex
	records map[uuid.UUID]models.ContentRecord
}

func (s *memoryContentStore) Put(ctx context.Context, record *models.ContentRecord) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.records[record.ID] = *record
	return nil
}

func (s *memoryContentStore) Get(ctx context.Context, id uuid.UUID) (*models.ContentRecord, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	record, ok := s.records[id]
	if !ok {
		return nil, apperrors.New(apperrors.KindNotFound, "content %s not found", id)
	}
	return &record, nil
}

func (s *memoryContentStore) Update(ctx context.Context, record *models.ContentRecord) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if _, ok := s.records[record.ID]; !ok {
		return apperrors.New(apperrors.KindNotFound, "content %s not found", record.ID)
	}
	s.records[record.ID] = *record
	return nil
}

func (s *memoryContentStore) ListByCreator(ctx context.Context, creatorID uuid.UUID) ([]models.ContentRecord, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	var result []models.ContentRecord
	for _, record := range s.records {
		if record.CreatorID == creatorID {
			result = append(result, record)
		}
	}
	return result, nil
}

type memoryIntentStore struct {
	mtx     sync.Mutex
	intents map[uuid.UUID]models.PaymentIntent
}

func (s *memoryIntentStore) Put(ctx context.Context, intent *models.PaymentIntent) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.intents[intent.ID] = *intent
	return nil
}

func (s *memoryIntentStore) Get(ctx context.Context, id uuid.UUID) (*models.PaymentIntent, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	intent, ok := s.intents[id]
	if !ok {
		return nil, apperrors.New(apperrors.KindNotFound, "payment intent %s not found", id)
	}
	return &intent, nil
}

func (s *memoryIntentStore) FindConfirmed(ctx context.Context, contentID uuid.UUID, buyerID string) (*models.PaymentIntent, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	for _, intent := range s.intents {
		if intent.ContentID == contentID && intent.BuyerID == buyerID && intent.Status == models.IntentStatusConfirmed {
			found := intent
			return &found, nil
		}
	}
	return nil, apperrors.New(apperrors.KindNotFound, "no confirmed intent for content %s buyer %s", contentID, buyerID)
}

func (s *memoryIntentStore) ConfirmPending(ctx context.Context, id uuid.UUID, settlementRef, redemptionURL string) (*models.PaymentIntent, bool, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	intent, ok := s.intents[id]
	if !ok {
		return nil, false, apperrors.New(apperrors.KindNotFound, "payment intent %s not found", id)
	}
	if intent.Status == models.IntentStatusConfirmed {
		return &intent, false, nil
	}

	intent.Status = models.IntentStatusConfirmed
	intent.SettlementRef = settlementRef
	intent.RedemptionURL = redemptionURL
	s.intents[id] = intent
	return &intent, true, nil
}

type memoryGrantStore struct {
	mtx    sync.RWMutex
	grants map[string]models.AccessGrant
}

func (s *memoryGrantStore) Record(ctx context.Context, grant *models.AccessGrant) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if _, ok := s.grants[grant.TokenID]; ok {
		return apperrors.New(apperrors.KindConflict, "grant %s already recorded", grant.TokenID)
	}
	s.grants[grant.TokenID] = *grant
	return nil
}

func (s *memoryGrantStore) Lookup(ctx context.Context, tokenID string) (*models.AccessGrant, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	grant, ok := s.grants[tokenID]
	if !ok {
		return nil, apperrors.New(apperrors.KindNotFound, "grant %s not found", tokenID)
	}
	return &grant, nil
}

type memoryCreatorStore struct {
	mtx      sync.RWMutex
	creators map[uuid.UUID]models.Creator
}

func (s *memoryCreatorStore) Create(ctx context.Context, creator *models.Creator) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	for _, existing := range s.creators {
		if existing.Email == creator.Email || existing.Username == creator.Username {
			return apperrors.New(apperrors.KindConflict, "creator already exists")
		}
	}
	s.creators[creator.ID] = *creator
	return nil
}

func (s *memoryCreatorStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Creator, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	creator, ok := s.creators[id]
	if !ok {
		return nil, apperrors.New(apperrors.KindNotFound, "creator %s not found", id)
	}
	return &creator, nil
}

func (s *memoryCreatorStore) GetByEmail(ctx context.Context, email string) (*models.Creator, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	for _, creator := range s.creators {
		if creator.Email == email {
			found := creator
			return &found, nil
		}
	}
	return nil, apperrors.New(apperrors.KindNotFound, "creator with email %s not found", email)
}

func (s *memoryCreatorStore) GetByUsername(ctx context.Context, username string) (*models.Creator, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	for _, creator := range s.creators {
		if creator.Username == username {
			found := creator
			return &found, nil
		}
	}
	return nil, apperrors.New(apperrors.KindNotFound, "creator %s not found", username)
}

func (s *memoryCreatorStore) Update(ctx context.Context, creator *models.Creator) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if _, ok := s.creators[creator.ID]; !ok {
		return apperrors.New(apperrors.KindNotFound, "creator %s not found", creator.ID)
	}
	s.creators[creator.ID] = *creator
	return nil
}
