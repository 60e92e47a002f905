package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"w2s.io/advisor/internal/store"
)

const (
	apiKeyPrefix     = "w2s_"
	DefaultRateLimit = 1000
)

type NewAPIKey struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	RateLimit   *int   `json:"rate_limit" validate:"omitnil,gte=0"`
}

type KeyService struct {
	dbStore store.Store
}

func NewKeyService(db store.Store) *KeyService {
	return &KeyService{dbStore: db}
}

// GenerateKey returns "w2s_" followed by 32 hex characters.
func GenerateKey() string {
	return apiKeyPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")
}

func (s *KeyService) Create(ctx context.Context, in NewAPIKey) (*store.APIKey, error) {
	rateLimit := DefaultRateLimit
	if in.RateLimit != nil {
		rateLimit = *in.RateLimit
	}
	k := &store.APIKey{
		Key:         GenerateKey(),
		Name:        in.Name,
		Description: in.Description,
		RateLimit:   rateLimit,
		IsActive:    true,
	}
	if err := s.dbStore.CreateAPIKey(ctx, k); err != nil {
		return nil, fmt.Errorf("failed to create api key: %w", err)
	}
	return k, nil
}

// List returns keys newest first.
func (s *KeyService) List(ctx context.Context) ([]store.APIKey, error) {
	keys, err := s.dbStore.ListAPIKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list api keys: %w", err)
	}
	for i, j := 0, len(keys)-1; i < j; i, j = i+1, j-1 {
		keys[i], keys[j] = keys[j], keys[i]
	}
	return keys, nil
}
