package core

import (
	"context"
	"fmt"

	"w2s.io/advisor/internal/store"
)

type NewBusiness struct {
	BusinessName      string `json:"business_name" validate:"required"`
	Industry          string `json:"industry"`
	Description       string `json:"description"`
	BusinessStructure string `json:"business_structure" validate:"required,oneof=sole_proprietorship partnership llc corporation non_profit other"`
	TaxElection       string `json:"tax_election" validate:"omitempty,oneof=default s_corp c_corp"`
	OwnershipStatus   string `json:"ownership_status"`
	EIN               string `json:"ein"`
	Location          string `json:"location" validate:"required"`
	OwnerAge          string `json:"owner_age"`
	OwnerGender       string `json:"owner_gender"`
	OwnerEthnicity    string `json:"owner_ethnicity"`
	IsPrimary         bool   `json:"is_primary"`
}

// BusinessService scopes business records to their owner.
type BusinessService struct {
	dbStore store.Store
}

func NewBusinessService(db store.Store) *BusinessService {
	return &BusinessService{dbStore: db}
}

// List returns the user's businesses, newest first.
func (s *BusinessService) List(ctx context.Context, userID int64) ([]store.Business, error) {
	list, err := s.dbStore.ListBusinesses(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list businesses: %w", err)
	}
	for i, j := 0, len(list)-1; i < j; i, j = i+1, j-1 {
		list[i], list[j] = list[j], list[i]
	}
	return list, nil
}

func (s *BusinessService) Create(ctx context.Context, userID int64, in NewBusiness) (*store.Business, error) {
	taxElection := in.TaxElection
	if taxElection == "" {
		taxElection = "default"
	}
	b := &store.Business{
		UserID:            userID,
		BusinessName:      in.BusinessName,
		Industry:          in.Industry,
		Description:       in.Description,
		BusinessStructure: in.BusinessStructure,
		TaxElection:       taxElection,
		OwnershipStatus:   in.OwnershipStatus,
		EIN:               in.EIN,
		Location:          in.Location,
		OwnerAge:          in.OwnerAge,
		OwnerGender:       in.OwnerGender,
		OwnerEthnicity:    in.OwnerEthnicity,
		IsPrimary:         in.IsPrimary,
	}
	if err := s.dbStore.CreateBusiness(ctx, b); err != nil {
		return nil, fmt.Errorf("failed to create business: %w", err)
	}
	return b, nil
}

func (s *BusinessService) Update(ctx context.Context, userID, id int64, patch store.BusinessPatch) (*store.Business, error) {
	if err := s.owned(ctx, userID, id); err != nil {
		return nil, err
	}
	return s.dbStore.UpdateBusiness(ctx, id, patch)
}

func (s *BusinessService) Delete(ctx context.Context, userID, id int64) error {
	if err := s.owned(ctx, userID, id); err != nil {
		return err
	}
	return s.dbStore.DeleteBusiness(ctx, id)
}

func (s *BusinessService) SetPrimary(ctx context.Context, userID, id int64) (*store.Business, error) {
	if err := s.owned(ctx, userID, id); err != nil {
		return nil, err
	}
	return s.dbStore.SetPrimaryBusiness(ctx, id)
}

// owned reports ErrNotFound for businesses of other users.
func (s *BusinessService) owned(ctx context.Context, userID, id int64) error {
	b, err := s.dbStore.GetBusiness(ctx, id)
	if err != nil {
		return err
	}
	if b.UserID != userID {
		return fmt.Errorf("business %d: %w", id, store.ErrNotFound)
	}
	return nil
}
