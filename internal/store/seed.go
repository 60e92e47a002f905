package store

import (
	"context"
	"fmt"
)

// SeedUsers inserts the two demo accounts when the user table is empty: an
// onboarded business owner (id 1) and an admin (id 2).
func SeedUsers(ctx context.Context, s Store) (int, error) {
	existing, err := s.ListUsers(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list users before seeding: %w", err)
	}
	if len(existing) > 0 {
		return 0, nil
	}

	hasBusiness := BusinessTypeHasBusiness
	seeds := []User{
		{
			Name:                "Test User",
			Email:               "test@example.com",
			FullName:            "Test User",
			Role:                RoleUser,
			OnboardingCompleted: true,
			BusinessType:        &hasBusiness,
		},
		{
			Name:                "Admin User",
			Email:               "admin@example.com",
			FullName:            "Admin User",
			Role:                RoleAdmin,
			OnboardingCompleted: true,
		},
	}
	for i := range seeds {
		if err := s.CreateUser(ctx, &seeds[i]); err != nil {
			return i, fmt.Errorf("failed to seed user %s: %w", seeds[i].Email, err)
		}
	}
	return len(seeds), nil
}
