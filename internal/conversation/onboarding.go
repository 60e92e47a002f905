package conversation

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"w2s.io/advisor/internal/store"
)

// Destination is where a user lands after picking a business type.
type Destination string

const (
	DestinationChat           Destination = "chat"
	DestinationBusinessBasics Destination = "business_basics"
	DestinationAskAQuestion   Destination = "ask_a_question"
)

type UserRecords interface {
	CurrentUser(ctx context.Context) (*store.User, error)
	UpdateCurrentUser(ctx context.Context, patch store.UserPatch) (*store.User, error)
}

// Onboarding handles the welcome step that precedes the first chat.
type Onboarding struct {
	records UserRecords
}

func NewOnboarding(records UserRecords) *Onboarding {
	return &Onboarding{records: records}
}

// Check reports whether the current user still has to pick a business type.
// Admin and internal users are marked onboarded without one.
func (o *Onboarding) Check(ctx context.Context) (bool, error) {
	u, err := o.records.CurrentUser(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to load current user: %w", err)
	}
	if u.OnboardingCompleted {
		return false, nil
	}
	if u.Role == store.RoleAdmin || u.Role == store.RoleInternal {
		done := true
		if _, err := o.records.UpdateCurrentUser(ctx, store.UserPatch{OnboardingCompleted: &done}); err != nil {
			return false, fmt.Errorf("failed to complete onboarding for %s user: %w", u.Role, err)
		}
		log.Info().Int64("user_id", u.ID).Str("role", string(u.Role)).Msg("Skipped onboarding")
		return false, nil
	}
	return true, nil
}

// Select stores the business type (and referrer, when given) and completes
// onboarding.
func (o *Onboarding) Select(ctx context.Context, bt store.BusinessType, referredBy *int64) (Destination, error) {
	var dest Destination
	switch bt {
	case store.BusinessTypeHasBusiness:
		dest = DestinationChat
	case store.BusinessTypeWantsToStart:
		dest = DestinationBusinessBasics
	case store.BusinessTypeUnknownStart:
		dest = DestinationAskAQuestion
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownType, bt)
	}

	done := true
	patch := store.UserPatch{BusinessType: &bt, OnboardingCompleted: &done, ReferredBy: referredBy}
	if _, err := o.records.UpdateCurrentUser(ctx, patch); err != nil {
		return "", fmt.Errorf("failed to save onboarding selection: %w", err)
	}
	return dest, nil
}
