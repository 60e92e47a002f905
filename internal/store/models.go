package store

import "time"

type Role string

const (
	RoleUser     Role = "user"
	RoleInternal Role = "internal"
	RoleAdmin    Role = "admin"
)

type BusinessType string

const (
	BusinessTypeHasBusiness  BusinessType = "has_business"
	BusinessTypeWantsToStart BusinessType = "wants_to_start"
	BusinessTypeUnknownStart BusinessType = "unknown_start"
)

type MessageRole string

const (
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
)

type User struct {
	ID                  int64         `json:"id"`
	Name                string        `json:"name"`
	Email               string        `json:"email"`
	FullName            string        `json:"full_name"`
	Role                Role          `json:"role"`
	OnboardingCompleted bool          `json:"onboarding_completed"`
	BusinessType        *BusinessType `json:"business_type"` // null until onboarding
	ReferredBy          *int64        `json:"referred_by,omitempty"`
	CreatedDate         time.Time     `json:"created_date"`
}

// UserPatch carries a partial update; nil fields are left untouched.
type UserPatch struct {
	Name                *string       `json:"name,omitempty"`
	Email               *string       `json:"email,omitempty"`
	FullName            *string       `json:"full_name,omitempty"`
	Role                *Role         `json:"role,omitempty" validate:"omitnil,oneof=user internal admin"`
	OnboardingCompleted *bool         `json:"onboarding_completed,omitempty"`
	BusinessType        *BusinessType `json:"business_type,omitempty" validate:"omitnil,oneof=has_business wants_to_start unknown_start"`
	ReferredBy          *int64        `json:"referred_by,omitempty"`
}

func (p UserPatch) Apply(u *User) {
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.FullName != nil {
		u.FullName = *p.FullName
	}
	if p.Role != nil {
		u.Role = *p.Role
	}
	if p.OnboardingCompleted != nil {
		u.OnboardingCompleted = *p.OnboardingCompleted
	}
	if p.BusinessType != nil {
		bt := *p.BusinessType
		u.BusinessType = &bt
	}
	if p.ReferredBy != nil {
		ref := *p.ReferredBy
		u.ReferredBy = &ref
	}
}

type Message struct {
	ID             int64       `json:"id"`
	ConversationID string      `json:"conversation_id"`
	Role           MessageRole `json:"role"`
	Content        string      `json:"content"`
	CreatedBy      int64       `json:"created_by,omitempty"`
	CreatedDate    time.Time   `json:"created_date"`
}

type SavedConversation struct {
	ID             int64     `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Title          string    `json:"title"`
	CreatedDate    time.Time `json:"created_date"`
}

type ChatSettings struct {
	SystemPrompt   string    `json:"system_prompt"`
	ChatTitle      string    `json:"chat_title"`
	WelcomeMessage string    `json:"welcome_message"`
	CreatedDate    time.Time `json:"created_date"`
}

type Business struct {
	ID                int64     `json:"id"`
	UserID            int64     `json:"user_id"`
	BusinessName      string    `json:"business_name"`
	Industry          string    `json:"industry,omitempty"`
	Description       string    `json:"description,omitempty"`
	BusinessStructure string    `json:"business_structure"`
	TaxElection       string    `json:"tax_election,omitempty"`
	OwnershipStatus   string    `json:"ownership_status,omitempty"`
	EIN               string    `json:"ein,omitempty"`
	Location          string    `json:"location"`
	OwnerAge          string    `json:"owner_age,omitempty"`
	OwnerGender       string    `json:"owner_gender,omitempty"`
	OwnerEthnicity    string    `json:"owner_ethnicity,omitempty"`
	IsPrimary         bool      `json:"is_primary"`
	CreatedDate       time.Time `json:"created_date"`
}

type BusinessPatch struct {
	BusinessName      *string `json:"business_name,omitempty"`
	Industry          *string `json:"industry,omitempty"`
	Description       *string `json:"description,omitempty"`
	BusinessStructure *string `json:"business_structure,omitempty" validate:"omitnil,oneof=sole_proprietorship partnership llc corporation non_profit other"`
	TaxElection       *string `json:"tax_election,omitempty" validate:"omitnil,oneof=default s_corp c_corp"`
	OwnershipStatus   *string `json:"ownership_status,omitempty"`
	EIN               *string `json:"ein,omitempty"`
	Location          *string `json:"location,omitempty"`
	OwnerAge          *string `json:"owner_age,omitempty"`
	OwnerGender       *string `json:"owner_gender,omitempty"`
	OwnerEthnicity    *string `json:"owner_ethnicity,omitempty"`
	IsPrimary         *bool   `json:"is_primary,omitempty"`
}

func (p BusinessPatch) Apply(b *Business) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&b.BusinessName, p.BusinessName)
	set(&b.Industry, p.Industry)
	set(&b.Description, p.Description)
	set(&b.BusinessStructure, p.BusinessStructure)
	set(&b.TaxElection, p.TaxElection)
	set(&b.OwnershipStatus, p.OwnershipStatus)
	set(&b.EIN, p.EIN)
	set(&b.Location, p.Location)
	set(&b.OwnerAge, p.OwnerAge)
	set(&b.OwnerGender, p.OwnerGender)
	set(&b.OwnerEthnicity, p.OwnerEthnicity)
	if p.IsPrimary != nil {
		b.IsPrimary = *p.IsPrimary
	}
}

type APIKey struct {
	ID          int64      `json:"id"`
	Key         string     `json:"key"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	RateLimit   int        `json:"rate_limit"`
	IsActive    bool       `json:"is_active"`
	UsageCount  int        `json:"usage_count"`
	LastUsed    *time.Time `json:"last_used"`
	CreatedDate time.Time  `json:"created_date"`
}

type APIKeyPatch struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	RateLimit   *int    `json:"rate_limit,omitempty" validate:"omitnil,gte=0"`
	IsActive    *bool   `json:"is_active,omitempty"`
}

func (p APIKeyPatch) Apply(k *APIKey) {
	if p.Name != nil {
		k.Name = *p.Name
	}
	if p.Description != nil {
		k.Description = *p.Description
	}
	if p.RateLimit != nil {
		k.RateLimit = *p.RateLimit
	}
	if p.IsActive != nil {
		k.IsActive = *p.IsActive
	}
}
