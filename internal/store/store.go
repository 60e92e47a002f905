package store

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("record not found")

// MessageFilter narrows ListMessages. The zero value matches every message.
type MessageFilter struct {
	ConversationID string
}

// Store is the record layer behind the API. Implementations stamp ids and
// created_date on create and return ErrNotFound (wrapped) for unknown ids.
type Store interface {
	ListUsers(ctx context.Context) ([]User, error)
	GetUser(ctx context.Context, id int64) (*User, error)
	CreateUser(ctx context.Context, u *User) error
	UpdateUser(ctx context.Context, id int64, patch UserPatch) (*User, error)
	DeleteUser(ctx context.Context, id int64) error

	ListMessages(ctx context.Context, filter MessageFilter) ([]Message, error)
	CreateMessage(ctx context.Context, msg *Message) error
	DeleteMessage(ctx context.Context, id int64) error
	DeleteConversation(ctx context.Context, conversationID string) (int, error)

	ListSavedConversations(ctx context.Context, conversationID string) ([]SavedConversation, error)
	CreateSavedConversation(ctx context.Context, sc *SavedConversation) error
	DeleteSavedConversation(ctx context.Context, id int64) error

	// GetChatSettings returns nil, nil when no settings exist yet.
	GetChatSettings(ctx context.Context) (*ChatSettings, error)
	// CreateChatSettings stores cs unless settings already exist, in which
	// case it returns the stored record and created=false.
	CreateChatSettings(ctx context.Context, cs ChatSettings) (settings *ChatSettings, created bool, err error)

	ListBusinesses(ctx context.Context, userID int64) ([]Business, error)
	GetBusiness(ctx context.Context, id int64) (*Business, error)
	CreateBusiness(ctx context.Context, b *Business) error
	UpdateBusiness(ctx context.Context, id int64, patch BusinessPatch) (*Business, error)
	DeleteBusiness(ctx context.Context, id int64) error
	// SetPrimaryBusiness marks id primary and clears the flag on every other
	// business of the same user in one step.
	SetPrimaryBusiness(ctx context.Context, id int64) (*Business, error)

	ListAPIKeys(ctx context.Context) ([]APIKey, error)
	CreateAPIKey(ctx context.Context, k *APIKey) error
	UpdateAPIKey(ctx context.Context, id int64, patch APIKeyPatch) (*APIKey, error)
	DeleteAPIKey(ctx context.Context, id int64) error

	Close() error
}

// Clock returns the time used for created_date stamps.
type Clock func() time.Time
