package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps every collection in process memory, indexed by id.
// Nothing survives a restart; Reset returns it to the empty state.
type MemoryStore struct {
	mu  sync.RWMutex
	now Clock

	users    map[int64]User
	messages map[int64]Message
	saved    map[int64]SavedConversation
	settings *ChatSettings
	business map[int64]Business
	keys     map[int64]APIKey

	nextUserID     int64
	nextMessageID  int64
	nextSavedID    int64
	nextBusinessID int64
	nextKeyID      int64
}

func NewMemoryStore() *MemoryStore {
	return NewMemoryStoreWithClock(time.Now)
}

func NewMemoryStoreWithClock(now Clock) *MemoryStore {
	s := &MemoryStore{now: now}
	s.reset()
	return s
}

func (s *MemoryStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
}

func (s *MemoryStore) reset() {
	s.users = make(map[int64]User)
	s.messages = make(map[int64]Message)
	s.saved = make(map[int64]SavedConversation)
	s.settings = nil
	s.business = make(map[int64]Business)
	s.keys = make(map[int64]APIKey)
	s.nextUserID, s.nextMessageID, s.nextSavedID, s.nextBusinessID, s.nextKeyID = 1, 1, 1, 1, 1
}

func (s *MemoryStore) Close() error { return nil }

// sortedValues returns the map values ordered by id, which is creation order.
func sortedValues[T any](m map[int64]T) []T {
	ids := make([]int64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		out = append(out, m[id])
	}
	return out
}

// User methods
func (s *MemoryStore) ListUsers(ctx context.Context) ([]User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedValues(s.users), nil
}

func (s *MemoryStore) GetUser(ctx context.Context, id int64) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	return &u, nil
}

func (s *MemoryStore) CreateUser(ctx context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.ID = s.nextUserID
	s.nextUserID++
	u.CreatedDate = s.now()
	s.users[u.ID] = *u
	return nil
}

func (s *MemoryStore) UpdateUser(ctx context.Context, id int64, patch UserPatch) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	patch.Apply(&u)
	s.users[id] = u
	return &u, nil
}

func (s *MemoryStore) DeleteUser(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	delete(s.users, id)
	return nil
}

// Message methods
func (s *MemoryStore) ListMessages(ctx context.Context, filter MessageFilter) ([]Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := sortedValues(s.messages)
	if filter.ConversationID == "" {
		return all, nil
	}
	out := make([]Message, 0)
	for _, m := range all {
		if m.ConversationID == filter.ConversationID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *MemoryStore) CreateMessage(ctx context.Context, msg *Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg.ID = s.nextMessageID
	s.nextMessageID++
	msg.CreatedDate = s.now()
	s.messages[msg.ID] = *msg
	return nil
}

func (s *MemoryStore) DeleteMessage(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.messages[id]; !ok {
		return fmt.Errorf("message %d: %w", id, ErrNotFound)
	}
	delete(s.messages, id)
	return nil
}

func (s *MemoryStore) DeleteConversation(ctx context.Context, conversationID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, m := range s.messages {
		if m.ConversationID == conversationID {
			delete(s.messages, id)
			n++
		}
	}
	return n, nil
}

// Saved conversation methods
func (s *MemoryStore) ListSavedConversations(ctx context.Context, conversationID string) ([]SavedConversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := sortedValues(s.saved)
	if conversationID == "" {
		return all, nil
	}
	out := make([]SavedConversation, 0)
	for _, sc := range all {
		if sc.ConversationID == conversationID {
			out = append(out, sc)
		}
	}
	return out, nil
}

func (s *MemoryStore) CreateSavedConversation(ctx context.Context, sc *SavedConversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc.ID = s.nextSavedID
	s.nextSavedID++
	sc.CreatedDate = s.now()
	s.saved[sc.ID] = *sc
	return nil
}

func (s *MemoryStore) DeleteSavedConversation(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.saved[id]; !ok {
		return fmt.Errorf("saved conversation %d: %w", id, ErrNotFound)
	}
	delete(s.saved, id)
	return nil
}

// Chat settings methods
func (s *MemoryStore) GetChatSettings(ctx context.Context) (*ChatSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.settings == nil {
		return nil, nil
	}
	cs := *s.settings
	return &cs, nil
}

func (s *MemoryStore) CreateChatSettings(ctx context.Context, cs ChatSettings) (*ChatSettings, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.settings != nil {
		existing := *s.settings
		return &existing, false, nil
	}
	cs.CreatedDate = s.now()
	s.settings = &cs
	out := cs
	return &out, true, nil
}

// Business methods
func (s *MemoryStore) ListBusinesses(ctx context.Context, userID int64) ([]Business, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Business, 0)
	for _, b := range sortedValues(s.business) {
		if b.UserID == userID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *MemoryStore) GetBusiness(ctx context.Context, id int64) (*Business, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.business[id]
	if !ok {
		return nil, fmt.Errorf("business %d: %w", id, ErrNotFound)
	}
	return &b, nil
}

func (s *MemoryStore) CreateBusiness(ctx context.Context, b *Business) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b.ID = s.nextBusinessID
	s.nextBusinessID++
	b.CreatedDate = s.now()
	if b.IsPrimary {
		s.clearPrimary(b.UserID, b.ID)
	}
	s.business[b.ID] = *b
	return nil
}

func (s *MemoryStore) UpdateBusiness(ctx context.Context, id int64, patch BusinessPatch) (*Business, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.business[id]
	if !ok {
		return nil, fmt.Errorf("business %d: %w", id, ErrNotFound)
	}
	patch.Apply(&b)
	if b.IsPrimary {
		s.clearPrimary(b.UserID, b.ID)
	}
	s.business[id] = b
	return &b, nil
}

func (s *MemoryStore) DeleteBusiness(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.business[id]; !ok {
		return fmt.Errorf("business %d: %w", id, ErrNotFound)
	}
	delete(s.business, id)
	return nil
}

func (s *MemoryStore) SetPrimaryBusiness(ctx context.Context, id int64) (*Business, error) {
	primary := true
	return s.UpdateBusiness(ctx, id, BusinessPatch{IsPrimary: &primary})
}

// clearPrimary must be called with mu held.
func (s *MemoryStore) clearPrimary(userID, keep int64) {
	for id, b := range s.business {
		if id != keep && b.UserID == userID && b.IsPrimary {
			b.IsPrimary = false
			s.business[id] = b
		}
	}
}

// API key methods
func (s *MemoryStore) ListAPIKeys(ctx context.Context) ([]APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedValues(s.keys), nil
}

func (s *MemoryStore) CreateAPIKey(ctx context.Context, k *APIKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k.ID = s.nextKeyID
	s.nextKeyID++
	k.CreatedDate = s.now()
	s.keys[k.ID] = *k
	return nil
}

func (s *MemoryStore) UpdateAPIKey(ctx context.Context, id int64, patch APIKeyPatch) (*APIKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k, ok := s.keys[id]
	if !ok {
		return nil, fmt.Errorf("api key %d: %w", id, ErrNotFound)
	}
	patch.Apply(&k)
	s.keys[id] = k
	return &k, nil
}

func (s *MemoryStore) DeleteAPIKey(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.keys[id]; !ok {
		return fmt.Errorf("api key %d: %w", id, ErrNotFound)
	}
	delete(s.keys, id)
	return nil
}
