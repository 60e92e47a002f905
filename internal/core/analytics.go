package core

import (
	"context"
	"fmt"
	"sort"
	"time"

	"w2s.io/advisor/internal/store"
)

const activeWindow = 7 * 24 * time.Hour

type Analytics struct {
	TotalUsers         int `json:"total_users"`
	TotalMessages      int `json:"total_messages"`
	TotalConversations int `json:"total_conversations"`
	TotalSavedChats    int `json:"total_saved_chats"`
	ActiveUsers        int `json:"active_users"`
	MessagesThisWeek   int `json:"messages_this_week"`
}

type UserStats struct {
	store.User
	MessageCount      int        `json:"message_count"`
	ConversationCount int        `json:"conversation_count"`
	LastActive        *time.Time `json:"last_active"`
	ReferralCount     int        `json:"referral_count"`
}

// AnalyticsService aggregates store contents for the admin views.
type AnalyticsService struct {
	dbStore store.Store
	now     store.Clock
}

func NewAnalyticsService(db store.Store, now store.Clock) *AnalyticsService {
	if now == nil {
		now = time.Now
	}
	return &AnalyticsService{dbStore: db, now: now}
}

func (s *AnalyticsService) Summary(ctx context.Context) (*Analytics, error) {
	users, err := s.dbStore.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	msgs, err := s.dbStore.ListMessages(ctx, store.MessageFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	saved, err := s.dbStore.ListSavedConversations(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("failed to list saved conversations: %w", err)
	}

	weekAgo := s.now().Add(-activeWindow)
	conversations := make(map[string]struct{})
	active := make(map[int64]struct{})
	recent := 0
	for _, m := range msgs {
		conversations[m.ConversationID] = struct{}{}
		if m.CreatedDate.After(weekAgo) {
			recent++
			if m.CreatedBy != 0 {
				active[m.CreatedBy] = struct{}{}
			}
		}
	}

	return &Analytics{
		TotalUsers:         len(users),
		TotalMessages:      len(msgs),
		TotalConversations: len(conversations),
		TotalSavedChats:    len(saved),
		ActiveUsers:        len(active),
		MessagesThisWeek:   recent,
	}, nil
}

// UserStats lists every user, newest first, with activity counters.
func (s *AnalyticsService) UserStats(ctx context.Context) ([]UserStats, error) {
	users, err := s.dbStore.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	msgs, err := s.dbStore.ListMessages(ctx, store.MessageFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	type activity struct {
		count         int
		conversations map[string]struct{}
		last          time.Time
	}
	byUser := make(map[int64]*activity)
	for _, m := range msgs {
		a, ok := byUser[m.CreatedBy]
		if !ok {
			a = &activity{conversations: make(map[string]struct{})}
			byUser[m.CreatedBy] = a
		}
		a.count++
		a.conversations[m.ConversationID] = struct{}{}
		if m.CreatedDate.After(a.last) {
			a.last = m.CreatedDate
		}
	}
	referrals := make(map[int64]int)
	for _, u := range users {
		if u.ReferredBy != nil {
			referrals[*u.ReferredBy]++
		}
	}

	out := make([]UserStats, 0, len(users))
	for _, u := range users {
		st := UserStats{User: u, ReferralCount: referrals[u.ID]}
		if a, ok := byUser[u.ID]; ok {
			last := a.last
			st.MessageCount = a.count
			st.ConversationCount = len(a.conversations)
			st.LastActive = &last
		}
		out = append(out, st)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedDate.After(out[j].CreatedDate)
	})
	return out, nil
}

// Referrals returns the users referred by userID.
func (s *AnalyticsService) Referrals(ctx context.Context, userID int64) ([]store.User, error) {
	users, err := s.dbStore.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	out := make([]store.User, 0)
	for _, u := range users {
		if u.ReferredBy != nil && *u.ReferredBy == userID {
			out = append(out, u)
		}
	}
	return out, nil
}
