package core

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"w2s.io/advisor/internal/store"
)

const untitledConversation = "New conversation"

// ConversationSummary is one row of the chat history view.
type ConversationSummary struct {
	ConversationID   string    `json:"conversation_id"`
	FirstUserMessage string    `json:"first_user_message"`
	MessageCount     int       `json:"message_count"`
	LastMessageDate  time.Time `json:"last_message_date"`
	Saved            bool      `json:"saved"`
}

type ChatService struct {
	dbStore store.Store
}

func NewChatService(db store.Store) *ChatService {
	return &ChatService{dbStore: db}
}

// PostMessage stores msg on behalf of userID.
func (s *ChatService) PostMessage(ctx context.Context, userID int64, msg *store.Message) error {
	msg.CreatedBy = userID
	if err := s.dbStore.CreateMessage(ctx, msg); err != nil {
		return fmt.Errorf("failed to store message: %w", err)
	}
	return nil
}

// Conversations groups every message by conversation id, most recently
// active conversation first.
func (s *ChatService) Conversations(ctx context.Context) ([]ConversationSummary, error) {
	msgs, err := s.dbStore.ListMessages(ctx, store.MessageFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	saved, err := s.dbStore.ListSavedConversations(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("failed to list saved conversations: %w", err)
	}
	savedIDs := make(map[string]bool, len(saved))
	for _, sc := range saved {
		savedIDs[sc.ConversationID] = true
	}

	byID := make(map[string]*ConversationSummary)
	order := make([]string, 0)
	for _, m := range msgs {
		sum, ok := byID[m.ConversationID]
		if !ok {
			sum = &ConversationSummary{ConversationID: m.ConversationID, Saved: savedIDs[m.ConversationID]}
			byID[m.ConversationID] = sum
			order = append(order, m.ConversationID)
		}
		sum.MessageCount++
		if sum.FirstUserMessage == "" && m.Role == store.MessageRoleUser {
			sum.FirstUserMessage = m.Content
		}
		if m.CreatedDate.After(sum.LastMessageDate) {
			sum.LastMessageDate = m.CreatedDate
		}
	}

	out := make([]ConversationSummary, 0, len(order))
	for _, id := range order {
		sum := byID[id]
		if sum.FirstUserMessage == "" {
			sum.FirstUserMessage = untitledConversation
		}
		out = append(out, *sum)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LastMessageDate.After(out[j].LastMessageDate)
	})
	return out, nil
}

// DeleteConversation removes every message of the conversation. Saved
// bookmarks are left alone. Returns ErrNotFound when nothing matched.
func (s *ChatService) DeleteConversation(ctx context.Context, conversationID string) (int, error) {
	n, err := s.dbStore.DeleteConversation(ctx, conversationID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete conversation %s: %w", conversationID, err)
	}
	if n == 0 {
		return 0, fmt.Errorf("conversation %s: %w", conversationID, store.ErrNotFound)
	}
	log.Info().Str("conversation_id", conversationID).Int("messages", n).Msg("Deleted conversation")
	return n, nil
}
