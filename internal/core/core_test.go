package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"w2s.io/advisor/internal/prompt"
	"w2s.io/advisor/internal/store"
)

var epoch = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

// steppingClock returns epoch, epoch+1m, epoch+2m, ...
func steppingClock() store.Clock {
	t := epoch
	return func() time.Time {
		now := t
		t = t.Add(time.Minute)
		return now
	}
}

func addMessage(t *testing.T, s store.Store, conv string, role store.MessageRole, content string, by int64) {
	t.Helper()
	require.NoError(t, s.CreateMessage(context.Background(), &store.Message{
		ConversationID: conv, Role: role, Content: content, CreatedBy: by,
	}))
}

func TestConversationsSummaries(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStoreWithClock(steppingClock())
	svc := NewChatService(s)

	addMessage(t, s, "conv_a", store.MessageRoleAssistant, "Welcome", 1)
	addMessage(t, s, "conv_a", store.MessageRoleUser, "How do I file taxes?", 1)
	addMessage(t, s, "conv_b", store.MessageRoleAssistant, "Only the model spoke", 1)
	addMessage(t, s, "conv_a", store.MessageRoleAssistant, "Like this", 1)
	require.NoError(t, s.CreateSavedConversation(ctx, &store.SavedConversation{ConversationID: "conv_b", Title: "x"}))

	got, err := svc.Conversations(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "conv_a", got[0].ConversationID)
	assert.Equal(t, "How do I file taxes?", got[0].FirstUserMessage)
	assert.Equal(t, 3, got[0].MessageCount)
	assert.Equal(t, epoch.Add(3*time.Minute), got[0].LastMessageDate)
	assert.False(t, got[0].Saved)

	assert.Equal(t, "conv_b", got[1].ConversationID)
	assert.Equal(t, "New conversation", got[1].FirstUserMessage)
	assert.True(t, got[1].Saved)
}

func TestDeleteConversation(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	svc := NewChatService(s)
	addMessage(t, s, "conv_a", store.MessageRoleUser, "one", 1)
	addMessage(t, s, "conv_a", store.MessageRoleAssistant, "two", 1)
	addMessage(t, s, "conv_b", store.MessageRoleUser, "three", 1)

	n, err := svc.DeleteConversation(ctx, "conv_a")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = svc.DeleteConversation(ctx, "conv_a")
	assert.True(t, errors.Is(err, store.ErrNotFound))

	left, err := s.ListMessages(ctx, store.MessageFilter{})
	require.NoError(t, err)
	assert.Len(t, left, 1)
}

func TestPostMessageStampsAuthor(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	msg := &store.Message{ConversationID: "conv_1", Role: store.MessageRoleUser, Content: "hi", CreatedBy: 99}
	require.NoError(t, NewChatService(s).PostMessage(ctx, 7, msg))
	assert.Equal(t, int64(7), msg.CreatedBy)
	assert.NotZero(t, msg.ID)
}

func TestAnalyticsSummary(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStoreWithClock(steppingClock())
	require.NoError(t, s.CreateUser(ctx, &store.User{Name: "a"}))
	require.NoError(t, s.CreateUser(ctx, &store.User{Name: "b"}))
	addMessage(t, s, "conv_a", store.MessageRoleUser, "1", 1)
	addMessage(t, s, "conv_a", store.MessageRoleAssistant, "2", 1)
	addMessage(t, s, "conv_b", store.MessageRoleUser, "3", 2)
	require.NoError(t, s.CreateSavedConversation(ctx, &store.SavedConversation{ConversationID: "conv_a"}))

	// Ten days later nothing is recent.
	later := NewAnalyticsService(s, func() time.Time { return epoch.Add(10 * 24 * time.Hour) })
	sum, err := later.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, &Analytics{
		TotalUsers:         2,
		TotalMessages:      3,
		TotalConversations: 2,
		TotalSavedChats:    1,
	}, sum)

	now := NewAnalyticsService(s, func() time.Time { return epoch.Add(time.Hour) })
	sum, err = now.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.ActiveUsers)
	assert.Equal(t, 3, sum.MessagesThisWeek)
}

func TestUserStatsAndReferrals(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStoreWithClock(steppingClock())
	referrer := &store.User{Name: "referrer"}
	require.NoError(t, s.CreateUser(ctx, referrer))
	ref := referrer.ID
	require.NoError(t, s.CreateUser(ctx, &store.User{Name: "friend", ReferredBy: &ref}))
	addMessage(t, s, "conv_a", store.MessageRoleUser, "1", referrer.ID)
	addMessage(t, s, "conv_b", store.MessageRoleUser, "2", referrer.ID)
	addMessage(t, s, "conv_b", store.MessageRoleUser, "3", referrer.ID)

	svc := NewAnalyticsService(s, nil)
	stats, err := svc.UserStats(ctx)
	require.NoError(t, err)
	require.Len(t, stats, 2)

	assert.Equal(t, "friend", stats[0].Name)
	assert.Zero(t, stats[0].MessageCount)
	assert.Nil(t, stats[0].LastActive)

	assert.Equal(t, "referrer", stats[1].Name)
	assert.Equal(t, 3, stats[1].MessageCount)
	assert.Equal(t, 2, stats[1].ConversationCount)
	assert.Equal(t, 1, stats[1].ReferralCount)
	require.NotNil(t, stats[1].LastActive)
	assert.Equal(t, epoch.Add(4*time.Minute), *stats[1].LastActive)

	referred, err := svc.Referrals(ctx, referrer.ID)
	require.NoError(t, err)
	require.Len(t, referred, 1)
	assert.Equal(t, "friend", referred[0].Name)
}

func TestKeyService(t *testing.T) {
	ctx := context.Background()
	svc := NewKeyService(store.NewMemoryStore())

	first, err := svc.Create(ctx, NewAPIKey{Name: "first"})
	require.NoError(t, err)
	assert.Regexp(t, `^w2s_[0-9a-f]{32}$`, first.Key)
	assert.Equal(t, DefaultRateLimit, first.RateLimit)
	assert.True(t, first.IsActive)

	limit := 10
	second, err := svc.Create(ctx, NewAPIKey{Name: "second", RateLimit: &limit})
	require.NoError(t, err)
	assert.Equal(t, 10, second.RateLimit)
	assert.NotEqual(t, first.Key, second.Key)

	keys, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, keys, 2)
	assert.Equal(t, "second", keys[0].Name)
}

func TestBusinessServiceScopesToOwner(t *testing.T) {
	ctx := context.Background()
	svc := NewBusinessService(store.NewMemoryStore())

	mine, err := svc.Create(ctx, 1, NewBusiness{BusinessName: "Mine", BusinessStructure: "llc", Location: "Austin"})
	require.NoError(t, err)
	assert.Equal(t, "default", mine.TaxElection)
	theirs, err := svc.Create(ctx, 2, NewBusiness{BusinessName: "Theirs", BusinessStructure: "llc", Location: "Reno"})
	require.NoError(t, err)
	newer, err := svc.Create(ctx, 1, NewBusiness{BusinessName: "Newer", BusinessStructure: "other", Location: "Austin"})
	require.NoError(t, err)

	list, err := svc.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer.ID, list[0].ID)

	_, err = svc.SetPrimary(ctx, 1, theirs.ID)
	assert.True(t, errors.Is(err, store.ErrNotFound))
	assert.True(t, errors.Is(svc.Delete(ctx, 1, theirs.ID), store.ErrNotFound))

	got, err := svc.SetPrimary(ctx, 1, mine.ID)
	require.NoError(t, err)
	assert.True(t, got.IsPrimary)
}

func TestToContentsMapsRoles(t *testing.T) {
	got := toContents([]prompt.Turn{
		{Role: "user", Parts: []prompt.Part{{Text: "hello"}}},
		{Role: "assistant", Parts: []prompt.Part{{Text: "hi"}}},
		{Role: "model", Parts: []prompt.Part{{Text: ""}}},
	})
	require.Len(t, got, 2)
	assert.Equal(t, "user", got[0].Role)
	assert.Equal(t, "model", got[1].Role)
	assert.Equal(t, []genai.Part{genai.Text("hi")}, got[1].Parts)
}

func TestResponseText(t *testing.T) {
	resp := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Parts: []genai.Part{genai.Text("Hi "), genai.Text("there")}},
	}}}
	text, err := responseText(resp)
	require.NoError(t, err)
	assert.Equal(t, "Hi there", text)

	_, err = responseText(&genai.GenerateContentResponse{})
	assert.Error(t, err)
}
