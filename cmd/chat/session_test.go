package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"w2s.io/advisor/internal/api"
	"w2s.io/advisor/internal/client"
	"w2s.io/advisor/internal/conversation"
	"w2s.io/advisor/internal/prompt"
	"w2s.io/advisor/internal/store"
)

type cannedResponder struct{ reply string }

func (c cannedResponder) Chat(ctx context.Context, req prompt.ChatRequest) (string, error) {
	return c.reply, nil
}

func runSession(t *testing.T, db *store.MemoryStore, conversationID, input string) string {
	t.Helper()
	srv := httptest.NewServer(api.NewRouter(api.NewAPIHandler(db, cannedResponder{reply: "Hi there"}, 1, nil), []string{"*"}))
	defer srv.Close()

	c := client.New(srv.URL+"/api", 5*time.Second)
	var out bytes.Buffer
	s := newSession(conversation.NewController(c, c), conversation.NewOnboarding(c), strings.NewReader(input), &out)
	require.NoError(t, s.run(context.Background(), conversationID))
	return out.String()
}

func seeded(t *testing.T) *store.MemoryStore {
	t.Helper()
	db := store.NewMemoryStore()
	_, err := store.SeedUsers(context.Background(), db)
	require.NoError(t, err)
	return db
}

func TestSessionChatAndSave(t *testing.T) {
	db := seeded(t)
	out := runSession(t, db, "conv_9", "Hello\n/save\n/quit\n")

	assert.Contains(t, out, "Where 2 Start?  (conversation conv_9)")
	assert.Contains(t, out, "Advisor: Hi there")
	assert.Contains(t, out, "Conversation saved.")

	saved, err := db.ListSavedConversations(context.Background(), "conv_9")
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, "Hello", saved[0].Title)
}

func TestSessionGuidedQuestions(t *testing.T) {
	db := seeded(t)
	input := "Acme\n\nRetail\nTexas\n500\nProduct\nGrow\n/quit\n"
	out := runSession(t, db, "", input)

	assert.Contains(t, out, "[1/6] What is the name of your business?")
	assert.Contains(t, out, "Please type something first.")
	assert.Contains(t, out, "[6/6] What is your largest goal for this coming year?")
	assert.Contains(t, out, "Advisor: Hi there")

	msgs, err := db.ListMessages(context.Background(), store.MessageFilter{})
	require.NoError(t, err)
	assert.Len(t, msgs, 2)
}

func TestSessionOnboardingThenTopic(t *testing.T) {
	db := seeded(t)
	ctx := context.Background()
	notDone := false
	_, err := db.UpdateUser(ctx, 1, store.UserPatch{OnboardingCompleted: &notDone})
	require.NoError(t, err)

	out := runSession(t, db, "", "9\n2\n0\n2\n/quit\n")

	assert.Contains(t, out, "Please pick a number from 1 to 3.")
	assert.Contains(t, out, "Taking you to business basics.")
	assert.Contains(t, out, "Business Basics  (conversation conv_")
	assert.Contains(t, out, "2) business basics")
	assert.Contains(t, out, "Continue without a business")
	assert.Contains(t, out, "Advisor: Hi there")

	cs, err := db.GetChatSettings(ctx)
	require.NoError(t, err)
	require.NotNil(t, cs)
	assert.Equal(t, "Business Basics", cs.ChatTitle)

	u, err := db.GetUser(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, u.BusinessType)
	assert.Equal(t, store.BusinessTypeWantsToStart, *u.BusinessType)
}
