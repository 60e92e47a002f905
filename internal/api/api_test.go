package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"w2s.io/advisor/internal/core"
	"w2s.io/advisor/internal/prompt"
	"w2s.io/advisor/internal/store"
)

type fakeResponder struct {
	reply string
	err   error
	got   []prompt.ChatRequest
}

func (f *fakeResponder) Chat(ctx context.Context, req prompt.ChatRequest) (string, error) {
	f.got = append(f.got, req)
	return f.reply, f.err
}

func newTestServer(t *testing.T) (http.Handler, *store.MemoryStore, *fakeResponder) {
	t.Helper()
	db := store.NewMemoryStore()
	_, err := store.SeedUsers(context.Background(), db)
	require.NoError(t, err)
	ai := &fakeResponder{reply: "Hi there"}
	return NewRouter(NewAPIHandler(db, ai, 1, nil), []string{"*"}), db, ai
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func itoa(id int64) string { return strconv.FormatInt(id, 10) }

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	h, _, _ := newTestServer(t)
	rec := do(t, h, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestCurrentUser(t *testing.T) {
	h, _, _ := newTestServer(t)

	rec := do(t, h, http.MethodGet, "/api/users/me", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	me := decodeBody[store.User](t, rec)
	assert.Equal(t, int64(1), me.ID)
	assert.True(t, me.OnboardingCompleted)

	rec = do(t, h, http.MethodPatch, "/api/users/me", map[string]any{"full_name": "Pat Owner"})
	require.Equal(t, http.StatusOK, rec.Code)
	me = decodeBody[store.User](t, rec)
	assert.Equal(t, "Pat Owner", me.FullName)
	assert.Equal(t, "test@example.com", me.Email)

	rec = do(t, h, http.MethodPatch, "/api/users/me", map[string]any{"business_type": "retired"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUserCRUDAndReferrals(t *testing.T) {
	h, _, _ := newTestServer(t)

	rec := do(t, h, http.MethodPost, "/api/users", map[string]any{"email": "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/users", map[string]any{"email": "friend@example.com", "full_name": "Friend", "referred_by": 1})
	require.Equal(t, http.StatusCreated, rec.Code)
	friend := decodeBody[store.User](t, rec)
	assert.Equal(t, store.RoleUser, friend.Role)
	assert.False(t, friend.OnboardingCompleted)
	assert.Nil(t, friend.BusinessType)

	rec = do(t, h, http.MethodGet, "/api/users/me/referrals", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	referrals := decodeBody[[]store.User](t, rec)
	require.Len(t, referrals, 1)
	assert.Equal(t, friend.ID, referrals[0].ID)

	rec = do(t, h, http.MethodGet, "/api/users", nil)
	assert.Len(t, decodeBody[[]store.User](t, rec), 3)

	rec = do(t, h, http.MethodDelete, "/api/users/99", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "User not found\n", rec.Body.String())

	rec = do(t, h, http.MethodDelete, "/api/users/abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNonPositiveIDsAreNotFound(t *testing.T) {
	h, _, _ := newTestServer(t)

	for _, tc := range []struct {
		method, path, body string
	}{
		{http.MethodDelete, "/api/users/0", "User not found\n"},
		{http.MethodPatch, "/api/users/-4", "User not found\n"},
		{http.MethodDelete, "/api/messages/0", "Message not found\n"},
		{http.MethodDelete, "/api/saved-conversations/-1", "Saved conversation not found\n"},
		{http.MethodDelete, "/api/businesses/0", "Business not found\n"},
		{http.MethodPost, "/api/businesses/0/primary", "Business not found\n"},
		{http.MethodDelete, "/api/keys/0", "API key not found\n"},
	} {
		rec := do(t, h, tc.method, tc.path, map[string]any{})
		assert.Equal(t, http.StatusNotFound, rec.Code, tc.path)
		assert.Equal(t, tc.body, rec.Body.String(), tc.path)
	}
}

func TestMessagesByConversation(t *testing.T) {
	h, _, _ := newTestServer(t)

	post := func(conv, role, content string) *httptest.ResponseRecorder {
		return do(t, h, http.MethodPost, "/api/messages", map[string]string{
			"conversation_id": conv, "role": role, "content": content,
		})
	}
	require.Equal(t, http.StatusCreated, post("conv_123", "user", "first").Code)
	require.Equal(t, http.StatusCreated, post("conv_999", "user", "other").Code)
	require.Equal(t, http.StatusCreated, post("conv_123", "assistant", "second").Code)
	assert.Equal(t, http.StatusBadRequest, post("conv_123", "system", "nope").Code)
	assert.Equal(t, http.StatusBadRequest, post("", "user", "nope").Code)

	rec := do(t, h, http.MethodGet, "/api/messages/filter?conversation_id=conv_123", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	msgs := decodeBody[[]store.Message](t, rec)
	require.Len(t, msgs, 2)
	assert.Equal(t, "first", msgs[0].Content)
	assert.Equal(t, "second", msgs[1].Content)
	assert.Equal(t, int64(1), msgs[0].CreatedBy)

	rec = do(t, h, http.MethodGet, "/api/messages/filter?conversation_id=conv_none", nil)
	assert.JSONEq(t, `[]`, rec.Body.String())

	// Without conversation_id the filter lists every message.
	rec = do(t, h, http.MethodGet, "/api/messages/filter", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]store.Message](t, rec), 3)

	assert.Equal(t, http.StatusNoContent, do(t, h, http.MethodDelete, "/api/messages/1", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodDelete, "/api/messages/1", nil).Code)
}

func TestConversationsAndSaved(t *testing.T) {
	h, db, _ := newTestServer(t)
	ctx := context.Background()
	require.NoError(t, db.CreateMessage(ctx, &store.Message{ConversationID: "conv_1", Role: store.MessageRoleUser, Content: "Hello"}))
	require.NoError(t, db.CreateMessage(ctx, &store.Message{ConversationID: "conv_1", Role: store.MessageRoleAssistant, Content: "Hi there"}))

	rec := do(t, h, http.MethodPost, "/api/saved-conversations", map[string]string{"conversation_id": "conv_1", "title": "Hello"})
	require.Equal(t, http.StatusCreated, rec.Code)
	saved := decodeBody[store.SavedConversation](t, rec)

	rec = do(t, h, http.MethodGet, "/api/saved-conversations/filter?conversation_id=conv_1", nil)
	assert.Len(t, decodeBody[[]store.SavedConversation](t, rec), 1)
	require.NoError(t, db.CreateSavedConversation(ctx, &store.SavedConversation{ConversationID: "conv_2", Title: "Other"}))
	rec = do(t, h, http.MethodGet, "/api/saved-conversations/filter", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]store.SavedConversation](t, rec), 2)

	rec = do(t, h, http.MethodGet, "/api/conversations", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	convs := decodeBody[[]core.ConversationSummary](t, rec)
	require.Len(t, convs, 1)
	assert.Equal(t, 2, convs[0].MessageCount)
	assert.True(t, convs[0].Saved)

	// Removing the bookmark keeps the messages.
	assert.Equal(t, http.StatusNoContent, do(t, h, http.MethodDelete, "/api/saved-conversations/"+itoa(saved.ID), nil).Code)
	msgs, err := db.ListMessages(ctx, store.MessageFilter{ConversationID: "conv_1"})
	require.NoError(t, err)
	assert.Len(t, msgs, 2)

	assert.Equal(t, http.StatusNoContent, do(t, h, http.MethodDelete, "/api/conversations/conv_1", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodDelete, "/api/conversations/conv_1", nil).Code)
}

func TestChatSettingsCreatedOnce(t *testing.T) {
	h, _, _ := newTestServer(t)

	rec := do(t, h, http.MethodGet, "/api/chat-settings", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "null", strings.TrimSpace(rec.Body.String()))

	rec = do(t, h, http.MethodPost, "/api/chat-settings", store.ChatSettings{SystemPrompt: "first", ChatTitle: "Where 2 Start?"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/chat-settings", store.ChatSettings{SystemPrompt: "second"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "first", decodeBody[store.ChatSettings](t, rec).SystemPrompt)

	rec = do(t, h, http.MethodGet, "/api/chat-settings", nil)
	assert.Equal(t, "first", decodeBody[store.ChatSettings](t, rec).SystemPrompt)
}

func TestBusinesses(t *testing.T) {
	h, _, _ := newTestServer(t)

	rec := do(t, h, http.MethodPost, "/api/businesses", map[string]any{"business_name": "No structure", "location": "Austin"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	create := func(name string, primary bool) store.Business {
		rec := do(t, h, http.MethodPost, "/api/businesses", map[string]any{
			"business_name": name, "business_structure": "llc", "location": "Austin", "is_primary": primary,
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		return decodeBody[store.Business](t, rec)
	}
	a := create("Alpha", true)
	b := create("Beta", false)
	assert.Equal(t, int64(1), a.UserID)

	rec = do(t, h, http.MethodPost, "/api/businesses/"+itoa(b.ID)+"/primary", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/businesses", nil)
	list := decodeBody[[]store.Business](t, rec)
	require.Len(t, list, 2)
	assert.Equal(t, "Beta", list[0].BusinessName)
	primaries := 0
	for _, biz := range list {
		if biz.IsPrimary {
			primaries++
			assert.Equal(t, b.ID, biz.ID)
		}
	}
	assert.Equal(t, 1, primaries)

	rec = do(t, h, http.MethodPatch, "/api/businesses/"+itoa(a.ID), map[string]any{"tax_election": "s_corp", "industry": "Retail"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Retail", decodeBody[store.Business](t, rec).Industry)

	rec = do(t, h, http.MethodPatch, "/api/businesses/"+itoa(a.ID), map[string]any{"tax_election": "x_corp"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Equal(t, http.StatusNoContent, do(t, h, http.MethodDelete, "/api/businesses/"+itoa(a.ID), nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodDelete, "/api/businesses/"+itoa(a.ID), nil).Code)
}

func TestAPIKeys(t *testing.T) {
	h, _, _ := newTestServer(t)

	rec := do(t, h, http.MethodPost, "/api/keys", map[string]any{"name": "integration"})
	require.Equal(t, http.StatusCreated, rec.Code)
	k := decodeBody[store.APIKey](t, rec)
	assert.True(t, strings.HasPrefix(k.Key, "w2s_"))
	assert.Len(t, k.Key, 36)
	assert.Equal(t, 1000, k.RateLimit)
	assert.Nil(t, k.LastUsed)

	rec = do(t, h, http.MethodPatch, "/api/keys/"+itoa(k.ID), map[string]any{"is_active": false})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decodeBody[store.APIKey](t, rec).IsActive)

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/api/keys", map[string]any{}).Code)
	assert.Equal(t, http.StatusNoContent, do(t, h, http.MethodDelete, "/api/keys/"+itoa(k.ID), nil).Code)

	rec = do(t, h, http.MethodGet, "/api/keys", nil)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestAdminViews(t *testing.T) {
	h, db, _ := newTestServer(t)
	ctx := context.Background()
	require.NoError(t, db.CreateMessage(ctx, &store.Message{ConversationID: "conv_1", Role: store.MessageRoleUser, Content: "a", CreatedBy: 1}))
	require.NoError(t, db.CreateMessage(ctx, &store.Message{ConversationID: "conv_2", Role: store.MessageRoleUser, Content: "b", CreatedBy: 2}))

	rec := do(t, h, http.MethodGet, "/api/admin/analytics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	sum := decodeBody[core.Analytics](t, rec)
	assert.Equal(t, 2, sum.TotalUsers)
	assert.Equal(t, 2, sum.TotalConversations)
	assert.Equal(t, 2, sum.ActiveUsers)

	rec = do(t, h, http.MethodGet, "/api/admin/users", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]core.UserStats](t, rec), 2)
}

func TestAIChat(t *testing.T) {
	h, _, ai := newTestServer(t)

	rec := do(t, h, http.MethodPost, "/api/ai/chat", prompt.ChatRequest{
		Prompt:       "Hello",
		SystemPrompt: "Be brief.",
		ConversationHistory: []prompt.Turn{
			{Role: "assistant", Parts: []prompt.Part{{Text: "Welcome"}}},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"response":"Hi there"}`, rec.Body.String())
	require.Len(t, ai.got, 1)
	assert.Equal(t, "Hello", ai.got[0].Prompt)
	assert.Equal(t, "Be brief.", ai.got[0].SystemPrompt)

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/api/ai/chat", map[string]any{}).Code)

	ai.err = errors.New("quota exceeded")
	rec = do(t, h, http.MethodPost, "/api/ai/chat", prompt.ChatRequest{Prompt: "Hello"})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Error communicating with AI\n", rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	h, _, _ := newTestServer(t)
	do(t, h, http.MethodGet, "/api/health", nil)
	rec := do(t, h, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "w2s_http_requests_total")
}
