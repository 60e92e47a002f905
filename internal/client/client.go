// Package client talks to the record API and the AI gateway over HTTP.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"w2s.io/advisor/internal/prompt"
	"w2s.io/advisor/internal/store"
)

// StatusError is returned for any non-2xx response. A 404 also matches
// store.ErrNotFound under errors.Is.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

func (e *StatusError) Is(target error) bool {
	return target == store.ErrNotFound && e.Code == http.StatusNotFound
}

type Client struct {
	http *resty.Client
}

// New returns a client rooted at baseURL, e.g. http://localhost:3001/api.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		http: resty.New().
			SetBaseURL(strings.TrimRight(baseURL, "/")).
			SetTimeout(timeout).
			SetHeader("Content-Type", "application/json").
			SetHeader("Accept", "application/json"),
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	req := c.http.R().SetContext(ctx)
	if body != nil {
		req.SetBody(body)
	}
	resp, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	if resp.IsError() {
		return &StatusError{Code: resp.StatusCode(), Body: strings.TrimSpace(resp.String())}
	}
	if result == nil || len(resp.Body()) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body(), result); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func byConversation(path, conversationID string) string {
	return path + "?" + url.Values{"conversation_id": {conversationID}}.Encode()
}

func (c *Client) CurrentUser(ctx context.Context) (*store.User, error) {
	var u store.User
	if err := c.do(ctx, http.MethodGet, "/users/me", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) UpdateCurrentUser(ctx context.Context, patch store.UserPatch) (*store.User, error) {
	var u store.User
	if err := c.do(ctx, http.MethodPatch, "/users/me", patch, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) Messages(ctx context.Context, conversationID string) ([]store.Message, error) {
	var msgs []store.Message
	if err := c.do(ctx, http.MethodGet, byConversation("/messages/filter", conversationID), nil, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// CreateMessage posts msg and replaces it with the stored record.
func (c *Client) CreateMessage(ctx context.Context, msg *store.Message) error {
	body := map[string]string{
		"conversation_id": msg.ConversationID,
		"role":            string(msg.Role),
		"content":         msg.Content,
	}
	return c.do(ctx, http.MethodPost, "/messages", body, msg)
}

// ChatSettings returns nil, nil when the server has none yet.
func (c *Client) ChatSettings(ctx context.Context) (*store.ChatSettings, error) {
	var cs *store.ChatSettings
	if err := c.do(ctx, http.MethodGet, "/chat-settings", nil, &cs); err != nil {
		return nil, err
	}
	return cs, nil
}

func (c *Client) CreateChatSettings(ctx context.Context, cs store.ChatSettings) (*store.ChatSettings, error) {
	var out store.ChatSettings
	if err := c.do(ctx, http.MethodPost, "/chat-settings", cs, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Businesses(ctx context.Context) ([]store.Business, error) {
	var list []store.Business
	if err := c.do(ctx, http.MethodGet, "/businesses", nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (c *Client) SavedConversations(ctx context.Context, conversationID string) ([]store.SavedConversation, error) {
	var saved []store.SavedConversation
	if err := c.do(ctx, http.MethodGet, byConversation("/saved-conversations/filter", conversationID), nil, &saved); err != nil {
		return nil, err
	}
	return saved, nil
}

func (c *Client) SaveConversation(ctx context.Context, sc *store.SavedConversation) error {
	body := map[string]string{"conversation_id": sc.ConversationID, "title": sc.Title}
	return c.do(ctx, http.MethodPost, "/saved-conversations", body, sc)
}

func (c *Client) DeleteSavedConversation(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, "/saved-conversations/"+strconv.FormatInt(id, 10), nil, nil)
}

// Chat sends one request to the AI gateway.
func (c *Client) Chat(ctx context.Context, req prompt.ChatRequest) (string, error) {
	var resp prompt.ChatResponse
	if err := c.do(ctx, http.MethodPost, "/ai/chat", req, &resp); err != nil {
		return "", err
	}
	return resp.Response, nil
}
