// Package conversation drives one chat session: the onboarding check, guided
// questions, business and topic selection, and the message exchange with the
// advisor, persisting every step through Records.
package conversation

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"w2s.io/advisor/internal/prompt"
	"w2s.io/advisor/internal/store"
)

type State string

const (
	StateIdle                  State = "idle"
	StateCheckingOnboarding    State = "checking_onboarding"
	StateAwaitingGuidedPrompts State = "awaiting_guided_prompts"
	StateSelectingBusiness     State = "selecting_business"
	StateSelectingTopic        State = "selecting_topic"
	StateAwaitingAIReply       State = "awaiting_ai_reply"
)

const (
	untitled       = "New conversation"
	maxTitleLength = 100
)

// Records is the persistence the controller needs.
type Records interface {
	CurrentUser(ctx context.Context) (*store.User, error)
	Messages(ctx context.Context, conversationID string) ([]store.Message, error)
	CreateMessage(ctx context.Context, msg *store.Message) error
	ChatSettings(ctx context.Context) (*store.ChatSettings, error)
	CreateChatSettings(ctx context.Context, cs store.ChatSettings) (*store.ChatSettings, error)
	Businesses(ctx context.Context) ([]store.Business, error)
	SavedConversations(ctx context.Context, conversationID string) ([]store.SavedConversation, error)
	SaveConversation(ctx context.Context, sc *store.SavedConversation) error
	DeleteSavedConversation(ctx context.Context, id int64) error
}

// Gateway generates one advisor reply.
type Gateway interface {
	Chat(ctx context.Context, req prompt.ChatRequest) (string, error)
}

// Controller is a single-session state machine. It is not safe for
// concurrent use.
type Controller struct {
	records Records
	gateway Gateway
	now     func() time.Time

	state          State
	conversationID string
	lastIDMillis   int64
	user           *store.User
	messages       []store.Message
	settings       *store.ChatSettings
	businesses     []store.Business
	selected       *store.Business
	answers        []prompt.Answer
	saved          bool
	err            error
	// defaults replaces the business-type defaults when settings are
	// created lazily.
	defaults *store.ChatSettings
}

type Option func(*Controller)

// WithClock overrides the time source used for conversation ids.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithDefaultSettings sets the chat settings created when none exist yet.
func WithDefaultSettings(cs store.ChatSettings) Option {
	return func(c *Controller) { c.UseDefaultSettings(cs) }
}

func NewController(records Records, gateway Gateway, opts ...Option) *Controller {
	c := &Controller{
		records: records,
		gateway: gateway,
		now:     time.Now,
		state:   StateIdle,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start begins a session. An empty conversationID opens a fresh
// conversation; otherwise the existing one is loaded and the session goes
// straight to idle.
func (c *Controller) Start(ctx context.Context, conversationID string) error {
	if c.state == StateAwaitingAIReply {
		return c.invalid("start")
	}
	c.state = StateCheckingOnboarding
	c.user, c.messages, c.businesses, c.selected, c.answers = nil, nil, nil, nil, nil
	c.saved, c.err = false, nil

	u, err := c.records.CurrentUser(ctx)
	if err != nil {
		return fmt.Errorf("failed to load current user: %w", err)
	}
	c.user = u
	if !u.OnboardingCompleted {
		return ErrOnboardingRequired
	}

	fresh := conversationID == ""
	if fresh {
		conversationID = c.newConversationID()
	}
	c.conversationID = conversationID

	switch {
	case fresh && u.BusinessType != nil && *u.BusinessType == store.BusinessTypeHasBusiness:
		c.state = StateAwaitingGuidedPrompts
	case fresh:
		c.businesses = c.loadBusinesses(ctx)
		c.state = StateSelectingBusiness
	default:
		c.state = StateIdle
	}

	c.loadMessages(ctx)
	c.loadSettings(ctx)
	c.checkSaved(ctx)

	log.Debug().
		Str("conversation_id", c.conversationID).
		Str("state", string(c.state)).
		Int("messages", len(c.messages)).
		Msg("Session started")
	return nil
}

// AnswerGuided records the answer to the current guided question. After the
// last one the collected answers are sent to the advisor as one prompt.
func (c *Controller) AnswerGuided(ctx context.Context, answer string) error {
	if c.state != StateAwaitingGuidedPrompts {
		return c.invalid("answer")
	}
	if strings.TrimSpace(answer) == "" {
		return ErrEmptyInput
	}
	c.answers = append(c.answers, prompt.Answer{
		Question: guidedQuestions[len(c.answers)],
		Answer:   answer,
	})
	if len(c.answers) < len(guidedQuestions) {
		return nil
	}
	summary := prompt.GuidedSummary(c.answers)
	c.answers = nil
	return c.turn(ctx, summary)
}

func (c *Controller) SelectBusiness(ctx context.Context, id int64) error {
	if c.state != StateSelectingBusiness {
		return c.invalid("select business")
	}
	for i := range c.businesses {
		if c.businesses[i].ID == id {
			b := c.businesses[i]
			c.selected = &b
			c.state = StateSelectingTopic
			return nil
		}
	}
	return fmt.Errorf("%w: %d", ErrUnknownBusiness, id)
}

// SkipBusiness moves on to topic selection without a business context, for
// users who have not added one yet.
func (c *Controller) SkipBusiness() error {
	if c.state != StateSelectingBusiness {
		return c.invalid("skip business")
	}
	c.selected = nil
	c.state = StateSelectingTopic
	return nil
}

func (c *Controller) SelectTopic(ctx context.Context, topic string) error {
	if c.state != StateSelectingTopic {
		return c.invalid("select topic")
	}
	for _, t := range topics {
		if t == topic {
			return c.turn(ctx, prompt.TopicPrompt(topic))
		}
	}
	return fmt.Errorf("%w: %q", ErrUnknownTopic, topic)
}

// Send posts free text from the user and waits for the reply.
func (c *Controller) Send(ctx context.Context, content string) error {
	if c.state != StateIdle || c.user == nil {
		return c.invalid("send")
	}
	if strings.TrimSpace(content) == "" {
		return ErrEmptyInput
	}
	return c.turn(ctx, content)
}

// turn persists the user message, asks the gateway for a reply and persists
// that too. The history sent excludes the message carried by the prompt.
func (c *Controller) turn(ctx context.Context, content string) error {
	c.err = nil
	history := prompt.History(c.messages)

	userMsg := &store.Message{
		ConversationID: c.conversationID,
		Role:           store.MessageRoleUser,
		Content:        content,
	}
	if err := c.records.CreateMessage(ctx, userMsg); err != nil {
		c.state = StateIdle
		return fmt.Errorf("failed to save message: %w", err)
	}
	c.messages = append(c.messages, *userMsg)

	c.state = StateAwaitingAIReply
	req := prompt.ChatRequest{
		Prompt:              content,
		Business:            prompt.ContextFromBusiness(c.selected),
		ConversationHistory: history,
	}
	if c.settings != nil {
		req.SystemPrompt = c.settings.SystemPrompt
	}
	reply, err := c.gateway.Chat(ctx, req)
	c.state = StateIdle
	if err != nil {
		log.Error().Err(err).Str("conversation_id", c.conversationID).Msg("Error getting advisor reply")
		c.err = fmt.Errorf("%w: %w", ErrReplyFailed, err)
		return c.err
	}

	aiMsg := &store.Message{
		ConversationID: c.conversationID,
		Role:           store.MessageRoleAssistant,
		Content:        reply,
	}
	if err := c.records.CreateMessage(ctx, aiMsg); err != nil {
		log.Error().Err(err).Str("conversation_id", c.conversationID).Msg("Error saving advisor reply")
		c.err = fmt.Errorf("%w: %w", ErrReplyFailed, err)
		return c.err
	}
	c.messages = append(c.messages, *aiMsg)
	return nil
}

// NewChat switches to a fresh conversation id. Earlier messages stay stored.
func (c *Controller) NewChat() {
	c.conversationID = c.newConversationID()
	c.messages = nil
	c.saved = false
	c.err = nil
}

// ToggleSaved bookmarks the conversation, or removes the bookmark.
func (c *Controller) ToggleSaved(ctx context.Context) error {
	if c.conversationID == "" {
		return c.invalid("save")
	}
	if c.saved {
		saved, err := c.records.SavedConversations(ctx, c.conversationID)
		if err != nil {
			return fmt.Errorf("failed to look up saved conversation: %w", err)
		}
		if len(saved) > 0 {
			if err := c.records.DeleteSavedConversation(ctx, saved[0].ID); err != nil {
				return fmt.Errorf("failed to remove saved conversation: %w", err)
			}
		}
		c.saved = false
		return nil
	}

	sc := &store.SavedConversation{ConversationID: c.conversationID, Title: c.title()}
	if err := c.records.SaveConversation(ctx, sc); err != nil {
		return fmt.Errorf("failed to save conversation: %w", err)
	}
	c.saved = true
	return nil
}

func (c *Controller) title() string {
	for _, m := range c.messages {
		if m.Role != store.MessageRoleUser {
			continue
		}
		if utf8.RuneCountInString(m.Content) <= maxTitleLength {
			return m.Content
		}
		return string([]rune(m.Content)[:maxTitleLength])
	}
	return untitled
}

// newConversationID returns conv_<unix millis>, strictly increasing within
// this controller.
func (c *Controller) newConversationID() string {
	ms := c.now().UnixMilli()
	if ms <= c.lastIDMillis {
		ms = c.lastIDMillis + 1
	}
	c.lastIDMillis = ms
	return fmt.Sprintf("conv_%d", ms)
}

func (c *Controller) invalid(op string) error {
	return fmt.Errorf("%w: cannot %s while %s", ErrInvalidState, op, c.state)
}

func (c *Controller) loadMessages(ctx context.Context) {
	msgs, err := c.records.Messages(ctx, c.conversationID)
	if err != nil {
		log.Warn().Err(err).Str("conversation_id", c.conversationID).Msg("Failed to load messages")
		msgs = nil
	}
	c.messages = msgs
}

func (c *Controller) loadBusinesses(ctx context.Context) []store.Business {
	list, err := c.records.Businesses(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load businesses")
		return nil
	}
	return list
}

// UseDefaultSettings changes the settings the next Start creates when none
// exist, e.g. after onboarding lands the user on business basics.
func (c *Controller) UseDefaultSettings(cs store.ChatSettings) {
	c.defaults = &cs
}

// loadSettings fetches the chat settings, creating the defaults for the
// user's business type when none exist.
func (c *Controller) loadSettings(ctx context.Context) {
	cs, err := c.records.ChatSettings(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load chat settings")
		return
	}
	if cs == nil {
		defaults := prompt.DefaultSettings(c.user.BusinessType)
		if c.defaults != nil {
			defaults = *c.defaults
		}
		cs, err = c.records.CreateChatSettings(ctx, defaults)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to create chat settings")
			return
		}
	}
	c.settings = cs
}

func (c *Controller) checkSaved(ctx context.Context) {
	saved, err := c.records.SavedConversations(ctx, c.conversationID)
	if err != nil {
		log.Warn().Err(err).Str("conversation_id", c.conversationID).Msg("Failed to check saved state")
		return
	}
	c.saved = len(saved) > 0
}

func (c *Controller) State() State           { return c.state }
func (c *Controller) ConversationID() string { return c.conversationID }
func (c *Controller) User() *store.User      { return c.user }
func (c *Controller) Saved() bool            { return c.saved }
func (c *Controller) Err() error             { return c.err }
func (c *Controller) Topics() []string       { return Topics() }

func (c *Controller) SelectedBusiness() *store.Business {
	return c.selected
}

func (c *Controller) Messages() []store.Message {
	return append([]store.Message(nil), c.messages...)
}

func (c *Controller) Businesses() []store.Business {
	return append([]store.Business(nil), c.businesses...)
}

func (c *Controller) Settings() *store.ChatSettings { return c.settings }

func (c *Controller) WelcomeMessage() string {
	if c.settings == nil {
		return ""
	}
	return c.settings.WelcomeMessage
}

// CurrentQuestion returns the guided question awaiting an answer and its
// 1-based position.
func (c *Controller) CurrentQuestion() (question string, number int, ok bool) {
	if c.state != StateAwaitingGuidedPrompts || len(c.answers) >= len(guidedQuestions) {
		return "", 0, false
	}
	return guidedQuestions[len(c.answers)], len(c.answers) + 1, true
}
