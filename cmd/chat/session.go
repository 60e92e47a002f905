package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"w2s.io/advisor/internal/conversation"
	"w2s.io/advisor/internal/prompt"
	"w2s.io/advisor/internal/store"
)

var businessTypeChoices = []struct {
	label string
	value store.BusinessType
}{
	{"I have a business", store.BusinessTypeHasBusiness},
	{"I want to start a business", store.BusinessTypeWantsToStart},
	{"I don't know where to start", store.BusinessTypeUnknownStart},
}

// session is the terminal front end of a conversation.Controller.
type session struct {
	ctrl       *conversation.Controller
	onboarding *conversation.Onboarding
	in         *bufio.Scanner
	out        io.Writer
	referredBy *int64
	shown      int
}

func newSession(ctrl *conversation.Controller, onboarding *conversation.Onboarding, in io.Reader, out io.Writer) *session {
	return &session{
		ctrl:       ctrl,
		onboarding: onboarding,
		in:         bufio.NewScanner(in),
		out:        out,
	}
}

func (s *session) run(ctx context.Context, conversationID string) error {
	needed, err := s.onboarding.Check(ctx)
	if err != nil {
		return err
	}
	if needed {
		done, err := s.onboard(ctx)
		if err != nil || !done {
			return err
		}
	}

	if err := s.ctrl.Start(ctx, conversationID); err != nil {
		return err
	}
	s.banner()

	for ctx.Err() == nil {
		var more bool
		switch s.ctrl.State() {
		case conversation.StateAwaitingGuidedPrompts:
			more = s.guided(ctx)
		case conversation.StateSelectingBusiness:
			more = s.chooseBusiness(ctx)
		case conversation.StateSelectingTopic:
			more = s.chooseTopic(ctx)
		default:
			more = s.chat(ctx)
		}
		if !more {
			return nil
		}
	}
	return nil
}

func (s *session) readLine(promptText string) (string, bool) {
	fmt.Fprint(s.out, promptText)
	if !s.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(s.in.Text()), true
}

func (s *session) onboard(ctx context.Context) (bool, error) {
	fmt.Fprintln(s.out, "Welcome to Where 2 Start! How would you describe yourself?")
	for i, c := range businessTypeChoices {
		fmt.Fprintf(s.out, "  %d) %s\n", i+1, c.label)
	}
	for {
		line, ok := s.readLine("> ")
		if !ok {
			return false, nil
		}
		n, err := strconv.Atoi(line)
		if err != nil || n < 1 || n > len(businessTypeChoices) {
			fmt.Fprintf(s.out, "Please pick a number from 1 to %d.\n", len(businessTypeChoices))
			continue
		}
		dest, err := s.onboarding.Select(ctx, businessTypeChoices[n-1].value, s.referredBy)
		if err != nil {
			return false, err
		}
		fmt.Fprintf(s.out, "Thanks! Taking you to %s.\n\n", strings.ReplaceAll(string(dest), "_", " "))
		if dest == conversation.DestinationBusinessBasics {
			s.ctrl.UseDefaultSettings(prompt.BusinessBasicsSettings())
		}
		return true, nil
	}
}

func (s *session) banner() {
	title := prompt.ChatTitle
	if cs := s.ctrl.Settings(); cs != nil && cs.ChatTitle != "" {
		title = cs.ChatTitle
	}
	fmt.Fprintf(s.out, "%s  (conversation %s)\n\n", title, s.ctrl.ConversationID())

	msgs := s.ctrl.Messages()
	for _, m := range msgs {
		s.printMessage(m)
	}
	s.shown = len(msgs)
	if len(msgs) == 0 && s.ctrl.State() == conversation.StateIdle && s.ctrl.WelcomeMessage() != "" {
		fmt.Fprintf(s.out, "%s\n\n", s.ctrl.WelcomeMessage())
	}
}

func (s *session) printMessage(m store.Message) {
	who := "You"
	if m.Role == store.MessageRoleAssistant {
		who = "Advisor"
	}
	fmt.Fprintf(s.out, "%s: %s\n\n", who, m.Content)
}

// printReplies shows assistant messages added since the last call.
func (s *session) printReplies() {
	msgs := s.ctrl.Messages()
	for _, m := range msgs[min(s.shown, len(msgs)):] {
		if m.Role == store.MessageRoleAssistant {
			s.printMessage(m)
		}
	}
	s.shown = len(msgs)
}

func (s *session) report(err error) {
	switch {
	case err == nil:
		s.printReplies()
	case errors.Is(err, conversation.ErrEmptyInput):
		fmt.Fprintln(s.out, "Please type something first.")
	case errors.Is(err, conversation.ErrReplyFailed):
		s.printReplies()
		fmt.Fprintln(s.out, "Sorry, the advisor could not answer just now. Your message was saved; please try again.")
	case errors.Is(err, conversation.ErrUnknownBusiness), errors.Is(err, conversation.ErrUnknownTopic):
		fmt.Fprintln(s.out, "That is not one of the options.")
	default:
		fmt.Fprintf(s.out, "Error: %v\n", err)
	}
}

func (s *session) guided(ctx context.Context) bool {
	q, n, ok := s.ctrl.CurrentQuestion()
	if !ok {
		return false
	}
	line, ok := s.readLine(fmt.Sprintf("[%d/%d] %s\n> ", n, len(conversation.GuidedQuestions()), q))
	if !ok {
		return false
	}
	s.report(s.ctrl.AnswerGuided(ctx, line))
	return true
}

func (s *session) chooseBusiness(ctx context.Context) bool {
	list := s.ctrl.Businesses()
	fmt.Fprintln(s.out, "Hello! Which business would you like to discuss today?")
	for i, b := range list {
		fmt.Fprintf(s.out, "  %d) %s\n", i+1, b.BusinessName)
	}
	fmt.Fprintln(s.out, "  0) Continue without a business")

	line, ok := s.readLine("> ")
	if !ok {
		return false
	}
	n, err := strconv.Atoi(line)
	switch {
	case err != nil || n < 0 || n > len(list):
		s.report(conversation.ErrUnknownBusiness)
	case n == 0:
		s.report(s.ctrl.SkipBusiness())
	default:
		s.report(s.ctrl.SelectBusiness(ctx, list[n-1].ID))
	}
	return true
}

func (s *session) chooseTopic(ctx context.Context) bool {
	topics := s.ctrl.Topics()
	fmt.Fprintln(s.out, "What would you like to talk about?")
	for i, t := range topics {
		fmt.Fprintf(s.out, "  %d) %s\n", i+1, t)
	}
	line, ok := s.readLine("> ")
	if !ok {
		return false
	}
	topic := line
	if n, err := strconv.Atoi(line); err == nil && n >= 1 && n <= len(topics) {
		topic = topics[n-1]
	}
	s.report(s.ctrl.SelectTopic(ctx, topic))
	return true
}

func (s *session) chat(ctx context.Context) bool {
	line, ok := s.readLine("> ")
	if !ok {
		return false
	}
	switch line {
	case "":
		return true
	case "/quit", "/exit":
		return false
	case "/new":
		s.ctrl.NewChat()
		s.shown = 0
		fmt.Fprintf(s.out, "Started conversation %s\n\n", s.ctrl.ConversationID())
		if w := s.ctrl.WelcomeMessage(); w != "" {
			fmt.Fprintf(s.out, "%s\n\n", w)
		}
		return true
	case "/save":
		if err := s.ctrl.ToggleSaved(ctx); err != nil {
			s.report(err)
			return true
		}
		if s.ctrl.Saved() {
			fmt.Fprintln(s.out, "Conversation saved.")
		} else {
			fmt.Fprintln(s.out, "Conversation removed from saved chats.")
		}
		return true
	}
	s.report(s.ctrl.Send(ctx, line))
	return true
}
