// Package prompt builds the text sent to the advisor model: the system
// instruction with an optional business context block, and the canned
// prompts used by guided onboarding and topic selection.
package prompt

import (
	"fmt"
	"strings"

	"w2s.io/advisor/internal/store"
)

const (
	DefaultSystemPrompt = "You are a helpful AI assistant."
	ChatTitle           = "Where 2 Start?"
	BusinessBasicsTitle = "Business Basics"

	contextHeader = "=== USER BUSINESS CONTEXT ==="
	contextFooter = "=== END BUSINESS CONTEXT ==="
)

// BusinessContext is the subset of a Business the advisor sees. Empty
// optional fields are left out of the rendered block.
type BusinessContext struct {
	BusinessName      string `json:"business_name"`
	Industry          string `json:"industry,omitempty"`
	Description       string `json:"description,omitempty"`
	BusinessStructure string `json:"business_structure"`
	TaxElection       string `json:"tax_election,omitempty"`
	Location          string `json:"location,omitempty"`
	OwnershipStatus   string `json:"ownership_status,omitempty"`
}

func ContextFromBusiness(b *store.Business) *BusinessContext {
	if b == nil {
		return nil
	}
	return &BusinessContext{
		BusinessName:      b.BusinessName,
		Industry:          b.Industry,
		Description:       b.Description,
		BusinessStructure: b.BusinessStructure,
		TaxElection:       b.TaxElection,
		Location:          b.Location,
		OwnershipStatus:   b.OwnershipStatus,
	}
}

func (c BusinessContext) Render() string {
	var sb strings.Builder
	sb.WriteString(contextHeader + "\n")
	fmt.Fprintf(&sb, "Business Name: %s\n", c.BusinessName)
	if c.Industry != "" {
		fmt.Fprintf(&sb, "Industry: %s\n", c.Industry)
	}
	if c.Description != "" {
		fmt.Fprintf(&sb, "Description: %s\n", c.Description)
	}
	fmt.Fprintf(&sb, "Business Structure: %s\n", c.BusinessStructure)
	if c.TaxElection != "" && c.TaxElection != "default" {
		fmt.Fprintf(&sb, "Tax Election: %s\n", c.TaxElection)
	}
	if c.Location != "" {
		fmt.Fprintf(&sb, "Location: %s\n", c.Location)
	}
	if c.OwnershipStatus != "" {
		fmt.Fprintf(&sb, "Ownership: %s\n", c.OwnershipStatus)
	}
	sb.WriteString(contextFooter + "\n")
	return sb.String()
}

// Instruction is the system side of a request.
type Instruction struct {
	SystemPrompt string
	Business     *BusinessContext
}

// Render returns the system prompt followed by the business block, if any.
// A blank system prompt falls back to DefaultSystemPrompt.
func (i Instruction) Render() string {
	system := strings.TrimSpace(i.SystemPrompt)
	if system == "" {
		system = DefaultSystemPrompt
	}
	if i.Business == nil {
		return system
	}
	return system + "\n\n" + i.Business.Render()
}

// Answer is one guided question with the user's reply.
type Answer struct {
	Question string
	Answer   string
}

func GuidedSummary(answers []Answer) string {
	pairs := make([]string, 0, len(answers))
	for _, a := range answers {
		pairs = append(pairs, a.Question+"\n"+a.Answer)
	}
	return "These are this user's answers to the onboarding questions. Please advise them on how to meet their goals, " +
		"and ask simple follow-up questions to hone your advice.\n\n" + strings.Join(pairs, "\n\n")
}

func TopicPrompt(topic string) string {
	return fmt.Sprintf("The user would like to talk about %s. Please respond to any questions and concerns the user has.", topic)
}

// DefaultSettings returns the chat settings created the first time a
// session finds none, tailored to the user's business type.
func DefaultSettings(bt *store.BusinessType) store.ChatSettings {
	if bt != nil && *bt == store.BusinessTypeHasBusiness {
		return store.ChatSettings{
			SystemPrompt:   establishedOwnerPrompt,
			ChatTitle:      ChatTitle,
			WelcomeMessage: "Welcome! I'm your W2S Assistant and I'm here to help you scale and solidify your business.",
		}
	}
	return store.ChatSettings{
		SystemPrompt:   firstBusinessPrompt,
		ChatTitle:      ChatTitle,
		WelcomeMessage: "Hi! I'm excited to help you start your business journey. Whether you have a specific idea or you're still exploring options, I'm here to guide you every step of the way. What's on your mind?",
	}
}

// BusinessBasicsSettings are the defaults for sessions opened from the
// business basics landing, where new founders go after onboarding.
func BusinessBasicsSettings() store.ChatSettings {
	return store.ChatSettings{
		SystemPrompt: "You are a helpful AI assistant specializing in business fundamentals. Your role is to explain basic business concepts, " +
			"guide users through foundational steps, and provide clear, concise information on starting and running a business.",
		ChatTitle:      BusinessBasicsTitle,
		WelcomeMessage: "Welcome to Business Basics! I'm here to help you understand the core principles of business. What would you like to learn about today?",
	}
}

const establishedOwnerPrompt = `You are a friendly, expert business advisor AI assistant helping an established business owner.

Your role is to:
- Help optimize and grow their existing business
- Provide practical advice on operations, marketing, finance, and scaling
- Assist with problem-solving specific business challenges
- Offer insights on tax optimization, business structure benefits, and strategic decisions
- Guide them on hiring, delegation, and systems building
- Help with customer acquisition, retention, and revenue growth

Communication style:
- Be warm, encouraging, and supportive
- Keep responses concise but thorough
- Ask clarifying questions when needed
- Provide actionable, specific advice
- Acknowledge their experience and build on it
- Use their business context when available

Remember: They're already in business, so focus on optimization, growth, and solving current challenges rather than starting from scratch.`

const firstBusinessPrompt = `You are a friendly, expert business advisor AI assistant helping someone start their first business.

Your role is to:
- Guide them through the business planning process from idea to launch
- Help validate their business idea and identify their target market
- Explain business structures, tax elections, and legal requirements in simple terms
- Assist with creating a business plan, pricing strategy, and initial marketing
- Provide step-by-step guidance on registration, permits, and setup
- Help them understand startup costs and basic financial planning
- Encourage and motivate them through the entrepreneurial journey
- Break down complex topics into digestible, actionable steps

Communication style:
- Be warm, patient, and encouraging
- Avoid jargon or explain it clearly when necessary
- Break complex processes into simple steps
- Celebrate small wins and progress
- Ask questions to understand their idea and goals
- Provide practical, low-cost solutions for beginners

Remember: They're just starting out, so focus on fundamentals, validation, and taking the first steps rather than advanced scaling strategies.`
