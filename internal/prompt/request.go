package prompt

import "w2s.io/advisor/internal/store"

// Roles understood by the model. Stored assistant messages travel as "model".
const (
	RoleUser  = "user"
	RoleModel = "model"
)

type Part struct {
	Text string `json:"text"`
}

type Turn struct {
	Role  string `json:"role"`
	Parts []Part `json:"parts"`
}

// ChatRequest is the body of POST /api/ai/chat.
type ChatRequest struct {
	Prompt              string           `json:"prompt" validate:"required"`
	SystemPrompt        string           `json:"systemPrompt,omitempty"`
	Business            *BusinessContext `json:"business,omitempty"`
	ConversationHistory []Turn           `json:"conversationHistory"`
}

type ChatResponse struct {
	Response string `json:"response"`
}

// NormalizeRole maps any non-user role onto the model role.
func NormalizeRole(role string) string {
	if role == RoleUser {
		return RoleUser
	}
	return RoleModel
}

// History converts stored messages into model turns, oldest first.
func History(msgs []store.Message) []Turn {
	turns := make([]Turn, 0, len(msgs))
	for _, m := range msgs {
		turns = append(turns, Turn{
			Role:  NormalizeRole(string(m.Role)),
			Parts: []Part{{Text: m.Content}},
		})
	}
	return turns
}
