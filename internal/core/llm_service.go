package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"

	"w2s.io/advisor/internal/config"
	"w2s.io/advisor/internal/metrics"
	"w2s.io/advisor/internal/prompt"
)

var errEmptyPrompt = errors.New("prompt is empty")

// Responder produces one advisor reply for a composed request.
type Responder interface {
	Chat(ctx context.Context, req prompt.ChatRequest) (string, error)
}

type LLMService struct {
	client    *genai.Client
	modelName string
	maxTokens int32
	timeout   time.Duration
}

func NewLLMService(ctx context.Context, cfg *config.Config) (*LLMService, error) {
	if err := cfg.RequireGemini(); err != nil {
		return nil, err
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiAPIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &LLMService{
		client:    client,
		modelName: cfg.GeminiModel,
		maxTokens: cfg.MaxOutputTokens,
		timeout:   cfg.AITimeout,
	}, nil
}

func (s *LLMService) Close() {
	if s.client == nil {
		return
	}
	if err := s.client.Close(); err != nil {
		log.Error().Err(err).Msg("Error closing GenAI client")
		return
	}
	log.Info().Msg("GenAI client closed")
}

// Chat starts a chat session seeded with the request history and sends the
// prompt as the next user turn. One call per request, no retry.
func (s *LLMService) Chat(ctx context.Context, req prompt.ChatRequest) (string, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return "", errEmptyPrompt
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	model := s.client.GenerativeModel(s.modelName)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(prompt.Instruction{SystemPrompt: req.SystemPrompt, Business: req.Business}.Render())},
	}
	maxTokens := s.maxTokens
	model.GenerationConfig = genai.GenerationConfig{MaxOutputTokens: &maxTokens}

	chatSession := model.StartChat()
	chatSession.History = toContents(req.ConversationHistory)

	start := time.Now()
	resp, err := chatSession.SendMessage(ctx, genai.Text(req.Prompt))
	if err != nil {
		metrics.ObserveAIRequest("error", time.Since(start))
		return "", fmt.Errorf("gemini chat SendMessage failed: %w", err)
	}
	metrics.ObserveAIRequest("success", time.Since(start))

	return responseText(resp)
}

func toContents(turns []prompt.Turn) []*genai.Content {
	history := make([]*genai.Content, 0, len(turns))
	for _, t := range turns {
		parts := make([]genai.Part, 0, len(t.Parts))
		for _, p := range t.Parts {
			if p.Text == "" {
				continue
			}
			parts = append(parts, genai.Text(p.Text))
		}
		if len(parts) == 0 {
			continue
		}
		history = append(history, &genai.Content{Role: prompt.NormalizeRole(t.Role), Parts: parts})
	}
	return history
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("gemini returned no candidates")
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			text.WriteString(string(txt))
		} else {
			log.Debug().Msgf("Gemini response part was not text: %T", part)
		}
	}
	if text.Len() == 0 {
		return "", fmt.Errorf("gemini returned no text parts")
	}
	return text.String(), nil
}
