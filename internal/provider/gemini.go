package provider

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// GeminiProvider implements LLMProvider against the Gemini API.
type GeminiProvider struct {
	client       *genai.Client
	defaultModel string
}

// NewGeminiProvider creates a Gemini client. An empty apiKey falls back
// to the SDK's ambient credentials (GEMINI_API_KEY / GOOGLE_API_KEY).
func NewGeminiProvider(ctx context.Context, apiKey, defaultModel string) (*GeminiProvider, error) {
	if defaultModel == "" {
		defaultModel = "gemini-2.5-flash"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	return &GeminiProvider{client: client, defaultModel: defaultModel}, nil
}

// DefaultModel returns the configured default model.
func (p *GeminiProvider) DefaultModel() string { return p.defaultModel }

// Chat sends the conversation to Gemini. Our two-role history maps onto
// the Gemini role scheme: user → RoleUser, assistant → RoleModel.
// System messages become the system instruction.
func (p *GeminiProvider) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	model := req.Model
	if model == "" {
		model = p.defaultModel
	}

	var system string
	var contents []*genai.Content
	for _, m := range req.Messages {
		switch m.Role {
		case RoleSystem:
			if system != "" {
				system += "\n"
			}
			system += m.Content
		case RoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}

	cfg := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(req.MaxTokens),
	}
	if req.Temperature > 0 {
		temp := float32(req.Temperature)
		cfg.Temperature = &temp
	}
	if system != "" {
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}

	res, err := p.client.Models.GenerateContent(ctx, model, contents, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini generate content: %w", err)
	}

	text := res.Text()
	if text == "" {
		return nil, fmt.Errorf("gemini returned empty text")
	}

	resp := &ChatResponse{Content: text}
	if res.UsageMetadata != nil {
		resp.Usage = Usage{
			PromptTokens:     int(res.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(res.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int(res.UsageMetadata.TotalTokenCount),
		}
	}
	return resp, nil
}
