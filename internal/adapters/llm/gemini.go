package llm

import (
	"context"
	"fmt"

	"github.com/pedidosbot/pedidos-agent/internal/domain"
	"google.golang.org/genai"
)

type GeminiClient struct {
	client    *genai.Client
	modelName string
	prompt    PromptConfig
}

// NewGeminiClient creates a FallbackClient based on Vertex AI (Gemini).
func NewGeminiClient(ctx context.Context, projectID, location, modelName string, prompt PromptConfig) (*GeminiClient, error) {
	if projectID == "" || location == "" {
		return nil, fmt.Errorf("project and location must be set for the Gemini fallback")
	}
	if modelName == "" {
		modelName = "gemini-2.5-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Project:  projectID,
		Location: location,
		Backend:  genai.BackendVertexAI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating Vertex AI client: %w", err)
	}

	return &GeminiClient{
		client:    client,
		modelName: modelName,
		prompt:    prompt,
	}, nil
}

// Ask implements domain.FallbackClient. The caller bounds ctx with the
// configured fallback timeout; a deadline error surfaces as a normal
// error, which the engine treats as "no answer".
func (g *GeminiClient) Ask(ctx context.Context, text string, cctx domain.CustomerContext) (string, error) {
	system := BuildSystemPrompt(g.prompt)

	contents := []*genai.Content{
		genai.NewContentFromText(BuildUserPrompt(text, cctx), genai.RoleUser),
	}

	temp := float32(0.4)
	topP := float32(0.9)
	outputTokens := int32(1024)

	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		Temperature:       &temp,
		TopP:              &topP,
		MaxOutputTokens:   outputTokens,
	}

	res, err := g.client.Models.GenerateContent(ctx, g.modelName, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}

	return res.Text(), nil
}
