package agent

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

// GeminiInvoker backs the capability agents with the Gemini API. One logical
// request per invocation: system instruction + prompt/media parts in, raw
// response text out.
type GeminiInvoker struct {
	client *genai.Client
	model  string
}

// NewGeminiInvoker creates a Gemini-backed invoker for the given model.
func NewGeminiInvoker(ctx context.Context, apiKey, model string) (*GeminiInvoker, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create Gemini client: %w", err)
	}
	return &GeminiInvoker{client: client, model: model}, nil
}

// Generate sends the request and returns the concatenated response text.
func (g *GeminiInvoker) Generate(ctx context.Context, systemPrompt string, parts ...Part) (string, error) {
	gparts := make([]*genai.Part, 0, len(parts))
	for _, p := range parts {
		if p.Data != nil {
			gparts = append(gparts, &genai.Part{
				InlineData: &genai.Blob{MIMEType: p.MIME, Data: p.Data},
			})
			continue
		}
		gparts = append(gparts, &genai.Part{Text: p.Text})
	}

	var config *genai.GenerateContentConfig
	if systemPrompt != "" {
		config = &genai.GenerateContentConfig{
			SystemInstruction: &genai.Content{
				Parts: []*genai.Part{{Text: systemPrompt}},
			},
		}
	}

	contents := []*genai.Content{{Role: "user", Parts: gparts}}

	log.Debug().
		Str("model", g.model).
		Int("parts", len(gparts)).
		Msg("Starting Gemini API call")

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	if resp == nil {
		return "", fmt.Errorf("received empty response from Gemini API")
	}
	return resp.Text(), nil
}
