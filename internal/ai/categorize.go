package ai

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/genai"
)

// CategorizeDescriptions sends the ordered description list to Gemini and
// returns the positionally aligned category labels. A response whose length
// differs from the request is rejected outright so a misaligned merge can
// never happen.
func (c *GeminiCategorizer) CategorizeDescriptions(ctx context.Context, descriptions []string) ([]string, error) {
	prompt, err := buildCategorizationPrompt(descriptions)
	if err != nil {
		return nil, err
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("CategorizeDescriptions: create genai client: %w", err)
	}

	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: prompt}},
		},
	}

	resp, err := client.Models.GenerateContent(ctx, c.model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("CategorizeDescriptions: generate content: %w", err)
	}

	rawText := resp.Text()
	if rawText == "" {
		return nil, fmt.Errorf("CategorizeDescriptions: empty response from model")
	}

	clean := cleanModelJSON(rawText)

	var labels []string
	if err := json.Unmarshal([]byte(clean), &labels); err != nil {
		return nil, fmt.Errorf("CategorizeDescriptions: unmarshal JSON: %w\nraw response: %s", err, rawText)
	}

	if len(labels) != len(descriptions) {
		return nil, fmt.Errorf("CategorizeDescriptions: got %d labels for %d descriptions", len(labels), len(descriptions))
	}

	return labels, nil
}
