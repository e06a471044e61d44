package ai

import (
	"context"

	"github.com/hy4k/aurelius/internal/domain"
)

// StatementExtractor parses an uploaded statement into a structured result.
// It is the first of the two external collaborators: file bytes in, full
// ParseResult out, with no partial results on failure.
type StatementExtractor interface {
	ExtractStatement(ctx context.Context, fileBytes []byte, mimeType string) (*domain.ParseResult, error)
}

// Categorizer assigns a category label to each description, positionally
// aligned with the input. It is the second external collaborator.
type Categorizer interface {
	CategorizeDescriptions(ctx context.Context, descriptions []string) ([]string, error)
}

// GeminiExtractor is the concrete StatementExtractor backed by Gemini.
type GeminiExtractor struct {
	model string
}

// NewGeminiExtractor creates a GeminiExtractor using the given model name.
func NewGeminiExtractor(model string) *GeminiExtractor {
	return &GeminiExtractor{model: model}
}

// ExtractStatement sends the file to the model and transforms the strict-JSON
// response into a ParseResult. Any error, including a malformed or partially
// valid response, invalidates the whole extraction.
func (e *GeminiExtractor) ExtractStatement(ctx context.Context, fileBytes []byte, mimeType string) (*domain.ParseResult, error) {
	raw, err := extractStatementWithModel(ctx, e.model, fileBytes, mimeType)
	if err != nil {
		return nil, err
	}
	return transformModelOutput(raw)
}

// GeminiCategorizer is the concrete Categorizer backed by Gemini.
type GeminiCategorizer struct {
	model string
}

// NewGeminiCategorizer creates a GeminiCategorizer using the given model name.
func NewGeminiCategorizer(model string) *GeminiCategorizer {
	return &GeminiCategorizer{model: model}
}

var _ StatementExtractor = (*GeminiExtractor)(nil)
var _ Categorizer = (*GeminiCategorizer)(nil)
