package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/genai"

	"github.com/blackcape/expense-reporter/constants"
	"github.com/blackcape/expense-reporter/internal/common"
	"github.com/blackcape/expense-reporter/internal/entity"
)

const prompt = "Analyze the provided receipt image. Extract the transaction date, " +
	"a short description of the vendor, the total amount, and select the best " +
	"category from the list. If it is a grocery receipt it's probably " +
	"9080 Employee Morale. The default category should be '8190 G&A Office supplies' if unsure."

// GeminiExtractor calls the Gemini API with a structured-output schema and
// validates the response before returning it.
type GeminiExtractor struct {
	client  *genai.Client
	model   string
	timeout time.Duration
	logger  *slog.Logger
}

// NewGeminiExtractor builds the collaborator client. The API key comes from
// the environment via ClientConfig.
func NewGeminiExtractor(ctx context.Context, apiKey, model string, timeout time.Duration, logger *slog.Logger) (*GeminiExtractor, error) {
	if logger == nil {
		logger = slog.Default()
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, common.WrapError(err, "create genai client")
	}
	return &GeminiExtractor{client: client, model: model, timeout: timeout, logger: logger}, nil
}

func (g *GeminiExtractor) ExtractReceipt(ctx context.Context, req Request) (entity.ParsedReceipt, error) {
	if len(req.Image) == 0 {
		return entity.ParsedReceipt{}, common.ErrInvalidInput
	}
	mime := req.MIMEType
	if mime == "" {
		mime = "image/jpeg"
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	contents := []*genai.Content{
		{
			Role: genai.RoleUser,
			Parts: []*genai.Part{
				{InlineData: &genai.Blob{MIMEType: mime, Data: req.Image}},
				{Text: prompt},
			},
		},
	}
	config := &genai.GenerateContentConfig{
		ResponseMIMEType:   "application/json",
		ResponseJsonSchema: receiptSchema(),
	}

	result, err := g.client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		g.logger.Error("gemini request failed", "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return entity.ParsedReceipt{}, common.WrapError(err, "generate content")
	}

	raw := []byte(result.Text())
	if err := ValidateAgainstSchema(BuildReceiptJSONSchema(nil), raw); err != nil {
		g.logger.Warn("gemini response failed schema validation", "error", err)
		return entity.ParsedReceipt{}, common.WrapError(err, "validate response")
	}

	var parsed entity.ParsedReceipt
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return entity.ParsedReceipt{}, common.WrapError(err, "decode response")
	}

	g.logger.Info("receipt parsed",
		"amount", parsed.Amount,
		"category", parsed.Category,
		"date", parsed.Date,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return parsed, nil
}

// receiptSchema mirrors BuildReceiptJSONSchema as a genai structured-output
// constraint, with the category enum pinned to the fixed list. The local
// validator deliberately leaves category unconstrained: an off-list category
// is coerced later, not rejected.
func receiptSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"date": {
				Type:        genai.TypeString,
				Description: "The date of the transaction in 'YYYY-MM-DD' format. If the year is not present, assume the current year.",
			},
			"description": {
				Type:        genai.TypeString,
				Description: "A concise description of the vendor or purchase (e.g., 'Starbucks Coffee', 'Uber Ride', 'Walmart').",
			},
			"amount": {
				Type:        genai.TypeNumber,
				Description: "The final total amount as a number, without currency symbols or commas.",
			},
			"category": {
				Type:        genai.TypeString,
				Description: "Based on the vendor and items, choose the most appropriate category from the provided list.",
				Enum:        constants.CategoryStrings(),
			},
		},
		Required: []string{"date", "description", "amount", "category"},
	}
}

// Retrying wraps an Extractor with a fixed small number of retries over the
// same input. Input errors are not retried.
type Retrying struct {
	inner    Extractor
	attempts int
	logger   *slog.Logger
}

// NewRetrying returns a retrying wrapper making up to 1+retries attempts.
func NewRetrying(inner Extractor, retries int, logger *slog.Logger) *Retrying {
	if logger == nil {
		logger = slog.Default()
	}
	if retries < 0 {
		retries = 0
	}
	return &Retrying{inner: inner, attempts: retries + 1, logger: logger}
}

func (r *Retrying) ExtractReceipt(ctx context.Context, req Request) (entity.ParsedReceipt, error) {
	var lastErr error
	for attempt := 1; attempt <= r.attempts; attempt++ {
		parsed, err := r.inner.ExtractReceipt(ctx, req)
		if err == nil {
			return parsed, nil
		}
		if errors.Is(err, common.ErrInvalidInput) || ctx.Err() != nil {
			return entity.ParsedReceipt{}, err
		}
		lastErr = err
		r.logger.Warn("extraction attempt failed", "attempt", attempt, "of", r.attempts, "error", err)
	}
	return entity.ParsedReceipt{}, fmt.Errorf("extraction failed after %d attempts: %w", r.attempts, lastErr)
}
