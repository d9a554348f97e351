// Package classifier is the LLM fallback behind the heuristic format
// detector: it asks a small model to name the dominant prompt format of a
// documentation sample and parses the structured answer.
package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/promptforge/promptforge/models"
)

const systemPrompt = `You classify developer-tool documentation by the prompt format the tool prefers.
Answer with a single JSON object and nothing else:
{"preferred_format": "<json|markdown|plaintext|cli|xml>", "confidence_score": <0-100>, "reason": "<short>"}`

// Client classifies documentation samples through the Anthropic API.
type Client struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// New builds a Client. The API key comes from the environment via the SDK
// default (ANTHROPIC_API_KEY); pass apiKey to override.
func New(model, apiKey string) *Client {
	var opts []option.RequestOption
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	return &Client{
		client:    anthropic.NewClient(opts...),
		model:     model,
		maxTokens: 256,
	}
}

type classification struct {
	PreferredFormat string `json:"preferred_format"`
	ConfidenceScore int    `json:"confidence_score"`
	Reason          string `json:"reason"`
}

// Classify asks the model for the dominant format of sample. The answer is
// parsed strictly; anything the model invents outside the five known
// formats is an error so the caller keeps its heuristic result.
func (c *Client) Classify(ctx context.Context, toolID, sample string) (*models.FormatDetection, error) {
	prompt := fmt.Sprintf("Tool: %s\n\nDocumentation sample:\n%s", toolID, sample)

	msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: c.maxTokens,
		System:    []anthropic.TextBlockParam{{Text: systemPrompt}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("classify %s: %w", toolID, err)
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	result, err := parseClassification(text.String())
	if err != nil {
		return nil, fmt.Errorf("classify %s: %w", toolID, err)
	}
	return result, nil
}

// parseClassification extracts and validates the JSON answer. Models
// sometimes wrap the object in prose or a code fence; take the outermost
// braces.
func parseClassification(text string) (*models.FormatDetection, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in response %q", text)
	}

	var c classification
	if err := json.Unmarshal([]byte(text[start:end+1]), &c); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if !models.IsKnownFormat(c.PreferredFormat) {
		return nil, fmt.Errorf("unknown format %q in response", c.PreferredFormat)
	}
	if c.ConfidenceScore < 0 {
		c.ConfidenceScore = 0
	}
	if c.ConfidenceScore > 100 {
		c.ConfidenceScore = 100
	}

	return &models.FormatDetection{
		PreferredFormat:  c.PreferredFormat,
		ConfidenceScore:  c.ConfidenceScore,
		DetectionMethods: []string{"llm-classifier"},
	}, nil
}
