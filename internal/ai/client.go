// Package ai talks to the optional AI extraction collaborator: an
// OpenAI-compatible chat endpoint that extracts entities and inferred
// relationships from session notes.
//
// The collaborator is strictly optional. Absence or failure degrades the
// pipeline to heuristic-only operation; callers surface the failure as a
// dismissible notice and never let it blank out heuristic results.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const systemPrompt = `You are an entity extraction system for tabletop session notes. Extract named entities and relationships from the provided text.

RULES:
1. Extract ONLY entities explicitly present in the text - never invent
2. Use confidence 0.0-1.0 based on how clearly the entity is referenced
3. Return ONLY the JSON object, no additional text

ENTITY TYPES: npc, character, location, quest, task

JSON SCHEMA:
{
  "entities": [
    {"name": "Lord Blackwood", "type": "npc", "confidence": 0.9, "mentions": 2, "context": "entered the hall"}
  ],
  "relationships": [
    {"entity1": "Lord Blackwood", "entity2": "Silverwood Forest", "relationship": "traveled to", "confidence": 0.8}
  ]
}`

// Entity is the collaborator's entity shape: a free-form type string, a
// numeric confidence, and a mention count without offsets.
type Entity struct {
	Name       string  `json:"name"`
	Type       string  `json:"type"`
	Confidence float64 `json:"confidence"`
	Mentions   int     `json:"mentions"`
	Context    string  `json:"context,omitempty"`
}

// Relationship is an inferred relationship between two extracted entities.
type Relationship struct {
	Entity1      string  `json:"entity1"`
	Entity2      string  `json:"entity2"`
	Relationship string  `json:"relationship"`
	Confidence   float64 `json:"confidence"`
}

// Extraction is the full collaborator response.
type Extraction struct {
	Entities      []Entity       `json:"entities"`
	Relationships []Relationship `json:"relationships"`
}

// Extractor is the collaborator boundary. Implementations must be safe for
// concurrent use.
type Extractor interface {
	Extract(ctx context.Context, text string) (*Extraction, error)
}

// Config holds client configuration for an OpenAI-compatible endpoint.
type Config struct {
	Endpoint string        // base URL, e.g. "https://api.openai.com/v1"
	APIKey   string
	Model    string
	Timeout  time.Duration // per-call timeout (default 30s)
}

// Client is an Extractor over HTTP.
type Client struct {
	cfg  Config
	http *http.Client
}

// NewClient creates a client for the configured endpoint.
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	Temperature    float64       `json:"temperature"`
	ResponseFormat *struct {
		Type string `json:"type"`
	} `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Extract sends the text to the collaborator and parses the extraction.
func (c *Client) Extract(ctx context.Context, text string) (*Extraction, error) {
	if strings.TrimSpace(text) == "" {
		return &Extraction{}, nil
	}

	reqBody := chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: fmt.Sprintf("Extract entities from these session notes:\n\n---\n%s\n---\n\nReturn JSON matching the schema.", text)},
		},
		Temperature: 0.1,
		ResponseFormat: &struct {
			Type string `json:"type"`
		}{Type: "json_object"},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling extraction request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(c.cfg.Endpoint, "/")+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("building extraction request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling extraction endpoint: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("reading extraction response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("extraction endpoint returned %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	var chat chatResponse
	if err := json.Unmarshal(body, &chat); err != nil {
		return nil, fmt.Errorf("decoding chat response: %w", err)
	}
	if len(chat.Choices) == 0 {
		return nil, fmt.Errorf("extraction endpoint returned no choices")
	}

	return ParseExtraction(chat.Choices[0].Message.Content)
}

// ParseExtraction parses the model's JSON payload, stripping markdown code
// fences if present.
func ParseExtraction(raw string) (*Extraction, error) {
	cleaned := stripCodeFences(strings.TrimSpace(raw))

	var ex Extraction
	if err := json.Unmarshal([]byte(cleaned), &ex); err != nil {
		return nil, fmt.Errorf("invalid JSON from extraction endpoint: %w\nraw: %s", err, truncate(raw, 300))
	}
	return &ex, nil
}

// stripCodeFences removes a surrounding ```json ... ``` block.
func stripCodeFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	lines := strings.Split(s, "\n")
	start, end := 0, len(lines)
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			if start == 0 {
				start = i + 1
			} else {
				end = i
				break
			}
		}
	}
	if start > 0 && end > start {
		return strings.TrimSpace(strings.Join(lines[start:end], "\n"))
	}
	return s
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
