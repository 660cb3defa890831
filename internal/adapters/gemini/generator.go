// Package gemini drafts itineraries with the Gemini API, grounded on
// Google Maps place search.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/samirrijal/wanderplan/internal/core/domain"
	"github.com/samirrijal/wanderplan/internal/core/ports"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.5-flash"

// ErrNoCandidates is returned when the model produced no usable answer.
var ErrNoCandidates = errors.New("gemini returned no candidates")

// Config configures the Generator.
type Config struct {
	APIKey      string
	Model       string
	Temperature float32
	Timeout     time.Duration
	// BaseURL overrides the API endpoint.
	BaseURL string
}

// Generator implements ports.TextGenerator.
type Generator struct {
	client  *genai.Client
	model   string
	config  *genai.GenerateContentConfig
	timeout time.Duration
}

// New creates a Generator. Grounding output cannot be combined with JSON
// response mode, so the expected shape is requested in the prompt instead.
func New(ctx context.Context, cfg Config) (*Generator, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	return &Generator{
		client: client,
		model:  model,
		config: &genai.GenerateContentConfig{
			Tools:       []*genai.Tool{{GoogleMaps: &genai.GoogleMaps{}}},
			Temperature: genai.Ptr(cfg.Temperature),
		},
		timeout: cfg.Timeout,
	}, nil
}

// Generate sends prompt as a single user turn and returns the text of the
// first candidate together with any Maps places it was grounded on.
func (g *Generator) Generate(ctx context.Context, prompt string) (*ports.Generation, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	started := time.Now()
	resp, err := g.client.Models.GenerateContent(ctx, g.model,
		[]*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)},
		g.config,
	)
	if err != nil {
		return nil, fmt.Errorf("gemini generate: %w", err)
	}

	gen, err := fromResponse(resp)
	if err != nil {
		return nil, err
	}

	slog.Debug("gemini response",
		"model", g.model,
		"elapsed", time.Since(started).String(),
		"text_length", len(gen.Text),
		"places", len(gen.Places),
	)
	return gen, nil
}

func fromResponse(resp *genai.GenerateContentResponse) (*ports.Generation, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, ErrNoCandidates
	}
	cand := resp.Candidates[0]

	var sb strings.Builder
	for _, part := range cand.Content.Parts {
		if part != nil && part.Text != "" && !part.Thought {
			sb.WriteString(part.Text)
		}
	}

	gen := &ports.Generation{Text: sb.String()}
	if cand.GroundingMetadata != nil {
		for _, chunk := range cand.GroundingMetadata.GroundingChunks {
			if chunk == nil || chunk.Maps == nil || chunk.Maps.PlaceID == "" {
				continue
			}
			gen.Places = append(gen.Places, domain.PlaceRef{
				Title:   chunk.Maps.Title,
				PlaceID: chunk.Maps.PlaceID,
			})
		}
	}
	return gen, nil
}
