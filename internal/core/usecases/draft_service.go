package usecases

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/samirrijal/wanderplan/internal/core/domain"
	"github.com/samirrijal/wanderplan/internal/core/ports"
	"github.com/samirrijal/wanderplan/internal/pkg/logging"
	"github.com/samirrijal/wanderplan/internal/pkg/metrics"
)

// Draft is a candidate itinerary together with the raw text it came from.
type Draft struct {
	Itinerary *domain.Itinerary
	Raw       string
}

// DraftService asks the drafting service for candidate itineraries.
type DraftService struct {
	generator ports.TextGenerator
	prompts   PromptBuilder
}

// NewDraftService creates a new DraftService drafting for the given region.
func NewDraftService(generator ports.TextGenerator, region string) *DraftService {
	return &DraftService{generator: generator, prompts: PromptBuilder{Region: region}}
}

// Draft produces a candidate itinerary for req. With an empty history it
// sends the full first-attempt instruction; otherwise only the latest
// feedback entry drives a corrective instruction.
func (s *DraftService) Draft(ctx context.Context, req domain.PlanRequest, history domain.Transcript) (*Draft, error) {
	log := logging.FromContext(ctx)

	var prompt string
	if history.Len() == 0 {
		prompt = s.prompts.First(req)
	} else {
		prompt = s.prompts.Corrective(history)
	}

	gen, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		metrics.CollaboratorErrors.WithLabelValues("drafting").Inc()
		return nil, fmt.Errorf("generate draft: %w", err)
	}
	if gen == nil || gen.Text == "" {
		return nil, domain.ErrEmptyDraft
	}

	it, err := NormalizeDraft(gen.Text)
	if err != nil {
		log.Warn("draft rejected", "error", err, "raw_length", len(gen.Text))
		log.Debug("raw draft", "raw", gen.Text)
		return nil, err
	}

	if len(gen.Places) > 0 {
		matched := AttachPlaceRefs(it.Spots, gen.Places)
		log.Debug("grounding refs attached", "refs", len(gen.Places), "matched", matched)
	}

	log.Info("draft generated",
		slog.String("title", it.Title),
		slog.Int("spots", len(it.Spots)),
		slog.Int("estimated_duration", it.TotalDuration),
		slog.Bool("corrective", history.Len() > 0),
	)
	return &Draft{Itinerary: it, Raw: gen.Text}, nil
}
