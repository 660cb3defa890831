package usecases_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/samirrijal/wanderplan/internal/core/domain"
	"github.com/samirrijal/wanderplan/internal/core/ports"
	"github.com/samirrijal/wanderplan/internal/core/usecases"
)

func TestDraftService_FirstAttemptPrompt(t *testing.T) {
	gen := &mockGenerator{
		generateFn: func(ctx context.Context, prompt string, call int) (*ports.Generation, error) {
			return &ports.Generation{Text: draftJSON("t", 30)}, nil
		},
	}
	svc := usecases.NewDraftService(gen, "")

	req := validRequest()
	if _, err := svc.Draft(context.Background(), req, domain.Transcript{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	prompt := gen.prompts[0]
	for _, want := range []string{
		usecases.DefaultRegion,
		req.Query,
		"walk",
		"120 minutes",
		"Return to start: true",
		"33.5897",
		"130.4207",
		"90% to 100%",
		"STARTS FROM the starting location",
		"Return ONLY a valid JSON object",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("first prompt missing %q", want)
		}
	}
}

func TestDraftService_CorrectiveUsesLatestEntryOnly(t *testing.T) {
	gen := &mockGenerator{
		generateFn: func(ctx context.Context, prompt string, call int) (*ports.Generation, error) {
			return &ports.Generation{Text: draftJSON("t", 30)}, nil
		},
	}
	svc := usecases.NewDraftService(gen, "Kyoto, Japan")

	history := domain.NewTranscript(
		domain.Message{Role: domain.RoleAssistant, Text: "OLD DRAFT"},
		domain.Message{Role: domain.RoleUser, Text: "The plan takes 200 minutes"},
	)
	if _, err := svc.Draft(context.Background(), validRequest(), history); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	prompt := gen.prompts[0]
	if !strings.Contains(prompt, "The plan takes 200 minutes") {
		t.Error("corrective prompt must carry the latest feedback")
	}
	if strings.Contains(prompt, "OLD DRAFT") {
		t.Error("corrective prompt must not replay earlier entries")
	}
	if strings.Contains(prompt, validRequest().Query) {
		t.Error("corrective prompt must not restate the request")
	}
}

func TestDraftService_AttachesGroundingRefs(t *testing.T) {
	gen := &mockGenerator{
		generateFn: func(ctx context.Context, prompt string, call int) (*ports.Generation, error) {
			return &ports.Generation{
				Text:   draftJSON("t", 30, 20),
				Places: []domain.PlaceRef{{Title: "Spot 2 Gardens", PlaceID: "p2"}},
			}, nil
		},
	}
	svc := usecases.NewDraftService(gen, "")

	d, err := svc.Draft(context.Background(), validRequest(), domain.Transcript{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Itinerary.Spots[0].PlaceID != "" || d.Itinerary.Spots[1].PlaceID != "p2" {
		t.Errorf("unexpected place ids: %+v", d.Itinerary.Spots)
	}
	if d.Raw == "" {
		t.Error("expected raw text to be kept")
	}
}

func TestDraftService_Errors(t *testing.T) {
	boom := errors.New("quota exceeded")
	tests := []struct {
		name string
		gen  func(ctx context.Context, prompt string, call int) (*ports.Generation, error)
		want error
	}{
		{"transport", func(context.Context, string, int) (*ports.Generation, error) { return nil, boom }, boom},
		{"empty", func(context.Context, string, int) (*ports.Generation, error) { return &ports.Generation{}, nil }, domain.ErrEmptyDraft},
		{"nil", func(context.Context, string, int) (*ports.Generation, error) { return nil, nil }, domain.ErrEmptyDraft},
		{"malformed", func(context.Context, string, int) (*ports.Generation, error) {
			return &ports.Generation{Text: "I could not find any places."}, nil
		}, domain.ErrMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := usecases.NewDraftService(&mockGenerator{generateFn: tt.gen}, "")
			_, err := svc.Draft(context.Background(), validRequest(), domain.Transcript{})
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestPromptBuilder_EndAtLastSpot(t *testing.T) {
	req := validRequest()
	req.ReturnToStart = false
	prompt := usecases.PromptBuilder{Region: "Kyoto, Japan"}.First(req)

	if !strings.Contains(prompt, "ends at the last spot") {
		t.Error("expected one-way instruction")
	}
	if !strings.Contains(prompt, "Kyoto, Japan") || strings.Contains(prompt, usecases.DefaultRegion) {
		t.Error("expected configured region only")
	}
}
