package usecases_test

import (
	"errors"
	"testing"

	"github.com/samirrijal/wanderplan/internal/core/domain"
	"github.com/samirrijal/wanderplan/internal/core/usecases"
)

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"no fence", `  {"a":1}  `, `{"a":1}`},
		{"leading only", "```json\n{\"a\":1}", `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := usecases.StripCodeFence(tt.in); got != tt.want {
				t.Errorf("StripCodeFence() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNormalizeDraft_Fenced(t *testing.T) {
	raw := "```json\n" + draftJSON("Temple walk", 45, 30) + "\n```"

	it, err := usecases.NormalizeDraft(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if it.Title != "Temple walk" {
		t.Errorf("expected title, got %q", it.Title)
	}
	if len(it.Spots) != 2 {
		t.Fatalf("expected 2 spots, got %d", len(it.Spots))
	}
	if it.Spots[0].StayDuration != 45 || it.Spots[1].StayDuration != 30 {
		t.Errorf("unexpected stays: %+v", it.Spots)
	}
	if it.TotalDuration != 60 {
		t.Errorf("expected drafted total 60, got %d", it.TotalDuration)
	}
}

func TestNormalizeDraft_FractionalAndMissingStay(t *testing.T) {
	raw := `{"title":"t","spots":[
		{"name":"A","stayDuration":44.6,"location":{"lat":33.5,"lng":130.4}},
		{"name":"B","location":{"lat":33.6,"lng":130.5}}
	],"totalDuration":99.5}`

	it, err := usecases.NormalizeDraft(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if it.Spots[0].StayDuration != 45 {
		t.Errorf("expected rounded stay 45, got %d", it.Spots[0].StayDuration)
	}
	if it.Spots[1].StayDuration != 0 {
		t.Errorf("expected missing stay to be 0, got %d", it.Spots[1].StayDuration)
	}
	if it.TotalDuration != 100 {
		t.Errorf("expected total 100, got %d", it.TotalDuration)
	}
}

func TestNormalizeDraft_Errors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want error
	}{
		{"empty", "", domain.ErrEmptyDraft},
		{"only fence", "```json\n```", domain.ErrEmptyDraft},
		{"prose", "Sure! Here is a lovely plan for you.", domain.ErrMalformed},
		{"no spots", `{"title":"t","spots":[],"totalDuration":10}`, domain.ErrMalformed},
		{"missing spots", `{"title":"t","totalDuration":10}`, domain.ErrMalformed},
		{"spot without name", `{"spots":[{"location":{"lat":1,"lng":2}}]}`, domain.ErrMalformed},
		{"spot without location", `{"spots":[{"name":"A"}]}`, domain.ErrMalformed},
		{"spot without lng", `{"spots":[{"name":"A","location":{"lat":1}}]}`, domain.ErrMalformed},
		{"negative stay", `{"spots":[{"name":"A","stayDuration":-5,"location":{"lat":1,"lng":2}}]}`, domain.ErrMalformed},
		{"latitude out of range", `{"spots":[{"name":"A","location":{"lat":91,"lng":2}}]}`, domain.ErrMalformed},
		{"stay beyond a day", `{"spots":[{"name":"A","stayDuration":1441,"location":{"lat":1,"lng":2}}]}`, domain.ErrMalformed},
		{"huge stay", `{"spots":[{"name":"A","stayDuration":1e19,"location":{"lat":1,"lng":2}}]}`, domain.ErrMalformed},
		{"huge total", `{"spots":[{"name":"A","location":{"lat":1,"lng":2}}],"totalDuration":1e19}`, domain.ErrMalformed},
		{"stay as string", `{"spots":[{"name":"A","stayDuration":"30","location":{"lat":1,"lng":2}}]}`, domain.ErrMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := usecases.NormalizeDraft(tt.raw)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestAttachPlaceRefs(t *testing.T) {
	spots := []domain.Spot{
		{Name: "Kushida Shrine"},
		{Name: "Ichiran"},
		{Name: "Ohori Park", PlaceID: "drafted"},
		{Name: "Canal City"},
	}
	refs := []domain.PlaceRef{
		{Title: "Kushida Shrine (Kushida-jinja)", PlaceID: "p-kushida"},
		{Title: "Ichiran Ramen Nakasu", PlaceID: "p-ichiran-1"},
		{Title: "Ichiran Ramen Tenjin", PlaceID: "p-ichiran-2"},
		{Title: "Park", PlaceID: "p-park"},
		{Title: "", PlaceID: "p-empty"},
	}

	matched := usecases.AttachPlaceRefs(spots, refs)

	if matched != 3 {
		t.Errorf("expected 3 matches, got %d", matched)
	}
	if spots[0].PlaceID != "p-kushida" {
		t.Errorf("spot name contained in title: got %q", spots[0].PlaceID)
	}
	if spots[1].PlaceID != "p-ichiran-1" {
		t.Errorf("first matching ref should win: got %q", spots[1].PlaceID)
	}
	if spots[2].PlaceID != "p-park" {
		t.Errorf("title contained in spot name: got %q", spots[2].PlaceID)
	}
	if spots[3].PlaceID != "" {
		t.Errorf("unmatched spot should be unchanged: got %q", spots[3].PlaceID)
	}
}

func TestAttachPlaceRefs_CaseSensitive(t *testing.T) {
	spots := []domain.Spot{{Name: "ohori park"}}
	usecases.AttachPlaceRefs(spots, []domain.PlaceRef{{Title: "Ohori Park", PlaceID: "p"}})
	if spots[0].PlaceID != "" {
		t.Errorf("expected no match across case, got %q", spots[0].PlaceID)
	}
}
