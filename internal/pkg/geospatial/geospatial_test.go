package geospatial

import (
	"math"
	"testing"
)

func TestHaversine(t *testing.T) {
	tests := []struct {
		name       string
		lat1, lon1 float64
		lat2, lon2 float64
		wantMin    float64
		wantMax    float64
	}{
		{"same point", 33.5902, 130.4017, 33.5902, 130.4017, 0, 0.001},
		{"Hakata to Tenjin", 33.5897, 130.4207, 33.5911, 130.3989, 1900, 2200},
		{"Fukuoka to Kitakyushu", 33.5902, 130.4017, 33.8834, 130.8752, 54000, 58000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Haversine(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
			if got < tt.wantMin || got > tt.wantMax {
				t.Errorf("Haversine() = %.1f, want between %.1f and %.1f", got, tt.wantMin, tt.wantMax)
			}
		})
	}
}

func TestEncodePolyline_KnownValue(t *testing.T) {
	// Reference example from the polyline algorithm documentation.
	pts := []Point{{38.5, -120.2}, {40.7, -120.95}, {43.252, -126.453}}
	if got, want := EncodePolyline(pts), "_p~iF~ps|U_ulLnnqC_mqNvxq`@"; got != want {
		t.Errorf("EncodePolyline() = %q, want %q", got, want)
	}
}

func TestDecodePolyline_KnownValue(t *testing.T) {
	pts, err := DecodePolyline("_p~iF~ps|U_ulLnnqC_mqNvxq`@")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := []Point{{38.5, -120.2}, {40.7, -120.95}, {43.252, -126.453}}
	if len(pts) != len(want) {
		t.Fatalf("expected %d points, got %d", len(want), len(pts))
	}
	for i := range want {
		if math.Abs(pts[i].Lat-want[i].Lat) > 1e-9 || math.Abs(pts[i].Lng-want[i].Lng) > 1e-9 {
			t.Errorf("point %d = %+v, want %+v", i, pts[i], want[i])
		}
	}
}

func TestDecodePolyline_Truncated(t *testing.T) {
	if _, err := DecodePolyline("_p~iF~ps|U_"); err == nil {
		t.Error("expected error for truncated polyline")
	}
}

func TestJoinPolylines_DropsSharedVertex(t *testing.T) {
	a := EncodePolyline([]Point{{33.59, 130.40}, {33.60, 130.41}})
	b := EncodePolyline([]Point{{33.60, 130.41}, {33.61, 130.42}})

	joined, err := JoinPolylines(a, b)
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	pts, err := DecodePolyline(joined)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(pts) != 3 {
		t.Fatalf("expected 3 points, got %d: %+v", len(pts), pts)
	}
}

func TestJoinPolylines_Empty(t *testing.T) {
	joined, err := JoinPolylines()
	if err != nil || joined != "" {
		t.Errorf("expected empty result, got %q, %v", joined, err)
	}
}
