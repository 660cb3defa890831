package geospatial

import (
	"errors"
	"math"
	"strings"
)

// ErrBadPolyline is returned when an encoded polyline is truncated or
// contains bytes outside the encoding alphabet.
var ErrBadPolyline = errors.New("malformed encoded polyline")

// Point is a latitude/longitude pair in degrees.
type Point struct {
	Lat, Lng float64
}

// EncodePolyline encodes points with the Google polyline algorithm at
// 1e5 precision.
func EncodePolyline(points []Point) string {
	var b strings.Builder
	var prevLat, prevLng int64
	for _, p := range points {
		lat := int64(math.Round(p.Lat * 1e5))
		lng := int64(math.Round(p.Lng * 1e5))
		encodeValue(&b, lat-prevLat)
		encodeValue(&b, lng-prevLng)
		prevLat, prevLng = lat, lng
	}
	return b.String()
}

// DecodePolyline is the inverse of EncodePolyline.
func DecodePolyline(s string) ([]Point, error) {
	var points []Point
	var lat, lng int64
	for i := 0; i < len(s); {
		dLat, n, err := decodeValue(s[i:])
		if err != nil {
			return nil, err
		}
		i += n
		dLng, n, err := decodeValue(s[i:])
		if err != nil {
			return nil, err
		}
		i += n
		lat += dLat
		lng += dLng
		points = append(points, Point{Lat: float64(lat) / 1e5, Lng: float64(lng) / 1e5})
	}
	return points, nil
}

// JoinPolylines decodes each segment and re-encodes them as one line,
// dropping a point that repeats the previous segment's last point.
func JoinPolylines(segments ...string) (string, error) {
	var all []Point
	for _, seg := range segments {
		pts, err := DecodePolyline(seg)
		if err != nil {
			return "", err
		}
		if len(all) > 0 && len(pts) > 0 && all[len(all)-1] == pts[0] {
			pts = pts[1:]
		}
		all = append(all, pts...)
	}
	return EncodePolyline(all), nil
}

func encodeValue(b *strings.Builder, v int64) {
	u := uint64(v) << 1
	if v < 0 {
		u = ^u
	}
	for u >= 0x20 {
		b.WriteByte(byte((0x20 | (u & 0x1f)) + 63))
		u >>= 5
	}
	b.WriteByte(byte(u + 63))
}

func decodeValue(s string) (int64, int, error) {
	var result uint64
	var shift uint
	for i := 0; i < len(s); i++ {
		c := int(s[i]) - 63
		if c < 0 || c > 0x3f || shift > 60 {
			return 0, 0, ErrBadPolyline
		}
		result |= uint64(c&0x1f) << shift
		shift += 5
		if c < 0x20 {
			v := int64(result >> 1)
			if result&1 != 0 {
				v = ^v
			}
			return v, i + 1, nil
		}
	}
	return 0, 0, ErrBadPolyline
}
