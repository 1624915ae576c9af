// Package polyline encodes and decodes route geometries in the Google polyline format.
// OSRM emits precision 5 for geometries=polyline and precision 6 for geometries=polyline6.
// See https://developers.google.com/maps/documentation/utilities/polylinealgorithm
package polyline

import (
	"errors"
	"math"
)

// ErrMalformed is returned when an encoded string ends in the middle of a value.
var ErrMalformed = errors.New("polyline: malformed input")

// Precision values understood by the codec.
const (
	Precision5 = 5
	Precision6 = 6
)

// Point is a single vertex of a decoded polyline.
type Point struct {
	Lat float64
	Lon float64
}

// Decode decodes a precision-5 polyline. Malformed trailing data is dropped.
func Decode(encoded string) []Point {
	points, _ := DecodePrecision(encoded, Precision5)
	return points
}

// DecodePrecision decodes a polyline encoded with the given number of decimal places.
// It returns the points decoded before the first malformed value together with ErrMalformed.
func DecodePrecision(encoded string, precision int) ([]Point, error) {
	if encoded == "" {
		return nil, nil
	}

	factor := math.Pow10(precision)
	points := make([]Point, 0, len(encoded)/4)

	var lat, lon int
	for i := 0; i < len(encoded); {
		dLat, next, ok := decodeValue(encoded, i)
		if !ok {
			return points, ErrMalformed
		}
		dLon, next, ok := decodeValue(encoded, next)
		if !ok {
			return points, ErrMalformed
		}
		i = next

		lat += dLat
		lon += dLon
		points = append(points, Point{
			Lat: float64(lat) / factor,
			Lon: float64(lon) / factor,
		})
	}

	return points, nil
}

// decodeValue reads one zig-zag encoded delta starting at index.
func decodeValue(encoded string, index int) (value, next int, ok bool) {
	shift := 0
	result := 0

	for index < len(encoded) {
		b := int(encoded[index]) - 63
		index++
		if b < 0 {
			return 0, index, false
		}
		result |= (b & 0x1f) << shift
		shift += 5
		if b < 0x20 {
			if result&1 != 0 {
				return ^(result >> 1), index, true
			}
			return result >> 1, index, true
		}
	}

	return 0, index, false
}

// Encode encodes points at precision 5.
func Encode(points []Point) string {
	return EncodePrecision(points, Precision5)
}

// EncodePrecision encodes points with the given number of decimal places.
func EncodePrecision(points []Point, precision int) string {
	if len(points) == 0 {
		return ""
	}

	factor := math.Pow10(precision)
	buf := make([]byte, 0, len(points)*6)

	var prevLat, prevLon int
	for _, p := range points {
		lat := int(math.Round(p.Lat * factor))
		lon := int(math.Round(p.Lon * factor))

		buf = appendValue(buf, lat-prevLat)
		buf = appendValue(buf, lon-prevLon)

		prevLat, prevLon = lat, lon
	}

	return string(buf)
}

func appendValue(buf []byte, value int) []byte {
	if value < 0 {
		value = ^(value << 1)
	} else {
		value <<= 1
	}

	for value >= 0x20 {
		buf = append(buf, byte((value&0x1f)|0x20)+63)
		value >>= 5
	}
	return append(buf, byte(value)+63)
}

const earthRadiusMeters = 6371000

// Length returns the great-circle length of the path in meters.
func Length(points []Point) float64 {
	var total float64
	for i := 1; i < len(points); i++ {
		total += Haversine(points[i-1], points[i])
	}
	return total
}

// Haversine returns the great-circle distance between two points in meters.
func Haversine(a, b Point) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	sinDLat := math.Sin(dLat / 2)
	sinDLon := math.Sin(dLon / 2)

	h := sinDLat*sinDLat + math.Cos(lat1)*math.Cos(lat2)*sinDLon*sinDLon
	return 2 * earthRadiusMeters * math.Asin(math.Sqrt(h))
}
