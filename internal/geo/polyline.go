package geo

import (
	"errors"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/twpayne/go-polyline"
)

// shapeCodec decodes Valhalla route shapes. Valhalla encodes with six digits
// of precision, not the classic five; the scale must match the producing
// engine exactly or every decoded coordinate is silently wrong.
var shapeCodec = polyline.Codec{Dim: 2, Scale: 1e6}

// DecodeShape decodes a precision-6 encoded polyline into a [lon, lat]
// coordinate sequence.
func DecodeShape(encoded string) (orb.LineString, error) {
	if encoded == "" {
		return nil, errors.New("encoded shape is empty")
	}
	coords, remaining, err := shapeCodec.DecodeCoords([]byte(encoded))
	if err != nil {
		return nil, fmt.Errorf("decode shape: %w", err)
	}
	if len(remaining) > 0 {
		return nil, errors.New("decode shape: trailing data after coordinates")
	}

	line := make(orb.LineString, len(coords))
	for i, c := range coords {
		line[i] = orb.Point{c[1], c[0]}
	}
	return line, nil
}

// EncodeShape is the inverse of DecodeShape.
func EncodeShape(line orb.LineString) string {
	coords := make([][]float64, len(line))
	for i, p := range line {
		coords[i] = []float64{p.Lat(), p.Lon()}
	}
	return string(shapeCodec.EncodeCoords(nil, coords))
}
