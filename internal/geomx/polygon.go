// Package geomx wraps github.com/peterstace/simplefeatures/geom with the
// handful of planar polygon operations the collision avoidance stage needs:
// building a closed polygon from an ordered corner list, and the zero-on-
// intersection distance query between two polygons. This is the same
// library the teacher uses for its own polyline/point handling
// (internal/geo), repurposed here from GIS coordinates to vehicle
// footprints.
package geomx

import (
	"github.com/peterstace/simplefeatures/geom"

	"github.com/vistacore/tm-core/internal/model"
)

// Polygon builds a closed, planar polygon from an ordered list of corners,
// appending the closing vertex (a repeat of the first point) as required by
// the underlying geometry library.
func Polygon(corners []model.Vector3) geom.Polygon {
	if len(corners) == 0 {
		return geom.Polygon{}
	}

	flat := make([]float64, 0, (len(corners)+1)*2)
	for _, c := range corners {
		flat = append(flat, c.X, c.Y)
	}
	flat = append(flat, corners[0].X, corners[0].Y)

	seq := geom.NewSequence(flat, geom.DimXY)
	ring, err := geom.NewLineString(seq)
	if err != nil {
		return geom.Polygon{}
	}
	poly, err := geom.NewPolygon([]geom.LineString{ring})
	if err != nil {
		// Degenerate input (collinear/too-few corners); fall back to an
		// empty polygon so distance queries degrade gracefully rather than
		// panicking in the hot loop.
		return geom.Polygon{}
	}
	return poly
}

// Distance is the planar, zero-on-intersection shortest distance between
// two polygons.
func Distance(a, b geom.Polygon) float64 {
	d, ok := geom.Distance(a.AsGeometry(), b.AsGeometry())
	if !ok {
		return 0
	}
	return d
}
