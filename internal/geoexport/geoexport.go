// Package geoexport projects the core's world-frame coordinates to
// geographic (EPSG:4326) coordinates for storage/replay, grounded on the
// teacher's internal/geo.Coords3857From4326 (the reverse direction: there
// it converts incoming 4326 GPS to the 3857 it stores in; here the core's
// world-frame location is treated as already being in 3857 map units and is
// projected out to 4326 for human/map consumption).
package geoexport

import (
	"github.com/wroge/wgs84"
)

// Projector converts world-frame (x, y), assumed to be EPSG:3857 map units,
// to (longitude, latitude) in EPSG:4326.
type Projector struct {
	transform func(x, y, z float64) (float64, float64, float64)
}

// NewProjector builds a 3857->4326 projector using the same wgs84 EPSG
// transform pipeline the teacher uses in the opposite direction.
func NewProjector() *Projector {
	epsg := wgs84.EPSG()
	return &Projector{transform: epsg.Transform(3857, 4326)}
}

// Project returns (longitude, latitude) for a world-frame (x, y).
func (p *Projector) Project(x, y float64) (longitude, latitude float64, err error) {
	lon, lat, _ := p.transform(x, y, 0)
	return lon, lat, nil
}
