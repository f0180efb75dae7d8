// Package collision implements the Collision Negotiator and Collision
// Avoidance Driver from spec §4.3/§4.4, grounded directly on
// CollisionAvoidance.h.
package collision

import (
	"fmt"

	"github.com/vistacore/tm-core/internal/boundary"
	"github.com/vistacore/tm-core/internal/geomx"
	"github.com/vistacore/tm-core/internal/model"
	"github.com/vistacore/tm-core/internal/statetables"
)

// GeometryComparison is the four-distance result of comparing two actors'
// bounding-box and geodesic-corridor polygons.
type GeometryComparison struct {
	ReferenceToOtherGeodesic float64
	OtherToReferenceGeodesic float64
	InterGeodesicDistance    float64
	InterBBoxDistance        float64
}

// GeometryCache memoizes pairwise polygon-distance results within a single
// tick, keyed by the unordered actor-id pair. Per spec §4.2/§9, the source
// builds the larger-id branch's key from other|other instead of
// other|reference; that is a bug, not a design choice, so this
// implementation normalizes to the unordered pair "{min}|{max}" rather than
// reproducing it — see DESIGN.md for the migration note.
type GeometryCache struct {
	byPair map[string]GeometryComparison
}

func NewGeometryCache() *GeometryCache {
	return &GeometryCache{byPair: make(map[string]GeometryComparison)}
}

func pairKey(a, b model.ActorID) string {
	if a < b {
		return fmt.Sprintf("%d|%d", a, b)
	}
	return fmt.Sprintf("%d|%d", b, a)
}

// Between returns the GeometryComparison for (reference, other), computing
// and caching it on first request for the pair within this tick. On a
// cache hit queried with reference as the larger of the two ids, the two
// caller-relative geodesic distances are swapped before returning, per
// spec §4.2.
func Between(
	cache *GeometryCache,
	geodesic *boundary.Cache,
	referenceID, otherID model.ActorID,
	referenceState, otherState model.KinematicState,
	referenceAttrs, otherAttrs model.StaticAttributes,
	referenceBuffer, otherBuffer model.Buffer,
	locks *statetables.Locks,
	referenceLeadDistance, otherLeadDistance float64,
) GeometryComparison {
	key := pairKey(referenceID, otherID)
	callerIsLarger := referenceID > otherID

	// The cache always stores the comparison from the smaller-id actor's
	// point of view as "reference". On a hit, a caller whose own reference
	// is the larger id gets the two caller-relative geodesic distances
	// swapped; on a miss, the freshly computed result is already in the
	// caller's perspective and is returned as is, while the copy stored for
	// the pair is swapped when the caller is the larger id (the bug
	// described in spec §4.2/§9 is the literal cache key, not this swap
	// rule, which is preserved).
	if cached, ok := cache.byPair[key]; ok {
		if callerIsLarger {
			cached.ReferenceToOtherGeodesic, cached.OtherToReferenceGeodesic =
				cached.OtherToReferenceGeodesic, cached.ReferenceToOtherGeodesic
		}
		return cached
	}

	referencePolygon := geomx.Polygon(boundary.Corners(referenceState, referenceAttrs))
	otherPolygon := geomx.Polygon(boundary.Corners(otherState, otherAttrs))

	referenceGeodesicPolygon := geomx.Polygon(geodesic.Geodesic(
		referenceID, referenceState, referenceAttrs, referenceBuffer, referenceLeadDistance, locks))
	otherGeodesicPolygon := geomx.Polygon(geodesic.Geodesic(
		otherID, otherState, otherAttrs, otherBuffer, otherLeadDistance, locks))

	result := GeometryComparison{
		ReferenceToOtherGeodesic: geomx.Distance(referencePolygon, otherGeodesicPolygon),
		OtherToReferenceGeodesic: geomx.Distance(otherPolygon, referenceGeodesicPolygon),
		InterGeodesicDistance:    geomx.Distance(referenceGeodesicPolygon, otherGeodesicPolygon),
		InterBBoxDistance:        geomx.Distance(referencePolygon, otherPolygon),
	}

	canonical := result
	if callerIsLarger {
		canonical.ReferenceToOtherGeodesic, canonical.OtherToReferenceGeodesic =
			canonical.OtherToReferenceGeodesic, canonical.ReferenceToOtherGeodesic
	}
	cache.byPair[key] = canonical

	return result
}
