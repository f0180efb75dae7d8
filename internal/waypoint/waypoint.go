// Package waypoint provides the small set of buffer/geometry helpers that
// the localization collaborator is assumed to expose: a target-waypoint
// lookup by along-buffer distance, and heading deviation measures.
package waypoint

import (
	"math"

	"github.com/vistacore/tm-core/internal/model"
)

const epsilonThreshold = 2 * 1.1920929e-7 // 2*float32 epsilon, matches the source's NaN guard

// Target is a waypoint together with its index in the buffer it was drawn
// from.
type Target struct {
	Waypoint model.Waypoint
	Index    int
}

// GetTargetWaypoint returns the first waypoint whose along-buffer distance
// from the buffer front meets or exceeds distance, or the last waypoint if
// the buffer is exhausted first. The along-buffer distance is accumulated
// as straight-line distance between consecutive samples, which matches how
// the buffer is built upstream: closely spaced points approximate the path
// length well.
func GetTargetWaypoint(buffer model.Buffer, distance float64) Target {
	if len(buffer) == 0 {
		return Target{}
	}
	front := buffer[0].Location
	accumulated := 0.0
	prev := front
	for i, wp := range buffer {
		if i > 0 {
			accumulated += distanceBetween(prev, wp.Location)
			prev = wp.Location
		}
		if accumulated >= distance || i == len(buffer)-1 {
			return Target{Waypoint: wp, Index: i}
		}
	}
	last := buffer[len(buffer)-1]
	return Target{Waypoint: last, Index: len(buffer) - 1}
}

func distanceBetween(a, b model.Vector3) float64 {
	dx, dy, dz := a.X-b.X, a.Y-b.Y, a.Z-b.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// DistanceSquared returns the squared planar+vertical distance between two
// locations.
func DistanceSquared(a, b model.Vector3) float64 {
	dx, dy, dz := a.X-b.X, a.Y-b.Y, a.Z-b.Z
	return dx*dx + dy*dy + dz*dz
}

// UnitVector normalizes v, treating anything at or below the epsilon
// threshold as the zero vector to avoid NaNs, matching the source's guard.
func UnitVector(v model.Vector3) model.Vector3 {
	length := math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
	if length <= epsilonThreshold {
		return model.Vector3{}
	}
	return model.Vector3{X: v.X / length, Y: v.Y / length, Z: v.Z / length}
}

// Dot is the standard 3D dot product.
func Dot(a, b model.Vector3) float64 {
	return a.X*b.X + a.Y*b.Y + a.Z*b.Z
}

// Length is the Euclidean norm.
func Length(v model.Vector3) float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// LeftPerpendicular returns the unit vector perpendicular to h in the
// horizontal plane, rotated for a left-handed top-view frame: (-h.y, h.x, 0).
func LeftPerpendicular(h model.Vector3) model.Vector3 {
	return UnitVector(model.Vector3{X: -h.Y, Y: h.X, Z: 0})
}

// DeviationDotProduct is the dot product of the ego's unit heading and the
// unit direction from ego to target, in the horizontal plane.
func DeviationDotProduct(egoLocation, egoHeading, targetLocation model.Vector3) float64 {
	toTarget := UnitVector(model.Vector3{X: targetLocation.X - egoLocation.X, Y: targetLocation.Y - egoLocation.Y})
	heading := UnitVector(model.Vector3{X: egoHeading.X, Y: egoHeading.Y})
	return Dot(heading, toTarget)
}

// DeviationCrossProduct is the z-component of the cross product of the
// ego's unit heading and the unit direction from ego to target.
func DeviationCrossProduct(egoLocation, egoHeading, targetLocation model.Vector3) float64 {
	toTarget := UnitVector(model.Vector3{X: targetLocation.X - egoLocation.X, Y: targetLocation.Y - egoLocation.Y})
	heading := UnitVector(model.Vector3{X: egoHeading.X, Y: egoHeading.Y})
	return heading.X*toTarget.Y - heading.Y*toTarget.X
}
