// Package boundary computes an actor's oriented bounding box and its
// extrapolated geodesic corridor along the upcoming waypoint buffer,
// grounded directly on CollisionAvoidance.h's GetBoundingBoxExtention,
// GetBoundary and GetGeodesicBoundary.
package boundary

import (
	"github.com/vistacore/tm-core/internal/model"
	"github.com/vistacore/tm-core/internal/statetables"
	"github.com/vistacore/tm-core/internal/tmconst"
	"github.com/vistacore/tm-core/internal/waypoint"
)

// Extension returns the speed-dependent bounding-box extension for actor,
// overridden by any active collision lock per spec §4.1.
func Extension(actorID model.ActorID, state model.KinematicState, locks *statetables.Locks) float64 {
	velocity := waypoint.Dot(state.Velocity, state.Rotation.ForwardVector)
	extension := tmconst.BoundaryExtensionRate*velocity + tmconst.BoundaryExtensionMinimum

	if lock, ok := locks.Get(actorID); ok {
		lockBoundaryLength := lock.DistanceToLead + tmconst.LockingDistancePadding
		if (lockBoundaryLength - lock.InitialLockDistance) < tmconst.MaxLockingExtension {
			extension = lockBoundaryLength
		}
	}
	return extension
}

// Corners returns the four corners of an actor's oriented bounding box in
// clockwise order (left-handed top view): (+h,-p), (-h,-p), (-h,+p), (+h,+p).
// Pedestrians are grown by their own predicted travel distance.
func Corners(state model.KinematicState, attrs model.StaticAttributes) []model.Vector3 {
	heading := state.Rotation.ForwardVector

	forwardExtension := 0.0
	if attrs.ActorType == model.ActorPedestrian {
		forwardExtension = waypoint.Length(state.Velocity) * tmconst.WalkerTimeExtension
	}

	x := attrs.HalfLength + forwardExtension
	y := attrs.HalfWidth + forwardExtension

	xVec := heading.Scale(x)
	perp := waypoint.LeftPerpendicular(heading)
	yVec := perp.Scale(y)

	loc := state.Location
	return []model.Vector3{
		loc.Add(xVec).Sub(yVec),
		loc.Sub(xVec).Sub(yVec),
		loc.Sub(xVec).Add(yVec),
		loc.Add(xVec).Add(yVec),
	}
}

// Cache memoizes the geodesic boundary for an actor within a single tick,
// keyed by actor id. It must be constructed fresh per ego evaluation.
type Cache struct {
	byActor map[model.ActorID][]model.Vector3
}

func NewCache() *Cache {
	return &Cache{byActor: make(map[model.ActorID][]model.Vector3)}
}

// Geodesic returns the extrapolated corridor polygon points for actorID,
// caching the result for the remainder of the tick. For pedestrians/other
// actors, or for an empty waypoint buffer, it degrades to the plain
// bounding box per spec §7.
func (c *Cache) Geodesic(
	actorID model.ActorID,
	state model.KinematicState,
	attrs model.StaticAttributes,
	buf model.Buffer,
	specificLeadDistance float64,
	locks *statetables.Locks,
) []model.Vector3 {
	if cached, ok := c.byActor[actorID]; ok {
		return cached
	}

	bbox := Corners(state, attrs)

	if attrs.ActorType != model.ActorVehicle || len(buf) == 0 {
		c.byActor[actorID] = bbox
		return bbox
	}

	width := attrs.HalfWidth
	length := attrs.HalfLength

	extension := Extension(actorID, state, locks)
	extension = max(specificLeadDistance, extension)
	extensionSquare := extension * extension

	start := waypoint.GetTargetWaypoint(buf, length)

	var left, right []model.Vector3
	var boundaryEnd *model.Waypoint
	current := buf[start.Index]
	reached := false

	for j := start.Index; !reached && j < len(buf); j++ {
		if waypoint.DistanceSquared(start.Waypoint.Location, current.Location) > extensionSquare || j == len(buf)-1 {
			reached = true
		}

		if boundaryEnd == nil ||
			waypoint.Dot(boundaryEnd.ForwardVector, current.ForwardVector) < tmconst.CosTenDegrees ||
			reached {

			heading := current.ForwardVector
			loc := current.Location
			perp := waypoint.LeftPerpendicular(heading).Scale(width)
			left = append(left, loc.Add(perp))
			right = append(right, loc.Sub(perp))

			be := current
			boundaryEnd = &be
		}

		// Preserves the source's one-ahead read: current is advanced to
		// buffer[j] after the predicate for the previous current has been
		// evaluated, so the first iteration effectively re-reads the start
		// waypoint before moving on.
		current = buf[j]
	}

	reverseInPlace(right)

	geodesic := make([]model.Vector3, 0, len(right)+len(bbox)+len(left))
	geodesic = append(geodesic, right...)
	geodesic = append(geodesic, bbox...)
	geodesic = append(geodesic, left...)

	c.byActor[actorID] = geodesic
	return geodesic
}

func reverseInPlace(s []model.Vector3) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}

func max(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
