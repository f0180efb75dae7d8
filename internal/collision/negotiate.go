package collision

import (
	"math"

	"github.com/vistacore/tm-core/internal/boundary"
	"github.com/vistacore/tm-core/internal/model"
	"github.com/vistacore/tm-core/internal/statetables"
	"github.com/vistacore/tm-core/internal/tmconst"
	"github.com/vistacore/tm-core/internal/waypoint"
)

// NegotiateCollision decides whether referenceID must stop and wait for
// otherID to pass, returning the hazard flag and the remaining clear
// distance margin. On hazard it updates the collision-lock table for
// referenceID; on no hazard it releases any existing lock for referenceID.
//
// other_heading is deliberately computed from the reference vehicle's own
// forward vector rather than the other actor's, matching
// CollisionAvoidance.h's NegotiateCollision exactly. This is almost
// certainly a bug in the original, but it is load-bearing for the observed
// angular-priority behavior — see DESIGN.md and negotiate_test.go's
// dedicated fixture.
func NegotiateCollision(
	referenceID, otherID model.ActorID,
	geometryCache *GeometryCache,
	geodesicCache *boundary.Cache,
	locks *statetables.Locks,
	referenceState, otherState model.KinematicState,
	referenceAttrs, otherAttrs model.StaticAttributes,
	referenceTL model.TrafficLightState,
	referenceBuffer, otherBuffer model.Buffer,
	referenceLookAheadIndex int,
	referenceLeadDistance, otherLeadDistance float64,
) (hazard bool, availableDistanceMargin float64) {
	availableDistanceMargin = math.Inf(1)

	referenceLocation := referenceState.Location
	otherLocation := otherState.Location

	referenceHeading := referenceState.Rotation.ForwardVector
	referenceToOther := waypoint.UnitVector(otherLocation.Sub(referenceLocation))

	// See the doc comment above: this intentionally reuses the reference's
	// own forward vector instead of otherState.Rotation.ForwardVector.
	otherHeading := referenceState.Rotation.ForwardVector
	otherToReference := waypoint.UnitVector(referenceLocation.Sub(otherLocation))

	referenceVehicleLength := referenceAttrs.HalfLength * tmconst.SquareRootOfTwo
	otherVehicleLength := otherAttrs.HalfLength * tmconst.SquareRootOfTwo

	interVehicleDistance := waypoint.DistanceSquared(referenceLocation, otherLocation)
	egoBoundingBoxExtension := boundary.Extension(referenceID, referenceState, locks)
	otherBoundingBoxExtension := boundary.Extension(otherID, otherState, locks)

	interVehicleLength := referenceVehicleLength + otherVehicleLength
	egoDetectionRange := square(egoBoundingBoxExtension + interVehicleLength)
	crossDetectionRange := square(egoBoundingBoxExtension + interVehicleLength + otherBoundingBoxExtension)

	otherVehicleInEgoRange := interVehicleDistance < egoDetectionRange
	otherVehicleInCrossRange := interVehicleDistance < crossDetectionRange
	otherVehicleInFront := waypoint.Dot(referenceHeading, referenceToOther) > 0

	if len(referenceBuffer) == 0 || referenceLookAheadIndex >= len(referenceBuffer) {
		releaseLockIfPresent(locks, referenceID)
		return false, math.Inf(1)
	}

	closestPoint := referenceBuffer[0]
	egoInsideJunction := closestPoint.IsJunction
	egoAtTrafficLight := referenceTL.AtTrafficLight
	egoStoppedByLight := referenceTL.State != model.TLGreen
	lookAheadPoint := referenceBuffer[referenceLookAheadIndex]
	egoAtJunctionEntrance := !closestPoint.IsJunction && lookAheadPoint.IsJunction

	if !(egoAtJunctionEntrance && egoAtTrafficLight && egoStoppedByLight) &&
		((egoInsideJunction && otherVehicleInCrossRange) ||
			(!egoInsideJunction && otherVehicleInFront && otherVehicleInEgoRange)) {

		geometry := Between(
			geometryCache, geodesicCache,
			referenceID, otherID,
			referenceState, otherState,
			referenceAttrs, otherAttrs,
			referenceBuffer, otherBuffer,
			locks,
			referenceLeadDistance, otherLeadDistance,
		)

		geodesicPathBBoxTouching := geometry.InterGeodesicDistance < 0.1
		vehicleBBoxTouching := geometry.InterBBoxDistance < 0.1
		egoPathClear := geometry.OtherToReferenceGeodesic > 0.1
		otherPathClear := geometry.ReferenceToOtherGeodesic > 0.1
		egoPathPriority := geometry.ReferenceToOtherGeodesic < geometry.OtherToReferenceGeodesic
		egoAngularPriority := waypoint.Dot(referenceHeading, referenceToOther) < waypoint.Dot(otherHeading, otherToReference)

		if geodesicPathBBoxTouching &&
			((!vehicleBBoxTouching && (!egoPathClear || (egoPathClear && otherPathClear && !egoAngularPriority && !egoPathPriority))) ||
				(vehicleBBoxTouching && !egoAngularPriority && !egoPathPriority)) {

			hazard = true

			specificDistanceMargin := maxf(referenceLeadDistance, tmconst.BoundaryExtensionMinimum)
			availableDistanceMargin = maxf(geometry.ReferenceToOtherGeodesic-specificDistanceMargin, 0)

			updateLock(locks, referenceID, otherID, geometry)
		}
	}

	if !hazard {
		releaseLockIfPresent(locks, referenceID)
	}

	return hazard, availableDistanceMargin
}

func updateLock(locks *statetables.Locks, referenceID, otherID model.ActorID, geometry GeometryComparison) {
	lock, ok := locks.Get(referenceID)
	switch {
	case ok && lock.LeadVehicleID == otherID:
		if geometry.OtherToReferenceGeodesic < 0.1 {
			lock.DistanceToLead = geometry.InterBBoxDistance
		} else {
			lock.DistanceToLead = geometry.ReferenceToOtherGeodesic
		}
		locks.Set(referenceID, lock)
	default:
		locks.Set(referenceID, model.CollisionLock{
			LeadVehicleID:       otherID,
			InitialLockDistance: geometry.InterBBoxDistance,
			DistanceToLead:      geometry.InterBBoxDistance,
		})
	}
}

func releaseLockIfPresent(locks *statetables.Locks, referenceID model.ActorID) {
	if _, ok := locks.Get(referenceID); ok {
		locks.Delete(referenceID)
	}
}

func square(v float64) float64 { return v * v }

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
