package collision

import (
	"math"
	"math/rand"
	"sort"

	"github.com/vistacore/tm-core/internal/boundary"
	"github.com/vistacore/tm-core/internal/model"
	"github.com/vistacore/tm-core/internal/statetables"
	"github.com/vistacore/tm-core/internal/tmconst"
	"github.com/vistacore/tm-core/internal/waypoint"
)

// Snapshot bundles the read-only per-tick tables the driver needs, mirroring
// CollisionAvoidance's parameter list.
type Snapshot struct {
	VehicleIDList []model.ActorID
	States        map[model.ActorID]model.KinematicState
	Attributes    map[model.ActorID]model.StaticAttributes
	TrafficLights map[model.ActorID]model.TrafficLightState
	Buffers       map[model.ActorID]model.Buffer
	TrackTraffic  model.TrackTraffic
}

// Avoid runs the Collision Avoidance Driver for vehicle index, returning the
// hazard data for that index. rng must be single-goroutine-owned (see
// internal/engine: one *rand.Rand per worker).
func Avoid(
	index int,
	snapshot Snapshot,
	parameters model.Parameters,
	locks *statetables.Locks,
	rng *rand.Rand,
) model.CollisionHazardData {
	egoID := snapshot.VehicleIDList[index]

	egoState, hasState := snapshot.States[egoID]
	egoAttrs, hasAttrs := snapshot.Attributes[egoID]
	if !hasState || !hasAttrs {
		return model.CollisionHazardData{Hazard: false, HazardActorID: 0, AvailableDistanceMargin: math.Inf(1)}
	}

	egoBuffer := snapshot.Buffers[egoID]
	lookAhead := waypoint.GetTargetWaypoint(egoBuffer, tmconst.JunctionLookAhead)

	var candidateIDs []model.ActorID
	if snapshot.TrackTraffic != nil {
		radiusSquare := tmconst.MaxCollisionRadius * tmconst.MaxCollisionRadius
		for _, otherID := range snapshot.TrackTraffic.GetOverlappingVehicles(egoID) {
			if otherID == egoID {
				continue
			}
			otherState, ok := snapshot.States[otherID]
			if !ok {
				continue
			}
			if waypoint.DistanceSquared(otherState.Location, egoState.Location) < radiusSquare &&
				math.Abs(egoState.Location.Z-otherState.Location.Z) < tmconst.VerticalOverlapThreshold {
				candidateIDs = append(candidateIDs, otherID)
			}
		}
	}

	sort.SliceStable(candidateIDs, func(i, j int) bool {
		a := snapshot.States[candidateIDs[i]].Location
		b := snapshot.States[candidateIDs[j]].Location
		return waypoint.DistanceSquared(egoState.Location, a) < waypoint.DistanceSquared(egoState.Location, b)
	})

	referenceLeadDistance := parameters.GetDistanceToLeadingVehicle(egoID)

	geometryCache := NewGeometryCache()
	geodesicCache := boundary.NewCache()

	result := model.CollisionHazardData{Hazard: false, HazardActorID: 0, AvailableDistanceMargin: math.Inf(1)}

	for _, otherID := range candidateIDs {
		if result.Hazard {
			break
		}

		otherAttrs, hasOtherAttrs := snapshot.Attributes[otherID]
		otherState, hasOtherState := snapshot.States[otherID]
		egoTL, hasEgoTL := snapshot.TrafficLights[egoID]
		otherBuffer, hasOtherBuffer := snapshot.Buffers[otherID]
		_, hasEgoBuffer := snapshot.Buffers[egoID]

		if !parameters.GetCollisionDetection(egoID, otherID) ||
			!hasEgoTL || !hasEgoBuffer || !hasOtherBuffer || !hasOtherAttrs || !hasOtherState {
			continue
		}

		otherLeadDistance := parameters.GetDistanceToLeadingVehicle(otherID)

		hazard, margin := NegotiateCollision(
			egoID, otherID,
			geometryCache, geodesicCache, locks,
			egoState, otherState,
			egoAttrs, otherAttrs,
			egoTL,
			egoBuffer, otherBuffer,
			lookAhead.Index,
			referenceLeadDistance, otherLeadDistance,
		)

		if !hazard {
			continue
		}

		sample := float64(rng.Intn(101))
		confirmed := (otherAttrs.ActorType == model.ActorVehicle && parameters.GetPercentageIgnoreVehicles(egoID) <= sample) ||
			(otherAttrs.ActorType == model.ActorPedestrian && parameters.GetPercentageIgnoreWalkers(egoID) <= sample)

		if confirmed {
			result = model.CollisionHazardData{Hazard: true, HazardActorID: otherID, AvailableDistanceMargin: margin}
		}
	}

	return result
}
