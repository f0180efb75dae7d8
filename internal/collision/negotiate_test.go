package collision

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vistacore/tm-core/internal/boundary"
	"github.com/vistacore/tm-core/internal/model"
	"github.com/vistacore/tm-core/internal/statetables"
)

// TestNegotiateCollision_OtherHeadingIgnoresOtherActorRotation is a dedicated
// fixture proving that NegotiateCollision's angular-priority term is
// computed from the reference vehicle's own forward vector rather than the
// other actor's, exactly as CollisionAvoidance.h does. If this bug were ever
// "fixed" to use otherState.Rotation.ForwardVector, varying the other
// actor's heading below would change the hazard/margin outcome; preserving
// the bug means it must not.
func TestNegotiateCollision_OtherHeadingIgnoresOtherActorRotation(t *testing.T) {
	referenceID := model.ActorID(1)
	otherID := model.ActorID(2)

	referenceAttrs := model.StaticAttributes{ActorType: model.ActorVehicle, HalfLength: 2, HalfWidth: 1}
	otherAttrs := referenceAttrs

	referenceState := model.KinematicState{
		Location: model.Vector3{X: 0},
		Rotation: model.Rotation{ForwardVector: model.Vector3{X: 1}},
	}
	referenceBuffer := model.Buffer{
		{IsJunction: false},
		{IsJunction: false},
	}

	headings := []model.Vector3{
		{X: 1},  // facing same direction as reference
		{X: -1}, // facing against the reference's heading
		{Y: 1},  // facing perpendicular
		{Y: -1},
		// Facing straight back at the reference: with the other actor's own
		// heading, this would give the other the angular priority and clear
		// the hazard.
		{X: -math.Sqrt2 / 2, Y: -math.Sqrt2 / 2},
	}

	var results []struct {
		hazard bool
		margin float64
	}

	for _, heading := range headings {
		otherState := model.KinematicState{
			// Close enough to overlap bounding boxes, and off the reference's
			// axis so the reference-to-other direction is not its heading.
			Location: model.Vector3{X: 1, Y: 1},
			Rotation: model.Rotation{ForwardVector: heading},
		}

		locks := statetables.NewLocks()
		geometryCache := NewGeometryCache()
		geodesicCache := boundary.NewCache()

		hazard, margin := NegotiateCollision(
			referenceID, otherID,
			geometryCache, geodesicCache, locks,
			referenceState, otherState,
			referenceAttrs, otherAttrs,
			model.TrafficLightState{},
			referenceBuffer, nil,
			1,
			0, 0,
		)

		results = append(results, struct {
			hazard bool
			margin float64
		}{hazard, margin})
	}

	for i := 1; i < len(results); i++ {
		require.Equal(t, results[0].hazard, results[i].hazard,
			"hazard outcome changed when only the other actor's heading changed")
		require.InDelta(t, results[0].margin, results[i].margin, 1e-9,
			"margin changed when only the other actor's heading changed")
	}
}

func TestNegotiateCollision_NoHazardReleasesLock(t *testing.T) {
	locks := statetables.NewLocks()
	referenceID := model.ActorID(1)
	otherID := model.ActorID(2)

	locks.Set(referenceID, model.CollisionLock{LeadVehicleID: otherID})

	referenceAttrs := model.StaticAttributes{ActorType: model.ActorVehicle, HalfLength: 2, HalfWidth: 1}
	referenceState := model.KinematicState{
		Location: model.Vector3{X: 0},
		Rotation: model.Rotation{ForwardVector: model.Vector3{X: 1}},
	}
	otherState := model.KinematicState{
		Location: model.Vector3{X: 1000}, // far away, outside any detection range
		Rotation: model.Rotation{ForwardVector: model.Vector3{X: 1}},
	}

	geometryCache := NewGeometryCache()
	geodesicCache := boundary.NewCache()

	hazard, margin := NegotiateCollision(
		referenceID, otherID,
		geometryCache, geodesicCache, locks,
		referenceState, otherState,
		referenceAttrs, referenceAttrs,
		model.TrafficLightState{},
		model.Buffer{{IsJunction: false}, {IsJunction: false}}, nil,
		1,
		0, 0,
	)

	require.False(t, hazard)
	require.True(t, margin > 0)
	_, ok := locks.Get(referenceID)
	require.False(t, ok, "lock should be released when no hazard is detected")
}

func TestNegotiateCollision_EmptyBufferReleasesLockAndReturnsNoHazard(t *testing.T) {
	locks := statetables.NewLocks()
	referenceID := model.ActorID(1)
	otherID := model.ActorID(2)
	locks.Set(referenceID, model.CollisionLock{LeadVehicleID: otherID})

	attrs := model.StaticAttributes{ActorType: model.ActorVehicle, HalfLength: 2, HalfWidth: 1}
	state := model.KinematicState{Rotation: model.Rotation{ForwardVector: model.Vector3{X: 1}}}

	geometryCache := NewGeometryCache()
	geodesicCache := boundary.NewCache()

	hazard, margin := NegotiateCollision(
		referenceID, otherID,
		geometryCache, geodesicCache, locks,
		state, state,
		attrs, attrs,
		model.TrafficLightState{},
		nil, nil,
		0,
		0, 0,
	)

	require.False(t, hazard)
	require.Equal(t, margin, margin) // +Inf, compared structurally below
	require.True(t, margin > 1e300)
	_, ok := locks.Get(referenceID)
	require.False(t, ok)
}
