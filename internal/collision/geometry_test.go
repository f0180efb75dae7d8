package collision

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vistacore/tm-core/internal/boundary"
	"github.com/vistacore/tm-core/internal/model"
	"github.com/vistacore/tm-core/internal/statetables"
)

func vehicleState(x float64) model.KinematicState {
	return model.KinematicState{
		Location: model.Vector3{X: x},
		Rotation: model.Rotation{ForwardVector: model.Vector3{X: 1}},
	}
}

func vehicleAttrs() model.StaticAttributes {
	return model.StaticAttributes{ActorType: model.ActorVehicle, HalfLength: 2, HalfWidth: 1}
}

func TestBetween_SymmetricAcrossPerspectives(t *testing.T) {
	locks := statetables.NewLocks()

	attrs := vehicleAttrs()
	stateA := vehicleState(0)
	stateB := vehicleState(10)

	// Two independent caches so the order of the two Between calls below
	// doesn't itself determine which perspective is a cache hit.
	cacheAB := NewGeometryCache()
	geodesicAB := boundary.NewCache()
	fromA := Between(cacheAB, geodesicAB, 1, 2, stateA, stateB, attrs, attrs, nil, nil, locks, 0, 0)

	cacheBA := NewGeometryCache()
	geodesicBA := boundary.NewCache()
	fromB := Between(cacheBA, geodesicBA, 2, 1, stateB, stateA, attrs, attrs, nil, nil, locks, 0, 0)

	require.InDelta(t, fromA.ReferenceToOtherGeodesic, fromB.OtherToReferenceGeodesic, 1e-9)
	require.InDelta(t, fromA.OtherToReferenceGeodesic, fromB.ReferenceToOtherGeodesic, 1e-9)
	require.InDelta(t, fromA.InterGeodesicDistance, fromB.InterGeodesicDistance, 1e-9)
	require.InDelta(t, fromA.InterBBoxDistance, fromB.InterBBoxDistance, 1e-9)
}

func TestBetween_CacheHitMatchesMissAcrossBothPerspectives(t *testing.T) {
	locks := statetables.NewLocks()
	attrs := vehicleAttrs()
	stateA := vehicleState(0)
	stateB := vehicleState(10)

	cache := NewGeometryCache()
	geodesic := boundary.NewCache()

	// First call misses and populates the cache from the small-id
	// perspective (1 < 2).
	firstMiss := Between(cache, geodesic, 1, 2, stateA, stateB, attrs, attrs, nil, nil, locks, 0, 0)

	// Second call, same pair but reference/other swapped, must hit the
	// cache and return the mirrored view.
	secondHit := Between(cache, geodesic, 2, 1, stateB, stateA, attrs, attrs, nil, nil, locks, 0, 0)

	require.InDelta(t, firstMiss.ReferenceToOtherGeodesic, secondHit.OtherToReferenceGeodesic, 1e-9)
	require.InDelta(t, firstMiss.OtherToReferenceGeodesic, secondHit.ReferenceToOtherGeodesic, 1e-9)

	// A third call repeating the very first perspective must also hit the
	// cache and reproduce the original values exactly.
	thirdHit := Between(cache, geodesic, 1, 2, stateA, stateB, attrs, attrs, nil, nil, locks, 0, 0)
	require.Equal(t, firstMiss, thirdHit)
}

func TestPairKey_Unordered(t *testing.T) {
	require.Equal(t, pairKey(1, 2), pairKey(2, 1))
	require.NotEqual(t, pairKey(1, 2), pairKey(1, 3))
}
