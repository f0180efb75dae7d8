// Package tmconst carries the tuning constants referenced throughout the
// collision avoidance and motion planning stages. Values match the ranges
// implied by spec's constants registry; they are implementation-tunable but
// expected to stay stable across deployments.
package tmconst

import "math"

const (
	CosTenDegrees      = 0.984807753012208
	SquareRootOfTwo    = math.Sqrt2
	EpsilonRelativeSpeed = 0.2 // m/s

	MaxCollisionRadius        = 50.0 // m
	VerticalOverlapThreshold  = 4.0  // m
	BoundaryExtensionRate     = 0.85
	BoundaryExtensionMinimum  = 2.5 // m
	LockingDistancePadding    = 4.5 // m
	MaxLockingExtension       = 10.0 // m
	WalkerTimeExtension       = 1.5 // s

	JunctionLookAhead          = 5.0 // m
	TargetWaypointTimeHorizon  = 1.0 // s
	TargetWaypointHorizonLength = 5.0 // m

	HighwaySpeed = 50.0 / 3.6 // m/s, ~50 km/h

	HybridModeDT = 0.05 // s

	FollowDistanceRate    = 0.4
	MinFollowLeadDistance = 5.0 // m
	RelativeApproachSpeed = 2.0 // m/s
	CriticalBrakingMargin = 2.0 // m

	MaxThrottle = 1.0
	MaxBrake    = 1.0
)
