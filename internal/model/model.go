// Package model holds the per-tick snapshot and persistent-state types shared
// by the collision avoidance and motion planning stages.
package model

import "time"

// ActorID identifies a managed vehicle or a nearby obstacle actor.
type ActorID uint32

// ActorType classifies an actor for boundary-geometry purposes.
type ActorType int

const (
	ActorVehicle ActorType = iota
	ActorPedestrian
	ActorOther
)

// TLState is the signal phase of a traffic light, as seen by an actor.
type TLState int

const (
	TLRed TLState = iota
	TLYellow
	TLGreen
	TLOff
	TLUnknown
)

// Vector3 is a plain Cartesian vector/point in the simulation's world frame.
type Vector3 struct {
	X, Y, Z float64
}

func (v Vector3) Add(o Vector3) Vector3 { return Vector3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }
func (v Vector3) Sub(o Vector3) Vector3 { return Vector3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }
func (v Vector3) Scale(s float64) Vector3 { return Vector3{v.X * s, v.Y * s, v.Z * s} }

// Rotation is reduced to the one quantity the core actually consumes: the
// forward unit vector. Callers of the snapshot derive it from whatever
// orientation representation their own pipeline keeps (yaw/pitch/roll,
// quaternion, ...); the core never inspects anything but ForwardVector.
type Rotation struct {
	ForwardVector Vector3
}

// KinematicState is the per-tick, read-only snapshot of one actor's motion.
type KinematicState struct {
	Location       Vector3
	Velocity       Vector3
	Rotation       Rotation
	PhysicsEnabled bool
}

// StaticAttributes is the per-tick, read-only snapshot of one actor's shape
// and regulatory limits.
type StaticAttributes struct {
	ActorType  ActorType
	HalfLength float64
	HalfWidth  float64
	SpeedLimit float64 // km/h
}

// TrafficLightState is the per-tick signal visible to one ego actor.
type TrafficLightState struct {
	AtTrafficLight bool
	State          TLState
}

// Waypoint is one sample of an actor's upcoming path.
type Waypoint struct {
	Location      Vector3
	ForwardVector Vector3
	IsJunction    bool
}

// Buffer is an ordered sequence of upcoming waypoints for one actor, nearest
// first. It is supplied fresh each tick by the localization collaborator.
type Buffer []Waypoint

// CollisionLock is the per-ego memory of the currently tracked lead actor,
// used to smooth boundary-extension hysteresis so a lead is not "lost"
// between ticks. It is only present while the most recent tick found a
// hazard for this ego.
type CollisionLock struct {
	LeadVehicleID       ActorID
	InitialLockDistance float64
	DistanceToLead      float64
}

// PIDState is the longitudinal/lateral controller's persistent state for one
// ego, carried across ticks.
type PIDState struct {
	VelocityIntegral  float64
	DeviationIntegral float64
	TimeInstant       time.Time
	PreviousDeviation float64
	PreviousVelocity  float64
}

// TeleportInstant records when a physics-less actor's teleport clock last
// started, keyed by actor id.
type TeleportInstant struct {
	TimeInstant time.Time
}

// CollisionHazardData is the Collision Avoidance stage's per-index output.
type CollisionHazardData struct {
	Hazard                  bool
	HazardActorID           ActorID
	AvailableDistanceMargin float64
}

// CommandKind tags which variant of Command is populated.
type CommandKind int

const (
	CommandApplyVehicleControl CommandKind = iota
	CommandApplyTransform
)

// VehicleControl is a throttle/brake/steer actuation signal.
type VehicleControl struct {
	Throttle float64
	Brake    float64
	Steer    float64
}

// Transform is a location+rotation pose, used for the non-physics teleport
// path.
type Transform struct {
	Location Vector3
	Rotation Rotation
}

// Command is the Motion Planner's per-index output: either a control signal
// for a physics-enabled actor, or a teleport transform for one that isn't.
type Command struct {
	Kind      CommandKind
	Control   VehicleControl
	Transform Transform
	ActorID   ActorID
}

// PIDParameters is a (Kp, Kd, Ki) tuple selected by speed regime, plus the
// symmetric, finite range its integral term is clamped to each tick (spec
// §4.5: "actual clamp range is parameter-driven but must be symmetric and
// finite").
type PIDParameters struct {
	Kp float64 `mapstructure:"kp"`
	Kd float64 `mapstructure:"kd"`
	Ki float64 `mapstructure:"ki"`

	// IntegralClamp bounds the accumulated integral to [-IntegralClamp,
	// IntegralClamp]; see internal/pid.StateUpdate.
	IntegralClamp float64 `mapstructure:"integral_clamp"`
}

// Parameters is the per-actor configuration registry the core reads from.
// The concrete, file-backed implementation lives in internal/params.
type Parameters interface {
	GetDistanceToLeadingVehicle(ego ActorID) float64
	GetCollisionDetection(ego, other ActorID) bool
	GetPercentageIgnoreVehicles(ego ActorID) float64
	GetPercentageIgnoreWalkers(ego ActorID) float64
	GetVehicleTargetVelocity(ego ActorID, speedLimit float64) float64
	GetSynchronousMode() bool

	// GetPIDParameters returns the four (Kp, Kd, Ki) vectors the PID
	// Controller selects between by speed regime: urban/highway x
	// longitudinal/lateral. Per spec §4.5/§6, these are tunable through the
	// same registry as the other getters, not hardcoded by a caller.
	GetPIDParameters(ego ActorID) PIDParameterSet
}

// PIDParameterSet bundles the four PID parameter vectors a Parameters
// implementation hands back for one ego actor. The mapstructure tags match
// internal/params's "pid.*" viper keys so the same struct can be decoded
// both out of the default vectors and out of a per-actor override.
type PIDParameterSet struct {
	UrbanLongitudinal   PIDParameters `mapstructure:"urban_longitudinal"`
	HighwayLongitudinal PIDParameters `mapstructure:"highway_longitudinal"`
	UrbanLateral        PIDParameters `mapstructure:"urban_lateral"`
	HighwayLateral      PIDParameters `mapstructure:"highway_lateral"`
}

// TrackTraffic answers which nearby actors share an overlapping corridor
// with a given ego, as maintained by the localization collaborator.
type TrackTraffic interface {
	GetOverlappingVehicles(ego ActorID) []ActorID
}
