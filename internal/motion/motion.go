// Package motion implements the Motion Planner from spec §4.6, grounded
// directly on MotionPlan.h.
package motion

import (
	"time"

	"github.com/vistacore/tm-core/internal/model"
	"github.com/vistacore/tm-core/internal/pid"
	"github.com/vistacore/tm-core/internal/statetables"
	"github.com/vistacore/tm-core/internal/tmconst"
	"github.com/vistacore/tm-core/internal/waypoint"
)

// PIDParameterSet bundles the four PID parameter vectors (urban/highway x
// longitudinal/lateral) selected by speed regime. It is sourced from the
// Parameter Registry (model.Parameters.GetPIDParameters), not hardcoded by
// callers.
type PIDParameterSet = model.PIDParameterSet

// Now is overridable for deterministic tests.
var Now = time.Now

// Plan runs the Motion Planner for one vehicle index, updating pidStates
// and teleportInstants for the ego actor and returning the resulting
// command.
func Plan(
	egoID model.ActorID,
	state model.KinematicState,
	attrs model.StaticAttributes,
	buf model.Buffer,
	parameters model.Parameters,
	pidParams PIDParameterSet,
	hazard model.CollisionHazardData,
	otherState model.KinematicState,
	hasOther bool,
	tlHazard bool,
	pidStates *statetables.PIDStates,
	teleports *statetables.Teleports,
) model.Command {
	egoLocation := state.Location
	egoVelocity := state.Velocity
	egoSpeed := waypoint.Length(egoVelocity)
	egoHeading := state.Rotation.ForwardVector

	if len(buf) == 0 {
		// Guard per the defensive error-handling policy: an empty buffer
		// means there is nothing to steer toward this tick, so stay put
		// rather than risk steering off a zero-value waypoint.
		return model.Command{
			ActorID:   egoID,
			Kind:      model.CommandApplyTransform,
			Transform: model.Transform{Location: egoLocation, Rotation: state.Rotation},
		}
	}

	targetPointDistance := maxf(egoSpeed*tmconst.TargetWaypointTimeHorizon, tmconst.TargetWaypointHorizonLength)
	targetWP := waypoint.GetTargetWaypoint(buf, targetPointDistance)
	targetLocation := targetWP.Waypoint.Location

	dot := waypoint.DeviationDotProduct(egoLocation, egoHeading, targetLocation)
	cross := waypoint.DeviationCrossProduct(egoLocation, egoHeading, targetLocation)
	dot = 1.0 - dot
	if cross < 0 {
		dot *= -1
	}
	currentDeviation := dot

	now := Now()
	previousState, ok := pidStates.Get(egoID)
	if !ok {
		previousState = model.PIDState{TimeInstant: now}
		pidStates.Set(egoID, previousState)
	}

	longitudinalParams, lateralParams := pidParams.UrbanLongitudinal, pidParams.UrbanLateral
	if egoSpeed > tmconst.HighwaySpeed {
		longitudinalParams, lateralParams = pidParams.HighwayLongitudinal, pidParams.HighwayLateral
	}

	maxTargetVelocity := parameters.GetVehicleTargetVelocity(egoID, attrs.SpeedLimit) / 3.6
	dynamicTargetVelocity := maxTargetVelocity

	collisionEmergencyStop := false
	if hazard.Hazard && hasOther {
		relativeSpeed := waypoint.Length(egoVelocity.Sub(otherState.Velocity))
		otherAlongHeading := waypoint.Dot(otherState.Velocity, egoHeading)
		margin := hazard.AvailableDistanceMargin

		if relativeSpeed > tmconst.EpsilonRelativeSpeed {
			followLeadDistance := relativeSpeed*tmconst.FollowDistanceRate + tmconst.MinFollowLeadDistance
			switch {
			case margin > followLeadDistance:
				dynamicTargetVelocity = otherAlongHeading + tmconst.RelativeApproachSpeed
			case margin > tmconst.CriticalBrakingMargin:
				dynamicTargetVelocity = maxf(otherAlongHeading, tmconst.RelativeApproachSpeed)
			default:
				collisionEmergencyStop = true
			}
		}
		if margin < tmconst.CriticalBrakingMargin {
			collisionEmergencyStop = true
		}
	}

	dynamicTargetVelocity = minf(maxTargetVelocity, dynamicTargetVelocity)
	emergencyStop := tlHazard || collisionEmergencyStop

	var currentState model.PIDState
	cmd := model.Command{ActorID: egoID}

	if state.PhysicsEnabled {
		currentState = pid.StateUpdate(previousState, egoSpeed, dynamicTargetVelocity, currentDeviation, longitudinalParams, lateralParams, now)
		actuation := pid.RunStep(currentState, previousState, longitudinalParams, lateralParams, egoSpeed, dynamicTargetVelocity, currentDeviation)

		if emergencyStop {
			currentState.DeviationIntegral = 0
			currentState.VelocityIntegral = 0
			actuation.Throttle = 0
			actuation.Brake = 1
			// actuation.Steer intentionally left as computed: the source
			// never touches steer in the emergency-stop override.
		}

		cmd.Kind = model.CommandApplyVehicleControl
		cmd.Control = model.VehicleControl{Throttle: actuation.Throttle, Brake: actuation.Brake, Steer: actuation.Steer}
	} else {
		currentState = model.PIDState{TimeInstant: now}

		inserted := teleports.Insert(egoID, model.TeleportInstant{TimeInstant: now})
		elapsed := now.Sub(inserted.TimeInstant).Seconds()

		var transform model.Transform
		if !emergencyStop && (parameters.GetSynchronousMode() || elapsed > tmconst.HybridModeDT) {
			targetDisplacement := dynamicTargetVelocity * tmconst.HybridModeDT
			teleportTarget := waypoint.GetTargetWaypoint(buf, targetDisplacement)

			baseDisplacement := distance(teleportTarget.Waypoint.Location, egoLocation)
			missingDisplacement := 0.0
			if baseDisplacement < targetDisplacement {
				missingDisplacement = targetDisplacement - baseDisplacement
			}

			heading := teleportTarget.Waypoint.ForwardVector
			location := teleportTarget.Waypoint.Location.Add(heading.Scale(missingDisplacement))
			transform = model.Transform{Location: location, Rotation: model.Rotation{ForwardVector: heading}}
		} else {
			transform = model.Transform{Location: egoLocation, Rotation: state.Rotation}
		}

		cmd.Kind = model.CommandApplyTransform
		cmd.Transform = transform
	}

	pidStates.Set(egoID, currentState)

	return cmd
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func distance(a, b model.Vector3) float64 {
	return waypoint.Length(a.Sub(b))
}
