// Package pid implements the longitudinal/lateral PID controller from spec
// §4.5, grounded on the MotionPlan.h PID::StateUpdate/PID::RunStep calls.
package pid

import (
	"math"
	"time"

	"github.com/vistacore/tm-core/internal/model"
	"github.com/vistacore/tm-core/internal/tmconst"
)

// StateUpdate advances previous to a new PIDState given the current speed,
// target velocity, lateral deviation and timestamp. If dt is zero or
// negative (clock skew), the integrals are left unchanged this tick.
// longitudinal.IntegralClamp/lateral.IntegralClamp bound the velocity/
// deviation integrals to a symmetric, finite range, preventing windup
// across a long run of ticks.
func StateUpdate(previous model.PIDState, speed, targetVelocity, deviation float64, longitudinal, lateral model.PIDParameters, now time.Time) model.PIDState {
	dt := now.Sub(previous.TimeInstant).Seconds()

	velocityIntegral := previous.VelocityIntegral
	deviationIntegral := previous.DeviationIntegral

	if dt > 0 {
		velocityError := targetVelocity - speed
		velocityIntegral = clampSymmetric(velocityIntegral+velocityError*dt, longitudinal.IntegralClamp)
		deviationIntegral = clampSymmetric(deviationIntegral+deviation*dt, lateral.IntegralClamp)
	}

	return model.PIDState{
		VelocityIntegral:  velocityIntegral,
		DeviationIntegral: deviationIntegral,
		TimeInstant:       now,
		PreviousDeviation: deviation,
		PreviousVelocity:  speed,
	}
}

// Actuation is the PID controller's raw throttle/brake/steer output.
type Actuation struct {
	Throttle, Brake, Steer float64
}

// RunStep computes actuation from current/previous state and the
// longitudinal/lateral parameter vectors, each (Kp, Kd, Ki).
func RunStep(current, previous model.PIDState, longitudinal, lateral model.PIDParameters, speed, targetVelocity, deviation float64) Actuation {
	dt := current.TimeInstant.Sub(previous.TimeInstant).Seconds()

	velocityError := targetVelocity - speed
	previousVelocityError := targetVelocity - previous.PreviousVelocity

	longDerivative := 0.0
	if dt > 0 {
		longDerivative = (velocityError - previousVelocityError) / dt
	}
	rawThrottle := longitudinal.Kp*velocityError + longitudinal.Ki*current.VelocityIntegral + longitudinal.Kd*longDerivative

	var throttle, brake float64
	if rawThrottle >= 0 {
		throttle = clamp(rawThrottle, 0, tmconst.MaxThrottle)
		brake = 0
	} else {
		throttle = 0
		brake = clamp(-rawThrottle, 0, tmconst.MaxBrake)
	}

	latDerivative := 0.0
	if dt > 0 {
		latDerivative = (deviation - previous.PreviousDeviation) / dt
	}
	rawSteer := lateral.Kp*deviation + lateral.Ki*current.DeviationIntegral + lateral.Kd*latDerivative
	steer := clamp(rawSteer, -1, 1)

	return Actuation{Throttle: throttle, Brake: brake, Steer: steer}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// clampSymmetric clamps v to [-bound, bound]. bound is taken by absolute
// value so a sign error in configuration can't silently invert the range.
func clampSymmetric(v, bound float64) float64 {
	bound = math.Abs(bound)
	return clamp(v, -bound, bound)
}
