package motion

import (
	"testing"
	"time"

	"github.com/vistacore/tm-core/internal/model"
	"github.com/vistacore/tm-core/internal/statetables"
)

type fakeParameters struct {
	targetVelocity float64
	synchronous    bool
}

func (f fakeParameters) GetDistanceToLeadingVehicle(model.ActorID) float64         { return 5 }
func (f fakeParameters) GetCollisionDetection(model.ActorID, model.ActorID) bool   { return true }
func (f fakeParameters) GetPercentageIgnoreVehicles(model.ActorID) float64         { return 0 }
func (f fakeParameters) GetPercentageIgnoreWalkers(model.ActorID) float64          { return 0 }
func (f fakeParameters) GetVehicleTargetVelocity(_ model.ActorID, _ float64) float64 {
	return f.targetVelocity
}
func (f fakeParameters) GetSynchronousMode() bool { return f.synchronous }
func (f fakeParameters) GetPIDParameters(model.ActorID) model.PIDParameterSet {
	return model.PIDParameterSet{}
}

func straightBuffer() model.Buffer {
	return model.Buffer{
		{Location: model.Vector3{X: 0}, ForwardVector: model.Vector3{X: 1}},
		{Location: model.Vector3{X: 5}, ForwardVector: model.Vector3{X: 1}},
		{Location: model.Vector3{X: 10}, ForwardVector: model.Vector3{X: 1}},
		{Location: model.Vector3{X: 20}, ForwardVector: model.Vector3{X: 1}},
	}
}

func straightState(speed float64, physics bool) model.KinematicState {
	return model.KinematicState{
		Location:       model.Vector3{X: 0},
		Velocity:       model.Vector3{X: speed},
		Rotation:       model.Rotation{ForwardVector: model.Vector3{X: 1}},
		PhysicsEnabled: physics,
	}
}

func defaultPIDParams() PIDParameterSet {
	p := model.PIDParameters{Kp: 0.8, Kd: 0.05, Ki: 0.05, IntegralClamp: 100}
	return PIDParameterSet{UrbanLongitudinal: p, HighwayLongitudinal: p, UrbanLateral: p, HighwayLateral: p}
}

func TestPlan_EmptyBufferStaysStationary(t *testing.T) {
	pidStates := statetables.NewPIDStates()
	teleports := statetables.NewTeleports()

	cmd := Plan(1, straightState(10, true), model.StaticAttributes{SpeedLimit: 50}, nil,
		fakeParameters{targetVelocity: 36}, defaultPIDParams(),
		model.CollisionHazardData{}, model.KinematicState{}, false, false,
		pidStates, teleports)

	if cmd.Kind != model.CommandApplyTransform {
		t.Fatalf("expected transform command for empty buffer, got %v", cmd.Kind)
	}
	if cmd.Transform.Location != (model.Vector3{X: 0}) {
		t.Fatalf("expected stationary transform at current location, got %+v", cmd.Transform.Location)
	}
}

func TestPlan_EmergencyStopZeroesIntegralsButLeavesSteer(t *testing.T) {
	pidStates := statetables.NewPIDStates()
	teleports := statetables.NewTeleports()

	start := time.Now()
	pidStates.Set(1, model.PIDState{TimeInstant: start, VelocityIntegral: 99, DeviationIntegral: 99})

	restore := Now
	Now = func() time.Time { return start.Add(100 * time.Millisecond) }
	defer func() { Now = restore }()

	params := model.PIDParameters{Kp: 0, Kd: 0, Ki: 100, IntegralClamp: 100}
	pidParams := PIDParameterSet{UrbanLongitudinal: params, HighwayLongitudinal: params, UrbanLateral: params, HighwayLateral: params}

	hazard := model.CollisionHazardData{Hazard: true, HazardActorID: 2, AvailableDistanceMargin: 0.1}
	other := model.KinematicState{Velocity: model.Vector3{X: 0}}

	cmd := Plan(1, straightState(20, true), model.StaticAttributes{SpeedLimit: 50}, straightBuffer(),
		fakeParameters{targetVelocity: 36}, pidParams,
		hazard, other, true, false,
		pidStates, teleports)

	if cmd.Kind != model.CommandApplyVehicleControl {
		t.Fatalf("expected vehicle control command, got %v", cmd.Kind)
	}
	if cmd.Control.Throttle != 0 {
		t.Fatalf("expected throttle forced to 0 on emergency stop, got %f", cmd.Control.Throttle)
	}
	if cmd.Control.Brake != 1 {
		t.Fatalf("expected brake forced to 1 on emergency stop, got %f", cmd.Control.Brake)
	}

	st, _ := pidStates.Get(1)
	if st.VelocityIntegral != 0 || st.DeviationIntegral != 0 {
		t.Fatalf("expected integrals zeroed on emergency stop, got %+v", st)
	}

	// The source never touches steer in the emergency-stop override: with
	// Ki=100 and a 99-wide deviation integral carried in from the previous
	// tick, the raw lateral term saturates the [-1, 1] clamp before the
	// emergency branch runs, so steer must survive as 1, not be zeroed.
	if cmd.Control.Steer != 1 {
		t.Fatalf("expected steer to survive emergency stop at its clamped value of 1, got %f", cmd.Control.Steer)
	}
}

func TestPlan_TrafficLightHazardForcesEmergencyStop(t *testing.T) {
	pidStates := statetables.NewPIDStates()
	teleports := statetables.NewTeleports()

	cmd := Plan(1, straightState(10, true), model.StaticAttributes{SpeedLimit: 50}, straightBuffer(),
		fakeParameters{targetVelocity: 36}, defaultPIDParams(),
		model.CollisionHazardData{}, model.KinematicState{}, false, true,
		pidStates, teleports)

	if cmd.Control.Brake != 1 || cmd.Control.Throttle != 0 {
		t.Fatalf("expected forced brake for traffic-light hazard, got %+v", cmd.Control)
	}
}

func TestPlan_TeleportPathInsertsOnceNeverUpdates(t *testing.T) {
	pidStates := statetables.NewPIDStates()
	teleports := statetables.NewTeleports()

	start := time.Now()
	restore := Now
	Now = func() time.Time { return start }
	defer func() { Now = restore }()

	state := straightState(0, false)

	_ = Plan(1, state, model.StaticAttributes{SpeedLimit: 50}, straightBuffer(),
		fakeParameters{targetVelocity: 36, synchronous: true}, defaultPIDParams(),
		model.CollisionHazardData{}, model.KinematicState{}, false, false,
		pidStates, teleports)

	first, ok := teleports.Get(1)
	if !ok {
		t.Fatal("expected teleport instant to be inserted")
	}
	if !first.TimeInstant.Equal(start) {
		t.Fatalf("expected first insert to record %v, got %v", start, first.TimeInstant)
	}

	Now = func() time.Time { return start.Add(5 * time.Second) }
	_ = Plan(1, state, model.StaticAttributes{SpeedLimit: 50}, straightBuffer(),
		fakeParameters{targetVelocity: 36, synchronous: true}, defaultPIDParams(),
		model.CollisionHazardData{}, model.KinematicState{}, false, false,
		pidStates, teleports)

	second, _ := teleports.Get(1)
	if !second.TimeInstant.Equal(start) {
		t.Fatalf("expected teleport instant to remain unchanged at %v, got %v", start, second.TimeInstant)
	}
}

func TestPlan_TeleportNonPhysicsProducesTransformCommand(t *testing.T) {
	pidStates := statetables.NewPIDStates()
	teleports := statetables.NewTeleports()

	cmd := Plan(1, straightState(10, false), model.StaticAttributes{SpeedLimit: 50}, straightBuffer(),
		fakeParameters{targetVelocity: 36, synchronous: true}, defaultPIDParams(),
		model.CollisionHazardData{}, model.KinematicState{}, false, false,
		pidStates, teleports)

	if cmd.Kind != model.CommandApplyTransform {
		t.Fatalf("expected transform command for non-physics actor, got %v", cmd.Kind)
	}
}
