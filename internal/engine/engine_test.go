package engine

import (
	"sort"
	"testing"

	"github.com/vistacore/tm-core/internal/collision"
	"github.com/vistacore/tm-core/internal/model"
)

type fakeParameters struct{}

func (fakeParameters) GetDistanceToLeadingVehicle(model.ActorID) float64       { return 5 }
func (fakeParameters) GetCollisionDetection(model.ActorID, model.ActorID) bool { return true }
func (fakeParameters) GetPercentageIgnoreVehicles(model.ActorID) float64       { return 0 }
func (fakeParameters) GetPercentageIgnoreWalkers(model.ActorID) float64        { return 0 }
func (fakeParameters) GetVehicleTargetVelocity(_ model.ActorID, speedLimit float64) float64 {
	return speedLimit
}
func (fakeParameters) GetSynchronousMode() bool { return true }
func (fakeParameters) GetPIDParameters(model.ActorID) model.PIDParameterSet {
	return model.PIDParameterSet{
		UrbanLongitudinal:   model.PIDParameters{Kp: 0.8, Kd: 0.05, Ki: 0.05},
		HighwayLongitudinal: model.PIDParameters{Kp: 1.0, Kd: 0.02, Ki: 0.02},
		UrbanLateral:        model.PIDParameters{Kp: 0.9, Kd: 0, Ki: 0.02},
		HighwayLateral:      model.PIDParameters{Kp: 0.75, Kd: 0, Ki: 0.01},
	}
}

func TestPartition_CoversEveryIndexExactlyOnce(t *testing.T) {
	for _, n := range []int{0, 1, 2, 3, 7, 16, 17} {
		for _, workers := range []int{1, 2, 3, 4, 8} {
			seen := make([]int, n)
			for _, shard := range partition(n, workers) {
				for i := shard.start; i < shard.end; i++ {
					seen[i]++
				}
			}
			for i, count := range seen {
				if count != 1 {
					t.Fatalf("n=%d workers=%d: index %d visited %d times", n, workers, i, count)
				}
			}
		}
	}
}

func TestPartition_ShardsAreContiguousAndOrdered(t *testing.T) {
	shards := partition(10, 3)
	prevEnd := 0
	for _, shard := range shards {
		if shard.start != prevEnd {
			t.Fatalf("expected contiguous shards, got gap before %d", shard.start)
		}
		prevEnd = shard.end
	}
	if prevEnd != 10 {
		t.Fatalf("expected shards to cover up to 10, got %d", prevEnd)
	}
}

func buildSnapshot(n int) collision.Snapshot {
	ids := make([]model.ActorID, n)
	states := make(map[model.ActorID]model.KinematicState, n)
	attrs := make(map[model.ActorID]model.StaticAttributes, n)
	tls := make(map[model.ActorID]model.TrafficLightState, n)
	buffers := make(map[model.ActorID]model.Buffer, n)

	for i := 0; i < n; i++ {
		id := model.ActorID(i + 1)
		ids[i] = id
		states[id] = model.KinematicState{
			Location: model.Vector3{X: float64(i) * 100},
			Rotation: model.Rotation{ForwardVector: model.Vector3{X: 1}},
		}
		attrs[id] = model.StaticAttributes{ActorType: model.ActorVehicle, HalfLength: 2, HalfWidth: 1, SpeedLimit: 50}
		tls[id] = model.TrafficLightState{}
		buffers[id] = model.Buffer{
			{Location: model.Vector3{X: float64(i) * 100}, ForwardVector: model.Vector3{X: 1}},
			{Location: model.Vector3{X: float64(i)*100 + 10}, ForwardVector: model.Vector3{X: 1}},
		}
	}

	return collision.Snapshot{
		VehicleIDList: ids,
		States:        states,
		Attributes:    attrs,
		TrafficLights: tls,
		Buffers:       buffers,
		TrackTraffic:  nil,
	}
}

func TestTick_ProducesOneOutputPerIndex(t *testing.T) {
	state := NewState()
	e := New(state, Workers(4))

	n := 9
	out := e.Tick(TickInput{
		Snapshot:   buildSnapshot(n),
		Parameters: fakeParameters{},
	})

	if len(out.CollisionFrame) != n || len(out.ControlFrame) != n {
		t.Fatalf("expected %d entries in each frame, got %d/%d", n, len(out.CollisionFrame), len(out.ControlFrame))
	}
	for i, cmd := range out.ControlFrame {
		if cmd.ActorID == 0 {
			t.Fatalf("index %d: command has zero actor id, stage may not have run for it", i)
		}
	}
}

func TestTick_EmptySnapshotReturnsEmptyFrames(t *testing.T) {
	state := NewState()
	e := New(state, Workers(2))

	out := e.Tick(TickInput{Snapshot: collision.Snapshot{}, Parameters: fakeParameters{}})

	if len(out.CollisionFrame) != 0 || len(out.ControlFrame) != 0 {
		t.Fatalf("expected empty frames for empty snapshot, got %d/%d", len(out.CollisionFrame), len(out.ControlFrame))
	}
}

func TestTick_IsDeterministicInIndexAssignment(t *testing.T) {
	// Run twice and make sure the set of actor ids that received commands is
	// identical both times, i.e. no index is silently skipped by the
	// worker partitioning across repeated ticks.
	n := 5
	var firstIDs, secondIDs []model.ActorID

	state := NewState()
	e := New(state, Workers(3))
	snapshot := buildSnapshot(n)

	for pass := 0; pass < 2; pass++ {
		out := e.Tick(TickInput{Snapshot: snapshot, Parameters: fakeParameters{}})
		var ids []model.ActorID
		for _, cmd := range out.ControlFrame {
			ids = append(ids, cmd.ActorID)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		if pass == 0 {
			firstIDs = ids
		} else {
			secondIDs = ids
		}
	}

	if len(firstIDs) != len(secondIDs) {
		t.Fatalf("expected same number of commands across ticks, got %d vs %d", len(firstIDs), len(secondIDs))
	}
	for i := range firstIDs {
		if firstIDs[i] != secondIDs[i] {
			t.Fatalf("actor id set differs across ticks at %d: %v vs %v", i, firstIDs[i], secondIDs[i])
		}
	}
}
