// Package engine runs one tick of the decision core across every managed
// vehicle index: Collision Avoidance for all indices, then Motion Planning
// for all indices, with a barrier between the two stages.
//
// The two-stage, barrier-separated shape is grounded on
// cxd309-tms-engine's engine.step() (a "safety pass" then a "motion pass"
// per tick); the worker partitioning and per-tick logging/metrics wiring
// are grounded on the teacher's internal/worker.Manager and
// internal/dispatcher.Dispatcher, adapted from a named-event dispatch table
// to a disjoint index-range fan-out.
package engine

import (
	"log/slog"
	"math/rand"
	"runtime"
	"sync"
	"time"

	"github.com/vistacore/tm-core/internal/collision"
	"github.com/vistacore/tm-core/internal/model"
	"github.com/vistacore/tm-core/internal/motion"
	"github.com/vistacore/tm-core/internal/statetables"
	"github.com/vistacore/tm-core/internal/telemetry"
)

// TrafficLightFrame is the per-index traffic-light hazard flag produced by
// the (out of scope) traffic-light stage.
type TrafficLightFrame []bool

// State owns the three tables that persist across ticks. A State is safe
// to reuse for many consecutive ticks and must not be shared between two
// concurrently running ticks.
type State struct {
	Locks     *statetables.Locks
	PIDStates *statetables.PIDStates
	Teleports *statetables.Teleports
}

// NewState constructs an empty, ready-to-use persistent state set.
func NewState() *State {
	return &State{
		Locks:     statetables.NewLocks(),
		PIDStates: statetables.NewPIDStates(),
		Teleports: statetables.NewTeleports(),
	}
}

// TickInput bundles one tick's read-only snapshot and collaborator outputs.
type TickInput struct {
	Snapshot     collision.Snapshot
	Parameters   model.Parameters
	TrafficLight TrafficLightFrame
}

// TickOutput is the per-index collision/control result of one tick.
type TickOutput struct {
	CollisionFrame []model.CollisionHazardData
	ControlFrame   []model.Command
}

// Engine partitions vehicle indices across a worker pool and evaluates the
// two bulk-synchronous stages for one tick at a time.
type Engine struct {
	state   *State
	workers int
	logger  *slog.Logger
	metrics *telemetry.Metrics
}

// Option configures an Engine.
type Option func(*Engine)

// Workers overrides the worker count; it defaults to runtime.GOMAXPROCS(0).
func Workers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// Logger attaches a structured logger for per-tick diagnostics.
func Logger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// Metrics attaches an OpenTelemetry instrument set for tick telemetry.
func Metrics(m *telemetry.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// New builds an Engine around the given persistent state, which it owns for
// the Engine's lifetime.
func New(state *State, opts ...Option) *Engine {
	e := &Engine{
		state:   state,
		workers: runtime.GOMAXPROCS(0),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Tick runs CollisionAvoidance for every index, waits for all workers to
// finish, then runs MotionPlan for every index.
func (e *Engine) Tick(in TickInput) TickOutput {
	start := time.Now()
	n := len(in.Snapshot.VehicleIDList)

	out := TickOutput{
		CollisionFrame: make([]model.CollisionHazardData, n),
		ControlFrame:   make([]model.Command, n),
	}
	if n == 0 {
		return out
	}

	shards := partition(n, e.workers)

	var wg sync.WaitGroup
	for _, shard := range shards {
		wg.Add(1)
		go func(shard indexRange) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(time.Now().UnixNano() ^ int64(shard.start)))
			for i := shard.start; i < shard.end; i++ {
				out.CollisionFrame[i] = collision.Avoid(i, in.Snapshot, in.Parameters, e.state.Locks, rng)
			}
		}(shard)
	}
	wg.Wait()

	var hazardCount, emergencyCount int
	var mu sync.Mutex

	for _, shard := range shards {
		wg.Add(1)
		go func(shard indexRange) {
			defer wg.Done()
			localHazards, localEmergency := 0, 0
			for i := shard.start; i < shard.end; i++ {
				egoID := in.Snapshot.VehicleIDList[i]
				hazard := out.CollisionFrame[i]

				var tlHazard bool
				if i < len(in.TrafficLight) {
					tlHazard = in.TrafficLight[i]
				}

				otherState, hasOther := in.Snapshot.States[hazard.HazardActorID]
				if hazard.Hazard {
					localHazards++
				}

				cmd := motion.Plan(
					egoID,
					in.Snapshot.States[egoID],
					in.Snapshot.Attributes[egoID],
					in.Snapshot.Buffers[egoID],
					in.Parameters,
					in.Parameters.GetPIDParameters(egoID),
					hazard,
					otherState,
					hasOther && hazard.Hazard,
					tlHazard,
					e.state.PIDStates,
					e.state.Teleports,
				)
				out.ControlFrame[i] = cmd
				if cmd.Kind == model.CommandApplyVehicleControl && cmd.Control.Brake == 1 && cmd.Control.Throttle == 0 {
					localEmergency++
				}
			}
			mu.Lock()
			hazardCount += localHazards
			emergencyCount += localEmergency
			mu.Unlock()
		}(shard)
	}
	wg.Wait()

	duration := time.Since(start)
	if e.logger != nil {
		e.logger.Debug("tick complete",
			"vehicle_count", n,
			"hazard_count", hazardCount,
			"emergency_stop_count", emergencyCount,
			"duration", duration,
		)
	}
	if e.metrics != nil {
		e.metrics.RecordTick(duration, n, hazardCount, emergencyCount, e.state.Locks.Len())
	}

	return out
}

type indexRange struct{ start, end int }

// partition splits [0, n) into up to workers contiguous, disjoint shards.
func partition(n, workers int) []indexRange {
	if n <= 0 {
		return nil
	}
	if workers < 1 {
		workers = 1
	}
	if workers > n {
		workers = n
	}
	base := n / workers
	remainder := n % workers

	shards := make([]indexRange, 0, workers)
	start := 0
	for i := 0; i < workers; i++ {
		size := base
		if i < remainder {
			size++
		}
		if size == 0 {
			continue
		}
		shards = append(shards, indexRange{start: start, end: start + size})
		start += size
	}
	return shards
}
