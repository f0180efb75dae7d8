// Package snapshot provides the JSON wire format for one tick's input, in
// the same "one flat struct in, one flat struct out" shape as
// cxd309-tms-engine's SimulationInput/SimulationLog, adapted to the
// decision core's per-index snapshot tables.
package snapshot

import (
	"encoding/json"
	"fmt"

	"github.com/vistacore/tm-core/internal/model"
)

type Vector3 struct {
	X, Y, Z float64
}

func (v Vector3) toModel() model.Vector3 { return model.Vector3{X: v.X, Y: v.Y, Z: v.Z} }

type KinematicState struct {
	Location       Vector3
	Velocity       Vector3
	Forward        Vector3
	PhysicsEnabled bool
}

type StaticAttributes struct {
	ActorType  string // "vehicle" | "pedestrian" | "other"
	HalfLength float64
	HalfWidth  float64
	SpeedLimit float64
}

type TrafficLightState struct {
	AtTrafficLight bool
	State          string // "red" | "yellow" | "green" | "off" | "unknown"
}

type Waypoint struct {
	Location   Vector3
	Forward    Vector3
	IsJunction bool
}

// TickInput is the JSON document consumed by cmd/tmcore.
type TickInput struct {
	VehicleIDList []uint32                     `json:"vehicle_id_list"`
	States        map[string]KinematicState    `json:"states"`
	Attributes    map[string]StaticAttributes  `json:"attributes"`
	TrafficLights map[string]TrafficLightState `json:"traffic_lights"`
	Buffers       map[string][]Waypoint        `json:"buffers"`
	Overlaps      map[string][]uint32          `json:"overlaps"`
	TLHazards     []bool                       `json:"tl_hazards"`
}

// trackTraffic adapts the parsed Overlaps map to model.TrackTraffic.
type trackTraffic struct {
	overlaps map[model.ActorID][]model.ActorID
}

func (t trackTraffic) GetOverlappingVehicles(ego model.ActorID) []model.ActorID {
	return t.overlaps[ego]
}

// Parsed is the TickInput converted into the core's internal model types.
type Parsed struct {
	VehicleIDList []model.ActorID
	States        map[model.ActorID]model.KinematicState
	Attributes    map[model.ActorID]model.StaticAttributes
	TrafficLights map[model.ActorID]model.TrafficLightState
	Buffers       map[model.ActorID]model.Buffer
	TrackTraffic  model.TrackTraffic
	TLHazards     []bool
}

func actorType(s string) model.ActorType {
	switch s {
	case "vehicle":
		return model.ActorVehicle
	case "pedestrian":
		return model.ActorPedestrian
	default:
		return model.ActorOther
	}
}

func tlState(s string) model.TLState {
	switch s {
	case "red":
		return model.TLRed
	case "yellow":
		return model.TLYellow
	case "green":
		return model.TLGreen
	case "off":
		return model.TLOff
	default:
		return model.TLUnknown
	}
}

// Parse converts the JSON-decoded input into the core's internal types.
func Parse(in TickInput) (Parsed, error) {
	out := Parsed{
		VehicleIDList: make([]model.ActorID, len(in.VehicleIDList)),
		States:        make(map[model.ActorID]model.KinematicState, len(in.States)),
		Attributes:    make(map[model.ActorID]model.StaticAttributes, len(in.Attributes)),
		TrafficLights: make(map[model.ActorID]model.TrafficLightState, len(in.TrafficLights)),
		Buffers:       make(map[model.ActorID]model.Buffer, len(in.Buffers)),
		TLHazards:     in.TLHazards,
	}
	for i, id := range in.VehicleIDList {
		out.VehicleIDList[i] = model.ActorID(id)
	}

	for idStr, s := range in.States {
		id, err := parseID(idStr)
		if err != nil {
			return Parsed{}, err
		}
		out.States[id] = model.KinematicState{
			Location:       s.Location.toModel(),
			Velocity:       s.Velocity.toModel(),
			Rotation:       model.Rotation{ForwardVector: s.Forward.toModel()},
			PhysicsEnabled: s.PhysicsEnabled,
		}
	}

	for idStr, a := range in.Attributes {
		id, err := parseID(idStr)
		if err != nil {
			return Parsed{}, err
		}
		out.Attributes[id] = model.StaticAttributes{
			ActorType:  actorType(a.ActorType),
			HalfLength: a.HalfLength,
			HalfWidth:  a.HalfWidth,
			SpeedLimit: a.SpeedLimit,
		}
	}

	for idStr, tl := range in.TrafficLights {
		id, err := parseID(idStr)
		if err != nil {
			return Parsed{}, err
		}
		out.TrafficLights[id] = model.TrafficLightState{
			AtTrafficLight: tl.AtTrafficLight,
			State:          tlState(tl.State),
		}
	}

	for idStr, wps := range in.Buffers {
		id, err := parseID(idStr)
		if err != nil {
			return Parsed{}, err
		}
		buf := make(model.Buffer, len(wps))
		for i, wp := range wps {
			buf[i] = model.Waypoint{
				Location:      wp.Location.toModel(),
				ForwardVector: wp.Forward.toModel(),
				IsJunction:    wp.IsJunction,
			}
		}
		out.Buffers[id] = buf
	}

	overlaps := make(map[model.ActorID][]model.ActorID, len(in.Overlaps))
	for idStr, others := range in.Overlaps {
		id, err := parseID(idStr)
		if err != nil {
			return Parsed{}, err
		}
		converted := make([]model.ActorID, len(others))
		for i, o := range others {
			converted[i] = model.ActorID(o)
		}
		overlaps[id] = converted
	}
	out.TrackTraffic = trackTraffic{overlaps: overlaps}

	return out, nil
}

func parseID(s string) (model.ActorID, error) {
	var id uint32
	if _, err := fmt.Sscanf(s, "%d", &id); err != nil {
		return 0, fmt.Errorf("snapshot: invalid actor id %q: %w", s, err)
	}
	return model.ActorID(id), nil
}

// DecodeTickInput decodes a TickInput from raw JSON.
func DecodeTickInput(data []byte) (TickInput, error) {
	var in TickInput
	if err := json.Unmarshal(data, &in); err != nil {
		return TickInput{}, fmt.Errorf("snapshot: decoding tick input: %w", err)
	}
	return in, nil
}
