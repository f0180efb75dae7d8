// Package params implements the model.Parameters registry over a layered
// configuration loaded with github.com/spf13/viper, grounded on the
// teacher's internal/config.Load (viper.SetDefault calls followed by a
// merged config file). Unlike the teacher's single global settings object,
// this registry also supports per-actor overrides loaded from the same
// file under an "actors" key.
package params

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/vistacore/tm-core/internal/model"
)

// Override is one actor's overridden values; any zero-value/absent field
// falls back to the global default.
type Override struct {
	DistanceToLeadingVehicle *float64               `mapstructure:"distance_to_leading_vehicle"`
	PercentageIgnoreVehicles *float64               `mapstructure:"percentage_ignore_vehicles"`
	PercentageIgnoreWalkers  *float64               `mapstructure:"percentage_ignore_walkers"`
	VehicleTargetVelocity    *float64               `mapstructure:"vehicle_target_velocity"`
	CollisionDetection       map[string]bool        `mapstructure:"collision_detection"`
	PIDParameters            *model.PIDParameterSet `mapstructure:"pid"`
}

// Registry is the file-backed, per-actor-override-aware model.Parameters
// implementation.
type Registry struct {
	v          *viper.Viper
	overrides  map[model.ActorID]Override
	defaultPID model.PIDParameterSet
}

// Load reads defaults and an optional config file from configDir, following
// the teacher's SetDefault-then-merge pattern.
func Load(configDir string) (*Registry, error) {
	v := viper.New()

	v.SetDefault("distance_to_leading_vehicle", 5.0)
	v.SetDefault("collision_detection", true)
	v.SetDefault("percentage_ignore_vehicles", 0.0)
	v.SetDefault("percentage_ignore_walkers", 0.0)
	v.SetDefault("vehicle_target_velocity_factor", 1.0) // multiplies speed_limit
	v.SetDefault("synchronous_mode", true)
	v.SetDefault("actors", map[string]any{})

	v.SetDefault("pid.urban_longitudinal", map[string]any{"kp": 0.8, "kd": 0.05, "ki": 0.05, "integral_clamp": 50.0})
	v.SetDefault("pid.highway_longitudinal", map[string]any{"kp": 1.0, "kd": 0.02, "ki": 0.02, "integral_clamp": 50.0})
	v.SetDefault("pid.urban_lateral", map[string]any{"kp": 0.9, "kd": 0.0, "ki": 0.02, "integral_clamp": 10.0})
	v.SetDefault("pid.highway_lateral", map[string]any{"kp": 0.75, "kd": 0.0, "ki": 0.01, "integral_clamp": 10.0})

	v.SetConfigName("tm_core.cfg")
	v.SetConfigType("json")
	if configDir != "" {
		v.AddConfigPath(configDir)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return nil, fmt.Errorf("params: reading config: %w", err)
		}
	}

	overrides := make(map[model.ActorID]Override)
	var raw map[string]Override
	if err := v.UnmarshalKey("actors", &raw); err == nil {
		for idStr, o := range raw {
			var id uint32
			if _, err := fmt.Sscanf(idStr, "%d", &id); err == nil {
				overrides[model.ActorID(id)] = o
			}
		}
	}

	defaultPID := model.PIDParameterSet{
		UrbanLongitudinal:   unmarshalPID(v, "pid.urban_longitudinal"),
		HighwayLongitudinal: unmarshalPID(v, "pid.highway_longitudinal"),
		UrbanLateral:        unmarshalPID(v, "pid.urban_lateral"),
		HighwayLateral:      unmarshalPID(v, "pid.highway_lateral"),
	}

	return &Registry{v: v, overrides: overrides, defaultPID: defaultPID}, nil
}

func unmarshalPID(v *viper.Viper, key string) model.PIDParameters {
	var params model.PIDParameters
	_ = v.UnmarshalKey(key, &params)
	return params
}

func (r *Registry) GetDistanceToLeadingVehicle(ego model.ActorID) float64 {
	if o, ok := r.overrides[ego]; ok && o.DistanceToLeadingVehicle != nil {
		return *o.DistanceToLeadingVehicle
	}
	return r.v.GetFloat64("distance_to_leading_vehicle")
}

func (r *Registry) GetCollisionDetection(ego, other model.ActorID) bool {
	if o, ok := r.overrides[ego]; ok && o.CollisionDetection != nil {
		if enabled, ok := o.CollisionDetection[fmt.Sprintf("%d", other)]; ok {
			return enabled
		}
	}
	return r.v.GetBool("collision_detection")
}

func (r *Registry) GetPercentageIgnoreVehicles(ego model.ActorID) float64 {
	if o, ok := r.overrides[ego]; ok && o.PercentageIgnoreVehicles != nil {
		return *o.PercentageIgnoreVehicles
	}
	return r.v.GetFloat64("percentage_ignore_vehicles")
}

func (r *Registry) GetPercentageIgnoreWalkers(ego model.ActorID) float64 {
	if o, ok := r.overrides[ego]; ok && o.PercentageIgnoreWalkers != nil {
		return *o.PercentageIgnoreWalkers
	}
	return r.v.GetFloat64("percentage_ignore_walkers")
}

func (r *Registry) GetVehicleTargetVelocity(ego model.ActorID, speedLimit float64) float64 {
	if o, ok := r.overrides[ego]; ok && o.VehicleTargetVelocity != nil {
		return *o.VehicleTargetVelocity
	}
	return speedLimit * r.v.GetFloat64("vehicle_target_velocity_factor")
}

func (r *Registry) GetSynchronousMode() bool {
	return r.v.GetBool("synchronous_mode")
}

// GetPIDParameters returns the four (Kp, Kd, Ki) vectors to drive the PID
// Controller with for ego, falling back to the config-file/default vectors
// when no per-actor override is present.
func (r *Registry) GetPIDParameters(ego model.ActorID) model.PIDParameterSet {
	if o, ok := r.overrides[ego]; ok && o.PIDParameters != nil {
		return *o.PIDParameters
	}
	return r.defaultPID
}

var _ model.Parameters = (*Registry)(nil)
