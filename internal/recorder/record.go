// Package recorder persists each tick's collision/control output for
// later replay and audit, grounded on the teacher's internal/storage
// Backend interface and its GORM-backed sqlite/postgres implementations.
// Unlike the teacher's mission-recording schema (soldiers, vehicles,
// markers, combat events), the schema here is purpose-built for the
// decision core: one row per (tick, actor).
package recorder

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/vistacore/tm-core/internal/model"
)

// TickRecord is the denormalized, storage-facing view of one actor's
// collision + control output for one tick.
type TickRecord struct {
	ID        uint      `gorm:"primarykey"`
	Tick      uint64     `gorm:"index"`
	ActorID   uint32     `gorm:"index"`
	Timestamp time.Time  `gorm:"index"`

	Hazard                  bool
	HazardActorID           uint32
	AvailableDistanceMargin float64

	CommandKind int
	Throttle    float64
	Brake       float64
	Steer       float64

	LocationX, LocationY, LocationZ float64 // world-frame location

	// GeoLongitude/GeoLatitude are the EPSG:4326 projection of LocationX/Y,
	// populated only when a projector is configured; see WithGeoProjection.
	GeoLongitude float64
	GeoLatitude  float64
}

func (TickRecord) TableName() string { return "tick_records" }

// Projector converts a world-frame (x, y) pair to a (longitude, latitude)
// pair. The internal/geoexport package provides the wgs84-backed
// implementation used in production.
type Projector func(x, y float64) (longitude, latitude float64, err error)

// Backend persists tick records to a SQL database via GORM.
type Backend struct {
	db        *gorm.DB
	projector Projector
}

// Option configures a Backend.
type Option func(*Backend)

// WithGeoProjection attaches a coordinate projector used to populate
// GeoLongitude/GeoLatitude on every recorded row.
func WithGeoProjection(p Projector) Option {
	return func(b *Backend) { b.projector = p }
}

// NewBackend wraps an already-connected *gorm.DB (sqlite via
// github.com/glebarez/sqlite, or postgres via gorm.io/driver/postgres) and
// migrates the tick_records schema.
func NewBackend(db *gorm.DB, opts ...Option) (*Backend, error) {
	if err := db.AutoMigrate(&TickRecord{}); err != nil {
		return nil, err
	}
	b := &Backend{db: db}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// RecordTick persists one tick's collision/control frames for every actor
// in vehicleIDList.
func (b *Backend) RecordTick(ctx context.Context, tick uint64, at time.Time, vehicleIDList []model.ActorID, collisionFrame []model.CollisionHazardData, controlFrame []model.Command, locations map[model.ActorID]model.Vector3) error {
	rows := make([]TickRecord, 0, len(vehicleIDList))
	for i, actorID := range vehicleIDList {
		hazard := collisionFrame[i]
		cmd := controlFrame[i]
		loc := locations[actorID]

		row := TickRecord{
			Tick:                    tick,
			ActorID:                 uint32(actorID),
			Timestamp:               at,
			Hazard:                  hazard.Hazard,
			HazardActorID:           uint32(hazard.HazardActorID),
			AvailableDistanceMargin: hazard.AvailableDistanceMargin,
			CommandKind:             int(cmd.Kind),
			Throttle:                cmd.Control.Throttle,
			Brake:                   cmd.Control.Brake,
			Steer:                   cmd.Control.Steer,
			LocationX:               loc.X,
			LocationY:               loc.Y,
			LocationZ:               loc.Z,
		}

		if b.projector != nil {
			if lon, lat, err := b.projector(loc.X, loc.Y); err == nil {
				row.GeoLongitude = lon
				row.GeoLatitude = lat
			}
		}

		rows = append(rows, row)
	}

	if len(rows) == 0 {
		return nil
	}
	return b.db.WithContext(ctx).Create(&rows).Error
}
