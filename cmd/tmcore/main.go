// Command tmcore reads a tick snapshot as JSON from a file argument (or
// stdin), runs one tick through the decision core, and writes the
// resulting collision/control frames as JSON to stdout. Grounded on
// cxd309-tms-engine's cmd/cli (read file-or-stdin, run, print JSON).
//
// Logging and telemetry are always wired, per the ambient-stack policy:
// the engine logs through internal/logging.Manager's logger and reports
// through internal/telemetry regardless of what else is enabled.
// Persistence (internal/recorder, internal/database, internal/influx,
// internal/geoexport) is optional and flag-gated, since a one-shot CLI
// invocation has nowhere durable to put a sqlite/influx file unless the
// caller asks for one.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/vistacore/tm-core/internal/collision"
	"github.com/vistacore/tm-core/internal/database"
	"github.com/vistacore/tm-core/internal/engine"
	"github.com/vistacore/tm-core/internal/geoexport"
	"github.com/vistacore/tm-core/internal/influx"
	"github.com/vistacore/tm-core/internal/logging"
	"github.com/vistacore/tm-core/internal/model"
	"github.com/vistacore/tm-core/internal/params"
	"github.com/vistacore/tm-core/internal/recorder"
	"github.com/vistacore/tm-core/internal/snapshot"
	"github.com/vistacore/tm-core/internal/telemetry"
)

type outputRow struct {
	ActorID     uint32     `json:"actor_id"`
	Hazard      bool       `json:"hazard"`
	HazardActor uint32     `json:"hazard_actor_id,omitempty"`
	Margin      float64    `json:"available_distance_margin"`
	CommandKind string     `json:"command"`
	Throttle    float64    `json:"throttle,omitempty"`
	Brake       float64    `json:"brake,omitempty"`
	Steer       float64    `json:"steer,omitempty"`
	Location    [3]float64 `json:"location,omitempty"`
}

type cliFlags struct {
	configDir   string
	workers     int
	logLevel    string
	graylog     string
	recordPath  string // sqlite file for the recorder backend; empty disables it
	geoExport   bool   // project recorded locations to lon/lat
	influxAddr  string // host; empty disables influx telemetry
	influxOrg   string
	influxToken string
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "tmcore: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags() cliFlags {
	var f cliFlags
	flag.StringVar(&f.configDir, "config-dir", "", "directory holding tm_core.cfg.json")
	flag.IntVar(&f.workers, "workers", 1, "engine worker count")
	flag.StringVar(&f.logLevel, "log-level", "info", "log level: debug, info, warn, error")
	flag.StringVar(&f.graylog, "graylog-addr", "", "optional graylog GELF address, e.g. graylog.internal:12201")
	flag.StringVar(&f.recordPath, "record", "", "sqlite file to persist tick records to (empty disables recording)")
	flag.BoolVar(&f.geoExport, "geo-export", false, "project recorded locations to EPSG:4326 lon/lat (requires -record)")
	flag.StringVar(&f.influxAddr, "influx-host", "", "host of an InfluxDB server to report tick telemetry to (empty disables)")
	flag.StringVar(&f.influxOrg, "influx-org", "", "InfluxDB organization")
	flag.StringVar(&f.influxToken, "influx-token", "", "InfluxDB auth token")
	flag.Parse()
	return f
}

func run() error {
	flags := parseFlags()

	logMgr, err := logging.Setup(logging.Config{Level: flags.logLevel, GraylogAddr: flags.graylog})
	if err != nil {
		return fmt.Errorf("setting up logging: %w", err)
	}
	logger := logMgr.Logger()
	metrics := telemetry.New()

	args := flag.Args()
	var data []byte
	if len(args) > 0 {
		data, err = os.ReadFile(args[0])
	} else {
		data, err = io.ReadAll(os.Stdin)
	}
	if err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	wire, err := snapshot.DecodeTickInput(data)
	if err != nil {
		return err
	}
	parsed, err := snapshot.Parse(wire)
	if err != nil {
		return err
	}

	registry, err := params.Load(flags.configDir)
	if err != nil {
		return fmt.Errorf("loading parameters: %w", err)
	}

	var backend *recorder.Backend
	if flags.recordPath != "" {
		backend, err = setupRecorder(flags, logger)
		if err != nil {
			return err
		}
	}

	var influxMgr *influx.Manager
	if flags.influxAddr != "" {
		influxMgr = setupInflux(flags, logger)
	}

	state := engine.NewState()
	e := engine.New(state, engine.Workers(flags.workers), engine.Logger(logger), engine.Metrics(metrics))

	out := e.Tick(engine.TickInput{
		Snapshot: collision.Snapshot{
			VehicleIDList: parsed.VehicleIDList,
			States:        parsed.States,
			Attributes:    parsed.Attributes,
			TrafficLights: parsed.TrafficLights,
			Buffers:       parsed.Buffers,
			TrackTraffic:  parsed.TrackTraffic,
		},
		Parameters:   registry,
		TrafficLight: parsed.TLHazards,
	})

	tickAt := time.Now()
	if backend != nil {
		locations := make(map[model.ActorID]model.Vector3, len(parsed.VehicleIDList))
		for _, id := range parsed.VehicleIDList {
			locations[id] = parsed.States[id].Location
		}
		if err := backend.RecordTick(context.Background(), 1, tickAt, parsed.VehicleIDList, out.CollisionFrame, out.ControlFrame, locations); err != nil {
			logger.Error("recording tick", "error", err)
		}
	}
	if influxMgr != nil {
		hazards, emergency := countOutcomes(out)
		influxMgr.WriteTick(tickAt, len(parsed.VehicleIDList), hazards, emergency, time.Since(tickAt))
		defer influxMgr.Close()
	}

	rows := make([]outputRow, len(parsed.VehicleIDList))
	for i, id := range parsed.VehicleIDList {
		hazard := out.CollisionFrame[i]
		cmd := out.ControlFrame[i]

		row := outputRow{
			ActorID:     uint32(id),
			Hazard:      hazard.Hazard,
			HazardActor: uint32(hazard.HazardActorID),
			Margin:      hazard.AvailableDistanceMargin,
		}
		if cmd.Kind == model.CommandApplyVehicleControl {
			row.CommandKind = "vehicle_control"
			row.Throttle = cmd.Control.Throttle
			row.Brake = cmd.Control.Brake
			row.Steer = cmd.Control.Steer
		} else {
			row.CommandKind = "transform"
			row.Location = [3]float64{cmd.Transform.Location.X, cmd.Transform.Location.Y, cmd.Transform.Location.Z}
		}
		rows[i] = row
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}

func setupRecorder(flags cliFlags, logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}) (*recorder.Backend, error) {
	dbMgr := database.NewManager(database.Config{SqliteFilePath: flags.recordPath}, zerolog.Nop())
	if err := dbMgr.Connect(); err != nil {
		return nil, fmt.Errorf("connecting recorder database: %w", err)
	}

	var opts []recorder.Option
	if flags.geoExport {
		projector := geoexport.NewProjector()
		opts = append(opts, recorder.WithGeoProjection(projector.Project))
	}

	backend, err := recorder.NewBackend(dbMgr.DB, opts...)
	if err != nil {
		return nil, fmt.Errorf("setting up tick recorder: %w", err)
	}
	logger.Info("tick recording enabled", "path", flags.recordPath, "geo_export", flags.geoExport)
	return backend, nil
}

func setupInflux(flags cliFlags, logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}) *influx.Manager {
	backupPath := "tmcore-influx-backup.gz"
	if flags.recordPath != "" {
		backupPath = flags.recordPath + ".influx-backup.gz"
	}
	mgr := influx.NewManager(influx.Config{
		Enabled:  true,
		Protocol: "http",
		Host:     flags.influxAddr,
		Port:     "8086",
		Token:    flags.influxToken,
		Org:      flags.influxOrg,
	}, zerolog.Nop(), backupPath)

	if err := mgr.Connect(); err != nil {
		logger.Error("influx connect failed, telemetry will be dropped", "error", err)
	}
	return mgr
}

func countOutcomes(out engine.TickOutput) (hazards, emergency int) {
	for _, h := range out.CollisionFrame {
		if h.Hazard {
			hazards++
		}
	}
	for _, cmd := range out.ControlFrame {
		if cmd.Kind == model.CommandApplyVehicleControl && cmd.Control.Brake == 1 && cmd.Control.Throttle == 0 {
			emergency++
		}
	}
	return hazards, emergency
}
