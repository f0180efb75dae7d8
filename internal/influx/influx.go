// Package influx writes tick telemetry as InfluxDB line-protocol points,
// grounded on the teacher's internal/influx.Manager: a WriteAPI per bucket,
// a Ping-validated Connect, and a gzip backup writer used when the server
// is unreachable.
package influx

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/rs/zerolog"
)

// DefaultBucketName is the bucket tick telemetry is written to.
const DefaultBucketName = "tm_core_ticks"

// Config carries the InfluxDB connection parameters.
type Config struct {
	Enabled  bool
	Protocol string
	Host     string
	Port     string
	Token    string
	Org      string
	Bucket   string
}

// Manager handles the InfluxDB connection and tick-point writes.
type Manager struct {
	client       influxdb2.Client
	writer       influxdb2_api.WriteAPI
	backupWriter *gzip.Writer
	isValid      bool
	cfg          Config
	logger       zerolog.Logger
	backupPath   string
}

// NewManager creates a manager for cfg; points are written to backupPath
// (gzip line-protocol) whenever the server is unreachable.
func NewManager(cfg Config, log zerolog.Logger, backupPath string) *Manager {
	if cfg.Bucket == "" {
		cfg.Bucket = DefaultBucketName
	}
	return &Manager{cfg: cfg, logger: log, backupPath: backupPath}
}

// Connect validates connectivity and prepares the bucket's WriteAPI,
// falling back to a gzip backup file when the server cannot be reached.
func (m *Manager) Connect() error {
	if !m.cfg.Enabled {
		return errors.New("influx.enabled is false")
	}

	m.client = influxdb2.NewClientWithOptions(
		fmt.Sprintf("%s://%s:%s", m.cfg.Protocol, m.cfg.Host, m.cfg.Port),
		m.cfg.Token,
		influxdb2.DefaultOptions().SetBatchSize(2500).SetFlushInterval(1000),
	)

	running, err := m.client.Ping(context.Background())
	if err != nil || !running {
		m.isValid = false
		if m.backupWriter == nil {
			m.logger.Info().Str("backup_path", m.backupPath).
				Msg("influxdb unreachable, writing tick telemetry to backup file")
			file, ferr := os.OpenFile(m.backupPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
			if ferr != nil {
				return fmt.Errorf("influx: creating backup file: %w", ferr)
			}
			m.backupWriter = gzip.NewWriter(file)
		}
		return nil
	}

	m.isValid = true
	m.writer = m.client.WriteAPI(m.cfg.Org, m.cfg.Bucket)
	return nil
}

// WriteTick records one tick's hazard/emergency counters as an InfluxDB
// point, or appends the equivalent line to the backup file if the server is
// unreachable.
func (m *Manager) WriteTick(at time.Time, vehicleCount, hazards, emergencyStops int, duration time.Duration) {
	if m.isValid && m.writer != nil {
		point := influxdb2.NewPoint(
			"tick",
			map[string]string{},
			map[string]interface{}{
				"vehicle_count":   vehicleCount,
				"hazard_count":    hazards,
				"emergency_stops": emergencyStops,
				"duration_ms":     duration.Milliseconds(),
			},
			at,
		)
		m.writer.WritePoint(point)
		return
	}

	if m.backupWriter != nil {
		fmt.Fprintf(m.backupWriter, "tick vehicle_count=%d,hazard_count=%d,emergency_stops=%d,duration_ms=%d %d\n",
			vehicleCount, hazards, emergencyStops, duration.Milliseconds(), at.UnixNano())
	}
}

// Close flushes and closes the write API and any backup writer.
func (m *Manager) Close() {
	if m.writer != nil {
		m.writer.Flush()
	}
	if m.client != nil {
		m.client.Close()
	}
	if m.backupWriter != nil {
		m.backupWriter.Close()
	}
}
