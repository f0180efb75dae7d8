// Package database manages the recorder's SQL connection, grounded
// directly on the teacher's internal/database.Manager: try Postgres first,
// fall back to a local SQLite database, log connection outcomes via
// zerolog.
package database

import (
	"database/sql"
	"fmt"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Config carries the Postgres connection parameters; a blank Host means
// "don't attempt Postgres, go straight to SQLite".
type Config struct {
	Host, Port, Username, Password, Database string
	SqliteFilePath                           string // empty means in-memory
}

// Manager owns the recorder's database connection.
type Manager struct {
	DB              *gorm.DB
	SqlDB           *sql.DB
	IsValid         bool
	ShouldSaveLocal bool
	Logger          zerolog.Logger
	cfg             Config
}

// NewManager creates a database manager for cfg.
func NewManager(cfg Config, log zerolog.Logger) *Manager {
	return &Manager{cfg: cfg, Logger: log}
}

// Connect establishes a database connection, falling back to SQLite if
// Postgres is unreachable or unconfigured.
func (m *Manager) Connect() error {
	var err error

	if m.cfg.Host != "" {
		m.DB, err = m.getPostgresDB()
	} else {
		err = fmt.Errorf("no postgres host configured")
	}

	if err != nil {
		m.Logger.Info().Err(err).Msg("falling back to local SQLite database")
		m.ShouldSaveLocal = true
		m.DB, err = m.getSqliteDB(m.cfg.SqliteFilePath)
		if err != nil || m.DB == nil {
			m.IsValid = false
			return fmt.Errorf("failed to get local SQLite DB: %w", err)
		}
	}

	m.SqlDB, err = m.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to access sql interface: %w", err)
	}
	if err := m.SqlDB.Ping(); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	m.IsValid = true
	if !m.ShouldSaveLocal {
		m.SqlDB.SetMaxOpenConns(10)
	}
	m.Logger.Info().Bool("local", m.ShouldSaveLocal).Msg("connected to database")
	return nil
}

func (m *Manager) getPostgresDB() (*gorm.DB, error) {
	dsn := fmt.Sprintf(`host=%s port=%s user=%s password=%s dbname=%s sslmode=disable`,
		m.cfg.Host, m.cfg.Port, m.cfg.Username, m.cfg.Password, m.cfg.Database)

	return gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		CreateBatchSize:        5000,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
}

func (m *Manager) getSqliteDB(path string) (*gorm.DB, error) {
	dsn := "file::memory:?cache=shared"
	if path != "" {
		dsn = path
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		PrepareStmt:            true,
		SkipDefaultTransaction: true,
		CreateBatchSize:        2000,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	pragmas := []string{
		"PRAGMA journal_mode = MEMORY;",
		"PRAGMA synchronous = OFF;",
		"PRAGMA cache_size = -32000;",
		"PRAGMA temp_store = MEMORY;",
	}
	for _, pragma := range pragmas {
		if err := db.Exec(pragma).Error; err != nil {
			return nil, fmt.Errorf("error setting PRAGMA: %w", err)
		}
	}

	return db, nil
}
