package registry

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/denisenkom/go-mssqldb" // SQL Server driver
	"github.com/legalaid-center/platform/internal/shared/config"
	"github.com/legalaid-center/platform/internal/shared/errors"
)

// MSSQLAdapter implements Adapter against the court registry's SQL Server
type MSSQLAdapter struct {
	db  *sql.DB
	cfg config.RegistryConfig

	running bool
	mu      sync.RWMutex
}

// NewMSSQL creates a new SQL Server registry adapter
func NewMSSQL(cfg config.RegistryConfig) *MSSQLAdapter {
	return &MSSQLAdapter{cfg: cfg}
}

// Start opens the database connection and verifies it
func (a *MSSQLAdapter) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.running {
		return fmt.Errorf("registry adapter already running")
	}

	connStr := fmt.Sprintf("server=%s;port=%d;database=%s;user id=%s;password=%s",
		a.cfg.Host, a.cfg.Port, a.cfg.Database, a.cfg.User, a.cfg.Password,
	)
	if a.cfg.SSLMode != "disable" {
		connStr += ";encrypt=true;TrustServerCertificate=true"
	}

	db, err := sql.Open("sqlserver", connStr)
	if err != nil {
		return fmt.Errorf("failed to open registry database: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping registry database: %w", err)
	}

	a.db = db
	a.running = true
	return nil
}

// Stop closes the database connection
func (a *MSSQLAdapter) Stop(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.running {
		return nil
	}
	a.running = false
	return a.db.Close()
}

// IsConnected reports whether the adapter has a live connection
func (a *MSSQLAdapter) IsConnected() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.running
}

// Health pings the registry database
func (a *MSSQLAdapter) Health(ctx context.Context) error {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if !a.running {
		return fmt.Errorf("registry adapter not running")
	}
	return a.db.PingContext(ctx)
}

// LookupFiling fetches a filing by court reference number
func (a *MSSQLAdapter) LookupFiling(ctx context.Context, reference string) (*Filing, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if !a.running {
		return nil, errors.Internal(fmt.Errorf("registry adapter not running"))
	}

	query := `
		SELECT Reference, CourtName, CaseType, Status, FiledAt, NextHearing
		FROM dbo.Filings
		WHERE Reference = @p1`

	f := &Filing{}
	var nextHearing sql.NullTime
	err := a.db.QueryRowContext(ctx, query, reference).Scan(
		&f.Reference, &f.CourtName, &f.CaseType, &f.Status, &f.FiledAt, &nextHearing,
	)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("filing", reference)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to look up filing")
	}
	if nextHearing.Valid {
		f.NextHearing = &nextHearing.Time
	}
	return f, nil
}
