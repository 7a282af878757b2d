// Package registry connects to the legacy court registry, a read-only
// SQL Server database maintained by the court administration. Judicial
// services reference filings in it by court reference number.
package registry

import (
	"context"
	"time"
)

// Filing is a court filing record from the legacy registry
type Filing struct {
	Reference  string    `json:"reference"`
	CourtName  string    `json:"court_name"`
	CaseType   string    `json:"case_type"`
	Status     string    `json:"status"`
	FiledAt    time.Time `json:"filed_at"`
	NextHearing *time.Time `json:"next_hearing,omitempty"`
}

// Adapter defines the court-registry lookup interface. The registry is an
// external collaborator; the platform never writes to it.
type Adapter interface {
	LookupFiling(ctx context.Context, reference string) (*Filing, error)
	IsConnected() bool

	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Health(ctx context.Context) error
}
