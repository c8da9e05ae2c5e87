package domain

import (
	"context"
	"time"
)

// PipelineRun records one end-to-end run of the pipeline for a region
// dataset: row counts and derived summaries, persisted for the API to
// serve back.
type PipelineRun struct {
	ID            string         `json:"id"`
	Region        string         `json:"region"`
	SourceFile    string         `json:"sourceFile"`
	RecordCount   int            `json:"recordCount"`
	AnomalyCount  int            `json:"anomalyCount"`
	FraudCount    int            `json:"fraudCount"`
	BranchSummary FraudSummary   `json:"branchSummary"`
	FraudTypes    map[string]int `json:"fraudTypes"`
	StartedAt     time.Time      `json:"startedAt"`
	CompletedAt   time.Time      `json:"completedAt"`
}

// DispatchRecord records the outcome of mailing one advisory.
type DispatchRecord struct {
	ID         string    `json:"id"`
	AdvisoryID string    `json:"advisoryId"`
	Branch     string    `json:"branch"`
	Recipient  string    `json:"recipient"`
	Status     string    `json:"status"` // "sent", "suppressed", "failed"
	Detail     string    `json:"detail,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Dispatch status constants.
const (
	DispatchSent       = "sent"
	DispatchSuppressed = "suppressed"
	DispatchFailed     = "failed"
)

// Repository defines the interface for data persistence.
type Repository interface {
	// Pipeline run operations
	SaveRun(ctx context.Context, run *PipelineRun) error
	GetRun(ctx context.Context, runID string) (*PipelineRun, error)
	ListRuns(ctx context.Context, region string, limit int) ([]*PipelineRun, error)

	// Advisory operations
	SaveAdvisory(ctx context.Context, adv *AdvisoryRecord) error
	GetAdvisory(ctx context.Context, advisoryID string) (*AdvisoryRecord, error)
	LatestAdvisoryForBranch(ctx context.Context, branch string) (*AdvisoryRecord, error)

	// Dispatch outcomes
	SaveDispatch(ctx context.Context, rec *DispatchRecord) error
	ListDispatches(ctx context.Context, branch string, limit int) ([]*DispatchRecord, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	// Driver is the database driver: "sqlite" or "postgres"
	Driver string

	// SQLite specific
	SQLitePath string

	// PostgreSQL specific
	PostgresHost     string
	PostgresPort     int
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}
