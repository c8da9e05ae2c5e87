// Package repository provides data persistence implementations.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/opensource-finance/harrier/internal/domain"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid input")
)

// SQLRepository implements domain.Repository using database/sql.
// Works with both SQLite and PostgreSQL drivers.
type SQLRepository struct {
	db     *sql.DB
	driver string
}

// New creates a new repository based on configuration.
func New(cfg domain.RepositoryConfig) (domain.Repository, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite":
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	repo := &SQLRepository{
		db:     db,
		driver: cfg.Driver,
	}

	// Run migrations
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

func (r *SQLRepository) migrate() error {
	for _, schema := range AllSchemas() {
		if _, err := r.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

// SaveRun stores a completed pipeline run.
func (r *SQLRepository) SaveRun(ctx context.Context, run *domain.PipelineRun) error {
	if run == nil || run.ID == "" {
		return fmt.Errorf("%w: run with ID is required", ErrInvalidInput)
	}

	branchSummary, _ := json.Marshal(run.BranchSummary)
	fraudTypes, _ := json.Marshal(run.FraudTypes)

	query := `
		INSERT INTO pipeline_runs (
			id, region, source_file, record_count, anomaly_count,
			fraud_count, branch_summary, fraud_types, started_at, completed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		run.ID, run.Region, run.SourceFile,
		run.RecordCount, run.AnomalyCount, run.FraudCount,
		string(branchSummary), string(fraudTypes),
		run.StartedAt, run.CompletedAt,
	)
	return err
}

// GetRun retrieves a pipeline run by ID.
func (r *SQLRepository) GetRun(ctx context.Context, runID string) (*domain.PipelineRun, error) {
	query := `
		SELECT id, region, source_file, record_count, anomaly_count,
			   fraud_count, branch_summary, fraud_types, started_at, completed_at
		FROM pipeline_runs
		WHERE id = ?
	`
	row := r.db.QueryRowContext(ctx, r.rebind(query), runID)
	return scanRun(row)
}

// ListRuns retrieves recent runs, newest first, optionally filtered by
// region.
func (r *SQLRepository) ListRuns(ctx context.Context, region string, limit int) ([]*domain.PipelineRun, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, region, source_file, record_count, anomaly_count,
			   fraud_count, branch_summary, fraud_types, started_at, completed_at
		FROM pipeline_runs
	`
	args := []any{}
	if region != "" {
		query += " WHERE region = ?"
		args = append(args, region)
	}
	query += " ORDER BY completed_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, r.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*domain.PipelineRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// SaveAdvisory stores a generated advisory.
func (r *SQLRepository) SaveAdvisory(ctx context.Context, adv *domain.AdvisoryRecord) error {
	if adv == nil || adv.ID == "" {
		return fmt.Errorf("%w: advisory with ID is required", ErrInvalidInput)
	}

	query := `
		INSERT INTO advisories (id, branch, matched_region, advisory_content, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, r.rebind(query),
		adv.ID, adv.Branch, adv.MatchedRegion, adv.AdvisoryContent, adv.CreatedAt,
	)
	return err
}

// GetAdvisory retrieves an advisory by ID.
func (r *SQLRepository) GetAdvisory(ctx context.Context, advisoryID string) (*domain.AdvisoryRecord, error) {
	query := `
		SELECT id, branch, matched_region, advisory_content, created_at
		FROM advisories
		WHERE id = ?
	`

	var adv domain.AdvisoryRecord
	err := r.db.QueryRowContext(ctx, r.rebind(query), advisoryID).Scan(
		&adv.ID, &adv.Branch, &adv.MatchedRegion, &adv.AdvisoryContent, &adv.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &adv, nil
}

// LatestAdvisoryForBranch retrieves the newest advisory for a branch.
func (r *SQLRepository) LatestAdvisoryForBranch(ctx context.Context, branch string) (*domain.AdvisoryRecord, error) {
	query := `
		SELECT id, branch, matched_region, advisory_content, created_at
		FROM advisories
		WHERE branch = ?
		ORDER BY created_at DESC
		LIMIT 1
	`

	var adv domain.AdvisoryRecord
	err := r.db.QueryRowContext(ctx, r.rebind(query), branch).Scan(
		&adv.ID, &adv.Branch, &adv.MatchedRegion, &adv.AdvisoryContent, &adv.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &adv, nil
}

// SaveDispatch stores a dispatch outcome.
func (r *SQLRepository) SaveDispatch(ctx context.Context, rec *domain.DispatchRecord) error {
	if rec == nil || rec.ID == "" {
		return fmt.Errorf("%w: dispatch with ID is required", ErrInvalidInput)
	}

	query := `
		INSERT INTO dispatches (id, advisory_id, branch, recipient, status, detail, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, r.rebind(query),
		rec.ID, rec.AdvisoryID, rec.Branch, rec.Recipient, rec.Status, rec.Detail, rec.CreatedAt,
	)
	return err
}

// ListDispatches retrieves dispatch outcomes for a branch, newest
// first.
func (r *SQLRepository) ListDispatches(ctx context.Context, branch string, limit int) ([]*domain.DispatchRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, advisory_id, branch, recipient, status, detail, created_at
		FROM dispatches
		WHERE branch = ?
		ORDER BY created_at DESC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), branch, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.DispatchRecord
	for rows.Next() {
		var rec domain.DispatchRecord
		var recipient, detail sql.NullString
		if err := rows.Scan(&rec.ID, &rec.AdvisoryID, &rec.Branch, &recipient, &rec.Status, &detail, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.Recipient = recipient.String
		rec.Detail = detail.String
		out = append(out, &rec)
	}
	return out, rows.Err()
}

// Ping checks database connectivity.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*domain.PipelineRun, error) {
	var run domain.PipelineRun
	var branchSummary, fraudTypes string

	err := row.Scan(
		&run.ID, &run.Region, &run.SourceFile,
		&run.RecordCount, &run.AnomalyCount, &run.FraudCount,
		&branchSummary, &fraudTypes,
		&run.StartedAt, &run.CompletedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if branchSummary != "" {
		json.Unmarshal([]byte(branchSummary), &run.BranchSummary)
	}
	if fraudTypes != "" {
		json.Unmarshal([]byte(fraudTypes), &run.FraudTypes)
	}
	return &run, nil
}

// rebind converts ? placeholders to $n for PostgreSQL.
func (r *SQLRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}

	var b strings.Builder
	n := 0
	for _, ch := range query {
		if ch == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(ch)
	}
	return b.String()
}
