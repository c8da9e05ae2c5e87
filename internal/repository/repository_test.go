package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/opensource-finance/harrier/internal/domain"
)

func newTestRepo(t *testing.T) domain.Repository {
	t.Helper()
	repo, err := New(domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "test.db"),
	})
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func sampleRun(id string) *domain.PipelineRun {
	now := time.Now().UTC().Truncate(time.Second)
	return &domain.PipelineRun{
		ID:            id,
		Region:        "Maharashtra",
		SourceFile:    "/data/maharashtra.csv",
		RecordCount:   100,
		AnomalyCount:  7,
		FraudCount:    12,
		BranchSummary: domain.FraudSummary{"BR1": 8, "BR2": 4},
		FraudTypes:    map[string]int{"phishing": 9, "skimming": 3},
		StartedAt:     now.Add(-time.Minute),
		CompletedAt:   now,
	}
}

func TestSaveAndGetRun(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	run := sampleRun("run-1")
	if err := repo.SaveRun(ctx, run); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}

	got, err := repo.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got.Region != "Maharashtra" || got.RecordCount != 100 || got.FraudCount != 12 {
		t.Errorf("run fields wrong: %+v", got)
	}
	if got.BranchSummary["BR1"] != 8 {
		t.Errorf("branch summary lost: %v", got.BranchSummary)
	}
	if got.FraudTypes["phishing"] != 9 {
		t.Errorf("fraud types lost: %v", got.FraudTypes)
	}
}

func TestGetRunNotFound(t *testing.T) {
	repo := newTestRepo(t)
	_, err := repo.GetRun(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSaveRunValidation(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if err := repo.SaveRun(ctx, nil); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for nil run, got %v", err)
	}
	if err := repo.SaveRun(ctx, &domain.PipelineRun{}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for missing ID, got %v", err)
	}
}

func TestListRunsFiltersAndOrders(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	old := sampleRun("run-old")
	old.CompletedAt = time.Now().UTC().Add(-time.Hour)
	recent := sampleRun("run-new")
	other := sampleRun("run-other")
	other.Region = "Delhi"

	for _, r := range []*domain.PipelineRun{old, recent, other} {
		if err := repo.SaveRun(ctx, r); err != nil {
			t.Fatalf("SaveRun failed: %v", err)
		}
	}

	runs, err := repo.ListRuns(ctx, "Maharashtra", 10)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 Maharashtra runs, got %d", len(runs))
	}
	if runs[0].ID != "run-new" {
		t.Errorf("runs must come newest first, got %s", runs[0].ID)
	}

	all, err := repo.ListRuns(ctx, "", 10)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("expected 3 runs unfiltered, got %d", len(all))
	}
}

func TestSaveAndGetAdvisory(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	adv := &domain.AdvisoryRecord{
		ID:              "adv-1",
		Branch:          "Mumbai",
		MatchedRegion:   "MAHARASHTRA",
		AdvisoryContent: "Please review.",
		CreatedAt:       time.Now().UTC().Truncate(time.Second),
	}
	if err := repo.SaveAdvisory(ctx, adv); err != nil {
		t.Fatalf("SaveAdvisory failed: %v", err)
	}

	got, err := repo.GetAdvisory(ctx, "adv-1")
	if err != nil {
		t.Fatalf("GetAdvisory failed: %v", err)
	}
	if got.Branch != "Mumbai" || got.AdvisoryContent != "Please review." {
		t.Errorf("advisory fields wrong: %+v", got)
	}

	if _, err := repo.GetAdvisory(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestLatestAdvisoryForBranch(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Second)
	older := &domain.AdvisoryRecord{
		ID: "adv-old", Branch: "Mumbai", MatchedRegion: "M",
		AdvisoryContent: "old", CreatedAt: base.Add(-time.Hour),
	}
	newer := &domain.AdvisoryRecord{
		ID: "adv-new", Branch: "Mumbai", MatchedRegion: "M",
		AdvisoryContent: "new", CreatedAt: base,
	}
	for _, a := range []*domain.AdvisoryRecord{older, newer} {
		if err := repo.SaveAdvisory(ctx, a); err != nil {
			t.Fatalf("SaveAdvisory failed: %v", err)
		}
	}

	got, err := repo.LatestAdvisoryForBranch(ctx, "Mumbai")
	if err != nil {
		t.Fatalf("LatestAdvisoryForBranch failed: %v", err)
	}
	if got.ID != "adv-new" {
		t.Errorf("latest advisory = %s, want adv-new", got.ID)
	}

	if _, err := repo.LatestAdvisoryForBranch(ctx, "Nowhere"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSaveAndListDispatches(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Second)
	recs := []*domain.DispatchRecord{
		{ID: "d1", AdvisoryID: "adv-1", Branch: "Mumbai", Recipient: "a@b.com",
			Status: domain.DispatchSent, CreatedAt: base.Add(-time.Minute)},
		{ID: "d2", AdvisoryID: "adv-2", Branch: "Mumbai",
			Status: domain.DispatchSuppressed, Detail: "dispatch policy denied", CreatedAt: base},
		{ID: "d3", AdvisoryID: "adv-3", Branch: "Pune",
			Status: domain.DispatchFailed, Detail: "no contact", CreatedAt: base},
	}
	for _, r := range recs {
		if err := repo.SaveDispatch(ctx, r); err != nil {
			t.Fatalf("SaveDispatch failed: %v", err)
		}
	}

	got, err := repo.ListDispatches(ctx, "Mumbai", 10)
	if err != nil {
		t.Fatalf("ListDispatches failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 Mumbai dispatches, got %d", len(got))
	}
	if got[0].ID != "d2" {
		t.Errorf("dispatches must come newest first, got %s", got[0].ID)
	}
	if got[0].Detail != "dispatch policy denied" {
		t.Errorf("detail lost: %+v", got[0])
	}
}

func TestPing(t *testing.T) {
	repo := newTestRepo(t)
	if err := repo.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func TestRebindPostgres(t *testing.T) {
	r := &SQLRepository{driver: "postgres"}
	got := r.rebind("INSERT INTO t (a, b) VALUES (?, ?)")
	want := "INSERT INTO t (a, b) VALUES ($1, $2)"
	if got != want {
		t.Errorf("rebind = %q, want %q", got, want)
	}

	r.driver = "sqlite"
	q := "SELECT * FROM t WHERE id = ?"
	if got := r.rebind(q); got != q {
		t.Errorf("sqlite rebind should be a no-op, got %q", got)
	}
}
