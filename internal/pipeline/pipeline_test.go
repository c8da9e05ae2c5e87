package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/opensource-finance/harrier/internal/bus"
	"github.com/opensource-finance/harrier/internal/cache"
	"github.com/opensource-finance/harrier/internal/domain"
	"github.com/opensource-finance/harrier/internal/model"
	"github.com/opensource-finance/harrier/internal/report"
	"github.com/opensource-finance/harrier/internal/repository"
	"github.com/opensource-finance/harrier/internal/textgen"
)

// The test classifier scores class 1 from the amount slot alone, so a
// record is fraudulent exactly when its amount exceeds 500.
func writeModelArtifacts(t *testing.T, dir string) {
	t.Helper()
	artifacts := map[string]string{
		model.AnomalyModelFile: `{"version":"1","feature":"amount","lower":100,"upper":10000}`,
		model.EncoderFile: `{"version":"1","featureOrder":["txn_type","device_type","status","customer_type"],
			"categories":{
			  "txn_type":["Transfer","Withdrawal","Unknown"],
			  "device_type":["Mobile","ATM","Unknown"],
			  "status":["Success","Failed","Unknown"],
			  "customer_type":["Retail","Corporate","Unknown"]}}`,
		model.FraudClassifierFile: `{"version":"1",
			"weights":[[0,0,0,0,0,0,0,0,0,0,0,0,0],[0,0,0,0,0,0,0,0,0,0,0,0,0.001]],
			"intercepts":[0.5,0]}`,
		model.LabelDecoderFile: `{"version":"1","classes":["none","account_takeover"]}`,
	}
	for name, content := range artifacts {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatalf("failed to write artifact %s: %v", name, err)
		}
	}
}

const testCSV = `transaction_id,timestamp,amount,txn_type,device_type,status,customer_type,location,branch_code,region
T1,2025-01-01T10:00:00,50,Withdrawal,ATM,Success,Retail,Nagpur,BR9,Maharashtra
T2,2025-01-01T10:05:00,5000,Transfer,Mobile,Success,Retail,Mumbai Central,BR1,Maharashtra
T3,2025-01-01T10:10:00,20000,Transfer,Mobile,Success,Corporate,Mumbai Central,BR1,Maharashtra
T4,2025-01-01T10:15:00,200,Withdrawal,ATM,Success,Retail,Pune West,BR2,Maharashtra
T5,2025-01-01T10:20:00,,Transfer,Mobile,Failed,Retail,Pune West,BR2,Maharashtra
`

const testRuleDoc = `regional fraud rules handbook

MAHARASHTRA

report upi fraud to the regional desk within 24 hours.

Mumbai Central Zone

verify high-value transfers with a second factor.
branch escalation desk
name: A. Rao
role: Branch Fraud Officer
sla: 24 hours
escalate to a.rao@bank.example.com promptly.

DELHI

card skimming incidents go to the central registry.
`

type fixture struct {
	svc        *Service
	repo       domain.Repository
	bus        *bus.ChannelBus
	reportsDir string
	csvPath    string
}

func newFixture(t *testing.T, ruleDocPath string) *fixture {
	t.Helper()

	modelsDir := t.TempDir()
	writeModelArtifacts(t, modelsDir)
	artifacts, err := model.LoadArtifacts(modelsDir)
	if err != nil {
		t.Fatalf("LoadArtifacts failed: %v", err)
	}

	repo, err := repository.New(domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "pipeline.db"),
	})
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	b := bus.NewChannelBus(10)
	t.Cleanup(func() { b.Close() })

	csvPath := filepath.Join(t.TempDir(), "maharashtra.csv")
	if err := os.WriteFile(csvPath, []byte(testCSV), 0644); err != nil {
		t.Fatalf("failed to write dataset: %v", err)
	}

	reportsDir := t.TempDir()
	svc := NewService(artifacts, textgen.NewStaticGenerator(), repo, cache.NewLRUCache(10), b,
		report.NewWriter(reportsDir), domain.RuleDocConfig{Path: ruleDocPath, ContactWindow: 600})

	return &fixture{svc: svc, repo: repo, bus: b, reportsDir: reportsDir, csvPath: csvPath}
}

func writeRuleDoc(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "branch_rules.txt")
	if err := os.WriteFile(path, []byte(testRuleDoc), 0644); err != nil {
		t.Fatalf("failed to write rule document: %v", err)
	}
	return path
}

func TestRunRegion(t *testing.T) {
	f := newFixture(t, writeRuleDoc(t))
	ctx := context.Background()

	completed := make(chan *domain.Message, 1)
	_, err := f.bus.Subscribe(ctx, domain.TopicRunCompleted,
		func(ctx context.Context, msg *domain.Message) error {
			completed <- msg
			return nil
		})
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	run, err := f.svc.RunRegion(ctx, "Maharashtra", f.csvPath)
	if err != nil {
		t.Fatalf("RunRegion failed: %v", err)
	}

	if run.RecordCount != 5 {
		t.Errorf("RecordCount = %d, want 5", run.RecordCount)
	}
	// T1 (50) and T3 (20000) fall outside the fences; T5's missing
	// amount is imputed to the median 2600 and scores clean.
	if run.AnomalyCount != 2 {
		t.Errorf("AnomalyCount = %d, want 2", run.AnomalyCount)
	}
	// T2, T3 and the imputed T5 exceed the 500 decision point.
	if run.FraudCount != 3 {
		t.Errorf("FraudCount = %d, want 3", run.FraudCount)
	}
	if run.BranchSummary["BR1"] != 2 || run.BranchSummary["BR2"] != 1 {
		t.Errorf("BranchSummary = %v", run.BranchSummary)
	}
	if run.FraudTypes["account_takeover"] != 3 {
		t.Errorf("FraudTypes = %v", run.FraudTypes)
	}

	persisted, err := f.repo.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("run was not persisted: %v", err)
	}
	if persisted.Region != "Maharashtra" {
		t.Errorf("persisted region = %q", persisted.Region)
	}

	records, ok := f.svc.Records(run.ID)
	if !ok || len(records) != 5 {
		t.Errorf("Records = (%d, %v), want 5 records held in memory", len(records), ok)
	}

	select {
	case msg := <-completed:
		var published domain.PipelineRun
		if err := json.Unmarshal(msg.Payload, &published); err != nil {
			t.Fatalf("bad run event payload: %v", err)
		}
		if published.ID != run.ID {
			t.Errorf("published run ID = %q, want %q", published.ID, run.ID)
		}
	case <-time.After(2 * time.Second):
		t.Error("run completion event never published")
	}

	for _, name := range []string{report.ScoredFile, report.ClassifiedFile} {
		if _, err := os.Stat(filepath.Join(f.reportsDir, name)); err != nil {
			t.Errorf("report %s was not written: %v", name, err)
		}
	}
}

func TestRunRegionMissingDataset(t *testing.T) {
	f := newFixture(t, writeRuleDoc(t))

	if _, err := f.svc.RunRegion(context.Background(), "Maharashtra", "/nonexistent.csv"); err == nil {
		t.Error("expected error for missing dataset")
	}
}

func TestRunRegionEmptyDataset(t *testing.T) {
	f := newFixture(t, writeRuleDoc(t))

	empty := filepath.Join(t.TempDir(), "empty.csv")
	if err := os.WriteFile(empty, nil, 0644); err != nil {
		t.Fatalf("failed to write dataset: %v", err)
	}

	_, err := f.svc.RunRegion(context.Background(), "Maharashtra", empty)
	if !errors.Is(err, domain.ErrEmptyInput) {
		t.Errorf("expected ErrEmptyInput, got %v", err)
	}
}

func TestGenerateAdvisory(t *testing.T) {
	f := newFixture(t, writeRuleDoc(t))
	ctx := context.Background()

	run, err := f.svc.RunRegion(ctx, "Maharashtra", f.csvPath)
	if err != nil {
		t.Fatalf("RunRegion failed: %v", err)
	}
	records, _ := f.svc.Records(run.ID)

	generated := make(chan *domain.Message, 1)
	_, err = f.bus.Subscribe(ctx, domain.TopicAdvisoryGenerated,
		func(ctx context.Context, msg *domain.Message) error {
			generated <- msg
			return nil
		})
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	result, err := f.svc.GenerateAdvisory(ctx, "Mumbai Central", records)
	if err != nil {
		t.Fatalf("GenerateAdvisory failed: %v", err)
	}

	if result.Advisory.Failed() {
		t.Fatalf("advisory failed: %s", result.Advisory.AdvisoryContent)
	}
	if result.Match.Region != "Mumbai Central Zone" {
		t.Errorf("matched region = %q, want Mumbai Central Zone", result.Match.Region)
	}
	if result.Match.Similarity <= 0 {
		t.Errorf("similarity = %f, want > 0", result.Match.Similarity)
	}
	if result.Contact.Name != "A. Rao" || result.Contact.Email != "a.rao@bank.example.com" {
		t.Errorf("contact = %+v", result.Contact)
	}
	if !strings.Contains(result.Advisory.AdvisoryContent, "A. Rao") {
		t.Error("advisory content should carry the contact name")
	}

	latest, err := f.repo.LatestAdvisoryForBranch(ctx, "Mumbai Central")
	if err != nil {
		t.Fatalf("advisory was not persisted: %v", err)
	}
	if latest.ID != result.Advisory.ID {
		t.Errorf("persisted advisory ID = %q, want %q", latest.ID, result.Advisory.ID)
	}

	select {
	case msg := <-generated:
		var event domain.AdvisoryEvent
		if err := json.Unmarshal(msg.Payload, &event); err != nil {
			t.Fatalf("bad advisory event payload: %v", err)
		}
		// Branch counts cover the two Mumbai Central records only.
		if event.TotalCount != 2 || event.AnomalyCount != 1 {
			t.Errorf("event counts = (%d, %d), want (2, 1)", event.TotalCount, event.AnomalyCount)
		}
		if event.FraudTypes["account_takeover"] != 2 {
			t.Errorf("event fraud types = %v", event.FraudTypes)
		}
		if event.Contact.Email != "a.rao@bank.example.com" {
			t.Errorf("event contact = %+v", event.Contact)
		}
	case <-time.After(2 * time.Second):
		t.Error("advisory event never published")
	}

	if _, err := os.Stat(filepath.Join(f.reportsDir, report.AdvisoryFile)); err != nil {
		t.Errorf("advisory log was not written: %v", err)
	}
}

func TestGenerateAdvisoryWithoutRuleDocument(t *testing.T) {
	f := newFixture(t, "/nonexistent/branch_rules.txt")
	ctx := context.Background()

	run, err := f.svc.RunRegion(ctx, "Maharashtra", f.csvPath)
	if err != nil {
		t.Fatalf("RunRegion failed: %v", err)
	}
	records, _ := f.svc.Records(run.ID)

	result, err := f.svc.GenerateAdvisory(ctx, "Mumbai Central", records)
	if err != nil {
		t.Fatalf("a missing rule document must degrade, not fail: %v", err)
	}
	if result.Match.Region != "" {
		t.Errorf("matched region = %q, want none", result.Match.Region)
	}
	if !result.Contact.IsZero() {
		t.Errorf("contact = %+v, want zero", result.Contact)
	}
	if result.Advisory.Failed() {
		t.Errorf("advisory failed: %s", result.Advisory.AdvisoryContent)
	}
}

func TestRecordsUnknownRun(t *testing.T) {
	f := newFixture(t, writeRuleDoc(t))

	if _, ok := f.svc.Records("unknown"); ok {
		t.Error("unknown run must not resolve")
	}
}

func TestRegionSummary(t *testing.T) {
	f := newFixture(t, writeRuleDoc(t))
	ctx := context.Background()

	run, err := f.svc.RunRegion(ctx, "Maharashtra", f.csvPath)
	if err != nil {
		t.Fatalf("RunRegion failed: %v", err)
	}
	records, _ := f.svc.Records(run.ID)

	summary, err := f.svc.RegionSummary(ctx, "Maharashtra", records)
	if err != nil {
		t.Fatalf("RegionSummary failed: %v", err)
	}
	if summary == "" {
		t.Error("expected a non-empty region summary")
	}

	device, err := f.svc.DeviceSummary(ctx, records)
	if err != nil {
		t.Fatalf("DeviceSummary failed: %v", err)
	}
	if device == "" {
		t.Error("expected a non-empty device summary")
	}
}
