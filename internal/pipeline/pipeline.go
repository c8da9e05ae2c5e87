// Package pipeline orchestrates the fraud-intelligence run: load,
// score, classify, aggregate, report, and the advisory path. Runs are
// request-scoped and synchronous; each run builds (or fetches from
// cache) its own rule document index.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/opensource-finance/harrier/internal/advisory"
	"github.com/opensource-finance/harrier/internal/aggregate"
	"github.com/opensource-finance/harrier/internal/classify"
	"github.com/opensource-finance/harrier/internal/dataset"
	"github.com/opensource-finance/harrier/internal/domain"
	"github.com/opensource-finance/harrier/internal/match"
	"github.com/opensource-finance/harrier/internal/model"
	"github.com/opensource-finance/harrier/internal/report"
	"github.com/opensource-finance/harrier/internal/ruledoc"
	"github.com/opensource-finance/harrier/internal/scoring"
)

// ruleIndexTTL bounds how long a parsed rule document is reused.
const ruleIndexTTL = 10 * time.Minute

// Service runs the pipeline and the advisory path. All collaborators
// are injected; model artifacts arrive pre-loaded so a missing
// artifact fails at startup, not mid-run.
type Service struct {
	scorer     *scoring.Scorer
	classifier *classify.Classifier
	assembler  *advisory.Assembler
	summarizer *advisory.Summarizer

	repo    domain.Repository
	cache   domain.Cache
	bus     domain.EventBus
	reports *report.Writer

	ruleDocPath   string
	contactWindow int

	mu   sync.RWMutex
	runs map[string][]domain.ClassifiedRecord
}

// NewService wires the pipeline from loaded artifacts and
// collaborators.
func NewService(artifacts *model.Artifacts, generator domain.TextGenerator,
	repo domain.Repository, cache domain.Cache, bus domain.EventBus,
	reports *report.Writer, ruleDoc domain.RuleDocConfig) *Service {
	return &Service{
		scorer:        scoring.NewScorer(artifacts.Anomaly),
		classifier:    classify.NewClassifier(artifacts.Encoder, artifacts.Classifier, artifacts.Labels),
		assembler:     advisory.NewAssembler(generator),
		summarizer:    advisory.NewSummarizer(generator),
		repo:          repo,
		cache:         cache,
		bus:           bus,
		reports:       reports,
		ruleDocPath:   ruleDoc.Path,
		contactWindow: ruleDoc.ContactWindow,
		runs:          make(map[string][]domain.ClassifiedRecord),
	}
}

// RunRegion processes one region dataset end to end and persists the
// run summary. Scoring and classification failures abort the run;
// report-writing failures are logged, not fatal, because reports are
// write-only artifacts.
func (s *Service) RunRegion(ctx context.Context, region, csvPath string) (*domain.PipelineRun, error) {
	started := time.Now().UTC()

	records, err := dataset.Load(csvPath)
	if err != nil {
		return nil, fmt.Errorf("load dataset: %w", err)
	}

	scored, err := s.scorer.Score(records)
	if err != nil {
		return nil, fmt.Errorf("anomaly scoring: %w", err)
	}
	if err := s.reports.WriteScored(scored); err != nil {
		slog.Warn("failed to write scored report", "error", err)
	}

	classified, err := s.classifier.Classify(scored)
	if err != nil {
		return nil, fmt.Errorf("fraud classification: %w", err)
	}
	if err := s.reports.WriteClassified(classified); err != nil {
		slog.Warn("failed to write classified report", "error", err)
	}

	summary := aggregate.Summarize(classified)
	run := &domain.PipelineRun{
		ID:            uuid.New().String(),
		Region:        region,
		SourceFile:    csvPath,
		RecordCount:   len(classified),
		AnomalyCount:  aggregate.AnomalyCount(classified),
		FraudCount:    summary.Total(),
		BranchSummary: summary,
		FraudTypes:    aggregate.FraudTypeCounts(classified),
		StartedAt:     started,
		CompletedAt:   time.Now().UTC(),
	}

	if err := s.repo.SaveRun(ctx, run); err != nil {
		return nil, fmt.Errorf("persist run: %w", err)
	}

	s.mu.Lock()
	s.runs[run.ID] = classified
	s.mu.Unlock()

	if payload, err := json.Marshal(run); err == nil {
		if err := s.bus.Publish(ctx, domain.TopicRunCompleted, payload); err != nil {
			slog.Warn("failed to publish run completion", "run_id", run.ID, "error", err)
		}
	}

	slog.Info("pipeline run completed",
		"run_id", run.ID,
		"region", region,
		"records", run.RecordCount,
		"anomalies", run.AnomalyCount,
		"frauds", run.FraudCount,
	)

	return run, nil
}

// Records returns the classified records of a run held in memory, or
// false when the run is unknown to this process.
func (s *Service) Records(runID string) ([]domain.ClassifiedRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records, ok := s.runs[runID]
	return records, ok
}

// AdvisoryResult bundles the advisory with its matching evidence.
type AdvisoryResult struct {
	Advisory *domain.AdvisoryRecord `json:"advisory"`
	Match    match.Result           `json:"match"`
	Contact  domain.BranchContact   `json:"contact"`
}

// GenerateAdvisory builds and persists the advisory for one branch
// over a run's classified records. Document parsing and matching
// degrade to defaults; only persistence errors are returned.
func (s *Service) GenerateAdvisory(ctx context.Context, branch string, records []domain.ClassifiedRecord) (*AdvisoryResult, error) {
	rules, doc := s.ruleIndex(ctx)

	matched := match.Result{}
	if rules.Len() > 0 {
		m, err := match.Match(branch, rules)
		if err == nil {
			matched = m
		}
		if matched.Similarity < 0.1 && !matched.Exact {
			slog.Warn("low-confidence region match",
				"branch", branch,
				"matched_region", matched.Region,
				"similarity", matched.Similarity,
			)
		}
	}

	contact := domain.BranchContact{}
	if doc != nil {
		c, err := ruledoc.ExtractContact(doc, branch, s.contactWindow)
		if err != nil {
			slog.Warn("branch contact not found in rule document", "branch", branch)
		}
		contact = c
	}

	adv := s.assembler.Assemble(ctx, advisory.Input{
		Branch:        branch,
		Records:       records,
		Rules:         rules,
		MatchedRegion: matched.Region,
		Contact:       contact,
	})

	if err := s.repo.SaveAdvisory(ctx, adv); err != nil {
		return nil, fmt.Errorf("persist advisory: %w", err)
	}
	if err := s.reports.AppendAdvisory(adv); err != nil {
		slog.Warn("failed to append advisory report", "advisory_id", adv.ID, "error", err)
	}

	branchRecords := aggregate.FilterLocation(records, branch)
	event := domain.AdvisoryEvent{
		AdvisoryID:   adv.ID,
		Branch:       branch,
		Content:      adv.AdvisoryContent,
		FraudTypes:   aggregate.FraudTypeCounts(branchRecords),
		AnomalyCount: aggregate.AnomalyCount(branchRecords),
		TotalCount:   len(branchRecords),
		Contact:      contact,
	}
	if payload, err := json.Marshal(event); err == nil {
		if err := s.bus.Publish(ctx, domain.TopicAdvisoryGenerated, payload); err != nil {
			slog.Warn("failed to publish advisory event", "advisory_id", adv.ID, "error", err)
		}
	}

	return &AdvisoryResult{Advisory: adv, Match: matched, Contact: contact}, nil
}

// RegionSummary generates the executive region summary over a run.
func (s *Service) RegionSummary(ctx context.Context, region string, records []domain.ClassifiedRecord) (string, error) {
	return s.summarizer.RegionSummary(ctx, region, records)
}

// DeviceSummary generates the device risk summary over a run.
func (s *Service) DeviceSummary(ctx context.Context, records []domain.ClassifiedRecord) (string, error) {
	return s.summarizer.DeviceSummary(ctx, records)
}

// ruleIndex loads and parses the rule document, consulting the cache
// by content fingerprint first. Any failure degrades to an empty rule
// set: the advisory still goes out, without matched rules.
func (s *Service) ruleIndex(ctx context.Context) (*domain.RegionRuleSet, *ruledoc.Document) {
	doc, err := ruledoc.LoadDocument(s.ruleDocPath)
	if err != nil {
		slog.Warn("rule document unavailable", "path", s.ruleDocPath, "error", err)
		return domain.NewRegionRuleSet(), nil
	}

	fingerprint := doc.Fingerprint()
	if cached, err := s.cache.GetRuleIndex(ctx, fingerprint); err == nil && cached != nil {
		return cached, doc
	}

	rules, _, err := ruledoc.Parse(doc)
	if err != nil {
		slog.Warn("rule document has no region headings", "path", s.ruleDocPath)
	}
	if rules.Len() > 0 {
		if err := s.cache.SetRuleIndex(ctx, fingerprint, rules, ruleIndexTTL); err != nil {
			slog.Debug("failed to cache rule index", "error", err)
		}
	}
	return rules, doc
}
