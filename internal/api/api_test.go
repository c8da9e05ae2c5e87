package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/opensource-finance/harrier/internal/bus"
	"github.com/opensource-finance/harrier/internal/cache"
	"github.com/opensource-finance/harrier/internal/domain"
	"github.com/opensource-finance/harrier/internal/model"
	"github.com/opensource-finance/harrier/internal/pipeline"
	"github.com/opensource-finance/harrier/internal/report"
	"github.com/opensource-finance/harrier/internal/repository"
	"github.com/opensource-finance/harrier/internal/textgen"
)

const testCSV = `transaction_id,timestamp,amount,txn_type,device_type,status,customer_type,location,branch_code,region
T1,2025-01-01T10:00:00,50,Withdrawal,ATM,Success,Retail,Nagpur,BR9,Maharashtra
T2,2025-01-01T10:05:00,5000,Transfer,Mobile,Success,Retail,Mumbai Central,BR1,Maharashtra
T3,2025-01-01T10:10:00,20000,Transfer,Mobile,Success,Corporate,Mumbai Central,BR1,Maharashtra
T4,2025-01-01T10:15:00,200,Withdrawal,ATM,Success,Retail,Pune West,BR2,Maharashtra
`

const testRuleDoc = `MAHARASHTRA

report upi fraud to the regional desk within 24 hours.

Mumbai Central Zone

verify high-value transfers with a second factor.
name: A. Rao
role: Branch Fraud Officer
sla: 24 hours
escalate to a.rao@bank.example.com promptly.
`

func writeTestFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()

	modelsDir := t.TempDir()
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
		if err := os.WriteFile(filepath.Join(modelsDir, name), []byte(content), 0644); err != nil {
			t.Fatalf("failed to write artifact %s: %v", name, err)
		}
	}
	loaded, err := model.LoadArtifacts(modelsDir)
	if err != nil {
		t.Fatalf("LoadArtifacts failed: %v", err)
	}

	repo, err := repository.New(domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "api.db"),
	})
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	b := bus.NewChannelBus(10)
	t.Cleanup(func() { b.Close() })
	c := cache.NewLRUCache(10)

	svc := pipeline.NewService(loaded, textgen.NewStaticGenerator(), repo, c, b,
		report.NewWriter(t.TempDir()),
		domain.RuleDocConfig{
			Path:          writeTestFile(t, "branch_rules.txt", testRuleDoc),
			ContactWindow: 600,
		})

	srv := NewServer(domain.ServerConfig{Host: "127.0.0.1", Port: 0}, svc, repo, c, b, "test")
	return srv, writeTestFile(t, "maharashtra.csv", testCSV)
}

func doJSON(t *testing.T, srv *Server, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
}

func startRun(t *testing.T, srv *Server, csvPath string) *domain.PipelineRun {
	t.Helper()
	w := doJSON(t, srv, http.MethodPost, "/runs", RunRequest{Region: "Maharashtra", SourceFile: csvPath})
	if w.Code != http.StatusOK {
		t.Fatalf("POST /runs = %d: %s", w.Code, w.Body.String())
	}
	var run domain.PipelineRun
	decodeBody(t, w, &run)
	return &run
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	w := doJSON(t, srv, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /health = %d", w.Code)
	}
	var body map[string]string
	decodeBody(t, w, &body)
	if body["status"] != "healthy" {
		t.Errorf("status = %q, want healthy", body["status"])
	}
	if body["version"] != "test" {
		t.Errorf("version = %q", body["version"])
	}

	if w := doJSON(t, srv, http.MethodGet, "/ready", nil); w.Code != http.StatusOK {
		t.Errorf("GET /ready = %d", w.Code)
	}
}

func TestRunPipelineEndpoint(t *testing.T) {
	srv, csvPath := newTestServer(t)

	run := startRun(t, srv, csvPath)
	if run.RecordCount != 4 || run.FraudCount != 2 {
		t.Errorf("run counts = (%d, %d), want (4, 2)", run.RecordCount, run.FraudCount)
	}

	w := doJSON(t, srv, http.MethodGet, "/runs/"+run.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /runs/{id} = %d", w.Code)
	}
	var got domain.PipelineRun
	decodeBody(t, w, &got)
	if got.ID != run.ID || got.Region != "Maharashtra" {
		t.Errorf("got run %+v", got)
	}

	w = doJSON(t, srv, http.MethodGet, "/runs?region=Maharashtra", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /runs = %d", w.Code)
	}
	var list struct {
		Runs  []domain.PipelineRun `json:"runs"`
		Count int                  `json:"count"`
	}
	decodeBody(t, w, &list)
	if list.Count != 1 || len(list.Runs) != 1 {
		t.Errorf("list = %+v", list)
	}
}

func TestRunPipelineValidation(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/runs", strings.NewReader("{not json"))
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("malformed JSON = %d, want 400", w.Code)
	}

	if w := doJSON(t, srv, http.MethodPost, "/runs", RunRequest{SourceFile: "/x.csv"}); w.Code != http.StatusBadRequest {
		t.Errorf("missing region = %d, want 400", w.Code)
	}
	if w := doJSON(t, srv, http.MethodPost, "/runs", RunRequest{Region: "Maharashtra"}); w.Code != http.StatusBadRequest {
		t.Errorf("missing sourceFile = %d, want 400", w.Code)
	}
}

func TestRunPipelineEmptyDataset(t *testing.T) {
	srv, _ := newTestServer(t)
	empty := writeTestFile(t, "empty.csv", "")

	w := doJSON(t, srv, http.MethodPost, "/runs", RunRequest{Region: "Maharashtra", SourceFile: empty})
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("empty dataset = %d, want 422", w.Code)
	}
}

func TestGetRunNotFound(t *testing.T) {
	srv, _ := newTestServer(t)

	if w := doJSON(t, srv, http.MethodGet, "/runs/missing", nil); w.Code != http.StatusNotFound {
		t.Errorf("GET /runs/missing = %d, want 404", w.Code)
	}
}

func TestAdvisoryEndpoint(t *testing.T) {
	srv, csvPath := newTestServer(t)
	run := startRun(t, srv, csvPath)

	w := doJSON(t, srv, http.MethodPost, "/advisories",
		AdvisoryRequest{RunID: run.ID, Branch: "Mumbai Central"})
	if w.Code != http.StatusOK {
		t.Fatalf("POST /advisories = %d: %s", w.Code, w.Body.String())
	}
	var result pipeline.AdvisoryResult
	decodeBody(t, w, &result)
	if result.Advisory == nil || result.Advisory.Failed() {
		t.Fatalf("advisory = %+v", result.Advisory)
	}
	if result.Match.Region != "Mumbai Central Zone" {
		t.Errorf("matched region = %q", result.Match.Region)
	}
	if result.Contact.Email != "a.rao@bank.example.com" {
		t.Errorf("contact = %+v", result.Contact)
	}

	w = doJSON(t, srv, http.MethodGet, "/advisories/Mumbai%20Central", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /advisories/{branch} = %d", w.Code)
	}
	var adv domain.AdvisoryRecord
	decodeBody(t, w, &adv)
	if adv.ID != result.Advisory.ID {
		t.Errorf("latest advisory = %q, want %q", adv.ID, result.Advisory.ID)
	}

	w = doJSON(t, srv, http.MethodGet, "/advisories/Mumbai%20Central/dispatches", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("GET dispatches = %d", w.Code)
	}
	var dispatches struct {
		Count int `json:"count"`
	}
	decodeBody(t, w, &dispatches)
	if dispatches.Count != 0 {
		t.Errorf("dispatch count = %d, want 0 without a worker", dispatches.Count)
	}
}

func TestAdvisoryUnknownRun(t *testing.T) {
	srv, _ := newTestServer(t)

	w := doJSON(t, srv, http.MethodPost, "/advisories",
		AdvisoryRequest{RunID: "unknown", Branch: "Mumbai Central"})
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown run = %d, want 404", w.Code)
	}

	if w := doJSON(t, srv, http.MethodPost, "/advisories", AdvisoryRequest{}); w.Code != http.StatusBadRequest {
		t.Errorf("missing fields = %d, want 400", w.Code)
	}
}

func TestAdvisoryNotFound(t *testing.T) {
	srv, _ := newTestServer(t)

	if w := doJSON(t, srv, http.MethodGet, "/advisories/Nowhere", nil); w.Code != http.StatusNotFound {
		t.Errorf("GET /advisories/Nowhere = %d, want 404", w.Code)
	}
}

func TestSummaryEndpoints(t *testing.T) {
	srv, csvPath := newTestServer(t)
	run := startRun(t, srv, csvPath)

	w := doJSON(t, srv, http.MethodGet, "/summaries/region/Maharashtra?runId="+run.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("region summary = %d: %s", w.Code, w.Body.String())
	}
	var region map[string]string
	decodeBody(t, w, &region)
	if region["summary"] == "" {
		t.Error("expected a non-empty region summary")
	}

	w = doJSON(t, srv, http.MethodGet, "/summaries/devices?runId="+run.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("device summary = %d", w.Code)
	}

	if w := doJSON(t, srv, http.MethodGet, "/summaries/devices", nil); w.Code != http.StatusBadRequest {
		t.Errorf("missing runId = %d, want 400", w.Code)
	}
	if w := doJSON(t, srv, http.MethodGet, "/summaries/devices?runId=unknown", nil); w.Code != http.StatusNotFound {
		t.Errorf("unknown runId = %d, want 404", w.Code)
	}
}
