// Benchmark tool for testing Harrier's model artifacts against labeled
// fraud data.
//
// Usage:
//   go run cmd/benchmark/main.go -csv /path/to/labeled.csv -models ./models
//
// This tool:
//   1. Reads a region transaction CSV that carries an is_fraud label column
//   2. Runs the offline scoring and classification stages over it
//   3. Compares predictions with the actual fraud labels
//   4. Calculates precision, recall, F1-score, and confusion matrix
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/opensource-finance/harrier/internal/classify"
	"github.com/opensource-finance/harrier/internal/dataset"
	"github.com/opensource-finance/harrier/internal/model"
	"github.com/opensource-finance/harrier/internal/scoring"
)

// Metrics tracks benchmark results.
type Metrics struct {
	TruePositives  int // Fraud predicted as fraud
	FalsePositives int // Non-fraud predicted as fraud
	TrueNegatives  int // Non-fraud predicted as non-fraud
	FalseNegatives int // Fraud predicted as non-fraud (missed fraud!)

	TotalProcessed int
	TotalFraud     int
	TotalNonFraud  int
	AnomalyCount   int
}

func (m *Metrics) Precision() float64 {
	denom := m.TruePositives + m.FalsePositives
	if denom == 0 {
		return 0
	}
	return float64(m.TruePositives) / float64(denom)
}

func (m *Metrics) Recall() float64 {
	denom := m.TruePositives + m.FalseNegatives
	if denom == 0 {
		return 0
	}
	return float64(m.TruePositives) / float64(denom)
}

func (m *Metrics) F1() float64 {
	p, r := m.Precision(), m.Recall()
	if p+r == 0 {
		return 0
	}
	return 2 * p * r / (p + r)
}

func main() {
	csvPath := flag.String("csv", "", "path to labeled region transaction CSV")
	modelsDir := flag.String("models", "./models", "path to model artifact directory")
	flag.Parse()

	if *csvPath == "" {
		fmt.Fprintln(os.Stderr, "usage: benchmark -csv /path/to/labeled.csv [-models ./models]")
		os.Exit(1)
	}

	artifacts, err := model.LoadArtifacts(*modelsDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load model artifacts: %v\n", err)
		os.Exit(1)
	}

	records, err := dataset.Load(*csvPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load dataset: %v\n", err)
		os.Exit(1)
	}

	labels, err := loadLabels(*csvPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read fraud labels: %v\n", err)
		os.Exit(1)
	}

	start := time.Now()

	scorer := scoring.NewScorer(artifacts.Anomaly)
	scored, err := scorer.Score(records)
	if err != nil {
		fmt.Fprintf(os.Stderr, "anomaly scoring failed: %v\n", err)
		os.Exit(1)
	}

	classifier := classify.NewClassifier(artifacts.Encoder, artifacts.Classifier, artifacts.Labels)
	classified, err := classifier.Classify(scored)
	if err != nil {
		fmt.Fprintf(os.Stderr, "classification failed: %v\n", err)
		os.Exit(1)
	}

	var m Metrics
	for i := range classified {
		rec := &classified[i]
		actual, ok := labels[rec.TransactionID]
		if !ok {
			continue
		}

		m.TotalProcessed++
		if rec.IsAnomaly {
			m.AnomalyCount++
		}
		predicted := rec.PredictedFraud == 1

		switch {
		case actual && predicted:
			m.TruePositives++
		case actual && !predicted:
			m.FalseNegatives++
		case !actual && predicted:
			m.FalsePositives++
		default:
			m.TrueNegatives++
		}
		if actual {
			m.TotalFraud++
		} else {
			m.TotalNonFraud++
		}
	}

	elapsed := time.Since(start)

	fmt.Println()
	fmt.Println("=== Harrier Model Benchmark ===")
	fmt.Printf("Dataset:    %s (%d labeled records)\n", *csvPath, m.TotalProcessed)
	fmt.Printf("Artifacts:  %s\n", *modelsDir)
	fmt.Printf("Elapsed:    %s\n", elapsed.Round(time.Millisecond))
	fmt.Println()
	fmt.Printf("Actual fraud:     %d\n", m.TotalFraud)
	fmt.Printf("Actual non-fraud: %d\n", m.TotalNonFraud)
	fmt.Printf("Anomalies:        %d\n", m.AnomalyCount)
	fmt.Println()
	fmt.Println("Confusion matrix:")
	fmt.Printf("  TP: %-6d FP: %d\n", m.TruePositives, m.FalsePositives)
	fmt.Printf("  FN: %-6d TN: %d\n", m.FalseNegatives, m.TrueNegatives)
	fmt.Println()
	fmt.Printf("Precision: %.4f\n", m.Precision())
	fmt.Printf("Recall:    %.4f\n", m.Recall())
	fmt.Printf("F1-score:  %.4f\n", m.F1())
	fmt.Println()
}

// loadLabels reads the is_fraud column keyed by transaction_id. The
// label column is benchmark-only and ignored by the pipeline loader.
func loadLabels(path string) (map[string]bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, err
	}

	idIdx, labelIdx := -1, -1
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "transaction_id":
			idIdx = i
		case "is_fraud":
			labelIdx = i
		}
	}
	if idIdx < 0 || labelIdx < 0 {
		return nil, fmt.Errorf("dataset needs transaction_id and is_fraud columns")
	}

	labels := make(map[string]bool)
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if idIdx >= len(row) || labelIdx >= len(row) {
			continue
		}
		v := strings.TrimSpace(row[labelIdx])
		labels[strings.TrimSpace(row[idIdx])] = v == "1" || strings.EqualFold(v, "true")
	}
	return labels, nil
}
