// Package report writes the pipeline's write-only CSV artifacts:
// scored records, classified records, and the advisory log. Nothing in
// the pipeline consumes these back.
package report

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/opensource-finance/harrier/internal/domain"
)

// Artifact file names inside the reports directory.
const (
	ScoredFile     = "anomaly_output.csv"
	ClassifiedFile = "classified_frauds.csv"
	AdvisoryFile   = "fraud_action_advice.csv"
)

// Writer persists report artifacts into a directory, created on first
// use.
type Writer struct {
	dir string
}

// NewWriter creates a report writer for dir.
func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

// WriteScored writes the scored-record artifact.
func (w *Writer) WriteScored(records []domain.ScoredRecord) error {
	header := append(recordHeader(), "is_anomaly")
	rows := make([][]string, 0, len(records))
	for i := range records {
		rows = append(rows, append(recordRow(&records[i].TransactionRecord),
			strconv.FormatBool(records[i].IsAnomaly)))
	}
	return w.writeCSV(ScoredFile, header, rows)
}

// WriteClassified writes the classified-record artifact.
func (w *Writer) WriteClassified(records []domain.ClassifiedRecord) error {
	header := append(recordHeader(), "is_anomaly", "predicted_fraud", "fraud_type")
	rows := make([][]string, 0, len(records))
	for i := range records {
		r := &records[i]
		rows = append(rows, append(recordRow(&r.TransactionRecord),
			strconv.FormatBool(r.IsAnomaly),
			strconv.Itoa(r.PredictedFraud),
			r.FraudType))
	}
	return w.writeCSV(ClassifiedFile, header, rows)
}

// AppendAdvisory appends one advisory record to the advisory log,
// writing the header when the file is new.
func (w *Writer) AppendAdvisory(adv *domain.AdvisoryRecord) error {
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return fmt.Errorf("failed to create reports directory: %w", err)
	}

	path := filepath.Join(w.dir, AdvisoryFile)
	info, statErr := os.Stat(path)
	writeHeader := statErr != nil || info.Size() == 0

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open advisory log: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if writeHeader {
		if err := cw.Write([]string{"branch", "region", "advisory_content"}); err != nil {
			return err
		}
	}
	if err := cw.Write([]string{adv.Branch, adv.MatchedRegion, adv.AdvisoryContent}); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

func (w *Writer) writeCSV(name string, header []string, rows [][]string) error {
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return fmt.Errorf("failed to create reports directory: %w", err)
	}

	f, err := os.Create(filepath.Join(w.dir, name))
	if err != nil {
		return fmt.Errorf("failed to create report %s: %w", name, err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, row := range rows {
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func recordHeader() []string {
	return []string{
		"transaction_id", "timestamp", "amount", "txn_type", "device_type",
		"status", "customer_type", "location", "branch_code", "region",
	}
}

func recordRow(r *domain.TransactionRecord) []string {
	amount := ""
	if !math.IsNaN(r.Amount) {
		amount = strconv.FormatFloat(r.Amount, 'f', -1, 64)
	}
	return []string{
		r.TransactionID, r.Timestamp, amount, r.TxnType, r.DeviceType,
		r.Status, r.CustomerType, r.Location, r.BranchCode, r.Region,
	}
}
