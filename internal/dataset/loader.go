// Package dataset loads region transaction datasets into memory.
package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/opensource-finance/harrier/internal/domain"
)

// Columns expected in a region transaction CSV, in any order.
var requiredColumns = []string{
	"transaction_id", "timestamp", "amount", "txn_type", "device_type",
	"status", "customer_type", "location", "branch_code", "region",
}

// Load reads a region transaction CSV from path.
func Load(path string) ([]domain.TransactionRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset %s: %w", path, err)
	}
	defer f.Close()

	return Read(f)
}

// Read parses a region transaction CSV. The header row is validated
// against the required column set; rows with a missing amount get NaN
// (imputed downstream), missing categoricals stay empty until the
// consuming stage applies its sentinel.
func Read(r io.Reader) ([]domain.TransactionRecord, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: dataset is empty", domain.ErrEmptyInput)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset header: %w", err)
	}

	idx, err := columnIndex(header)
	if err != nil {
		return nil, err
	}

	var records []domain.TransactionRecord
	line := 1
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("failed to read dataset row %d: %w", line, err)
		}

		rec := domain.TransactionRecord{
			TransactionID: field(row, idx, "transaction_id"),
			Timestamp:     field(row, idx, "timestamp"),
			Amount:        parseAmount(field(row, idx, "amount")),
			TxnType:       field(row, idx, "txn_type"),
			DeviceType:    field(row, idx, "device_type"),
			Status:        field(row, idx, "status"),
			CustomerType:  field(row, idx, "customer_type"),
			Location:      field(row, idx, "location"),
			BranchCode:    field(row, idx, "branch_code"),
			Region:        field(row, idx, "region"),
		}
		if rec.TransactionID == "" {
			return nil, fmt.Errorf("dataset row %d: transaction_id is required", line)
		}
		records = append(records, rec)
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("%w: dataset has a header but no rows", domain.ErrEmptyInput)
	}

	return records, nil
}

// MedianAmount returns the median over records that have an amount.
// Returns 0 when no record carries one.
func MedianAmount(records []domain.TransactionRecord) float64 {
	var amounts []float64
	for i := range records {
		if records[i].HasAmount() {
			amounts = append(amounts, records[i].Amount)
		}
	}
	if len(amounts) == 0 {
		return 0
	}
	return median(amounts)
}

func median(values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func columnIndex(header []string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, col := range requiredColumns {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("dataset is missing required column %q", col)
		}
	}
	return idx, nil
}

func field(row []string, idx map[string]int, col string) string {
	i := idx[col]
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func parseAmount(s string) float64 {
	if s == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}
