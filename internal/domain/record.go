// Package domain defines the core interfaces and types for Harrier.
package domain

import "math"

// TransactionRecord is one row of a region's transaction dataset.
// Fields are immutable once loaded; derived columns live on the
// wrapping Scored/Classified types.
type TransactionRecord struct {
	TransactionID string  `json:"transactionId"`
	Timestamp     string  `json:"timestamp"`
	Amount        float64 `json:"amount"` // NaN when the source cell was empty
	TxnType       string  `json:"txnType"`
	DeviceType    string  `json:"deviceType"`
	Status        string  `json:"status"`
	CustomerType  string  `json:"customerType"`
	Location      string  `json:"location"`
	BranchCode    string  `json:"branchCode"`
	Region        string  `json:"region"`
}

// HasAmount reports whether the amount was present in the source data.
func (r *TransactionRecord) HasAmount() bool {
	return !math.IsNaN(r.Amount)
}

// ScoredRecord is a TransactionRecord plus the anomaly flag produced
// by the outlier model. One-to-one with its input record.
type ScoredRecord struct {
	TransactionRecord
	IsAnomaly bool `json:"isAnomaly"`
}

// ClassifiedRecord is a ScoredRecord plus the fraud prediction.
// FraudType is always populated by the label decoder, but is only
// meaningful when PredictedFraud is 1.
type ClassifiedRecord struct {
	ScoredRecord
	PredictedFraud int    `json:"predictedFraud"` // 0 or 1
	FraudType      string `json:"fraudType"`
}

// FraudSummary maps a branch identifier to its fraudulent-record count.
// Recomputed on demand, never persisted as a standalone entity.
type FraudSummary map[string]int

// Total returns the sum of all branch counts.
func (s FraudSummary) Total() int {
	total := 0
	for _, n := range s {
		total += n
	}
	return total
}
