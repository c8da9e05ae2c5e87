// Package aggregate computes reporting summaries over classified
// records. Every function here is pure: zero fraud records yield empty
// results, never errors.
package aggregate

import (
	"sort"

	"github.com/opensource-finance/harrier/internal/domain"
)

// Summarize groups fraudulent records by branch code and counts them.
// Records with PredictedFraud != 1 are ignored. An empty or fraud-free
// input returns an empty map.
func Summarize(records []domain.ClassifiedRecord) domain.FraudSummary {
	summary := make(domain.FraudSummary)
	for i := range records {
		if records[i].PredictedFraud == 1 {
			summary[records[i].BranchCode]++
		}
	}
	return summary
}

// FraudTypeCounts returns the fraud-type distribution over fraudulent
// records.
func FraudTypeCounts(records []domain.ClassifiedRecord) map[string]int {
	counts := make(map[string]int)
	for i := range records {
		if records[i].PredictedFraud == 1 {
			counts[records[i].FraudType]++
		}
	}
	return counts
}

// DeviceCounts returns the device-type distribution over fraudulent
// records.
func DeviceCounts(records []domain.ClassifiedRecord) map[string]int {
	counts := make(map[string]int)
	for i := range records {
		if records[i].PredictedFraud == 1 {
			counts[records[i].DeviceType]++
		}
	}
	return counts
}

// TxnTypesByDevice returns, per device, the top n transaction types
// observed in fraudulent records.
func TxnTypesByDevice(records []domain.ClassifiedRecord, n int) map[string][]Count {
	perDevice := make(map[string]map[string]int)
	for i := range records {
		if records[i].PredictedFraud != 1 {
			continue
		}
		dev := records[i].DeviceType
		if perDevice[dev] == nil {
			perDevice[dev] = make(map[string]int)
		}
		perDevice[dev][records[i].TxnType]++
	}

	out := make(map[string][]Count, len(perDevice))
	for dev, counts := range perDevice {
		out[dev] = TopN(counts, n)
	}
	return out
}

// TopLocations returns the n locations with the highest fraud counts.
func TopLocations(records []domain.ClassifiedRecord, n int) []Count {
	counts := make(map[string]int)
	for i := range records {
		if records[i].PredictedFraud == 1 {
			counts[records[i].Location]++
		}
	}
	return TopN(counts, n)
}

// AnomalyCount returns the number of records flagged by the outlier
// model.
func AnomalyCount(records []domain.ClassifiedRecord) int {
	n := 0
	for i := range records {
		if records[i].IsAnomaly {
			n++
		}
	}
	return n
}

// FilterFraud returns only the records with PredictedFraud == 1.
func FilterFraud(records []domain.ClassifiedRecord) []domain.ClassifiedRecord {
	var fraud []domain.ClassifiedRecord
	for i := range records {
		if records[i].PredictedFraud == 1 {
			fraud = append(fraud, records[i])
		}
	}
	return fraud
}

// FilterLocation returns only the records for a location. An unknown
// location yields an empty slice.
func FilterLocation(records []domain.ClassifiedRecord, location string) []domain.ClassifiedRecord {
	var out []domain.ClassifiedRecord
	for i := range records {
		if records[i].Location == location {
			out = append(out, records[i])
		}
	}
	return out
}

// Count is a key with its occurrence count.
type Count struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// TopN returns the n largest entries of counts, ordered by descending
// count with key order breaking ties deterministically.
func TopN(counts map[string]int, n int) []Count {
	out := make([]Count, 0, len(counts))
	for k, v := range counts {
		out = append(out, Count{Key: k, Count: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
