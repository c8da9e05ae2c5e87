// Package scoring applies the pre-fit outlier model to transaction
// records.
package scoring

import (
	"fmt"

	"github.com/opensource-finance/harrier/internal/dataset"
	"github.com/opensource-finance/harrier/internal/domain"
)

// Scorer flags anomalous records using a pre-fit one-class outlier
// predictor. The predictor is injected at construction so tests can
// substitute a double.
type Scorer struct {
	predictor domain.AnomalyPredictor
}

// NewScorer creates a scorer around a loaded outlier model.
func NewScorer(predictor domain.AnomalyPredictor) *Scorer {
	return &Scorer{predictor: predictor}
}

// Score appends the anomaly flag to every record. Missing amounts are
// imputed with the dataset median before prediction. A predictor
// failure aborts the whole stage; there is no partial scoring.
func (s *Scorer) Score(records []domain.TransactionRecord) ([]domain.ScoredRecord, error) {
	if len(records) == 0 {
		return nil, domain.ErrEmptyInput
	}
	if s.predictor == nil {
		return nil, fmt.Errorf("%w: anomaly predictor not loaded", domain.ErrArtifactUnavailable)
	}

	med := dataset.MedianAmount(records)
	amounts := make([]float64, len(records))
	for i := range records {
		if records[i].HasAmount() {
			amounts[i] = records[i].Amount
		} else {
			amounts[i] = med
		}
	}

	outliers, err := s.predictor.PredictOutliers(amounts)
	if err != nil {
		return nil, fmt.Errorf("anomaly scoring failed: %w", err)
	}
	if len(outliers) != len(records) {
		return nil, fmt.Errorf("anomaly predictor returned %d flags for %d records", len(outliers), len(records))
	}

	scored := make([]domain.ScoredRecord, len(records))
	for i := range records {
		scored[i] = domain.ScoredRecord{
			TransactionRecord: records[i],
			IsAnomaly:         outliers[i],
		}
	}
	return scored, nil
}
