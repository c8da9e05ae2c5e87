// Package classify applies the pre-fit fraud classifier to scored
// records.
package classify

import (
	"fmt"
	"sort"

	"github.com/opensource-finance/harrier/internal/domain"
)

// Classifier derives the binary fraud flag and fraud-type label for
// each record using the fitted encoder, multi-class predictor and
// label decoder. All three are injected at construction.
type Classifier struct {
	encoder   domain.FeatureEncoder
	predictor domain.FraudPredictor
	labels    domain.LabelDecoder
}

// NewClassifier creates a classifier around loaded artifacts.
func NewClassifier(encoder domain.FeatureEncoder, predictor domain.FraudPredictor, labels domain.LabelDecoder) *Classifier {
	return &Classifier{
		encoder:   encoder,
		predictor: predictor,
		labels:    labels,
	}
}

// Classify appends the fraud prediction to every record. PredictedFraud
// is 1 exactly when the predicted class index is not the non-fraud
// class 0; downstream consumers filter on that flag. FraudType is
// always populated from the label decoder. Artifact absence is fatal;
// unseen categories are not (the encoder degrades them to the unknown
// representation).
func (c *Classifier) Classify(records []domain.ScoredRecord) ([]domain.ClassifiedRecord, error) {
	if len(records) == 0 {
		return nil, domain.ErrEmptyInput
	}
	if c.encoder == nil || c.predictor == nil || c.labels == nil {
		return nil, fmt.Errorf("%w: classifier artifacts not loaded", domain.ErrArtifactUnavailable)
	}

	med := medianAmount(records)

	classified := make([]domain.ClassifiedRecord, len(records))
	for i := range records {
		row := featureRow(&records[i].TransactionRecord, med)

		class, err := c.predictor.PredictClass(c.encoder.Transform(row))
		if err != nil {
			return nil, fmt.Errorf("fraud classification failed at record %s: %w",
				records[i].TransactionID, err)
		}

		label, err := c.labels.InverseTransform(class)
		if err != nil {
			return nil, fmt.Errorf("label decoding failed at record %s: %w",
				records[i].TransactionID, err)
		}

		predicted := 0
		if class != 0 {
			predicted = 1
		}

		classified[i] = domain.ClassifiedRecord{
			ScoredRecord:   records[i],
			PredictedFraud: predicted,
			FraudType:      label,
		}
	}
	return classified, nil
}

func featureRow(rec *domain.TransactionRecord, medianAmount float64) domain.FeatureRow {
	amount := rec.Amount
	if !rec.HasAmount() {
		amount = medianAmount
	}
	return domain.FeatureRow{
		TxnType:      rec.TxnType,
		DeviceType:   rec.DeviceType,
		Status:       rec.Status,
		CustomerType: rec.CustomerType,
		Amount:       amount,
	}
}

func medianAmount(records []domain.ScoredRecord) float64 {
	var amounts []float64
	for i := range records {
		if records[i].HasAmount() {
			amounts = append(amounts, records[i].Amount)
		}
	}
	if len(amounts) == 0 {
		return 0
	}
	sort.Float64s(amounts)
	n := len(amounts)
	if n%2 == 1 {
		return amounts[n/2]
	}
	return (amounts[n/2-1] + amounts[n/2]) / 2
}
