package model

import (
	"fmt"

	"github.com/opensource-finance/harrier/internal/domain"
)

// QuantileFenceModel is the exported form of the one-class outlier
// model fit on transaction amounts. Training stores contamination
// quantile fences; an amount outside [Lower, Upper] is an outlier.
type QuantileFenceModel struct {
	Version string  `json:"version"`
	Feature string  `json:"feature"`
	Lower   float64 `json:"lower"`
	Upper   float64 `json:"upper"`
}

// LoadAnomalyModel loads the outlier model artifact from path.
func LoadAnomalyModel(path string) (*QuantileFenceModel, error) {
	var m QuantileFenceModel
	if err := readArtifact(path, &m); err != nil {
		return nil, err
	}
	if m.Upper < m.Lower {
		return nil, fmt.Errorf("%w: anomaly model fences are inverted (lower=%v upper=%v)",
			domain.ErrArtifactUnavailable, m.Lower, m.Upper)
	}
	return &m, nil
}

// PredictOutliers classifies each amount against the fitted fences.
func (m *QuantileFenceModel) PredictOutliers(amounts []float64) ([]bool, error) {
	if len(amounts) == 0 {
		return nil, domain.ErrEmptyInput
	}
	out := make([]bool, len(amounts))
	for i, a := range amounts {
		out[i] = a < m.Lower || a > m.Upper
	}
	return out, nil
}
