package model

import (
	"fmt"

	"github.com/opensource-finance/harrier/internal/domain"
)

// OneHotEncoder is the exported form of the fitted feature encoder:
// one-hot blocks for each categorical feature in training order,
// followed by the raw amount. It must match the encoder used when the
// classifier was fit, or predictions are meaningless.
type OneHotEncoder struct {
	Version string `json:"version"`

	// Categories maps each categorical feature to its fitted category
	// list; a category's index is its position in the list.
	Categories map[string][]string `json:"categories"`

	// FeatureOrder is the training-time order of categorical features.
	FeatureOrder []string `json:"featureOrder"`

	index map[string]map[string]int
}

// Categorical features consumed by the classifier.
const (
	FeatureTxnType      = "txn_type"
	FeatureDeviceType   = "device_type"
	FeatureStatus       = "status"
	FeatureCustomerType = "customer_type"
)

// LoadEncoder loads the encoder artifact from path.
func LoadEncoder(path string) (*OneHotEncoder, error) {
	var e OneHotEncoder
	if err := readArtifact(path, &e); err != nil {
		return nil, err
	}
	if len(e.FeatureOrder) == 0 {
		return nil, fmt.Errorf("%w: encoder has no feature order", domain.ErrArtifactUnavailable)
	}
	for _, feature := range e.FeatureOrder {
		if len(e.Categories[feature]) == 0 {
			return nil, fmt.Errorf("%w: encoder has no categories for feature %q",
				domain.ErrArtifactUnavailable, feature)
		}
	}
	e.buildIndex()
	return &e, nil
}

func (e *OneHotEncoder) buildIndex() {
	e.index = make(map[string]map[string]int, len(e.Categories))
	for feature, cats := range e.Categories {
		m := make(map[string]int, len(cats))
		for i, c := range cats {
			m[c] = i
		}
		e.index[feature] = m
	}
}

// Transform encodes one observation. An unseen category leaves its
// one-hot block all zero: the unknown representation, never an error.
func (e *OneHotEncoder) Transform(row domain.FeatureRow) []float64 {
	vec := make([]float64, 0, e.Width())
	values := map[string]string{
		FeatureTxnType:      impute(row.TxnType),
		FeatureDeviceType:   impute(row.DeviceType),
		FeatureStatus:       impute(row.Status),
		FeatureCustomerType: impute(row.CustomerType),
	}
	for _, feature := range e.FeatureOrder {
		cats := e.Categories[feature]
		block := make([]float64, len(cats))
		if i, ok := e.index[feature][values[feature]]; ok {
			block[i] = 1
		}
		vec = append(vec, block...)
	}
	return append(vec, row.Amount)
}

// Width is the encoded vector length: all one-hot blocks plus amount.
func (e *OneHotEncoder) Width() int {
	w := 1
	for _, feature := range e.FeatureOrder {
		w += len(e.Categories[feature])
	}
	return w
}

func impute(v string) string {
	if v == "" {
		return domain.UnknownCategory
	}
	return v
}
