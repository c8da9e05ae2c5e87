package model

import (
	"fmt"

	"github.com/opensource-finance/harrier/internal/domain"
)

// LinearClassifier is the exported form of the multi-class fraud
// predictor: one weight row plus intercept per class over the encoded
// feature vector. Prediction is the argmax class score. Class index 0
// is the designated non-fraud class.
type LinearClassifier struct {
	Version    string      `json:"version"`
	Weights    [][]float64 `json:"weights"`
	Intercepts []float64   `json:"intercepts"`
}

// LoadClassifier loads the fraud classifier artifact from path.
func LoadClassifier(path string) (*LinearClassifier, error) {
	var c LinearClassifier
	if err := readArtifact(path, &c); err != nil {
		return nil, err
	}
	if len(c.Weights) == 0 || len(c.Weights) != len(c.Intercepts) {
		return nil, fmt.Errorf("%w: classifier weight/intercept shapes disagree (%d classes, %d intercepts)",
			domain.ErrArtifactUnavailable, len(c.Weights), len(c.Intercepts))
	}
	width := len(c.Weights[0])
	for i, row := range c.Weights {
		if len(row) != width {
			return nil, fmt.Errorf("%w: classifier weight row %d has width %d, want %d",
				domain.ErrArtifactUnavailable, i, len(row), width)
		}
	}
	return &c, nil
}

// PredictClass scores every class and returns the argmax index. Ties
// resolve to the lowest class index.
func (c *LinearClassifier) PredictClass(vector []float64) (int, error) {
	if len(vector) != len(c.Weights[0]) {
		return 0, fmt.Errorf("encoded vector has width %d, classifier expects %d",
			len(vector), len(c.Weights[0]))
	}

	best := 0
	bestScore := c.score(0, vector)
	for class := 1; class < len(c.Weights); class++ {
		if s := c.score(class, vector); s > bestScore {
			best = class
			bestScore = s
		}
	}
	return best, nil
}

func (c *LinearClassifier) score(class int, vector []float64) float64 {
	s := c.Intercepts[class]
	for i, w := range c.Weights[class] {
		s += w * vector[i]
	}
	return s
}
