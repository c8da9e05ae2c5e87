// Package model loads the pre-fit predictor artifacts consumed by the
// scoring and classification stages. Artifacts are JSON files exported
// by the training pipeline; this package never fits or tunes them.
package model

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/opensource-finance/harrier/internal/domain"
)

// Artifact file names inside the models directory.
const (
	AnomalyModelFile    = "anomaly_model.json"
	EncoderFile         = "encoder.json"
	FraudClassifierFile = "fraud_classifier.json"
	LabelDecoderFile    = "label_decoder.json"
)

// Artifacts bundles every loaded predictor for one pipeline run.
type Artifacts struct {
	Anomaly    domain.AnomalyPredictor
	Encoder    domain.FeatureEncoder
	Classifier domain.FraudPredictor
	Labels     domain.LabelDecoder
}

// LoadArtifacts loads all predictor artifacts from dir. A missing or
// corrupt file is ErrArtifactUnavailable; the caller treats it as
// fatal for the stage needing the artifact.
func LoadArtifacts(dir string) (*Artifacts, error) {
	anomaly, err := LoadAnomalyModel(filepath.Join(dir, AnomalyModelFile))
	if err != nil {
		return nil, err
	}
	encoder, err := LoadEncoder(filepath.Join(dir, EncoderFile))
	if err != nil {
		return nil, err
	}
	classifier, err := LoadClassifier(filepath.Join(dir, FraudClassifierFile))
	if err != nil {
		return nil, err
	}
	labels, err := LoadLabelDecoder(filepath.Join(dir, LabelDecoderFile))
	if err != nil {
		return nil, err
	}
	return &Artifacts{
		Anomaly:    anomaly,
		Encoder:    encoder,
		Classifier: classifier,
		Labels:     labels,
	}, nil
}

func readArtifact(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrArtifactUnavailable, filepath.Base(path), err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %s is corrupt: %v", domain.ErrArtifactUnavailable, filepath.Base(path), err)
	}
	return nil
}
