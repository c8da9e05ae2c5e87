package model

import (
	"fmt"

	"github.com/opensource-finance/harrier/internal/domain"
)

// LabelTable is the exported form of the fitted label decoder: the
// class-index-to-label mapping. Index 0 is the non-fraud label.
type LabelTable struct {
	Version string   `json:"version"`
	Classes []string `json:"classes"`
}

// LoadLabelDecoder loads the label decoder artifact from path.
func LoadLabelDecoder(path string) (*LabelTable, error) {
	var t LabelTable
	if err := readArtifact(path, &t); err != nil {
		return nil, err
	}
	if len(t.Classes) == 0 {
		return nil, fmt.Errorf("%w: label decoder has no classes", domain.ErrArtifactUnavailable)
	}
	for i, label := range t.Classes {
		if label == "" {
			return nil, fmt.Errorf("%w: label decoder class %d is empty", domain.ErrArtifactUnavailable, i)
		}
	}
	return &t, nil
}

// InverseTransform maps a class index back to its fraud-type label.
func (t *LabelTable) InverseTransform(classIndex int) (string, error) {
	if classIndex < 0 || classIndex >= len(t.Classes) {
		return "", fmt.Errorf("class index %d outside label space of %d classes", classIndex, len(t.Classes))
	}
	return t.Classes[classIndex], nil
}

// Labels returns the full fitted label set in class-index order.
func (t *LabelTable) Labels() []string {
	out := make([]string, len(t.Classes))
	copy(out, t.Classes)
	return out
}
