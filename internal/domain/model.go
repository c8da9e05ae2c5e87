package domain

import "context"

// FeatureRow holds the classifier's input features for one record.
// Categorical fields are imputed with the Unknown sentinel before
// encoding; the amount is median-imputed.
type FeatureRow struct {
	TxnType      string
	DeviceType   string
	Status       string
	CustomerType string
	Amount       float64
}

// UnknownCategory is the sentinel value substituted for missing
// categorical features, matching the value used at training time.
const UnknownCategory = "Unknown"

// AnomalyPredictor is a pre-fit one-class outlier model over the
// amount feature. Implementations are opaque artifacts; the pipeline
// never trains or tunes them.
type AnomalyPredictor interface {
	// PredictOutliers returns, for each amount, whether the model
	// classifies it as an outlier.
	PredictOutliers(amounts []float64) ([]bool, error)
}

// FeatureEncoder maps a FeatureRow to the numeric vector the fraud
// predictor was fit on. Encoding an unseen category must not fail; it
// maps to the unknown representation.
type FeatureEncoder interface {
	Transform(row FeatureRow) []float64

	// Width is the length of vectors produced by Transform.
	Width() int
}

// FraudPredictor is a pre-fit multi-class model over encoded feature
// vectors. Class index 0 is the designated non-fraud class.
type FraudPredictor interface {
	PredictClass(vector []float64) (int, error)
}

// LabelDecoder maps predicted class indexes back to fraud-type labels.
// Decoder output is never empty for a valid index.
type LabelDecoder interface {
	InverseTransform(classIndex int) (string, error)
	Labels() []string
}

// TextGenerator is the external text-generation collaborator. It takes
// a structured prompt and returns free-form advisory text; callers
// must handle both errors and empty output.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// MailSender delivers a composed advisory message. Transport mechanics
// beyond the message contract are outside the pipeline.
type MailSender interface {
	Send(ctx context.Context, msg *MailMessage) error
}
