package domain

import "errors"

// Error taxonomy for the pipeline. Scoring and classification failures
// are fatal to a run; document parsing and matching degrade to empty
// defaults; external-service failures are caught at the boundary and
// turned into reported text.
var (
	// ErrArtifactUnavailable marks a missing or corrupt model, encoder
	// or decoder artifact. Fatal to the stage that needs it.
	ErrArtifactUnavailable = errors.New("model artifact unavailable")

	// ErrEmptyInput marks a call with no records to process where the
	// operation requires at least one.
	ErrEmptyInput = errors.New("no records to process")

	// ErrDocumentIncomplete marks heading heuristics that found no
	// headings, or a branch/region absent from the rule document.
	// Callers receive empty results alongside it, never a crash.
	ErrDocumentIncomplete = errors.New("rule document parse incomplete")

	// ErrExternalService marks a text-generation or mail transport
	// failure. Always caught at the boundary.
	ErrExternalService = errors.New("external service failure")

	// ErrConfigurationMissing marks absent credentials or keys. Fatal
	// only to the specific operation requiring them, and reported
	// before any network call is attempted.
	ErrConfigurationMissing = errors.New("required configuration missing")
)
