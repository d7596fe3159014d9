package pipeline

import "fmt"

// Stage names one discrete, independently failing step of the pipeline.
type Stage string

const (
	StageIdentity  Stage = "identity_resolution"
	StageArchive   Stage = "asset_archival"
	StageNormalize Stage = "image_normalization"
	StageClassify  Stage = "classification"
	StageEnrich    Stage = "enrichment"
	StagePersist   Stage = "persistence"
)

// Kind classifies a stage failure for response translation.
type Kind string

const (
	// KindClientInput is a user-correctable failure (4xx).
	KindClientInput Kind = "client_input"
	// KindNotFound is a terminal lookup miss (404).
	KindNotFound Kind = "not_found"
	// KindUnavailable is a transient upstream fault (5xx), left to the
	// caller to retry.
	KindUnavailable Kind = "unavailable"
)

// StageError is the terminal failure of a pipeline run. It carries the
// originating stage, the error kind, and the caller-facing message.
type StageError struct {
	Stage   Stage
	Kind    Kind
	Message string
	Err     error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Stage, e.Message, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Details is the diagnostic string surfaced to the caller alongside the
// message.
func (e *StageError) Details() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Err.Error()
}
