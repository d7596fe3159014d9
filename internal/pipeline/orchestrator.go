// Package pipeline contains the prediction request orchestrator: a state
// machine that sequences identity resolution, asset archival, image
// normalization, model invocation, nutrition enrichment and result
// persistence. Each stage executes at most once; the first failure is
// terminal and carries its stage and error kind. Already-completed side
// effects (an archived blob) are not rolled back.
package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/belens/belens-api/internal/archive"
	"github.com/belens/belens-api/internal/identity"
	"github.com/belens/belens-api/internal/imaging"
	"github.com/belens/belens-api/internal/inference"
	"github.com/belens/belens-api/internal/metrics"
	"github.com/belens/belens-api/internal/nutrition"
)

// State tracks pipeline progress for one request.
type State string

const (
	StateReceived         State = "Received"
	StateIdentityResolved State = "IdentityResolved"
	StateAssetArchived    State = "AssetArchived"
	StateImageNormalized  State = "ImageNormalized"
	StateClassified       State = "Classified"
	StateEnriched         State = "Enriched"
	StatePersisted        State = "Persisted"
)

// Capability interfaces. Production implementations live in their own
// packages; tests inject func-field mocks.

type IdentityResolver interface {
	Resolve(ctx context.Context, email string) (identity.Principal, error)
}

type Archiver interface {
	Archive(ctx context.Context, asset archive.Asset) (string, error)
}

type Normalizer interface {
	Normalize(data []byte) (*imaging.Tensor, error)
}

type Classifier interface {
	Classify(ctx context.Context, t *imaging.Tensor) (inference.Outcome, error)
}

type Enricher interface {
	Lookup(label string) (nutrition.Facts, bool)
}

type RecordStore interface {
	Save(ctx context.Context, rec *Record) (string, error)
}

// Request is one inbound prediction request.
type Request struct {
	Asset archive.Asset
	Email string
}

// Result is a committed prediction: the record plus its store-assigned ID.
type Result struct {
	ID     string
	Record *Record
}

// Orchestrator drives the pipeline for each request. It is stateless across
// requests and safe for concurrent use.
type Orchestrator struct {
	resolver   IdentityResolver
	archiver   Archiver
	normalizer Normalizer
	classifier Classifier
	enricher   Enricher
	records    RecordStore

	requireIdentity bool
	log             zerolog.Logger
	metrics         *metrics.Metrics
	now             func() time.Time
}

type Config struct {
	Resolver        IdentityResolver
	Archiver        Archiver
	Normalizer      Normalizer
	Classifier      Classifier
	Enricher        Enricher
	Records         RecordStore
	RequireIdentity bool
	Logger          zerolog.Logger
	Metrics         *metrics.Metrics
}

func NewOrchestrator(cfg Config) *Orchestrator {
	return &Orchestrator{
		resolver:        cfg.Resolver,
		archiver:        cfg.Archiver,
		normalizer:      cfg.Normalizer,
		classifier:      cfg.Classifier,
		enricher:        cfg.Enricher,
		records:         cfg.Records,
		requireIdentity: cfg.RequireIdentity,
		log:             cfg.Logger,
		metrics:         cfg.Metrics,
		now:             time.Now,
	}
}

// Run executes the pipeline for one request. On success the returned result
// holds the persisted record; on failure the StageError names the stage that
// failed and nothing after it has executed.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*Result, *StageError) {
	state := StateReceived

	// Identity resolution. Skipped entirely for anonymous requests when
	// gating is off; a supplied email is always resolved.
	var principal identity.Principal
	if req.Email != "" || o.requireIdentity {
		start := o.now()
		p, err := o.resolver.Resolve(ctx, req.Email)
		o.metrics.ObserveStage(string(StageIdentity), start)
		if err != nil {
			return nil, o.fail(StageIdentity, err)
		}
		principal = p
	}
	state = StateIdentityResolved

	// Asset archival: the one durable write before the point of no return.
	start := o.now()
	fileURL, err := o.archiver.Archive(ctx, req.Asset)
	o.metrics.ObserveStage(string(StageArchive), start)
	if err != nil {
		return nil, o.fail(StageArchive, err)
	}
	state = StateAssetArchived

	start = o.now()
	tensor, err := o.normalizer.Normalize(req.Asset.Data)
	o.metrics.ObserveStage(string(StageNormalize), start)
	if err != nil {
		return nil, o.fail(StageNormalize, err)
	}
	state = StateImageNormalized

	start = o.now()
	outcome, err := o.classifier.Classify(ctx, tensor)
	o.metrics.ObserveStage(string(StageClassify), start)
	if err != nil {
		return nil, o.fail(StageClassify, err)
	}
	state = StateClassified

	// Enrichment is total: a miss degrades to an absent nutrition record.
	var facts *nutrition.Facts
	if f, ok := o.enricher.Lookup(outcome.Label); ok {
		facts = &f
	} else {
		o.log.Warn().
			Str("stage", string(StageEnrich)).
			Str("label", outcome.Label).
			Msg("no nutrition data for predicted label")
	}
	state = StateEnriched

	rec := &Record{
		UserID:     principal.UID,
		UserEmail:  principal.Email,
		Prediction: outcome.Label,
		Confidence: outcome.Confidence,
		FileURL:    fileURL,
		Nutrition:  facts,
		CreatedAt:  o.now(),
	}

	start = o.now()
	id, err := o.records.Save(ctx, rec)
	o.metrics.ObserveStage(string(StagePersist), start)
	if err != nil {
		// The blob write above already happened; this inconsistency
		// window is accepted rather than compensated.
		return nil, o.fail(StagePersist, err)
	}
	state = StatePersisted

	o.log.Info().
		Str("state", string(state)).
		Str("prediction", rec.Prediction).
		Float64("confidence", rec.Confidence).
		Str("user_id", rec.UserID).
		Str("doc_id", id).
		Msg("prediction persisted")

	return &Result{ID: id, Record: rec}, nil
}

// fail classifies a stage error, logs it with stage context, and records the
// failure metric.
func (o *Orchestrator) fail(stage Stage, err error) *StageError {
	kind, message := classify(stage, err)
	o.metrics.CountFailure(string(stage), string(kind))
	o.log.Error().
		Err(err).
		Str("stage", string(stage)).
		Str("kind", string(kind)).
		Msg(message)
	return &StageError{Stage: stage, Kind: kind, Message: message, Err: err}
}

// classify maps a stage's error to its kind and caller-facing message.
func classify(stage Stage, err error) (Kind, string) {
	switch stage {
	case StageIdentity:
		switch {
		case errors.Is(err, identity.ErrMissingIdentifier):
			return KindClientInput, "Email required"
		case errors.Is(err, identity.ErrPrincipalNotFound):
			return KindNotFound, "User not found"
		default:
			return KindUnavailable, "Authentication error"
		}
	case StageArchive:
		if errors.Is(err, archive.ErrInvalidAsset) {
			return KindClientInput, "Invalid file type"
		}
		return KindUnavailable, "File upload failed"
	case StageNormalize:
		if errors.Is(err, imaging.ErrUnsupportedImage) {
			return KindClientInput, "Image processing failed"
		}
		return KindUnavailable, "Image processing failed"
	case StageClassify:
		return KindUnavailable, "Prediction failed"
	case StagePersist:
		return KindUnavailable, "Failed to save prediction"
	default:
		return KindUnavailable, "Unexpected server error"
	}
}
