// Package inference wraps the classification model behind a lazily loaded,
// process-wide invoker. The model loads on first use; concurrent first
// callers converge on a single load, a failed load is retried on the next
// call, and runs are serialized because the underlying session reuses one
// input/output tensor pair.
package inference

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/belens/belens-api/internal/catalog"
	"github.com/belens/belens-api/internal/imaging"
)

// ErrModelUnavailable marks any failure to load or run the model, including
// malformed output.
var ErrModelUnavailable = errors.New("model unavailable")

// Outcome is a classification result: a catalog label (or the unknown
// sentinel) and a confidence percentage in [0,100].
type Outcome struct {
	Label      string
	Confidence float64
}

// runner abstracts the model session so tests can stub it out.
type runner interface {
	run(input []float32) ([]float32, error)
	close()
}

// Invoker turns normalized tensors into classification outcomes.
type Invoker struct {
	modelPath string
	newRunner func(modelPath string) (runner, error)
	onLoad    func()

	mu sync.Mutex // guards r and serializes run calls on the shared tensor pair
	r  runner
}

// NewInvoker returns an invoker for the model at modelPath. onLoad, when
// non-nil, is called after each successful model load.
func NewInvoker(modelPath string, onLoad func()) *Invoker {
	return &Invoker{
		modelPath: modelPath,
		newRunner: newONNXRunner,
		onLoad:    onLoad,
	}
}

// Classify invokes the model exactly once for the given tensor and derives
// the arg-max outcome. A load failure is returned as ErrModelUnavailable and
// the load is attempted again on the next call.
func (inv *Invoker) Classify(ctx context.Context, t *imaging.Tensor) (Outcome, error) {
	if err := ctx.Err(); err != nil {
		return Outcome{}, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}

	inv.mu.Lock()
	defer inv.mu.Unlock()

	if inv.r == nil {
		r, err := inv.newRunner(inv.modelPath)
		if err != nil {
			return Outcome{}, fmt.Errorf("%w: load: %v", ErrModelUnavailable, err)
		}
		inv.r = r
		if inv.onLoad != nil {
			inv.onLoad()
		}
	}

	scores, err := inv.r.run(t.Data)
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}

	return outcomeFromScores(scores)
}

// Close releases the model handle if one was loaded.
func (inv *Invoker) Close() {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	if inv.r != nil {
		inv.r.close()
	}
}

// outcomeFromScores validates the probability vector and selects the
// arg-max class.
func outcomeFromScores(scores []float32) (Outcome, error) {
	if err := catalog.Validate(len(scores)); err != nil {
		return Outcome{}, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}

	maxIdx := 0
	maxVal := scores[0]
	for i, v := range scores {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return Outcome{}, fmt.Errorf("%w: non-finite score at index %d", ErrModelUnavailable, i)
		}
		if v > maxVal {
			maxVal = v
			maxIdx = i
		}
	}

	confidence := float64(maxVal) * 100
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 100 {
		confidence = 100
	}

	return Outcome{
		Label:      catalog.Label(maxIdx),
		Confidence: confidence,
	}, nil
}
