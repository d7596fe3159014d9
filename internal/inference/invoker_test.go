package inference

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/belens/belens-api/internal/catalog"
	"github.com/belens/belens-api/internal/imaging"
)

type stubRunner struct {
	scores []float32
	err    error
	runs   atomic.Int64
}

func (s *stubRunner) run(input []float32) ([]float32, error) {
	s.runs.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	return s.scores, nil
}

func (s *stubRunner) close() {}

func stubInvoker(r runner, loadErr error) (*Invoker, *atomic.Int64) {
	var loads atomic.Int64
	inv := &Invoker{
		modelPath: "stub.onnx",
		newRunner: func(string) (runner, error) {
			loads.Add(1)
			if loadErr != nil {
				return nil, loadErr
			}
			return r, nil
		},
	}
	return inv, &loads
}

func testTensor() *imaging.Tensor {
	return &imaging.Tensor{
		Data:  make([]float32, imaging.InputHeight*imaging.InputWidth*imaging.Channels),
		Shape: []int64{1, imaging.InputHeight, imaging.InputWidth, imaging.Channels},
	}
}

func uniformScores(peak int, peakVal float32) []float32 {
	scores := make([]float32, catalog.Size())
	rest := (1 - peakVal) / float32(catalog.Size()-1)
	for i := range scores {
		scores[i] = rest
	}
	scores[peak] = peakVal
	return scores
}

func TestClassifyArgMax(t *testing.T) {
	inv, _ := stubInvoker(&stubRunner{scores: uniformScores(28, 0.91)}, nil)

	out, err := inv.Classify(context.Background(), testTensor())
	require.NoError(t, err)

	assert.Equal(t, "Yakult", out.Label)
	assert.InDelta(t, 91.0, out.Confidence, 0.01)
}

func TestClassifyConfidenceBounds(t *testing.T) {
	for _, peak := range []float32{0.0001, 0.5, 1.0} {
		inv, _ := stubInvoker(&stubRunner{scores: uniformScores(3, peak)}, nil)
		out, err := inv.Classify(context.Background(), testTensor())
		require.NoError(t, err)
		assert.GreaterOrEqual(t, out.Confidence, 0.0)
		assert.LessOrEqual(t, out.Confidence, 100.0)
	}
}

func TestClassifyLabelAlwaysInCatalog(t *testing.T) {
	for peak := 0; peak < catalog.Size(); peak++ {
		inv, _ := stubInvoker(&stubRunner{scores: uniformScores(peak, 0.8)}, nil)
		out, err := inv.Classify(context.Background(), testTensor())
		require.NoError(t, err)
		assert.Contains(t, catalog.Labels(), out.Label)
	}
}

func TestClassifyLoadsOnce(t *testing.T) {
	r := &stubRunner{scores: uniformScores(0, 0.9)}
	inv, loads := stubInvoker(r, nil)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := inv.Classify(context.Background(), testTensor())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), loads.Load())
	assert.Equal(t, int64(16), r.runs.Load())
}

func TestClassifyLoadFailure(t *testing.T) {
	inv, loads := stubInvoker(nil, errors.New("missing model file"))

	_, err := inv.Classify(context.Background(), testTensor())
	assert.ErrorIs(t, err, ErrModelUnavailable)

	// A failed load is attempted again on the next call.
	_, err = inv.Classify(context.Background(), testTensor())
	assert.ErrorIs(t, err, ErrModelUnavailable)
	assert.Equal(t, int64(2), loads.Load())
}

func TestClassifyRecoversAfterLoadFailure(t *testing.T) {
	r := &stubRunner{scores: uniformScores(28, 0.9)}
	var loads atomic.Int64
	inv := &Invoker{
		modelPath: "stub.onnx",
		newRunner: func(string) (runner, error) {
			if loads.Add(1) == 1 {
				return nil, errors.New("runtime not ready")
			}
			return r, nil
		},
	}

	_, err := inv.Classify(context.Background(), testTensor())
	assert.ErrorIs(t, err, ErrModelUnavailable)

	out, err := inv.Classify(context.Background(), testTensor())
	require.NoError(t, err)
	assert.Equal(t, "Yakult", out.Label)
	assert.Equal(t, int64(2), loads.Load())

	// The handle is resident now; further calls reuse it.
	_, err = inv.Classify(context.Background(), testTensor())
	require.NoError(t, err)
	assert.Equal(t, int64(2), loads.Load())
}

func TestClassifyLoadNotification(t *testing.T) {
	var notified atomic.Int64
	inv, _ := stubInvoker(&stubRunner{scores: uniformScores(0, 0.9)}, nil)
	inv.onLoad = func() { notified.Add(1) }

	for i := 0; i < 3; i++ {
		_, err := inv.Classify(context.Background(), testTensor())
		require.NoError(t, err)
	}
	assert.Equal(t, int64(1), notified.Load())
}

func TestClassifyNoNotificationOnLoadFailure(t *testing.T) {
	var notified atomic.Int64
	inv, _ := stubInvoker(nil, errors.New("missing model file"))
	inv.onLoad = func() { notified.Add(1) }

	_, err := inv.Classify(context.Background(), testTensor())
	assert.ErrorIs(t, err, ErrModelUnavailable)
	assert.Equal(t, int64(0), notified.Load())
}

func TestClassifyRunFailure(t *testing.T) {
	inv, _ := stubInvoker(&stubRunner{err: errors.New("session exploded")}, nil)

	_, err := inv.Classify(context.Background(), testTensor())
	assert.ErrorIs(t, err, ErrModelUnavailable)
}

func TestClassifyWrongOutputWidth(t *testing.T) {
	inv, _ := stubInvoker(&stubRunner{scores: make([]float32, 7)}, nil)

	_, err := inv.Classify(context.Background(), testTensor())
	assert.ErrorIs(t, err, ErrModelUnavailable)
}

func TestClassifyNonFiniteScores(t *testing.T) {
	scores := uniformScores(2, 0.5)
	scores[5] = float32(math.NaN())
	inv, _ := stubInvoker(&stubRunner{scores: scores}, nil)

	_, err := inv.Classify(context.Background(), testTensor())
	assert.ErrorIs(t, err, ErrModelUnavailable)
}

func TestClassifyCancelledContext(t *testing.T) {
	inv, loads := stubInvoker(&stubRunner{scores: uniformScores(0, 0.9)}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := inv.Classify(ctx, testTensor())
	assert.ErrorIs(t, err, ErrModelUnavailable)
	assert.Equal(t, int64(0), loads.Load())
}
