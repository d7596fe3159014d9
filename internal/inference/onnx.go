package inference

import (
	"fmt"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/belens/belens-api/internal/catalog"
	"github.com/belens/belens-api/internal/imaging"
)

// onnxRunner drives the ONNX runtime session. It owns a fixed input/output
// tensor pair, so a single runner must not execute concurrent runs; the
// Invoker serializes calls.
type onnxRunner struct {
	session      *ort.AdvancedSession
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
}

func newONNXRunner(modelPath string) (runner, error) {
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, fmt.Errorf("initialize ONNX environment: %w", err)
	}

	inputShape := ort.NewShape(1, imaging.InputHeight, imaging.InputWidth, imaging.Channels)
	outputShape := ort.NewShape(1, int64(catalog.Size()))

	inputTensor, err := ort.NewEmptyTensor[float32](inputShape)
	if err != nil {
		return nil, fmt.Errorf("create input tensor: %w", err)
	}

	outputTensor, err := ort.NewEmptyTensor[float32](outputShape)
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(modelPath,
		[]string{"input"}, []string{"output"},
		[]ort.ArbitraryTensor{inputTensor}, []ort.ArbitraryTensor{outputTensor},
		nil)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("create ONNX session: %w", err)
	}

	return &onnxRunner{
		session:      session,
		inputTensor:  inputTensor,
		outputTensor: outputTensor,
	}, nil
}

func (r *onnxRunner) run(input []float32) ([]float32, error) {
	data := r.inputTensor.GetData()
	if len(input) != len(data) {
		return nil, fmt.Errorf("input length %d does not match tensor capacity %d", len(input), len(data))
	}
	copy(data, input)

	if err := r.session.Run(); err != nil {
		return nil, fmt.Errorf("session run: %w", err)
	}

	out := r.outputTensor.GetData()
	scores := make([]float32, len(out))
	copy(scores, out)
	return scores, nil
}

func (r *onnxRunner) close() {
	if r.inputTensor != nil {
		r.inputTensor.Destroy()
	}
	if r.outputTensor != nil {
		r.outputTensor.Destroy()
	}
	if r.session != nil {
		r.session.Destroy()
	}
	ort.DestroyEnvironment()
}
