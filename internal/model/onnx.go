package model

import (
	"fmt"
	"sync"

	"github.com/calder-vision/imagenet-api/internal/preprocess"
	ort "github.com/yalue/onnxruntime_go"
	"gorgonia.org/tensor"
)

// onnxPredictor runs the network through the ONNX runtime. A dynamic
// session is used because the batch dimension varies: 10 crops for a
// full oversample pass, 1 for center-only.
type onnxPredictor struct {
	mu      sync.Mutex
	session *ort.DynamicAdvancedSession
	classes int
}

func newONNXPredictor(weightsPath string, classes int) (*onnxPredictor, error) {
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, fmt.Errorf("failed to initialize ONNX environment: %w", err)
	}

	session, err := ort.NewDynamicAdvancedSession(weightsPath,
		[]string{"input"}, []string{"output"}, nil)
	if err != nil {
		ort.DestroyEnvironment()
		return nil, fmt.Errorf("failed to create ONNX session for %s: %w", weightsPath, err)
	}

	return &onnxPredictor{session: session, classes: classes}, nil
}

// Predict enforces the Nx227x227x3 float32 input contract, forwards
// the batch unchanged, and returns NxC scores. Runtime failures from
// the session propagate unmodified apart from wrapping.
func (p *onnxPredictor) Predict(batch *tensor.Dense) (*tensor.Dense, error) {
	shape := batch.Shape()
	if len(shape) != 4 || shape[1] != preprocess.CropSize ||
		shape[2] != preprocess.CropSize || shape[3] != preprocess.Channels {
		return nil, &preprocess.ShapeError{
			Op:   "predict input",
			Want: []int{-1, preprocess.CropSize, preprocess.CropSize, preprocess.Channels},
			Got:  shape,
		}
	}
	n := shape[0]

	input, err := ort.NewTensor(ort.NewShape(int64(n), preprocess.CropSize,
		preprocess.CropSize, preprocess.Channels), batch.Data().([]float32))
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	defer input.Destroy()

	output, err := ort.NewEmptyTensor[float32](ort.NewShape(int64(n), int64(p.classes)))
	if err != nil {
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}
	defer output.Destroy()

	p.mu.Lock()
	err = p.session.Run([]ort.ArbitraryTensor{input}, []ort.ArbitraryTensor{output})
	p.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	scores := make([]float32, n*p.classes)
	copy(scores, output.GetData())

	return tensor.New(tensor.WithShape(n, p.classes), tensor.WithBacking(scores)), nil
}

func (p *onnxPredictor) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.session != nil {
		p.session.Destroy()
		p.session = nil
	}
	return ort.DestroyEnvironment()
}
