package model

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/calder-vision/imagenet-api/internal/preprocess"
	"gorgonia.org/tensor"
)

// Model bundles the loaded network with its label names, mean image
// and orientation flag. It is immutable after construction and safe
// for concurrent use.
type Model struct {
	meta      Metadata
	predictor Predictor
}

// Load reads the meta file, validates it, and opens the ONNX weights.
// Any failure wraps ErrModelLoad and leaves no partially usable model
// behind.
func Load(weightsPath, metaPath string) (*Model, error) {
	meta, err := loadMetadata(metaPath)
	if err != nil {
		return nil, err
	}

	predictor, err := newONNXPredictor(weightsPath, len(meta.LabelNames))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelLoad, err)
	}

	m, err := New(meta, predictor)
	if err != nil {
		predictor.Close()
		return nil, err
	}
	return m, nil
}

// New builds a Model from already-deserialized metadata and an
// inference backend. It is the injection point for non-ONNX backends
// and for test stubs.
func New(meta Metadata, predictor Predictor) (*Model, error) {
	if len(meta.LabelNames) == 0 {
		return nil, fmt.Errorf("%w: metadata has no label names", ErrModelLoad)
	}
	wantMean := preprocess.CanonSize * preprocess.CanonSize * preprocess.Channels
	if len(meta.MeanImage) != wantMean {
		return nil, fmt.Errorf("%w: mean image has %d values, want %d",
			ErrModelLoad, len(meta.MeanImage), wantMean)
	}
	if predictor == nil {
		return nil, fmt.Errorf("%w: nil predictor", ErrModelLoad)
	}

	return &Model{meta: meta, predictor: predictor}, nil
}

func loadMetadata(path string) (Metadata, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Metadata{}, fmt.Errorf("%w: read metadata %s: %v", ErrModelLoad, path, err)
	}

	var meta Metadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return Metadata{}, fmt.Errorf("%w: parse metadata %s: %v", ErrModelLoad, path, err)
	}
	return meta, nil
}

// Labels returns the ordered class names; the index is the class id.
func (m *Model) Labels() []string { return m.meta.LabelNames }

// Mean returns the flattened 256x256x3 training-set mean image.
func (m *Model) Mean() []float32 { return m.meta.MeanImage }

// Flip reports whether inputs must be vertically flipped to match the
// orientation the network was trained with.
func (m *Model) Flip() bool { return m.meta.FlipVertical }

// Predict forwards a crop batch to the inference backend.
func (m *Model) Predict(batch *tensor.Dense) (*tensor.Dense, error) {
	return m.predictor.Predict(batch)
}

func (m *Model) Close() error {
	return m.predictor.Close()
}
