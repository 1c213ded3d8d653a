package model

import (
	"errors"

	"gorgonia.org/tensor"
)

// ErrModelLoad wraps every failure to construct a usable Model from the
// weights and meta files. It is fatal: the caller cannot classify
// without a model and retrying will not change the outcome.
var ErrModelLoad = errors.New("model load failed")

// Metadata is the JSON sidecar stored next to the weights file. The
// mean image and the flip flag travel together deliberately: both
// describe how the training data was oriented, and mixing a mean from
// one training run with the flip convention of another silently
// degrades accuracy.
type Metadata struct {
	// LabelNames is ordered; the index is the class id.
	LabelNames []string `json:"label_names"`
	// MeanImage is the per-pixel training-set mean, 256x256x3 HWC
	// float32 on the 0-255 scale, flattened row-major.
	MeanImage []float32 `json:"mean_image"`
	// FlipVertical is the legacy orientation flag: true if the network
	// was trained on vertically flipped images, in which case every
	// input must be flipped the same way after resizing.
	FlipVertical bool `json:"flip_vertical"`
}

// Predictor is the inference backend. It takes an Nx227x227x3 float32
// crop batch and returns NxC class scores, where C is the number of
// label names. Implementations must be safe for concurrent use.
type Predictor interface {
	Predict(batch *tensor.Dense) (*tensor.Dense, error)
	Close() error
}
