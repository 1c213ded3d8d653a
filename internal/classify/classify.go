package classify

import (
	"errors"
	"fmt"
	"image"
	"sort"

	"github.com/calder-vision/imagenet-api/internal/model"
	"github.com/calder-vision/imagenet-api/internal/preprocess"
)

// ErrKOutOfRange is returned by TopK when k is not in [1, len(labels)].
var ErrKOutOfRange = errors.New("k out of range")

// Prediction is a single ranked result.
type Prediction struct {
	Index int     `json:"index"`
	Label string  `json:"label"`
	Score float32 `json:"score"`
}

// Classifier runs the full pipeline against one loaded model:
// normalize, oversample, predict, average. It holds no mutable state
// of its own, so a single instance serves concurrent callers.
type Classifier struct {
	model *model.Model
}

func New(m *model.Model) *Classifier {
	return &Classifier{model: m}
}

// Classify scores one image against every class. With centerOnly the
// network sees a single center crop; otherwise the returned vector is
// the arithmetic mean over the 10-crop batch.
func (c *Classifier) Classify(img image.Image, centerOnly bool) ([]float32, error) {
	canon, err := preprocess.Normalize(img, c.model.Mean(), c.model.Flip())
	if err != nil {
		return nil, fmt.Errorf("normalize: %w", err)
	}

	crops, err := preprocess.Oversample(canon, centerOnly)
	if err != nil {
		return nil, fmt.Errorf("oversample: %w", err)
	}

	scores, err := c.model.Predict(crops)
	if err != nil {
		return nil, err
	}

	classes := len(c.model.Labels())
	shape := scores.Shape()
	if len(shape) != 2 || shape[0] != crops.Shape()[0] || shape[1] != classes {
		return nil, &preprocess.ShapeError{
			Op:   "predict output",
			Want: []int{crops.Shape()[0], classes},
			Got:  shape,
		}
	}

	summed, err := scores.Sum(0)
	if err != nil {
		return nil, fmt.Errorf("aggregate: %w", err)
	}
	averaged, err := summed.DivScalar(float32(shape[0]), true)
	if err != nil {
		return nil, fmt.Errorf("aggregate: %w", err)
	}

	return averaged.Data().([]float32), nil
}

// TopK ranks a score vector and returns the k best classes. Order is
// descending score with ascending class index breaking ties, so the
// output is fully deterministic.
func (c *Classifier) TopK(scores []float32, k int) ([]Prediction, error) {
	labels := c.model.Labels()
	if len(scores) != len(labels) {
		return nil, &preprocess.ShapeError{
			Op:   "top-k",
			Want: []int{len(labels)},
			Got:  []int{len(scores)},
		}
	}
	if k < 1 || k > len(scores) {
		return nil, fmt.Errorf("%w: k=%d, want 1 <= k <= %d", ErrKOutOfRange, k, len(scores))
	}

	indices := make([]int, len(scores))
	for i := range indices {
		indices[i] = i
	}
	sort.Slice(indices, func(a, b int) bool {
		ia, ib := indices[a], indices[b]
		if scores[ia] != scores[ib] {
			return scores[ia] > scores[ib]
		}
		return ia < ib
	})

	top := make([]Prediction, k)
	for i := 0; i < k; i++ {
		top[i] = Prediction{
			Index: indices[i],
			Label: labels[indices[i]],
			Score: scores[indices[i]],
		}
	}
	return top, nil
}
