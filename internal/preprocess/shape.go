package preprocess

import "fmt"

// Geometry of the network input. The net was trained on 227x227 crops
// taken from 256x256 images; see Oversample for how the crops are laid
// out. Channels is always RGB: grayscale inputs are replicated and
// alpha is dropped during decoding.
const (
	CanonSize = 256
	CropSize  = 227
	Channels  = 3
)

// ShapeError reports an array whose dimensions violate one of the
// pipeline invariants. It indicates a geometry bug (or a predictor
// that disagrees with the model metadata), never bad user input.
type ShapeError struct {
	Op   string
	Want []int
	Got  []int
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("%s: shape mismatch: want %v, got %v", e.Op, e.Want, e.Got)
}
