package preprocess

import (
	"image"

	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"
	"gorgonia.org/tensor"
)

// Normalize converts an arbitrary decoded image into the canonical
// 256x256x3 float32 HWC array the oversampler expects: aspect-preserving
// bilinear resize with the short side scaled to exactly 256, an optional
// vertical flip, a center crop, and elementwise mean subtraction.
//
// The flip flag is a property of how the weights and the mean image were
// produced, not of the input image. It must come from the same metadata
// file as mean or classification accuracy silently degrades.
func Normalize(img image.Image, mean []float32, flip bool) (*tensor.Dense, error) {
	if len(mean) != CanonSize*CanonSize*Channels {
		return nil, &ShapeError{
			Op:   "mean image",
			Want: []int{CanonSize, CanonSize, Channels},
			Got:  []int{len(mean)},
		}
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	// Scale the shorter side to exactly CanonSize, the other side
	// proportionally, rounded to nearest.
	var newWidth, newHeight int
	if height < width {
		newHeight = CanonSize
		newWidth = int(float64(width)*float64(CanonSize)/float64(height) + 0.5)
	} else {
		newWidth = CanonSize
		newHeight = int(float64(height)*float64(CanonSize)/float64(width) + 0.5)
	}
	resized := imaging.Clone(resize.Resize(uint(newWidth), uint(newHeight), img, resize.Bilinear))

	if flip {
		resized = imaging.FlipV(resized)
	}

	xOffset := (newWidth - CanonSize) / 2
	yOffset := (newHeight - CanonSize) / 2
	cropped := imaging.Crop(resized, image.Rect(xOffset, yOffset, xOffset+CanonSize, yOffset+CanonSize))

	cb := cropped.Bounds()
	if cb.Dx() != CanonSize || cb.Dy() != CanonSize {
		return nil, &ShapeError{
			Op:   "center crop",
			Want: []int{CanonSize, CanonSize},
			Got:  []int{cb.Dy(), cb.Dx()},
		}
	}

	// Pack to HWC float32 on the 0-255 scale and subtract the mean.
	// NRGBA keeps the raw RGB values, so alpha is simply ignored and
	// grayscale sources arrive already replicated across channels.
	data := make([]float32, CanonSize*CanonSize*Channels)
	i := 0
	for y := 0; y < CanonSize; y++ {
		for x := 0; x < CanonSize; x++ {
			px := cropped.NRGBAAt(x, y)
			data[i] = float32(px.R) - mean[i]
			i++
			data[i] = float32(px.G) - mean[i]
			i++
			data[i] = float32(px.B) - mean[i]
			i++
		}
	}

	return tensor.New(tensor.WithShape(CanonSize, CanonSize, Channels), tensor.WithBacking(data)), nil
}
