package preprocess

import (
	"gorgonia.org/tensor"
)

// NumCrops is the batch size produced by a full oversample pass:
// four corners plus the center, each paired with its horizontal mirror.
const NumCrops = 10

// Oversample extracts the fixed crop set from a canonical 256x256x3
// image. With centerOnly it returns a single center crop (1x227x227x3);
// otherwise it returns 10x227x227x3 in a deterministic order: top-left,
// top-right, bottom-left, bottom-right, center, then the same five
// mirrored along the width axis. Downstream only ever averages over the
// batch, but the order is fixed so results are reproducible.
func Oversample(canon *tensor.Dense, centerOnly bool) (*tensor.Dense, error) {
	shape := canon.Shape()
	if len(shape) != 3 || shape[0] != CanonSize || shape[1] != CanonSize || shape[2] != Channels {
		return nil, &ShapeError{
			Op:   "oversample",
			Want: []int{CanonSize, CanonSize, Channels},
			Got:  shape,
		}
	}
	src := canon.Data().([]float32)

	const cropLen = CropSize * CropSize * Channels
	margin := CanonSize - CropSize
	center := margin / 2

	if centerOnly {
		out := make([]float32, cropLen)
		copyCrop(out, 0, src, center, center)
		return tensor.New(tensor.WithShape(1, CropSize, CropSize, Channels), tensor.WithBacking(out)), nil
	}

	// Offsets as (row, col) pairs; rows vary in the outer position so
	// the order is TL, TR, BL, BR, center.
	offsets := [5][2]int{
		{0, 0},
		{0, margin},
		{margin, 0},
		{margin, margin},
		{center, center},
	}

	out := make([]float32, NumCrops*cropLen)
	for i, off := range offsets {
		copyCrop(out, i*cropLen, src, off[0], off[1])
	}
	for i := 0; i < 5; i++ {
		mirrorCrop(out, (i+5)*cropLen, out[i*cropLen:(i+1)*cropLen])
	}

	return tensor.New(tensor.WithShape(NumCrops, CropSize, CropSize, Channels), tensor.WithBacking(out)), nil
}

// copyCrop copies a CropSize x CropSize window starting at (row, col)
// of the canonical image into dst at dstOff.
func copyCrop(dst []float32, dstOff int, src []float32, row, col int) {
	const rowLen = CropSize * Channels
	for y := 0; y < CropSize; y++ {
		srcStart := ((row+y)*CanonSize + col) * Channels
		copy(dst[dstOff+y*rowLen:dstOff+(y+1)*rowLen], src[srcStart:srcStart+rowLen])
	}
}

// mirrorCrop writes the horizontal mirror of a single crop (width axis
// reversed, channels kept in order) into dst at dstOff.
func mirrorCrop(dst []float32, dstOff int, crop []float32) {
	for y := 0; y < CropSize; y++ {
		rowStart := y * CropSize * Channels
		for x := 0; x < CropSize; x++ {
			srcPx := rowStart + (CropSize-1-x)*Channels
			dstPx := dstOff + rowStart + x*Channels
			dst[dstPx] = crop[srcPx]
			dst[dstPx+1] = crop[srcPx+1]
			dst[dstPx+2] = crop[srcPx+2]
		}
	}
}
