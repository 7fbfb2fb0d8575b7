// Package imagery defines the canonical in-memory representation for
// multiband and RGB imagery used throughout the pipeline. The single
// invariant everything else relies on is that the band axis is always
// the leading axis: an image is stored as (bands, height, width),
// regardless of how the source file laid its samples out on disk.
package imagery

import (
	"fmt"
)

// SampleType identifies the numeric type of the image samples.
type SampleType int

const (
	// Uint8 samples occupy the range [0, 255].
	Uint8 SampleType = iota

	// Uint16 samples occupy the range [0, 65535].
	Uint16

	// Float32 samples occupy the range [0, 1].
	Float32
)

// String returns a human readable name for the sample type.
func (t SampleType) String() string {
	switch t {
	case Uint8:
		return "uint8"
	case Uint16:
		return "uint16"
	case Float32:
		return "float32"
	}
	return fmt.Sprintf("SampleType(%d)", int(t))
}

// MaxValue returns the theoretical maximum legal sample value for the type.
// Metric computations use this, never the observed maximum.
func (t SampleType) MaxValue() float64 {
	switch t {
	case Uint8:
		return 255
	case Uint16:
		return 65535
	}
	return 1
}

// Image is a canonical band-first image: Data holds Bands*Height*Width
// samples where band b, row y, column x lives at index
// (b*Height+y)*Width + x. Samples are kept as float32 so that uint8 and
// uint16 values round-trip exactly while noise models can work in a
// single representation.
type Image struct {
	// Bands is the number of spectral bands (>= 1).
	Bands int

	// Height and Width are the pixel dimensions of each band.
	Height int
	Width  int

	// Type records the sample type of the source, which bounds the
	// legal value range of Data.
	Type SampleType

	// Data is the planar band-major sample buffer.
	Data []float32
}

// New allocates a zeroed canonical image with the given geometry.
func New(bands, height, width int, t SampleType) *Image {
	return &Image{
		Bands:  bands,
		Height: height,
		Width:  width,
		Type:   t,
		Data:   make([]float32, bands*height*width),
	}
}

// Clone returns a deep copy of the image. Pipeline stages that derive a
// new image from an existing one must operate on a clone; aliasing
// between an original and a degraded buffer is never permitted.
func (img *Image) Clone() *Image {
	out := &Image{
		Bands:  img.Bands,
		Height: img.Height,
		Width:  img.Width,
		Type:   img.Type,
		Data:   make([]float32, len(img.Data)),
	}
	copy(out.Data, img.Data)
	return out
}

// Band returns the samples of band b as a subslice of Data.
func (img *Image) Band(b int) []float32 {
	n := img.Height * img.Width
	return img.Data[b*n : (b+1)*n]
}

// At returns the sample at band b, row y, column x.
func (img *Image) At(b, y, x int) float32 {
	return img.Data[(b*img.Height+y)*img.Width+x]
}

// Set stores a sample at band b, row y, column x.
func (img *Image) Set(b, y, x int, v float32) {
	img.Data[(b*img.Height+y)*img.Width+x] = v
}

// SameShape reports whether two images have identical band count,
// dimensions and sample type.
func (img *Image) SameShape(other *Image) bool {
	return img.Bands == other.Bands &&
		img.Height == other.Height &&
		img.Width == other.Width &&
		img.Type == other.Type
}

// Validate checks the internal consistency of the image geometry.
func (img *Image) Validate() error {
	if img.Bands < 1 || img.Height < 1 || img.Width < 1 {
		return fmt.Errorf("invalid image geometry (%d, %d, %d)", img.Bands, img.Height, img.Width)
	}
	if want := img.Bands * img.Height * img.Width; len(img.Data) != want {
		return fmt.Errorf("sample buffer holds %d values, geometry (%d, %d, %d) needs %d",
			len(img.Data), img.Bands, img.Height, img.Width, want)
	}
	return nil
}

// Range returns the observed minimum and maximum sample values across
// all bands. Noise models use this to scale parameters that are
// specified on an 8-bit scale.
func (img *Image) Range() (min, max float64) {
	if len(img.Data) == 0 {
		return 0, 0
	}
	min = float64(img.Data[0])
	max = min
	for _, v := range img.Data {
		f := float64(v)
		if f < min {
			min = f
		}
		if f > max {
			max = f
		}
	}
	return min, max
}

// Clip limits v to the legal range of the sample type.
func (img *Image) Clip(v float64) float32 {
	if v < 0 {
		return 0
	}
	if max := img.Type.MaxValue(); v > max {
		return float32(max)
	}
	return float32(v)
}
