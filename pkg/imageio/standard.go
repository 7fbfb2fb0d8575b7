package imageio

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"

	"multinoise/pkg/imagery"
)

// saveJPEGQuality is the encode quality for JPEG outputs. Degradation
// by compression is a noise model, not a property of the I/O adapter,
// so outputs are written near the top of the scale.
const saveJPEGQuality = 95

// decodeJPEG canonicalizes a JPEG payload: grayscale sources become a
// single band, everything else the RGB triplet.
func decodeJPEG(data []byte) (*imagery.Image, *imagery.Metadata, error) {
	src, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrCorruptData, err)
	}
	return fromStdImage(src), &imagery.Metadata{}, nil
}

// encodeJPEG writes a 1- or 3-band 8-bit canonical image as JPEG.
func encodeJPEG(img *imagery.Image, _ *imagery.Metadata) ([]byte, error) {
	if img.Type != imagery.Uint8 {
		return nil, fmt.Errorf("%w: JPEG cannot store %s samples", ErrUnsupportedFormat, img.Type)
	}
	std, err := toStdImage(img)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, std, &jpeg.Options{Quality: saveJPEGQuality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decodePNG canonicalizes a PNG payload, keeping 16-bit sources 16-bit.
func decodePNG(data []byte) (*imagery.Image, *imagery.Metadata, error) {
	src, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrCorruptData, err)
	}
	return fromStdImage(src), &imagery.Metadata{}, nil
}

// encodePNG writes a 1- or 3-band canonical image as PNG. 8- and 16-bit
// samples are stored losslessly; float samples have no PNG
// representation.
func encodePNG(img *imagery.Image, _ *imagery.Metadata) ([]byte, error) {
	if img.Type == imagery.Float32 {
		return nil, fmt.Errorf("%w: PNG cannot store float samples", ErrUnsupportedFormat)
	}
	std, err := toStdImage(img)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, std); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// fromStdImage converts a decoded standard-library image into the
// canonical band-first layout. A grayscale source lifts to (1, H, W),
// never (H, W, 1); color sources become the (3, H, W) RGB triplet.
func fromStdImage(src image.Image) *imagery.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()

	switch s := src.(type) {
	case *image.Gray:
		img := imagery.New(1, h, w, imagery.Uint8)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				img.Set(0, y, x, float32(s.GrayAt(b.Min.X+x, b.Min.Y+y).Y))
			}
		}
		return img
	case *image.Gray16:
		img := imagery.New(1, h, w, imagery.Uint16)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				img.Set(0, y, x, float32(s.Gray16At(b.Min.X+x, b.Min.Y+y).Y))
			}
		}
		return img
	case *image.RGBA64, *image.NRGBA64:
		img := imagery.New(3, h, w, imagery.Uint16)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				r, g, bl, _ := src.At(b.Min.X+x, b.Min.Y+y).RGBA()
				img.Set(0, y, x, float32(r))
				img.Set(1, y, x, float32(g))
				img.Set(2, y, x, float32(bl))
			}
		}
		return img
	}

	img := imagery.New(3, h, w, imagery.Uint8)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, bl, _ := src.At(b.Min.X+x, b.Min.Y+y).RGBA()
			img.Set(0, y, x, float32(r>>8))
			img.Set(1, y, x, float32(g>>8))
			img.Set(2, y, x, float32(bl>>8))
		}
	}
	return img
}

// toStdImage converts a canonical image back to a standard-library
// image for the interleaved-only codecs. This is the exact inverse of
// fromStdImage for the layouts it accepts.
func toStdImage(img *imagery.Image) (image.Image, error) {
	switch {
	case img.Bands == 1 && img.Type == imagery.Uint8:
		out := image.NewGray(image.Rect(0, 0, img.Width, img.Height))
		for i, v := range img.Band(0) {
			out.Pix[i] = uint8(v)
		}
		return out, nil
	case img.Bands == 1 && img.Type == imagery.Uint16:
		out := image.NewGray16(image.Rect(0, 0, img.Width, img.Height))
		for i, v := range img.Band(0) {
			out.Pix[2*i] = uint8(uint16(v) >> 8)
			out.Pix[2*i+1] = uint8(uint16(v))
		}
		return out, nil
	case img.Bands == 3 && img.Type == imagery.Uint8:
		out := image.NewNRGBA(image.Rect(0, 0, img.Width, img.Height))
		r, g, b := img.Band(0), img.Band(1), img.Band(2)
		for i := range r {
			out.Pix[4*i+0] = uint8(r[i])
			out.Pix[4*i+1] = uint8(g[i])
			out.Pix[4*i+2] = uint8(b[i])
			out.Pix[4*i+3] = 0xff
		}
		return out, nil
	case img.Bands == 3 && img.Type == imagery.Uint16:
		out := image.NewNRGBA64(image.Rect(0, 0, img.Width, img.Height))
		r, g, b := img.Band(0), img.Band(1), img.Band(2)
		for i := range r {
			putUint16BE(out.Pix[8*i:], uint16(r[i]))
			putUint16BE(out.Pix[8*i+2:], uint16(g[i]))
			putUint16BE(out.Pix[8*i+4:], uint16(b[i]))
			putUint16BE(out.Pix[8*i+6:], 0xffff)
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: %d-band %s image has no interleaved encoding",
		ErrUnsupportedFormat, img.Bands, img.Type)
}

func putUint16BE(p []byte, v uint16) {
	p[0] = uint8(v >> 8)
	p[1] = uint8(v)
}
