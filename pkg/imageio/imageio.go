// Package imageio loads and stores the image formats the pipeline
// consumes: multiband TIFF (uncompressed or LZW), JPEG and PNG. Every
// decoded buffer is canonicalized to the band-first (bands, height,
// width) layout of imagery.Image before anything downstream sees it,
// and encoding converts back at the I/O boundary only. For each
// supported format the decode and encode paths are exact inverses, so a
// save/load round trip of a lossless format reproduces shape, sample
// type and values bit for bit.
package imageio

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"multinoise/pkg/imagery"
)

var (
	// ErrUnsupportedFormat reports a file whose extension and content
	// match none of the supported formats, or an image that the target
	// format cannot represent.
	ErrUnsupportedFormat = errors.New("unsupported image format")

	// ErrCorruptData reports a recognized container whose pixel payload
	// cannot be decoded.
	ErrCorruptData = errors.New("corrupt image data")
)

// Format identifies a supported on-disk image format.
type Format int

const (
	FormatTIFF Format = iota
	FormatJPEG
	FormatPNG
)

// String returns the conventional name of the format.
func (f Format) String() string {
	switch f {
	case FormatTIFF:
		return "tiff"
	case FormatJPEG:
		return "jpeg"
	case FormatPNG:
		return "png"
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

// codec is the capability set one format contributes: decoding raw file
// bytes into a canonical image and encoding a canonical image back.
type codec struct {
	decode func(data []byte) (*imagery.Image, *imagery.Metadata, error)
	encode func(img *imagery.Image, meta *imagery.Metadata) ([]byte, error)
}

// codecs maps each format to its codec.
var codecs = map[Format]codec{
	FormatTIFF: {decode: decodeTIFF, encode: encodeTIFF},
	FormatJPEG: {decode: decodeJPEG, encode: encodeJPEG},
	FormatPNG:  {decode: decodePNG, encode: encodePNG},
}

// DetectFormat determines the format of a file from its extension,
// falling back to content sniffing when the extension is unknown.
func DetectFormat(path string, header []byte) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tif", ".tiff":
		return FormatTIFF, nil
	case ".jpg", ".jpeg":
		return FormatJPEG, nil
	case ".png":
		return FormatPNG, nil
	}
	switch {
	case bytes.HasPrefix(header, []byte("II*\x00")) || bytes.HasPrefix(header, []byte("MM\x00*")):
		return FormatTIFF, nil
	case bytes.HasPrefix(header, []byte{0xff, 0xd8, 0xff}):
		return FormatJPEG, nil
	case bytes.HasPrefix(header, []byte("\x89PNG\r\n\x1a\n")):
		return FormatPNG, nil
	}
	return 0, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
}

// Load reads an image file into its canonical band-first form together
// with the opaque metadata envelope attached to it.
func Load(path string) (*imagery.Image, *imagery.Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading %s: %w", path, err)
	}
	format, err := DetectFormat(path, data)
	if err != nil {
		return nil, nil, err
	}
	img, meta, err := codecs[format].decode(data)
	if err != nil {
		return nil, nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	if err := img.Validate(); err != nil {
		return nil, nil, fmt.Errorf("%w: %s: %v", ErrCorruptData, path, err)
	}
	return img, meta, nil
}

// Save writes a canonical image to path in the format implied by the
// file extension, carrying the metadata envelope through unchanged
// where the format can hold it. Formats that only store interleaved
// samples are transposed here, at the I/O boundary; the in-memory
// band-first layout is never reordered upstream.
func Save(img *imagery.Image, meta *imagery.Metadata, path string) error {
	if err := img.Validate(); err != nil {
		return err
	}
	format, err := DetectFormat(path, nil)
	if err != nil {
		return err
	}
	data, err := codecs[format].encode(img, meta)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
