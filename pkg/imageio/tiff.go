package imageio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	xtiff "golang.org/x/image/tiff"

	"multinoise/pkg/imagery"
)

// TIFF tags the codec interprets.
const (
	tagImageWidth       = 256
	tagImageLength      = 257
	tagBitsPerSample    = 258
	tagCompression      = 259
	tagPhotometric      = 262
	tagImageDescription = 270
	tagStripOffsets     = 273
	tagSamplesPerPixel  = 277
	tagRowsPerStrip     = 278
	tagStripByteCounts  = 279
	tagPlanarConfig     = 284
	tagPredictor        = 317
	tagTileWidth        = 322
	tagSampleFormat     = 339
)

// Tags carried through the metadata envelope byte for byte: geospatial
// referencing, GDAL side information and the textual band description.
var passthroughTags = []uint16{
	tagImageDescription,
	33550, // ModelPixelScale
	33922, // ModelTiepoint
	34264, // ModelTransformation
	34735, // GeoKeyDirectory
	34736, // GeoDoubleParams
	34737, // GeoAsciiParams
	42112, // GDAL_METADATA
	42113, // GDAL_NODATA
}

// tiffTypeSize maps a TIFF field type to its per-element byte size.
var tiffTypeSize = map[uint16]int{
	1: 1, 2: 1, 3: 2, 4: 4, 5: 8, 6: 1, 7: 1, 8: 2, 9: 4, 10: 8, 11: 4, 12: 8,
}

// tiffTypeUnit is the width of the endian-sensitive unit within one
// element; rationals are pairs of 32-bit values.
var tiffTypeUnit = map[uint16]int{
	1: 1, 2: 1, 3: 2, 4: 4, 5: 4, 6: 1, 7: 1, 8: 2, 9: 4, 10: 4, 11: 4, 12: 8,
}

// errTIFFFallback marks a well-formed TIFF using features the native
// multiband path does not handle (tiles, palettes, other compressors).
// Those files go through the x/image/tiff decoder instead.
var errTIFFFallback = errors.New("tiff feature outside native reader")

type tiffField struct {
	typ     uint16
	count   uint32
	payload []byte // raw payload in file byte order
}

// decodeTIFF reads a TIFF payload. Planar and chunky multiband layouts
// with 8/16-bit unsigned or 32-bit float samples, uncompressed or LZW,
// are decoded natively so band order and sample values round-trip
// exactly; anything else falls back to the general-purpose decoder.
func decodeTIFF(data []byte) (*imagery.Image, *imagery.Metadata, error) {
	img, meta, err := decodeNativeTIFF(data)
	if err == nil {
		return img, meta, nil
	}
	if !errors.Is(err, errTIFFFallback) {
		return nil, nil, err
	}
	std, xerr := xtiff.Decode(bytes.NewReader(data))
	if xerr != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrCorruptData, xerr)
	}
	return fromStdImage(std), &imagery.Metadata{}, nil
}

func decodeNativeTIFF(data []byte) (*imagery.Image, *imagery.Metadata, error) {
	bo, ifdOffset, err := parseTIFFHeader(data)
	if err != nil {
		return nil, nil, err
	}
	fields, err := parseIFD(data, bo, ifdOffset)
	if err != nil {
		return nil, nil, err
	}

	width := int(fieldFirst(fields, tagImageWidth, 0, bo))
	height := int(fieldFirst(fields, tagImageLength, 0, bo))
	if width <= 0 || height <= 0 {
		return nil, nil, fmt.Errorf("%w: tiff image is %dx%d", ErrCorruptData, width, height)
	}
	if _, tiled := fields[tagTileWidth]; tiled {
		return nil, nil, errTIFFFallback
	}

	compression := fieldFirst(fields, tagCompression, 1, bo)
	if compression != 1 && compression != 5 {
		return nil, nil, errTIFFFallback
	}
	photometric := fieldFirst(fields, tagPhotometric, 1, bo)
	if photometric > 2 {
		return nil, nil, errTIFFFallback
	}

	bands := int(fieldFirst(fields, tagSamplesPerPixel, 1, bo))
	if bands < 1 {
		return nil, nil, fmt.Errorf("%w: %d samples per pixel", ErrCorruptData, bands)
	}
	bits, err := uniformValue(fields, tagBitsPerSample, 8, bo)
	if err != nil {
		return nil, nil, err
	}
	format, err := uniformValue(fields, tagSampleFormat, 1, bo)
	if err != nil {
		return nil, nil, err
	}

	var sampleType imagery.SampleType
	switch {
	case bits == 8 && format == 1:
		sampleType = imagery.Uint8
	case bits == 16 && format == 1:
		sampleType = imagery.Uint16
	case bits == 32 && format == 3:
		sampleType = imagery.Float32
	default:
		return nil, nil, errTIFFFallback
	}
	bps := int(bits) / 8

	planar := fieldFirst(fields, tagPlanarConfig, 1, bo)
	rowsPerStrip := int(fieldFirst(fields, tagRowsPerStrip, uint64(height), bo))
	if rowsPerStrip <= 0 || rowsPerStrip > height {
		rowsPerStrip = height
	}
	predictor := fieldFirst(fields, tagPredictor, 1, bo)
	if predictor != 1 && predictor != 2 {
		return nil, nil, errTIFFFallback
	}
	if predictor == 2 && bps > 2 {
		return nil, nil, errTIFFFallback
	}

	offsets := fieldInts(fields, tagStripOffsets, bo)
	counts := fieldInts(fields, tagStripByteCounts, bo)
	if len(offsets) == 0 || len(offsets) != len(counts) {
		return nil, nil, fmt.Errorf("%w: %d strip offsets, %d byte counts", ErrCorruptData, len(offsets), len(counts))
	}

	stripsPerPlane := (height + rowsPerStrip - 1) / rowsPerStrip
	wantStrips := stripsPerPlane
	if planar == 2 {
		wantStrips = stripsPerPlane * bands
	}
	if len(offsets) != wantStrips {
		return nil, nil, fmt.Errorf("%w: tiff has %d strips, layout needs %d", ErrCorruptData, len(offsets), wantStrips)
	}

	// Decompress every strip into one contiguous buffer per plane
	// arrangement: planar data is already band-major, chunky data is
	// de-interleaved afterwards.
	rowBytesChunky := width * bands * bps
	rowBytesPlanar := width * bps
	img := imagery.New(bands, height, width, sampleType)
	for s := 0; s < len(offsets); s++ {
		off, cnt := offsets[s], counts[s]
		if off+cnt > uint64(len(data)) {
			return nil, nil, fmt.Errorf("%w: strip %d spans past end of file", ErrCorruptData, s)
		}
		raw := data[off : off+cnt]
		if compression == 5 {
			raw, err = lzwDecode(raw)
			if err != nil {
				return nil, nil, fmt.Errorf("%w: strip %d: %v", ErrCorruptData, s, err)
			}
		}

		band := 0
		rowStart := s * rowsPerStrip
		rowBytes := rowBytesChunky
		spp := bands
		if planar == 2 {
			band = s / stripsPerPlane
			rowStart = (s % stripsPerPlane) * rowsPerStrip
			rowBytes = rowBytesPlanar
			spp = 1
		}
		rows := rowsPerStrip
		if rowStart+rows > height {
			rows = height - rowStart
		}
		if len(raw) < rows*rowBytes {
			return nil, nil, fmt.Errorf("%w: strip %d holds %d bytes, need %d", ErrCorruptData, s, len(raw), rows*rowBytes)
		}
		if predictor == 2 {
			undoHorizontalPredictor(raw, rows, rowBytes, spp, bps, bo)
		}

		for r := 0; r < rows; r++ {
			row := raw[r*rowBytes : (r+1)*rowBytes]
			y := rowStart + r
			if planar == 2 {
				dst := img.Band(band)[y*width : (y+1)*width]
				decodeSamples(row, dst, bps, format, bo)
			} else {
				for x := 0; x < width; x++ {
					for b := 0; b < bands; b++ {
						v := decodeSample(row[(x*bands+b)*bps:], bps, format, bo)
						img.Set(b, y, x, v)
					}
				}
			}
		}
	}

	meta := &imagery.Metadata{}
	for _, tag := range passthroughTags {
		if f, ok := fields[tag]; ok {
			meta.Set(metadataKey(tag, f.typ), normalizeEndian(f.payload, f.typ, bo))
		}
	}
	return img, meta, nil
}

func parseTIFFHeader(data []byte) (binary.ByteOrder, uint32, error) {
	if len(data) < 8 {
		return nil, 0, fmt.Errorf("%w: truncated tiff header", ErrCorruptData)
	}
	var bo binary.ByteOrder
	switch string(data[:2]) {
	case "II":
		bo = binary.LittleEndian
	case "MM":
		bo = binary.BigEndian
	default:
		return nil, 0, fmt.Errorf("%w: bad tiff byte order mark %q", ErrCorruptData, data[:2])
	}
	if bo.Uint16(data[2:4]) != 42 {
		return nil, 0, fmt.Errorf("%w: bad tiff magic", ErrCorruptData)
	}
	return bo, bo.Uint32(data[4:8]), nil
}

func parseIFD(data []byte, bo binary.ByteOrder, offset uint32) (map[uint16]tiffField, error) {
	if int(offset)+2 > len(data) {
		return nil, fmt.Errorf("%w: ifd offset past end of file", ErrCorruptData)
	}
	n := int(bo.Uint16(data[offset : offset+2]))
	base := int(offset) + 2
	if base+n*12+4 > len(data) {
		return nil, fmt.Errorf("%w: truncated ifd", ErrCorruptData)
	}

	fields := make(map[uint16]tiffField, n)
	for i := 0; i < n; i++ {
		e := data[base+i*12 : base+(i+1)*12]
		tag := bo.Uint16(e[0:2])
		typ := bo.Uint16(e[2:4])
		count := bo.Uint32(e[4:8])
		size, ok := tiffTypeSize[typ]
		if !ok {
			continue
		}
		total := size * int(count)
		var payload []byte
		if total <= 4 {
			payload = e[8 : 8+total]
		} else {
			valOff := bo.Uint32(e[8:12])
			if int(valOff)+total > len(data) {
				return nil, fmt.Errorf("%w: tag %d payload past end of file", ErrCorruptData, tag)
			}
			payload = data[valOff : int(valOff)+total]
		}
		fields[tag] = tiffField{typ: typ, count: count, payload: payload}
	}
	return fields, nil
}

// fieldInts decodes an integer-typed field into a slice of values.
func fieldInts(fields map[uint16]tiffField, tag uint16, bo binary.ByteOrder) []uint64 {
	f, ok := fields[tag]
	if !ok {
		return nil
	}
	size := tiffTypeSize[f.typ]
	out := make([]uint64, 0, f.count)
	for i := 0; i+size <= len(f.payload); i += size {
		switch size {
		case 1:
			out = append(out, uint64(f.payload[i]))
		case 2:
			out = append(out, uint64(bo.Uint16(f.payload[i:])))
		case 4:
			out = append(out, uint64(bo.Uint32(f.payload[i:])))
		default:
			return nil
		}
	}
	return out
}

// fieldFirst returns the first integer value of a field, or def when
// the field is absent.
func fieldFirst(fields map[uint16]tiffField, tag uint16, def uint64, bo binary.ByteOrder) uint64 {
	vals := fieldInts(fields, tag, bo)
	if len(vals) == 0 {
		return def
	}
	return vals[0]
}

// uniformValue returns the single value a per-band field must share
// across all bands, or def when the field is absent.
func uniformValue(fields map[uint16]tiffField, tag uint16, def uint64, bo binary.ByteOrder) (uint64, error) {
	vals := fieldInts(fields, tag, bo)
	if len(vals) == 0 {
		return def, nil
	}
	for _, v := range vals[1:] {
		if v != vals[0] {
			return 0, errTIFFFallback
		}
	}
	return vals[0], nil
}

// decodeSamples converts one planar row of raw samples to float32.
func decodeSamples(row []byte, dst []float32, bps int, format uint64, bo binary.ByteOrder) {
	for x := range dst {
		dst[x] = decodeSample(row[x*bps:], bps, format, bo)
	}
}

func decodeSample(p []byte, bps int, format uint64, bo binary.ByteOrder) float32 {
	switch {
	case bps == 1:
		return float32(p[0])
	case bps == 2:
		return float32(bo.Uint16(p))
	case format == 3:
		return math.Float32frombits(bo.Uint32(p))
	}
	return 0
}

// undoHorizontalPredictor reverses TIFF predictor 2 in place.
func undoHorizontalPredictor(data []byte, rows, rowBytes, spp, bps int, bo binary.ByteOrder) {
	for r := 0; r < rows; r++ {
		row := data[r*rowBytes : (r+1)*rowBytes]
		if bps == 1 {
			for i := spp; i < len(row); i++ {
				row[i] += row[i-spp]
			}
			continue
		}
		for i := spp * 2; i+1 < len(row); i += 2 {
			v := bo.Uint16(row[i:]) + bo.Uint16(row[i-spp*2:])
			if bo == binary.LittleEndian {
				row[i] = byte(v)
				row[i+1] = byte(v >> 8)
			} else {
				row[i] = byte(v >> 8)
				row[i+1] = byte(v)
			}
		}
	}
}

// metadataKey names a passthrough tag inside the metadata envelope.
func metadataKey(tag, typ uint16) string {
	return fmt.Sprintf("tiff.%d.%d", tag, typ)
}

// parseMetadataKey recovers the tag and type from a metadata key,
// reporting ok=false for keys that did not come from a TIFF source.
func parseMetadataKey(key string) (tag, typ uint16, ok bool) {
	parts := strings.Split(key, ".")
	if len(parts) != 3 || parts[0] != "tiff" {
		return 0, 0, false
	}
	t, err := strconv.ParseUint(parts[1], 10, 16)
	if err != nil {
		return 0, 0, false
	}
	y, err := strconv.ParseUint(parts[2], 10, 16)
	if err != nil {
		return 0, 0, false
	}
	return uint16(t), uint16(y), true
}

// normalizeEndian converts a tag payload to little-endian, the byte
// order the writer emits. Little-endian sources pass through untouched,
// keeping the copy byte for byte.
func normalizeEndian(payload []byte, typ uint16, bo binary.ByteOrder) []byte {
	out := make([]byte, len(payload))
	copy(out, payload)
	if bo == binary.LittleEndian {
		return out
	}
	unit := tiffTypeUnit[typ]
	for i := 0; i+unit <= len(out); i += unit {
		for a, b := i, i+unit-1; a < b; a, b = a+1, b-1 {
			out[a], out[b] = out[b], out[a]
		}
	}
	return out
}

// encodeTIFF writes a canonical image as a little-endian planar TIFF
// (PlanarConfiguration=2) with one LZW-compressed strip per band, so
// the on-disk band order is exactly the canonical band order. The
// metadata envelope's TIFF tags are re-emitted unchanged.
func encodeTIFF(img *imagery.Image, meta *imagery.Metadata) ([]byte, error) {
	le := binary.LittleEndian
	bands, height, width := img.Bands, img.Height, img.Width

	var bps int
	var bits, format uint16
	switch img.Type {
	case imagery.Uint8:
		bps, bits, format = 1, 8, 1
	case imagery.Uint16:
		bps, bits, format = 2, 16, 1
	case imagery.Float32:
		bps, bits, format = 4, 32, 3
	}

	strips := make([][]byte, bands)
	for b := 0; b < bands; b++ {
		raw := make([]byte, height*width*bps)
		for i, v := range img.Band(b) {
			switch img.Type {
			case imagery.Uint8:
				raw[i] = uint8(v)
			case imagery.Uint16:
				le.PutUint16(raw[2*i:], uint16(v))
			case imagery.Float32:
				le.PutUint32(raw[4*i:], math.Float32bits(v))
			}
		}
		strips[b] = lzwEncode(raw)
	}

	type wfield struct {
		tag     uint16
		typ     uint16
		count   uint32
		payload []byte
	}
	shorts := func(vals ...uint16) []byte {
		p := make([]byte, 2*len(vals))
		for i, v := range vals {
			le.PutUint16(p[2*i:], v)
		}
		return p
	}
	longs := func(vals ...uint32) []byte {
		p := make([]byte, 4*len(vals))
		for i, v := range vals {
			le.PutUint32(p[4*i:], v)
		}
		return p
	}
	repeatShort := func(v uint16, n int) []byte {
		vals := make([]uint16, n)
		for i := range vals {
			vals[i] = v
		}
		return shorts(vals...)
	}

	fields := []wfield{
		{tagImageWidth, 4, 1, longs(uint32(width))},
		{tagImageLength, 4, 1, longs(uint32(height))},
		{tagBitsPerSample, 3, uint32(bands), repeatShort(bits, bands)},
		{tagCompression, 3, 1, shorts(5)},
		{tagPhotometric, 3, 1, shorts(1)},
		{tagStripOffsets, 4, uint32(bands), nil}, // filled in after layout
		{tagSamplesPerPixel, 3, 1, shorts(uint16(bands))},
		{tagRowsPerStrip, 4, 1, longs(uint32(height))},
		{tagStripByteCounts, 4, uint32(bands), nil},
		{tagPlanarConfig, 3, 1, shorts(2)},
		{tagSampleFormat, 3, uint32(bands), repeatShort(format, bands)},
	}
	structural := make(map[uint16]bool, len(fields))
	for _, f := range fields {
		structural[f.tag] = true
	}
	if meta != nil {
		for _, e := range meta.Entries() {
			tag, typ, ok := parseMetadataKey(e.Key)
			if !ok || structural[tag] {
				continue
			}
			size := tiffTypeSize[typ]
			if size == 0 || len(e.Value)%size != 0 {
				continue
			}
			fields = append(fields, wfield{tag, typ, uint32(len(e.Value) / size), e.Value})
		}
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i].tag < fields[j].tag })

	// Layout: header, IFD, out-of-line values, strip data.
	ifdSize := 2 + 12*len(fields) + 4
	valueStart := 8 + ifdSize
	valueSize := 0
	for i := range fields {
		n := len(fields[i].payload)
		if fields[i].tag == tagStripOffsets || fields[i].tag == tagStripByteCounts {
			n = 4 * bands
		}
		if n > 4 {
			valueSize += (n + 1) &^ 1
		}
	}
	stripStart := valueStart + valueSize
	stripStart = (stripStart + 1) &^ 1

	stripOffsets := make([]uint32, bands)
	stripCounts := make([]uint32, bands)
	pos := uint32(stripStart)
	for b := 0; b < bands; b++ {
		stripOffsets[b] = pos
		stripCounts[b] = uint32(len(strips[b]))
		pos += uint32((len(strips[b]) + 1) &^ 1)
	}
	for i := range fields {
		switch fields[i].tag {
		case tagStripOffsets:
			fields[i].payload = longs(stripOffsets...)
		case tagStripByteCounts:
			fields[i].payload = longs(stripCounts...)
		}
	}

	out := make([]byte, 0, int(pos))
	out = append(out, 'I', 'I', 42, 0)
	out = append(out, longs(8)...)

	out = append(out, shorts(uint16(len(fields)))...)
	valuePos := uint32(valueStart)
	var valueArea []byte
	for _, f := range fields {
		out = append(out, shorts(f.tag, f.typ)...)
		out = append(out, longs(f.count)...)
		if len(f.payload) <= 4 {
			var inline [4]byte
			copy(inline[:], f.payload)
			out = append(out, inline[:]...)
		} else {
			out = append(out, longs(valuePos)...)
			valueArea = append(valueArea, f.payload...)
			if len(f.payload)%2 == 1 {
				valueArea = append(valueArea, 0)
			}
			valuePos += uint32((len(f.payload) + 1) &^ 1)
		}
	}
	out = append(out, longs(0)...) // no further IFDs
	out = append(out, valueArea...)
	for len(out) < stripStart {
		out = append(out, 0)
	}
	for _, s := range strips {
		out = append(out, s...)
		if len(s)%2 == 1 {
			out = append(out, 0)
		}
	}
	return out, nil
}
