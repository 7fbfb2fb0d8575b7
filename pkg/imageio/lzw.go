package imageio

import (
	"fmt"
)

// TIFF 6.0 LZW. The scheme is standard MSB-first LZW with 8-bit
// literals, except that the code width grows one code earlier than in
// GIF-style LZW ("early change"): the encoder widens as soon as the
// next free code equals 2^width-1. The standard library's compress/lzw
// implements the late-change variant, so TIFF strips need this codec.
const (
	lzwClearCode = 256
	lzwEOICode   = 257
	lzwFirstFree = 258
	lzwMaxWidth  = 12

	// lzwResetAt is the table size at which the encoder emits a clear
	// code and starts a fresh table.
	lzwResetAt = 4094
)

// lzwDecode expands one LZW-compressed TIFF strip.
func lzwDecode(src []byte) ([]byte, error) {
	var (
		out      []byte
		bitBuf   uint32
		bitCount uint
		pos      int
		width    uint = 9
	)

	// suffix/prefixLen reconstruct table strings lazily: entry i
	// (i >= lzwFirstFree) is the string of entry prefix[i] followed by
	// suffix[i].
	prefix := make([]int, 4096)
	suffix := make([]byte, 4096)
	length := make([]int, 4096)
	next := lzwFirstFree
	prevCode := -1

	readCode := func() (int, bool) {
		for bitCount < width {
			if pos >= len(src) {
				return 0, false
			}
			bitBuf = bitBuf<<8 | uint32(src[pos])
			pos++
			bitCount += 8
		}
		bitCount -= width
		return int(bitBuf>>bitCount) & ((1 << width) - 1), true
	}

	expand := func(code int) []byte {
		var stack []byte
		for code >= lzwFirstFree {
			stack = append(stack, suffix[code])
			code = prefix[code]
		}
		stack = append(stack, byte(code))
		for i, j := 0, len(stack)-1; i < j; i, j = i+1, j-1 {
			stack[i], stack[j] = stack[j], stack[i]
		}
		return stack
	}

	firstByte := func(code int) byte {
		for code >= lzwFirstFree {
			code = prefix[code]
		}
		return byte(code)
	}

	codeLen := func(code int) int {
		if code < lzwFirstFree {
			return 1
		}
		return length[code]
	}

	for {
		code, ok := readCode()
		if !ok {
			// Strips are allowed to end without an explicit EOI.
			return out, nil
		}
		switch {
		case code == lzwEOICode:
			return out, nil
		case code == lzwClearCode:
			width = 9
			next = lzwFirstFree
			prevCode = -1
			continue
		case prevCode == -1:
			if code >= lzwClearCode {
				return nil, fmt.Errorf("lzw: invalid literal code %d after clear", code)
			}
			out = append(out, byte(code))
			prevCode = code
			continue
		}

		if code > next {
			return nil, fmt.Errorf("lzw: code %d beyond table size %d", code, next)
		}

		if code < next {
			out = append(out, expand(code)...)
			prefix[next] = prevCode
			suffix[next] = firstByte(code)
			length[next] = codeLen(prevCode) + 1
		} else {
			// KwKwK case: the code names the entry being defined.
			b := firstByte(prevCode)
			out = append(out, expand(prevCode)...)
			out = append(out, b)
			prefix[next] = prevCode
			suffix[next] = b
			length[next] = codeLen(prevCode) + 1
		}
		next++
		if next >= 4096 {
			return nil, fmt.Errorf("lzw: table overflow without clear code")
		}
		// The decoder's table lags the encoder's by one entry, so the
		// early change lands one code sooner here: 510, 1022, 2046.
		if next == (1<<width)-2 && width < lzwMaxWidth {
			width++
		}
		prevCode = code
	}
}

// lzwEncode compresses one TIFF strip.
func lzwEncode(src []byte) []byte {
	var (
		out      []byte
		bitBuf   uint32
		bitCount uint
		width    uint = 9
	)

	writeCode := func(code int) {
		bitBuf = bitBuf<<width | uint32(code)
		bitCount += width
		for bitCount >= 8 {
			bitCount -= 8
			out = append(out, byte(bitBuf>>bitCount))
		}
	}

	// table maps (prefix code << 8 | next byte) to an assigned code.
	table := make(map[uint32]int, 4096)
	next := lzwFirstFree

	reset := func() {
		table = make(map[uint32]int, 4096)
		next = lzwFirstFree
	}

	writeCode(lzwClearCode)
	omega := -1
	for _, k := range src {
		if omega == -1 {
			omega = int(k)
			continue
		}
		key := uint32(omega)<<8 | uint32(k)
		if code, ok := table[key]; ok {
			omega = code
			continue
		}
		writeCode(omega)
		table[key] = next
		next++
		if next == (1<<width)-1 && width < lzwMaxWidth {
			width++
		}
		if next >= lzwResetAt {
			writeCode(lzwClearCode)
			width = 9
			reset()
		}
		omega = int(k)
	}
	if omega != -1 {
		writeCode(omega)
	}
	writeCode(lzwEOICode)
	if bitCount > 0 {
		out = append(out, byte(bitBuf<<(8-bitCount)))
	}
	return out
}
