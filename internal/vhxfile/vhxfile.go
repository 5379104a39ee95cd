// Package vhxfile reads and writes vhx memory dumps: a bare hex digit
// stream grouped into fixed-size chunks of 32-bit words, one chunk per
// line, most significant word first.
package vhxfile

import (
	"encoding/hex"
	"fmt"
	"io"

	"wrangle/internal/memimg"
)

// ChunkSizes lists the chunk widths, in bits, a vhx file may use.
var ChunkSizes = []int{64, 128}

// ValidChunkSize reports whether bits is a supported chunk width.
func ValidChunkSize(bits int) bool {
	for _, s := range ChunkSizes {
		if s == bits {
			return true
		}
	}
	return false
}

const bitsPerWord = 8 * memimg.BytesPerWord

// Decode reads a vhx stream into an image. Characters other than hex
// digits are separators and are skipped. The digit stream must divide
// evenly into chunks of chunkBits; the start address comes from the
// caller, not the file.
func Decode(r io.Reader, name string, startAddress uint32, chunkBits int) (*memimg.Image, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}

	digits := content[:0]
	for _, c := range content {
		if isHexDigit(c) {
			digits = append(digits, c)
		}
	}

	raw := make([]byte, hex.DecodedLen(len(digits)))
	if _, err := hex.Decode(raw, digits); err != nil {
		return nil, fmt.Errorf("%s: invalid hex data: %w", name, err)
	}

	chunkLen := chunkBits / bitsPerWord * memimg.BytesPerWord
	if len(raw)%chunkLen != 0 {
		return nil, fmt.Errorf("%s does not contain a complete vhx memory layout", name)
	}

	// Each chunk stores its words most significant first; the image
	// wants them in ascending address order.
	bytes := make([]byte, 0, len(raw))
	for off := 0; off < len(raw); off += chunkLen {
		chunk := raw[off : off+chunkLen]
		for wordOff := chunkLen - memimg.BytesPerWord; wordOff >= 0; wordOff -= memimg.BytesPerWord {
			bytes = append(bytes, chunk[wordOff:wordOff+memimg.BytesPerWord]...)
		}
	}

	return &memimg.Image{StartAddress: startAddress, Bytes: bytes}, nil
}

// Encode writes img as vhx chunks of chunkBits. A trailing group of
// words too short to fill a chunk is dropped, mirroring what reading
// such a file back would reject as incomplete.
func Encode(w io.Writer, img *memimg.Image, chunkBits int) error {
	wordsPerChunk := chunkBits / bitsPerWord
	chunkLen := wordsPerChunk * memimg.BytesPerWord

	for off := 0; off+chunkLen <= len(img.Bytes); off += chunkLen {
		chunk := img.Bytes[off : off+chunkLen]
		for wordOff := chunkLen - memimg.BytesPerWord; wordOff >= 0; wordOff -= memimg.BytesPerWord {
			if _, err := io.WriteString(w, hex.EncodeToString(chunk[wordOff:wordOff+memimg.BytesPerWord])); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, "\n"); err != nil {
			return err
		}
	}
	return nil
}

func isHexDigit(c byte) bool {
	return c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F'
}
