// Package memimg holds the in-memory representation shared by all
// converters: a flat byte image anchored at a start address.
package memimg

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
)

// Word geometry shared by every format in the tool. Both hex and vhx
// treat memory as a stream of 32-bit words.
const (
	BytesPerWord     = 4
	WordsPerDumpLine = 4
)

// Endianness selects the byte order of 32-bit words inside an image.
type Endianness int

const (
	LittleEndian Endianness = iota
	BigEndian
)

// ParseEndianness parses a flag value into an Endianness.
func ParseEndianness(s string) (Endianness, error) {
	switch strings.ToLower(s) {
	case "little":
		return LittleEndian, nil
	case "big":
		return BigEndian, nil
	default:
		return 0, fmt.Errorf("endianness must be either little or big, got %q", s)
	}
}

func (e Endianness) String() string {
	if e == LittleEndian {
		return "little"
	}
	return "big"
}

// Checksum computes the Intel HEX record checksum: the two's complement
// of the wrapping byte sum.
func Checksum(data []byte) byte {
	var sum byte
	for _, b := range data {
		sum += b
	}
	return ^sum + 1
}

// Image is a dense, contiguous memory layout. It is built once by a
// decoder and read by encoders and the dump renderer; nothing mutates
// it afterwards.
type Image struct {
	StartAddress uint32
	Bytes        []byte
}

// WordCount reports how many complete 32-bit words the image holds.
func (img *Image) WordCount() int {
	return len(img.Bytes) / BytesPerWord
}

// SwapWords reverses the byte order inside each 32-bit word in place.
// The buffer length must be a multiple of the word size; anything else
// means a decoder produced a torn word, which is a bug, not bad input.
func SwapWords(b []byte) error {
	if len(b)%BytesPerWord != 0 {
		return fmt.Errorf("memory layout of %d bytes is not word aligned", len(b))
	}
	for off := 0; off < len(b); off += BytesPerWord {
		word := b[off : off+BytesPerWord]
		for i, j := 0, BytesPerWord-1; i < j; i, j = i+1, j-1 {
			word[i], word[j] = word[j], word[i]
		}
	}
	return nil
}

// DumpLines renders the image as address-annotated lines of four words,
// sixteen bytes per line. A trailing partial word is not shown.
func (img *Image) DumpLines() []string {
	words := make([]string, 0, img.WordCount())
	for off := 0; off+BytesPerWord <= len(img.Bytes); off += BytesPerWord {
		words = append(words, hex.EncodeToString(img.Bytes[off:off+BytesPerWord]))
	}

	var lines []string
	for i := 0; i < len(words); i += WordsPerDumpLine {
		end := i + WordsPerDumpLine
		if end > len(words) {
			end = len(words)
		}

		var addr [4]byte
		binary.BigEndian.PutUint32(addr[:], img.StartAddress+uint32(i*BytesPerWord))

		lines = append(lines, fmt.Sprintf("%s: %s",
			hex.EncodeToString(addr[:]),
			strings.Join(words[i:end], " ")))
	}
	return lines
}

// Dump writes the plain dump rendering to w.
func (img *Image) Dump(w io.Writer) error {
	for _, line := range img.DumpLines() {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
