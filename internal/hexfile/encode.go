package hexfile

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"wrangle/internal/memimg"
)

// One data record carries four words.
const bytesPerRecord = memimg.WordsPerDumpLine * memimg.BytesPerWord

// Encode writes img as Intel HEX records: a single extended linear
// address record derived from the high half of the start address,
// 16-byte data records, and the EOF record. With LittleEndian each
// word's bytes are reversed on the way out, undoing the decoder's swap.
//
// Data records carry only the low 16 bits of their address, so images
// reaching 64KiB past the start address wrap instead of emitting
// further extended address records. That matches the layout the
// consuming flash tools expect.
func Encode(w io.Writer, img *memimg.Image, end memimg.Endianness) error {
	bw := bufio.NewWriter(w)

	var startAddress [4]byte
	binary.BigEndian.PutUint32(startAddress[:], img.StartAddress)

	extended := []byte{0x02, 0x00, 0x00, 0x04, startAddress[0], startAddress[1]}
	if err := writeRecord(bw, extended); err != nil {
		return err
	}

	for offset := 0; offset < len(img.Bytes); offset += bytesPerRecord {
		group := img.Bytes[offset:]
		if len(group) > bytesPerRecord {
			group = group[:bytesPerRecord]
		}

		var subAddress [4]byte
		binary.BigEndian.PutUint32(subAddress[:], img.StartAddress+uint32(offset))

		record := make([]byte, 0, 4+len(group))
		record = append(record, byte(len(group)), subAddress[2], subAddress[3], 0x00)

		for wordOff := 0; wordOff+memimg.BytesPerWord <= len(group); wordOff += memimg.BytesPerWord {
			word := group[wordOff : wordOff+memimg.BytesPerWord]
			if end == memimg.LittleEndian {
				for i := len(word) - 1; i >= 0; i-- {
					record = append(record, word[i])
				}
			} else {
				record = append(record, word...)
			}
		}

		if err := writeRecord(bw, record); err != nil {
			return err
		}
	}

	if _, err := fmt.Fprintln(bw, ":00000001FF"); err != nil {
		return err
	}
	return bw.Flush()
}

// writeRecord appends the checksum to data and emits one uppercase hex
// line with the record marker.
func writeRecord(w io.Writer, data []byte) error {
	line := append(data, memimg.Checksum(data))
	_, err := fmt.Fprintf(w, ":%X\n", line)
	return err
}
