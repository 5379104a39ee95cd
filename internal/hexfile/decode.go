// Package hexfile reads and writes Intel HEX style record files.
//
// Supported record types are data (0), end of file (1), extended
// segment address (2) and extended linear address (4). Other types are
// skipped without effect, which keeps the reader tolerant of files
// produced by toolchains that emit start-address records.
package hexfile

import (
	"bufio"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"sort"

	"wrangle/internal/memimg"
)

// Record layout offsets after hex decoding a line: count, two address
// bytes, type, payload, trailing checksum.
const minRecordBytes = 5

const (
	recordData            = 0x00
	recordEOF             = 0x01
	recordExtendedSegment = 0x02
	recordExtendedLinear  = 0x04
)

// memoryRecord is one addressed byte collected during the line scan.
// The set is sparse and unordered until the final fold.
type memoryRecord struct {
	address uint32
	value   byte
}

// Decode reads an Intel HEX stream into a dense image. Gaps between
// data records are filled with fill. With LittleEndian the byte order
// of every 32-bit word is reversed after assembly, which requires the
// assembled layout to be word aligned.
//
// Overlapping data records are not deduplicated: duplicate addresses
// fold into adjacent output bytes in sorted order. Files doing that are
// malformed by most emitters' standards and callers should avoid them.
func Decode(r io.Reader, name string, end memimg.Endianness, fill byte) (*memimg.Image, error) {
	var records []memoryRecord

	var extendedSegmentAddress uint16
	var extendedLinearAddress uint16

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

scan:
	for lineNum := 0; scanner.Scan(); lineNum++ {
		line := scanner.Text()
		if len(line) == 0 {
			return nil, decodeErr(name, lineNum, ErrRecordTooShort)
		}

		// Everything after the marker character is hex.
		raw, err := hex.DecodeString(line[1:])
		if err != nil {
			return nil, decodeErr(name, lineNum, fmt.Errorf("invalid hex data: %w", err))
		}
		if len(raw) < minRecordBytes {
			return nil, decodeErr(name, lineNum, ErrRecordTooShort)
		}

		included := raw[len(raw)-1]
		if computed := memimg.Checksum(raw[:len(raw)-1]); included != computed {
			return nil, decodeErr(name, lineNum,
				fmt.Errorf("%w: computed 0x%02X, record carries 0x%02X", ErrChecksum, computed, included))
		}

		count := int(raw[0])
		baseAddress := binary.BigEndian.Uint16(raw[1:3])
		recordType := raw[3]
		if count+minRecordBytes > len(raw) {
			return nil, decodeErr(name, lineNum,
				fmt.Errorf("%w: count %d exceeds record size", ErrRecordTooShort, count))
		}
		payload := raw[len(raw)-count-1 : len(raw)-1]

		switch recordType {
		case recordData:
			for offset, value := range payload {
				address := uint32(extendedLinearAddress)<<16 |
					(16*uint32(extendedSegmentAddress) + uint32(baseAddress) + uint32(offset))
				records = append(records, memoryRecord{address: address, value: value})
			}
		case recordEOF:
			// Trailing lines after the EOF record are ignored.
			break scan
		case recordExtendedSegment:
			if count != 2 {
				return nil, decodeErr(name, lineNum, ErrExtendedAddressLength)
			}
			extendedSegmentAddress = binary.BigEndian.Uint16(payload)
		case recordExtendedLinear:
			if count != 2 {
				return nil, decodeErr(name, lineNum, ErrExtendedAddressLength)
			}
			extendedLinearAddress = binary.BigEndian.Uint16(payload)
		default:
			// Unknown record types carry no memory contents.
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}

	img := assemble(records, fill)

	if end == memimg.LittleEndian {
		if err := memimg.SwapWords(img.Bytes); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
	}

	return img, nil
}

// assemble sorts the sparse record set by address and folds it into a
// contiguous buffer, materializing gaps as runs of the fill byte. The
// sort is stable on address so duplicates keep their scan order.
func assemble(records []memoryRecord, fill byte) *memimg.Image {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].address < records[j].address
	})

	var startAddress uint32
	if len(records) > 0 {
		startAddress = records[0].address
	}

	var size int
	if len(records) > 0 {
		size = int(records[len(records)-1].address - startAddress)
	}

	raw := make([]byte, 0, size)
	previous := startAddress
	for _, rec := range records {
		if gap := rec.address - previous; gap > 1 {
			for i := uint32(1); i < gap; i++ {
				raw = append(raw, fill)
			}
		}
		raw = append(raw, rec.value)
		previous = rec.address
	}

	return &memimg.Image{StartAddress: startAddress, Bytes: raw}
}
