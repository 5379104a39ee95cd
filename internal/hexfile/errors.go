package hexfile

import (
	"errors"
	"fmt"
)

// Sentinel decode failures, matchable with errors.Is through DecodeError.
var (
	ErrChecksum              = errors.New("checksum mismatch")
	ErrRecordTooShort        = errors.New("record too short")
	ErrExtendedAddressLength = errors.New("extended address record must carry exactly 2 bytes")
)

// DecodeError is a failure tied to one record of a hex file. Line
// numbers are zero based, matching how verification tooling reports
// record positions.
type DecodeError struct {
	File string
	Line int
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: line %d: %v", e.File, e.Line, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

func decodeErr(file string, line int, err error) error {
	return &DecodeError{File: file, Line: line, Err: err}
}
