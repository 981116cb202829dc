package insts

import (
	"errors"
	"fmt"
)

var (
	// ErrTruncated is matched by every *TruncatedError.
	ErrTruncated = errors.New("truncated instruction stream")

	// ErrBoundary reports an ARM/Thumb region boundary outside the buffer.
	ErrBoundary = errors.New("region boundary out of range")

	// ErrNotEncodable reports an instruction that has no encoding in the
	// requested instruction set.
	ErrNotEncodable = errors.New("not encodable")
)

// TruncatedError reports residual bytes at the end of a region that do
// not form a whole encoding unit.
type TruncatedError struct {
	Set      Set
	Length   int // Bytes in the region
	Residual int // Bytes left over after the last whole unit
}

func (e *TruncatedError) Error() string {
	return fmt.Sprintf("%s region of %d bytes has %d trailing bytes (unit is %d)",
		e.Set, e.Length, e.Residual, e.Set.Unit())
}

// Is matches ErrTruncated.
func (e *TruncatedError) Is(target error) bool {
	return target == ErrTruncated
}

// EncodeError reports why an instruction could not be encoded.
type EncodeError struct {
	Set    Set
	Inst   string
	Reason string
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("cannot encode %q as %s: %s", e.Inst, e.Set, e.Reason)
}

// Unwrap returns ErrNotEncodable.
func (e *EncodeError) Unwrap() error {
	return ErrNotEncodable
}
