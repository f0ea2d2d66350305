// Package wire implements the byte cursor every network message is read
// from and written to. All multi-byte fields are big-endian (network order);
// floats are IEEE-754 binary32.
//
// Like netconfig it must not depend on ebiten so the server feed can import it.
package wire

import (
	"errors"
	"fmt"
)

// ErrTruncatedInput matches every *TruncatedInputError with errors.Is.
var ErrTruncatedInput = errors.New("truncated input")

// TruncatedInputError reports a read past the end of the buffer.
type TruncatedInputError struct {
	Offset int // cursor position when the read was attempted
	Need   int // bytes the read required
	Have   int // bytes that were left
}

func (e *TruncatedInputError) Error() string {
	return fmt.Sprintf("truncated input at offset %d: need %d bytes, have %d", e.Offset, e.Need, e.Have)
}

func (e *TruncatedInputError) Is(target error) bool {
	return target == ErrTruncatedInput
}
