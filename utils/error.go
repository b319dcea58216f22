package utils

import (
	"errors"
	"fmt"
	"strconv"
)

var ErrNilParameter = errors.New("nil parameter")
var ErrWrongParameter = errors.New("wrong parameter")
var ErrInvalidData = errors.New("invalid data")

// Frame level failures. A stream that triggers one of them is either corrupted or being probed,
// so the connection owner closes the connection instead of retrying.
var (
	// ErrFrameTooShort: not enough bytes to check a structural invariant.
	// AdvancedBuffer treats it as "wait for more data".
	ErrFrameTooShort = errors.New("frame too short")

	// ErrMalformedHeader: fixed marker bytes differ from the protocol constant.
	ErrMalformedHeader = errors.New("malformed header")

	// ErrLengthMismatch: a declared length field disagrees with the bytes available.
	ErrLengthMismatch = errors.New("length mismatch")

	// ErrFrameTooLarge: a resolved frame length is over the configured ceiling.
	ErrFrameTooLarge = errors.New("frame too large")
)

type NumErr struct {
	N      int
	Prefix string
}

func (ne NumErr) Error() string {
	return ne.Prefix + strconv.Itoa(ne.N)
}

// ErrInErr fits the case where an error carries another error plus some data.
// Return it as a struct, not a pointer, so that it does not escape to the heap.
type ErrInErr struct {
	ErrDesc   string
	ErrDetail error
	Data      any
}

func (e ErrInErr) Error() string {
	return e.String()
}

func (e ErrInErr) Unwrap() error {
	return e.ErrDetail
}

func (e ErrInErr) String() string {

	if e.Data != nil {

		if e.ErrDetail != nil {
			return fmt.Sprintf("%s : %s, Data: %v", e.ErrDesc, e.ErrDetail.Error(), e.Data)

		}

		return fmt.Sprintf("%s , Data: %v", e.ErrDesc, e.Data)

	}
	if e.ErrDetail != nil {
		return fmt.Sprintf("%s : %s", e.ErrDesc, e.ErrDetail.Error())

	}
	return e.ErrDesc

}
