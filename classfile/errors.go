package classfile

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/chazu/classkit/bytevec"
)

// ---------------------------------------------------------------------------
// Error Types
// ---------------------------------------------------------------------------

var (
	ErrMalformed           = errors.New("malformed class file")
	ErrStringTooLong       = bytevec.ErrStringTooLong
	ErrCodeTooLarge        = errors.New("method code too large")
	ErrClassTooLarge       = errors.New("class file too large")
	ErrSubroutineFrames    = errors.New("JSR/RET are not supported when computing frames")
	ErrUnsupportedConstant = errors.New("unsupported constant value")
	ErrInvalidFrame        = errors.New("invalid stack map frame")
)

// malformedError carries a malformed-input failure from deep inside the
// reader up to the Accept boundary.
type malformedError struct {
	err error
}

func failMalformed(format string, args ...any) {
	panic(malformedError{fmt.Errorf("%w: "+format, append([]any{ErrMalformed}, args...)...)})
}

// recoverMalformed turns reader panics caused by bad input into an error.
// Panics unrelated to input decoding are re-raised.
func recoverMalformed(errp *error) {
	r := recover()
	if r == nil {
		return
	}
	switch e := r.(type) {
	case malformedError:
		*errp = e.err
	case runtime.Error:
		// Index out of range while walking untrusted bytes.
		*errp = fmt.Errorf("%w: %v", ErrMalformed, e)
	default:
		panic(r)
	}
}
