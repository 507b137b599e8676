package rlecodec

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// CodecError is the error type returned by every fallible operation in this
// module. Use [errors.Is] against one of the sentinels below to find out what
// kind of failure occurred.
type CodecError interface {
	error
	WithMessage(message string) CodecError
	Wrap(err error) CodecError
}

// errorKind names a category of failure. Its only use is as the innermost
// link of every [CodecError] chain, which is what [errors.Is] matches against.
type errorKind string

const rootError = errorKind("")

// ErrInvalidArgument indicates a missing stream, a zero size, or an unknown mode.
var ErrInvalidArgument = rootError.WithMessage("Invalid argument")

// ErrAllocationFailure indicates a buffer could not be allocated at the
// requested size.
var ErrAllocationFailure = rootError.WithMessage("Cannot allocate memory")

// ErrIOFailed indicates a failed or short read/write on a source or sink.
var ErrIOFailed = rootError.WithMessage("Input/output error")

// ErrCorruptData indicates the compressed stream is not well-formed.
var ErrCorruptData = rootError.WithMessage("Compressed data is corrupted")

func (kind errorKind) Error() string {
	return string(kind)
}

func (kind errorKind) WithMessage(message string) CodecError {
	return detailedError{message: message, cause: kind}
}

func (kind errorKind) Wrap(err error) CodecError {
	return wrap(kind, err)
}

// detailedError adds context to a sentinel. Every call to WithMessage or Wrap
// nests the previous error inside the new one, so the sentinel stays reachable
// through Unwrap.
type detailedError struct {
	message string
	cause   error
}

func (e detailedError) Error() string {
	return e.message
}

// WithMessage appends `message` to the text of the error.
func (e detailedError) WithMessage(message string) CodecError {
	return detailedError{
		message: fmt.Sprintf("%s: %s", e.message, message),
		cause:   e,
	}
}

// Wrap attaches `err` as a second cause. The result matches both this error's
// sentinel and `err` under [errors.Is].
func (e detailedError) Wrap(err error) CodecError {
	return wrap(e, err)
}

func (e detailedError) Unwrap() error {
	return e.cause
}

func wrap(outer CodecError, err error) CodecError {
	return detailedError{
		message: fmt.Sprintf("%s: %s", outer.Error(), err.Error()),
		cause:   multierror.Append(outer, err),
	}
}
