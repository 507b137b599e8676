package rlecodec

const (
	KiB = 1024
	MiB = 1024 * KiB
	GiB = 1024 * MiB
)

// MaxBufferSize is the largest buffer or chunk size any codec component will
// allocate. Requests above this fail with [ErrAllocationFailure].
const MaxBufferSize = 1 * GiB

// ProgressInterval is how much input a driver processes between two progress
// notifications.
const ProgressInterval = 100 * KiB

// CheckBufferSize validates a caller-supplied buffer size. `what` names the
// buffer in the error message.
func CheckBufferSize(what string, size int) error {
	if size <= 0 {
		return ErrInvalidArgument.WithMessage(
			what + " must be greater than zero")
	}
	if size > MaxBufferSize {
		return ErrAllocationFailure.WithMessage(
			what + " exceeds the maximum buffer size")
	}
	return nil
}
