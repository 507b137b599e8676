package compression

import (
	"bufio"
	"errors"
	"io"

	"github.com/dargueta/rlecodec"
)

// Run is a stretch of identical bytes in an uncompressed stream.
type Run struct {
	Value  byte
	Length int
}

// RunScanner reads an uncompressed stream one run at a time.
type RunScanner struct {
	source *bufio.Reader
	offset int64
}

func NewRunScanner(source io.Reader) *RunScanner {
	return &RunScanner{source: bufio.NewReader(source)}
}

// Offset is the number of bytes consumed from the stream so far.
func (scanner *RunScanner) Offset() int64 {
	return scanner.offset
}

// Next returns the next run in the stream, stopping after `limit` bytes even if
// the run continues. A limit of 0 or less doesn't cap the run. Two consecutive
// runs with the same value only happen when the first one hit the limit.
//
// At the end of the stream Next returns a zero [Run] and [io.EOF]. Any other
// read error is wrapped in [rlecodec.ErrIOFailed].
func (scanner *RunScanner) Next(limit int) (Run, error) {
	first, err := scanner.source.ReadByte()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Run{}, io.EOF
		}
		return Run{}, rlecodec.ErrIOFailed.Wrap(err)
	}

	run := Run{Value: first, Length: 1}
	for limit <= 0 || run.Length < limit {
		b, err := scanner.source.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			scanner.offset += int64(run.Length)
			return Run{}, rlecodec.ErrIOFailed.Wrap(err)
		}
		if b != first {
			_ = scanner.source.UnreadByte()
			break
		}
		run.Length++
	}

	scanner.offset += int64(run.Length)
	return run, nil
}
