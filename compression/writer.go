package compression

import (
	"fmt"
	"io"

	"github.com/dargueta/rlecodec"
)

// RLEWriter encodes a byte stream one byte at a time into run and literal
// records, buffering them in a fixed-size output buffer that is flushed to the
// sink whenever it fills up.
//
// An RLEWriter does not write the mode header; see [Encode]. It is not safe for
// concurrent use.
type RLEWriter struct {
	sink      io.Writer
	mode      Mode
	limit     int
	buffer    []byte
	cursor    int
	run       runState
	processed int64
	written   int64
}

// NewRLEWriter creates a writer that sends encoded records to `sink`, buffering
// up to `bufferCapacity` bytes in memory.
func NewRLEWriter(sink io.Writer, bufferCapacity int, mode Mode) (*RLEWriter, error) {
	if sink == nil {
		return nil, rlecodec.ErrInvalidArgument.WithMessage("writer sink is nil")
	}
	if !mode.Valid() {
		return nil, rlecodec.ErrInvalidArgument.WithMessage(
			fmt.Sprintf("unknown compression mode %d", byte(mode)))
	}
	err := rlecodec.CheckBufferSize("writer buffer capacity", bufferCapacity)
	if err != nil {
		return nil, err
	}

	return &RLEWriter{
		sink:   sink,
		mode:   mode,
		limit:  mode.CountLimit(),
		buffer: make([]byte, bufferCapacity),
		run:    newRunState(),
	}, nil
}

// Mode returns the wire format the writer produces.
func (writer *RLEWriter) Mode() Mode {
	return writer.mode
}

// Processed returns the number of input bytes consumed so far.
func (writer *RLEWriter) Processed() int64 {
	return writer.processed
}

// Written returns the number of encoded bytes flushed to the sink so far.
func (writer *RLEWriter) Written() int64 {
	return writer.written
}

// WriteByte consumes one input byte. Nothing is written to the sink unless the
// output buffer fills up.
func (writer *RLEWriter) WriteByte(b byte) error {
	err := writer.step(b)
	if err != nil {
		return err
	}
	writer.processed++
	return nil
}

// Write consumes every byte in `p`. On failure the returned count is the number
// of bytes consumed before the error.
func (writer *RLEWriter) Write(p []byte) (int, error) {
	for i, b := range p {
		err := writer.WriteByte(b)
		if err != nil {
			return i, err
		}
	}
	return len(p), nil
}

// Finalize emits the open run, if any, and flushes everything buffered to the
// sink. It returns the total number of input bytes consumed over the lifetime
// of the writer.
func (writer *RLEWriter) Finalize() (int64, error) {
	if writer.run.isOpen() {
		// Feed a byte guaranteed to differ from the current one so the run is
		// emitted, then throw away the run that byte opened.
		err := writer.step(writer.run.value + 1)
		if err != nil {
			return writer.processed, err
		}
		writer.run.reset()
	}

	err := writer.flush()
	return writer.processed, err
}

// Close is [RLEWriter.Finalize] without the byte count, so the writer can be
// used as an [io.WriteCloser].
func (writer *RLEWriter) Close() error {
	_, err := writer.Finalize()
	return err
}

// step is the per-byte transition of the run state.
func (writer *RLEWriter) step(b byte) error {
	if !writer.run.isOpen() {
		writer.run.open(b)
		return nil
	}

	if b == writer.run.value && writer.run.length < writer.limit {
		writer.run.length++
		// A repeat ends any literal record; the run will be emitted after it.
		writer.run.closeLiteral()
		return nil
	}

	err := writer.emit(writer.run.value, writer.run.length)
	if err != nil {
		return err
	}
	writer.run.open(b)
	return nil
}

// emit writes the record for a closed run of `length` copies of `value`.
func (writer *RLEWriter) emit(value byte, length int) error {
	var err error

	switch {
	case writer.mode == Basic:
		err = writer.writeRecord(byte(length), value)
	case length > 1:
		err = writer.writeRecord(byte(length+advanceRunBias), value)
	default:
		err = writer.appendLiteral(value)
	}
	if err != nil {
		return err
	}

	if writer.cursor >= len(writer.buffer) {
		return writer.flush()
	}
	return nil
}

// appendLiteral adds a singleton byte to the open literal record, opening a new
// record if there is none or the open one is full.
func (writer *RLEWriter) appendLiteral(value byte) error {
	if writer.run.hasLiteral() && writer.buffer[writer.run.literalAnchor] < maxLiteralCount {
		writer.buffer[writer.run.literalAnchor]++
		return writer.put(value)
	}

	err := writer.reserve(2)
	if err != nil {
		return err
	}
	err = writer.put(1)
	if err != nil {
		return err
	}
	writer.run.anchorLiteral(writer.cursor - 1)
	return writer.put(value)
}

func (writer *RLEWriter) writeRecord(record ...byte) error {
	err := writer.reserve(len(record))
	if err != nil {
		return err
	}
	for _, b := range record {
		err = writer.put(b)
		if err != nil {
			return err
		}
	}
	return nil
}

// reserve flushes the buffer if fewer than `size` bytes are free. A buffer
// smaller than `size` is still written to, one byte at a time.
func (writer *RLEWriter) reserve(size int) error {
	if writer.cursor > 0 && len(writer.buffer)-writer.cursor < size {
		return writer.flush()
	}
	return nil
}

// put appends a single byte, flushing first if the buffer is full.
func (writer *RLEWriter) put(b byte) error {
	if writer.cursor >= len(writer.buffer) {
		err := writer.flush()
		if err != nil {
			return err
		}
	}
	writer.buffer[writer.cursor] = b
	writer.cursor++
	return nil
}

// flush writes the pending bytes to the sink. The literal record anchor points
// into the buffer, so any open literal record is closed.
func (writer *RLEWriter) flush() error {
	writer.run.closeLiteral()
	if writer.cursor == 0 {
		return nil
	}

	n, err := writer.sink.Write(writer.buffer[:writer.cursor])
	writer.written += int64(n)
	if err != nil {
		return rlecodec.ErrIOFailed.Wrap(err)
	}
	if n < writer.cursor {
		return rlecodec.ErrIOFailed.Wrap(io.ErrShortWrite)
	}

	writer.cursor = 0
	return nil
}
