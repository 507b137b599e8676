package compression

import (
	"fmt"
	"io"

	"github.com/dargueta/rlecodec"
)

// RLEReader decodes records back into raw bytes, buffering the output in a
// fixed-size buffer that is flushed to the sink when the next record won't fit.
//
// An RLEReader works on whole records; [Decode] takes care of reading the
// compressed stream and splitting it. It is not safe for concurrent use.
type RLEReader struct {
	sink    io.Writer
	mode    Mode
	buffer  []byte
	cursor  int
	written int64
}

// NewRLEReader creates a reader that sends decoded bytes to `sink`, buffering up
// to `bufferCapacity` bytes in memory.
func NewRLEReader(sink io.Writer, bufferCapacity int, mode Mode) (*RLEReader, error) {
	if sink == nil {
		return nil, rlecodec.ErrInvalidArgument.WithMessage("reader sink is nil")
	}
	if !mode.Valid() {
		return nil, rlecodec.ErrInvalidArgument.WithMessage(
			fmt.Sprintf("unknown compression mode %d", byte(mode)))
	}
	err := rlecodec.CheckBufferSize("reader buffer capacity", bufferCapacity)
	if err != nil {
		return nil, err
	}

	return &RLEReader{
		sink:   sink,
		mode:   mode,
		buffer: make([]byte, bufferCapacity),
	}, nil
}

// Mode returns the wire format the reader decodes.
func (reader *RLEReader) Mode() Mode {
	return reader.mode
}

// Written returns the number of decoded bytes flushed to the sink so far.
func (reader *RLEReader) Written() int64 {
	return reader.written
}

// decodeCounter splits a counter byte into the number of bytes the record
// expands to and whether it is a run record.
func (reader *RLEReader) decodeCounter(counter byte) (int, bool, error) {
	count := int(counter)
	isRun := true
	if reader.mode == Advance {
		if counter >= advanceRunMarker {
			count -= advanceRunBias
		} else {
			isRun = false
		}
	}

	if count <= 0 {
		return 0, false, rlecodec.ErrCorruptData.WithMessage(
			fmt.Sprintf("invalid record counter 0x%02x", counter))
	}
	return count, isRun, nil
}

// PayloadSize returns how many bytes follow `counter` in its record.
func (reader *RLEReader) PayloadSize(counter byte) (int, error) {
	count, isRun, err := reader.decodeCounter(counter)
	if err != nil {
		return 0, err
	}
	if isRun {
		return 1, nil
	}
	return count, nil
}

// ConsumeRecord decodes the record that starts with `counter`. `following` holds
// the bytes after the counter; it may be longer than the record. The return
// value is the number of bytes of `following` that belong to the record.
func (reader *RLEReader) ConsumeRecord(counter byte, following []byte) (int, error) {
	count, isRun, err := reader.decodeCounter(counter)
	if err != nil {
		return 0, err
	}

	payloadSize := count
	if isRun {
		payloadSize = 1
	}
	if len(following) < payloadSize {
		return 0, rlecodec.ErrCorruptData.
			WithMessage(fmt.Sprintf(
				"record needs %d bytes after counter 0x%02x, got %d",
				payloadSize,
				counter,
				len(following),
			)).
			Wrap(io.ErrUnexpectedEOF)
	}

	if len(reader.buffer)-reader.cursor < count {
		err = reader.flush()
		if err != nil {
			return 0, err
		}
	}

	if isRun {
		for i := 0; i < count; i++ {
			err = reader.put(following[0])
			if err != nil {
				return 0, err
			}
		}
	} else {
		for _, b := range following[:count] {
			err = reader.put(b)
			if err != nil {
				return 0, err
			}
		}
	}
	return payloadSize, nil
}

// Finalize flushes the remaining decoded bytes to the sink and returns how many
// were written by this call.
func (reader *RLEReader) Finalize() (int, error) {
	pending := reader.cursor
	err := reader.flush()
	if err != nil {
		return 0, err
	}
	return pending, nil
}

// put appends a byte, flushing first if the buffer is full. This only happens
// when a record expands to more bytes than the whole buffer can hold.
func (reader *RLEReader) put(b byte) error {
	if reader.cursor >= len(reader.buffer) {
		err := reader.flush()
		if err != nil {
			return err
		}
	}
	reader.buffer[reader.cursor] = b
	reader.cursor++
	return nil
}

func (reader *RLEReader) flush() error {
	if reader.cursor == 0 {
		return nil
	}

	n, err := reader.sink.Write(reader.buffer[:reader.cursor])
	reader.written += int64(n)
	if err != nil {
		return rlecodec.ErrIOFailed.Wrap(err)
	}
	if n < reader.cursor {
		return rlecodec.ErrIOFailed.Wrap(io.ErrShortWrite)
	}

	reader.cursor = 0
	return nil
}
