package compression

import (
	"errors"
	"io"
	"io/fs"
	"time"

	"github.com/dargueta/rlecodec"
)

// ProgressFunc is called by the drivers as input is consumed. `total` is the
// size of the source if it could be determined, -1 otherwise.
type ProgressFunc func(processed, total int64)

// Report describes one finished encode or decode pass.
type Report struct {
	Mode Mode
	// InputBytes is the number of bytes read from the source.
	InputBytes int64
	// OutputBytes is the number of bytes written to the sink.
	OutputBytes int64
	Elapsed     time.Duration
}

// Ratio returns how much smaller the output is than the input, as a percentage.
// A negative value means the output grew. Empty input has a ratio of 0.
func (report Report) Ratio() float64 {
	if report.InputBytes == 0 {
		return 0
	}
	diff := float64(report.InputBytes - report.OutputBytes)
	return diff / float64(report.InputBytes) * 100
}

// progressTracker fires a ProgressFunc each time the processed byte count
// crosses a multiple of [rlecodec.ProgressInterval].
type progressTracker struct {
	callback  ProgressFunc
	total     int64
	processed int64
}

func newProgressTracker(source io.Reader, callback ProgressFunc) progressTracker {
	return progressTracker{callback: callback, total: sourceSize(source)}
}

func (tracker *progressTracker) add(n int) {
	before := tracker.processed / rlecodec.ProgressInterval
	tracker.processed += int64(n)
	if tracker.callback != nil && tracker.processed/rlecodec.ProgressInterval > before {
		tracker.callback(tracker.processed, tracker.total)
	}
}

// sourceSize returns the size of `source` if it's something with a known size,
// such as a [bytes.Reader] or an [os.File].
func sourceSize(source io.Reader) int64 {
	switch typed := source.(type) {
	case interface{ Size() int64 }:
		return typed.Size()
	case interface{ Stat() (fs.FileInfo, error) }:
		info, err := typed.Stat()
		if err == nil && info.Mode().IsRegular() {
			return info.Size()
		}
	}
	return -1
}

// Encode writes the mode header to the writer's sink, then feeds every byte of
// `source` through `writer`, reading `chunkSize` bytes at a time. The writer is
// finalized once the source is exhausted.
func Encode(
	source io.Reader,
	writer *RLEWriter,
	chunkSize int,
	progress ProgressFunc,
) (Report, error) {
	report := Report{Mode: writer.mode}
	if source == nil {
		return report, rlecodec.ErrInvalidArgument.WithMessage("encode source is nil")
	}
	err := rlecodec.CheckBufferSize("input chunk size", chunkSize)
	if err != nil {
		return report, err
	}

	start := time.Now()
	tracker := newProgressTracker(source, progress)

	n, err := writer.sink.Write([]byte{byte(writer.mode)})
	if err != nil {
		return report, rlecodec.ErrIOFailed.
			WithMessage("can't write the mode header").
			Wrap(err)
	}
	if n < 1 {
		return report, rlecodec.ErrIOFailed.
			WithMessage("can't write the mode header").
			Wrap(io.ErrShortWrite)
	}

	chunk := make([]byte, chunkSize)
	for {
		bytesRead, readErr := source.Read(chunk)
		for _, b := range chunk[:bytesRead] {
			err = writer.WriteByte(b)
			if err != nil {
				fillEncodeReport(&report, writer, start)
				return report, err
			}
		}
		tracker.add(bytesRead)

		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				break
			}
			fillEncodeReport(&report, writer, start)
			return report, rlecodec.ErrIOFailed.Wrap(readErr)
		}
	}

	_, err = writer.Finalize()
	fillEncodeReport(&report, writer, start)
	return report, err
}

// fillEncodeReport records how far the writer got. The header byte counts
// toward the output.
func fillEncodeReport(report *Report, writer *RLEWriter, start time.Time) {
	report.InputBytes = writer.Processed()
	report.OutputBytes = 1 + writer.Written()
	report.Elapsed = time.Since(start)
}

// ReadHeader reads and validates the mode byte at the start of a compressed
// stream.
func ReadHeader(source io.Reader) (Mode, error) {
	var header [1]byte
	_, err := io.ReadFull(source, header[:])
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return 0, rlecodec.ErrCorruptData.
				WithMessage("missing mode header").
				Wrap(io.ErrUnexpectedEOF)
		}
		return 0, rlecodec.ErrIOFailed.Wrap(err)
	}
	return modeFromHeader(header[0])
}

// Decode reads records from `source`, which must be positioned just past the
// mode header, and expands them through `reader`. The source is read
// `chunkSize` bytes at a time; a record cut off by the end of a chunk is carried
// over and completed with the next one.
func Decode(
	source io.Reader,
	reader *RLEReader,
	chunkSize int,
	progress ProgressFunc,
) (Report, error) {
	report := Report{Mode: reader.mode}
	if source == nil {
		return report, rlecodec.ErrInvalidArgument.WithMessage("decode source is nil")
	}
	err := rlecodec.CheckBufferSize("input chunk size", chunkSize)
	if err != nil {
		return report, err
	}

	start := time.Now()
	tracker := newProgressTracker(source, progress)

	// The front of the work buffer holds the unfinished record from the previous
	// chunk, which is never more than MaxRecordSize - 1 bytes.
	work := make([]byte, MaxRecordSize-1+chunkSize)
	carried := 0

	for {
		bytesRead, readErr := source.Read(work[carried : carried+chunkSize])
		available := carried + bytesRead
		report.InputBytes += int64(bytesRead)

		offset := 0
		for offset < available {
			payloadSize, err := reader.PayloadSize(work[offset])
			if err != nil {
				report.OutputBytes = reader.Written()
				return report, err
			}
			if offset+1+payloadSize > available {
				break
			}

			consumed, err := reader.ConsumeRecord(
				work[offset], work[offset+1:offset+1+payloadSize])
			if err != nil {
				report.OutputBytes = reader.Written()
				return report, err
			}
			offset += 1 + consumed
		}
		carried = copy(work, work[offset:available])
		tracker.add(bytesRead)

		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				break
			}
			report.OutputBytes = reader.Written()
			return report, rlecodec.ErrIOFailed.Wrap(readErr)
		}
	}

	if carried > 0 {
		report.OutputBytes = reader.Written()
		return report, rlecodec.ErrCorruptData.
			WithMessage("stream ends in the middle of a record").
			Wrap(io.ErrUnexpectedEOF)
	}

	_, err = reader.Finalize()
	report.OutputBytes = reader.Written()
	report.Elapsed = time.Since(start)
	return report, err
}
