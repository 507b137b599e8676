package compression

import (
	"io"
	"log/slog"

	"github.com/dargueta/rlecodec"
)

// Compressor wires sources, sinks and buffer sizes into the encode and decode
// drivers. The zero value is ready to use and logs nothing.
type Compressor struct {
	// Logger receives a summary of every operation. Nil disables logging.
	Logger *slog.Logger
	// Progress, if set, is passed to the drivers.
	Progress ProgressFunc
}

func (c *Compressor) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return c.Logger
}

// Compress encodes everything in `source` and writes the compressed stream,
// mode header included, to `sink`.
//
// `writerBufferSize` is the size of the encoder's output buffer and
// `chunkSize` the number of bytes read from `source` at a time. On failure the
// sink may hold a partial stream; the caller is responsible for discarding it.
func (c *Compressor) Compress(
	source io.Reader,
	sink io.Writer,
	writerBufferSize int,
	chunkSize int,
	mode Mode,
) (Report, error) {
	logger := c.logger()
	if source == nil || sink == nil {
		return Report{Mode: mode}, rlecodec.ErrInvalidArgument.WithMessage(
			"compress: input and output streams are required")
	}

	writer, err := NewRLEWriter(sink, writerBufferSize, mode)
	if err != nil {
		logger.Error("Unable to create RLE writer", "error", err)
		return Report{Mode: mode}, err
	}

	logger.Debug("Compression started",
		"mode", mode.String(),
		"writer_buffer_size", writerBufferSize,
		"chunk_size", chunkSize)

	report, err := Encode(source, writer, chunkSize, c.Progress)
	if err != nil {
		logger.Error("Compression failed",
			"error", err,
			"processed", report.InputBytes)
		return report, err
	}

	logger.Info("Compression finished",
		"mode", mode.String(),
		"processed", report.InputBytes,
		"output", report.OutputBytes,
		"elapsed", report.Elapsed,
		"ratio", report.Ratio())
	return report, nil
}

// Decompress reads the mode header from `source`, then decodes the rest of the
// stream into `sink`. The mode comes from the stream, not the caller.
func (c *Compressor) Decompress(
	source io.Reader,
	sink io.Writer,
	readerBufferSize int,
	chunkSize int,
) (Report, error) {
	logger := c.logger()
	if source == nil || sink == nil {
		return Report{}, rlecodec.ErrInvalidArgument.WithMessage(
			"decompress: input and output streams are required")
	}

	mode, err := ReadHeader(source)
	if err != nil {
		logger.Error("Compressed stream has a bad header", "error", err)
		return Report{}, err
	}

	reader, err := NewRLEReader(sink, readerBufferSize, mode)
	if err != nil {
		logger.Error("Unable to create RLE reader", "error", err)
		return Report{Mode: mode}, err
	}

	logger.Debug("Decompression started",
		"mode", mode.String(),
		"reader_buffer_size", readerBufferSize,
		"chunk_size", chunkSize)

	report, err := Decode(source, reader, chunkSize, c.Progress)
	// Account for the header byte read above.
	report.InputBytes++
	if err != nil {
		logger.Error("Decompression failed",
			"error", err,
			"processed", report.InputBytes)
		return report, err
	}

	logger.Info("Decompression finished",
		"mode", mode.String(),
		"processed", report.InputBytes,
		"output", report.OutputBytes,
		"elapsed", report.Elapsed)
	return report, nil
}

var defaultCompressor = &Compressor{}

// Compress is [Compressor.Compress] on a compressor that doesn't log or report
// progress.
func Compress(
	source io.Reader,
	sink io.Writer,
	writerBufferSize int,
	chunkSize int,
	mode Mode,
) (Report, error) {
	return defaultCompressor.Compress(source, sink, writerBufferSize, chunkSize, mode)
}

// Decompress is [Compressor.Decompress] on a compressor that doesn't log or
// report progress.
func Decompress(
	source io.Reader,
	sink io.Writer,
	readerBufferSize int,
	chunkSize int,
) (Report, error) {
	return defaultCompressor.Decompress(source, sink, readerBufferSize, chunkSize)
}
