package compression_test

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"testing/iotest"

	"github.com/dargueta/rlecodec"
	c "github.com/dargueta/rlecodec/compression"
	ct "github.com/dargueta/rlecodec/testing"
	"github.com/noxer/bytewriter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/bytesextra"
)

var allModes = []c.Mode{c.Basic, c.Advance}

type roundTripData struct {
	Name string
	Data []byte
}

func roundTripCorpus(t *testing.T) []roundTripData {
	return []roundTripData{
		{"empty", []byte{}},
		{"single byte", []byte{42}},
		{"homogenous", bytes.Repeat([]byte{100}, 9174)},
		{"entirely nulls", make([]byte, 571)},
		{"past basic limit", bytes.Repeat([]byte{3}, 300)},
		{"past advance limit", bytes.Repeat([]byte{3}, 129)},
		{"ascending", sequence(0, 1000)},
		{"random", ct.CreateRandomData(t, 1852)},
		{"mixed", ct.CreateMixedData(20000, 1)},
	}
}

func TestRoundTrip(t *testing.T) {
	for _, mode := range allModes {
		t.Run(mode.String(), func(t *testing.T) {
			for _, data := range roundTripCorpus(t) {
				t.Run(data.Name, func(t *testing.T) {
					ct.RequireRoundTrip(t, data.Data, mode, 4096, 4096)
				})
			}
		})
	}
}

func TestRoundTrip__BufferSizes(t *testing.T) {
	data := ct.CreateMixedData(5000, 2)
	for _, mode := range allModes {
		for _, bufferSize := range []int{1, 2, 3, 16, 4096} {
			for _, chunkSize := range []int{1, 2, 7, 128, 4096} {
				name := fmt.Sprintf("%s/buffer=%d/chunk=%d", mode, bufferSize, chunkSize)
				t.Run(name, func(t *testing.T) {
					ct.RequireRoundTrip(t, data, mode, bufferSize, chunkSize)
				})
			}
		}
	}
}

// Records straddling read chunks must be carried over and decoded intact.
func TestDecompress__RecordSpansChunks(t *testing.T) {
	original := concat(sequence(0, 127), bytes.Repeat([]byte{9}, 50), sequence(20, 30))
	compressed := ct.CompressToBytes(t, original, c.Advance, 4096, 4096)
	require.Equal(t, byte(127), compressed[1], "expected a full literal record first")

	for _, chunkSize := range []int{1, 2, 3, 64, 126, 127, 128} {
		t.Run(fmt.Sprintf("chunk=%d", chunkSize), func(t *testing.T) {
			decompressed := ct.DecompressToBytes(t, compressed, 4096, chunkSize)
			assert.Equal(t, original, decompressed)
		})
	}
}

func TestDecompress__OneByteReads(t *testing.T) {
	original := ct.CreateMixedData(3000, 3)
	for _, mode := range allModes {
		compressed := ct.CompressToBytes(t, original, mode, 4096, 4096)

		output := bytes.Buffer{}
		source := iotest.OneByteReader(bytes.NewReader(compressed))
		_, err := c.Decompress(source, &output, 4096, 4096)
		require.NoError(t, err)
		assert.Equal(t, original, output.Bytes(), "mode %s", mode)
	}
}

func TestCompress__EmptyInput(t *testing.T) {
	for _, mode := range allModes {
		compressed := ct.CompressToBytes(t, []byte{}, mode, 16, 16)
		assert.Equal(t, []byte{byte(mode)}, compressed, "only the header is expected")

		decompressed := ct.DecompressToBytes(t, compressed, 16, 16)
		assert.Empty(t, decompressed)
	}
}

func TestCompress__Report(t *testing.T) {
	output := bytes.Buffer{}
	report, err := c.Compress(
		bytes.NewReader(bytes.Repeat([]byte{1}, 1000)), &output, 64, 64, c.Basic)
	require.NoError(t, err)

	// 1000 = 3 * 255 + 235, four records plus the header.
	assert.Equal(t, c.Basic, report.Mode)
	assert.EqualValues(t, 1000, report.InputBytes)
	assert.EqualValues(t, 9, report.OutputBytes)
	assert.InDelta(t, 99.1, report.Ratio(), 0.0001)
}

func TestReport__NegativeRatioOnExpansion(t *testing.T) {
	report := c.Report{InputBytes: 100, OutputBytes: 201}
	assert.InDelta(t, -101.0, report.Ratio(), 0.0001)
	assert.Zero(t, c.Report{}.Ratio())
}

func TestDecompress__BadHeader(t *testing.T) {
	tests := []struct {
		Name  string
		Input []byte
	}{
		{"empty", []byte{}},
		{"mode 2", []byte{2, 1, 1}},
		{"mode 0xff", []byte{0xff}},
	}

	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			_, err := c.Decompress(bytes.NewReader(test.Input), &bytes.Buffer{}, 16, 16)
			assert.ErrorIs(t, err, rlecodec.ErrCorruptData)
		})
	}
}

func TestDecompress__TruncatedStream(t *testing.T) {
	tests := []struct {
		Name  string
		Input []byte
	}{
		{"basic missing value", []byte{0, 3}},
		{"advance missing run value", []byte{1, 130}},
		{"advance short literal", []byte{1, 4, 1, 2}},
	}

	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			_, err := c.Decompress(bytes.NewReader(test.Input), &bytes.Buffer{}, 16, 16)
			assert.ErrorIs(t, err, rlecodec.ErrCorruptData)
			assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
		})
	}
}

func TestDecompress__ZeroCounter(t *testing.T) {
	_, err := c.Decompress(bytes.NewReader([]byte{0, 1, 5, 0, 5}), &bytes.Buffer{}, 16, 16)
	assert.ErrorIs(t, err, rlecodec.ErrCorruptData)
}

func TestFacade__InvalidArguments(t *testing.T) {
	_, err := c.Compress(nil, &bytes.Buffer{}, 16, 16, c.Basic)
	assert.ErrorIs(t, err, rlecodec.ErrInvalidArgument)

	_, err = c.Compress(bytes.NewReader(nil), nil, 16, 16, c.Basic)
	assert.ErrorIs(t, err, rlecodec.ErrInvalidArgument)

	_, err = c.Compress(bytes.NewReader(nil), &bytes.Buffer{}, 16, 0, c.Basic)
	assert.ErrorIs(t, err, rlecodec.ErrInvalidArgument)

	_, err = c.Decompress(nil, &bytes.Buffer{}, 16, 16)
	assert.ErrorIs(t, err, rlecodec.ErrInvalidArgument)

	_, err = c.Decompress(bytes.NewReader([]byte{0}), &bytes.Buffer{}, 0, 16)
	assert.ErrorIs(t, err, rlecodec.ErrInvalidArgument)
}

func TestCompress__ReadError(t *testing.T) {
	readErr := errors.New("cable unplugged")
	source := io.MultiReader(bytes.NewReader([]byte{1, 2, 3}), iotest.ErrReader(readErr))

	report, err := c.Compress(source, &bytes.Buffer{}, 16, 2, c.Advance)
	assert.ErrorIs(t, err, rlecodec.ErrIOFailed)
	assert.ErrorIs(t, err, readErr)

	// Everything read before the failure is still buffered in the writer.
	assert.EqualValues(t, 3, report.InputBytes, "wrong input count")
	assert.EqualValues(t, 1, report.OutputBytes, "only the header was written")
}

func TestCompress__HeaderWriteFails(t *testing.T) {
	sink := bytewriter.New(nil)

	report, err := c.Compress(bytes.NewReader([]byte{1, 2, 3}), sink, 16, 16, c.Basic)
	assert.ErrorIs(t, err, rlecodec.ErrIOFailed)
	assert.ErrorIs(t, err, bytewriter.SliceFull)
	assert.Zero(t, report.InputBytes)
}

func TestDecompress__ShortWrite(t *testing.T) {
	compressed := []byte{byte(c.Basic), 200, 5}
	sink := bytewriter.New(make([]byte, 50))

	_, err := c.Decompress(bytes.NewReader(compressed), sink, 16, 16)
	assert.ErrorIs(t, err, rlecodec.ErrIOFailed)
	assert.ErrorIs(t, err, bytewriter.SliceFull)
	assert.Equal(t, 50, sink.Written())
}

func TestCompress__FromSeekableStream(t *testing.T) {
	original := ct.CreateMixedData(2048, 4)
	source := bytesextra.NewReadWriteSeeker(append([]byte(nil), original...))

	output := bytes.Buffer{}
	_, err := c.Compress(source, &output, 256, 100, c.Advance)
	require.NoError(t, err)

	stream := ct.LoadCompressedStream(t, output.Bytes())
	restored, err := io.ReadAll(stream)
	require.NoError(t, err)
	assert.Equal(t, original, restored)
}

func TestCompressor__Progress(t *testing.T) {
	data := bytes.Repeat([]byte{0, 0, 1}, 100*rlecodec.KiB)
	var calls [][2]int64

	compressor := c.Compressor{
		Progress: func(processed, total int64) {
			calls = append(calls, [2]int64{processed, total})
		},
	}
	_, err := compressor.Compress(
		bytes.NewReader(data), &bytes.Buffer{}, 4096, 64*rlecodec.KiB, c.Basic)
	require.NoError(t, err)

	total := int64(len(data))
	expected := [][2]int64{{128 * rlecodec.KiB, total}, {256 * rlecodec.KiB, total}, {total, total}}
	assert.Equal(t, expected, calls)
}

func TestCompressor__Logging(t *testing.T) {
	logOutput := bytes.Buffer{}
	compressor := c.Compressor{
		Logger: slog.New(slog.NewTextHandler(&logOutput, &slog.HandlerOptions{Level: slog.LevelDebug})),
	}

	compressed := bytes.Buffer{}
	_, err := compressor.Compress(bytes.NewReader([]byte{1, 1, 2}), &compressed, 16, 16, c.Advance)
	require.NoError(t, err)
	assert.Contains(t, logOutput.String(), "Compression finished")
	assert.Contains(t, logOutput.String(), "mode=advance")

	_, err = compressor.Decompress(bytes.NewReader([]byte{9}), &bytes.Buffer{}, 16, 16)
	require.Error(t, err)
	assert.Contains(t, logOutput.String(), "bad header")
}

func TestParseMode(t *testing.T) {
	mode, err := c.ParseMode("Basic")
	require.NoError(t, err)
	assert.Equal(t, c.Basic, mode)

	mode, err = c.ParseMode(" advance ")
	require.NoError(t, err)
	assert.Equal(t, c.Advance, mode)

	_, err = c.ParseMode("huffman")
	assert.ErrorIs(t, err, rlecodec.ErrInvalidArgument)
}
