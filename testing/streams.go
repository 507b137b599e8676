package testing

import (
	"bytes"
	"crypto/rand"
	"io"
	mrand "math/rand"
	"testing"

	"github.com/dargueta/rlecodec/compression"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/bytesextra"
)

// CreateRandomData returns `size` bytes of random data. It is guaranteed to
// either return a valid slice or fail the test and abort.
func CreateRandomData(t *testing.T, size int) []byte {
	data := make([]byte, size)
	_, err := rand.Read(data)
	require.NoErrorf(t, err, "failed to generate %d random bytes", size)
	return data
}

// CreateMixedData returns `size` bytes alternating between runs of random
// length (up to 600 bytes, so they cross both count limits) and stretches of
// random literal bytes. The same seed always gives the same data.
func CreateMixedData(size int, seed int64) []byte {
	rng := mrand.New(mrand.NewSource(seed))
	data := make([]byte, 0, size)

	for len(data) < size {
		remaining := size - len(data)
		if rng.Intn(2) == 0 {
			runLength := 1 + rng.Intn(600)
			if runLength > remaining {
				runLength = remaining
			}
			data = append(data, bytes.Repeat([]byte{byte(rng.Intn(256))}, runLength)...)
		} else {
			literalLength := 1 + rng.Intn(300)
			if literalLength > remaining {
				literalLength = remaining
			}
			for i := 0; i < literalLength; i++ {
				data = append(data, byte(rng.Intn(256)))
			}
		}
	}
	return data
}

// CompressToBytes compresses `data` and returns the whole compressed stream,
// failing the test on any error.
func CompressToBytes(
	t *testing.T,
	data []byte,
	mode compression.Mode,
	writerBufferSize int,
	chunkSize int,
) []byte {
	output := bytes.Buffer{}
	report, err := compression.Compress(
		bytes.NewReader(data), &output, writerBufferSize, chunkSize, mode)
	require.NoError(t, err, "unexpected error while compressing")
	require.EqualValues(t, len(data), report.InputBytes, "wrong number of bytes processed")
	require.EqualValues(t, output.Len(), report.OutputBytes, "wrong output size reported")
	return output.Bytes()
}

// DecompressToBytes is the inverse of [CompressToBytes].
func DecompressToBytes(
	t *testing.T,
	compressed []byte,
	readerBufferSize int,
	chunkSize int,
) []byte {
	output := bytes.Buffer{}
	report, err := compression.Decompress(
		bytes.NewReader(compressed), &output, readerBufferSize, chunkSize)
	require.NoError(t, err, "unexpected error while decompressing")
	require.EqualValues(t, output.Len(), report.OutputBytes, "wrong output size reported")
	return output.Bytes()
}

// RequireRoundTrip compresses and decompresses `data` with the given settings
// and fails the test if the result differs from the original.
func RequireRoundTrip(
	t *testing.T,
	data []byte,
	mode compression.Mode,
	bufferSize int,
	chunkSize int,
) []byte {
	compressed := CompressToBytes(t, data, mode, bufferSize, chunkSize)
	require.NotEmpty(t, compressed, "compressed stream has no header")
	require.EqualValues(t, mode, compressed[0], "wrong mode header")
	t.Logf("%s: compressed %d -> %d", mode, len(data), len(compressed))

	decompressed := DecompressToBytes(t, compressed, bufferSize, chunkSize)
	require.Equal(t, len(data), len(decompressed), "decompressed data length is wrong")
	require.True(t, bytes.Equal(data, decompressed), "decompressed data is wrong")
	return compressed
}

// LoadCompressedStream takes a compressed stream and returns a seekable stream
// over the decompressed data. Writes to the stream do not affect
// `compressed`.
func LoadCompressedStream(t *testing.T, compressed []byte) io.ReadWriteSeeker {
	require.Greater(t, len(compressed), 0, "compressed stream is empty")
	data := DecompressToBytes(t, compressed, 4096, 4096)
	return bytesextra.NewReadWriteSeeker(data)
}
