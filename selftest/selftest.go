// Package selftest round-trips every file in a directory through the codec and
// reports whether each one came back unchanged.
package selftest

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dargueta/rlecodec"
	"github.com/dargueta/rlecodec/compression"
	"github.com/gocarina/gocsv"
	"github.com/oklog/ulid/v2"
)

// Options controls how each file is compressed.
type Options struct {
	WriterBufferSize int
	ReaderBufferSize int
	ChunkSize        int
	// Modes lists the modes every file is tested with. Empty means both.
	Modes []compression.Mode
	// Compressor does the work. Nil uses one that doesn't log.
	Compressor *compression.Compressor
}

// Result is the outcome of round-tripping one file in one mode.
type Result struct {
	RunID          string  `csv:"run_id"`
	File           string  `csv:"file"`
	Mode           string  `csv:"mode"`
	OriginalSize   int64   `csv:"original_size"`
	CompressedSize int64   `csv:"compressed_size"`
	Ratio          float64 `csv:"ratio"`
	CompressMs     float64 `csv:"compress_ms"`
	DecompressMs   float64 `csv:"decompress_ms"`
	Match          bool    `csv:"match"`
	// FirstDifference is the offset of the first byte that differs from the
	// original, or -1.
	FirstDifference int64  `csv:"first_difference"`
	Error           string `csv:"error"`
}

// Passed is true if the file was restored exactly.
func (result Result) Passed() bool {
	return result.Match && result.Error == ""
}

// Suite holds the results of one call to [Run].
type Suite struct {
	RunID   ulid.ULID
	Results []Result
}

// Failed returns the number of results that didn't pass.
func (suite *Suite) Failed() int {
	failed := 0
	for _, result := range suite.Results {
		if !result.Passed() {
			failed++
		}
	}
	return failed
}

// WriteCSV writes every result as a CSV row, with a header.
func (suite *Suite) WriteCSV(output io.Writer) error {
	err := gocsv.Marshal(&suite.Results, output)
	if err != nil {
		return rlecodec.ErrIOFailed.WithMessage("can't write CSV report").Wrap(err)
	}
	return nil
}

// Run round-trips every regular file directly inside `dir`. If `resultsDir` is
// not empty, the compressed and restored files are kept there, named
// `<file>.<mode>.rle` and `<file>.<mode>.out`.
//
// A file that fails to round-trip is recorded in its [Result]; the returned
// error is only for problems with the directories themselves.
func Run(dir, resultsDir string, options Options) (*Suite, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, rlecodec.ErrIOFailed.
			WithMessage(fmt.Sprintf("can't list test files in %q", dir)).
			Wrap(err)
	}
	if resultsDir != "" {
		err = os.MkdirAll(resultsDir, 0o755)
		if err != nil {
			return nil, rlecodec.ErrIOFailed.
				WithMessage(fmt.Sprintf("can't create results directory %q", resultsDir)).
				Wrap(err)
		}
	}

	modes := options.Modes
	if len(modes) == 0 {
		modes = []compression.Mode{compression.Basic, compression.Advance}
	}
	compressor := options.Compressor
	if compressor == nil {
		compressor = &compression.Compressor{}
	}

	suite := &Suite{RunID: ulid.Make()}
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		original, readErr := os.ReadFile(path)

		for _, mode := range modes {
			result := Result{
				RunID:           suite.RunID.String(),
				File:            entry.Name(),
				Mode:            mode.String(),
				FirstDifference: -1,
			}
			if readErr != nil {
				result.Error = readErr.Error()
			} else {
				roundTrip(compressor, original, mode, options, &result)
				if resultsDir != "" && result.Error == "" {
					keepArtifacts(compressor, original, mode, options, resultsDir, &result)
				}
			}
			suite.Results = append(suite.Results, result)
		}
	}
	return suite, nil
}

func roundTrip(
	compressor *compression.Compressor,
	original []byte,
	mode compression.Mode,
	options Options,
	result *Result,
) {
	result.OriginalSize = int64(len(original))

	compressed := bytes.Buffer{}
	report, err := compressor.Compress(
		bytes.NewReader(original),
		&compressed,
		options.WriterBufferSize,
		options.ChunkSize,
		mode,
	)
	if err != nil {
		result.Error = err.Error()
		return
	}
	result.CompressedSize = report.OutputBytes
	result.Ratio = report.Ratio()
	result.CompressMs = float64(report.Elapsed.Microseconds()) / 1000

	restored := bytes.Buffer{}
	report, err = compressor.Decompress(
		&compressed, &restored, options.ReaderBufferSize, options.ChunkSize)
	if err != nil {
		result.Error = err.Error()
		return
	}
	result.DecompressMs = float64(report.Elapsed.Microseconds()) / 1000

	result.FirstDifference = firstDifference(original, restored.Bytes())
	result.Match = result.FirstDifference < 0
}

// keepArtifacts writes the compressed and restored forms of `original` into
// `resultsDir`, going through real files this time.
func keepArtifacts(
	compressor *compression.Compressor,
	original []byte,
	mode compression.Mode,
	options Options,
	resultsDir string,
	result *Result,
) {
	base := filepath.Join(resultsDir, result.File+"."+mode.String())

	err := writeFile(base+".rle", func(output *os.File) error {
		_, err := compressor.Compress(
			bytes.NewReader(original), output, options.WriterBufferSize, options.ChunkSize, mode)
		return err
	})
	if err != nil {
		result.Error = err.Error()
		return
	}

	compressed, err := os.Open(base + ".rle")
	if err != nil {
		result.Error = err.Error()
		return
	}
	defer compressed.Close()

	err = writeFile(base+".out", func(output *os.File) error {
		_, err := compressor.Decompress(
			compressed, output, options.ReaderBufferSize, options.ChunkSize)
		return err
	})
	if err != nil {
		result.Error = err.Error()
	}
}

func writeFile(path string, fill func(*os.File) error) error {
	output, err := os.Create(path)
	if err != nil {
		return err
	}
	err = fill(output)
	closeErr := output.Close()
	if err != nil {
		return err
	}
	return closeErr
}

// firstDifference returns the offset of the first byte where `a` and `b`
// differ, or -1 if they're identical.
func firstDifference(a, b []byte) int64 {
	shorter := len(a)
	if len(b) < shorter {
		shorter = len(b)
	}
	for i := 0; i < shorter; i++ {
		if a[i] != b[i] {
			return int64(i)
		}
	}
	if len(a) != len(b) {
		return int64(shorter)
	}
	return -1
}
