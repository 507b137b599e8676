package compression

import (
	"bytes"
	"errors"
	"io"

	"github.com/boljen/go-bitmap"
	"github.com/dargueta/rlecodec"
)

// estimateBufferSize is the writer buffer used when predicting Advance output.
// Literal records are split at buffer flushes, so the prediction is exact only
// for compressions that use the same buffer size.
const estimateBufferSize = 4 * rlecodec.KiB

// Profile summarizes the run structure of a stream.
type Profile struct {
	// InputBytes is the total size of the stream.
	InputBytes int64
	// Runs is the number of maximal runs of identical bytes.
	Runs int64
	// Singletons is the number of runs of length 1.
	Singletons int64
	// LongestRun is the length of the longest run.
	LongestRun int
	// DistinctBytes is the number of different byte values that occur.
	DistinctBytes int
	// BasicSize is the size of the stream compressed in Basic mode, header
	// included.
	BasicSize int64
	// AdvanceSize is the size of the stream compressed in Advance mode with a
	// 4 KiB writer buffer, header included.
	AdvanceSize int64
}

// BestMode returns the mode that gives the smaller output. Ties go to Basic.
func (profile Profile) BestMode() Mode {
	if profile.AdvanceSize < profile.BasicSize {
		return Advance
	}
	return Basic
}

type countingWriter struct {
	total int64
}

func (w *countingWriter) Write(p []byte) (int, error) {
	w.total += int64(len(p))
	return len(p), nil
}

// Analyze reads `source` to the end and returns its [Profile].
func Analyze(source io.Reader) (Profile, error) {
	profile := Profile{}
	if source == nil {
		return profile, rlecodec.ErrInvalidArgument.WithMessage("analyze source is nil")
	}

	seen := bitmap.New(256)
	advanceSink := &countingWriter{}
	advance, err := NewRLEWriter(advanceSink, estimateBufferSize, Advance)
	if err != nil {
		return profile, err
	}

	// Runs are scanned in Basic-sized pieces, one per Basic record, and glued
	// back together for the run statistics.
	scanner := NewRunScanner(source)
	current := Run{}
	for {
		piece, err := scanner.Next(BasicCountLimit)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return profile, err
		}

		profile.BasicSize += 2
		_, err = advance.Write(bytes.Repeat([]byte{piece.Value}, piece.Length))
		if err != nil {
			return profile, err
		}

		if current.Length > 0 && piece.Value == current.Value {
			current.Length += piece.Length
			continue
		}
		profile.addRun(current, seen)
		current = piece
	}
	profile.addRun(current, seen)

	_, err = advance.Finalize()
	if err != nil {
		return profile, err
	}

	// Both sizes include the mode header.
	profile.InputBytes = scanner.Offset()
	profile.BasicSize++
	profile.AdvanceSize = advanceSink.total + 1
	return profile, nil
}

func (profile *Profile) addRun(run Run, seen bitmap.Bitmap) {
	if run.Length == 0 {
		return
	}

	profile.Runs++
	if run.Length == 1 {
		profile.Singletons++
	}
	if run.Length > profile.LongestRun {
		profile.LongestRun = run.Length
	}
	if !seen.Get(int(run.Value)) {
		seen.Set(int(run.Value), true)
		profile.DistinctBytes++
	}
}
