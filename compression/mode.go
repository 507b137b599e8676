package compression

import (
	"fmt"
	"strings"

	"github.com/dargueta/rlecodec"
)

// Mode selects one of the two wire formats. Its numeric value is what gets
// written as the first byte of every compressed stream.
type Mode byte

const (
	// Basic encodes every run, singletons included, as a two-byte record.
	Basic Mode = 0
	// Advance run-encodes repeats of two or more and groups singletons into
	// literal records.
	Advance Mode = 1
)

const (
	// BasicCountLimit is the longest run a single Basic record can hold.
	BasicCountLimit = 255
	// AdvanceCountLimit is the longest run a single Advance run record can hold.
	AdvanceCountLimit = 128

	// advanceRunMarker is the lowest counter byte of an Advance run record.
	// Anything below it starts a literal record.
	advanceRunMarker = 128
	// advanceRunBias is added to a run length to get its Advance counter byte.
	advanceRunBias = 126
	// maxLiteralCount is the largest count a literal record can carry.
	maxLiteralCount = AdvanceCountLimit - 1

	// MaxRecordSize is the size of the largest record either mode can produce:
	// an Advance literal record holding maxLiteralCount bytes.
	MaxRecordSize = 1 + maxLiteralCount
)

// Valid reports whether the mode is one this package knows how to encode.
func (mode Mode) Valid() bool {
	return mode == Basic || mode == Advance
}

// CountLimit returns the longest run that fits in one record for this mode.
func (mode Mode) CountLimit() int {
	if mode == Advance {
		return AdvanceCountLimit
	}
	return BasicCountLimit
}

func (mode Mode) String() string {
	switch mode {
	case Basic:
		return "basic"
	case Advance:
		return "advance"
	default:
		return fmt.Sprintf("Mode(%d)", byte(mode))
	}
}

// ParseMode converts a case-insensitive mode name ("basic" or "advance") to a
// [Mode].
func ParseMode(name string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "basic":
		return Basic, nil
	case "advance", "advanced":
		return Advance, nil
	default:
		return 0, rlecodec.ErrInvalidArgument.WithMessage(
			fmt.Sprintf("unknown compression mode %q", name))
	}
}

// modeFromHeader validates the header byte of a compressed stream.
func modeFromHeader(header byte) (Mode, error) {
	mode := Mode(header)
	if !mode.Valid() {
		return 0, rlecodec.ErrCorruptData.WithMessage(
			fmt.Sprintf("unrecognized mode byte 0x%02x", header))
	}
	return mode, nil
}
