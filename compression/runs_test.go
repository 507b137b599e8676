package compression_test

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"testing/iotest"

	"github.com/dargueta/rlecodec"
	c "github.com/dargueta/rlecodec/compression"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scanAll reads every run from `data` with the given limit.
func scanAll(t *testing.T, data []byte, limit int) []c.Run {
	scanner := c.NewRunScanner(bytes.NewReader(data))
	var runs []c.Run
	for {
		run, err := scanner.Next(limit)
		if errors.Is(err, io.EOF) {
			assert.Equal(t, c.Run{}, run, "run returned at EOF")
			break
		}
		require.NoError(t, err)
		runs = append(runs, run)
	}
	assert.EqualValues(t, len(data), scanner.Offset(), "wrong offset at EOF")
	return runs
}

func TestRunScanner__Uncapped(t *testing.T) {
	tests := []struct {
		Name     string
		Data     []byte
		Expected []c.Run
	}{
		{"empty", []byte{}, nil},
		{"one byte", []byte{6}, []c.Run{{6, 1}}},
		{"entire run", []byte{9, 9, 9, 9, 9, 9}, []c.Run{{9, 6}}},
		{
			"mixed",
			[]byte{1, 9, 4, 4, 4, 4, 4, 6, 6, 0, 1, 0, 0, 0},
			[]c.Run{{1, 1}, {9, 1}, {4, 5}, {6, 2}, {0, 1}, {1, 1}, {0, 3}},
		},
		{"past both limits", bytes.Repeat([]byte{2}, 1000), []c.Run{{2, 1000}}},
	}

	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			assert.Equal(t, test.Expected, scanAll(t, test.Data, 0))
		})
	}
}

// Capped runs line up with the records each mode would write.
func TestRunScanner__Capped(t *testing.T) {
	data := append(bytes.Repeat([]byte{8}, 300), 1, 1)

	assert.Equal(
		t,
		[]c.Run{{8, 255}, {8, 45}, {1, 2}},
		scanAll(t, data, c.Basic.CountLimit()),
	)
	assert.Equal(
		t,
		[]c.Run{{8, 128}, {8, 128}, {8, 44}, {1, 2}},
		scanAll(t, data, c.Advance.CountLimit()),
	)
}

func TestRunScanner__ExactlyAtLimit(t *testing.T) {
	data := append(bytes.Repeat([]byte{3}, 255), 4)
	assert.Equal(t, []c.Run{{3, 255}, {4, 1}}, scanAll(t, data, c.BasicCountLimit))
}

func TestRunScanner__ReadError(t *testing.T) {
	readErr := errors.New("disk on fire")
	source := io.MultiReader(bytes.NewReader([]byte{5, 5, 5}), iotest.ErrReader(readErr))
	scanner := c.NewRunScanner(source)

	_, err := scanner.Next(0)
	assert.ErrorIs(t, err, rlecodec.ErrIOFailed)
	assert.ErrorIs(t, err, readErr)
	assert.EqualValues(t, 3, scanner.Offset())
}
