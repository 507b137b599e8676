// Package config loads the codec's tunables from a TOML file. Every field has a
// default, so an empty file (or no file at all) is a valid configuration.
package config

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"

	"github.com/dargueta/rlecodec"
	"github.com/dargueta/rlecodec/compression"
	"github.com/pelletier/go-toml/v2"
)

const (
	DefaultWriterBufferSize = 4 * rlecodec.KiB
	DefaultReaderBufferSize = 4 * rlecodec.KiB
	DefaultChunkSize        = 64 * rlecodec.KiB
	DefaultMode             = "basic"
	DefaultLogLevel         = "info"
)

// Config holds the buffer sizes and defaults used by the command line tool.
type Config struct {
	// WriterBufferSize is the size of the encoder's output buffer.
	WriterBufferSize int `toml:"writer_buffer_size"`
	// ReaderBufferSize is the size of the decoder's output buffer.
	ReaderBufferSize int `toml:"reader_buffer_size"`
	// ChunkSize is how many bytes are read from the input at a time.
	ChunkSize int `toml:"chunk_size"`
	// Mode is the compression mode used when none is given, "basic" or
	// "advance".
	Mode string `toml:"mode"`
	// LogLevel is one of "debug", "info", "warn" or "error".
	LogLevel string `toml:"log_level"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		WriterBufferSize: DefaultWriterBufferSize,
		ReaderBufferSize: DefaultReaderBufferSize,
		ChunkSize:        DefaultChunkSize,
		Mode:             DefaultMode,
		LogLevel:         DefaultLogLevel,
	}
}

// Load reads the TOML file at `path` and overlays it on the defaults.
func Load(path string) (Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Config{}, rlecodec.ErrIOFailed.
			WithMessage(fmt.Sprintf("can't read config file %q", path)).
			Wrap(err)
	}
	return Parse(content)
}

// Parse overlays TOML `content` on the defaults and validates the result.
// Unknown keys are rejected.
func Parse(content []byte) (Config, error) {
	cfg := Default()

	decoder := toml.NewDecoder(bytes.NewReader(content))
	decoder.DisallowUnknownFields()
	err := decoder.Decode(&cfg)
	if err != nil {
		return Config{}, rlecodec.ErrInvalidArgument.
			WithMessage("failed to parse config").
			Wrap(err)
	}

	err = cfg.Validate()
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that every size is usable and that the mode and log level
// are recognized.
func (cfg Config) Validate() error {
	sizes := []struct {
		name  string
		value int
	}{
		{"writer_buffer_size", cfg.WriterBufferSize},
		{"reader_buffer_size", cfg.ReaderBufferSize},
		{"chunk_size", cfg.ChunkSize},
	}
	for _, size := range sizes {
		err := rlecodec.CheckBufferSize(size.name, size.value)
		if err != nil {
			return err
		}
	}

	_, err := cfg.CompressionMode()
	if err != nil {
		return err
	}
	_, err = cfg.SlogLevel()
	return err
}

// CompressionMode returns [Config.Mode] as a [compression.Mode].
func (cfg Config) CompressionMode() (compression.Mode, error) {
	return compression.ParseMode(cfg.Mode)
}

// SlogLevel returns [Config.LogLevel] as a [slog.Level].
func (cfg Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	err := level.UnmarshalText([]byte(cfg.LogLevel))
	if err != nil {
		return level, rlecodec.ErrInvalidArgument.
			WithMessage(fmt.Sprintf("unknown log level %q", cfg.LogLevel))
	}
	return level, nil
}
