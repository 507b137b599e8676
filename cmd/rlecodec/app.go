package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dargueta/rlecodec/compression"
	"github.com/dargueta/rlecodec/config"
	"github.com/dargueta/rlecodec/selftest"
	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v2"
	"golang.org/x/term"
)

// compressedExtension is appended to compressed files when no output path is
// given.
const compressedExtension = ".rle"

// session is the state shared by all commands of one invocation.
type session struct {
	stdout     io.Writer
	stderr     io.Writer
	cfg        config.Config
	logger     *slog.Logger
	compressor *compression.Compressor
}

func newApp(stdout, stderr io.Writer) *cli.App {
	s := &session{stdout: stdout, stderr: stderr}

	return &cli.App{
		Name:      "rlecodec",
		Usage:     "Compress and decompress files with run-length encoding",
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "load settings from a TOML `FILE`",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "log debug messages",
			},
		},
		Before: s.setUp,
		// Exit codes are handled by main so the app can be run from tests.
		ExitErrHandler: func(*cli.Context, error) {},
		Commands: []*cli.Command{
			{
				Name:      "compress",
				Usage:     "Compress a file",
				ArgsUsage: "INPUT_FILE",
				Action:    s.compressFile,
				Flags: []cli.Flag{
					outputFlag(),
					bufferFlag(),
					chunkFlag(),
					&cli.BoolFlag{
						Name:    "advance",
						Aliases: []string{"a"},
						Usage:   "use the advance algorithm",
					},
					&cli.StringFlag{
						Name:  "mode",
						Usage: "compression mode, `basic` or `advance`",
					},
				},
			},
			{
				Name:      "decompress",
				Usage:     "Decompress a file",
				ArgsUsage: "INPUT_FILE",
				Action:    s.decompressFile,
				Flags:     []cli.Flag{outputFlag(), bufferFlag(), chunkFlag()},
			},
			{
				Name:      "analyze",
				Usage:     "Show the run structure of a file and the size of each mode",
				ArgsUsage: "INPUT_FILE",
				Action:    s.analyzeFile,
			},
			{
				Name:      "selftest",
				Usage:     "Round-trip every file in a directory and report the results",
				ArgsUsage: "TEST_FILES_DIR",
				Action:    s.runSelfTest,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "results",
						Usage: "keep compressed and restored files in `DIR`",
					},
					&cli.StringFlag{
						Name:  "report",
						Usage: "write a CSV report to `FILE`",
					},
				},
			},
		},
	}
}

func outputFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "output",
		Aliases: []string{"o"},
		Usage:   "write the result to `FILE`",
	}
}

func bufferFlag() cli.Flag {
	return &cli.IntFlag{
		Name:    "buffer-size",
		Aliases: []string{"b"},
		Usage:   "RLE writer/reader buffer size in bytes",
	}
}

func chunkFlag() cli.Flag {
	return &cli.IntFlag{
		Name:    "chunk-size",
		Aliases: []string{"B"},
		Usage:   "number of bytes read from the input at a time",
	}
}

// setUp loads the configuration and builds the logger before any command runs.
func (s *session) setUp(ctx *cli.Context) error {
	s.cfg = config.Default()
	if path := ctx.String("config"); path != "" {
		cfg, err := config.Load(path)
		if err != nil {
			return err
		}
		s.cfg = cfg
	}

	level, err := s.cfg.SlogLevel()
	if err != nil {
		return err
	}
	if ctx.Bool("verbose") {
		level = slog.LevelDebug
	}

	s.logger = slog.New(slog.NewTextHandler(s.stderr, &slog.HandlerOptions{Level: level}))
	s.compressor = &compression.Compressor{Logger: s.logger}
	if isTerminal(s.stderr) {
		s.compressor.Progress = s.printProgress
	}
	return nil
}

func isTerminal(output io.Writer) bool {
	file, ok := output.(*os.File)
	return ok && term.IsTerminal(int(file.Fd()))
}

func (s *session) printProgress(processed, total int64) {
	if total < 0 {
		fmt.Fprintf(s.stderr, "\rProcessing: %s...", humanize.IBytes(uint64(processed)))
		return
	}
	fmt.Fprintf(
		s.stderr,
		"\rProcessing: %s/%s...",
		humanize.IBytes(uint64(processed)),
		humanize.IBytes(uint64(total)),
	)
}

// intOption returns the flag's value if it was given, `fallback` otherwise.
func intOption(ctx *cli.Context, name string, fallback int) int {
	if ctx.IsSet(name) {
		return ctx.Int(name)
	}
	return fallback
}

func singleArgument(ctx *cli.Context) (string, error) {
	if ctx.NArg() != 1 {
		return "", cli.Exit(
			fmt.Sprintf("expected exactly one argument, got %d", ctx.NArg()), 1)
	}
	return ctx.Args().First(), nil
}

func compressedPath(inputPath string) string {
	return inputPath + compressedExtension
}

// decompressedPath strips a trailing ".rle" from `inputPath`. Files without it
// get ".out" appended so the input is never overwritten.
func decompressedPath(inputPath string) string {
	extension := filepath.Ext(inputPath)
	if strings.EqualFold(extension, compressedExtension) && len(inputPath) > len(extension) {
		return strings.TrimSuffix(inputPath, extension)
	}
	return inputPath + ".out"
}

func (s *session) selectMode(ctx *cli.Context) (compression.Mode, error) {
	if ctx.Bool("advance") {
		return compression.Advance, nil
	}
	if ctx.IsSet("mode") {
		return compression.ParseMode(ctx.String("mode"))
	}
	return s.cfg.CompressionMode()
}

func (s *session) compressFile(ctx *cli.Context) error {
	inputPath, err := singleArgument(ctx)
	if err != nil {
		return err
	}
	outputPath := ctx.String("output")
	if outputPath == "" {
		outputPath = compressedPath(inputPath)
	}
	mode, err := s.selectMode(ctx)
	if err != nil {
		return err
	}

	bufferSize := intOption(ctx, "buffer-size", s.cfg.WriterBufferSize)
	chunkSize := intOption(ctx, "chunk-size", s.cfg.ChunkSize)

	var report compression.Report
	err = transformFile(inputPath, outputPath, func(input, output *os.File) error {
		report, err = s.compressor.Compress(input, output, bufferSize, chunkSize, mode)
		return err
	})
	if err != nil {
		fmt.Fprintln(s.stdout, "Compression failed!")
		return cli.Exit(err.Error(), 2)
	}

	fmt.Fprintf(
		s.stdout,
		"Finished processing (%s): %s -> %s (%+.2f%%)\n",
		report.Elapsed,
		humanize.IBytes(uint64(report.InputBytes)),
		humanize.IBytes(uint64(report.OutputBytes)),
		-report.Ratio(),
	)
	fmt.Fprintf(s.stdout, "Compression completed: %s\n", outputPath)
	return nil
}

func (s *session) decompressFile(ctx *cli.Context) error {
	inputPath, err := singleArgument(ctx)
	if err != nil {
		return err
	}
	outputPath := ctx.String("output")
	if outputPath == "" {
		outputPath = decompressedPath(inputPath)
	}

	bufferSize := intOption(ctx, "buffer-size", s.cfg.ReaderBufferSize)
	chunkSize := intOption(ctx, "chunk-size", s.cfg.ChunkSize)

	var report compression.Report
	err = transformFile(inputPath, outputPath, func(input, output *os.File) error {
		report, err = s.compressor.Decompress(input, output, bufferSize, chunkSize)
		return err
	})
	if err != nil {
		fmt.Fprintln(s.stdout, "Decompression failed!")
		return cli.Exit(err.Error(), 2)
	}

	fmt.Fprintf(
		s.stdout,
		"Finished processing (%s): %s -> %s\n",
		report.Elapsed,
		humanize.IBytes(uint64(report.InputBytes)),
		humanize.IBytes(uint64(report.OutputBytes)),
	)
	fmt.Fprintf(s.stdout, "Decompression completed: %s\n", outputPath)
	return nil
}

// transformFile opens `inputPath`, creates `outputPath` and runs `transform` on
// them. If anything fails the output file is removed.
func transformFile(
	inputPath string,
	outputPath string,
	transform func(input, output *os.File) error,
) error {
	input, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("failed to open file for reading: `%v`: %w", inputPath, err)
	}
	defer input.Close()

	output, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to open file for writing: `%v`: %w", outputPath, err)
	}

	err = transform(input, output)
	closeErr := output.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(outputPath)
		return err
	}
	return nil
}

func (s *session) analyzeFile(ctx *cli.Context) error {
	inputPath, err := singleArgument(ctx)
	if err != nil {
		return err
	}

	input, err := os.Open(inputPath)
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to open file for reading: `%v`: %s", inputPath, err), 1)
	}
	defer input.Close()

	profile, err := compression.Analyze(input)
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}

	fmt.Fprintf(s.stdout, "Size:           %s\n", humanize.IBytes(uint64(profile.InputBytes)))
	fmt.Fprintf(s.stdout, "Runs:           %s\n", humanize.Comma(profile.Runs))
	fmt.Fprintf(s.stdout, "Singletons:     %s\n", humanize.Comma(profile.Singletons))
	fmt.Fprintf(s.stdout, "Longest run:    %d\n", profile.LongestRun)
	fmt.Fprintf(s.stdout, "Distinct bytes: %d\n", profile.DistinctBytes)
	fmt.Fprintf(s.stdout, "Basic size:     %s\n", humanize.IBytes(uint64(profile.BasicSize)))
	fmt.Fprintf(s.stdout, "Advance size:   %s\n", humanize.IBytes(uint64(profile.AdvanceSize)))
	fmt.Fprintf(s.stdout, "Best mode:      %s\n", profile.BestMode())
	return nil
}

func (s *session) runSelfTest(ctx *cli.Context) error {
	dir, err := singleArgument(ctx)
	if err != nil {
		return err
	}

	suite, err := selftest.Run(dir, ctx.String("results"), selftest.Options{
		WriterBufferSize: s.cfg.WriterBufferSize,
		ReaderBufferSize: s.cfg.ReaderBufferSize,
		ChunkSize:        s.cfg.ChunkSize,
		Compressor:       s.compressor,
	})
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	for _, result := range suite.Results {
		status := "PASS"
		if !result.Passed() {
			status = "FAIL"
		}
		fmt.Fprintf(s.stdout, "[%s] %s (%s)", status, result.File, result.Mode)
		if result.Error != "" {
			fmt.Fprintf(s.stdout, ": %s", result.Error)
		} else if result.FirstDifference >= 0 {
			fmt.Fprintf(s.stdout, ": first difference at offset %d", result.FirstDifference)
		}
		fmt.Fprintln(s.stdout)
	}

	if reportPath := ctx.String("report"); reportPath != "" {
		err = writeReport(suite, reportPath)
		if err != nil {
			return cli.Exit(err.Error(), 1)
		}
	}

	s.logger.Info("Self-test finished",
		"run_id", suite.RunID.String(),
		"results", len(suite.Results),
		"failed", suite.Failed())
	fmt.Fprintf(s.stdout, "%d/%d passed\n", len(suite.Results)-suite.Failed(), len(suite.Results))
	if suite.Failed() > 0 {
		return cli.Exit("self-test failed", 3)
	}
	return nil
}

func writeReport(suite *selftest.Suite, path string) error {
	output, err := os.Create(path)
	if err != nil {
		return err
	}
	err = suite.WriteCSV(output)
	closeErr := output.Close()
	if err != nil {
		return err
	}
	return closeErr
}
