package dlog

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/robfig/cron/v3"
	slogmulti "github.com/samber/slog-multi"
)

var multiLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{}))

// Setup switches the package logger from its stderr fallback to the full
// fanout (pretty console+file, text file, json file) rooted at dir, and
// schedules the archiver on the given cron spec.
func Setup(dir, archiveCron string) error {
	err := os.MkdirAll(filepath.Join(dir, "buffered"), os.ModePerm)
	if err != nil {
		return err
	}

	archiver := &Archiver{dir: dir}
	logger, err := createLogger(dir, archiver)
	if err != nil {
		return err
	}
	multiLogger = logger

	c := cron.New()
	entryID, err := c.AddFunc(archiveCron, archiver.process)
	if err != nil {
		return err
	}
	c.Start()
	Info("Created archive cron", "entryID", entryID)
	return nil
}

func Info(msg string, args ...any) {
	multiLogger.Info(msg, args...)
}
func Error(msg string, args ...any) {
	multiLogger.Error(msg, args...)
}
func Warn(msg string, args ...any) {
	multiLogger.Warn(msg, args...)
}
func Debug(msg string, args ...any) {
	multiLogger.Debug(msg, args...)
}

func createLogger(dir string, archiver *Archiver) (*slog.Logger, error) {
	opts := &slog.HandlerOptions{
		AddSource: true,
	}

	pretty, err := prettyHandler(dir, archiver, opts)
	if err != nil {
		return nil, err
	}
	text, err := fileHandler(dir, archiver, "default.txt", opts, newTextHandler)
	if err != nil {
		return nil, err
	}
	jsonHandler, err := fileHandler(dir, archiver, "default.json", opts, newJSONHandler)
	if err != nil {
		return nil, err
	}

	return slog.New(slogmulti.Fanout(pretty, text, jsonHandler)), nil
}

func newTextHandler(w io.Writer, opts *slog.HandlerOptions) slog.Handler {
	return slog.NewTextHandler(w, opts)
}

func newJSONHandler(w io.Writer, opts *slog.HandlerOptions) slog.Handler {
	return slog.NewJSONHandler(w, opts)
}

func fileHandler(dir string, archiver *Archiver, name string, opts *slog.HandlerOptions, build func(io.Writer, *slog.HandlerOptions) slog.Handler) (slog.Handler, error) {
	buffered, err := openBufferedFile(dir, archiver, name)
	if err != nil {
		return nil, err
	}
	return build(buffered, opts), nil
}

func prettyHandler(dir string, archiver *Archiver, opts *slog.HandlerOptions) (slog.Handler, error) {
	buffered, err := openBufferedFile(dir, archiver, "pretty.log")
	if err != nil {
		return nil, err
	}
	return NewHandler(DualWriter{
		Stdout: os.Stdout,
		File:   buffered,
	}, opts), nil
}

func openBufferedFile(dir string, archiver *Archiver, name string) (*BufferedFile, error) {
	file, err := os.OpenFile(filepath.Join(dir, name), os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0600)
	if err != nil {
		return nil, err
	}
	buffer, err := os.OpenFile(filepath.Join(dir, "buffered", name), os.O_APPEND|os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return nil, err
	}
	return &BufferedFile{
		Archiver:   archiver,
		File:       file,
		BufferFile: buffer,
		bufferPath: filepath.Join(dir, "buffered", name),
	}, nil
}
