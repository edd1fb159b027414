package dlog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Archiver moves the previous day's log files into a dated directory so the
// live files stay small. While a run is in progress, BufferedFile parks
// writes in a side file and replays them afterwards.
type Archiver struct {
	dir        string
	processing bool
}

func (a *Archiver) process() {
	Info("Started log archive run")
	a.processing = true
	defer func() { a.processing = false }()

	yesterday := time.Now().AddDate(0, 0, -1).Format("2006-01-02")
	archiveDir := filepath.Join(a.dir, yesterday)

	tmp := archiveDir
	counter := 1
	err := os.Mkdir(archiveDir, 0755)
	for os.IsExist(err) {
		archiveDir = tmp + "-" + strconv.Itoa(counter)
		counter++
		err = os.Mkdir(archiveDir, 0755)
	}
	if err != nil {
		Error("Failed to create archive directory", "dir", archiveDir, "err", err)
		return
	}

	entries, err := os.ReadDir(a.dir)
	if err != nil {
		Error("Failed to read log directory", "dir", a.dir, "err", err)
		return
	}

	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		livePath := filepath.Join(a.dir, entry.Name())
		old, err := os.OpenFile(livePath, os.O_RDONLY, 0600)
		if err != nil {
			Error("Failed to open file", "fileName", livePath, "err", err)
			return
		}
		archived, err := os.OpenFile(filepath.Join(archiveDir, entry.Name()), os.O_WRONLY|os.O_CREATE, 0600)
		if err != nil {
			Error("Failed to open file", "fileName", filepath.Join(archiveDir, entry.Name()), "err", err)
			return
		}
		written, err := copyFiles(archived, old)
		if err != nil {
			Error("Failed to write log", "fileName", entry.Name(), "err", err)
			return
		}
		Info("Copied log", "fileName", entry.Name(), "written", written)

		err = os.Truncate(livePath, 0)
		if err != nil {
			Error("Failed to truncate file", "fileName", livePath, "err", err)
			return
		}
	}
}

func copyFiles(writer io.Writer, input *os.File) (int, error) {
	stat, err := input.Stat()
	if err != nil {
		return 0, err
	}
	bytes := make([]byte, stat.Size())
	read, err := input.ReadAt(bytes, 0)
	if err != nil && err != io.EOF {
		return 0, err
	}
	if stat.Size() != int64(read) {
		return 0, fmt.Errorf("expected %d bytes, got %d", stat.Size(), read)
	}
	return writer.Write(bytes)
}

// BufferedFile is a log sink that keeps accepting writes while its backing
// file is being archived.
type BufferedFile struct {
	Archiver   *Archiver
	File       *os.File
	BufferFile *os.File
	bufferPath string
	buffered   bool
}

func (b *BufferedFile) Write(p []byte) (n int, err error) {
	if b.Archiver.processing {
		b.buffered = true
		_, err := b.BufferFile.Write(p)
		if err != nil {
			return 0, err
		}
		return len(p), nil
	}
	if b.buffered {
		b.buffered = false
		_, err := copyFiles(b.File, b.BufferFile)
		if err != nil {
			return 0, err
		}
		err = os.Truncate(b.bufferPath, 0)
		if err != nil {
			return 0, err
		}
	}
	return b.File.Write(p)
}
