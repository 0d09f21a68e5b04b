package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

const maxLine = 1024 * 1024

// Options selects the lines Tail returns.
type Options struct {
	// Offset < 0 asks for the last Limit lines; otherwise every line after
	// the byte offset is returned.
	Offset int64
	Limit  int
}

// Result carries the lines read and the offset to resume from.
type Result struct {
	Lines  []string
	Offset int64
}

// Tail reads path once. A missing file yields no lines and offset 0.
func Tail(path string, opts Options) (Result, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Result{}, nil
		}
		return Result{Offset: opts.Offset}, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return Result{Offset: opts.Offset}, fmt.Errorf("stat log file: %w", err)
	}
	if info.IsDir() {
		return Result{Offset: opts.Offset}, fmt.Errorf("log path %q is a directory", path)
	}

	if opts.Offset < 0 {
		return lastLines(file, info.Size(), opts.Limit)
	}
	offset := opts.Offset
	if offset > info.Size() {
		// Truncated or replaced; start over.
		offset = 0
	}
	return linesFrom(file, offset)
}

func lastLines(file *os.File, size int64, limit int) (Result, error) {
	if limit <= 0 {
		return Result{Offset: size}, nil
	}
	ring := make([]string, 0, limit)
	start := 0
	res, err := scan(file, func(line string) {
		if len(ring) < limit {
			ring = append(ring, line)
			return
		}
		ring[start] = line
		start = (start + 1) % limit
	})
	if err != nil {
		return res, err
	}
	res.Lines = append(ring[start:len(ring):len(ring)], ring[:start]...)
	return res, nil
}

func linesFrom(file *os.File, offset int64) (Result, error) {
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return Result{Offset: offset}, fmt.Errorf("seek log file: %w", err)
	}
	var lines []string
	res, err := scan(file, func(line string) { lines = append(lines, line) })
	res.Lines = lines
	return res, err
}

// scan feeds complete lines to fn and reports the offset after the last
// one. A partial trailing line is left for the next read.
func scan(file *os.File, fn func(string)) (Result, error) {
	pos, err := file.Seek(0, io.SeekCurrent)
	if err != nil {
		return Result{}, fmt.Errorf("determine log offset: %w", err)
	}
	reader := bufio.NewReaderSize(file, 64*1024)
	for {
		line, err := reader.ReadSlice('\n')
		if err == nil {
			pos += int64(len(line))
			fn(string(line[:len(line)-1]))
			continue
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			// Overlong record: skip it whole.
			skipped, skipErr := skipLine(reader, len(line))
			pos += int64(skipped)
			if skipErr != nil {
				return Result{Offset: pos}, nil
			}
			continue
		}
		if errors.Is(err, io.EOF) {
			return Result{Offset: pos}, nil
		}
		return Result{Offset: pos}, fmt.Errorf("read log file: %w", err)
	}
}

func skipLine(reader *bufio.Reader, read int) (int, error) {
	for read < maxLine*64 {
		chunk, err := reader.ReadSlice('\n')
		read += len(chunk)
		if err == nil {
			return read, nil
		}
		if !errors.Is(err, bufio.ErrBufferFull) {
			return read, err
		}
	}
	return read, errors.New("log line too long")
}

// Follow calls fn for every line appended to path after offset, polling
// every interval until ctx ends.
func Follow(ctx context.Context, path string, offset int64, interval time.Duration, fn func(string)) error {
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		res, err := Tail(path, Options{Offset: max(offset, 0)})
		if err != nil {
			return err
		}
		for _, line := range res.Lines {
			fn(line)
		}
		offset = res.Offset
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
