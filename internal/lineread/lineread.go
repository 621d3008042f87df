package lineread

import (
	"bufio"
	"errors"
	"io"
	"os"
)

// ErrNoLine is returned by [First] and [File] when there is no line to read.
var ErrNoLine = errors.New("no line")

var errStop = errors.New("stop")

// Reader reads from r line by line and calls fn for each line.
//
// Line terminators ("\n" or "\r\n") are not passed to fn.
func Reader(r io.Reader, fn func(line []byte) error) error {
	bs := bufio.NewScanner(r)

	for bs.Scan() {
		if err := fn(bs.Bytes()); err != nil {
			return err
		}
	}

	return bs.Err()
}

// First returns the first line of r without its line terminator.
func First(r io.Reader) (string, error) {
	var (
		line  string
		found bool
	)

	err := Reader(r, func(b []byte) error {
		line, found = string(b), true

		return errStop // no need to read any further
	})

	switch {
	case found:
		return line, nil
	case err != nil:
		return "", err
	default:
		return "", ErrNoLine
	}
}

// File opens the named file and returns its first line.
func File(name string) (string, error) {
	f, err := os.Open(name)

	if err != nil {
		return "", err
	}

	defer f.Close()

	return First(f)
}
