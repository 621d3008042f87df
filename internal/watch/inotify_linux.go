package watch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"unsafe"

	"github.com/njkleiner/watchc/internal/log"
	"golang.org/x/sys/unix"
)

const nativeBackend = Inotify

const readBufferSize = 4096

// InotifyWatcher reports IN_CLOSE_WRITE events for the entries of one directory.
type InotifyWatcher struct {
	// file wraps the non-blocking inotify descriptor so that reads go
	// through the runtime poller and Close unblocks a pending read.
	file *os.File

	dir string

	buf []byte

	// pending holds decoded events not yet returned by Next, in delivery order.
	pending []Event

	// err is returned by Next once pending is drained.
	err error
}

var _ Watcher = (*InotifyWatcher)(nil)

func startInotify(dir string) (Watcher, error) {
	return NewInotify(dir)
}

func NewInotify(dir string) (*InotifyWatcher, error) {
	fd, err := unix.InotifyInit1(unix.IN_CLOEXEC | unix.IN_NONBLOCK)

	if err != nil {
		return nil, fmt.Errorf("cannot initialize inotify: %w", err)
	}

	mask := uint32(unix.IN_CLOSE_WRITE | unix.IN_DELETE_SELF | unix.IN_ONLYDIR)

	if _, err := unix.InotifyAddWatch(fd, dir, mask); err != nil {
		_ = unix.Close(fd)

		return nil, fmt.Errorf("cannot add inotify watch for %s: %w", dir, err)
	}

	return &InotifyWatcher{
		file: os.NewFile(uintptr(fd), "inotify"),
		dir:  dir,
		buf:  make([]byte, readBufferSize),
	}, nil
}

func (w *InotifyWatcher) Next() (Event, error) {
	for len(w.pending) == 0 {
		if w.err != nil {
			return Event{}, w.err
		}

		w.err = w.read()
	}

	evt := w.pending[0]
	w.pending = w.pending[1:]

	return evt, nil
}

func (w *InotifyWatcher) Close() error {
	return w.file.Close()
}

// read blocks until the kernel delivers at least one event and decodes
// everything it delivered into w.pending.
func (w *InotifyWatcher) read() error {
	n, err := w.file.Read(w.buf)

	switch {
	case errors.Is(err, os.ErrClosed):
		return ErrClosed
	case err != nil:
		return fmt.Errorf("cannot read inotify events: %w", err)
	case n < unix.SizeofInotifyEvent:
		return fmt.Errorf("cannot read inotify events: short read of %d bytes", n)
	}

	for offset := 0; offset+unix.SizeofInotifyEvent <= n; {
		raw := (*unix.InotifyEvent)(unsafe.Pointer(&w.buf[offset]))

		start := offset + unix.SizeofInotifyEvent
		end := start + int(raw.Len)

		offset = end

		switch mask := raw.Mask; {
		case mask&unix.IN_Q_OVERFLOW != 0:
			// The kernel dropped events; there is nothing to replay.
			log.Warn(context.TODO(), "inotify queue overflow", slog.String("dir", w.dir))
		case mask&(unix.IN_DELETE_SELF|unix.IN_IGNORED) != 0:
			return ErrWatchRemoved
		case mask&unix.IN_CLOSE_WRITE != 0 && end <= n:
			// The name is padded with NUL bytes to an alignment boundary.
			name := bytes.TrimRight(w.buf[start:end], "\x00")

			w.pending = append(w.pending, Event{Name: string(name)})
		}
	}

	return nil
}
