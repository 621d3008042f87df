// Package watch reports file write completion inside a single directory.
//
// Every backend implements [Watcher], so callers never depend on the
// notification mechanism in use.
package watch

import (
	"errors"
	"fmt"
)

// ErrClosed is returned by [Watcher.Next] once the watcher has been closed.
var ErrClosed = errors.New("watcher closed")

// ErrWatchRemoved is returned by [Watcher.Next] when the watched directory
// has been removed; the watch cannot recover from that.
var ErrWatchRemoved = errors.New("watched directory removed")

// Event reports that a file inside the watched directory was written.
type Event struct {
	// Name is the base name of the changed entry.
	Name string
}

type Watcher interface {
	// Next blocks until the next event is available.
	Next() (Event, error)

	// Close releases the watch and makes any pending and future
	// calls to Next return [ErrClosed].
	Close() error
}

type Backend string

const (
	// Auto selects the native backend of the current platform.
	Auto = Backend("auto")

	// Inotify uses IN_CLOSE_WRITE notifications (Linux only).
	Inotify = Backend("inotify")

	// FSNotify uses github.com/fsnotify/fsnotify write notifications.
	FSNotify = Backend("fsnotify")
)

func ParseBackend(s string) (Backend, error) {
	switch b := Backend(s); b {
	case Auto, Inotify, FSNotify:
		return b, nil
	default:
		return "", fmt.Errorf("unknown watch backend %q", s)
	}
}

// Start registers interest in write completion of the files in dir.
func Start(b Backend, dir string) (Watcher, error) {
	if b == Auto {
		b = nativeBackend
	}

	switch b {
	case Inotify:
		return startInotify(dir)
	case FSNotify:
		return NewNotify(dir)
	default:
		return nil, fmt.Errorf("unknown watch backend %q", b)
	}
}
