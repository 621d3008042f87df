package watch

import (
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Notify is the portable backend.
//
// fsnotify does not expose close notifications, so Notify reports every
// write to a file instead. A single save may therefore produce more than
// one event.
type Notify struct {
	watch *fsnotify.Watcher
}

var _ Watcher = (*Notify)(nil)

func NewNotify(dir string) (*Notify, error) {
	w, err := fsnotify.NewWatcher()

	if err != nil {
		return nil, fmt.Errorf("cannot initialize fsnotify: %w", err)
	}

	if err := w.Add(dir); err != nil {
		_ = w.Close()

		return nil, fmt.Errorf("cannot watch %s: %w", dir, err)
	}

	return &Notify{watch: w}, nil
}

func (n *Notify) Next() (Event, error) {
	for {
		select {
		case evt, ok := <-n.watch.Events:
			if !ok {
				return Event{}, ErrClosed
			}

			if evt.Has(fsnotify.Write) {
				return Event{Name: filepath.Base(evt.Name)}, nil
			}
		case err, ok := <-n.watch.Errors:
			if !ok {
				return Event{}, ErrClosed
			}

			return Event{}, fmt.Errorf("cannot read fsnotify events: %w", err)
		}
	}
}

func (n *Notify) Close() error {
	return n.watch.Close()
}
