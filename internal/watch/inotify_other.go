//go:build !linux

package watch

import (
	"errors"
)

const nativeBackend = FSNotify

func startInotify(dir string) (Watcher, error) {
	return nil, errors.New("inotify backend is only available on linux")
}
