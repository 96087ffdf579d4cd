package settings

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// settleDelay is how long the file must stay quiet before it is reloaded.
// Editors often write a file in several steps.
const settleDelay = 100 * time.Millisecond

// Watcher reloads a settings file whenever it changes on disk. Parsed
// settings arrive on Updates; read or parse failures on Errors.
type Watcher struct {
	path    string
	watcher *fsnotify.Watcher
	Updates chan Settings
	Errors  chan error
	closeCh chan struct{}
	done    chan struct{}
	once    sync.Once
}

// Watch starts watching path. The parent directory is watched rather than
// the file so that replace-by-rename saves are seen.
func Watch(path string) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		_ = w.Close()
		return nil, err
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		_ = w.Close()
		return nil, err
	}

	watcher := &Watcher{
		path:    abs,
		watcher: w,
		Updates: make(chan Settings, 1),
		Errors:  make(chan error, 1),
		closeCh: make(chan struct{}),
		done:    make(chan struct{}),
	}
	go watcher.run()
	return watcher, nil
}

func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.closeCh)
		err = w.watcher.Close()
		<-w.done
	})
	return err
}

func (w *Watcher) run() {
	defer func() {
		close(w.Updates)
		close(w.Errors)
		close(w.done)
	}()

	settle := time.NewTimer(settleDelay)
	settle.Stop()
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			settle.Reset(settleDelay)
		case <-settle.C:
			s, err := Load(w.path)
			if err != nil {
				w.send(nil, err)
				continue
			}
			w.send(&s, nil)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.send(nil, err)
		case <-w.closeCh:
			settle.Stop()
			return
		}
	}
}

// send delivers one result, replacing an unread one of the same kind.
func (w *Watcher) send(s *Settings, err error) {
	if s != nil {
		select {
		case <-w.Updates:
		default:
		}
		select {
		case w.Updates <- *s:
		case <-w.closeCh:
		}
		return
	}
	select {
	case w.Errors <- err:
	case <-w.closeCh:
	default:
	}
}
