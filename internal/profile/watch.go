package profile

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const watchDebounce = 300 * time.Millisecond

// Watch reloads the document whenever its file changes on disk and calls
// onChange with the new snapshot. The containing directory is watched so
// editors that replace the file by rename are picked up. Watch blocks until
// ctx is done.
func (s *Store) Watch(ctx context.Context, onChange func(*Document)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	path := filepath.Clean(s.Path())
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return err
	}
	s.logger.Debug("Watching profiles", zap.String("path", path))

	var (
		timer   *time.Timer
		timerC  <-chan time.Time
		lastOwn = s.lastWrite()
	)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(watchDebounce)
			} else {
				timer.Reset(watchDebounce)
			}
			timerC = timer.C

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("Profile watcher error", zap.Error(err))

		case <-timerC:
			timerC = nil
			if own := s.lastWrite(); own != lastOwn {
				// our own Save
				lastOwn = own
				continue
			}
			doc, err := ReadFile(path)
			if err != nil {
				s.logger.Warn("Ignoring unreadable profiles file", zap.String("path", path), zap.Error(err))
				continue
			}
			if len(doc.Profiles) == 0 {
				s.logger.Warn("Ignoring profiles file without profiles", zap.String("path", path))
				continue
			}
			doc.LastFilePath = path
			s.Replace(doc)
			s.logger.Info("Profiles reloaded", zap.String("path", path), zap.Int("profiles", len(doc.Profiles)))
			if onChange != nil {
				onChange(s.Document())
			}
		}
	}
}
