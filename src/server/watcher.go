package server

import (
	"path/filepath"

	"github.com/lucasbarnes96/truenorth-index/src/utils"

	"github.com/fsnotify/fsnotify"
)

// -----------------------------------------------------------------------------
// Artifact watcher
// -----------------------------------------------------------------------------

// watchArtifacts pushes a broadcast whenever the pipeline replaces
// latest.json. The store writes atomically (temp file + rename), so the
// change arrives as a single create/rename event on the final name and the
// reader never sees a torn file.
func (s *FastAPIServer) watchArtifacts() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	// Watch the directory, not the file: a rename replaces the inode and a
	// file watch would go dead after the first run.
	if err := watcher.Add(s.Store.Dir); err != nil {
		watcher.Close()
		return err
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(event.Name) != utils.LatestFile {
					continue
				}
				if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
					continue
				}
				s.pushLatest()

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.Logger.Warning("Artifact watcher error: %v", err)

			case <-s.quit:
				return
			}
		}
	}()

	s.Logger.Info("Watching %s for snapshot updates", filepath.Join(s.Store.Dir, utils.LatestFile))
	return nil
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) pushLatest() {
	snapshot, err := s.Store.LoadLatest()
	if err != nil {
		s.Logger.Warning("Could not reload latest snapshot after change: %v", err)
		return
	}
	if snapshot == nil {
		return
	}
	s.Logger.Debug("Broadcasting run %s", snapshot.RunID)
	s.Broadcast(snapshot)
}
