package server

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// startFileWatcher initializes fsnotify watcher for recursive library monitoring.
func (ms *MusicServer) startFileWatcher() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	ms.watcherMu.Lock()
	ms.watcher = watcher
	ms.watcherMu.Unlock()

	go ms.watchFiles(watcher)

	root := ms.browser.Root()
	if err := addDirectoryToWatcher(watcher, root); err != nil {
		return err
	}

	ms.logger.WithField("library_path", root).Info("File watcher started")
	return nil
}

// addDirectoryToWatcher recursively walks and adds subdirectories to watcher.
func addDirectoryToWatcher(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
}

// watchFiles selects on watcher channels and dispatches events.
func (ms *MusicServer) watchFiles(watcher *fsnotify.Watcher) {
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			ms.handleFileEvent(watcher, event)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			ms.logger.WithError(err).Error("File watcher error")
		}
	}
}

// handleFileEvent drops cached listings and covers touched by a change.
func (ms *MusicServer) handleFileEvent(watcher *fsnotify.Watcher, event fsnotify.Event) {
	fileName := filepath.Base(event.Name)
	if strings.HasPrefix(fileName, ".") || strings.HasSuffix(fileName, ".tmp") {
		return
	}
	if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) {
		return
	}

	rel, ok := ms.browser.RelPath(event.Name)
	if !ok {
		return
	}
	ms.cache.Invalidate(rel)

	ms.logger.WithFields(logrus.Fields{
		"path": rel,
		"op":   event.Op.String(),
	}).Debug("Library changed")

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := addDirectoryToWatcher(watcher, event.Name); err != nil {
				ms.logger.WithError(err).WithField("directory", event.Name).Warn("Could not watch new directory")
				return
			}
			ms.logger.WithField("directory", event.Name).Info("Watching new directory")
		}
	}
}

// stopFileWatcher closes the watcher (idempotent). The event loop keeps its
// own reference and exits once the channels are closed.
func (ms *MusicServer) stopFileWatcher() {
	ms.watcherMu.Lock()
	watcher := ms.watcher
	ms.watcher = nil
	ms.watcherMu.Unlock()

	if watcher != nil {
		watcher.Close()
	}
}
