package catalog

import (
	"fmt"
	"path/filepath"

	"voicecart/internal/logging"

	"github.com/fsnotify/fsnotify"
)

// Watcher hot-reloads a file-backed catalog when the products file changes.
// A reload that fails to parse keeps the previous catalog contents.
type Watcher struct {
	catalog *Catalog
	path    string
	fw      *fsnotify.Watcher
	done    chan struct{}
}

// Watch starts watching the products file backing the catalog.
// Only meaningful for catalogs created via LoadFile.
func Watch(c *Catalog, path string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create catalog watcher: %w", err)
	}

	// Watch the directory, not the file: editors replace files on save,
	// which drops a file-level watch.
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to watch catalog directory: %w", err)
	}

	w := &Watcher{
		catalog: c,
		path:    path,
		fw:      fw,
		done:    make(chan struct{}),
	}
	go w.loop()

	logging.Catalog("Watching catalog file: %s", path)
	return w, nil
}

func (w *Watcher) loop() {
	for {
		select {
		case event, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.reload()
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			logging.Get(logging.CategoryCatalog).Warn("Catalog watcher error: %v", err)
		case <-w.done:
			return
		}
	}
}

func (w *Watcher) reload() {
	reloaded, err := LoadFile(w.path)
	if err != nil {
		logging.Get(logging.CategoryCatalog).Warn("Catalog reload failed, keeping previous contents: %v", err)
		return
	}
	w.catalog.replace(reloaded.All())
	logging.Catalog("Catalog reloaded: %d products", w.catalog.Len())
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fw.Close()
}
