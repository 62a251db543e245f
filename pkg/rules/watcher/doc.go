// Package watcher reloads category rules when files on disk change.
//
// FileWatcher uses fsnotify to observe a rule file or directory tree and calls a
// reload function once per burst of changes, after a debounce interval. Typical
// use wires it to schema.Catalog.Reload:
//
//	fw, err := watcher.New(watcher.DefaultConfig("./rules"), logger)
//	if err != nil {
//	    return err
//	}
//	defer fw.Stop()
//	go fw.Watch(ctx, catalog.Reload)
package watcher
