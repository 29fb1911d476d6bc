package assets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/spaghettifunk/animaview/engine/assets/loaders"
	"github.com/spaghettifunk/animaview/engine/core"
	"github.com/spaghettifunk/animaview/engine/resources"
)

type AssetInfo struct {
	Name       string
	Path       string
	ModTime    time.Time
	LastLoaded time.Time
}

// FnOnChange is called from the watcher goroutine when a model file is
// created or rewritten.
type FnOnChange func(name, path string)

// AssetManager resolves asset names to files in one directory, loads them
// with the loader registered for their extension and watches the directory
// for changes.
type AssetManager struct {
	dir     string
	ext     string
	catalog []string
	alloc   resources.Allocator
	loaders map[string]Loader

	mutex     sync.RWMutex
	assets    map[string]AssetInfo
	listeners []FnOnChange

	done     chan struct{}
	stopped  chan struct{}
	fsnotify *fsnotify.Watcher
	started  bool
	isClosed bool
}

func NewAssetManager(dir, ext string, catalog []string, alloc resources.Allocator) (*AssetManager, error) {
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	am := &AssetManager{
		dir:      dir,
		ext:      strings.ToLower(ext),
		catalog:  append([]string(nil), catalog...),
		alloc:    alloc,
		loaders:  make(map[string]Loader),
		assets:   make(map[string]AssetInfo),
		fsnotify: fsWatch,
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}

	gltfLoader := &loaders.GLTFLoader{}
	am.RegisterLoader(".glb", gltfLoader)
	am.RegisterLoader(".gltf", gltfLoader)
	return am, nil
}

// Initialize indexes the asset directory and starts watching it.
func (am *AssetManager) Initialize() error {
	if err := am.addRecursive(am.dir); err != nil {
		return err
	}
	am.mutex.Lock()
	am.started = true
	am.mutex.Unlock()
	go am.start()
	return nil
}

// RegisterLoader registers a loader for a file extension, replacing any
// previous one.
func (am *AssetManager) RegisterLoader(ext string, loader Loader) {
	am.mutex.Lock()
	defer am.mutex.Unlock()
	am.loaders[strings.ToLower(ext)] = loader
}

// Names returns the configured catalog, in order.
func (am *AssetManager) Names() []string {
	return append([]string(nil), am.catalog...)
}

// Available returns the catalog names whose file is currently present.
func (am *AssetManager) Available() []string {
	am.mutex.RLock()
	defer am.mutex.RUnlock()

	var out []string
	for _, name := range am.catalog {
		if _, ok := am.assets[name]; ok {
			out = append(out, name)
		}
	}
	return out
}

// Indexed returns every model file found in the directory, catalog or not.
func (am *AssetManager) Indexed() []AssetInfo {
	am.mutex.RLock()
	defer am.mutex.RUnlock()

	out := make([]AssetInfo, 0, len(am.assets))
	for _, info := range am.assets {
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Path resolves a name to <dir>/<name><ext>. Names that would leave the
// asset directory are unknown.
func (am *AssetManager) Path(name string) (string, error) {
	if name == "" || name == "." || strings.Contains(name, "..") || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("%q: %w", name, core.ErrUnknownAsset)
	}
	return filepath.Join(am.dir, name+am.ext), nil
}

// OnChange registers a hot reload hook.
func (am *AssetManager) OnChange(fn FnOnChange) {
	am.mutex.Lock()
	defer am.mutex.Unlock()
	am.listeners = append(am.listeners, fn)
}

// Load reads the named asset. It is safe to call from any goroutine and
// acquires its resources from the manager's allocator.
func (am *AssetManager) Load(ctx context.Context, name string) (*Asset, error) {
	path, err := am.Path(name)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%q: %w", name, core.ErrUnknownAsset)
		}
		return nil, err
	}

	am.mutex.RLock()
	loader, ok := am.loaders[strings.ToLower(filepath.Ext(path))]
	am.mutex.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, core.ErrUnsupportedAsset)
	}

	model, err := loader.Load(ctx, path, am.alloc)
	if err != nil {
		return nil, err
	}

	am.mutex.Lock()
	if info, ok := am.assets[name]; ok {
		info.LastLoaded = time.Now()
		am.assets[name] = info
	}
	am.mutex.Unlock()

	return &Asset{
		Name:    name,
		Path:    path,
		Root:    model.Root,
		Clips:   model.Clips,
		Handles: model.Handles,
	}, nil
}

// Close stops the watcher and waits for it to exit.
func (am *AssetManager) Close() error {
	am.mutex.Lock()
	if am.isClosed {
		am.mutex.Unlock()
		return nil
	}
	am.isClosed = true
	started := am.started
	am.mutex.Unlock()

	close(am.done)
	if started {
		<-am.stopped
	}
	return am.fsnotify.Close()
}

func (am *AssetManager) start() {
	defer close(am.stopped)
	for {
		select {
		case e, ok := <-am.fsnotify.Events:
			if !ok {
				return
			}
			s, err := os.Stat(e.Name)
			if err == nil && s.IsDir() {
				if e.Op&fsnotify.Create != 0 {
					if err := am.watchRecursive(e.Name, false); err != nil {
						core.LogWarn("could not watch %s: %s", e.Name, err)
					}
				}
				continue
			}
			if e.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				if name, ok := am.handleFileEvent(e.Name); ok {
					am.notify(name, e.Name)
				}
			}
			if e.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				am.removeAsset(e.Name)
			}

		case err, ok := <-am.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError(err.Error())

		case <-am.done:
			return
		}
	}
}

func (am *AssetManager) notify(name, path string) {
	am.mutex.RLock()
	listeners := append([]FnOnChange(nil), am.listeners...)
	am.mutex.RUnlock()

	for _, fn := range listeners {
		fn(name, path)
	}
}

// addRecursive starts watching the named directory and all sub-directories.
func (am *AssetManager) addRecursive(name string) error {
	am.mutex.RLock()
	closed := am.isClosed
	am.mutex.RUnlock()
	if closed {
		return errors.New("asset watcher already closed")
	}
	return am.watchRecursive(name, false)
}

// watchRecursive adds all directories under the given one to the watch list
// and indexes the model files it finds.
func (am *AssetManager) watchRecursive(path string, unWatch bool) error {
	return filepath.Walk(path, func(walkPath string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			if unWatch {
				return am.fsnotify.Remove(walkPath)
			}
			return am.fsnotify.Add(walkPath)
		}
		am.handleFileEvent(walkPath)
		return nil
	})
}

// handleFileEvent indexes a created or modified model file and returns its
// asset name. Only files directly in the asset directory resolve to a name.
func (am *AssetManager) handleFileEvent(path string) (string, bool) {
	name, ok := am.assetName(path)
	if !ok {
		return "", false
	}
	info := AssetInfo{Name: name, Path: path}
	if fi, err := os.Stat(path); err == nil {
		info.ModTime = fi.ModTime()
	}

	am.mutex.Lock()
	defer am.mutex.Unlock()
	if prev, ok := am.assets[name]; ok {
		info.LastLoaded = prev.LastLoaded
	}
	am.assets[name] = info
	return name, true
}

// Remove the asset from the index if it was deleted
func (am *AssetManager) removeAsset(path string) {
	name, ok := am.assetName(path)
	if !ok {
		return
	}
	am.mutex.Lock()
	defer am.mutex.Unlock()
	delete(am.assets, name)
}

func (am *AssetManager) assetName(path string) (string, bool) {
	if filepath.Clean(filepath.Dir(path)) != filepath.Clean(am.dir) {
		return "", false
	}
	if !strings.EqualFold(filepath.Ext(path), am.ext) {
		return "", false
	}
	base := filepath.Base(path)
	return base[:len(base)-len(am.ext)], true
}
