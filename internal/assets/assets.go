// Package assets resolves numeric asset ids to parsed physics asset documents.
package assets

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/Faultbox/navbake/internal/logger"
	"github.com/Faultbox/navbake/pkg/formats"
	"github.com/Faultbox/navbake/pkg/pack"
)

// File extensions recognized when building an index.
const (
	DocumentExt = ".pxad"
	PackExt     = ".pak"
)

// SourceKind tells NewIndex how to read a source.
type SourceKind int

const (
	SourceDir  SourceKind = iota // Directory of *.pxad files, walked recursively
	SourcePack                   // Asset pack archive
)

// Source is one place asset documents are loaded from.
type Source struct {
	Kind SourceKind
	Path string
}

// Dir returns a directory source.
func Dir(path string) Source { return Source{Kind: SourceDir, Path: path} }

// Pack returns an asset pack source.
func Pack(path string) Source { return Source{Kind: SourcePack, Path: path} }

// Index is a read-only lookup table of asset documents keyed by id.
// Sources are applied in order; a later source wins on duplicate ids.
type Index struct {
	docs  map[uint32]*formats.AssetDocument
	cache *Cache
	log   *zap.Logger
}

// Option configures an Index.
type Option func(*Index)

// WithLogger sets the logger used while building the index.
func WithLogger(l *zap.Logger) Option {
	return func(i *Index) { i.log = l }
}

// WithCache sets the cache used for raw pack reads.
func WithCache(c *Cache) Option {
	return func(i *Index) { i.cache = c }
}

// NewIndex parses every document in sources. Unreadable sources are
// fatal; unparseable documents are logged and skipped.
func NewIndex(sources []Source, opts ...Option) (*Index, error) {
	idx := &Index{
		docs:  make(map[uint32]*formats.AssetDocument),
		cache: NewCache(),
	}
	for _, opt := range opts {
		opt(idx)
	}
	idx.log = logger.Or(idx.log).Named("assets")

	for _, src := range sources {
		var err error
		switch src.Kind {
		case SourceDir:
			err = idx.addDir(src.Path)
		case SourcePack:
			err = idx.addPack(src.Path)
		default:
			err = fmt.Errorf("unknown source kind %d", src.Kind)
		}
		if err != nil {
			return nil, fmt.Errorf("loading assets from %s: %w", src.Path, err)
		}
	}

	idx.log.Info("asset index built", zap.Int("documents", len(idx.docs)))
	return idx, nil
}

// Sources builds the source list for the given directories and packs,
// directories first.
func Sources(dirs, packs []string) []Source {
	sources := make([]Source, 0, len(dirs)+len(packs))
	for _, d := range dirs {
		sources = append(sources, Dir(d))
	}
	for _, p := range packs {
		sources = append(sources, Pack(p))
	}
	return sources
}

// Lookup returns the document for id.
func (i *Index) Lookup(id uint32) (*formats.AssetDocument, bool) {
	doc, ok := i.docs[id]
	return doc, ok
}

// Len returns the number of indexed documents.
func (i *Index) Len() int {
	return len(i.docs)
}

// IDs returns all indexed ids in ascending order.
func (i *Index) IDs() []uint32 {
	ids := make([]uint32, 0, len(i.docs))
	for id := range i.docs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(a, b int) bool { return ids[a] < ids[b] })
	return ids
}

// CacheStats returns hit and miss counts of the raw pack read cache.
func (i *Index) CacheStats() (hits, misses int) {
	return i.cache.Stats()
}

func (i *Index) addDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}

	var paths []string
	err = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), DocumentExt) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return err
	}
	sort.Strings(paths)

	for _, path := range paths {
		doc, err := formats.ParseAssetDocumentFile(path)
		if err != nil {
			i.log.Warn("skipping unparseable asset document", zap.String("path", path), zap.Error(err))
			continue
		}
		i.add(doc, path)
	}
	return nil
}

func (i *Index) addPack(path string) error {
	archive, err := pack.Open(path)
	if err != nil {
		return err
	}
	defer archive.Close()

	for _, name := range archive.List() {
		if filepath.Ext(name) != DocumentExt {
			continue
		}
		data, err := i.readPacked(archive, path, name)
		if err != nil {
			i.log.Warn("skipping unreadable pack entry", zap.String("pack", path), zap.String("entry", name), zap.Error(err))
			continue
		}
		doc, err := formats.ParseAssetDocument(data)
		if err != nil {
			i.log.Warn("skipping unparseable asset document", zap.String("pack", path), zap.String("entry", name), zap.Error(err))
			continue
		}
		i.add(doc, path+":"+name)
	}
	return nil
}

// readPacked reads a pack entry through the cache so repeated packs in
// the source list are only inflated once.
func (i *Index) readPacked(archive *pack.Archive, packPath, name string) ([]byte, error) {
	key := packPath + ":" + name
	if data, ok := i.cache.Get(key); ok {
		return data, nil
	}
	data, err := archive.Read(name)
	if err != nil {
		return nil, err
	}
	i.cache.Set(key, data)
	return data, nil
}

func (i *Index) add(doc *formats.AssetDocument, origin string) {
	if _, dup := i.docs[doc.ID]; dup {
		i.log.Warn("duplicate asset id, later source wins", logger.Asset(doc.ID), zap.String("source", origin))
	}
	i.docs[doc.ID] = doc
}

// Cache is a simple in-memory cache for raw asset bytes.
type Cache struct {
	data map[string][]byte
	mu   sync.RWMutex

	// Stats
	hits   int
	misses int
}

// NewCache creates a new cache.
func NewCache() *Cache {
	return &Cache{
		data: make(map[string][]byte),
	}
}

// Get retrieves an item from cache.
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, ok := c.data[key]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return data, ok
}

// Set stores an item in cache.
func (c *Cache) Set(key string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = data
}

// Clear clears the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[string][]byte)
	c.hits = 0
	c.misses = 0
}

// Stats returns cache statistics.
func (c *Cache) Stats() (hits, misses int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}
