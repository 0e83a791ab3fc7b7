// Package bake drives navmesh builds: one map block at a time through
// extraction, the backend, the artifact writer and the build cache.
package bake

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"slices"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"

	"github.com/Faultbox/navbake/internal/buildcache"
	"github.com/Faultbox/navbake/internal/geometry"
	"github.com/Faultbox/navbake/internal/logger"
	"github.com/Faultbox/navbake/internal/navbuild"
	"github.com/Faultbox/navbake/pkg/formats"
)

// ArtifactExt is the extension of navmesh artifacts.
const ArtifactExt = ".navmesh"

// ErrPanic wraps a panic recovered while baking a block.
var ErrPanic = errors.New("panic during bake")

// State is the outcome of baking one block.
type State int

const (
	StateSkip State = iota
	StateNoGeometry
	StateBuilding
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateSkip:
		return "skip"
	case StateNoGeometry:
		return "no-geometry"
	case StateBuilding:
		return "building"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Result describes one bake.
type Result struct {
	BlockID  string
	State    State
	Elapsed  time.Duration
	Err      error
	Stats    geometry.Stats
	Polys    int
	Artifact string // Path written on success
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the orchestrator logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) { o.log = l }
}

// WithForce makes every bake ignore the build cache.
func WithForce(force bool) Option {
	return func(o *Orchestrator) { o.force = force }
}

// Orchestrator bakes single map blocks.
type Orchestrator struct {
	assets    geometry.Resolver
	extractor *geometry.Extractor
	backend   navbuild.Backend
	params    navbuild.Params
	cache     *buildcache.Cache
	outDir    string
	force     bool
	log       *zap.Logger
}

// NewOrchestrator wires the bake stages. Artifacts go to outDir, which must
// exist.
func NewOrchestrator(assets geometry.Resolver, backend navbuild.Backend, params navbuild.Params,
	cache *buildcache.Cache, outDir string, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		assets:  assets,
		backend: backend,
		params:  params,
		cache:   cache,
		outDir:  outDir,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.log = logger.Or(o.log).Named("bake")
	o.extractor = geometry.NewExtractor(assets, o.log)
	return o
}

// ArtifactPath returns where the navmesh of blockID is written.
func (o *Orchestrator) ArtifactPath(blockID string) string {
	return filepath.Join(o.outDir, strings.ToLower(blockID)+ArtifactExt)
}

// Fingerprint hashes the block export, the asset documents its navigation
// entities reference, the build parameters and the backend version.
func (o *Orchestrator) Fingerprint(block *formats.MapBlock) (uint64, error) {
	params, err := o.params.Fingerprint()
	if err != nil {
		return 0, fmt.Errorf("encoding params: %w", err)
	}
	var buf [12]byte
	binary.LittleEndian.PutUint64(buf[:8], block.Fingerprint)

	d := xxhash.New()
	_, _ = d.Write(buf[:8])
	for _, id := range assetIDs(block) {
		binary.LittleEndian.PutUint32(buf[:4], id)
		var fp uint64
		if doc, ok := o.assets.Lookup(id); ok {
			fp = doc.Fingerprint
		}
		binary.LittleEndian.PutUint64(buf[4:], fp)
		_, _ = d.Write(buf[:])
	}
	_, _ = d.Write(params)
	_, _ = d.WriteString(o.backend.Version())
	return d.Sum64(), nil
}

// assetIDs returns the sorted distinct asset ids referenced by navigation
// entities. Malformed references are left to the extractor.
func assetIDs(block *formats.MapBlock) []uint32 {
	var ids []uint32
	for i := range block.Entities {
		e := &block.Entities[i]
		if !e.Navigation {
			continue
		}
		if id, err := formats.ParseAssetRef(e.Mesh); err == nil {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return slices.Compact(ids)
}

// Bake runs one block to a terminal state. It never panics.
func (o *Orchestrator) Bake(ctx context.Context, block *formats.MapBlock) Result {
	start := time.Now()
	res := o.bake(ctx, block)
	res.BlockID = block.ID
	res.Elapsed = time.Since(start)

	if res.State == StateFailed {
		o.log.Error("bake failed", logger.Block(block.ID), logger.Elapsed(res.Elapsed), zap.Error(res.Err))
	}
	return res
}

func (o *Orchestrator) bake(ctx context.Context, block *formats.MapBlock) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			o.log.Debug("recovered panic", logger.Block(block.ID), zap.ByteString("stack", debug.Stack()))
			res.State = StateFailed
			res.Err = fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()

	hash, err := o.Fingerprint(block)
	if err != nil {
		return Result{State: StateFailed, Err: err}
	}

	if !o.force {
		ok, err := o.cache.Valid(ctx, block.ID, hash)
		if err != nil {
			return Result{State: StateFailed, Err: err}
		}
		if ok && o.artifactExists(block.ID) {
			return Result{State: StateSkip}
		}
	}

	soup := geometry.NewSoup()
	o.extractor.Reset()
	for i := range block.Entities {
		o.extractor.Extract(&block.Entities[i], soup)
	}
	res.Stats = o.extractor.Stats()

	if soup.Empty() {
		o.log.Info("no navigation geometry", logger.Block(block.ID), zap.Int("entities", len(block.Entities)))
		res.State = StateNoGeometry
		return res
	}

	res.State = StateBuilding
	o.log.Debug("building", append([]zap.Field{logger.Block(block.ID)}, res.Stats.Fields()...)...)

	mesh, err := o.backend.Build(ctx, soup, o.params)
	if err != nil {
		res.State = StateFailed
		res.Err = fmt.Errorf("build: %w", err)
		return res
	}
	res.Polys = mesh.PolyCount()

	path := o.ArtifactPath(block.ID)
	if err := writeArtifact(path, mesh); err != nil {
		res.State = StateFailed
		res.Err = fmt.Errorf("writing artifact: %w", err)
		return res
	}
	res.Artifact = path

	if err := o.cache.Commit(ctx, block.ID, hash); err != nil {
		res.State = StateFailed
		res.Err = err
		return res
	}
	res.State = StateSucceeded
	return res
}

func (o *Orchestrator) artifactExists(blockID string) bool {
	_, err := os.Stat(o.ArtifactPath(blockID))
	if err != nil {
		o.log.Debug("artifact missing, rebuilding", logger.Block(blockID), zap.Error(err))
		return false
	}
	return true
}

// writeArtifact streams mesh to a temp file in the artifact directory,
// syncs it and renames it over path.
func writeArtifact(path string, mesh navbuild.Mesh) error {
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	fail := func(err error) error {
		f.Close()
		os.Remove(tmp)
		return err
	}

	if _, err := mesh.WriteTo(f); err != nil {
		return fail(err)
	}
	if err := f.Sync(); err != nil {
		return fail(err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
