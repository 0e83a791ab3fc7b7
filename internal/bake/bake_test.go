package bake

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/navbake/internal/buildcache"
	"github.com/Faultbox/navbake/internal/config"
	"github.com/Faultbox/navbake/internal/detour"
	"github.com/Faultbox/navbake/internal/geometry"
	"github.com/Faultbox/navbake/internal/navbuild"
	"github.com/Faultbox/navbake/pkg/formats"
)

type noAssets struct{}

func (noAssets) Lookup(uint32) (*formats.AssetDocument, bool) { return nil, false }

type assetMap map[uint32]*formats.AssetDocument

func (m assetMap) Lookup(id uint32) (*formats.AssetDocument, bool) {
	d, ok := m[id]
	return d, ok
}

type stubMesh []byte

func (m stubMesh) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(m)
	return int64(n), err
}

func (m stubMesh) PolyCount() int { return len(m) }

// stubBackend counts calls and fails or panics on chosen call numbers
// (1-based).
type stubBackend struct {
	calls   int
	fail    map[int]bool
	panicOn map[int]bool
}

func (b *stubBackend) Version() string { return "stub/1" }

func (b *stubBackend) Build(_ context.Context, soup *geometry.Soup, _ navbuild.Params) (navbuild.Mesh, error) {
	b.calls++
	if b.panicOn[b.calls] {
		panic("stub panic")
	}
	if b.fail[b.calls] {
		return nil, errors.New("stub failure")
	}
	return stubMesh([]byte{byte(soup.TriangleCount())}), nil
}

func whitebox(half [3]float32) formats.Entity {
	return formats.Entity{
		Kind:        formats.KindWhitebox,
		Name:        "floor",
		Mesh:        formats.FormatAssetRef(1),
		Navigation:  true,
		HalfExtents: half,
	}
}

func testBlock(id string, fingerprint uint64, entities ...formats.Entity) *formats.MapBlock {
	return &formats.MapBlock{ID: id, Entities: entities, Fingerprint: fingerprint}
}

type fixture struct {
	outDir string
	store  *buildcache.FileStore
	cache  *buildcache.Cache
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	store, err := buildcache.NewFileStore(filepath.Join(dir, "hash"))
	require.NoError(t, err)
	out := filepath.Join(dir, "navmesh")
	require.NoError(t, os.MkdirAll(out, 0o755))
	return &fixture{outDir: out, store: store, cache: buildcache.New(store, nil)}
}

func (f *fixture) orchestrator(b navbuild.Backend, opts ...Option) *Orchestrator {
	return NewOrchestrator(noAssets{}, b, navbuild.FromConfig(config.DefaultBuild()), f.cache, f.outDir, opts...)
}

func TestBakeSkipIdempotence(t *testing.T) {
	f := newFixture(t)
	backend := &stubBackend{}
	o := f.orchestrator(backend)
	block := testBlock("Prt_Fild01", 7, whitebox([3]float32{1, 1, 1}))

	first := o.Bake(context.Background(), block)
	require.NoError(t, first.Err)
	assert.Equal(t, StateSucceeded, first.State)
	assert.Equal(t, o.ArtifactPath("prt_fild01"), first.Artifact)
	assert.FileExists(t, filepath.Join(f.outDir, "prt_fild01.navmesh"))

	second := o.Bake(context.Background(), block)
	assert.Equal(t, StateSkip, second.State)
	assert.Equal(t, 1, backend.calls)

	// A changed export invalidates the record.
	block.Fingerprint = 8
	third := o.Bake(context.Background(), block)
	assert.Equal(t, StateSucceeded, third.State)
	assert.Equal(t, 2, backend.calls)
}

func TestBakeRebuildsWhenAssetChanges(t *testing.T) {
	f := newFixture(t)
	backend := &stubBackend{}
	parse := func(scale float32) *formats.AssetDocument {
		data, err := (&formats.AssetDocument{
			Version: formats.PXADVersion{Major: 1, Minor: 1},
			ID:      1,
			Props:   []formats.PhysicsProp{{WorldScale: scale}},
		}).MarshalBinary()
		require.NoError(t, err)
		doc, err := formats.ParseAssetDocument(data)
		require.NoError(t, err)
		return doc
	}
	assets := assetMap{1: parse(1)}
	o := NewOrchestrator(assets, backend, navbuild.FromConfig(config.DefaultBuild()), f.cache, f.outDir)
	block := testBlock("b1", 1, whitebox([3]float32{1, 1, 1}))

	before, err := o.Fingerprint(block)
	require.NoError(t, err)
	require.Equal(t, StateSucceeded, o.Bake(context.Background(), block).State)
	require.Equal(t, StateSkip, o.Bake(context.Background(), block).State)

	// Same export, new asset content.
	assets[1] = parse(2)
	after, err := o.Fingerprint(block)
	require.NoError(t, err)
	assert.NotEqual(t, before, after)
	assert.Equal(t, StateSucceeded, o.Bake(context.Background(), block).State)
	assert.Equal(t, 2, backend.calls)

	// A document that disappears also counts as a change.
	delete(assets, 1)
	assert.Equal(t, StateSucceeded, o.Bake(context.Background(), block).State)
	assert.Equal(t, 3, backend.calls)
}

func TestFingerprintIgnoresNonNavigationAssets(t *testing.T) {
	f := newFixture(t)
	assets := assetMap{}
	o := NewOrchestrator(assets, &stubBackend{}, navbuild.FromConfig(config.DefaultBuild()), f.cache, f.outDir)

	prop := whitebox([3]float32{1, 1, 1})
	prop.Navigation = false
	prop.Mesh = formats.FormatAssetRef(2)
	block := testBlock("b1", 1, whitebox([3]float32{1, 1, 1}), prop)

	before, err := o.Fingerprint(block)
	require.NoError(t, err)
	assets[2] = &formats.AssetDocument{ID: 2, Fingerprint: 42}
	after, err := o.Fingerprint(block)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestBakeRebuildsMissingArtifact(t *testing.T) {
	f := newFixture(t)
	backend := &stubBackend{}
	o := f.orchestrator(backend)
	block := testBlock("b1", 1, whitebox([3]float32{1, 1, 1}))

	require.Equal(t, StateSucceeded, o.Bake(context.Background(), block).State)
	require.NoError(t, os.Remove(o.ArtifactPath("b1")))

	res := o.Bake(context.Background(), block)
	assert.Equal(t, StateSucceeded, res.State)
	assert.Equal(t, 2, backend.calls)
	assert.FileExists(t, o.ArtifactPath("b1"))
}

func TestBakeForce(t *testing.T) {
	f := newFixture(t)
	backend := &stubBackend{}
	block := testBlock("b1", 1, whitebox([3]float32{1, 1, 1}))

	require.Equal(t, StateSucceeded, f.orchestrator(backend).Bake(context.Background(), block).State)
	res := f.orchestrator(backend, WithForce(true)).Bake(context.Background(), block)
	assert.Equal(t, StateSucceeded, res.State)
	assert.Equal(t, 2, backend.calls)
}

func TestBakeEmptyMap(t *testing.T) {
	f := newFixture(t)
	backend := &stubBackend{}
	o := f.orchestrator(backend)

	hidden := whitebox([3]float32{1, 1, 1})
	hidden.Navigation = false
	res := o.Bake(context.Background(), testBlock("empty", 1, hidden))

	assert.Equal(t, StateNoGeometry, res.State)
	assert.NoError(t, res.Err)
	assert.Zero(t, backend.calls)
	assert.Equal(t, 1, res.Stats.Rejected)
	assert.NoFileExists(t, o.ArtifactPath("empty"))
	r, err := f.store.Get(context.Background(), "empty")
	require.NoError(t, err)
	assert.Nil(t, r)
}

func TestBakeFailureWritesNothing(t *testing.T) {
	tests := []struct {
		name    string
		backend *stubBackend
		want    error
	}{
		{"error", &stubBackend{fail: map[int]bool{1: true}}, nil},
		{"panic", &stubBackend{panicOn: map[int]bool{1: true}}, ErrPanic},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			o := f.orchestrator(tt.backend)
			res := o.Bake(context.Background(), testBlock("b1", 1, whitebox([3]float32{1, 1, 1})))

			assert.Equal(t, StateFailed, res.State)
			require.Error(t, res.Err)
			if tt.want != nil {
				assert.ErrorIs(t, res.Err, tt.want)
			}
			assert.NoFileExists(t, o.ArtifactPath("b1"))
			entries, err := os.ReadDir(f.outDir)
			require.NoError(t, err)
			assert.Empty(t, entries)
			r, err := f.store.Get(context.Background(), "b1")
			require.NoError(t, err)
			assert.Nil(t, r)
		})
	}
}

func TestFingerprint(t *testing.T) {
	f := newFixture(t)
	o := f.orchestrator(&stubBackend{})
	block := testBlock("b1", 1)

	a, err := o.Fingerprint(block)
	require.NoError(t, err)
	b, err := o.Fingerprint(block)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	block.Fingerprint = 2
	c, err := o.Fingerprint(block)
	require.NoError(t, err)
	assert.NotEqual(t, a, c)

	p := navbuild.FromConfig(config.DefaultBuild())
	p.CellSize = 0.25
	other := NewOrchestrator(noAssets{}, &stubBackend{}, p, f.cache, f.outDir)
	d, err := other.Fingerprint(testBlock("b1", 1))
	require.NoError(t, err)
	assert.NotEqual(t, a, d)
}

func TestBakeRecastDeterministic(t *testing.T) {
	block := testBlock("town", 99, whitebox([3]float32{10, 10, 1}))

	bake := func() (artifact, sidecar []byte) {
		f := newFixture(t)
		o := f.orchestrator(navbuild.NewRecastBackend(nil))
		res := o.Bake(context.Background(), block)
		require.NoError(t, res.Err)
		require.Equal(t, StateSucceeded, res.State)
		assert.Greater(t, res.Polys, 0)

		artifact, err := os.ReadFile(res.Artifact)
		require.NoError(t, err)
		sidecar, err = os.ReadFile(f.store.Path(block.ID))
		require.NoError(t, err)
		return artifact, sidecar
	}

	a, sa := bake()
	b, sb := bake()
	assert.Equal(t, a, b)
	assert.Equal(t, sa, sb)

	nav, err := detour.ReadNavMeshSet(bytes.NewReader(a))
	require.NoError(t, err)
	s := nav.Stats()
	assert.Equal(t, s.Polys, s.Walk)
	assert.Zero(t, s.Swim)
}

type mapLoader map[string]*formats.MapBlock

func (m mapLoader) Load(id string) (*formats.MapBlock, error) {
	b, ok := m[id]
	if !ok {
		return nil, os.ErrNotExist
	}
	return b, nil
}

func TestBatchFailureIsolation(t *testing.T) {
	f := newFixture(t)
	backend := &stubBackend{fail: map[int]bool{2: true}}
	loader := mapLoader{
		"b1": testBlock("b1", 1, whitebox([3]float32{1, 1, 1})),
		"b2": testBlock("b2", 2, whitebox([3]float32{1, 1, 1})),
		"b3": testBlock("b3", 3, whitebox([3]float32{1, 1, 1})),
	}
	batch := NewBatch(f.orchestrator(backend), loader, nil)

	sum := batch.Run(context.Background(), []string{"b1", "b2", "b3", "missing"})
	assert.Equal(t, 4, sum.Total)
	assert.Equal(t, 2, sum.Count(StateSucceeded))
	assert.Equal(t, 2, sum.Count(StateFailed))
	assert.Equal(t, []string{"b2", "missing"}, sum.Failed)
	assert.False(t, sum.Cancelled)
	assert.Equal(t, 3, backend.calls)

	o := f.orchestrator(backend)
	assert.FileExists(t, o.ArtifactPath("b1"))
	assert.NoFileExists(t, o.ArtifactPath("b2"))
	assert.FileExists(t, o.ArtifactPath("b3"))

	// Only the failed block is rebuilt on the next run.
	sum = batch.Run(context.Background(), []string{"b1", "b2", "b3"})
	assert.Equal(t, 2, sum.Count(StateSkip))
	assert.Equal(t, 1, sum.Count(StateSucceeded))
	assert.Equal(t, 4, backend.calls)
}

func TestBatchCancelled(t *testing.T) {
	f := newFixture(t)
	backend := &stubBackend{}
	loader := mapLoader{"b1": testBlock("b1", 1, whitebox([3]float32{1, 1, 1}))}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sum := NewBatch(f.orchestrator(backend), loader, nil).Run(ctx, []string{"b1"})
	assert.True(t, sum.Cancelled)
	assert.Zero(t, sum.Total)
	assert.Zero(t, backend.calls)
}

func TestDirLoaderAndBlockIDs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b1.hjson"), []byte(`{
	# exported block
	id: b1
	entities: [
		{
			kind: whitebox
			name: wall
			mesh: "urn:llid:00000001"
			navigation: true
			half_extents: [1, 1, 1]
		}
	]
}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.hjson"), []byte(`{"id": "bad", "entities": [{"kind": "door"}]}`), 0o644))

	l := DirLoader{Dir: dir}
	block, err := l.Load("b1")
	require.NoError(t, err)
	assert.Equal(t, "b1", block.ID)
	assert.Len(t, block.Entities, 1)
	assert.NotZero(t, block.Fingerprint)

	_, err = l.Load("bad")
	assert.ErrorIs(t, err, formats.ErrUnknownEntityKind)

	meta := &formats.MapMetadata{Maps: []formats.MapInfo{
		{ID: 1, XBlock: "b1"}, {ID: 2, XBlock: "gone"}, {ID: 3, XBlock: "b1"}, {ID: 4, XBlock: "bad"},
	}}
	ids, missing := BlockIDs(meta, l)
	assert.Equal(t, []string{"b1", "bad"}, ids)
	assert.Equal(t, []string{"gone"}, missing)

	f := newFixture(t)
	sum := NewBatch(f.orchestrator(&stubBackend{}), l, nil).Run(context.Background(), ids)
	assert.Equal(t, 1, sum.Count(StateSucceeded))
	assert.Equal(t, []string{"bad"}, sum.Failed)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "skip", StateSkip.String())
	assert.Equal(t, "no-geometry", StateNoGeometry.String())
	assert.Equal(t, "failed", StateFailed.String())
	assert.Equal(t, "state(9)", State(9).String())
}
