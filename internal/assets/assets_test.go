package assets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Faultbox/navbake/pkg/formats"
	"github.com/Faultbox/navbake/pkg/pack"
)

func encodeDoc(t *testing.T, id uint32, scale float32) []byte {
	t.Helper()
	data, err := (&formats.AssetDocument{
		ID:    id,
		Props: []formats.PhysicsProp{{WorldScale: scale}},
	}).MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestNewIndexFromDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.pxad"), encodeDoc(t, 1, 1))
	writeFile(t, filepath.Join(dir, "nested", "B.PXAD"), encodeDoc(t, 2, 1))
	writeFile(t, filepath.Join(dir, "broken.pxad"), []byte("not a document"))
	writeFile(t, filepath.Join(dir, "readme.txt"), []byte("ignored"))

	idx, err := NewIndex([]Source{Dir(dir)})
	if err != nil {
		t.Fatalf("NewIndex() error = %v", err)
	}

	if idx.Len() != 2 {
		t.Errorf("Len() = %d, want 2", idx.Len())
	}
	for _, id := range []uint32{1, 2} {
		if _, ok := idx.Lookup(id); !ok {
			t.Errorf("Lookup(%d) missing", id)
		}
	}
	if _, ok := idx.Lookup(3); ok {
		t.Error("Lookup(3) should miss")
	}
	if ids := idx.IDs(); len(ids) != 2 || ids[0] != 1 || ids[1] != 2 {
		t.Errorf("IDs() = %v", ids)
	}
}

func TestNewIndexLaterSourceWins(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "crate.pxad"), encodeDoc(t, 7, 1))

	pakPath := filepath.Join(t.TempDir(), "override.pak")
	w, err := pack.Create(pakPath)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Add("props/crate.pxad", encodeDoc(t, 7, 3)); err != nil {
		t.Fatal(err)
	}
	if err := w.Add("props/extra.pxad", encodeDoc(t, 8, 1)); err != nil {
		t.Fatal(err)
	}
	if err := w.Add("props/notes.txt", []byte("skip me")); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	idx, err := NewIndex(Sources([]string{dir}, []string{pakPath}))
	if err != nil {
		t.Fatalf("NewIndex() error = %v", err)
	}

	doc, ok := idx.Lookup(7)
	if !ok {
		t.Fatal("Lookup(7) missing")
	}
	if doc.Props[0].WorldScale != 3 {
		t.Errorf("duplicate id should resolve to the pack copy, got scale %v", doc.Props[0].WorldScale)
	}
	if idx.Len() != 2 {
		t.Errorf("Len() = %d, want 2", idx.Len())
	}
}

func TestNewIndexPackReadsAreCached(t *testing.T) {
	pakPath := filepath.Join(t.TempDir(), "base.pak")
	w, err := pack.Create(pakPath)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Add("a.pxad", encodeDoc(t, 1, 1)); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	idx, err := NewIndex([]Source{Pack(pakPath), Pack(pakPath)})
	if err != nil {
		t.Fatalf("NewIndex() error = %v", err)
	}
	hits, misses := idx.CacheStats()
	if hits != 1 || misses != 1 {
		t.Errorf("CacheStats() = %d hits, %d misses, want 1, 1", hits, misses)
	}
}

func TestNewIndexUnreadableSource(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing")

	tests := []struct {
		name   string
		source Source
	}{
		{"missing dir", Dir(missing)},
		{"missing pack", Pack(missing + ".pak")},
		{"file as dir", Dir(writeTemp(t))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewIndex([]Source{tt.source}); err == nil {
				t.Error("expected error for unreadable source")
			}
		})
	}
}

func writeTemp(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "file.pxad")
	writeFile(t, path, []byte("x"))
	return path
}

func TestCache(t *testing.T) {
	c := NewCache()
	if _, ok := c.Get("k"); ok {
		t.Error("empty cache should miss")
	}
	c.Set("k", []byte("v"))
	if data, ok := c.Get("k"); !ok || string(data) != "v" {
		t.Errorf("Get() = %q, %v", data, ok)
	}
	if hits, misses := c.Stats(); hits != 1 || misses != 1 {
		t.Errorf("Stats() = %d, %d", hits, misses)
	}
	c.Clear()
	if hits, misses := c.Stats(); hits != 0 || misses != 0 {
		t.Errorf("Stats() after Clear = %d, %d", hits, misses)
	}
}
