package pack

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeTestPack builds a small pack in a temp dir and returns its path.
func writeTestPack(t *testing.T, files map[string][]byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.pak")
	w, err := Create(path)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	for name, data := range files {
		if err := w.Add(name, data); err != nil {
			t.Fatalf("Add(%q) error = %v", name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	return path
}

func TestRoundTrip(t *testing.T) {
	files := map[string][]byte{
		"assets/ground.pxad":       bytes.Repeat([]byte("PXAD"), 64),
		"assets/props/crate.pxad":  []byte("tiny"),
		"Assets\\Props\\Tree.PXAD": []byte("mixed case path"),
		"empty.pxad":               {},
	}
	path := writeTestPack(t, files)

	archive, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer archive.Close()

	want := []string{
		"assets/ground.pxad",
		"assets/props/crate.pxad",
		"assets/props/tree.pxad",
		"empty.pxad",
	}
	got := archive.List()
	if len(got) != len(want) {
		t.Fatalf("List() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("List()[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	for name, data := range files {
		read, err := archive.Read(name)
		if err != nil {
			t.Fatalf("Read(%q) error = %v", name, err)
		}
		if !bytes.Equal(read, data) {
			t.Errorf("Read(%q) = %q, want %q", name, read, data)
		}
	}
}

func TestCompressionFlags(t *testing.T) {
	path := writeTestPack(t, map[string][]byte{
		"big.bin":   bytes.Repeat([]byte{0}, 4096),
		"small.bin": []byte("ab"),
	})
	archive, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer archive.Close()

	big, ok := archive.Stat("big.bin")
	if !ok {
		t.Fatal("big.bin missing")
	}
	if big.Flags&FlagCompressed == 0 || big.CompressedSize >= big.UncompressedSize {
		t.Errorf("big.bin should be stored compressed, got flags 0x%x sizes %d/%d",
			big.Flags, big.CompressedSize, big.UncompressedSize)
	}

	small, _ := archive.Stat("small.bin")
	if small.Flags&FlagCompressed != 0 {
		t.Errorf("small.bin should be stored raw, got flags 0x%x", small.Flags)
	}
}

func TestContains(t *testing.T) {
	path := writeTestPack(t, map[string][]byte{"data/test.txt": []byte("hello")})
	archive, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer archive.Close()

	if !archive.Contains("data/test.txt") {
		t.Error("Contains returned false for existing file")
	}
	if !archive.Contains(strings.ToUpper("data\\test.txt")) {
		t.Error("Contains should normalize case and separators")
	}
	if archive.Contains("nonexistent/file/path.txt") {
		t.Error("Contains returned true for non-existent file")
	}

	_, err = archive.Read("nonexistent/file/path.txt")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Read(missing) error = %v, want ErrNotFound", err)
	}
}

func TestDeterministicOutput(t *testing.T) {
	files := map[string][]byte{
		"a.pxad": []byte("first"),
		"b.pxad": []byte("second"),
		"c.pxad": []byte("third"),
	}
	first, err := os.ReadFile(writeTestPack(t, files))
	if err != nil {
		t.Fatal(err)
	}
	second, err := os.ReadFile(writeTestPack(t, files))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(first, second) {
		t.Error("packing the same files twice produced different bytes")
	}
}

func TestOpenErrors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		data    []byte
		wantErr error
	}{
		{"empty file", nil, ErrInvalidMagic},
		{"wrong magic", append([]byte("Master of Magic"), make([]byte, 12)...), ErrInvalidMagic},
		{"wrong version", func() []byte {
			b := make([]byte, headerSize)
			copy(b, packMagic)
			b[23] = 0x02
			return b
		}(), ErrUnsupportedVersion},
		{"truncated table", func() []byte {
			b := make([]byte, headerSize)
			copy(b, packMagic)
			b[15] = headerSize
			b[24] = 0x01
			return b
		}(), ErrTruncatedTable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, strings.ReplaceAll(tt.name, " ", "_")+".pak")
			if err := os.WriteFile(path, tt.data, 0o644); err != nil {
				t.Fatal(err)
			}
			_, err := Open(path)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Open() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestWriterRejectsAfterClose(t *testing.T) {
	w, err := Create(filepath.Join(t.TempDir(), "closed.pak"))
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if err := w.Add("late.txt", []byte("x")); err == nil {
		t.Error("Add after Close should fail")
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}
