package pack

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
)

// Writer builds an asset pack. Entries are written in name order on Close
// so the same inputs always produce the same file.
type Writer struct {
	file    *os.File
	entries map[string][]byte
	closed  bool
}

// Create creates a new pack at path, truncating any existing file.
func Create(path string) (*Writer, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating file: %w", err)
	}
	return &Writer{
		file:    file,
		entries: make(map[string][]byte),
	}, nil
}

// Add stages a file. A later Add with the same normalized name replaces it.
func (w *Writer) Add(name string, data []byte) error {
	if w.closed {
		return errors.New("pack writer is closed")
	}
	if name == "" {
		return errors.New("empty entry name")
	}
	w.entries[normalizePath(name)] = data
	return nil
}

// Close writes all staged files and the file table, then closes the file.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	err := w.flush()
	if cerr := w.file.Close(); err == nil {
		err = cerr
	}
	return err
}

func (w *Writer) flush() error {
	names := make([]string, 0, len(w.entries))
	for name := range w.entries {
		names = append(names, name)
	}
	sort.Strings(names)

	// Reserve the header; it is rewritten once the table offset is known.
	if _, err := w.file.Write(make([]byte, headerSize)); err != nil {
		return err
	}
	offset := uint32(headerSize)

	var table bytes.Buffer
	for _, name := range names {
		data := w.entries[name]
		stored, flags, err := compress(data)
		if err != nil {
			return fmt.Errorf("compressing %s: %w", name, err)
		}
		if _, err := w.file.Write(stored); err != nil {
			return err
		}

		table.WriteString(name)
		table.WriteByte(0)
		var rec [13]byte
		binary.LittleEndian.PutUint32(rec[0:], uint32(len(stored)))
		binary.LittleEndian.PutUint32(rec[4:], uint32(len(data)))
		rec[8] = flags
		binary.LittleEndian.PutUint32(rec[9:], offset)
		table.Write(rec[:])

		offset += uint32(len(stored))
	}

	compressedTable, err := deflate(table.Bytes())
	if err != nil {
		return fmt.Errorf("compressing file table: %w", err)
	}
	if err := binary.Write(w.file, binary.LittleEndian, uint32(len(compressedTable))); err != nil {
		return err
	}
	if err := binary.Write(w.file, binary.LittleEndian, uint32(table.Len())); err != nil {
		return err
	}
	if _, err := w.file.Write(compressedTable); err != nil {
		return err
	}

	header := Header{
		TableOffset: offset,
		FileCount:   uint32(len(names)),
		Version:     packVersion,
	}
	copy(header.Magic[:], packMagic)
	if _, err := w.file.Seek(0, io.SeekStart); err != nil {
		return err
	}
	return binary.Write(w.file, binary.LittleEndian, &header)
}

// compress deflates data and falls back to storing it raw when that is smaller.
func compress(data []byte) ([]byte, uint8, error) {
	deflated, err := deflate(data)
	if err != nil {
		return nil, 0, err
	}
	if len(deflated) >= len(data) {
		return data, FlagFile, nil
	}
	return deflated, FlagFile | FlagCompressed, nil
}

func deflate(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
