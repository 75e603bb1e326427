package importer

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// NewReader wraps r in a streaming decompressor for the named encoding:
// zstd, lz4, or empty/identity for none.
func NewReader(r io.Reader, encoding string) (io.ReadCloser, error) {
	switch encoding {
	case "", "identity", "none":
		return io.NopCloser(r), nil
	case "zstd":
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("zstd reader: %w", err)
		}
		return dec.IOReadCloser(), nil
	case "lz4":
		return io.NopCloser(lz4.NewReader(r)), nil
	}
	return nil, fmt.Errorf("unsupported encoding %q", encoding)
}

// openFile opens path and, for .zst and .lz4 files, wraps it in a
// streaming decompressor.
func openFile(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	encoding := ""
	switch {
	case strings.HasSuffix(path, ".zst"):
		encoding = "zstd"
	case strings.HasSuffix(path, ".lz4"):
		encoding = "lz4"
	}
	r, err := NewReader(f, encoding)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &file{ReadCloser: r, f: f}, nil
}

// file closes both the decompressor and the underlying file.
type file struct {
	io.ReadCloser
	f *os.File
}

func (f *file) Close() error {
	f.ReadCloser.Close()
	return f.f.Close()
}
