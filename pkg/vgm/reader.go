package vgm

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"os"
)

var gzipMagic = []byte{0x1f, 0x8b}

// Read loads a VGM file and returns its flat byte image, transparently
// decompressing gzip-wrapped (.vgz) files.
func Read(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read VGM file: %w", err)
	}

	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: VGM file is empty: %s", ErrInvalidInput, path)
	}

	if !bytes.HasPrefix(raw, gzipMagic) {
		return raw, nil
	}

	zr, err := gzip.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to open gzip stream: %w", err)
	}
	defer zr.Close()

	data, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress VGM file: %w", err)
	}

	return data, nil
}
