package dataset

import (
	"bytes"
	"compress/bzip2"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ulikunitz/xz"
)

type compressionType string

const (
	compressionNone  compressionType = ""
	compressionGzip  compressionType = "gzip"
	compressionBzip2 compressionType = "bzip2"
	compressionXZ    compressionType = "xz"
)

var compressionExtensions = map[string]compressionType{
	".gz":  compressionGzip,
	".bz2": compressionBzip2,
	".xz":  compressionXZ,
}

var (
	gzipMagic  = []byte{0x1f, 0x8b}
	bzip2Magic = []byte{0x42, 0x5a, 0x68}
	xzMagic    = []byte{0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00}
)

// detectCompression checks the filename extension first and falls back to
// sniffing magic bytes, so a mislabelled file still loads.
func detectCompression(path string) (compressionType, error) {
	if ct, ok := compressionExtensions[strings.ToLower(filepath.Ext(path))]; ok {
		return ct, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return compressionNone, err
	}
	defer f.Close()

	// XZ has the longest magic (6 bytes).
	header := make([]byte, 6)
	n, err := io.ReadFull(f, header)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return compressionNone, err
	}
	header = header[:n]

	switch {
	case n >= 2 && bytes.HasPrefix(header, gzipMagic):
		return compressionGzip, nil
	case n >= 3 && bytes.HasPrefix(header, bzip2Magic):
		return compressionBzip2, nil
	case n >= 6 && bytes.HasPrefix(header, xzMagic):
		return compressionXZ, nil
	}
	return compressionNone, nil
}

type decompressingReadCloser struct {
	reader io.Reader
	file   *os.File
}

func (d *decompressingReadCloser) Read(p []byte) (int, error) { return d.reader.Read(p) }

func (d *decompressingReadCloser) Close() error {
	if c, ok := d.reader.(io.Closer); ok {
		c.Close()
	}
	return d.file.Close()
}

// openMaybeCompressed opens path and transparently decompresses gzip, bzip2
// and xz payloads. Plain files are returned as-is.
func openMaybeCompressed(path string) (io.ReadCloser, error) {
	ct, err := detectCompression(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	switch ct {
	case compressionGzip:
		gzReader, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		return &decompressingReadCloser{reader: gzReader, file: f}, nil
	case compressionBzip2:
		return &decompressingReadCloser{reader: bzip2.NewReader(f), file: f}, nil
	case compressionXZ:
		xzReader, err := xz.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to create xz reader: %w", err)
		}
		return &decompressingReadCloser{reader: xzReader, file: f}, nil
	default:
		return f, nil
	}
}

// stripCompressionExt removes a trailing compression suffix so the format
// extension underneath (".csv" in "data.csv.gz") is visible again.
func stripCompressionExt(path string) string {
	if _, ok := compressionExtensions[strings.ToLower(filepath.Ext(path))]; ok {
		return strings.TrimSuffix(path, filepath.Ext(path))
	}
	return path
}
