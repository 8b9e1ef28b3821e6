package archive

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
)

const ext = ".json.zst"

// Store compresses data into dir/{id}.json.zst and returns the archive path.
// An existing archive for the same id is replaced.
func Store(dir, id string, data []byte) (string, error) {
	if id == "" || strings.ContainsAny(id, `/\`) {
		return "", fmt.Errorf("invalid archive id %q", id)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create archive dir: %w", err)
	}

	destPath := Path(id, dir)
	tmp, err := os.CreateTemp(dir, ".tmp-*"+ext)
	if err != nil {
		return "", fmt.Errorf("create archive: %w", err)
	}

	encoder, err := zstd.NewWriter(tmp)
	if err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("create zstd encoder: %w", err)
	}

	if _, err := io.Copy(encoder, bytes.NewReader(data)); err != nil {
		encoder.Close()
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("compress: %w", err)
	}

	if err := encoder.Close(); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("finalize compression: %w", err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("close archive: %w", err)
	}

	if err := os.Rename(tmp.Name(), destPath); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("rename archive: %w", err)
	}

	return destPath, nil
}

// Load decompresses the archive at path.
func Load(path string) ([]byte, error) {
	src, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	defer src.Close()

	decoder, err := zstd.NewReader(src)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	defer decoder.Close()

	data, err := io.ReadAll(decoder)
	if err != nil {
		return nil, fmt.Errorf("decompress: %w", err)
	}
	return data, nil
}

// Exists returns true if an archive file exists for the given id.
func Exists(id, dir string) bool {
	_, err := os.Stat(Path(id, dir))
	return err == nil
}

// Path returns the deterministic archive path for an id.
func Path(id, dir string) string {
	return filepath.Join(dir, id+ext)
}

// ID extracts the id from an archive path, or "" if path is not an archive.
func ID(path string) string {
	base := filepath.Base(path)
	if strings.HasSuffix(base, ext) {
		return strings.TrimSuffix(base, ext)
	}
	return ""
}
