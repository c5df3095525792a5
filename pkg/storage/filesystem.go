package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LocalStorage persists downloaded report PDFs and review exports on disk.
type LocalStorage struct {
	baseDir string
}

// NewLocalStorage ensures the base directory exists and returns a handle.
func NewLocalStorage(baseDir string) (*LocalStorage, error) {
	if baseDir == "" {
		baseDir = "./reports"
	}
	baseDir = filepath.Clean(baseDir)
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	return &LocalStorage{baseDir: baseDir}, nil
}

// Save writes the given bytes under the base dir. The filename is sanitized
// and, when it collides with an existing file, suffixed with a counter so a
// batch containing two same-named attachments never overwrites the first.
func (s *LocalStorage) Save(filename string, data []byte) (string, error) {
	name := SanitizeFilename(filename)
	path := filepath.Join(s.baseDir, name)

	if _, err := os.Stat(path); err == nil {
		ext := filepath.Ext(name)
		base := strings.TrimSuffix(name, ext)
		for counter := 1; ; counter++ {
			candidate := filepath.Join(s.baseDir, fmt.Sprintf("%s_%d%s", base, counter, ext))
			if _, err := os.Stat(candidate); os.IsNotExist(err) {
				path = candidate
				break
			}
		}
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return path, nil
}

// Read returns the stored file's bytes. It accepts either a bare filename
// or a path previously returned by Save.
func (s *LocalStorage) Read(path string) ([]byte, error) {
	data, err := os.ReadFile(s.resolve(path))
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return data, nil
}

// Path resolves a stored filename to its location under the base dir.
func (s *LocalStorage) Path(filename string) string {
	return s.resolve(filename)
}

// resolve joins bare filenames with the base dir while leaving absolute
// paths and paths already under the base dir alone, so the path Save
// returns stays readable even when the base dir is relative.
func (s *LocalStorage) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	clean := filepath.Clean(path)
	if clean == s.baseDir || strings.HasPrefix(clean, s.baseDir+string(filepath.Separator)) {
		return clean
	}
	return filepath.Join(s.baseDir, path)
}

// SanitizeFilename strips characters that are illegal on common filesystems
// and bounds the name length while preserving the extension.
func SanitizeFilename(filename string) string {
	const invalid = `<>:"|?*/\`
	cleaned := strings.Map(func(r rune) rune {
		if strings.ContainsRune(invalid, r) {
			return '_'
		}
		return r
	}, filename)
	cleaned = strings.Trim(cleaned, ". ")
	if cleaned == "" {
		cleaned = "attachment.pdf"
	}

	if len(cleaned) > 200 {
		ext := filepath.Ext(cleaned)
		base := strings.TrimSuffix(cleaned, ext)
		if len(base) > 200-len(ext) {
			base = base[:200-len(ext)]
		}
		cleaned = base + ext
	}
	return cleaned
}
