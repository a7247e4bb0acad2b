package index

import (
	"fmt"
	"path"
	"strings"

	"github.com/starford/ansuz/internal/apperr"
)

// NormalizePath brings a vault path into canonical form: forward slashes,
// no leading "./", no empty or escaping segments. It returns
// apperr.ErrInvalidPath for anything that cannot name a vault entry.
func NormalizePath(p string) (string, error) {
	s := strings.ReplaceAll(strings.TrimSpace(p), "\\", "/")
	if s == "" {
		return "", fmt.Errorf("index: empty path: %w", apperr.ErrInvalidPath)
	}
	if strings.HasPrefix(s, "/") {
		return "", fmt.Errorf("index: absolute path %q: %w", p, apperr.ErrInvalidPath)
	}
	cleaned := path.Clean(s)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("index: path %q escapes vault: %w", p, apperr.ErrInvalidPath)
	}
	return cleaned, nil
}
