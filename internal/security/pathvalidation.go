package security

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ValidatePathWithinDirectory checks that filePath resolves inside safeDir,
// following symlinks on whatever prefix of either path already exists.
func ValidatePathWithinDirectory(filePath, safeDir string) error {
	absPath, err := filepath.Abs(filepath.Clean(filePath))
	if err != nil {
		return fmt.Errorf("failed to resolve absolute path: %w", err)
	}
	absSafeDir, err := filepath.Abs(safeDir)
	if err != nil {
		return fmt.Errorf("failed to resolve safe directory path: %w", err)
	}

	// The safe directory may not exist yet; it is created after validation.
	relPath, err := filepath.Rel(canonicalize(absSafeDir), canonicalize(absPath))
	if err != nil {
		return fmt.Errorf("path is outside safe directory: %w", err)
	}
	if relPath == ".." || strings.HasPrefix(relPath, ".."+string(filepath.Separator)) || filepath.IsAbs(relPath) {
		return fmt.Errorf("path traversal detected: %s attempts to escape %s", filePath, safeDir)
	}
	return nil
}

// canonicalize resolves symlinks on the longest existing prefix of an
// absolute path. Output files usually do not exist yet, but a symlinked
// parent must still be resolved.
func canonicalize(absPath string) string {
	if resolved, err := filepath.EvalSymlinks(absPath); err == nil {
		return resolved
	}
	for dir := filepath.Dir(absPath); ; dir = filepath.Dir(dir) {
		if resolved, err := filepath.EvalSymlinks(dir); err == nil {
			rel, _ := filepath.Rel(dir, absPath)
			return filepath.Join(resolved, rel)
		}
		if parent := filepath.Dir(dir); parent == dir {
			return absPath
		}
	}
}

// ConfinedPath joins a sanitized name onto dir and verifies the result
// stays inside dir.
func ConfinedPath(dir, name string) (string, error) {
	p := filepath.Join(dir, SanitizeFilename(name))
	if err := ValidatePathWithinDirectory(p, dir); err != nil {
		return "", err
	}
	return p, nil
}

// SanitizeFilename makes a safe filename from an arbitrary string. Anything
// other than ASCII letters, digits, dot, underscore or dash becomes a single
// underscore, the result is capped at 128 bytes and leading/trailing dots
// and underscores are trimmed.
func SanitizeFilename(s string) string {
	const maxLen = 128
	var b strings.Builder
	lastUnderscore := false
	for _, r := range s {
		if b.Len() >= maxLen {
			break
		}
		switch {
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'),
			r == '.', r == '_', r == '-':
			b.WriteRune(r)
			lastUnderscore = r == '_'
		default:
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	out := strings.Trim(b.String(), "._")
	if out == "" {
		return "unknown"
	}
	return out
}
