package server

import (
	"errors"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/clean-dependency-project/devserve/internal/config"
)

// DefaultDocument is served for directory requests.
const DefaultDocument = "index.html"

// Target is a request path that has been resolved to a regular file inside
// the root directory.
type Target struct {
	// Path is the requested file path joined onto the root, before symlink
	// resolution. Its extension decides the content type.
	Path string
	// Canonical is the fully resolved path that is actually opened.
	Canonical string
	Info      fs.FileInfo
}

// Resolver maps request paths onto files under a single root directory.
type Resolver struct {
	root      string
	canonical string
}

// NewResolver creates a resolver for the configured root.
func NewResolver(cfg config.ServerConfig) *Resolver {
	return &Resolver{root: cfg.Root(), canonical: cfg.CanonicalRoot()}
}

// Resolve decodes rawPath and returns the file it names. Failures are always
// *ResolutionError values.
func (r *Resolver) Resolve(rawPath string) (Target, error) {
	decoded, err := url.PathUnescape(rawPath)
	if err != nil {
		return Target{}, &ResolutionError{Kind: NotFound, Path: rawPath, Err: err}
	}
	if strings.ContainsRune(decoded, 0) {
		return Target{}, &ResolutionError{Kind: NotFound, Path: rawPath, Err: errors.New("path contains NUL byte")}
	}
	if decoded == "" || strings.HasSuffix(decoded, "/") {
		decoded += DefaultDocument
	}

	candidate := filepath.Join(r.root, filepath.FromSlash(decoded))
	canonical, err := r.contain(rawPath, candidate)
	if err != nil {
		return Target{}, err
	}

	info, err := os.Stat(canonical)
	if err != nil {
		return Target{}, &ResolutionError{Kind: NotFound, Path: rawPath, Err: err}
	}

	if info.IsDir() {
		candidate = filepath.Join(candidate, DefaultDocument)
		if canonical, err = r.contain(rawPath, candidate); err != nil {
			return Target{}, err
		}
		if info, err = os.Stat(canonical); err != nil {
			return Target{}, &ResolutionError{Kind: NotFound, Path: rawPath, Err: err}
		}
	}

	if !info.Mode().IsRegular() {
		return Target{}, &ResolutionError{Kind: NotFound, Path: rawPath, Err: errNotRegular}
	}

	return Target{Path: candidate, Canonical: canonical, Info: info}, nil
}

// contain canonicalizes candidate and rejects it unless it lies within the
// canonical root.
func (r *Resolver) contain(rawPath, candidate string) (string, error) {
	canonical, err := canonicalize(candidate)
	if err != nil {
		return "", &ResolutionError{Kind: NotFound, Path: rawPath, Err: err}
	}
	if !within(r.canonical, canonical) {
		return "", &ResolutionError{Kind: Forbidden, Path: rawPath, Err: errOutsideRoot}
	}
	return canonical, nil
}

// canonicalize resolves symlinks in path, which must be absolute and clean.
// When path cannot be resolved (missing, or a file used as a directory), the
// unresolved tail is appended verbatim to its deepest resolvable ancestor.
// The tail holds no "." or ".." elements, so the result still gets a
// meaningful containment check. The stat that follows rejects it anyway.
func canonicalize(path string) (string, error) {
	resolved, err := filepath.EvalSymlinks(path)
	if err == nil {
		return resolved, nil
	}

	var tail []string
	dir := path
	for {
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", err
		}
		tail = append(tail, filepath.Base(dir))
		dir = parent
		if resolved, perr := filepath.EvalSymlinks(dir); perr == nil {
			for i := len(tail) - 1; i >= 0; i-- {
				resolved = filepath.Join(resolved, tail[i])
			}
			return resolved, nil
		}
	}
}

// within reports whether path is base or a descendant of it. Both arguments
// must be canonical.
func within(base, path string) bool {
	rel, err := filepath.Rel(base, path)
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}
