package local

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gostratum/diskx"
)

// Resolver maps caller paths onto a root directory and rejects anything that
// would land outside of it.
type Resolver struct {
	root string
}

// NewResolver creates a Resolver for an absolute, cleaned root
func NewResolver(root string) *Resolver {
	return &Resolver{root: root}
}

// Root returns the root directory
func (r *Resolver) Root() string {
	return r.root
}

// Clean normalizes p, collapsing "." and ".." segments. The result is
// rejected if it is absolute or still climbs above the root.
func Clean(p string) (string, error) {
	if strings.ContainsRune(p, 0) {
		return "", fmt.Errorf("path contains NUL byte")
	}

	cleaned := filepath.Clean(filepath.FromSlash(p))
	if filepath.IsAbs(cleaned) || filepath.VolumeName(cleaned) != "" || strings.HasPrefix(filepath.ToSlash(cleaned), "/") {
		return "", fmt.Errorf("absolute path not allowed")
	}

	parent := ".." + string(filepath.Separator)
	if cleaned == ".." || strings.HasPrefix(cleaned, parent) {
		return "", fmt.Errorf("path escapes the disk root")
	}

	return cleaned, nil
}

// Resolve returns the absolute filesystem path for p. It never touches the
// filesystem; op is only used to label the error.
func (r *Resolver) Resolve(op, p string) (string, error) {
	cleaned, err := Clean(p)
	if err != nil {
		return "", diskx.NewError(op, p, diskx.ErrPathRejected, err)
	}
	return filepath.Join(r.root, cleaned), nil
}

// Relative converts an absolute path below the root back into a
// slash-separated disk path.
func (r *Resolver) Relative(full string) (string, error) {
	rel, err := filepath.Rel(r.root, full)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}
