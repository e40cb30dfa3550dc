// Package scan extracts cross-module references from Go source trees.
// It is the static-analysis pass behind the dependency validator: module
// code referencing another module does so through an import under a shared
// prefix, e.g. "example.com/modules/Media/gallery".
package scan

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/fazaimron27/tooldock/ports"
)

// Scanner parses Go files under a module root and reports which other
// modules their imports reference.
type Scanner struct {
	// importPrefix is the shared import path prefix under which modules
	// live; the path segment after it is the module name.
	importPrefix string
}

// New creates a scanner for the given module import prefix.
func New(importPrefix string) *Scanner {
	return &Scanner{importPrefix: strings.TrimSuffix(importPrefix, "/") + "/"}
}

// Scan walks the module's Go source files and returns the names of other
// modules referenced by imports, excluding selfName. Results are sorted and
// deduplicated; names keep the casing used in the import path.
func (s *Scanner) Scan(ctx context.Context, root, selfName string) ([]string, error) {
	refs := make(map[string]string) // lowercased -> as-written
	fset := token.NewFileSet()

	err := walkSources(root, func(path string) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		// Imports only; function bodies are irrelevant and expensive.
		file, err := parser.ParseFile(fset, path, nil, parser.ImportsOnly)
		if err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}

		for _, imp := range file.Imports {
			importPath, err := strconv.Unquote(imp.Path.Value)
			if err != nil {
				continue
			}
			name, ok := s.moduleOf(importPath)
			if !ok || strings.EqualFold(name, selfName) {
				continue
			}
			refs[strings.ToLower(name)] = name
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := make([]string, 0, len(refs))
	for _, name := range refs {
		result = append(result, name)
	}
	sort.Strings(result)
	return result, nil
}

// Fingerprint hashes (path, mtime, size) over every Go source file under
// root. Unchanged trees fingerprint identically, so scan results can be
// cached without re-reading file contents.
func (s *Scanner) Fingerprint(root string) (string, error) {
	h := sha256.New()

	var lines []string
	err := walkSources(root, func(path string) error {
		info, err := os.Stat(path)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = path
		}
		lines = append(lines, fmt.Sprintf("%s|%d|%d", rel, info.ModTime().UnixNano(), info.Size()))
		return nil
	})
	if err != nil {
		return "", err
	}

	sort.Strings(lines)
	for _, line := range lines {
		fmt.Fprintln(h, line)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// moduleOf extracts the module name from an import path under the prefix.
func (s *Scanner) moduleOf(importPath string) (string, bool) {
	if !strings.HasPrefix(importPath, s.importPrefix) {
		return "", false
	}
	rest := strings.TrimPrefix(importPath, s.importPrefix)
	if idx := strings.Index(rest, "/"); idx >= 0 {
		rest = rest[:idx]
	}
	if rest == "" {
		return "", false
	}
	return rest, true
}

// walkSources visits every .go file under root, skipping hidden directories,
// testdata and vendor trees. A missing root yields no visits.
func walkSources(root string, visit func(path string) error) error {
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (strings.HasPrefix(name, ".") || name == "vendor" || name == "testdata") {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(d.Name(), ".go") {
			return nil
		}
		return visit(path)
	})
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Ensure interface compliance.
var _ ports.SourceScanner = (*Scanner)(nil)
