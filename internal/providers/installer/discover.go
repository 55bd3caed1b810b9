package installer

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

const (
	DefaultDiscoveryDepth = 5
	yieldEvery            = 64
)

// excludedWords mark helper binaries that are never the app itself
var excludedWords = []string{"uninstall", "uninst", "update", "helper", "crash"}

// Finder locates the launchable executable in an install root
type Finder struct {
	Ext      string
	MaxDepth int
}

// Candidate reports whether a file name qualifies as the app executable
func (f Finder) Candidate(name string) bool {
	lower := strings.ToLower(name)
	if !strings.HasSuffix(lower, strings.ToLower(f.Ext)) {
		return false
	}
	for _, word := range excludedWords {
		if strings.Contains(lower, word) {
			return false
		}
	}
	return true
}

// Find returns the first qualifying executable under root, or "" if none.
// A non-empty hint is a doublestar pattern relative to root and is tried
// first. Directories are scanned in lexical order: the files of a directory
// beat anything in its subdirectories, and subdirectories are searched
// depth-first up to MaxDepth levels below root.
func (f Finder) Find(ctx context.Context, root, hint string) (string, error) {
	if hint != "" {
		if path, ok := f.fromHint(root, hint); ok {
			return path, nil
		}
	}

	maxDepth := f.MaxDepth
	if maxDepth <= 0 {
		maxDepth = DefaultDiscoveryDepth
	}

	type frame struct {
		dir   string
		depth int
	}
	stack := []frame{{dir: root}}
	seen := 0

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		entries, err := os.ReadDir(top.dir)
		if err != nil {
			if top.dir == root {
				return "", err
			}
			continue
		}

		var subdirs []string
		for _, entry := range entries {
			if err := ctx.Err(); err != nil {
				return "", err
			}
			if seen++; seen%yieldEvery == 0 {
				runtime.Gosched()
			}

			if entry.IsDir() {
				subdirs = append(subdirs, filepath.Join(top.dir, entry.Name()))
				continue
			}
			if entry.Type().IsRegular() && f.Candidate(entry.Name()) {
				return filepath.Join(top.dir, entry.Name()), nil
			}
		}

		if top.depth >= maxDepth {
			continue
		}
		// Reverse push keeps the first subdirectory on top
		for i := len(subdirs) - 1; i >= 0; i-- {
			stack = append(stack, frame{dir: subdirs[i], depth: top.depth + 1})
		}
	}
	return "", nil
}

func (f Finder) fromHint(root, hint string) (string, bool) {
	matches, err := doublestar.Glob(os.DirFS(root), filepath.ToSlash(hint), doublestar.WithFilesOnly())
	if err != nil || len(matches) == 0 {
		return "", false
	}
	sort.Strings(matches)
	for _, m := range matches {
		path := filepath.Join(root, filepath.FromSlash(m))
		if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
			return path, true
		}
	}
	return "", false
}
