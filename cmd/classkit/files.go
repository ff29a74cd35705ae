package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"
)

// classFile is a class file found under one of the input paths. Rel is its
// path relative to that input, used to lay out rewritten output.
type classFile struct {
	Path string
	Rel  string
}

// findClassFiles expands files and directories into class files, sorted by
// path. Directories are searched recursively.
func findClassFiles(paths []string) ([]classFile, error) {
	var files []classFile
	seen := make(map[string]bool)
	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			if !seen[root] {
				seen[root] = true
				files = append(files, classFile{Path: root, Rel: filepath.Base(root)})
			}
			continue
		}
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !strings.HasSuffix(path, ".class") || seen[path] {
				return nil
			}
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}
			seen[path] = true
			files = append(files, classFile{Path: path, Rel: rel})
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

// process runs fn on every file with at most jobs files in flight and
// returns the results in file order. Each file is handled by a single
// goroutine from start to finish. The first error cancels the rest.
func process[T any](ctx context.Context, files []classFile, jobs int, fn func(ctx context.Context, f classFile, b []byte) (T, error)) ([]T, error) {
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	results := make([]T, len(files))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, f := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			b, err := os.ReadFile(f.Path)
			if err != nil {
				return err
			}
			r, err := fn(ctx, f, b)
			if err != nil {
				return fmt.Errorf("%s: %w", f.Path, err)
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	log.Debugf("processed %d class files with %d jobs", len(files), jobs)
	return results, nil
}
