// Package loader discovers T-SQL definition files on disk and turns them
// into lineage definitions.
package loader

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/leapstack-labs/sqllineage/pkg/lineage"
)

// ErrNoDefinitions is returned when the given paths hold no definition files.
var ErrNoDefinitions = errors.New("no definition files found")

// Options controls discovery.
type Options struct {
	// Extensions are the file extensions treated as definitions, with the dot.
	Extensions []string
	// Exclude holds filepath.Match patterns checked against the path relative
	// to the walked root and against each directory or file name.
	Exclude []string
	Logger  *slog.Logger
}

// File is a definition loaded from disk.
type File struct {
	Path        string
	Frontmatter *Frontmatter
	Definition  lineage.Definition
}

// Discover returns the definition files under paths. Files named directly
// are kept whatever their extension. Directories are walked in lexical order
// and hidden entries are skipped. The result has no duplicates and keeps the
// order of paths.
func Discover(paths []string, opts Options) ([]string, error) {
	if len(opts.Extensions) == 0 {
		opts.Extensions = []string{".sql"}
	}

	var files []string
	seen := make(map[string]bool)
	add := func(path string) {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
		if !seen[path] {
			seen[path] = true
			files = append(files, path)
		}
	}

	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", root, err)
		}
		if !info.IsDir() {
			add(root)
			continue
		}

		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if path == root {
				return nil
			}
			rel, _ := filepath.Rel(root, path)
			if isHidden(d.Name()) || excluded(rel, d.Name(), opts.Exclude) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() || !hasExtension(d.Name(), opts.Extensions) {
				return nil
			}
			add(path)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", root, err)
		}
	}
	return files, nil
}

// Load discovers and reads the definition files under paths. A file whose
// frontmatter sets skip is left out.
func Load(paths []string, opts Options) ([]File, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	found, err := Discover(paths, opts)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoDefinitions, strings.Join(paths, ", "))
	}

	files := make([]File, 0, len(found))
	for _, path := range found {
		f, err := ReadFile(path)
		if err != nil {
			return nil, err
		}
		if f.Frontmatter.Skip {
			logger.Debug("skipping definition", slog.String("path", path))
			continue
		}
		files = append(files, f)
	}
	logger.Debug("definitions loaded", slog.Int("files", len(files)))
	return files, nil
}

// ReadFile reads one definition file.
func ReadFile(path string) (File, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("read definition: %w", err)
	}

	fm, err := ExtractFrontmatter(string(content))
	if err != nil {
		return File{}, withFile(err, path)
	}
	fm.Config.ApplyDefaults(filepath.Base(path))

	return File{
		Path:        path,
		Frontmatter: fm.Config,
		Definition: lineage.Definition{
			Name:          fm.Config.Name,
			SQL:           string(content),
			DefaultSchema: fm.Config.DefaultSchema,
		},
	}, nil
}

// Definitions returns the lineage definitions of files, in order.
func Definitions(files []File) []lineage.Definition {
	defs := make([]lineage.Definition, len(files))
	for i, f := range files {
		defs[i] = f.Definition
	}
	return defs
}

func withFile(err error, path string) error {
	var parseErr *FrontmatterParseError
	if errors.As(err, &parseErr) {
		parseErr.File = path
		return parseErr
	}
	var fieldErr *UnknownFieldError
	if errors.As(err, &fieldErr) {
		fieldErr.File = path
		return fieldErr
	}
	return fmt.Errorf("%s: %w", path, err)
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}

func hasExtension(name string, extensions []string) bool {
	ext := filepath.Ext(name)
	return slices.ContainsFunc(extensions, func(e string) bool {
		return strings.EqualFold(e, ext)
	})
}

func excluded(rel, name string, patterns []string) bool {
	rel = filepath.ToSlash(rel)
	for _, p := range patterns {
		if ok, _ := filepath.Match(p, rel); ok {
			return true
		}
		if ok, _ := filepath.Match(p, name); ok {
			return true
		}
	}
	return false
}
