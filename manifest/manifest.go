// Package manifest handles classkit.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/chazu/classkit/classfile"
)

// FileName is the name of the project configuration file.
const FileName = "classkit.toml"

// Manifest represents a classkit.toml project configuration.
type Manifest struct {
	Project Project       `toml:"project"`
	Input   Input         `toml:"input"`
	Rewrite RewriteConfig `toml:"rewrite"`
	Output  OutputConfig  `toml:"output"`
	Catalog CatalogConfig `toml:"catalog"`
	Log     LogConfig     `toml:"log"`

	// Dir is the directory containing the classkit.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

// Input configures where class files are read from.
type Input struct {
	Dirs []string `toml:"dirs"`
	// Jobs bounds the number of class files processed at once; 0 means
	// one per CPU.
	Jobs int `toml:"jobs"`
}

// RewriteConfig selects what the writer recomputes when rewriting.
type RewriteConfig struct {
	Compute      string `toml:"compute"` // "nothing", "maxs" or "frames"
	SkipDebug    bool   `toml:"skip-debug"`
	ExpandFrames bool   `toml:"expand-frames"`
}

// OutputConfig configures rewritten class output.
type OutputConfig struct {
	Dir string `toml:"dir"`
}

// CatalogConfig configures the class catalog database.
type CatalogConfig struct {
	Path string `toml:"path"`
}

// LogConfig configures logging.
type LogConfig struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

// Load parses a classkit.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	m.applyDefaults()
	if _, err := m.WriterFlags(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &m, nil
}

// Default returns the configuration used when no classkit.toml exists,
// rooted at dir.
func Default(dir string) *Manifest {
	m := &Manifest{Dir: dir}
	m.applyDefaults()
	return m
}

func (m *Manifest) applyDefaults() {
	if len(m.Input.Dirs) == 0 {
		m.Input.Dirs = []string{"classes"}
	}
	if m.Rewrite.Compute == "" {
		m.Rewrite.Compute = "frames"
	}
	if m.Output.Dir == "" {
		m.Output.Dir = "out"
	}
	if m.Catalog.Path == "" {
		m.Catalog.Path = filepath.Join(".classkit", "catalog.db")
	}
}

// FindAndLoad walks up from startDir to find a classkit.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// InputDirPaths returns absolute paths for the configured input directories.
func (m *Manifest) InputDirPaths() []string {
	var paths []string
	for _, d := range m.Input.Dirs {
		paths = append(paths, m.resolve(d))
	}
	return paths
}

// OutputDirPath returns the absolute path of the output directory.
func (m *Manifest) OutputDirPath() string {
	return m.resolve(m.Output.Dir)
}

// CatalogPath returns the absolute path of the catalog database.
func (m *Manifest) CatalogPath() string {
	return m.resolve(m.Catalog.Path)
}

// DigestLockPath returns the path to .classkit/digests.toml.
func (m *Manifest) DigestLockPath() string {
	return filepath.Join(m.Dir, ".classkit", "digests.toml")
}

func (m *Manifest) resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(m.Dir, p)
}

// WriterFlags maps the rewrite compute mode to class writer flags.
func (m *Manifest) WriterFlags() (int, error) {
	switch m.Rewrite.Compute {
	case "nothing":
		return 0, nil
	case "maxs":
		return classfile.ComputeMaxs, nil
	case "frames", "":
		return classfile.ComputeFrames, nil
	default:
		return 0, fmt.Errorf("unknown rewrite compute mode %q (want nothing, maxs or frames)", m.Rewrite.Compute)
	}
}

// ReaderFlags returns the class reader flags for rewriting.
func (m *Manifest) ReaderFlags() int {
	var flags int
	if m.Rewrite.SkipDebug {
		flags |= classfile.SkipDebug
	}
	if m.Rewrite.ExpandFrames {
		flags |= classfile.ExpandFrames
	}
	return flags
}
