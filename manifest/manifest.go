// Package manifest loads declarative suites: files that describe hooks and
// tests as shell commands so they can be registered without writing Go.
package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/ethereum/go-ethereum/log"
	"gopkg.in/yaml.v3"

	"github.com/ethereum-optimism/infra/op-harness/types"
)

// Format is the encoding of a manifest file
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatFromPath picks the format from the file extension
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return "", fmt.Errorf("unsupported manifest extension %q (want .yaml, .yml or .toml)", filepath.Ext(path))
	}
}

// Manifest is a named suite of command declarations
type Manifest struct {
	Name    string            `yaml:"name" toml:"name"`
	WorkDir string            `yaml:"workdir" toml:"workdir"`
	Env     map[string]string `yaml:"env" toml:"env"`
	Entries []Entry           `yaml:"declarations" toml:"declarations"`
}

// Entry describes one hook or test
type Entry struct {
	Title  string `yaml:"title" toml:"title"`
	Type   string `yaml:"type" toml:"type"`
	Serial bool   `yaml:"serial" toml:"serial"`
	Only   bool   `yaml:"only" toml:"only"`
	Skip   bool   `yaml:"skip" toml:"skip"`
	Run    string `yaml:"run" toml:"run"`
}

// Load reads and validates the manifest at path. A relative workdir is
// resolved against the directory holding the manifest.
func Load(path string) (*Manifest, error) {
	log.Debug("Reading manifest file", "path", path)

	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest file: %w", err)
	}

	m, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path for manifest '%s': %w", path, err)
	}
	if !filepath.IsAbs(m.WorkDir) {
		m.WorkDir = filepath.Join(filepath.Dir(absPath), m.WorkDir)
	}
	if m.Name == "" {
		m.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return m, nil
}

// Parse decodes and validates manifest content
func Parse(data []byte, format Format) (*Manifest, error) {
	var m Manifest
	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&m); err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
	case FormatTOML:
		md, err := toml.NewDecoder(bytes.NewReader(data)).Decode(&m)
		if err != nil {
			return nil, err
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("unknown manifest keys: %v", undecoded)
		}
	default:
		return nil, fmt.Errorf("unknown manifest format %q", format)
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks every entry. A missing type is left for the registry to
// report so manifests and Go callers see the same error.
func (m *Manifest) Validate() error {
	var errs []error
	for i, e := range m.Entries {
		if e.Type != "" {
			if _, err := types.ParseType(e.Type); err != nil {
				errs = append(errs, fmt.Errorf("declaration %d (%q): %w", i, e.Title, err))
			}
		}
		if strings.TrimSpace(e.Run) == "" {
			errs = append(errs, fmt.Errorf("declaration %d (%q): run must not be empty", i, e.Title))
		}
	}
	return errors.Join(errs...)
}

// Environ returns the manifest environment as sorted KEY=value pairs
func (m *Manifest) Environ() []string {
	env := make([]string, 0, len(m.Env))
	for k, v := range m.Env {
		env = append(env, k+"="+v)
	}
	sort.Strings(env)
	return env
}

// Declarations converts the entries into declarations whose bodies run the
// entry's command
func (m *Manifest) Declarations(logger log.Logger) []types.Declaration {
	env := m.Environ()
	decls := make([]types.Declaration, 0, len(m.Entries))
	for _, e := range m.Entries {
		cmd := &Command{
			Script: e.Run,
			Dir:    m.WorkDir,
			Env:    env,
			Log:    logger,
		}
		decls = append(decls, types.Declaration{
			Title: e.Title,
			Type:  types.Type(e.Type),
			Metadata: types.Metadata{
				Serial:    e.Serial,
				Exclusive: e.Only,
				Skipped:   e.Skip,
			},
			Fn: cmd.Run,
		})
	}
	return decls
}
