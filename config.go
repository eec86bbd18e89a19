package sceneloader

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// DefaultConfigDir is the folder holding the load configuration file.
const DefaultConfigDir = "Singletons"

// LoadEntry binds a template to an optional owning scene. An empty Scene
// makes the template general.
type LoadEntry struct {
	Template string `yaml:"template" validate:"template_name"`
	Scene    string `yaml:"scene,omitempty" validate:"omitempty,max=255"`
}

// document is the on-disk layout of a load configuration file.
type document struct {
	Singletons *[]LoadEntry `yaml:"singletons"`
}

// ConfigSource is a readable store of load entries.
type ConfigSource interface {
	// Location names the store in errors and logs.
	Location() string
	// Entries enumerates every authored entry, duplicates included.
	Entries() ([]LoadEntry, error)
}

// FSSource reads the first YAML file found in Dir of FS. It serves both
// on-disk folders and embedded resources.
type FSSource struct {
	FS  fs.FS
	Dir string
}

// NewDirSource returns a source reading the folder at dir.
func NewDirSource(dir string) FSSource {
	return FSSource{FS: os.DirFS(dir), Dir: "."}
}

func (s FSSource) Location() string {
	if s.Dir == "" {
		return "."
	}
	return s.Dir
}

func (s FSSource) Entries() ([]LoadEntry, error) {
	if s.FS == nil {
		return nil, &ConfigurationMissingError{Location: s.Location(), Err: fs.ErrNotExist}
	}
	dir := s.Location()
	files, err := fs.ReadDir(s.FS, dir)
	if err != nil {
		return nil, &ConfigurationMissingError{Location: dir, Err: err}
	}

	for _, f := range files {
		if f.IsDir() {
			continue
		}
		switch strings.ToLower(path.Ext(f.Name())) {
		case ".yaml", ".yml":
		default:
			continue
		}
		file := path.Join(dir, f.Name())
		data, err := fs.ReadFile(s.FS, file)
		if err != nil {
			return nil, &ConfigurationMissingError{Location: file, Err: err}
		}
		return decodeEntries(file, data)
	}
	return nil, &ConfigurationMissingError{Location: dir}
}

// StaticSource serves entries held in memory. A nil Items slice means no
// authoring data exists.
type StaticSource struct {
	Name  string
	Items []LoadEntry
}

func (s StaticSource) Location() string {
	if s.Name == "" {
		return "static"
	}
	return s.Name
}

func (s StaticSource) Entries() ([]LoadEntry, error) {
	if s.Items == nil {
		return nil, &ConfigurationMissingError{Location: s.Location()}
	}
	out := make([]LoadEntry, len(s.Items))
	copy(out, s.Items)
	return out, nil
}

func decodeEntries(location string, data []byte) ([]LoadEntry, error) {
	var doc document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &ConfigurationMissingError{Location: location}
		}
		return nil, &ConfigurationInvalidError{Reason: "parse " + location, Err: err}
	}
	if doc.Singletons == nil {
		return nil, &ConfigurationMissingError{Location: location}
	}
	return *doc.Singletons, nil
}

// LoadConfiguration is an immutable, deduplicated snapshot of load entries.
type LoadConfiguration struct {
	source  string
	entries []LoadEntry
	index   map[string]int
}

// Load reads source once and builds a configuration snapshot.
func Load(source ConfigSource) (*LoadConfiguration, error) {
	if source == nil {
		return nil, &ConfigurationMissingError{Location: "<nil>"}
	}
	raw, err := source.Entries()
	if err != nil {
		return nil, err
	}
	cfg, err := NewLoadConfiguration(raw...)
	if err != nil {
		return nil, err
	}
	cfg.source = source.Location()
	return cfg, nil
}

// NewLoadConfiguration validates and deduplicates entries. Identical
// duplicates collapse, a mix of empty and non-empty scenes for one template
// resolves to the last entry, and two different non-empty scenes for one
// template fail with ConfigurationInvalidError.
func NewLoadConfiguration(raw ...LoadEntry) (*LoadConfiguration, error) {
	v := validatorInstance()
	cfg := &LoadConfiguration{
		entries: make([]LoadEntry, 0, len(raw)),
		index:   make(map[string]int, len(raw)),
	}
	bound := make(map[string]string, len(raw))

	for i, e := range raw {
		e.Template = strings.TrimSpace(e.Template)
		e.Scene = strings.TrimSpace(e.Scene)
		if err := v.Struct(e); err != nil {
			return nil, &ConfigurationInvalidError{
				Template: e.Template,
				Reason:   fmt.Sprintf("entry %d", i),
				Err:      err,
			}
		}

		if e.Scene != "" {
			if prev, ok := bound[e.Template]; ok && prev != e.Scene {
				return nil, &ConfigurationInvalidError{
					Template: e.Template,
					Scenes:   []string{prev, e.Scene},
				}
			}
			bound[e.Template] = e.Scene
		}

		if pos, ok := cfg.index[e.Template]; ok {
			cfg.entries[pos] = e
			continue
		}
		cfg.index[e.Template] = len(cfg.entries)
		cfg.entries = append(cfg.entries, e)
	}
	return cfg, nil
}

// Source names where the snapshot was read from.
func (c *LoadConfiguration) Source() string {
	return c.source
}

// Entries returns a copy of the deduplicated entries in authoring order.
func (c *LoadConfiguration) Entries() []LoadEntry {
	out := make([]LoadEntry, len(c.entries))
	copy(out, c.entries)
	return out
}

func (c *LoadConfiguration) Len() int {
	return len(c.entries)
}

// Lookup returns the entry of a template.
func (c *LoadConfiguration) Lookup(template string) (LoadEntry, bool) {
	pos, ok := c.index[template]
	if !ok {
		return LoadEntry{}, false
	}
	return c.entries[pos], true
}

// WithScene returns a new snapshot where template is bound to scene, or made
// general when scene is empty. The receiver is left untouched.
func (c *LoadConfiguration) WithScene(template, scene string) (*LoadConfiguration, error) {
	entries := c.Entries()
	entry := LoadEntry{Template: template, Scene: scene}
	if pos, ok := c.index[strings.TrimSpace(template)]; ok {
		entries[pos] = entry
	} else {
		entries = append(entries, entry)
	}
	next, err := NewLoadConfiguration(entries...)
	if err != nil {
		return nil, err
	}
	next.source = c.source
	return next, nil
}

// Encode writes the snapshot in the configuration file format.
func (c *LoadConfiguration) Encode(w io.Writer) error {
	entries := c.Entries()
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(document{Singletons: &entries}); err != nil {
		return fmt.Errorf("encode load configuration: %w", err)
	}
	return enc.Close()
}

// Loader memoizes the first read of a source so every caller in the process
// observes the same snapshot.
type Loader struct {
	source ConfigSource
	once   sync.Once
	cfg    *LoadConfiguration
	err    error
}

func NewLoader(source ConfigSource) *Loader {
	return &Loader{source: source}
}

func (l *Loader) Load() (*LoadConfiguration, error) {
	l.once.Do(func() {
		l.cfg, l.err = Load(l.source)
	})
	return l.cfg, l.err
}
