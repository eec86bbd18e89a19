package sceneloader_test

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/centraunit/sceneloader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `singletons:
  - template: audio
  - template: hud
    scene: Level1
  - template: boss-music
    scene: Level2
`

func TestLoadFromFS(t *testing.T) {
	fsys := fstest.MapFS{
		"Singletons/load.yaml":  {Data: []byte(sampleConfig)},
		"Singletons/readme.txt": {Data: []byte("ignored")},
	}

	cfg, err := sceneloader.Load(sceneloader.FSSource{FS: fsys, Dir: "Singletons"})
	require.NoError(t, err)

	assert.Equal(t, "Singletons", cfg.Source())
	assert.Equal(t, []sceneloader.LoadEntry{
		{Template: "audio"},
		{Template: "hud", Scene: "Level1"},
		{Template: "boss-music", Scene: "Level2"},
	}, cfg.Entries())

	entry, ok := cfg.Lookup("hud")
	assert.True(t, ok)
	assert.Equal(t, "Level1", entry.Scene)
	_, ok = cfg.Lookup("missing")
	assert.False(t, ok)
}

func TestLoadFirstYAMLFileWins(t *testing.T) {
	fsys := fstest.MapFS{
		"Singletons/a.yml":  {Data: []byte("singletons:\n  - template: first\n")},
		"Singletons/b.yaml": {Data: []byte("singletons:\n  - template: second\n")},
	}
	cfg, err := sceneloader.Load(sceneloader.FSSource{FS: fsys, Dir: "Singletons"})
	require.NoError(t, err)
	require.Equal(t, 1, cfg.Len())
	assert.Equal(t, "first", cfg.Entries()[0].Template)
}

func TestLoadFromDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "singletons.yaml"), []byte(sampleConfig), 0o600))

	cfg, err := sceneloader.Load(sceneloader.NewDirSource(dir))
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Len())
}

func TestLoadMissing(t *testing.T) {
	cases := map[string]sceneloader.ConfigSource{
		"missing folder": sceneloader.FSSource{FS: fstest.MapFS{}, Dir: "Singletons"},
		"no yaml file": sceneloader.FSSource{FS: fstest.MapFS{
			"Singletons/notes.txt": {Data: []byte("x")},
		}, Dir: "Singletons"},
		"empty file": sceneloader.FSSource{FS: fstest.MapFS{
			"Singletons/load.yaml": {Data: []byte("")},
		}, Dir: "Singletons"},
		"no singletons key": sceneloader.FSSource{FS: fstest.MapFS{
			"Singletons/load.yaml": {Data: []byte("# nothing yet\n{}\n")},
		}, Dir: "Singletons"},
		"nil fs":      sceneloader.FSSource{Dir: "Singletons"},
		"static nil":  sceneloader.StaticSource{},
		"nil source":  nil,
		"missing dir": sceneloader.NewDirSource(filepath.Join(t.TempDir(), "absent")),
	}

	for name, source := range cases {
		t.Run(name, func(t *testing.T) {
			cfg, err := sceneloader.Load(source)
			assert.Nil(t, cfg)
			var missing *sceneloader.ConfigurationMissingError
			require.True(t, errors.As(err, &missing), "got %v", err)
		})
	}

	_, err := sceneloader.Load(sceneloader.FSSource{FS: fstest.MapFS{}, Dir: "Singletons"})
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestLoadEmptyListIsValid(t *testing.T) {
	fsys := fstest.MapFS{"Singletons/load.yaml": {Data: []byte("singletons: []\n")}}
	cfg, err := sceneloader.Load(sceneloader.FSSource{FS: fsys, Dir: "Singletons"})
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Len())
}

func TestLoadConflictingScenes(t *testing.T) {
	source := sceneloader.StaticSource{Items: []sceneloader.LoadEntry{
		{Template: "hud", Scene: "Level1"},
		{Template: "audio"},
		{Template: "hud", Scene: "Level2"},
	}}

	cfg, err := sceneloader.Load(source)
	assert.Nil(t, cfg, "load fails closed")
	var invalid *sceneloader.ConfigurationInvalidError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, "hud", invalid.Template)
	assert.Equal(t, []string{"Level1", "Level2"}, invalid.Scenes)
}

func TestLoadConflictHiddenBehindGeneralEntry(t *testing.T) {
	_, err := sceneloader.NewLoadConfiguration(
		sceneloader.LoadEntry{Template: "hud", Scene: "Level1"},
		sceneloader.LoadEntry{Template: "hud"},
		sceneloader.LoadEntry{Template: "hud", Scene: "Level2"},
	)
	var invalid *sceneloader.ConfigurationInvalidError
	assert.True(t, errors.As(err, &invalid))
}

func TestLoadDeduplicates(t *testing.T) {
	cfg, err := sceneloader.NewLoadConfiguration(
		sceneloader.LoadEntry{Template: "hud", Scene: "Level1"},
		sceneloader.LoadEntry{Template: "audio"},
		sceneloader.LoadEntry{Template: "hud", Scene: "Level1"},
		sceneloader.LoadEntry{Template: "save", Scene: "Level1"},
		sceneloader.LoadEntry{Template: "save"},
		sceneloader.LoadEntry{Template: " audio ", Scene: " Menu "},
	)
	require.NoError(t, err)
	assert.Equal(t, []sceneloader.LoadEntry{
		{Template: "hud", Scene: "Level1"},
		{Template: "audio", Scene: "Menu"},
		{Template: "save"},
	}, cfg.Entries())
}

func TestLoadInvalidEntries(t *testing.T) {
	cases := map[string]sceneloader.LoadEntry{
		"empty template": {Template: ""},
		"blank template": {Template: "   "},
		"control char":   {Template: "Audio\tManager"},
		"long template":  {Template: string(bytes.Repeat([]byte("A"), 256))},
		"long scene":     {Template: "audio", Scene: string(bytes.Repeat([]byte("x"), 256))},
	}
	for name, entry := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := sceneloader.NewLoadConfiguration(entry)
			var invalid *sceneloader.ConfigurationInvalidError
			assert.True(t, errors.As(err, &invalid), "got %v", err)
		})
	}
}

func TestLoadParseErrors(t *testing.T) {
	cases := map[string]string{
		"unknown field": "singletons:\n  - template: audio\n    prefab: x\n",
		"wrong shape":   "singletons: audio\n",
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			fsys := fstest.MapFS{"Singletons/load.yaml": {Data: []byte(data)}}
			_, err := sceneloader.Load(sceneloader.FSSource{FS: fsys, Dir: "Singletons"})
			var invalid *sceneloader.ConfigurationInvalidError
			assert.True(t, errors.As(err, &invalid), "got %v", err)
		})
	}
}

func TestLoadIsIdempotent(t *testing.T) {
	fsys := fstest.MapFS{"Singletons/load.yaml": {Data: []byte(sampleConfig)}}
	source := sceneloader.FSSource{FS: fsys, Dir: "Singletons"}

	first, err := sceneloader.Load(source)
	require.NoError(t, err)
	second, err := sceneloader.Load(source)
	require.NoError(t, err)
	assert.Equal(t, first.Entries(), second.Entries())

	loader := sceneloader.NewLoader(source)
	a, err := loader.Load()
	require.NoError(t, err)

	fsys["Singletons/load.yaml"] = &fstest.MapFile{Data: []byte("singletons: []\n")}
	b, err := loader.Load()
	require.NoError(t, err)
	assert.Same(t, a, b)
	assert.Equal(t, 3, b.Len())
}

func TestEntriesReturnsCopy(t *testing.T) {
	cfg, err := sceneloader.NewLoadConfiguration(sceneloader.LoadEntry{Template: "hud", Scene: "Level1"})
	require.NoError(t, err)
	entries := cfg.Entries()
	entries[0].Scene = "Other"
	assert.Equal(t, "Level1", cfg.Entries()[0].Scene)
}

func TestWithSceneAndEncode(t *testing.T) {
	cfg, err := sceneloader.NewLoadConfiguration(
		sceneloader.LoadEntry{Template: "audio"},
		sceneloader.LoadEntry{Template: "hud", Scene: "Level1"},
	)
	require.NoError(t, err)

	next, err := cfg.WithScene("audio", "Menu")
	require.NoError(t, err)
	next, err = next.WithScene("hud", "")
	require.NoError(t, err)
	next, err = next.WithScene("save", "Level2")
	require.NoError(t, err)

	assert.Equal(t, []sceneloader.LoadEntry{{Template: "audio"}, {Template: "hud", Scene: "Level1"}}, cfg.Entries(),
		"receiver snapshot is untouched")

	var buf bytes.Buffer
	require.NoError(t, next.Encode(&buf))

	fsys := fstest.MapFS{"Singletons/load.yaml": {Data: buf.Bytes()}}
	reloaded, err := sceneloader.Load(sceneloader.FSSource{FS: fsys, Dir: "Singletons"})
	require.NoError(t, err)
	assert.Equal(t, []sceneloader.LoadEntry{
		{Template: "audio", Scene: "Menu"},
		{Template: "hud"},
		{Template: "save", Scene: "Level2"},
	}, reloaded.Entries())

	_, err = cfg.WithScene("Bad\x00Name", "Menu")
	var invalid *sceneloader.ConfigurationInvalidError
	assert.True(t, errors.As(err, &invalid))
}

func TestLoadMixedCaseTemplateNames(t *testing.T) {
	fsys := fstest.MapFS{"Singletons/load.yaml": {Data: []byte("singletons:\n  - template: GameManager\n  - template: AudioManager\n    scene: Level1\n")}}
	cfg, err := sceneloader.Load(sceneloader.FSSource{FS: fsys, Dir: "Singletons"})
	require.NoError(t, err)
	assert.Equal(t, []sceneloader.LoadEntry{
		{Template: "GameManager"},
		{Template: "AudioManager", Scene: "Level1"},
	}, cfg.Entries())

	cfg, err = sceneloader.Load(sceneloader.StaticSource{Items: []sceneloader.LoadEntry{{Template: "AudioManager", Scene: "Level1"}}})
	require.NoError(t, err)
	entry, ok := cfg.Lookup("AudioManager")
	require.True(t, ok)
	assert.Equal(t, "Level1", entry.Scene)
}
