package sceneloader_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/centraunit/sceneloader"
	"github.com/centraunit/sceneloader/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplateCatalogRegisterResolve(t *testing.T) {
	counter := mock.NewCounter()
	catalog, err := sceneloader.NewTemplateCatalog(mock.Templates(counter, "save", "audio", "hud")...)
	require.NoError(t, err)

	got, ok := catalog.Resolve("audio")
	require.True(t, ok)
	assert.Equal(t, "audio", got.Name)

	_, ok = catalog.Resolve("missing")
	assert.False(t, ok)

	assert.Equal(t, []string{"save", "audio", "hud"}, names(catalog.Templates()), "registration order is kept")

	err = catalog.Register(mock.Template("audio", counter))
	assert.ErrorIs(t, err, sceneloader.ErrTemplateExists)
}

func TestTemplateValidation(t *testing.T) {
	recipe := mock.Template("x", mock.NewCounter()).New
	cases := map[string]sceneloader.Template{
		"empty name":     {Name: "", New: recipe},
		"blank name":     {Name: "   ", New: recipe},
		"padded name":    {Name: " GameManager", New: recipe},
		"control char":   {Name: "Game\nManager", New: recipe},
		"too long":       {Name: strings.Repeat("A", 256), New: recipe},
		"missing recipe": {Name: "audio"},
	}
	for name, tpl := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := sceneloader.NewTemplateCatalog(tpl)
			var invalid *sceneloader.InvalidTemplateError
			assert.True(t, errors.As(err, &invalid), "got %v", err)
		})
	}
}

func TestTemplateNamesAreOpaque(t *testing.T) {
	counter := mock.NewCounter()
	for _, name := range []string{"GameManager", "AudioManager", "A", "Boss Music (Level 2)", strings.Repeat("A", 255)} {
		t.Run(name, func(t *testing.T) {
			catalog, err := sceneloader.NewTemplateCatalog(mock.Template(name, counter))
			require.NoError(t, err)
			_, ok := catalog.Resolve(name)
			assert.True(t, ok)
		})
	}
}

func TestZeroTemplateCatalog(t *testing.T) {
	var catalog sceneloader.TemplateCatalog
	_, ok := catalog.Resolve("GameManager")
	assert.False(t, ok)
	assert.Empty(t, catalog.Templates())

	require.NoError(t, catalog.Register(mock.Template("GameManager", mock.NewCounter())))
	got, ok := catalog.Resolve("GameManager")
	require.True(t, ok)
	assert.Equal(t, "GameManager", got.Name)
	assert.Equal(t, []string{"GameManager"}, names(catalog.Templates()))
}

func TestTemplateCapabilityKey(t *testing.T) {
	plain := mock.Template("save", mock.NewCounter())
	assert.Equal(t, "save", plain.CapabilityKey())

	audio := mock.AudioTemplate("audio-manager", mock.NewCounter())
	assert.Equal(t, "audio", audio.CapabilityKey())
	assert.NoError(t, sceneloader.ValidateTemplate(audio))
}
