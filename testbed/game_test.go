package testbed

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/anima-assets/engine"
	"github.com/spaghettifunk/anima-assets/engine/config"
)

func TestTestGame(t *testing.T) {
	tg := NewTestGame("")
	var out bytes.Buffer
	tg.state().out = &out

	// Tests run inside testbed/, so point the default mount at ./assets.
	tg.FnConfigure = func(cfg *config.Config) {
		tg.Configure(cfg)
		cfg.LogLevel = "error"
		cfg.Debug = false
		cfg.Archives[0].Root = "assets"
	}

	e, err := engine.New(tg.Game)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, e.Initialize(ctx))

	want := "Hello, world!\nThis text was loaded through the resource manager.\n"
	assert.Equal(t, want, tg.state().text)
	assert.Contains(t, out.String(), "Text size: 65\nText:\n")

	ref, err := e.Locator().Resources.Find("text_resource")
	require.NoError(t, err)
	info, err := e.Locator().Resources.Info(ref)
	require.NoError(t, err)
	assert.False(t, info.Loaded)
	assert.Zero(t, info.RefCount)

	require.NoError(t, e.Run(ctx))
	require.NoError(t, e.Shutdown())
}

func TestConfigureKeepsExplicitArchives(t *testing.T) {
	tg := NewTestGame("")
	cfg := config.Default()
	cfg.Archives = []config.ArchiveConfig{{Name: "pack", Kind: config.ArchiveDir, Root: "/srv/pack"}}
	cfg.Manifests = []string{"pack/all.mri"}
	tg.Configure(&cfg)

	assert.True(t, cfg.Debug)
	assert.Equal(t, "pack", cfg.Archives[0].Name)
	assert.Equal(t, []string{"pack/all.mri"}, cfg.Manifests)
}
