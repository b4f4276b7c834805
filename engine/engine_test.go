package engine

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/anima-assets/engine/config"
	"github.com/spaghettifunk/anima-assets/engine/core"
	"github.com/spaghettifunk/anima-assets/engine/resources"
)

func testAssets(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	var data bytes.Buffer
	require.NoError(t, binary.Write(&data, binary.LittleEndian, uint64(len("engine text"))))
	data.WriteString("engine text")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "text.bin"), data.Bytes(), 0o644))

	var manifest bytes.Buffer
	require.NoError(t, resources.EncodeManifest(&manifest, &resources.Manifest{Entries: []resources.Entry{
		{Type: resources.TypeText, Name: "text", Path: "data/text.bin"},
	}}))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "info.mri"), manifest.Bytes(), 0o644))
	return dir
}

func TestEngine_Lifecycle(t *testing.T) {
	dir := testAssets(t)
	ctx := context.Background()

	var loaded, unloaded string
	g := &Game{
		ApplicationConfig: &ApplicationConfig{Name: "test"},
		FnConfigure: func(cfg *config.Config) {
			cfg.LogLevel = "error"
			cfg.MaxResourceCount = 4
			cfg.Archives = []config.ArchiveConfig{{Name: "data", Kind: config.ArchiveDir, Root: dir}}
			cfg.Manifests = []string{"data/info.mri"}
		},
		FnLoad: func(ctx context.Context, l *Locator) error {
			a := l.Strict.Open(ctx, l.Strict.Find("text"), resources.TypeText)
			loaded = a.Text().Text()
			l.Strict.Close(a)
			return nil
		},
		FnUnload: func(l *Locator) error {
			unloaded = l.Resources.String()
			return nil
		},
	}

	e, err := New(g)
	require.NoError(t, err)
	assert.Equal(t, EngineStageBootComplete, e.Stage())
	assert.Equal(t, uint32(4), e.Config().MaxResourceCount)

	require.ErrorIs(t, e.Run(ctx), core.ErrState)
	require.NoError(t, e.Initialize(ctx))
	assert.Equal(t, EngineStageInitialized, e.Stage())
	assert.Equal(t, "engine text", loaded)
	require.NotNil(t, e.Locator())

	require.NoError(t, e.Run(ctx))
	assert.Equal(t, EngineStageRunning, e.Stage())

	require.NoError(t, e.Shutdown())
	assert.Equal(t, EngineStageShutdown, e.Stage())
	assert.Equal(t, "resources.Manager{resources: 1/4}", unloaded)
	require.ErrorIs(t, e.Shutdown(), core.ErrState)
}

func TestEngine_LoadFailureShutsDownSystems(t *testing.T) {
	dir := testAssets(t)
	boom := errors.New("boom")
	g := &Game{
		FnConfigure: func(cfg *config.Config) {
			cfg.LogLevel = "error"
			cfg.Archives = []config.ArchiveConfig{{Name: "data", Kind: config.ArchiveDir, Root: dir}}
		},
		FnLoad: func(context.Context, *Locator) error { return boom },
	}
	e, err := New(g)
	require.NoError(t, err)
	err = e.Initialize(context.Background())
	require.ErrorIs(t, err, boom)
	assert.Empty(t, e.Locator().FS.Mounts())
}

func TestEngine_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.toml")
	require.NoError(t, os.WriteFile(path, []byte("log_level = \"error\"\nmax_resource_count = 16\n"), 0o644))

	e, err := New(&Game{ApplicationConfig: &ApplicationConfig{ConfigPath: path}})
	require.NoError(t, err)
	assert.Equal(t, uint32(16), e.Config().MaxResourceCount)

	_, err = New(&Game{ApplicationConfig: &ApplicationConfig{ConfigPath: path + ".missing"}})
	require.ErrorIs(t, err, core.ErrIO)

	_, err = New(&Game{FnConfigure: func(cfg *config.Config) { cfg.MaxResourceCount = 0 }})
	require.ErrorIs(t, err, core.ErrCapacity)
}
