package testbed

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spaghettifunk/anima-assets/engine"
	"github.com/spaghettifunk/anima-assets/engine/config"
	"github.com/spaghettifunk/anima-assets/engine/resources"
)

const (
	// AssetsDir is mounted as "data" when the configuration mounts nothing.
	AssetsDir    = "testbed/assets"
	ManifestPath = "data/text_resource.mri"
)

type TestGame struct {
	*engine.Game
}

type gameState struct {
	out io.Writer
	// text is the content printed by Load, kept for tests.
	text string
}

func NewTestGame(configPath string) *TestGame {
	tg := &TestGame{
		Game: &engine.Game{
			ApplicationConfig: &engine.ApplicationConfig{
				Name:       "Anima Testbed",
				ConfigPath: configPath,
			},
			State: &gameState{out: os.Stdout},
		},
	}

	tg.FnConfigure = tg.Configure
	tg.FnLoad = tg.Load
	tg.FnUnload = tg.Unload

	return tg
}

func (g *TestGame) state() *gameState {
	return g.State.(*gameState)
}

// Configure turns on debug logging and falls back to the bundled assets.
func (g *TestGame) Configure(cfg *config.Config) {
	cfg.Debug = true
	if len(cfg.Archives) == 0 {
		cfg.Archives = []config.ArchiveConfig{{Name: "data", Kind: config.ArchiveDir, Root: AssetsDir}}
	}
	if len(cfg.Manifests) == 0 {
		cfg.Manifests = []string{ManifestPath}
	}
}

// Load opens the text resource, prints it and closes it again.
func (g *TestGame) Load(ctx context.Context, locator *engine.Locator) error {
	rm := locator.Strict

	rsc := rm.Find("text_resource")
	access := rm.Open(ctx, rsc, resources.TypeText)
	text := access.Text()

	st := g.state()
	st.text = text.Text()
	fmt.Fprintf(st.out, "Text size: %d\nText:\n%s\n", text.Size, st.text)

	rm.Close(access)
	return nil
}

func (g *TestGame) Unload(locator *engine.Locator) error {
	st := locator.Resources.Stats()
	locator.Logger.Info("Unloading testbed", "opens", st.Opens, "loads", st.Loads, "avg_load", st.AvgLoadTime)
	return nil
}
