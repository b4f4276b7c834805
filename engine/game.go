package engine

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/spaghettifunk/anima-assets/engine/archive"
	"github.com/spaghettifunk/anima-assets/engine/config"
	"github.com/spaghettifunk/anima-assets/engine/resources"
)

// Locator hands the game the engine services it may use.
type Locator struct {
	Resources *resources.Manager
	// Strict aborts the process on any resource error.
	Strict *resources.Strict
	FS     *archive.FS
	Logger *log.Logger
}

type Game struct {
	ApplicationConfig *ApplicationConfig
	State             interface{}
	FnConfigure       Configure
	FnLoad            Load
	FnUnload          Unload
}

// Configure lets the game adjust the engine configuration before boot.
type Configure func(cfg *config.Config)
type Load func(ctx context.Context, locator *Locator) error
type Unload func(locator *Locator) error
