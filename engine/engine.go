package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/spaghettifunk/anima-assets/engine/config"
	"github.com/spaghettifunk/anima-assets/engine/core"
	"github.com/spaghettifunk/anima-assets/engine/resources"
	"github.com/spaghettifunk/anima-assets/engine/systems"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently booting up
	EngineStageBooting
	// Engine completed boot process and is ready to be initialized
	EngineStageBootComplete
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
	// Engine shut down and cannot be restarted
	EngineStageShutdown
)

type Engine struct {
	currentStage  Stage
	gameInstance  *Game
	config        config.Config
	logger        *log.Logger
	systemManager *systems.SystemManager
	locator       *Locator
	clock         *core.Clock
}

// New boots the engine: it reads the configuration and gives the game a
// chance to adjust it. Systems start in Initialize.
func New(g *Game) (*Engine, error) {
	e := &Engine{
		currentStage: EngineStageBooting,
		gameInstance: g,
		clock:        core.NewClock(),
	}

	cfg := config.Default()
	if g.ApplicationConfig != nil && g.ApplicationConfig.ConfigPath != "" {
		loaded, err := config.Load(g.ApplicationConfig.ConfigPath)
		if err != nil {
			core.LogError("Couldn't load engine configuration: %s", err)
			return nil, err
		}
		cfg = loaded
	}
	if g.FnConfigure != nil {
		g.FnConfigure(&cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	e.config = cfg

	core.SetLogLevel(cfg.Level())
	e.logger = core.Logger()
	if g.ApplicationConfig != nil && g.ApplicationConfig.Name != "" {
		e.logger = e.logger.WithPrefix(g.ApplicationConfig.Name)
	}
	e.logger.Debug("Loaded engine configuration successfully")

	e.currentStage = EngineStageBootComplete
	return e, nil
}

func (e *Engine) Stage() Stage {
	return e.currentStage
}

func (e *Engine) Config() config.Config {
	return e.config
}

func (e *Engine) Locator() *Locator {
	return e.locator
}

func (e *Engine) Initialize(ctx context.Context) error {
	if e.currentStage != EngineStageBootComplete {
		return core.Errorf(core.KindState, "engine.Initialize", "engine is not booted (stage %d)", e.currentStage)
	}
	e.currentStage = EngineStageInitializing
	e.clock.Start()

	sm, err := systems.NewSystemManager(ctx, e.config, e.logger)
	if err != nil {
		return err
	}
	e.systemManager = sm

	rs := sm.ResourceSystem
	e.locator = &Locator{
		Resources: rs.Manager,
		Strict:    resources.NewStrict(rs.Manager),
		FS:        rs.FS,
		Logger:    e.logger,
	}
	e.logger.Info("Initialized engine successfully")

	if e.gameInstance.FnLoad != nil {
		if err := e.gameInstance.FnLoad(ctx, e.locator); err != nil {
			return errors.Join(fmt.Errorf("failed to load game: %w", err), e.systemManager.Shutdown())
		}
	}
	e.logger.Info("Loaded game successfully")

	e.clock.Stop()
	e.logger.Debug("Engine initialization finished", "took", e.clock.Elapsed())
	e.currentStage = EngineStageInitialized
	return nil
}

// Run keeps the engine alive until ctx is done when resources are being
// watched for changes; otherwise there is nothing to drive and it returns.
func (e *Engine) Run(ctx context.Context) error {
	if e.currentStage != EngineStageInitialized {
		return core.Errorf(core.KindState, "engine.Run", "engine is not initialized (stage %d)", e.currentStage)
	}
	e.currentStage = EngineStageRunning
	if !e.config.Watch {
		return nil
	}

	w := e.systemManager.ResourceSystem.Watcher()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events():
			if !ok {
				return nil
			}
			if ev.Err == nil && ev.Reloaded > 0 {
				e.logger.Info("Hot reloaded", "path", ev.Path, "resources", ev.Reloaded)
			}
		}
	}
}

func (e *Engine) Shutdown() error {
	switch e.currentStage {
	case EngineStageInitialized, EngineStageRunning:
	default:
		return core.Errorf(core.KindState, "engine.Shutdown", "engine is not running (stage %d)", e.currentStage)
	}
	e.currentStage = EngineStageShuttingDown

	var errs []error
	if e.gameInstance.FnUnload != nil {
		if err := e.gameInstance.FnUnload(e.locator); err != nil {
			errs = append(errs, err)
		}
	}
	e.logger.Info("Unloaded game successfully")

	if err := e.systemManager.Shutdown(); err != nil {
		errs = append(errs, err)
	}
	e.currentStage = EngineStageShutdown
	if err := errors.Join(errs...); err != nil {
		return err
	}
	e.logger.Info("Terminated engine successfully")
	return nil
}
