package systems

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/spaghettifunk/anima-assets/engine/config"
)

type SystemManager struct {
	ResourceSystem *ResourceSystem
}

func NewSystemManager(ctx context.Context, cfg config.Config, logger *log.Logger) (*SystemManager, error) {
	rs, err := NewResourceSystem(ctx, &ResourceSystemConfig{
		MaxResourceCount: cfg.MaxResourceCount,
		MemoryBudget:     cfg.MemoryBudget,
		Archives:         cfg.Archives,
		Manifests:        cfg.Manifests,
		Watch:            cfg.Watch,
		Preload:          cfg.Preload,
		Workers:          cfg.Workers,
	}, logger)
	if err != nil {
		return nil, err
	}
	return &SystemManager{
		ResourceSystem: rs,
	}, nil
}

func (sm *SystemManager) Shutdown() error {
	if err := sm.ResourceSystem.Shutdown(); err != nil {
		return err
	}
	return nil
}
