package systems

import (
	"context"
	"errors"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/spaghettifunk/anima-assets/engine/archive"
	"github.com/spaghettifunk/anima-assets/engine/assets"
	"github.com/spaghettifunk/anima-assets/engine/config"
	"github.com/spaghettifunk/anima-assets/engine/core"
	"github.com/spaghettifunk/anima-assets/engine/memory"
	"github.com/spaghettifunk/anima-assets/engine/resources"
)

/** @brief The configuration for the resource system */
type ResourceSystemConfig struct {
	/** @brief The maximum number of resources that can be registered with this system. */
	MaxResourceCount uint32
	/** @brief Budget in bytes for payloads. Zero means unlimited. */
	MemoryBudget uint64
	/** @brief Archives to mount, keyed by their mount name. */
	Archives []config.ArchiveConfig
	/** @brief Manifests added once the archives are mounted. */
	Manifests []string
	/** @brief Reload resources when their files change on disk. */
	Watch bool
	/** @brief Resources opened at boot and held until shutdown. */
	Preload []string
	/** @brief Number of job system workers used for preloading. */
	Workers int
}

// ResourceSystem owns the archives, the resource manager and the optional
// file watcher for the lifetime of the engine.
type ResourceSystem struct {
	Config  ResourceSystemConfig
	FS      *archive.FS
	Manager *resources.Manager
	Memory  *memory.Tracker

	logger  *log.Logger
	watcher *assets.Watcher
	jobs    *JobSystem

	mu        sync.Mutex
	preloaded []*resources.Access
}

// DefaultWorkers is used when the configuration does not set a worker count.
const DefaultWorkers = 4

// ArchiveFactory builds the archive described by an ArchiveConfig. Tests swap
// it to avoid network archives.
type ArchiveFactory func(ctx context.Context, cfg config.ArchiveConfig) (archive.Archive, error)

func NewResourceSystem(ctx context.Context, cfg *ResourceSystemConfig, logger *log.Logger) (*ResourceSystem, error) {
	return newResourceSystem(ctx, cfg, logger, OpenArchive)
}

func newResourceSystem(ctx context.Context, cfg *ResourceSystemConfig, logger *log.Logger, open ArchiveFactory) (*ResourceSystem, error) {
	if cfg.MaxResourceCount == 0 {
		err := core.Errorf(core.KindCapacity, "systems.NewResourceSystem", "config.MaxResourceCount must be > 0")
		logger.Error(err.Error())
		return nil, err
	}

	fs := archive.NewFS()
	for _, ac := range cfg.Archives {
		a, err := open(ctx, ac)
		if err != nil {
			return nil, err
		}
		if err := fs.Mount(ac.Name, a); err != nil {
			return nil, err
		}
		logger.Info("Mounted archive", "name", ac.Name, "kind", ac.Kind)
	}

	tracker := memory.NewTracker(memory.Heap, cfg.MemoryBudget)
	m, err := resources.New(resources.Config{
		MaxResourceCount: cfg.MaxResourceCount,
		Allocator:        tracker,
		Logger:           logger,
		FS:               fs,
	})
	if err != nil {
		return nil, err
	}

	rs := &ResourceSystem{
		Config:  *cfg,
		FS:      fs,
		Manager: m,
		Memory:  tracker,
		logger:  logger,
	}
	for _, path := range cfg.Manifests {
		if err := m.AddManifest(ctx, path); err != nil {
			return nil, errors.Join(err, m.Terminate())
		}
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	jobs, err := NewJobSystem(ctx, workers, len(cfg.Preload), logger)
	if err != nil {
		return nil, errors.Join(err, m.Terminate())
	}
	rs.jobs = jobs
	if err := rs.Preload(cfg.Preload...); err != nil {
		return nil, errors.Join(err, rs.Shutdown())
	}

	if cfg.Watch {
		w, err := assets.NewWatcher(fs, m, logger)
		if err != nil {
			return nil, errors.Join(err, rs.Shutdown())
		}
		if err := w.Start(); err != nil {
			return nil, errors.Join(err, w.Close(), rs.Shutdown())
		}
		rs.watcher = w
	}

	logger.Info("Resource system initialized", "resources", m.Len(), "capacity", m.Capacity())
	return rs, nil
}

// Preload opens every named resource on the job system and keeps the handles
// until Shutdown, so they stay loaded regardless of other callers. Empty
// resources cannot be opened and fail like any other Open.
func (rs *ResourceSystem) Preload(names ...string) error {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	fail := func(err error) {
		mu.Lock()
		errs = append(errs, err)
		mu.Unlock()
	}

	for _, name := range names {
		ref, err := rs.Manager.Find(name)
		if err != nil {
			fail(err)
			continue
		}
		info, err := rs.Manager.Info(ref)
		if err != nil {
			fail(err)
			continue
		}

		wg.Add(1)
		err = rs.jobs.Submit(Job{
			Name: "preload " + name,
			Run: func(ctx context.Context) error {
				a, err := rs.Manager.Open(ctx, ref, info.Type)
				if err != nil {
					return err
				}
				rs.mu.Lock()
				rs.preloaded = append(rs.preloaded, a)
				rs.mu.Unlock()
				return nil
			},
			OnComplete: wg.Done,
			OnFailure: func(err error) {
				fail(err)
				wg.Done()
			},
		})
		if err != nil {
			fail(err)
			wg.Done()
		}
	}
	wg.Wait()

	if len(names) > 0 {
		rs.logger.Info("Preloaded resources", "requested", len(names), "failed", len(errs))
	}
	return errors.Join(errs...)
}

// OpenArchive builds a directory, MinIO or S3 archive.
func OpenArchive(ctx context.Context, cfg config.ArchiveConfig) (archive.Archive, error) {
	const op = "systems.OpenArchive"
	switch cfg.Kind {
	case config.ArchiveDir:
		return archive.NewDir(cfg.Root)
	case config.ArchiveMinIO:
		client, err := archive.NewMinIOClient(cfg.Endpoint, cfg.AccessKey, cfg.SecretKey, cfg.Secure)
		if err != nil {
			return nil, core.Wrap(core.KindIO, op, err).WithPath(cfg.Name)
		}
		return archive.NewMinIO(client, cfg.Bucket, cfg.Prefix), nil
	case config.ArchiveS3:
		client, err := archive.NewS3Client(ctx, cfg.Region, cfg.Endpoint)
		if err != nil {
			return nil, core.Wrap(core.KindIO, op, err).WithPath(cfg.Name)
		}
		return archive.NewS3(client, cfg.Bucket, cfg.Prefix), nil
	default:
		return nil, core.Errorf(core.KindUnsupported, op, "unknown archive kind %q", cfg.Kind).WithPath(cfg.Name)
	}
}

// Watcher returns the file watcher, or nil when watching is off.
func (rs *ResourceSystem) Watcher() *assets.Watcher {
	return rs.watcher
}

func (rs *ResourceSystem) Shutdown() error {
	var errs []error
	if rs.watcher != nil {
		errs = append(errs, rs.watcher.Close())
	}
	if rs.jobs != nil {
		errs = append(errs, rs.jobs.Shutdown())
	}
	rs.mu.Lock()
	for _, a := range rs.preloaded {
		errs = append(errs, rs.Manager.Close(a))
	}
	rs.preloaded = nil
	rs.mu.Unlock()
	errs = append(errs, rs.Manager.Terminate())
	for _, name := range rs.FS.Mounts() {
		errs = append(errs, rs.FS.Unmount(name))
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}
	st := rs.Memory.Stats()
	rs.logger.Info("Resource system shut down", "allocations", st.Allocations, "peak_bytes", st.PeakBytes)
	return nil
}
