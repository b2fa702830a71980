// Package bootstrap wires repositories, the client pool, the filter and
// trigger services, and the block pipeline together into a runnable
// Monitor, mirroring original_source/src/bootstrap/mod.rs's
// initialize_services/create_block_handler/create_trigger_handler shape.
package bootstrap

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/thrasher-corp/chainmonitor/blockchain/pool"
	"github.com/thrasher-corp/chainmonitor/blockwatcher"
	"github.com/thrasher-corp/chainmonitor/config"
	"github.com/thrasher-corp/chainmonitor/database"
	"github.com/thrasher-corp/chainmonitor/database/repository/audit"
	"github.com/thrasher-corp/chainmonitor/models"
	"github.com/thrasher-corp/chainmonitor/repository"
	"github.com/thrasher-corp/chainmonitor/triggersvc"
)

var log = zap.NewNop().Sugar()

// SetLogger installs the package-wide sugared logger.
func SetLogger(l *zap.SugaredLogger) {
	if l != nil {
		log = l
	}
}

// Monitor is the fully wired runtime: repositories, the client pool, the
// block pipeline, and the scheduler driving each active network's polling.
type Monitor struct {
	configRoot string

	mu       sync.RWMutex
	settings *config.Settings
	networks *repository.NetworkRepository
	monitors *repository.MonitorRepository
	triggers *repository.TriggerRepository
	paused   map[string]bool

	pool      *pool.ClientPool
	storage   blockwatcher.BlockStorage
	audit     *audit.Repository
	scheduler *blockwatcher.Scheduler

	blockCh   chan *blockwatcher.QueuedBlock
	triggerCh chan *models.ProcessedBlock
}

// Load reads configRoot (containing config.json plus networks/, monitors/,
// triggers/ subdirectories) and constructs every repository, validating
// cross-references per spec.md §6.
func Load(configRoot string) (*Monitor, error) {
	settings, networks, triggers, monitors, err := loadRepositories(configRoot)
	if err != nil {
		return nil, err
	}

	m := &Monitor{
		configRoot: configRoot,
		settings:   settings,
		networks:   networks,
		monitors:   monitors,
		triggers:   triggers,
		paused:     make(map[string]bool),
		pool:       pool.New(),
		storage:    blockwatcher.NewInMemoryBlockStorage(),
	}

	if settings.DatabaseDriver != "" {
		if err := m.connectStorage(settings); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// connectStorage opens the configured SQL database (settings.DatabaseDriver/
// DatabaseDSN) and replaces the default in-memory BlockStorage with a
// SQLBlockStorage backed by it, and installs an audit.Repository that
// records every trigger dispatch outcome going forward.
func (m *Monitor) connectStorage(settings *config.Settings) error {
	db, err := database.Connect(database.Config{Driver: settings.DatabaseDriver, DSN: settings.DatabaseDSN})
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}

	storage, err := blockwatcher.NewSQLBlockStorage(db)
	if err != nil {
		return fmt.Errorf("initializing SQL block storage: %w", err)
	}
	m.storage = storage

	auditRepo, err := audit.New(db)
	if err != nil {
		return fmt.Errorf("initializing audit repository: %w", err)
	}
	m.audit = auditRepo

	return nil
}

func loadRepositories(configRoot string) (*config.Settings, *repository.NetworkRepository, *repository.TriggerRepository, *repository.MonitorRepository, error) {
	settings, err := config.Load(filepath.Join(configRoot, "config.json"))
	if err != nil {
		return nil, nil, nil, nil, err
	}

	networks, err := repository.NewNetworkRepository(resolveDir(configRoot, settings.NetworksDir))
	if err != nil {
		return nil, nil, nil, nil, err
	}
	triggers, err := repository.NewTriggerRepository(resolveDir(configRoot, settings.TriggersDir))
	if err != nil {
		return nil, nil, nil, nil, err
	}
	monitors, err := repository.NewMonitorRepository(resolveDir(configRoot, settings.MonitorsDir), networks, triggers)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	return settings, networks, triggers, monitors, nil
}

// ReloadConfig re-reads every declarative directory from configRoot and
// atomically swaps in the new repository snapshot, clearing any runtime
// pause overrides — the Go analogue of the control surface's
// ReloadConfig() named in SPEC_FULL.md §7.
func (m *Monitor) ReloadConfig() error {
	settings, networks, triggers, monitors, err := loadRepositories(m.configRoot)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings = settings
	m.networks = networks
	m.triggers = triggers
	m.monitors = monitors
	m.paused = make(map[string]bool)
	return nil
}

// Pause marks monitorName as paused until Resume or ReloadConfig, without
// requiring a restart. Thin wrapper over the in-memory repository
// snapshot per SPEC_FULL.md §7.
func (m *Monitor) Pause(monitorName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.monitors.Monitor(monitorName); !ok {
		return fmt.Errorf("monitor %q not found", monitorName)
	}
	m.paused[monitorName] = true
	return nil
}

// Resume clears a runtime pause override for monitorName.
func (m *Monitor) Resume(monitorName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.monitors.Monitor(monitorName); !ok {
		return fmt.Errorf("monitor %q not found", monitorName)
	}
	delete(m.paused, monitorName)
	return nil
}

func resolveDir(root, dir string) string {
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(root, dir)
}

// UseStorage overrides the default in-memory BlockStorage (e.g. with a
// SQLBlockStorage), must be called before Run.
func (m *Monitor) UseStorage(storage blockwatcher.BlockStorage) {
	m.storage = storage
}

// activeMonitors returns every monitor that is neither declared paused nor
// paused at runtime via Pause, mirroring filter_active_monitors in
// original_source/src/bootstrap/mod.rs.
func (m *Monitor) activeMonitors() []models.Monitor {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := m.monitors.All()
	out := make([]models.Monitor, 0, len(all))
	for _, monitor := range all {
		if monitor.IsActive() && !m.paused[monitor.Name] {
			out = append(out, monitor)
		}
	}
	return out
}

// isPaused reports whether monitorName carries a runtime pause override,
// consulted on every processed block so Pause/Resume take effect without
// restarting the pipeline.
func (m *Monitor) isPaused(monitorName string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.paused[monitorName]
}

// networkMonitors returns a lookup from network slug to the active
// monitors scoped to it, mirroring filter_network_monitors.
func networkMonitors(monitors []models.Monitor) func(string) []models.Monitor {
	bySlug := make(map[string][]models.Monitor)
	for _, monitor := range monitors {
		for _, net := range monitor.Networks {
			bySlug[net] = append(bySlug[net], monitor)
		}
	}
	return func(s string) []models.Monitor { return bySlug[s] }
}

// Run starts the scheduler, block pipeline, and trigger dispatch for every
// active network, blocking until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) error {
	active := m.activeMonitors()
	bySlug := networkMonitors(active)
	monitorsForNetwork := func(slug string) []models.Monitor {
		candidates := bySlug(slug)
		out := make([]models.Monitor, 0, len(candidates))
		for _, monitor := range candidates {
			if !m.isPaused(monitor.Name) {
				out = append(out, monitor)
			}
		}
		return out
	}

	m.blockCh = make(chan *blockwatcher.QueuedBlock, m.settings.BlockChannelSize)
	m.triggerCh = make(chan *models.ProcessedBlock, m.settings.TriggerChannelSize)

	tracker := blockwatcher.NewBlockTracker(m.settings.BlockHistorySize, m.storage)
	filterSvc := blockwatcher.NewDefaultFilterService()
	triggerSvc := triggersvc.NewService(m.triggers)
	if m.audit != nil {
		triggerSvc.SetAuditRecorder(m.audit)
	}

	handler := blockwatcher.NewBlockHandler(filterSvc, tracker, m.blockCh, m.triggerCh, monitorsForNetwork)
	triggerHandler := blockwatcher.NewTriggerHandler(triggerSvc, m.triggerCh)

	m.scheduler = blockwatcher.NewScheduler()

	networks := m.networks.All()
	scheduled := 0
	for slug, network := range networks {
		network := network
		if !hasActiveMonitors(active, slug) {
			continue
		}
		client, err := m.pool.GetClient(ctx, &network)
		if err != nil {
			return fmt.Errorf("building client for network %s: %w", slug, err)
		}
		watcher := blockwatcher.NewBlockWatcher(&network, client, m.storage, m.blockCh)
		if _, err := m.scheduler.Schedule(network.CronSchedule, func() {
			if err := watcher.Poll(ctx); err != nil {
				log.Errorw("bootstrap: poll failed", "network", slug, "error", err)
			}
		}); err != nil {
			return fmt.Errorf("scheduling network %s: %w", slug, err)
		}
		scheduled++
	}
	log.Infow("bootstrap: scheduled networks", "count", scheduled)

	go handler.Run(ctx, m.settings.NumWorkers)
	go triggerHandler.Run(ctx)

	m.scheduler.Start()
	defer m.scheduler.Stop(ctx)

	<-ctx.Done()
	return nil
}

// ExecuteMonitor evaluates monitorName against an explicit block (or each
// network's latest finalized block, when blockNumber is nil), scoped to a
// single network when networkSlug is given or to every network the
// monitor watches otherwise. A direct structural port of
// original_source/src/utils/monitor/execution.rs's execute_monitor.
func (m *Monitor) ExecuteMonitor(ctx context.Context, monitorName string, networkSlug *string, blockNumber *uint64) ([]models.MonitorMatch, error) {
	monitor, ok := m.monitors.Monitor(monitorName)
	if !ok {
		return nil, fmt.Errorf("monitor %q not found", monitorName)
	}

	var targetNetworks []models.Network
	if networkSlug != nil {
		network, ok := m.networks.Network(*networkSlug)
		if !ok {
			return nil, fmt.Errorf("network %q not found", *networkSlug)
		}
		targetNetworks = []models.Network{*network}
	} else {
		for slug, network := range m.networks.All() {
			if monitor.AppliesToNetwork(slug) {
				targetNetworks = append(targetNetworks, network)
			}
		}
	}

	filterSvc := blockwatcher.NewDefaultFilterService()

	var allMatches []models.MonitorMatch
	for _, network := range targetNetworks {
		network := network
		client, err := m.pool.GetClient(ctx, &network)
		if err != nil {
			return nil, fmt.Errorf("building client for network %s: %w", network.Slug, err)
		}

		height := blockNumber
		if height == nil {
			latest, err := client.LatestBlockNumber(ctx)
			if err != nil {
				return nil, fmt.Errorf("fetching latest block for network %s: %w", network.Slug, err)
			}
			confirmed := latest
			if network.ConfirmationBlock > 0 && network.ConfirmationBlock <= latest {
				confirmed = latest - network.ConfirmationBlock
			}
			height = &confirmed
		}

		blocks, err := client.GetBlocks(ctx, *height, *height)
		if err != nil {
			return nil, fmt.Errorf("fetching block %d on network %s: %w", *height, network.Slug, err)
		}
		for _, block := range blocks {
			matches, err := filterSvc.FilterBlock(ctx, client, &network, block, []models.Monitor{*monitor})
			if err != nil {
				return nil, fmt.Errorf("evaluating monitor %s on network %s: %w", monitorName, network.Slug, err)
			}
			allMatches = append(allMatches, matches...)
		}
	}

	return allMatches, nil
}

// hasActiveMonitors reports whether any active monitor watches slug,
// mirroring has_active_monitors.
func hasActiveMonitors(monitors []models.Monitor, slug string) bool {
	for _, monitor := range monitors {
		if monitor.AppliesToNetwork(slug) && monitor.IsActive() {
			return true
		}
	}
	return false
}
