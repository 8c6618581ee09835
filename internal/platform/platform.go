package platform

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/aaaSuraj/homebridge-klikaanklikuit/internal/accessory"
	"github.com/aaaSuraj/homebridge-klikaanklikuit/internal/controller"
	"github.com/aaaSuraj/homebridge-klikaanklikuit/internal/hub"
	"github.com/aaaSuraj/homebridge-klikaanklikuit/internal/infrastructure/influxdb"
	"github.com/aaaSuraj/homebridge-klikaanklikuit/internal/infrastructure/mqtt"
)

const (
	// dailySchedule re-runs the full cycle at midnight, refreshing the
	// session key and the hub address.
	dailySchedule = "0 0 * * *"

	// commandTimeout bounds one host command, retries included.
	commandTimeout = 30 * time.Second

	// SyncEvent is the WebSocket channel cycle results are broadcast on.
	SyncEvent = "sync"
)

// Logger is the logging interface used by the package.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Hub is the session part of the hub client the cycle drives.
// *hub.Client satisfies it.
type Hub interface {
	Login(ctx context.Context) error
	FetchAllStatuses(ctx context.Context) (int, error)
}

// Discoverer finds the hub. *hub.Discoverer satisfies it.
type Discoverer interface {
	Discover(ctx context.Context, timeout time.Duration) (hub.DiscoveryResult, error)
}

// CatalogBuilder builds the entity catalog. *catalog.Builder satisfies it.
type CatalogBuilder interface {
	Build(ctx context.Context, includeScenes bool) ([]hub.Entity, error)
}

// Transport is the MQTT subset the platform needs. *mqtt.Client satisfies it.
type Transport interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
}

// Broadcaster fans cycle results out to WebSocket clients. *api.Hub
// satisfies it.
type Broadcaster interface {
	Broadcast(channel string, payload any)
}

// CycleRecorder writes cycle metrics. *influxdb.Client satisfies it.
type CycleRecorder interface {
	WriteSyncCycle(stats influxdb.CycleStats)
}

// AdminServer is the optional REST server started after the first cycle.
type AdminServer interface {
	Start(ctx context.Context) error
	Close() error
}

// Options are the behaviour switches of the platform.
type Options struct {
	DiscoveryTimeout time.Duration
	ShowScenes       bool
	HideReloadSwitch bool
	QoS              byte

	// Schedule fires the scheduled cycle. Nil means daily at midnight.
	Schedule cron.Schedule
}

// Deps holds the dependencies of the platform. Events, Metrics, History
// and Admin are optional.
type Deps struct {
	Options    Options
	Hub        Hub
	Discoverer Discoverer
	Catalog    CatalogBuilder
	Registry   *accessory.Registry
	Announcer  *accessory.Announcer
	Dispatcher Dispatcher
	Transport  Transport

	Events  Broadcaster
	Metrics CycleRecorder
	History HistoryStore
	Admin   AdminServer
	Logger  Logger
}

// Platform owns the accessory state and runs sync cycles.
//
// Thread Safety: all exported methods are safe for concurrent use.
type Platform struct {
	opts       Options
	hub        Hub
	discoverer Discoverer
	catalog    CatalogBuilder
	registry   *accessory.Registry
	announcer  *accessory.Announcer
	transport  Transport
	events     Broadcaster
	metrics    CycleRecorder
	history    HistoryStore
	admin      AdminServer
	logger     Logger

	controllers *controller.Table
	reconciler  *Reconciler
	runner      *Runner
	cron        *cron.Cron

	ctx      context.Context //nolint:containedctx // lifetime of background command handling
	commands sync.WaitGroup

	lastMu sync.RWMutex
	last   *CycleResult
}

// New creates a platform. It is not started until Start is called.
func New(deps Deps) (*Platform, error) {
	switch {
	case deps.Hub == nil:
		return nil, fmt.Errorf("%w: hub", ErrMissingDependency)
	case deps.Discoverer == nil:
		return nil, fmt.Errorf("%w: discoverer", ErrMissingDependency)
	case deps.Catalog == nil:
		return nil, fmt.Errorf("%w: catalog", ErrMissingDependency)
	case deps.Registry == nil:
		return nil, fmt.Errorf("%w: registry", ErrMissingDependency)
	case deps.Announcer == nil:
		return nil, fmt.Errorf("%w: announcer", ErrMissingDependency)
	case deps.Dispatcher == nil:
		return nil, fmt.Errorf("%w: dispatcher", ErrMissingDependency)
	case deps.Transport == nil:
		return nil, fmt.Errorf("%w: transport", ErrMissingDependency)
	}

	opts := deps.Options
	if opts.DiscoveryTimeout <= 0 {
		opts.DiscoveryTimeout = hub.DefaultDiscoveryTimeout
	}
	logger := deps.Logger
	if logger == nil {
		logger = noopLogger{}
	}

	p := &Platform{
		opts:        opts,
		hub:         deps.Hub,
		discoverer:  deps.Discoverer,
		catalog:     deps.Catalog,
		registry:    deps.Registry,
		announcer:   deps.Announcer,
		transport:   deps.Transport,
		events:      deps.Events,
		metrics:     deps.Metrics,
		history:     deps.History,
		admin:       deps.Admin,
		logger:      logger,
		controllers: controller.NewTable(),
		ctx:         context.Background(),
	}
	p.reconciler = NewReconciler(deps.Registry, deps.Announcer, deps.Dispatcher, p.controllers)
	p.reconciler.SetLogger(logger)
	p.runner = NewRunner(p.runCycle)
	return p, nil
}

// SetAdminServer sets the REST server started after the first cycle. It
// must be called before Start.
func (p *Platform) SetAdminServer(s AdminServer) {
	p.admin = s
}

// Start restores the accessory cache, runs the startup cycle and starts
// the reload switch, the admin server and the daily schedule.
//
// Only a failed cache restore or command subscription is returned; a
// failed startup cycle is logged and the platform keeps running.
func (p *Platform) Start(ctx context.Context) error {
	p.ctx = ctx

	// Nothing may be registered before the cache is restored, or known
	// accessories would be registered again.
	if err := p.registry.RefreshCache(ctx); err != nil {
		return fmt.Errorf("restoring accessory cache: %w", err)
	}

	go p.runner.Run(ctx)

	if err := p.transport.Subscribe(mqtt.Topics{}.AllAccessoryCommands(), p.opts.QoS, p.handleCommand); err != nil {
		return fmt.Errorf("subscribing to accessory commands: %w", err)
	}

	p.logger.Info("setup called")
	if err := p.runner.RunAndWait(ctx, SourceStartup); err != nil {
		p.logger.Error("setup failed", "error", err)
	}

	if p.opts.HideReloadSwitch {
		p.logger.Info("hiding reload switch as specified in config")
	} else if err := p.createReloadSwitch(); err != nil {
		p.logger.Error("creating reload switch", "error", err)
	}

	if p.admin != nil {
		if err := p.admin.Start(ctx); err != nil {
			p.logger.Error("error starting REST server", "error", err)
		}
	}

	schedule := p.opts.Schedule
	if schedule == nil {
		var err error
		if schedule, err = cron.ParseStandard(dailySchedule); err != nil {
			return fmt.Errorf("scheduling daily sync: %w", err)
		}
	}
	p.cron = cron.New()
	p.cron.Schedule(schedule, cron.FuncJob(func() { p.scheduledCycle() }))
	p.cron.Start()
	return nil
}

// Close stops the schedule and the admin server and waits for running
// commands. Cancel the context passed to Start to stop the runner.
func (p *Platform) Close() error {
	if p.cron != nil {
		<-p.cron.Stop().Done()
	}
	var err error
	if p.admin != nil {
		err = p.admin.Close()
	}
	p.commands.Wait()
	return err
}

// scheduledCycle queues a scheduled cycle. It returns false when the
// trigger was merged into an already queued cycle.
func (p *Platform) scheduledCycle() bool {
	p.logger.Info("pulling AES key from server and searching for hub as scheduled")
	if !p.runner.Trigger(SourceSchedule) {
		p.logger.Info("scheduled sync merged into queued cycle")
		return false
	}
	return true
}

func (p *Platform) createReloadSwitch() error {
	uuid := accessory.GenerateNamedUUID(controller.ReloadName)
	reload := controller.NewReloadSwitch(uuid, p.transport, p.opts.QoS, func(context.Context) error {
		// The cycle outlives the command that asked for it.
		return p.runner.RunAndWait(p.ctx, SourceReload)
	}, p.logger)

	now := time.Now().UTC()
	rec := &accessory.Record{
		UUID:        uuid,
		DisplayName: controller.ReloadName,
		Context:     accessory.Context{Device: reload.Entity()},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := p.announcer.Announce(rec); err != nil {
		return err
	}
	p.controllers.Put(reload)
	return reload.Refresh()
}

// runCycle is the CycleFunc of the runner.
func (p *Platform) runCycle(ctx context.Context, source Source) error {
	start := time.Now()
	result := CycleResult{Source: source, StartedAt: start.UTC()}

	err := p.cycle(ctx, &result)
	result.DurationMS = time.Since(start).Milliseconds()

	if err != nil {
		result.Error = err.Error()
		p.logger.Error("sync cycle failed", "source", source, "error", err)
	} else {
		p.logger.Info("sync cycle complete",
			"source", source,
			"registered", result.Report.Registered,
			"updated", result.Report.Updated,
			"skipped", result.Report.Skipped,
			"failed", result.Report.Failed,
			"duration_ms", result.DurationMS)
	}

	p.recordCycle(ctx, result, err)
	return err
}

func (p *Platform) cycle(ctx context.Context, result *CycleResult) error {
	p.logger.Info("searching hub")
	found, err := p.discoverer.Discover(ctx, p.opts.DiscoveryTimeout)
	if err != nil {
		return fmt.Errorf("failed to discover devices: %w", err)
	}
	if found.UsedBackupAddress {
		p.logger.Warn("hub did not answer discovery in time, using backup address; it may be out of date",
			"address", found.Address)
	}
	result.Address = found.Address
	result.UsedBackupAddress = found.UsedBackupAddress
	p.logger.Info("found hub", "address", found.Address)

	if err := p.hub.Login(ctx); err != nil {
		return fmt.Errorf("logging in: %w", err)
	}

	p.logger.Info("pulling devices from server")
	var entities []hub.Entity
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		entities, err = p.catalog.Build(gctx, p.opts.ShowScenes)
		return err
	})
	g.Go(func() error {
		n, err := p.hub.FetchAllStatuses(gctx)
		if err != nil {
			p.logger.Warn("fetching statuses", "error", err)
			return nil
		}
		p.logger.Debug("statuses fetched", "count", n)
		return nil
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("error pulling devices: %w", err)
	}

	result.Report = p.reconciler.Reconcile(ctx, entities)

	for _, rec := range StaleRecords(p.registry.List(), entities) {
		p.logger.Warn("accessory no longer in catalog",
			"uuid", rec.UUID,
			"name", rec.DisplayName,
			"entity_id", rec.EntityID())
		result.Report.Stale = append(result.Report.Stale, rec.EntityID())
	}

	p.refreshStates()
	return nil
}

// refreshStates republishes every controller's cached state.
func (p *Platform) refreshStates() {
	for _, c := range p.controllers.All() {
		if err := c.Refresh(); err != nil {
			p.logger.Warn("publishing accessory state", "uuid", c.UUID(), "error", err)
		}
	}
}

func (p *Platform) recordCycle(ctx context.Context, result CycleResult, err error) {
	p.lastMu.Lock()
	p.last = &result
	p.lastMu.Unlock()

	if p.events != nil {
		p.events.Broadcast(SyncEvent, result)
	}
	if data, merr := json.Marshal(result); merr == nil {
		if perr := p.transport.Publish(mqtt.Topics{}.BridgeEvents(), data, p.opts.QoS, false); perr != nil {
			p.logger.Warn("publishing sync summary", "error", perr)
		}
	}
	if p.metrics != nil {
		p.metrics.WriteSyncCycle(influxdb.CycleStats{
			Source:     string(result.Source),
			StartedAt:  result.StartedAt,
			Duration:   time.Duration(result.DurationMS) * time.Millisecond,
			Registered: result.Report.Registered,
			Updated:    result.Report.Updated,
			Skipped:    result.Report.Skipped,
			Failed:     result.Report.Failed,
			Err:        err,
		})
	}
	if p.history != nil {
		// Recorded even when ctx is being cancelled so shutdown keeps the last outcome.
		if herr := p.history.Record(context.WithoutCancel(ctx), result); herr != nil {
			p.logger.Warn("recording sync history", "error", herr)
		}
	}
}

// handleCommand receives kaku/accessory/{uuid}/set messages. Commands run
// in the background so the MQTT client is never blocked.
func (p *Platform) handleCommand(topic string, payload []byte) error {
	uuid, kind, ok := mqtt.ParseAccessoryTopic(topic)
	if !ok || kind != mqtt.KindSet {
		return fmt.Errorf("unexpected command topic %q", topic)
	}

	var cmd controller.CommandMessage
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return fmt.Errorf("parsing command for %s: %w", uuid, err)
	}
	if cmd.Source == "" {
		cmd.Source = "host"
	}

	c, ok := p.controllers.Get(uuid)
	if !ok {
		return fmt.Errorf("%w: %s", accessory.ErrAccessoryNotFound, uuid)
	}

	p.commands.Add(1)
	go func() {
		defer p.commands.Done()
		ctx, cancel := context.WithTimeout(p.ctx, commandTimeout)
		defer cancel()

		p.logger.Debug("received command", "uuid", uuid, "command", cmd.Command, "command_id", cmd.ID)
		if err := c.Handle(ctx, cmd); err != nil {
			p.logger.Error("command failed", "uuid", uuid, "command", cmd.Command, "error", err)
		}
	}()
	return nil
}

// TriggerSync queues a cycle from the admin API. It returns false when
// the trigger was merged into an already queued cycle.
func (p *Platform) TriggerSync() bool {
	return p.runner.Trigger(SourceAPI)
}

// Syncing reports whether a cycle is running or queued.
func (p *Platform) Syncing() bool {
	return p.runner.Busy()
}

// LastCycle returns the result of the most recent cycle.
func (p *Platform) LastCycle() (CycleResult, bool) {
	p.lastMu.RLock()
	defer p.lastMu.RUnlock()
	if p.last == nil {
		return CycleResult{}, false
	}
	return *p.last, true
}

// History returns up to limit past results, newest first. Without a
// history store only the last result is known.
func (p *Platform) History(ctx context.Context, limit int) ([]CycleResult, error) {
	if p.history == nil {
		if last, ok := p.LastCycle(); ok {
			return []CycleResult{last}, nil
		}
		return nil, nil
	}
	return p.history.Recent(ctx, limit)
}

// Accessories returns every persisted accessory ordered by entity id.
func (p *Platform) Accessories() []*accessory.Record {
	return p.registry.List()
}

// Accessory returns one persisted accessory.
func (p *Platform) Accessory(uuid string) (*accessory.Record, bool) {
	return p.registry.FindByID(uuid)
}

// RemoveAccessory unregisters an accessory from the host. If its entity
// is still in the catalog the next cycle registers it again.
func (p *Platform) RemoveAccessory(ctx context.Context, uuid string) error {
	rec, ok := p.registry.FindByID(uuid)
	if !ok {
		return accessory.ErrAccessoryNotFound
	}
	if err := p.announcer.Unregister(ctx, uuid); err != nil {
		return err
	}
	p.controllers.Delete(uuid)
	p.reconciler.Forget(rec.EntityID())
	p.logger.Info("accessory removed", "uuid", uuid, "entity_id", rec.EntityID())
	return nil
}

// Command runs a command on the controller of a hub entity.
func (p *Platform) Command(ctx context.Context, entityID int, cmd controller.CommandMessage) error {
	c, ok := p.controllers.ByEntity(entityID)
	if !ok || entityID < 0 {
		return fmt.Errorf("%w: %d", ErrEntityNotFound, entityID)
	}
	return c.Handle(ctx, cmd)
}

// IsNotFound reports whether err means the addressed entity or accessory
// does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEntityNotFound) || errors.Is(err, accessory.ErrAccessoryNotFound)
}
