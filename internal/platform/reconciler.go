package platform

import (
	"context"
	"fmt"
	"sync"

	"github.com/aaaSuraj/homebridge-klikaanklikuit/internal/accessory"
	"github.com/aaaSuraj/homebridge-klikaanklikuit/internal/controller"
	"github.com/aaaSuraj/homebridge-klikaanklikuit/internal/hub"
)

// Registrar registers accessories with the host. *accessory.Announcer
// satisfies it.
type Registrar interface {
	// RegisterNewAccessory persists and announces a record the host has
	// never seen.
	RegisterNewAccessory(ctx context.Context, rec *accessory.Record) error

	// Announce republishes a known record.
	Announce(rec *accessory.Record) error
}

// Dispatcher picks the controller of a record. *controller.Dispatcher
// satisfies it.
type Dispatcher interface {
	Dispatch(rec *accessory.Record) (controller.Controller, error)
}

// Report counts what one reconciliation did.
type Report struct {
	Registered int   `json:"registered"`
	Updated    int   `json:"updated"`
	Skipped    int   `json:"skipped"`
	Failed     int   `json:"failed"`
	Stale      []int `json:"stale,omitempty"`
}

// Reconciler matches catalog entities with accessory records.
//
// It owns the set of entity ids handled in this process. An id in the set
// is skipped by later cycles; its controller stays live and is refreshed
// from the status cache instead.
type Reconciler struct {
	cache       accessory.Cache
	registrar   Registrar
	dispatcher  Dispatcher
	controllers *controller.Table

	mu         sync.Mutex
	registered map[int]struct{}

	logger Logger
}

// NewReconciler creates a reconciler. Controllers of handled entities are
// stored in controllers.
func NewReconciler(cache accessory.Cache, registrar Registrar, dispatcher Dispatcher, controllers *controller.Table) *Reconciler {
	return &Reconciler{
		cache:       cache,
		registrar:   registrar,
		dispatcher:  dispatcher,
		controllers: controllers,
		registered:  make(map[int]struct{}),
		logger:      noopLogger{},
	}
}

// SetLogger sets the logger.
func (r *Reconciler) SetLogger(logger Logger) {
	if logger != nil {
		r.logger = logger
	}
}

// Reconcile handles every entity not handled before. Failures are logged
// and counted per entity; a failed entity is retried by the next cycle.
func (r *Reconciler) Reconcile(ctx context.Context, entities []hub.Entity) Report {
	r.mu.Lock()
	defer r.mu.Unlock()

	var report Report
	for _, e := range entities {
		if _, done := r.registered[e.ID]; done {
			report.Skipped++
			continue
		}

		updated, err := r.reconcileEntity(ctx, e)
		if err != nil {
			r.logger.Error("error registering entity",
				"entity_id", e.ID,
				"name", e.Name,
				"device_type", e.DeviceType,
				"error", err)
			report.Failed++
			continue
		}

		if updated {
			report.Updated++
		} else {
			report.Registered++
		}
		r.registered[e.ID] = struct{}{}
	}
	return report
}

func (r *Reconciler) reconcileEntity(ctx context.Context, e hub.Entity) (updated bool, err error) {
	uuid := accessory.GenerateUUID(e.ID)

	if rec, ok := r.cache.FindByID(uuid); ok {
		rec.Context.Device = e
		c, err := r.dispatcher.Dispatch(rec)
		if err != nil {
			return true, err
		}
		if err := r.cache.Upsert(ctx, rec); err != nil {
			return true, fmt.Errorf("%w: updating %s: %w", ErrRegistration, uuid, err)
		}
		if err := r.registrar.Announce(rec); err != nil {
			r.logger.Warn("republishing accessory", "uuid", uuid, "error", err)
		}
		r.controllers.Put(c)
		r.logger.Info("loaded entity from cache", "name", e.Name, "entity_id", e.ID, "device_type", e.DeviceType)
		return true, nil
	}

	rec := accessory.NewRecord(e)
	c, err := r.dispatcher.Dispatch(rec)
	if err != nil {
		return false, err
	}
	if err := r.registrar.RegisterNewAccessory(ctx, rec); err != nil {
		return false, fmt.Errorf("%w: %w", ErrRegistration, err)
	}
	r.controllers.Put(c)
	r.logger.Info("loaded new entity", "name", e.Name, "entity_id", e.ID, "device_type", e.DeviceType)
	return false, nil
}

// Forget removes an entity id from the handled set so the next cycle
// reconciles it again.
func (r *Reconciler) Forget(entityID int) {
	r.mu.Lock()
	delete(r.registered, entityID)
	r.mu.Unlock()
}

// Registered reports whether an entity id has been handled.
func (r *Reconciler) Registered(entityID int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.registered[entityID]
	return ok
}

// StaleRecords returns the records whose entity is not in the catalog.
func StaleRecords(records []*accessory.Record, entities []hub.Entity) []*accessory.Record {
	present := make(map[int]struct{}, len(entities))
	for _, e := range entities {
		present[e.ID] = struct{}{}
	}

	var stale []*accessory.Record
	for _, rec := range records {
		if _, ok := present[rec.EntityID()]; !ok {
			stale = append(stale, rec)
		}
	}
	return stale
}
