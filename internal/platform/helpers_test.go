package platform

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/aaaSuraj/homebridge-klikaanklikuit/internal/accessory"
	"github.com/aaaSuraj/homebridge-klikaanklikuit/internal/controller"
	"github.com/aaaSuraj/homebridge-klikaanklikuit/internal/hub"
	"github.com/aaaSuraj/homebridge-klikaanklikuit/internal/infrastructure/mqtt"
)

// memoryRepository is an in-memory accessory.Repository.
type memoryRepository struct {
	mu      sync.Mutex
	records map[string]*accessory.Record
}

func newMemoryRepository(records ...*accessory.Record) *memoryRepository {
	m := &memoryRepository{records: make(map[string]*accessory.Record)}
	for _, r := range records {
		m.records[r.UUID] = r.Clone()
	}
	return m
}

func (m *memoryRepository) List(context.Context) ([]*accessory.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*accessory.Record, 0, len(m.records))
	for _, r := range m.records {
		out = append(out, r.Clone())
	}
	return out, nil
}

func (m *memoryRepository) Save(_ context.Context, r *accessory.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[r.UUID] = r.Clone()
	return nil
}

func (m *memoryRepository) Delete(_ context.Context, uuid string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[uuid]; !ok {
		return accessory.ErrAccessoryNotFound
	}
	delete(m.records, uuid)
	return nil
}

// countingCache wraps a registry and counts updates.
type countingCache struct {
	*accessory.Registry
	mu      sync.Mutex
	upserts int
}

func (c *countingCache) Upsert(ctx context.Context, r *accessory.Record) error {
	c.mu.Lock()
	c.upserts++
	c.mu.Unlock()
	return c.Registry.Upsert(ctx, r)
}

// fakeRegistrar records registration calls and stores new records in cache.
type fakeRegistrar struct {
	cache      accessory.Cache
	mu         sync.Mutex
	registered []*accessory.Record
	announced  int
	err        error
}

func (f *fakeRegistrar) RegisterNewAccessory(ctx context.Context, rec *accessory.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.registered = append(f.registered, rec.Clone())
	return f.cache.Upsert(ctx, rec)
}

func (f *fakeRegistrar) Announce(*accessory.Record) error {
	f.mu.Lock()
	f.announced++
	f.mu.Unlock()
	return nil
}

func (f *fakeRegistrar) registrations() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.registered)
}

// recordingDispatcher wraps the real dispatcher and records what it saw.
type recordingDispatcher struct {
	next *controller.Dispatcher
	mu   sync.Mutex
	seen []hub.Entity
}

func (d *recordingDispatcher) Dispatch(rec *accessory.Record) (controller.Controller, error) {
	d.mu.Lock()
	d.seen = append(d.seen, rec.Context.Device)
	d.mu.Unlock()
	return d.next.Dispatch(rec)
}

type fakeCommander struct {
	mu       sync.Mutex
	statuses map[int][]int
}

func (f *fakeCommander) RunFunction(_ context.Context, entityID, function, value int, _ bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.statuses == nil {
		f.statuses = make(map[int][]int)
	}
	st := f.statuses[entityID]
	for len(st) <= function {
		st = append(st, 0)
	}
	st[function] = value
	f.statuses[entityID] = st
	return nil
}

func (f *fakeCommander) RunScene(context.Context, int) error { return nil }

func (f *fakeCommander) Status(entityID int) ([]int, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	st, ok := f.statuses[entityID]
	return append([]int(nil), st...), ok
}

type published struct {
	topic    string
	payload  []byte
	retained bool
}

// fakeTransport records publishes and keeps subscribed handlers.
type fakeTransport struct {
	mu        sync.Mutex
	messages  []published
	handlers  map[string]mqtt.MessageHandler
	subscribe error
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{handlers: make(map[string]mqtt.MessageHandler)}
}

func (f *fakeTransport) Publish(topic string, payload []byte, _ byte, retained bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, published{topic, payload, retained})
	return nil
}

func (f *fakeTransport) Subscribe(topic string, _ byte, handler mqtt.MessageHandler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.subscribe != nil {
		return f.subscribe
	}
	f.handlers[topic] = handler
	return nil
}

func (f *fakeTransport) handler(topic string) mqtt.MessageHandler {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.handlers[topic]
}

func (f *fakeTransport) published(topic string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, m := range f.messages {
		if m.topic == topic {
			n++
		}
	}
	return n
}

type fakeDiscoverer struct {
	result hub.DiscoveryResult
	err    error

	mu      sync.Mutex
	calls   int
	entered chan struct{} // signalled when Discover starts, if set
	release chan struct{} // Discover waits for it, if set
}

func (f *fakeDiscoverer) Discover(ctx context.Context, _ time.Duration) (hub.DiscoveryResult, error) {
	f.mu.Lock()
	f.calls++
	entered, release := f.entered, f.release
	f.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return hub.DiscoveryResult{}, ctx.Err()
		}
	}
	return f.result, f.err
}

// block makes later Discover calls signal entered and wait for release.
func (f *fakeDiscoverer) block() (entered, release chan struct{}) {
	entered, release = make(chan struct{}, 1), make(chan struct{})
	f.mu.Lock()
	f.entered, f.release = entered, release
	f.mu.Unlock()
	return entered, release
}

func (f *fakeDiscoverer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeHub struct {
	mu        sync.Mutex
	logins    int
	loginErr  error
	statusErr error
}

func (f *fakeHub) Login(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logins++
	return f.loginErr
}

func (f *fakeHub) loginCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.logins
}

func (f *fakeHub) FetchAllStatuses(context.Context) (int, error) {
	if f.statusErr != nil {
		return 0, f.statusErr
	}
	return 0, nil
}

type fakeCatalog struct {
	mu       sync.Mutex
	entities []hub.Entity
	err      error
	builds   int
}

func (f *fakeCatalog) Build(context.Context, bool) ([]hub.Entity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.builds++
	if f.err != nil {
		return nil, f.err
	}
	return append([]hub.Entity(nil), f.entities...), nil
}

func (f *fakeCatalog) set(entities ...hub.Entity) {
	f.mu.Lock()
	f.entities = entities
	f.mu.Unlock()
}

var errBoom = errors.New("boom")

func switchEntity(id int, name string) hub.Entity {
	return hub.Entity{ID: id, Name: name, DeviceType: 1, Capability: hub.CapabilitySwitch,
		Functions: hub.Functions{OnOff: 0, Dim: -1, ColorTemperature: -1}}
}

func dimmerEntity(id int, name string) hub.Entity {
	return hub.Entity{ID: id, Name: name, DeviceType: 24, Capability: hub.CapabilityDimmable,
		Functions: hub.Functions{OnOff: 3, Dim: 4, ColorTemperature: -1}}
}

// staticSource is a catalog.Source returning fixed entities.
type staticSource struct {
	entities []hub.Entity
}

func (s *staticSource) FetchRawEntityData(context.Context) ([]hub.RawEntity, error) {
	return nil, nil
}

func (s *staticSource) ClassifyEntities([]hub.RawEntity) []hub.Entity {
	var out []hub.Entity
	for _, e := range s.entities {
		if !e.IsScene() {
			out = append(out, e)
		}
	}
	return out
}

func (s *staticSource) Scenes([]hub.RawEntity) []hub.Entity {
	var out []hub.Entity
	for _, e := range s.entities {
		if e.IsScene() {
			out = append(out, e)
		}
	}
	return out
}
