package accessory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/aaaSuraj/homebridge-klikaanklikuit/internal/hub"
)

// MockRepository is an in-memory Repository for tests.
type MockRepository struct {
	mu      sync.Mutex
	records map[string]*Record
	saves   int
	listErr error
	saveErr error
}

func NewMockRepository(records ...*Record) *MockRepository {
	m := &MockRepository{records: make(map[string]*Record)}
	for _, r := range records {
		m.records[r.UUID] = r.Clone()
	}
	return m
}

func (m *MockRepository) List(context.Context) ([]*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]*Record, 0, len(m.records))
	for _, r := range m.records {
		out = append(out, r.Clone())
	}
	return out, nil
}

func (m *MockRepository) Save(_ context.Context, r *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.records[r.UUID] = r.Clone()
	return nil
}

func (m *MockRepository) Delete(_ context.Context, uuid string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[uuid]; !ok {
		return ErrAccessoryNotFound
	}
	delete(m.records, uuid)
	return nil
}

func testEntity(id int, name string) hub.Entity {
	return hub.Entity{ID: id, Name: name, DeviceType: 1, Capability: hub.CapabilitySwitch}
}

func TestRegistry_RefreshCache(t *testing.T) {
	repo := NewMockRepository(NewRecord(testEntity(1, "Hall")), NewRecord(testEntity(2, "Porch")))
	reg := NewRegistry(repo)

	if err := reg.RefreshCache(context.Background()); err != nil {
		t.Fatalf("RefreshCache() error = %v", err)
	}
	if reg.Count() != 2 {
		t.Errorf("Count() = %d, want 2", reg.Count())
	}

	rec, ok := reg.FindByID(GenerateUUID(2))
	if !ok || rec.DisplayName != "Porch" {
		t.Errorf("FindByID() = %+v, %v", rec, ok)
	}

	list := reg.List()
	if len(list) != 2 || list[0].EntityID() != 1 || list[1].EntityID() != 2 {
		t.Errorf("List() not ordered by entity id: %+v", list)
	}
}

func TestRegistry_RefreshCacheError(t *testing.T) {
	repo := NewMockRepository()
	repo.listErr = errors.New("disk gone")

	if err := NewRegistry(repo).RefreshCache(context.Background()); err == nil {
		t.Error("RefreshCache() expected error")
	}
}

func TestRegistry_Upsert(t *testing.T) {
	repo := NewMockRepository()
	reg := NewRegistry(repo)
	ctx := context.Background()

	rec := NewRecord(testEntity(5, "Lamp"))
	if err := reg.Upsert(ctx, rec); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	rec.Context.Device.Name = "Renamed"
	if err := reg.Upsert(ctx, rec); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	if reg.Count() != 1 {
		t.Errorf("Count() = %d, want 1 record per entity", reg.Count())
	}
	got, _ := reg.FindByID(rec.UUID)
	if got.Context.Device.Name != "Renamed" {
		t.Errorf("context not replaced: %+v", got.Context)
	}
	if repo.saves != 2 {
		t.Errorf("saves = %d, want 2", repo.saves)
	}
}

func TestRegistry_UpsertFailureLeavesCache(t *testing.T) {
	repo := NewMockRepository()
	repo.saveErr = errors.New("locked")
	reg := NewRegistry(repo)

	if err := reg.Upsert(context.Background(), NewRecord(testEntity(1, "Hall"))); err == nil {
		t.Fatal("Upsert() expected error")
	}
	if reg.Count() != 0 {
		t.Errorf("Count() = %d, want 0 after failed write", reg.Count())
	}
}

func TestRegistry_UpsertInvalid(t *testing.T) {
	reg := NewRegistry(NewMockRepository())
	if err := reg.Upsert(context.Background(), &Record{}); !errors.Is(err, ErrInvalidRecord) {
		t.Errorf("Upsert() error = %v, want ErrInvalidRecord", err)
	}
}

func TestRegistry_CopiesAreIndependent(t *testing.T) {
	reg := NewRegistry(NewMockRepository())
	rec := NewRecord(testEntity(1, "Hall"))
	if err := reg.Upsert(context.Background(), rec); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	got, _ := reg.FindByID(rec.UUID)
	got.DisplayName = "mutated"

	again, _ := reg.FindByID(rec.UUID)
	if again.DisplayName != "Hall" {
		t.Error("FindByID() exposed the cached record")
	}
}

func TestRegistry_Remove(t *testing.T) {
	reg := NewRegistry(NewMockRepository())
	ctx := context.Background()
	rec := NewRecord(testEntity(1, "Hall"))
	_ = reg.Upsert(ctx, rec)

	if err := reg.Remove(ctx, rec.UUID); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if _, ok := reg.FindByID(rec.UUID); ok {
		t.Error("record still cached after Remove()")
	}
	if err := reg.Remove(ctx, rec.UUID); !errors.Is(err, ErrAccessoryNotFound) {
		t.Errorf("second Remove() error = %v, want ErrAccessoryNotFound", err)
	}
}
