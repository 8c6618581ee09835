package hub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"
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

// Kind tells modules, groups and scenes apart in raw entity data.
type Kind string

const (
	KindModule Kind = "module"
	KindGroup  Kind = "group"
	KindScene  Kind = "scene"
)

// RawEntity is one decrypted record of the batched entity fetch.
type RawEntity struct {
	ID         int
	Kind       Kind
	Name       string
	DeviceType int
	Disabled   bool
}

// sceneFunction and sceneValue start a scene.
const (
	sceneFunction = 0
	sceneValue    = 1
)

// Client is the hub API used by the engine, the controllers and the admin server.
//
// Thread Safety:
//   - Safe for concurrent use. The status cache is guarded by its own lock.
type Client struct {
	session   *Session
	overrides map[int]Override
	retry     RetryConfig

	mu       sync.RWMutex
	statuses map[int][]int

	logger Logger
}

// NewClient creates a Client on an existing session.
func NewClient(session *Session, overrides map[int]Override) *Client {
	return &Client{
		session:   session,
		overrides: overrides,
		retry:     DefaultRetryConfig(),
		statuses:  make(map[int][]int),
		logger:    noopLogger{},
	}
}

// SetLogger sets the logger.
func (c *Client) SetLogger(logger Logger) {
	if logger != nil {
		c.logger = logger
	}
}

// SetRetry replaces the command retry policy.
func (c *Client) SetRetry(cfg RetryConfig) {
	c.retry = cfg
}

// Login authenticates the session.
func (c *Client) Login(ctx context.Context) error {
	return c.session.Login(ctx)
}

type syncRecord struct {
	ID     flexString `json:"id"`
	Data   string     `json:"data"`
	Status string     `json:"status"`
}

type rawModule struct {
	ID       flexInt `json:"id"`
	Name     string  `json:"name"`
	Device   flexInt `json:"device"`
	Disabled bool    `json:"disabled"`
}

type rawData struct {
	Module *rawModule `json:"module"`
	Group  *rawModule `json:"group"`
	Scene  *rawModule `json:"scene"`
}

type rawStatus struct {
	Module *struct {
		ID        flexInt `json:"id"`
		Functions []int   `json:"functions"`
	} `json:"module"`
}

// sync performs the single batched gateway call both fetches are built on.
func (c *Client) sync(ctx context.Context) ([]syncRecord, Home, error) {
	form, home, err := c.session.authForm("sync")
	if err != nil {
		return nil, Home{}, err
	}
	body, err := c.session.post(ctx, "gateway.php", form)
	if err != nil {
		return nil, Home{}, err
	}
	var records []syncRecord
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, Home{}, fmt.Errorf("parsing sync response: %w", err)
	}
	return records, home, nil
}

// FetchRawEntityData fetches and decrypts every entity of the home.
// Records that do not decrypt are skipped and logged; a failed call fails
// the whole fetch with ErrCatalogFetch.
func (c *Client) FetchRawEntityData(ctx context.Context) ([]RawEntity, error) {
	records, home, err := c.sync(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCatalogFetch, err)
	}

	entities := make([]RawEntity, 0, len(records))
	for _, rec := range records {
		if rec.Data == "" {
			continue
		}
		plain, err := decrypt(home.AESKey, rec.Data)
		if err != nil {
			c.logger.Warn("skipping undecryptable entity", "id", string(rec.ID), "error", err)
			continue
		}

		var data rawData
		if err := json.Unmarshal(plain, &data); err != nil {
			c.logger.Warn("skipping malformed entity", "id", string(rec.ID), "error", err)
			continue
		}

		switch {
		case data.Module != nil:
			entities = append(entities, data.Module.raw(KindModule))
		case data.Group != nil:
			entities = append(entities, data.Group.raw(KindGroup))
		case data.Scene != nil:
			entities = append(entities, data.Scene.raw(KindScene))
		}
	}
	return entities, nil
}

func (m *rawModule) raw(kind Kind) RawEntity {
	return RawEntity{
		ID:         int(m.ID),
		Kind:       kind,
		Name:       m.Name,
		DeviceType: int(m.Device),
		Disabled:   m.Disabled,
	}
}

// ClassifyEntities turns modules and groups into entities. Device types
// without a known layout or override get CapabilityUnsupported.
func (c *Client) ClassifyEntities(raw []RawEntity) []Entity {
	var out []Entity
	for _, r := range raw {
		if r.Kind == KindScene {
			continue
		}
		layout := layoutFor(r.DeviceType, c.overrides)
		out = append(out, Entity{
			ID:         r.ID,
			Name:       r.Name,
			DeviceType: r.DeviceType,
			Capability: layout.Capability,
			Disabled:   r.Disabled,
			IsGroup:    r.Kind == KindGroup,
			Functions:  layout.Functions,
		})
	}
	return out
}

// Scenes returns the scenes in raw.
func (c *Client) Scenes(raw []RawEntity) []Entity {
	var out []Entity
	for _, r := range raw {
		if r.Kind != KindScene {
			continue
		}
		out = append(out, Entity{
			ID:         r.ID,
			Name:       r.Name,
			DeviceType: r.DeviceType,
			Capability: CapabilityScene,
			Disabled:   r.Disabled,
			Functions:  Functions{OnOff: noFunction, Dim: noFunction, ColorTemperature: noFunction},
		})
	}
	return out
}

// FetchAllStatuses refreshes the status cache for every entity and returns
// the number of statuses cached.
func (c *Client) FetchAllStatuses(ctx context.Context) (int, error) {
	records, home, err := c.sync(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrStatusFetch, err)
	}

	fresh := make(map[int][]int, len(records))
	for _, rec := range records {
		if rec.Status == "" {
			continue
		}
		plain, err := decrypt(home.AESKey, rec.Status)
		if err != nil {
			c.logger.Debug("skipping undecryptable status", "id", string(rec.ID), "error", err)
			continue
		}
		var st rawStatus
		if err := json.Unmarshal(plain, &st); err != nil || st.Module == nil {
			continue
		}
		fresh[int(st.Module.ID)] = st.Module.Functions
	}

	c.mu.Lock()
	c.statuses = fresh
	c.mu.Unlock()
	return len(fresh), nil
}

// Status returns a copy of the cached function values of an entity.
func (c *Client) Status(entityID int) ([]int, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	st, ok := c.statuses[entityID]
	if !ok {
		return nil, false
	}
	return append([]int(nil), st...), true
}

type commandPayload struct {
	EntityID int  `json:"entity_id"`
	Function int  `json:"function"`
	Value    int  `json:"value"`
	Group    bool `json:"group"`
}

// RunFunction sets one function of an entity. Transient cloud errors are
// retried. On success the status cache reflects the new value.
func (c *Client) RunFunction(ctx context.Context, entityID, function, value int, isGroup bool) error {
	if function < 0 {
		return fmt.Errorf("%w: entity %d has no such function", ErrCommand, entityID)
	}

	form, home, err := c.session.authForm("add")
	if err != nil {
		return err
	}

	payload, err := json.Marshal(commandPayload{EntityID: entityID, Function: function, Value: value, Group: isGroup})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCommand, err)
	}
	command, err := encrypt(home.AESKey, payload)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCommand, err)
	}
	form.Set("device_unique_id", deviceUniqueID)
	form.Set("entity_id", strconv.Itoa(entityID))
	form.Set("command", command)

	start := time.Now()
	err = WithRetry(ctx, c.retry, func() error {
		_, err := c.session.post(ctx, "command.php", form)
		return err
	})
	if err != nil {
		return fmt.Errorf("%w: entity %d function %d: %w", ErrCommand, entityID, function, err)
	}
	c.logger.Debug("command sent", "entity_id", entityID, "function", function, "value", value, "latency", time.Since(start))

	c.mu.Lock()
	st := c.statuses[entityID]
	for len(st) <= function {
		st = append(st, 0)
	}
	st[function] = value
	c.statuses[entityID] = st
	c.mu.Unlock()
	return nil
}

// RunScene starts a scene.
func (c *Client) RunScene(ctx context.Context, sceneID int) error {
	return c.RunFunction(ctx, sceneID, sceneFunction, sceneValue, false)
}

// flexInt accepts JSON numbers and numeric strings.
type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	var n int
	if err := json.Unmarshal(b, &n); err == nil {
		*f = flexInt(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return errors.New("expected number or numeric string")
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("expected numeric string: %w", err)
	}
	*f = flexInt(n)
	return nil
}
