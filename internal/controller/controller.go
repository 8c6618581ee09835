package controller

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aaaSuraj/homebridge-klikaanklikuit/internal/hub"
	"github.com/aaaSuraj/homebridge-klikaanklikuit/internal/infrastructure/mqtt"
)

// Controller bridges one accessory to the host.
type Controller interface {
	// UUID is the accessory identifier.
	UUID() string

	// Entity is the hub entity behind the accessory.
	Entity() hub.Entity

	// Handle executes a command received from the host.
	Handle(ctx context.Context, cmd CommandMessage) error

	// Refresh publishes the state read from the hub status cache.
	Refresh() error
}

// Commander sends commands to the hub. *hub.Client satisfies it.
type Commander interface {
	RunFunction(ctx context.Context, entityID, function, value int, isGroup bool) error
	RunScene(ctx context.Context, sceneID int) error
	Status(entityID int) ([]int, bool)
}

// Publisher publishes MQTT messages. *mqtt.Client satisfies it.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// Logger is the logging interface used by controllers.
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

// base holds what every controller shares.
type base struct {
	uuid      string
	entity    hub.Entity
	commander Commander
	publisher Publisher
	qos       byte
}

func (b *base) UUID() string       { return b.uuid }
func (b *base) Entity() hub.Entity { return b.entity }

// status reads one function value from the cache. Functions the entity does
// not have are never known.
func (b *base) status(function int) (int, bool) {
	if function < 0 || b.commander == nil {
		return 0, false
	}
	values, ok := b.commander.Status(b.entity.ID)
	if !ok || function >= len(values) {
		return 0, false
	}
	return values[function], true
}

func (b *base) run(ctx context.Context, function, value int) error {
	return b.commander.RunFunction(ctx, b.entity.ID, function, value, b.entity.IsGroup)
}

// publishKnown publishes state unless nothing about it is known yet.
func (b *base) publishKnown(state map[string]any) error {
	if len(state) == 0 {
		return nil
	}
	return b.publish(state)
}

func (b *base) publish(state map[string]any) error {
	payload, err := json.Marshal(StateMessage{
		UUID:      b.uuid,
		EntityID:  b.entity.ID,
		Timestamp: time.Now().UTC(),
		State:     state,
	})
	if err != nil {
		return fmt.Errorf("marshalling state: %w", err)
	}
	if err := b.publisher.Publish(mqtt.Topics{}.AccessoryState(b.uuid), payload, b.qos, true); err != nil {
		return fmt.Errorf("publishing state of %s: %w", b.uuid, err)
	}
	return nil
}
