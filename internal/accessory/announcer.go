package accessory

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aaaSuraj/homebridge-klikaanklikuit/internal/hub"
	"github.com/aaaSuraj/homebridge-klikaanklikuit/internal/infrastructure/mqtt"
)

// Publisher is the MQTT subset the announcer needs. *mqtt.Client satisfies it.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// Announcement is the retained payload on kaku/accessory/{uuid}/config.
type Announcement struct {
	UUID         string         `json:"uuid"`
	Name         string         `json:"name"`
	Plugin       string         `json:"plugin"`
	Platform     string         `json:"platform"`
	EntityID     int            `json:"entity_id"`
	DeviceType   int            `json:"device_type"`
	Capability   hub.Capability `json:"capability"`
	IsGroup      bool           `json:"is_group,omitempty"`
	StateTopic   string         `json:"state_topic"`
	CommandTopic string         `json:"command_topic"`
}

// Announcer registers accessories with the host.
type Announcer struct {
	registry  *Registry
	publisher Publisher
	plugin    string
	platform  string
	qos       byte
}

// NewAnnouncer creates an announcer publishing on behalf of plugin/platform.
func NewAnnouncer(registry *Registry, publisher Publisher, plugin, platform string, qos byte) *Announcer {
	return &Announcer{
		registry:  registry,
		publisher: publisher,
		plugin:    plugin,
		platform:  platform,
		qos:       qos,
	}
}

// RegisterNewAccessory persists rec and announces it to the host. The
// record is stored before publishing so a restart never re-registers an
// accessory the host already knows.
func (a *Announcer) RegisterNewAccessory(ctx context.Context, rec *Record) error {
	if err := a.registry.Upsert(ctx, rec); err != nil {
		return fmt.Errorf("persisting accessory %s: %w", rec.UUID, err)
	}
	return a.Announce(rec)
}

// Announce publishes the retained announcement for rec without persisting it.
func (a *Announcer) Announce(rec *Record) error {
	payload, err := json.Marshal(a.announcement(rec))
	if err != nil {
		return fmt.Errorf("marshalling announcement: %w", err)
	}
	if err := a.publisher.Publish(mqtt.Topics{}.AccessoryConfig(rec.UUID), payload, a.qos, true); err != nil {
		return fmt.Errorf("announcing accessory %s: %w", rec.UUID, err)
	}
	return nil
}

// Unregister removes the record and clears its retained announcement and
// state.
func (a *Announcer) Unregister(ctx context.Context, uuid string) error {
	if err := a.registry.Remove(ctx, uuid); err != nil {
		return err
	}
	topics := mqtt.Topics{}
	for _, topic := range []string{topics.AccessoryConfig(uuid), topics.AccessoryState(uuid)} {
		// An empty retained payload deletes the retained message.
		if err := a.publisher.Publish(topic, nil, a.qos, true); err != nil {
			return fmt.Errorf("clearing %s: %w", topic, err)
		}
	}
	return nil
}

func (a *Announcer) announcement(rec *Record) Announcement {
	topics := mqtt.Topics{}
	e := rec.Context.Device
	return Announcement{
		UUID:         rec.UUID,
		Name:         rec.DisplayName,
		Plugin:       a.plugin,
		Platform:     a.platform,
		EntityID:     e.ID,
		DeviceType:   e.DeviceType,
		Capability:   e.Capability,
		IsGroup:      e.IsGroup,
		StateTopic:   topics.AccessoryState(rec.UUID),
		CommandTopic: topics.AccessorySet(rec.UUID),
	}
}
