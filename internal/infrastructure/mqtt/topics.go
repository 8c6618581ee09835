package mqtt

import (
	"fmt"
	"strings"
)

// Topic root shared by everything the bridge publishes or consumes.
const TopicPrefix = "kaku"

// Suffixes of the per-accessory topics.
const (
	KindConfig = "config"
	KindState  = "state"
	KindSet    = "set"
)

// Topics builds the bridge's MQTT topic names.
//
//	topics := mqtt.Topics{}
//	topics.AccessoryState("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
//	// Returns: "kaku/accessory/6ba7b810-9dad-11d1-80b4-00c04fd430c8/state"
type Topics struct{}

// BridgeStatus is the retained online/offline topic. It doubles as the LWT topic.
func (Topics) BridgeStatus() string {
	return TopicPrefix + "/bridge/status"
}

// BridgeEvents carries non-retained sync cycle summaries.
func (Topics) BridgeEvents() string {
	return TopicPrefix + "/bridge/events"
}

// AccessoryConfig is the retained announcement for one accessory.
func (Topics) AccessoryConfig(uuid string) string {
	return accessoryTopic(uuid, KindConfig)
}

// AccessoryState is the retained characteristic state of one accessory.
func (Topics) AccessoryState(uuid string) string {
	return accessoryTopic(uuid, KindState)
}

// AccessorySet is where the host sends characteristic writes.
func (Topics) AccessorySet(uuid string) string {
	return accessoryTopic(uuid, KindSet)
}

// AllAccessoryCommands matches the set topic of every accessory.
func (Topics) AllAccessoryCommands() string {
	return TopicPrefix + "/accessory/+/" + KindSet
}

// AllAccessoryStates matches the state topic of every accessory.
func (Topics) AllAccessoryStates() string {
	return TopicPrefix + "/accessory/+/" + KindState
}

// AllAccessoryConfigs matches every retained announcement. Subscribing to it
// replays the announcements the broker still holds.
func (Topics) AllAccessoryConfigs() string {
	return TopicPrefix + "/accessory/+/" + KindConfig
}

func accessoryTopic(uuid, kind string) string {
	return fmt.Sprintf("%s/accessory/%s/%s", TopicPrefix, uuid, kind)
}

// ParseAccessoryTopic splits kaku/accessory/{uuid}/{kind}.
// ok is false for any other topic shape.
func ParseAccessoryTopic(topic string) (uuid, kind string, ok bool) {
	parts := strings.Split(topic, "/")
	if len(parts) != 4 || parts[0] != TopicPrefix || parts[1] != "accessory" {
		return "", "", false
	}
	if parts[2] == "" || parts[3] == "" {
		return "", "", false
	}
	return parts[2], parts[3], true
}
