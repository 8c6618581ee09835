// Package mqtt connects the KAKU bridge to the host's MQTT broker.
//
// The host (a home automation controller) learns about accessories from
// retained announcements the bridge publishes here, reads their state
// from retained state topics and sends commands on per-accessory set
// topics.
//
//	KAKU bridge ↔ MQTT broker ↔ host
//
// The client reconnects on its own and restores subscriptions after every
// reconnect. A retained Last Will on kaku/bridge/status tells the host when
// the bridge disappears without a clean shutdown.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.AllAccessoryCommands(), 1,
//	    func(topic string, payload []byte) error {
//	        id, kind, ok := mqtt.ParseAccessoryTopic(topic)
//	        ...
//	    })
package mqtt
