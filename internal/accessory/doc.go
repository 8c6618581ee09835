// Package accessory manages the bridge's accessory records.
//
// A Record is the host-facing representation of one hub entity. Its UUID is
// derived from the entity id with GenerateUUID, so the same entity always
// maps to the same record across restarts. Records are persisted in SQLite
// and cached in memory by Registry; Announcer publishes new records to the
// host over MQTT.
package accessory
