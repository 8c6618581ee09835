// Package api implements the administrative HTTP REST API and WebSocket server
// of the KAKU bridge.
//
// This package provides:
//   - accessory listing and removal
//   - direct entity and scene commands, bypassing the host
//   - manual sync triggers and the cycle history
//   - a WebSocket stream of sync events and accessory state
//
// # Architecture
//
// The server is started by the platform after the first sync cycle and
// drives it through the Bridge interface. Sync results reach WebSocket
// clients on the "sync" channel; accessory state is relayed from the MQTT
// state topics on the "accessory.state" channel.
//
// # Security
//
// With api.jwt_secret set every route except /health needs an HS256 bearer
// token. WebSocket connections use single-use tickets from
// POST /auth/ws-ticket so the token never appears in a URL.
package api
