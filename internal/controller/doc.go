// Package controller turns accessory records into controllers that bridge
// an entity's hub status to its MQTT state and command topics.
//
// Dispatch is exhaustive over hub capabilities: Dispatcher implements
// hub.CapabilityVisitor, so a new capability does not compile until it has a
// controller here.
//
// Topics:
//
//	kaku/accessory/{uuid}/state   retained StateMessage
//	kaku/accessory/{uuid}/set     CommandMessage
package controller
