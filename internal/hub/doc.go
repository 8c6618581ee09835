// Package hub talks to a KAKU ICS-2000 hub and the KAKU cloud behind it.
//
// It covers the four things the synchronisation engine needs from the hub:
//
//   - Discoverer finds the hub on the LAN with a UDP broadcast probe, falling
//     back to a configured backup address when nothing answers in time.
//   - Session logs in to the cloud and holds the home id, hub MAC and the
//     AES key that protects entity data and commands.
//   - Client fetches and classifies entities, bulk-fetches their statuses
//     and sends commands.
//   - Entity and Capability describe what was found. Entity.Visit routes an
//     entity to exactly one CapabilityVisitor method.
//
// Local discovery and cloud calls are independent: the cloud API is used for
// every data and command call, the discovered address is informational and
// surfaced to operators.
package hub
