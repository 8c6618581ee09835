// Package platform runs the device synchronisation engine.
//
// One sync cycle is:
//
//	discover -> login -> (build catalog || fetch statuses) -> reconcile
//
// Cycles are started at startup, every day at midnight, from the reload
// switch and from the admin API. All triggers go through a single Runner,
// so cycles never overlap: a trigger arriving while a cycle is queued is
// merged into it.
//
// Errors inside a cycle end that cycle and are logged. Per-entity errors
// during reconciliation are logged and counted; the remaining entities are
// still processed.
package platform
