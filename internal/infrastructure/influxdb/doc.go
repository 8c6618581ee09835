// Package influxdb records bridge telemetry in InfluxDB v2.
//
// Two measurements are written:
//
//	sync_cycle  one point per sync cycle (trigger, duration, outcome counts)
//	command     one point per command sent to the hub
//
// Writes are non-blocking and batched by the client library according to
// batch_size and flush_interval. Asynchronous write failures are delivered
// to the callback set with SetOnError.
//
// InfluxDB is optional: Connect returns ErrDisabled when influxdb.enabled is
// false and the caller runs without telemetry.
package influxdb
