package influxdb

import (
	"strconv"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// CycleStats summarises one sync cycle.
type CycleStats struct {
	// Source is what started the cycle: startup, reload, schedule or api.
	Source     string
	StartedAt  time.Time
	Duration   time.Duration
	Registered int
	Updated    int
	Skipped    int
	Failed     int
	Err        error
}

// WriteSyncCycle records one sync_cycle point. Non-blocking.
func (c *Client) WriteSyncCycle(stats CycleStats) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(syncCyclePoint(stats))
}

// WriteCommand records one command sent to the hub. Non-blocking.
func (c *Client) WriteCommand(entityID int, action string, latency time.Duration, err error) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(commandPoint(entityID, action, latency, err, time.Now()))
}

func syncCyclePoint(stats CycleStats) *write.Point {
	outcome := "ok"
	if stats.Err != nil {
		outcome = "error"
	}
	ts := stats.StartedAt
	if ts.IsZero() {
		ts = time.Now()
	}

	return write.NewPoint("sync_cycle",
		map[string]string{
			"source":  stats.Source,
			"outcome": outcome,
		},
		map[string]interface{}{
			"duration_ms": stats.Duration.Milliseconds(),
			"registered":  stats.Registered,
			"updated":     stats.Updated,
			"skipped":     stats.Skipped,
			"failed":      stats.Failed,
		},
		ts,
	)
}

func commandPoint(entityID int, action string, latency time.Duration, err error, ts time.Time) *write.Point {
	return write.NewPoint("command",
		map[string]string{
			"entity_id": strconv.Itoa(entityID),
			"action":    action,
		},
		map[string]interface{}{
			"latency_ms": latency.Milliseconds(),
			"success":    err == nil,
		},
		ts,
	)
}
