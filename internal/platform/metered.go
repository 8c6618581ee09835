package platform

import (
	"context"
	"strconv"
	"time"

	"github.com/aaaSuraj/homebridge-klikaanklikuit/internal/controller"
	"github.com/aaaSuraj/homebridge-klikaanklikuit/internal/infrastructure/influxdb"
)

// CommandRecorder records hub commands. *influxdb.Client satisfies it.
type CommandRecorder interface {
	WriteCommand(entityID int, action string, latency time.Duration, err error)
}

// meteredCommander records every command sent through it.
type meteredCommander struct {
	controller.Commander
	recorder CommandRecorder
}

// NewMeteredCommander wraps next so each command is recorded. A nil
// recorder returns next unchanged.
func NewMeteredCommander(next controller.Commander, recorder CommandRecorder) controller.Commander {
	if recorder == nil {
		return next
	}
	return &meteredCommander{Commander: next, recorder: recorder}
}

func (m *meteredCommander) RunFunction(ctx context.Context, entityID, function, value int, isGroup bool) error {
	start := time.Now()
	err := m.Commander.RunFunction(ctx, entityID, function, value, isGroup)
	m.recorder.WriteCommand(entityID, "function_"+strconv.Itoa(function), time.Since(start), err)
	return err
}

func (m *meteredCommander) RunScene(ctx context.Context, sceneID int) error {
	start := time.Now()
	err := m.Commander.RunScene(ctx, sceneID)
	m.recorder.WriteCommand(sceneID, "scene", time.Since(start), err)
	return err
}

// MetricsRecorder records both cycles and commands. *influxdb.Client and
// *metrics.Collector satisfy it.
type MetricsRecorder interface {
	CycleRecorder
	CommandRecorder
}

// Recorders fans metrics out to every recorder in the slice.
type Recorders []MetricsRecorder

// JoinRecorders drops nil entries. It returns nil when none remain. Pass
// typed nil pointers as a literal nil, they are not detected.
func JoinRecorders(recorders ...MetricsRecorder) MetricsRecorder {
	var out Recorders
	for _, r := range recorders {
		if r != nil {
			out = append(out, r)
		}
	}
	switch len(out) {
	case 0:
		return nil
	case 1:
		return out[0]
	}
	return out
}

func (rs Recorders) WriteSyncCycle(stats influxdb.CycleStats) {
	for _, r := range rs {
		r.WriteSyncCycle(stats)
	}
}

func (rs Recorders) WriteCommand(entityID int, action string, latency time.Duration, err error) {
	for _, r := range rs {
		r.WriteCommand(entityID, action, latency, err)
	}
}
