package platform

import (
	"context"
	"testing"
	"time"

	"github.com/aaaSuraj/homebridge-klikaanklikuit/internal/infrastructure/influxdb"
)

type recordedCommand struct {
	entityID int
	action   string
	err      error
}

type fakeCommandRecorder struct {
	commands []recordedCommand
}

func (f *fakeCommandRecorder) WriteCommand(entityID int, action string, _ time.Duration, err error) {
	f.commands = append(f.commands, recordedCommand{entityID, action, err})
}

func TestMeteredCommander(t *testing.T) {
	rec := &fakeCommandRecorder{}
	cmdr := NewMeteredCommander(&fakeCommander{}, rec)
	ctx := context.Background()

	if err := cmdr.RunFunction(ctx, 7, 3, 1, false); err != nil {
		t.Fatalf("RunFunction() error = %v", err)
	}
	if err := cmdr.RunScene(ctx, 12); err != nil {
		t.Fatalf("RunScene() error = %v", err)
	}

	if len(rec.commands) != 2 {
		t.Fatalf("recorded %d commands, want 2", len(rec.commands))
	}
	if rec.commands[0] != (recordedCommand{7, "function_3", nil}) {
		t.Errorf("first = %+v", rec.commands[0])
	}
	if rec.commands[1].entityID != 12 || rec.commands[1].action != "scene" {
		t.Errorf("second = %+v", rec.commands[1])
	}

	if st, ok := cmdr.Status(7); !ok || st[3] != 1 {
		t.Errorf("Status() = %v, %v; want passthrough", st, ok)
	}
}

func TestMeteredCommander_NilRecorder(t *testing.T) {
	next := &fakeCommander{}
	if got := NewMeteredCommander(next, nil); got != next {
		t.Error("NewMeteredCommander(nil recorder) should return next")
	}
}

type fakeMetricsRecorder struct {
	fakeCycleRecorder
	fakeCommandRecorder
}

func TestJoinRecorders(t *testing.T) {
	if got := JoinRecorders(); got != nil {
		t.Errorf("JoinRecorders() = %v, want nil", got)
	}
	if got := JoinRecorders(nil, nil); got != nil {
		t.Errorf("JoinRecorders(nil, nil) = %v, want nil", got)
	}

	single := &fakeMetricsRecorder{}
	if got := JoinRecorders(nil, single); got != MetricsRecorder(single) {
		t.Errorf("JoinRecorders(nil, r) = %v, want r", got)
	}

	a, b := &fakeMetricsRecorder{}, &fakeMetricsRecorder{}
	joined := JoinRecorders(a, nil, b)
	joined.WriteSyncCycle(influxdb.CycleStats{Source: "startup"})
	joined.WriteCommand(4, "scene", time.Millisecond, nil)

	for name, r := range map[string]*fakeMetricsRecorder{"a": a, "b": b} {
		if len(r.stats) != 1 || r.stats[0].Source != "startup" {
			t.Errorf("%s cycles = %+v", name, r.stats)
		}
		if len(r.commands) != 1 || r.commands[0].entityID != 4 {
			t.Errorf("%s commands = %+v", name, r.commands)
		}
	}
}
