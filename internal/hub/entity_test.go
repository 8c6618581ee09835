package hub

import (
	"errors"
	"testing"
)

type recordingVisitor struct {
	visited string
}

func (v *recordingVisitor) VisitSwitch(Entity) error {
	v.visited = "switch"
	return nil
}

func (v *recordingVisitor) VisitDimmable(Entity) error {
	v.visited = "dimmable"
	return nil
}

func (v *recordingVisitor) VisitColorTemperature(Entity) error {
	v.visited = "color-temperature"
	return nil
}

func (v *recordingVisitor) VisitScene(Entity) error {
	v.visited = "scene"
	return nil
}

func (v *recordingVisitor) VisitUnsupported(Entity) error {
	v.visited = "unsupported"
	return errors.New("unsupported")
}

func TestEntity_Visit(t *testing.T) {
	tests := []struct {
		capability Capability
		want       string
		wantErr    bool
	}{
		{CapabilitySwitch, "switch", false},
		{CapabilityDimmable, "dimmable", false},
		{CapabilityColorTemperature, "color-temperature", false},
		{CapabilityScene, "scene", false},
		{CapabilityUnsupported, "unsupported", true},
		{Capability("rgb"), "unsupported", true},
		{Capability(""), "unsupported", true},
	}

	for _, tt := range tests {
		t.Run(string(tt.capability), func(t *testing.T) {
			v := &recordingVisitor{}
			err := Entity{ID: 1, Capability: tt.capability}.Visit(v)
			if v.visited != tt.want {
				t.Errorf("visited %q, want %q", v.visited, tt.want)
			}
			if (err != nil) != tt.wantErr {
				t.Errorf("Visit() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEntity_IsScene(t *testing.T) {
	if !(Entity{Capability: CapabilityScene}).IsScene() {
		t.Error("IsScene() = false for scene")
	}
	if (Entity{Capability: CapabilitySwitch}).IsScene() {
		t.Error("IsScene() = true for switch")
	}
}
