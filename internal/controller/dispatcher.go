package controller

import (
	"github.com/aaaSuraj/homebridge-klikaanklikuit/internal/accessory"
	"github.com/aaaSuraj/homebridge-klikaanklikuit/internal/hub"
)

// Dispatcher creates the controller matching an accessory's capability.
type Dispatcher struct {
	commander Commander
	publisher Publisher
	qos       byte
}

// NewDispatcher creates a dispatcher whose controllers command through
// commander and publish through publisher.
func NewDispatcher(commander Commander, publisher Publisher, qos byte) *Dispatcher {
	return &Dispatcher{commander: commander, publisher: publisher, qos: qos}
}

// Dispatch returns the controller for rec. Entities without a controller
// fail with an *UnsupportedCapabilityError.
func (d *Dispatcher) Dispatch(rec *accessory.Record) (Controller, error) {
	f := &factory{base: base{
		uuid:      rec.UUID,
		entity:    rec.Context.Device,
		commander: d.commander,
		publisher: d.publisher,
		qos:       d.qos,
	}}
	if err := rec.Context.Device.Visit(f); err != nil {
		return nil, err
	}
	return f.out, nil
}

// factory is the hub.CapabilityVisitor behind Dispatch.
type factory struct {
	base base
	out  Controller
}

var _ hub.CapabilityVisitor = (*factory)(nil)

func (f *factory) VisitSwitch(hub.Entity) error {
	f.out = &OnOff{base: f.base}
	return nil
}

func (f *factory) VisitDimmable(hub.Entity) error {
	f.out = &Dimmable{OnOff: OnOff{base: f.base}}
	return nil
}

func (f *factory) VisitColorTemperature(hub.Entity) error {
	f.out = &ColorTemperature{Dimmable: Dimmable{OnOff: OnOff{base: f.base}}}
	return nil
}

func (f *factory) VisitScene(hub.Entity) error {
	f.out = &Scene{base: f.base}
	return nil
}

func (f *factory) VisitUnsupported(e hub.Entity) error {
	return &UnsupportedCapabilityError{
		ID:         e.ID,
		Name:       e.Name,
		DeviceType: e.DeviceType,
		Capability: e.Capability,
	}
}
