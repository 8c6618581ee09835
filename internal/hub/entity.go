package hub

// Capability is the control surface of an entity.
type Capability string

// Known capabilities. Anything else is treated as CapabilityUnsupported.
const (
	CapabilityUnsupported      Capability = "unsupported"
	CapabilitySwitch           Capability = "switch"
	CapabilityDimmable         Capability = "dimmable"
	CapabilityColorTemperature Capability = "color-temperature"
	CapabilityScene            Capability = "scene"
)

// Functions holds the function indexes used to read and write an entity's
// status. -1 means the entity has no such function.
type Functions struct {
	OnOff            int `json:"on_off"`
	Dim              int `json:"dim"`
	ColorTemperature int `json:"color_temperature"`
}

// Entity is one controllable object known to the hub.
//
// ID is stable across catalog fetches and is the only key used to match an
// entity with its accessory record.
type Entity struct {
	ID         int        `json:"entity_id"`
	Name       string     `json:"name"`
	DeviceType int        `json:"device_type"`
	Capability Capability `json:"capability"`
	Disabled   bool       `json:"disabled"`
	IsGroup    bool       `json:"is_group"`
	Functions  Functions  `json:"functions"`
}

// IsScene reports whether the entity is a scene.
func (e Entity) IsScene() bool {
	return e.Capability == CapabilityScene
}

// CapabilityVisitor has one method per capability. Adding a capability adds
// a method here, so every visitor has to handle it before the code compiles.
type CapabilityVisitor interface {
	VisitSwitch(e Entity) error
	VisitDimmable(e Entity) error
	VisitColorTemperature(e Entity) error
	VisitScene(e Entity) error
	VisitUnsupported(e Entity) error
}

// Visit calls the visitor method matching the entity's capability.
// Unknown capability values go to VisitUnsupported.
func (e Entity) Visit(v CapabilityVisitor) error {
	switch e.Capability {
	case CapabilitySwitch:
		return v.VisitSwitch(e)
	case CapabilityDimmable:
		return v.VisitDimmable(e)
	case CapabilityColorTemperature:
		return v.VisitColorTemperature(e)
	case CapabilityScene:
		return v.VisitScene(e)
	default:
		return v.VisitUnsupported(e)
	}
}
