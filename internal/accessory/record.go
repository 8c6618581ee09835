package accessory

import (
	"fmt"
	"strings"
	"time"

	"github.com/aaaSuraj/homebridge-klikaanklikuit/internal/hub"
)

// Context is the mutable part of a record: the entity as last seen.
type Context struct {
	Device hub.Entity `json:"device"`
}

// Record is one accessory known to the host.
type Record struct {
	UUID        string    `json:"uuid"`
	DisplayName string    `json:"display_name"`
	Context     Context   `json:"context"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewRecord creates a record for an entity not seen before. Entities the
// hub reports without a name are called "Entity <id>".
func NewRecord(e hub.Entity) *Record {
	name := strings.TrimSpace(e.Name)
	if name == "" {
		name = fmt.Sprintf("Entity %d", e.ID)
	}
	now := time.Now().UTC()
	return &Record{
		UUID:        GenerateUUID(e.ID),
		DisplayName: name,
		Context:     Context{Device: e},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Clone returns an independent copy. Record holds no reference types, so a
// value copy is enough.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	cp := *r
	return &cp
}

// EntityID is the hub entity behind the record.
func (r *Record) EntityID() int {
	return r.Context.Device.ID
}

// Validate checks the fields required for persistence.
func (r *Record) Validate() error {
	if r.UUID == "" {
		return fmt.Errorf("%w: uuid is required", ErrInvalidRecord)
	}
	if r.DisplayName == "" {
		return fmt.Errorf("%w: display name is required", ErrInvalidRecord)
	}
	return nil
}
