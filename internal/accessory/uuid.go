package accessory

import (
	"strconv"

	"github.com/google/uuid"
)

// namespace scopes generated UUIDs to this bridge.
var namespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/aaaSuraj/homebridge-klikaanklikuit"))

// GenerateUUID derives the accessory UUID of an entity: a name-based SHA-1
// UUID (version 5) over the decimal entity id. The same id always yields
// the same UUID.
func GenerateUUID(entityID int) string {
	return uuid.NewSHA1(namespace, []byte(strconv.Itoa(entityID))).String()
}

// GenerateNamedUUID derives a UUID for bridge-owned accessories that have
// no hub entity, such as the reload switch.
func GenerateNamedUUID(name string) string {
	return uuid.NewSHA1(namespace, []byte("bridge:"+name)).String()
}
