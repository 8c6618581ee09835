package hub

import "errors"

var (
	// ErrDiscoveryTimeout is returned when no hub answered the probe and no
	// backup address is configured.
	ErrDiscoveryTimeout = errors.New("hub: discovery timed out")

	// ErrDiscovery is returned when the probe could not be sent at all.
	ErrDiscovery = errors.New("hub: discovery failed")

	// ErrAuthentication is returned when the cloud rejects the credentials or
	// the account has no home.
	ErrAuthentication = errors.New("hub: authentication failed")

	// ErrNotLoggedIn is returned by calls made before a successful Login.
	ErrNotLoggedIn = errors.New("hub: not logged in")

	// ErrCatalogFetch is returned when the batched entity fetch fails.
	ErrCatalogFetch = errors.New("hub: entity catalog fetch failed")

	// ErrStatusFetch is returned when the bulk status fetch fails.
	ErrStatusFetch = errors.New("hub: status fetch failed")

	// ErrCommand is returned when the cloud does not accept a command.
	ErrCommand = errors.New("hub: command failed")

	// ErrDecrypt is returned for payloads that do not decrypt with the session key.
	ErrDecrypt = errors.New("hub: decrypt failed")
)
