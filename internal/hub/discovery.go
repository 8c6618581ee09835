package hub

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"time"
)

const (
	// DefaultDiscoveryTimeout bounds the wait for a probe reply.
	DefaultDiscoveryTimeout = 10 * time.Second

	// defaultProbeTarget is where ICS-2000 hubs listen for discovery.
	defaultProbeTarget = "255.255.255.255:2012"

	// defaultDiscoverMessage is the stock ICS-2000 discovery probe.
	defaultDiscoverMessage = "010003ffffffffffffca000000010400044795000401040004000400040000000000000000020000003000"

	maxDatagramSize = 2048
)

// DiscoveryResult is the outcome of Discover.
type DiscoveryResult struct {
	Address string
	// UsedBackupAddress is true when nothing answered and the configured
	// backup address was returned instead. Callers should warn.
	UsedBackupAddress bool
}

// Discoverer locates the hub with a UDP probe. It keeps no state between calls.
type Discoverer struct {
	target        string
	backupAddress string
	message       []byte
}

// NewDiscoverer builds a Discoverer. messageHex overrides the probe payload
// when non-empty; backupAddress may be empty.
func NewDiscoverer(backupAddress, messageHex string) (*Discoverer, error) {
	if messageHex == "" {
		messageHex = defaultDiscoverMessage
	}
	message, err := hex.DecodeString(messageHex)
	if err != nil {
		return nil, fmt.Errorf("decoding discover message: %w", err)
	}
	return &Discoverer{
		target:        defaultProbeTarget,
		backupAddress: backupAddress,
		message:       message,
	}, nil
}

// WithTarget returns a copy that probes target instead of the broadcast address.
func (d *Discoverer) WithTarget(target string) *Discoverer {
	cp := *d
	cp.target = target
	return &cp
}

// Discover sends the probe and returns the address of the first responder.
//
// Without a reply before timeout it returns the backup address with
// UsedBackupAddress set, or ErrDiscoveryTimeout when there is none.
// A cancelled ctx returns ctx.Err().
func (d *Discoverer) Discover(ctx context.Context, timeout time.Duration) (DiscoveryResult, error) {
	if timeout <= 0 {
		timeout = DefaultDiscoveryTimeout
	}

	addr, err := d.probe(ctx, timeout)
	switch {
	case err == nil:
		return DiscoveryResult{Address: addr}, nil
	case ctx.Err() != nil:
		return DiscoveryResult{}, ctx.Err()
	case d.backupAddress != "":
		return DiscoveryResult{Address: d.backupAddress, UsedBackupAddress: true}, nil
	default:
		return DiscoveryResult{}, err
	}
}

func (d *Discoverer) probe(ctx context.Context, timeout time.Duration) (string, error) {
	target, err := net.ResolveUDPAddr("udp4", d.target)
	if err != nil {
		return "", fmt.Errorf("%w: resolving %s: %w", ErrDiscovery, d.target, err)
	}

	conn, err := net.ListenUDP("udp4", &net.UDPAddr{})
	if err != nil {
		return "", fmt.Errorf("%w: opening socket: %w", ErrDiscovery, err)
	}
	defer conn.Close()

	// Closing the socket unblocks the read on cancellation.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	deadline := time.Now().Add(timeout)
	if err := conn.SetDeadline(deadline); err != nil {
		return "", fmt.Errorf("%w: %w", ErrDiscovery, err)
	}

	if _, err := conn.WriteToUDP(d.message, target); err != nil {
		return "", fmt.Errorf("%w: sending probe: %w", ErrDiscovery, err)
	}

	buf := make([]byte, maxDatagramSize)
	for {
		n, from, err := conn.ReadFromUDP(buf)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				return "", fmt.Errorf("%w after %v", ErrDiscoveryTimeout, timeout)
			}
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			return "", fmt.Errorf("%w: %w", ErrDiscovery, err)
		}
		if n == 0 {
			continue
		}
		return from.IP.String(), nil
	}
}
