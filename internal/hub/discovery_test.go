package hub

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"
)

// udpResponder listens on loopback and, when reply is true, answers every
// datagram.
func udpResponder(t *testing.T, reply bool) (addr string, received <-chan []byte) {
	t.Helper()

	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	ch := make(chan []byte, 4)
	go func() {
		buf := make([]byte, maxDatagramSize)
		for {
			n, from, err := conn.ReadFromUDP(buf)
			if err != nil {
				return
			}
			ch <- append([]byte(nil), buf[:n]...)
			if reply {
				_, _ = conn.WriteToUDP([]byte("ics2000"), from)
			}
		}
	}()
	return conn.LocalAddr().String(), ch
}

func TestDiscover_Responds(t *testing.T) {
	addr, received := udpResponder(t, true)

	d, err := NewDiscoverer("", "")
	if err != nil {
		t.Fatalf("NewDiscoverer() error = %v", err)
	}

	res, err := d.WithTarget(addr).Discover(t.Context(), 2*time.Second)
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	if res.Address != "127.0.0.1" || res.UsedBackupAddress {
		t.Errorf("Discover() = %+v, want 127.0.0.1 without backup", res)
	}

	probe := <-received
	if len(probe) != len(defaultDiscoverMessage)/2 {
		t.Errorf("probe length = %d, want default message", len(probe))
	}
}

func TestDiscover_CustomMessage(t *testing.T) {
	addr, received := udpResponder(t, true)

	d, err := NewDiscoverer("", "cafe")
	if err != nil {
		t.Fatalf("NewDiscoverer() error = %v", err)
	}
	if _, err := d.WithTarget(addr).Discover(t.Context(), 2*time.Second); err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	if probe := <-received; string(probe) != "\xca\xfe" {
		t.Errorf("probe = %x, want cafe", probe)
	}
}

func TestNewDiscoverer_BadMessage(t *testing.T) {
	if _, err := NewDiscoverer("", "not-hex"); err == nil {
		t.Error("NewDiscoverer() expected error for invalid hex")
	}
}

func TestDiscover_BackupFallback(t *testing.T) {
	addr, _ := udpResponder(t, false)
	d, _ := NewDiscoverer("192.168.1.50", "")

	const timeout = 200 * time.Millisecond
	start := time.Now()
	res, err := d.WithTarget(addr).Discover(t.Context(), timeout)
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("Discover() error = %v, want backup fallback", err)
	}
	if res.Address != "192.168.1.50" || !res.UsedBackupAddress {
		t.Errorf("Discover() = %+v, want backup address", res)
	}
	if elapsed < timeout || elapsed > timeout+500*time.Millisecond {
		t.Errorf("Discover() took %v, want about %v", elapsed, timeout)
	}
}

func TestDiscover_Timeout(t *testing.T) {
	addr, _ := udpResponder(t, false)
	d, _ := NewDiscoverer("", "")

	const timeout = 200 * time.Millisecond
	start := time.Now()
	_, err := d.WithTarget(addr).Discover(t.Context(), timeout)

	if !errors.Is(err, ErrDiscoveryTimeout) {
		t.Fatalf("Discover() error = %v, want ErrDiscoveryTimeout", err)
	}
	if elapsed := time.Since(start); elapsed >= 2*timeout {
		t.Errorf("Discover() took %v, want under %v", elapsed, 2*timeout)
	}
}

func TestDiscover_Cancelled(t *testing.T) {
	addr, _ := udpResponder(t, false)
	d, _ := NewDiscoverer("192.168.1.50", "")

	ctx, cancel := context.WithCancel(t.Context())
	time.AfterFunc(50*time.Millisecond, cancel)

	_, err := d.WithTarget(addr).Discover(ctx, 5*time.Second)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Discover() error = %v, want context.Canceled", err)
	}
}
