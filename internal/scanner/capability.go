// Package scanner models the host platform's scanning hardware. The client
// runs on devices with and without a native scanner; the capability is
// detected once at startup and injected, so flows never probe ambient state.
package scanner

import (
	"context"
	"errors"
	"os"
)

// ErrUnavailable means no host scanning capability exists; manual entry is
// the only input path.
var ErrUnavailable = errors.New("scanner: no host capability")

// Capability is the host scanning surface: one blocking scan returning the
// raw decoded text, plus flashlight control for dark shop floors.
type Capability interface {
	StartScan(ctx context.Context) (string, error)
	SetFlashlight(on bool) error
}

// Detect probes for a host capability once. It returns nil when the device
// has none; callers must treat nil as "manual entry only", not as an error.
func Detect() Capability {
	// A PDA vendor bridge announces itself through this variable; without
	// it there is nothing to drive.
	if os.Getenv("SCANFLOW_SCANNER_BRIDGE") == "" {
		return nil
	}
	return &bridgeCapability{device: os.Getenv("SCANFLOW_SCANNER_BRIDGE")}
}

// bridgeCapability reads scan results from a vendor bridge device node that
// emits one decoded payload per line.
type bridgeCapability struct {
	device string
}

func (b *bridgeCapability) StartScan(ctx context.Context) (string, error) {
	f, err := os.Open(b.device)
	if err != nil {
		return "", ErrUnavailable
	}
	defer f.Close()

	type result struct {
		line string
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		buf := make([]byte, 4096)
		n, err := f.Read(buf)
		if err != nil {
			ch <- result{err: err}
			return
		}
		line := string(buf[:n])
		for len(line) > 0 && (line[len(line)-1] == '\n' || line[len(line)-1] == '\r') {
			line = line[:len(line)-1]
		}
		ch <- result{line: line}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-ch:
		return r.line, r.err
	}
}

func (b *bridgeCapability) SetFlashlight(on bool) error {
	// The bridge protocol has no flashlight channel yet; accept and ignore
	// so callers need no capability-specific branching.
	return nil
}

// Stub is a scripted capability for tests and demos.
type Stub struct {
	Codes []string
	next  int
	// Flash records the last flashlight state set.
	Flash bool
}

// StartScan returns the next scripted code.
func (s *Stub) StartScan(ctx context.Context) (string, error) {
	if s.next >= len(s.Codes) {
		return "", ErrUnavailable
	}
	code := s.Codes[s.next]
	s.next++
	return code, nil
}

// SetFlashlight records the requested state.
func (s *Stub) SetFlashlight(on bool) error {
	s.Flash = on
	return nil
}
