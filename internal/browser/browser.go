// Package browser wraps one browser process and one page handle behind
// the operations the scan engine needs: launch, navigate, evaluate,
// keyboard input, stability probing, close. Chromium runs through
// chromedp's exec allocator; firefox and webkit are attached over their
// remote-debugging endpoint when the binary is present.
package browser

import (
	"fmt"
	"os/exec"
	"sync"
	"time"
)

// Engine selects the browser backend for a session.
type Engine string

const (
	Chromium Engine = "chromium"
	Firefox  Engine = "firefox"
	WebKit   Engine = "webkit"
)

// ParseEngine validates a user-supplied engine name.
func ParseEngine(s string) (Engine, error) {
	switch Engine(s) {
	case Chromium, Firefox, WebKit:
		return Engine(s), nil
	case "":
		return Chromium, nil
	}
	return "", fmt.Errorf("unknown browser engine %q (want chromium, firefox, or webkit)", s)
}

// Options configures a session at launch time.
type Options struct {
	Engine      Engine
	Headless    bool
	ExecPath    string        // explicit binary path, overrides discovery
	NavTimeout  time.Duration // per-navigation deadline
	IdleTimeout time.Duration // best-effort network-idle wait
	SettleDelay time.Duration // pause after each keypress / before probes
	ProbeWindow time.Duration // window to watch for one more navigation
}

// Defaults fills zero fields with the standard timings.
func (o Options) Defaults() Options {
	if o.Engine == "" {
		o.Engine = Chromium
	}
	if o.NavTimeout <= 0 {
		o.NavTimeout = 30 * time.Second
	}
	if o.IdleTimeout <= 0 {
		o.IdleTimeout = 5 * time.Second
	}
	if o.SettleDelay <= 0 {
		o.SettleDelay = 100 * time.Millisecond
	}
	if o.ProbeWindow <= 0 {
		o.ProbeWindow = 1500 * time.Millisecond
	}
	return o
}

// binaryCandidates maps each non-chromium engine to the executables we
// try in order. Chromium discovery is left to chromedp, which already
// knows the platform install locations.
var binaryCandidates = map[Engine][]string{
	Firefox: {"firefox", "firefox-esr"},
	WebKit:  {"MiniBrowser", "epiphany"},
}

func findBinary(engine Engine) (string, error) {
	for _, name := range binaryCandidates[engine] {
		if path, err := exec.LookPath(name); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("no %s binary found in PATH (tried %v)", engine, binaryCandidates[engine])
}

// ringBuffer captures the tail of a child browser process's output so
// launch failures can be diagnosed without unbounded memory.
type ringBuffer struct {
	mu   sync.Mutex
	data []byte
	max  int
}

func newRingBuffer(max int) *ringBuffer {
	return &ringBuffer{max: max, data: make([]byte, 0, max)}
}

func (rb *ringBuffer) Write(p []byte) (int, error) {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.data = append(rb.data, p...)
	if len(rb.data) > rb.max {
		rb.data = rb.data[len(rb.data)-rb.max:]
	}
	return len(p), nil
}

func (rb *ringBuffer) String() string {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return string(rb.data)
}
