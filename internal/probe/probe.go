package probe

import (
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/process"
)

const connectTimeout = time.Second

// Service is one monitored local daemon.
type Service struct {
	Name string
	Port int
	// Match is the process name or cmdline substring used when the
	// port probe fails.
	Match string
}

// DefaultServices covers the daemons a media box runs.
func DefaultServices() []Service {
	return []Service{
		{Name: "alist", Port: 5244, Match: "alist"},
		{Name: "aria2", Port: 6800, Match: "aria2c"},
		{Name: "tunnel", Port: 49500, Match: "cloudflared"},
	}
}

// Status is the result of one poll.
type Status struct {
	Name    string
	Running bool
}

// Event is a state transition between two polls.
type Event struct {
	Name      string
	Recovered bool // false means the service went down
}

func (e Event) String() string {
	if e.Recovered {
		return fmt.Sprintf("%s is back up", e.Name)
	}
	return fmt.Sprintf("%s is DOWN", e.Name)
}

// portChecker reports whether something listens on a local port.
type portChecker func(port int) bool

// procScanner reports which of the given matchers have a live process.
type procScanner func(matches []string) map[string]bool

// Prober polls local services and tracks transitions between polls.
type Prober struct {
	mu        sync.Mutex
	services  []Service
	last      map[string]bool
	checkPort portChecker
	scanProcs procScanner
}

// ProberOpts holds parameters for creating a Prober.
type ProberOpts struct {
	Services []Service
	// CheckPort and ScanProcs override the probes (for tests).
	CheckPort portChecker
	ScanProcs procScanner
}

// NewProber creates a Prober. A nil service list gets the defaults.
func NewProber(opts ProberOpts) *Prober {
	p := &Prober{
		services:  opts.Services,
		last:      make(map[string]bool),
		checkPort: opts.CheckPort,
		scanProcs: opts.ScanProcs,
	}
	if p.services == nil {
		p.services = DefaultServices()
	}
	if p.checkPort == nil {
		p.checkPort = dialPort
	}
	if p.scanProcs == nil {
		p.scanProcs = scanProcessTable
	}
	return p
}

// Check polls every service once. The port probe decides first; for
// services it calls down, one pass over the process table gets the
// final word.
func (p *Prober) Check() []Status {
	out := make([]Status, 0, len(p.services))
	var down []string
	for _, svc := range p.services {
		out = append(out, Status{Name: svc.Name, Running: p.checkPort(svc.Port)})
		if !out[len(out)-1].Running {
			down = append(down, svc.Match)
		}
	}
	if len(down) == 0 {
		return out
	}

	alive := p.scanProcs(down)
	for i := range out {
		if !out[i].Running && alive[p.services[i].Match] {
			out[i].Running = true
		}
	}
	return out
}

// Diff compares a poll against the previous one and returns the
// transitions. A service never seen before counts as running, so the
// first poll of a healthy box stays quiet.
func (p *Prober) Diff(current []Status) []Event {
	p.mu.Lock()
	defer p.mu.Unlock()

	var events []Event
	for _, st := range current {
		prev, seen := p.last[st.Name]
		if !seen {
			prev = true
		}
		if st.Running != prev {
			events = append(events, Event{Name: st.Name, Recovered: st.Running})
		}
		p.last[st.Name] = st.Running
	}
	return events
}

// dialPort tries a TCP connect on localhost.
func dialPort(port int) bool {
	conn, err := net.DialTimeout("tcp", fmt.Sprintf("127.0.0.1:%d", port), connectTimeout)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// scanProcessTable walks the process table once, matching each target
// against process names and command lines. Unreadable processes
// contribute no evidence.
func scanProcessTable(matches []string) map[string]bool {
	alive := make(map[string]bool, len(matches))
	procs, err := process.Processes()
	if err != nil {
		return alive
	}
	for _, proc := range procs {
		name, err := proc.Name()
		if err != nil {
			name = ""
		}
		cmdline, err := proc.Cmdline()
		if err != nil {
			cmdline = ""
		}
		for _, m := range matches {
			if alive[m] {
				continue
			}
			if strings.Contains(name, m) || strings.Contains(cmdline, m) {
				alive[m] = true
			}
		}
	}
	return alive
}
