package bridge

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/robfig/cron/v3"
	"github.com/skiffbot/skiff/internal/probe"
)

// Monitor polls service health on a schedule and alerts the admin
// channel on transitions. Steady state stays quiet.
type Monitor struct {
	prober    *probe.Prober
	adapter   Adapter
	channelID string
	schedule  string
	cron      *cron.Cron
}

// MonitorOpts holds parameters for creating a Monitor.
type MonitorOpts struct {
	Prober    *probe.Prober
	Adapter   Adapter
	ChannelID string // where alerts go
	Schedule  string // cron spec, e.g. "@every 2m"
}

// NewMonitor creates a Monitor.
func NewMonitor(opts MonitorOpts) (*Monitor, error) {
	if opts.Prober == nil {
		return nil, fmt.Errorf("bridge: monitor: prober is required")
	}
	if opts.Adapter == nil {
		return nil, fmt.Errorf("bridge: monitor: adapter is required")
	}
	if opts.Schedule == "" {
		return nil, fmt.Errorf("bridge: monitor: schedule is required")
	}
	return &Monitor{
		prober:    opts.Prober,
		adapter:   opts.Adapter,
		channelID: opts.ChannelID,
		schedule:  opts.Schedule,
	}, nil
}

// Start schedules the polling job. Call Stop to shut it down.
func (m *Monitor) Start(ctx context.Context) error {
	m.cron = cron.New()
	if _, err := m.cron.AddFunc(m.schedule, func() { m.Poll(ctx) }); err != nil {
		return fmt.Errorf("bridge: monitor: schedule %q: %w", m.schedule, err)
	}
	m.cron.Start()
	return nil
}

// Stop halts the schedule and waits for a running poll to finish.
func (m *Monitor) Stop() {
	if m.cron != nil {
		<-m.cron.Stop().Done()
	}
}

// Poll runs one health check and sends an alert for each transition.
func (m *Monitor) Poll(ctx context.Context) {
	events := m.prober.Diff(m.prober.Check())
	if len(events) == 0 {
		return
	}

	lines := make([]string, 0, len(events))
	for _, ev := range events {
		if ev.Recovered {
			lines = append(lines, "🟢 "+ev.String())
		} else {
			lines = append(lines, "🔴 "+ev.String())
		}
	}
	if _, err := m.adapter.Send(ctx, OutboundMessage{
		ChannelID: m.channelID,
		Text:      strings.Join(lines, "\n"),
	}); err != nil {
		log.Printf("bridge: monitor: send alert: %v", err)
	}
}
