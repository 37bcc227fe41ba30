package bridge

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/skiffbot/skiff/internal/markup"
)

// panicNoticeLimit bounds how much of a panic message is forwarded to
// the admin chat.
const panicNoticeLimit = 300

// Daemon owns the inbound message loop: it connects the adapter,
// drains its channel into the router, and survives handler panics.
type Daemon struct {
	adapter      Adapter
	router       *Router
	adminChannel string // panic notices go here when set
	out          io.Writer
}

// DaemonOpts holds parameters for creating a Daemon.
type DaemonOpts struct {
	Adapter      Adapter
	Router       *Router
	AdminChannel string
	Out          io.Writer // defaults to os.Stdout
}

// NewDaemon creates a Daemon.
func NewDaemon(opts DaemonOpts) (*Daemon, error) {
	if opts.Adapter == nil {
		return nil, fmt.Errorf("bridge: daemon: adapter is required")
	}
	if opts.Router == nil {
		return nil, fmt.Errorf("bridge: daemon: router is required")
	}
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	return &Daemon{
		adapter:      opts.Adapter,
		router:       opts.Router,
		adminChannel: opts.AdminChannel,
		out:          out,
	}, nil
}

// Run connects and processes inbound messages until the context is
// cancelled or the adapter closes its channel.
func (d *Daemon) Run(ctx context.Context) error {
	if err := d.adapter.Connect(ctx); err != nil {
		return fmt.Errorf("bridge: daemon: connect: %w", err)
	}
	defer d.adapter.Close()

	inbound, err := d.adapter.Listen(ctx)
	if err != nil {
		return fmt.Errorf("bridge: daemon: listen: %w", err)
	}
	fmt.Fprintln(d.out, "bridge: daemon: listening")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-inbound:
			if !ok {
				return nil
			}
			d.handle(ctx, msg)
		}
	}
}

// handle routes one message behind a recover so a broken handler
// cannot take the loop down. The router has its own recover; this one
// is the last line.
func (d *Daemon) handle(ctx context.Context, msg InboundMessage) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("bridge: daemon: handler panic: %v", rec)
			d.notifyAdmin(ctx, fmt.Sprint(rec))
		}
	}()
	d.router.Handle(ctx, msg)
}

// notifyAdmin forwards a truncated panic summary to the admin chat.
func (d *Daemon) notifyAdmin(ctx context.Context, detail string) {
	if d.adminChannel == "" {
		return
	}
	if len(detail) > panicNoticeLimit {
		detail = detail[:panicNoticeLimit] + "..."
	}
	if _, err := d.adapter.Send(ctx, OutboundMessage{
		ChannelID: d.adminChannel,
		Text:      "⚠️ Internal error: " + markup.Escape(detail),
	}); err != nil {
		log.Printf("bridge: daemon: notify admin: %v", err)
	}
}
