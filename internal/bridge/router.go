package bridge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/skiffbot/skiff/internal/browse"
	"github.com/skiffbot/skiff/internal/markup"
)

// Router classifies inbound chat messages and routes them to the
// appropriate handler: browser callbacks, menu actions, slash
// commands, or ignore.
type Router struct {
	adapter Adapter
	cmds    *Commands
	adminID string // empty means no gate
	out     io.Writer
}

// RouterOpts holds parameters for creating a Router.
type RouterOpts struct {
	Adapter Adapter
	Cmds    *Commands
	AdminID string    // restrict handling to this user ID (empty = open)
	Out     io.Writer // defaults to os.Stdout
}

// NewRouter creates a Router.
func NewRouter(opts RouterOpts) (*Router, error) {
	if opts.Adapter == nil {
		return nil, fmt.Errorf("bridge: router: adapter is required")
	}
	if opts.Cmds == nil {
		return nil, fmt.Errorf("bridge: router: command handler is required")
	}
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	return &Router{
		adapter: opts.Adapter,
		cmds:    opts.Cmds,
		adminID: opts.AdminID,
		out:     out,
	}, nil
}

// Handle classifies and routes a single inbound message. Routing paths:
//  1. Non-admin sender → ignore
//  2. Browser button ("br:...") → browser UI
//  3. Menu label (text or "menu:..." button) → menu action
//  4. Slash command → command handler
//  5. Everything else → ignore
func (r *Router) Handle(ctx context.Context, msg InboundMessage) {
	if r.adminID != "" && msg.UserID != r.adminID {
		fmt.Fprintf(r.out, "bridge: router: drop non-admin sender %s\n", msg.UserID)
		return
	}

	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("bridge: router: handler panic: %v", rec)
			r.reply(ctx, msg.ChannelID, "Something went wrong: "+markup.Escape(fmt.Sprint(rec)))
		}
	}()

	if strings.HasPrefix(msg.CallbackData, "br:") {
		r.handleBrowserCallback(ctx, msg)
		return
	}

	if label := menuLabel(msg); label != "" {
		if out, ok := r.cmds.MenuAction(ctx, sessionKey(msg), label); ok {
			out.ChannelID = msg.ChannelID
			r.send(ctx, out)
			return
		}
	}

	text := strings.TrimSpace(msg.Text)
	if strings.HasPrefix(text, "/") {
		fmt.Fprintf(r.out, "bridge: router: command %q from %s\n", firstToken(text), msg.UserName)
		out := r.cmds.Execute(ctx, sessionKey(msg), text)
		out.ChannelID = msg.ChannelID
		r.send(ctx, out)
		return
	}

	fmt.Fprintf(r.out, "bridge: router: ignore %q\n", truncate(text, 60))
}

// handleBrowserCallback applies a browser button press and edits the
// grid message in place. Stale presses answer with a short notice and
// leave the grid alone.
func (r *Router) handleBrowserCallback(ctx context.Context, msg InboundMessage) {
	key := sessionKey(msg)
	cb, err := browse.ParseCallback(msg.CallbackData)
	if err != nil {
		log.Printf("bridge: router: bad callback: %v", err)
		return
	}

	switch cb.Action {
	case browse.ActionNoop:
		return
	case browse.ActionClose:
		r.cmds.browser.Close(key)
		r.edit(ctx, msg, OutboundMessage{Text: "Browser closed."})
		return
	case browse.ActionStream, browse.ActionStartRadio:
		// Dispatches answer as a fresh message; the grid stays usable.
		// A consumed radio selection also refreshes the grid so the
		// armed banner disappears.
		out, view := r.cmds.BrowserDispatch(ctx, key, cb)
		out.ChannelID = msg.ChannelID
		r.send(ctx, out)
		if view != nil {
			r.edit(ctx, msg, renderBrowser(view))
		}
		return
	}

	view, out, err := r.cmds.BrowserStep(ctx, key, cb)
	if err != nil {
		r.reply(ctx, msg.ChannelID, browserErrText(err))
		return
	}
	if view != nil {
		r.edit(ctx, msg, renderBrowser(view))
		return
	}
	r.edit(ctx, msg, out)
}

func browserErrText(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, browse.ErrStale):
		return "That list expired, reopen with /ls."
	case errors.Is(err, browse.ErrNoSession):
		return "No browser open, start one with /ls."
	default:
		return "Browse failed: " + markup.Escape(err.Error())
	}
}

// sessionKey scopes browser state to one chat on one platform.
func sessionKey(msg InboundMessage) string {
	return msg.Platform + ":" + msg.ChannelID
}

func firstToken(text string) string {
	if i := strings.IndexAny(text, " \t"); i >= 0 {
		return text[:i]
	}
	return text
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

func (r *Router) send(ctx context.Context, msg OutboundMessage) {
	if _, err := r.adapter.Send(ctx, msg); err != nil {
		log.Printf("bridge: router: send: %v", err)
	}
}

func (r *Router) reply(ctx context.Context, channelID, text string) {
	r.send(ctx, OutboundMessage{ChannelID: channelID, Text: text})
}

func (r *Router) edit(ctx context.Context, msg InboundMessage, out OutboundMessage) {
	out.ChannelID = msg.ChannelID
	if msg.MessageID == "" {
		r.send(ctx, out)
		return
	}
	if err := r.adapter.Edit(ctx, msg.MessageID, out); err != nil {
		log.Printf("bridge: router: edit: %v", err)
	}
}
