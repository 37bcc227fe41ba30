package bridge

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/skiffbot/skiff/internal/aria2"
	"github.com/skiffbot/skiff/internal/browse"
	"github.com/skiffbot/skiff/internal/dispatch"
	"github.com/skiffbot/skiff/internal/keys"
	"github.com/skiffbot/skiff/internal/markup"
	"github.com/skiffbot/skiff/internal/probe"
	"github.com/skiffbot/skiff/internal/sysinfo"
)

// jobDispatcher is the slice of the dispatcher the commands use.
type jobDispatcher interface {
	Dispatch(ctx context.Context, req dispatch.Request) (*dispatch.Result, error)
	Usage(ctx context.Context) []dispatch.AccountUsage
	MediaURL(ctx context.Context, path, publicBase string) string
}

// downloadArg marks an entry-action press as a download instead of a
// stream.
const downloadArg = "dl"

// downloader is the slice of the aria2 client the commands use.
type downloader interface {
	AddURI(ctx context.Context, uri string) (string, error)
	Stat(ctx context.Context) (*aria2.GlobalStat, error)
	Active(ctx context.Context) ([]aria2.Task, error)
}

// urlResolver finds the public index address.
type urlResolver interface {
	PublicURL() (string, error)
}

// Commands executes chat commands and menu actions, returning
// chat-ready messages. Handler failures become reply text, never
// errors; the chat is the only place the operator can see them.
type Commands struct {
	dispatcher jobDispatcher
	browser    *browse.Browser
	keys       *keys.Store
	downloads  downloader
	tunnel     urlResolver
	prober     *probe.Prober
	streamBase string // push destination base, keys append to it
	localBase  string // local index address, fallback public base
	logDir     string // pm2 log directory for the admin log tail
	collect    func() (*sysinfo.Stats, error)
	restart    func(ctx context.Context) error
}

// CommandsOpts holds parameters for creating Commands.
type CommandsOpts struct {
	Dispatcher jobDispatcher
	Browser    *browse.Browser
	Keys       *keys.Store
	Downloads  downloader
	Tunnel     urlResolver
	Prober     *probe.Prober
	StreamBase string
	LocalBase  string
	LogDir     string
	// Collect and Restart override the host probes (for tests).
	Collect func() (*sysinfo.Stats, error)
	Restart func(ctx context.Context) error
}

// NewCommands creates a Commands handler.
func NewCommands(opts CommandsOpts) (*Commands, error) {
	if opts.Dispatcher == nil {
		return nil, fmt.Errorf("bridge: commands: dispatcher is required")
	}
	if opts.Browser == nil {
		return nil, fmt.Errorf("bridge: commands: browser is required")
	}
	if opts.Keys == nil {
		return nil, fmt.Errorf("bridge: commands: key store is required")
	}
	c := &Commands{
		dispatcher: opts.Dispatcher,
		browser:    opts.Browser,
		keys:       opts.Keys,
		downloads:  opts.Downloads,
		tunnel:     opts.Tunnel,
		prober:     opts.Prober,
		streamBase: opts.StreamBase,
		localBase:  opts.LocalBase,
		logDir:     opts.LogDir,
		collect:    opts.Collect,
		restart:    opts.Restart,
	}
	if c.collect == nil {
		c.collect = sysinfo.Collect
	}
	if c.restart == nil {
		c.restart = restartServices
	}
	return c, nil
}

// Execute runs a slash command and returns the reply.
func (c *Commands) Execute(ctx context.Context, key, text string) OutboundMessage {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return OutboundMessage{Text: helpText}
	}
	args := fields[1:]

	switch fields[0] {
	case "/start":
		return OutboundMessage{Text: welcomeText, Buttons: mainMenu()}
	case "/stream":
		return c.stream(ctx, args)
	case "/dl":
		return c.download(ctx, args)
	case "/ls":
		return c.list(ctx, key, args)
	case "/addkey":
		return c.addKey(args)
	case "/delkey":
		return c.delKey(args)
	case "/listkeys":
		return c.listKeys()
	case "/help":
		return OutboundMessage{Text: helpText}
	default:
		return OutboundMessage{Text: "Unknown command " + markup.Escape(fields[0]) + "\n\n" + helpText}
	}
}

// MenuAction runs a reply-menu action. The second return is false when
// the label is not a menu entry.
func (c *Commands) MenuAction(ctx context.Context, key, label string) (OutboundMessage, bool) {
	switch label {
	case labelBrowse:
		return c.list(ctx, key, nil), true
	case labelStatus:
		return c.status(ctx), true
	case labelDownloads:
		return c.downloadOverview(ctx), true
	case labelAdmin:
		return OutboundMessage{Text: "Admin actions:", Buttons: adminMenu()}, true
	case labelStreamCfg:
		return OutboundMessage{Text: "Stream setup:", Buttons: streamMenu()}, true
	case labelBack:
		return OutboundMessage{Text: "Main menu:", Buttons: mainMenu()}, true
	case labelTunnelURL:
		return c.tunnelURL(), true
	case labelUsage:
		return c.usage(ctx), true
	case labelRestart:
		return c.restartAll(ctx), true
	case labelLogs:
		return c.serviceLogs(), true
	case labelListKeys:
		return c.listKeys(), true
	case labelKeysHelp:
		return OutboundMessage{Text: keysHelpText}, true
	case labelRadioHelp:
		return OutboundMessage{Text: radioHelpText}, true
	case labelHelp:
		return OutboundMessage{Text: helpText}, true
	}
	return OutboundMessage{}, false
}

// stream handles "/stream <path> [key-name]".
func (c *Commands) stream(ctx context.Context, args []string) OutboundMessage {
	if len(args) == 0 {
		return OutboundMessage{Text: "Usage: /stream <path> [key-name]"}
	}
	keyName := ""
	if len(args) > 1 {
		keyName = args[1]
	}
	return c.dispatchStandard(ctx, args[0], keyName)
}

func (c *Commands) dispatchStandard(ctx context.Context, path, keyName string) OutboundMessage {
	rtmpURL, errMsg := c.rtmpFor(keyName)
	if errMsg != "" {
		return OutboundMessage{Text: errMsg}
	}
	res, err := c.dispatcher.Dispatch(ctx, dispatch.Request{
		Mode:       dispatch.ModeStandard,
		Path:       path,
		RTMPURL:    rtmpURL,
		PublicBase: c.publicBase(),
	})
	if err != nil {
		return OutboundMessage{Text: "Stream failed: " + markup.Escape(err.Error())}
	}
	return OutboundMessage{Text: res.Message}
}

// rtmpFor resolves the push destination: named key, else the default
// key, else the bare base. The second return is a user-facing error.
func (c *Commands) rtmpFor(keyName string) (string, string) {
	if c.streamBase == "" {
		return "", "No stream destination configured (set stream.base_url)."
	}
	if keyName != "" {
		suffix, ok, err := c.keys.Get(keyName)
		if err != nil {
			return "", "Key lookup failed: " + markup.Escape(err.Error())
		}
		if !ok {
			return "", "No key named " + markup.Escape(keyName) + ", see /listkeys."
		}
		return joinURL(c.streamBase, suffix), ""
	}
	if def, err := c.keys.Default(); err == nil && def != nil {
		return joinURL(c.streamBase, def.Suffix), ""
	}
	return c.streamBase, ""
}

// publicBase prefers the tunnel address and falls back to the local
// one when no tunnel is up.
func (c *Commands) publicBase() string {
	if c.tunnel != nil {
		if url, err := c.tunnel.PublicURL(); err == nil {
			return url
		}
	}
	return c.localBase
}

// download handles "/dl <url>".
func (c *Commands) download(ctx context.Context, args []string) OutboundMessage {
	if len(args) == 0 {
		return OutboundMessage{Text: "Usage: /dl <url>"}
	}
	if c.downloads == nil {
		return OutboundMessage{Text: "Downloads are not configured."}
	}
	gid, err := c.downloads.AddURI(ctx, args[0])
	if err != nil {
		return OutboundMessage{Text: "Download failed: " + markup.Escape(err.Error())}
	}
	return OutboundMessage{Text: "Download queued (gid " + markup.Escape(gid) + ")"}
}

// list handles "/ls [path]" and opens the browser grid.
func (c *Commands) list(ctx context.Context, key string, args []string) OutboundMessage {
	path := "/"
	if len(args) > 0 {
		path = args[0]
	}
	view, err := c.browser.Open(ctx, key, path)
	if err != nil {
		return OutboundMessage{Text: "Browse failed: " + markup.Escape(err.Error())}
	}
	return renderBrowser(view)
}

func (c *Commands) addKey(args []string) OutboundMessage {
	if len(args) < 2 {
		return OutboundMessage{Text: "Usage: /addkey <name> <suffix>"}
	}
	if err := c.keys.Add(args[0], args[1]); err != nil {
		return OutboundMessage{Text: "Add failed: " + markup.Escape(err.Error())}
	}
	return OutboundMessage{Text: "Key " + markup.Escape(args[0]) + " saved."}
}

func (c *Commands) delKey(args []string) OutboundMessage {
	if len(args) < 1 {
		return OutboundMessage{Text: "Usage: /delkey <name>"}
	}
	removed, err := c.keys.Delete(args[0])
	if err != nil {
		return OutboundMessage{Text: "Delete failed: " + markup.Escape(err.Error())}
	}
	if !removed {
		return OutboundMessage{Text: "No key named " + markup.Escape(args[0]) + "."}
	}
	return OutboundMessage{Text: "Key " + markup.Escape(args[0]) + " removed."}
}

func (c *Commands) listKeys() OutboundMessage {
	all, err := c.keys.All()
	if err != nil {
		return OutboundMessage{Text: "Key listing failed: " + markup.Escape(err.Error())}
	}
	if len(all) == 0 {
		return OutboundMessage{Text: "No stream keys yet, add one with /addkey."}
	}
	var b strings.Builder
	b.WriteString("Stream keys:\n")
	for _, k := range all {
		fmt.Fprintf(&b, "• %s → %s\n", markup.Escape(k.Name), markup.Escape(maskSuffix(k.Suffix)))
	}
	return OutboundMessage{Text: b.String()}
}

// status reports service health plus host resource usage.
func (c *Commands) status(ctx context.Context) OutboundMessage {
	var b strings.Builder
	b.WriteString("Services:\n")
	if c.prober != nil {
		for _, st := range c.prober.Check() {
			mark := "🔴"
			if st.Running {
				mark = "🟢"
			}
			fmt.Fprintf(&b, "%s %s\n", mark, st.Name)
		}
	}

	stats, err := c.collect()
	if err != nil {
		fmt.Fprintf(&b, "\nHost stats unavailable: %s", markup.Escape(err.Error()))
		return OutboundMessage{Text: b.String()}
	}
	fmt.Fprintf(&b, "\nCPU %.0f%% · RAM %.0f%%\nDisk %s / %s (%.0f%%)",
		stats.CPUPercent, stats.MemPercent,
		sysinfo.FormatBytes(stats.DiskUsed), sysinfo.FormatBytes(stats.DiskTotal), stats.DiskPercent)
	if stats.DiskWarning {
		b.WriteString("\n⚠️ Disk almost full")
	}
	return OutboundMessage{Text: b.String()}
}

// downloadOverview reports daemon speeds and the active task list.
func (c *Commands) downloadOverview(ctx context.Context) OutboundMessage {
	if c.downloads == nil {
		return OutboundMessage{Text: "Downloads are not configured."}
	}
	stat, err := c.downloads.Stat(ctx)
	if err != nil {
		return OutboundMessage{Text: "Download daemon unreachable: " + markup.Escape(err.Error())}
	}
	var b strings.Builder
	fmt.Fprintf(&b, "⬇️ %s/s · active %s · waiting %s · stopped %s\n",
		formatSpeed(stat.DownloadSpeed), stat.NumActive, stat.NumWaiting, stat.NumStopped)

	tasks, err := c.downloads.Active(ctx)
	if err == nil {
		for _, task := range tasks {
			fmt.Fprintf(&b, "• %s %s\n", markup.Escape(taskName(task)), taskProgress(task))
		}
	}
	return OutboundMessage{Text: b.String()}
}

func (c *Commands) tunnelURL() OutboundMessage {
	if c.tunnel == nil {
		return OutboundMessage{Text: "No tunnel configured."}
	}
	url, err := c.tunnel.PublicURL()
	if err != nil {
		return OutboundMessage{Text: "Tunnel is not up."}
	}
	return OutboundMessage{Text: "🌐 " + url}
}

func (c *Commands) usage(ctx context.Context) OutboundMessage {
	entries := c.dispatcher.Usage(ctx)
	if len(entries) == 0 {
		return OutboundMessage{Text: "No runner accounts configured."}
	}
	var b strings.Builder
	b.WriteString("Runner minutes:\n")
	for _, u := range entries {
		if u.Err != "" {
			fmt.Fprintf(&b, "• %s: %s\n", markup.Escape(u.Account), markup.Escape(u.Err))
			continue
		}
		fmt.Fprintf(&b, "• %s: %.0f/%.0f min (%.0f%%)\n", markup.Escape(u.Account), u.Used, u.Limit, u.Percent)
	}
	return OutboundMessage{Text: b.String()}
}

func (c *Commands) restartAll(ctx context.Context) OutboundMessage {
	if err := c.restart(ctx); err != nil {
		return OutboundMessage{Text: "Restart failed: " + markup.Escape(err.Error())}
	}
	return OutboundMessage{Text: "Services restarting."}
}

// restartServices bounces every pm2-managed daemon.
func restartServices(ctx context.Context) error {
	return exec.CommandContext(ctx, "pm2", "restart", "all").Run()
}

// BrowserStep applies a navigation callback and returns the refreshed
// view, or a standalone message for entry action menus.
func (c *Commands) BrowserStep(ctx context.Context, key string, cb *browse.Callback) (*browse.View, OutboundMessage, error) {
	switch cb.Action {
	case browse.ActionClick:
		entry, err := c.browser.Select(key, cb.Index)
		if err != nil {
			return nil, OutboundMessage{}, err
		}
		return nil, renderActionMenu(entry, cb.Index), nil
	case browse.ActionEnter:
		view, err := c.browser.Enter(ctx, key, cb.Index)
		return view, OutboundMessage{}, err
	case browse.ActionPage:
		view, err := c.browser.Page(key, cb.Index)
		return view, OutboundMessage{}, err
	case browse.ActionNav:
		if cb.Arg == "up" {
			view, err := c.browser.Up(ctx, key)
			return view, OutboundMessage{}, err
		}
		view, err := c.browser.Back(ctx, key)
		return view, OutboundMessage{}, err
	case browse.ActionSetAudio:
		if _, err := c.browser.SetRadioAudio(key, cb.Index); err != nil {
			return nil, OutboundMessage{}, err
		}
		view, err := c.browser.Page(key, 0)
		return view, OutboundMessage{}, err
	case browse.ActionSetImage:
		if _, err := c.browser.SetRadioImage(key, cb.Index); err != nil {
			return nil, OutboundMessage{}, err
		}
		view, err := c.browser.Page(key, 0)
		return view, OutboundMessage{}, err
	}
	return nil, OutboundMessage{}, fmt.Errorf("bridge: unhandled browser action %q", cb.Action)
}

// BrowserDispatch starts a job from a browser button: a single file
// stream or download, or the armed radio pair. The radio selection is
// cleared only once the dispatch succeeded; the second return is then
// the refreshed view so the grid re-renders without the armed banner.
func (c *Commands) BrowserDispatch(ctx context.Context, key string, cb *browse.Callback) (OutboundMessage, *browse.View) {
	if cb.Action == browse.ActionStream {
		_, path, err := c.browser.EntryPath(key, cb.Index)
		if err != nil {
			return OutboundMessage{Text: browserErrText(err)}, nil
		}
		if cb.Arg == downloadArg {
			return c.downloadPath(ctx, path), nil
		}
		return c.dispatchStandard(ctx, path, ""), nil
	}

	if !c.browser.RadioReady(key) {
		return OutboundMessage{Text: "Pick a radio audio file and cover image first."}, nil
	}
	view, err := c.browser.Page(key, 0)
	if err != nil {
		return OutboundMessage{Text: browserErrText(err)}, nil
	}
	rtmpURL, errMsg := c.rtmpFor("")
	if errMsg != "" {
		return OutboundMessage{Text: errMsg}, nil
	}
	res, err := c.dispatcher.Dispatch(ctx, dispatch.Request{
		Mode:       dispatch.ModeRadio,
		Audio:      view.Radio.Audio,
		Image:      view.Radio.Image,
		RTMPURL:    rtmpURL,
		PublicBase: c.publicBase(),
	})
	if err != nil {
		return OutboundMessage{Text: "Radio failed: " + markup.Escape(err.Error())}, nil
	}
	if res.OK {
		c.browser.TakeRadio(key)
		if refreshed, err := c.browser.Page(key, 0); err == nil {
			return OutboundMessage{Text: res.Message}, refreshed
		}
	}
	return OutboundMessage{Text: res.Message}, nil
}

// downloadPath queues a direct-URL download of an index path.
func (c *Commands) downloadPath(ctx context.Context, path string) OutboundMessage {
	if c.downloads == nil {
		return OutboundMessage{Text: "Downloads are not configured."}
	}
	url := c.dispatcher.MediaURL(ctx, path, c.publicBase())
	gid, err := c.downloads.AddURI(ctx, url)
	if err != nil {
		return OutboundMessage{Text: "Download failed: " + markup.Escape(err.Error())}
	}
	return OutboundMessage{Text: "Download queued (gid " + markup.Escape(gid) + ")"}
}

// joinURL joins a base URL and a suffix with exactly one slash.
func joinURL(base, suffix string) string {
	if suffix == "" {
		return strings.TrimRight(base, "/")
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(suffix, "/")
}

// maskSuffix hides most of a stream key for listings.
func maskSuffix(suffix string) string {
	if len(suffix) <= 4 {
		return "****"
	}
	return suffix[:2] + "***" + suffix[len(suffix)-2:]
}
