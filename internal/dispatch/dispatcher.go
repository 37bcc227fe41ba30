package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/go-github/v68/github"
	"github.com/skiffbot/skiff/internal/alist"
	"github.com/skiffbot/skiff/internal/markup"
	"github.com/skiffbot/skiff/internal/models"
	"golang.org/x/oauth2"
	"gorm.io/gorm"
)

// eventType is the repository_dispatch event the streaming workflow
// listens for.
const eventType = "start_stream"

// radioPlaceholder fills the video_url payload field in radio mode; the
// workflow requires the field to be non-empty even when unused.
const radioPlaceholder = "radio"

// Deadlines on the automation API calls. The oauth2-built client has no
// transport timeout of its own.
const (
	dispatchTimeout = 10 * time.Second
	billingTimeout  = 5 * time.Second
)

// ErrNoAccount means the dispatch pool is empty.
var ErrNoAccount = errors.New("dispatch: no account configured (set stream.accounts)")

// StatusError is a non-accepted HTTP status from the dispatch API.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("dispatch: api status %d: %s", e.Code, e.Body)
}

// Mode selects between the two mutually exclusive dispatch variants.
type Mode string

const (
	ModeStandard Mode = "standard" // one media path, resolved to a URL
	ModeRadio    Mode = "radio"    // audio + image locators passed through
)

// Request describes one streaming job to submit.
type Request struct {
	Mode Mode
	// Path is the index path of the media file (standard mode).
	Path string
	// Audio and Image are the radio-mode locators, passed through as-is.
	Audio string
	Image string
	// RTMPURL is the fully assembled push destination.
	RTMPURL string
	// PublicBase is the public index address used for download-style URLs.
	PublicBase string
}

// Result is the outcome of one dispatch attempt.
type Result struct {
	OK       bool
	Message  string // chat-ready, markdown-escaped
	MediaURL string
	Account  Account
	Position int
}

// Index is the subset of the alist client the dispatcher needs. Token
// resolution is best-effort here: a failure yields an empty token, not
// an aborted dispatch.
type Index interface {
	Token(ctx context.Context) (string, error)
	Stat(ctx context.Context, path string) (*alist.FileInfo, error)
	BaseURL() string
}

// api is the slice of the GitHub API the dispatcher uses, one value per
// account token. Injected in tests.
type api interface {
	Dispatch(ctx context.Context, owner, repo string, opts github.DispatchRequestOptions) (*github.Response, error)
	ActionsBilling(ctx context.Context, user string) (*github.ActionBilling, error)
}

// ghAPI implements api over a real go-github client.
type ghAPI struct {
	client *github.Client
}

func (g *ghAPI) Dispatch(ctx context.Context, owner, repo string, opts github.DispatchRequestOptions) (*github.Response, error) {
	_, resp, err := g.client.Repositories.Dispatch(ctx, owner, repo, opts)
	return resp, err
}

func (g *ghAPI) ActionsBilling(ctx context.Context, user string) (*github.ActionBilling, error) {
	billing, _, err := g.client.Billing.GetActionsBillingUser(ctx, user)
	return billing, err
}

// newGitHubAPI builds an authenticated api for one account token.
func newGitHubAPI(token string) api {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	return &ghAPI{client: github.NewClient(oauth2.NewClient(context.Background(), ts))}
}

// Dispatcher submits streaming jobs, rotating through the account pool.
type Dispatcher struct {
	pool   *Pool
	index  Index
	db     *gorm.DB // optional; records dispatch history
	newAPI func(token string) api
}

// DispatcherOpts holds parameters for creating a Dispatcher.
type DispatcherOpts struct {
	Pool  *Pool
	Index Index
	DB    *gorm.DB // optional
	// NewAPI overrides the GitHub client factory (for tests).
	NewAPI func(token string) api
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(opts DispatcherOpts) (*Dispatcher, error) {
	if opts.Pool == nil {
		return nil, fmt.Errorf("dispatch: pool is required")
	}
	if opts.Index == nil {
		return nil, fmt.Errorf("dispatch: index client is required")
	}
	factory := opts.NewAPI
	if factory == nil {
		factory = newGitHubAPI
	}
	return &Dispatcher{
		pool:   opts.Pool,
		index:  opts.Index,
		db:     opts.DB,
		newAPI: factory,
	}, nil
}

// Dispatch submits one job and maps the outcome to a chat-ready Result.
// Error states are folded into the Result rather than returned: every
// outcome of a dispatch is an answer for the operator, not a crash.
// The only returned error is ErrNoAccount.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (*Result, error) {
	acct, pos, ok := d.pool.Next()
	if !ok {
		return nil, ErrNoAccount
	}

	// Best-effort token: the remote job may not need one.
	token, err := d.index.Token(ctx)
	if err != nil {
		token = ""
	}

	payload := map[string]string{"rtmp_url": req.RTMPURL}
	mediaURL := ""
	switch req.Mode {
	case ModeRadio:
		payload["video_url"] = radioPlaceholder
		payload["audio_path"] = req.Audio
		payload["image_path"] = req.Image
		payload["alist_url"] = req.PublicBase
		payload["alist_token"] = token
	default:
		mediaURL = d.resolveMediaURL(ctx, req, token)
		payload["video_url"] = mediaURL
		payload["alist_token"] = token
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("dispatch: encode payload: %w", err)
	}
	rawMsg := json.RawMessage(raw)

	res := &Result{MediaURL: mediaURL, Account: acct, Position: pos}
	apiCtx, cancel := context.WithTimeout(ctx, dispatchTimeout)
	defer cancel()
	_, apiErr := d.newAPI(acct.Token).Dispatch(apiCtx, acct.Owner(), acct.Name(), github.DispatchRequestOptions{
		EventType:     eventType,
		ClientPayload: &rawMsg,
	})
	d.mapOutcome(res, apiErr)
	d.record(req.Mode, res)
	return res, nil
}

// mapOutcome fills OK and Message from the API call result.
func (d *Dispatcher) mapOutcome(res *Result, err error) {
	if err == nil {
		res.OK = true
		res.Message = fmt.Sprintf("Job sent to runner %d/%d (account %s)",
			res.Position, d.pool.Size(), markup.Escape(res.Account.Masked()))
		return
	}

	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		switch ghErr.Response.StatusCode {
		case http.StatusNotFound:
			res.Message = fmt.Sprintf("Repository %s not found (check stream.accounts)",
				markup.Escape(res.Account.Masked()))
		case http.StatusUnauthorized:
			res.Message = fmt.Sprintf("Token for %s was rejected",
				markup.Escape(res.Account.Masked()))
		default:
			res.Message = fmt.Sprintf("Dispatch API error %d: %s",
				ghErr.Response.StatusCode, markup.Escape(ghErr.Message))
		}
		return
	}
	res.Message = "Dispatch request failed: " + markup.Escape(err.Error())
}

// resolveMediaURL finds a playable URL for a standard-mode request. A
// successful metadata lookup with a raw URL wins; anything else falls
// back to the conventional download-style URL. Fallback is a degraded
// path, not an error.
func (d *Dispatcher) resolveMediaURL(ctx context.Context, req Request, token string) string {
	if info, err := d.index.Stat(ctx, req.Path); err == nil && info.RawURL != "" {
		if strings.HasPrefix(info.RawURL, "/") {
			return appendToken(strings.TrimRight(d.index.BaseURL(), "/")+info.RawURL, token)
		}
		return info.RawURL
	}
	return downloadURL(req.PublicBase, req.Path, token)
}

// MediaURL resolves a directly fetchable URL for an index path, using
// the same raw-URL-then-fallback rule as standard dispatch.
func (d *Dispatcher) MediaURL(ctx context.Context, path, publicBase string) string {
	token, err := d.index.Token(ctx)
	if err != nil {
		token = ""
	}
	return d.resolveMediaURL(ctx, Request{Path: path, PublicBase: publicBase}, token)
}

// record writes a DispatchRecord row. History is best-effort: a storage
// failure is logged and does not affect the dispatch outcome.
func (d *Dispatcher) record(mode Mode, res *Result) {
	if d.db == nil {
		return
	}
	rec := models.DispatchRecord{
		Repo:     res.Account.Repo,
		Mode:     string(mode),
		MediaURL: res.MediaURL,
		OK:       res.OK,
		Message:  res.Message,
	}
	if err := d.db.Create(&rec).Error; err != nil {
		log.Printf("dispatch: record history: %v", err)
	}
}
