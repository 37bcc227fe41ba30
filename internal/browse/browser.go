package browse

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/skiffbot/skiff/internal/alist"
)

// pageSize is the number of entries rendered per page.
const pageSize = 10

// ErrStale means a button referenced a listing that has since been
// replaced. The pressed index cannot be trusted, so nothing happens.
var ErrStale = errors.New("browse: list expired, reopen the browser")

// ErrNoSession means no browser is open for the chat.
var ErrNoSession = errors.New("browse: no open session")

// Lister is the subset of the index client the browser needs.
type Lister interface {
	List(ctx context.Context, path string) ([]alist.Entry, error)
}

// View is a rendered page, ready for the chat surface to lay out.
type View struct {
	Path       string
	Page       int
	TotalPages int
	Entries    []alist.Entry // the current page slice
	Radio      Radio
}

// Browser drives per-chat file navigation over an index listing.
// One operation runs at a time; chat surfaces deliver button presses
// sequentially per chat anyway.
type Browser struct {
	mu     sync.Mutex
	store  *Store
	lister Lister
}

// BrowserOpts holds parameters for creating a Browser.
type BrowserOpts struct {
	Lister Lister
}

// NewBrowser creates a Browser with an empty session store.
func NewBrowser(opts BrowserOpts) (*Browser, error) {
	if opts.Lister == nil {
		return nil, fmt.Errorf("browse: lister is required")
	}
	return &Browser{store: NewStore(), lister: opts.Lister}, nil
}

// Open starts (or restarts) a session at path and renders page 0.
func (b *Browser) Open(ctx context.Context, key, path string) (*View, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	st := b.store.ensure(key)
	if err := b.load(ctx, st, path); err != nil {
		return nil, err
	}
	return b.view(st), nil
}

// Enter handles a press on entry index of the current page. A
// directory is entered; a file is left to Select.
func (b *Browser) Enter(ctx context.Context, key string, index int) (*View, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	st, entry, err := b.resolve(key, index)
	if err != nil {
		return nil, err
	}
	if !entry.IsDir {
		return b.view(st), nil
	}
	if err := b.load(ctx, st, joinPath(st.Path, entry.Name)); err != nil {
		return nil, err
	}
	return b.view(st), nil
}

// Up moves to the parent directory. At the root it stays put.
func (b *Browser) Up(ctx context.Context, key string) (*View, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	st, ok := b.store.get(key)
	if !ok {
		return nil, ErrNoSession
	}
	if err := b.load(ctx, st, parentPath(st.Path)); err != nil {
		return nil, err
	}
	return b.view(st), nil
}

// Page moves delta pages within the cached listing, clamped to the
// valid range. No refetch.
func (b *Browser) Page(key string, delta int) (*View, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	st, ok := b.store.get(key)
	if !ok {
		return nil, ErrNoSession
	}
	st.Page = clampPage(st.Page+delta, len(st.Entries))
	return b.view(st), nil
}

// Select returns the entry behind index on the current page, for the
// caller to build an action menu from.
func (b *Browser) Select(key string, index int) (*alist.Entry, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	_, entry, err := b.resolve(key, index)
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// EntryPath returns the entry behind index together with its absolute
// path in the index.
func (b *Browser) EntryPath(key string, index int) (*alist.Entry, string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	st, entry, err := b.resolve(key, index)
	if err != nil {
		return nil, "", err
	}
	return entry, joinPath(st.Path, entry.Name), nil
}

// Back refetches the current path and keeps the page, clamped in case
// the listing shrank.
func (b *Browser) Back(ctx context.Context, key string) (*View, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	st, ok := b.store.get(key)
	if !ok {
		return nil, ErrNoSession
	}
	page := st.Page
	if err := b.load(ctx, st, st.Path); err != nil {
		return nil, err
	}
	st.Page = clampPage(page, len(st.Entries))
	return b.view(st), nil
}

// SetRadioAudio records the absolute path of entry index as the radio
// audio source.
func (b *Browser) SetRadioAudio(key string, index int) (string, error) {
	return b.setRadio(key, index, true)
}

// SetRadioImage records the absolute path of entry index as the radio
// cover image.
func (b *Browser) SetRadioImage(key string, index int) (string, error) {
	return b.setRadio(key, index, false)
}

func (b *Browser) setRadio(key string, index int, audio bool) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	st, entry, err := b.resolve(key, index)
	if err != nil {
		return "", err
	}
	full := joinPath(st.Path, entry.Name)
	if audio {
		st.Radio.Audio = full
	} else {
		st.Radio.Image = full
	}
	return full, nil
}

// RadioReady reports whether both radio locators are selected.
func (b *Browser) RadioReady(key string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	st, ok := b.store.get(key)
	return ok && st.Radio.Audio != "" && st.Radio.Image != ""
}

// TakeRadio returns the radio selection and clears it. Call only after
// the dispatch succeeded so a failed job keeps the selection.
func (b *Browser) TakeRadio(key string) (Radio, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	st, ok := b.store.get(key)
	if !ok || st.Radio.Audio == "" || st.Radio.Image == "" {
		return Radio{}, false
	}
	r := st.Radio
	st.Radio = Radio{}
	return r, true
}

// Close drops the session.
func (b *Browser) Close(key string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.store.drop(key)
}

// load fetches and sorts a listing into st, resetting to page 0.
func (b *Browser) load(ctx context.Context, st *State, path string) error {
	entries, err := b.lister.List(ctx, path)
	if err != nil {
		return fmt.Errorf("browse: list %s: %w", path, err)
	}
	sortEntries(entries)
	st.Path = path
	st.Page = 0
	st.Entries = entries
	return nil
}

// resolve maps a page-relative index to its entry, guarding against
// presses on a listing that no longer matches.
func (b *Browser) resolve(key string, index int) (*State, *alist.Entry, error) {
	st, ok := b.store.get(key)
	if !ok {
		return nil, nil, ErrNoSession
	}
	abs := st.Page*pageSize + index
	if index < 0 || abs >= len(st.Entries) {
		return nil, nil, ErrStale
	}
	return st, &st.Entries[abs], nil
}

func (b *Browser) view(st *State) *View {
	total := totalPages(len(st.Entries))
	start := st.Page * pageSize
	end := start + pageSize
	if end > len(st.Entries) {
		end = len(st.Entries)
	}
	var page []alist.Entry
	if start < len(st.Entries) {
		page = st.Entries[start:end]
	}
	return &View{
		Path:       st.Path,
		Page:       st.Page,
		TotalPages: total,
		Entries:    page,
		Radio:      st.Radio,
	}
}

// sortEntries orders directories first, then bytewise by name within
// each group.
func sortEntries(entries []alist.Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].IsDir != entries[j].IsDir {
			return entries[i].IsDir
		}
		return entries[i].Name < entries[j].Name
	})
}

func totalPages(n int) int {
	pages := (n + pageSize - 1) / pageSize
	if pages < 1 {
		pages = 1
	}
	return pages
}

func clampPage(page, n int) int {
	last := totalPages(n) - 1
	if page < 0 {
		return 0
	}
	if page > last {
		return last
	}
	return page
}

// joinPath appends a name to a directory path with exactly one slash.
func joinPath(dir, name string) string {
	if dir == "" || dir == "/" {
		return "/" + name
	}
	return strings.TrimRight(dir, "/") + "/" + name
}

// parentPath returns the directory above path, stopping at the root.
func parentPath(path string) string {
	trimmed := strings.TrimRight(path, "/")
	idx := strings.LastIndex(trimmed, "/")
	if idx <= 0 {
		return "/"
	}
	return trimmed[:idx]
}
