// Package dispatch triggers remote streaming jobs across a round-robin
// pool of GitHub accounts.
package dispatch

import (
	"strings"
	"sync"
)

// minCredLen is the shortest credential accepted by the pool parser;
// anything this short is assumed to be a paste error and dropped.
const minCredLen = 5

// Account is one (repository, token) pair in the dispatch pool.
type Account struct {
	Repo  string // "owner/repo"
	Token string
}

// Owner returns the account's owner part.
func (a Account) Owner() string {
	owner, _, _ := strings.Cut(a.Repo, "/")
	return owner
}

// Name returns the repository name part.
func (a Account) Name() string {
	_, name, _ := strings.Cut(a.Repo, "/")
	return name
}

// Masked returns the repo with the repository name hidden, for display.
func (a Account) Masked() string {
	return a.Owner() + "/..."
}

// Pool is a fixed, ordered set of accounts handed out cyclically.
// It is built once from configuration and never resized.
type Pool struct {
	mu      sync.Mutex
	entries []Account
	pos     int
}

// ParsePool builds a Pool from a delimited configuration string: entries
// separated by commas or newlines, repo and token separated by a pipe.
// Extra pipe-delimited fields are discarded. Malformed entries (no pipe,
// repo without a slash, too-short token) are skipped silently so one bad
// paste never takes down the whole pool.
func ParsePool(s string) *Pool {
	p := &Pool{}
	for _, frag := range strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == '\n'
	}) {
		frag = strings.TrimSpace(frag)
		if frag == "" {
			continue
		}
		fields := strings.Split(frag, "|")
		if len(fields) < 2 {
			continue
		}
		repo := strings.TrimSpace(fields[0])
		token := strings.TrimSpace(fields[1])
		if !strings.Contains(repo, "/") || strings.HasPrefix(repo, "/") || strings.HasSuffix(repo, "/") {
			continue
		}
		if len(token) <= minCredLen {
			continue
		}
		p.entries = append(p.entries, Account{Repo: repo, Token: token})
	}
	return p
}

// Next returns the next account in cyclic order and its 1-based pool
// position. Returns false iff the pool is empty.
func (p *Pool) Next() (Account, int, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.entries) == 0 {
		return Account{}, 0, false
	}
	acct := p.entries[p.pos]
	pos := p.pos + 1
	p.pos = (p.pos + 1) % len(p.entries)
	return acct, pos, true
}

// Size returns the number of accounts in the pool.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

// Accounts returns a read-only copy of the pool in original order.
// It does not advance the cyclic position.
func (p *Pool) Accounts() []Account {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Account, len(p.entries))
	copy(out, p.entries)
	return out
}
