package dispatch

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/go-github/v68/github"
)

// AccountUsage is the Actions minutes consumption for one pool account.
type AccountUsage struct {
	Account string // masked owner name
	Used    float64
	Limit   float64
	Percent float64
	Err     string // non-empty when the query failed for this account
}

// Usage queries Actions billing for every pool account. It walks the pool
// read-only, never advancing the cyclic position, and folds per-account
// failures into the result so one dead token doesn't hide the rest.
func (d *Dispatcher) Usage(ctx context.Context) []AccountUsage {
	accounts := d.pool.Accounts()
	out := make([]AccountUsage, 0, len(accounts))

	for _, acct := range accounts {
		u := AccountUsage{Account: maskOwner(acct.Owner())}
		billingCtx, cancel := context.WithTimeout(ctx, billingTimeout)
		billing, err := d.newAPI(acct.Token).ActionsBilling(billingCtx, acct.Owner())
		cancel()
		if err != nil {
			u.Err = usageErrText(err)
			out = append(out, u)
			continue
		}
		u.Used = billing.TotalMinutesUsed
		u.Limit = billing.IncludedMinutes
		if u.Limit > 0 {
			u.Percent = u.Used / u.Limit * 100
		}
		out = append(out, u)
	}
	return out
}

// maskOwner hides most of an account owner's name for display.
func maskOwner(owner string) string {
	if len(owner) > 3 {
		return owner[:3] + "***"
	}
	return owner
}

// usageErrText maps billing API failures to short operator hints.
func usageErrText(err error) string {
	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		switch ghErr.Response.StatusCode {
		case http.StatusForbidden:
			return "insufficient scope (needs user scope)"
		case http.StatusNotFound:
			return "user not found (bad token?)"
		}
	}
	return err.Error()
}
