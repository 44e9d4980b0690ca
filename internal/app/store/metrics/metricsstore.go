package metricsstore

import (
	"context"

	"github.com/dalemusser/filescout/internal/domain/models"
)

// Counts is the account and session inventory exported as gauges.
type Counts struct {
	Groups        int64
	Admins        int64
	Members       int64
	BoundMembers  int64
	Authenticated int64
}

// AccountSource is the subset of accounts.Repository the inventory reads.
type AccountSource interface {
	ListGroups(ctx context.Context) ([]models.Group, error)
	CountAdmins(ctx context.Context) (int64, error)
	ListMembers(ctx context.Context) ([]models.Member, error)
}

// SessionCounter counts stored sessions that carry a verified role.
type SessionCounter interface {
	CountAuthenticated(ctx context.Context) (int64, error)
}

// FetchCounts returns the current inventory.
// Intentionally tolerant: on error it returns 0 for that counter.
// sessions may be nil.
func FetchCounts(ctx context.Context, accts AccountSource, sessions SessionCounter) Counts {
	var out Counts

	if groups, err := accts.ListGroups(ctx); err == nil {
		out.Groups = int64(len(groups))
	}

	if n, err := accts.CountAdmins(ctx); err == nil {
		out.Admins = n
	}

	if members, err := accts.ListMembers(ctx); err == nil {
		out.Members = int64(len(members))
		for _, m := range members {
			if m.Bound() {
				out.BoundMembers++
			}
		}
	}

	if sessions != nil {
		if n, err := sessions.CountAuthenticated(ctx); err == nil {
			out.Authenticated = n
		}
	}

	return out
}
