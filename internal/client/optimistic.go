package client

import (
	"context"
	"fmt"
	"time"

	"github.com/anombyte93/TaskMasterWebViewer/internal/domain/issue"
)

// Optimistic issue mutations: the issues slot is updated speculatively
// before the request settles, rolled back atomically on failure, and
// invalidated (refetch of server truth) on settle either way.

func cloneIssues(in []issue.Issue) []issue.Issue {
	out := make([]issue.Issue, len(in))
	for i := range in {
		out[i] = in[i].Clone()
	}
	return out
}

// tempID marks a speculative entity that has no server identity yet.
func tempID(now time.Time) string {
	return fmt.Sprintf("temp-%d", now.UnixMilli())
}

// CreateIssue creates an issue with a speculative placeholder in the
// issues slot while the request is in flight.
func (c *Cache) CreateIssue(ctx context.Context, req issue.CreateRequest) (*issue.Issue, error) {
	snap, had := c.Issues.Snapshot()
	if had {
		speculative := issue.New(req, time.Now())
		speculative.ID = tempID(time.Now())
		c.Issues.Set(append(cloneIssues(snap), speculative))
	}

	created, err := c.client.CreateIssue(ctx, req)
	if err != nil {
		if had {
			c.Issues.Set(snap)
		}
		// The request may have landed even though the response did not
		// (timeouts), so a failed settle still reconciles against the server.
		c.InvalidateIssues()
		return nil, err
	}

	c.InvalidateIssues()
	return created, nil
}

// UpdateIssue applies a partial update, patching the cached entry
// speculatively while the request is in flight.
func (c *Cache) UpdateIssue(ctx context.Context, id string, req issue.UpdateRequest) (*issue.Issue, error) {
	snap, had := c.Issues.Snapshot()
	if had {
		speculative := cloneIssues(snap)
		for i := range speculative {
			if speculative[i].ID == id {
				speculative[i] = speculative[i].Apply(req, time.Now())
				break
			}
		}
		c.Issues.Set(speculative)
	}

	updated, err := c.client.UpdateIssue(ctx, id, req)
	if err != nil {
		if had {
			c.Issues.Set(snap)
		}
		c.InvalidateIssues()
		return nil, err
	}

	c.InvalidateIssues()
	return updated, nil
}

// DeleteIssue removes an issue, dropping the cached entry speculatively
// while the request is in flight.
func (c *Cache) DeleteIssue(ctx context.Context, id string) error {
	snap, had := c.Issues.Snapshot()
	if had {
		speculative := make([]issue.Issue, 0, len(snap))
		for _, iss := range snap {
			if iss.ID != id {
				speculative = append(speculative, iss.Clone())
			}
		}
		c.Issues.Set(speculative)
	}

	if err := c.client.DeleteIssue(ctx, id); err != nil {
		if had {
			c.Issues.Set(snap)
		}
		c.InvalidateIssues()
		return err
	}

	c.InvalidateIssues()
	return nil
}
