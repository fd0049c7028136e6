package jobs

import (
	"context"
	"log/slog"

	"github.com/meridian-erp/meridian/internal/ledger/statements"
)

// LedgerNotifier reacts to ledger changes: it invalidates the statement
// cache immediately and queues a warmup so the next read is precomputed.
// Both actions are best-effort and never fail the calling request.
type LedgerNotifier struct {
	Cache  *statements.Cache
	Client *Client
	Logger *slog.Logger
}

// LedgerChanged bumps the statement cache version and enqueues a warmup
// for the current fiscal year.
func (n *LedgerNotifier) LedgerChanged(ctx context.Context) {
	if n == nil {
		return
	}
	if err := n.Cache.Bump(ctx); err != nil && n.Logger != nil {
		n.Logger.Warn("statement cache bump", slog.Any("error", err))
	}
	if n.Client != nil {
		if _, err := n.Client.EnqueueStatementsWarmup(ctx, StatementsWarmupPayload{}); err != nil && n.Logger != nil {
			n.Logger.Warn("enqueue statements warmup", slog.Any("error", err))
		}
	}
}
