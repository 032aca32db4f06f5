package main

import (
	"context"
	"database/sql"
	"time"

	dErrors "petchain/pkg/domain-errors"
	"petchain/pkg/platform/tx"
)

const defaultOutboxTxTimeout = 5 * time.Second

// outboxPostgresTx runs one relay flush (fetch, produce, mark) in a single
// transaction so rows locked by FOR UPDATE SKIP LOCKED stay locked until they
// are marked published.
type outboxPostgresTx struct {
	db      *sql.DB
	timeout time.Duration
}

func newOutboxPostgresTx(db *sql.DB) *outboxPostgresTx {
	return &outboxPostgresTx{db: db}
}

func (t *outboxPostgresTx) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultOutboxTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	return tx.Run(ctx, t.db, fn)
}
