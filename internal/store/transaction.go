package store

import (
	"context"
	"fmt"

	"github.com/phrazzld/inkpipe/internal/platform/logger"
)

// RunInTransaction runs fn in a new transaction on db. It commits when fn
// returns nil and rolls back when fn fails or panics; a panic is re-raised
// after the rollback.
func RunInTransaction(ctx context.Context, db TxBeginner, fn TxFn) (err error) {
	log := logger.FromContext(ctx).With("component", "transaction")

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: failed to begin transaction: %v", ErrTransactionFailed, err)
	}

	finished := false
	defer func() {
		p := recover()
		if finished && p == nil {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Error("rollback failed", "error", rbErr, "panic", p)
			if p == nil {
				err = fmt.Errorf("%w (error rolling back transaction: %v)", err, rbErr)
			}
		} else {
			log.Debug("transaction rolled back", "error", err, "panic", p)
		}
		if p != nil {
			panic(p)
		}
	}()

	if err = fn(ctx, tx); err != nil {
		return err
	}
	finished = true
	if cerr := tx.Commit(); cerr != nil {
		log.Error("commit failed", "error", cerr)
		return fmt.Errorf("%w: failed to commit transaction: %v", ErrTransactionFailed, cerr)
	}
	return nil
}
