package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/phrazzld/inkpipe/internal/store"
)

// inTx runs fn in a transaction on db. When db is already a transaction fn
// joins it, so stores bound with WithTx compose into the caller's unit of
// work.
func inTx(ctx context.Context, db store.DBTX, fn store.TxFn) error {
	switch d := db.(type) {
	case *sql.Tx:
		return fn(ctx, d)
	case store.TxBeginner:
		return store.RunInTransaction(ctx, d, fn)
	default:
		return fmt.Errorf("%w: %T cannot begin a transaction", store.ErrTransactionFailed, db)
	}
}
