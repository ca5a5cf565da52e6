// ==============================================================================
// TRANSACTION WRAPPER - internal/repository/postgres/tx.go
// ==============================================================================

package postgres

import (
	"fmt"

	"github.com/jmoiron/sqlx"

	"loanserve/internal/kyc"
)

// sqlxTransaction adapts *sqlx.Tx to the service-level Transaction interface.
type sqlxTransaction struct {
	tx *sqlx.Tx
}

func (t *sqlxTransaction) Commit() error   { return t.tx.Commit() }
func (t *sqlxTransaction) Rollback() error { return t.tx.Rollback() }

// unwrapTx recovers the concrete sqlx transaction. Repositories in this
// package only ever see transactions they issued themselves.
func unwrapTx(tx kyc.Transaction) (*sqlx.Tx, error) {
	st, ok := tx.(*sqlxTransaction)
	if !ok {
		return nil, fmt.Errorf("unexpected transaction type %T", tx)
	}
	return st.tx, nil
}
