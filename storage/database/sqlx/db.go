package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/jhoelito123/PyStart/core"
)

type (
	// DB runs queries on the transaction carried by the context, or on the pool.
	DB struct {
		*sqlx.DB
	}

	txState struct {
		tx         *sqlx.Tx
		savepoints int
	}

	txKey struct{}

	executor interface {
		sqlx.ExtContext
		GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
		SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	}
)

var _ core.Transactor = (*DB)(nil)

func NewDB(db *sqlx.DB) *DB {
	return &DB{DB: db}
}

func (db *DB) exec(ctx context.Context) executor {
	if st, ok := ctx.Value(txKey{}).(*txState); ok {
		return st.tx
	}
	return db.DB
}

// InTx runs fn in a transaction. A nested call runs in a savepoint of the open transaction.
func (db *DB) InTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if st, ok := ctx.Value(txKey{}).(*txState); ok {
		return st.savepoint(ctx, fn)
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		if err = tx.Commit(); err != nil {
			err = errors.Wrap(err, "committing transaction")
		}
	}()
	return fn(context.WithValue(ctx, txKey{}, &txState{tx: tx}))
}

func (st *txState) savepoint(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	st.savepoints++
	name := fmt.Sprintf("sp_%d", st.savepoints)
	if _, err = st.tx.ExecContext(ctx, "SAVEPOINT "+name); err != nil {
		return errors.Wrap(err, "creating savepoint")
	}
	defer func() {
		if p := recover(); p != nil {
			_, _ = st.tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+name)
			panic(p)
		}
		if err != nil {
			if _, rbErr := st.tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+name); rbErr != nil {
				err = errors.Wrapf(err, "rolling back savepoint: %v", rbErr)
			}
			return
		}
		if _, err = st.tx.ExecContext(ctx, "RELEASE SAVEPOINT "+name); err != nil {
			err = errors.Wrap(err, "releasing savepoint")
		}
	}()
	return fn(ctx)
}

// Postgres error codes
const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

// pqError returns the Postgres error behind err with the given code.
func pqError(err error, code string) (*pq.Error, bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == code {
		return pqErr, true
	}
	return nil, false
}

// notFound maps sql.ErrNoRows to notFoundErr.
func notFound(err, notFoundErr error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return notFoundErr
	}
	return err
}
