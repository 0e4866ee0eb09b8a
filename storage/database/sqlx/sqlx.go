// Package sqlxrepos implements the domain repositories on PostgreSQL with sqlx.
//
// Repositories take any core.DBExecutor (a *sqlx.DB, or the *sql.Tx of a service transaction),
// so queries go through database/sql and sqlx does the binding and the struct scanning.
package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/rudradrivingschool/rudra-driving-school/core"
)

const uniqueViolation = "23505"

type base struct {
	exec core.DBExecutor
}

func (b base) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 && svcExec[0] != nil {
		return svcExec[0]
	}
	return b.exec
}

func newID() string {
	return uuid.New().String()
}

// validID reports whether id can be looked up at all: ids are uuid columns.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// selectRows runs query and scans every row into dest, a pointer to a slice of structs.
func selectRows(ctx context.Context, exec core.DBExecutor, dest interface{}, query string, args ...interface{}) error {
	rows, err := exec.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	return sqlx.StructScan(rows, dest)
}

// selectIn is selectRows for queries with an `IN (?)` clause, written with `?` bind vars.
func selectIn(ctx context.Context, exec core.DBExecutor, dest interface{}, query string, args ...interface{}) error {
	q, inArgs, err := sqlx.In(query, args...)
	if err != nil {
		return err
	}
	return selectRows(ctx, exec, dest, sqlx.Rebind(sqlx.DOLLAR, q), inArgs...)
}

// count runs a `SELECT COUNT(*)` query.
func count(ctx context.Context, exec core.DBExecutor, query string, args ...interface{}) (int, error) {
	var n int
	if err := exec.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// execNamed runs a query written with `:name` params bound from arg's db tags.
func execNamed(ctx context.Context, exec core.DBExecutor, query string, arg interface{}) (sql.Result, error) {
	q, args, err := sqlx.Named(query, arg)
	if err != nil {
		return nil, err
	}
	return exec.ExecContext(ctx, sqlx.Rebind(sqlx.DOLLAR, q), args...)
}

// mustAffect maps an update or delete that touched no row to notFound.
func mustAffect(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

// trapNoRowsErr maps psql "no rows" err to notFound
func trapNoRowsErr(err error, notFound error, msg string) error {
	if err == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

func isUniqueViolation(err error) bool {
	pqErr, ok := errors.Cause(err).(*pq.Error)
	return ok && pqErr.Code == uniqueViolation
}

func likePattern(search string) string {
	return "%" + search + "%"
}

// where collects AND-ed conditions written with `?` bind vars.
type where struct {
	conds []string
	args  []interface{}
}

func (w *where) add(cond string, args ...interface{}) {
	w.conds = append(w.conds, cond)
	w.args = append(w.args, args...)
}

// query appends the WHERE clause and tail to head and rebinds it for postgres.
func (w *where) query(head, tail string) string {
	q := head
	if len(w.conds) > 0 {
		q += " WHERE " + strings.Join(w.conds, " AND ")
	}
	return sqlx.Rebind(sqlx.DOLLAR, q+" "+tail)
}
