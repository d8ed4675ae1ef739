// Package sqlxrepos implements the repositories on PostgreSQL with sqlx and squirrel.
package sqlxrepos

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/mathinsight/core"
)

const uniqueViolation = "23505"

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

type base struct {
	exec core.DBExecutor
}

func (b base) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 && svcExec[0] != nil {
		return svcExec[0]
	}
	return b.exec
}

func (b base) get(ctx context.Context, exec []core.DBExecutor, dest interface{}, qb sq.Sqlizer) error {
	query, args, err := qb.ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	return sqlx.GetContext(ctx, b.getExec(exec), dest, query, args...)
}

func (b base) selekt(ctx context.Context, exec []core.DBExecutor, dest interface{}, qb sq.Sqlizer) error {
	query, args, err := qb.ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	return sqlx.SelectContext(ctx, b.getExec(exec), dest, query, args...)
}

func (b base) exek(ctx context.Context, exec []core.DBExecutor, qb sq.Sqlizer) (sql.Result, error) {
	query, args, err := qb.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	return b.getExec(exec).ExecContext(ctx, query, args...)
}

// trapNoRowsErr maps "no rows" errors to notFound
func trapNoRowsErr(err error, notFound error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

// isUniqueViolation recognizes unique index violations from both lib/pq and pgx.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == uniqueViolation
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolation
	}
	return false
}

func orderBy(alias string, ordering []core.DBOrdering) []string {
	clauses := make([]string, 0, len(ordering)+1)
	for _, ord := range ordering {
		clauses = append(clauses, alias+"."+ord.String())
	}
	return append(clauses, alias+".id DESC")
}

// fullName renders first and last name, falling back to the username, like user.User.FullName.
func fullName(alias string) string {
	return "COALESCE(NULLIF(TRIM(" + alias + ".first_name || ' ' || " + alias + ".last_name), ''), " + alias + ".username)"
}
