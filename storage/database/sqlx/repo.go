package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/alama/core"
)

// repository holds what every sqlx repository shares. Queries are written with `?` placeholders
// and rebound to the driver's bind type.
type repository struct {
	db *sqlx.DB
}

func (repo repository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 {
		return svcExec[0]
	}
	return repo.db
}

// selectAll scans every row of q into dest, a pointer to a slice of row structs.
func (repo repository) selectAll(ctx context.Context, exec core.DBExecutor, dest interface{}, q string, args ...interface{}) error {
	rows, err := exec.QueryContext(ctx, repo.db.Rebind(q), args...)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()
	return sqlx.StructScan(rows, dest)
}

// selectOne scans the first row of q into dest, a pointer to a row struct. It returns sql.ErrNoRows if q matches nothing.
func (repo repository) selectOne(ctx context.Context, exec core.DBExecutor, dest interface{}, q string, args ...interface{}) error {
	rows, err := exec.QueryContext(ctx, repo.db.Rebind(q), args...)
	if err != nil {
		return err
	}
	r := &sqlx.Rows{Rows: rows, Mapper: repo.db.Mapper}
	defer func() { _ = r.Close() }()

	if !r.Next() {
		if err = r.Err(); err != nil {
			return err
		}
		return sql.ErrNoRows
	}
	return r.StructScan(dest)
}

func (repo repository) execute(ctx context.Context, exec core.DBExecutor, q string, args ...interface{}) error {
	_, err := exec.ExecContext(ctx, repo.db.Rebind(q), args...)
	return err
}

// in expands the slice arguments of an `IN (?)` query.
func in(q string, args ...interface{}) (string, []interface{}, error) {
	return sqlx.In(q, args...)
}

// utcOrZero returns the time of t in UTC, the zero time when t is null.
func utcOrZero(t null.Time) time.Time {
	if !t.Valid {
		return time.Time{}
	}
	return t.Time.UTC()
}

// orderBy renders ordering as an ORDER BY list. Fields missing from columns are ignored.
func orderBy(ordering []core.DBOrdering, columns map[string]string, fallback string) string {
	list := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		col, ok := columns[ord.Field]
		if !ok {
			continue
		}
		list = append(list, core.DBOrdering{Field: col, Ascending: ord.Ascending}.String())
	}
	if len(list) == 0 {
		return fallback
	}
	return strings.Join(list, ", ")
}
