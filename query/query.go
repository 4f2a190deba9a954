// Package query embeds the large-object primitives into declarative SQL so
// bulk operations run as a single statement instead of one round-trip per
// row. The fragment builders map one-to-one onto the server-side functions
// the backend/postgres package calls individually.
package query

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Queryer is satisfied by pgx transactions, connections and pools.
type Queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Fragment builders. Each returns a SQL expression over the given operand
// expressions, suitable for embedding in a larger query.

func Create(oid string) string { return "lo_create(" + oid + ")" }

func Unlink(oid string) string { return "lo_unlink(" + oid + ")" }

func Open(oid, flags string) string { return "lo_open(" + oid + ", " + flags + ")" }

func Close(fd string) string { return "lo_close(" + fd + ")" }

func Read(fd, length string) string { return "loread(" + fd + ", " + length + ")" }

func Write(fd, data string) string { return "lowrite(" + fd + ", " + data + ")" }

func Seek(fd, offset, whence string) string {
	return "lo_lseek64(" + fd + ", " + offset + ", " + whence + ")"
}

func Tell(fd string) string { return "lo_tell64(" + fd + ")" }

func Resize(fd, size string) string { return "lo_truncate64(" + fd + ", " + size + ")" }

// UnlinkAll deletes every object whose oid the sel query yields, in one
// statement. sel must produce a single oid column, e.g.
//
//	UnlinkAll(ctx, tx, "SELECT attachment FROM mails WHERE expired", nil...)
//
// Returns the number of objects deleted. Must run inside a transaction for
// the same reasons the individual primitives do.
func UnlinkAll(ctx context.Context, q Queryer, sel string, args ...any) (int64, error) {
	stmt := fmt.Sprintf("SELECT %s FROM (%s) AS objects(oid)", Unlink("objects.oid"), sel)

	rows, err := q.Query(ctx, stmt, args...)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	var count int64
	for rows.Next() {
		count++
	}

	return count, rows.Err()
}
