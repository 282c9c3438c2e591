package sqlite

import (
	"errors"
	"strings"

	sqlitedrv "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// uniqueViolation reports whether err is a UNIQUE constraint failure and,
// if so, which column tripped it.
//
// The driver words the message as
// "constraint failed: UNIQUE constraint failed: users.username (2067)";
// the column is the word after the last dot.
func uniqueViolation(err error) (column string, ok bool) {
	var se *sqlitedrv.Error
	if !errors.As(err, &se) || se.Code() != sqlite3.SQLITE_CONSTRAINT_UNIQUE {
		return "", false
	}

	msg := se.Error()
	if i := strings.LastIndex(msg, "."); i >= 0 {
		if fields := strings.Fields(msg[i+1:]); len(fields) > 0 {
			column = fields[0]
		}
	}
	return column, true
}
