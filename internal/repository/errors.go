// Package repository defines the gorm-backed data access layer and the
// sentinel errors handlers use to distinguish failure scenarios.  Handlers
// translate ErrUserNotFound and ErrPostNotFound into 404 responses and
// ErrEmailExists into 409.
package repository

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

var (
	// ErrUserNotFound is returned when no user matches the lookup.
	ErrUserNotFound = errors.New("user not found")
	// ErrPostNotFound is returned when no post matches the lookup or update.
	ErrPostNotFound = errors.New("post not found")
	// ErrEmailExists is returned when the unique email index rejects an insert.
	ErrEmailExists = errors.New("email already exists")
)

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

// isDuplicateKey reports whether err is a unique-constraint violation.  gorm
// translates most drivers to ErrDuplicatedKey; the raw MySQL error and the
// SQLite message are matched as well for drivers or versions that do not.
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) && me.Number == mysqlDuplicateEntry {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint failed") || strings.Contains(msg, "duplicate key")
}
