// Package repository holds the MySQL implementations of the service
// stores. Sentinel errors below are translated by the service layer into
// its own error kinds; handlers never see them directly.
package repository

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when a lookup by id matches no row.
var ErrNotFound = errors.New("not found")

// ErrDuplicateCode is returned when a generated human-readable code
// collides with an existing row.
var ErrDuplicateCode = errors.New("duplicate code")

// ErrDuplicatePaymentOrder is returned when a booking already exists for
// the payment order being inserted.
var ErrDuplicatePaymentOrder = errors.New("duplicate payment order")

// ErrDuplicateEmail is returned when a partner registers an email that is
// already on file.
var ErrDuplicateEmail = errors.New("email already exists")

const mysqlDuplicateEntry = 1062

func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}

// duplicateOn reports whether err is a 1062 raised by the named unique index.
func duplicateOn(err error, index string) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry && strings.Contains(me.Message, index)
}
