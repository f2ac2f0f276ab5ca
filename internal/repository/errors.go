// Package repository holds the MySQL-backed stores.  Sentinel errors below
// let the service layer classify failures without inspecting driver
// errors.
package repository

import (
    "errors"
    "strings"

    "github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when a lookup matches no row.  Owner-scoped
// lookups return it both for missing rows and rows owned by someone else.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a write loses against existing state, for
// example a second paid notification for the same order.
var ErrConflict = errors.New("conflict")

// ErrDuplicateCode signals a collision on the globally unique code column.
// Callers regenerate the code and retry.
var ErrDuplicateCode = errors.New("duplicate verification code")

// ErrDuplicateOwnerEvent signals that the owner already holds a code for
// the event.
var ErrDuplicateOwnerEvent = errors.New("code already issued for owner and event")

// ErrInvalidAmount is returned for a point debit below 1.
var ErrInvalidAmount = errors.New("point amount must be positive")

// ErrEmailExists is returned when registering an email that is taken.
var ErrEmailExists = errors.New("email already exists")

const mysqlDuplicateEntry = 1062

// duplicateKey reports whether err is a MySQL duplicate-entry error and,
// if so, the message naming the violated key.
func duplicateKey(err error) (string, bool) {
    var me *mysql.MySQLError
    if errors.As(err, &me) && me.Number == mysqlDuplicateEntry {
        return me.Message, true
    }
    return "", false
}

// classifyCodeInsert maps unique index violations on verification_codes
// onto the sentinels above.
func classifyCodeInsert(err error) error {
    msg, ok := duplicateKey(err)
    if !ok {
        return err
    }
    switch {
    case strings.Contains(msg, "uniq_owner_event"):
        return ErrDuplicateOwnerEvent
    case strings.Contains(msg, "uniq_code"):
        return ErrDuplicateCode
    }
    return ErrConflict
}
