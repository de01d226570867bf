package storage

import (
	"errors"

	"budget/internal/core"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// ConstraintKind identifies which SQLite constraint a write violated.
type ConstraintKind int

const (
	ConstraintNone ConstraintKind = iota
	ConstraintUnique
	ConstraintPrimaryKey
	ConstraintForeignKey
	ConstraintNotNull
	ConstraintCheck
	ConstraintOther
)

func (k ConstraintKind) String() string {
	switch k {
	case ConstraintNone:
		return "none"
	case ConstraintUnique:
		return "unique"
	case ConstraintPrimaryKey:
		return "primary_key"
	case ConstraintForeignKey:
		return "foreign_key"
	case ConstraintNotNull:
		return "not_null"
	case ConstraintCheck:
		return "check"
	default:
		return "other"
	}
}

// ClassifyConstraint inspects the extended result code of a driver error.
func ClassifyConstraint(err error) ConstraintKind {
	var serr *sqlite.Error
	if !errors.As(err, &serr) {
		return ConstraintNone
	}

	switch serr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE:
		return ConstraintUnique
	case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return ConstraintPrimaryKey
	case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
		return ConstraintForeignKey
	case sqlite3.SQLITE_CONSTRAINT_NOTNULL:
		return ConstraintNotNull
	case sqlite3.SQLITE_CONSTRAINT_CHECK:
		return ConstraintCheck
	}

	if serr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT {
		return ConstraintOther
	}
	return ConstraintNone
}

func storageErr(op string, err error) error {
	return &core.StorageError{Op: op, Err: err}
}
