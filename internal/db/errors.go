package db

import "errors"

var (
	// ErrKeyNotFound is returned by KVStore.Get for a missing key.
	ErrKeyNotFound = errors.New("db: key not found")
	// ErrIndexNotFound is returned when the named FT index does not exist.
	ErrIndexNotFound = errors.New("db: index not found")
	// ErrIndexExists is returned by CreateIndex when the index is already defined.
	ErrIndexExists = errors.New("db: index already exists")
)

// Op names the server command that failed.
type Op string

// Commands reported in Error.Op.
const (
	OpCreateIndex Op = "FT.CREATE"
	OpDropIndex   Op = "FT.DROPINDEX"
	OpIndexInfo   Op = "FT.INFO"
	OpSearch      Op = "FT.SEARCH"
	OpDel         Op = "DEL"
	OpMulti       Op = "MULTI"
	OpScan        Op = "SCAN"
	OpGet         Op = "GET"
	OpSet         Op = "SET"
)

// Error is a transport or server failure of one command. Target is the
// index, key or pattern the command addressed, when there is a single one.
type Error struct {
	Op     Op
	Target string
	Err    error
}

func (e *Error) Error() string {
	if e.Target == "" {
		return "db: " + string(e.Op) + ": " + e.Err.Error()
	}
	return "db: " + string(e.Op) + " " + e.Target + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// IsCommandError reports whether err carries a *Error for op.
func IsCommandError(err error, op Op) bool {
	var e *Error
	return errors.As(err, &e) && e.Op == op
}
