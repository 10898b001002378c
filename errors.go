package costbasis

import (
	"errors"
	"fmt"
	"time"
)

// Engine errors. Typed errors below unwrap to one of these, so callers can
// test with errors.Is.
var (
	// ErrMalformedTransaction indicates that a raw record could not be turned
	// into a TransactionEvent.
	ErrMalformedTransaction = errors.New("malformed transaction")

	// ErrInsufficientLots indicates that a disposal exceeds the quantity held.
	ErrInsufficientLots = errors.New("insufficient lots")

	// ErrDivisionByZero indicates a divide by a zero quantity, typically the
	// unit cost of an empty average cost bucket.
	ErrDivisionByZero = errors.New("division by zero")

	// ErrUnknownMethod indicates an accounting method outside FIFO, LIFO and AVERAGE_COST.
	ErrUnknownMethod = errors.New("unknown accounting method")

	// ErrUnknownKind indicates a transaction kind outside the supported enumeration.
	ErrUnknownKind = errors.New("unknown transaction kind")
)

// MalformedTransactionError reports a rejected raw record.
type MalformedTransactionError struct {
	Index  int    // position of the record in its batch, -1 when unknown.
	ID     string // record id, if any.
	Field  string // offending field.
	Reason string
}

func (e *MalformedTransactionError) Error() string {
	where := fmt.Sprintf("record %d", e.Index)
	if e.Index < 0 {
		where = "record"
	}
	if e.ID != "" {
		where += fmt.Sprintf(" (id %q)", e.ID)
	}
	return fmt.Sprintf("%s: %s: %s: %s", ErrMalformedTransaction, where, e.Field, e.Reason)
}

func (e *MalformedTransactionError) Unwrap() error { return ErrMalformedTransaction }

// InsufficientLotsError reports a disposal that exceeds the available quantity.
// The ledger it was matched against is left untouched.
type InsufficientLotsError struct {
	EventID   string
	Asset     string
	At        time.Time
	Requested Quantity
	Available Quantity
}

func (e *InsufficientLotsError) Error() string {
	return fmt.Sprintf("%s: on %s, event %q disposes %s %s but only %s available",
		ErrInsufficientLots, e.At.Format(time.RFC3339), e.EventID, e.Requested, e.Asset, e.Available)
}

func (e *InsufficientLotsError) Unwrap() error { return ErrInsufficientLots }
