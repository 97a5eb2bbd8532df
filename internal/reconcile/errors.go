package reconcile

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidAmount indicates an amount column could not be read as a whole number.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrEmptyID indicates a title slugified to an empty identifier.
	ErrEmptyID = errors.New("title yields an empty campaign id")
)

// AmountError reports the column and text of an unparseable amount.
type AmountError struct {
	Field string
	Value string
}

func (e *AmountError) Error() string {
	return fmt.Sprintf("%s: %s %q", ErrInvalidAmount, e.Field, e.Value)
}

// Unwrap lets errors.Is match ErrInvalidAmount.
func (e *AmountError) Unwrap() error {
	return ErrInvalidAmount
}
