package domain

import (
	"errors"
	"fmt"
)

// ErrEmptyInput rejects submissions with no URLs and no usable text.
var ErrEmptyInput = errors.New("submission has no URL and no text")

// InvalidCategoryError reports a category that is not a member of the live
// category set, either from the classifier or from a correction applied after
// the set changed.
type InvalidCategoryError struct {
	Category string
	Allowed  []string
}

func (e *InvalidCategoryError) Error() string {
	return fmt.Sprintf("category %q is not in the allowed set (%d categories)", e.Category, len(e.Allowed))
}

// ClassifierUnavailableError wraps a model call that failed after retries.
type ClassifierUnavailableError struct {
	Err error
}

func (e *ClassifierUnavailableError) Error() string {
	return fmt.Sprintf("classifier unavailable: %v", e.Err)
}

func (e *ClassifierUnavailableError) Unwrap() error { return e.Err }

// StoreWriteError wraps a failed create or update against the record store.
type StoreWriteError struct {
	Op  string // "create", "update_category"
	Err error
}

func (e *StoreWriteError) Error() string {
	return fmt.Sprintf("store write (%s): %v", e.Op, e.Err)
}

func (e *StoreWriteError) Unwrap() error { return e.Err }

// StoreReadError wraps a failed read against the record store.
type StoreReadError struct {
	Op  string // "categories", "get"
	Err error
}

func (e *StoreReadError) Error() string {
	return fmt.Sprintf("store read (%s): %v", e.Op, e.Err)
}

func (e *StoreReadError) Unwrap() error { return e.Err }

// InvalidSelectionError reports a numeric reply outside the displayed menu.
// The pending correction stays active after this error.
type InvalidSelectionError struct {
	Selection int
	MenuLen   int
}

func (e *InvalidSelectionError) Error() string {
	return fmt.Sprintf("selection %d out of range 1..%d", e.Selection, e.MenuLen)
}
